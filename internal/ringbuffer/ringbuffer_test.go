package ringbuffer

import (
	"testing"

	"github.com/redux-robotics/reduxfifo/internal/message"
	"github.com/stretchr/testify/require"
)

func withID(id uint32) message.Message {
	return message.NewWithData(id, nil)
}

func TestRingOverflowKeepsNewest(t *testing.T) {
	r := New(3)
	for _, id := range []uint32{1, 2, 3, 4, 5} {
		r.Add(withID(id))
	}

	require.Equal(t, 3, r.Len())
	got := r.IterOldestFirst()
	ids := make([]uint32, len(got))
	for i, m := range got {
		ids[i] = m.ArbitrationID()
	}
	require.Equal(t, []uint32{3, 4, 5}, ids)
}

func TestRingNotFullYieldsInsertionOrder(t *testing.T) {
	r := New(5)
	r.Add(withID(10))
	r.Add(withID(20))

	got := r.IterOldestFirst()
	require.Len(t, got, 2)
	require.Equal(t, uint32(10), got[0].ArbitrationID())
	require.Equal(t, uint32(20), got[1].ArbitrationID())
}

func TestRingClear(t *testing.T) {
	r := New(2)
	r.Add(withID(1))
	r.Add(withID(2))
	r.Clear()
	require.Equal(t, 0, r.Len())
	require.Empty(t, r.IterOldestFirst())
}
