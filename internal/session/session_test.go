package session

import (
	"testing"

	"github.com/redux-robotics/reduxfifo/internal/message"
	"github.com/stretchr/testify/require"
)

func TestFilterMatchesOnlyMaskedBits(t *testing.T) {
	reg := NewRegistry()
	sess, err := reg.Open(4, Config{FilterID: 0x0E0000, FilterMask: 0x00FF0000})
	require.NoError(t, err)

	matched := message.NewWithData(0x020E0040, []byte{1})
	unmatched := message.NewWithData(0x020F0040, []byte{1})

	reg.Ingest(matched)
	reg.Ingest(unmatched)

	require.Equal(t, 1, sess.Ring.Len())
	require.Equal(t, uint32(0x020E0040), sess.Ring.IterOldestFirst()[0].ArbitrationID())
}

func TestReadBarrierSwapsAndResetsNotifier(t *testing.T) {
	reg := NewRegistry()
	sess, err := reg.Open(4, DefaultConfig())
	require.NoError(t, err)

	reg.Ingest(message.NewWithData(0x0E0000, nil))
	require.Equal(t, uint32(1), sess.Notifier.Value())

	buf := NewReadBuffer(sess.ID, 4)
	require.NoError(t, reg.ReadBarrier(buf))

	require.Equal(t, 1, buf.Ring.Len())
	require.Equal(t, 0, sess.Ring.Len())
	require.Equal(t, uint32(0), sess.Notifier.Value())
}

func TestReadBarrierInvalidSession(t *testing.T) {
	reg := NewRegistry()
	buf := NewReadBuffer(999, 4)
	err := reg.ReadBarrier(buf)
	require.Error(t, err)
}

func TestIDCacheMasksDeviceNumber(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Open(4, Config{FilterID: 0, FilterMask: 0})
	require.NoError(t, err)

	reg.Ingest(message.NewWithData(0x020E0041, nil))
	reg.Ingest(message.NewWithData(0x020E0042, nil))

	snap := reg.IDCacheSnapshot()
	require.Len(t, snap, 1)
	_, ok := snap[0x020E0040]
	require.True(t, ok)
}
