package fabric

import (
	"context"
	"strings"
	"testing"

	"github.com/redux-robotics/reduxfifo/internal/backend"
	"github.com/redux-robotics/reduxfifo/internal/message"
	"github.com/redux-robotics/reduxfifo/internal/session"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeBackend struct {
	params  string
	written []message.Message
}

func (b *fakeBackend) WriteSingle(msg message.Message) error {
	b.written = append(b.written, msg)
	return nil
}
func (b *fakeBackend) ParamsMatch(params string) bool { return params == b.params }
func (b *fakeBackend) MaxPacketSize() int             { return 8 }
func (b *fakeBackend) Close() error                   { return nil }

func init() {
	backend.Register("fake", func(params string) bool {
		return strings.HasPrefix(params, "fake:")
	}, func(_ context.Context, _ uint16, params string, _ *session.Registry, _ *zap.SugaredLogger) (backend.Backend, error) {
		return &fakeBackend{params: params}, nil
	})
}

func TestOpenOrGetBusDedupesByParams(t *testing.T) {
	f := New(nil, 0)
	id1, err := f.OpenOrGetBus(context.Background(), "fake:one")
	require.NoError(t, err)
	id2, err := f.OpenOrGetBus(context.Background(), "fake:one")
	require.NoError(t, err)
	require.Equal(t, id1, id2)

	id3, err := f.OpenOrGetBus(context.Background(), "fake:two")
	require.NoError(t, err)
	require.NotEqual(t, id1, id3)
}

func TestOpenOrGetBusUnsupportedPrefix(t *testing.T) {
	f := New(nil, 0)
	_, err := f.OpenOrGetBus(context.Background(), "nonsense:whatever")
	require.Error(t, err)
}

func TestSessionLifecycleAndReadBarrier(t *testing.T) {
	f := New(nil, 0)
	busID, err := f.OpenOrGetBus(context.Background(), "fake:bus")
	require.NoError(t, err)

	sess, err := f.OpenSession(busID, 4, session.DefaultConfig())
	require.NoError(t, err)

	require.NoError(t, f.WriteSingle(message.Message{BusID: busID, ID: 0x0E0000, DataSize: 1}))

	err = f.WithBus(busID, func(b *Bus) error {
		b.Sessions.Ingest(message.NewWithData(0x0E0000, []byte{9}))
		return nil
	})
	require.NoError(t, err)

	buf := session.NewReadBuffer(sess.ID, 4)
	require.NoError(t, f.ReadBarrier(busID, buf))
	require.Equal(t, 1, buf.Ring.Len())

	require.NoError(t, f.CloseSession(busID, sess.ID))
	require.Error(t, f.ReadBarrier(busID, buf))
}

func TestCloseBusInvalidatesFutureCalls(t *testing.T) {
	f := New(nil, 0)
	busID, err := f.OpenOrGetBus(context.Background(), "fake:closeme")
	require.NoError(t, err)
	require.NoError(t, f.CloseBus(busID))
	require.Error(t, f.CloseBus(busID))
	_, err = f.MaxPacketSize(busID)
	require.Error(t, err)
}
