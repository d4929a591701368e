// Package backend defines the contract every CAN transport adapter
// implements, plus the prefix-keyed registry the fabric uses to
// dispatch open_or_get_bus by address-string prefix — a generalization
// of the teacher's coordinator/internal/registry module-registration
// pattern to backend dispatch.
package backend

import (
	"context"

	"github.com/redux-robotics/reduxfifo/internal/message"
	"github.com/redux-robotics/reduxfifo/internal/session"
	"go.uber.org/zap"
)

// Backend is the adapter contract for one concrete transport
// (SocketCAN, HAL CAN, RdxUSB, SLCAN, WebSocket). A backend owns its
// I/O handle and reopens on failure; it never takes down the bus on a
// transient I/O error.
type Backend interface {
	// WriteSingle writes one message, routed by the caller through
	// msg.BusID. Returns reduxerr.ErrBusBufferFull on a full transport
	// queue, reduxerr.ErrBusWriteFail otherwise.
	WriteSingle(msg message.Message) error
	// ParamsMatch reports whether params addresses the same physical
	// bus this backend already has open, so open_or_get_bus can return
	// the existing instance instead of opening a duplicate.
	ParamsMatch(params string) bool
	// MaxPacketSize is 8 for classic CAN/HAL/SLCAN, 64 for FD/USB/WebSocket.
	MaxPacketSize() int
	// Close shuts down the backend's read loop and releases its
	// transport handle.
	Close() error
}

// BatchWriter is implemented by backends that can fuse multiple
// messages into fewer transport writes (SocketCAN may do this);
// backends without a fused path get the default loop-over-WriteSingle
// behavior via WriteMessages.
type BatchWriter interface {
	WriteMessages(batch []message.Message) (written int, err error)
}

// WriteMessages writes batch through b, using its fused BatchWriter
// path if available and otherwise looping over WriteSingle, stopping
// at the first failure.
func WriteMessages(b Backend, batch []message.Message) (int, error) {
	if bw, ok := b.(BatchWriter); ok {
		return bw.WriteMessages(batch)
	}
	for i, msg := range batch {
		if err := b.WriteSingle(msg); err != nil {
			return i, err
		}
	}
	return len(batch), nil
}

// OpenFunc constructs a backend for a newly assigned bus id. sessions
// is the shared per-bus session table the backend's read loop ingests
// into; ctx is cancelled when the bus is closed.
type OpenFunc func(ctx context.Context, busID uint16, params string, sessions *session.Registry, logger *zap.SugaredLogger) (Backend, error)

// Matcher reports whether an address string is claimed by a backend
// kind, used to dispatch open_or_get_bus by prefix before any backend
// exists yet.
type Matcher func(params string) bool

type registration struct {
	name    string
	matches Matcher
	open    OpenFunc
}

var registry []registration

// Register installs a backend kind under name, keyed by matches for
// prefix dispatch. Backend packages call this from an init() so that
// importing the package for its side effect is enough to make the
// fabric support that bus kind — the same shape as the teacher's
// module registration.
func Register(name string, matches Matcher, open OpenFunc) {
	registry = append(registry, registration{name: name, matches: matches, open: open})
}

// Lookup returns the OpenFunc whose Matcher claims params, or false if
// no registered backend recognizes it.
func Lookup(params string) (OpenFunc, bool) {
	for _, r := range registry {
		if r.matches(params) {
			return r.open, true
		}
	}
	return nil, false
}
