// Package fabric is the process-wide bus map: open/close lifecycle,
// read/write barrier operations, and the rendezvous helpers (managed
// session, notifier access) that sit above the per-bus session
// registries and backend adapters.
package fabric

import (
	"context"
	"sync"

	"github.com/redux-robotics/reduxfifo/internal/backend"
	"github.com/redux-robotics/reduxfifo/internal/logfile"
	"github.com/redux-robotics/reduxfifo/internal/message"
	"github.com/redux-robotics/reduxfifo/internal/reduxerr"
	"github.com/redux-robotics/reduxfifo/internal/session"
	"go.uber.org/zap"
)

// Bus is one open logical CAN channel: a backend, its session
// registry, and the cancellation handle for its read loop.
type Bus struct {
	mu sync.Mutex

	ID       uint16
	Params   string
	Backend  backend.Backend
	Sessions *session.Registry

	cancel context.CancelFunc
	log    *logfile.Logger
}

// Fabric is the top-level bus map, equivalent to the process-wide
// fabric singleton described in the design notes; callers normally
// hold one instance per process, not a global.
type Fabric struct {
	mu     sync.Mutex
	buses  map[uint16]*Bus
	nextID uint16
	logger *zap.SugaredLogger

	// maxBuses bounds concurrently open buses; 0 means unbounded.
	maxBuses int
}

// New creates an empty Fabric. logger may be nil to discard logs.
func New(logger *zap.SugaredLogger, maxBuses int) *Fabric {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Fabric{buses: make(map[uint16]*Bus), logger: logger, maxBuses: maxBuses}
}

// OpenOrGetBus returns the id of an existing bus whose backend claims
// params, or dispatches by the params prefix to open a new one.
func (f *Fabric) OpenOrGetBus(ctx context.Context, params string) (uint16, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for id, bus := range f.buses {
		if bus.Backend.ParamsMatch(params) {
			return id, nil
		}
	}

	if f.maxBuses > 0 && len(f.buses) >= f.maxBuses {
		return 0, reduxerr.ErrMaxBusesOpened
	}

	open, ok := backend.Lookup(params)
	if !ok {
		return 0, reduxerr.ErrBusNotSupported
	}

	busID := f.nextID
	sessions := session.NewRegistry()
	busCtx, cancel := context.WithCancel(ctx)

	be, err := open(busCtx, busID, params, sessions, f.logger)
	if err != nil {
		cancel()
		return 0, reduxerr.Wrap(reduxerr.ErrFailedToOpenBus, err.Error())
	}

	f.buses[busID] = &Bus{
		ID:       busID,
		Params:   params,
		Backend:  be,
		Sessions: sessions,
		cancel:   cancel,
	}
	f.nextID++
	return busID, nil
}

// CloseBus aborts the bus's backend, invalidates every session on it,
// and removes it from the map.
func (f *Fabric) CloseBus(busID uint16) error {
	f.mu.Lock()
	bus, ok := f.buses[busID]
	if ok {
		delete(f.buses, busID)
	}
	f.mu.Unlock()
	if !ok {
		return reduxerr.ErrInvalidBus
	}

	bus.mu.Lock()
	bus.Sessions.CloseAll()
	bus.cancel()
	err := bus.Backend.Close()
	bus.mu.Unlock()
	return err
}

// Buses returns the ids of every currently open bus.
func (f *Fabric) Buses() []uint16 {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]uint16, 0, len(f.buses))
	for id := range f.buses {
		ids = append(ids, id)
	}
	return ids
}

// WithBus is an escape hatch for callers that need direct access to a
// bus's backend or session registry under its lock (e.g. the OTA
// uploader's direct single-message writes to the to-device id).
func (f *Fabric) WithBus(busID uint16, fn func(*Bus) error) error {
	f.mu.Lock()
	bus, ok := f.buses[busID]
	f.mu.Unlock()
	if !ok {
		return reduxerr.ErrInvalidBus
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	return fn(bus)
}

// MaxPacketSize returns the bus's backend's max packet size.
func (f *Fabric) MaxPacketSize(busID uint16) (int, error) {
	var size int
	err := f.WithBus(busID, func(b *Bus) error {
		size = b.Backend.MaxPacketSize()
		return nil
	})
	return size, err
}

// OpenSession installs a new filtered session on busID.
func (f *Fabric) OpenSession(busID uint16, capacity int, cfg session.Config) (*session.Session, error) {
	var sess *session.Session
	err := f.WithBus(busID, func(b *Bus) error {
		s, err := b.Sessions.Open(capacity, cfg)
		if err != nil {
			return err
		}
		sess = s
		return nil
	})
	return sess, err
}

// CloseSession removes a session from busID.
func (f *Fabric) CloseSession(busID uint16, sessionID uint32) error {
	return f.WithBus(busID, func(b *Bus) error {
		return b.Sessions.Close(sessionID)
	})
}

// ReadBarrier swaps buf with its target session's filled ring, under
// the owning bus's lock.
func (f *Fabric) ReadBarrier(busID uint16, buf *session.ReadBuffer) error {
	return f.WithBus(busID, func(b *Bus) error {
		return b.Sessions.ReadBarrier(buf)
	})
}

// ReadBarrierMultibus swaps every buffer in bufs against its bus,
// grouping by bus id to take each bus's lock only once. An invalid bus,
// or the first buffer on a bus that targets an invalid session, is
// reported in errs under that bus id; the remaining buffers are still
// swapped.
func (f *Fabric) ReadBarrierMultibus(bufs map[uint16][]*session.ReadBuffer) map[uint16]error {
	errs := make(map[uint16]error, len(bufs))
	for busID, group := range bufs {
		err := f.WithBus(busID, func(b *Bus) error {
			var first error
			for _, buf := range group {
				if e := b.Sessions.ReadBarrier(buf); e != nil && first == nil {
					first = e
				}
			}
			return first
		})
		if err != nil {
			errs[busID] = err
		}
	}
	return errs
}

// WriteBuffer is a caller-owned container of messages to write to one
// bus, with output fields recording how far the write barrier got.
type WriteBuffer struct {
	BusID           uint16
	Messages        []message.Message
	Status          error
	MessagesWritten int
}

// WriteBarrier writes each WriteBuffer's messages through its bus's
// backend, stopping at the first per-buffer failure and recording
// Status/MessagesWritten; a failure in one buffer does not prevent the
// others from being attempted.
func (f *Fabric) WriteBarrier(writes []*WriteBuffer) {
	for _, w := range writes {
		err := f.WithBus(w.BusID, func(b *Bus) error {
			written, err := backend.WriteMessages(b.Backend, w.Messages)
			w.MessagesWritten = written
			return err
		})
		w.Status = err
	}
}

// WriteSingle writes one message through the backend routed by
// msg.BusID.
func (f *Fabric) WriteSingle(msg message.Message) error {
	return f.WithBus(msg.BusID, func(b *Bus) error {
		if msg.DataSize > 8 && b.Backend.MaxPacketSize() <= 8 {
			return reduxerr.ErrDataTooLong
		}
		return b.Backend.WriteSingle(msg)
	})
}

// OpenLog attaches an append-only binary trace sink to busID, creating
// (or truncating) the file at path. Closing a previously attached log
// first is the caller's responsibility; OpenLog replaces it silently.
func (f *Fabric) OpenLog(busID uint16, path string, logger *zap.SugaredLogger) error {
	return f.WithBus(busID, func(b *Bus) error {
		l, err := logfile.Open(path, logger)
		if err != nil {
			return err
		}
		b.log = l
		b.Sessions.AttachLogger(l)
		return nil
	})
}

// CloseLog detaches and flushes busID's trace sink, if any.
func (f *Fabric) CloseLog(busID uint16) error {
	return f.WithBus(busID, func(b *Bus) error {
		if b.log == nil {
			return nil
		}
		b.Sessions.AttachLogger(nil)
		err := b.log.Close()
		b.log = nil
		return err
	})
}

// RxNotifier returns the watchable counter for sess's ring valid
// length.
func (f *Fabric) RxNotifier(busID uint16, sessionID uint32) (*session.Notifier, error) {
	var n *session.Notifier
	err := f.WithBus(busID, func(b *Bus) error {
		sess, ok := b.Sessions.Get(sessionID)
		if !ok {
			return reduxerr.ErrInvalidSessionID
		}
		n = sess.Notifier
		return nil
	})
	return n, err
}
