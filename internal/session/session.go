// Package session implements the per-bus session registry: filtered
// fan-out of ingested messages into per-session ring buffers, plus the
// recent-id cache used for bus introspection.
package session

import (
	"github.com/redux-robotics/reduxfifo/internal/message"
	"github.com/redux-robotics/reduxfifo/internal/reduxerr"
	"github.com/redux-robotics/reduxfifo/internal/ringbuffer"
)

// deviceFilterMask strips the device-number bits (low 6 bits) and the
// unused high bits from an arbitration id, leaving device-type,
// manufacturer, and api-index — the key used by the recent-id cache.
const deviceFilterMask = 0x1FFF_003F

// Config is the caller-supplied filter and echo policy for a new
// session.
type Config struct {
	FilterID   uint32
	FilterMask uint32
	EchoTx     bool
}

// DefaultConfig matches every Redux-manufacturer frame
// (mfg byte 0x0E at bits [16:24)) regardless of device type or api
// index, without echoing the session's own transmits back to itself.
func DefaultConfig() Config {
	return Config{FilterID: 0x0E0000, FilterMask: 0xFF0000, EchoTx: false}
}

// Matches reports whether a message's flag-stripped arbitration id
// passes this session's filter.
func (c Config) Matches(msg *message.Message) bool {
	return msg.ArbitrationID()&c.FilterMask == c.FilterID
}

// LogSink receives ingested messages on a best-effort basis; a full
// sink drops rather than blocking ingest.
type LogSink interface {
	TrySend(msg message.Message) bool
}

// Session is one filtered consumer tap on a bus.
type Session struct {
	ID       uint32
	Config   Config
	Ring     *ringbuffer.RingBuffer
	Notifier *Notifier
}

// idCache maps a device-filtered arbitration id to the timestamp of its
// most recent sighting, used for bus introspection (device discovery).
type idCache struct {
	entries map[uint32]uint64
}

func newIDCache() *idCache { return &idCache{entries: make(map[uint32]uint64)} }

func (c *idCache) update(id uint32, ts uint64) {
	c.entries[id&deviceFilterMask] = ts
}

// Snapshot returns a copy of the cache, keyed by filtered arbitration
// id, valued by last-seen timestamp.
func (c *idCache) Snapshot() map[uint32]uint64 {
	out := make(map[uint32]uint64, len(c.entries))
	for k, v := range c.entries {
		out[k] = v
	}
	return out
}

// ReadBuffer is a caller-owned container swapped against a session's
// filled ring by ReadBarrier in O(1).
type ReadBuffer struct {
	SessionID uint32
	Ring      *ringbuffer.RingBuffer
}

// NewReadBuffer allocates an empty ring of the given capacity targeting
// sessionID; capacity must match (or exceed) the session's own ring
// capacity for the swap to be meaningful to the caller.
func NewReadBuffer(sessionID uint32, capacity int) *ReadBuffer {
	return &ReadBuffer{SessionID: sessionID, Ring: ringbuffer.New(capacity)}
}

// Registry holds every session on one bus, plus the bus-wide id cache.
// It is not safe for concurrent use; the fabric serializes access to a
// Registry under its bus's mutex.
type Registry struct {
	sessions map[uint32]*Session
	order    []uint32 // insertion order, for deterministic ingest fan-out
	nextID   uint32
	ids      *idCache
	logger   LogSink
}

// NewRegistry creates an empty per-bus session registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[uint32]*Session), ids: newIDCache()}
}

// AttachLogger installs a best-effort log sink; pass nil to detach.
func (r *Registry) AttachLogger(sink LogSink) { r.logger = sink }

// Open installs a new session with a dense, monotonically increasing
// id. capacity must be >= 1.
func (r *Registry) Open(capacity int, cfg Config) (*Session, error) {
	if capacity < 1 {
		return nil, reduxerr.ErrInvalidSessionID
	}
	sess := &Session{
		ID:       r.nextID,
		Config:   cfg,
		Ring:     ringbuffer.New(capacity),
		Notifier: NewNotifier(),
	}
	r.sessions[sess.ID] = sess
	r.order = append(r.order, sess.ID)
	r.nextID++
	return sess, nil
}

// Close removes a session and wakes any blocked waiter on it.
func (r *Registry) Close(sessionID uint32) error {
	sess, ok := r.sessions[sessionID]
	if !ok {
		return reduxerr.ErrInvalidSessionID
	}
	sess.Notifier.Close()
	delete(r.sessions, sessionID)
	for i, id := range r.order {
		if id == sessionID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// Get looks up a session by id.
func (r *Registry) Get(sessionID uint32) (*Session, bool) {
	sess, ok := r.sessions[sessionID]
	return sess, ok
}

// CloseAll invalidates every session, used when the owning bus closes.
func (r *Registry) CloseAll() {
	for _, id := range append([]uint32(nil), r.order...) {
		_ = r.Close(id)
	}
}

// Ingest updates the id cache, fans msg out to every matching session
// in insertion order, and best-effort-forwards to the attached logger.
// Order between two messages ingested in the same call is insertion
// order, matching the fabric's single-bus-lock serialization.
func (r *Registry) Ingest(msg message.Message) {
	r.ids.update(msg.ArbitrationID(), msg.Timestamp)

	for _, id := range r.order {
		sess := r.sessions[id]
		if sess.Config.Matches(&msg) {
			sess.Ring.Add(msg)
			sess.Notifier.Set(uint32(sess.Ring.Len()))
		}
	}

	if r.logger != nil {
		r.logger.TrySend(msg)
	}
}

// IDCacheSnapshot exposes the recent-id cache for bus introspection.
func (r *Registry) IDCacheSnapshot() map[uint32]uint64 { return r.ids.Snapshot() }

// ReadBarrier exchanges buf's ring with the target session's ring in
// O(1) and updates the notifier to reflect the session's new (now
// empty) ring length.
func (r *Registry) ReadBarrier(buf *ReadBuffer) error {
	sess, ok := r.sessions[buf.SessionID]
	if !ok {
		return reduxerr.ErrInvalidSessionID
	}
	buf.Ring, sess.Ring = sess.Ring, buf.Ring
	sess.Notifier.Set(uint32(sess.Ring.Len()))
	return nil
}
