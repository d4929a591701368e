package session

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/redux-robotics/reduxfifo/internal/reduxerr"
)

// Notifier is a broadcastable watched counter: many waiters can block
// on "value changed" without a condvar per session. Every Set closes
// the current wakeup channel and installs a fresh one, so any number of
// concurrent Wait calls unblock together and re-check the new value.
// This is the Go substitute for a tokio::sync::watch receiver (see
// spec's design notes on cross-thread wakeup), grounded on the
// teacher's per-worker waker-channel pattern in
// modules/pdump/controlplane/ring.go.
type Notifier struct {
	value  atomic.Uint32
	closed atomic.Bool

	mu sync.Mutex
	ch chan struct{}
}

// NewNotifier creates a Notifier at value 0.
func NewNotifier() *Notifier {
	return &Notifier{ch: make(chan struct{})}
}

// Set stores a new value and wakes every current waiter.
func (n *Notifier) Set(v uint32) {
	n.value.Store(v)
	n.mu.Lock()
	close(n.ch)
	n.ch = make(chan struct{})
	n.mu.Unlock()
}

// Value returns the current counter value.
func (n *Notifier) Value() uint32 { return n.value.Load() }

// Wait blocks until Value() > threshold, the context is cancelled, or
// the notifier is closed. A threshold of 0 gives edge-triggered
// (value > 0) semantics; a higher threshold gives level-triggered
// (value >= N+1) semantics. Once Close has been called, Wait returns
// reduxerr.ErrSessionClosed instead of blocking again, since nothing
// will ever wake it after that point.
func (n *Notifier) Wait(ctx context.Context, threshold uint32) error {
	for {
		if n.value.Load() > threshold {
			return nil
		}
		if n.closed.Load() {
			return reduxerr.ErrSessionClosed
		}
		n.mu.Lock()
		wake := n.ch
		n.mu.Unlock()
		select {
		case <-wake:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close marks the notifier terminated and wakes all current waiters a
// final time; used when a session is destroyed so blocked readers
// observe termination instead of hanging forever.
func (n *Notifier) Close() {
	n.closed.Store(true)
	n.mu.Lock()
	close(n.ch)
	n.ch = make(chan struct{})
	n.mu.Unlock()
}
