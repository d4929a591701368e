// Package ringbuffer implements the fixed-capacity, newest-overwrites-
// oldest message ring shared by every session, grounded in the same
// write/read-index discipline as the teacher's packet-capture ring
// (modules/pdump/controlplane/ring.go), simplified here to a single
// in-process slice rather than a shared-memory region.
package ringbuffer

import "github.com/redux-robotics/reduxfifo/internal/message"

// RingBuffer is a fixed-capacity FIFO that overwrites the oldest entry
// once full. It is not safe for concurrent use; callers serialize
// access (the session registry does this under the per-bus mutex).
type RingBuffer struct {
	messages []message.Message
	valid    int
	next     int
}

// New creates a RingBuffer with the given capacity. Zero capacity is
// rejected by the caller (session open); New itself panics on it since
// it can never hold a message.
func New(capacity int) *RingBuffer {
	if capacity <= 0 {
		panic("ringbuffer: capacity must be positive")
	}
	return &RingBuffer{messages: make([]message.Message, capacity)}
}

// Capacity returns the buffer's fixed capacity.
func (r *RingBuffer) Capacity() int { return len(r.messages) }

// Len returns the number of valid (readable) messages currently held.
func (r *RingBuffer) Len() int { return r.valid }

// Add appends msg, overwriting the oldest entry once the buffer is
// full.
func (r *RingBuffer) Add(msg message.Message) {
	r.messages[r.next] = msg
	if r.valid < len(r.messages) {
		r.valid++
	}
	r.next = (r.next + 1) % len(r.messages)
}

// IterOldestFirst returns the valid messages ordered oldest to newest.
func (r *RingBuffer) IterOldestFirst() []message.Message {
	capacity := len(r.messages)
	if r.valid < capacity {
		out := make([]message.Message, r.valid)
		copy(out, r.messages[:r.valid])
		return out
	}
	out := make([]message.Message, 0, capacity)
	out = append(out, r.messages[r.next:]...)
	out = append(out, r.messages[:r.next]...)
	return out
}

// Clear empties the buffer without releasing its backing storage.
func (r *RingBuffer) Clear() {
	r.valid = 0
	r.next = 0
}
