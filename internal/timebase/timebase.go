// Package timebase is the single source of truth for message
// timestamps: a monotonic microsecond clock, with retimestamping
// helpers for backends that receive kernel- or device-monotonic
// timestamps instead of wall time.
package timebase

import "time"

var startMono = time.Now()

// MonotonicUs returns microseconds elapsed on the process monotonic
// clock since an arbitrary epoch fixed at process start.
func MonotonicUs() int64 {
	return time.Since(startMono).Microseconds()
}

// NowUs returns the current fabric timebase in microseconds. On this
// platform there is no FPGA counter to defer to, so it is simply the
// monotonic clock.
func NowUs() uint64 {
	return uint64(MonotonicUs())
}

// RetimestampFromMonotonic converts a monotonic-clock timestamp (as
// reported by a backend's own clock domain, e.g. kernel SocketCAN
// timestamps or a HAL stream session) into the fabric timebase.
func RetimestampFromMonotonic(tsUs int64) uint64 {
	return uint64(tsUs + (int64(NowUs()) - MonotonicUs()))
}
