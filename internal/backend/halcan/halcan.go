// Package halcan adapts the roboRIO's onboard CAN bus (as exposed by
// the WPILib HAL) into a Backend. Bus address strings are simply
// "halcan"; per the original backend's own comment, this bus is opened
// unconditionally and the bus number is irrelevant to what it talks to.
//
// No WPILib HAL Go binding exists to link against here, so the HAL
// itself is behind the device interface. open always uses the loopback
// simulator this package supplies, so the fabric and session plumbing
// can be exercised without a roboRIO attached.
package halcan

import (
	"context"
	"sync"
	"time"

	"github.com/redux-robotics/reduxfifo/internal/backend"
	"github.com/redux-robotics/reduxfifo/internal/message"
	"github.com/redux-robotics/reduxfifo/internal/reduxerr"
	"github.com/redux-robotics/reduxfifo/internal/session"
	"github.com/redux-robotics/reduxfifo/internal/timebase"
	"go.uber.org/zap"
)

// pollInterval matches the original backend's 1ms HAL stream poll
// cadence; WPILib's CAN stream session has no blocking-read primitive.
const pollInterval = time.Millisecond

// rawFrame is one frame as handed back by the HAL CAN stream session,
// carrying its own monotonic timestamp in the HAL's clock domain.
type rawFrame struct {
	arbID     uint32
	data      [8]byte
	dataSize  byte
	timeStamp int64 // microseconds, HAL monotonic clock
	isEcho    bool
}

// device is the seam a real HAL CAN binding implements: initialize the
// HAL, drain whatever frames have arrived on the shared stream session,
// and send one frame.
type device interface {
	Initialize() error
	Drain(buf []rawFrame) (int, error)
	Send(arbID uint32, data []byte) error
	Close()
}

func init() {
	backend.Register("halcan", matches, open)
}

func matches(params string) bool {
	return params == "halcan"
}

// Backend drives the shared roboRIO CAN bus (bus number is nominal;
// the HAL has exactly one of these).
type Backend struct {
	busID    uint16
	sessions *session.Registry
	logger   *zap.SugaredLogger
	dev      device
	cancel   context.CancelFunc
}

func open(ctx context.Context, busID uint16, params string, sessions *session.Registry, logger *zap.SugaredLogger) (backend.Backend, error) {
	if !matches(params) {
		return nil, reduxerr.ErrBusNotSupported
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	dev := newLoopbackDevice()
	if err := dev.Initialize(); err != nil {
		return nil, reduxerr.Wrap(reduxerr.ErrHalCanOpenSession, err.Error())
	}

	runCtx, cancel := context.WithCancel(ctx)
	b := &Backend{busID: busID, sessions: sessions, logger: logger, dev: dev, cancel: cancel}
	go b.readLoop(runCtx)
	return b, nil
}

func (b *Backend) readLoop(ctx context.Context) {
	defer b.dev.Close()

	minTime := timebase.MonotonicUs()
	buf := make([]rawFrame, 64)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := b.dev.Drain(buf)
			if err != nil {
				b.logger.Warnw("halcan: drain failed", "error", err)
				continue
			}
			for _, f := range buf[:n] {
				if f.timeStamp < minTime {
					// discard frames timestamped before this session started
					continue
				}
				m := message.NewWithData(f.arbID, f.data[:f.dataSize])
				m.BusID = b.busID
				m.Timestamp = timebase.RetimestampFromMonotonic(f.timeStamp)
				if f.isEcho {
					m.Flags |= message.FlagTxEcho
				}
				b.sessions.Ingest(m)
			}
		}
	}
}

// WriteSingle sends one frame via the HAL's CAN send call.
func (b *Backend) WriteSingle(msg message.Message) error {
	if msg.DataSize > 8 {
		return reduxerr.ErrDataTooLong
	}
	if err := b.dev.Send(msg.ArbitrationID(), msg.DataSlice()); err != nil {
		return reduxerr.Wrap(reduxerr.ErrBusWriteFail, err.Error())
	}
	return nil
}

// ParamsMatch reports whether params names the roboRIO's single CAN bus.
func (b *Backend) ParamsMatch(params string) bool { return matches(params) }

// MaxPacketSize is 8; the roboRIO bus is classic CAN only.
func (b *Backend) MaxPacketSize() int { return 8 }

// Close cancels the read loop; the HAL session is released when it exits.
func (b *Backend) Close() error {
	b.cancel()
	return nil
}

// loopbackDevice is the HAL stand-in: writes loop back as received
// frames tagged as transmit echoes, exercising the same ingest and
// session-fanout path a real bus would.
type loopbackDevice struct {
	mu      sync.Mutex
	pending []rawFrame
}

func newLoopbackDevice() *loopbackDevice { return &loopbackDevice{} }

func (d *loopbackDevice) Initialize() error { return nil }

func (d *loopbackDevice) Drain(buf []rawFrame) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := copy(buf, d.pending)
	d.pending = d.pending[n:]
	return n, nil
}

func (d *loopbackDevice) Send(arbID uint32, data []byte) error {
	var raw rawFrame
	raw.arbID = arbID
	raw.dataSize = byte(len(data))
	copy(raw.data[:], data)
	raw.timeStamp = timebase.MonotonicUs()
	raw.isEcho = true

	d.mu.Lock()
	d.pending = append(d.pending, raw)
	d.mu.Unlock()
	return nil
}

func (d *loopbackDevice) Close() {}
