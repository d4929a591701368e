package controlplane

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redux-robotics/reduxfifo/internal/fabric"
	"github.com/redux-robotics/reduxfifo/internal/message"
	"github.com/redux-robotics/reduxfifo/internal/ota"
	"github.com/redux-robotics/reduxfifo/internal/reduxerr"
	"github.com/redux-robotics/reduxfifo/internal/session"
	"github.com/redux-robotics/reduxfifo/internal/timebase"
)

// otaSubIDMask clears the 4-bit message-direction selector
// (MessageData/MessageToHost/MessageToDevice) that ota.Client ORs into
// bits [6:10) of its base id, so a session filtered on it sees every
// direction of one device's OTA traffic.
const otaSubIDMask = ^uint32(0xF << 6)

// fabricClientIO bridges ota.Client's transport seam to a fabric bus:
// sends go through Fabric.WriteSingle, receives come from a dedicated
// filtered session read with the bus's own read barrier.
type fabricClientIO struct {
	fab     *fabric.Fabric
	busID   uint16
	session *session.Session
	readBuf *session.ReadBuffer

	scratchSize int
	transferID  uint32
	transfers   *transferRegistry
}

func newFabricClientIO(fab *fabric.Fabric, busID uint16, baseID uint32, scratchSize int) (*fabricClientIO, error) {
	cfg := session.Config{FilterID: baseID & otaSubIDMask, FilterMask: otaSubIDMask, EchoTx: false}
	sess, err := fab.OpenSession(busID, 64, cfg)
	if err != nil {
		return nil, err
	}
	return &fabricClientIO{
		fab:         fab,
		busID:       busID,
		session:     sess,
		readBuf:     session.NewReadBuffer(sess.ID, 64),
		scratchSize: scratchSize,
	}, nil
}

func (io *fabricClientIO) close() {
	_ = io.fab.CloseSession(io.busID, io.session.ID)
}

func (io *fabricClientIO) Send(ctx context.Context, id uint32, msg ota.ControlMessage, timeout time.Duration) error {
	m := message.NewWithData(id, msg.Data[:msg.Length])
	m.BusID = io.busID
	return io.fab.WriteSingle(m)
}

func (io *fabricClientIO) SendData(ctx context.Context, id uint32, data []byte, timeout time.Duration) error {
	m := message.NewWithData(id, data)
	m.BusID = io.busID
	return io.fab.WriteSingle(m)
}

func (io *fabricClientIO) Recv(ctx context.Context, timeout time.Duration) (ota.ControlMessage, error) {
	deadline := time.Now().Add(timeout)
	for {
		if io.readBuf.Ring.Len() == 0 {
			if err := io.fab.ReadBarrier(io.busID, io.readBuf); err != nil {
				return ota.ControlMessage{}, err
			}
		}
		if io.readBuf.Ring.Len() > 0 {
			msgs := io.readBuf.Ring.IterOldestFirst()
			io.readBuf.Ring.Clear()
			m := msgs[0]
			for _, extra := range msgs[1:] {
				io.readBuf.Ring.Add(extra)
			}
			return ota.NewControlMessage(m.DataSlice()), nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return ota.ControlMessage{}, reduxerr.ErrRecvTimeout
		}
		waitCtx, cancel := context.WithTimeout(ctx, remaining)
		err := io.session.Notifier.Wait(waitCtx, 0)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return ota.ControlMessage{}, ctx.Err()
			}
			return ota.ControlMessage{}, reduxerr.ErrRecvTimeout
		}
	}
}

func (io *fabricClientIO) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (io *fabricClientIO) Reset() {}

func (io *fabricClientIO) UpdateProgress(written int, pctProgress float32, speedBytesPerSec float32) {
	io.transfers.update(io.transferID, written, pctProgress, "")
}

func (io *fabricClientIO) NowSeconds() float32 {
	return float32(timebase.NowUs()) / 1e6
}

func (io *fabricClientIO) TransportSize() int { return io.scratchSize }

// transferState is one StartOTA call's progress, polled by OTAStatus
// and ended by either Run returning or AbortOTA cancelling it.
type transferState struct {
	state       string
	bytesSent   int
	totalBytes  int
	pctProgress float32
	err         string
	cancel      context.CancelFunc
}

// transferRegistry tracks every in-flight or completed OTA transfer by
// id, the control-plane counterpart to the fabric's bus map.
type transferRegistry struct {
	mu      sync.Mutex
	next    uint32
	entries map[uint32]*transferState
}

func newTransferRegistry() *transferRegistry {
	return &transferRegistry{entries: make(map[uint32]*transferState)}
}

func (r *transferRegistry) start(totalBytes int, cancel context.CancelFunc) uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.next
	r.next++
	r.entries[id] = &transferState{state: "running", totalBytes: totalBytes, cancel: cancel}
	return id
}

func (r *transferRegistry) update(id uint32, written int, pct float32, errMsg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.entries[id]
	if !ok {
		return
	}
	t.bytesSent = written
	t.pctProgress = pct
	if errMsg != "" {
		t.err = errMsg
	}
}

func (r *transferRegistry) finish(id uint32, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.entries[id]
	if !ok {
		return
	}
	switch {
	case err == nil:
		t.state = "done"
		t.pctProgress = 100
	case err == context.Canceled:
		t.state = "aborted"
	default:
		t.state = "failed"
		t.err = err.Error()
	}
}

func (r *transferRegistry) get(id uint32) (*transferState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	cp := *t
	return &cp, true
}

func (r *transferRegistry) abort(id uint32) error {
	r.mu.Lock()
	t, ok := r.entries[id]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown transfer %d", id)
	}
	t.cancel()
	return nil
}
