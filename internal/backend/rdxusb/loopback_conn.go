package rdxusb

import (
	"sync"

	"github.com/redux-robotics/reduxfifo/internal/timebase"
)

// loopbackConn is the default usbConn: it reports the protocol version
// this backend expects and echoes writes back as received packets,
// exercising the same channel-dispatch and codec path a real USB
// transport would.
type loopbackConn struct {
	mu      sync.Mutex
	pending chan []byte
	closed  bool
}

func openLoopbackConn(vid, pid uint16, serial string) (usbConn, error) {
	return &loopbackConn{pending: make(chan []byte, 64)}, nil
}

func (c *loopbackConn) DeviceInfo() (major, minor uint16, err error) {
	return protocolVersionMajor, protocolVersionMinor, nil
}

func (c *loopbackConn) ReadPacket() ([]byte, error) {
	pkt, ok := <-c.pending
	if !ok {
		return nil, errConnClosed
	}
	return pkt, nil
}

func (c *loopbackConn) WritePacket(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errConnClosed
	}

	cp := make([]byte, len(data))
	copy(cp, data)
	if len(cp) >= 16 {
		putTimestampNs(cp, uint64(timebase.NowUs())*1000)
	}
	select {
	case c.pending <- cp:
	default:
	}
	return nil
}

func (c *loopbackConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.pending)
	return nil
}

func putTimestampNs(pkt []byte, ts uint64) {
	for i := 0; i < 8; i++ {
		pkt[8+i] = byte(ts >> (8 * i))
	}
}

type connClosedError string

func (e connClosedError) Error() string { return string(e) }

const errConnClosed = connClosedError("rdxusb: connection closed")
