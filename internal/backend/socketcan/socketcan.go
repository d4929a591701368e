// Package socketcan adapts a Linux SocketCAN interface (classic or FD)
// into a Backend. Matched params are "socketcan:<iface>" for classic
// frames and "socketcan.fd:<iface>" for FD frames, grounded on the raw
// AF_CAN/SOCK_RAW socket pattern in gocanopen's socketcanv3 backend.
package socketcan

import (
	"context"
	"encoding/binary"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/redux-robotics/reduxfifo/internal/backend"
	"github.com/redux-robotics/reduxfifo/internal/message"
	"github.com/redux-robotics/reduxfifo/internal/reduxerr"
	"github.com/redux-robotics/reduxfifo/internal/session"
	"github.com/redux-robotics/reduxfifo/internal/timebase"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// classicFrameSize is sizeof(struct can_frame): id(4) + dlc(1) + pad(3) + data(8).
const classicFrameSize = 16

// fdFrameSize is sizeof(struct canfd_frame): id(4) + len(1) + flags(3) + data(64).
const fdFrameSize = 72

// canRawFDFrames is CAN_RAW_FD_FRAMES, the SOL_CAN_RAW sockopt enabling
// FD frame I/O on a raw CAN socket.
const canRawFDFrames = 5

const (
	canIDFlagErr uint32 = 0x20000000
	canIDFlagRTR uint32 = 0x40000000
	canIDFlagEFF uint32 = 0x80000000
	canIDMask    uint32 = 0x1FFFFFFF
	canSFFMask   uint32 = 0x7FF

	canfdBRS byte = 0x01 // bit rate switch
	canfdESI byte = 0x02 // error state indicator
)

func init() {
	backend.Register("socketcan", matches, open)
}

func matches(params string) bool {
	_, _, err := parseParams(params)
	return err == nil
}

func parseParams(params string) (iface string, fd bool, err error) {
	rest, ok := strings.CutPrefix(params, "socketcan.fd:")
	if ok {
		if rest == "" {
			return "", false, reduxerr.ErrInvalidBus
		}
		return rest, true, nil
	}
	rest, ok = strings.CutPrefix(params, "socketcan:")
	if ok {
		if rest == "" {
			return "", false, reduxerr.ErrInvalidBus
		}
		return rest, false, nil
	}
	return "", false, reduxerr.ErrBusNotSupported
}

// Backend is a SocketCAN adapter. It holds its raw socket fd behind a
// mutex, reopening transparently if the interface disappears and
// reappears (e.g. a USB-CAN dongle unplugged and replugged).
type Backend struct {
	mu sync.Mutex

	iface string
	fd    bool
	busID uint16

	sock  int
	ready bool

	sessions *session.Registry
	logger   *zap.SugaredLogger
	cancel   context.CancelFunc
}

func open(ctx context.Context, busID uint16, params string, sessions *session.Registry, logger *zap.SugaredLogger) (backend.Backend, error) {
	iface, fd, err := parseParams(params)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	runCtx, cancel := context.WithCancel(ctx)
	b := &Backend{
		iface:    iface,
		fd:       fd,
		busID:    busID,
		sessions: sessions,
		logger:   logger,
		cancel:   cancel,
		sock:     -1,
	}

	if s, err := b.dial(); err == nil {
		b.sock = s
		b.ready = true
	} else {
		logger.Debugw("socketcan: initial open failed, will retry from read loop", "iface", iface, "error", err)
	}

	go b.readLoop(runCtx)
	return b, nil
}

// dial opens a fresh bound, blocking raw CAN socket on b.iface.
func (b *Backend) dial() (int, error) {
	iface, err := net.InterfaceByName(b.iface)
	if err != nil {
		return -1, err
	}

	fd, err := unix.Socket(unix.AF_CAN, unix.SOCK_RAW, unix.CAN_RAW)
	if err != nil {
		return -1, err
	}
	if b.fd {
		if err := unix.SetsockoptInt(fd, unix.SOL_CAN_RAW, canRawFDFrames, 1); err != nil {
			unix.Close(fd)
			return -1, err
		}
	}
	tv := unix.Timeval{Sec: 0, Usec: 500_000}
	if err := unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv); err != nil {
		unix.Close(fd)
		return -1, err
	}
	if err := unix.Bind(fd, &unix.SockaddrCAN{Ifindex: iface.Index}); err != nil {
		unix.Close(fd)
		return -1, err
	}
	return fd, nil
}

// reopen loops dialing b.iface every 50ms until it succeeds or ctx is
// cancelled, matching the original reopen_bus backoff.
func (b *Backend) reopen(ctx context.Context) (int, bool) {
	for {
		select {
		case <-ctx.Done():
			return -1, false
		default:
		}
		if s, err := b.dial(); err == nil {
			return s, true
		}
		select {
		case <-ctx.Done():
			return -1, false
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func (b *Backend) currentSock() (int, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sock, b.ready
}

func (b *Backend) setSock(fd int, ready bool) {
	b.mu.Lock()
	if b.ready && b.sock >= 0 {
		unix.Close(b.sock)
	}
	b.sock = fd
	b.ready = ready
	b.mu.Unlock()
}

func (b *Backend) readLoop(ctx context.Context) {
	sock, ready := b.currentSock()
	if !ready {
		sock, ready = b.reopen(ctx)
		if !ready {
			return
		}
		b.setSock(sock, true)
	}

	frameSize := classicFrameSize
	if b.fd {
		frameSize = fdFrameSize
	}
	buf := make([]byte, frameSize)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		n, err := unix.Read(sock, buf)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				// read timeout: confirm the interface is still present.
				if _, ifaceErr := net.InterfaceByName(b.iface); ifaceErr != nil {
					b.logger.Warnw("socketcan: interface gone, reopening", "iface", b.iface, "error", ifaceErr)
					b.setSock(-1, false)
					sock, ready = b.reopen(ctx)
					if !ready {
						return
					}
					b.setSock(sock, true)
				}
				continue
			}
			b.logger.Warnw("socketcan: read failed, reopening", "iface", b.iface, "error", err)
			b.setSock(-1, false)
			sock, ready = b.reopen(ctx)
			if !ready {
				return
			}
			b.setSock(sock, true)
			continue
		}
		if n < classicFrameSize {
			continue
		}

		msg := frameToMessage(buf[:n], b.fd, b.busID)
		b.sessions.Ingest(msg)
	}
}

func frameToMessage(raw []byte, fd bool, busID uint16) message.Message {
	canID := binary.LittleEndian.Uint32(raw[0:4])

	idb := message.NewIDBuilder(canID & canIDMask).
		Err(canID&canIDFlagErr != 0).
		RTR(canID&canIDFlagRTR != 0).
		ShortID(canID&canIDFlagEFF == 0)

	var flags byte
	var dataSize byte
	var data []byte
	if fd && len(raw) >= fdFrameSize {
		dataSize = raw[4]
		frameFlags := raw[5]
		if frameFlags&canfdBRS == 0 {
			flags |= message.FlagNoBRS
		}
		data = raw[8 : 8+int(dataSize)]
	} else {
		dataSize = raw[4]
		if dataSize > 8 {
			dataSize = 8
		}
		if fd {
			flags |= message.FlagNoFD
		}
		data = raw[8 : 8+int(dataSize)]
	}

	m := message.NewWithData(idb.Build(), data)
	m.BusID = busID
	m.Flags = flags
	m.Timestamp = timebase.NowUs()
	return m
}

func messageToFrame(msg message.Message, fd bool) ([]byte, error) {
	if !fd && msg.DataSize > 8 {
		return nil, reduxerr.ErrDataTooLong
	}

	var canID uint32 = msg.ArbitrationID()
	if msg.Err() {
		canID |= canIDFlagErr
	}
	if msg.RTR() {
		canID |= canIDFlagRTR
	}
	if !msg.ShortID() {
		canID |= canIDFlagEFF
	}

	if fd {
		buf := make([]byte, fdFrameSize)
		binary.LittleEndian.PutUint32(buf[0:4], canID)
		buf[4] = msg.DataSize
		if !msg.NoBRS() {
			buf[5] = canfdBRS
		}
		copy(buf[8:8+int(msg.DataSize)], msg.DataSlice())
		return buf, nil
	}

	buf := make([]byte, classicFrameSize)
	binary.LittleEndian.PutUint32(buf[0:4], canID)
	buf[4] = msg.DataSize
	copy(buf[8:8+int(msg.DataSize)], msg.DataSlice())
	return buf, nil
}

// WriteSingle writes one frame to the bound socket.
func (b *Backend) WriteSingle(msg message.Message) error {
	sock, ready := b.currentSock()
	if !ready {
		return reduxerr.ErrBusWriteFail
	}

	frame, err := messageToFrame(msg, b.fd)
	if err != nil {
		return err
	}

	_, err = unix.Write(sock, frame)
	if err == nil {
		return nil
	}
	if err == unix.ENOBUFS || err == unix.EWOULDBLOCK || err == unix.EAGAIN {
		return reduxerr.ErrBusBufferFull
	}
	b.logger.Warnw("socketcan: write failed", "iface", b.iface, "error", err)
	return reduxerr.ErrBusWriteFail
}

// ParamsMatch reports whether params addresses this same interface and
// frame mode.
func (b *Backend) ParamsMatch(params string) bool {
	iface, fd, err := parseParams(params)
	return err == nil && iface == b.iface && fd == b.fd
}

// MaxPacketSize is 8 for classic frames, 64 for FD frames.
func (b *Backend) MaxPacketSize() int {
	if b.fd {
		return 64
	}
	return 8
}

// Close cancels the read loop and closes the socket.
func (b *Backend) Close() error {
	b.cancel()
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ready && b.sock >= 0 {
		err := unix.Close(b.sock)
		b.ready = false
		b.sock = -1
		return err
	}
	return nil
}
