// Package slcan adapts an SLCAN-speaking serial adapter (Lawicel
// protocol over a UART, typically USB-CDC) into a Backend. Bus params
// are "slcan:<baud>:<path>".
package slcan

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redux-robotics/reduxfifo/internal/backend"
	"github.com/redux-robotics/reduxfifo/internal/message"
	"github.com/redux-robotics/reduxfifo/internal/reduxerr"
	"github.com/redux-robotics/reduxfifo/internal/session"
	"github.com/redux-robotics/reduxfifo/internal/timebase"
	"go.uber.org/zap"
)

func init() {
	backend.Register("slcan", matches, open)
}

// Params identifies one serial path and baud rate.
type Params struct {
	Baud int
	Path string
}

func parseParams(params string) (Params, error) {
	rest, ok := strings.CutPrefix(params, "slcan:")
	if !ok {
		return Params{}, reduxerr.ErrBusNotSupported
	}
	baudStr, path, ok := strings.Cut(rest, ":")
	if !ok || path == "" {
		return Params{}, reduxerr.ErrInvalidBus
	}
	baud, err := strconv.Atoi(baudStr)
	if err != nil {
		return Params{}, reduxerr.ErrInvalidBus
	}
	return Params{Baud: baud, Path: path}, nil
}

func matches(params string) bool {
	_, err := parseParams(params)
	return err == nil
}

// serialPort is the seam a UART transport implements. A real build
// wires this to the host's tty driver (open the device node at the
// given baud rate, raw mode, no flow control); openPort here supplies
// a loopback simulator so the handshake and frame codec logic above it
// can be exercised without real hardware.
type serialPort interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

var openPort = openLoopbackPort

// Backend drives one SLCAN adapter over a serial port.
type Backend struct {
	params Params
	port   serialPort

	writeMu sync.Mutex

	sessions *session.Registry
	logger   *zap.SugaredLogger
	cancel   context.CancelFunc
}

func open(ctx context.Context, busID uint16, params string, sessions *session.Registry, logger *zap.SugaredLogger) (backend.Backend, error) {
	p, err := parseParams(params)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	sp, err := openPort(p)
	if err != nil {
		return nil, reduxerr.Wrap(reduxerr.ErrFailedToOpenBus, err.Error())
	}

	runCtx, cancel := context.WithCancel(ctx)
	b := &Backend{params: p, port: sp, sessions: sessions, logger: logger, cancel: cancel}

	if err := b.handshake(); err != nil {
		cancel()
		sp.Close()
		return nil, reduxerr.Wrap(reduxerr.ErrFailedToOpenBus, err.Error())
	}

	go b.readLoop(runCtx, busID)
	return b, nil
}

// handshake clears the adapter's command channel, selects 1 Mbit/s CAN
// bit timing, and opens the channel, matching the "\r\r\rC\r\r\r" /
// "S8\r" / "O\r" sequence the reference backend sends on open.
func (b *Backend) handshake() error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	if _, err := b.port.Write([]byte("\r\r\rC\r\r\r")); err != nil {
		return err
	}
	time.Sleep(20 * time.Millisecond)

	if _, err := b.port.Write([]byte("S8\r")); err != nil {
		return err
	}
	if _, err := b.port.Write([]byte("O\r")); err != nil {
		return err
	}
	return nil
}

func (b *Backend) readLoop(ctx context.Context, busID uint16) {
	defer b.port.Close()

	var state rxStateMachine
	buf := make([]byte, 256)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		n, err := b.port.Read(buf)
		if err != nil {
			b.logger.Warnw("slcan: read failed, closing backend", "path", b.params.Path, "error", err)
			return
		}
		if n == 0 {
			continue
		}
		state.ingest(buf[:n])
		for {
			msg, ok := state.drain()
			if !ok {
				break
			}
			msg.BusID = busID
			msg.Timestamp = timebase.NowUs()
			b.sessions.Ingest(msg)
		}
	}
}

// WriteSingle serializes msg in SLCAN 29-bit data-frame form and
// writes it to the serial port.
func (b *Backend) WriteSingle(msg message.Message) error {
	if msg.DataSize > 8 {
		return reduxerr.ErrDataTooLong
	}
	frame := serializeFrame(msg)

	b.writeMu.Lock()
	_, err := b.port.Write(frame)
	b.writeMu.Unlock()
	if err != nil {
		return reduxerr.Wrap(reduxerr.ErrBusWriteFail, err.Error())
	}
	return nil
}

func serializeFrame(msg message.Message) []byte {
	n := int(msg.DataSize)
	if n > 8 {
		n = 8
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "T%08X%d", msg.ArbitrationID(), n)
	for _, b := range msg.DataSlice()[:n] {
		fmt.Fprintf(&sb, "%02X", b)
	}
	sb.WriteByte('\r')
	return []byte(sb.String())
}

// ParamsMatch reports whether params names this same serial path and
// baud rate.
func (b *Backend) ParamsMatch(params string) bool {
	p, err := parseParams(params)
	return err == nil && p == b.params
}

// MaxPacketSize is 8; SLCAN carries classic CAN only.
func (b *Backend) MaxPacketSize() int { return 8 }

// Close cancels the read loop; the port is closed when it exits.
func (b *Backend) Close() error {
	b.cancel()
	return nil
}

// rxStateMachine decodes the Lawicel ASCII frame grammar out of a
// growing byte buffer, skipping bytes it doesn't recognize as the
// start of a frame.
type rxStateMachine struct {
	buf []byte
}

const (
	stdHeaderLen = 5  // 't' + 3 hex id nibbles + 1 length digit
	extHeaderLen = 10 // 'T' + 8 hex id nibbles + 1 length digit
)

func (s *rxStateMachine) ingest(data []byte) {
	s.buf = append(s.buf, data...)
}

func (s *rxStateMachine) drain() (message.Message, bool) {
	for len(s.buf) > 0 {
		switch s.buf[0] {
		case 't', 'r':
			isRemote := s.buf[0] == 'r'
			if len(s.buf) < stdHeaderLen {
				return message.Message{}, false
			}
			id := decodeHexNibbles(s.buf[1:4])
			length := digitValue(s.buf[4])
			msg, ok := s.conjure(message.NewIDBuilder(id).ShortID(true).RTR(isRemote).Build(), length, isRemote, stdHeaderLen)
			if !ok {
				return message.Message{}, false
			}
			return msg, true
		case 'T', 'R':
			isRemote := s.buf[0] == 'R'
			if len(s.buf) < extHeaderLen {
				return message.Message{}, false
			}
			id := decodeHexNibbles(s.buf[1:9])
			length := digitValue(s.buf[9])
			msg, ok := s.conjure(message.NewIDBuilder(id).RTR(isRemote).Build(), length, isRemote, extHeaderLen)
			if !ok {
				return message.Message{}, false
			}
			return msg, true
		default:
			s.buf = s.buf[1:]
		}
	}
	return message.Message{}, false
}

func (s *rxStateMachine) conjure(id uint32, length byte, isRemote bool, headerLen int) (message.Message, bool) {
	if isRemote {
		msg := message.NewWithData(id, nil)
		msg.DataSize = length
		s.buf = s.buf[headerLen:]
		return msg, true
	}

	total := headerLen + int(length)*2
	if len(s.buf) < total {
		return message.Message{}, false
	}
	var data [8]byte
	for i := 0; i < int(length); i++ {
		msb := hexNibble(s.buf[headerLen+i*2])
		lsb := hexNibble(s.buf[headerLen+i*2+1])
		data[i] = msb<<4 | lsb
	}
	msg := message.NewWithData(id, data[:length])
	s.buf = s.buf[total:]
	return msg, true
}

func digitValue(b byte) byte {
	if b < '0' || b > '9' {
		return 0
	}
	v := b - '0'
	if v > 8 {
		v = 8
	}
	return v
}

func hexNibble(b byte) byte {
	switch {
	case b >= '0' && b <= '9':
		return b - '0'
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10
	default:
		return 0
	}
}

func decodeHexNibbles(b []byte) uint32 {
	var v uint32
	for _, c := range b {
		v = v<<4 | uint32(hexNibble(c))
	}
	return v
}
