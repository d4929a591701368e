// Package wsbackend adapts a CANLink websocket server into a Backend.
// Bus params are the bare "ws://" or "wss://" URL to dial; the wire
// format is the CANLink binary frame (a 4-byte id, 2-byte bus id,
// 2-byte flags header, plus payload), distinct per direction.
package wsbackend

import (
	"context"
	"encoding/binary"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/redux-robotics/reduxfifo/internal/backend"
	"github.com/redux-robotics/reduxfifo/internal/message"
	"github.com/redux-robotics/reduxfifo/internal/reduxerr"
	"github.com/redux-robotics/reduxfifo/internal/session"
	"github.com/redux-robotics/reduxfifo/internal/timebase"
	"go.uber.org/zap"
)

// reconnectDelay matches the original backend's reconnect backoff.
const reconnectDelay = 100 * time.Millisecond

// rxHeaderSize is sizeof(CANLinkRxMessage) up to the data field:
// message_id(4) + bus_id(2) + flags(2) + timestamp(8).
const rxHeaderSize = 16

// txHeaderSize is sizeof(CANLinkTxMessage) up to the data field:
// message_id(4) + bus_id(2) + flags(2).
const txHeaderSize = 8

func init() {
	backend.Register("ws", matches, open)
}

func parseParams(params string) (string, error) {
	if !strings.HasPrefix(params, "ws://") && !strings.HasPrefix(params, "wss://") {
		return "", reduxerr.ErrBusNotSupported
	}
	if _, err := url.Parse(params); err != nil {
		return "", reduxerr.ErrInvalidBus
	}
	return params, nil
}

func matches(params string) bool {
	_, err := parseParams(params)
	return err == nil
}

// wsConn is the seam a websocket transport implements: whole-message
// read/write plus close, independent of framing and handshake detail.
// A real build wires this to a websocket client (HTTP upgrade
// handshake, masked client frames, ping/pong); dial here supplies a
// loopback simulator so the reconnect loop and CANLink codec above it
// can be exercised without a live server.
type wsConn interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close() error
}

var dial = dialLoopback

// Backend drives one CANLink websocket connection, queueing outbound
// messages on a channel drained by a write pump and redialing
// transparently on any read or write failure.
type Backend struct {
	url      string
	busID    uint16
	sessions *session.Registry
	logger   *zap.SugaredLogger
	cancel   context.CancelFunc

	writeCh chan message.Message
}

func open(ctx context.Context, busID uint16, params string, sessions *session.Registry, logger *zap.SugaredLogger) (backend.Backend, error) {
	wsURL, err := parseParams(params)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	runCtx, cancel := context.WithCancel(ctx)
	b := &Backend{
		url:      wsURL,
		busID:    busID,
		sessions: sessions,
		logger:   logger,
		cancel:   cancel,
		writeCh:  make(chan message.Message, 128),
	}
	go b.connectionLoop(runCtx)
	return b, nil
}

// connectionLoop dials, runs paired read/write pumps until one fails,
// then reconnects on a constant backoff — matching the original's
// dial-run-reconnect cycle.
func (b *Backend) connectionLoop(ctx context.Context) {
	reconnect := backoff.NewConstantBackOff(reconnectDelay)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		conn, err := dial(b.url)
		if err != nil {
			b.logger.Warnw("wsbackend: dial failed, retrying", "url", b.url, "error", err)
			if !sleepOrDone(ctx, reconnect.NextBackOff()) {
				return
			}
			continue
		}
		reconnect.Reset()

		done := make(chan struct{})
		go b.readPump(conn, done)
		b.writePump(ctx, conn, done)

		conn.Close()
		if !sleepOrDone(ctx, reconnect.NextBackOff()) {
			return
		}
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

func (b *Backend) readPump(conn wsConn, done chan<- struct{}) {
	defer close(done)
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			b.logger.Warnw("wsbackend: read failed, reconnecting", "url", b.url, "error", err)
			return
		}
		if len(data) < rxHeaderSize {
			continue
		}
		msg := rxMessageToMessage(data, b.busID)
		b.sessions.Ingest(msg)
	}
}

func (b *Backend) writePump(ctx context.Context, conn wsConn, done <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case msg := <-b.writeCh:
			frame := messageToTxFrame(msg, b.busID)
			if err := conn.WriteMessage(frame); err != nil {
				b.logger.Warnw("wsbackend: write failed, reconnecting", "url", b.url, "error", err)
				return
			}
		}
	}
}

func rxMessageToMessage(data []byte, busID uint16) message.Message {
	rawID := binary.LittleEndian.Uint32(data[0:4])
	flags := binary.LittleEndian.Uint16(data[6:8])
	timestamp := binary.LittleEndian.Uint64(data[8:16])

	payload := data[rxHeaderSize:]
	msg := message.NewWithData(rawID, payload)
	msg.BusID = busID
	msg.Flags = byte(flags)
	if timestamp == 0 {
		msg.Timestamp = timebase.NowUs()
	} else {
		msg.Timestamp = timestamp
	}
	return msg
}

func messageToTxFrame(msg message.Message, busID uint16) []byte {
	n := int(msg.DataSize)
	frame := make([]byte, txHeaderSize+n)
	binary.LittleEndian.PutUint32(frame[0:4], msg.ID)
	binary.LittleEndian.PutUint16(frame[4:6], busID)
	binary.LittleEndian.PutUint16(frame[6:8], uint16(msg.Flags))
	copy(frame[txHeaderSize:], msg.DataSlice())
	return frame
}

// WriteSingle queues msg for the write pump, reporting a full transport
// queue (rather than blocking) the same way the original's bounded
// mpsc channel does.
func (b *Backend) WriteSingle(msg message.Message) error {
	select {
	case b.writeCh <- msg:
		return nil
	default:
		return reduxerr.ErrBusBufferFull
	}
}

// ParamsMatch reports whether params names this same URL.
func (b *Backend) ParamsMatch(params string) bool {
	wsURL, err := parseParams(params)
	return err == nil && wsURL == b.url
}

// MaxPacketSize is 64; CANLink carries full CAN FD payloads.
func (b *Backend) MaxPacketSize() int { return message.MaxDataSize }

// Close cancels the connection loop; the socket closes as it unwinds.
func (b *Backend) Close() error {
	b.cancel()
	return nil
}
