// Package logfile implements the append-only binary CAN trace sink: a
// 16-byte magic header followed by fixed-layout records, one per
// logged message. Draining is best-effort — a full channel drops the
// message rather than blocking ingest.
package logfile

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/redux-robotics/reduxfifo/internal/message"
	"go.uber.org/zap"
)

// Magic is the 16-byte file header every ReduxFIFO trace begins with.
const Magic = "ReduxFIFOLogFile"

// recordHeaderSize is the fixed portion of a record before its
// variable-length data.
const recordHeaderSize = 4 + 2 + 1 + 1 + 8 // id, bus, flags, data_size, timestamp

// Logger owns a background goroutine draining a channel of messages
// into an append-only file.
type Logger struct {
	ch     chan message.Message
	done   chan struct{}
	logger *zap.SugaredLogger
}

// Open creates (or truncates) path, writes the magic header, and
// starts the writer goroutine. Close must be called to flush and stop
// the writer.
func Open(path string, logger *zap.SugaredLogger) (*Logger, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	if _, err := f.WriteString(Magic); err != nil {
		f.Close()
		return nil, err
	}

	l := &Logger{
		ch:     make(chan message.Message, 4096),
		done:   make(chan struct{}),
		logger: logger,
	}
	go l.run(f)
	return l, nil
}

func (l *Logger) run(f *os.File) {
	defer close(l.done)
	defer f.Close()

	var hdr [recordHeaderSize]byte
	for msg := range l.ch {
		binary.LittleEndian.PutUint32(hdr[0:4], msg.ID)
		binary.LittleEndian.PutUint16(hdr[4:6], msg.BusID)
		hdr[6] = msg.Flags
		hdr[7] = msg.DataSize
		binary.LittleEndian.PutUint64(hdr[8:16], msg.Timestamp)

		if _, err := f.Write(hdr[:]); err != nil {
			l.logger.Warnw("logfile write failed, stopping writer", "error", err)
			return
		}
		if n := int(msg.DataSize); n > 0 {
			if _, err := f.Write(msg.Data[:n]); err != nil {
				l.logger.Warnw("logfile write failed, stopping writer", "error", err)
				return
			}
		}
	}
}

// TrySend enqueues msg for writing, dropping it if the channel is full
// (the logger never applies backpressure to ingest).
func (l *Logger) TrySend(msg message.Message) bool {
	select {
	case l.ch <- msg:
		return true
	default:
		return false
	}
}

// Close stops accepting new messages, waits for the writer to drain
// and flush, and closes the underlying file.
func (l *Logger) Close() error {
	close(l.ch)
	<-l.done
	return nil
}

var _ io.Closer = (*Logger)(nil)
