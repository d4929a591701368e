package ota

import (
	"context"
	"time"

	"github.com/redux-robotics/reduxfifo/internal/reduxerr"
)

// scriptedRecv is one queued reply for fakeIO.Recv: either a message or
// a timeout.
type scriptedRecv struct {
	msg     ControlMessage
	timeout bool
}

// fakeIO is a deterministic, in-memory ClientIO used to drive the v1/v2
// state machines without a real bus. Recv replies are consumed in
// order; Send/SendData calls are merely recorded.
type fakeIO struct {
	recvScript []scriptedRecv
	recvIdx    int

	sent     []ControlMessage
	dataSent [][]byte
	resets   int
	now      float32
}

func (f *fakeIO) Send(_ context.Context, _ uint32, msg ControlMessage, _ time.Duration) error {
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeIO) SendData(_ context.Context, _ uint32, data []byte, _ time.Duration) error {
	cp := make([]byte, len(data))
	copy(cp, data)
	f.dataSent = append(f.dataSent, cp)
	return nil
}

func (f *fakeIO) Recv(_ context.Context, _ time.Duration) (ControlMessage, error) {
	if f.recvIdx >= len(f.recvScript) {
		return ControlMessage{}, reduxerr.ErrRecvTimeout
	}
	item := f.recvScript[f.recvIdx]
	f.recvIdx++
	if item.timeout {
		return ControlMessage{}, reduxerr.ErrRecvTimeout
	}
	return item.msg, nil
}

func (f *fakeIO) Sleep(_ context.Context, _ time.Duration) error { return nil }
func (f *fakeIO) Reset()                                         { f.resets++ }
func (f *fakeIO) UpdateProgress(int, float32, float32)           {}

func (f *fakeIO) NowSeconds() float32 {
	f.now += 1
	return f.now
}

func (f *fakeIO) TransportSize() int { return 8 }

func ackMsg(kind AckKind, value uint32) ControlMessage {
	b := Command{Kind: CmdAck, Ack: Ack{Kind: kind, Value: value}}.ToBytes()
	return ControlMessage{Data: b, Length: 8}
}

func nackMsg(n Nack) ControlMessage {
	b := Command{Kind: CmdNack, Nack: n}.ToBytes()
	return ControlMessage{Data: b, Length: 8}
}
