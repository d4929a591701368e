package ota

import (
	"context"
	"encoding/binary"
	"testing"
)

func tellMsg(offset uint32) ControlMessage {
	var d [8]byte
	d[0] = v1RespContinue
	binary.LittleEndian.PutUint32(d[1:5], offset)
	return ControlMessage{Data: d, Length: 5}
}

func TestRecvChunkReplyV1ContinueIsSuccess(t *testing.T) {
	io := &fakeIO{recvScript: []scriptedRecv{
		{msg: ControlMessage{Data: [8]byte{v1RespContinue}, Length: 1}},
	}}
	c := &Client{id: 0x200, io: io}
	if err := c.recvChunkReplyV1(context.Background(), 0, [8]byte{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRecvChunkReplyV1ErrIsFailure(t *testing.T) {
	io := &fakeIO{recvScript: []scriptedRecv{
		{msg: ControlMessage{Data: [8]byte{v1RespErr}, Length: 1}},
	}}
	c := &Client{id: 0x200, io: io}
	if err := c.recvChunkReplyV1(context.Background(), 0, [8]byte{}); err == nil {
		t.Fatal("expected error")
	}
}

// TestRecvChunkReplyV1TellRecoversAndResends covers the drop-then-TELL
// path: the CONTINUE for the frame at idx never arrives, TELL reports
// the device is still sitting at idx, so the frame is resent and the
// loop's second status check finally sees CONTINUE.
func TestRecvChunkReplyV1TellRecoversAndResends(t *testing.T) {
	idx := 8
	io := &fakeIO{recvScript: []scriptedRecv{
		{timeout: true},                   // status wait times out
		{msg: tellMsg(uint32(idx))},        // TELL: device is still at idx
		{msg: ControlMessage{Data: [8]byte{v1RespContinue}, Length: 1}}, // after resend
	}}
	c := &Client{id: 0x200, io: io}
	data := [8]byte{1, 2, 3, 4, 5, 6, 7, 8}
	if err := c.recvChunkReplyV1(context.Background(), idx, data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(io.sent) != 2 {
		t.Fatalf("expected a TELL command plus one resend, got %d sends", len(io.sent))
	}
	if io.sent[1].Data != data {
		t.Fatalf("resent frame does not match original data")
	}
}

// TestRecvChunkReplyV1TellAdvancesPastChunk covers the case where TELL
// reports the device already moved past idx: the chunk is considered
// delivered and the loop returns without resending.
func TestRecvChunkReplyV1TellAdvancesPastChunk(t *testing.T) {
	idx := 8
	io := &fakeIO{recvScript: []scriptedRecv{
		{timeout: true},
		{msg: tellMsg(uint32(idx + 8))},
	}}
	c := &Client{id: 0x200, io: io}
	if err := c.recvChunkReplyV1(context.Background(), idx, [8]byte{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(io.sent) != 1 {
		t.Fatalf("expected only the TELL command, no resend, got %d", len(io.sent))
	}
}

func TestFinishV1HappyPath(t *testing.T) {
	io := &fakeIO{recvScript: []scriptedRecv{
		{msg: ControlMessage{Data: [8]byte{v1RespContinue}, Length: 1}}, // first NEXT
		{msg: ControlMessage{Data: [8]byte{v1RespContinue}, Length: 1}}, // second NEXT
		{msg: ControlMessage{Data: [8]byte{v1RespComplete}, Length: 1}}, // third NEXT -> complete
	}}
	c := &Client{id: 0x200, io: io}
	if err := c.finishV1(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if io.resets != 1 {
		t.Fatalf("expected exactly one reset, got %d", io.resets)
	}
}

func TestFinishV1AllContinuePreservesTimeout(t *testing.T) {
	script := []scriptedRecv{
		{msg: ControlMessage{Data: [8]byte{v1RespContinue}, Length: 1}},
		{msg: ControlMessage{Data: [8]byte{v1RespContinue}, Length: 1}},
	}
	for i := 0; i < 10; i++ {
		script = append(script, scriptedRecv{msg: ControlMessage{Data: [8]byte{v1RespContinue}, Length: 1}})
	}
	io := &fakeIO{recvScript: script}
	c := &Client{id: 0x200, io: io}
	if err := c.finishV1(context.Background()); err == nil {
		t.Fatal("expected timeout error when status never resolves")
	}
}
