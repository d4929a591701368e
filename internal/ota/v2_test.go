package ota

import (
	"context"
	"testing"

	"github.com/redux-robotics/reduxfifo/internal/reduxerr"
)

func TestSendRecvChunkOpReturnsNackImmediately(t *testing.T) {
	io := &fakeIO{recvScript: []scriptedRecv{
		{msg: nackMsg(NackChunkCRC32Fail)},
	}}
	c := &Client{id: 0x100, io: io}

	n, err := c.sendRecvChunkOp(context.Background(), cmdVerifyChunk(500), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n == nil || *n != NackChunkCRC32Fail {
		t.Fatalf("expected NackChunkCRC32Fail, got %v", n)
	}
}

func TestSendRecvChunkOpRetriesOnAckMismatch(t *testing.T) {
	io := &fakeIO{recvScript: []scriptedRecv{
		{msg: ackMsg(AckChunkVerified, 999)},
		{msg: ackMsg(AckChunkVerified, 500)},
	}}
	c := &Client{id: 0x100, io: io}

	n, err := c.sendRecvChunkOp(context.Background(), cmdVerifyChunk(500), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != nil {
		t.Fatalf("expected success, got nack %v", n)
	}
	if len(io.sent) != 2 {
		t.Fatalf("expected 2 send attempts, got %d", len(io.sent))
	}
}

func TestSendRecvChunkOpRetriesOnTimeout(t *testing.T) {
	io := &fakeIO{recvScript: []scriptedRecv{
		{timeout: true},
		{msg: ackMsg(AckChunkCommitted, 0)},
	}}
	c := &Client{id: 0x100, io: io}

	n, err := c.sendRecvChunkOp(context.Background(), cmdCommitChunk(77), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != nil {
		t.Fatalf("expected success after retry, got nack %v", n)
	}
}

func TestSendRecvChunkOpExhaustsTries(t *testing.T) {
	io := &fakeIO{recvScript: []scriptedRecv{{timeout: true}, {timeout: true}}}
	c := &Client{id: 0x100, io: io}

	_, err := c.sendRecvChunkOp(context.Background(), cmdClearChunk(1), 2)
	if err != reduxerr.ErrRecvTimeout {
		t.Fatalf("expected recv timeout, got %v", err)
	}
}

func TestRecvResponseV2TurnsNackIntoError(t *testing.T) {
	io := &fakeIO{recvScript: []scriptedRecv{{msg: nackMsg(NackDeviceBusy)}}}
	c := &Client{id: 0x100, io: io}

	_, err := c.recvResponseV2(context.Background(), 0, true)
	if err == nil {
		t.Fatal("expected error for nack response")
	}
}

func TestRecvResponseV2PassesThroughWhenNackErrFalse(t *testing.T) {
	io := &fakeIO{recvScript: []scriptedRecv{{msg: nackMsg(NackDeviceBusy)}}}
	c := &Client{id: 0x100, io: io}

	resp, err := c.recvResponseV2(context.Background(), 0, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Kind != RespNack || resp.Nack != NackDeviceBusy {
		t.Fatalf("unexpected response: %+v", resp)
	}
}
