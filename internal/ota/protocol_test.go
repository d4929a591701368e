package ota

import "testing"

func TestCommandStatRoundTrip(t *testing.T) {
	cmd := cmdStat(7)
	b := cmd.ToBytes()
	if b[0] != ctrlStat {
		t.Fatalf("expected stat ctrl byte, got %d", b[0])
	}
	resp := responseFromBytes([8]byte{ctrlStat, 7, 0, 0b00001111, 0, 0x34, 0x12, 0})
	if resp.Kind != RespStat {
		t.Fatalf("expected RespStat, got %v", resp.Kind)
	}
	if !resp.Stat.InodeExists || !resp.Stat.InodeReadable || !resp.Stat.InodeWriteable || !resp.Stat.InodeExecutable {
		t.Fatalf("unexpected stat flags: %+v", resp.Stat)
	}
	if resp.Stat.Size != 0x001234 {
		t.Fatalf("size = %#x", resp.Stat.Size)
	}
}

func TestAckTransferStartRoundTrip(t *testing.T) {
	cmd := Command{Kind: CmdAck, Ack: Ack{Kind: AckTransferStart, Value: 64}}
	b := cmd.ToBytes()
	resp := responseFromBytes(b)
	if resp.Kind != RespAck || resp.Ack.Kind != AckTransferStart || resp.Ack.Value != 64 {
		t.Fatalf("unexpected decode: %+v", resp)
	}
}

func TestDetectVersionV1Continue(t *testing.T) {
	msg := ControlMessage{Data: [8]byte{v1RespContinue, 0, 0, 0, 0}, Length: 5}
	if detectVersion(msg) != versionV1 {
		t.Fatal("expected v1 via CONTINUE shape")
	}
}

func TestDetectVersionV1Err(t *testing.T) {
	msg := ControlMessage{Data: [8]byte{v1RespErr}, Length: 1}
	if detectVersion(msg) != versionV1 {
		t.Fatal("expected v1 via ERR shape")
	}
}

func TestDetectVersionV2(t *testing.T) {
	msg := ControlMessage{Data: [8]byte{ctrlVersion, V2Version}, Length: 8}
	if detectVersion(msg) != versionV2 {
		t.Fatal("expected v2")
	}
}

func TestDetectVersionUnsupported(t *testing.T) {
	msg := ControlMessage{Data: [8]byte{ctrlVersion, 99}, Length: 8}
	if detectVersion(msg) != versionUnsupported {
		t.Fatal("expected unsupported")
	}
}

func TestDetectVersionNone(t *testing.T) {
	msg := ControlMessage{Data: [8]byte{0xaa}, Length: 8}
	if detectVersion(msg) != versionNone {
		t.Fatal("expected none")
	}
}

func TestNackString(t *testing.T) {
	if NackChunkCRC32Fail.String() != "chunk CRC mismatch" {
		t.Fatalf("unexpected string: %s", NackChunkCRC32Fail.String())
	}
}
