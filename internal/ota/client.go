package ota

import (
	"context"
	"time"

	"github.com/redux-robotics/reduxfifo/internal/reduxerr"
)

// ControlMessage is one up-to-8-byte control-channel frame.
type ControlMessage struct {
	Data   [8]byte
	Length uint8
}

// NewControlMessage truncates or zero-pads data to 8 bytes.
func NewControlMessage(data []byte) ControlMessage {
	var m ControlMessage
	n := len(data)
	if n > 8 {
		n = 8
	}
	copy(m.Data[:], data[:n])
	m.Length = uint8(n)
	return m
}

// ClientIO is the transport seam an uploader drives: send/recv control
// and bulk frames, sleep, progress reporting, and timekeeping. This is
// the Go equivalent of RdxOtaClientIO — callers provide an
// implementation that bridges to a fabric session's read/write
// barriers for a specific bus and target arbitration id.
type ClientIO interface {
	Send(ctx context.Context, id uint32, msg ControlMessage, timeout time.Duration) error
	SendData(ctx context.Context, id uint32, data []byte, timeout time.Duration) error
	Recv(ctx context.Context, timeout time.Duration) (ControlMessage, error)
	Sleep(ctx context.Context, d time.Duration) error
	Reset()
	UpdateProgress(written int, pctProgress float32, speedBytesPerSec float32)
	NowSeconds() float32
	TransportSize() int
}

// version is the protocol dialect a device negotiated during Run's
// probe.
type version int

const (
	versionV1 version = iota
	versionV2
	versionUnsupported
	versionNone
)

// Client drives one OTA upload against a single device's arbitration
// id, dispatching to the v1 or v2 state machine after probing which
// dialect the device speaks.
type Client struct {
	payload    []byte
	scratchBuf []byte
	id         uint32
	io         ClientIO
}

// NewClient builds an uploader for id (the device's base arbitration
// id, without the OTA sub-index bits). In v2, each data frame is at
// most min(len(scratchBuf), io.TransportSize(), 64) bytes; chunk sizes
// come from the device.
func NewClient(payload []byte, scratchBuf []byte, id uint32, io ClientIO) *Client {
	return &Client{payload: payload, scratchBuf: scratchBuf, id: id, io: io}
}

func (c *Client) idToDevice() uint32 { return c.id | uint32(MessageToDevice)<<6 }
func (c *Client) idToHost() uint32   { return c.id | uint32(MessageToHost)<<6 }
func (c *Client) idData() uint32     { return c.id | uint32(MessageData)<<6 }

// Run probes the device's OTA protocol version and drives the
// matching upload state machine to completion.
func (c *Client) Run(ctx context.Context) error {
	c.io.Reset()

	probe := Command{Kind: CmdVersion}.ToBytes()
	if err := c.io.Send(ctx, c.idToDevice(), ControlMessage{Data: probe, Length: 8}, 10*time.Millisecond); err != nil {
		return err
	}

	msg, err := c.io.Recv(ctx, 1000*time.Millisecond)
	if err != nil {
		return err
	}

	v := detectVersion(msg)
	switch v {
	case versionV1:
		return c.uploadV1(ctx)
	case versionV2:
		return c.uploadV2(ctx)
	case versionUnsupported:
		return reduxerr.Wrap(reduxerr.ErrVersionCheckFail, "device reported an unsupported OTA version")
	default:
		return reduxerr.Wrap(reduxerr.ErrVersionCheckFail, "no OTA version response from device")
	}
}

func detectVersion(msg ControlMessage) version {
	isV1Continue := msg.Data[0] == v1RespContinue && msg.Data[1] == 0 && msg.Data[2] == 0 &&
		msg.Data[3] == 0 && msg.Data[4] == 0 && msg.Length == 5
	isV1Err := msg.Data[0] == v1RespErr && msg.Length == 1
	if isV1Continue || isV1Err {
		return versionV1
	}
	if msg.Data[0] == ctrlVersion {
		if msg.Data[1] == V2Version {
			return versionV2
		}
		return versionUnsupported
	}
	return versionNone
}
