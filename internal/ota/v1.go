package ota

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/redux-robotics/reduxfifo/internal/reduxerr"
)

func (c *Client) sendCommandV1(ctx context.Context, index uint8) error {
	return c.io.Send(ctx, c.idToDevice(), NewControlMessage([]byte{index}), time.Second)
}

func (c *Client) recvStatusV1(ctx context.Context, timeout time.Duration) (uint8, error) {
	msg, err := c.io.Recv(ctx, timeout)
	if err != nil {
		return 0, err
	}
	return msg.Data[0], nil
}

// uploadV1 drives the legacy 8-byte-at-a-time protocol: cancel any
// prior transfer, start a new one, stream the payload 8 bytes per
// frame (recovering from drops via TELL when a chunk's CONTINUE reply
// never arrives), then transition through verify/commit/reboot.
func (c *Client) uploadV1(ctx context.Context) error {
	lastTime := c.io.NowSeconds()

	if err := c.sendCommandV1(ctx, v1CmdCancel); err != nil {
		return err
	}
	if status, err := c.recvStatusV1(ctx, 100*time.Millisecond); err != nil || status != v1RespContinue {
		if err != nil {
			return err
		}
		return reduxerr.ErrV1Error
	}

	if err := c.sendCommandV1(ctx, v1CmdStart); err != nil {
		return err
	}
	if status, err := c.recvStatusV1(ctx, 100*time.Millisecond); err != nil || status != v1RespContinue {
		if err != nil {
			return err
		}
		return reduxerr.ErrV1Error
	}

	for i := 0; i*8 < len(c.payload); i++ {
		idx := i * 8
		end := idx + 8
		if end > len(c.payload) {
			end = len(c.payload)
		}
		chunk := c.payload[idx:end]
		var data [8]byte
		copy(data[:], chunk)

		if err := c.io.Send(ctx, c.idData(), NewControlMessage(data[:]), time.Second); err != nil {
			return err
		}

		if err := c.recvChunkReplyV1(ctx, idx, data); err != nil {
			return err
		}

		curTime := c.io.NowSeconds()
		if idx%512 == 0 {
			speed := (8.0 * 512.0) / (curTime - lastTime)
			lastTime = curTime
			pctProgress := float32(idx) * 100 / float32(len(c.payload))
			c.io.UpdateProgress(idx, pctProgress, speed)
		}
	}

	return c.finishV1(ctx)
}

// recvChunkReplyV1 waits for the device's CONTINUE for the frame just
// sent. A receive timeout triggers the TELL recovery loop: ask the
// device what offset it has actually written, and resend the current
// frame only if the device's cursor shows it never arrived.
func (c *Client) recvChunkReplyV1(ctx context.Context, idx int, data [8]byte) error {
	for {
		status, err := c.recvStatusV1(ctx, 100*time.Millisecond)
		if err == nil {
			switch status {
			case v1RespErr:
				return reduxerr.ErrV1Error
			case v1RespContinue:
				return nil
			default:
				continue
			}
		}

		if !isRecvTimeout(err) {
			return err
		}

		tell, err := c.recoverViaTell(ctx)
		if err != nil {
			return err
		}
		if int(tell) == idx {
			if err := c.io.Send(ctx, c.idData(), NewControlMessage(data[:]), time.Second); err != nil {
				return err
			}
			continue
		}
		return nil
	}
}

// recoverViaTell sends TELL up to 25 times until the device reports
// its current write offset.
func (c *Client) recoverViaTell(ctx context.Context) (uint32, error) {
	if err := c.sendCommandV1(ctx, v1CmdTell); err != nil {
		return 0, err
	}
	attempts := 1
	for {
		msg, err := c.io.Recv(ctx, 200*time.Millisecond)
		if err != nil {
			if isRecvTimeout(err) {
				if attempts >= 25 {
					return 0, reduxerr.ErrRecvTimeout
				}
				attempts++
				if err := c.sendCommandV1(ctx, v1CmdTell); err != nil {
					return 0, err
				}
				continue
			}
			return 0, err
		}
		if msg.Length < 5 {
			continue
		}
		if msg.Data[0] == v1RespErr {
			return 0, reduxerr.ErrV1Error
		}
		if msg.Data[0] != v1RespContinue {
			continue
		}
		return binary.LittleEndian.Uint32(msg.Data[1:5]), nil
	}
}

func (c *Client) finishV1(ctx context.Context) error {
	for _, step := range []uint8{v1CmdNext, v1CmdNext} {
		if err := c.sendCommandV1(ctx, step); err != nil {
			return err
		}
		if status, err := c.recvStatusV1(ctx, 5*time.Second); err != nil || status != v1RespContinue {
			if err != nil {
				return err
			}
			return reduxerr.ErrV1Error
		}
	}

	if err := c.sendCommandV1(ctx, v1CmdNext); err != nil {
		return err
	}

	var status uint8
	lastErr := error(reduxerr.ErrRecvTimeout)
	for i := 0; i < 10; i++ {
		s, err := c.recvStatusV1(ctx, time.Second)
		if err != nil {
			lastErr = err
			continue
		}
		if s != v1RespContinue {
			status = s
			lastErr = nil
			break
		}
	}
	c.io.Reset()
	if lastErr != nil {
		return lastErr
	}
	if status == v1RespComplete || status == ctrlAck {
		return nil
	}
	return reduxerr.ErrV1Error
}
