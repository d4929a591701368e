package ota

import (
	"context"
	"time"

	"github.com/redux-robotics/reduxfifo/internal/crcutil"
	"github.com/redux-robotics/reduxfifo/internal/reduxerr"
)

// minChunkSize is the floor chunk_size backs off to before the upload
// gives up and reports Stalled.
const minChunkSize = 8

// chunkOp identifies which of the three chunk-lifecycle commands
// sendRecvChunkOp is retrying.
type chunkOp int

const (
	chunkOpVerify chunkOp = iota
	chunkOpCommit
	chunkOpClear
)

func (c Command) chunkOpValue() (chunkOp, uint32, bool) {
	switch c.Kind {
	case CmdVerifyChunk:
		return chunkOpVerify, c.U32, true
	case CmdCommitChunk:
		return chunkOpCommit, c.U32, true
	case CmdClearChunk:
		return chunkOpClear, c.U32, true
	default:
		return 0, 0, false
	}
}

func (c *Client) sendCommandV2(ctx context.Context, cmd Command) error {
	data := cmd.ToBytes()
	return c.io.Send(ctx, c.idToDevice(), ControlMessage{Data: data, Length: 8}, 10*time.Millisecond)
}

// recvResponseV2 loops until a full 8-byte response arrives within
// timeout. When nackErr is set, a Nack or unrecognized payload is
// turned into an error instead of being handed back to the caller.
func (c *Client) recvResponseV2(ctx context.Context, timeout time.Duration, nackErr bool) (Response, error) {
	for {
		msg, err := c.io.Recv(ctx, timeout)
		if err != nil {
			return Response{}, err
		}
		if msg.Length < 8 {
			continue
		}
		resp := responseFromBytes(msg.Data)
		if !nackErr {
			return resp, nil
		}
		switch resp.Kind {
		case RespNack:
			return Response{}, reduxerr.Wrap(reduxerr.ErrV2Nack, resp.Nack.String())
		case RespUnknown:
			return Response{}, reduxerr.Wrap(reduxerr.ErrV2InvalidResponse, "unrecognized response payload")
		default:
			return resp, nil
		}
	}
}

// sendRecvChunkOp retries cmd (one of VerifyChunk/CommitChunk/ClearChunk)
// up to tries times, returning the device's Nack reason if it rejected
// the chunk, or nil if it acknowledged it (matching either index 0 or
// the index this client sent, per the wire protocol's "ack either the
// chunk or everything" convention).
func (c *Client) sendRecvChunkOp(ctx context.Context, cmd Command, tries int) (*Nack, error) {
	op, sentIdx, ok := cmd.chunkOpValue()
	if !ok {
		return nil, reduxerr.Wrap(reduxerr.ErrV2InvalidResponse, "sendRecvChunkOp called with a non-chunk command")
	}

	for i := 0; i < tries; i++ {
		if err := c.sendCommandV2(ctx, cmd); err != nil {
			return nil, err
		}
		resp, err := c.recvResponseV2(ctx, 10*time.Millisecond, false)
		if err != nil {
			if err == reduxerr.ErrRecvTimeout || isRecvTimeout(err) {
				continue
			}
			return nil, err
		}

		if resp.Kind == RespAck {
			matches := (op == chunkOpVerify && resp.Ack.Kind == AckChunkVerified) ||
				(op == chunkOpCommit && resp.Ack.Kind == AckChunkCommitted) ||
				(op == chunkOpClear && resp.Ack.Kind == AckChunkCleared)
			if matches {
				if resp.Ack.Value == 0 || resp.Ack.Value == sentIdx {
					return nil, nil
				}
				continue
			}
			continue
		}
		if resp.Kind == RespNack {
			n := resp.Nack
			return &n, nil
		}
		continue
	}
	return nil, reduxerr.ErrRecvTimeout
}

func isRecvTimeout(err error) bool {
	e, ok := err.(*reduxerr.Error)
	return ok && e.Code() == reduxerr.CodeRecvTimeout
}

// uploadV2 drives the chunked v2 upload state machine: abort any
// in-progress transfer, stat the firmware slot (switching the device
// to DFU mode if it requires that to become writable), negotiate a
// chunk size, stream the payload with adaptive chunk sizing and CRC
// verification, then finish and reboot.
func (c *Client) uploadV2(ctx context.Context) error {
	lastTime := c.io.NowSeconds()

	if err := c.sendCommandV2(ctx, cmdAbort()); err != nil {
		return err
	}
	c.recvResponseV2(ctx, 100*time.Millisecond, false) // best-effort drain, result ignored

	stat, err := statCommand(ctx, c, Response{})
	if err != nil {
		return err
	}

	if !stat.InodeExecutable || !stat.InodeExists {
		return reduxerr.Wrap(reduxerr.ErrV2InvalidSlot, "firmware slot is not executable or does not exist")
	}

	if !stat.InodeWriteable {
		if !stat.RequiresDFU {
			return reduxerr.ErrV2FirmwareSlotNotWritable
		}
		if err := c.switchToDFU(ctx); err != nil {
			return err
		}
	}

	if err := c.sendCommandV2(ctx, cmdUpload(0)); err != nil {
		return err
	}
	resp, err := c.recvResponseV2(ctx, 1000*time.Millisecond, true)
	if err != nil {
		return err
	}
	if resp.Kind != RespAck || resp.Ack.Kind != AckTransferStart {
		return reduxerr.Wrap(reduxerr.ErrV2UnexpectedAck, resp.Ack.String())
	}
	chunkSize := int(resp.Ack.Value) &^ 7
	maxChunkSize := chunkSize

	fwLen := len(c.payload)
	i := 0
	failures := 0
	successes := 0

	for i < fwLen {
		crc := crcutil.InitCRC32MPEG2
		chunkLen := minInt(i+chunkSize, fwLen) - i

		maxPacketLen := minInt(minInt(len(c.scratchBuf), c.io.TransportSize()), 64)
		j := 0
		for j < chunkLen {
			packetLen := minInt(j+maxPacketLen, chunkLen) - j
			for k := range c.scratchBuf {
				c.scratchBuf[k] = 0
			}
			copy(c.scratchBuf[:packetLen], c.payload[i+j:i+j+packetLen])
			sendLen := maxInt(packetLen, minChunkSize)
			buf := c.scratchBuf[:sendLen]
			crc = crcutil.CRC32MPEG2Padded(crc, buf)

			if err := c.io.SendData(ctx, c.idData(), buf, 10*time.Millisecond); err != nil {
				return err
			}
			j += packetLen
		}
		if err := c.io.Sleep(ctx, time.Millisecond); err != nil {
			return err
		}
		c.io.Reset()

		crcNack, err := c.sendRecvChunkOp(ctx, cmdVerifyChunk(crc), 100)
		if err != nil {
			return err
		}

		if crcNack != nil {
			if *crcNack != NackChunkCRC32Fail {
				return reduxerr.Wrap(reduxerr.ErrV2Nack, crcNack.String())
			}
			failures++
			successes = 0
			if failures >= 2 {
				if chunkSize > minChunkSize {
					failures = 0
					chunkSize >>= 1
				} else if failures > 20 {
					return reduxerr.ErrV2Stalled
				}
			}

			for {
				clearNack, err := c.sendRecvChunkOp(ctx, cmdClearChunk(crc), 200)
				if err != nil {
					return err
				}
				if clearNack == nil {
					break
				}
				if *clearNack != NackChunkCRC32Fail {
					return reduxerr.Wrap(reduxerr.ErrV2Nack, clearNack.String())
				}
			}
			continue
		}

		commitNack, err := c.sendRecvChunkOp(ctx, cmdCommitChunk(crc), 500)
		if err != nil {
			return err
		}
		if commitNack != nil {
			return reduxerr.Wrap(reduxerr.ErrV2Nack, commitNack.String())
		}

		successes++
		failures = 0
		newChunkSize := chunkSize
		if successes >= 4 && chunkSize <= maxChunkSize {
			successes = 0
			newChunkSize = minInt(chunkSize<<1, maxChunkSize)
		}

		curTime := c.io.NowSeconds()
		speed := float32(chunkLen) / (curTime - lastTime)
		pctProgress := float32(i+chunkLen) * 100 / float32(fwLen)
		lastTime = curTime
		written := i + chunkLen
		c.io.UpdateProgress(written, pctProgress, speed)

		i += chunkSize
		chunkSize = newChunkSize
	}

	if err := c.sendCommandV2(ctx, cmdFinish()); err != nil {
		return err
	}
	resp, err = c.recvResponseV2(ctx, 5000*time.Millisecond, true)
	if err != nil {
		return err
	}
	if resp.Kind != RespAck {
		return reduxerr.Wrap(reduxerr.ErrV2UnexpectedResponse, "expected ack after finish")
	}

	if err := c.sendCommandV2(ctx, cmdDeviceState()); err != nil {
		return err
	}
	for {
		resp, err = c.recvResponseV2(ctx, 1000*time.Millisecond, true)
		if err != nil {
			return err
		}
		if resp.Kind == RespDeviceState {
			if resp.DeviceState[1] != 0 {
				return reduxerr.Wrap(reduxerr.ErrV2UnexpectedResponse, "device still stuck in upload mode")
			}
			break
		}
		if resp.Kind == RespAck {
			continue
		}
		return reduxerr.Wrap(reduxerr.ErrV2UnexpectedResponse, "unexpected response awaiting reboot readiness")
	}

	return c.sendCommandV2(ctx, cmdSysCtl([7]byte{sysctlBootNormally}))
}

func statCommand(ctx context.Context, c *Client, resp Response) (Stat, error) {
	if err := c.sendCommandV2(ctx, cmdStat(0)); err != nil {
		return Stat{}, err
	}
	resp, err := c.recvResponseV2(ctx, 1000*time.Millisecond, true)
	if err != nil {
		return Stat{}, err
	}
	if resp.Kind != RespStat {
		return Stat{}, reduxerr.Wrap(reduxerr.ErrV2UnexpectedResponse, "expected stat response")
	}
	return resp.Stat, nil
}

func (c *Client) switchToDFU(ctx context.Context) error {
	if err := c.sendCommandV2(ctx, cmdSysCtl([7]byte{sysctlBootToDFU})); err != nil {
		return err
	}
	if err := c.io.Sleep(ctx, 500*time.Millisecond); err != nil {
		return err
	}

	if err := c.sendCommandV2(ctx, cmdDeviceState()); err != nil {
		return err
	}
	resp, err := c.recvResponseV2(ctx, 1000*time.Millisecond, true)
	if err != nil {
		return err
	}
	if resp.Kind != RespDeviceState {
		return reduxerr.Wrap(reduxerr.ErrV2UnexpectedResponse, "expected device state response")
	}
	if resp.DeviceState[0]&0b1 != 1 {
		return reduxerr.ErrV2CouldNotSwitchToDFU
	}

	stat, err := statCommand(ctx, c, resp)
	if err != nil {
		return err
	}
	if !stat.InodeWriteable {
		return reduxerr.Wrap(reduxerr.ErrV2FirmwareSlotNotWritable, "slot still not writable after DFU switch")
	}
	return nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
