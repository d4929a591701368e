// Package rdxusb adapts the RdxUSB wire protocol (a raw bulk-transfer
// CAN proxy over USB) into a Backend. Bus params are of the form
// "rdxusb:<channel>.<vid-hex>.<pid-hex>.<serial>"; several channels
// addressed to the same physical device share one USB connection, the
// way the original event loop keys devices by (vid, pid, serial) and
// fans packets out by channel number.
package rdxusb

import (
	"context"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/redux-robotics/reduxfifo/internal/backend"
	"github.com/redux-robotics/reduxfifo/internal/message"
	"github.com/redux-robotics/reduxfifo/internal/reduxerr"
	"github.com/redux-robotics/reduxfifo/internal/session"
	"github.com/redux-robotics/reduxfifo/internal/timebase"
	"go.uber.org/zap"
)

// Wire-format constants from the RdxUSB protocol's arbitration id flags.
const (
	messageArbIDExt    uint32 = 0x80000000
	messageArbIDRTR    uint32 = 0x40000000
	messageArbIDDevice uint32 = 0x20000000
	messageArbIDMask   uint32 = 0x1FFFFFFF
)

// packetHeaderSize is sizeof(RdxUsbPacket) up to the data field:
// message_id(4) + channel(2) + reserved(1) + data_size(1) + timestamp_ns(8).
const packetHeaderSize = 16

// ctrlDeviceInfo is the vendor control request returning device identity
// and protocol version.
const ctrlDeviceInfo = 0

// protocolVersionMajor/Minor is the only RdxUSB wire version this
// backend speaks.
const (
	protocolVersionMajor = 2
	protocolVersionMinor = 0
)

func init() {
	backend.Register("rdxusb", matches, open)
}

// Params identifies one logical channel on one physical RdxUSB device.
type Params struct {
	Channel uint16
	VID     uint16
	PID     uint16
	Serial  string
}

func (p Params) deviceKey() string {
	return fmt.Sprintf("%04x:%04x:%s", p.VID, p.PID, p.Serial)
}

func parseParams(params string) (Params, error) {
	rest, ok := strings.CutPrefix(params, "rdxusb:")
	if !ok {
		return Params{}, reduxerr.ErrBusNotSupported
	}
	parts := strings.SplitN(rest, ".", 4)
	if len(parts) != 4 {
		return Params{}, reduxerr.ErrInvalidBus
	}
	channel, err := strconv.ParseUint(parts[0], 10, 16)
	if err != nil {
		return Params{}, reduxerr.ErrInvalidBus
	}
	vid, err := strconv.ParseUint(parts[1], 16, 16)
	if err != nil {
		return Params{}, reduxerr.ErrInvalidBus
	}
	pid, err := strconv.ParseUint(parts[2], 16, 16)
	if err != nil {
		return Params{}, reduxerr.ErrInvalidBus
	}
	if parts[3] == "" {
		return Params{}, reduxerr.ErrInvalidBus
	}
	return Params{Channel: uint16(channel), VID: uint16(vid), PID: uint16(pid), Serial: parts[3]}, nil
}

func matches(params string) bool {
	_, err := parseParams(params)
	return err == nil
}

// usbConn is the seam a physical USB transport implements: identify the
// attached device, and move whole RdxUSB packets in either direction.
// A real build wires this to a USB host stack (bulk OUT/IN transfers
// plus the DeviceInfo vendor control request); openConn here supplies a
// loopback simulator so the channel-multiplexing and packet codec
// logic above it can be exercised without real hardware.
type usbConn interface {
	DeviceInfo() (major, minor uint16, err error)
	ReadPacket() ([]byte, error)
	WritePacket(data []byte) error
	Close() error
}

var openConn = openLoopbackConn

func open(ctx context.Context, busID uint16, params string, sessions *session.Registry, logger *zap.SugaredLogger) (backend.Backend, error) {
	p, err := parseParams(params)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	dev, err := sharedRegistry.claim(ctx, p, logger)
	if err != nil {
		return nil, err
	}

	b := &Backend{busID: busID, params: p, sessions: sessions, shared: dev}
	if !dev.addChannel(p.Channel, b) {
		dev.release()
		return nil, reduxerr.ErrBusDeviceBusy
	}
	return b, nil
}

// Backend is one logical channel multiplexed over a shared RdxUSB
// device connection.
type Backend struct {
	busID    uint16
	params   Params
	sessions *session.Registry
	shared   *sharedDevice
}

// WriteSingle encodes msg as an RdxUSB packet on this backend's channel
// and queues it for transmission on the shared device connection.
func (b *Backend) WriteSingle(msg message.Message) error {
	if msg.DataSize > message.MaxDataSize {
		return reduxerr.ErrDataTooLong
	}
	pkt := messageToPacket(msg, b.params.Channel)
	if err := b.shared.conn.WritePacket(pkt); err != nil {
		return reduxerr.Wrap(reduxerr.ErrBusWriteFail, err.Error())
	}
	return nil
}

// ParamsMatch reports whether params names this same channel of this
// same physical device.
func (b *Backend) ParamsMatch(params string) bool {
	p, err := parseParams(params)
	return err == nil && p == b.params
}

// MaxPacketSize is 64; RdxUSB carries full CAN FD payloads.
func (b *Backend) MaxPacketSize() int { return message.MaxDataSize }

// Close releases this channel's claim on the shared device, closing the
// underlying USB connection once every channel has done the same.
func (b *Backend) Close() error {
	b.shared.removeChannel(b.params.Channel)
	b.shared.release()
	return nil
}

// sharedDevice is one physical USB connection multiplexing several
// channels, each fed by its own Backend and session registry.
type sharedDevice struct {
	key    string
	conn   usbConn
	logger *zap.SugaredLogger
	cancel context.CancelFunc

	mu       sync.Mutex
	channels map[uint16]*Backend
	refCount int
}

func (d *sharedDevice) addChannel(ch uint16, b *Backend) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, busy := d.channels[ch]; busy {
		return false
	}
	d.channels[ch] = b
	return true
}

func (d *sharedDevice) removeChannel(ch uint16) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.channels, ch)
}

func (d *sharedDevice) dispatch(pkt []byte) {
	msg, channel := packetToMessage(pkt)

	d.mu.Lock()
	b, ok := d.channels[channel]
	d.mu.Unlock()
	if !ok {
		return
	}
	msg.BusID = b.busID
	b.sessions.Ingest(msg)
}

func (d *sharedDevice) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		pkt, err := d.conn.ReadPacket()
		if err != nil {
			d.logger.Warnw("rdxusb: read failed, device presumed gone", "device", d.key, "error", err)
			return
		}
		d.dispatch(pkt)
	}
}

func (d *sharedDevice) release() {
	d.mu.Lock()
	d.refCount--
	drop := d.refCount <= 0
	d.mu.Unlock()
	if !drop {
		return
	}

	sharedRegistry.mu.Lock()
	if sharedRegistry.devices[d.key] == d {
		delete(sharedRegistry.devices, d.key)
	}
	sharedRegistry.mu.Unlock()

	d.cancel()
	d.conn.Close()
}

// deviceRegistry is the process-wide table of open RdxUSB connections,
// keyed by (vid, pid, serial) so that several channels on the same
// physical device share one USB transfer pipe instead of fighting over
// the device handle.
type deviceRegistry struct {
	mu      sync.Mutex
	devices map[string]*sharedDevice
}

var sharedRegistry = &deviceRegistry{devices: make(map[string]*sharedDevice)}

// dialWithRetry opens the USB connection, trying up to three times on
// a constant 10ms interval — the device may still be enumerating right
// after a hot-plug event.
func dialWithRetry(p Params) (usbConn, error) {
	return backoff.Retry(context.Background(), func() (usbConn, error) {
		return openConn(p.VID, p.PID, p.Serial)
	}, backoff.WithBackOff(backoff.NewConstantBackOff(10*time.Millisecond)), backoff.WithMaxTries(3))
}

func (r *deviceRegistry) claim(ctx context.Context, p Params, logger *zap.SugaredLogger) (*sharedDevice, error) {
	key := p.deviceKey()

	r.mu.Lock()
	if d, ok := r.devices[key]; ok {
		d.mu.Lock()
		d.refCount++
		d.mu.Unlock()
		r.mu.Unlock()
		return d, nil
	}
	r.mu.Unlock()

	conn, err := dialWithRetry(p)
	if err != nil {
		return nil, reduxerr.Wrap(reduxerr.ErrFailedToOpenBus, err.Error())
	}
	major, minor, err := conn.DeviceInfo()
	if err != nil {
		conn.Close()
		return nil, reduxerr.Wrap(reduxerr.ErrFailedToOpenBus, err.Error())
	}
	if major != protocolVersionMajor || minor != protocolVersionMinor {
		conn.Close()
		return nil, reduxerr.Wrap(reduxerr.ErrFailedToOpenBus,
			fmt.Sprintf("unsupported RdxUSB protocol version %d.%d", major, minor))
	}

	runCtx, cancel := context.WithCancel(ctx)
	d := &sharedDevice{
		key:      key,
		conn:     conn,
		logger:   logger,
		cancel:   cancel,
		channels: make(map[uint16]*Backend),
		refCount: 1,
	}

	r.mu.Lock()
	r.devices[key] = d
	r.mu.Unlock()

	go d.readLoop(runCtx)
	return d, nil
}

func packetToMessage(pkt []byte) (message.Message, uint16) {
	rawID := binary.LittleEndian.Uint32(pkt[0:4])
	channel := binary.LittleEndian.Uint16(pkt[4:6])
	dataSize := pkt[7]
	if int(dataSize) > message.MaxDataSize {
		dataSize = message.MaxDataSize
	}
	timestampNs := binary.LittleEndian.Uint64(pkt[8:16])

	idb := message.NewIDBuilder(rawID&messageArbIDMask).
		RTR(rawID&messageArbIDRTR != 0).
		ShortID(rawID&messageArbIDExt == 0)

	data := pkt[packetHeaderSize : packetHeaderSize+int(dataSize)]
	m := message.NewWithData(idb.Build(), data)
	if rawID&messageArbIDDevice != 0 {
		m.Flags |= message.FlagDeviceAddress
	}
	m.Timestamp = timestampNs / 1000
	return m, channel
}

func messageToPacket(msg message.Message, channel uint16) []byte {
	rawID := msg.ArbitrationID() & messageArbIDMask
	if msg.RTR() {
		rawID |= messageArbIDRTR
	}
	if !msg.ShortID() {
		rawID |= messageArbIDExt
	}
	if msg.Flags&message.FlagDeviceAddress != 0 {
		rawID |= messageArbIDDevice
	}

	pkt := make([]byte, packetHeaderSize+int(msg.DataSize))
	binary.LittleEndian.PutUint32(pkt[0:4], rawID)
	binary.LittleEndian.PutUint16(pkt[4:6], channel)
	pkt[7] = msg.DataSize
	binary.LittleEndian.PutUint64(pkt[8:16], uint64(timebase.NowUs())*1000)
	copy(pkt[packetHeaderSize:], msg.DataSlice())
	return pkt
}

// readTimeout is a bound for bulk IN transfers. Nothing in this
// package applies it: readLoop blocks in ReadPacket until a packet
// arrives or the read fails.
const readTimeout = 2 * time.Second
