// Package reduxfifopb holds the request/response message types and
// gRPC service scaffolding for the control-plane API. Since no .proto
// toolchain runs in this build, these are hand-written in the shape
// protoc-gen-go would emit, with a small JSON-based codec in place of
// the generated protobuf marshaler (see codec.go).
package reduxfifopb

// CANMessage mirrors internal/message.Message for wire transport.
type CANMessage struct {
	ID        uint32
	BusID     uint32
	Flags     uint32
	DataSize  uint32
	Timestamp uint64
	Data      []byte
}

type OpenBusRequest struct {
	Params string
}

type OpenBusResponse struct {
	BusID uint32
}

type CloseBusRequest struct {
	BusID uint32
}

type CloseBusResponse struct{}

type ListBusesRequest struct{}

type ListBusesResponse struct {
	BusIds []uint32
}

type OpenSessionRequest struct {
	BusID      uint32
	Capacity   uint32
	FilterID   uint32
	FilterMask uint32
	EchoTx     bool
}

type OpenSessionResponse struct {
	SessionID uint32
}

type CloseSessionRequest struct {
	BusID     uint32
	SessionID uint32
}

type CloseSessionResponse struct{}

// ReadSessionRequest polls a session's ring buffer. If Wait is true and
// the ring is empty, the server blocks on the session's notifier until
// a message arrives or the context is canceled.
type ReadSessionRequest struct {
	BusID     uint32
	SessionID uint32
	Wait      bool
}

type ReadSessionResponse struct {
	Messages []*CANMessage
}

type WriteMessageRequest struct {
	Message *CANMessage
}

type WriteMessageResponse struct{}

// ArbitrateIDRequest tells the device currently on ArbitrationID to
// settle an id conflict in favor of Serial (the CanIdArbitrate control
// message), then triggers a bus-wide re-enumerate — the gRPC
// realization of spec.md's "arbitrate CAN ids (by serial)" control
// operation.
type ArbitrateIDRequest struct {
	BusID         uint32
	ArbitrationID uint32
	Serial        string
}

type ArbitrateIDResponse struct{}

type StartOTARequest struct {
	BusID         uint32
	ArbitrationID uint32
	Firmware      []byte
	ChunkSize     uint32
}

type StartOTAResponse struct {
	TransferID uint32
}

type OTAStatusRequest struct {
	TransferID uint32
}

type OTAStatusResponse struct {
	State       string
	BytesSent   uint32
	TotalBytes  uint32
	PctProgress float32
	Error       string
}

type AbortOTARequest struct {
	TransferID uint32
}

type AbortOTAResponse struct{}
