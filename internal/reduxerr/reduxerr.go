// Package reduxerr defines the stable error taxonomy shared by the
// fabric, sessions, backends, and the OTA uploader. Each sentinel
// carries a stable integer code so callers embedding this core behind
// an FFI boundary can translate errors without string matching.
package reduxerr

import "fmt"

// Code is a stable, FFI-friendly error code.
type Code int32

const (
	CodeOK Code = iota

	// Fabric errors.
	CodeNotInitialized
	CodeNullArgument
	CodeInvalidBus
	CodeBusAlreadyOpened
	CodeMaxBusesOpened
	CodeBusNotSupported
	CodeBusClosed
	CodeFailedToOpenBus
	CodeBusReadFail
	CodeBusWriteFail
	CodeBusBufferFull
	CodeBusDeviceBusy
	CodeDataTooLong

	// Session errors.
	CodeInvalidSessionID
	CodeSessionAlreadyOpened
	CodeMaxSessionsOpened
	CodeSessionClosed
	CodeMessageReceiveTimeout

	// Backend-specific errors.
	CodeHalCanOpenSessionFail
	CodeUsbClosed

	// OTA errors.
	CodeVersionCheckFail
	CodeV1Error
	CodeV2InvalidResponse
	CodeV2UnexpectedResponse
	CodeV2Nack
	CodeV2UnexpectedAck
	CodeV2InvalidSlot
	CodeV2FirmwareSlotNotWritable
	CodeV2CouldNotSwitchToDFU
	CodeV2Stalled
	CodeRecvTimeout
	CodeSendTimeout
	CodeCancelled
)

// Error is a sentinel carrying a stable Code plus a human-readable
// message. Errors compare equal via errors.Is when their Code matches.
type Error struct {
	code Code
	msg  string
}

func (e *Error) Error() string { return e.msg }

// Code returns the stable integer code for FFI propagation.
func (e *Error) Code() Code { return e.code }

// Is lets errors.Is(err, reduxerr.ErrInvalidBus) match both the sentinel
// itself and any wrapped instance sharing its code.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return other.code == e.code
}

func newErr(code Code, msg string) *Error { return &Error{code: code, msg: msg} }

var (
	ErrNotInitialized     = newErr(CodeNotInitialized, "fabric not initialized")
	ErrNullArgument       = newErr(CodeNullArgument, "null argument")
	ErrInvalidBus         = newErr(CodeInvalidBus, "invalid bus")
	ErrBusAlreadyOpened   = newErr(CodeBusAlreadyOpened, "bus already opened")
	ErrMaxBusesOpened     = newErr(CodeMaxBusesOpened, "maximum number of buses opened")
	ErrBusNotSupported    = newErr(CodeBusNotSupported, "bus type not supported")
	ErrBusClosed          = newErr(CodeBusClosed, "bus closed")
	ErrFailedToOpenBus    = newErr(CodeFailedToOpenBus, "failed to open bus")
	ErrBusReadFail        = newErr(CodeBusReadFail, "bus read failed")
	ErrBusWriteFail       = newErr(CodeBusWriteFail, "bus write failed")
	ErrBusBufferFull      = newErr(CodeBusBufferFull, "bus write buffer full")
	ErrBusDeviceBusy      = newErr(CodeBusDeviceBusy, "bus device already claimed")
	ErrDataTooLong        = newErr(CodeDataTooLong, "data too long for this bus")
	ErrInvalidSessionID   = newErr(CodeInvalidSessionID, "invalid session id")
	ErrSessionAlreadyOpen = newErr(CodeSessionAlreadyOpened, "session already opened")
	ErrMaxSessionsOpened  = newErr(CodeMaxSessionsOpened, "maximum number of sessions opened")
	ErrSessionClosed      = newErr(CodeSessionClosed, "session closed")
	ErrMessageRecvTimeout = newErr(CodeMessageReceiveTimeout, "message receive timeout")
	ErrHalCanOpenSession  = newErr(CodeHalCanOpenSessionFail, "HAL CAN open session failed")
	ErrUsbClosed          = newErr(CodeUsbClosed, "usb device closed")

	ErrVersionCheckFail          = newErr(CodeVersionCheckFail, "OTA version check failed")
	ErrV1Error                   = newErr(CodeV1Error, "OTA v1 device reported failure")
	ErrV2InvalidResponse         = newErr(CodeV2InvalidResponse, "OTA v2 invalid response")
	ErrV2UnexpectedResponse      = newErr(CodeV2UnexpectedResponse, "OTA v2 unexpected response")
	ErrV2Nack                    = newErr(CodeV2Nack, "OTA v2 device NACKed")
	ErrV2UnexpectedAck           = newErr(CodeV2UnexpectedAck, "OTA v2 unexpected ACK")
	ErrV2InvalidSlot             = newErr(CodeV2InvalidSlot, "OTA v2 invalid firmware slot")
	ErrV2FirmwareSlotNotWritable = newErr(CodeV2FirmwareSlotNotWritable, "OTA v2 firmware slot not writable")
	ErrV2CouldNotSwitchToDFU     = newErr(CodeV2CouldNotSwitchToDFU, "OTA v2 could not switch to DFU")
	ErrV2Stalled                 = newErr(CodeV2Stalled, "OTA v2 upload stalled")
	ErrRecvTimeout               = newErr(CodeRecvTimeout, "receive timeout")
	ErrSendTimeout               = newErr(CodeSendTimeout, "send timeout")
	ErrCancelled                 = newErr(CodeCancelled, "operation cancelled")
)

// Wrap attaches additional context to a sentinel without losing its
// Code or errors.Is compatibility.
func Wrap(sentinel *Error, context string) *Error {
	return &Error{code: sentinel.code, msg: fmt.Sprintf("%s: %s", sentinel.msg, context)}
}
