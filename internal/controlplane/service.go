// Package controlplane implements the gRPC-facing ReduxFIFOControlServer
// against a *fabric.Fabric, the control-plane analogue of the teacher's
// route service wired to its routing table.
package controlplane

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/redux-robotics/reduxfifo/internal/codec"
	"github.com/redux-robotics/reduxfifo/internal/config"
	"github.com/redux-robotics/reduxfifo/internal/controlplane/reduxfifopb"
	"github.com/redux-robotics/reduxfifo/internal/fabric"
	"github.com/redux-robotics/reduxfifo/internal/frccan"
	"github.com/redux-robotics/reduxfifo/internal/message"
	"github.com/redux-robotics/reduxfifo/internal/ota"
	"github.com/redux-robotics/reduxfifo/internal/serialnum"
	"github.com/redux-robotics/reduxfifo/internal/session"
)

// Service implements reduxfifopb.ReduxFIFOControlServer over a fabric,
// translating one RPC at a time into the fabric's escape-hatch API.
type Service struct {
	reduxfifopb.UnimplementedReduxFIFOControlServer

	fab                    *fabric.Fabric
	logger                 *zap.SugaredLogger
	defaultSessionCapacity uint32
	transfers              *transferRegistry
}

func NewService(fab *fabric.Fabric, logger *zap.SugaredLogger, cfg *config.Config) *Service {
	capacity := uint32(256)
	if cfg != nil {
		for _, b := range cfg.Buses {
			if b.DefaultSessionCapacity > 0 {
				capacity = b.DefaultSessionCapacity
				break
			}
		}
	}
	return &Service{
		fab:                    fab,
		logger:                 logger,
		defaultSessionCapacity: capacity,
		transfers:              newTransferRegistry(),
	}
}

func (s *Service) OpenBus(ctx context.Context, req *reduxfifopb.OpenBusRequest) (*reduxfifopb.OpenBusResponse, error) {
	busID, err := s.fab.OpenOrGetBus(ctx, req.Params)
	if err != nil {
		return nil, err
	}
	return &reduxfifopb.OpenBusResponse{BusID: uint32(busID)}, nil
}

func (s *Service) CloseBus(ctx context.Context, req *reduxfifopb.CloseBusRequest) (*reduxfifopb.CloseBusResponse, error) {
	if err := s.fab.CloseBus(uint16(req.BusID)); err != nil {
		return nil, err
	}
	return &reduxfifopb.CloseBusResponse{}, nil
}

func (s *Service) ListBuses(ctx context.Context, req *reduxfifopb.ListBusesRequest) (*reduxfifopb.ListBusesResponse, error) {
	buses := s.fab.Buses()
	ids := make([]uint32, len(buses))
	for i, b := range buses {
		ids[i] = uint32(b)
	}
	return &reduxfifopb.ListBusesResponse{BusIds: ids}, nil
}

func (s *Service) OpenSession(ctx context.Context, req *reduxfifopb.OpenSessionRequest) (*reduxfifopb.OpenSessionResponse, error) {
	capacity := req.Capacity
	if capacity == 0 {
		capacity = s.defaultSessionCapacity
	}
	cfg := session.Config{FilterID: req.FilterID, FilterMask: req.FilterMask, EchoTx: req.EchoTx}
	sess, err := s.fab.OpenSession(uint16(req.BusID), int(capacity), cfg)
	if err != nil {
		return nil, err
	}
	return &reduxfifopb.OpenSessionResponse{SessionID: sess.ID}, nil
}

func (s *Service) CloseSession(ctx context.Context, req *reduxfifopb.CloseSessionRequest) (*reduxfifopb.CloseSessionResponse, error) {
	if err := s.fab.CloseSession(uint16(req.BusID), req.SessionID); err != nil {
		return nil, err
	}
	return &reduxfifopb.CloseSessionResponse{}, nil
}

func (s *Service) ReadSession(ctx context.Context, req *reduxfifopb.ReadSessionRequest) (*reduxfifopb.ReadSessionResponse, error) {
	buf := session.NewReadBuffer(req.SessionID, 1)
	if err := s.fab.ReadBarrier(uint16(req.BusID), buf); err != nil {
		return nil, err
	}

	if buf.Ring.Len() == 0 && req.Wait {
		notifier, err := s.fab.RxNotifier(uint16(req.BusID), req.SessionID)
		if err != nil {
			return nil, err
		}
		if err := notifier.Wait(ctx, notifier.Value()); err != nil {
			return nil, err
		}
		if err := s.fab.ReadBarrier(uint16(req.BusID), buf); err != nil {
			return nil, err
		}
	}

	msgs := buf.Ring.IterOldestFirst()
	out := make([]*reduxfifopb.CANMessage, len(msgs))
	for i, m := range msgs {
		out[i] = messageToPB(m)
	}
	return &reduxfifopb.ReadSessionResponse{Messages: out}, nil
}

func (s *Service) WriteMessage(ctx context.Context, req *reduxfifopb.WriteMessageRequest) (*reduxfifopb.WriteMessageResponse, error) {
	if req.Message == nil {
		return nil, fmt.Errorf("message must not be nil")
	}
	msg := messageFromPB(req.Message)
	if err := s.fab.WriteSingle(msg); err != nil {
		return nil, err
	}
	return &reduxfifopb.WriteMessageResponse{}, nil
}

// ArbitrateID tells the device currently holding ArbitrationID to yield
// in favor of Serial via a codec.CanIDArbitrate frame, then broadcasts
// a bus-wide re-enumerate so every device's id settles.
func (s *Service) ArbitrateID(ctx context.Context, req *reduxfifopb.ArbitrateIDRequest) (*reduxfifopb.ArbitrateIDResponse, error) {
	serial, ok := serialnum.FromReadableString(req.Serial, false)
	if !ok {
		return nil, fmt.Errorf("invalid serial number %q", req.Serial)
	}

	payload := codec.CanIDArbitrate{Serial: serial}.ToBytes()
	arbitrate := message.NewWithData(req.ArbitrationID, payload[:])
	arbitrate.BusID = uint16(req.BusID)
	if err := s.fab.WriteSingle(arbitrate); err != nil {
		return nil, err
	}

	enumerate := message.NewWithData(frccan.BroadcastEnumerate, nil)
	enumerate.BusID = uint16(req.BusID)
	if err := s.fab.WriteSingle(enumerate); err != nil {
		return nil, err
	}
	return &reduxfifopb.ArbitrateIDResponse{}, nil
}

// StartOTA launches an ota.Client run in the background against the
// given device and returns a transfer id the caller polls via
// OTAStatus or cancels via AbortOTA.
func (s *Service) StartOTA(ctx context.Context, req *reduxfifopb.StartOTARequest) (*reduxfifopb.StartOTAResponse, error) {
	chunkSize := int(req.ChunkSize)
	if chunkSize <= 0 {
		chunkSize = 8
	}

	io, err := newFabricClientIO(s.fab, uint16(req.BusID), req.ArbitrationID, chunkSize)
	if err != nil {
		return nil, err
	}
	io.transfers = s.transfers

	runCtx, cancel := context.WithCancel(context.Background())
	transferID := s.transfers.start(len(req.Firmware), cancel)
	io.transferID = transferID

	scratch := make([]byte, chunkSize)
	client := ota.NewClient(req.Firmware, scratch, req.ArbitrationID, io)

	go func() {
		defer io.close()
		defer cancel()
		err := client.Run(runCtx)
		s.transfers.finish(transferID, err)
		if err != nil && err != context.Canceled {
			s.logger.Warnw("ota transfer failed", "transfer_id", transferID, "error", err)
		}
	}()

	return &reduxfifopb.StartOTAResponse{TransferID: transferID}, nil
}

func (s *Service) OTAStatus(ctx context.Context, req *reduxfifopb.OTAStatusRequest) (*reduxfifopb.OTAStatusResponse, error) {
	t, ok := s.transfers.get(req.TransferID)
	if !ok {
		return nil, fmt.Errorf("unknown transfer %d", req.TransferID)
	}
	return &reduxfifopb.OTAStatusResponse{
		State:       t.state,
		BytesSent:   uint32(t.bytesSent),
		TotalBytes:  uint32(t.totalBytes),
		PctProgress: t.pctProgress,
		Error:       t.err,
	}, nil
}

func (s *Service) AbortOTA(ctx context.Context, req *reduxfifopb.AbortOTARequest) (*reduxfifopb.AbortOTAResponse, error) {
	if err := s.transfers.abort(req.TransferID); err != nil {
		return nil, err
	}
	return &reduxfifopb.AbortOTAResponse{}, nil
}
