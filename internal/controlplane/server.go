package controlplane

import (
	"context"
	"fmt"
	"net"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/redux-robotics/reduxfifo/internal/config"
	"github.com/redux-robotics/reduxfifo/internal/controlplane/reduxfifopb"
	"github.com/redux-robotics/reduxfifo/internal/fabric"
)

// Server wraps the gRPC listener hosting the ReduxFIFOControl service.
type Server struct {
	cfg     *config.Config
	log     *zap.SugaredLogger
	server  *grpc.Server
	service *Service
}

func NewServer(fab *fabric.Fabric, logger *zap.SugaredLogger, cfg *config.Config) *Server {
	svc := NewService(fab, logger, cfg)
	grpcServer := grpc.NewServer(grpc.ForceServerCodec(reduxfifopb.Codec))
	reduxfifopb.RegisterReduxFIFOControlServer(grpcServer, svc)

	return &Server{cfg: cfg, log: logger, server: grpcServer, service: svc}
}

// Run serves the control-plane API until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.Control.Endpoint)
	if err != nil {
		return fmt.Errorf("failed to initialize control-plane listener: %w", err)
	}

	s.log.Infow("starting control-plane gRPC server", "addr", listener.Addr())

	wg, ctx := errgroup.WithContext(ctx)
	wg.Go(func() error {
		return s.server.Serve(listener)
	})

	<-ctx.Done()

	s.log.Infow("stopping control-plane gRPC server", "addr", listener.Addr())
	s.server.GracefulStop()

	return wg.Wait()
}
