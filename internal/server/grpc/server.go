// Package grpc exposes the ledger service over gRPC.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/rollcall/internal/attendance"
	"github.com/dmitrijs2005/rollcall/internal/logging"
	"github.com/dmitrijs2005/rollcall/internal/wire"
	"google.golang.org/grpc"
)

// Ledger is the business layer behind the gRPC handlers.
type Ledger interface {
	Record(ctx context.Context, req wire.RecordRequest) (wire.RecordResponse, error)
	ListActiveEvents(ctx context.Context) ([]attendance.ActiveEvent, error)
	FindMembers(ctx context.Context, query string, limit int) ([]attendance.Member, error)
}

type GRPCServer struct {
	address string
	ledger  Ledger
	logger  logging.Logger
}

func NewGRPCServer(a string, l logging.Logger, ledger Ledger) *GRPCServer {
	return &GRPCServer{
		address: a,
		logger:  l.With("module", "grpc_server"),
		ledger:  ledger,
	}
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve serves on lis until ctx is done, then stops gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {

	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor))
	srv.RegisterService(&LedgerServiceDesc, s)

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(lis); err != nil {
		return err
	}

	<-stopped
	return nil
}
