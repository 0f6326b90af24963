package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/rollcall/internal/wire"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	invoker     grpc.ClientConnInterface
}

// NewLedgerClient dials endpointURL lazily; the first RPC establishes the
// connection.
func NewLedgerClient(endpointURL string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL}
	if err := c.InitGRPCClient(opts...); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) InitGRPCClient(opts ...grpc.DialOption) error {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)

	conn, err := grpc.NewClient(s.endpointURL, opts...)
	if err != nil {
		return err
	}
	s.conn = conn
	s.invoker = conn
	return nil
}

func (s *GRPCClient) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// call encodes in, invokes method and decodes the reply into out.
func (s *GRPCClient) call(ctx context.Context, method string, in, out any) error {
	req, err := wire.Encode(in)
	if err != nil {
		return err
	}

	resp := &structpb.Struct{}
	if err := s.invoker.Invoke(ctx, method, req, resp); err != nil {
		return s.mapError(err)
	}

	return wire.Decode(resp, out)
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	var resp wire.PingResponse
	if err := s.call(ctx, wire.MethodPing, wire.PingRequest{}, &resp); err != nil {
		return err
	}

	if resp.Status != "OK" {
		return ErrUnavailable
	}

	return nil
}

func (s *GRPCClient) RecordAttendance(ctx context.Context, req wire.RecordRequest) (wire.RecordResponse, error) {
	if req.Action == "" {
		req.Action = wire.ActionRecordAttendance
	}

	var resp wire.RecordResponse
	if err := s.call(ctx, wire.MethodRecordAttendance, req, &resp); err != nil {
		return wire.RecordResponse{}, err
	}
	return resp, nil
}

func (s *GRPCClient) ListActiveEvents(ctx context.Context) ([]wire.Event, error) {
	var resp wire.ListEventsResponse
	if err := s.call(ctx, wire.MethodListActiveEvents, wire.ListEventsRequest{}, &resp); err != nil {
		return nil, err
	}
	return resp.Events, nil
}

func (s *GRPCClient) FindMembers(ctx context.Context, query string, limit int) ([]wire.Member, error) {
	var resp wire.FindMembersResponse
	if err := s.call(ctx, wire.MethodFindMembers, wire.FindMembersRequest{Query: query, Limit: limit}, &resp); err != nil {
		return nil, err
	}
	return resp.Members, nil
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded:
		return fmt.Errorf("%w: %s", ErrUnavailable, st.Message())
	case codes.InvalidArgument, codes.FailedPrecondition, codes.NotFound, codes.AlreadyExists:
		return fmt.Errorf("%w: %s", ErrRejected, st.Message())
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
