package grpc

import (
	"context"

	"github.com/dmitrijs2005/rollcall/internal/wire"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

func (s *GRPCServer) RecordAttendance(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req wire.RecordRequest
	if err := wire.Decode(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	resp, err := s.ledger.Record(ctx, req)
	if err != nil {
		s.logger.Error(ctx, "record failed", "event", req.EventID, "person", req.PersonID, "error", err)
		return nil, status.Error(codes.Internal, "internal error")
	}

	return encode(resp)
}

func (s *GRPCServer) ListActiveEvents(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	events, err := s.ledger.ListActiveEvents(ctx)
	if err != nil {
		s.logger.Error(ctx, "list events failed", "error", err)
		return nil, status.Error(codes.Internal, "internal error")
	}

	resp := wire.ListEventsResponse{Events: make([]wire.Event, 0, len(events))}
	for _, e := range events {
		resp.Events = append(resp.Events, wire.Event{ID: e.ID, Name: e.Name, Date: e.Date, Status: string(e.Status)})
	}
	return encode(resp)
}

func (s *GRPCServer) FindMembers(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req wire.FindMembersRequest
	if err := wire.Decode(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	members, err := s.ledger.FindMembers(ctx, req.Query, req.Limit)
	if err != nil {
		s.logger.Error(ctx, "find members failed", "error", err)
		return nil, status.Error(codes.Internal, "internal error")
	}

	resp := wire.FindMembersResponse{Members: make([]wire.Member, 0, len(members))}
	for _, m := range members {
		resp.Members = append(resp.Members, wire.Member{ID: m.ID, Name: m.Name})
	}
	return encode(resp)
}

func (s *GRPCServer) Ping(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return encode(wire.PingResponse{Status: "OK"})
}

func encode(v any) (*structpb.Struct, error) {
	out, err := wire.Encode(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}
