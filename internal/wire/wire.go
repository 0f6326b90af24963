// Package wire defines the ledger protocol spoken between the capture
// terminal and the ledger service. Messages travel over gRPC as
// google.protobuf.Struct values whose fields mirror the JSON contract:
//
//	{action, eventId, personId, direction, status, formattedValue, overwrite}
//
// answered by one of
//
//	{success: true, personName, time}
//	{success: false, alreadyRecorded: true, existingValue, message?}
//	{success: false, alreadyRecorded: false, message}
package wire

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "rollcall.ledger.v1.LedgerService"

// Full gRPC method names.
const (
	MethodRecordAttendance = "/" + ServiceName + "/RecordAttendance"
	MethodListActiveEvents = "/" + ServiceName + "/ListActiveEvents"
	MethodFindMembers      = "/" + ServiceName + "/FindMembers"
	MethodPing             = "/" + ServiceName + "/Ping"
)

// ActionRecordAttendance is the action tag carried by RecordRequest.
const ActionRecordAttendance = "recordAttendance"

type RecordRequest struct {
	Action         string `json:"action"`
	EventID        string `json:"eventId"`
	PersonID       string `json:"personId"`
	Direction      string `json:"direction"`
	Status         string `json:"status"`
	FormattedValue string `json:"formattedValue"`
	Overwrite      bool   `json:"overwrite"`
}

type RecordResponse struct {
	Success         bool   `json:"success"`
	PersonName      string `json:"personName,omitempty"`
	Time            string `json:"time,omitempty"`
	AlreadyRecorded bool   `json:"alreadyRecorded"`
	ExistingValue   string `json:"existingValue,omitempty"`
	Message         string `json:"message,omitempty"`
}

type Event struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Date   string `json:"date"`
	Status string `json:"status"`
}

type ListEventsRequest struct{}

type ListEventsResponse struct {
	Events []Event `json:"events"`
}

type Member struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type FindMembersRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

type FindMembersResponse struct {
	Members []Member `json:"members"`
}

type PingRequest struct{}

type PingResponse struct {
	Status string `json:"status"`
}

// Encode converts a JSON-tagged message into a Struct.
func Encode(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	s := &structpb.Struct{}
	if err := protojson.Unmarshal(b, s); err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	return s, nil
}

// Decode fills the JSON-tagged message v from s. A nil s decodes as empty.
func Decode(s *structpb.Struct, v any) error {
	if s == nil {
		s = &structpb.Struct{}
	}
	b, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("decode %T: %w", v, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %T: %w", v, err)
	}
	return nil
}
