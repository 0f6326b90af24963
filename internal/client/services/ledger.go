package services

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/rollcall/internal/attendance"
	"github.com/dmitrijs2005/rollcall/internal/client/client"
	"github.com/dmitrijs2005/rollcall/internal/logging"
	"github.com/dmitrijs2005/rollcall/internal/wire"
)

type LedgerService interface {
	Deliver(ctx context.Context, req attendance.CaptureRequest) attendance.Outcome
}

type ledgerService struct {
	client  client.Client
	timeout time.Duration
	log     logging.Logger
}

// NewLedgerService returns a LedgerService that bounds each call with
// timeout. A zero timeout leaves the caller's deadline in charge.
func NewLedgerService(c client.Client, timeout time.Duration, log logging.Logger) LedgerService {
	return &ledgerService{client: c, timeout: timeout, log: log.With("module", "ledger")}
}

func (s *ledgerService) Deliver(ctx context.Context, req attendance.CaptureRequest) attendance.Outcome {
	if err := req.Validate(); err != nil {
		return attendance.Failed{Kind: attendance.FailureRejected, Reason: err.Error()}
	}

	callCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	resp, err := s.client.RecordAttendance(callCtx, ToWire(req))
	if err != nil {
		// A cancelled or expired context says nothing about the request.
		if errors.Is(err, client.ErrUnavailable) || callCtx.Err() != nil {
			s.log.Warn(ctx, "ledger unreachable", "address", req.Address().String(), "error", err)
			return attendance.Failed{Kind: attendance.FailureNetwork, Reason: err.Error()}
		}
		s.log.Warn(ctx, "ledger call failed", "address", req.Address().String(), "error", err)
		return attendance.Failed{Kind: attendance.FailureRejected, Reason: err.Error()}
	}

	out := Classify(req, resp)
	s.log.Debug(ctx, "capture delivered", "address", req.Address().String(), "overwrite", req.Overwrite, "outcome", describe(out))
	return out
}

// Classify maps a ledger reply for req onto an Outcome. An occupied address
// is a Conflict only when req did not ask to overwrite.
func Classify(req attendance.CaptureRequest, resp wire.RecordResponse) attendance.Outcome {
	switch {
	case resp.Success:
		return attendance.Recorded{PersonName: resp.PersonName, Time: resp.Time}
	case resp.AlreadyRecorded && !req.Overwrite:
		return attendance.Conflict{ExistingValue: resp.ExistingValue, Message: resp.Message}
	case resp.AlreadyRecorded:
		return attendance.Recorded{PersonName: resp.PersonName, Time: resp.Time}
	}

	reason := resp.Message
	if reason == "" {
		reason = "ledger rejected the request"
	}
	return attendance.Failed{Kind: attendance.FailureRejected, Reason: reason}
}

// ToWire renders req as the ledger protocol message.
func ToWire(req attendance.CaptureRequest) wire.RecordRequest {
	return wire.RecordRequest{
		Action:         wire.ActionRecordAttendance,
		EventID:        req.EventID,
		PersonID:       req.PersonID,
		Direction:      string(req.Direction),
		Status:         string(req.Status),
		FormattedValue: req.FormattedValue,
		Overwrite:      req.Overwrite,
	}
}

func describe(o attendance.Outcome) string {
	switch v := o.(type) {
	case attendance.Recorded:
		return "recorded"
	case attendance.Conflict:
		return "conflict"
	case attendance.Failed:
		return v.Kind.String()
	}
	return "unknown"
}
