// Package conflict turns a write collision reported by the ledger into an
// explicit operator decision. A Resolver never overwrites on its own: the
// overwrite request is sent only from ConfirmOverwrite.
package conflict

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/rollcall/internal/attendance"
	"github.com/dmitrijs2005/rollcall/internal/common"
)

// Deliverer sends one request to the ledger.
type Deliverer interface {
	Deliver(ctx context.Context, req attendance.CaptureRequest) attendance.Outcome
}

// Resolver holds one conflicting request until the operator confirms or
// cancels it. It is single-use: after either call every further call
// returns common.ErrAlreadyResolved.
type Resolver struct {
	ledger   Deliverer
	pending  attendance.CaptureRequest
	existing string

	mu       sync.Mutex
	resolved bool
}

func New(ledger Deliverer, req attendance.CaptureRequest, existing string) *Resolver {
	req.Overwrite = false
	return &Resolver{ledger: ledger, pending: req, existing: existing}
}

// Existing is the value the ledger currently holds for the address.
func (r *Resolver) Existing() string {
	return r.existing
}

// OverwriteRequest is the request ConfirmOverwrite sends: the conflicting
// request with Overwrite set and the formatted value unchanged.
func (r *Resolver) OverwriteRequest() attendance.CaptureRequest {
	return r.pending.WithOverwrite()
}

func (r *Resolver) claim() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.resolved {
		return common.ErrAlreadyResolved
	}
	r.resolved = true
	return nil
}

// ConfirmOverwrite resends the request with Overwrite set. Its outcome is
// final; a second conflict is reported as a rejection rather than retried.
func (r *Resolver) ConfirmOverwrite(ctx context.Context) (attendance.Outcome, error) {
	if err := r.claim(); err != nil {
		return nil, err
	}

	out := r.ledger.Deliver(ctx, r.OverwriteRequest())
	if c, ok := out.(attendance.Conflict); ok {
		reason := "ledger reported a conflict for an overwrite request"
		if c.Message != "" {
			reason += ": " + c.Message
		}
		return attendance.Failed{Kind: attendance.FailureRejected, Reason: reason}, nil
	}
	return out, nil
}

// Cancel drops the pending request. The ledger is left untouched.
func (r *Resolver) Cancel() error {
	return r.claim()
}
