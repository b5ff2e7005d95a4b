package timesheet

import (
	"fmt"
	"strings"
	"time"

	"github.com/warp/timesheet-engine/generic"
)

// =============================================================================
// APPROVAL WORKFLOW
// =============================================================================
//
//   draft ──submit──► submitted ──approve──► approved
//                       │   ▲
//                    reject │ submit
//                       ▼   │
//                      rejected

var transitions = map[Status][]Status{
	StatusDraft:     {StatusSubmitted},
	StatusSubmitted: {StatusApproved, StatusRejected},
	StatusRejected:  {StatusSubmitted},
}

// TransitionError names the refused status change.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move timesheet from %s to %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return generic.ErrInvalidTransition
}

// CanTransition reports whether from -> to is allowed.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func (t *Timesheet) moveTo(to Status, now time.Time) error {
	if !CanTransition(t.Status, to) {
		return &TransitionError{From: t.Status, To: to}
	}
	t.Status = to
	t.UpdatedAt = now
	return nil
}

// Submit freezes the week's totals and hands the timesheet to an approver.
func (t *Timesheet) Submit(totals Totals, now time.Time) error {
	if err := t.moveTo(StatusSubmitted, now); err != nil {
		return err
	}
	t.Totals = totals
	t.SubmittedAt = &now
	t.DecidedAt = nil
	t.DecidedBy = ""
	t.RejectionReason = ""
	return nil
}

// Approve accepts a submitted timesheet.
func (t *Timesheet) Approve(approver generic.UserID, now time.Time) error {
	if approver == "" {
		return generic.Invalid("approver_id", "is required")
	}
	if err := t.moveTo(StatusApproved, now); err != nil {
		return err
	}
	t.DecidedAt = &now
	t.DecidedBy = approver
	return nil
}

// Reject sends a submitted timesheet back to its owner with a reason.
func (t *Timesheet) Reject(approver generic.UserID, reason string, now time.Time) error {
	if approver == "" {
		return generic.Invalid("approver_id", "is required")
	}
	if strings.TrimSpace(reason) == "" {
		return generic.Invalid("reason", "is required")
	}
	if err := t.moveTo(StatusRejected, now); err != nil {
		return err
	}
	t.DecidedAt = &now
	t.DecidedBy = approver
	t.RejectionReason = reason
	return nil
}
