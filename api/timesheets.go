package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/warp/timesheet-engine/generic"
	"github.com/warp/timesheet-engine/timesheet"
)

// =============================================================================
// TIMESHEET HANDLERS
// =============================================================================

// ListUserTimesheets returns a user's timesheets, newest week first.
func (h *Handler) ListUserTimesheets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := chi.URLParam(r, "id")
	if _, err := h.requireUser(ctx, userID); err != nil {
		h.fail(w, r, "Failed to get user", err)
		return
	}

	sheets, err := h.Store.ListTimesheetsByUser(ctx, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list timesheets", err)
		return
	}
	writeJSON(w, http.StatusOK, toTimesheetDTOs(sheets))
}

// GetTimesheet returns a single timesheet.
func (h *Handler) GetTimesheet(w http.ResponseWriter, r *http.Request) {
	ts, err := h.requireTimesheet(r, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "Failed to get timesheet", err)
		return
	}
	writeJSON(w, http.StatusOK, toTimesheetDTO(*ts))
}

// SubmitTimesheet totals the week containing {week} (any YYYY-MM-DD in the
// week) and hands it to an approver. Draft and rejected weeks can be
// submitted; the week is locked from then on.
func (h *Handler) SubmitTimesheet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := chi.URLParam(r, "id")
	if _, err := h.requireUser(ctx, userID); err != nil {
		h.fail(w, r, "Failed to get user", err)
		return
	}
	day, err := generic.ParseDate(chi.URLParam(r, "week"), time.UTC)
	if err != nil {
		h.fail(w, r, "Invalid week", err)
		return
	}

	ts, err := h.Store.GetTimesheetForWeek(ctx, userID, generic.StartOfWeek(day))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get timesheet", err)
		return
	}
	if ts == nil {
		fresh := timesheet.NewTimesheet(generic.UserID(userID), day)
		fresh.CreatedAt = h.now()
		ts = &fresh
	}

	week := ts.Week()
	entries, err := h.Store.ListDayEntries(ctx, userID, week)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list entries", err)
		return
	}
	expenses, err := h.Store.ListExpenses(ctx, userID, week)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list expenses", err)
		return
	}

	if err := ts.Submit(timesheet.Summarize(week, entries, expenses), h.now()); err != nil {
		h.fail(w, r, "Cannot submit timesheet", err)
		return
	}
	if err := h.Store.SaveTimesheet(ctx, *ts); err != nil {
		h.fail(w, r, "Failed to save timesheet", err)
		return
	}

	h.Logger.InfoContext(ctx, "timesheet submitted",
		"user_id", userID, "week", week.String(),
		"hours", ts.Totals.Hours.String(), "allowance", ts.Totals.Allowance.StringFixed(2))
	writeJSON(w, http.StatusOK, toTimesheetDTO(*ts))
}

// ListPendingTimesheets returns every timesheet waiting for a decision.
func (h *Handler) ListPendingTimesheets(w http.ResponseWriter, r *http.Request) {
	sheets, err := h.Store.ListTimesheetsByStatus(r.Context(), timesheet.StatusSubmitted)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list pending timesheets", err)
		return
	}
	writeJSON(w, http.StatusOK, toTimesheetDTOs(sheets))
}

// ApproveTimesheet accepts a submitted timesheet.
func (h *Handler) ApproveTimesheet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ts, err := h.requireTimesheet(r, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "Failed to get timesheet", err)
		return
	}

	var req DecisionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, "Invalid request body", err)
		return
	}
	if req.ApproverID == "" {
		req.ApproverID = "admin"
	}

	if err := ts.Approve(generic.UserID(req.ApproverID), h.now()); err != nil {
		h.fail(w, r, "Cannot approve timesheet", err)
		return
	}
	if err := h.Store.SaveTimesheet(ctx, *ts); err != nil {
		h.fail(w, r, "Failed to save timesheet", err)
		return
	}

	h.Logger.InfoContext(ctx, "timesheet approved", "timesheet_id", ts.ID, "approver", req.ApproverID)
	writeJSON(w, http.StatusOK, toTimesheetDTO(*ts))
}

// RejectTimesheet sends a submitted timesheet back with a reason. The week
// opens again for corrections.
func (h *Handler) RejectTimesheet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ts, err := h.requireTimesheet(r, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "Failed to get timesheet", err)
		return
	}

	var req DecisionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, "Invalid request body", err)
		return
	}
	if req.ApproverID == "" {
		req.ApproverID = "admin"
	}

	if err := ts.Reject(generic.UserID(req.ApproverID), req.Reason, h.now()); err != nil {
		h.fail(w, r, "Cannot reject timesheet", err)
		return
	}
	if err := h.Store.SaveTimesheet(ctx, *ts); err != nil {
		h.fail(w, r, "Failed to save timesheet", err)
		return
	}

	h.Logger.InfoContext(ctx, "timesheet rejected", "timesheet_id", ts.ID, "approver", req.ApproverID)
	writeJSON(w, http.StatusOK, toTimesheetDTO(*ts))
}

func (h *Handler) requireTimesheet(r *http.Request, id string) (*timesheet.Timesheet, error) {
	ts, err := h.Store.GetTimesheet(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if ts == nil {
		return nil, &generic.NotFoundError{Kind: "timesheet", ID: id}
	}
	return ts, nil
}

func toTimesheetDTOs(sheets []timesheet.Timesheet) []TimesheetDTO {
	dtos := make([]TimesheetDTO, len(sheets))
	for i, t := range sheets {
		dtos[i] = toTimesheetDTO(t)
	}
	return dtos
}
