/*
handlers.go - HTTP API handlers for the timesheet engine

PURPOSE:
  Exposes the allowance calculator, administration, settings, day entries,
  expenses and the weekly approval workflow via REST API. Handles HTTP
  request/response and JSON serialization, and delegates to the domain
  packages.

ENDPOINTS:
  Allowance:
    POST   /api/allowance/calculate      Compute a trip's allowance

  Users:
    GET    /api/users                    List users
    POST   /api/users                    Create user
    GET    /api/users/{id}               Get user
    PUT    /api/users/{id}               Replace user
    DELETE /api/users/{id}               Delete user and their records

  Projects:
    GET    /api/projects                 List projects
    POST   /api/projects                 Create project
    GET    /api/projects/{id}            Get project
    PUT    /api/projects/{id}            Replace project
    DELETE /api/projects/{id}            Delete project
    GET    /api/projects/{id}/allocations
    POST   /api/projects/{id}/allocations
    DELETE /api/allocations/{id}

  Settings, entries, expenses, timesheets: see settings.go, entries.go and
  timesheets.go.

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: Database access
  - Logger: Structured logger, component=api
  - BaseCurrency: Currency totals are reported in
  - Now: Clock, replaced in tests

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (allowance, expense, timesheet)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid interval or rate
  - 404: Resource not found (including unknown country codes)
  - 409: Conflict (duplicate, illegal transition, locked week)
  - 500: Internal errors

SECURITY NOTE:
  No authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/warp/timesheet-engine/allowance"
	"github.com/warp/timesheet-engine/generic"
	"github.com/warp/timesheet-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store        *sqlite.Store
	Logger       *slog.Logger
	BaseCurrency string
	Now          func() time.Time

	// Track currently loaded scenario
	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler with the given store.
func NewHandler(store *sqlite.Store, logger *slog.Logger, baseCurrency string) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		Store:        store,
		Logger:       logger.With("component", "api"),
		BaseCurrency: baseCurrency,
		Now:          time.Now,
	}
}

func (h *Handler) now() time.Time {
	return h.Now().UTC().Truncate(time.Second)
}

// Health reports whether the database answers.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "Database unavailable", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// ALLOWANCE HANDLERS
// =============================================================================

// CalculateAllowance computes the allowance of a trip without storing it.
func (h *Handler) CalculateAllowance(w http.ResponseWriter, r *http.Request) {
	var req CalculateAllowanceRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, "Invalid request body", err)
		return
	}

	start, err := generic.ParseDateTime(req.Start, time.UTC)
	if err != nil {
		h.fail(w, r, "Invalid start", err)
		return
	}
	end, err := generic.ParseDateTime(req.End, time.UTC)
	if err != nil {
		h.fail(w, r, "Invalid end", err)
		return
	}
	// The interval is judged before the destination is looked up.
	if !start.Before(end) {
		h.fail(w, r, "Invalid trip", &allowance.IntervalError{Start: start, End: end})
		return
	}

	rates, country, err := h.resolveRates(r.Context(), req)
	if err != nil {
		h.fail(w, r, "Cannot resolve allowance rates", err)
		return
	}

	res, err := allowance.Compute(start, end, rates)
	if err != nil {
		h.fail(w, r, "Invalid trip", err)
		return
	}

	writeJSON(w, http.StatusOK, toAllowanceResponse(res, rates, country))
}

// resolveRates prefers explicit rates and falls back to the country table.
func (h *Handler) resolveRates(ctx context.Context, req CalculateAllowanceRequest) (allowance.Rates, string, error) {
	if req.PartialRate != nil || req.FullRate != nil {
		if req.PartialRate == nil || req.FullRate == nil {
			return allowance.Rates{}, "", generic.Invalid("rates", "partial_rate and full_rate must be given together")
		}
		return allowance.Rates{Partial: *req.PartialRate, Full: *req.FullRate}, "", nil
	}
	if strings.TrimSpace(req.CountryCode) == "" {
		return allowance.Rates{}, "", generic.Invalid("country_code", "is required when no rates are given")
	}
	code := strings.ToUpper(strings.TrimSpace(req.CountryCode))
	rates, err := h.countryRates(ctx, code)
	return rates, code, err
}

// countryRates looks up a destination; unknown codes are ErrNotFound.
func (h *Handler) countryRates(ctx context.Context, code string) (allowance.Rates, error) {
	c, err := h.Store.GetCountryRate(ctx, code)
	if err != nil {
		return allowance.Rates{}, err
	}
	if c == nil {
		return allowance.Rates{}, &generic.NotFoundError{Kind: "country", ID: code}
	}
	return c.Rates, nil
}

// =============================================================================
// USER HANDLERS
// =============================================================================

// ListUsers returns all users.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Store.ListUsers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list users", err)
		return
	}

	dtos := make([]UserDTO, len(users))
	for i, u := range users {
		dtos[i] = toUserDTO(u)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetUser returns a single user.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.requireUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "Failed to get user", err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(*user))
}

// CreateUser creates a user. An ID is generated when none is given.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req SaveUserRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, "Invalid request body", err)
		return
	}
	if req.ID == "" {
		req.ID = generic.NewID()
	}

	existing, err := h.Store.GetUser(ctx, req.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to check user", err)
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "User already exists", nil)
		return
	}

	h.saveUser(w, r, req, http.StatusCreated)
}

// UpdateUser replaces an existing user.
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.requireUser(r.Context(), id); err != nil {
		h.fail(w, r, "Failed to get user", err)
		return
	}

	var req SaveUserRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, "Invalid request body", err)
		return
	}
	req.ID = id

	h.saveUser(w, r, req, http.StatusOK)
}

func (h *Handler) saveUser(w http.ResponseWriter, r *http.Request, req SaveUserRequest, status int) {
	user, err := userFromRequest(req)
	if err != nil {
		h.fail(w, r, "Invalid user", err)
		return
	}
	if err := h.Store.SaveUser(r.Context(), user); err != nil {
		h.fail(w, r, "Failed to save user", err)
		return
	}

	saved, err := h.Store.GetUser(r.Context(), user.ID)
	if err != nil || saved == nil {
		writeError(w, http.StatusInternalServerError, "Failed to reload user", err)
		return
	}
	h.Logger.InfoContext(r.Context(), "user saved", "user_id", user.ID, "role", user.Role)
	writeJSON(w, status, toUserDTO(*saved))
}

func userFromRequest(req SaveUserRequest) (sqlite.User, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return sqlite.User{}, generic.Invalid("name", "is required")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return sqlite.User{}, generic.Invalid("email", "invalid address %q", req.Email)
	}
	role := sqlite.Role(strings.ToLower(req.Role))
	if role == "" {
		role = sqlite.RoleConsultant
	}
	if role != sqlite.RoleConsultant && role != sqlite.RoleAdmin {
		return sqlite.User{}, generic.Invalid("role", "must be consultant or admin, got %q", req.Role)
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	return sqlite.User{ID: req.ID, Name: name, Email: req.Email, Role: role, Active: active}, nil
}

// DeleteUser removes a user with their entries, expenses and timesheets.
// Users with a submitted or approved week are kept (409).
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteUser(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, "Failed to delete user", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) requireUser(ctx context.Context, id string) (*sqlite.User, error) {
	user, err := h.Store.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, &generic.NotFoundError{Kind: "user", ID: id}
	}
	return user, nil
}

// =============================================================================
// PROJECT HANDLERS
// =============================================================================

// ListProjects returns all projects.
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.Store.ListProjects(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list projects", err)
		return
	}

	dtos := make([]ProjectDTO, len(projects))
	for i, p := range projects {
		dtos[i] = toProjectDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetProject returns a single project.
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	project, err := h.requireProject(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "Failed to get project", err)
		return
	}
	writeJSON(w, http.StatusOK, toProjectDTO(*project))
}

// CreateProject creates a project. Codes are unique.
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req SaveProjectRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, "Invalid request body", err)
		return
	}
	if req.ID == "" {
		req.ID = generic.NewID()
	}

	existing, err := h.Store.GetProject(r.Context(), req.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to check project", err)
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "Project already exists", nil)
		return
	}

	h.saveProject(w, r, req, http.StatusCreated)
}

// UpdateProject replaces an existing project.
func (h *Handler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.requireProject(r.Context(), id); err != nil {
		h.fail(w, r, "Failed to get project", err)
		return
	}

	var req SaveProjectRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, "Invalid request body", err)
		return
	}
	req.ID = id

	h.saveProject(w, r, req, http.StatusOK)
}

func (h *Handler) saveProject(w http.ResponseWriter, r *http.Request, req SaveProjectRequest, status int) {
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if code == "" {
		h.fail(w, r, "Invalid project", generic.Invalid("code", "is required"))
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		h.fail(w, r, "Invalid project", generic.Invalid("name", "is required"))
		return
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}

	project := sqlite.Project{ID: req.ID, Code: code, Name: strings.TrimSpace(req.Name), Client: req.Client, Active: active}
	if err := h.Store.SaveProject(r.Context(), project); err != nil {
		h.fail(w, r, "Failed to save project", err)
		return
	}

	saved, err := h.Store.GetProject(r.Context(), project.ID)
	if err != nil || saved == nil {
		writeError(w, http.StatusInternalServerError, "Failed to reload project", err)
		return
	}
	writeJSON(w, status, toProjectDTO(*saved))
}

// DeleteProject removes a project with its allocations and entries, unless
// one of those entries sits in a locked week (409).
func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteProject(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, "Failed to delete project", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) requireProject(ctx context.Context, id string) (*sqlite.Project, error) {
	project, err := h.Store.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, &generic.NotFoundError{Kind: "project", ID: id}
	}
	return project, nil
}

// =============================================================================
// ALLOCATION HANDLERS
// =============================================================================

var maxShare = decimal.NewFromInt(100)

// ListAllocations returns the allocations of a project.
func (h *Handler) ListAllocations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	if _, err := h.requireProject(ctx, id); err != nil {
		h.fail(w, r, "Failed to get project", err)
		return
	}

	allocations, err := h.Store.GetAllocationsByProject(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list allocations", err)
		return
	}

	dtos := make([]AllocationDTO, len(allocations))
	for i, a := range allocations {
		dtos[i] = toAllocationDTO(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateAllocation assigns a user to a project.
func (h *Handler) CreateAllocation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	projectID := chi.URLParam(r, "id")
	if _, err := h.requireProject(ctx, projectID); err != nil {
		h.fail(w, r, "Failed to get project", err)
		return
	}

	var req CreateAllocationRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, "Invalid request body", err)
		return
	}
	if _, err := h.requireUser(ctx, req.UserID); err != nil {
		h.fail(w, r, "Failed to get user", err)
		return
	}

	alloc, err := allocationFromRequest(projectID, req)
	if err != nil {
		h.fail(w, r, "Invalid allocation", err)
		return
	}
	if err := h.Store.SaveAllocation(ctx, alloc); err != nil {
		h.fail(w, r, "Failed to save allocation", err)
		return
	}
	writeJSON(w, http.StatusCreated, toAllocationDTO(alloc))
}

func allocationFromRequest(projectID string, req CreateAllocationRequest) (sqlite.Allocation, error) {
	if !req.Share.IsPositive() || req.Share.GreaterThan(maxShare) {
		return sqlite.Allocation{}, generic.Invalid("share", "must be greater than 0 and at most 100, got %s", req.Share)
	}
	from, err := generic.ParseDate(req.EffectiveFrom, time.UTC)
	if err != nil {
		return sqlite.Allocation{}, err
	}
	alloc := sqlite.Allocation{
		ID:            generic.NewID(),
		UserID:        req.UserID,
		ProjectID:     projectID,
		Share:         req.Share,
		EffectiveFrom: from,
	}
	if req.EffectiveTo != "" {
		to, err := generic.ParseDate(req.EffectiveTo, time.UTC)
		if err != nil {
			return sqlite.Allocation{}, err
		}
		if _, err := generic.NewDateRange(from, to); err != nil {
			return sqlite.Allocation{}, err
		}
		alloc.EffectiveTo = &to
	}
	return alloc, nil
}

// DeleteAllocation removes an allocation.
func (h *Handler) DeleteAllocation(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteAllocation(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, "Failed to delete allocation", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// HELPERS
// =============================================================================

// decodeJSON reads the request body into dst. An empty body leaves dst at
// its zero value.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", generic.ErrValidation, err)
	}
	return nil
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case allowance.IsInputError(err), generic.IsClientError(err):
		return http.StatusBadRequest
	case generic.IsNotFound(err):
		return http.StatusNotFound
	case generic.IsConflict(err):
		return http.StatusConflict
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err with the status its kind maps to. Server-side failures are
// logged; client errors are not.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.Logger.ErrorContext(r.Context(), message, "error", err, "path", r.URL.Path)
	}
	writeError(w, status, message, err)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
