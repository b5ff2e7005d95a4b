/*
scheduler.go - Weekly timesheet scheduler

PURPOSE:
  Makes sure every active consultant has a timesheet for the current week,
  so the week shows up as a draft before anything is logged. Runs in the
  background and can be triggered by hand.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Opens a draft only when the user has no timesheet for the week yet
  - Admin users and inactive users are skipped
  - Idempotent: running it twice in a week changes nothing

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewTimesheetScheduler(store, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()
*/
package api

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/warp/timesheet-engine/generic"
	"github.com/warp/timesheet-engine/store/sqlite"
	"github.com/warp/timesheet-engine/timesheet"
)

// TimesheetScheduler opens the current week's draft timesheets.
type TimesheetScheduler struct {
	Store         *sqlite.Store
	Logger        *slog.Logger
	CheckInterval time.Duration
	Enabled       bool
	Now           func() time.Time

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewTimesheetScheduler creates a new scheduler.
func NewTimesheetScheduler(store *sqlite.Store, logger *slog.Logger) *TimesheetScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TimesheetScheduler{
		Store:         store,
		Logger:        logger.With("component", "scheduler"),
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		Now:           time.Now,
	}
}

// Start begins the scheduler. It runs once immediately.
func (ts *TimesheetScheduler) Start() {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if !ts.Enabled || ts.CheckInterval <= 0 {
		ts.Logger.Info("scheduler disabled, not starting")
		return
	}
	if ts.ticker != nil {
		return
	}

	ts.ticker = time.NewTicker(ts.CheckInterval)
	ts.stop = make(chan struct{})
	ts.wg.Add(1)

	go ts.run()

	ts.Logger.Info("scheduler started",
		"check_interval", ts.CheckInterval.String(),
		"next_run", ts.NextRunTime().UTC().Format(time.RFC3339))
}

// Stop stops the scheduler and waits for a running check to finish.
func (ts *TimesheetScheduler) Stop() {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.ticker != nil {
		ts.ticker.Stop()
		close(ts.stop)
		ts.wg.Wait()
		ts.ticker = nil
		ts.Logger.Info("scheduler stopped")
	}
}

func (ts *TimesheetScheduler) run() {
	defer ts.wg.Done()

	ts.RunNow(context.Background())

	for {
		select {
		case <-ts.ticker.C:
			ts.RunNow(context.Background())
		case <-ts.stop:
			return
		}
	}
}

// RunNow opens missing drafts for the current week and returns how many it
// created.
func (ts *TimesheetScheduler) RunNow(ctx context.Context) int {
	now := ts.Now().UTC()
	weekStart := generic.StartOfWeek(now)

	users, err := ts.Store.ListUsers(ctx)
	if err != nil {
		ts.Logger.ErrorContext(ctx, "list users", "error", err)
		return 0
	}

	opened := 0
	for _, u := range users {
		if !u.Active || u.Role != sqlite.RoleConsultant {
			continue
		}
		existing, err := ts.Store.GetTimesheetForWeek(ctx, u.ID, weekStart)
		if err != nil {
			ts.Logger.ErrorContext(ctx, "get timesheet", "user_id", u.ID, "error", err)
			continue
		}
		if existing != nil {
			continue
		}

		draft := timesheet.NewTimesheet(generic.UserID(u.ID), weekStart)
		draft.CreatedAt = now.Truncate(time.Second)
		draft.UpdatedAt = draft.CreatedAt
		if err := ts.Store.SaveTimesheet(ctx, draft); err != nil {
			// A concurrent submit for the same week wins; nothing to do.
			if generic.IsConflict(err) {
				continue
			}
			ts.Logger.ErrorContext(ctx, "open timesheet", "user_id", u.ID, "error", err)
			continue
		}
		opened++
	}

	if opened > 0 {
		ts.Logger.InfoContext(ctx, "draft timesheets opened",
			"week", generic.FormatDate(weekStart), "count", opened)
	}
	return opened
}

// NextRunTime returns when the next check is due.
func (ts *TimesheetScheduler) NextRunTime() time.Time {
	return ts.Now().Add(ts.CheckInterval)
}
