package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/timesheet-engine/generic"
	"github.com/warp/timesheet-engine/timesheet"
)

// =============================================================================
// USER STORE
// =============================================================================

// Role decides what a user may do in the UI. Admins configure settings and
// decide timesheets.
type Role string

const (
	RoleConsultant Role = "consultant"
	RoleAdmin      Role = "admin"
)

// User represents a user record.
type User struct {
	ID        string
	Name      string
	Email     string
	Role      Role
	Active    bool
	CreatedAt time.Time
}

// SaveUser inserts or updates a user.
func (s *Store) SaveUser(ctx context.Context, u User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO users (id, name, email, role, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			role = excluded.role,
			active = excluded.active
	`
	_, err := s.db.ExecContext(ctx, query, u.ID, u.Name, u.Email, string(u.Role), u.Active, nowString())
	return wrapWriteError("save user", err)
}

// GetUser retrieves a user by ID.
func (s *Store) GetUser(ctx context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var u User
	var role, createdAt string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, email, role, active, created_at FROM users WHERE id = ?", id,
	).Scan(&u.ID, &u.Name, &u.Email, &role, &u.Active, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u.Role = Role(role)
	u.CreatedAt = parseTime(createdAt)
	return &u, nil
}

// ListUsers returns all users ordered by name.
func (s *Store) ListUsers(ctx context.Context) ([]User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, email, role, active, created_at FROM users ORDER BY name",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		var role, createdAt string
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &role, &u.Active, &createdAt); err != nil {
			return nil, err
		}
		u.Role = Role(role)
		u.CreatedAt = parseTime(createdAt)
		users = append(users, u)
	}
	return users, rows.Err()
}

// DeleteUser removes a user and, by cascade, their entries and timesheets.
// A user with a submitted or approved timesheet is kept (ErrLocked).
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	return s.deleteUnlessLocked(ctx, "users", "user", id, `
		SELECT COUNT(*) FROM timesheets
		WHERE user_id = ? AND status IN (?, ?)`)
}

// =============================================================================
// PROJECT STORE
// =============================================================================

// Project represents a billable project.
type Project struct {
	ID        string
	Code      string
	Name      string
	Client    string
	Active    bool
	CreatedAt time.Time
}

// SaveProject inserts or updates a project.
func (s *Store) SaveProject(ctx context.Context, p Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO projects (id, code, name, client, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			code = excluded.code,
			name = excluded.name,
			client = excluded.client,
			active = excluded.active
	`
	_, err := s.db.ExecContext(ctx, query, p.ID, p.Code, p.Name, nullString(p.Client), p.Active, nowString())
	return wrapWriteError("save project", err)
}

// GetProject retrieves a project by ID.
func (s *Store) GetProject(ctx context.Context, id string) (*Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var p Project
	var client sql.NullString
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, code, name, client, active, created_at FROM projects WHERE id = ?", id,
	).Scan(&p.ID, &p.Code, &p.Name, &client, &p.Active, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.Client = client.String
	p.CreatedAt = parseTime(createdAt)
	return &p, nil
}

// ListProjects returns all projects ordered by code.
func (s *Store) ListProjects(ctx context.Context) ([]Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, code, name, client, active, created_at FROM projects ORDER BY code",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		var p Project
		var client sql.NullString
		var createdAt string
		if err := rows.Scan(&p.ID, &p.Code, &p.Name, &client, &p.Active, &createdAt); err != nil {
			return nil, err
		}
		p.Client = client.String
		p.CreatedAt = parseTime(createdAt)
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// DeleteProject removes a project with its allocations and entries. A project
// with entries in a submitted or approved week is kept (ErrLocked).
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	// date(d, '-N days') with N = (weekday + 6) % 7 is the Monday of d's week.
	return s.deleteUnlessLocked(ctx, "projects", "project", id, `
		SELECT COUNT(*) FROM day_entries e
		JOIN timesheets t ON t.user_id = e.user_id
			AND t.week_start = date(e.date, '-' || ((CAST(strftime('%w', e.date) AS INTEGER) + 6) % 7) || ' days')
		WHERE e.project_id = ? AND t.status IN (?, ?)`)
}

// deleteUnlessLocked removes the row with the given id unless guard, a count
// query taking (id, submitted, approved), finds rows in a locked week. The
// check and the delete share one transaction.
func (s *Store) deleteUnlessLocked(ctx context.Context, table, kind, id, guard string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var locked int
	err = tx.QueryRowContext(ctx, guard, id,
		string(timesheet.StatusSubmitted), string(timesheet.StatusApproved),
	).Scan(&locked)
	if err != nil {
		return fmt.Errorf("delete %s: %w", kind, err)
	}
	if locked > 0 {
		return fmt.Errorf("delete %s %s: %w: %d records in submitted or approved weeks", kind, id, generic.ErrLocked, locked)
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &generic.NotFoundError{Kind: kind, ID: id}
	}
	return tx.Commit()
}

// =============================================================================
// ALLOCATION STORE
// =============================================================================

// Allocation assigns a share of a user's time to a project for a date range.
// EffectiveTo nil means open-ended.
type Allocation struct {
	ID            string
	UserID        string
	ProjectID     string
	Share         decimal.Decimal // percent of working time, (0, 100]
	EffectiveFrom time.Time
	EffectiveTo   *time.Time
	CreatedAt     time.Time
}

// ActiveOn reports whether the allocation covers day.
func (a Allocation) ActiveOn(day time.Time) bool {
	day = generic.StartOfDay(day)
	if day.Before(a.EffectiveFrom) {
		return false
	}
	return a.EffectiveTo == nil || !day.After(*a.EffectiveTo)
}

// SaveAllocation inserts or updates an allocation.
func (s *Store) SaveAllocation(ctx context.Context, a Allocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var to sql.NullString
	if a.EffectiveTo != nil {
		to = sql.NullString{String: formatDate(*a.EffectiveTo), Valid: true}
	}

	query := `
		INSERT INTO allocations (id, user_id, project_id, share, effective_from, effective_to, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			share = excluded.share,
			effective_from = excluded.effective_from,
			effective_to = excluded.effective_to
	`
	_, err := s.db.ExecContext(ctx, query,
		a.ID, a.UserID, a.ProjectID, a.Share.String(),
		formatDate(a.EffectiveFrom), to, nowString(),
	)
	return wrapWriteError("save allocation", err)
}

// GetAllocationsByProject returns a project's allocations.
func (s *Store) GetAllocationsByProject(ctx context.Context, projectID string) ([]Allocation, error) {
	return s.queryAllocations(ctx, `
		SELECT id, user_id, project_id, share, effective_from, effective_to, created_at
		FROM allocations WHERE project_id = ? ORDER BY effective_from`, projectID)
}

// GetAllocationsByUser returns a user's allocations across projects.
func (s *Store) GetAllocationsByUser(ctx context.Context, userID string) ([]Allocation, error) {
	return s.queryAllocations(ctx, `
		SELECT id, user_id, project_id, share, effective_from, effective_to, created_at
		FROM allocations WHERE user_id = ? ORDER BY effective_from`, userID)
}

func (s *Store) queryAllocations(ctx context.Context, query string, args ...any) ([]Allocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Allocation
	for rows.Next() {
		var a Allocation
		var share, from, createdAt string
		var to sql.NullString
		if err := rows.Scan(&a.ID, &a.UserID, &a.ProjectID, &share, &from, &to, &createdAt); err != nil {
			return nil, err
		}
		a.Share = parseDecimal(share)
		a.EffectiveFrom = parseDate(from)
		if to.Valid {
			t := parseDate(to.String)
			a.EffectiveTo = &t
		}
		a.CreatedAt = parseTime(createdAt)
		out = append(out, a)
	}
	return out, rows.Err()
}

// DeleteAllocation removes an allocation.
func (s *Store) DeleteAllocation(ctx context.Context, id string) error {
	return s.deleteByKey(ctx, "allocations", "id", "allocation", id)
}
