/*
Package sqlite provides the SQLite-backed store for the timesheet engine.

PURPOSE:
  Persists users, projects, allocations, settings tables (country allowance
  rates, VAT rates, currencies), day entries, expenses and weekly timesheets.
  Business rules live in the domain packages; this package only reads and
  writes rows.

KEY TABLES:
  users, projects, allocations:      Administration
  country_rates, vat_rates, currencies: Settings
  day_entries:                       Logged work, with optional trip + allowance
  expenses:                          Priced expenses (net/vat/base amounts)
  timesheets:                        One per user and ISO week, with totals

STORAGE CONVENTIONS:
  - Decimals are stored as TEXT to keep them exact
  - Dates are YYYY-MM-DD, timestamps RFC3339 (trip times keep their offset)
  - Get* returns (nil, nil) when the row does not exist

MIGRATIONS:
  Schema is versioned with goose. SQL files are embedded from ./migrations
  and applied on New().

CONCURRENCY:
  Uses sync.RWMutex for thread-safety, and a single connection for
  ":memory:" databases so every query sees the same data.

USAGE:
  store, err := sqlite.New("./data/timesheets.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"
	"github.com/warp/timesheet-engine/generic"
	"github.com/warp/timesheet-engine/store/sqlite/migrations"
)

// Store implements persistence for all records using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate applies all pending goose migrations.
func (s *Store) migrate(ctx context.Context) error {
	provider, err := goose.NewProvider(goose.DialectSQLite3, s.db, migrations.FS)
	if err != nil {
		return err
	}
	_, err = provider.Up(ctx)
	return err
}

// Reset deletes every row. Settings are cleared too.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{
		"timesheets", "expenses", "day_entries", "allocations",
		"projects", "users", "country_rates", "vat_rates", "currencies",
	}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("reset %s: %w", table, err)
		}
	}
	return nil
}

// =============================================================================
// COLUMN HELPERS
// =============================================================================

func nowString() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// createdString formats a record's creation time, defaulting to now.
func createdString(t time.Time) string {
	if t.IsZero() {
		return nowString()
	}
	return formatTime(t.UTC())
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func formatDate(t time.Time) string {
	return t.Format(generic.DateLayout)
}

func parseDate(s string) time.Time {
	t, _ := time.Parse(generic.DateLayout, s)
	return t
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func nullTimeValue(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t := parseTime(ns.String)
	return &t
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// isUniqueViolation reports whether err is a UNIQUE or PRIMARY KEY failure.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// isForeignKeyViolation reports whether err references a missing parent row.
func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// wrapWriteError turns constraint failures into the generic taxonomy.
func wrapWriteError(kind string, err error) error {
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err):
		return fmt.Errorf("%s: %w: %v", kind, generic.ErrConflict, err)
	case isForeignKeyViolation(err):
		return fmt.Errorf("%s: %w: referenced record does not exist", kind, generic.ErrValidation)
	default:
		return fmt.Errorf("%s: %w", kind, err)
	}
}

// deleteByKey removes one row and reports ErrNotFound when nothing matched.
func (s *Store) deleteByKey(ctx context.Context, table, column, kind, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE "+column+" = ?", key)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &generic.NotFoundError{Kind: kind, ID: key}
	}
	return nil
}
