/*
Package sqldb provides the SQL-backed implementation of the ledger store.

PURPOSE:
  Implements ledger.Store, ledger.Directory and ledger.Registry on
  database/sql. SQLite (mattn/go-sqlite3) is the default; PostgreSQL
  (lib/pq) runs the same schema with "$n" placeholders.

KEY TABLES:
  payments:          One row per ledger entry, money and times as TEXT
  payment_reminders: Append-only reminder log, keyed (payment_id, seq)
  properties:        Directory of rentable units
  tenants:           Directory of billed tenants and their contact

CONCURRENCY:
  Status changes are compare-and-swap on the stored status
  (UPDATE ... WHERE id = ? AND status IN (...)). Reminders are appended
  with a single INSERT ... SELECT that computes the next sequence number
  and refuses to go back in time; two writers that pick the same sequence
  collide on the primary key and one of them gets a ConflictError.
  No process-level lock is taken: the database is the arbiter.

TIME ENCODING:
  All instants are stored in UTC with a fixed-width layout (see timeLayout)
  so that string order in SQL equals chronological order.

USAGE:
  store, err := sqldb.Open(sqldb.DriverSQLite, "./data/ledger.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - ledger/store.go: Interface definitions and concurrency contract
  - store/memory: In-memory implementation for testing
*/
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// timeLayout is RFC3339 with a fixed nanosecond width and a literal Z.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store implements the ledger persistence interfaces on a SQL database.
type Store struct {
	db     *sql.DB
	driver string
}

// Open connects to the database and migrates the schema.
// For SQLite, dsn is a file path or ":memory:".
func Open(driver, dsn string) (*Store, error) {
	switch driver {
	case "", DriverSQLite:
		driver = DriverSQLite
		if !strings.Contains(dsn, "?") {
			dsn += "?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000"
		}
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if driver == DriverSQLite {
		// A second connection to ":memory:" would be a different database.
		db.SetMaxOpenConns(1)
	}

	s := &Store{db: db, driver: driver}
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS properties (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		address TEXT NOT NULL DEFAULT '',
		owner_id TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_properties_owner ON properties(owner_id)`,

	`CREATE TABLE IF NOT EXISTS tenants (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		property_id TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tenants_property ON tenants(property_id)`,

	`CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		property_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		late_fee TEXT NOT NULL DEFAULT '0',
		due_date TEXT NOT NULL,
		paid_date TEXT,
		period_start TEXT NOT NULL,
		period_end TEXT NOT NULL,
		status TEXT NOT NULL,
		method TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		transaction_id TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		attachments_json TEXT NOT NULL DEFAULT '[]',
		created_by TEXT NOT NULL,
		updated_by TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	// Owner-scoped listing ordered by due date (hot path)
	`CREATE INDEX IF NOT EXISTS idx_payments_owner_due ON payments(created_by, due_date DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_payments_tenant ON payments(tenant_id)`,
	`CREATE INDEX IF NOT EXISTS idx_payments_property ON payments(property_id)`,
	`CREATE INDEX IF NOT EXISTS idx_payments_paid ON payments(created_by, paid_date)`,

	`CREATE TABLE IF NOT EXISTS payment_reminders (
		payment_id TEXT NOT NULL REFERENCES payments(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		sent_at TEXT NOT NULL,
		sent_by TEXT NOT NULL,
		method TEXT NOT NULL,
		PRIMARY KEY (payment_id, seq)
	)`,
}

// =============================================================================
// Helpers
// =============================================================================

// rebind rewrites "?" placeholders for drivers that use "$n".
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(v string) (time.Time, error) {
	if t, err := time.Parse(timeLayout, v); err == nil {
		return t, nil
	}
	// Rows written before the fixed-width layout
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored time %q: %w", v, err)
	}
	return t.UTC(), nil
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
