package store

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// pragma is a connection setting and the value PRAGMA reports once applied.
type pragma struct {
	name, set, reads string
}

var pragmas = []pragma{
	{"journal_mode", "WAL", "wal"},
	{"synchronous", "NORMAL", "1"},
	{"busy_timeout", "5000", "5000"},
	{"foreign_keys", "ON", "1"},
}

// migrations upgrade databases created by older schemas. Entry i moves
// user_version from i to i+1; schema.sql already holds the latest tables so
// every statement must be idempotent.
var migrations = []string{
	// 1: feedback lookups by status for error reports
	`CREATE INDEX IF NOT EXISTS idx_row_feedback_status ON row_feedback(plan_id, status)`,
	// 2: run listing per target table
	`CREATE INDEX IF NOT EXISTS idx_plan_runs_target ON plan_runs(target, seq)`,
}

// Store holds target timelines and the plans applied to them in one SQLite
// database. A Store is safe for concurrent use; writes are serialised on a
// single connection.
type Store struct {
	db   *sql.DB
	keys KeyGenerator
}

// Option configures a Store.
type Option func(*Store)

// WithKeyGenerator sets the generator for stable keys of new entities.
// Default: UUIDv7KeyGenerator.
func WithKeyGenerator(g KeyGenerator) Option {
	return func(s *Store) {
		if g != nil {
			s.keys = g
		}
	}
}

// Open creates or opens the database at path, then applies pragmas, the
// schema and pending migrations. Opening an up-to-date database changes
// nothing.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection: SQLite has a single writer and Apply holds a
	// transaction across many statements.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := initialise(db); err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{db: db, keys: UUIDv7KeyGenerator{}}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func initialise(db *sql.DB) error {
	if err := db.Ping(); err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	for _, p := range pragmas {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA %s = %s", p.name, p.set)); err != nil {
			return fmt.Errorf("set pragma %s: %w", p.name, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return migrate(db)
}

// migrate runs the migrations newer than the database's user_version.
func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}
	for v := version; v < len(migrations); v++ {
		if _, err := db.Exec(migrations[v]); err != nil {
			return fmt.Errorf("migrate to v%d: %w", v+1, err)
		}
	}
	if version < len(migrations) {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", len(migrations))); err != nil {
			return fmt.Errorf("set user_version: %w", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// checkPragmas reports the first pragma whose value differs from the one
// Open sets.
func (s *Store) checkPragmas() error {
	for _, p := range pragmas {
		var got string
		if err := s.db.QueryRow("PRAGMA " + p.name).Scan(&got); err != nil {
			return fmt.Errorf("read pragma %s: %w", p.name, err)
		}
		if got != p.reads {
			return fmt.Errorf("pragma %s = %q, want %q", p.name, got, p.reads)
		}
	}
	return nil
}
