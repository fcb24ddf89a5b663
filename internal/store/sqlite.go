package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Open opens (and creates if needed) the SQLite database at path and ensures
// required tables exist.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Basic health check + apply a few safe pragmas.
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(pctx, "PRAGMA foreign_keys = ON;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign_keys: %w", err)
	}
	if _, err := db.ExecContext(pctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}
	if err := Bootstrap(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Bootstrap creates tables/indexes if missing.
func Bootstrap(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS shops (
  shop_domain     TEXT PRIMARY KEY,
  name            TEXT,
  currency        TEXT,
  timezone        TEXT,
  plan            TEXT,
  scopes          TEXT,
  status          TEXT NOT NULL DEFAULT 'active',
  uninstalled_at  TEXT,
  updated_at      TEXT
);`,
		`CREATE TABLE IF NOT EXISTS products (
  external_id   TEXT PRIMARY KEY,
  shop_domain   TEXT,
  title         TEXT,
  vendor        TEXT,
  product_type  TEXT,
  status        TEXT NOT NULL DEFAULT 'active',
  deleted_at    TEXT,
  updated_at    TEXT
);`,
		`CREATE TABLE IF NOT EXISTS orders (
  external_id      TEXT PRIMARY KEY,
  shop_domain      TEXT,
  order_number     TEXT,
  total_price      TEXT,
  currency         TEXT,
  financial_status TEXT,
  quote_id         TEXT,
  cancelled_at     TEXT,
  updated_at       TEXT
);`,
		`CREATE TABLE IF NOT EXISTS customers (
  external_id  TEXT PRIMARY KEY,
  shop_domain  TEXT,
  email        TEXT,
  first_name   TEXT,
  last_name    TEXT,
  status       TEXT NOT NULL DEFAULT 'active',
  updated_at   TEXT
);`,
		`CREATE TABLE IF NOT EXISTS quotes (
  id                     TEXT PRIMARY KEY,
  shop_domain            TEXT,
  status                 TEXT,
  converted_order_id     TEXT,
  converted_order_number TEXT,
  converted_at           TEXT
);`,
		`CREATE TABLE IF NOT EXISTS bulk_operations (
  external_id   TEXT PRIMARY KEY,
  shop_domain   TEXT,
  status        TEXT,
  completed_at  TEXT
);`,
		`CREATE TABLE IF NOT EXISTS retention_jobs (
  shop_domain  TEXT PRIMARY KEY,
  requested_at TEXT NOT NULL
);`,
		`CREATE TABLE IF NOT EXISTS audit_log (
  id            TEXT PRIMARY KEY,
  delivery_id   TEXT NOT NULL,
  shop_domain   TEXT,
  topic         TEXT NOT NULL,
  attempt       INTEGER NOT NULL,
  success       INTEGER NOT NULL,
  processed     INTEGER NOT NULL,
  retryable     INTEGER NOT NULL,
  error         TEXT,
  payload_hash  TEXT,
  duration_ms   INTEGER NOT NULL,
  created_at    TEXT NOT NULL
);`,
		`CREATE TABLE IF NOT EXISTS retry_queue (
  id           TEXT PRIMARY KEY,
  delivery_id  TEXT NOT NULL,
  shop_domain  TEXT,
  topic        TEXT NOT NULL,
  payload      TEXT,
  attempt      INTEGER NOT NULL,
  scheduled_at TEXT NOT NULL,
  created_at   TEXT NOT NULL
);`,
		`CREATE INDEX IF NOT EXISTS audit_log_created_at_idx ON audit_log(created_at);`,
		`CREATE INDEX IF NOT EXISTS audit_log_shop_created_at_idx ON audit_log(shop_domain, created_at);`,
		`CREATE INDEX IF NOT EXISTS retry_queue_scheduled_at_idx ON retry_queue(scheduled_at);`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap sqlite: %w", err)
		}
	}
	return nil
}

// Contract is the narrow mutation surface handlers are allowed to use. Every
// call is atomic at the single-row level; nothing is transactional across
// calls.
type Contract interface {
	Upsert(ctx context.Context, table, keyField string, keyValue any, fields map[string]any) error
	Update(ctx context.Context, table, keyField string, keyValue any, fields map[string]any) error
}

// entityTables are the only tables reachable through the Contract. SQL
// identifiers cannot be bound as parameters, so table and column names are
// validated before interpolation.
var entityTables = map[string]bool{
	"shops":           true,
	"products":        true,
	"orders":          true,
	"customers":       true,
	"quotes":          true,
	"bulk_operations": true,
	"retention_jobs":  true,
}

var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Store implements Contract on a SQLite database.
type Store struct {
	db *sql.DB
}

// New wraps db with the entity mutation contract.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Upsert inserts a row keyed by keyField, or overwrites the given fields if
// the key already exists. Last write wins; re-applying the same delivery
// converges to the same row.
func (s *Store) Upsert(ctx context.Context, table, keyField string, keyValue any, fields map[string]any) error {
	if err := checkIdentifiers(table, keyField, fields); err != nil {
		return err
	}

	cols := sortedKeys(fields)
	names := make([]string, 0, len(cols)+1)
	placeholders := make([]string, 0, len(cols)+1)
	updates := make([]string, 0, len(cols))
	args := make([]any, 0, len(cols)+1)

	names = append(names, keyField)
	placeholders = append(placeholders, "?")
	args = append(args, keyValue)
	for _, c := range cols {
		names = append(names, c)
		placeholders = append(placeholders, "?")
		updates = append(updates, fmt.Sprintf("%s = excluded.%s", c, c))
		args = append(args, fields[c])
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT(%s) DO UPDATE SET %s;",
		table,
		strings.Join(names, ", "),
		strings.Join(placeholders, ", "),
		keyField,
		strings.Join(updates, ", "),
	)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert %s: %w", table, err)
	}
	return nil
}

// Update sets fields on the row keyed by keyField. A missing row is a no-op,
// not an error: deliveries may arrive before the entity they reference.
func (s *Store) Update(ctx context.Context, table, keyField string, keyValue any, fields map[string]any) error {
	if err := checkIdentifiers(table, keyField, fields); err != nil {
		return err
	}

	cols := sortedKeys(fields)
	sets := make([]string, 0, len(cols))
	args := make([]any, 0, len(cols)+1)
	for _, c := range cols {
		sets = append(sets, fmt.Sprintf("%s = ?", c))
		args = append(args, fields[c])
	}
	args = append(args, keyValue)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?;", table, strings.Join(sets, ", "), keyField)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update %s: %w", table, err)
	}
	return nil
}

func checkIdentifiers(table, keyField string, fields map[string]any) error {
	if !entityTables[table] {
		return fmt.Errorf("table %q is not part of the store contract", table)
	}
	if !identPattern.MatchString(keyField) {
		return fmt.Errorf("invalid key field %q", keyField)
	}
	for c := range fields {
		if !identPattern.MatchString(c) {
			return fmt.Errorf("invalid column name %q", c)
		}
	}
	return nil
}

// sortedKeys keeps generated SQL deterministic for a given field set.
func sortedKeys(fields map[string]any) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
