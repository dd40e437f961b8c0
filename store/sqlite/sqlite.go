/*
Package sqlite persists ledger snapshots to SQLite.

PURPOSE:
  The in-memory ledger is authoritative for the process lifetime; this
  package keeps the last committed amount per (category, subtype) on disk
  so a restarted service resumes from where the line left off instead of
  the configured initial amounts. The same pattern applies to PostgreSQL -
  only minor SQL dialect differences.

KEY TABLE:
  inventory: one row per ledger entry, upserted on every commit.

CONCURRENCY:
  The ledger store calls Persist with its slot locks held, so writes for
  one key arrive in commit order. A sync.Mutex serializes the statements
  themselves.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Readers don't block the writer
  - Better crash recovery

USAGE:
  snap, err := sqlite.New("./data/inventory.db")
  if err != nil {
      log.Fatal(err)
  }
  defer snap.Close()

  amounts, _ := snap.LoadAmounts()
  store := ledger.NewStore(catalog,
      ledger.WithSnapshotter(snap),
      ledger.WithAmounts(amounts))

SEE ALSO:
  - ledger/store.go: Snapshotter interface and call discipline
*/
package sqlite

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/brewbot/validation-engine/ledger"
)

// Store implements ledger.Snapshotter over SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// New creates a snapshot store at the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS inventory (
		category TEXT NOT NULL,
		subtype TEXT NOT NULL,
		current_amount TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (category, subtype)
	);`
	_, err := s.db.Exec(schema)
	return err
}

// Persist upserts the committed amounts. Amounts are stored as decimal
// strings; TEXT keeps full precision where REAL would not.
func (s *Store) Persist(records []ledger.SnapshotRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin snapshot tx: %w", err)
	}

	stmt := `
	INSERT INTO inventory (category, subtype, current_amount, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(category, subtype) DO UPDATE SET
		current_amount = excluded.current_amount,
		updated_at = excluded.updated_at`

	for _, r := range records {
		_, err := tx.Exec(stmt,
			string(r.Key.Category),
			r.Key.Subtype,
			r.Amount.String(),
			r.UpdatedAt.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("persist %s: %w", r.Key, err)
		}
	}
	return tx.Commit()
}

// LoadAmounts returns the last persisted amount per key. Keys on disk that
// are no longer in the catalog are returned too; the ledger store ignores
// them when seeding.
func (s *Store) LoadAmounts() (map[ledger.IngredientKey]ledger.Amount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT category, subtype, current_amount FROM inventory`)
	if err != nil {
		return nil, fmt.Errorf("load snapshots: %w", err)
	}
	defer rows.Close()

	amounts := make(map[ledger.IngredientKey]ledger.Amount)
	for rows.Next() {
		var category, subtype, amountStr string
		if err := rows.Scan(&category, &subtype, &amountStr); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		amount, err := ledger.ParseAmount(amountStr)
		if err != nil {
			return nil, fmt.Errorf("snapshot row %s:%s: %w", category, subtype, err)
		}
		amounts[ledger.NewKey(ledger.Category(category), subtype)] = amount
	}
	return amounts, rows.Err()
}
