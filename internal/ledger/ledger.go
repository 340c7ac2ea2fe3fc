// Package ledger records a content fingerprint per indexed unit so
// incremental runs can skip units that have not changed.
package ledger

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	infraconfig "github.com/jonesrussell/north-cloud/legal-indexer/infrastructure/config"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/domain"
)

const (
	// DriverPostgres selects lib/pq.
	DriverPostgres = "postgres"
	// DriverSQLite selects mattn/go-sqlite3.
	DriverSQLite = "sqlite3"

	pingTimeout = 5 * time.Second
)

var (
	// ErrNotFound is returned when a unit has no ledger record.
	ErrNotFound = errors.New("ledger: record not found")
	// ErrUnsupportedDriver is returned for drivers other than postgres and sqlite3.
	ErrUnsupportedDriver = errors.New("ledger: unsupported driver")
)

const schema = `CREATE TABLE IF NOT EXISTS index_ledger (
	corpus          TEXT NOT NULL,
	unit            TEXT NOT NULL,
	fingerprint     TEXT NOT NULL,
	sections        INTEGER NOT NULL DEFAULT 0,
	source_modified TIMESTAMP NULL,
	indexed_at      TIMESTAMP NOT NULL,
	PRIMARY KEY (corpus, unit)
)`

// recordSelectColumns lists columns for SELECT queries on index_ledger.
const recordSelectColumns = `corpus, unit, fingerprint, sections, source_modified, indexed_at`

// Record is the ledger entry of one unit.
type Record struct {
	Corpus         string     `db:"corpus"`
	Unit           string     `db:"unit"`
	Fingerprint    string     `db:"fingerprint"`
	Sections       int        `db:"sections"`
	SourceModified *time.Time `db:"source_modified"`
	IndexedAt      time.Time  `db:"indexed_at"`
}

// Ledger stores unit records in PostgreSQL or SQLite.
type Ledger struct {
	db *sqlx.DB
}

// Open connects to the configured database and verifies the connection.
func Open(ctx context.Context, cfg infraconfig.DatabaseConfig) (*sqlx.DB, error) {
	cfg.SetDefaults()
	if cfg.Driver != DriverPostgres && cfg.Driver != DriverSQLite {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDriver, cfg.Driver)
	}

	db, err := sqlx.Open(cfg.Driver, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database: %w", err)
	}

	if cfg.Driver == DriverSQLite {
		// SQLite allows a single writer.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(cfg.MaxConnections)
		db.SetMaxIdleConns(cfg.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if pingErr := db.PingContext(pingCtx); pingErr != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping ledger database: %w", pingErr)
	}
	return db, nil
}

// New wraps an open database.
func New(db *sqlx.DB) *Ledger {
	return &Ledger{db: db}
}

// EnsureSchema creates the ledger table when it does not exist.
func (l *Ledger) EnsureSchema(ctx context.Context) error {
	if _, err := l.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create ledger table: %w", err)
	}
	return nil
}

// Get returns the record of one unit or ErrNotFound.
func (l *Ledger) Get(ctx context.Context, corpus domain.Corpus, unit string) (*Record, error) {
	query := l.db.Rebind(`SELECT ` + recordSelectColumns + ` FROM index_ledger WHERE corpus = ? AND unit = ?`)

	var rec Record
	if err := l.db.GetContext(ctx, &rec, query, string(corpus), unit); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get ledger record: %w", err)
	}
	return &rec, nil
}

// List returns every record of a corpus keyed by unit number.
func (l *Ledger) List(ctx context.Context, corpus domain.Corpus) (map[string]Record, error) {
	query := l.db.Rebind(`SELECT ` + recordSelectColumns + ` FROM index_ledger WHERE corpus = ? ORDER BY unit`)

	var records []Record
	if err := l.db.SelectContext(ctx, &records, query, string(corpus)); err != nil {
		return nil, fmt.Errorf("failed to list ledger records: %w", err)
	}

	byUnit := make(map[string]Record, len(records))
	for _, rec := range records {
		byUnit[rec.Unit] = rec
	}
	return byUnit, nil
}

// Put inserts or replaces the record of a unit.
func (l *Ledger) Put(ctx context.Context, rec Record) error {
	query := l.db.Rebind(`
		INSERT INTO index_ledger (corpus, unit, fingerprint, sections, source_modified, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (corpus, unit) DO UPDATE
		SET fingerprint = excluded.fingerprint, sections = excluded.sections,
			source_modified = excluded.source_modified, indexed_at = excluded.indexed_at
	`)

	var modified any
	if rec.SourceModified != nil {
		modified = rec.SourceModified.UTC()
	}

	_, err := l.db.ExecContext(ctx, query,
		rec.Corpus, rec.Unit, rec.Fingerprint, rec.Sections, modified, rec.IndexedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert ledger record: %w", err)
	}
	return nil
}

// Ping verifies the database connection.
func (l *Ledger) Ping(ctx context.Context) error {
	return l.db.PingContext(ctx)
}

// Close closes the database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Fingerprint is a SHA-256 digest over the citation and clean text of
// every section of the unit, in order.
func Fingerprint(u *domain.Unit) string {
	h := sha256.New()
	for i := range u.Sections {
		h.Write([]byte(u.Sections[i].Citation))
		h.Write([]byte{0})
		h.Write([]byte(u.Sections[i].CleanText))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Reasons a unit is selected for an incremental run.
const (
	ReasonNew        = "new"
	ReasonModified   = "modified"
	ReasonStale      = "stale"
	ReasonIncomplete = "incomplete"
)

// NeedsIndex decides whether a unit is an incremental candidate: it has
// no record, its last run stored it incompletely (empty fingerprint), its
// source changed after it was indexed, or its record is older than cutoff.
// A zero modified time is treated as unknown.
func NeedsIndex(rec *Record, modified, cutoff time.Time) (bool, string) {
	switch {
	case rec == nil:
		return true, ReasonNew
	case rec.Fingerprint == "":
		return true, ReasonIncomplete
	case !modified.IsZero() && modified.After(rec.IndexedAt):
		return true, ReasonModified
	case rec.IndexedAt.Before(cutoff):
		return true, ReasonStale
	default:
		return false, ""
	}
}
