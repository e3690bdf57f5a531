package baseline

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/signalsfoundry/framecheck/model"
)

// Dialect selects the SQL driver and placeholder style.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

func (d Dialect) driver() string {
	if d == DialectPostgres {
		return "pgx"
	}
	return "sqlite"
}

// SQLStore keeps baselines in the framecheck_baselines table.
type SQLStore struct {
	DB      *sql.DB
	dialect Dialect
	now     func() time.Time
}

// OpenSQL opens a database, verifies the connection and creates the schema.
func OpenSQL(ctx context.Context, dialect Dialect, dsn string) (*SQLStore, error) {
	if dialect != DialectPostgres && dialect != DialectSQLite {
		return nil, fmt.Errorf("baseline: unknown SQL dialect %q", dialect)
	}
	db, err := sql.Open(dialect.driver(), dsn)
	if err != nil {
		return nil, fmt.Errorf("baseline: open %s database: %w", dialect, err)
	}
	if dialect == DialectSQLite {
		// A single connection keeps :memory: databases shared and serialises writers.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("baseline: verify %s connection: %w", dialect, err)
	}

	s := NewSQLStore(db, dialect)
	if err := s.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLStore wraps an open database.
func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{DB: db, dialect: dialect, now: time.Now}
}

// EnsureSchema creates the baseline table if it does not exist.
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	if s.DB == nil {
		return errors.New("baseline: db is nil")
	}
	q := `
	CREATE TABLE IF NOT EXISTS framecheck_baselines (
		baseline_key TEXT PRIMARY KEY,
		norad_id INTEGER NOT NULL,
		epoch TEXT NOT NULL,
		site TEXT NOT NULL,
		report TEXT NOT NULL,
		saved_at TEXT NOT NULL
	);
	`
	if _, err := s.DB.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("baseline: create framecheck_baselines table: %w", err)
	}
	return nil
}

// Load returns the entry for key.
func (s *SQLStore) Load(ctx context.Context, key Key) (Entry, error) {
	if s.DB == nil {
		return Entry{}, errors.New("baseline: db is nil")
	}
	q := s.rebind(`SELECT report, saved_at FROM framecheck_baselines WHERE baseline_key = ?`)

	var body, savedAt string
	err := s.DB.QueryRowContext(ctx, q, key.String()).Scan(&body, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return Entry{}, fmt.Errorf("baseline: query framecheck_baselines: %w", err)
	}

	var r model.Report
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		return Entry{}, fmt.Errorf("baseline: decode report %s: %w", key, err)
	}
	ts, err := time.Parse(time.RFC3339Nano, savedAt)
	if err != nil {
		return Entry{}, fmt.Errorf("baseline: decode saved_at %q: %w", savedAt, err)
	}
	return Entry{Report: &r, SavedAt: ts}, nil
}

// Save upserts r under key.
func (s *SQLStore) Save(ctx context.Context, key Key, r *model.Report) error {
	if s.DB == nil {
		return errors.New("baseline: db is nil")
	}
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("baseline: encode report %s: %w", key, err)
	}
	q := s.rebind(`
	INSERT INTO framecheck_baselines (baseline_key, norad_id, epoch, site, report, saved_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT (baseline_key) DO UPDATE
	SET report = excluded.report, saved_at = excluded.saved_at;
	`)
	_, err = s.DB.ExecContext(ctx, q,
		key.String(),
		key.NoradID,
		key.Epoch.UTC().Format(time.RFC3339),
		key.Site,
		string(body),
		s.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("baseline: upsert framecheck_baselines: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLStore) Close() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// rebind rewrites ? placeholders as $1, $2, ... for PostgreSQL.
func (s *SQLStore) rebind(q string) string {
	if s.dialect != DialectPostgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
