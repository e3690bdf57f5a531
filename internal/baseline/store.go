// Package baseline persists diagnostic reports so later runs can be compared
// against them.
package baseline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/signalsfoundry/framecheck/core"
	"github.com/signalsfoundry/framecheck/model"
)

// ErrNotFound is returned by Load when no baseline exists for a key.
var ErrNotFound = errors.New("baseline not found")

// Key identifies a baseline: one satellite seen from one site at one epoch.
type Key struct {
	NoradID int
	Epoch   time.Time
	Site    string
}

// KeyFor derives the baseline key of a report.
func KeyFor(r *model.Report) Key {
	return Key{NoradID: r.Satellite.NoradID, Epoch: r.Epoch, Site: r.Observer.Name}
}

// String renders the key as NORAD/epoch/site, e.g. "39348/2024-08-26T22:34:20Z/K88".
func (k Key) String() string {
	return fmt.Sprintf("%d/%s/%s", k.NoradID, k.Epoch.UTC().Format(time.RFC3339), k.Site)
}

// Entry is a stored report and the time it was saved.
type Entry struct {
	Report  *model.Report `json:"report"`
	SavedAt time.Time     `json:"saved_at"`
}

// Store loads and saves baselines.
type Store interface {
	Load(ctx context.Context, key Key) (Entry, error)
	Save(ctx context.Context, key Key, r *model.Report) error
	Close() error
}

// Open picks a store from a DSN: postgres:// and postgresql:// URLs use
// PostgreSQL through pgx, sqlite:// URLs and .db/.sqlite paths use SQLite,
// anything else is a JSON file.
func Open(ctx context.Context, dsn string) (Store, error) {
	dsn = strings.TrimSpace(dsn)
	switch {
	case dsn == "":
		return nil, errors.New("baseline: empty DSN")
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return OpenSQL(ctx, DialectPostgres, dsn)
	case strings.HasPrefix(dsn, "sqlite://"):
		return OpenSQL(ctx, DialectSQLite, strings.TrimPrefix(dsn, "sqlite://"))
	}
	switch strings.ToLower(filepath.Ext(dsn)) {
	case ".db", ".sqlite", ".sqlite3":
		return OpenSQL(ctx, DialectSQLite, dsn)
	}
	return NewFileStore(dsn), nil
}

// Compare fills report's baseline fields from a stored entry and returns
// the largest position difference in km.
func Compare(report *model.Report, prior Entry) float64 {
	if report == nil || prior.Report == nil {
		return 0
	}
	saved := prior.SavedAt
	report.BaselineSavedAt = &saved
	return core.CompareBaseline(report, prior.Report)
}

// Apply loads the baseline for report, compares against it and, when save
// is set, stores report as the new baseline. A missing baseline is not an
// error; found reports whether one existed.
func Apply(ctx context.Context, s Store, report *model.Report, save bool) (found bool, err error) {
	key := KeyFor(report)
	prior, err := s.Load(ctx, key)
	switch {
	case err == nil:
		Compare(report, prior)
		found = true
	case errors.Is(err, ErrNotFound):
	default:
		return false, err
	}
	if save {
		// Persist the fresh values, not the comparison against the old ones.
		clean := *report
		clean.BaselineSavedAt = nil
		clean.BaselineDeltas = nil
		if err := s.Save(ctx, key, &clean); err != nil {
			return found, err
		}
	}
	return found, nil
}
