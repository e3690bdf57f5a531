package kb

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/signalsfoundry/framecheck/core"
	"github.com/signalsfoundry/framecheck/model"
)

var (
	// ErrDuplicate is returned when a NORAD ID is already in the catalog.
	ErrDuplicate = errors.New("duplicate catalog entry")
	// ErrNotFound is returned when a lookup matches nothing.
	ErrNotFound = errors.New("satellite not found")
)

// EventType indicates what kind of change happened in the catalog.
type EventType int

const (
	EventRecordAdded EventType = iota
)

// Event is emitted to subscribers when something interesting happens.
type Event struct {
	Type   EventType
	Record model.SatelliteRecord
}

// Catalog is an in-memory, thread-safe store of element sets keyed by NORAD ID.
type Catalog struct {
	mu sync.RWMutex

	byID   map[int]model.SatelliteRecord
	byName map[string]int // lower-cased name -> NORAD ID

	subs map[int]func(Event)
	next int
}

// NewCatalog constructs an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		byID:   make(map[int]model.SatelliteRecord),
		byName: make(map[string]int),
		subs:   make(map[int]func(Event)),
	}
}

// Add stores a parsed record. It returns ErrDuplicate if the NORAD ID exists.
func (c *Catalog) Add(rec model.SatelliteRecord) error {
	c.mu.Lock()
	if _, exists := c.byID[rec.NoradID]; exists {
		c.mu.Unlock()
		return fmt.Errorf("%w: NORAD %d", ErrDuplicate, rec.NoradID)
	}
	c.byID[rec.NoradID] = rec
	key := strings.ToLower(rec.Name)
	if _, taken := c.byName[key]; !taken {
		c.byName[key] = rec.NoradID
	}
	subs := make([]func(Event), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	// Notify subscribers outside the lock to avoid deadlocks.
	ev := Event{Type: EventRecordAdded, Record: rec}
	for _, fn := range subs {
		fn(ev)
	}
	return nil
}

// Load reads 3LE (name line followed by two element lines) or bare 2LE text.
// Blank lines and lines starting with '#' are skipped. Records without a name
// line are named after their NORAD ID. It returns the number of records added;
// on error, records read before the failure stay in the catalog.
func (c *Catalog) Load(r io.Reader) (int, error) {
	sc := bufio.NewScanner(r)
	var (
		name    string
		pending []string
		lineNo  int
		added   int
	)
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), " \t\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		switch {
		case len(pending) == 0 && strings.HasPrefix(line, "1 "):
			pending = append(pending, line)
		case len(pending) == 1 && strings.HasPrefix(line, "2 "):
			n := name
			if n == "" {
				n = NameFor(pending[0])
			}
			rec, err := core.ParseTLE(n, pending[0], line)
			if err != nil {
				return added, fmt.Errorf("line %d: %w", lineNo, err)
			}
			if err := c.Add(rec); err != nil {
				return added, fmt.Errorf("line %d: %w", lineNo, err)
			}
			added++
			name, pending = "", nil
		case len(pending) == 0:
			// 3LE names are conventionally prefixed with "0 ".
			name = strings.TrimSpace(strings.TrimPrefix(trimmed, "0 "))
		default:
			return added, fmt.Errorf("line %d: %w: expected line 2 after line 1", lineNo, core.ErrInvalidTLE)
		}
	}
	if err := sc.Err(); err != nil {
		return added, err
	}
	if len(pending) != 0 {
		return added, fmt.Errorf("%w: truncated element set at end of input", core.ErrInvalidTLE)
	}
	return added, nil
}

// Get returns the record with the given NORAD ID.
func (c *Catalog) Get(id int) (model.SatelliteRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.byID[id]
	if !ok {
		return model.SatelliteRecord{}, fmt.Errorf("%w: NORAD %d", ErrNotFound, id)
	}
	return rec, nil
}

// Lookup resolves a NORAD number or a case-insensitive name. An empty query
// matches the only record of a single-entry catalog.
func (c *Catalog) Lookup(query string) (model.SatelliteRecord, error) {
	query = strings.TrimSpace(query)
	if id, err := strconv.Atoi(query); err == nil {
		return c.Get(id)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if query == "" {
		if len(c.byID) == 1 {
			for _, rec := range c.byID {
				return rec, nil
			}
		}
		return model.SatelliteRecord{}, fmt.Errorf("%w: empty query against %d records", ErrNotFound, len(c.byID))
	}
	id, ok := c.byName[strings.ToLower(query)]
	if !ok {
		return model.SatelliteRecord{}, fmt.Errorf("%w: %q", ErrNotFound, query)
	}
	return c.byID[id], nil
}

// List returns a snapshot of all records ordered by NORAD ID.
func (c *Catalog) List() []model.SatelliteRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()

	res := make([]model.SatelliteRecord, 0, len(c.byID))
	for _, rec := range c.byID {
		res = append(res, rec)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].NoradID < res[j].NoradID })
	return res
}

// Len returns the number of records.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byID)
}

// Subscribe registers a callback for catalog events. It returns an unsubscribe function.
func (c *Catalog) Subscribe(fn func(Event)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.next
	c.next++
	c.subs[id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

// NameFor returns the label given to an element set without a name line.
func NameFor(line1 string) string {
	if len(line1) < 7 {
		return "UNNAMED"
	}
	return "NORAD " + strings.TrimSpace(line1[2:7])
}
