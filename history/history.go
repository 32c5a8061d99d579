// Package history is an append-only run-history ledger: simulation
// lifecycle events (start, stop, STP root changes, route count deltas)
// recorded to a BoltDB file, keyed by a per-run UUID. It deliberately
// does not persist live switch state — the routing table, MAC table,
// and STP state are rebuilt fresh on every start.
package history

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"github.com/krisarmstrong/switchsim/internal/simerr"
)

const component = "history"

const eventBucket = "events"

// EventKind classifies a lifecycle event.
type EventKind string

const (
	EventSimStarted   EventKind = "sim_started"
	EventSimStopped   EventKind = "sim_stopped"
	EventSTPRootChange EventKind = "stp_root_change"
	EventRouteCountDelta EventKind = "route_count_delta"
)

// Event is one ledger entry. Detail is a free-form, kind-specific
// payload (e.g. the new root bridge id, or the route count before/after).
type Event struct {
	RunID     string    `json:"run_id"`
	Kind      EventKind `json:"kind"`
	At        time.Time `json:"at"`
	Detail    string    `json:"detail"`
	Sequence  uint64    `json:"sequence"`
}

// Ledger wraps a BoltDB instance recording lifecycle events across runs.
type Ledger struct {
	db *bbolt.DB
}

// Open opens (or creates) the ledger database at path.
func Open(path string) (*Ledger, error) {
	if path == "" {
		return nil, simerr.New(component, "Open", simerr.InvalidParam, "empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, simerr.Wrap(component, "Open", simerr.ResourceUnavailable, err)
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, simerr.Wrap(component, "Open", simerr.ResourceUnavailable, err)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(eventBucket))
		return err
	}); err != nil {
		_ = db.Close()
		return nil, simerr.Wrap(component, "Open", simerr.ResourceUnavailable, err)
	}
	return &Ledger{db: db}, nil
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

// NewRunID generates a fresh run identifier.
func NewRunID() string { return uuid.NewString() }

// Record appends one event to the ledger under runID.
func (l *Ledger) Record(runID string, kind EventKind, at time.Time, detail string) error {
	if l == nil || l.db == nil {
		return simerr.New(component, "Record", simerr.NotInitialized, "")
	}
	ev := Event{RunID: runID, Kind: kind, At: at, Detail: detail}
	return l.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(eventBucket))
		seq, _ := b.NextSequence()
		ev.Sequence = seq
		data, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		return b.Put(seqKey(seq), data)
	})
}

// ListEvents returns up to limit most recent events across all runs,
// newest first. A limit <= 0 returns the default of 100.
func (l *Ledger) ListEvents(limit int) ([]Event, error) {
	if l == nil || l.db == nil {
		return nil, simerr.New(component, "ListEvents", simerr.NotInitialized, "")
	}
	if limit <= 0 {
		limit = 100
	}
	events := make([]Event, 0, limit)
	err := l.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(eventBucket)).Cursor()
		for k, v := c.Last(); k != nil && len(events) < limit; k, v = c.Prev() {
			var ev Event
			if err := json.Unmarshal(v, &ev); err != nil {
				return err
			}
			events = append(events, ev)
		}
		return nil
	})
	if err != nil {
		return nil, simerr.Wrap(component, "ListEvents", simerr.UnknownError, err)
	}
	return events, nil
}

// EventsForRun returns every recorded event for runID, oldest first.
func (l *Ledger) EventsForRun(runID string) ([]Event, error) {
	if l == nil || l.db == nil {
		return nil, simerr.New(component, "EventsForRun", simerr.NotInitialized, "")
	}
	if runID == "" {
		return nil, errors.New("runID required")
	}
	var events []Event
	err := l.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(eventBucket)).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var ev Event
			if err := json.Unmarshal(v, &ev); err != nil {
				return err
			}
			if ev.RunID == runID {
				events = append(events, ev)
			}
		}
		return nil
	})
	if err != nil {
		return nil, simerr.Wrap(component, "EventsForRun", simerr.UnknownError, err)
	}
	return events, nil
}

func seqKey(seq uint64) []byte {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[7-i] = byte(seq >> (8 * i))
	}
	return b
}
