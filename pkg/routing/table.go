package routing

import (
	"sync"
	"time"

	"github.com/krisarmstrong/switchsim/internal/simerr"
	"github.com/krisarmstrong/switchsim/pkg/swtypes"
)

// HardwareSyncFunc mirrors an active-route mutation into the
// (simulated) forwarding hardware. It is called after the table's own
// state is already consistent.
type HardwareSyncFunc func(key swtypes.PrefixKey, active *Entry)

// Table is the RIB/FIB of spec §4.7: every candidate route is kept per
// key (the RIB half), while the single best candidate per key — by
// administrative distance then metric — is exposed through exact-match
// and longest-prefix-match lookups (the FIB half). Keeping every
// candidate, not just the winner, is what lets a withdrawn route
// reveal the next-best one underneath it (spec §8 scenario 6).
type Table struct {
	mu         sync.RWMutex
	candidates map[swtypes.PrefixKey][]*Entry
	maxEntries int
	count      int

	HardwareSync HardwareSyncFunc
}

// NewTable creates a routing table bounded by maxEntries total
// candidate routes across all keys.
func NewTable(maxEntries int) *Table {
	return &Table{
		candidates: make(map[swtypes.PrefixKey][]*Entry),
		maxEntries: maxEntries,
	}
}

func validatePrefix(p swtypes.Prefix) error {
	if p.Len < 0 || p.Len > p.Addr.Family.MaxPrefixLen() {
		return simerr.New(component, "Add", simerr.InvalidParam, "prefix length out of range for address family")
	}
	return nil
}

// Add installs or refreshes a candidate route. A second Add from the
// same (key, source) updates that candidate's next-hop/metric/port in
// place (the steady-state behavior of a protocol adapter re-announcing
// a route); a new source competes for the active slot by
// administrative distance, then metric, per spec §4.7.
func (t *Table) Add(e Entry, now time.Time) error {
	if err := validatePrefix(e.Prefix); err != nil {
		return err
	}
	e.Prefix = e.Prefix.Normalized()
	e.LastUpdate = now
	key := e.Prefix.Key()

	t.mu.Lock()
	defer t.mu.Unlock()

	bucket := t.candidates[key]
	for i, c := range bucket {
		if c.Source == e.Source {
			entry := e
			bucket[i] = &entry
			t.recomputeActiveLocked(key, bucket)
			return nil
		}
	}
	if t.count >= t.maxEntries {
		return simerr.New(component, "Add", simerr.ResourceExhausted, "routing table full")
	}
	entry := e
	bucket = append(bucket, &entry)
	t.candidates[key] = bucket
	t.count++
	t.recomputeActiveLocked(key, bucket)
	return nil
}

// recomputeActiveLocked marks exactly one candidate in bucket Active —
// the one `better` prefers — and fires the hardware-sync hook with the
// new winner (nil if the key now has no candidates).
func (t *Table) recomputeActiveLocked(key swtypes.PrefixKey, bucket []*Entry) {
	if len(bucket) == 0 {
		delete(t.candidates, key)
		if t.HardwareSync != nil {
			t.HardwareSync(key, nil)
		}
		return
	}
	winner := bucket[0]
	for _, c := range bucket[1:] {
		if better(c, winner) {
			winner = c
		}
	}
	for _, c := range bucket {
		c.Active = c == winner
	}
	if t.HardwareSync != nil {
		t.HardwareSync(key, winner)
	}
}

// Remove discards the candidate route matching prefix and source. If
// it was the active route, the next-best remaining candidate (if any)
// becomes active.
func (t *Table) Remove(prefix swtypes.Prefix, source Source) error {
	prefix = prefix.Normalized()
	key := prefix.Key()

	t.mu.Lock()
	defer t.mu.Unlock()
	bucket, ok := t.candidates[key]
	if !ok {
		return simerr.New(component, "Remove", simerr.NotFound, "no route at this key")
	}
	idx := -1
	for i, c := range bucket {
		if c.Source == source {
			idx = i
			break
		}
	}
	if idx < 0 {
		return simerr.New(component, "Remove", simerr.NotFound, "no candidate from that source at this key")
	}
	bucket = append(bucket[:idx], bucket[idx+1:]...)
	t.count--
	t.candidates[key] = bucket
	t.recomputeActiveLocked(key, bucket)
	return nil
}

// RemoveWhere discards every candidate route matching pred, used by
// protocol adapters driving their own neighbor timers (spec §4.8): a
// neighbor timeout removes every route of that protocol's source whose
// next-hop was through the lost neighbor. Returns the number removed.
func (t *Table) RemoveWhere(pred func(*Entry) bool) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	removed := 0
	for key, bucket := range t.candidates {
		kept := bucket[:0]
		for _, c := range bucket {
			if pred(c) {
				removed++
				t.count--
				continue
			}
			kept = append(kept, c)
		}
		t.candidates[key] = kept
		t.recomputeActiveLocked(key, kept)
	}
	return removed
}

// Lookup performs longest-prefix-match for addr: it walks prefix
// lengths from longest to shortest and returns the active route at the
// first length with a matching key. At most one active entry exists
// per key, so no length collision can occur.
func (t *Table) Lookup(addr swtypes.IP) (Entry, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for length := addr.Family.MaxPrefixLen(); length >= 0; length-- {
		key := swtypes.Prefix{Addr: addr, Len: length}.Normalized().Key()
		bucket, ok := t.candidates[key]
		if !ok {
			continue
		}
		for _, c := range bucket {
			if c.Active {
				return *c, nil
			}
		}
	}
	return Entry{}, simerr.New(component, "Lookup", simerr.NotFound, "no route matches")
}

// ExactMatch returns the active route at exactly (prefix, length), if
// any — the non-LPM half of the table's contract.
func (t *Table) ExactMatch(prefix swtypes.Prefix) (Entry, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	key := prefix.Normalized().Key()
	for _, c := range t.candidates[key] {
		if c.Active {
			return *c, nil
		}
	}
	return Entry{}, simerr.New(component, "ExactMatch", simerr.NotFound, "no active route at this key")
}

// Flush removes every route.
func (t *Table) Flush() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.candidates = make(map[swtypes.PrefixKey][]*Entry)
	t.count = 0
}

// Size returns the total number of candidate routes currently held,
// active or not.
func (t *Table) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.count
}
