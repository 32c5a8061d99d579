// Package l2 implements source-MAC learning and destination-lookup
// forwarding (spec §4.5, C6): the MAC address table with aging, and a
// Forwarder that plugs into the processor chain (C5) as a
// pipeline.ProcessorFunc, consulting an installed forwarding gate
// (normally STP's can_forward, spec §4.6) before flooding or unicasting.
package l2

import (
	"sync"
	"time"

	"github.com/krisarmstrong/switchsim/internal/simerr"
	"github.com/krisarmstrong/switchsim/pkg/swtypes"
)

const component = "l2"

// DefaultAgingTime is how long a learned binding survives without being
// refreshed by further traffic, matching the common 300s default on
// real bridges.
const DefaultAgingTime = 300 * time.Second

type key struct {
	vlan int
	mac  swtypes.MAC
}

type binding struct {
	port     swtypes.PortID
	lastSeen time.Time
}

// Table is the concurrency-safe MAC address table, bounded by
// MaxEntries. VLANs scope the table: the same MAC may be bound on
// different ports in different VLANs.
type Table struct {
	mu         sync.RWMutex
	entries    map[key]*binding
	maxEntries int
	agingTime  time.Duration
}

// NewTable constructs a table bounded to maxEntries bindings.
func NewTable(maxEntries int) *Table {
	return &Table{
		entries:    make(map[key]*binding),
		maxEntries: maxEntries,
		agingTime:  DefaultAgingTime,
	}
}

// SetAgingTime overrides the default aging duration.
func (t *Table) SetAgingTime(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.agingTime = d
}

// Learn records (or refreshes) a source-MAC-to-port binding. Refreshing
// an existing binding never fails; adding a new one beyond MaxEntries
// fails with ResourceExhausted.
func (t *Table) Learn(vlan int, mac swtypes.MAC, port swtypes.PortID, now time.Time) error {
	k := key{vlan: vlan, mac: mac}
	t.mu.Lock()
	defer t.mu.Unlock()
	if b, ok := t.entries[k]; ok {
		b.port = port
		b.lastSeen = now
		return nil
	}
	if len(t.entries) >= t.maxEntries {
		return simerr.New(component, "Learn", simerr.ResourceExhausted, "MAC table full")
	}
	t.entries[k] = &binding{port: port, lastSeen: now}
	return nil
}

// Lookup returns the learned egress port for (vlan, mac), if any.
func (t *Table) Lookup(vlan int, mac swtypes.MAC) (swtypes.PortID, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	b, ok := t.entries[key{vlan: vlan, mac: mac}]
	if !ok {
		return swtypes.InvalidPort, false
	}
	return b.port, true
}

// Age removes bindings not refreshed within the table's aging time as
// of now, returning the number removed. The daemon's HAL tick handler
// drives this periodically.
func (t *Table) Age(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	removed := 0
	for k, b := range t.entries {
		if now.Sub(b.lastSeen) > t.agingTime {
			delete(t.entries, k)
			removed++
		}
	}
	return removed
}

// Flush removes every binding, e.g. when a port's STP state is reset.
func (t *Table) Flush() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = make(map[key]*binding)
}

// FlushPort removes every binding learned on port. Nothing in the
// simulator calls it automatically; STP state changes do not flush.
func (t *Table) FlushPort(port swtypes.PortID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for k, b := range t.entries {
		if b.port == port {
			delete(t.entries, k)
		}
	}
}

// Size returns the current number of bindings.
func (t *Table) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Entry is a single learned binding, returned by Entries for
// enumeration by callers outside the package (e.g. the management API).
type Entry struct {
	VLAN int
	MAC  swtypes.MAC
	Port swtypes.PortID
}

// Entries returns a snapshot of every learned binding.
func (t *Table) Entries() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Entry, 0, len(t.entries))
	for k, b := range t.entries {
		out = append(out, Entry{VLAN: k.vlan, MAC: k.mac, Port: b.port})
	}
	return out
}
