// Package snmp exposes a read-only IF-MIB-style SNMP agent over the
// port substrate's counters and admin/oper state, plus switchsim's own
// carrier-loss-probability extension under a private enterprise branch.
package snmp

import (
	"sort"
	"strings"
	"sync"

	"github.com/gosnmp/gosnmp"
)

const component = "snmp"

// OIDValue is one MIB entry. Dynamic, when set, is called on every Get
// so counters and oper state stay live without a refresh loop.
type OIDValue struct {
	Type    gosnmp.Asn1BER
	Value   interface{}
	Dynamic func() *OIDValue
}

// MIB is a concurrency-safe OID store supporting GetNext for walks.
type MIB struct {
	mu      sync.RWMutex
	entries map[string]*OIDValue
	sorted  []string
	dirty   bool
}

// NewMIB constructs an empty MIB.
func NewMIB() *MIB {
	return &MIB{entries: make(map[string]*OIDValue)}
}

// Set installs a static OID value.
func (m *MIB) Set(oid string, v *OIDValue) {
	m.mu.Lock()
	defer m.mu.Unlock()
	oid = strings.TrimPrefix(oid, ".")
	m.entries[oid] = v
	m.dirty = true
}

// SetDynamic installs an OID whose value is computed on every access.
func (m *MIB) SetDynamic(oid string, fn func() *OIDValue) {
	m.mu.Lock()
	defer m.mu.Unlock()
	oid = strings.TrimPrefix(oid, ".")
	m.entries[oid] = &OIDValue{Dynamic: fn}
	m.dirty = true
}

// Get resolves oid to its current value, or nil if unset.
func (m *MIB) Get(oid string) *OIDValue {
	m.mu.RLock()
	v, ok := m.entries[strings.TrimPrefix(oid, ".")]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	if v.Dynamic != nil {
		return v.Dynamic()
	}
	return v
}

func (m *MIB) updateSortedLocked() {
	if !m.dirty {
		return
	}
	sorted := make([]string, 0, len(m.entries))
	for oid := range m.entries {
		sorted = append(sorted, oid)
	}
	sort.Strings(sorted)
	m.sorted = sorted
	m.dirty = false
}

// GetNext returns the lexicographically next OID (and its value) after
// oid, for SNMP walk semantics. Returns ("", nil) past the end.
func (m *MIB) GetNext(oid string) (string, *OIDValue) {
	oid = strings.TrimPrefix(oid, ".")
	m.mu.Lock()
	m.updateSortedLocked()
	sorted := m.sorted
	m.mu.Unlock()

	idx := sort.SearchStrings(sorted, oid)
	if idx < len(sorted) && sorted[idx] == oid {
		idx++
	}
	if idx >= len(sorted) {
		return "", nil
	}
	next := sorted[idx]
	return next, m.Get(next)
}
