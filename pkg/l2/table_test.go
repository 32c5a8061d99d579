package l2

import (
	"testing"
	"time"

	"github.com/krisarmstrong/switchsim/internal/simerr"
	"github.com/krisarmstrong/switchsim/pkg/swtypes"
)

func TestLearnAndLookup(t *testing.T) {
	tbl := NewTable(4)
	now := time.Now()
	if err := tbl.Learn(1, swtypes.MACFromPort(1), 0, now); err != nil {
		t.Fatalf("Learn: %v", err)
	}
	port, ok := tbl.Lookup(1, swtypes.MACFromPort(1))
	if !ok || port != 0 {
		t.Fatalf("Lookup = (%v,%v), want (0,true)", port, ok)
	}
	if _, ok := tbl.Lookup(2, swtypes.MACFromPort(1)); ok {
		t.Fatalf("expected VLAN scoping to isolate lookups")
	}
}

func TestLearnRefreshDoesNotCountTwice(t *testing.T) {
	tbl := NewTable(1)
	now := time.Now()
	mac := swtypes.MACFromPort(1)
	if err := tbl.Learn(1, mac, 0, now); err != nil {
		t.Fatalf("first Learn: %v", err)
	}
	if err := tbl.Learn(1, mac, 2, now.Add(time.Second)); err != nil {
		t.Fatalf("refresh Learn: %v", err)
	}
	port, _ := tbl.Lookup(1, mac)
	if port != 2 {
		t.Fatalf("expected refreshed binding to move to port 2, got %v", port)
	}
}

func TestLearnResourceExhausted(t *testing.T) {
	tbl := NewTable(1)
	now := time.Now()
	_ = tbl.Learn(1, swtypes.MACFromPort(1), 0, now)
	err := tbl.Learn(1, swtypes.MACFromPort(2), 0, now)
	if simerr.Of(err) != simerr.ResourceExhausted {
		t.Fatalf("expected ResourceExhausted, got %v", err)
	}
}

func TestAgeRemovesStaleBindings(t *testing.T) {
	tbl := NewTable(4)
	tbl.SetAgingTime(time.Minute)
	base := time.Now()
	_ = tbl.Learn(1, swtypes.MACFromPort(1), 0, base)
	removed := tbl.Age(base.Add(2 * time.Minute))
	if removed != 1 {
		t.Fatalf("Age() removed = %d, want 1", removed)
	}
	if _, ok := tbl.Lookup(1, swtypes.MACFromPort(1)); ok {
		t.Fatalf("expected aged-out binding to be gone")
	}
}

func TestFlushPort(t *testing.T) {
	tbl := NewTable(4)
	now := time.Now()
	_ = tbl.Learn(1, swtypes.MACFromPort(1), 0, now)
	_ = tbl.Learn(1, swtypes.MACFromPort(2), 1, now)
	tbl.FlushPort(0)
	if _, ok := tbl.Lookup(1, swtypes.MACFromPort(1)); ok {
		t.Fatalf("expected port-0 binding removed")
	}
	if _, ok := tbl.Lookup(1, swtypes.MACFromPort(2)); !ok {
		t.Fatalf("expected port-1 binding retained")
	}
}
