package routing

import (
	"testing"
	"time"

	"github.com/krisarmstrong/switchsim/internal/simerr"
	"github.com/krisarmstrong/switchsim/pkg/swtypes"
)

func v4(a, b, c, d byte) swtypes.IP {
	return swtypes.NewIPv4(swtypes.IPv4{a, b, c, d})
}

func prefix(a, b, c, d byte, length int) swtypes.Prefix {
	return swtypes.Prefix{Addr: v4(a, b, c, d), Len: length}
}

func TestLPMTieBreakByLength(t *testing.T) {
	tbl := NewTable(16)
	now := time.Now()
	mustAdd := func(p swtypes.Prefix, port swtypes.PortID) {
		t.Helper()
		if err := tbl.Add(Entry{Prefix: p, EgressPort: port, Source: Static, Distance: AdministrativeDistance(Static), Metric: 1}, now); err != nil {
			t.Fatalf("Add(%s): %v", p, err)
		}
	}
	const portA, portB, portC = swtypes.PortID(1), swtypes.PortID(2), swtypes.PortID(3)
	mustAdd(prefix(192, 168, 0, 0, 16), portA)
	mustAdd(prefix(192, 168, 1, 0, 24), portB)
	mustAdd(prefix(192, 168, 1, 128, 25), portC)

	cases := []struct {
		addr swtypes.IP
		want swtypes.PortID
	}{
		{v4(192, 168, 1, 130), portC},
		{v4(192, 168, 1, 10), portB},
		{v4(192, 168, 2, 1), portA},
	}
	for _, c := range cases {
		got, err := tbl.Lookup(c.addr)
		if err != nil {
			t.Fatalf("Lookup(%s): %v", c.addr, err)
		}
		if got.EgressPort != c.want {
			t.Fatalf("Lookup(%s) = port %v, want %v", c.addr, got.EgressPort, c.want)
		}
	}

	if _, err := tbl.Lookup(v4(10, 0, 0, 1)); simerr.Of(err) != simerr.NotFound {
		t.Fatalf("expected NotFound for an address with no covering route, got %v", err)
	}
}

func TestAdministrativeDistanceArbitration(t *testing.T) {
	tbl := NewTable(16)
	now := time.Now()
	p := prefix(10, 0, 0, 0, 8)

	if err := tbl.Add(Entry{Prefix: p, Source: RIP, Distance: AdministrativeDistance(RIP), Metric: 3}, now); err != nil {
		t.Fatalf("Add RIP: %v", err)
	}
	if err := tbl.Add(Entry{Prefix: p, Source: Static, Distance: AdministrativeDistance(Static), Metric: 1}, now); err != nil {
		t.Fatalf("Add STATIC: %v", err)
	}

	got, err := tbl.Lookup(v4(10, 1, 2, 3))
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got.Source != Static {
		t.Fatalf("expected STATIC to win on lower admin distance, got %v", got.Source)
	}

	if err := tbl.Remove(p, Static); err != nil {
		t.Fatalf("Remove STATIC: %v", err)
	}
	got, err = tbl.Lookup(v4(10, 1, 2, 3))
	if err != nil {
		t.Fatalf("Lookup after withdrawal: %v", err)
	}
	if got.Source != RIP {
		t.Fatalf("expected RIP route to resurface after STATIC withdrawal, got %v", got.Source)
	}
}

func TestAddRefreshesSameSourceInPlace(t *testing.T) {
	tbl := NewTable(1)
	now := time.Now()
	p := prefix(172, 16, 0, 0, 16)
	if err := tbl.Add(Entry{Prefix: p, Source: RIP, Distance: 120, Metric: 5}, now); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := tbl.Add(Entry{Prefix: p, Source: RIP, Distance: 120, Metric: 2}, now.Add(time.Second)); err != nil {
		t.Fatalf("refresh Add: %v", err)
	}
	if tbl.Size() != 1 {
		t.Fatalf("expected refresh to update in place, Size() = %d", tbl.Size())
	}
	got, _ := tbl.Lookup(v4(172, 16, 5, 5))
	if got.Metric != 2 {
		t.Fatalf("expected refreshed metric 2, got %d", got.Metric)
	}
}

func TestTableFullRejectsNewCandidate(t *testing.T) {
	tbl := NewTable(1)
	now := time.Now()
	if err := tbl.Add(Entry{Prefix: prefix(1, 0, 0, 0, 8), Source: Static, Distance: 1}, now); err != nil {
		t.Fatalf("first Add: %v", err)
	}
	err := tbl.Add(Entry{Prefix: prefix(2, 0, 0, 0, 8), Source: Static, Distance: 1}, now)
	if simerr.Of(err) != simerr.ResourceExhausted {
		t.Fatalf("expected ResourceExhausted, got %v", err)
	}
}

func TestRemoveWhereDrivesNeighborTimeout(t *testing.T) {
	tbl := NewTable(16)
	now := time.Now()
	neighbor := v4(192, 168, 1, 1)
	other := v4(192, 168, 1, 2)
	_ = tbl.Add(Entry{Prefix: prefix(10, 0, 1, 0, 24), Source: RIP, NextHop: neighbor, Distance: 120}, now)
	_ = tbl.Add(Entry{Prefix: prefix(10, 0, 2, 0, 24), Source: RIP, NextHop: other, Distance: 120}, now)

	removed := tbl.RemoveWhere(func(e *Entry) bool {
		return e.Source == RIP && e.NextHop.Equal(neighbor)
	})
	if removed != 1 {
		t.Fatalf("RemoveWhere removed %d, want 1", removed)
	}
	if tbl.Size() != 1 {
		t.Fatalf("expected one surviving route, Size() = %d", tbl.Size())
	}
}
