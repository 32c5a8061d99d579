package rip

import (
	"testing"
	"time"

	"github.com/krisarmstrong/switchsim/pkg/routing"
	"github.com/krisarmstrong/switchsim/pkg/swtypes"
)

func addr(a, b, c, d byte) swtypes.IP { return swtypes.NewIPv4(swtypes.IPv4{a, b, c, d}) }

func TestReceiveUpdateIncrementsMetric(t *testing.T) {
	tbl := routing.NewTable(16)
	ra := NewAdapter(tbl)
	now := time.Unix(0, 0)
	ra.Now = func() time.Time { return now }

	neighbor := addr(10, 0, 0, 1)
	prefix := swtypes.Prefix{Addr: addr(192, 168, 1, 0), Len: 24}
	if err := ra.ReceiveUpdate(neighbor, prefix, 3, 0); err != nil {
		t.Fatalf("ReceiveUpdate: %v", err)
	}
	got, err := tbl.Lookup(addr(192, 168, 1, 5))
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got.Metric != 4 {
		t.Fatalf("expected metric incremented to 4, got %d", got.Metric)
	}
}

func TestReceiveUpdateAtInfinityWithdraws(t *testing.T) {
	tbl := routing.NewTable(16)
	ra := NewAdapter(tbl)
	now := time.Unix(0, 0)
	ra.Now = func() time.Time { return now }

	neighbor := addr(10, 0, 0, 1)
	prefix := swtypes.Prefix{Addr: addr(192, 168, 1, 0), Len: 24}
	_ = ra.ReceiveUpdate(neighbor, prefix, 3, 0)
	if err := ra.ReceiveUpdate(neighbor, prefix, Infinity-1, 0); err != nil {
		t.Fatalf("ReceiveUpdate at infinity: %v", err)
	}
	if _, err := tbl.Lookup(addr(192, 168, 1, 5)); err == nil {
		t.Fatalf("expected route withdrawn once metric reaches infinity")
	}
}

func TestNeighborTimeoutWithdrawsRoutes(t *testing.T) {
	tbl := routing.NewTable(16)
	ra := NewAdapter(tbl)
	ra.Timeout = time.Minute
	now := time.Unix(0, 0)
	ra.Now = func() time.Time { return now }

	neighbor := addr(10, 0, 0, 1)
	prefix := swtypes.Prefix{Addr: addr(192, 168, 1, 0), Len: 24}
	_ = ra.ReceiveUpdate(neighbor, prefix, 3, 0)
	if ra.NeighborCount() != 1 {
		t.Fatalf("expected one tracked neighbor")
	}

	ra.Tick(now.Add(2 * time.Minute))
	if ra.NeighborCount() != 0 {
		t.Fatalf("expected neighbor to be reaped after timeout")
	}
	if _, err := tbl.Lookup(addr(192, 168, 1, 5)); err == nil {
		t.Fatalf("expected routes through the timed-out neighbor to be withdrawn")
	}
}
