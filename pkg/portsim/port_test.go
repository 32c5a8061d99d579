package portsim

import (
	"sync"
	"testing"

	"github.com/krisarmstrong/switchsim/internal/simerr"
	"github.com/krisarmstrong/switchsim/pkg/swtypes"
)

func TestAdminDownBlocksTransmit(t *testing.T) {
	s, _ := NewSubstrate(1, 8)
	if err := s.SetAdminState(0, false); err != nil {
		t.Fatalf("SetAdminState: %v", err)
	}
	info, _ := s.GetInfo(0)
	if info.OperState != OperDown {
		t.Fatalf("expected OperDown, got %v", info.OperState)
	}
	p, _ := s.Port(0)
	res := p.TryTransmit(swtypes.BroadcastMAC, 100)
	if res.Sent || simerr.Of(res.Err) != simerr.ResourceUnavailable {
		t.Fatalf("expected blocked transmit, got %+v", res)
	}
	statsBefore, _ := s.GetStats(0)
	if statsBefore.TxPackets != 0 {
		t.Fatalf("tx counters must not increment on drop")
	}

	if err := s.SetAdminState(0, true); err != nil {
		t.Fatalf("SetAdminState up: %v", err)
	}
	info, _ = s.GetInfo(0)
	if info.OperState != OperUp {
		t.Fatalf("expected OperUp after admin-up with carrier present, got %v", info.OperState)
	}
	res = p.TryTransmit(swtypes.MACFromPort(1), 200)
	if !res.Sent {
		t.Fatalf("expected successful transmit: %v", res.Err)
	}
	stats, _ := s.GetStats(0)
	if stats.TxPackets != 1 || stats.TxBytes != 200 || stats.TxUnicast != 1 {
		t.Fatalf("unexpected stats after transmit: %+v", stats)
	}
}

func TestMTUEnforcedOnEgress(t *testing.T) {
	s, _ := NewSubstrate(1, 8)
	cfg := DefaultAdminConfig()
	cfg.MTU = 1500
	_ = s.SetConfig(0, cfg)
	p, _ := s.Port(0)
	res := p.TryTransmit(swtypes.BroadcastMAC, 1501)
	if res.Sent {
		t.Fatalf("expected drop for oversized frame")
	}
	stats, _ := s.GetStats(0)
	if stats.TxDrops != 1 {
		t.Fatalf("expected TxDrops=1, got %d", stats.TxDrops)
	}
}

func TestStatsClassification(t *testing.T) {
	s, _ := NewSubstrate(1, 8)
	p, _ := s.Port(0)
	p.RecordIngress(swtypes.BroadcastMAC, 64)
	p.RecordIngress(swtypes.MAC{0x01, 0x00, 0x5e, 0, 0, 1}, 64)
	p.RecordIngress(swtypes.MACFromPort(2), 64)
	stats, _ := s.GetStats(0)
	if stats.RxBroadcast != 1 || stats.RxMulticast != 1 || stats.RxUnicast != 1 || stats.RxPackets != 3 {
		t.Fatalf("unexpected classification: %+v", stats)
	}
}

func TestClearStatsResets(t *testing.T) {
	s, _ := NewSubstrate(1, 8)
	p, _ := s.Port(0)
	p.RecordIngress(swtypes.MACFromPort(1), 64)
	_ = s.ClearStats(0)
	stats, _ := s.GetStats(0)
	if stats.RxPackets != 0 {
		t.Fatalf("expected zeroed counters, got %+v", stats)
	}
}

func TestAddPortResourceExhausted(t *testing.T) {
	s, _ := NewSubstrate(2, 2)
	_, err := s.AddPort("eth2", Physical)
	if simerr.Of(err) != simerr.ResourceExhausted {
		t.Fatalf("expected ResourceExhausted, got %v", err)
	}
}

func TestInvalidPortID(t *testing.T) {
	s, _ := NewSubstrate(1, 1)
	_, err := s.GetInfo(5)
	if simerr.Of(err) != simerr.InvalidPort {
		t.Fatalf("expected InvalidPort, got %v", err)
	}
}

// TestStatsSequentiallyConsistentUnderConcurrency is the §8 property:
// "stats_after(p) >= stats_before(p)" under concurrent access, and the
// final count must exactly equal the number of recorded ingress calls
// (no lost updates under the port's own lock).
func TestStatsSequentiallyConsistentUnderConcurrency(t *testing.T) {
	s, _ := NewSubstrate(1, 1)
	p, _ := s.Port(0)
	const n = 500
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.RecordIngress(swtypes.MACFromPort(1), 64)
		}()
	}
	wg.Wait()
	stats, _ := s.GetStats(0)
	if stats.RxPackets != n {
		t.Fatalf("RxPackets = %d, want %d", stats.RxPackets, n)
	}
}

func TestLoopbackLatchesOperState(t *testing.T) {
	s, _ := NewSubstrate(1, 1)
	p, _ := s.Port(0)
	p.SetLoopback(true)
	if p.Info().OperState != OperLoopback {
		t.Fatalf("expected OperLoopback")
	}
	p.SetAdminState(false)
	if p.Info().OperState != OperLoopback {
		t.Fatalf("loopback must stay latched regardless of admin state")
	}
	p.SetLoopback(false)
	if p.Info().OperState != OperDown {
		t.Fatalf("clearing loopback should re-evaluate normal oper state")
	}
}
