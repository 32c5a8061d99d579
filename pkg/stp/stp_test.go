package stp

import (
	"testing"
	"time"

	"github.com/krisarmstrong/switchsim/pkg/swtypes"
)

func mac(last byte) swtypes.MAC {
	return swtypes.MAC{0x00, 0x11, 0x22, 0x33, 0x44, last}
}

func TestBPDUEncodeDecodeRoundTrip(t *testing.T) {
	in := BPDU{
		Type:           TypeConfig,
		TopologyChange: true,
		RootID:         BridgeID{Priority: 32768, MAC: mac(0x01)},
		RootPathCost:   19,
		SenderBridgeID: BridgeID{Priority: 32768, MAC: mac(0x02)},
		SenderPort:     PortIdentifier{Priority: 128, Port: 3},
		MessageAge:     1,
		MaxAge:         20,
		HelloTime:      2,
		ForwardDelay:   15,
	}
	frame := Encode(in, mac(0x02))
	if len(frame) != ConfigBPDULen {
		t.Fatalf("Encode length = %d, want %d", len(frame), ConfigBPDULen)
	}
	if !IsBPDU(frame) {
		t.Fatalf("expected IsBPDU true for encoded frame")
	}
	out, err := Decode(frame)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if out != in {
		t.Fatalf("roundtrip mismatch: got %+v, want %+v", out, in)
	}
}

func TestBPDUDecodeRejectsWrongDestination(t *testing.T) {
	frame := Encode(BPDU{Type: TypeConfig, RootID: BridgeID{MAC: mac(1)}, SenderBridgeID: BridgeID{MAC: mac(1)}}, mac(1))
	frame[0] = 0xFF
	if _, err := Decode(frame); err == nil {
		t.Fatalf("expected error for non-STP destination MAC")
	}
}

func TestBPDUTCNRoundTrip(t *testing.T) {
	frame := Encode(BPDU{Type: TypeTCN}, mac(5))
	if len(frame) != TCNBPDULen {
		t.Fatalf("TCN length = %d, want %d", len(frame), TCNBPDULen)
	}
	out, err := Decode(frame)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if out.Type != TypeTCN {
		t.Fatalf("expected TypeTCN, got %v", out.Type)
	}
}

func TestBridgeIDLessPriorityThenMAC(t *testing.T) {
	lowPriority := BridgeID{Priority: 100, MAC: mac(0xFF)}
	highPriority := BridgeID{Priority: 200, MAC: mac(0x01)}
	if !lowPriority.Less(highPriority) {
		t.Fatalf("lower priority must win regardless of MAC")
	}
	a := BridgeID{Priority: 32768, MAC: mac(0x01)}
	b := BridgeID{Priority: 32768, MAC: mac(0x02)}
	if !a.Less(b) {
		t.Fatalf("equal priority: lower MAC must win")
	}
}

// TestTwoBridgeRootElection reproduces the concrete scenario: two
// bridges at the default priority, MACs ...:01 and ...:02, connected
// by a single link. At steady state the bridge with the lower MAC
// (...:01) must be root and hold its link port FORWARDING; the other
// bridge's port on that link becomes its root port and also ends up
// FORWARDING once the forward delay elapses.
func TestTwoBridgeRootElection(t *testing.T) {
	idA := BridgeID{Priority: DefaultBridgePriority, MAC: mac(0x01)}
	idB := BridgeID{Priority: DefaultBridgePriority, MAC: mac(0x02)}
	a := NewBridge(idA)
	b := NewBridge(idB)
	if err := a.AddPort(0, DefaultPortPriority, DefaultPathCost); err != nil {
		t.Fatalf("a.AddPort: %v", err)
	}
	if err := b.AddPort(0, DefaultPortPriority, DefaultPathCost); err != nil {
		t.Fatalf("b.AddPort: %v", err)
	}
	now := time.Unix(0, 0)
	_ = a.Enable(0, now)
	_ = b.Enable(0, now)

	// Exchange each bridge's initial (self-as-root) BPDU with the other.
	for i := 0; i < 3; i++ {
		bpduFromA := a.bpduForLocked(a.ports[0])
		bpduFromB := b.bpduForLocked(b.ports[0])
		_ = b.ReceiveBPDU(0, bpduFromA, now)
		_ = a.ReceiveBPDU(0, bpduFromB, now)
	}

	if !a.IsRoot() {
		t.Fatalf("expected bridge A (lower MAC) to be root")
	}
	if b.IsRoot() {
		t.Fatalf("expected bridge B to concede root to A")
	}
	if !b.RootID().Equal(idA) {
		t.Fatalf("bridge B root id = %v, want %v", b.RootID(), idA)
	}
	if b.RootPort() != 0 {
		t.Fatalf("bridge B root port = %v, want 0", b.RootPort())
	}

	// Advance through LISTENING -> LEARNING -> FORWARDING on both sides.
	advanced := now.Add(2 * DefaultForwardDelay).Add(time.Second)
	a.Tick(advanced)
	b.Tick(advanced)

	if a.PortState(0) != Forwarding {
		t.Fatalf("root bridge designated port state = %v, want FORWARDING", a.PortState(0))
	}
	if b.PortState(0) != Forwarding {
		t.Fatalf("root port state = %v, want FORWARDING", b.PortState(0))
	}
	if !a.CanForward(0) || !b.CanForward(0) {
		t.Fatalf("expected CanForward true on both sides once FORWARDING")
	}
}

func TestCanForwardAllowsUnmanagedPorts(t *testing.T) {
	br := NewBridge(BridgeID{Priority: DefaultBridgePriority, MAC: mac(1)})
	if !br.CanForward(7) {
		t.Fatalf("expected unmanaged port to be permitted by default")
	}
}

func TestDisablePortForcesReconvergence(t *testing.T) {
	idA := BridgeID{Priority: DefaultBridgePriority, MAC: mac(0x01)}
	idB := BridgeID{Priority: DefaultBridgePriority, MAC: mac(0x02)}
	a := NewBridge(idA)
	b := NewBridge(idB)
	_ = a.AddPort(0, DefaultPortPriority, DefaultPathCost)
	_ = b.AddPort(0, DefaultPortPriority, DefaultPathCost)
	now := time.Unix(0, 0)
	_ = a.Enable(0, now)
	_ = b.Enable(0, now)
	for i := 0; i < 3; i++ {
		_ = b.ReceiveBPDU(0, a.bpduForLocked(a.ports[0]), now)
	}
	if b.IsRoot() {
		t.Fatalf("expected B to have adopted A as root")
	}
	if err := b.Disable(0, now); err != nil {
		t.Fatalf("Disable: %v", err)
	}
	if !b.IsRoot() {
		t.Fatalf("expected B to reclaim root status once its only link is disabled")
	}
}

func TestTCNSetsTopologyChangeFlag(t *testing.T) {
	br := NewBridge(BridgeID{Priority: DefaultBridgePriority, MAC: mac(1)})
	_ = br.AddPort(0, DefaultPortPriority, DefaultPathCost)
	now := time.Unix(0, 0)
	_ = br.Enable(0, now)
	if err := br.ReceiveBPDU(0, BPDU{Type: TypeTCN}, now); err != nil {
		t.Fatalf("ReceiveBPDU: %v", err)
	}
	if !br.topologyChange {
		t.Fatalf("expected topology-change flag to be set after TCN")
	}
}
