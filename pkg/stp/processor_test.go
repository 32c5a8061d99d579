package stp

import (
	"testing"
	"time"

	"github.com/krisarmstrong/switchsim/pkg/packetbuf"
	"github.com/krisarmstrong/switchsim/pkg/swtypes"
)

func TestProcessorConsumesBPDUAndFeedsBridge(t *testing.T) {
	br := NewBridge(BridgeID{Priority: DefaultBridgePriority, MAC: mac(0x01)})
	_ = br.AddPort(0, DefaultPortPriority, DefaultPathCost)
	now := time.Unix(0, 0)
	_ = br.Enable(0, now)

	proc := Processor(br, func() time.Time { return now })

	sender := BridgeID{Priority: 1, MAC: mac(0x99)}
	frame := Encode(BPDU{Type: TypeConfig, RootID: sender, SenderBridgeID: sender, SenderPort: PortIdentifier{Port: 0}}, sender.MAC)

	alloc := packetbuf.NewAllocator()
	_ = alloc.Init()
	buf, _ := alloc.Alloc(len(frame))
	copy(buf.Bytes(), frame)
	buf.Meta.Direction = swtypes.DirRX
	buf.Meta.IngressPort = 0

	res := proc(buf)
	if res.String() != "CONSUME" {
		t.Fatalf("expected CONSUME for a BPDU frame, got %v", res)
	}
	if br.IsRoot() {
		t.Fatalf("expected the bridge to concede root to the superior sender")
	}
}

func TestProcessorForwardsNonBPDUFrames(t *testing.T) {
	br := NewBridge(BridgeID{Priority: DefaultBridgePriority, MAC: mac(0x01)})
	proc := Processor(br, nil)
	alloc := packetbuf.NewAllocator()
	_ = alloc.Init()
	buf, _ := alloc.Alloc(64)
	buf.Meta.Direction = swtypes.DirRX
	if res := proc(buf); res.String() != "FORWARD" {
		t.Fatalf("expected FORWARD for a non-BPDU frame, got %v", res)
	}
}
