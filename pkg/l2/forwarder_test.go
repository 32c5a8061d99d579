package l2

import (
	"testing"
	"time"

	"github.com/krisarmstrong/switchsim/pkg/packetbuf"
	"github.com/krisarmstrong/switchsim/pkg/pipeline"
	"github.com/krisarmstrong/switchsim/pkg/portsim"
	"github.com/krisarmstrong/switchsim/pkg/swtypes"
)

type recordingTransmitter struct {
	sent []swtypes.PortID
}

func (r *recordingTransmitter) Transmit(buf *packetbuf.Buffer, port swtypes.PortID) (pipeline.Result, error) {
	r.sent = append(r.sent, port)
	return pipeline.Forward, nil
}

func newFixture(t *testing.T, numPorts int) (*Forwarder, *recordingTransmitter, *packetbuf.Allocator) {
	t.Helper()
	sub, err := portsim.NewSubstrate(numPorts, numPorts)
	if err != nil {
		t.Fatalf("NewSubstrate: %v", err)
	}
	alloc := packetbuf.NewAllocator()
	if err := alloc.Init(); err != nil {
		t.Fatalf("alloc.Init: %v", err)
	}
	rec := &recordingTransmitter{}
	fwd := NewForwarder(NewTable(64), sub, rec, alloc)
	fwd.Now = func() time.Time { return time.Unix(0, 0) }
	return fwd, rec, alloc
}

func rxBuffer(alloc *packetbuf.Allocator, ingress swtypes.PortID, src, dst swtypes.MAC) *packetbuf.Buffer {
	buf, _ := alloc.Alloc(64)
	buf.Meta.Direction = swtypes.DirRX
	buf.Meta.IngressPort = ingress
	buf.Meta.SrcMAC = src
	buf.Meta.DstMAC = dst
	buf.Meta.VLAN = packetbuf.NoVLAN
	return buf
}

func TestForwarderLearnsAndUnicasts(t *testing.T) {
	fwd, rec, alloc := newFixture(t, 3)
	// Port 1 announces itself so the table learns MAC(1) -> port 1.
	announce := rxBuffer(alloc, 1, swtypes.MACFromPort(1), swtypes.MACFromPort(2))
	if res := fwd.Process(announce); res != pipeline.Consume {
		t.Fatalf("expected flood (CONSUME) for unknown destination, got %v", res)
	}
	if len(rec.sent) == 0 {
		t.Fatalf("expected a flood to occur")
	}

	rec.sent = nil
	reply := rxBuffer(alloc, 0, swtypes.MACFromPort(0), swtypes.MACFromPort(1))
	res := fwd.Process(reply)
	if res != pipeline.Forward {
		t.Fatalf("expected FORWARD for known unicast destination, got %v", res)
	}
	if reply.Meta.EgressPort != 1 {
		t.Fatalf("expected EgressPort=1, got %v", reply.Meta.EgressPort)
	}
}

func TestForwarderFloodsBroadcastExceptIngress(t *testing.T) {
	fwd, rec, alloc := newFixture(t, 3)
	buf := rxBuffer(alloc, 0, swtypes.MACFromPort(0), swtypes.BroadcastMAC)
	res := fwd.Process(buf)
	if res != pipeline.Consume {
		t.Fatalf("expected CONSUME for broadcast, got %v", res)
	}
	if len(rec.sent) != 2 {
		t.Fatalf("expected flood to the 2 non-ingress ports, got %v", rec.sent)
	}
	for _, p := range rec.sent {
		if p == 0 {
			t.Fatalf("flood must exclude ingress port, got %v", rec.sent)
		}
	}
}

func TestForwarderDropsWhenDestinationIsIngressPort(t *testing.T) {
	fwd, _, alloc := newFixture(t, 2)
	_ = fwd.Table.Learn(1, swtypes.MACFromPort(1), 0, time.Unix(0, 0))
	buf := rxBuffer(alloc, 0, swtypes.MACFromPort(2), swtypes.MACFromPort(1))
	if res := fwd.Process(buf); res != pipeline.Drop {
		t.Fatalf("expected DROP when lookup resolves back to ingress port, got %v", res)
	}
}

func TestForwarderVLANScoping(t *testing.T) {
	fwd, rec, alloc := newFixture(t, 3)
	_ = fwd.Substrate
	// Default PVID for all ports is 1 from DefaultAdminConfig; move port 2 to VLAN 2.
	info, _ := fwd.Substrate.GetInfo(2)
	cfg := info.Config
	cfg.PVID = 2
	_ = fwd.Substrate.SetConfig(2, cfg)

	buf := rxBuffer(alloc, 0, swtypes.MACFromPort(0), swtypes.BroadcastMAC)
	fwd.Process(buf)
	for _, p := range rec.sent {
		if p == 2 {
			t.Fatalf("flood must not cross into a different VLAN, sent to %v", rec.sent)
		}
	}
}
