package l2

import (
	"time"

	"github.com/krisarmstrong/switchsim/pkg/packetbuf"
	"github.com/krisarmstrong/switchsim/pkg/pipeline"
	"github.com/krisarmstrong/switchsim/pkg/portsim"
	"github.com/krisarmstrong/switchsim/pkg/swtypes"
)

// Transmitter is the subset of *pipeline.Chain the forwarder needs,
// kept as an interface so tests can substitute a recorder.
type Transmitter interface {
	Transmit(buf *packetbuf.Buffer, port swtypes.PortID) (pipeline.Result, error)
}

// Forwarder implements L2 learning/forwarding as a pipeline.ProcessorFunc.
type Forwarder struct {
	Table     *Table
	Substrate *portsim.Substrate
	Chain     Transmitter
	Alloc     *packetbuf.Allocator
	Now       func() time.Time
}

// NewForwarder constructs a Forwarder wired to the given table,
// substrate, chain (for flooding), and allocator (for cloning flooded
// frames).
func NewForwarder(table *Table, substrate *portsim.Substrate, chain Transmitter, alloc *packetbuf.Allocator) *Forwarder {
	return &Forwarder{Table: table, Substrate: substrate, Chain: chain, Alloc: alloc, Now: time.Now}
}

// vlanOf resolves a frame's VLAN, assigning the ingress port's PVID to
// untagged frames per spec §4.5.
func (f *Forwarder) vlanOf(buf *packetbuf.Buffer) int {
	if buf.Meta.VLAN != packetbuf.NoVLAN {
		return buf.Meta.VLAN
	}
	if p, err := f.Substrate.Port(buf.Meta.IngressPort); err == nil {
		return p.PVID()
	}
	return 0
}

// Process implements pipeline.ProcessorFunc. It only acts on ingress
// (RX) frames; TX/INTERNAL frames pass through unchanged.
func (f *Forwarder) Process(buf *packetbuf.Buffer) pipeline.Result {
	if buf.Meta.Direction != swtypes.DirRX {
		return pipeline.Forward
	}
	vlan := f.vlanOf(buf)
	_ = f.Table.Learn(vlan, buf.Meta.SrcMAC, buf.Meta.IngressPort, f.Now())

	dst := buf.Meta.DstMAC
	if dst.IsBroadcast() || dst.IsMulticast() {
		f.flood(buf, vlan)
		return pipeline.Consume
	}

	port, ok := f.Table.Lookup(vlan, dst)
	if !ok {
		f.flood(buf, vlan)
		return pipeline.Consume
	}
	if port == buf.Meta.IngressPort {
		return pipeline.Drop
	}
	buf.Meta.EgressPort = port
	return pipeline.Forward
}

// flood transmits a clone of buf out every UP port in vlan except the
// ingress port. Each clone's transmit is gated independently by STP's
// forwarding permission (enforced inside Chain.Transmit).
func (f *Forwarder) flood(buf *packetbuf.Buffer, vlan int) {
	for _, id := range f.Substrate.EnumeratePorts() {
		if id == buf.Meta.IngressPort {
			continue
		}
		p, err := f.Substrate.Port(id)
		if err != nil || !p.IsUp() || p.PVID() != vlan {
			continue
		}
		clone, err := f.Alloc.Clone(buf)
		if err != nil {
			continue
		}
		clone.Meta.VLAN = vlan
		_, _ = f.Chain.Transmit(clone, id)
		_ = f.Alloc.Free(clone)
	}
}
