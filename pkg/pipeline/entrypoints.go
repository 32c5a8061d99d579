package pipeline

import (
	"time"

	"github.com/krisarmstrong/switchsim/internal/simerr"
	"github.com/krisarmstrong/switchsim/pkg/packetbuf"
	"github.com/krisarmstrong/switchsim/pkg/swtypes"
)

// Inject marks buf INTERNAL and runs the chain, per spec §4.4. If the
// walk returns FORWARD and a processor selected an egress port, the
// chain invokes the transmit path on the caller's behalf (spec §2's
// data-flow description); the result returned to the caller reflects
// that transmit attempt.
func (c *Chain) Inject(buf *packetbuf.Buffer) (Result, error) {
	if !c.ready() {
		return Drop, simerr.New(component, "Inject", simerr.NotInitialized, "")
	}
	if buf == nil || !buf.Valid() {
		return Drop, simerr.New(component, "Inject", simerr.InvalidPacket, "")
	}
	buf.Meta.Direction = swtypes.DirInternal
	return c.runAndMaybeTransmit(buf)
}

// Receive marks buf RX, stamps ingress port and timestamp, and runs the
// chain. The ingress port must be operationally UP.
func (c *Chain) Receive(buf *packetbuf.Buffer, port swtypes.PortID) (Result, error) {
	if !c.ready() {
		return Drop, simerr.New(component, "Receive", simerr.NotInitialized, "")
	}
	if buf == nil || !buf.Valid() {
		return Drop, simerr.New(component, "Receive", simerr.InvalidPacket, "")
	}
	p, err := c.substrate.Port(port)
	if err != nil {
		return Drop, err
	}
	if !p.IsUp() {
		p.RecordIngressDrop()
		return Drop, simerr.New(component, "Receive", simerr.ResourceUnavailable, "ingress port not UP")
	}
	buf.Meta.Direction = swtypes.DirRX
	buf.Meta.IngressPort = port
	buf.Meta.Timestamp = time.Now()
	p.RecordIngress(buf.Meta.DstMAC, buf.Size())

	result, err := c.runAndMaybeTransmit(buf)
	if result == Drop || result == Consume {
		p.RecordIngressDrop()
	}
	return result, err
}

// Transmit marks buf TX and attempts to send it out port. The port
// must be UP and buf's size must not exceed its MTU; if the installed
// ForwardGate denies forwarding on port, the chain is skipped entirely
// and the frame is dropped with a TX drop counter increment, per spec
// §4.4.
func (c *Chain) Transmit(buf *packetbuf.Buffer, port swtypes.PortID) (Result, error) {
	if !c.ready() {
		return Drop, simerr.New(component, "Transmit", simerr.NotInitialized, "")
	}
	if buf == nil || !buf.Valid() {
		return Drop, simerr.New(component, "Transmit", simerr.InvalidPacket, "")
	}
	p, err := c.substrate.Port(port)
	if err != nil {
		return Drop, err
	}
	buf.Meta.Direction = swtypes.DirTX
	buf.Meta.EgressPort = port

	c.mu.Lock()
	gate := c.gate
	c.mu.Unlock()

	switch {
	case !p.IsUp():
		return Drop, p.DropTx(simerr.New(component, "Transmit", simerr.ResourceUnavailable, "egress port not UP"))
	case buf.Size() > int(p.MTU()):
		return Drop, p.DropTx(simerr.New(component, "Transmit", simerr.InvalidPacket, "frame exceeds MTU"))
	case !gate.CanForward(port):
		return Drop, p.DropTx(simerr.New(component, "Transmit", simerr.ResourceUnavailable, "STP forwarding denied on port"))
	}

	result := c.process(buf)
	if result == Drop || result == Consume {
		return result, p.DropTx(simerr.New(component, "Transmit", simerr.InvalidPacket, "processor chain dropped frame"))
	}

	res := p.TryTransmit(buf.Meta.DstMAC, buf.Size())
	if !res.Sent {
		return Drop, res.Err
	}
	return Forward, nil
}

// runAndMaybeTransmit runs the chain and, on FORWARD with a selected
// egress port, hands the frame to Transmit.
func (c *Chain) runAndMaybeTransmit(buf *packetbuf.Buffer) (Result, error) {
	result := c.process(buf)
	if result != Forward {
		return result, nil
	}
	if !buf.Meta.EgressPort.Valid() {
		return Forward, nil
	}
	return c.Transmit(buf, buf.Meta.EgressPort)
}
