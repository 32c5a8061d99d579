package hal

import (
	"time"

	"github.com/krisarmstrong/switchsim/pkg/packetbuf"
	"github.com/krisarmstrong/switchsim/pkg/pipeline"
	"github.com/krisarmstrong/switchsim/pkg/portsim"
	"github.com/krisarmstrong/switchsim/pkg/swtypes"
)

// synthesizeTraffic implements spec §4.3's packet-count formula:
// packets = rate * tick / 1000, with the fractional remainder carried
// to the next tick as a generation probability.
func (l *Loop) synthesizeTraffic(now time.Time) {
	l.mu.Lock()
	rate := l.TrafficRatePerSec
	period := l.Period
	l.mu.Unlock()
	if rate <= 0 {
		return
	}

	exact := rate * period.Seconds()
	count := int(exact)
	remainder := exact - float64(count)

	l.mu.Lock()
	l.fracRemainder += remainder
	for l.fracRemainder >= 1 {
		count++
		l.fracRemainder--
	}
	extra := l.Rand.Float64() < l.fracRemainder
	l.mu.Unlock()
	if count == 0 && extra {
		count = 1
	}

	eligible := l.eligiblePorts()
	if len(eligible) < 2 {
		return
	}
	for i := 0; i < count; i++ {
		l.synthesizeOne(eligible, now)
	}
}

func (l *Loop) eligiblePorts() []swtypes.PortID {
	var out []swtypes.PortID
	for _, id := range l.substrate.EnumeratePorts() {
		p, err := l.substrate.Port(id)
		if err != nil || !p.IsUp() {
			continue
		}
		info, err := l.substrate.GetInfo(id)
		if err != nil || !info.Config.TrafficGenEnabled {
			continue
		}
		out = append(out, id)
	}
	return out
}

func (l *Loop) synthesizeOne(eligible []swtypes.PortID, now time.Time) {
	l.mu.Lock()
	src := eligible[l.Rand.Intn(len(eligible))]
	dst := src
	for dst == src {
		dst = eligible[l.Rand.Intn(len(eligible))]
	}
	length := minFrameLen + l.Rand.Intn(maxFrameLen-minFrameLen+1)
	l.mu.Unlock()

	buf, err := l.alloc.Alloc(length)
	if err != nil {
		return
	}
	srcMAC := swtypes.MACFromPort(src)
	dstMAC := swtypes.MACFromPort(dst)
	frame := buf.Bytes()
	copy(frame[0:6], dstMAC.Bytes())
	copy(frame[6:12], srcMAC.Bytes())
	frame[12] = etherTypeIP >> 8
	frame[13] = etherTypeIP & 0xFF

	buf.Meta.SrcMAC = srcMAC
	buf.Meta.DstMAC = dstMAC
	buf.Meta.EtherType = etherTypeIP
	buf.Meta.VLAN = packetbuf.NoVLAN

	_, _ = l.chain.Receive(buf, src)
	l.notifyPacket(buf, src)
	_ = l.alloc.Free(buf)
}

// flapLinks implements spec §4.3's per-port link-flap evaluation.
func (l *Loop) flapLinks() {
	l.mu.Lock()
	prob := l.LinkFlapProbability
	l.mu.Unlock()
	if prob <= 0 {
		return
	}
	for _, id := range l.substrate.EnumeratePorts() {
		p, err := l.substrate.Port(id)
		if err != nil {
			continue
		}
		l.mu.Lock()
		flip := l.Rand.Float64() < prob
		l.mu.Unlock()
		if !flip {
			continue
		}
		newState := p.SetCarrier(!carrierOf(p))
		l.notifyLink(id, newState == portsim.OperUp)
	}
}

func carrierOf(p *portsim.Port) bool {
	return p.Info().OperState == portsim.OperUp
}

func (l *Loop) notifyLink(port swtypes.PortID, up bool) {
	l.mu.Lock()
	h := l.onLink
	l.mu.Unlock()
	if h != nil {
		h(port, up)
	}
}

// CanForward satisfies pipeline.ForwardGate trivially for callers that
// want the tick loop itself to gate forwarding absent any STP bridge —
// always permits, since link-state gating is already enforced by the
// port substrate's operational state.
type AlwaysForward struct{}

func (AlwaysForward) CanForward(swtypes.PortID) bool { return true }

var _ pipeline.ForwardGate = AlwaysForward{}
