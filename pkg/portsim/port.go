// Package portsim implements the hardware-simulation port substrate of
// spec §3/§4.2: per-port configuration, operational state and
// statistics, each protected by its own lock for high-throughput,
// low-contention access from the tick, the processor chain, and
// administrative callers.
package portsim

import (
	"sync"

	"github.com/krisarmstrong/switchsim/internal/simerr"
	"github.com/krisarmstrong/switchsim/pkg/swtypes"
)

const component = "portsim"

// MinEthernetFrame and MaxEthernetFrame bound the MTU per spec §3/§6.
const (
	MinEthernetFrame = 64
	MaxEthernetFrame = 1518
)

// PortType distinguishes physical ports from logical (e.g. loopback,
// trunk aggregate) ones.
type PortType int

const (
	Physical PortType = iota
	Logical
)

// Duplex is the link duplex setting.
type Duplex int

const (
	DuplexFull Duplex = iota
	DuplexHalf
)

// OperState is the operational state of spec §3.
type OperState int

const (
	OperDown OperState = iota
	OperUp
	OperLoopback
)

func (s OperState) String() string {
	switch s {
	case OperUp:
		return "UP"
	case OperLoopback:
		return "LOOPBACK"
	default:
		return "DOWN"
	}
}

// AdminConfig is the administratively configured, atomically replaced
// record for a port.
type AdminConfig struct {
	AdminUp                bool
	Speed                  uint32 // Mbps
	Duplex                 Duplex
	AutoNeg                bool
	FlowControl            bool
	MTU                    uint16
	PVID                   int
	CarrierLossProbability float64 // [0,1); stored and reported only; the HAL link-flap step does not read it
	TrafficGenEnabled      bool
}

// DefaultAdminConfig returns a sane starting configuration: admin up,
// 1000 Mbps full duplex, max Ethernet MTU, PVID 1.
func DefaultAdminConfig() AdminConfig {
	return AdminConfig{
		AdminUp: true,
		Speed:   1000,
		Duplex:  DuplexFull,
		AutoNeg: true,
		MTU:     MaxEthernetFrame,
		PVID:    1,
	}
}

// Counters are the monotonic per-port statistics of spec §3. They are
// reset only by ClearStats.
type Counters struct {
	RxPackets   uint64
	TxPackets   uint64
	RxBytes     uint64
	TxBytes     uint64
	RxUnicast   uint64
	RxMulticast uint64
	RxBroadcast uint64
	TxUnicast   uint64
	TxMulticast uint64
	TxBroadcast uint64
	RxDrops     uint64
	TxDrops     uint64
}

// Info is a point-in-time, race-free snapshot of a port's identity,
// config, operational state, and counters, returned by GetInfo.
type Info struct {
	ID        swtypes.PortID
	Name      string
	MAC       swtypes.MAC
	Type      PortType
	Config    AdminConfig
	OperState OperState
	Counters  Counters
}

// Port is a single port record. Every field access goes through the
// port's own mutex; callers never see a torn read.
type Port struct {
	mu sync.Mutex

	id      swtypes.PortID
	name    string
	mac     swtypes.MAC
	ptype   PortType
	cfg     AdminConfig
	oper    OperState
	carrier bool
	counts  Counters
}

func newPort(id swtypes.PortID, name string, ptype PortType) *Port {
	p := &Port{
		id:      id,
		name:    name,
		mac:     swtypes.MACFromPort(id),
		ptype:   ptype,
		cfg:     DefaultAdminConfig(),
		carrier: true,
	}
	p.recomputeOperLocked()
	return p
}

// recomputeOperLocked must be called with mu held. Operational UP
// requires admin-up AND carrier present, per spec §4.2; loopback ports
// stay latched in OperLoopback once SetLoopback(true) is called.
func (p *Port) recomputeOperLocked() {
	if p.oper == OperLoopback {
		return
	}
	if p.cfg.AdminUp && p.carrier {
		p.oper = OperUp
	} else {
		p.oper = OperDown
	}
}

// Info returns a consistent snapshot of the port.
func (p *Port) Info() Info {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Info{
		ID:        p.id,
		Name:      p.name,
		MAC:       p.mac,
		Type:      p.ptype,
		Config:    p.cfg,
		OperState: p.oper,
		Counters:  p.counts,
	}
}

// SetConfig atomically replaces the admin configuration and
// re-evaluates operational state.
func (p *Port) SetConfig(cfg AdminConfig) error {
	if cfg.MTU < MinEthernetFrame {
		return simerr.New(component, "SetConfig", simerr.InvalidParam, "MTU below minimum Ethernet frame size")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cfg = cfg
	p.recomputeOperLocked()
	return nil
}

// SetAdminState sets admin up/down and re-evaluates operational state.
func (p *Port) SetAdminState(up bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cfg.AdminUp = up
	p.recomputeOperLocked()
}

// SetCarrier sets the simulated link-carrier presence (driven by the
// HAL tick's link-flap step) and re-evaluates operational state.
// Returns the new operational state so callers can fire link-event
// notifications only on actual transitions.
func (p *Port) SetCarrier(present bool) OperState {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.carrier = present
	p.recomputeOperLocked()
	return p.oper
}

// SetLoopback forces (or clears) loopback operational state,
// independent of carrier/admin state, for logical loopback ports.
func (p *Port) SetLoopback(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if enabled {
		p.oper = OperLoopback
		return
	}
	p.oper = OperDown
	p.recomputeOperLocked()
}

// IsUp reports whether the port is currently operationally UP.
func (p *Port) IsUp() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.oper == OperUp
}

// MTU returns the port's current MTU.
func (p *Port) MTU() uint16 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cfg.MTU
}

// PVID returns the port's configured native VLAN.
func (p *Port) PVID() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cfg.PVID
}

// MAC returns the port's hardware address.
func (p *Port) MAC() swtypes.MAC { return p.mac }

// ID returns the port's identifier.
func (p *Port) ID() swtypes.PortID { return p.id }

func classify(dst swtypes.MAC) (isBroadcast, isMulticast bool) {
	if dst.IsBroadcast() {
		return true, false
	}
	return false, dst.IsMulticast()
}

// RecordIngress updates RX statistics for a frame of the given size and
// destination MAC, per the classification order of spec §4.2: broadcast
// first, then multicast, else unicast.
func (p *Port) RecordIngress(dst swtypes.MAC, size int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.counts.RxPackets++
	p.counts.RxBytes += uint64(size)
	bcast, mcast := classify(dst)
	switch {
	case bcast:
		p.counts.RxBroadcast++
	case mcast:
		p.counts.RxMulticast++
	default:
		p.counts.RxUnicast++
	}
}

// RecordIngressDrop increments the RX drop counter.
func (p *Port) RecordIngressDrop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.counts.RxDrops++
}

// TransmitResult is returned by TryTransmit.
type TransmitResult struct {
	Sent bool
	Err  error
}

// TryTransmit validates and records an egress attempt per spec §4.2:
// drop (and count the drop) if the port is not UP or size exceeds MTU;
// otherwise record TX statistics and report success.
func (p *Port) TryTransmit(dst swtypes.MAC, size int) TransmitResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.oper != OperUp {
		p.counts.TxDrops++
		return TransmitResult{Sent: false, Err: simerr.New(component, "TryTransmit", simerr.ResourceUnavailable, "port not UP")}
	}
	if size > int(p.cfg.MTU) {
		p.counts.TxDrops++
		return TransmitResult{Sent: false, Err: simerr.New(component, "TryTransmit", simerr.InvalidPacket, "frame exceeds MTU")}
	}
	p.counts.TxPackets++
	p.counts.TxBytes += uint64(size)
	bcast, mcast := classify(dst)
	switch {
	case bcast:
		p.counts.TxBroadcast++
	case mcast:
		p.counts.TxMulticast++
	default:
		p.counts.TxUnicast++
	}
	return TransmitResult{Sent: true}
}

// DropTx increments the TX drop counter and returns reason unchanged,
// for callers (the processor chain) that decide to drop a frame on
// egress for a reason the port itself did not detect (e.g. an STP
// forwarding-gate denial).
func (p *Port) DropTx(reason error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.counts.TxDrops++
	return reason
}

// ClearStats zeroes the port's counters.
func (p *Port) ClearStats() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.counts = Counters{}
}
