package stp

import (
	"sync"
	"time"

	"github.com/krisarmstrong/switchsim/internal/simerr"
	"github.com/krisarmstrong/switchsim/pkg/swtypes"
)

// Default bridge-level timers, 802.1D §8.10.2 defaults, expressed as
// durations rather than wire units.
const (
	DefaultBridgePriority uint16 = 32768
	DefaultHelloTime             = 2 * time.Second
	DefaultMaxAge                = 20 * time.Second
	DefaultForwardDelay          = 15 * time.Second
)

// Bridge is a single switch's spanning-tree instance: bridge identity,
// current root, and the per-port records of spec §3 "STP bridge".
type Bridge struct {
	mu sync.Mutex

	id BridgeID

	helloTime    time.Duration
	maxAge       time.Duration
	forwardDelay time.Duration

	rootID       BridgeID
	rootPathCost uint32
	rootPort     swtypes.PortID

	topologyChange       bool
	topologyChangeExpiry time.Time

	lastHelloAt time.Time

	ports map[swtypes.PortID]*PortRecord

	// Transmit, when set, is invoked by Tick to emit a BPDU out a port
	// this bridge holds the designated role on. The caller
	// wires this into the datapath (chain injection).
	Transmit func(port swtypes.PortID, frame []byte) error
}

// NewBridge constructs a bridge identified by id, initially the root
// of its own one-bridge tree.
func NewBridge(id BridgeID) *Bridge {
	return &Bridge{
		id:           id,
		helloTime:    DefaultHelloTime,
		maxAge:       DefaultMaxAge,
		forwardDelay: DefaultForwardDelay,
		rootID:       id,
		rootPathCost: 0,
		rootPort:     swtypes.InvalidPort,
		ports:        make(map[swtypes.PortID]*PortRecord),
	}
}

// ID returns this bridge's identifier.
func (b *Bridge) ID() BridgeID { return b.id }

// SetTimers overrides the bridge-level hello/max-age/forward-delay
// timers before ports are enabled. Zero durations are ignored, leaving
// the corresponding default in place.
func (b *Bridge) SetTimers(hello, maxAge, forwardDelay time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if hello > 0 {
		b.helloTime = hello
	}
	if maxAge > 0 {
		b.maxAge = maxAge
	}
	if forwardDelay > 0 {
		b.forwardDelay = forwardDelay
	}
}

// AddPort registers port under STP control with the given priority and
// path cost, initially DISABLED.
func (b *Bridge) AddPort(port swtypes.PortID, priority uint8, pathCost uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.ports[port]; exists {
		return simerr.New(component, "AddPort", simerr.AlreadyExists, "port already under STP control")
	}
	b.ports[port] = newPortRecord(port, priority, pathCost, b.id)
	return nil
}

// Enable transitions port from DISABLED to BLOCKING, the entry point
// into the state machine.
func (b *Bridge) Enable(port swtypes.PortID, now time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	pr, err := b.portLocked(port)
	if err != nil {
		return err
	}
	pr.enabled = true
	pr.State = Blocking
	pr.lastBPDUAt = now
	b.recomputeLocked(now)
	return nil
}

// Disable forces port back to DISABLED and drops any root/designated
// role it held, forcing a recompute of the tree.
func (b *Bridge) Disable(port swtypes.PortID, now time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	pr, err := b.portLocked(port)
	if err != nil {
		return err
	}
	pr.enabled = false
	pr.State = Disabled
	pr.DesignatedRoot, pr.DesignatedBridge, pr.DesignatedPort, pr.DesignatedCost = b.id, b.id, pr.ID, 0
	if port == b.rootPort {
		b.rootID, b.rootPathCost, b.rootPort = b.id, 0, swtypes.InvalidPort
		b.loseRootAndReconverge(now)
	}
	b.recomputeLocked(now)
	return nil
}

func (b *Bridge) portLocked(port swtypes.PortID) (*PortRecord, error) {
	pr, ok := b.ports[port]
	if !ok {
		return nil, simerr.New(component, "portLocked", simerr.InvalidPort, "port not under STP control")
	}
	return pr, nil
}

// loseRootAndReconverge discards every port's received root info,
// reverting the bridge to being root of its own tree until new BPDUs
// are heard — used after the current root port goes down or the root
// bridge's BPDUs age out.
func (b *Bridge) loseRootAndReconverge(now time.Time) {
	for _, pr := range b.ports {
		if !pr.enabled {
			continue
		}
		pr.DesignatedRoot, pr.DesignatedBridge, pr.DesignatedPort, pr.DesignatedCost = b.id, b.id, pr.ID, 0
	}
}

// CanForward implements pipeline.ForwardGate: only FORWARDING ports
// may carry data traffic. Ports not under STP control are left
// unmanaged and always permitted.
func (b *Bridge) CanForward(port swtypes.PortID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	pr, ok := b.ports[port]
	if !ok {
		return true
	}
	return pr.State == Forwarding
}

// PortState reports the current STP state of port, or Disabled if the
// port is not under STP control.
func (b *Bridge) PortState(port swtypes.PortID) PortState {
	b.mu.Lock()
	defer b.mu.Unlock()
	pr, ok := b.ports[port]
	if !ok {
		return Disabled
	}
	return pr.State
}

// RootID, RootPathCost and RootPort report the bridge's current view
// of the spanning tree.
func (b *Bridge) RootID() BridgeID {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rootID
}

func (b *Bridge) RootPathCost() uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rootPathCost
}

func (b *Bridge) RootPort() swtypes.PortID {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rootPort
}

func (b *Bridge) IsRoot() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rootID.Equal(b.id)
}
