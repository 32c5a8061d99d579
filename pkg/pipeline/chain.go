// Package pipeline implements the priority-ordered packet processor
// chain of spec §4.4 (C5): registration/deregistration, the
// inject/receive/transmit entry points, and the bounded-recirculation
// walk.
package pipeline

import (
	"sort"
	"sync"

	"github.com/krisarmstrong/switchsim/internal/simerr"
	"github.com/krisarmstrong/switchsim/pkg/packetbuf"
	"github.com/krisarmstrong/switchsim/pkg/portsim"
	"github.com/krisarmstrong/switchsim/pkg/swtypes"
)

const component = "pipeline"

// MaxRecirculations bounds chain walk restarts, per spec §4.4/§5.
const MaxRecirculations = 16

// Result is the outcome a processor (or the chain as a whole) reports
// for a packet.
type Result int

const (
	Forward Result = iota
	Drop
	Consume
	Recirculate
)

func (r Result) String() string {
	switch r {
	case Forward:
		return "FORWARD"
	case Drop:
		return "DROP"
	case Consume:
		return "CONSUME"
	case Recirculate:
		return "RECIRCULATE"
	default:
		return "UNKNOWN"
	}
}

// ProcessorFunc is a chain callback. It must return promptly: per spec
// §5, processor callbacks are not themselves cancellable.
type ProcessorFunc func(buf *packetbuf.Buffer) Result

// Handle identifies a registered processor for deregistration.
type Handle int64

// ForwardGate is consulted by Transmit to decide whether STP currently
// permits forwarding on a port (spec §4.6's can_forward). A nil gate is
// treated as "STP globally disabled": every port may forward.
type ForwardGate interface {
	CanForward(port swtypes.PortID) bool
}

type alwaysAllow struct{}

func (alwaysAllow) CanForward(swtypes.PortID) bool { return true }

type processorEntry struct {
	handle   Handle
	priority int
	seq      int
	active   bool
	fn       ProcessorFunc
}

// Chain is the processor chain (C5). It owns no packet storage; it
// only sequences registered processors over whatever *packetbuf.Buffer
// an entry point is given.
type Chain struct {
	mu          sync.Mutex
	initialized bool
	maxProcs    int
	nextHandle  Handle
	nextSeq     int
	all         []*processorEntry // every registered entry, active or not
	active      []*processorEntry // cached sorted active subset, rebuilt on register/deregister

	substrate *portsim.Substrate
	gate      ForwardGate
}

// NewChain constructs a chain bounded to maxProcessors active
// registrations, operating on the given port substrate.
func NewChain(substrate *portsim.Substrate, maxProcessors int) *Chain {
	return &Chain{substrate: substrate, maxProcs: maxProcessors, gate: alwaysAllow{}}
}

// Init transitions the chain into the ready state.
func (c *Chain) Init() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.initialized {
		return simerr.New(component, "Init", simerr.AlreadyInitialized, "")
	}
	c.initialized = true
	return nil
}

// Shutdown tears the chain down.
func (c *Chain) Shutdown() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.initialized {
		return simerr.New(component, "Shutdown", simerr.NotInitialized, "")
	}
	c.initialized = false
	return nil
}

func (c *Chain) ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initialized
}

// SetForwardGate installs the STP (or other) forwarding gate consulted
// by Transmit. Passing nil restores the always-allow default.
func (c *Chain) SetForwardGate(g ForwardGate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if g == nil {
		g = alwaysAllow{}
	}
	c.gate = g
}

// Register adds a processor at the given priority (smaller runs
// earlier). Active processors are re-sorted ascending by priority, with
// ties broken by registration order (a stable sort).
func (c *Chain) Register(priority int, fn ProcessorFunc) (Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	activeCount := 0
	for _, e := range c.all {
		if e.active {
			activeCount++
		}
	}
	if activeCount >= c.maxProcs {
		return 0, simerr.New(component, "Register", simerr.ResourceExhausted, "maximum processor count reached")
	}
	c.nextHandle++
	e := &processorEntry{handle: c.nextHandle, priority: priority, seq: c.nextSeq, active: true, fn: fn}
	c.nextSeq++
	c.all = append(c.all, e)
	c.rebuildActiveLocked()
	return e.handle, nil
}

// Deregister marks handle's slot inactive. The handle is never reused.
func (c *Chain) Deregister(h Handle) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.all {
		if e.handle == h && e.active {
			e.active = false
			c.rebuildActiveLocked()
			return nil
		}
	}
	return simerr.New(component, "Deregister", simerr.NotFound, "no such active processor handle")
}

// rebuildActiveLocked must be called with mu held.
func (c *Chain) rebuildActiveLocked() {
	active := make([]*processorEntry, 0, len(c.all))
	for _, e := range c.all {
		if e.active {
			active = append(active, e)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		if active[i].priority != active[j].priority {
			return active[i].priority < active[j].priority
		}
		return active[i].seq < active[j].seq
	})
	c.active = active
}

// snapshot takes a consistent, briefly-locked copy of the active
// processor list, per spec §4.4/§5: the chain must snapshot before a
// walk; concurrent Register/Deregister calls take effect on the next
// walk only.
func (c *Chain) snapshot() []*processorEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*processorEntry, len(c.active))
	copy(out, c.active)
	return out
}

// process runs the bounded-recirculation walk over a snapshot of active
// processors, per spec §4.4. An invalid buffer or an uninitialized
// chain both resolve to DROP, matching §4.4's local-recovery error
// mapping (these are not reported as Go errors from process itself;
// the entry points that call it report errors for their own
// preconditions).
func (c *Chain) process(buf *packetbuf.Buffer) Result {
	if !c.ready() {
		return Drop
	}
	if buf == nil || !buf.Valid() {
		return Drop
	}
	for attempt := 0; attempt < MaxRecirculations; attempt++ {
		procs := c.snapshot()
		recirculated := false
		for _, p := range procs {
			res := p.fn(buf)
			switch res {
			case Forward:
				continue
			case Drop, Consume:
				return res
			case Recirculate:
				recirculated = true
			}
			if recirculated {
				break
			}
		}
		if !recirculated {
			return Forward
		}
	}
	return Drop
}
