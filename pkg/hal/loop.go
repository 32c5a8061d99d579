// Package hal implements the hardware-simulation tick (C4): the
// background loop that synthesizes traffic, flaps links, and advances
// simulated time, plus the injection entry point used by external
// callers that bypass the tick entirely.
package hal

import (
	"math/rand"
	"sync"
	"time"

	"github.com/krisarmstrong/switchsim/internal/logsink"
	"github.com/krisarmstrong/switchsim/internal/simerr"
	"github.com/krisarmstrong/switchsim/pkg/packetbuf"
	"github.com/krisarmstrong/switchsim/pkg/pipeline"
	"github.com/krisarmstrong/switchsim/pkg/portsim"
	"github.com/krisarmstrong/switchsim/pkg/swtypes"
)

const component = "hal"

// DefaultPeriod is the default tick interval.
const DefaultPeriod = 100 * time.Millisecond

const (
	minFrameLen = portsim.MinEthernetFrame
	maxFrameLen = portsim.MaxEthernetFrame
	etherTypeIP = 0x0800
)

// PacketHandler is invoked for every synthesized or injected frame
// once it has been handed to the processor chain.
type PacketHandler func(buf *packetbuf.Buffer, port swtypes.PortID)

// LinkEventHandler is invoked whenever a port's operational state
// flips due to simulated link flap.
type LinkEventHandler func(port swtypes.PortID, up bool)

// TickHandler is invoked once per tick, after traffic synthesis and
// link-flap evaluation, with the tick's timestamp. It is how
// time-driven protocol state (STP's hello/forward-delay timers, RIP
// and OSPF neighbor-timeout withdrawal) gets advanced by the running
// daemon instead of only by a test calling Tick directly.
type TickHandler func(now time.Time)

// Loop is the tick (C4): it owns the traffic-synthesis rate, the
// link-flap probability, and the goroutine that advances them.
type Loop struct {
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	Period time.Duration
	Now    func() time.Time
	Rand   *rand.Rand

	// TrafficRatePerSec is the configured synthesis rate in packets
	// per second, shared across all traffic-gen-enabled ports.
	TrafficRatePerSec float64
	// LinkFlapProbability is the per-port, per-tick probability of an
	// operational-state toggle.
	LinkFlapProbability float64

	substrate *portsim.Substrate
	chain     *pipeline.Chain
	alloc     *packetbuf.Allocator
	log       logsink.Sink

	fracRemainder float64

	onPacket PacketHandler
	onLink   LinkEventHandler
	onTick   TickHandler
}

// NewLoop wires a tick to the given substrate, chain, and allocator.
func NewLoop(substrate *portsim.Substrate, chain *pipeline.Chain, alloc *packetbuf.Allocator, log logsink.Sink) *Loop {
	if log == nil {
		log = logsink.NopSink{}
	}
	return &Loop{
		Period:    DefaultPeriod,
		Now:       time.Now,
		Rand:      rand.New(rand.NewSource(1)),
		substrate: substrate,
		chain:     chain,
		alloc:     alloc,
		log:       log,
		stopCh:    make(chan struct{}),
	}
}

// SetPacketHandler installs the callback invoked for every frame the
// tick hands to the processor chain, synthesized or injected.
func (l *Loop) SetPacketHandler(h PacketHandler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onPacket = h
}

// SetLinkEventHandler installs the callback invoked on simulated link
// flap.
func (l *Loop) SetLinkEventHandler(h LinkEventHandler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onLink = h
}

// SetTickHandler installs the callback invoked once per tick with the
// tick's timestamp, after traffic synthesis and link-flap evaluation.
func (l *Loop) SetTickHandler(h TickHandler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onTick = h
}

// Start launches the tick goroutine. Calling Start twice returns
// AlreadyInitialized.
func (l *Loop) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return simerr.New(component, "Start", simerr.AlreadyInitialized, "tick already running")
	}
	l.running = true
	l.stopCh = make(chan struct{})
	l.wg.Add(1)
	go l.run()
	l.log.Log(logsink.HAL, logsink.Info, "tick started, period=%s", l.Period)
	return nil
}

// Stop clears the running flag and joins the tick goroutine; it
// returns after at most one more tick has completed, per spec.
func (l *Loop) Stop() error {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return simerr.New(component, "Stop", simerr.NotInitialized, "tick not running")
	}
	l.running = false
	close(l.stopCh)
	l.mu.Unlock()

	l.wg.Wait()
	l.log.Log(logsink.HAL, logsink.Info, "tick stopped")
	return nil
}

// Running reports whether the tick goroutine is active.
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

func (l *Loop) run() {
	defer l.wg.Done()
	ticker := time.NewTicker(l.Period)
	defer ticker.Stop()
	for {
		select {
		case <-l.stopCh:
			return
		case <-ticker.C:
			l.tickOnce(l.Now())
		}
	}
}

// tickOnce performs one iteration: traffic synthesis, link-flap
// evaluation, then the installed protocol tick handler, spec §4.3.
func (l *Loop) tickOnce(now time.Time) {
	l.synthesizeTraffic(now)
	l.flapLinks()
	l.mu.Lock()
	h := l.onTick
	l.mu.Unlock()
	if h != nil {
		h(now)
	}
}

// Inject is the non-tick entry point: an external caller presents a
// buffer and ingress port directly to the processor chain.
func (l *Loop) Inject(buf *packetbuf.Buffer, ingress swtypes.PortID) (pipeline.Result, error) {
	res, err := l.chain.Receive(buf, ingress)
	l.notifyPacket(buf, ingress)
	return res, err
}

func (l *Loop) notifyPacket(buf *packetbuf.Buffer, port swtypes.PortID) {
	l.mu.Lock()
	h := l.onPacket
	l.mu.Unlock()
	if h != nil {
		h(buf, port)
	}
}
