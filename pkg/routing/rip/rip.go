// Package rip implements the RIP routing-protocol adapter contract of
// spec §4.8: installing/withdrawing routes through the routing table
// with RIP's metric semantics, and driving neighbor timeout removals.
package rip

import (
	"sync"
	"time"

	"github.com/krisarmstrong/switchsim/pkg/routing"
	"github.com/krisarmstrong/switchsim/pkg/swtypes"
)

// Infinity is RIP's unreachable metric; a route whose computed metric
// reaches this value is withdrawn rather than installed.
const Infinity = 16

// DefaultNeighborTimeout is the classic RIP "route invalid" timer: a
// neighbor not heard from in this long is considered down.
const DefaultNeighborTimeout = 180 * time.Second

type neighborState struct {
	addr      swtypes.IP
	lastHeard time.Time
}

// Adapter feeds RIP distance-vector updates into a routing.Table.
type Adapter struct {
	mu        sync.Mutex
	table     *routing.Table
	neighbors map[string]*neighborState
	Timeout   time.Duration
	Now       func() time.Time
}

// NewAdapter wires a RIP adapter to table.
func NewAdapter(table *routing.Table) *Adapter {
	return &Adapter{
		table:     table,
		neighbors: make(map[string]*neighborState),
		Timeout:   DefaultNeighborTimeout,
		Now:       time.Now,
	}
}

// ReceiveUpdate processes one RIP route advertisement heard from
// neighbor for prefix at the neighbor's advertised hop count. Per
// classic RIP, the receiving adapter adds 1 for the link just
// traversed; a resulting metric at or beyond Infinity withdraws the
// route instead of installing it. The advertising neighbor's liveness
// is refreshed regardless of the route outcome.
func (a *Adapter) ReceiveUpdate(neighbor swtypes.IP, prefix swtypes.Prefix, advertisedHops uint32, egress swtypes.PortID) error {
	now := a.Now()
	a.touchNeighbor(neighbor, now)

	metric := advertisedHops + 1
	if metric >= Infinity {
		_ = a.table.Remove(prefix, routing.RIP)
		return nil
	}
	return a.table.Add(routing.Entry{
		Prefix:     prefix,
		NextHop:    neighbor,
		EgressPort: egress,
		Metric:     metric,
		Distance:   routing.AdministrativeDistance(routing.RIP),
		Source:     routing.RIP,
	}, now)
}

func (a *Adapter) touchNeighbor(addr swtypes.IP, now time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	key := addr.String()
	n, ok := a.neighbors[key]
	if !ok {
		n = &neighborState{addr: addr}
		a.neighbors[key] = n
	}
	n.lastHeard = now
}

// Tick evaluates neighbor timeouts: any neighbor not heard from within
// Timeout has every RIP route through it withdrawn, per spec §4.8.
func (a *Adapter) Tick(now time.Time) {
	a.mu.Lock()
	var expired []swtypes.IP
	for key, n := range a.neighbors {
		if now.Sub(n.lastHeard) > a.Timeout {
			expired = append(expired, n.addr)
			delete(a.neighbors, key)
		}
	}
	a.mu.Unlock()

	for _, addr := range expired {
		a.table.RemoveWhere(func(e *routing.Entry) bool {
			return e.Source == routing.RIP && e.NextHop.Equal(addr)
		})
	}
}

// NeighborCount reports the number of neighbors currently considered
// alive, for tests and diagnostics.
func (a *Adapter) NeighborCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.neighbors)
}
