// Package ospf implements only OSPF's contract with the routing table,
// per spec §4.8: route installation with OSPF's administrative
// distance and neighbor-timeout-driven withdrawal. The link-state
// database and SPF computation that would produce these routes in a
// full implementation are out of scope here.
package ospf

import (
	"sync"
	"time"

	"github.com/krisarmstrong/switchsim/pkg/routing"
	"github.com/krisarmstrong/switchsim/pkg/swtypes"
)

// DefaultDeadInterval is OSPF's default neighbor dead interval on a
// broadcast network (4x the 10s hello interval).
const DefaultDeadInterval = 40 * time.Second

type neighborState struct {
	addr      swtypes.IP
	lastHeard time.Time
}

// Adapter installs routes on OSPF's behalf and withdraws them when a
// neighbor's dead interval expires.
type Adapter struct {
	mu           sync.Mutex
	table        *routing.Table
	neighbors    map[string]*neighborState
	DeadInterval time.Duration
	Now          func() time.Time
}

// NewAdapter wires an OSPF adapter to table.
func NewAdapter(table *routing.Table) *Adapter {
	return &Adapter{
		table:        table,
		neighbors:    make(map[string]*neighborState),
		DeadInterval: DefaultDeadInterval,
		Now:          time.Now,
	}
}

// InstallRoute installs a route computed by SPF (supplied by the
// caller — the SPF computation itself is out of scope) and refreshes
// the advertising neighbor's liveness.
func (a *Adapter) InstallRoute(neighbor swtypes.IP, prefix swtypes.Prefix, cost uint32, egress swtypes.PortID) error {
	now := a.Now()
	a.touchNeighbor(neighbor, now)
	return a.table.Add(routing.Entry{
		Prefix:     prefix,
		NextHop:    neighbor,
		EgressPort: egress,
		Metric:     cost,
		Distance:   routing.AdministrativeDistance(routing.OSPF),
		Source:     routing.OSPF,
	}, now)
}

// Hello refreshes a neighbor's liveness without installing a route —
// the contract's minimal stand-in for receiving an OSPF Hello packet.
func (a *Adapter) Hello(neighbor swtypes.IP) {
	a.touchNeighbor(neighbor, a.Now())
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

// Tick evaluates neighbor dead-interval timeouts: any neighbor not
// heard from within DeadInterval has every OSPF route through it
// withdrawn.
func (a *Adapter) Tick(now time.Time) {
	a.mu.Lock()
	var expired []swtypes.IP
	for key, n := range a.neighbors {
		if now.Sub(n.lastHeard) > a.DeadInterval {
			expired = append(expired, n.addr)
			delete(a.neighbors, key)
		}
	}
	a.mu.Unlock()

	for _, addr := range expired {
		a.table.RemoveWhere(func(e *routing.Entry) bool {
			return e.Source == routing.OSPF && e.NextHop.Equal(addr)
		})
	}
}

// NeighborCount reports the number of neighbors currently considered
// alive.
func (a *Adapter) NeighborCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.neighbors)
}
