// Package routing implements the Layer-3 routing table (C8): exact-
// match and longest-prefix-match lookup over IPv4/IPv6 routes, with
// administrative-distance arbitration among candidate sources per
// spec §4.7.
package routing

import (
	"time"

	"github.com/krisarmstrong/switchsim/pkg/swtypes"
)

const component = "routing"

// Source identifies what installed a route.
type Source int

const (
	Connected Source = iota
	Static
	RIP
	OSPF
	BGPExternal
	BGPInternal
)

func (s Source) String() string {
	switch s {
	case Connected:
		return "CONNECTED"
	case Static:
		return "STATIC"
	case RIP:
		return "RIP"
	case OSPF:
		return "OSPF"
	case BGPExternal:
		return "BGP-EXTERNAL"
	case BGPInternal:
		return "BGP-INTERNAL"
	default:
		return "UNKNOWN"
	}
}

// AdministrativeDistance returns the default admin distance for a
// route source, per spec §3's route-entry invariant table.
func AdministrativeDistance(s Source) uint8 {
	switch s {
	case Connected:
		return 0
	case Static:
		return 1
	case BGPExternal:
		return 20
	case OSPF:
		return 110
	case RIP:
		return 120
	case BGPInternal:
		return 200
	default:
		return 255
	}
}

// Entry is a single route-table candidate, spec §3 "Route entry".
type Entry struct {
	Prefix     swtypes.Prefix
	NextHop    swtypes.IP // zero value means directly connected
	EgressPort swtypes.PortID
	Metric     uint32
	Distance   uint8
	Source     Source
	Active     bool
	LastUpdate time.Time
}

func (e *Entry) directlyConnected() bool { return e.NextHop.IsZero() }

// better reports whether candidate a should be preferred over b as the
// active route for a shared key: strictly lower administrative
// distance, or equal distance and strictly lower metric.
func better(a, b *Entry) bool {
	if a.Distance != b.Distance {
		return a.Distance < b.Distance
	}
	return a.Metric < b.Metric
}
