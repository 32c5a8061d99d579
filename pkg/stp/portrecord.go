package stp

import (
	"time"

	"github.com/krisarmstrong/switchsim/pkg/swtypes"
)

// Default port-level STP parameters, 802.1D §8.10.2 defaults.
const (
	DefaultPortPriority uint8  = 128
	DefaultPathCost     uint32 = 19
)

// PortRecord is the per-port STP state of spec §3 "STP port record": its
// role in the tree, the best BPDU seen on its segment, and the timers
// driving its state transitions.
type PortRecord struct {
	ID         PortIdentifier
	State      PortState
	PathCost   uint32

	// DesignatedRoot/Bridge/Port/Cost is the best BPDU advertised on
	// this port's segment — by us if we are designated there, by a
	// neighbor otherwise.
	DesignatedRoot   BridgeID
	DesignatedBridge BridgeID
	DesignatedPort   PortIdentifier
	DesignatedCost   uint32

	enabled       bool
	lastBPDUAt    time.Time
	stateDeadline time.Time
}

func newPortRecord(id swtypes.PortID, priority uint8, pathCost uint32, self BridgeID) *PortRecord {
	ident := PortIdentifier{Priority: priority, Port: id}
	return &PortRecord{
		ID:               ident,
		State:            Disabled,
		PathCost:         pathCost,
		DesignatedRoot:   self,
		DesignatedBridge: self,
		DesignatedPort:   ident,
		DesignatedCost:   0,
	}
}

// isDesignatedBySelf reports whether self currently holds the
// designated role recorded for this port's segment.
func (p *PortRecord) isDesignatedBySelf(self BridgeID) bool {
	return p.DesignatedBridge.Equal(self)
}
