package stp

import (
	"time"

	"github.com/krisarmstrong/switchsim/internal/simerr"
	"github.com/krisarmstrong/switchsim/pkg/swtypes"
)

// ReceiveBPDU feeds a decoded BPDU heard on port into the state
// machine: it may supersede the current root, change which port holds
// the root role, or concede/claim the designated role on port's
// segment, per spec §4.6's superiority comparison.
func (b *Bridge) ReceiveBPDU(port swtypes.PortID, bpdu BPDU, now time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	pr, err := b.portLocked(port)
	if err != nil {
		return err
	}
	if !pr.enabled {
		return simerr.New(component, "ReceiveBPDU", simerr.PortDown, "port not enabled for STP")
	}
	pr.lastBPDUAt = now

	if bpdu.Type == TypeTCN {
		b.topologyChange = true
		b.topologyChangeExpiry = now.Add(b.maxAge + b.forwardDelay)
		return nil
	}

	pathCost := bpdu.RootPathCost + pr.PathCost
	candidate := BPDU{RootID: bpdu.RootID, RootPathCost: pathCost, SenderBridgeID: bpdu.SenderBridgeID, SenderPort: bpdu.SenderPort}
	current := BPDU{RootID: b.rootID, RootPathCost: b.rootPathCost, SenderBridgeID: b.id, SenderPort: pr.ID}
	if candidate.Less(current) {
		b.rootID = bpdu.RootID
		b.rootPathCost = pathCost
		b.rootPort = port
	}

	// Record what this segment's best-known designated bridge is,
	// regardless of whether it changed our own root — a later
	// recompute decides whether we still hold the designated role
	// there.
	pr.DesignatedRoot = bpdu.RootID
	pr.DesignatedBridge = bpdu.SenderBridgeID
	pr.DesignatedPort = bpdu.SenderPort
	pr.DesignatedCost = bpdu.RootPathCost
	if bpdu.TopologyChange {
		b.topologyChange = true
		b.topologyChangeExpiry = now.Add(b.maxAge + b.forwardDelay)
	}

	b.recomputeLocked(now)
	return nil
}

// recomputeLocked assigns each enabled port a role — root, designated,
// or blocked — given the bridge's current rootID/rootPathCost and each
// port's recorded segment state, then advances roles that just became
// eligible into LISTENING.
func (b *Bridge) recomputeLocked(now time.Time) {
	isRoot := b.rootID.Equal(b.id)
	for id, pr := range b.ports {
		if !pr.enabled {
			continue
		}
		if !isRoot && id == b.rootPort {
			b.beginForwardingLocked(pr, now)
			continue
		}
		ourAdvert := BPDU{RootID: b.rootID, RootPathCost: b.rootPathCost, SenderBridgeID: b.id, SenderPort: pr.ID}
		segmentBest := BPDU{RootID: pr.DesignatedRoot, RootPathCost: pr.DesignatedCost, SenderBridgeID: pr.DesignatedBridge, SenderPort: pr.DesignatedPort}
		if isRoot || pr.isDesignatedBySelf(b.id) || ourAdvert.Less(segmentBest) {
			pr.DesignatedRoot, pr.DesignatedBridge, pr.DesignatedPort, pr.DesignatedCost = b.rootID, b.id, pr.ID, b.rootPathCost
			b.beginForwardingLocked(pr, now)
		} else {
			pr.State = Blocking
			pr.stateDeadline = time.Time{}
		}
	}
}

// beginForwardingLocked starts (or continues) a port's progression
// toward FORWARDING. Ports already past BLOCKING are left alone so
// repeated recomputes don't reset an in-progress forward-delay wait.
func (b *Bridge) beginForwardingLocked(pr *PortRecord, now time.Time) {
	if pr.State == Blocking || pr.State == Disabled {
		pr.State = Listening
		pr.stateDeadline = now.Add(b.forwardDelay)
	}
}

// Tick advances timer-driven state: pending LISTENING/LEARNING
// transitions, stale-root detection via message-age expiry, topology-
// change flag expiry, and periodic hello emission on ports this
// bridge is designated on.
func (b *Bridge) Tick(now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	rootLost := false
	for id, pr := range b.ports {
		if !pr.enabled {
			continue
		}
		if id == b.rootPort && !pr.lastBPDUAt.IsZero() && now.Sub(pr.lastBPDUAt) > b.maxAge {
			rootLost = true
		}
		for !pr.stateDeadline.IsZero() && !now.Before(pr.stateDeadline) {
			switch pr.State {
			case Listening:
				pr.State = Learning
				pr.stateDeadline = pr.stateDeadline.Add(b.forwardDelay)
			case Learning:
				pr.State = Forwarding
				pr.stateDeadline = time.Time{}
			default:
				pr.stateDeadline = time.Time{}
			}
		}
	}
	if rootLost {
		b.rootID, b.rootPathCost, b.rootPort = b.id, 0, swtypes.InvalidPort
		b.loseRootAndReconverge(now)
		b.recomputeLocked(now)
	}
	if b.topologyChange && !b.topologyChangeExpiry.IsZero() && now.After(b.topologyChangeExpiry) {
		b.topologyChange = false
	}

	if b.Transmit == nil {
		return
	}
	if !b.lastHelloAt.IsZero() && now.Sub(b.lastHelloAt) < b.helloTime {
		return
	}
	b.lastHelloAt = now
	for id, pr := range b.ports {
		if !pr.enabled || !pr.isDesignatedBySelf(b.id) {
			continue
		}
		frame := Encode(b.bpduForLocked(pr), b.id.MAC)
		_ = b.Transmit(id, frame)
	}
}

func (b *Bridge) bpduForLocked(pr *PortRecord) BPDU {
	return BPDU{
		Type:           TypeConfig,
		TopologyChange: b.topologyChange,
		RootID:         b.rootID,
		RootPathCost:   b.rootPathCost,
		SenderBridgeID: b.id,
		SenderPort:     pr.ID,
		MessageAge:     0,
		MaxAge:         uint16(b.maxAge / time.Second),
		HelloTime:      uint16(b.helloTime / time.Second),
		ForwardDelay:   uint16(b.forwardDelay / time.Second),
	}
}
