package portsim

import (
	"fmt"
	"sync"

	"github.com/krisarmstrong/switchsim/internal/simerr"
	"github.com/krisarmstrong/switchsim/pkg/swtypes"
)

// Substrate owns the dense 0..N-1 port array. Port identity is fixed at
// construction time up to MaxPorts; AddPort grows the provisioned set
// within that bound. The ports slice itself is only ever appended to
// under portsMu, so readers that already hold a *Port never need it.
type Substrate struct {
	portsMu sync.RWMutex
	ports   []*Port
	maxPorts int
}

// NewSubstrate creates a substrate with initialCount provisioned ports
// (named "ethN") bounded by maxPorts total.
func NewSubstrate(initialCount, maxPorts int) (*Substrate, error) {
	if initialCount < 0 || maxPorts < initialCount {
		return nil, simerr.New(component, "NewSubstrate", simerr.InvalidParam, "invalid port counts")
	}
	s := &Substrate{maxPorts: maxPorts}
	for i := 0; i < initialCount; i++ {
		id := swtypes.PortID(i)
		s.ports = append(s.ports, newPort(id, fmt.Sprintf("eth%d", i), Physical))
	}
	return s, nil
}

// AddPort provisions one more port of the given type and name, failing
// with ResourceExhausted once maxPorts is reached.
func (s *Substrate) AddPort(name string, ptype PortType) (swtypes.PortID, error) {
	s.portsMu.Lock()
	defer s.portsMu.Unlock()
	if len(s.ports) >= s.maxPorts {
		return swtypes.InvalidPort, simerr.New(component, "AddPort", simerr.ResourceExhausted, "maximum port count reached")
	}
	id := swtypes.PortID(len(s.ports))
	s.ports = append(s.ports, newPort(id, name, ptype))
	return id, nil
}

// Count returns the number of provisioned ports.
func (s *Substrate) Count() int {
	s.portsMu.RLock()
	defer s.portsMu.RUnlock()
	return len(s.ports)
}

func (s *Substrate) lookup(id swtypes.PortID) (*Port, error) {
	s.portsMu.RLock()
	defer s.portsMu.RUnlock()
	if id < 0 || int(id) >= len(s.ports) {
		return nil, simerr.New(component, "lookup", simerr.InvalidPort, fmt.Sprintf("port %d not provisioned", id))
	}
	return s.ports[id], nil
}

// Port returns the *Port for id, for use by components (pipeline, STP,
// L2) that need to call its methods directly under its own lock.
func (s *Substrate) Port(id swtypes.PortID) (*Port, error) { return s.lookup(id) }

// GetInfo returns a snapshot of port id.
func (s *Substrate) GetInfo(id swtypes.PortID) (Info, error) {
	p, err := s.lookup(id)
	if err != nil {
		return Info{}, err
	}
	return p.Info(), nil
}

// SetConfig replaces port id's admin configuration.
func (s *Substrate) SetConfig(id swtypes.PortID, cfg AdminConfig) error {
	p, err := s.lookup(id)
	if err != nil {
		return err
	}
	return p.SetConfig(cfg)
}

// SetAdminState sets port id's admin up/down state.
func (s *Substrate) SetAdminState(id swtypes.PortID, up bool) error {
	p, err := s.lookup(id)
	if err != nil {
		return err
	}
	p.SetAdminState(up)
	return nil
}

// GetStats returns port id's counters.
func (s *Substrate) GetStats(id swtypes.PortID) (Counters, error) {
	p, err := s.lookup(id)
	if err != nil {
		return Counters{}, err
	}
	return p.Info().Counters, nil
}

// ClearStats zeroes port id's counters.
func (s *Substrate) ClearStats(id swtypes.PortID) error {
	p, err := s.lookup(id)
	if err != nil {
		return err
	}
	p.ClearStats()
	return nil
}

// EnumeratePorts returns the identifiers of every provisioned port, in
// ascending order.
func (s *Substrate) EnumeratePorts() []swtypes.PortID {
	s.portsMu.RLock()
	defer s.portsMu.RUnlock()
	ids := make([]swtypes.PortID, len(s.ports))
	for i, p := range s.ports {
		ids[i] = p.id
	}
	return ids
}
