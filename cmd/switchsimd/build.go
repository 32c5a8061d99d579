package main

import (
	"fmt"
	"net"
	"time"

	"github.com/krisarmstrong/switchsim/internal/logsink"
	"github.com/krisarmstrong/switchsim/internal/simconfig"
	"github.com/krisarmstrong/switchsim/pkg/hal"
	"github.com/krisarmstrong/switchsim/pkg/l2"
	"github.com/krisarmstrong/switchsim/pkg/packetbuf"
	"github.com/krisarmstrong/switchsim/pkg/pipeline"
	"github.com/krisarmstrong/switchsim/pkg/portsim"
	"github.com/krisarmstrong/switchsim/pkg/routing"
	"github.com/krisarmstrong/switchsim/pkg/routing/ospf"
	"github.com/krisarmstrong/switchsim/pkg/routing/rip"
	"github.com/krisarmstrong/switchsim/pkg/stp"
	"github.com/krisarmstrong/switchsim/pkg/swtypes"
)

// Simulator bundles every component a running switchsimd instance
// needs, wired together from a simconfig.Config.
type Simulator struct {
	Log       logsink.Sink
	Substrate *portsim.Substrate
	Alloc     *packetbuf.Allocator
	Chain     *pipeline.Chain
	MACTable  *l2.Table
	Forwarder *l2.Forwarder
	Bridge    *stp.Bridge
	Routes    *routing.Table
	RIP       *rip.Adapter
	OSPF      *ospf.Adapter
	Loop      *hal.Loop

	portByName map[string]swtypes.PortID
}

// Build wires a full Simulator from a validated configuration.
func Build(cfg *simconfig.Config) (*Simulator, error) {
	sink := logsink.NewConsoleSink(simconfig.LogLevel(cfg.Log.Level))
	for cat, level := range cfg.Log.Categories {
		sink.SetCategoryLevel(logsink.Category(cat), simconfig.LogLevel(level))
	}

	substrate, err := portsim.NewSubstrate(0, cfg.MaxPorts)
	if err != nil {
		return nil, err
	}
	alloc := packetbuf.NewAllocator()
	if err := alloc.Init(); err != nil {
		return nil, err
	}
	chain := pipeline.NewChain(substrate, 32)
	if err := chain.Init(); err != nil {
		return nil, err
	}

	sim := &Simulator{
		Log:        sink,
		Substrate:  substrate,
		Alloc:      alloc,
		Chain:      chain,
		portByName: make(map[string]swtypes.PortID),
	}

	for _, pc := range cfg.Ports {
		id, err := substrate.AddPort(pc.Name, portsim.Physical)
		if err != nil {
			return nil, fmt.Errorf("provision port %q: %w", pc.Name, err)
		}
		sim.portByName[pc.Name] = id
		portCfg := portsim.DefaultAdminConfig()
		portCfg.MTU = pc.MTU
		portCfg.PVID = pc.PVID
		portCfg.CarrierLossProbability = pc.CarrierLossProbability
		portCfg.TrafficGenEnabled = pc.TrafficGenEnabled
		if err := substrate.SetConfig(id, portCfg); err != nil {
			return nil, fmt.Errorf("configure port %q: %w", pc.Name, err)
		}
	}

	sim.MACTable = l2.NewTable(4096)
	sim.Forwarder = l2.NewForwarder(sim.MACTable, substrate, chain, alloc)
	if _, err := chain.Register(100, sim.Forwarder.Process); err != nil {
		return nil, err
	}

	if cfg.STP.Enabled {
		bridge := stp.NewBridge(stp.BridgeID{Priority: cfg.STP.BridgePriority, MAC: firstPortMAC(substrate)})
		bridge.SetTimers(cfg.STP.HelloTime, cfg.STP.MaxAge, cfg.STP.ForwardDelay)
		for _, pc := range cfg.Ports {
			id := sim.portByName[pc.Name]
			if err := bridge.AddPort(id, pc.STPPortPriority, pc.STPPathCost); err != nil {
				return nil, err
			}
			if err := bridge.Enable(id, time.Now()); err != nil {
				return nil, err
			}
		}
		sim.Bridge = bridge
		chain.SetForwardGate(bridge)
		if _, err := chain.Register(10, stp.Processor(bridge, nil)); err != nil {
			return nil, err
		}
	}

	sim.Routes = routing.NewTable(1024)
	for _, rs := range cfg.Routes {
		entry, err := buildRouteEntry(rs, sim.portByName)
		if err != nil {
			return nil, fmt.Errorf("seed route %q: %w", rs.Prefix, err)
		}
		if err := sim.Routes.Add(entry, time.Now()); err != nil {
			return nil, err
		}
	}

	if cfg.RIP.Enabled {
		sim.RIP = rip.NewAdapter(sim.Routes)
		sim.RIP.Timeout = cfg.RIP.NeighborTimeout
	}
	if cfg.OSPF.Enabled {
		sim.OSPF = ospf.NewAdapter(sim.Routes)
		sim.OSPF.DeadInterval = cfg.OSPF.DeadInterval
	}

	sim.Loop = hal.NewLoop(substrate, chain, alloc, sink)
	sim.Loop.Period = cfg.TickPeriod
	sim.Loop.TrafficRatePerSec = cfg.TrafficRate
	sim.Loop.SetTickHandler(sim.tickProtocols)

	return sim, nil
}

// tickProtocols advances every time-driven protocol state machine the
// simulator is running, and ages stale MAC-table bindings. Without this,
// STP's forward-delay timer never elapses and RIP/OSPF neighbor timeouts
// never fire outside of a test calling Tick directly.
func (s *Simulator) tickProtocols(now time.Time) {
	if s.MACTable != nil {
		s.MACTable.Age(now)
	}
	if s.Bridge != nil {
		s.Bridge.Tick(now)
	}
	if s.RIP != nil {
		s.RIP.Tick(now)
	}
	if s.OSPF != nil {
		s.OSPF.Tick(now)
	}
}

func firstPortMAC(substrate *portsim.Substrate) swtypes.MAC {
	if substrate.Count() == 0 {
		return swtypes.MACFromPort(0)
	}
	info, err := substrate.GetInfo(0)
	if err != nil {
		return swtypes.MACFromPort(0)
	}
	return info.MAC
}

func buildRouteEntry(rs simconfig.RouteSeed, ports map[string]swtypes.PortID) (routing.Entry, error) {
	_, ipnet, err := net.ParseCIDR(rs.Prefix)
	if err != nil {
		return routing.Entry{}, err
	}
	ones, _ := ipnet.Mask.Size()
	prefix := swtypes.Prefix{Addr: ipFromNet(ipnet.IP), Len: ones}

	nextHop := swtypes.ZeroIP4
	if rs.NextHop != "" {
		parsed := net.ParseIP(rs.NextHop).To4()
		if parsed == nil {
			return routing.Entry{}, fmt.Errorf("invalid next_hop %q", rs.NextHop)
		}
		nextHop = swtypes.IPv4FromBytes(parsed)
	}

	port, ok := ports[rs.Port]
	if rs.Port != "" && !ok {
		return routing.Entry{}, fmt.Errorf("unknown port %q", rs.Port)
	}
	if !ok {
		port = swtypes.InvalidPort
	}

	source := simconfig.RouteSourceKind(rs.Source)
	return routing.Entry{
		Prefix:     prefix,
		NextHop:    nextHop,
		EgressPort: port,
		Metric:     rs.Metric,
		Distance:   routing.AdministrativeDistance(source),
		Source:     source,
	}, nil
}

func ipFromNet(ip net.IP) swtypes.IP {
	if v4 := ip.To4(); v4 != nil {
		return swtypes.IPv4FromBytes(v4)
	}
	return swtypes.IPv6FromBytes(ip.To16())
}

// Start brings the simulator's background loop up.
func (s *Simulator) Start() error { return s.Loop.Start() }

// Stop brings the simulator's background loop down.
func (s *Simulator) Stop() error { return s.Loop.Stop() }
