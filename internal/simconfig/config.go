// Package simconfig loads and validates the YAML topology/configuration
// file a switchsim instance is built from: provisioned ports, VLANs,
// STP parameters, seed routes, routing-protocol adapters, the
// hardware-simulation tick interval, and log levels. Loading produces
// an immutable Config; nothing in the core mutates it after Build.
package simconfig

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/krisarmstrong/switchsim/internal/logsink"
	"github.com/krisarmstrong/switchsim/internal/simerr"
	"github.com/krisarmstrong/switchsim/pkg/portsim"
	"github.com/krisarmstrong/switchsim/pkg/routing"
)

const component = "simconfig"

// PortConfig describes one provisioned port.
type PortConfig struct {
	Name                   string  `yaml:"name"`
	MTU                    uint16  `yaml:"mtu"`
	PVID                   int     `yaml:"pvid"`
	TrunkVLANs             []int   `yaml:"trunk_vlans"`
	CarrierLossProbability float64 `yaml:"carrier_loss_probability"`
	TrafficGenEnabled      bool    `yaml:"traffic_gen_enabled"`
	STPPathCost            uint32  `yaml:"stp_path_cost"`
	STPPortPriority        uint8   `yaml:"stp_port_priority"`
}

// STPConfig carries bridge-level Spanning Tree parameters.
type STPConfig struct {
	Enabled       bool          `yaml:"enabled"`
	BridgePriority uint16       `yaml:"bridge_priority"`
	HelloTime     time.Duration `yaml:"hello_time"`
	MaxAge        time.Duration `yaml:"max_age"`
	ForwardDelay  time.Duration `yaml:"forward_delay"`
}

// RouteSeed is one statically configured routing-table entry loaded at
// startup, before any routing-protocol adapter runs.
type RouteSeed struct {
	Prefix   string `yaml:"prefix"`
	NextHop  string `yaml:"next_hop"`
	Port     string `yaml:"port"`
	Metric   uint32 `yaml:"metric"`
	Source   string `yaml:"source"`
}

// RIPConfig enables and tunes the RIP adapter.
type RIPConfig struct {
	Enabled         bool          `yaml:"enabled"`
	NeighborTimeout time.Duration `yaml:"neighbor_timeout"`
}

// OSPFConfig enables and tunes the OSPF adapter.
type OSPFConfig struct {
	Enabled      bool          `yaml:"enabled"`
	DeadInterval time.Duration `yaml:"dead_interval"`
}

// LogConfig sets the console sink's global and per-category levels.
type LogConfig struct {
	Level      string            `yaml:"level"`
	Categories map[string]string `yaml:"categories"`
}

// raw is the YAML document shape. Config below is the validated,
// immutable form the core is built from.
type raw struct {
	Ports       []PortConfig `yaml:"ports"`
	MaxPorts    int          `yaml:"max_ports"`
	TickPeriod  time.Duration `yaml:"tick_period"`
	TrafficRate float64      `yaml:"traffic_rate_per_sec"`
	STP         STPConfig    `yaml:"stp"`
	Routes      []RouteSeed  `yaml:"routes"`
	RIP         RIPConfig    `yaml:"rip"`
	OSPF        OSPFConfig   `yaml:"ospf"`
	Log         LogConfig    `yaml:"log"`
}

// Config is the validated, immutable configuration a simulator is
// built from. Construct via Load or Parse; there is no public
// constructor that skips validation.
type Config struct {
	Ports       []PortConfig
	MaxPorts    int
	TickPeriod  time.Duration
	TrafficRate float64
	STP         STPConfig
	Routes      []RouteSeed
	RIP         RIPConfig
	OSPF        OSPFConfig
	Log         LogConfig
}

// Load reads and validates a YAML configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, simerr.Wrap(component, "Load", simerr.NotFound, err)
	}
	return Parse(data)
}

// Parse validates a YAML document already in memory, for callers that
// load configuration from somewhere other than a plain file (embedded
// defaults, a config-management fetch).
func Parse(data []byte) (*Config, error) {
	var r raw
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, simerr.Wrap(component, "Parse", simerr.InvalidParam, err)
	}
	applyDefaults(&r)
	cfg := Config{
		Ports:       r.Ports,
		MaxPorts:    r.MaxPorts,
		TickPeriod:  r.TickPeriod,
		TrafficRate: r.TrafficRate,
		STP:         r.STP,
		Routes:      r.Routes,
		RIP:         r.RIP,
		OSPF:        r.OSPF,
		Log:         r.Log,
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(r *raw) {
	if r.MaxPorts == 0 {
		r.MaxPorts = 128
	}
	if r.TickPeriod == 0 {
		r.TickPeriod = 100 * time.Millisecond
	}
	if r.STP.BridgePriority == 0 {
		r.STP.BridgePriority = 32768
	}
	if r.STP.HelloTime == 0 {
		r.STP.HelloTime = 2 * time.Second
	}
	if r.STP.MaxAge == 0 {
		r.STP.MaxAge = 20 * time.Second
	}
	if r.STP.ForwardDelay == 0 {
		r.STP.ForwardDelay = 15 * time.Second
	}
	if r.RIP.NeighborTimeout == 0 {
		r.RIP.NeighborTimeout = 180 * time.Second
	}
	if r.OSPF.DeadInterval == 0 {
		r.OSPF.DeadInterval = 40 * time.Second
	}
	if r.Log.Level == "" {
		r.Log.Level = "info"
	}
	for i := range r.Ports {
		if r.Ports[i].MTU == 0 {
			r.Ports[i].MTU = portsim.MaxEthernetFrame
		}
		if r.Ports[i].PVID == 0 {
			r.Ports[i].PVID = 1
		}
		if r.Ports[i].STPPortPriority == 0 {
			r.Ports[i].STPPortPriority = 128
		}
		if r.Ports[i].STPPathCost == 0 {
			r.Ports[i].STPPathCost = 19
		}
	}
}

func validate(cfg *Config) error {
	if len(cfg.Ports) > cfg.MaxPorts {
		return simerr.New(component, "validate", simerr.InvalidParam,
			fmt.Sprintf("%d ports configured exceeds max_ports %d", len(cfg.Ports), cfg.MaxPorts))
	}
	if cfg.TickPeriod <= 0 {
		return simerr.New(component, "validate", simerr.InvalidParam, "tick_period must be positive")
	}
	if cfg.TrafficRate < 0 {
		return simerr.New(component, "validate", simerr.InvalidParam, "traffic_rate_per_sec must be non-negative")
	}

	names := make(map[string]bool, len(cfg.Ports))
	for i, p := range cfg.Ports {
		if p.Name == "" {
			return simerr.New(component, "validate", simerr.InvalidParam, fmt.Sprintf("port %d: name required", i))
		}
		if names[p.Name] {
			return simerr.New(component, "validate", simerr.AlreadyExists, fmt.Sprintf("duplicate port name %q", p.Name))
		}
		names[p.Name] = true
		if p.MTU < portsim.MinEthernetFrame || p.MTU > portsim.MaxEthernetFrame {
			return simerr.New(component, "validate", simerr.InvalidParam,
				fmt.Sprintf("port %q: mtu %d out of range [%d,%d]", p.Name, p.MTU, portsim.MinEthernetFrame, portsim.MaxEthernetFrame))
		}
		if p.CarrierLossProbability < 0 || p.CarrierLossProbability >= 1 {
			return simerr.New(component, "validate", simerr.InvalidParam,
				fmt.Sprintf("port %q: carrier_loss_probability must be in [0,1)", p.Name))
		}
	}

	for i, rt := range cfg.Routes {
		if rt.Prefix == "" {
			return simerr.New(component, "validate", simerr.InvalidParam, fmt.Sprintf("route %d: prefix required", i))
		}
		if !validRouteSource(rt.Source) {
			return simerr.New(component, "validate", simerr.InvalidParam, fmt.Sprintf("route %d: unknown source %q", i, rt.Source))
		}
	}
	return nil
}

func validRouteSource(s string) bool {
	switch s {
	case "", "connected", "static":
		return true
	default:
		return false
	}
}

// RouteSourceKind maps a seed route's textual source to a routing.Source,
// defaulting to Static for seed entries that don't name one — a seed
// file has no notion of a dynamically learned route.
func RouteSourceKind(s string) routing.Source {
	if s == "connected" {
		return routing.Connected
	}
	return routing.Static
}

// LogLevel parses a textual level name, defaulting to Info for an
// unrecognized or empty value.
func LogLevel(s string) logsink.Level {
	switch s {
	case "fatal":
		return logsink.Fatal
	case "error":
		return logsink.Error
	case "warn", "warning":
		return logsink.Warn
	case "debug":
		return logsink.Debug
	case "trace":
		return logsink.Trace
	default:
		return logsink.Info
	}
}
