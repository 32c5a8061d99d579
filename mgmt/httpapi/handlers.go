package httpapi

import (
	"encoding/hex"
	"net/http"
	"strconv"

	"github.com/krisarmstrong/switchsim/pkg/portsim"
	"github.com/krisarmstrong/switchsim/pkg/swtypes"
)

// PortView is the JSON shape of one port's admin/oper state and
// counters, including carrier-loss probability dual-exposed alongside
// the SNMP agent.
type PortView struct {
	ID                     int              `json:"id"`
	Name                   string           `json:"name"`
	AdminUp                bool             `json:"admin_up"`
	OperState              string           `json:"oper_state"`
	MTU                    uint16           `json:"mtu"`
	PVID                   int              `json:"pvid"`
	CarrierLossProbability float64          `json:"carrier_loss_probability"`
	Counters               portsim.Counters `json:"counters"`
}

func (s *Server) handlePorts(w http.ResponseWriter, r *http.Request) {
	if s.deps.Substrate == nil {
		http.Error(w, "port substrate not configured", http.StatusServiceUnavailable)
		return
	}
	var views []PortView
	for _, id := range s.deps.Substrate.EnumeratePorts() {
		info, err := s.deps.Substrate.GetInfo(id)
		if err != nil {
			continue
		}
		views = append(views, PortView{
			ID:                     int(id),
			Name:                   info.Name,
			AdminUp:                info.Config.AdminUp,
			OperState:              info.OperState.String(),
			MTU:                    info.Config.MTU,
			PVID:                   info.Config.PVID,
			CarrierLossProbability: info.Config.CarrierLossProbability,
			Counters:               info.Counters,
		})
	}
	writeJSON(w, views)
}

// MACEntryView is reported without exposing the table's internal
// binding type.
type MACEntryView struct {
	VLAN int    `json:"vlan"`
	MAC  string `json:"mac"`
	Port int    `json:"port"`
}

func (s *Server) handleMACTable(w http.ResponseWriter, r *http.Request) {
	if s.deps.MACTable == nil {
		http.Error(w, "mac table not configured", http.StatusServiceUnavailable)
		return
	}
	entries := s.deps.MACTable.Entries()
	views := make([]MACEntryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, MACEntryView{
			VLAN: e.VLAN,
			MAC:  e.MAC.String(),
			Port: int(e.Port),
		})
	}
	writeJSON(w, views)
}

// STPView summarizes the bridge's current spanning-tree role.
type STPView struct {
	BridgeID     string `json:"bridge_id"`
	RootID       string `json:"root_id"`
	RootPathCost uint32 `json:"root_path_cost"`
	RootPort     int    `json:"root_port"`
	IsRoot       bool   `json:"is_root"`
}

func (s *Server) handleSTP(w http.ResponseWriter, r *http.Request) {
	if s.deps.Bridge == nil {
		http.Error(w, "stp not configured", http.StatusServiceUnavailable)
		return
	}
	b := s.deps.Bridge
	writeJSON(w, STPView{
		BridgeID:     b.ID().String(),
		RootID:       b.RootID().String(),
		RootPathCost: b.RootPathCost(),
		RootPort:     int(b.RootPort()),
		IsRoot:       b.IsRoot(),
	})
}

// RouteView is one active routing-table entry.
type RouteView struct {
	Prefix     string `json:"prefix"`
	NextHop    string `json:"next_hop"`
	EgressPort int    `json:"egress_port"`
	Metric     uint32 `json:"metric"`
	Distance   uint8  `json:"distance"`
	Source     string `json:"source"`
}

func (s *Server) handleRoutes(w http.ResponseWriter, r *http.Request) {
	if s.deps.Routes == nil {
		http.Error(w, "routing table not configured", http.StatusServiceUnavailable)
		return
	}
	addr := r.URL.Query().Get("addr")
	if addr == "" {
		http.Error(w, "addr query parameter required (lookup is the only supported query)", http.StatusBadRequest)
		return
	}
	ip, err := parseIPv4(addr)
	if err != nil {
		http.Error(w, "invalid addr", http.StatusBadRequest)
		return
	}
	entry, err := s.deps.Routes.Lookup(ip)
	if err != nil {
		http.Error(w, "no route found", http.StatusNotFound)
		return
	}
	writeJSON(w, RouteView{
		Prefix:     entry.Prefix.String(),
		NextHop:    entry.NextHop.String(),
		EgressPort: int(entry.EgressPort),
		Metric:     entry.Metric,
		Distance:   entry.Distance,
		Source:     entry.Source.String(),
	})
}

// InjectRequest carries a hex-encoded raw frame and the ingress port to
// deliver it on.
type InjectRequest struct {
	Port int    `json:"port"`
	Hex  string `json:"hex"`
}

func (s *Server) handleInject(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	if s.deps.Loop == nil || s.deps.Alloc == nil {
		http.Error(w, "injection not configured", http.StatusServiceUnavailable)
		return
	}
	var req InjectRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	frame, err := hex.DecodeString(req.Hex)
	if err != nil {
		http.Error(w, "hex decode failed", http.StatusBadRequest)
		return
	}
	buf, err := s.deps.Alloc.Alloc(len(frame))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	copy(buf.Bytes(), frame)
	result, err := s.deps.Loop.Inject(buf, swtypes.PortID(req.Port))
	_ = s.deps.Alloc.Free(buf)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]string{"result": result.String()})
}

func parseIPv4(s string) (swtypes.IP, error) {
	var a, b, c, d int
	parts := [4]*int{&a, &b, &c, &d}
	start := 0
	idx := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == '.' {
			if idx > 3 {
				return swtypes.IP{}, errInvalidIPv4
			}
			n, err := strconv.Atoi(s[start:i])
			if err != nil || n < 0 || n > 255 {
				return swtypes.IP{}, errInvalidIPv4
			}
			*parts[idx] = n
			idx++
			start = i + 1
		}
	}
	if idx != 4 {
		return swtypes.IP{}, errInvalidIPv4
	}
	return swtypes.NewIPv4(swtypes.IPv4{byte(a), byte(b), byte(c), byte(d)}), nil
}
