package snmp

import (
	"fmt"
	"time"

	"github.com/gosnmp/gosnmp"

	"github.com/krisarmstrong/switchsim/pkg/portsim"
)

// ifTable column OIDs under 1.3.6.1.2.1.2.2.1, indexed by ifIndex
// (port id + 1, matching SNMP's traditional 1-based ifIndex).
const (
	oidIfDescr       = "1.3.6.1.2.1.2.2.1.2"
	oidIfAdminStatus = "1.3.6.1.2.1.2.2.1.7"
	oidIfOperStatus  = "1.3.6.1.2.1.2.2.1.8"
	oidIfInOctets    = "1.3.6.1.2.1.2.2.1.10"
	oidIfInUcastPkts = "1.3.6.1.2.1.2.2.1.11"
	oidIfOutOctets   = "1.3.6.1.2.1.2.2.1.16"
	oidIfOutUcastPkts = "1.3.6.1.2.1.2.2.1.17"

	// carrierLossOIDBase is switchsim's private-enterprise extension:
	// 1.3.6.1.4.1.<switchsim>.1.<ifIndex> = carrier loss probability
	// scaled to parts-per-thousand (gosnmp.Integer has no native float type).
	carrierLossOIDBase = "1.3.6.1.4.1.55555.1"
)

// Agent is a read-only SNMP agent backed by a live port substrate.
type Agent struct {
	substrate *portsim.Substrate
	mib       *MIB
	startTime time.Time
	Community string
}

// NewAgent builds an agent over substrate and populates its MIB with
// IF-MIB and carrier-loss OIDs for every currently provisioned port.
// Ports added later are not retroactively picked up — Refresh must be
// called after topology changes.
func NewAgent(substrate *portsim.Substrate) *Agent {
	a := &Agent{substrate: substrate, mib: NewMIB(), startTime: time.Now(), Community: "public"}
	a.initSystemMIB()
	a.Refresh()
	return a
}

func (a *Agent) initSystemMIB() {
	a.mib.Set("1.3.6.1.2.1.1.1.0", &OIDValue{Type: gosnmp.OctetString, Value: "switchsim Ethernet switch simulator"})
	a.mib.SetDynamic("1.3.6.1.2.1.1.3.0", func() *OIDValue {
		uptime := time.Since(a.startTime)
		return &OIDValue{Type: gosnmp.TimeTicks, Value: uint32(uptime.Milliseconds() / 10)}
	})
}

// Refresh (re)installs one ifTable row and one carrier-loss OID per
// currently provisioned port. Call after AddPort grows the substrate.
func (a *Agent) Refresh() {
	for _, id := range a.substrate.EnumeratePorts() {
		id := id
		ifIndex := int(id) + 1
		port, err := a.substrate.Port(id)
		if err != nil {
			continue
		}
		a.mib.SetDynamic(fmt.Sprintf("%s.%d", oidIfDescr, ifIndex), func() *OIDValue {
			return &OIDValue{Type: gosnmp.OctetString, Value: port.Info().Name}
		})
		a.mib.SetDynamic(fmt.Sprintf("%s.%d", oidIfAdminStatus, ifIndex), func() *OIDValue {
			status := 2 // down
			if port.Info().Config.AdminUp {
				status = 1 // up
			}
			return &OIDValue{Type: gosnmp.Integer, Value: status}
		})
		a.mib.SetDynamic(fmt.Sprintf("%s.%d", oidIfOperStatus, ifIndex), func() *OIDValue {
			status := 2
			if port.Info().OperState == portsim.OperUp {
				status = 1
			}
			return &OIDValue{Type: gosnmp.Integer, Value: status}
		})
		a.mib.SetDynamic(fmt.Sprintf("%s.%d", oidIfInOctets, ifIndex), func() *OIDValue {
			return &OIDValue{Type: gosnmp.Counter32, Value: uint32(port.Info().Counters.RxBytes)}
		})
		a.mib.SetDynamic(fmt.Sprintf("%s.%d", oidIfInUcastPkts, ifIndex), func() *OIDValue {
			return &OIDValue{Type: gosnmp.Counter32, Value: uint32(port.Info().Counters.RxUnicast)}
		})
		a.mib.SetDynamic(fmt.Sprintf("%s.%d", oidIfOutOctets, ifIndex), func() *OIDValue {
			return &OIDValue{Type: gosnmp.Counter32, Value: uint32(port.Info().Counters.TxBytes)}
		})
		a.mib.SetDynamic(fmt.Sprintf("%s.%d", oidIfOutUcastPkts, ifIndex), func() *OIDValue {
			return &OIDValue{Type: gosnmp.Counter32, Value: uint32(port.Info().Counters.TxUnicast)}
		})
		a.mib.SetDynamic(fmt.Sprintf("%s.%d", carrierLossOIDBase, ifIndex), func() *OIDValue {
			perMille := int(port.Info().Config.CarrierLossProbability * 1000)
			return &OIDValue{Type: gosnmp.Integer, Value: perMille}
		})
	}
}

// Get resolves a single OID, for a caller implementing the SNMP
// GetRequest PDU over gosnmp's server-side types.
func (a *Agent) Get(oid string) *OIDValue { return a.mib.Get(oid) }

// GetNext resolves the walk-order successor of oid.
func (a *Agent) GetNext(oid string) (string, *OIDValue) { return a.mib.GetNext(oid) }
