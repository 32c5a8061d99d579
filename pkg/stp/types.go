// Package stp implements the Spanning Tree Protocol state machine of
// spec §4.6 (C7): BPDU parse/emit, port-role election via BPDU
// superiority comparison, the DISABLED/BLOCKING/LISTENING/LEARNING/
// FORWARDING port state machine, topology-change propagation, and the
// per-port forwarding gate consumed by the datapath (C5/C6).
package stp

import (
	"bytes"
	"fmt"

	"github.com/krisarmstrong/switchsim/pkg/swtypes"
)

const component = "stp"

// BridgeID is a 16-bit priority concatenated with a 48-bit bridge MAC.
type BridgeID struct {
	Priority uint16
	MAC      swtypes.MAC
}

func (b BridgeID) String() string { return fmt.Sprintf("%d.%s", b.Priority, b.MAC) }

// Less reports whether b is a superior (lower) bridge id than other:
// lower priority wins, ties broken by lower MAC bytewise, per spec
// §4.6 "Bridge-id comparison".
func (b BridgeID) Less(other BridgeID) bool {
	if b.Priority != other.Priority {
		return b.Priority < other.Priority
	}
	return bytes.Compare(b.MAC[:], other.MAC[:]) < 0
}

// Equal reports exact equality.
func (b BridgeID) Equal(other BridgeID) bool {
	return b.Priority == other.Priority && b.MAC == other.MAC
}

// PortState is a port's place in the STP state machine of spec §4.6.
type PortState int

const (
	Disabled PortState = iota
	Blocking
	Listening
	Learning
	Forwarding
)

func (s PortState) String() string {
	switch s {
	case Blocking:
		return "BLOCKING"
	case Listening:
		return "LISTENING"
	case Learning:
		return "LEARNING"
	case Forwarding:
		return "FORWARDING"
	default:
		return "DISABLED"
	}
}

// PortIdentifier packs an 8-bit port priority with the port number, as
// carried on the wire in a configuration BPDU (spec §6).
type PortIdentifier struct {
	Priority uint8
	Port     swtypes.PortID
}

func (p PortIdentifier) wire() uint16 {
	return uint16(p.Priority)<<8 | uint16(uint8(p.Port))
}

func portIdentifierFromWire(v uint16) PortIdentifier {
	return PortIdentifier{Priority: uint8(v >> 8), Port: swtypes.PortID(uint8(v))}
}

// Less compares two (priority, port) pairs the same way bridge ids are
// compared: lower priority wins, ties broken by lower port number.
func (p PortIdentifier) Less(other PortIdentifier) bool {
	if p.Priority != other.Priority {
		return p.Priority < other.Priority
	}
	return p.Port < other.Port
}
