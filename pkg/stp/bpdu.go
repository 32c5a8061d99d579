package stp

import (
	"encoding/binary"

	"github.com/krisarmstrong/switchsim/internal/simerr"
	"github.com/krisarmstrong/switchsim/pkg/swtypes"
)

// BPDUMulticastMAC is the destination address of every STP BPDU.
var BPDUMulticastMAC = swtypes.MAC{0x01, 0x80, 0xC2, 0x00, 0x00, 0x00}

const (
	llcDSAP             = 0x42
	llcSSAP             = 0x42
	llcControl          = 0x03
	protocolIdentifier  = 0x0000
	protocolVersion     = 0x00
	ethernetHeaderLen   = 14
	commonHeaderLen     = ethernetHeaderLen + 3 + 2 + 1 + 1 // eth + LLC + proto id + version + bpdu type
	configPayloadLen    = 31
	ConfigBPDULen       = commonHeaderLen + configPayloadLen // 52
	TCNBPDULen          = commonHeaderLen                    // 21
	flagTopologyChange  = 0x01
	flagTopologyChgAck  = 0x80
)

// BPDUType distinguishes configuration BPDUs from topology-change
// notifications.
type BPDUType uint8

const (
	TypeConfig BPDUType = 0x00
	TypeTCN    BPDUType = 0x80
)

// BPDU is a decoded bridge protocol data unit, spec §6.
type BPDU struct {
	Type              BPDUType
	TopologyChange    bool
	TopologyChangeAck bool
	RootID            BridgeID
	RootPathCost      uint32
	SenderBridgeID    BridgeID
	SenderPort        PortIdentifier
	MessageAge        uint16 // seconds
	MaxAge            uint16 // seconds
	HelloTime         uint16 // seconds
	ForwardDelay      uint16 // seconds
}

// Less performs the spec §4.6 lexicographic comparison (root id,
// root-path cost, sender bridge id, sender port id) and reports
// whether b is superior (lower) to other.
func (b BPDU) Less(other BPDU) bool {
	if !b.RootID.Equal(other.RootID) {
		return b.RootID.Less(other.RootID)
	}
	if b.RootPathCost != other.RootPathCost {
		return b.RootPathCost < other.RootPathCost
	}
	if !b.SenderBridgeID.Equal(other.SenderBridgeID) {
		return b.SenderBridgeID.Less(other.SenderBridgeID)
	}
	return b.SenderPort.Less(other.SenderPort)
}

func secondsToWire(s uint16) uint16 { return s * 256 }
func wireToSeconds(v uint16) uint16 { return v / 256 }

// Encode renders a full Ethernet+LLC+BPDU frame (no VLAN tag) for b,
// with srcMAC as the Ethernet source address.
func Encode(b BPDU, srcMAC swtypes.MAC) []byte {
	if b.Type == TypeTCN {
		frame := make([]byte, TCNBPDULen)
		writeCommonHeader(frame, srcMAC, TypeTCN)
		return frame
	}
	frame := make([]byte, ConfigBPDULen)
	writeCommonHeader(frame, srcMAC, TypeConfig)
	off := commonHeaderLen
	flags := byte(0)
	if b.TopologyChange {
		flags |= flagTopologyChange
	}
	if b.TopologyChangeAck {
		flags |= flagTopologyChgAck
	}
	frame[off] = flags
	off++
	binary.BigEndian.PutUint16(frame[off:], b.RootID.Priority)
	copy(frame[off+2:off+8], b.RootID.MAC[:])
	off += 8
	binary.BigEndian.PutUint32(frame[off:], b.RootPathCost)
	off += 4
	binary.BigEndian.PutUint16(frame[off:], b.SenderBridgeID.Priority)
	copy(frame[off+2:off+8], b.SenderBridgeID.MAC[:])
	off += 8
	binary.BigEndian.PutUint16(frame[off:], b.SenderPort.wire())
	off += 2
	binary.BigEndian.PutUint16(frame[off:], secondsToWire(b.MessageAge))
	off += 2
	binary.BigEndian.PutUint16(frame[off:], secondsToWire(b.MaxAge))
	off += 2
	binary.BigEndian.PutUint16(frame[off:], secondsToWire(b.HelloTime))
	off += 2
	binary.BigEndian.PutUint16(frame[off:], secondsToWire(b.ForwardDelay))
	return frame
}

func writeCommonHeader(frame []byte, srcMAC swtypes.MAC, t BPDUType) {
	copy(frame[0:6], BPDUMulticastMAC[:])
	copy(frame[6:12], srcMAC[:])
	length := uint16(len(frame) - ethernetHeaderLen)
	binary.BigEndian.PutUint16(frame[12:14], length) // 802.3 length field, not an EtherType, for LLC frames
	frame[14] = llcDSAP
	frame[15] = llcSSAP
	frame[16] = llcControl
	binary.BigEndian.PutUint16(frame[17:19], protocolIdentifier)
	frame[19] = protocolVersion
	frame[20] = byte(t)
}

// Decode parses a BPDU out of a full Ethernet frame. It validates the
// destination MAC, LLC header, and protocol identifier/version before
// interpreting the payload.
func Decode(frame []byte) (BPDU, error) {
	if len(frame) < commonHeaderLen {
		return BPDU{}, simerr.New(component, "Decode", simerr.InvalidPacket, "frame shorter than BPDU common header")
	}
	if swtypes.MACFromBytes(frame[0:6]) != BPDUMulticastMAC {
		return BPDU{}, simerr.New(component, "Decode", simerr.InvalidPacket, "not addressed to the STP multicast MAC")
	}
	if frame[14] != llcDSAP || frame[15] != llcSSAP || frame[16] != llcControl {
		return BPDU{}, simerr.New(component, "Decode", simerr.InvalidPacket, "malformed LLC header")
	}
	if binary.BigEndian.Uint16(frame[17:19]) != protocolIdentifier || frame[19] != protocolVersion {
		return BPDU{}, simerr.New(component, "Decode", simerr.Unsupported, "unsupported STP protocol identifier/version")
	}
	t := BPDUType(frame[20])
	if t == TypeTCN {
		return BPDU{Type: TypeTCN}, nil
	}
	if t != TypeConfig {
		return BPDU{}, simerr.New(component, "Decode", simerr.Unsupported, "unsupported BPDU type")
	}
	if len(frame) < ConfigBPDULen {
		return BPDU{}, simerr.New(component, "Decode", simerr.InvalidPacket, "frame shorter than configuration BPDU")
	}
	off := commonHeaderLen
	flags := frame[off]
	off++
	var b BPDU
	b.Type = TypeConfig
	b.TopologyChange = flags&flagTopologyChange != 0
	b.TopologyChangeAck = flags&flagTopologyChgAck != 0
	b.RootID = BridgeID{Priority: binary.BigEndian.Uint16(frame[off:]), MAC: swtypes.MACFromBytes(frame[off+2 : off+8])}
	off += 8
	b.RootPathCost = binary.BigEndian.Uint32(frame[off:])
	off += 4
	b.SenderBridgeID = BridgeID{Priority: binary.BigEndian.Uint16(frame[off:]), MAC: swtypes.MACFromBytes(frame[off+2 : off+8])}
	off += 8
	b.SenderPort = portIdentifierFromWire(binary.BigEndian.Uint16(frame[off:]))
	off += 2
	b.MessageAge = wireToSeconds(binary.BigEndian.Uint16(frame[off:]))
	off += 2
	b.MaxAge = wireToSeconds(binary.BigEndian.Uint16(frame[off:]))
	off += 2
	b.HelloTime = wireToSeconds(binary.BigEndian.Uint16(frame[off:]))
	off += 2
	b.ForwardDelay = wireToSeconds(binary.BigEndian.Uint16(frame[off:]))
	return b, nil
}

// IsBPDU reports whether frame is addressed to the STP multicast MAC,
// without fully decoding it — used by the ingress processor to decide
// whether to hand a frame to the STP handler at all.
func IsBPDU(frame []byte) bool {
	return len(frame) >= 6 && swtypes.MACFromBytes(frame[0:6]) == BPDUMulticastMAC
}
