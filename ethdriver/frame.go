// Package ethdriver is the thin adapter between the port substrate's
// byte-oriented buffers and Ethernet/802.1Q wire framing, plus an
// optional live-NIC transport built on gopacket/pcap.
//
// Internally every packetbuf.Buffer holds an untagged frame: a 14-byte
// Ethernet header (Meta.DstMAC/SrcMAC/EtherType) followed by payload,
// with VLAN membership carried out-of-band in Meta.VLAN/Priority. A
// 0x8100 tag, when present, exists only on the wire — ethdriver is
// where it is stripped on ingress and reinserted on egress.
package ethdriver

import (
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/krisarmstrong/switchsim/internal/simerr"
	"github.com/krisarmstrong/switchsim/pkg/packetbuf"
	"github.com/krisarmstrong/switchsim/pkg/swtypes"
)

const component = "ethdriver"

// dot1QTPID is the 802.1Q tag protocol identifier.
const dot1QTPID = 0x8100

const ethernetHeaderLen = 14

// Decode parses a raw wire frame (as read from a live NIC or test
// vector) into a freshly allocated, untagged internal buffer.
func Decode(alloc *packetbuf.Allocator, raw []byte) (*packetbuf.Buffer, error) {
	packet := gopacket.NewPacket(raw, layers.LayerTypeEthernet, gopacket.NoCopy)
	ethLayer := packet.Layer(layers.LayerTypeEthernet)
	if ethLayer == nil {
		return nil, simerr.New(component, "Decode", simerr.InvalidPacket, "no Ethernet layer")
	}
	eth := ethLayer.(*layers.Ethernet)

	vlan := packetbuf.NoVLAN
	priority := 0
	etherType := eth.EthernetType
	payload := eth.Payload
	if dot1q := packet.Layer(layers.LayerTypeDot1Q); dot1q != nil {
		tag := dot1q.(*layers.Dot1Q)
		vlan = int(tag.VLANIdentifier)
		priority = int(tag.Priority)
		etherType = tag.Type
		payload = tag.Payload
	}

	buf, err := alloc.Alloc(ethernetHeaderLen + len(payload))
	if err != nil {
		return nil, err
	}
	writeHeader(buf, swtypes.MACFromBytes(eth.DstMAC), swtypes.MACFromBytes(eth.SrcMAC), uint16(etherType))
	copy(buf.Bytes()[ethernetHeaderLen:], payload)

	buf.Meta.DstMAC = swtypes.MACFromBytes(eth.DstMAC)
	buf.Meta.SrcMAC = swtypes.MACFromBytes(eth.SrcMAC)
	buf.Meta.EtherType = uint16(etherType)
	buf.Meta.VLAN = vlan
	buf.Meta.Priority = priority
	return buf, nil
}

func writeHeader(buf *packetbuf.Buffer, dst, src swtypes.MAC, etherType uint16) {
	b := buf.Bytes()
	copy(b[0:6], dst.Bytes())
	copy(b[6:12], src.Bytes())
	b[12] = byte(etherType >> 8)
	b[13] = byte(etherType)
}

// Encode serializes buf's untagged internal frame onto the wire,
// inserting an 802.1Q tag when Meta.VLAN is set to something other
// than packetbuf.NoVLAN.
func Encode(buf *packetbuf.Buffer) ([]byte, error) {
	if !buf.Valid() || buf.Size() < ethernetHeaderLen {
		return nil, simerr.New(component, "Encode", simerr.InvalidPacket, "frame shorter than an Ethernet header")
	}
	payload := append([]byte(nil), buf.Bytes()[ethernetHeaderLen:]...)

	eth := &layers.Ethernet{
		SrcMAC:       buf.Meta.SrcMAC.Bytes(),
		DstMAC:       buf.Meta.DstMAC.Bytes(),
		EthernetType: layers.EthernetType(buf.Meta.EtherType),
	}
	sb := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true}

	if buf.Meta.VLAN == packetbuf.NoVLAN {
		if err := gopacket.SerializeLayers(sb, opts, eth, gopacket.Payload(payload)); err != nil {
			return nil, simerr.Wrap(component, "Encode", simerr.InvalidPacket, err)
		}
		return sb.Bytes(), nil
	}

	eth.EthernetType = dot1QTPID
	tag := &layers.Dot1Q{
		Priority:       uint8(buf.Meta.Priority),
		VLANIdentifier: uint16(buf.Meta.VLAN),
		Type:           layers.EthernetType(buf.Meta.EtherType),
	}
	if err := gopacket.SerializeLayers(sb, opts, eth, tag, gopacket.Payload(payload)); err != nil {
		return nil, simerr.Wrap(component, "Encode", simerr.InvalidPacket, err)
	}
	return sb.Bytes(), nil
}
