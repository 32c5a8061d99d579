package ethdriver

import (
	"bytes"
	"testing"

	"github.com/krisarmstrong/switchsim/pkg/packetbuf"
	"github.com/krisarmstrong/switchsim/pkg/swtypes"
)

func newAlloc(t *testing.T) *packetbuf.Allocator {
	t.Helper()
	a := packetbuf.NewAllocator()
	if err := a.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return a
}

func TestDecodeEncodeUntaggedRoundTrip(t *testing.T) {
	alloc := newAlloc(t)
	raw := append([]byte{
		0x02, 0x00, 0x00, 0x00, 0x00, 0x01, // dst
		0x02, 0x00, 0x00, 0x00, 0x00, 0x02, // src
		0x08, 0x00, // IPv4
	}, []byte("payload")...)

	buf, err := Decode(alloc, raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if buf.Meta.VLAN != packetbuf.NoVLAN {
		t.Fatalf("expected untagged frame, got VLAN %d", buf.Meta.VLAN)
	}
	if buf.Meta.EtherType != 0x0800 {
		t.Fatalf("EtherType = %#x, want 0x0800", buf.Meta.EtherType)
	}

	wire, err := Encode(buf)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.Equal(wire, raw) {
		t.Fatalf("round trip mismatch: got %x want %x", wire, raw)
	}
}

func TestDecodeStripsVLANTag(t *testing.T) {
	alloc := newAlloc(t)
	raw := []byte{
		0x02, 0x00, 0x00, 0x00, 0x00, 0x01,
		0x02, 0x00, 0x00, 0x00, 0x00, 0x02,
		0x81, 0x00, // 802.1Q TPID
		0x00, 0x64, // priority 0, VLAN 100
		0x08, 0x00,
		'h', 'i',
	}
	buf, err := Decode(alloc, raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if buf.Meta.VLAN != 100 {
		t.Fatalf("VLAN = %d, want 100", buf.Meta.VLAN)
	}
	if buf.Meta.EtherType != 0x0800 {
		t.Fatalf("EtherType = %#x, want 0x0800", buf.Meta.EtherType)
	}
	if got := buf.Bytes()[ethernetHeaderLen:]; !bytes.Equal(got, []byte("hi")) {
		t.Fatalf("payload = %q, want %q", got, "hi")
	}
}

func TestEncodeReinsertsVLANTag(t *testing.T) {
	alloc := newAlloc(t)
	buf, err := alloc.Alloc(ethernetHeaderLen + 2)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	buf.Meta.DstMAC = swtypes.MAC{0x02, 0, 0, 0, 0, 1}
	buf.Meta.SrcMAC = swtypes.MAC{0x02, 0, 0, 0, 0, 2}
	buf.Meta.EtherType = 0x0800
	buf.Meta.VLAN = 100
	writeHeader(buf, buf.Meta.DstMAC, buf.Meta.SrcMAC, buf.Meta.EtherType)
	copy(buf.Bytes()[ethernetHeaderLen:], []byte("hi"))

	wire, err := Encode(buf)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(wire) != ethernetHeaderLen+4+2 {
		t.Fatalf("tagged frame length = %d, want %d", len(wire), ethernetHeaderLen+4+2)
	}
	if wire[12] != 0x81 || wire[13] != 0x00 {
		t.Fatalf("expected 802.1Q TPID at offset 12, got %x %x", wire[12], wire[13])
	}
}
