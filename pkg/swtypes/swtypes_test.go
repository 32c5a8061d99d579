package swtypes

import "testing"

func TestMACFromPort(t *testing.T) {
	m := MACFromPort(300) // 0x012C
	want := MAC{0x02, 0x00, 0x00, 0x00, 0x01, 0x2c}
	if m != want {
		t.Fatalf("MACFromPort(300) = %v, want %v", m, want)
	}
	if m.IsBroadcast() || m.IsMulticast() {
		t.Fatalf("port-derived MAC must be locally administered unicast")
	}
}

func TestMACClassification(t *testing.T) {
	if !BroadcastMAC.IsBroadcast() {
		t.Fatalf("expected broadcast")
	}
	mcast := MAC{0x01, 0x00, 0x5e, 0, 0, 1}
	if !mcast.IsMulticast() || mcast.IsBroadcast() {
		t.Fatalf("expected multicast, not broadcast")
	}
}

func TestPrefixMatches(t *testing.T) {
	p := Prefix{Addr: IPv4FromBytes([]byte{192, 168, 1, 0}), Len: 24}
	if !p.Matches(IPv4FromBytes([]byte{192, 168, 1, 200})) {
		t.Fatalf("expected match within /24")
	}
	if p.Matches(IPv4FromBytes([]byte{192, 168, 2, 1})) {
		t.Fatalf("expected no match outside /24")
	}
}

func TestPrefixZeroLenMatchesAll(t *testing.T) {
	p := Prefix{Addr: IPv4FromBytes([]byte{0, 0, 0, 0}), Len: 0}
	if !p.Matches(IPv4FromBytes([]byte{8, 8, 8, 8})) {
		t.Fatalf("/0 must match everything")
	}
}

func TestPrefixNormalized(t *testing.T) {
	p := Prefix{Addr: IPv4FromBytes([]byte{192, 168, 1, 255}), Len: 24}
	n := p.Normalized()
	want := IPv4FromBytes([]byte{192, 168, 1, 0})
	if !n.Addr.Equal(want) {
		t.Fatalf("Normalized() = %v, want %v", n.Addr, want)
	}
}

func TestIPEqualRequiresSameFamily(t *testing.T) {
	v4 := IPv4FromBytes([]byte{1, 2, 3, 4})
	v6 := IPv6FromBytes(make([]byte, 16))
	if v4.Equal(v6) {
		t.Fatalf("addresses of different family must not be equal")
	}
}

func TestPrefixKeyDistinguishesLength(t *testing.T) {
	base := IPv4FromBytes([]byte{10, 0, 0, 0})
	k8 := Prefix{Addr: base, Len: 8}.Key()
	k16 := Prefix{Addr: base, Len: 16}.Key()
	if k8 == k16 {
		t.Fatalf("keys for different prefix lengths must differ")
	}
}
