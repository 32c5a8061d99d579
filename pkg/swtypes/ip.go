package swtypes

import (
	"bytes"
	"fmt"
	"net"
)

// Family distinguishes IPv4 from IPv6 addresses and routes.
type Family int

const (
	FamilyV4 Family = iota
	FamilyV6
)

func (f Family) String() string {
	if f == FamilyV6 {
		return "ipv6"
	}
	return "ipv4"
}

// MaxPrefixLen returns the bit width of the family's address (32 for
// v4, 128 for v6).
func (f Family) MaxPrefixLen() int {
	if f == FamilyV6 {
		return 128
	}
	return 32
}

// IPv4 is a 32-bit address stored MSB-first.
type IPv4 [4]byte

func (a IPv4) String() string { return fmt.Sprintf("%d.%d.%d.%d", a[0], a[1], a[2], a[3]) }

func (a IPv4) IsZero() bool { return a == IPv4{} }

// IPv6 is a 16-byte address.
type IPv6 [16]byte

func (a IPv6) String() string { return net.IP(a[:]).String() }

func (a IPv6) IsZero() bool { return a == IPv6{} }

// IP is a tagged union of {v4, v6}, equal-by-value and safe to use as a
// map key.
type IP struct {
	Family Family
	v4     IPv4
	v6     IPv6
}

// NewIPv4 wraps a 4-byte address as a generic IP.
func NewIPv4(a IPv4) IP { return IP{Family: FamilyV4, v4: a} }

// NewIPv6 wraps a 16-byte address as a generic IP.
func NewIPv6(a IPv6) IP { return IP{Family: FamilyV6, v6: a} }

// ZeroIP4 is the distinguished "no next hop / directly connected" value
// for IPv4, per spec §3 (route entry next-hop).
var ZeroIP4 = NewIPv4(IPv4{})

// ZeroIP6 is the IPv6 equivalent of ZeroIP4.
var ZeroIP6 = NewIPv6(IPv6{})

// AsV4 returns the underlying 4 bytes; valid only when Family == FamilyV4.
func (ip IP) AsV4() IPv4 { return ip.v4 }

// AsV6 returns the underlying 16 bytes; valid only when Family == FamilyV6.
func (ip IP) AsV6() IPv6 { return ip.v6 }

// IsZero reports whether ip is the all-zero address of its family.
func (ip IP) IsZero() bool {
	if ip.Family == FamilyV4 {
		return ip.v4.IsZero()
	}
	return ip.v6.IsZero()
}

// Bytes returns the address as a byte slice, MSB-first, sized per family.
func (ip IP) Bytes() []byte {
	if ip.Family == FamilyV4 {
		b := make([]byte, 4)
		copy(b, ip.v4[:])
		return b
	}
	b := make([]byte, 16)
	copy(b, ip.v6[:])
	return b
}

func (ip IP) String() string {
	if ip.Family == FamilyV4 {
		return ip.v4.String()
	}
	return ip.v6.String()
}

// Equal reports bytewise equality, requiring equal family.
func (ip IP) Equal(other IP) bool {
	if ip.Family != other.Family {
		return false
	}
	return bytes.Equal(ip.Bytes(), other.Bytes())
}

// IPv4FromBytes builds a generic v4 IP from a 4-byte slice.
func IPv4FromBytes(b []byte) IP {
	var a IPv4
	copy(a[:], b[:4])
	return NewIPv4(a)
}

// IPv6FromBytes builds a generic v6 IP from a 16-byte slice.
func IPv6FromBytes(b []byte) IP {
	var a IPv6
	copy(a[:], b[:16])
	return NewIPv6(a)
}

// Prefix is a generic-IP address plus a prefix length, bit-significant
// from the MSB. The bits outside Len must be zero for a well-formed
// prefix (routing.Table.Add applies Normalized on insert).
type Prefix struct {
	Addr IP
	Len  int
}

func (p Prefix) String() string { return fmt.Sprintf("%s/%d", p.Addr, p.Len) }

// Key returns a value suitable for use as an exact-match map key: the
// family, the masked address bytes, and the length.
func (p Prefix) Key() PrefixKey {
	return PrefixKey{Family: p.Addr.Family, Bytes: string(maskBytes(p.Addr.Bytes(), p.Len)), Len: p.Len}
}

// PrefixKey is the comparable, map-key-safe form of a Prefix.
type PrefixKey struct {
	Family Family
	Bytes  string
	Len    int
}

// maskBytes zeroes every bit beyond the first n bits of b (MSB-first).
func maskBytes(b []byte, n int) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	fullBytes := n / 8
	rem := n % 8
	for i := fullBytes; i < len(out); i++ {
		if i == fullBytes && rem > 0 {
			mask := byte(0xFF << (8 - rem))
			out[i] &= mask
		} else {
			out[i] = 0
		}
	}
	return out
}

// Matches reports whether addr's first p.Len bits (MSB-first) equal
// p.Addr's, per spec §4.7 "Prefix match". Families must agree.
func (p Prefix) Matches(addr IP) bool {
	if p.Addr.Family != addr.Family {
		return false
	}
	if p.Len == 0 {
		return true
	}
	a := maskBytes(p.Addr.Bytes(), p.Len)
	b := maskBytes(addr.Bytes(), p.Len)
	return bytes.Equal(a, b)
}

// Normalized returns p with the bits beyond Len cleared.
func (p Prefix) Normalized() Prefix {
	return Prefix{Addr: ipFromMasked(p.Addr.Family, maskBytes(p.Addr.Bytes(), p.Len)), Len: p.Len}
}

func ipFromMasked(f Family, b []byte) IP {
	if f == FamilyV4 {
		return IPv4FromBytes(b)
	}
	return IPv6FromBytes(b)
}
