// Package swtypes defines the address and identifier types shared by
// every switchsim component: MAC/IPv4/IPv6 addresses, the generic IP
// union, and port identifiers.
package swtypes

import "fmt"

// MAC is a 6-byte Ethernet hardware address.
type MAC [6]byte

// BroadcastMAC is the all-ones Ethernet broadcast address.
var BroadcastMAC = MAC{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// ZeroMAC is the all-zero address, used as an "unset" sentinel.
var ZeroMAC MAC

// String renders the address as colon-separated hex, e.g. "02:00:00:00:01:2c".
func (m MAC) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", m[0], m[1], m[2], m[3], m[4], m[5])
}

// IsBroadcast reports whether m is the all-ones address.
func (m MAC) IsBroadcast() bool { return m == BroadcastMAC }

// IsMulticast reports whether m's I/G bit (LSB of the first octet) is
// set. The broadcast address is also multicast by this bit test, but
// callers needing to distinguish broadcast should check IsBroadcast
// first — this mirrors the classification order in the port substrate
// (§4.2): broadcast is checked before multicast.
func (m MAC) IsMulticast() bool { return m[0]&0x01 != 0 }

// IsZero reports whether m is the all-zero address.
func (m MAC) IsZero() bool { return m == ZeroMAC }

// MACFromPort derives the locally-administered unicast MAC assigned to
// a simulated port, per the pattern in spec §6:
// 02:00:00:00:(port>>8):(port&0xFF).
func MACFromPort(port PortID) MAC {
	p := uint16(port)
	return MAC{0x02, 0x00, 0x00, 0x00, byte(p >> 8), byte(p)}
}

// Bytes returns a copy of the address as a byte slice.
func (m MAC) Bytes() []byte {
	b := make([]byte, 6)
	copy(b, m[:])
	return b
}

// MACFromBytes builds a MAC from a 6-byte slice. The caller must ensure
// len(b) >= 6.
func MACFromBytes(b []byte) MAC {
	var m MAC
	copy(m[:], b[:6])
	return m
}
