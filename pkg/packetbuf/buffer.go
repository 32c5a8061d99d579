// Package packetbuf implements the owned packet buffer of spec §3/§4.1:
// a byte storage region with capacity >= size, a metadata block, and an
// optional user pointer, mutated only by its current holder.
package packetbuf

import (
	"time"

	"github.com/krisarmstrong/switchsim/internal/simerr"
	"github.com/krisarmstrong/switchsim/pkg/swtypes"
)

const component = "packetbuf"

// NoVLAN is the "untagged" sentinel for Meta.VLAN.
const NoVLAN = -1

// Meta is the packet metadata block of spec §3.
type Meta struct {
	IngressPort swtypes.PortID
	EgressPort  swtypes.PortID
	Direction   swtypes.Direction
	VLAN        int
	Priority    int
	SrcMAC      swtypes.MAC
	DstMAC      swtypes.MAC
	EtherType   uint16
	Timestamp   time.Time
	Dropped     bool
}

// Buffer is an owned byte buffer with capacity >= size. storage's
// length is always equal to the buffer's capacity; only storage[:size]
// holds meaningful bytes. A Buffer has a single writer: the caller
// currently holding the pointer.
type Buffer struct {
	storage []byte
	size    int
	Meta    Meta
	User    any

	pooledBy *Allocator
}

// Size returns the number of valid payload bytes.
func (b *Buffer) Size() int { return b.size }

// Capacity returns the owned storage length.
func (b *Buffer) Capacity() int { return len(b.storage) }

// Bytes returns the valid payload as a slice sharing the buffer's
// backing array. Callers must not retain it past the buffer's next
// mutation.
func (b *Buffer) Bytes() []byte { return b.storage[:b.size] }

// valid reports whether b satisfies the core buffer invariant: non-nil
// storage and size <= capacity.
func (b *Buffer) valid() bool {
	return b != nil && b.storage != nil && b.size <= len(b.storage)
}

// Valid reports whether b satisfies the core buffer invariant (non-nil
// storage, size <= capacity). Exported for callers outside this package
// — the processor chain, in particular, must treat an invalid buffer as
// an immediate DROP per spec §4.4.
func (b *Buffer) Valid() bool { return b.valid() }

func invalidBuffer(op string) *simerr.Error {
	return simerr.New(component, op, simerr.InvalidPacket, "null storage or size exceeds capacity")
}

// GetHeader copies size bytes starting at offset out of the buffer's
// valid region.
func (b *Buffer) GetHeader(offset, size int) ([]byte, error) {
	if !b.valid() {
		return nil, invalidBuffer("GetHeader")
	}
	if offset < 0 || size < 0 || offset+size > b.size {
		return nil, simerr.New(component, "GetHeader", simerr.OutOfBounds, "offset/size exceeds buffer payload")
	}
	out := make([]byte, size)
	copy(out, b.storage[offset:offset+size])
	return out, nil
}

// SetHeader overwrites len(data) bytes starting at offset within the
// buffer's valid region.
func (b *Buffer) SetHeader(offset int, data []byte) error {
	if !b.valid() {
		return invalidBuffer("SetHeader")
	}
	if offset < 0 || offset+len(data) > b.size {
		return simerr.New(component, "SetHeader", simerr.OutOfBounds, "offset/size exceeds buffer payload")
	}
	copy(b.storage[offset:offset+len(data)], data)
	return nil
}

// growTo grows the backing array to at least n bytes, preserving
// the first b.size bytes. It is a no-op if capacity is already >= n.
func (b *Buffer) growTo(n int) {
	if len(b.storage) >= n {
		return
	}
	next := make([]byte, n)
	copy(next, b.storage[:b.size])
	b.storage = next
}

// Resize implements spec §4.1 resize: if newSize <= capacity only size
// changes; otherwise storage grows and both size and capacity change.
func (b *Buffer) Resize(newSize int) error {
	if !b.valid() {
		return invalidBuffer("Resize")
	}
	if newSize < 0 {
		return simerr.New(component, "Resize", simerr.InvalidParam, "negative size")
	}
	if newSize > len(b.storage) {
		b.growTo(newSize)
	}
	b.size = newSize
	return nil
}

// Insert splices data into the buffer at offset, growing capacity if
// needed and shifting the tail right.
func (b *Buffer) Insert(offset int, data []byte) error {
	if !b.valid() {
		return invalidBuffer("Insert")
	}
	if offset < 0 || offset > b.size {
		return simerr.New(component, "Insert", simerr.OutOfBounds, "insert offset beyond buffer payload")
	}
	n := len(data)
	if n == 0 {
		return nil
	}
	newSize := b.size + n
	b.growTo(newSize)
	// Shift the tail [offset:size) right by n to make room.
	copy(b.storage[offset+n:newSize], b.storage[offset:b.size])
	copy(b.storage[offset:offset+n], data)
	b.size = newSize
	return nil
}

// Remove deletes size bytes starting at offset, shifting the tail down.
// Capacity is unchanged; only size shrinks.
func (b *Buffer) Remove(offset, size int) error {
	if !b.valid() {
		return invalidBuffer("Remove")
	}
	if offset < 0 || size < 0 || offset+size > b.size {
		return simerr.New(component, "Remove", simerr.OutOfBounds, "remove range beyond buffer payload")
	}
	copy(b.storage[offset:b.size-size], b.storage[offset+size:b.size])
	b.size -= size
	return nil
}

// cloneInto deep-copies bytes and metadata into dst, leaving dst.User nil.
func cloneInto(dst, src *Buffer) {
	dst.storage = append([]byte(nil), src.storage[:src.size]...)
	dst.size = src.size
	dst.Meta = src.Meta
	dst.User = nil
}
