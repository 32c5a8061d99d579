package packetbuf

import (
	"sync"

	"github.com/krisarmstrong/switchsim/internal/simerr"
)

// Allocator owns the packet-buffer pool. It must be initialized with
// Init before Alloc is called, per spec §4.1. Each Allocator is an
// independent, explicitly owned instance — no package-level global
// state — per the singleton-to-owned-value mapping in spec §9.
type Allocator struct {
	mu          sync.Mutex
	initialized bool
	pool        sync.Pool
}

// NewAllocator constructs an Allocator. Call Init before use.
func NewAllocator() *Allocator {
	a := &Allocator{}
	a.pool.New = func() any { return &Buffer{} }
	return a
}

// Init transitions the allocator into the ready state. Calling Init
// twice returns AlreadyInitialized without side effects.
func (a *Allocator) Init() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.initialized {
		return simerr.New(component, "Init", simerr.AlreadyInitialized, "")
	}
	a.initialized = true
	return nil
}

// Shutdown tears the allocator down; subsequent Alloc calls fail with
// NotInitialized until Init is called again.
func (a *Allocator) Shutdown() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.initialized {
		return simerr.New(component, "Shutdown", simerr.NotInitialized, "")
	}
	a.initialized = false
	return nil
}

func (a *Allocator) ready() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.initialized
}

// Alloc returns a zero-filled buffer of the given size, with capacity
// equal to size.
func (a *Allocator) Alloc(size int) (*Buffer, error) {
	if !a.ready() {
		return nil, simerr.New(component, "Alloc", simerr.NotInitialized, "")
	}
	if size <= 0 {
		return nil, simerr.New(component, "Alloc", simerr.InvalidParam, "zero or negative size")
	}
	return a.alloc(size), nil
}

func (a *Allocator) alloc(size int) *Buffer {
	buf := a.pool.Get().(*Buffer)
	buf.storage = make([]byte, size)
	buf.size = size
	buf.Meta = Meta{VLAN: NoVLAN, Direction: 0}
	buf.User = nil
	buf.pooledBy = a
	return buf
}

// Free returns buf to the pool. buf must not be used afterward.
func (a *Allocator) Free(buf *Buffer) error {
	if buf == nil {
		return simerr.New(component, "Free", simerr.InvalidParam, "nil buffer")
	}
	buf.storage = nil
	buf.size = 0
	buf.User = nil
	buf.pooledBy = nil
	a.pool.Put(buf)
	return nil
}

// Clone deep-copies buf's bytes and metadata into a freshly allocated
// buffer, leaving the clone's user pointer nil, per spec §3/§4.1.
func (a *Allocator) Clone(buf *Buffer) (*Buffer, error) {
	if !a.ready() {
		return nil, simerr.New(component, "Clone", simerr.NotInitialized, "")
	}
	if !buf.valid() {
		return nil, invalidBuffer("Clone")
	}
	dst := a.pool.Get().(*Buffer)
	cloneInto(dst, buf)
	dst.pooledBy = a
	return dst, nil
}
