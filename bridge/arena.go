// Package bridge implements the raw memory regions a host exchanges with the
// core: the host asks for a region, writes input bytes at its address, and
// later hands the address back together with a length.
//
// Every region stays alive in the Arena until it is released, so the garbage
// collector never reclaims memory the host still holds an address to. On a
// wasm target the Handle is the linear-memory offset of the region.
package bridge

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"
)

var (
	// ErrInvalidSize is returned when a negative size is requested.
	ErrInvalidSize = errors.New("bridge: invalid size")

	// ErrUnknownHandle is returned for handles that were never allocated or
	// have already been released.
	ErrUnknownHandle = errors.New("bridge: unknown handle")

	// ErrSizeMismatch is returned by Release when the caller's size differs
	// from the allocated size. The region is released anyway.
	ErrSizeMismatch = errors.New("bridge: size mismatch")

	// ErrOutOfBounds is returned when a view reaches past the end of a region.
	ErrOutOfBounds = errors.New("bridge: view out of bounds")
)

// Handle is the opaque address of a region.
type Handle uintptr

// Arena owns all regions handed out to the host.
//
// Arena is safe for concurrent use.
type Arena struct {
	mu      sync.Mutex
	regions map[Handle][]byte
}

// NewArena returns an empty arena.
func NewArena() *Arena {
	return &Arena{regions: make(map[Handle][]byte)}
}

// Allocate reserves size bytes and returns their address. A zero size is
// legal: the handle is unique but no bytes can be viewed through it.
func (a *Arena) Allocate(size int) (Handle, error) {
	if size < 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}

	// cap >= 1 keeps zero-sized regions at distinct addresses
	buf := make([]byte, size, max(size, 1))
	h := Handle(uintptr(unsafe.Pointer(unsafe.SliceData(buf))))

	a.mu.Lock()
	a.regions[h] = buf
	a.mu.Unlock()

	return h, nil
}

// Release drops the region at h. The recorded allocation size is
// authoritative; a different size from the caller is reported but does not
// keep the region alive.
func (a *Arena) Release(h Handle, size int) error {
	a.mu.Lock()
	buf, ok := a.regions[h]
	if ok {
		delete(a.regions, h)
	}
	a.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %#x", ErrUnknownHandle, uintptr(h))
	}
	if size != len(buf) {
		return fmt.Errorf("%w: released %d bytes at %#x, allocated %d", ErrSizeMismatch, size, uintptr(h), len(buf))
	}
	return nil
}

// View borrows the first n bytes of the region at h without copying.
func (a *Arena) View(h Handle, n int) ([]byte, error) {
	a.mu.Lock()
	buf, ok := a.regions[h]
	a.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("%w: %#x", ErrUnknownHandle, uintptr(h))
	}
	if n < 0 || n > len(buf) {
		return nil, fmt.Errorf("%w: %d bytes requested at %#x, region holds %d", ErrOutOfBounds, n, uintptr(h), len(buf))
	}
	return buf[:n:n], nil
}

// Size reports the allocated size of the region at h.
func (a *Arena) Size(h Handle) (int, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	buf, ok := a.regions[h]
	return len(buf), ok
}

// Live returns the number of regions not yet released.
func (a *Arena) Live() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	return len(a.regions)
}
