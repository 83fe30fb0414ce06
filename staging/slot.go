// Package staging holds the most recent encoded image until the host copies
// it out.
package staging

import "sync"

// Slot stores one encoded image. The zero value is empty and ready to use.
type Slot struct {
	mu   sync.RWMutex
	data []byte
}

// Store replaces the staged image. The slot takes ownership of b.
func (s *Slot) Store(b []byte) {
	s.mu.Lock()
	s.data = b
	s.mu.Unlock()
}

// Size is the length of the staged image, 0 when empty.
func (s *Slot) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Bytes returns the staged image. Callers must not modify it.
func (s *Slot) Bytes() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data
}

// CopyTo copies the leading min(len(dst), Size()) bytes of the staged image
// into dst and returns their number.
func (s *Slot) CopyTo(dst []byte) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copy(dst, s.data)
}
