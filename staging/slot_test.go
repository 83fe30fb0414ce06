package staging

import (
	"bytes"
	"testing"
)

func TestSlot(t *testing.T) {
	var s Slot
	if s.Size() != 0 || s.CopyTo(make([]byte, 4)) != 0 {
		t.Fatal("zero slot is not empty")
	}

	s.Store([]byte("abcdef"))
	if s.Size() != 6 {
		t.Errorf("Size = %d, want 6", s.Size())
	}

	for _, tc := range []struct {
		dst  int
		want string
	}{
		{0, ""},
		{3, "abc"},
		{6, "abcdef"},
		{10, "abcdef"},
	} {
		dst := make([]byte, tc.dst)
		n := s.CopyTo(dst)
		if got := dst[:n]; !bytes.Equal(got, []byte(tc.want)) {
			t.Errorf("CopyTo(%d bytes) = %q, want %q", tc.dst, got, tc.want)
		}
	}

	s.Store([]byte("xy"))
	if !bytes.Equal(s.Bytes(), []byte("xy")) {
		t.Errorf("Bytes = %q after second Store", s.Bytes())
	}
}
