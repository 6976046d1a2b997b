package objmodel

import (
	"testing"

	"github.com/charygao/gypsum/internal/memory"
)

func TestTaggedRoundTrip(t *testing.T) {
	for _, n := range []int64{0, 1, -1, 42, -42, 1 << 40, -(1 << 40)} {
		tw := TagNumber(n)
		if !tw.IsNumber() || tw.IsPointer() {
			t.Fatalf("TagNumber(%d): IsNumber=%v IsPointer=%v, want true/false", n, tw.IsNumber(), tw.IsPointer())
		}
		if got := tw.GetNumber(); got != n {
			t.Errorf("TagNumber(%d).GetNumber() = %d", n, got)
		}
	}

	for _, a := range []memory.Address{0, 8, 1 << 20, 1 << 30} {
		tw := TagPointer(a)
		if !tw.IsPointer() || tw.IsNumber() {
			t.Fatalf("TagPointer(%s): IsPointer=%v IsNumber=%v, want true/false", a, tw.IsPointer(), tw.IsNumber())
		}
		if got := tw.GetPointer(); got != a {
			t.Errorf("TagPointer(%s).GetPointer() = %s", a, got)
		}
	}
}

func TestTaggedExactlyOneKind(t *testing.T) {
	words := []Tagged{TagNumber(0), TagNumber(-7), TagPointer(0), TagPointer(4096)}
	for _, w := range words {
		if w.IsNumber() == w.IsPointer() {
			t.Errorf("word %#x: IsNumber()=%v IsPointer()=%v, want exactly one true", uint64(w), w.IsNumber(), w.IsPointer())
		}
	}
}
