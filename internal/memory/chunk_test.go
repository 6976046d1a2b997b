package memory

import "testing"

func TestChunkAllocate(t *testing.T) {
	c, err := NewChunk(DefaultChunkSize, false)
	if err != nil {
		t.Fatalf("NewChunk: %v", err)
	}
	defer c.Release()

	r := NewAllocationRange(c)
	var got []Address
	for i := 0; i < 100; i++ {
		a, ok := r.Allocate(64)
		if !ok {
			t.Fatalf("allocate %d: range exhausted unexpectedly", i)
		}
		if !c.Contains(a) {
			t.Errorf("allocate %d: address %s not contained in chunk", i, a)
		}
		got = append(got, a)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Sub(got[i-1]) != 64 {
			t.Errorf("allocation %d not bump-contiguous: %s -> %s", i, got[i-1], got[i])
		}
	}
}

func TestAllocationRangeExhaustion(t *testing.T) {
	c, err := NewChunk(4096, false)
	if err != nil {
		t.Fatalf("NewChunk: %v", err)
	}
	defer c.Release()

	r := NewAllocationRange(c)
	before := r.Remaining()
	n := before + 8
	if _, ok := r.Allocate(n); ok {
		t.Fatalf("allocate %d: expected failure, range only has %d bytes", n, before)
	}
	if r.Remaining() != before {
		t.Fatalf("failed allocate moved base: remaining before=%d after=%d", before, r.Remaining())
	}
}

func TestLookup(t *testing.T) {
	l := NewLookup(DefaultChunkSize)
	c1, err := NewChunk(DefaultChunkSize, false)
	if err != nil {
		t.Fatalf("NewChunk: %v", err)
	}
	defer c1.Release()
	c2, err := NewChunk(DefaultChunkSize, false)
	if err != nil {
		t.Fatalf("NewChunk: %v", err)
	}
	defer c2.Release()
	l.Add(c1)
	l.Add(c2)

	r1 := NewAllocationRange(c1)
	a, ok := r1.Allocate(128)
	if !ok {
		t.Fatal("allocate failed")
	}
	interior := a.Add(64)
	if got := l.Find(interior); got != c1 {
		t.Errorf("Find(%s) = %v, want chunk 1", interior, got)
	}
	if got := l.Find(c2.StorageBase()); got != c2 {
		t.Errorf("Find(chunk2 base) = %v, want chunk 2", got)
	}

	l.Remove(c1)
	if got := l.Find(interior); got != nil {
		t.Errorf("Find after Remove = %v, want nil", got)
	}
}
