package heap

import "github.com/charygao/gypsum/internal/memory"

// The methods in this file are the narrow surface internal/gc needs to
// relocate blocks without reaching into space's unexported fields
// directly: a scratch destination space to evacuate into, a way to bump-
// allocate into an arbitrary space (not just New, which is all Allocate
// itself ever targets), and a way to install the result as the heap's new
// Old generation once a collection cycle finishes.

// BeginEvacuation returns a fresh, empty space sized like Old, for the
// collector to copy every surviving block into. Kept separate from Old
// itself so a mid-collection panic never leaves Old half-overwritten.
func (h *Heap) BeginEvacuation() *Space {
	return newSpace("gc-evac", h.Old.chunkSize, false)
}

// AllocateIn bump-allocates n bytes from s, expanding it with a fresh
// Chunk if its active range can't satisfy the request. Unlike Allocate,
// this never triggers a GC cycle itself — the collector calls this on
// the scratch space it owns exclusively during a collection.
func (h *Heap) AllocateIn(s *Space, n int64) (memory.Address, error) {
	if a, ok := s.tryAllocate(n); ok {
		return a, nil
	}
	if err := s.expand(h.Lookup, n); err != nil {
		return 0, err
	}
	a, ok := s.tryAllocate(n)
	if !ok {
		return 0, ErrHeapExhausted
	}
	return a, nil
}

// FinishEvacuation makes dest the heap's Old generation and discards
// every chunk previously backing New and Old: New because everything
// reachable in it was just promoted into dest, Old because everything
// reachable in it was just relocated (compacted) into dest too.
func (h *Heap) FinishEvacuation(dest *Space) {
	h.New.reset(h.Lookup)
	h.Old.reset(h.Lookup)
	h.Old = dest
}
