// Package heap implements the VM's managed heap and handle scopes (spec
// §4.2): a heap built from Chunks organized into a new space and an old
// space, plus scoped and persistent handles giving host/interpreter code
// GC-safe references.
package heap

import "github.com/charygao/gypsum/internal/memory"

// space is one of the heap's new or old generations: a list of Chunks
// plus the currently active bump-pointer AllocationRange.
type space struct {
	name       string
	chunkSize  int64
	executable bool

	chunks []*memory.Chunk
	active *memory.AllocationRange
}

func newSpace(name string, chunkSize int64, executable bool) *space {
	return &space{name: name, chunkSize: chunkSize, executable: executable}
}

// tryAllocate attempts the active range only; it never expands the space.
func (s *space) tryAllocate(n int64) (memory.Address, bool) {
	if s.active == nil {
		return 0, false
	}
	return s.active.Allocate(n)
}

// expand obtains a fresh Chunk (sized to fit at least n bytes) and makes
// it the active allocation range, growing the space. Spec §4.2: "on
// failure it requests a new range (expanding the space)".
func (s *space) expand(lookup *memory.Lookup, n int64) error {
	size := s.chunkSize
	for size < n+4096 { // leave room for the chunk's own bitmap area
		size *= 2
	}
	c, err := memory.NewChunk(size, s.executable)
	if err != nil {
		return err
	}
	s.chunks = append(s.chunks, c)
	lookup.Add(c)
	s.active = memory.NewAllocationRange(c)
	return nil
}

// reset discards all chunks, returning their memory to the OS. Used when
// a generation is entirely replaced (e.g. new space after a scavenge, or
// old space after compaction relocates everything into fresh chunks).
func (s *space) reset(lookup *memory.Lookup) {
	for _, c := range s.chunks {
		lookup.Remove(c)
		c.Release()
	}
	s.chunks = nil
	s.active = nil
}
