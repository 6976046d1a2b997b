package heap

import (
	"errors"
	"fmt"

	"github.com/charygao/gypsum/internal/memory"
	"github.com/charygao/gypsum/internal/objmodel"
	"github.com/charygao/gypsum/internal/types"
)

// ErrHeapExhausted is returned when allocation fails even after a GC
// cycle frees what it can (spec §7 "Heap exhaustion").
var ErrHeapExhausted = errors.New("heap: exhausted")

// Collector is the narrow interface Heap needs from the garbage
// collector: run one collection cycle. Kept minimal and defined here
// (rather than importing internal/gc) so heap and gc don't form an import
// cycle — gc.Collector naturally implements this.
type Collector interface {
	Collect() error
}

// Heap is the VM's managed heap (spec §4.2): a new space and an old
// space, each a list of Chunks, plus the registry mapping MetaID to Meta
// and the handle-scope stack giving GC-safe roots to host code.
type Heap struct {
	Registry *objmodel.MetaRegistry
	Lookup   *memory.Lookup

	New *Space
	Old *OldSpace

	collector Collector

	scopes     []*HandleScope
	persistent *persistentPool
}

// Space is exported alias used by callers outside the package (e.g. gc)
// that need to enumerate chunks; wraps the unexported space type's public
// surface.
type Space = space

// OldSpace is the mark-compact generation; identical storage shape to
// Space, kept as a distinct name so call sites read clearly (spec §4.7:
// "semi-space for new, mark+compact for old").
type OldSpace = space

func New(chunkSize int64) *Heap {
	if chunkSize <= 0 {
		chunkSize = memory.DefaultChunkSize
	}
	h := &Heap{
		Registry:   objmodel.NewMetaRegistry(),
		Lookup:     memory.NewLookup(chunkSize),
		New:        newSpace("new", chunkSize, false),
		Old:        newSpace("old", chunkSize, false),
		persistent: newPersistentPool(),
	}
	return h
}

// SetCollector installs the collector Allocate falls back to on
// exhaustion. The VM wires this after constructing both the Heap and the
// gc.Collector, since the collector itself needs a reference back to the
// Heap (and to the interpreter, for frame roots).
func (h *Heap) SetCollector(c Collector) {
	h.collector = c
}

// Allocate reserves n zeroed bytes in new space, expanding the space or
// running a GC cycle as needed (spec §4.2 RETRY_WITH_GC). Every
// allocation call is a GC-safe point: any reference the caller holds
// outside a handle or the interpreter stack is invalid after this call
// returns, per the allocation contract in §4.2.
func (h *Heap) Allocate(n int64) (memory.Address, error) {
	if a, ok := h.New.tryAllocate(n); ok {
		return a, nil
	}
	if err := h.New.expand(h.Lookup, n); err == nil {
		if a, ok := h.New.tryAllocate(n); ok {
			return a, nil
		}
	}
	if h.collector != nil {
		if err := h.collector.Collect(); err != nil {
			return 0, fmt.Errorf("heap: gc: %w", err)
		}
		if a, ok := h.New.tryAllocate(n); ok {
			return a, nil
		}
		if err := h.New.expand(h.Lookup, n); err == nil {
			if a, ok := h.New.tryAllocate(n); ok {
				return a, nil
			}
		}
	}
	return 0, ErrHeapExhausted
}

// AllocateObject allocates and initializes a non-array-like block for
// class c's instances, tagging its header with meta's registered MetaID.
func (h *Heap) AllocateObject(meta *types.Meta, metaID objmodel.MetaID) (memory.Address, error) {
	size := objmodel.InstanceSize(meta, 0)
	a, err := h.Allocate(size)
	if err != nil {
		return 0, err
	}
	objmodel.WriteHeader(h.Bytes(a, size), objmodel.MakeHeader(metaID))
	return a, nil
}

// AllocateArray allocates and initializes an array-like block of the
// given element count.
func (h *Heap) AllocateArray(meta *types.Meta, metaID objmodel.MetaID, length int64) (memory.Address, error) {
	if length < 0 {
		return 0, fmt.Errorf("heap: AllocateArray: negative length %d", length)
	}
	size := objmodel.InstanceSize(meta, length)
	a, err := h.Allocate(size)
	if err != nil {
		return 0, err
	}
	raw := h.Bytes(a, size)
	objmodel.WriteHeader(raw, objmodel.MakeHeader(metaID))
	objmodel.WriteLength(raw, length)
	return a, nil
}

// Bytes returns the raw storage of the n bytes starting at address a.
func (h *Heap) Bytes(a memory.Address, n int64) []byte {
	c := h.Lookup.Find(a)
	if c == nil {
		panic(fmt.Sprintf("heap: Bytes: address %s not in any chunk", a))
	}
	return c.Slice(a, n)
}

// MetaOf returns the Meta describing the block at address a, by reading
// its header and looking the MetaID up in the registry.
func (h *Heap) MetaOf(a memory.Address) *types.Meta {
	hdr := objmodel.ReadHeader(h.Bytes(a, objmodel.HeaderSize))
	return h.Registry.Lookup(hdr.MetaID())
}

// Size returns the total size in bytes (including header) of the block
// at address a.
func (h *Heap) Size(a memory.Address) int64 {
	meta := h.MetaOf(a)
	length := int64(0)
	if meta.Class.IsArrayLike() {
		length = objmodel.ReadLength(h.Bytes(a, objmodel.HeaderSize+objmodel.LengthFieldSize))
	}
	return objmodel.InstanceSize(meta, length)
}
