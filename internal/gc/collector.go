// Package gc implements the VM's precise, stop-the-world, moving
// collector (spec §4.7): mark+relocate over meta pointer bitmaps and
// per-function stack pointer maps, rooted at persistent handles,
// handle-scope slots, and every active interpreter frame.
//
// Design simplification, recorded in DESIGN.md: the spec describes two
// strategies — semi-space copying for the new generation, mark+compact
// for the old — but both ultimately relocate every live block and
// rewrite every pointer to it. This collector folds them into one
// evacuating pass per cycle: every block reachable from a root, whether
// currently in New or Old space, is copied into a freshly allocated Old
// generation; New space (now fully evacuated) and the previous Old space
// (now fully compacted away) are discarded afterward. Incremental or
// partial (new-space-only) collection is out of scope — "incremental
// garbage collection" is an explicit spec Non-goal — and every Collect
// call performs a full trace. The collector carries a remembered set fed
// by RecordWrite, but nothing in the module calls RecordWrite and Collect
// never consults the set; it only clears it.
package gc

import (
	"encoding/binary"

	"github.com/charygao/gypsum/internal/heap"
	"github.com/charygao/gypsum/internal/memory"
	"github.com/charygao/gypsum/internal/objmodel"
	"github.com/charygao/gypsum/internal/types"
)

// FrameRoots is the narrow interface the interpreter's call stack
// implements so the collector can visit every active frame's live
// locals+operand slots (spec §4.7's third root kind) without gc importing
// internal/interp.
type FrameRoots interface {
	ForEachFrameRoot(fn func(slot *memory.Address))
}

// Collector is the VM's garbage collector. It implements heap.Collector,
// so a Heap can call back into it on allocation exhaustion.
type Collector struct {
	heap   *heap.Heap
	frames FrameRoots

	// remembered records the blocks passed to RecordWrite since the last
	// cycle. Collect clears it without reading it (see the package doc).
	remembered map[memory.Address]struct{}
}

// New constructs a Collector over h. Callers must still call
// h.SetCollector(c) to wire it in, and SetFrameRoots once the
// interpreter's call stack exists.
func New(h *heap.Heap) *Collector {
	return &Collector{heap: h, remembered: map[memory.Address]struct{}{}}
}

func (c *Collector) SetFrameRoots(fr FrameRoots) { c.frames = fr }

// RecordWrite adds block to the remembered set. The interpreter does not
// call it: STF/STFF/STE/STGF store pointer values without a write barrier.
func (c *Collector) RecordWrite(block memory.Address) {
	c.remembered[block] = struct{}{}
}

// Collect runs one full collection cycle (spec §4.7).
func (c *Collector) Collect() error {
	dest := c.heap.BeginEvacuation()
	var gray []memory.Address
	var relocErr error

	relocate := func(slot *memory.Address) {
		if relocErr != nil {
			return
		}
		old := *slot
		if old.IsZero() {
			return
		}
		hdrBytes := c.heap.Bytes(old, objmodel.HeaderSize)
		hdr := objmodel.ReadHeader(hdrBytes)
		if hdr.Forwarded() {
			*slot = hdr.ForwardingAddr()
			return
		}
		nw, err := c.copyBlock(dest, old)
		if err != nil {
			relocErr = err
			return
		}
		objmodel.WriteHeader(hdrBytes, hdr.WithForwardingAddr(nw))
		*slot = nw
		gray = append(gray, nw)
	}

	c.heap.ForEachRoot(relocate)
	if c.frames != nil {
		c.frames.ForEachFrameRoot(relocate)
	}
	for len(gray) > 0 && relocErr == nil {
		a := gray[len(gray)-1]
		gray = gray[:len(gray)-1]
		c.scanFields(a, relocate)
	}
	if relocErr != nil {
		return relocErr
	}

	c.heap.FinishEvacuation(dest)
	c.remembered = map[memory.Address]struct{}{}
	return nil
}

func (c *Collector) copyBlock(dest *heap.Space, old memory.Address) (memory.Address, error) {
	size := c.heap.Size(old)
	nw, err := c.heap.AllocateIn(dest, size)
	if err != nil {
		return 0, err
	}
	copy(c.heap.Bytes(nw, size), c.heap.Bytes(old, size))
	return nw, nil
}

// scanFields visits every reference-holding word of the (already
// relocated, already forwarding-free) block at address a, relocating
// whatever it points to and rewriting the field in place.
func (c *Collector) scanFields(a memory.Address, relocate func(*memory.Address)) {
	meta := c.heap.MetaOf(a)
	if meta.Class.IsArrayLike() {
		length := objmodel.ReadLength(c.heap.Bytes(a, objmodel.HeaderSize+objmodel.LengthFieldSize))
		elemWords := meta.ElementSize / types.WordSize
		for i := int64(0); i < length; i++ {
			base := objmodel.ElementOffset(meta, i)
			for w := int64(0); w < elemWords; w++ {
				if meta.IsPointerWord(w) {
					c.relocateWord(a.Add(base+w*types.WordSize), relocate)
				}
			}
		}
		return
	}
	words := meta.InstanceSize / types.WordSize
	for w := int64(0); w < words; w++ {
		if meta.IsPointerWord(w) {
			c.relocateWord(a.Add(objmodel.HeaderSize+w*types.WordSize), relocate)
		}
	}
}

func (c *Collector) relocateWord(fieldAddr memory.Address, relocate func(*memory.Address)) {
	raw := c.heap.Bytes(fieldAddr, types.WordSize)
	v := memory.Address(binary.LittleEndian.Uint64(raw))
	orig := v
	relocate(&v)
	if v != orig {
		binary.LittleEndian.PutUint64(raw, uint64(v))
	}
}
