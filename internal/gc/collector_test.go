package gc

import (
	"encoding/binary"
	"testing"

	"github.com/charygao/gypsum/internal/heap"
	"github.com/charygao/gypsum/internal/memory"
	"github.com/charygao/gypsum/internal/objmodel"
	"github.com/charygao/gypsum/internal/types"
)

// newNodeHeap builds a Heap with a registered "Node{val i64, next Node}"
// class, for exercising relocation across a self-referential pointer
// field.
func newNodeHeap(t *testing.T) (*heap.Heap, *types.Meta) {
	t.Helper()
	node := types.NewClassShell(types.NewName("Node"), nil)
	node.Fill(0, nil, nil, []types.Field{
		{Name: "val", Type: types.I64, Public: true},
		{Name: "next", Type: types.NewObjectType(node), Public: true},
	}, nil, nil, nil, -1)
	meta := types.BuildMeta(node)

	h := heap.New(0)
	h.Registry.Register(meta) // assigns MetaID 1, the first registered Meta
	return h, meta
}

func writeVal(h *heap.Heap, meta *types.Meta, a memory.Address, v int64) {
	off := objmodel.FieldOffset(&meta.Class.Fields[0])
	binary.LittleEndian.PutUint64(h.Bytes(a.Add(off), types.WordSize), uint64(v))
}

func readVal(h *heap.Heap, meta *types.Meta, a memory.Address) int64 {
	off := objmodel.FieldOffset(&meta.Class.Fields[0])
	return int64(binary.LittleEndian.Uint64(h.Bytes(a.Add(off), types.WordSize)))
}

func writeNext(h *heap.Heap, meta *types.Meta, a memory.Address, next memory.Address) {
	off := objmodel.FieldOffset(&meta.Class.Fields[1])
	binary.LittleEndian.PutUint64(h.Bytes(a.Add(off), types.WordSize), uint64(next))
}

func readNext(h *heap.Heap, meta *types.Meta, a memory.Address) memory.Address {
	off := objmodel.FieldOffset(&meta.Class.Fields[1])
	return memory.Address(binary.LittleEndian.Uint64(h.Bytes(a.Add(off), types.WordSize)))
}

func TestCollectRelocatesReachableChain(t *testing.T) {
	h, meta := newNodeHeap(t)
	metaID := objmodel.MetaID(1) // the only Meta registered by newNodeHeap

	c := New(h)
	h.SetCollector(c)

	scope := h.OpenScope()

	tail, err := h.AllocateObject(meta, metaID)
	if err != nil {
		t.Fatalf("AllocateObject: %v", err)
	}
	writeVal(h, meta, tail, 2)

	head, err := h.AllocateObject(meta, metaID)
	if err != nil {
		t.Fatalf("AllocateObject: %v", err)
	}
	writeVal(h, meta, head, 1)
	writeNext(h, meta, head, tail)

	handle := scope.New(head)

	if err := c.Collect(); err != nil {
		t.Fatalf("Collect: %v", err)
	}

	newHead := handle.Get()
	if readVal(h, meta, newHead) != 1 {
		t.Errorf("head.val survived as %d, want 1", readVal(h, meta, newHead))
	}
	newTail := readNext(h, meta, newHead)
	if newTail.IsZero() {
		t.Fatalf("head.next lost its pointer across collection")
	}
	if readVal(h, meta, newTail) != 2 {
		t.Errorf("tail.val survived as %d, want 2", readVal(h, meta, newTail))
	}
}

func TestCollectDropsUnreachableBlocks(t *testing.T) {
	h, meta := newNodeHeap(t)
	metaID := objmodel.MetaID(1)

	c := New(h)
	h.SetCollector(c)

	scope := h.OpenScope()
	kept, err := h.AllocateObject(meta, metaID)
	if err != nil {
		t.Fatalf("AllocateObject: %v", err)
	}
	writeVal(h, meta, kept, 42)
	handle := scope.New(kept)

	// An unreferenced object: nothing roots it, so collection must not
	// preserve it (only reachability matters, not allocation order).
	if _, err := h.AllocateObject(meta, metaID); err != nil {
		t.Fatalf("AllocateObject: %v", err)
	}

	if err := c.Collect(); err != nil {
		t.Fatalf("Collect: %v", err)
	}

	if readVal(h, meta, handle.Get()) != 42 {
		t.Errorf("kept object's value did not survive collection")
	}
}
