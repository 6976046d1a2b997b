// Package vm is the VM's public host-embedding API (spec §4.1): load
// packages from a search path, look up their functions/globals/classes,
// invoke functions, and read or write globals, with the heap, collector
// and interpreter already wired together underneath.
package vm

import (
	"github.com/charygao/gypsum/arch"
	"github.com/charygao/gypsum/internal/gc"
	"github.com/charygao/gypsum/internal/heap"
	"github.com/charygao/gypsum/internal/interp"
	"github.com/charygao/gypsum/internal/loader"
	"github.com/charygao/gypsum/internal/native"
	"github.com/charygao/gypsum/internal/objmodel"
	"github.com/charygao/gypsum/internal/types"
)

// Config configures a new VM. The zero Config is usable: it gives no
// search paths (Load will fail to resolve anything) and picks sensible
// defaults for everything else.
type Config struct {
	// SearchPaths lists directories Load's package resolution searches,
	// in order (spec §4.5 step 2).
	SearchPaths []string

	// Arch is the architecture the native bridge marshals host calls
	// for. Defaults to arch.Host.
	Arch *arch.Architecture

	// ChunkSize is the heap's chunk allocation granularity. Zero picks
	// memory.DefaultChunkSize.
	ChunkSize int64
}

// VM is one instance of the virtual machine: one Heap, one Loader, one
// Interpreter and one native Bridge, wired together so that allocation,
// collection and native calls all see the same world.
type VM struct {
	Heap      *heap.Heap
	Loader    *loader.Loader
	Collector *gc.Collector
	Interp    *interp.Interpreter
	Native    *native.Bridge
}

// New constructs a VM from cfg. The returned VM has its collector
// installed on the heap and pointed at the interpreter's call stack, and
// its native bridge ready for Register calls, before any package is
// loaded.
func New(cfg Config) *VM {
	a := cfg.Arch
	if a == nil {
		a = &arch.Host
	}

	h := heap.New(cfg.ChunkSize)
	in := interp.New(h)
	coll := gc.New(h)
	coll.SetFrameRoots(in.Stack())
	h.SetCollector(coll)

	nb := native.NewBridge(a, h, in)
	in.Native = nb

	return &VM{
		Heap:      h,
		Loader:    loader.New(cfg.SearchPaths),
		Collector: coll,
		Interp:    in,
		Native:    nb,
	}
}

// Load resolves name against the VM's search paths and loads it (and its
// full dependency closure, if not already loaded), registering every
// newly loaded class's Meta with the heap's registry so ALLOCOBJ/ALLOCARR
// can allocate its instances (spec §4.5's loader leaves Meta construction
// to the loader but MetaID assignment is a heap-instance concern, so the
// VM — the thing that owns both — performs it here once per package).
func (v *VM) Load(name string) (*Package, error) {
	before := v.Loader.Packages()
	seen := make(map[*types.Package]bool, len(before))
	for _, p := range before {
		seen[p] = true
	}

	pkg, err := v.Loader.Load(name)
	if err != nil {
		return nil, err
	}

	for _, p := range v.Loader.Packages() {
		if seen[p] {
			continue
		}
		v.registerMetas(p)
	}

	return &Package{vm: v, pkg: pkg}, nil
}

func (v *VM) registerMetas(p *types.Package) {
	for _, c := range p.Classes {
		if c.Meta != nil && c.Meta.ID == 0 {
			objmodel.RegisterMeta(v.Heap.Registry, c.Meta)
		}
	}
}

// Package wraps an already-loaded *types.Package with the VM it belongs
// to, so lookups and calls made through it run against the right heap
// and interpreter.
func (v *VM) Package(name string) *Package {
	p := v.Loader.FindPackage(name)
	if p == nil {
		return nil
	}
	return &Package{vm: v, pkg: p}
}
