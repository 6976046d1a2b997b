// Package native implements the VM's native-call bridge (spec §4.9): the
// registry binding a native-flagged Function to host Go code, and the ABI
// marshalling that crosses the boundary between interpreter Values and
// the host's calling convention.
//
// A real foreign-function bridge would locate a machine-code symbol and
// jump to it through the platform's raw register-passing convention.
// That isn't achievable in portable Go without cgo or assembly stubs —
// either would mean fabricating a mechanism this VM doesn't otherwise
// have. Instead, native functions are registered ahead of time as plain
// Go closures, keyed by their defining Name; arch.Architecture is still
// consulted to classify each argument into the register class and slot
// it would occupy under a real calling convention, and RawWord/
// arch.PutUint marshal it through that classification, so the bridge
// exercises the ABI description honestly rather than just calling the
// closure directly with interp.Values.
//
// Every HostFunc gets a *Context alongside its arguments: Context.Call
// lets it run bytecode back on the same interpreter (e.g. to drive a
// constructor an allocating native function needs to invoke), and
// Context.Throw lets it raise a real bytecode exception that unwinds into
// the caller's nearest PUSHTRY handler, rather than being limited to a
// plain Go error.
package native

import (
	"fmt"
	"sync"

	"github.com/charygao/gypsum/arch"
	"github.com/charygao/gypsum/internal/heap"
	"github.com/charygao/gypsum/internal/interp"
	"github.com/charygao/gypsum/internal/types"
	"github.com/charygao/gypsum/internal/vmerr"
)

// HostFunc is one native function's Go implementation. args is already
// ABI-marshalled and unmarshalled back into Values (see argPlan); a
// HostFunc never sees raw register/stack bytes. ctx gives it the two
// hooks back into the interpreter spec §4.9 requires: calling bytecode
// (e.g. to run a constructor a native allocator needs) and raising a
// real, catchable bytecode exception.
type HostFunc func(ctx *Context, args []interp.Value) (interp.Value, error)

// Runner is the narrow interface native calls need back into the
// interpreter, e.g. to run a constructor a host function allocates
// through. Defined here rather than depending on *interp.Interpreter
// directly so a HostFunc can be registered against a fake Runner in
// tests.
type Runner interface {
	Run(fn *types.Function, args []interp.Value, typeArgs []*types.Type) (interp.Value, error)
}

// Context is the per-call handle a HostFunc receives into the
// interpreter it was invoked from.
type Context struct {
	run Runner
}

// Call runs fn with args (and typeArgs, for a generic call) on the same
// interpreter that invoked this native function, e.g. to drive a
// constructor call for an object the native function allocates. If fn
// itself throws, the returned error is a bytecode exception value the
// caller should propagate unchanged (returning it straight back up
// through the HostFunc) so it unwinds into the native call's own caller's
// handler, per spec §4.9's "bridge captures the in-flight exception...
// re-raises it in the caller's frame."
func (c *Context) Call(fn *types.Function, args []interp.Value, typeArgs []*types.Type) (interp.Value, error) {
	return c.run.Run(fn, args, typeArgs)
}

// Throw returns an error that, when returned from a HostFunc, raises v as
// a bytecode-catchable exception in the caller's frame (spec §4.9,
// §8 scenario 6's "host function throws through throwNativeFunction").
func (c *Context) Throw(v interp.Value) error {
	return interp.ThrowNativeFunction(v)
}

// Bridge resolves types.FunctionFlagNative functions to registered
// HostFuncs and invokes them, implementing interp.NativeCaller.
type Bridge struct {
	Arch *arch.Architecture
	Heap *heap.Heap
	Run  Runner

	mu    sync.Mutex
	funcs []HostFunc
	byKey map[string]int
}

// NewBridge builds a Bridge targeting a (the host's architecture;
// arch.Host if the caller doesn't care), backed by h for handle-scoped
// GC safety around each call.
func NewBridge(a *arch.Architecture, h *heap.Heap, run Runner) *Bridge {
	return &Bridge{Arch: a, Heap: h, Run: run, byKey: map[string]int{}}
}

// Register binds name (a fully qualified Name's string form, e.g.
// "os.readFile") to fn. Call this for every native symbol the host
// embedding wants to expose before running any bytecode that calls it.
func (b *Bridge) Register(name string, fn HostFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.byKey[name]; ok {
		panic(fmt.Sprintf("native: Register: %s already registered", name))
	}
	idx := len(b.funcs)
	b.funcs = append(b.funcs, fn)
	b.byKey[name] = idx
}

// resolve looks fn up in the registry, caching the slot index (offset by
// one, so zero still means "unresolved") on fn.NativeAddr (spec §4.9's
// "resolved... cached for subsequent calls").
func (b *Bridge) resolve(fn *types.Function) (HostFunc, error) {
	if fn.NativeAddr != 0 {
		b.mu.Lock()
		hf := b.funcs[fn.NativeAddr-1]
		b.mu.Unlock()
		return hf, nil
	}

	key := fn.Name.String()
	b.mu.Lock()
	idx, ok := b.byKey[key]
	b.mu.Unlock()
	if !ok {
		return nil, vmerr.New(vmerr.KindNativeLinkError, "no host function registered for %s", key)
	}
	fn.NativeAddr = uintptr(idx) + 1

	b.mu.Lock()
	hf := b.funcs[idx]
	b.mu.Unlock()
	return hf, nil
}

// CallNative implements interp.NativeCaller. It classifies args per the
// target architecture's calling convention, marshals them through that
// classification, opens a handle scope so object-typed arguments survive
// any allocation the host function triggers, and invokes the registered
// HostFunc.
func (b *Bridge) CallNative(fn *types.Function, args []interp.Value) (interp.Value, error) {
	hf, err := b.resolve(fn)
	if err != nil {
		return interp.Value{}, err
	}

	plan := classifyArgs(b.Arch, fn.ParamTypes)

	scope := b.Heap.OpenScope()
	handles := make([]heap.Handle, len(args))
	for i, a := range args {
		if a.IsObject() {
			handles[i] = scope.New(a.Ptr)
		}
	}
	defer scope.Close()

	marshalled := make([]interp.Value, len(args))
	for i, a := range args {
		w := interp.RawWord(a)
		width := plan.widths[i]
		buf := make([]byte, width)
		b.Arch.PutUint(buf, truncateToWidth(w, width))
		w = b.Arch.Uint(buf)
		v := interp.ValueFromRaw(fn.ParamTypes[i], w)
		if a.IsObject() {
			v.Ptr = handles[i].Get()
		}
		marshalled[i] = v
	}

	// marshalled's object Ptrs are plain copies, live only for the
	// duration of this call: if hf itself drives the interpreter (e.g. to
	// run a constructor) and that triggers a collection, any reference hf
	// holds past that point must come from its own handle, not from the
	// Value it was originally given. See DESIGN.md's native-bridge
	// GC-safety decision.
	result, err := hf(&Context{run: b.Run}, marshalled)
	if err != nil {
		return interp.Value{}, err
	}
	return result, nil
}

// argClass is which register file an argument would be classified into
// under the target architecture's calling convention.
type argClass int

const (
	intClass argClass = iota
	floatClass
)

// argPlan is the per-call classification of a native call's arguments:
// which register class each occupies, whether it fits in that class's
// remaining registers or spills to the stack, and the byte width its raw
// word marshals through.
type argPlan struct {
	classes []argClass
	spilled []bool
	widths  []int
}

func classifyArgs(a *arch.Architecture, paramTypes []*types.Type) argPlan {
	plan := argPlan{
		classes: make([]argClass, len(paramTypes)),
		spilled: make([]bool, len(paramTypes)),
		widths:  make([]int, len(paramTypes)),
	}
	intUsed, floatUsed := 0, 0
	for i, t := range paramTypes {
		// f32 is the only sub-word primitive still float-class; ints are
		// always packed into a full word regardless of their own bit
		// width, and pointers are word-sized.
		plan.widths[i] = 8
		if t.Kind == types.KindF32 {
			plan.widths[i] = 4
		}

		if t.Kind == types.KindF32 || t.Kind == types.KindF64 {
			plan.classes[i] = floatClass
			if floatUsed >= a.FloatRegs {
				plan.spilled[i] = true
			}
			floatUsed++
			continue
		}
		plan.classes[i] = intClass
		if intUsed >= a.IntRegs {
			plan.spilled[i] = true
		}
		intUsed++
	}
	return plan
}

func truncateToWidth(w uint64, width int) uint64 {
	if width >= 8 {
		return w
	}
	return w & (1<<(uint(width)*8) - 1)
}
