package interp

import "github.com/charygao/gypsum/internal/types"

// tryHandler is one entry of a frame's active handler stack (spec §4.8
// "PUSHTRY records a handler: (catch-PC, operand-stack depth at entry)").
type tryHandler struct {
	catchPC    int64
	stackDepth int
}

// Frame is one activation record: a function's parameters (static,
// immutable per LDLOCAL/STLOCAL addressing), its locals region, and its
// operand stack, plus the handler stack PUSHTRY/POPTRY/THROW maintain.
type Frame struct {
	Fn      *types.Function
	PC      int64
	Params  []Value
	Locals  []Value
	Operand []Value

	// TypeArgs holds the concrete instantiation Types the caller supplied
	// for this call (via TYS/TYD, popped by internal/interp's call), one
	// per entry of Fn.Params — read back by a later TYD forwarding its own
	// type argument into a nested generic call.
	TypeArgs []*types.Type

	Handlers []tryHandler
}

func newFrame(fn *types.Function, args []Value, typeArgs []*types.Type) *Frame {
	locals := make([]Value, fn.LocalsSize/types.WordSize)
	for i := range locals {
		locals[i] = unit()
	}
	return &Frame{Fn: fn, Params: args, Locals: locals, TypeArgs: typeArgs}
}

func (f *Frame) push(v Value) { f.Operand = append(f.Operand, v) }

func (f *Frame) pop() Value {
	n := len(f.Operand)
	v := f.Operand[n-1]
	f.Operand = f.Operand[:n-1]
	return v
}

func (f *Frame) top() Value { return f.Operand[len(f.Operand)-1] }

// local reads slot i per the signed-index convention internal/pointermap
// already commits to: i >= 0 is parameter i, i < 0 is local slot -i-1.
func (f *Frame) local(i int64) Value {
	if i >= 0 {
		return f.Params[i]
	}
	return f.Locals[-i-1]
}

func (f *Frame) setLocal(i int64, v Value) {
	if i >= 0 {
		panic("interp: STLOCAL: parameter slots are immutable")
	}
	f.Locals[-i-1] = v
}

// stackPointerMapFor lazily builds and caches fn's StackMap, matching
// spec §4.6's builder being run once per Function and reused thereafter.
func stackPointerMapFor(fn *types.Function, build func(*types.Function) (*types.StackPointerMap, error)) (*types.StackPointerMap, error) {
	if fn.StackMap != nil {
		return fn.StackMap, nil
	}
	m, err := build(fn)
	if err != nil {
		return nil, err
	}
	fn.StackMap = m
	return m, nil
}
