package interp

import "github.com/charygao/gypsum/internal/memory"

// CallStack is one Stack's full chain of active Frames (spec §5: "the VM
// evaluates one Stack at a time"). It implements gc.FrameRoots by
// structural typing — internal/gc defines the interface and never
// imports this package, so gc.Collector.SetFrameRoots(stack) is how the
// VM wires the two together (see package vm).
type CallStack struct {
	frames []*Frame
}

func (s *CallStack) push(f *Frame) { s.frames = append(s.frames, f) }
func (s *CallStack) pop()          { s.frames = s.frames[:len(s.frames)-1] }
func (s *CallStack) top() *Frame   { return s.frames[len(s.frames)-1] }
func (s *CallStack) depth() int    { return len(s.frames) }

// ForEachFrameRoot visits every pointer-classified slot across every
// active frame (spec §4.7's third root kind: "every active interpreter
// frame: parameters via the Function's parameter region, locals+operands
// via StackPointerMap.getLocalsRegion(currentPC)").
//
// Every frame but the topmost is, by construction, suspended exactly at
// the CALL instruction that pushed its callee — itself a recorded
// GC-safe point — and the topmost frame can only be mid-collection
// because it is itself inside an ALLOCOBJ/ALLOCARR/CALL* handler, at the
// same PC recorded for that instruction's snapshot. So every frame's
// current PC is always an exact StackPointerMap entry when this runs.
//
// A stack slot whose Value carries a TypeArg is a pushed instantiation
// type (TYS/TYD), never a VM heap reference — the pointer-map builder
// approximates such a slot's classification from the pushed Type's own
// Kind (see internal/pointermap), which can say "pointer" for an
// object-kind type argument even though the slot holds a Go-heap Type
// descriptor, not a VM address. This check overrides that approximation.
func (s *CallStack) ForEachFrameRoot(fn func(slot *memory.Address)) {
	for _, f := range s.frames {
		m := f.Fn.StackMap
		if m == nil {
			continue
		}
		for i := range f.Params {
			if i < len(m.ParamBits) && m.ParamBits[i] && f.Params[i].IsObject() {
				fn(&f.Params[i].Ptr)
			}
		}
		bits := m.LocalsRegion(f.PC)
		idx := 0
		for i := range f.Locals {
			if idx < len(bits) && bits[idx] && f.Locals[i].IsObject() {
				fn(&f.Locals[i].Ptr)
			}
			idx++
		}
		for i := range f.Operand {
			if idx < len(bits) && bits[idx] && f.Operand[i].IsObject() {
				fn(&f.Operand[i].Ptr)
			}
			idx++
		}
	}
}
