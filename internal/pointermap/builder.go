// Package pointermap builds a types.StackPointerMap for a Function by
// abstractly interpreting its bytecode (spec §4.6): walking every
// reachable block, tracking the static Type of every live locals+operand
// slot, and snapshotting that classification at each GC-safe point.
//
// Operand addressing decisions this builder commits to (the spec itself
// flags the builder's opcode table as having unresolved fall-through
// ambiguity for STGF and SWAP2 — see Open Questions):
//   - LDLOCAL/STLOCAL take one signed slot index: i >= 0 addresses the
//     i'th parameter (statically typed, never re-tracked); i < 0
//     addresses local slot -i-1 of the function's own locals region.
//   - SWAP2 swaps the top two pairs of slots (4 slots total), not the top
//     four individually-addressable items; STGF pops only the stored
//     value and pushes nothing, the same stack effect as STG.
package pointermap

import (
	"fmt"

	"github.com/charygao/gypsum/internal/bytecode"
	"github.com/charygao/gypsum/internal/pkgformat"
	"github.com/charygao/gypsum/internal/types"
)

// Build computes fn's StackPointerMap. fn must belong to a fully linked
// Package (Globals/Functions/Classes and Linked* tables populated).
func Build(fn *types.Function) (*types.StackPointerMap, error) {
	if fn.IsNative() || len(fn.Instructions) == 0 {
		return &types.StackPointerMap{}, nil
	}

	b := &builder{fn: fn, visited: map[int64]bool{}}
	b.paramBits = make([]bool, len(fn.ParamTypes))
	for i, t := range fn.ParamTypes {
		b.paramBits[i] = t.IsObject()
	}

	nLocals := int(fn.LocalsSize / types.WordSize)
	initial := state{
		locals:  make([]*types.Type, nLocals),
		operand: nil,
	}
	for i := range initial.locals {
		initial.locals[i] = types.Unit
	}

	b.queue = append(b.queue, work{pc: 0, st: initial})
	for len(b.queue) > 0 {
		w := b.queue[0]
		b.queue = b.queue[1:]
		if b.visited[w.pc] {
			continue
		}
		b.visited[w.pc] = true
		if err := b.walk(w.pc, w.st); err != nil {
			return nil, err
		}
	}

	return b.pack(nLocals), nil
}

type state struct {
	locals  []*types.Type
	operand []*types.Type
}

func (s state) clone() state {
	locals := append([]*types.Type(nil), s.locals...)
	operand := append([]*types.Type(nil), s.operand...)
	return state{locals: locals, operand: operand}
}

func (s *state) push(t *types.Type) { s.operand = append(s.operand, t) }

func (s *state) pop() *types.Type {
	n := len(s.operand)
	t := s.operand[n-1]
	s.operand = s.operand[:n-1]
	return t
}

// combined returns the locals-then-operand-stack region snapshotted at a
// GC-safe point.
func (s state) combined() []*types.Type {
	out := make([]*types.Type, 0, len(s.locals)+len(s.operand))
	out = append(out, s.locals...)
	out = append(out, s.operand...)
	return out
}

type work struct {
	pc int64
	st state
}

type snapshot struct {
	pc   int64
	bits []bool
}

type builder struct {
	fn        *types.Function
	paramBits []bool
	visited   map[int64]bool
	queue     []work
	snapshots []snapshot
}

func (b *builder) enqueue(pc int64, st state) {
	if !b.visited[pc] {
		b.queue = append(b.queue, work{pc: pc, st: st})
	}
}

func (b *builder) snapshot(pc int64, st state) {
	region := st.combined()
	bits := make([]bool, len(region))
	for i, t := range region {
		bits[i] = t != nil && t.IsObject()
	}
	b.snapshots = append(b.snapshots, snapshot{pc: pc, bits: bits})
}

// walk interprets straight-line code starting at pc until the path
// terminates (RET/THROW) or branches, enqueuing successors as it goes.
func (b *builder) walk(pc int64, st state) error {
	fn := b.fn
	start := pc
	for {
		if b.visited[pc] && pc != start {
			return nil
		}
		b.visited[pc] = true

		in, err := bytecode.Decode(fn.Instructions, pc)
		if err != nil {
			return err
		}

		switch {
		case in.Op == pkgformat.RET:
			if len(st.operand) > 0 {
				st.pop()
			}
			return nil
		case in.Op == pkgformat.THROW:
			if len(st.operand) > 0 {
				st.pop()
			}
			return nil
		case in.Op == pkgformat.NOP, in.Op == pkgformat.LABEL, in.Op == pkgformat.POPTRY:
			// no stack effect
		case in.Op == pkgformat.BRANCH:
			b.enqueue(in.Operands[0], st.clone())
			return nil
		case in.Op == pkgformat.BRANCHIF:
			st.pop()
			b.enqueue(in.Operands[0], st.clone())
		case in.Op == pkgformat.BRANCHL:
			st.pop()
			b.enqueue(in.Operands[0], st.clone())
			return nil
		case in.Op == pkgformat.PUSHTRY:
			catchState := st.clone()
			catchState.push(types.Null) // Exception slot, placeholder object type
			b.enqueue(in.Operands[1], catchState)
			b.enqueue(in.Operands[0], st.clone())
			return nil
		case in.Op == pkgformat.DUP:
			st.push(st.operand[len(st.operand)-1])
		case in.Op == pkgformat.DUPI:
			idx := len(st.operand) - 1 - int(in.Operands[0])
			st.push(st.operand[idx])
		case in.Op == pkgformat.SWAP:
			n := len(st.operand)
			st.operand[n-1], st.operand[n-2] = st.operand[n-2], st.operand[n-1]
		case in.Op == pkgformat.SWAP2:
			n := len(st.operand)
			st.operand[n-4], st.operand[n-3], st.operand[n-2], st.operand[n-1] =
				st.operand[n-2], st.operand[n-1], st.operand[n-4], st.operand[n-3]
		case in.Op == pkgformat.DROP:
			st.pop()
		case in.Op == pkgformat.DROPI:
			n := int(in.Operands[0])
			st.operand = st.operand[:len(st.operand)-n]
		case in.Op == pkgformat.UNIT:
			st.push(types.Unit)
		case in.Op == pkgformat.TRUE, in.Op == pkgformat.FALSE:
			st.push(types.Boolean)
		case in.Op == pkgformat.NUL:
			st.push(types.Null)
		case in.Op == pkgformat.UNINITIALIZED:
			st.push(types.Unit)
		case in.Op == pkgformat.I8:
			st.push(types.I8)
		case in.Op == pkgformat.I16:
			st.push(types.I16)
		case in.Op == pkgformat.I32:
			st.push(types.I32)
		case in.Op == pkgformat.I64:
			st.push(types.I64)
		case in.Op == pkgformat.F32:
			st.push(types.F32)
		case in.Op == pkgformat.F64:
			st.push(types.F64)
		case in.Op == pkgformat.STRING:
			st.push(stringClassType(fn))
		case in.Op == pkgformat.LDLOCAL:
			st.push(b.localSlot(st, in.Operands[0]))
		case in.Op == pkgformat.STLOCAL:
			v := st.pop()
			b.setLocalSlot(&st, in.Operands[0], v)
		case in.Op == pkgformat.LDG:
			g := fn.Package.Globals[in.Operands[0]]
			st.push(g.Type)
		case in.Op == pkgformat.STG:
			st.pop()
		case in.Op == pkgformat.LDGF:
			g := fn.Package.LinkedGlobals[in.Operands[0]][in.Operands[1]]
			st.push(g.Type)
		case in.Op == pkgformat.STGF:
			st.pop() // value; object+insttype-args already consumed by compiler convention
		case in.Op == pkgformat.LDF:
			obj := st.pop()
			st.push(fieldType(obj, int(in.Operands[0])))
		case in.Op == pkgformat.STF:
			st.pop() // value
			st.pop() // object
		case in.Op == pkgformat.LDFF:
			obj := st.pop()
			st.push(fieldType(obj, int(in.Operands[0])))
		case in.Op == pkgformat.STFF:
			st.pop()
			st.pop()
		case in.Op == pkgformat.LDE:
			st.pop() // index
			arr := st.pop()
			st.push(elemType(arr))
		case in.Op == pkgformat.STE:
			st.pop() // value
			st.pop() // index
			st.pop() // array
		case in.Op == pkgformat.ALLOCOBJ:
			class := fn.Package.Classes[in.Operands[0]]
			b.popTypeArgs(&st, class)
			b.snapshot(in.PC, st)
			st.push(types.NewObjectType(class))
		case in.Op == pkgformat.ALLOCOBJF:
			class := fn.Package.LinkedClasses[in.Operands[0]][in.Operands[1]]
			b.popTypeArgs(&st, class)
			b.snapshot(in.PC, st)
			st.push(types.NewObjectType(class))
		case in.Op == pkgformat.ALLOCARR:
			class := fn.Package.Classes[in.Operands[0]]
			st.pop() // length
			b.popTypeArgs(&st, class)
			b.snapshot(in.PC, st)
			st.push(types.NewObjectType(class))
		case in.Op == pkgformat.ALLOCARRF:
			class := fn.Package.LinkedClasses[in.Operands[0]][in.Operands[1]]
			st.pop()
			b.popTypeArgs(&st, class)
			b.snapshot(in.PC, st)
			st.push(types.NewObjectType(class))
		case in.Op == pkgformat.TYS:
			st.push(fn.InstTypes[in.Operands[0]])
		case in.Op == pkgformat.TYD:
			p := &fn.Params[in.Operands[0]]
			st.push(types.NewVariableType(p))
		case in.Op == pkgformat.CAST, in.Op == pkgformat.CASTC:
			st.pop()
			st.push(fn.InstTypes[in.Operands[0]])
		case in.Op == pkgformat.CASTCBR:
			orig := st.pop()
			failState := st.clone()
			failState.push(orig)
			b.enqueue(in.Operands[1], failState)
			st.push(fn.InstTypes[in.Operands[0]])
		case in.Op == pkgformat.CALLG:
			target := fn.Package.Functions[in.Operands[0]]
			b.call(&st, target, in.PC)
		case in.Op == pkgformat.CALLGF:
			target := fn.Package.LinkedFunctions[in.Operands[0]][in.Operands[1]]
			b.call(&st, target, in.PC)
		case in.Op == pkgformat.CALLV:
			target := fn.Package.Functions[in.Operands[0]]
			b.call(&st, target, in.PC)
		case in.Op == pkgformat.CALLVF:
			target := fn.Package.LinkedFunctions[in.Operands[0]][in.Operands[1]]
			b.call(&st, target, in.PC)
		case in.Op == pkgformat.PKG:
			// context-only; no stack effect
		case in.Op == pkgformat.EXTUNIT:
			st.push(types.Unit)
		case in.Op == pkgformat.NOTB:
			st.pop()
			st.push(types.Boolean)
		case bytecode.IsArithmetic(in.Op):
			applyArithmetic(&st, in.Op)
		case bytecode.IsConversion(in.Op):
			applyConversion(&st, in.Op)
		default:
			return fmt.Errorf("pointermap: unhandled opcode %v at pc %d", in.Op, pc)
		}

		pc = in.Next
		if pc >= int64(len(fn.Instructions)) {
			return nil
		}
	}
}

func (b *builder) call(st *state, target *types.Function, pc int64) {
	for range target.Params {
		st.pop()
	}
	for range target.ParamTypes {
		st.pop()
	}
	b.snapshot(pc, *st)
	st.push(target.ReturnType)
}

func (b *builder) popTypeArgs(st *state, class *types.Class) {
	for range class.Params {
		st.pop()
	}
}

func (b *builder) localSlot(st state, i int64) *types.Type {
	if i >= 0 {
		return b.fn.ParamTypes[i]
	}
	return st.locals[-i-1]
}

func (b *builder) setLocalSlot(st *state, i int64, v *types.Type) {
	if i >= 0 {
		return // parameter slots keep their static type
	}
	st.locals[-i-1] = v
}

func fieldType(obj *types.Type, idx int) *types.Type {
	if obj == nil || obj.Class == nil || idx < 0 || idx >= len(obj.Class.Fields) {
		return types.Null
	}
	return obj.Class.Fields[idx].Type
}

func elemType(arr *types.Type) *types.Type {
	if arr == nil || arr.Class == nil || arr.Class.ElemType == nil {
		return types.Null
	}
	return arr.Class.ElemType
}

// stringClassType approximates STRING's pushed type as a plain object
// reference (the built-in string class is outside this model's class
// table); GC only needs to know it's a pointer.
func stringClassType(fn *types.Function) *types.Type {
	return types.Null
}

func (b *builder) pack(nLocals int) *types.StackPointerMap {
	m := &types.StackPointerMap{ParamBits: b.paramBits}
	entries := make([]types.PCEntry, 0, len(b.snapshots))
	var bitmap []bool
	for _, s := range b.snapshots {
		off := len(bitmap)
		bitmap = append(bitmap, s.bits...)
		entries = append(entries, types.PCEntry{PCOffset: s.pc, MapOffset: off, MapCount: len(s.bits)})
	}
	sortEntries(entries)
	m.Entries = entries
	m.Bitmap = bitmap
	return m
}

func sortEntries(e []types.PCEntry) {
	for i := 1; i < len(e); i++ {
		for j := i; j > 0 && e[j-1].PCOffset > e[j].PCOffset; j-- {
			e[j-1], e[j] = e[j], e[j-1]
		}
	}
}
