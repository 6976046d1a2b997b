package interp

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/charygao/gypsum/internal/bytecode"
	"github.com/charygao/gypsum/internal/heap"
	"github.com/charygao/gypsum/internal/memory"
	"github.com/charygao/gypsum/internal/objmodel"
	"github.com/charygao/gypsum/internal/pkgformat"
	"github.com/charygao/gypsum/internal/pointermap"
	"github.com/charygao/gypsum/internal/types"
	"github.com/charygao/gypsum/internal/vmerr"
)

// NativeCaller is the narrow interface the interpreter needs from the
// native bridge (spec §4.9) to run a function flagged
// FunctionFlagNative. Defined here rather than imported from
// internal/native to avoid an interp<->native import cycle: native's
// bridge needs to call back into the interpreter to run constructors and
// finalizers invoked from host code.
type NativeCaller interface {
	CallNative(fn *types.Function, args []Value) (Value, error)
}

// thrown is a user-level bytecode THROW unwinding toward a handler; it
// always carries its own already-computed exception Value, unlike a
// vmerr.Error fault which the interpreter must synthesize a placeholder
// exception value for.
type thrown struct{ value Value }

func (t *thrown) Error() string { return "interp: uncaught exception" }

// ThrowNativeFunction returns an error a native HostFunc can return in
// place of a result to raise v as a bytecode-catchable exception (spec
// §4.9's "throwNativeFunction"-style callback): it unwinds exactly as a
// bytecode THROW executed at the native CALL* site would, and is caught
// by the nearest active PUSHTRY handler in the calling frame.
func ThrowNativeFunction(v Value) error {
	return &thrown{value: v}
}

// Interpreter runs one VM's worth of loaded packages against a single
// Heap. Every in-flight call lives on the Interpreter's own CallStack
// (see Stack), which Run pushes frames onto.
type Interpreter struct {
	Heap   *heap.Heap
	Native NativeCaller

	stack *CallStack
}

func New(h *heap.Heap) *Interpreter {
	return &Interpreter{Heap: h, stack: &CallStack{}}
}

// Stack exposes the interpreter's call stack so the VM can hand it to
// gc.Collector.SetFrameRoots (spec §4.7's third root kind).
func (in *Interpreter) Stack() *CallStack { return in.stack }

// Run invokes fn with args (and, for a generic call, typeArgs) on a fresh
// frame pushed onto in's call stack, and returns its result.
func (in *Interpreter) Run(fn *types.Function, args []Value, typeArgs []*types.Type) (Value, error) {
	if fn.IsNative() {
		if in.Native == nil {
			return Value{}, vmerr.New(vmerr.KindNativeLinkError, "no native bridge configured for %s", fn.Name)
		}
		return in.Native.CallNative(fn, args)
	}

	if _, err := stackPointerMapFor(fn, pointermap.Build); err != nil {
		return Value{}, fmt.Errorf("interp: building stack map for %s: %w", fn.Name, err)
	}

	depth := in.stack.depth()
	f := newFrame(fn, args, typeArgs)
	in.stack.push(f)
	defer func() {
		for in.stack.depth() > depth {
			in.stack.pop()
		}
	}()

	return in.runFrame(f)
}

// runFrame executes f's bytecode from its current PC until RET or an
// uncaught exception/fault.
func (in *Interpreter) runFrame(f *Frame) (Value, error) {
	for {
		instr, err := bytecode.Decode(f.Fn.Instructions, f.PC)
		if err != nil {
			return Value{}, err
		}

		next, result, done, err := in.step(f, instr)
		if err != nil {
			if in.raise(f, err) {
				continue
			}
			return Value{}, err
		}
		if done {
			return result, nil
		}
		f.PC = next
	}
}

// raise looks for an active handler on f covering the fault raised at
// f.PC (spec §4.8 PUSHTRY/THROW): a *thrown exception is always
// catchable and carries its own value; a *vmerr.Error fault is catchable
// only per its Kind, and surfaces as a null placeholder exception value
// since this layer models no concrete exception classes for host-raised
// faults. Reports whether the fault was caught on this frame.
func (in *Interpreter) raise(f *Frame, err error) bool {
	var excValue Value
	switch e := err.(type) {
	case *thrown:
		excValue = e.value
	case *vmerr.Error:
		if !e.Kind.Catchable() {
			return false
		}
		excValue = nullV()
	default:
		return false
	}

	n := len(f.Handlers)
	if n == 0 {
		return false
	}
	h := f.Handlers[n-1]
	f.Handlers = f.Handlers[:n-1]
	f.Operand = f.Operand[:h.stackDepth]
	f.push(excValue)
	f.PC = h.catchPC
	return true
}

// step executes one instruction. It returns the next PC (valid unless
// done), the function's result (valid only if done), whether the frame's
// execution is finished (RET reached), and any fault.
func (in *Interpreter) step(f *Frame, instr bytecode.Instr) (next int64, result Value, done bool, err error) {
	fn := f.Fn

	switch {
	case instr.Op == pkgformat.RET:
		return 0, f.pop(), true, nil
	case instr.Op == pkgformat.THROW:
		return 0, Value{}, false, &thrown{value: f.pop()}
	case instr.Op == pkgformat.NOP, instr.Op == pkgformat.LABEL:
	case instr.Op == pkgformat.POPTRY:
		if n := len(f.Handlers); n > 0 {
			f.Handlers = f.Handlers[:n-1]
		}
	case instr.Op == pkgformat.BRANCH:
		return instr.Operands[0], Value{}, false, nil
	case instr.Op == pkgformat.BRANCHIF:
		if f.pop().bool() {
			return instr.Operands[0], Value{}, false, nil
		}
	case instr.Op == pkgformat.BRANCHL:
		// Treated as an unconditional branch to its single encoded target
		// (see DESIGN.md's BRANCHL simplification decision).
		f.pop()
		return instr.Operands[0], Value{}, false, nil
	case instr.Op == pkgformat.PUSHTRY:
		f.Handlers = append(f.Handlers, tryHandler{catchPC: instr.Operands[1], stackDepth: len(f.Operand)})
		return instr.Operands[0], Value{}, false, nil
	case instr.Op == pkgformat.DUP:
		f.push(f.top())
	case instr.Op == pkgformat.DUPI:
		idx := len(f.Operand) - 1 - int(instr.Operands[0])
		f.push(f.Operand[idx])
	case instr.Op == pkgformat.SWAP:
		n := len(f.Operand)
		f.Operand[n-1], f.Operand[n-2] = f.Operand[n-2], f.Operand[n-1]
	case instr.Op == pkgformat.SWAP2:
		n := len(f.Operand)
		f.Operand[n-4], f.Operand[n-3], f.Operand[n-2], f.Operand[n-1] =
			f.Operand[n-2], f.Operand[n-1], f.Operand[n-4], f.Operand[n-3]
	case instr.Op == pkgformat.DROP:
		f.pop()
	case instr.Op == pkgformat.DROPI:
		n := int(instr.Operands[0])
		f.Operand = f.Operand[:len(f.Operand)-n]
	case instr.Op == pkgformat.UNIT:
		f.push(unit())
	case instr.Op == pkgformat.TRUE:
		f.push(boolV(true))
	case instr.Op == pkgformat.FALSE:
		f.push(boolV(false))
	case instr.Op == pkgformat.NUL:
		f.push(nullV())
	case instr.Op == pkgformat.UNINITIALIZED:
		f.push(unit())
	case instr.Op == pkgformat.I8:
		f.push(intV(types.KindI8, instr.Operands[0]))
	case instr.Op == pkgformat.I16:
		f.push(intV(types.KindI16, instr.Operands[0]))
	case instr.Op == pkgformat.I32:
		f.push(intV(types.KindI32, instr.Operands[0]))
	case instr.Op == pkgformat.I64:
		f.push(intV(types.KindI64, instr.Operands[0]))
	case instr.Op == pkgformat.F32:
		f.push(floatV(types.KindF32, float64(math.Float32frombits(uint32(instr.Operands[0])))))
	case instr.Op == pkgformat.F64:
		f.push(floatV(types.KindF64, math.Float64frombits(uint64(instr.Operands[0]))))
	case instr.Op == pkgformat.STRING:
		// The built-in string class lies outside the modeled class table
		// (see DESIGN.md's STRING/built-in typing decision); without a
		// string pool or a real string Meta to allocate against, push a
		// null placeholder reference.
		f.push(nullV())
	case instr.Op == pkgformat.LDLOCAL:
		f.push(f.local(instr.Operands[0]))
	case instr.Op == pkgformat.STLOCAL:
		f.setLocal(instr.Operands[0], f.pop())
	case instr.Op == pkgformat.LDG:
		g := fn.Package.Globals[instr.Operands[0]]
		if !g.IsInitialized() {
			return 0, Value{}, false, vmerr.New(vmerr.KindUninitializedAccess, "read of uninitialized global %s", g.Name)
		}
		f.push(ValueFromRaw(g.Type, g.RawValue()))
	case instr.Op == pkgformat.STG:
		g := fn.Package.Globals[instr.Operands[0]]
		if g.Constant && g.IsInitialized() {
			return 0, Value{}, false, vmerr.New(vmerr.KindAssertion, "write to initialized constant global %s", g.Name)
		}
		g.SetRawValue(RawWord(f.pop()))
	case instr.Op == pkgformat.LDGF:
		g := fn.Package.LinkedGlobals[instr.Operands[0]][instr.Operands[1]]
		if !g.IsInitialized() {
			return 0, Value{}, false, vmerr.New(vmerr.KindUninitializedAccess, "read of uninitialized global %s", g.Name)
		}
		f.push(ValueFromRaw(g.Type, g.RawValue()))
	case instr.Op == pkgformat.STGF:
		g := fn.Package.LinkedGlobals[instr.Operands[0]][instr.Operands[1]]
		if g.Constant && g.IsInitialized() {
			return 0, Value{}, false, vmerr.New(vmerr.KindAssertion, "write to initialized constant global %s", g.Name)
		}
		g.SetRawValue(RawWord(f.pop()))
	case instr.Op == pkgformat.LDF, instr.Op == pkgformat.LDFF:
		return in.ldf(f, instr)
	case instr.Op == pkgformat.STF, instr.Op == pkgformat.STFF:
		return in.stf(f, instr)
	case instr.Op == pkgformat.LDE:
		return in.lde(f, instr)
	case instr.Op == pkgformat.STE:
		return in.ste(f, instr)
	case instr.Op == pkgformat.ALLOCOBJ:
		return in.allocObj(f, instr, fn.Package.Classes[instr.Operands[0]])
	case instr.Op == pkgformat.ALLOCOBJF:
		return in.allocObj(f, instr, fn.Package.LinkedClasses[instr.Operands[0]][instr.Operands[1]])
	case instr.Op == pkgformat.ALLOCARR:
		return in.allocArr(f, instr, fn.Package.Classes[instr.Operands[0]])
	case instr.Op == pkgformat.ALLOCARRF:
		return in.allocArr(f, instr, fn.Package.LinkedClasses[instr.Operands[0]][instr.Operands[1]])
	case instr.Op == pkgformat.TYS:
		f.push(typeArgV(fn.InstTypes[instr.Operands[0]]))
	case instr.Op == pkgformat.TYD:
		f.push(typeArgV(f.TypeArgs[instr.Operands[0]]))
	case instr.Op == pkgformat.CAST:
		return in.cast(f, instr, fn.InstTypes[instr.Operands[0]], -1)
	case instr.Op == pkgformat.CASTC:
		return in.cast(f, instr, fn.InstTypes[instr.Operands[0]], -1)
	case instr.Op == pkgformat.CASTCBR:
		return in.cast(f, instr, fn.InstTypes[instr.Operands[0]], instr.Operands[1])
	case instr.Op == pkgformat.CALLG:
		return in.call(f, instr, fn.Package.Functions[instr.Operands[0]], false)
	case instr.Op == pkgformat.CALLGF:
		return in.call(f, instr, fn.Package.LinkedFunctions[instr.Operands[0]][instr.Operands[1]], false)
	case instr.Op == pkgformat.CALLV:
		return in.call(f, instr, fn.Package.Functions[instr.Operands[0]], true)
	case instr.Op == pkgformat.CALLVF:
		return in.call(f, instr, fn.Package.LinkedFunctions[instr.Operands[0]][instr.Operands[1]], true)
	case instr.Op == pkgformat.PKG:
		// context-only; no stack effect
	case instr.Op == pkgformat.EXTUNIT:
		f.push(unit())
	case instr.Op == pkgformat.NOTB:
		f.push(boolV(!f.pop().bool()))
	case bytecode.IsArithmetic(instr.Op):
		if err := in.applyArithmetic(f, instr.Op); err != nil {
			return 0, Value{}, false, err
		}
	case bytecode.IsConversion(instr.Op):
		if err := in.applyConversion(f, instr.Op); err != nil {
			return 0, Value{}, false, err
		}
	default:
		return 0, Value{}, false, fmt.Errorf("interp: unhandled opcode %v at pc %d", instr.Op, instr.PC)
	}

	return instr.Next, Value{}, false, nil
}

func readWord(h *heap.Heap, a memory.Address) uint64 {
	return binary.LittleEndian.Uint64(h.Bytes(a, types.WordSize))
}

func writeWord(h *heap.Heap, a memory.Address, w uint64) {
	binary.LittleEndian.PutUint64(h.Bytes(a, types.WordSize), w)
}

func (in *Interpreter) arrayLength(a memory.Address) int64 {
	raw := in.Heap.Bytes(a, objmodel.HeaderSize+objmodel.LengthFieldSize)
	return objmodel.ReadLength(raw)
}

func (in *Interpreter) ldf(f *Frame, instr bytecode.Instr) (int64, Value, bool, error) {
	obj := f.pop()
	if obj.Ptr.IsZero() {
		return 0, Value{}, false, vmerr.New(vmerr.KindNullDereference, "field load on null")
	}
	meta := in.Heap.MetaOf(obj.Ptr)
	field := &meta.Class.Fields[instr.Operands[0]]
	off := objmodel.FieldOffset(field)
	w := readWord(in.Heap, obj.Ptr.Add(off))
	f.push(ValueFromRaw(field.Type, w))
	return instr.Next, Value{}, false, nil
}

func (in *Interpreter) stf(f *Frame, instr bytecode.Instr) (int64, Value, bool, error) {
	v := f.pop()
	obj := f.pop()
	if obj.Ptr.IsZero() {
		return 0, Value{}, false, vmerr.New(vmerr.KindNullDereference, "field store on null")
	}
	meta := in.Heap.MetaOf(obj.Ptr)
	field := &meta.Class.Fields[instr.Operands[0]]
	off := objmodel.FieldOffset(field)
	writeWord(in.Heap, obj.Ptr.Add(off), RawWord(v))
	return instr.Next, Value{}, false, nil
}

func (in *Interpreter) lde(f *Frame, instr bytecode.Instr) (int64, Value, bool, error) {
	idx := f.pop()
	arr := f.pop()
	if arr.Ptr.IsZero() {
		return 0, Value{}, false, vmerr.New(vmerr.KindNullDereference, "element load on null")
	}
	meta := in.Heap.MetaOf(arr.Ptr)
	length := in.arrayLength(arr.Ptr)
	if idx.I < 0 || idx.I >= length {
		return 0, Value{}, false, vmerr.New(vmerr.KindOutOfBounds, "index %d out of bounds (length %d)", idx.I, length)
	}
	off := objmodel.ElementOffset(meta, idx.I)
	w := readWord(in.Heap, arr.Ptr.Add(off))
	f.push(ValueFromRaw(meta.Class.ElemType, w))
	return instr.Next, Value{}, false, nil
}

func (in *Interpreter) ste(f *Frame, instr bytecode.Instr) (int64, Value, bool, error) {
	v := f.pop()
	idx := f.pop()
	arr := f.pop()
	if arr.Ptr.IsZero() {
		return 0, Value{}, false, vmerr.New(vmerr.KindNullDereference, "element store on null")
	}
	meta := in.Heap.MetaOf(arr.Ptr)
	length := in.arrayLength(arr.Ptr)
	if idx.I < 0 || idx.I >= length {
		return 0, Value{}, false, vmerr.New(vmerr.KindOutOfBounds, "index %d out of bounds (length %d)", idx.I, length)
	}
	off := objmodel.ElementOffset(meta, idx.I)
	writeWord(in.Heap, arr.Ptr.Add(off), RawWord(v))
	return instr.Next, Value{}, false, nil
}

// popTypeArgs pops class.Params's worth of TYS/TYD-pushed type arguments
// off f, in the order ALLOCOBJ/ALLOCARR's compiler convention pushes them
// (last, immediately before the allocation instruction).
func popTypeArgs(f *Frame, n int) []*types.Type {
	out := make([]*types.Type, n)
	for i := n - 1; i >= 0; i-- {
		out[i] = f.pop().TypeArg
	}
	return out
}

func (in *Interpreter) allocObj(f *Frame, instr bytecode.Instr, class *types.Class) (int64, Value, bool, error) {
	popTypeArgs(f, len(class.Params))
	a, err := in.Heap.AllocateObject(class.Meta, objmodel.MetaID(class.Meta.ID))
	if err != nil {
		return 0, Value{}, false, err
	}
	f.push(objectV(a))
	return instr.Next, Value{}, false, nil
}

func (in *Interpreter) allocArr(f *Frame, instr bytecode.Instr, class *types.Class) (int64, Value, bool, error) {
	length := f.pop()
	popTypeArgs(f, len(class.Params))
	a, err := in.Heap.AllocateArray(class.Meta, objmodel.MetaID(class.Meta.ID), length.I)
	if err != nil {
		return 0, Value{}, false, err
	}
	f.push(objectV(a))
	return instr.Next, Value{}, false, nil
}

// cast implements CAST/CASTC/CASTCBR (spec §4.8): CAST/CASTC fault with a
// catchable bad-cast error on mismatch; CASTCBR instead branches to
// failPC with the original value left on the stack, leaving the fall-
// through path to push the narrowed value.
func (in *Interpreter) cast(f *Frame, instr bytecode.Instr, target *types.Type, failPC int64) (int64, Value, bool, error) {
	v := f.pop()
	if !in.castMatches(v, target) {
		if failPC >= 0 {
			f.push(v)
			return failPC, Value{}, false, nil
		}
		return 0, Value{}, false, vmerr.New(vmerr.KindBadCast, "value does not match target type %s", target)
	}
	f.push(v)
	return instr.Next, Value{}, false, nil
}

// castMatches reports whether v's runtime shape is compatible with
// target. Null always matches an object-kind target (spec §4.4: null is
// a subtype of every object type); a concrete object is checked against
// target's Class via the supertype chain.
func (in *Interpreter) castMatches(v Value, target *types.Type) bool {
	if !target.IsObject() {
		return true
	}
	if v.Ptr.IsZero() {
		return true
	}
	if target.Class == nil {
		return true
	}
	meta := in.Heap.MetaOf(v.Ptr)
	return meta.Class.IsSubclassOf(target.Class)
}

// call implements CALLG/CALLGF/CALLV/CALLVF (spec §4.8, §4.9): pops the
// call's type arguments then its value arguments (in that order, mirror-
// ing the compiler convention internal/pointermap's builder already
// assumes), resolves virtual dispatch against the receiver's dynamic
// class when virtual is set, and recurses into the callee's own frame.
func (in *Interpreter) call(f *Frame, instr bytecode.Instr, target *types.Function, virtual bool) (int64, Value, bool, error) {
	typeArgs := popTypeArgs(f, len(target.Params))
	args := make([]Value, len(target.ParamTypes))
	for i := len(args) - 1; i >= 0; i-- {
		args[i] = f.pop()
	}

	actual := target
	if virtual {
		if len(args) == 0 {
			return 0, Value{}, false, fmt.Errorf("interp: virtual call to %s with no receiver argument", target.Name)
		}
		recv := args[0]
		if recv.Ptr.IsZero() {
			return 0, Value{}, false, vmerr.New(vmerr.KindNullDereference, "virtual call on null receiver")
		}
		meta := in.Heap.MetaOf(recv.Ptr)
		if m := meta.Class.LookupVirtual(types.FindOverriddenMethodID(target)); m != nil {
			actual = m
		}
	}

	result, err := in.Run(actual, args, typeArgs)
	if err != nil {
		return 0, Value{}, false, err
	}
	f.push(result)
	return instr.Next, Value{}, false, nil
}
