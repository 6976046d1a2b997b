// Package interp implements the VM's bytecode interpreter (spec §4.8):
// the per-frame call stack, the opcode dispatch loop, virtual dispatch,
// exception propagation, and the generic-call type-argument machinery the
// pointer-map builder already assumes.
package interp

import (
	"math"

	"github.com/charygao/gypsum/internal/memory"
	"github.com/charygao/gypsum/internal/types"
)

// Value is one interpreter stack/local slot. Which field is meaningful is
// determined by Kind, except when TypeArg is non-nil: TYS/TYD push a type
// argument rather than a value proper, and ALLOCOBJ/ALLOCARR/CALLG/CALLV's
// popTypeArgs pop exactly that many TypeArg-bearing slots off the same
// stack the pointer-map builder already models as unified (see
// internal/pointermap).
type Value struct {
	Kind types.Kind

	I   int64   // i8/i16/i32/i64, and boolean (0/1)
	F   float64 // f32/f64
	Ptr memory.Address // object/null references

	TypeArg *types.Type
}

func unit() Value   { return Value{Kind: types.KindUnit} }
func nullV() Value  { return Value{Kind: types.KindNull} }
func boolV(b bool) Value {
	v := Value{Kind: types.KindBoolean}
	if b {
		v.I = 1
	}
	return v
}
func (v Value) bool() bool { return v.I != 0 }

func intV(kind types.Kind, n int64) Value { return Value{Kind: kind, I: n} }
func floatV(kind types.Kind, f float64) Value { return Value{Kind: kind, F: f} }
func objectV(a memory.Address) Value {
	if a.IsZero() {
		return nullV()
	}
	return Value{Kind: types.KindObject, Ptr: a}
}
func typeArgV(t *types.Type) Value { return Value{TypeArg: t} }

// IsObject reports whether v's slot should be treated as a heap reference
// for GC rooting purposes.
func (v Value) IsObject() bool {
	return v.TypeArg == nil && v.Kind.IsObject()
}

// RawWord packs v into the 64-bit word representation Global/field
// storage uses (spec §4.3's tagged/plain word model, generalized to
// globals); exported so internal/native can marshal arguments/return
// values the same way across the host ABI boundary.
func RawWord(v Value) uint64 {
	switch v.Kind {
	case types.KindF32:
		return uint64(math.Float32bits(float32(v.F)))
	case types.KindF64:
		return math.Float64bits(v.F)
	case types.KindObject, types.KindNull, types.KindVariable:
		return uint64(v.Ptr)
	default:
		return uint64(v.I)
	}
}

// ValueFromRaw unpacks a stored word back into a Value of the given
// static type.
func ValueFromRaw(t *types.Type, w uint64) Value {
	switch t.Kind {
	case types.KindBoolean:
		return boolV(w != 0)
	case types.KindI8, types.KindI16, types.KindI32, types.KindI64:
		return intV(t.Kind, int64(w))
	case types.KindF32:
		return floatV(types.KindF32, float64(math.Float32frombits(uint32(w))))
	case types.KindF64:
		return floatV(types.KindF64, math.Float64frombits(w))
	case types.KindNull, types.KindObject, types.KindVariable:
		return objectV(memory.Address(w))
	default:
		return unit()
	}
}
