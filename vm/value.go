package vm

import (
	"fmt"

	"github.com/charygao/gypsum/internal/interp"
	"github.com/charygao/gypsum/internal/types"
)

// Value is a host-facing view of one interpreter Value: a function
// result or a global's current value, exposed without requiring the host
// to import internal/interp.
type Value struct {
	raw interp.Value
}

// IsNull reports whether v is a null object reference.
func (v Value) IsNull() bool { return v.raw.IsObject() && v.raw.Ptr.IsZero() }

// I64 returns v's integer representation (valid for any iN or boolean
// kind; 0/1 for boolean).
func (v Value) I64() int64 { return v.raw.I }

// F64 returns v's floating-point representation (valid for f32/f64).
func (v Value) F64() float64 { return v.raw.F }

// Bool returns v's boolean representation.
func (v Value) Bool() bool { return v.raw.I != 0 }

// convertValue converts a Go-native argument (int64, int, float64, bool,
// or nil) into the interp.Value representation a Value of type t expects.
// Shared between Function.Call and Global.SetFromNative so both host
// entry points agree on the same conversion rules.
func convertValue(t *types.Type, a interface{}) (interp.Value, error) {
	switch v := a.(type) {
	case int64:
		return interp.ValueFromRaw(t, interp.RawWord(interp.Value{Kind: t.Kind, I: v})), nil
	case int:
		return convertValue(t, int64(v))
	case float64:
		return interp.ValueFromRaw(t, interp.RawWord(interp.Value{Kind: t.Kind, F: v})), nil
	case bool:
		n := int64(0)
		if v {
			n = 1
		}
		return interp.Value{Kind: types.KindBoolean, I: n}, nil
	case nil:
		return interp.Value{Kind: types.KindNull}, nil
	default:
		return interp.Value{}, fmt.Errorf("vm: unsupported argument type %T for type %s", a, t)
	}
}
