package vm

import (
	"fmt"

	"github.com/charygao/gypsum/internal/interp"
	"github.com/charygao/gypsum/internal/types"
)

// Function is a loaded function, scoped to the VM it was loaded into.
type Function struct {
	vm *VM
	fn *types.Function
}

func (f *Function) Name() string { return f.fn.Name.String() }

// IsPublic reports whether this function has a public (source) name
// callers outside its package may resolve it by.
func (f *Function) IsPublic() bool { return !f.fn.SourceName.IsZero() }

// NumParams returns the number of parameters the function expects
// (including a receiver, for a method or constructor).
func (f *Function) NumParams() int { return len(f.fn.ParamTypes) }

// Signature renders the function's parameter and return types, e.g.
// "(i64, i64) i64".
func (f *Function) Signature() string {
	s := "("
	for i, p := range f.fn.ParamTypes {
		if i > 0 {
			s += ", "
		}
		s += p.String()
	}
	return s + ") " + f.fn.ReturnType.String()
}

// Call invokes the function with args, given as raw Go values matching
// each parameter's expected representation (int64 for any integer kind,
// float64 for f32/f64, bool for boolean, nil for an object reference).
// It's a convenience over CallValues for host code that doesn't need to
// pass object references.
func (f *Function) Call(args ...interface{}) (Value, error) {
	vals := make([]interp.Value, len(args))
	for i, a := range args {
		v, err := f.convertArg(i, a)
		if err != nil {
			return Value{}, err
		}
		vals[i] = v
	}
	return f.CallValues(vals)
}

func (f *Function) convertArg(i int, a interface{}) (interp.Value, error) {
	if i >= len(f.fn.ParamTypes) {
		return interp.Value{}, fmt.Errorf("vm: Call: too many arguments for %s", f.fn.Name)
	}
	v, err := convertValue(f.fn.ParamTypes[i], a)
	if err != nil {
		return interp.Value{}, fmt.Errorf("vm: Call: parameter %d of %s: %w", i, f.fn.Name, err)
	}
	return v, nil
}

// CallValues invokes the function with already-built interpreter Values,
// for callers (e.g. the REPL) that already hold one, such as an object
// reference returned by an earlier call.
func (f *Function) CallValues(args []interp.Value) (Value, error) {
	result, err := f.vm.Interp.Run(f.fn, args, nil)
	if err != nil {
		return Value{}, err
	}
	return Value{raw: result}, nil
}

// CallForI64 invokes the function and returns its result as an int64,
// for the common case of a host caller that knows the return type is an
// integer kind.
func (f *Function) CallForI64(args ...interface{}) (int64, error) {
	v, err := f.Call(args...)
	if err != nil {
		return 0, err
	}
	return v.raw.I, nil
}

// CallForF64 invokes the function and returns its result as a float64.
func (f *Function) CallForF64(args ...interface{}) (float64, error) {
	v, err := f.Call(args...)
	if err != nil {
		return 0, err
	}
	return v.raw.F, nil
}
