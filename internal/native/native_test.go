package native

import (
	"testing"

	"github.com/charygao/gypsum/arch"
	"github.com/charygao/gypsum/internal/heap"
	"github.com/charygao/gypsum/internal/interp"
	"github.com/charygao/gypsum/internal/pkgformat"
	"github.com/charygao/gypsum/internal/types"
	"github.com/charygao/gypsum/internal/vmerr"
)

func intV(n int64) interp.Value { return interp.ValueFromRaw(types.I64, interp.RawWord(interp.Value{Kind: types.KindI64, I: n})) }

func TestCallNativeRoundTrip(t *testing.T) {
	h := heap.New(0)
	b := NewBridge(&arch.Host, h, nil)
	b.Register("math.addI64", func(ctx *Context, args []interp.Value) (interp.Value, error) {
		return interp.Value{Kind: types.KindI64, I: args[0].I + args[1].I}, nil
	})

	fn := &types.Function{
		Name:       types.NewName("math", "addI64"),
		Flags:      types.FunctionFlagNative,
		ParamTypes: []*types.Type{types.I64, types.I64},
		ReturnType: types.I64,
	}

	result, err := b.CallNative(fn, []interp.Value{intV(3), intV(4)})
	if err != nil {
		t.Fatalf("CallNative: %v", err)
	}
	if result.I != 7 {
		t.Errorf("addI64(3, 4) = %d, want 7", result.I)
	}

	// Second call must hit the NativeAddr cache rather than the name map.
	if fn.NativeAddr == 0 {
		t.Fatal("NativeAddr not cached after first resolution")
	}
	result, err = b.CallNative(fn, []interp.Value{intV(10), intV(5)})
	if err != nil {
		t.Fatalf("CallNative (cached): %v", err)
	}
	if result.I != 15 {
		t.Errorf("addI64(10, 5) = %d, want 15", result.I)
	}
}

func TestCallNativeUnresolved(t *testing.T) {
	h := heap.New(0)
	b := NewBridge(&arch.Host, h, nil)

	fn := &types.Function{
		Name:       types.NewName("math", "missing"),
		Flags:      types.FunctionFlagNative,
		ParamTypes: nil,
	}

	_, err := b.CallNative(fn, nil)
	if err == nil {
		t.Fatal("expected an error for an unregistered native function")
	}
	verr, ok := err.(*vmerr.Error)
	if !ok || verr.Kind != vmerr.KindNativeLinkError {
		t.Fatalf("got %v, want a KindNativeLinkError", err)
	}
}

func TestCallNativeNullObjectArg(t *testing.T) {
	h := heap.New(0)
	b := NewBridge(&arch.Host, h, nil)
	objType := types.NewObjectType(&types.Class{Name: types.NewName("T")})

	b.Register("obj.isNull", func(ctx *Context, args []interp.Value) (interp.Value, error) {
		v := interp.Value{Kind: types.KindBoolean}
		if args[0].Ptr.IsZero() {
			v.I = 1
		}
		return v, nil
	})

	fn := &types.Function{
		Name:       types.NewName("obj", "isNull"),
		Flags:      types.FunctionFlagNative,
		ParamTypes: []*types.Type{objType},
		ReturnType: types.Boolean,
	}

	result, err := b.CallNative(fn, []interp.Value{{Kind: types.KindNull}})
	if err != nil {
		t.Fatalf("CallNative: %v", err)
	}
	if result.I != 1 {
		t.Errorf("isNull(null) = %d, want 1 (true)", result.I)
	}
}

// buildTryCallCatch assembles: PUSHTRY(try, catch); try: CALLG #0; RET —
// a PUSHTRY-protected call to package function index 0, landing on RET
// either with CALLG's own result (try path) or the caught exception value
// raise() pushes before jumping to catch (spec §8 scenario 6). Every
// operand here is a single-byte varint (values 0-5), so each
// instruction's encoded length is fixed: PUSHTRY is 3 bytes (opcode + 2
// operands), CALLG is 2 bytes (opcode + 1 operand), RET is 1 byte.
func buildTryCallCatch() []byte {
	const (
		pushtryOffset = 0
		callgOffset   = pushtryOffset + 3
		retOffset     = callgOffset + 2
	)
	var buf []byte
	buf = append(buf, byte(pkgformat.PUSHTRY))
	buf = pkgformat.PutVarint(buf, callgOffset)
	buf = pkgformat.PutVarint(buf, retOffset)
	buf = append(buf, byte(pkgformat.CALLG))
	buf = pkgformat.PutVarint(buf, 0)
	buf = append(buf, byte(pkgformat.RET))
	return buf
}

// TestCallNativeThrowCaughtByBytecode exercises spec §8 scenario 6's "host
// function throws through throwNativeFunction, caught by bytecode
// try/catch" end to end: a real Bridge-backed native call raises an
// exception via Context.Throw, and the calling frame's PUSHTRY handler
// catches it.
func TestCallNativeThrowCaughtByBytecode(t *testing.T) {
	h := heap.New(0)
	in := interp.New(h)
	b := NewBridge(&arch.Host, h, in)
	in.Native = b

	b.Register("native.boom", func(ctx *Context, args []interp.Value) (interp.Value, error) {
		return interp.Value{}, ctx.Throw(interp.Value{Kind: types.KindI64, I: 99})
	})

	pkg := &types.Package{}
	native := &types.Function{
		Name:  types.NewName("native", "boom"),
		Flags: types.FunctionFlagNative,
	}
	caller := &types.Function{
		Name:         types.NewName("caller"),
		Package:      pkg,
		ReturnType:   types.I64,
		Instructions: buildTryCallCatch(),
	}
	pkg.Functions = []*types.Function{native, caller}

	result, err := in.Run(caller, nil, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.I != 99 {
		t.Errorf("caught exception value = %d, want 99", result.I)
	}
}

// TestContextCallInvokesRunner exercises a native function that calls
// back into bytecode via Context.Call (spec §4.9's constructor-from-host
// case), confirming the Runner field threaded through NewBridge is
// actually reachable from a HostFunc.
func TestContextCallInvokesRunner(t *testing.T) {
	h := heap.New(0)
	in := interp.New(h)
	b := NewBridge(&arch.Host, h, in)
	in.Native = b

	doubled := &types.Function{
		Name:       types.NewName("double"),
		ReturnType: types.I64,
		Instructions: func() []byte {
			var buf []byte
			buf = append(buf, byte(pkgformat.LDLOCAL))
			buf = pkgformat.PutVarint(buf, 0)
			buf = append(buf, byte(pkgformat.LDLOCAL))
			buf = pkgformat.PutVarint(buf, 0)
			buf = append(buf, byte(pkgformat.ADDI64))
			buf = append(buf, byte(pkgformat.RET))
			return buf
		}(),
		ParamTypes: []*types.Type{types.I64},
	}
	pkg := &types.Package{Functions: []*types.Function{doubled}}
	doubled.Package = pkg

	b.Register("native.callDouble", func(ctx *Context, args []interp.Value) (interp.Value, error) {
		return ctx.Call(doubled, []interp.Value{args[0]}, nil)
	})

	fn := &types.Function{
		Name:       types.NewName("native", "callDouble"),
		Flags:      types.FunctionFlagNative,
		ParamTypes: []*types.Type{types.I64},
		ReturnType: types.I64,
	}

	result, err := b.CallNative(fn, []interp.Value{intV(21)})
	if err != nil {
		t.Fatalf("CallNative: %v", err)
	}
	if result.I != 42 {
		t.Errorf("callDouble(21) = %d, want 42 (Context.Call didn't reach the interpreter)", result.I)
	}
}

func TestClassifyArgsSpillsPastRegisterBudget(t *testing.T) {
	a := &arch.Architecture{IntRegs: 1, FloatRegs: 1}
	plan := classifyArgs(a, []*types.Type{types.I64, types.I64, types.F64})

	if plan.spilled[0] {
		t.Error("first int arg should fit in the register budget")
	}
	if !plan.spilled[1] {
		t.Error("second int arg should spill past a 1-register budget")
	}
	if plan.classes[2] != floatClass || plan.spilled[2] {
		t.Error("sole float arg should be float-class and fit")
	}
}
