package interp

import (
	"testing"

	"github.com/charygao/gypsum/internal/pkgformat"
	"github.com/charygao/gypsum/internal/types"
)

// asm assembles a function's raw instruction stream, resolving forward
// branch targets in a second pass. Every operand value used by these
// tests lies between -64 and 63 so every signed varint is exactly one
// byte.
type asm struct {
	buf     []byte
	labels  map[string]int64
	pending []pendingRef
}

type pendingRef struct {
	offset int
	label  string
}

func newAsm() *asm { return &asm{labels: map[string]int64{}} }

func (a *asm) mark(name string) { a.labels[name] = int64(len(a.buf)) }

func (a *asm) emit(op pkgformat.Opcode, operands ...interface{}) {
	a.buf = append(a.buf, byte(op))
	for _, o := range operands {
		switch v := o.(type) {
		case int64:
			a.buf = pkgformat.PutVarint(a.buf, v)
		case int:
			a.buf = pkgformat.PutVarint(a.buf, int64(v))
		case string:
			a.pending = append(a.pending, pendingRef{offset: len(a.buf), label: v})
			a.buf = pkgformat.PutVarint(a.buf, 0)
		default:
			panic("asm: bad operand type")
		}
	}
}

func (a *asm) code() []byte {
	for _, p := range a.pending {
		target, ok := a.labels[p.label]
		if !ok {
			panic("asm: unresolved label " + p.label)
		}
		if target >= 0x40 {
			panic("asm: label too far for this test harness's one-byte assumption")
		}
		a.buf[p.offset] = byte(target)
	}
	return a.buf
}

// TestRunIterativeFactorial exercises straight-line arithmetic, local
// addressing and backward/forward branches (spec §8's iterative
// factorial scenario) without touching the heap at all.
func TestRunIterativeFactorial(t *testing.T) {
	a := newAsm()
	a.emit(pkgformat.I64, int64(1))
	a.emit(pkgformat.STLOCAL, int64(-1)) // acc = 1
	a.emit(pkgformat.LDLOCAL, int64(0))
	a.emit(pkgformat.STLOCAL, int64(-2)) // i = n
	a.mark("loop")
	a.emit(pkgformat.LDLOCAL, int64(-2))
	a.emit(pkgformat.I64, int64(0))
	a.emit(pkgformat.GTI64)
	a.emit(pkgformat.BRANCHIF, "body")
	a.emit(pkgformat.BRANCH, "done")
	a.mark("body")
	a.emit(pkgformat.LDLOCAL, int64(-1))
	a.emit(pkgformat.LDLOCAL, int64(-2))
	a.emit(pkgformat.MULI64)
	a.emit(pkgformat.STLOCAL, int64(-1)) // acc *= i
	a.emit(pkgformat.LDLOCAL, int64(-2))
	a.emit(pkgformat.I64, int64(1))
	a.emit(pkgformat.SUBI64)
	a.emit(pkgformat.STLOCAL, int64(-2)) // i -= 1
	a.emit(pkgformat.BRANCH, "loop")
	a.mark("done")
	a.emit(pkgformat.LDLOCAL, int64(-1))
	a.emit(pkgformat.RET)

	fn := &types.Function{
		Name:       types.NewName("factorial"),
		Package:    &types.Package{},
		ParamTypes: []*types.Type{types.I64},
		LocalsSize: 2 * types.WordSize,
		Instructions: a.code(),
	}
	fn.Package.Functions = []*types.Function{fn}

	in := New(nil)
	result, err := in.Run(fn, []Value{intV(types.KindI64, 5)}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.I != 120 {
		t.Errorf("factorial(5) = %d, want 120", result.I)
	}
	if in.Stack().depth() != 0 {
		t.Errorf("call stack not unwound after Run returns: depth %d", in.Stack().depth())
	}
}

// TestRunRecursiveFactorialCallG exercises CALLG and the interpreter's
// own recursive use of Run via the call stack (spec §8's recursive
// factorial scenario).
func TestRunRecursiveFactorialCallG(t *testing.T) {
	a := newAsm()
	// if n <= 1: return 1
	a.emit(pkgformat.LDLOCAL, int64(0))
	a.emit(pkgformat.I64, int64(1))
	a.emit(pkgformat.LEI64)
	a.emit(pkgformat.BRANCHIF, "base")
	a.emit(pkgformat.BRANCH, "recurse")
	a.mark("base")
	a.emit(pkgformat.I64, int64(1))
	a.emit(pkgformat.RET)
	a.mark("recurse")
	// return n * factorial(n - 1)
	a.emit(pkgformat.LDLOCAL, int64(0))
	a.emit(pkgformat.LDLOCAL, int64(0))
	a.emit(pkgformat.I64, int64(1))
	a.emit(pkgformat.SUBI64)
	a.emit(pkgformat.CALLG, int64(0))
	a.emit(pkgformat.MULI64)
	a.emit(pkgformat.RET)

	pkg := &types.Package{}
	fn := &types.Function{
		Name:         types.NewName("factorial"),
		Package:      pkg,
		ParamTypes:   []*types.Type{types.I64},
		ReturnType:   types.I64,
		Instructions: a.code(),
	}
	pkg.Functions = []*types.Function{fn}

	in := New(nil)
	result, err := in.Run(fn, []Value{intV(types.KindI64, 5)}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.I != 120 {
		t.Errorf("factorial(5) = %d, want 120", result.I)
	}
}

// TestRunUninitializedGlobalCaught exercises LDG's uninitialized-access
// fault being caught by an active PUSHTRY handler (spec §8's
// uninitialized-global scenario).
func TestRunUninitializedGlobalCaught(t *testing.T) {
	a := newAsm()
	a.emit(pkgformat.PUSHTRY, "try", "catch")
	a.mark("try")
	a.emit(pkgformat.LDG, int64(0))
	a.emit(pkgformat.BRANCH, "after")
	a.mark("catch")
	a.emit(pkgformat.DROP)
	a.emit(pkgformat.I64, int64(-1))
	a.mark("after")
	a.emit(pkgformat.RET)

	pkg := &types.Package{
		Globals: []*types.Global{{Name: types.NewName("g"), Type: types.I64}},
	}
	fn := &types.Function{
		Name:         types.NewName("readG"),
		Package:      pkg,
		ReturnType:   types.I64,
		Instructions: a.code(),
	}
	pkg.Functions = []*types.Function{fn}

	in := New(nil)
	result, err := in.Run(fn, nil, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.I != -1 {
		t.Errorf("result = %d, want -1 (catch block ran)", result.I)
	}
}

// TestRunUncaughtUninitializedGlobal exercises the same fault with no
// handler installed: it must propagate out of Run as a Go error.
func TestRunUncaughtUninitializedGlobal(t *testing.T) {
	a := newAsm()
	a.emit(pkgformat.LDG, int64(0))
	a.emit(pkgformat.RET)

	pkg := &types.Package{
		Globals: []*types.Global{{Name: types.NewName("g"), Type: types.I64}},
	}
	fn := &types.Function{
		Name:         types.NewName("readG"),
		Package:      pkg,
		Instructions: a.code(),
	}
	pkg.Functions = []*types.Function{fn}

	in := New(nil)
	if _, err := in.Run(fn, nil, nil); err == nil {
		t.Fatal("expected an uncaught-fault error, got nil")
	}
}

// throwingNativeCaller implements NativeCaller by immediately raising a
// bytecode exception via ThrowNativeFunction, standing in for a host
// function that throws through the native bridge (internal/native can't
// be imported here without an import cycle, since it itself depends on
// this package).
type throwingNativeCaller struct{ exc Value }

func (c throwingNativeCaller) CallNative(fn *types.Function, args []Value) (Value, error) {
	return Value{}, ThrowNativeFunction(c.exc)
}

// TestRunNativeThrowCaught exercises spec §8 scenario 6's "a host
// function throws through throwNativeFunction, caught by a bytecode
// try/catch block": a CALLG to a native-flagged function raises an
// exception that unwinds into the calling frame's own PUSHTRY handler.
func TestRunNativeThrowCaught(t *testing.T) {
	a := newAsm()
	a.emit(pkgformat.PUSHTRY, "try", "catch")
	a.mark("try")
	a.emit(pkgformat.CALLG, int64(0))
	a.emit(pkgformat.BRANCH, "after")
	a.mark("catch")
	a.mark("after")
	a.emit(pkgformat.RET)

	pkg := &types.Package{}
	native := &types.Function{
		Name:  types.NewName("native", "boom"),
		Flags: types.FunctionFlagNative,
	}
	caller := &types.Function{
		Name:         types.NewName("caller"),
		Package:      pkg,
		ReturnType:   types.I64,
		Instructions: a.code(),
	}
	pkg.Functions = []*types.Function{native, caller}

	in := New(nil)
	in.Native = throwingNativeCaller{exc: intV(types.KindI64, 99)}

	result, err := in.Run(caller, nil, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.I != 99 {
		t.Errorf("caught exception value = %d, want 99", result.I)
	}
}
