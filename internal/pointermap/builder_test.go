package pointermap

import (
	"testing"

	"github.com/charygao/gypsum/internal/pkgformat"
	"github.com/charygao/gypsum/internal/types"
)

// asm assembles a function's raw instruction stream, resolving forward
// branch targets in a second pass. Every operand value used by these
// tests lies between -64 and 63 so every signed varint is exactly one
// byte; that keeps
// a label's resolved pc the same width as the zero placeholder emitted
// before the label is known.
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

func boxClass() *types.Class {
	return types.NewClassShell(types.NewName("Box"), nil)
}

func TestBuildAllocSnapshot(t *testing.T) {
	box := boxClass()
	pkg := &types.Package{Classes: []*types.Class{box}}

	a := newAsm()
	a.emit(pkgformat.ALLOCOBJ, 0)
	a.emit(pkgformat.STLOCAL, int64(-1))
	a.emit(pkgformat.LDLOCAL, int64(-1))
	a.emit(pkgformat.RET)

	fn := &types.Function{
		Package:      pkg,
		LocalsSize:   types.WordSize,
		Instructions: a.code(),
	}

	m, err := Build(fn)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(m.Entries) != 1 {
		t.Fatalf("expected 1 GC-safe-point entry, got %d", len(m.Entries))
	}
	if m.Entries[0].PCOffset != 0 {
		t.Errorf("expected snapshot at pc 0 (before ALLOCOBJ completes), got %d", m.Entries[0].PCOffset)
	}
	region := m.LocalsRegion(0)
	if len(region) != 1 || region[0] {
		t.Errorf("expected a single non-pointer local at the alloc snapshot, got %v", region)
	}
}

func TestBuildBranchConvergence(t *testing.T) {
	box := boxClass()
	pkg := &types.Package{Classes: []*types.Class{box}}

	a := newAsm()
	a.emit(pkgformat.FALSE)
	a.emit(pkgformat.BRANCHIF, "pathB")
	// fallthrough: pathA
	a.emit(pkgformat.ALLOCOBJ, 0)
	a.emit(pkgformat.BRANCH, "join")
	a.mark("pathB")
	a.emit(pkgformat.ALLOCOBJ, 0)
	a.mark("join")
	a.emit(pkgformat.RET)

	fn := &types.Function{
		Package:      pkg,
		Instructions: a.code(),
	}

	m, err := Build(fn)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(m.Entries) != 2 {
		t.Fatalf("expected an ALLOCOBJ snapshot on each branch, got %d entries", len(m.Entries))
	}
}

func TestBuildPushTryCatch(t *testing.T) {
	a := newAsm()
	a.emit(pkgformat.PUSHTRY, "tryBody", "catchBody")
	a.mark("tryBody")
	a.emit(pkgformat.I64, int64(0))
	a.emit(pkgformat.RET)
	a.mark("catchBody")
	a.emit(pkgformat.STLOCAL, int64(-1))
	a.emit(pkgformat.UNIT)
	a.emit(pkgformat.RET)

	fn := &types.Function{
		LocalsSize:   types.WordSize,
		Instructions: a.code(),
	}

	if _, err := Build(fn); err != nil {
		t.Fatalf("Build: %v", err)
	}
}

func TestBuildLocalAddressing(t *testing.T) {
	box := boxClass()
	paramType := types.NewObjectType(box)

	a := newAsm()
	a.emit(pkgformat.LDLOCAL, int64(0)) // parameter 0
	a.emit(pkgformat.DROP)
	a.emit(pkgformat.UNIT)
	a.emit(pkgformat.STLOCAL, int64(-1)) // local slot 0
	a.emit(pkgformat.LDLOCAL, int64(-1))
	a.emit(pkgformat.RET)

	fn := &types.Function{
		ParamTypes:   []*types.Type{paramType},
		LocalsSize:   types.WordSize,
		Instructions: a.code(),
	}

	m, err := Build(fn)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(m.ParamBits) != 1 || !m.ParamBits[0] {
		t.Errorf("expected parameter 0 classified as a pointer, got %v", m.ParamBits)
	}
}
