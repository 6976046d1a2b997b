package vm

import (
	"testing"

	"github.com/charygao/gypsum/internal/interp"
	"github.com/charygao/gypsum/internal/pkgformat"
	"github.com/charygao/gypsum/internal/types"
)

func mustI64Value(n int64) interp.Value { return interp.Value{Kind: types.KindI64, I: n} }

// buildIdentityPackage returns a hand-built package exposing a public
// function "double" (n => n+n) and a public, mutable global "counter",
// bypassing the on-disk loader/pkgformat pipeline entirely — this
// package tests the vm wrapper types against a Package built the way a
// loaded one would look, not the loading pipeline itself (see
// internal/loader's own tests for that).
func buildIdentityPackage() *types.Package {
	pkg := &types.Package{Name: types.NewName("sample")}

	buf := []byte{}
	buf = append(buf, byte(pkgformat.LDLOCAL))
	buf = pkgformat.PutVarint(buf, 0)
	buf = append(buf, byte(pkgformat.LDLOCAL))
	buf = pkgformat.PutVarint(buf, 0)
	buf = append(buf, byte(pkgformat.ADDI64))
	buf = append(buf, byte(pkgformat.RET))

	fn := &types.Function{
		Name:         types.NewName("double"),
		SourceName:   types.NewName("double"),
		Package:      pkg,
		ParamTypes:   []*types.Type{types.I64},
		ReturnType:   types.I64,
		Instructions: buf,
	}
	pkg.Functions = []*types.Function{fn}

	g := &types.Global{Name: types.NewName("counter"), Type: types.I64, Public: true}
	pkg.Globals = []*types.Global{g}

	return pkg
}

func TestFunctionCall(t *testing.T) {
	v := New(Config{})
	p := &Package{vm: v, pkg: buildIdentityPackage()}

	fn := p.Function("double")
	if fn == nil {
		t.Fatal("double not found")
	}
	result, err := fn.CallForI64(int64(21))
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if result != 42 {
		t.Errorf("double(21) = %d, want 42", result)
	}
}

func TestFunctionNotFound(t *testing.T) {
	v := New(Config{})
	p := &Package{vm: v, pkg: buildIdentityPackage()}

	if fn := p.Function("missing"); fn != nil {
		t.Error("expected nil for an unknown function name")
	}
}

func TestGlobalGetSet(t *testing.T) {
	v := New(Config{})
	p := &Package{vm: v, pkg: buildIdentityPackage()}

	g := p.Global("counter")
	if g == nil {
		t.Fatal("counter not found")
	}
	if g.IsInitialized() {
		t.Error("counter should start uninitialized")
	}

	g.SetValue(Value{raw: mustI64Value(7)})
	if !g.IsInitialized() {
		t.Error("counter should be initialized after SetValue")
	}
	if got := g.Value().I64(); got != 7 {
		t.Errorf("counter = %d, want 7", got)
	}
}

func TestGlobalSetFromNative(t *testing.T) {
	v := New(Config{})
	p := &Package{vm: v, pkg: buildIdentityPackage()}
	g := p.Global("counter")

	if err := g.SetFromNative(int64(9)); err != nil {
		t.Fatalf("SetFromNative: %v", err)
	}
	if got := g.Value().I64(); got != 9 {
		t.Errorf("counter = %d, want 9", got)
	}

	if err := g.SetFromNative("not a number"); err == nil {
		t.Error("expected an error converting an unsupported argument type")
	}
}

// buildPackageWithPrivateSymbols returns a package exposing one private
// global and one private function, neither carrying a source name (spec
// §6 scenario: a private symbol is reachable only by its defn name).
func buildPackageWithPrivateSymbols() *types.Package {
	pkg := &types.Package{Name: types.NewName("sample")}

	buf := []byte{byte(pkgformat.RET)}
	fn := &types.Function{
		Name:         types.NewName("hidden-fn"),
		Package:      pkg,
		Instructions: buf,
	}
	pkg.Functions = []*types.Function{fn}

	g := &types.Global{Name: types.NewName("hidden-var"), Type: types.I64, Public: false}
	pkg.Globals = []*types.Global{g}

	return pkg
}

// TestGlobalByDefnNameFindsPrivateSymbol exercises spec §8 scenario 4:
// findGlobal("hidden-var") by source name fails while by defn name
// succeeds.
func TestGlobalByDefnNameFindsPrivateSymbol(t *testing.T) {
	v := New(Config{})
	p := &Package{vm: v, pkg: buildPackageWithPrivateSymbols()}

	if g := p.Global("hidden-var"); g != nil {
		t.Error("Global found a private global by source name, want nil")
	}
	if g := p.GlobalByDefnName("hidden-var"); g == nil {
		t.Error("GlobalByDefnName didn't find the private global")
	}
}

// TestFunctionByDefnNameFindsPrivateSymbol mirrors the above for
// functions: a private function has no source name, so Function's
// public-only lookup must miss it while FunctionByDefnName finds it.
func TestFunctionByDefnNameFindsPrivateSymbol(t *testing.T) {
	v := New(Config{})
	p := &Package{vm: v, pkg: buildPackageWithPrivateSymbols()}

	if fn := p.Function("hidden-fn"); fn != nil {
		t.Error("Function found a private function by source name, want nil")
	}
	if fn := p.FunctionByDefnName("hidden-fn"); fn == nil {
		t.Error("FunctionByDefnName didn't find the private function")
	}
}

func TestPackageListings(t *testing.T) {
	v := New(Config{})
	p := &Package{vm: v, pkg: buildIdentityPackage()}

	fns := p.Functions()
	if len(fns) != 1 || fns[0].Name() != "double" {
		t.Errorf("Functions() = %v, want [double]", fns)
	}
	if !fns[0].IsPublic() {
		t.Error("double should be public")
	}

	gs := p.Globals()
	if len(gs) != 1 || gs[0].Name() != "counter" {
		t.Errorf("Globals() = %v, want [counter]", gs)
	}

	if len(p.Classes()) != 0 {
		t.Errorf("Classes() = %v, want none", p.Classes())
	}
}
