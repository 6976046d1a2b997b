package vm

import (
	"fmt"

	"github.com/charygao/gypsum/internal/interp"
	"github.com/charygao/gypsum/internal/types"
)

// Global is a loaded package-level global, scoped to the VM it was
// loaded into.
type Global struct {
	g *types.Global
}

func (g *Global) Name() string { return g.g.Name.String() }

// IsPublic reports whether this global is visible to other packages.
func (g *Global) IsPublic() bool { return g.g.Public }

// Type returns the global's declared type.
func (g *Global) Type() string { return g.g.Type.String() }

// IsConstant reports whether writing to this global after its first
// initialization is rejected (spec §4.8 STG/STGF's constant check).
func (g *Global) IsConstant() bool { return g.g.Constant }

// IsInitialized reports whether the global has ever been written.
// Reading an uninitialized global's Value raises a catchable fault
// inside bytecode (LDG/LDGF); from the host side it's just reported here
// rather than surfaced as an error, since the host isn't bound by the
// bytecode-level exception model.
func (g *Global) IsInitialized() bool { return g.g.IsInitialized() }

// Value returns the global's current value. Panics if uninitialized;
// check IsInitialized first.
func (g *Global) Value() Value {
	return Value{raw: interp.ValueFromRaw(g.g.Type, g.g.RawValue())}
}

// SetValue writes v into the global, honoring neither the constant check
// nor the bytecode exception model — a host embedding that needs those
// semantics should drive them through a Function instead.
func (g *Global) SetValue(v Value) {
	g.g.SetRawValue(interp.RawWord(v.raw))
}

// SetFromNative converts a Go-native value (as accepted by Function.Call)
// to this global's type and writes it, honoring the constant check a
// direct SetValue call skips.
func (g *Global) SetFromNative(a interface{}) error {
	if g.g.Constant && g.g.IsInitialized() {
		return fmt.Errorf("vm: global %s is constant and already initialized", g.g.Name)
	}
	v, err := convertValue(g.g.Type, a)
	if err != nil {
		return fmt.Errorf("vm: global %s: %w", g.g.Name, err)
	}
	g.SetValue(Value{raw: v})
	return nil
}
