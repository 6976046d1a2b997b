package types

// Global is a module-level named slot (spec §3). Its initial state is
// uninitialized, distinct from holding null (spec §9 "Global
// uninitialized state"). State is tracked explicitly and queried directly
// by LDG/STG (spec §4.8) rather than by sniffing a sentinel value, since a
// Global's declared type may be a primitive that cannot host a
// pointer-sized sentinel unambiguously.
type Global struct {
	Name     Name
	Type     *Type
	Public   bool
	Constant bool
	Package  *Package

	state   globalState
	value   uint64 // raw word storage; interpreted per Type
}

type globalState uint8

const (
	globalUninitialized globalState = iota
	globalSet
)

func (g *Global) IsInitialized() bool { return g.state == globalSet }

// RawValue returns the stored word. Panics if uninitialized; callers
// (LDG/LDGF) must check IsInitialized first and raise UninitializedException
// instead of calling this.
func (g *Global) RawValue() uint64 {
	if g.state != globalSet {
		panic("types: Global.RawValue: read of uninitialized global " + g.Name.String())
	}
	return g.value
}

func (g *Global) SetRawValue(v uint64) {
	g.value = v
	g.state = globalSet
}
