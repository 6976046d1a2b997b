package vm

import "github.com/charygao/gypsum/internal/types"

// Package is a loaded package, scoped to the VM it was loaded into.
type Package struct {
	vm  *VM
	pkg *types.Package
}

// Name returns the package's dotted name, as loaded.
func (p *Package) Name() string { return p.pkg.Name.String() }

// Function looks up a function of this package by its source (public)
// name, e.g. "factorial". Returns nil if no public function has that
// name.
func (p *Package) Function(sourceName string) *Function {
	fn := p.pkg.FindFunction(parseName(sourceName), true)
	if fn == nil {
		return nil
	}
	return &Function{vm: p.vm, fn: fn}
}

// Global looks up a public global of this package by source name.
// Returns nil if none exists.
func (p *Package) Global(sourceName string) *Global {
	g := p.pkg.FindGlobal(parseName(sourceName), true)
	if g == nil {
		return nil
	}
	return &Global{g: g}
}

// FunctionByDefnName looks up a function of this package by its defn
// name — the canonical form every function has regardless of visibility.
// Unlike Function, this finds private functions too (spec §6's "lookup
// by... defn name (all symbols)").
func (p *Package) FunctionByDefnName(defnName string) *Function {
	fn := p.pkg.FindFunction(parseName(defnName), false)
	if fn == nil {
		return nil
	}
	return &Function{vm: p.vm, fn: fn}
}

// GlobalByDefnName looks up a global of this package by its defn name,
// including private globals that Global's source-name, public-only
// lookup can't reach (spec §6's "lookup by... defn name (all symbols)").
func (p *Package) GlobalByDefnName(defnName string) *Global {
	g := p.pkg.FindGlobal(parseName(defnName), false)
	if g == nil {
		return nil
	}
	return &Global{g: g}
}

// Class looks up a class of this package by name. Returns nil if none
// exists.
func (p *Package) Class(name string) *Class {
	c := p.pkg.FindClass(parseName(name))
	if c == nil {
		return nil
	}
	return &Class{vm: p.vm, class: c}
}

// EntryFunction returns the package's designated entry point, or nil if
// it declares none.
func (p *Package) EntryFunction() *Function {
	if p.pkg.EntryFunction == nil {
		return nil
	}
	return &Function{vm: p.vm, fn: p.pkg.EntryFunction}
}

// Functions returns every function this package defines, including
// private ones (use Function.IsPublic to tell them apart).
func (p *Package) Functions() []*Function {
	fns := make([]*Function, len(p.pkg.Functions))
	for i, fn := range p.pkg.Functions {
		fns[i] = &Function{vm: p.vm, fn: fn}
	}
	return fns
}

// Globals returns every global this package defines, including private
// ones.
func (p *Package) Globals() []*Global {
	gs := make([]*Global, len(p.pkg.Globals))
	for i, g := range p.pkg.Globals {
		gs[i] = &Global{g: g}
	}
	return gs
}

// Classes returns every class this package defines.
func (p *Package) Classes() []*Class {
	cs := make([]*Class, len(p.pkg.Classes))
	for i, c := range p.pkg.Classes {
		cs[i] = &Class{vm: p.vm, class: c}
	}
	return cs
}

// Class is a loaded class, scoped to the VM it was loaded into. It
// exposes lookup of fields and constructors; instances are created by
// calling a constructor (spec §4.8 ALLOCOBJ + constructor call), not
// through this wrapper directly.
type Class struct {
	vm    *VM
	class *types.Class
}

func (c *Class) Name() string { return c.class.Name.String() }

// Field looks up one of the class's fields by name, returning its
// declared Type and whether it was found.
func (c *Class) Field(name string) (*types.Type, bool) {
	for i := range c.class.Fields {
		if c.class.Fields[i].Name == name {
			return c.class.Fields[i].Type, true
		}
	}
	return nil, false
}

// Constructor looks up one of the class's constructors by its parameter
// count (the package format has no constructor overload names beyond
// arity). Returns nil if none matches.
func (c *Class) Constructor(numParams int) *Function {
	for _, ctor := range c.class.Constructors {
		// The constructor's own receiver occupies ParamTypes[0].
		if len(ctor.ParamTypes)-1 == numParams {
			return &Function{vm: c.vm, fn: ctor}
		}
	}
	return nil
}
