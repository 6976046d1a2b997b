package types

// Dependency is one entry of a Package's dependency list, as recorded in
// the package format (spec §6).
type Dependency struct {
	Name       Name
	MinVersion Version
	MaxVersion Version

	NumExternGlobals   int
	NumExternFunctions int
	NumExternClasses   int
}

type Version struct {
	Major, Minor, Patch uint16
}

func (v Version) Less(o Version) bool {
	if v.Major != o.Major {
		return v.Major < o.Major
	}
	if v.Minor != o.Minor {
		return v.Minor < o.Minor
	}
	return v.Patch < o.Patch
}

func (v Version) InRange(min, max Version) bool {
	return !v.Less(min) && !max.Less(v)
}

// Package is the unit of compiled distribution (spec §3, §4.5): a single
// loadable file's worth of classes, functions, globals, and dependency
// links. Linked* arrays are filled by the loader once per dependency, and
// resolve a definition-table index in the dependency into the concrete
// *Class/*Function/*Global the dependency actually loaded to.
type Package struct {
	Name         Name
	Version      Version
	Dependencies []Dependency

	Globals   []*Global
	Functions []*Function
	Classes   []*Class

	Strings []string
	Names   []Name

	EntryFunction *Function

	// Deps holds the resolved *Package for each entry of Dependencies, in
	// order.
	Deps []*Package

	// LinkedClasses/LinkedFunctions/LinkedGlobals hold, per dependency (same
	// order as Dependencies/Deps), the resolved definitions for that
	// dependency's externed symbols this package references.
	LinkedClasses   [][]*Class
	LinkedFunctions [][]*Function
	LinkedGlobals   [][]*Global

	initialized bool
}

// FindGlobal looks up a global by name within this package. If public, only
// publicly visible globals are considered (the name's source form);
// otherwise every global, including private ones, is considered (the
// name's defn form). Spec §4.5.
func (p *Package) FindGlobal(name Name, publicOnly bool) *Global {
	for _, g := range p.Globals {
		if !g.Name.Equal(name) {
			continue
		}
		if publicOnly && !g.Public {
			continue
		}
		return g
	}
	return nil
}

func (p *Package) FindFunction(name Name, publicOnly bool) *Function {
	for _, f := range p.Functions {
		n := f.Name
		if publicOnly {
			n = f.SourceName
		}
		if n.Equal(name) {
			return f
		}
	}
	return nil
}

func (p *Package) FindClass(name Name) *Class {
	for _, c := range p.Classes {
		if c.Name.Equal(name) {
			return c
		}
	}
	return nil
}
