package loader

import (
	"github.com/charygao/gypsum/internal/pkgformat"
	"github.com/charygao/gypsum/internal/types"
	"github.com/charygao/gypsum/internal/vmerr"
)

// linkPackage fills pkg.LinkedClasses/LinkedFunctions/LinkedGlobals (spec
// §4.5 step 5): for each dependency, resolve every externed symbol this
// package references by name against that dependency's public table.
// Globals and functions are matched by source name (public visibility
// only, per spec §4.5 "Symbol resolution"); classes have no separate
// visibility bit in this format, so they resolve against the dependency's
// full class table by name.
func linkPackage(f *pkgformat.File, pkg *types.Package, deps []*types.Package) error {
	pkg.LinkedClasses = make([][]*types.Class, len(deps))
	pkg.LinkedFunctions = make([][]*types.Function, len(deps))
	pkg.LinkedGlobals = make([][]*types.Global, len(deps))

	for i, d := range f.Deps {
		dep := deps[i]

		classes := make([]*types.Class, len(d.ExternClassNameRefs))
		for j, nameRef := range d.ExternClassNameRefs {
			name := nameFromRefs(f, nameRef)
			c := dep.FindClass(name)
			if c == nil {
				return vmerr.New(vmerr.KindLoadError, "unresolved extern class %s in dependency %s", name, dep.Name)
			}
			classes[j] = c
		}
		pkg.LinkedClasses[i] = classes

		fns := make([]*types.Function, len(d.ExternFunctionNameRefs))
		for j, nameRef := range d.ExternFunctionNameRefs {
			name := nameFromRefs(f, nameRef)
			fn := dep.FindFunction(name, true)
			if fn == nil {
				return vmerr.New(vmerr.KindLoadError, "unresolved extern function %s in dependency %s", name, dep.Name)
			}
			fns[j] = fn
		}
		pkg.LinkedFunctions[i] = fns

		globals := make([]*types.Global, len(d.ExternGlobalNameRefs))
		for j, nameRef := range d.ExternGlobalNameRefs {
			name := nameFromRefs(f, nameRef)
			g := dep.FindGlobal(name, true)
			if g == nil {
				return vmerr.New(vmerr.KindLoadError, "unresolved extern global %s in dependency %s", name, dep.Name)
			}
			globals[j] = g
		}
		pkg.LinkedGlobals[i] = globals
	}

	return nil
}

func nameFromRefs(f *pkgformat.File, nameRef int) types.Name {
	if nameRef < 0 || nameRef >= len(f.Names) {
		return types.Name{}
	}
	comps := f.Names[nameRef]
	parts := make([]string, len(comps))
	for i, ref := range comps {
		if ref >= 0 && ref < len(f.Strings) {
			parts[i] = f.Strings[ref]
		}
	}
	return types.NewName(parts...)
}

// buildMetas builds each local class's Meta in supertype-first order, so
// BuildMeta can always see its supertype's already-built Meta (spec §4.4
// "the Meta is built once a Class's fields and supertype are known").
// External supertypes already have a Meta: their owning package finished
// this step before this package started (dependencies load fully first).
func buildMetas(pkg *types.Package) {
	done := make(map[*types.Class]bool)
	var build func(c *types.Class)
	build = func(c *types.Class) {
		if done[c] || c.Meta != nil {
			done[c] = true
			return
		}
		if sup := c.SuperClass(); sup != nil && sup.Package == pkg {
			build(sup)
		}
		types.BuildMeta(c)
		done[c] = true
	}
	for _, c := range pkg.Classes {
		build(c)
	}
}

// buildVTables builds each local class's vtable bottom-up, mirroring
// buildMetas's ordering requirement (spec §9 "dynamic dispatch").
func buildVTables(pkg *types.Package) {
	done := make(map[*types.Class]bool)
	var build func(c *types.Class)
	build = func(c *types.Class) {
		if done[c] {
			return
		}
		if sup := c.SuperClass(); sup != nil && sup.Package == pkg {
			build(sup)
		}
		c.BuildVTable()
		done[c] = true
	}
	for _, c := range pkg.Classes {
		build(c)
	}
}
