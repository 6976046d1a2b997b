// Package loader implements the VM's package loading pipeline (spec
// §4.5): reading a package file, resolving and recursively loading its
// dependencies, building the in-memory Class/Function/Global graph, and
// linking cross-package symbol references.
package loader

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charygao/gypsum/internal/pkgformat"
	"github.com/charygao/gypsum/internal/types"
	"github.com/charygao/gypsum/internal/vmerr"
)

// FileExt is the conventional extension for package files produced for
// this VM.
const FileExt = ".gypk"

// Loader resolves package names against an ordered list of search
// directories and caches loaded packages by name, detecting dependency
// cycles (spec §4.5 step 3: "cycles are an error").
type Loader struct {
	SearchPaths []string

	loaded  map[string]*types.Package
	loading map[string]bool
}

func New(searchPaths []string) *Loader {
	return &Loader{
		SearchPaths: searchPaths,
		loaded:      make(map[string]*types.Package),
		loading:     make(map[string]bool),
	}
}

// Load resolves name against the search paths (any version) and loads it,
// along with its full dependency closure.
func (l *Loader) Load(name string) (*types.Package, error) {
	return l.load(name, nil)
}

// load resolves name, optionally constrained to [min, max], honoring the
// loader's cache and cycle guard.
func (l *Loader) load(name string, constraint *versionConstraint) (*types.Package, error) {
	if p, ok := l.loaded[name]; ok {
		if constraint != nil && !p.Version.InRange(constraint.min, constraint.max) {
			return nil, vmerr.New(vmerr.KindLoadError, "package %s: loaded version %v does not satisfy required range [%v, %v]", name, p.Version, constraint.min, constraint.max)
		}
		return p, nil
	}
	if l.loading[name] {
		return nil, vmerr.New(vmerr.KindLoadError, "dependency cycle detected loading package %s", name)
	}
	l.loading[name] = true
	defer delete(l.loading, name)

	path, err := l.resolve(name)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, vmerr.Wrap(vmerr.KindLoadError, err, "reading package file %s", path)
	}
	f, err := pkgformat.Decode(raw)
	if err != nil {
		return nil, vmerr.Wrap(vmerr.KindLoadError, err, "decoding package file %s", path)
	}

	if constraint != nil {
		v := types.Version{Major: f.Version[0], Minor: f.Version[1], Patch: f.Version[2]}
		if !v.InRange(constraint.min, constraint.max) {
			return nil, vmerr.New(vmerr.KindLoadError, "package %s: file version %v does not satisfy required range [%v, %v]", name, v, constraint.min, constraint.max)
		}
	}

	deps := make([]*types.Package, len(f.Deps))
	for i, d := range f.Deps {
		depName := nameFromFile(f, d.NameRef)
		c := &versionConstraint{
			min: types.Version{Major: d.MinVersion[0], Minor: d.MinVersion[1], Patch: d.MinVersion[2]},
			max: types.Version{Major: d.MaxVersion[0], Minor: d.MaxVersion[1], Patch: d.MaxVersion[2]},
		}
		dp, err := l.load(depName, c)
		if err != nil {
			return nil, vmerr.Wrap(vmerr.KindLoadError, err, "loading dependency %s of package %s", depName, name)
		}
		deps[i] = dp
	}

	pkg, err := buildPackage(f, deps)
	if err != nil {
		return nil, vmerr.Wrap(vmerr.KindLoadError, err, "building package %s", name)
	}

	if err := linkPackage(f, pkg, deps); err != nil {
		return nil, vmerr.Wrap(vmerr.KindLoadError, err, "linking package %s", name)
	}

	buildMetas(pkg)
	buildVTables(pkg)

	l.loaded[name] = pkg
	return pkg, nil
}

// FindPackage returns a previously loaded package by name, or nil.
func (l *Loader) FindPackage(name string) *types.Package {
	return l.loaded[name]
}

// Packages returns every package loaded so far, in load order is not
// guaranteed.
func (l *Loader) Packages() []*types.Package {
	out := make([]*types.Package, 0, len(l.loaded))
	for _, p := range l.loaded {
		out = append(out, p)
	}
	return out
}

type versionConstraint struct {
	min, max types.Version
}

func (l *Loader) resolve(name string) (string, error) {
	for _, dir := range l.SearchPaths {
		candidate := filepath.Join(dir, name+FileExt)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", vmerr.New(vmerr.KindLoadError, "package %s not found in search paths %v", name, l.SearchPaths)
}

func nameFromFile(f *pkgformat.File, nameRef int) string {
	if nameRef < 0 || nameRef >= len(f.Names) {
		return fmt.Sprintf("<bad name ref %d>", nameRef)
	}
	comps := f.Names[nameRef]
	parts := make([]string, len(comps))
	for i, ref := range comps {
		if ref >= 0 && ref < len(f.Strings) {
			parts[i] = f.Strings[ref]
		}
	}
	s := parts[0]
	for _, p := range parts[1:] {
		s += "." + p
	}
	return s
}
