package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/charygao/gypsum/internal/pkgformat"
)

// buildSimplePackage constructs the bytes of a package with one public
// class Point{x: i64, y: i64} and one entry function returning 0.
func buildSimplePackage(t *testing.T, name string) []byte {
	t.Helper()
	f := &pkgformat.File{
		Version: [3]uint16{1, 0, 0},
		Strings: []string{name, "Point", "x", "y", "main"},
		Names: [][]pkgformat.Ref{
			{0}, // 0: package name
			{1}, // 1: Point
			{4}, // 2: main
		},
		Types: []pkgformat.TypeNode{
			{Kind: pkgformat.TKI64},                                   // 0
			{Kind: pkgformat.TKObject, ClassDepRef: -1, ClassRef: 0},   // 1: Point
		},
		Classes: []pkgformat.Class{
			{
				NameRef:      1,
				SupertypeRef: -1,
				Fields: []pkgformat.Field{
					{NameRef: 2, TypeRef: 0, Public: true},
					{NameRef: 3, TypeRef: 0, Public: true},
				},
				ElemTypeRef: -1,
				LengthField: -1,
			},
		},
		Functions: []pkgformat.Function{
			{
				NameRef:         2,
				SourceNameRef:   2,
				TypeRefs:        []pkgformat.Ref{0},
				Instructions:    []byte{byte(pkgformat.I64), 0, byte(pkgformat.RET)},
				BlockOffsets:    []int64{0},
				Overrides:       -1,
				OverridesDepRef: -1,
			},
		},
		EntryFunction: 0,
	}
	f.NameRef = 0
	return pkgformat.Encode(f)
}

func writePackageFile(t *testing.T, dir, name string, data []byte) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name+FileExt), data, 0o644); err != nil {
		t.Fatalf("writing package file: %v", err)
	}
}

func TestLoadSimplePackage(t *testing.T) {
	dir := t.TempDir()
	writePackageFile(t, dir, "main", buildSimplePackage(t, "main"))

	l := New([]string{dir})
	pkg, err := l.Load("main")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(pkg.Classes) != 1 {
		t.Fatalf("expected 1 class, got %d", len(pkg.Classes))
	}
	point := pkg.Classes[0]
	if point.Meta == nil {
		t.Fatalf("Point class has no Meta after load")
	}
	if len(point.Fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(point.Fields))
	}
	if point.Meta.InstanceSize != 16 {
		t.Errorf("expected instance size 16, got %d", point.Meta.InstanceSize)
	}

	if pkg.EntryFunction == nil {
		t.Fatalf("expected entry function to be set")
	}
	fn := pkg.FindFunction(pkg.Names[2], true)
	if fn == nil {
		t.Fatalf("expected to find main by source name")
	}
}

func TestLoadMissingPackage(t *testing.T) {
	dir := t.TempDir()
	l := New([]string{dir})
	if _, err := l.Load("nope"); err == nil {
		t.Fatal("expected error loading missing package")
	}
}

func TestLoadDetectsCycle(t *testing.T) {
	dir := t.TempDir()

	a := &pkgformat.File{
		Version: [3]uint16{1, 0, 0},
		Strings: []string{"a", "b"},
		Names:   [][]pkgformat.Ref{{0}, {1}},
		Deps: []pkgformat.Dependency{
			{NameRef: 1, MaxVersion: [3]uint16{99, 0, 0}},
		},
		EntryFunction: -1,
	}
	a.NameRef = 0
	b := &pkgformat.File{
		Version: [3]uint16{1, 0, 0},
		Strings: []string{"b", "a"},
		Names:   [][]pkgformat.Ref{{0}, {1}},
		Deps: []pkgformat.Dependency{
			{NameRef: 1, MaxVersion: [3]uint16{99, 0, 0}},
		},
		EntryFunction: -1,
	}
	b.NameRef = 0

	writePackageFile(t, dir, "a", pkgformat.Encode(a))
	writePackageFile(t, dir, "b", pkgformat.Encode(b))

	l := New([]string{dir})
	if _, err := l.Load("a"); err == nil {
		t.Fatal("expected cycle error loading a -> b -> a")
	}
}
