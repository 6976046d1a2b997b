package pkgformat

import (
	"bytes"
	"testing"
)

func sampleFile() *File {
	return &File{
		Flags:   0,
		NameRef: 0,
		Version: [3]uint16{1, 0, 0},
		Deps: []Dependency{
			{
				NameRef: 1, MinVersion: [3]uint16{1, 0, 0}, MaxVersion: [3]uint16{2, 0, 0},
				NumExternGlobals: 1, NumExternFunctions: 2, NumExternClasses: 0,
				ExternGlobalNameRefs:   []Ref{0},
				ExternFunctionNameRefs: []Ref{0, 0},
			},
		},
		Strings: []string{"main", "core", "Point", "x", "y"},
		Names: [][]Ref{
			{0}, // main
			{1}, // core
			{1, 2}, // core.Point
		},
		Globals: []Global{
			{NameRef: 0, TypeRef: 0, Public: true, Constant: false},
		},
		Functions: []Function{
			{
				Flags:         0,
				NameRef:       0,
				SourceNameRef: 0,
				TypeParamRef:  nil,
				TypeRefs:      []Ref{0},
				LocalsSize:    8,
				Instructions:  []byte{byte(RET)},
				BlockOffsets:    []int64{0},
				Overrides:       -1,
				OverridesDepRef: -1,
				InstTypeRefs:    nil,
			},
		},
		Classes: []Class{
			{
				NameRef:      2,
				Flags:        0,
				TypeParamRef: nil,
				SupertypeRef: -1,
				Fields: []Field{
					{NameRef: 3, TypeRef: 0, Const: false, Public: true},
					{NameRef: 4, TypeRef: 0, Const: false, Public: true},
				},
				Constructors: []Ref{0},
				Methods:      nil,
				ElemTypeRef:  -1,
				LengthField:  -1,
			},
		},
		TypeParams: nil,
		Types: []TypeNode{
			{Kind: TKI64},
			{Kind: TKObject, ClassDepRef: -1, ClassRef: 0, ArgRefs: nil},
		},
		EntryFunction: 0,
	}
}

func TestRoundTrip(t *testing.T) {
	f := sampleFile()
	buf := Encode(f)

	got, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	buf2 := Encode(got)
	if !bytes.Equal(buf, buf2) {
		t.Fatalf("round trip not stable: %x != %x", buf, buf2)
	}

	if len(got.Strings) != len(f.Strings) {
		t.Fatalf("strings: got %d want %d", len(got.Strings), len(f.Strings))
	}
	for i, s := range f.Strings {
		if got.Strings[i] != s {
			t.Errorf("string[%d] = %q, want %q", i, got.Strings[i], s)
		}
	}
	if len(got.Functions) != 1 || got.Functions[0].LocalsSize != 8 {
		t.Errorf("function not round-tripped: %+v", got.Functions)
	}
	if len(got.Classes) != 1 || len(got.Classes[0].Fields) != 2 {
		t.Errorf("class not round-tripped: %+v", got.Classes)
	}
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	buf := []byte{'X', 'X', 'X', 'X', 0, 0, 0, 0}
	if _, err := Decode(buf); err == nil {
		t.Fatal("expected error for bad magic")
	}
}

func TestDecodeRejectsTruncated(t *testing.T) {
	f := sampleFile()
	buf := Encode(f)
	if _, err := Decode(buf[:len(buf)-3]); err == nil {
		t.Fatal("expected error for truncated input")
	}
}
