package pkgformat

import (
	"bytes"
	"fmt"
)

// Magic identifies a package file (spec §6 "Fixed magic (4 bytes)").
var Magic = [4]byte{'G', 'Y', 'P', 'K'}

const (
	FormatVersionMajor = 1
	FormatVersionMinor = 0
)

// Ref is an index into a table (string pool, name pool, class table, ...).
// -1 conventionally means "absent" where the field is optional.
type Ref = int

// NameRef indexes the name pool.
type NameRef = int

// Dependency mirrors spec §6's per-dependency record. The ExternXNameRefs
// lists carry one NameRef per externed symbol (length NumExternX), giving
// the loader's link step a name to resolve against the dependency's
// public table; the counts alone (as the prose format description gives
// them) are not enough to perform name+signature resolution.
type Dependency struct {
	NameRef    NameRef
	MinVersion [3]uint16
	MaxVersion [3]uint16

	NumExternGlobals   int
	NumExternFunctions int
	NumExternClasses   int

	ExternGlobalNameRefs   []NameRef
	ExternFunctionNameRefs []NameRef
	ExternClassNameRefs    []NameRef
}

// TypeParam is one entry of the global type-parameter table, shared by
// every Class's and Function's TypeParamRef list. NameRef indexes the
// string pool directly (a type parameter's name is a single identifier,
// not a qualified Name).
type TypeParam struct {
	NameRef    Ref // string pool index
	UpperBound Ref // index into Types, or -1
}

// TypeKind mirrors types.Kind's encoding in the file.
type TypeKind = byte

const (
	TKUnit TypeKind = iota
	TKBoolean
	TKI8
	TKI16
	TKI32
	TKI64
	TKF32
	TKF64
	TKNull
	TKNothing
	TKObject
	TKVariable
)

// TypeNode is one entry of the type table. Object types reference a class
// and a run of argument Types (by index into the same table); variable
// types reference a TypeParam. ClassDepRef is -1 for a class defined in
// this package (ClassRef then indexes this file's Classes table) or a
// dependency index (ClassRef then indexes that dependency's public class
// table, resolved by the loader's link step).
type TypeNode struct {
	Kind        TypeKind
	ClassDepRef Ref   // valid when Kind == TKObject
	ClassRef    Ref   // valid when Kind == TKObject
	ArgRefs     []Ref // valid when Kind == TKObject
	ParamRef    Ref   // valid when Kind == TKVariable
}

// Field's NameRef indexes the string pool directly (a field name is a
// single identifier).
type Field struct {
	NameRef Ref
	TypeRef Ref
	Const   bool
	Public  bool
}

type Class struct {
	NameRef      NameRef
	Flags        uint32
	TypeParamRef []Ref // indices into the global TypeParam table
	SupertypeRef Ref   // -1 if none
	Fields       []Field
	Constructors []Ref // indices into Functions
	Methods      []Ref
	ElemTypeRef  Ref // -1 if not array-like
	LengthField  int // -1 if not array-like
}

type Function struct {
	Flags        uint32
	BuiltinID    int
	NameRef      NameRef
	SourceNameRef Ref // -1 if private (no public name)
	TypeParamRef []Ref
	TypeRefs     []Ref // return type first, then parameter types
	LocalsSize   int64
	Instructions []byte
	BlockOffsets []int64
	// Overrides identifies the function this one overrides. OverridesDepRef
	// is -1 when Overrides indexes this package's own Functions table, or a
	// dependency index when it indexes that dependency's public function
	// table.
	Overrides       Ref // -1 if none
	OverridesDepRef Ref
	InstTypeRefs    []Ref
}

type Global struct {
	NameRef  NameRef
	TypeRef  Ref
	Public   bool
	Constant bool
}

// File is the fully decoded contents of a package file (spec §6 layout).
type File struct {
	Magic        [4]byte
	VersionMajor uint16
	VersionMinor uint16

	Flags      uint32
	NameRef    NameRef
	Version    [3]uint16
	Deps       []Dependency

	Strings []string
	Names   [][]Ref // each entry: ordered string-pool indices

	Globals    []Global
	Functions  []Function
	Classes    []Class
	TypeParams []TypeParam
	Types      []TypeNode

	EntryFunction Ref // -1 if none
}

// Decode parses a package file per spec §6.
func Decode(buf []byte) (*File, error) {
	r := NewReader(buf)
	f := &File{}

	magic, err := r.Bytes(4)
	if err != nil {
		return nil, err
	}
	copy(f.Magic[:], magic)
	if !bytes.Equal(magic, Magic[:]) {
		return nil, fmt.Errorf("pkgformat: bad magic %x", magic)
	}
	if f.VersionMajor, err = r.Uint16(); err != nil {
		return nil, err
	}
	if f.VersionMinor, err = r.Uint16(); err != nil {
		return nil, err
	}
	if f.VersionMajor != FormatVersionMajor {
		return nil, fmt.Errorf("pkgformat: unsupported format version %d.%d", f.VersionMajor, f.VersionMinor)
	}

	if f.Flags, err = r.Uint32(); err != nil {
		return nil, err
	}
	if f.NameRef, err = r.Count(); err != nil {
		return nil, err
	}
	for i := range f.Version {
		if f.Version[i], err = r.Uint16(); err != nil {
			return nil, err
		}
	}

	nDeps, err := r.Count()
	if err != nil {
		return nil, err
	}
	for i := 0; i < nDeps; i++ {
		var d Dependency
		if d.NameRef, err = r.Count(); err != nil {
			return nil, err
		}
		for j := range d.MinVersion {
			if d.MinVersion[j], err = r.Uint16(); err != nil {
				return nil, err
			}
		}
		for j := range d.MaxVersion {
			if d.MaxVersion[j], err = r.Uint16(); err != nil {
				return nil, err
			}
		}
		if d.NumExternGlobals, err = r.Count(); err != nil {
			return nil, err
		}
		if d.NumExternFunctions, err = r.Count(); err != nil {
			return nil, err
		}
		if d.NumExternClasses, err = r.Count(); err != nil {
			return nil, err
		}
		if d.ExternGlobalNameRefs, err = decodeNameRefs(r, d.NumExternGlobals); err != nil {
			return nil, err
		}
		if d.ExternFunctionNameRefs, err = decodeNameRefs(r, d.NumExternFunctions); err != nil {
			return nil, err
		}
		if d.ExternClassNameRefs, err = decodeNameRefs(r, d.NumExternClasses); err != nil {
			return nil, err
		}
		f.Deps = append(f.Deps, d)
	}

	nStrings, err := r.Count()
	if err != nil {
		return nil, err
	}
	f.Strings = make([]string, nStrings)
	for i := range f.Strings {
		if f.Strings[i], err = r.String(); err != nil {
			return nil, err
		}
	}

	nNames, err := r.Count()
	if err != nil {
		return nil, err
	}
	f.Names = make([][]Ref, nNames)
	for i := range f.Names {
		nc, err := r.Count()
		if err != nil {
			return nil, err
		}
		comps := make([]Ref, nc)
		for j := range comps {
			if comps[j], err = r.Count(); err != nil {
				return nil, err
			}
		}
		f.Names[i] = comps
	}

	if f.Globals, err = decodeGlobals(r); err != nil {
		return nil, err
	}
	if f.Functions, err = decodeFunctions(r); err != nil {
		return nil, err
	}
	if f.Classes, err = decodeClasses(r); err != nil {
		return nil, err
	}
	if f.TypeParams, err = decodeTypeParams(r); err != nil {
		return nil, err
	}
	if f.Types, err = decodeTypes(r); err != nil {
		return nil, err
	}

	entry, err := r.Varint()
	if err != nil {
		return nil, err
	}
	f.EntryFunction = int(entry)

	return f, nil
}

func decodeNameRefs(r *Reader, n int) ([]NameRef, error) {
	out := make([]NameRef, n)
	for i := range out {
		v, err := r.Count()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func decodeRefList(r *Reader) ([]Ref, error) {
	n, err := r.Count()
	if err != nil {
		return nil, err
	}
	out := make([]Ref, n)
	for i := range out {
		v, err := r.Count()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func decodeOptionalRef(r *Reader) (Ref, error) {
	v, err := r.Varint()
	return int(v), err
}

func decodeGlobals(r *Reader) ([]Global, error) {
	n, err := r.Count()
	if err != nil {
		return nil, err
	}
	out := make([]Global, n)
	for i := range out {
		g := &out[i]
		flags, err := r.Uint32()
		if err != nil {
			return nil, err
		}
		g.Public = flags&1 != 0
		g.Constant = flags&2 != 0
		if g.NameRef, err = r.Count(); err != nil {
			return nil, err
		}
		if g.TypeRef, err = decodeOptionalRef(r); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func decodeFunctions(r *Reader) ([]Function, error) {
	n, err := r.Count()
	if err != nil {
		return nil, err
	}
	out := make([]Function, n)
	for i := range out {
		fn := &out[i]
		flags, err := r.Uint32()
		if err != nil {
			return nil, err
		}
		fn.Flags = flags
		bid, err := r.Count()
		if err != nil {
			return nil, err
		}
		fn.BuiltinID = bid
		if fn.NameRef, err = r.Count(); err != nil {
			return nil, err
		}
		if fn.SourceNameRef, err = decodeOptionalRef(r); err != nil {
			return nil, err
		}
		if fn.TypeParamRef, err = decodeRefList(r); err != nil {
			return nil, err
		}
		if fn.TypeRefs, err = decodeRefList(r); err != nil {
			return nil, err
		}
		ls, err := r.Varint()
		if err != nil {
			return nil, err
		}
		fn.LocalsSize = ls
		nInstr, err := r.Count()
		if err != nil {
			return nil, err
		}
		if fn.Instructions, err = r.Bytes(nInstr); err != nil {
			return nil, err
		}
		nOff, err := r.Count()
		if err != nil {
			return nil, err
		}
		fn.BlockOffsets = make([]int64, nOff)
		for j := range fn.BlockOffsets {
			if fn.BlockOffsets[j], err = r.Varint(); err != nil {
				return nil, err
			}
		}
		over, err := decodeOptionalRef(r)
		if err != nil {
			return nil, err
		}
		fn.Overrides = over
		if fn.Overrides >= 0 {
			if fn.OverridesDepRef, err = decodeOptionalRef(r); err != nil {
				return nil, err
			}
		} else {
			fn.OverridesDepRef = -1
		}
		if fn.InstTypeRefs, err = decodeRefList(r); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func decodeClasses(r *Reader) ([]Class, error) {
	n, err := r.Count()
	if err != nil {
		return nil, err
	}
	out := make([]Class, n)
	for i := range out {
		c := &out[i]
		flags, err := r.Uint32()
		if err != nil {
			return nil, err
		}
		c.Flags = flags
		if c.NameRef, err = r.Count(); err != nil {
			return nil, err
		}
		if c.TypeParamRef, err = decodeRefList(r); err != nil {
			return nil, err
		}
		if c.SupertypeRef, err = decodeOptionalRef(r); err != nil {
			return nil, err
		}
		nf, err := r.Count()
		if err != nil {
			return nil, err
		}
		c.Fields = make([]Field, nf)
		for j := range c.Fields {
			fl := &c.Fields[j]
			if fl.NameRef, err = r.Count(); err != nil {
				return nil, err
			}
			if fl.TypeRef, err = r.Count(); err != nil {
				return nil, err
			}
			fflags, err := r.Byte()
			if err != nil {
				return nil, err
			}
			fl.Const = fflags&1 != 0
			fl.Public = fflags&2 != 0
		}
		if c.Constructors, err = decodeRefList(r); err != nil {
			return nil, err
		}
		if c.Methods, err = decodeRefList(r); err != nil {
			return nil, err
		}
		if c.ElemTypeRef, err = decodeOptionalRef(r); err != nil {
			return nil, err
		}
		lf, err := r.Varint()
		if err != nil {
			return nil, err
		}
		c.LengthField = int(lf)
	}
	return out, nil
}

func decodeTypeParams(r *Reader) ([]TypeParam, error) {
	n, err := r.Count()
	if err != nil {
		return nil, err
	}
	out := make([]TypeParam, n)
	for i := range out {
		if out[i].NameRef, err = r.Count(); err != nil {
			return nil, err
		}
		if out[i].UpperBound, err = decodeOptionalRef(r); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func decodeTypes(r *Reader) ([]TypeNode, error) {
	n, err := r.Count()
	if err != nil {
		return nil, err
	}
	out := make([]TypeNode, n)
	for i := range out {
		t := &out[i]
		k, err := r.Byte()
		if err != nil {
			return nil, err
		}
		t.Kind = k
		switch k {
		case TKObject:
			if t.ClassDepRef, err = decodeOptionalRef(r); err != nil {
				return nil, err
			}
			if t.ClassRef, err = r.Count(); err != nil {
				return nil, err
			}
			if t.ArgRefs, err = decodeRefList(r); err != nil {
				return nil, err
			}
		case TKVariable:
			if t.ParamRef, err = r.Count(); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}
