package types

import "fmt"

// Kind distinguishes the primitive variants from object types, per
// spec §3's Type tree: "either a primitive variant (unit, boolean, iN,
// fN, null, nothing) or an object type referring to a Class plus zero or
// more Type arguments."
type Kind uint8

const (
	KindUnit Kind = iota
	KindBoolean
	KindI8
	KindI16
	KindI32
	KindI64
	KindF32
	KindF64
	KindNull    // the type of the null literal
	KindNothing // bottom type; return type of functions that never return normally
	KindObject  // Class + Args
	KindVariable
)

func (k Kind) String() string {
	switch k {
	case KindUnit:
		return "unit"
	case KindBoolean:
		return "boolean"
	case KindI8:
		return "i8"
	case KindI16:
		return "i16"
	case KindI32:
		return "i32"
	case KindI64:
		return "i64"
	case KindF32:
		return "f32"
	case KindF64:
		return "f64"
	case KindNull:
		return "null"
	case KindNothing:
		return "nothing"
	case KindObject:
		return "object"
	case KindVariable:
		return "variable"
	default:
		return "unknown"
	}
}

// A Type is a node in the type tree described by spec §3/§4.4. Types are
// meant to be treated as immutable once constructed; construction during
// package load may mutate a shell Type in place while its owning Class is
// still being filled in (see NewClassShell).
type Type struct {
	Kind Kind

	// Valid only when Kind == KindObject.
	Class *Class
	Args  []*Type

	// Valid only when Kind == KindVariable: which type parameter (of the
	// enclosing Class or Function) this Type refers to.
	Param *TypeParameter
}

var (
	Unit    = &Type{Kind: KindUnit}
	Boolean = &Type{Kind: KindBoolean}
	I8      = &Type{Kind: KindI8}
	I16     = &Type{Kind: KindI16}
	I32     = &Type{Kind: KindI32}
	I64     = &Type{Kind: KindI64}
	F32     = &Type{Kind: KindF32}
	F64     = &Type{Kind: KindF64}
	Null    = &Type{Kind: KindNull}
	Nothing = &Type{Kind: KindNothing}
)

// NewObjectType builds an object Type referring to class c instantiated
// with the given type arguments.
func NewObjectType(c *Class, args ...*Type) *Type {
	return &Type{Kind: KindObject, Class: c, Args: args}
}

// NewVariableType builds a Type referring to type parameter p.
func NewVariableType(p *TypeParameter) *Type {
	return &Type{Kind: KindVariable, Param: p}
}

func (t *Type) String() string {
	switch t.Kind {
	case KindObject:
		if len(t.Args) == 0 {
			return t.Class.Name.String()
		}
		s := t.Class.Name.String() + "["
		for i, a := range t.Args {
			if i > 0 {
				s += ", "
			}
			s += a.String()
		}
		return s + "]"
	case KindVariable:
		return t.Param.Name
	default:
		return t.Kind.String()
	}
}

// Equal reports whether t and o are the same type. Types are structurally
// compared, not pointer-compared: two independently constructed Types
// describing the same class+args are Equal even if not hash-consed to the
// same pointer.
func (t *Type) Equal(o *Type) bool {
	if t == o {
		return true
	}
	if t == nil || o == nil {
		return false
	}
	if t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case KindObject:
		if t.Class != o.Class || len(t.Args) != len(o.Args) {
			return false
		}
		for i := range t.Args {
			if !t.Args[i].Equal(o.Args[i]) {
				return false
			}
		}
		return true
	case KindVariable:
		return t.Param == o.Param
	default:
		return true
	}
}

// IsObject reports whether a value of this Kind is represented as a heap
// reference (spec §4.4 isObject). KindVariable is treated as object-kind:
// the compiler only emits variable-typed slots where the instantiation is
// statically known to be object-like, or generic code is specialized per
// call via TYS/TYD (see internal/pointermap).
func (k Kind) IsObject() bool {
	switch k {
	case KindObject, KindVariable, KindNull:
		return true
	default:
		return false
	}
}

// IsObject reports whether a value of type t is represented as a heap
// reference.
func (t *Type) IsObject() bool {
	return t.Kind.IsObject()
}

// WordSize is the machine-word size used throughout the type size model.
const WordSize = 8

// Size returns the word-aligned size in bytes of a value of type t when
// held in a field or on the stack (spec §4.4 typeSize). Primitives give
// their natural size rounded up to a word; objects and type-parameter
// references occupy one word (a reference).
func (t *Type) Size() int64 {
	switch t.Kind {
	case KindUnit, KindNothing:
		return 0
	case KindBoolean, KindI8:
		return 1
	case KindI16:
		return 2
	case KindI32, KindF32:
		return 4
	case KindI64, KindF64:
		return 8
	case KindNull, KindObject, KindVariable:
		return WordSize
	default:
		panic(fmt.Sprintf("types: Size: unhandled kind %v", t.Kind))
	}
}

// StackSlots returns the number of word-sized stack/locals slots a value
// of type t occupies, rounding sub-word primitives up to one slot.
func (t *Type) StackSlots() int64 {
	if t.Kind == KindUnit || t.Kind == KindNothing {
		return 0
	}
	n := t.Size()
	return (n + WordSize - 1) / WordSize
}
