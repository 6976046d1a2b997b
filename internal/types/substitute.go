package types

// Bindings maps a type parameter to the Type argument bound to it.
type Bindings map[*TypeParameter]*Type

// GetTypeArgumentBindings extracts the parameter->argument map that the
// object type t induces on its own class (spec §4.4). Panics if t is not
// an object type.
func GetTypeArgumentBindings(t *Type) Bindings {
	if t.Kind != KindObject {
		panic("types: GetTypeArgumentBindings: not an object type")
	}
	b := make(Bindings, len(t.Args))
	for i, p := range t.Class.Params {
		if i < len(t.Args) {
			b[&t.Class.Params[i]] = t.Args[i]
		}
		_ = p
	}
	return b
}

// Substitute replaces every type-parameter occurrence in t according to
// bindings, returning a new Type tree (spec §4.4 substitute). Types with
// no matching binding are returned unchanged (including nested object
// type arguments that don't mention a bound parameter).
func Substitute(t *Type, bindings Bindings) *Type {
	switch t.Kind {
	case KindVariable:
		if repl, ok := bindings[t.Param]; ok {
			return repl
		}
		return t
	case KindObject:
		if len(t.Args) == 0 {
			return t
		}
		args := make([]*Type, len(t.Args))
		changed := false
		for i, a := range t.Args {
			args[i] = Substitute(a, bindings)
			if args[i] != a {
				changed = true
			}
		}
		if !changed {
			return t
		}
		return NewObjectType(t.Class, args...)
	default:
		return t
	}
}

// SubstituteForInheritance rewrites t, a type as seen from definingClass's
// point of view (e.g. the declared type of an inherited field or a
// method's parameter), into receiverClass's point of view, by walking the
// inheritance chain from receiverClass up to definingClass and composing
// each step's type-argument bindings (spec §4.4). It panics if
// definingClass is not an ancestor of receiverClass.
func SubstituteForInheritance(t *Type, receiverClass, definingClass *Class) *Type {
	if receiverClass == definingClass {
		return t
	}
	chain := superChainTo(receiverClass, definingClass)
	if chain == nil {
		panic("types: SubstituteForInheritance: " + definingClass.Name.String() + " is not an ancestor of " + receiverClass.Name.String())
	}
	// chain[0] == receiverClass ... chain[len-1] == definingClass.
	// Compose bindings from the bottom up: each step's Supertype Type,
	// viewed through the composition so far, gives the next step's
	// bindings.
	result := t
	for i := len(chain) - 1; i > 0; i-- {
		parent := chain[i]
		child := chain[i-1]
		_ = parent
		bindings := GetTypeArgumentBindings(child.Supertype)
		result = Substitute(result, bindings)
	}
	return result
}

// superChainTo returns the path [from, ..., to] along the supertype chain,
// or nil if to is not an ancestor of from.
func superChainTo(from, to *Class) []*Class {
	var chain []*Class
	for c := from; c != nil; c = c.SuperClass() {
		chain = append(chain, c)
		if c == to {
			return chain
		}
	}
	return nil
}

// IsSubtype reports whether type A is a subtype of type B (spec §4.4
// isSubtype): a structural check using the class supertype chain plus, per
// spec §9 Open Question decision, invariant type-argument comparison
// (variance narrowing is left to explicit CAST/CASTC bytecode, not
// inferred here).
func IsSubtype(a, b *Type) bool {
	if a.Equal(b) {
		return true
	}
	switch b.Kind {
	case KindNothing:
		return a.Kind == KindNothing
	}
	switch a.Kind {
	case KindNothing:
		return true // nothing is a subtype of everything
	case KindNull:
		return b.Kind == KindObject || b.Kind == KindNull
	case KindObject:
		if b.Kind != KindObject {
			return false
		}
		// Walk a's supertype chain, composing type-argument bindings at
		// each step, until we reach b's class (or run out of ancestors).
		cur := a
		for {
			if cur.Class == b.Class {
				if len(cur.Args) != len(b.Args) {
					return false
				}
				for i := range cur.Args {
					if !cur.Args[i].Equal(b.Args[i]) {
						return false
					}
				}
				return true
			}
			if cur.Class.Supertype == nil {
				return false
			}
			cur = Substitute(cur.Class.Supertype, GetTypeArgumentBindings(cur))
		}
	default:
		return false
	}
}
