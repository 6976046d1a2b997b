// Package types implements the VM's type system (spec §3, §4.4): the
// Type/Class/Field data model, Name comparison, and the substitution
// operations classes and generic calls need.
package types

import "strings"

// Name is an ordered sequence of string components — e.g. a package's
// qualifying path followed by a definition's simple name. Two names
// compare equal iff their component sequences are equal.
//
// A Name has two forms in the package format: the source form (as the
// compiler's frontend saw it, used for public-symbol lookups) and the
// defn form (the canonical, fully qualified form used for all-symbol
// lookups within a package, including private ones). Both are
// represented by this same type; which form a Name holds is a property
// of where it came from, not of the type itself.
type Name struct {
	Components []string
}

func NewName(components ...string) Name {
	return Name{Components: append([]string(nil), components...)}
}

// Equal reports whether n and o name the same entity.
func (n Name) Equal(o Name) bool {
	if len(n.Components) != len(o.Components) {
		return false
	}
	for i, c := range n.Components {
		if c != o.Components[i] {
			return false
		}
	}
	return true
}

func (n Name) String() string {
	return strings.Join(n.Components, ".")
}

// IsZero reports whether n is the empty Name (used as a sentinel for "no
// name", e.g. a Function with no source name).
func (n Name) IsZero() bool {
	return len(n.Components) == 0
}
