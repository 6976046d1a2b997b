package vm

import (
	"strings"

	"github.com/charygao/gypsum/internal/types"
)

// parseName splits a dotted string (e.g. "outer.Inner") into a
// types.Name's component sequence, the form every lookup in this package
// takes its name arguments in.
func parseName(dotted string) types.Name {
	return types.NewName(strings.Split(dotted, ".")...)
}
