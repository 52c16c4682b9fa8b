package runtime

import (
	"strings"

	"github.com/verdantlabs/espalier/pkg/domain"
)

// pathsOverlap reports whether two field paths address the same leaf or one
// is an ancestor of the other. A write to "audience" touches
// "audience.pains" and vice versa.
func pathsOverlap(a, b domain.FieldPath) bool {
	if a == b {
		return true
	}
	as, bs := string(a), string(b)
	return strings.HasPrefix(as, bs+".") || strings.HasPrefix(bs, as+".")
}

// touchesAny reports whether path overlaps any of the given inputs.
func touchesAny(path domain.FieldPath, inputs []domain.FieldPath) bool {
	for _, in := range inputs {
		if pathsOverlap(path, in) {
			return true
		}
	}
	return false
}
