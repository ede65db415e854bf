package export

import (
	"sort"
	"strings"
)

// Sanitize maps a feature name to a C identifier fragment: every byte that is not an ASCII
// letter, digit or underscore becomes an underscore.
func Sanitize(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_':
			b.WriteByte(c)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// Collisions returns every group of two or more distinct names that sanitize to the same
// identifier. Groups are sorted by identifier and their members keep input order.
func Collisions(names []string) [][]string {
	byIdent := make(map[string][]string)
	seen := make(map[string]bool)
	for _, n := range names {
		if seen[n] {
			continue
		}
		seen[n] = true
		id := Sanitize(n)
		byIdent[id] = append(byIdent[id], n)
	}

	idents := make([]string, 0, len(byIdent))
	for id, group := range byIdent {
		if len(group) > 1 {
			idents = append(idents, id)
		}
	}
	sort.Strings(idents)

	out := make([][]string, 0, len(idents))
	for _, id := range idents {
		out = append(out, byIdent[id])
	}
	return out
}
