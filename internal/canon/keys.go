package canon

import (
	"slices"
	"strings"
)

// KeySet is a set of object field names. The zero value is an empty set.
type KeySet map[string]struct{}

// NewKeySet builds a set from names. Blank names are skipped and surrounding
// white space is trimmed; duplicates collapse.
func NewKeySet(names ...string) KeySet {
	set := make(KeySet, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		set[n] = struct{}{}
	}
	return set
}

// Has reports whether name is in the set.
func (s KeySet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Names returns the set members in sorted order.
func (s KeySet) Names() []string {
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}
