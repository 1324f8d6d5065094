package models

import "strings"

// CompedList is the standing set of no-charge names. Membership is matched
// case-insensitively on the trimmed name. The list is process-wide for the
// configured data root and persisted independently of any session.
type CompedList map[string]struct{}

// NormalizeName canonicalizes a name for comped-list matching.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// NewCompedList builds a list from names.
func NewCompedList(names ...string) CompedList {
	list := make(CompedList, len(names))
	for _, name := range names {
		list.Add(name)
	}
	return list
}

// Add inserts name into the list.
func (c CompedList) Add(name string) {
	c[NormalizeName(name)] = struct{}{}
}

// Remove deletes name from the list.
func (c CompedList) Remove(name string) {
	delete(c, NormalizeName(name))
}

// Contains reports whether name is on the list.
func (c CompedList) Contains(name string) bool {
	_, ok := c[NormalizeName(name)]
	return ok
}
