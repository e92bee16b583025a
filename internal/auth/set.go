package auth

import (
	"encoding/json"
	"slices"
)

// Set is an unordered set of role names or permission codes.
type Set map[string]struct{}

// NewSet returns a set holding items.
func NewSet(items ...string) Set {
	s := make(Set, len(items))
	for _, item := range items {
		s[item] = struct{}{}
	}

	return s
}

// Has reports whether item is in the set.
func (s Set) Has(item string) bool {
	_, ok := s[item]
	return ok
}

// HasAny reports whether at least one of items is in the set.
func (s Set) HasAny(items ...string) bool {
	for _, item := range items {
		if s.Has(item) {
			return true
		}
	}

	return false
}

// Sorted returns the items in ascending order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for item := range s {
		out = append(out, item)
	}

	slices.Sort(out)

	return out
}

// MarshalJSON encodes the set as a sorted array.
func (s Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

// UnmarshalJSON decodes an array into the set.
func (s *Set) UnmarshalJSON(b []byte) error {
	var items []string
	if err := json.Unmarshal(b, &items); err != nil {
		return err //nolint:wrapcheck
	}

	*s = NewSet(items...)

	return nil
}
