package match

import "sort"

// ConsumedSet records videos that have already been bound to a thumbnail.
// Membership is write-once: a path is never removed during a run.
type ConsumedSet struct {
	paths map[string]struct{}
}

// NewConsumedSet returns an empty set.
func NewConsumedSet() *ConsumedSet {
	return &ConsumedSet{paths: make(map[string]struct{})}
}

// Add marks path consumed. It returns false if path was already consumed.
func (s *ConsumedSet) Add(path string) bool {
	if _, ok := s.paths[path]; ok {
		return false
	}
	s.paths[path] = struct{}{}
	return true
}

// Contains reports whether path is consumed.
func (s *ConsumedSet) Contains(path string) bool {
	_, ok := s.paths[path]
	return ok
}

// Len returns the number of consumed videos.
func (s *ConsumedSet) Len() int {
	return len(s.paths)
}

// Sorted returns the consumed paths in lexical order.
func (s *ConsumedSet) Sorted() []string {
	out := make([]string, 0, len(s.paths))
	for p := range s.paths {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
