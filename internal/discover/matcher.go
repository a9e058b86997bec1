package discover

import "path/filepath"

// Matcher decides whether an executable image path is interesting.
// It returns the watch-list entry that matched and that entry's position,
// which the scanner uses to order its results.
type Matcher interface {
	Match(exe string) (name string, rank int, ok bool)
}

// MatcherFunc adapts a function to Matcher
type MatcherFunc func(exe string) (string, int, bool)

// Match calls f(exe)
func (f MatcherFunc) Match(exe string) (string, int, bool) {
	return f(exe)
}

// BasenameMatcher matches when the final path component of the executable
// equals one of its names exactly.
type BasenameMatcher struct {
	names []string
	index map[string]int
}

// NewBasenameMatcher builds a matcher for the given watch-list.
// Duplicate names keep their first position.
func NewBasenameMatcher(names []string) *BasenameMatcher {
	m := &BasenameMatcher{index: make(map[string]int, len(names))}
	for _, name := range names {
		if name == "" {
			continue
		}
		if _, dup := m.index[name]; dup {
			continue
		}
		m.index[name] = len(m.names)
		m.names = append(m.names, name)
	}
	return m
}

// Names returns the watch-list in scan order
func (m *BasenameMatcher) Names() []string {
	out := make([]string, len(m.names))
	copy(out, m.names)
	return out
}

// Match implements Matcher
func (m *BasenameMatcher) Match(exe string) (string, int, bool) {
	if exe == "" {
		return "", 0, false
	}
	base := filepath.Base(exe)
	rank, ok := m.index[base]
	if !ok {
		return "", 0, false
	}
	return base, rank, true
}
