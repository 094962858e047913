package exclude

import (
	"fmt"
	"path"
	"strings"
)

// Matcher decides whether a root-relative slash path is excluded from the
// mirror. Patterns follow a small gitignore-like syntax:
//
//	name      the entry called name, anywhere, and everything below it
//	dir/      a directory at that relative path and everything below it
//	*.tmp     a glob matched against the full path and against each segment
type Matcher struct {
	patterns []string
}

// New builds a Matcher. Empty and blank patterns are dropped.
func New(patterns []string) (*Matcher, error) {
	kept := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, err := path.Match(strings.TrimSuffix(p, "/"), ""); err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", p, err)
		}
		kept = append(kept, strings.TrimPrefix(p, "./"))
	}
	return &Matcher{patterns: kept}, nil
}

// Parse builds a Matcher from a comma-separated pattern list
func Parse(list string) (*Matcher, error) {
	return New(strings.Split(list, ","))
}

// Patterns returns the active patterns
func (m *Matcher) Patterns() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.patterns...)
}

// Empty reports whether the matcher excludes nothing
func (m *Matcher) Empty() bool {
	return m == nil || len(m.patterns) == 0
}

func (m *Matcher) IsExcluded(relPath string, isDir bool) bool {
	if m.Empty() {
		return false
	}
	relPath = strings.TrimPrefix(relPath, "./")
	segments := strings.Split(relPath, "/")

	for _, p := range m.patterns {
		if strings.HasSuffix(p, "/") {
			dirPattern := strings.TrimSuffix(p, "/")
			if (relPath == dirPattern && isDir) || strings.HasPrefix(relPath, dirPattern+"/") {
				return true
			}
			continue
		}
		if strings.ContainsAny(p, "*?[") {
			if ok, _ := path.Match(p, relPath); ok {
				return true
			}
			for _, seg := range segments {
				if ok, _ := path.Match(p, seg); ok {
					return true
				}
			}
			continue
		}
		if relPath == p || strings.HasPrefix(relPath, p+"/") {
			return true
		}
		for _, seg := range segments {
			if seg == p {
				return true
			}
		}
	}
	return false
}
