package diff

import "sort"

// SeenSet holds the local paths that correspond to in-scope remote files
// during one run.
type SeenSet map[string]struct{}

func (s SeenSet) Add(localPath string) {
	s[localPath] = struct{}{}
}

func (s SeenSet) Contains(localPath string) bool {
	_, ok := s[localPath]
	return ok
}

func (s SeenSet) Len() int {
	return len(s)
}

// Paths returns the members in lexical order
func (s SeenSet) Paths() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
