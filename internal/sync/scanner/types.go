package scanner

import "time"

// RootID is the synthetic parent of every top-level entry
const RootID = ""

// RemoteEntry is one node of the remote hierarchy
type RemoteEntry struct {
	ID           string
	Name         string
	MimeType     string
	IsDir        bool
	Size         int64
	ModifiedTime time.Time
	MD5Checksum  string
	Parents      []string
	// Path is the absolute slash path, set during traversal
	Path string
}

// LocalEntry is filesystem state, queried on demand
type LocalEntry struct {
	Path    string
	RelPath string
	Size    int64
	ModTime time.Time
	IsDir   bool
}
