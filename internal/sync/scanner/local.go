package scanner

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/spf13/afero"
)

// Stat returns the local state of p. A missing path yields an error
// matching fs.ErrNotExist.
func Stat(fsys afero.Fs, p string) (*LocalEntry, error) {
	info, err := fsys.Stat(p)
	if err != nil {
		return nil, err
	}
	return &LocalEntry{
		Path:    p,
		Size:    info.Size(),
		ModTime: info.ModTime(),
		IsDir:   info.IsDir(),
	}, nil
}

// WalkFunc is called for every entry below the walk root.
// Returning filepath.SkipDir on a directory skips its contents.
type WalkFunc func(entry LocalEntry) error

// WalkLocal walks root recursively and calls fn for every entry below it,
// with RelPath in slash form. A missing root is walked as empty.
func WalkLocal(ctx context.Context, fsys afero.Fs, root string, fn WalkFunc) error {
	if _, err := fsys.Stat(root); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}

	return afero.Walk(fsys, root, func(current string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(root, current)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		return fn(LocalEntry{
			Path:    current,
			RelPath: path.Clean(filepath.ToSlash(rel)),
			Size:    info.Size(),
			ModTime: info.ModTime(),
			IsDir:   info.IsDir(),
		})
	})
}
