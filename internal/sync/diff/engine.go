package diff

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/dl-alexandre/gdmirror/internal/sync/exclude"
	"github.com/dl-alexandre/gdmirror/internal/sync/scanner"
	"github.com/dl-alexandre/gdmirror/internal/utils"
	"github.com/spf13/afero"
)

type Options struct {
	RemoteRoot string
	LocalRoot  string
	DryRun     bool
	Exclude    *exclude.Matcher
}

// Engine classifies remote entries against local state and records every
// in-scope file in its SeenSet.
type Engine struct {
	fs        afero.Fs
	root      string
	prefix    string
	localRoot string
	dryRun    bool
	exclude   *exclude.Matcher
	seen      SeenSet
	// claims maps a root-relative path to the first entry that took it
	claims map[string]claim
	// shadowed holds directory paths already taken by a file; nothing below
	// them can be materialized
	shadowed map[string]struct{}
}

type claim struct {
	id    string
	isDir bool
}

func New(fsys afero.Fs, opts Options) (*Engine, error) {
	if opts.LocalRoot == "" {
		return nil, utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidPath,
			"Local root is required").Build())
	}

	root := NormalizeRoot(opts.RemoteRoot)
	prefix := root + "/"
	if root == "/" {
		prefix = "/"
	}

	return &Engine{
		fs:        fsys,
		root:      root,
		prefix:    prefix,
		localRoot: filepath.Clean(opts.LocalRoot),
		dryRun:    opts.DryRun,
		exclude:   opts.Exclude,
		seen:      make(SeenSet),
		claims:    make(map[string]claim),
		shadowed:  make(map[string]struct{}),
	}, nil
}

// NormalizeRoot turns a user supplied remote root into an absolute,
// cleaned slash path.
func NormalizeRoot(remoteRoot string) string {
	return path.Clean("/" + strings.TrimSpace(remoteRoot))
}

// Root is the normalized remote root
func (e *Engine) Root() string {
	return e.root
}

// LocalRoot is the cleaned local root
func (e *Engine) LocalRoot() string {
	return e.localRoot
}

// Seen returns the paths recorded so far
func (e *Engine) Seen() SeenSet {
	return e.seen
}

// RelPath maps an absolute remote path to a root-relative one. Only paths
// strictly below the root are in scope.
func (e *Engine) RelPath(remotePath string) (string, bool) {
	if !strings.HasPrefix(remotePath, e.prefix) {
		return "", false
	}
	rel := strings.TrimPrefix(remotePath, e.prefix)
	if rel == "" {
		return "", false
	}
	return rel, true
}

// LocalPath maps a root-relative slash path below the local root. It fails
// when the result would land outside the local root.
func (e *Engine) LocalPath(rel string) (string, bool) {
	for _, seg := range strings.Split(rel, "/") {
		if seg == ".." || seg == "." || seg == "" {
			return "", false
		}
	}
	return filepath.Join(e.localRoot, filepath.FromSlash(rel)), true
}

// Decide classifies one entry. Only local IO failures other than
// not-found are returned as errors.
func (e *Engine) Decide(entry scanner.RemoteEntry) (Decision, error) {
	d := Decision{Entry: entry}

	rel, ok := e.RelPath(entry.Path)
	if !ok {
		d.Outcome = OutcomeOutOfScope
		return d, nil
	}
	d.RelPath = rel

	if e.exclude.IsExcluded(rel, entry.IsDir) {
		d.Outcome = OutcomeExcluded
		return d, nil
	}

	if e.isShadowed(rel) {
		d.Outcome = OutcomeUnsupported
		d.Reason = ReasonDuplicateName
		return d, nil
	}

	if entry.IsDir {
		if c, ok := e.claims[rel]; ok && !c.isDir {
			e.shadowed[rel] = struct{}{}
			d.Outcome = OutcomeUnsupported
			d.Reason = ReasonDuplicateName
			return d, nil
		}
		// same-named folders merge into one local directory
		e.claims[rel] = claim{id: entry.ID, isDir: true}
		d.Outcome = OutcomeDirectory
		return d, nil
	}

	if utils.IsWorkspaceMimeType(entry.MimeType) {
		d.Outcome = OutcomeUnsupported
		d.Reason = ReasonWorkspaceDoc
		return d, nil
	}

	localPath, ok := e.LocalPath(rel)
	if !ok {
		d.Outcome = OutcomeUnsupported
		d.Reason = ReasonUnsafePath
		return d, nil
	}
	if c, ok := e.claims[rel]; ok && (c.isDir || c.id != entry.ID) {
		d.Outcome = OutcomeUnsupported
		d.Reason = ReasonDuplicateName
		return d, nil
	}
	e.claims[rel] = claim{id: entry.ID}
	d.LocalPath = localPath
	e.seen.Add(localPath)

	local, err := scanner.Stat(e.fs, localPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		d.Reason = ReasonMissing
		return e.transfer(d), nil
	case err != nil:
		return d, utils.WrapAppError(utils.NewCLIError(utils.ErrCodeLocalIO,
			fmt.Sprintf("Cannot stat %s", localPath)).
			WithContext("path", localPath).
			Build(), err)
	}
	d.Local = local

	switch {
	case local.Size != entry.Size:
		d.Reason = ReasonSizeDiffers
		return e.transfer(d), nil
	case local.ModTime.UnixMilli() != entry.ModifiedTime.UnixMilli():
		d.Reason = ReasonMTimeDiffers
		return e.transfer(d), nil
	}

	d.Outcome = OutcomeSkip
	d.Reason = ReasonUnchanged
	return d, nil
}

// isShadowed reports whether any ancestor of rel was rejected as a
// directory colliding with a file.
func (e *Engine) isShadowed(rel string) bool {
	if len(e.shadowed) == 0 {
		return false
	}
	for dir := path.Dir(rel); dir != "." && dir != "/"; dir = path.Dir(dir) {
		if _, ok := e.shadowed[dir]; ok {
			return true
		}
	}
	return false
}

func (e *Engine) transfer(d Decision) Decision {
	if e.dryRun {
		d.Outcome = OutcomeWouldTransfer
	} else {
		d.Outcome = OutcomeTransfer
	}
	return d
}
