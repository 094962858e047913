package orphan

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/dl-alexandre/gdmirror/internal/logging"
	"github.com/dl-alexandre/gdmirror/internal/sync/exclude"
	"github.com/dl-alexandre/gdmirror/internal/sync/scanner"
	"github.com/dl-alexandre/gdmirror/internal/utils"
	"github.com/spf13/afero"
)

// Seen is the read-only view of the paths matched during the remote pass
type Seen interface {
	Contains(localPath string) bool
}

type Options struct {
	LocalRoot string
	DryRun    bool
	// Delete removes orphans; ignored in dry-run
	Delete  bool
	Exclude *exclude.Matcher
}

// Orphan is a local file with no remote counterpart in this run
type Orphan struct {
	Path    string `json:"path"`
	RelPath string `json:"relPath"`
	Size    int64  `json:"size"`
	Removed bool   `json:"removed"`
}

// Callback is invoked for each orphan, in lexical path order
type Callback func(Orphan)

type Detector struct {
	fs     afero.Fs
	opts   Options
	logger logging.Logger
}

func NewDetector(fsys afero.Fs, opts Options, logger logging.Logger) *Detector {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	opts.LocalRoot = filepath.Clean(opts.LocalRoot)
	return &Detector{fs: fsys, opts: opts, logger: logger}
}

// Find returns every non-directory path under the local root that is not in
// seen, sorted. Directories are never reported.
func (d *Detector) Find(ctx context.Context, seen Seen) ([]Orphan, error) {
	var orphans []Orphan
	err := scanner.WalkLocal(ctx, d.fs, d.opts.LocalRoot, func(e scanner.LocalEntry) error {
		if d.opts.Exclude.IsExcluded(e.RelPath, e.IsDir) {
			if e.IsDir {
				return filepath.SkipDir
			}
			return nil
		}
		if e.IsDir || seen.Contains(e.Path) {
			return nil
		}
		orphans = append(orphans, Orphan{Path: e.Path, RelPath: e.RelPath, Size: e.Size})
		return nil
	})
	if err != nil {
		if _, ok := utils.AsAppError(err); ok {
			return nil, err
		}
		return nil, utils.WrapAppError(utils.NewCLIError(utils.ErrCodeLocalIO,
			fmt.Sprintf("Cannot walk %s", d.opts.LocalRoot)).
			WithContext("path", d.opts.LocalRoot).
			Build(), err)
	}

	sort.Slice(orphans, func(i, j int) bool { return orphans[i].Path < orphans[j].Path })
	return orphans, nil
}

// Run finds orphans, reports each through cb and removes them when deletion
// is enabled outside dry-run.
func (d *Detector) Run(ctx context.Context, seen Seen, cb Callback) ([]Orphan, error) {
	orphans, err := d.Find(ctx, seen)
	if err != nil {
		return nil, err
	}

	remove := d.opts.Delete && !d.opts.DryRun
	for i := range orphans {
		if remove {
			if err := d.fs.Remove(orphans[i].Path); err != nil {
				return orphans[:i], utils.WrapAppError(utils.NewCLIError(utils.ErrCodeLocalIO,
					fmt.Sprintf("Cannot remove %s", orphans[i].Path)).
					WithContext("path", orphans[i].Path).
					Build(), err)
			}
			orphans[i].Removed = true
			d.logger.Info("Removed orphan", logging.F("path", orphans[i].Path))
		} else {
			d.logger.Debug("Orphan", logging.F("path", orphans[i].Path))
		}
		if cb != nil {
			cb(orphans[i])
		}
	}
	return orphans, nil
}
