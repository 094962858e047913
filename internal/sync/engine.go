package sync

import (
	"context"
	"time"

	"github.com/dl-alexandre/gdmirror/internal/logging"
	"github.com/dl-alexandre/gdmirror/internal/sync/diff"
	"github.com/dl-alexandre/gdmirror/internal/sync/exclude"
	"github.com/dl-alexandre/gdmirror/internal/sync/orphan"
	"github.com/dl-alexandre/gdmirror/internal/sync/scanner"
	"github.com/dl-alexandre/gdmirror/internal/sync/transfer"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
)

// RemoteClient is everything the mirror needs from Drive
type RemoteClient interface {
	scanner.Lister
	transfer.Source
}

type Options struct {
	RemoteRoot string
	LocalRoot  string
	DryRun     bool
	// Delete removes orphans outside dry-run
	Delete  bool
	Limit   int64
	Exclude *exclude.Matcher
	// ProgressInterval is the sampling interval; NoProgress drops the stage
	ProgressInterval time.Duration
	NoProgress       bool
}

// Summary counts what one run did
type Summary struct {
	RemoteRoot    string          `json:"remoteRoot"`
	LocalRoot     string          `json:"localRoot"`
	DryRun        bool            `json:"dryRun"`
	Listed        int             `json:"listed"`
	Scanned       int             `json:"scanned"`
	Directories   int             `json:"directories"`
	Transferred   int             `json:"transferred"`
	WouldTransfer int             `json:"wouldTransfer"`
	Skipped       int             `json:"skipped"`
	Unsupported   int             `json:"unsupported"`
	Excluded      int             `json:"excluded"`
	Bytes         int64           `json:"bytes"`
	Orphans       []orphan.Orphan `json:"orphans"`
	Removed       int             `json:"removed"`
	Duration      time.Duration   `json:"duration"`
}

// Engine runs one mirror pass: scan, diff and transfer per entry, then the
// orphan pass over the local tree.
type Engine struct {
	client   RemoteClient
	fs       afero.Fs
	logger   logging.Logger
	clock    clockwork.Clock
	reporter Reporter
}

func NewEngine(client RemoteClient, fsys afero.Fs, logger logging.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &Engine{
		client:   client,
		fs:       fsys,
		logger:   logger,
		clock:    clockwork.NewRealClock(),
		reporter: NopReporter{},
	}
}

// WithReporter sets the observer for run events
func (e *Engine) WithReporter(r Reporter) *Engine {
	if r == nil {
		r = NopReporter{}
	}
	e.reporter = r
	return e
}

// WithClock replaces the clock used for timing and progress
func (e *Engine) WithClock(c clockwork.Clock) *Engine {
	e.clock = c
	return e
}

// Run performs the pass. The returned summary is valid up to the point of
// any error.
func (e *Engine) Run(ctx context.Context, opts Options) (*Summary, error) {
	start := e.clock.Now()

	differ, err := diff.New(e.fs, diff.Options{
		RemoteRoot: opts.RemoteRoot,
		LocalRoot:  opts.LocalRoot,
		DryRun:     opts.DryRun,
		Exclude:    opts.Exclude,
	})
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		RemoteRoot: differ.Root(),
		LocalRoot:  differ.LocalRoot(),
		DryRun:     opts.DryRun,
		Orphans:    []orphan.Orphan{},
	}
	defer func() { summary.Duration = e.clock.Since(start) }()

	e.logger.Info("Mirror starting",
		logging.F("remoteRoot", summary.RemoteRoot),
		logging.F("localRoot", summary.LocalRoot),
		logging.F("dryRun", opts.DryRun),
		logging.F("limit", opts.Limit))
	e.reporter.Started(summary.RemoteRoot, summary.LocalRoot, opts.DryRun)

	tree, err := scanner.NewRemoteScanner(e.client, e.logger).
		OnPage(e.reporter.Listing).
		Scan(ctx)
	if err != nil {
		return summary, err
	}
	summary.Listed = tree.Len()

	var current diff.Decision
	transferOpts := transfer.Options{
		Limit:    opts.Limit,
		Interval: opts.ProgressInterval,
		Clock:    e.clock,
	}
	if !opts.NoProgress {
		transferOpts.Progress = func(p transfer.Progress) {
			e.reporter.Progress(current, p)
		}
	}
	pipeline := transfer.New(e.client, e.fs, transferOpts, e.logger)

	for entry := range tree.All() {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		d, err := differ.Decide(entry)
		if err != nil {
			return summary, err
		}

		switch d.Outcome {
		case diff.OutcomeOutOfScope:
			continue
		case diff.OutcomeDirectory:
			summary.Directories++
			continue
		case diff.OutcomeExcluded:
			summary.Excluded++
			continue
		}

		summary.Scanned++
		e.reporter.Checking(d)

		switch d.Outcome {
		case diff.OutcomeUnsupported:
			summary.Unsupported++
			e.logger.Debug("Skipping unsupported entry",
				logging.F("path", d.RelPath),
				logging.F("mimeType", entry.MimeType),
				logging.F("reason", d.Reason))
		case diff.OutcomeSkip:
			summary.Skipped++
		case diff.OutcomeWouldTransfer:
			summary.WouldTransfer++
			e.logger.Debug("Would transfer", logging.F("path", d.LocalPath), logging.F("reason", d.Reason))
		case diff.OutcomeTransfer:
			current = d
			e.reporter.TransferStarted(d)
			res, err := pipeline.Transfer(ctx, transfer.Request{
				FileID:  entry.ID,
				Dest:    d.LocalPath,
				Size:    entry.Size,
				ModTime: entry.ModifiedTime,
				MD5:     entry.MD5Checksum,
			})
			if err != nil {
				return summary, err
			}
			summary.Transferred++
			summary.Bytes += res.Size
			e.logger.Debug("Transferred",
				logging.F("path", d.LocalPath),
				logging.F("bytes", res.Size),
				logging.F("reason", d.Reason))
		}
		e.reporter.Decided(d)
	}

	e.reporter.CheckingLocal()
	detector := orphan.NewDetector(e.fs, orphan.Options{
		LocalRoot: opts.LocalRoot,
		DryRun:    opts.DryRun,
		Delete:    opts.Delete,
		Exclude:   opts.Exclude,
	}, e.logger)

	orphans, err := detector.Run(ctx, differ.Seen(), func(o orphan.Orphan) {
		e.reporter.Orphan(o, opts.DryRun)
	})
	summary.Orphans = append(summary.Orphans, orphans...)
	for _, o := range orphans {
		if o.Removed {
			summary.Removed++
		}
	}
	if err != nil {
		return summary, err
	}

	e.logger.Info("Mirror complete",
		logging.F("transferred", summary.Transferred),
		logging.F("skipped", summary.Skipped),
		logging.F("wouldTransfer", summary.WouldTransfer),
		logging.F("orphans", len(summary.Orphans)),
		logging.F("bytes", summary.Bytes))
	return summary, nil
}
