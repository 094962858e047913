package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dl-alexandre/gdmirror/internal/logging"
	"github.com/dl-alexandre/gdmirror/internal/sync/diff"
	"github.com/dl-alexandre/gdmirror/internal/sync/orphan"
	"github.com/dl-alexandre/gdmirror/internal/sync/transfer"
	"github.com/dustin/go-humanize"
)

const (
	colorGreen = "\033[32m"
	colorReset = "\033[0m"
)

// consoleReporter prints one line per changed file and keeps the scan and
// transfer state on the status line.
type consoleReporter struct {
	w       io.Writer
	status  *logging.StatusLine
	color   bool
	quiet   bool
	verbose bool
}

func newConsoleReporter(w io.Writer, status *logging.StatusLine, color, quiet, verbose bool) *consoleReporter {
	return &consoleReporter{w: w, status: status, color: color, quiet: quiet, verbose: verbose}
}

func (r *consoleReporter) line(format string, args ...interface{}) {
	if r.quiet {
		return
	}
	r.status.PrintAbove(r.w, fmt.Sprintf(format, args...))
}

func (r *consoleReporter) Started(remoteRoot, localRoot string, dryRun bool) {
	if dryRun {
		r.line("Sync from gdrive://%s to %s (dryrun)", remoteRoot, localRoot)
	} else {
		r.line("Sync from gdrive://%s to %s", remoteRoot, localRoot)
	}
	r.status.Set("Scanning gdrive...")
}

func (r *consoleReporter) Listing(pages, entries int) {
	r.status.Set(fmt.Sprintf("Scanning gdrive... %s entries", humanize.Comma(int64(entries))))
}

func (r *consoleReporter) Checking(d diff.Decision) {
	r.status.Set(d.Entry.Path)
}

func (r *consoleReporter) TransferStarted(d diff.Decision) {
	r.status.Set(d.LocalPath)
}

func (r *consoleReporter) Progress(_ diff.Decision, p transfer.Progress) {
	r.status.Set(formatProgress(p))
}

func (r *consoleReporter) Decided(d diff.Decision) {
	switch d.Outcome {
	case diff.OutcomeTransfer:
		if r.color {
			r.line("%s%s%s", colorGreen, d.LocalPath, colorReset)
		} else {
			r.line("%s", d.LocalPath)
		}
	case diff.OutcomeWouldTransfer:
		r.line("%s (dryrun)", d.LocalPath)
	case diff.OutcomeUnsupported:
		if r.verbose {
			r.line("%s - skipped, %s", d.Entry.Path, d.Reason)
		}
	}
}

func (r *consoleReporter) CheckingLocal() {
	r.status.Set("Checking local files...")
}

func (r *consoleReporter) Orphan(o orphan.Orphan, dryRun bool) {
	switch {
	case dryRun:
		r.line("%s - remove (dryrun)", o.Path)
	case o.Removed:
		r.line("%s - remove", o.Path)
	default:
		r.line("%s - not on gdrive (use --delete to remove)", o.Path)
	}
}

// formatProgress renders
// "<bytes> <pct>% time <elapsed> eta <eta> rate <rate>B/s", with bytes
// right-aligned to the width of the total.
func formatProgress(p transfer.Progress) string {
	total := humanize.Comma(p.Total)
	eta := "0s"
	if p.ETA >= time.Second {
		eta = formatDuration(p.ETA)
	}
	return strings.Join([]string{
		fmt.Sprintf("%*s", len(total)+1, humanize.Comma(p.Bytes)),
		fmt.Sprintf("%3d%%", p.Percent),
		"time " + formatDuration(p.Elapsed),
		"eta " + eta,
		"rate " + formatSize(p.Rate) + "B/s",
	}, " ")
}

var sizeSuffixes = []struct {
	suffix string
	factor float64
}{
	{"G", 1 << 30},
	{"M", 1 << 20},
	{"K", 1 << 10},
	{"", 1},
}

// formatSize is a compact binary size: one decimal and a G, M or K suffix
func formatSize(n float64) string {
	for _, s := range sizeSuffixes {
		if n >= s.factor {
			return fmt.Sprintf("%.1f%s", n/s.factor, s.suffix)
		}
	}
	return "0"
}

// formatDuration rounds to the largest whole unit: 450ms, 12s, 3m, 2h, 1d
func formatDuration(d time.Duration) string {
	const day = 24 * time.Hour
	switch {
	case d >= day:
		return fmt.Sprintf("%dd", (d+day/2)/day)
	case d >= time.Hour:
		return fmt.Sprintf("%dh", (d+time.Hour/2)/time.Hour)
	case d >= time.Minute:
		return fmt.Sprintf("%dm", (d+time.Minute/2)/time.Minute)
	case d >= time.Second:
		return fmt.Sprintf("%ds", (d+time.Second/2)/time.Second)
	default:
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
}
