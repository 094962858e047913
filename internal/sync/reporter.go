package sync

import (
	"github.com/dl-alexandre/gdmirror/internal/sync/diff"
	"github.com/dl-alexandre/gdmirror/internal/sync/orphan"
	"github.com/dl-alexandre/gdmirror/internal/sync/transfer"
)

// Reporter observes a run. Calls arrive sequentially from the run goroutine.
type Reporter interface {
	Started(remoteRoot, localRoot string, dryRun bool)
	Listing(pages, entries int)
	Checking(d diff.Decision)
	TransferStarted(d diff.Decision)
	Progress(d diff.Decision, p transfer.Progress)
	Decided(d diff.Decision)
	CheckingLocal()
	Orphan(o orphan.Orphan, dryRun bool)
}

// NopReporter ignores every event
type NopReporter struct{}

func (NopReporter) Started(string, string, bool)              {}
func (NopReporter) Listing(int, int)                          {}
func (NopReporter) Checking(diff.Decision)                    {}
func (NopReporter) TransferStarted(diff.Decision)             {}
func (NopReporter) Progress(diff.Decision, transfer.Progress) {}
func (NopReporter) Decided(diff.Decision)                     {}
func (NopReporter) CheckingLocal()                            {}
func (NopReporter) Orphan(orphan.Orphan, bool)                {}
