package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/dl-alexandre/gdmirror/internal/sync/diff"
	"github.com/dl-alexandre/gdmirror/internal/sync/orphan"
	"github.com/dl-alexandre/gdmirror/internal/sync/scanner"
	"github.com/dl-alexandre/gdmirror/internal/sync/transfer"
	"github.com/stretchr/testify/assert"
)

func TestFormatSize(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{0.5, "0"},
		{1, "1.0"},
		{512, "512.0"},
		{1024, "1.0K"},
		{1536, "1.5K"},
		{5 * 1024 * 1024, "5.0M"},
		{3 * 1024 * 1024 * 1024, "3.0G"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatSize(tt.in), "formatSize(%v)", tt.in)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0ms"},
		{450 * time.Millisecond, "450ms"},
		{time.Second, "1s"},
		{12*time.Second + 400*time.Millisecond, "12s"},
		{90 * time.Second, "2m"},
		{3 * time.Hour, "3h"},
		{36 * time.Hour, "2d"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatDuration(tt.in), "formatDuration(%v)", tt.in)
	}
}

func TestFormatProgress(t *testing.T) {
	p := transfer.Progress{
		Bytes:   1500,
		Total:   1000000,
		Percent: 0,
		Elapsed: 2 * time.Second,
		ETA:     500 * time.Millisecond,
		Rate:    2048,
	}
	// total "1,000,000" is 9 wide, so bytes pad to 10
	assert.Equal(t, "     1,500   0% time 2s eta 0s rate 2.0KB/s", formatProgress(p))

	p = transfer.Progress{Bytes: 500000, Total: 1000000, Percent: 50, Elapsed: time.Minute, ETA: time.Minute, Rate: 8333}
	assert.Equal(t, "   500,000  50% time 1m eta 1m rate 8.1KB/s", formatProgress(p))
}

func TestConsoleReporter_Lines(t *testing.T) {
	var buf bytes.Buffer
	r := newConsoleReporter(&buf, nil, false, false, true)

	r.Started("/A", "/dst", false)
	r.Decided(diff.Decision{Outcome: diff.OutcomeTransfer, LocalPath: "/dst/x.txt"})
	r.Decided(diff.Decision{Outcome: diff.OutcomeWouldTransfer, LocalPath: "/dst/y.txt"})
	r.Decided(diff.Decision{Outcome: diff.OutcomeSkip, LocalPath: "/dst/z.txt"})
	r.Decided(diff.Decision{
		Outcome: diff.OutcomeUnsupported,
		Entry:   scanner.RemoteEntry{Path: "/A/Notes"},
		Reason:  diff.ReasonWorkspaceDoc,
	})
	r.Orphan(orphan.Orphan{Path: "/dst/old.txt"}, true)
	r.Orphan(orphan.Orphan{Path: "/dst/gone.txt", Removed: true}, false)
	r.Orphan(orphan.Orphan{Path: "/dst/kept.txt"}, false)

	want := "Sync from gdrive:///A to /dst\n" +
		"/dst/x.txt\n" +
		"/dst/y.txt (dryrun)\n" +
		"/A/Notes - skipped, " + diff.ReasonWorkspaceDoc + "\n" +
		"/dst/old.txt - remove (dryrun)\n" +
		"/dst/gone.txt - remove\n" +
		"/dst/kept.txt - not on gdrive (use --delete to remove)\n"
	assert.Equal(t, want, buf.String())
}

func TestConsoleReporter_QuietAndColor(t *testing.T) {
	var quiet bytes.Buffer
	r := newConsoleReporter(&quiet, nil, false, true, false)
	r.Started("/", "/dst", true)
	r.Decided(diff.Decision{Outcome: diff.OutcomeTransfer, LocalPath: "/dst/x.txt"})
	assert.Empty(t, quiet.String())

	var colored bytes.Buffer
	r = newConsoleReporter(&colored, nil, true, false, false)
	r.Decided(diff.Decision{Outcome: diff.OutcomeTransfer, LocalPath: "/dst/x.txt"})
	r.Decided(diff.Decision{Outcome: diff.OutcomeUnsupported, Entry: scanner.RemoteEntry{Path: "/Doc"}})
	assert.Equal(t, colorGreen+"/dst/x.txt"+colorReset+"\n", colored.String())
}
