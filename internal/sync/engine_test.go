package sync

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/dl-alexandre/gdmirror/internal/sync/diff"
	"github.com/dl-alexandre/gdmirror/internal/sync/exclude"
	"github.com/dl-alexandre/gdmirror/internal/sync/orphan"
	"github.com/dl-alexandre/gdmirror/internal/sync/transfer"
	"github.com/dl-alexandre/gdmirror/internal/testing/mocks"
	"github.com/dl-alexandre/gdmirror/internal/utils"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	jan = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	feb = time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC)
	mar = time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC)
)

type recorder struct {
	NopReporter
	started   bool
	decisions []diff.Decision
	progress  []transfer.Progress
	orphans   []orphan.Orphan
	local     bool
}

func (r *recorder) Started(string, string, bool)   { r.started = true }
func (r *recorder) Decided(d diff.Decision)        { r.decisions = append(r.decisions, d) }
func (r *recorder) CheckingLocal()                 { r.local = true }
func (r *recorder) Orphan(o orphan.Orphan, _ bool) { r.orphans = append(r.orphans, o) }
func (r *recorder) Progress(_ diff.Decision, p transfer.Progress) {
	r.progress = append(r.progress, p)
}

func (r *recorder) outcomes() map[string]diff.Outcome {
	out := make(map[string]diff.Outcome)
	for _, d := range r.decisions {
		out[d.RelPath] = d.Outcome
	}
	return out
}

func newScenario() *mocks.FakeDrive {
	drive := mocks.NewFakeDrive()
	drive.AddFolder("a", "A")
	drive.AddFolder("b", "B", "a")
	drive.AddFile("x", "x.txt", make([]byte, 100), jan, "a")
	drive.AddFile("y", "y.txt", make([]byte, 50), feb, "b")
	drive.AddFolder("other", "Other")
	drive.AddFile("o", "o.txt", []byte("elsewhere"), jan, "other")
	return drive
}

func runOnce(t *testing.T, drive *mocks.FakeDrive, fsys afero.Fs, opts Options) (*Summary, *recorder) {
	t.Helper()
	rec := &recorder{}
	engine := NewEngine(drive, fsys, nil).
		WithReporter(rec).
		WithClock(clockwork.NewFakeClockAt(mar))
	summary, err := engine.Run(context.Background(), opts)
	require.NoError(t, err)
	return summary, rec
}

func assertLocal(t *testing.T, fsys afero.Fs, p string, size int64, modified time.Time) {
	t.Helper()
	info, err := fsys.Stat(p)
	require.NoError(t, err, p)
	assert.Equal(t, size, info.Size(), p)
	assert.Equal(t, modified.UnixMilli(), info.ModTime().UnixMilli(), p)
}

func TestEngine_MirrorsThenConverges(t *testing.T) {
	drive := newScenario()
	fsys := afero.NewMemMapFs()
	opts := Options{RemoteRoot: "/A", LocalRoot: "/dst"}

	first, rec := runOnce(t, drive, fsys, opts)
	assert.True(t, rec.started)
	assert.True(t, rec.local)
	assert.Equal(t, 2, first.Transferred)
	assert.Equal(t, int64(150), first.Bytes)
	assert.Equal(t, 1, first.Directories)
	assert.Equal(t, 6, first.Listed)
	assert.Empty(t, first.Orphans)
	assert.Equal(t, map[string]diff.Outcome{
		"x.txt":   diff.OutcomeTransfer,
		"B/y.txt": diff.OutcomeTransfer,
	}, rec.outcomes())

	assertLocal(t, fsys, "/dst/x.txt", 100, jan)
	assertLocal(t, fsys, "/dst/B/y.txt", 50, feb)
	exists, err := afero.Exists(fsys, "/dst/o.txt")
	require.NoError(t, err)
	assert.False(t, exists, "entries outside the root are never mirrored")

	second, rec := runOnce(t, drive, fsys, opts)
	assert.Zero(t, second.Transferred)
	assert.Equal(t, 2, second.Skipped)
	assert.Equal(t, map[string]diff.Outcome{
		"x.txt":   diff.OutcomeSkip,
		"B/y.txt": diff.OutcomeSkip,
	}, rec.outcomes())

	drive.Update("x", make([]byte, 120), mar)
	third, rec := runOnce(t, drive, fsys, opts)
	assert.Equal(t, 1, third.Transferred)
	assert.Equal(t, 1, third.Skipped)
	assert.Equal(t, diff.OutcomeTransfer, rec.outcomes()["x.txt"])
	assertLocal(t, fsys, "/dst/x.txt", 120, mar)
}

func TestEngine_DryRunWritesNothing(t *testing.T) {
	drive := newScenario()
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/dst/stale.txt", []byte("old"), 0644))

	summary, rec := runOnce(t, drive, fsys, Options{RemoteRoot: "A", LocalRoot: "/dst", DryRun: true, Delete: true})
	assert.True(t, summary.DryRun)
	assert.Equal(t, 2, summary.WouldTransfer)
	assert.Zero(t, summary.Transferred)
	assert.Zero(t, drive.ContentCalls)

	require.Len(t, rec.orphans, 1)
	assert.Equal(t, "stale.txt", rec.orphans[0].RelPath)
	assert.False(t, rec.orphans[0].Removed)
	assert.Zero(t, summary.Removed)

	for _, p := range []string{"/dst/x.txt", "/dst/B"} {
		exists, err := afero.Exists(fsys, p)
		require.NoError(t, err)
		assert.False(t, exists, p)
	}
	exists, err := afero.Exists(fsys, "/dst/stale.txt")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestEngine_Orphans(t *testing.T) {
	drive := newScenario()
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/dst/z.txt", []byte("zz"), 0644))

	kept, _ := runOnce(t, drive, fsys, Options{RemoteRoot: "/A", LocalRoot: "/dst"})
	require.Len(t, kept.Orphans, 1)
	assert.Equal(t, "z.txt", kept.Orphans[0].RelPath)
	assert.Zero(t, kept.Removed)

	removed, rec := runOnce(t, drive, fsys, Options{RemoteRoot: "/A", LocalRoot: "/dst", Delete: true})
	require.Len(t, rec.orphans, 1)
	assert.True(t, rec.orphans[0].Removed)
	assert.Equal(t, 1, removed.Removed)
	exists, err := afero.Exists(fsys, "/dst/z.txt")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestEngine_ExcludeAndUnsupported(t *testing.T) {
	drive := newScenario()
	drive.AddNative("doc", "Notes", "application/vnd.google-apps.document", jan, "a")
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/dst/B/local-only.txt", []byte("keep"), 0644))

	matcher, err := exclude.New([]string{"B/"})
	require.NoError(t, err)

	summary, rec := runOnce(t, drive, fsys, Options{RemoteRoot: "/A", LocalRoot: "/dst", Exclude: matcher, Delete: true})
	assert.Equal(t, 1, summary.Transferred)
	assert.Equal(t, 1, summary.Unsupported)
	assert.Equal(t, 2, summary.Excluded, "the directory and the file below it")
	assert.Equal(t, diff.OutcomeUnsupported, rec.outcomes()["Notes"])
	assert.Empty(t, summary.Orphans, "excluded local paths are never orphans")

	exists, err := afero.Exists(fsys, "/dst/B/local-only.txt")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestEngine_Paginated(t *testing.T) {
	drive := newScenario()
	drive.PageSize = 2
	fsys := afero.NewMemMapFs()

	summary, _ := runOnce(t, drive, fsys, Options{RemoteRoot: "/", LocalRoot: "/dst"})
	assert.Equal(t, 3, drive.ListCalls)
	assert.Equal(t, 3, summary.Transferred)
	assertLocal(t, fsys, "/dst/A/B/y.txt", 50, feb)
	assertLocal(t, fsys, "/dst/Other/o.txt", 9, jan)
}

func TestEngine_ProgressReported(t *testing.T) {
	drive := newScenario()
	summary, rec := runOnce(t, drive, afero.NewMemMapFs(), Options{RemoteRoot: "/A", LocalRoot: "/dst"})
	require.Equal(t, 2, summary.Transferred)
	require.NotEmpty(t, rec.progress)
	last := rec.progress[len(rec.progress)-1]
	assert.True(t, last.Done)
	assert.Equal(t, 100, last.Percent)

	quiet, rec := runOnce(t, newScenario(), afero.NewMemMapFs(), Options{RemoteRoot: "/A", LocalRoot: "/dst", NoProgress: true})
	assert.Equal(t, 2, quiet.Transferred)
	assert.Empty(t, rec.progress)
}

func TestEngine_TransferFailureStopsRun(t *testing.T) {
	drive := newScenario()
	boom := errors.New("connection reset")
	drive.GetContentFunc = func(string) (io.ReadCloser, error) { return nil, boom }

	engine := NewEngine(drive, afero.NewMemMapFs(), nil)
	summary, err := engine.Run(context.Background(), Options{RemoteRoot: "/A", LocalRoot: "/dst"})
	require.Error(t, err)
	require.NotNil(t, summary)
	assert.Zero(t, summary.Transferred)
}

func TestEngine_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := NewEngine(newScenario(), afero.NewMemMapFs(), nil)
	_, err := engine.Run(ctx, Options{RemoteRoot: "/A", LocalRoot: "/dst"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngine_RequiresLocalRoot(t *testing.T) {
	engine := NewEngine(newScenario(), afero.NewMemMapFs(), nil)
	_, err := engine.Run(context.Background(), Options{RemoteRoot: "/A"})
	require.Error(t, err)
	appErr, ok := utils.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, utils.ErrCodeInvalidPath, appErr.CLIError.Code)
}

func TestEngine_DuplicateNamesConverge(t *testing.T) {
	drive := mocks.NewFakeDrive()
	drive.AddFolder("a", "A")
	drive.AddFile("x1", "x.txt", make([]byte, 100), jan, "a")
	drive.AddFile("x2", "x.txt", make([]byte, 40), feb, "a")
	drive.AddFile("c", "c", make([]byte, 10), jan, "a")
	drive.AddFolder("cdir", "c", "a")
	drive.AddFile("cy", "y.txt", make([]byte, 5), jan, "cdir")
	fsys := afero.NewMemMapFs()
	opts := Options{RemoteRoot: "/A", LocalRoot: "/dst"}

	first, rec := runOnce(t, drive, fsys, opts)
	assert.Equal(t, 2, first.Transferred)
	assert.Equal(t, 3, first.Unsupported, "second x.txt, folder c and c/y.txt")
	for _, d := range rec.decisions {
		if d.Outcome == diff.OutcomeUnsupported {
			assert.Equal(t, diff.ReasonDuplicateName, d.Reason, d.Entry.Path)
		}
	}
	// siblings are ordered by name then ID, so x1 wins
	assertLocal(t, fsys, "/dst/x.txt", 100, jan)
	assertLocal(t, fsys, "/dst/c", 10, jan)

	second, _ := runOnce(t, drive, fsys, opts)
	assert.Zero(t, second.Transferred)
	assert.Equal(t, 2, second.Skipped)
	assert.Empty(t, second.Orphans)
}
