package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dl-alexandre/gdmirror/internal/logging"
	"github.com/dl-alexandre/gdmirror/internal/types"
	"github.com/dl-alexandre/gdmirror/internal/utils"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
)

// Source is the content half of the remote client
type Source interface {
	GetMetadata(ctx context.Context, fileID string) (*types.DriveFile, error)
	GetContent(ctx context.Context, fileID string) (io.ReadCloser, error)
}

// Options selects the optional stages
type Options struct {
	// Limit caps throughput in bytes per second; zero disables the throttle
	Limit int64
	// Progress enables the progress stage when set
	Progress ProgressFunc
	// Interval is the minimum gap between progress samples, checked on each read
	Interval time.Duration
	Clock    clockwork.Clock
}

// Request describes one file to mirror. Size -1 or a zero ModTime triggers
// a metadata lookup first.
type Request struct {
	FileID  string
	Dest    string
	Size    int64
	ModTime time.Time
	MD5     string
}

// Result is what a successful transfer produced
type Result struct {
	Hash    string    `json:"hash"`
	ModTime time.Time `json:"modTime"`
	Size    int64     `json:"size"`
}

type Pipeline struct {
	source Source
	fs     afero.Fs
	opts   Options
	logger logging.Logger
}

func New(source Source, fsys afero.Fs, opts Options, logger logging.Logger) *Pipeline {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultProgressInterval
	}
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &Pipeline{source: source, fs: fsys, opts: opts, logger: logger}
}

// Stages builds the ordered stage list for one transfer. The hash stage is
// always first and is also returned for reading the digest.
func (p *Pipeline) Stages(ctx context.Context, total int64) ([]Stage, *HashStage) {
	hash := NewHashStage()
	stages := []Stage{hash}
	if p.opts.Limit > 0 {
		stages = append(stages, NewThrottleStage(ctx, p.opts.Limit, p.opts.Clock))
	}
	if p.opts.Progress != nil {
		stages = append(stages, NewProgressStage(total, p.opts.Interval, p.opts.Clock, p.opts.Progress))
	}
	return stages, hash
}

// Transfer streams one remote file to req.Dest and stamps its modification
// time. Any failure aborts the transfer and leaves whatever was written.
func (p *Pipeline) Transfer(ctx context.Context, req Request) (*Result, error) {
	if req.Size < 0 || req.ModTime.IsZero() {
		if err := p.fillMetadata(ctx, &req); err != nil {
			return nil, err
		}
	}

	if err := p.fs.MkdirAll(filepath.Dir(req.Dest), 0755); err != nil {
		return nil, localIOError("Cannot create directory", filepath.Dir(req.Dest), err)
	}

	body, err := p.source.GetContent(ctx, req.FileID)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	stages, hash := p.Stages(ctx, req.Size)
	var r io.Reader = body
	for _, s := range stages {
		r = s.Wrap(r)
	}

	f, err := p.fs.OpenFile(req.Dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return nil, localIOError("Cannot open destination", req.Dest, err)
	}

	n, copyErr := io.Copy(f, r)
	closeErr := f.Close()
	if copyErr != nil {
		return nil, transferError(ctx, req, copyErr)
	}
	if closeErr != nil {
		return nil, localIOError("Cannot finish writing", req.Dest, closeErr)
	}

	if n != req.Size {
		return nil, utils.NewAppError(utils.NewCLIError(utils.ErrCodeTransferFailed,
			fmt.Sprintf("Short transfer for %s: got %d of %d bytes", req.Dest, n, req.Size)).
			WithContext("fileId", req.FileID).
			WithContext("path", req.Dest).
			Build())
	}

	sum := hash.Sum()
	if req.MD5 != "" && !strings.EqualFold(req.MD5, sum) {
		return nil, utils.NewAppError(utils.NewCLIError(utils.ErrCodeChecksumMismatch,
			fmt.Sprintf("Checksum mismatch for %s", req.Dest)).
			WithContext("fileId", req.FileID).
			WithContext("expected", req.MD5).
			WithContext("actual", sum).
			Build())
	}

	if err := p.fs.Chtimes(req.Dest, req.ModTime, req.ModTime); err != nil {
		return nil, localIOError("Cannot set modification time", req.Dest, err)
	}

	p.logger.Debug("Transfer complete",
		logging.F("fileId", req.FileID),
		logging.F("path", req.Dest),
		logging.F("bytes", n),
		logging.F("md5", sum))

	return &Result{Hash: sum, ModTime: req.ModTime, Size: n}, nil
}

func (p *Pipeline) fillMetadata(ctx context.Context, req *Request) error {
	meta, err := p.source.GetMetadata(ctx, req.FileID)
	if err != nil {
		return err
	}

	req.Size = meta.Size
	if req.MD5 == "" {
		req.MD5 = meta.MD5Checksum
	}
	modTime, err := time.Parse(time.RFC3339Nano, meta.ModifiedTime)
	if err != nil {
		return utils.WrapAppError(utils.NewCLIError(utils.ErrCodeRemoteAPI,
			"Invalid modifiedTime in metadata").
			WithContext("fileId", req.FileID).
			Build(), err)
	}
	req.ModTime = modTime.Truncate(time.Millisecond)
	return nil
}

func localIOError(msg, path string, err error) error {
	return utils.WrapAppError(utils.NewCLIError(utils.ErrCodeLocalIO,
		fmt.Sprintf("%s: %s", msg, path)).
		WithContext("path", path).
		Build(), err)
}

func transferError(ctx context.Context, req Request, err error) error {
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return utils.WrapAppError(utils.NewCLIError(utils.ErrCodeCancelled,
			fmt.Sprintf("Transfer of %s cancelled", req.Dest)).Build(), err)
	}
	return utils.WrapAppError(utils.NewCLIError(utils.ErrCodeTransferFailed,
		fmt.Sprintf("Transfer of %s failed: %v", req.Dest, err)).
		WithRetryable(true).
		WithContext("fileId", req.FileID).
		WithContext("path", req.Dest).
		Build(), err)
}
