package api

import (
	"context"
	stderrors "errors"
	"io"
	"math"
	"math/rand"
	"strconv"
	"time"

	"github.com/dl-alexandre/gdmirror/internal/errors"
	"github.com/dl-alexandre/gdmirror/internal/logging"
	"github.com/dl-alexandre/gdmirror/internal/types"
	"github.com/dl-alexandre/gdmirror/internal/utils"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
)

const (
	listQuery  = "trashed = false"
	fileFields = "id, name, mimeType, modifiedTime, size, md5Checksum, parents, trashed"
	listFields = "nextPageToken, files(" + fileFields + ")"
)

// Client wraps the Drive API with retry logic
type Client struct {
	service    *drive.Service
	maxRetries int
	retryDelay time.Duration
	pageSize   int64
	timeout    time.Duration
	profile    string
	logger     logging.Logger
	clock      clockwork.Clock
}

// ClientOptions configures a Client
type ClientOptions struct {
	MaxRetries   int
	RetryDelayMs int
	PageSize     int
	// RequestTimeout bounds each metadata request; zero means no bound
	RequestTimeout time.Duration
	Profile        string
	Logger         logging.Logger
	Clock          clockwork.Clock
}

// NewClient creates a new Drive API client
func NewClient(service *drive.Service, opts ClientOptions) *Client {
	c := &Client{
		service:    service,
		maxRetries: opts.MaxRetries,
		retryDelay: time.Duration(opts.RetryDelayMs) * time.Millisecond,
		pageSize:   int64(opts.PageSize),
		timeout:    opts.RequestTimeout,
		profile:    opts.Profile,
		logger:     opts.Logger,
		clock:      opts.Clock,
	}
	if c.logger == nil {
		c.logger = logging.NewNoOpLogger()
	}
	if c.clock == nil {
		c.clock = clockwork.NewRealClock()
	}
	if c.pageSize <= 0 {
		c.pageSize = utils.DefaultPageSize
	}
	if c.retryDelay <= 0 {
		c.retryDelay = utils.DefaultRetryDelayMs * time.Millisecond
	}
	return c
}

// NewRequestContext creates a new request context with trace ID
func NewRequestContext(profile string, requestType types.RequestType) *types.RequestContext {
	return &types.RequestContext{
		Profile:         profile,
		InvolvedFileIDs: []string{},
		RequestType:     requestType,
		TraceID:         uuid.New().String(),
	}
}

// WithFileIDs adds file IDs to the request context
func (c *Client) WithFileIDs(reqCtx *types.RequestContext, fileIDs ...string) *types.RequestContext {
	reqCtx.InvolvedFileIDs = append(reqCtx.InvolvedFileIDs, fileIDs...)
	return reqCtx
}

// List fetches one page of non-trashed files visible to the caller.
// An empty pageToken requests the first page.
func (c *Client) List(ctx context.Context, pageToken string) (*types.FileListResult, error) {
	reqCtx := NewRequestContext(c.profile, types.RequestTypeListOrSearch)
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	call := c.service.Files.List().
		Q(listQuery).
		PageSize(c.pageSize).
		Fields(listFields).
		Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	list, err := ExecuteWithRetry(ctx, c, reqCtx, func() (*drive.FileList, error) {
		return call.Do()
	})
	if err != nil {
		return nil, err
	}

	result := &types.FileListResult{
		Files:         make([]*types.DriveFile, 0, len(list.Files)),
		NextPageToken: list.NextPageToken,
	}
	for _, f := range list.Files {
		result.Files = append(result.Files, convertFile(f))
	}
	return result, nil
}

// GetMetadata fetches metadata for a single file
func (c *Client) GetMetadata(ctx context.Context, fileID string) (*types.DriveFile, error) {
	reqCtx := c.WithFileIDs(NewRequestContext(c.profile, types.RequestTypeGetByID), fileID)
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	call := c.service.Files.Get(fileID).Fields(fileFields).Context(ctx)
	file, err := ExecuteWithRetry(ctx, c, reqCtx, func() (*drive.File, error) {
		return call.Do()
	})
	if err != nil {
		return nil, err
	}
	return convertFile(file), nil
}

// GetContent opens the binary content of a file. The caller closes the body.
// Only opening the stream is retried; a failure mid-stream surfaces from Read.
func (c *Client) GetContent(ctx context.Context, fileID string) (io.ReadCloser, error) {
	reqCtx := c.WithFileIDs(NewRequestContext(c.profile, types.RequestTypeDownload), fileID)

	call := c.service.Files.Get(fileID).Context(ctx)
	resp, err := ExecuteWithRetry(ctx, c, reqCtx, func() (io.ReadCloser, error) {
		r, err := call.Download()
		if err != nil {
			return nil, err
		}
		return r.Body, nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func convertFile(f *drive.File) *types.DriveFile {
	return &types.DriveFile{
		ID:           f.Id,
		Name:         f.Name,
		MimeType:     f.MimeType,
		Size:         f.Size,
		MD5Checksum:  f.Md5Checksum,
		ModifiedTime: f.ModifiedTime,
		Parents:      f.Parents,
		Trashed:      f.Trashed,
	}
}

// ExecuteWithRetry executes an API call with retry logic
func ExecuteWithRetry[T any](ctx context.Context, client *Client, reqCtx *types.RequestContext, fn func() (T, error)) (T, error) {
	var result T
	var lastErr error

	logger := client.logger.WithTraceID(reqCtx.TraceID)
	logger.Debug("API operation starting",
		logging.F("requestType", reqCtx.RequestType),
		logging.F("profile", reqCtx.Profile),
		logging.F("fileIds", reqCtx.InvolvedFileIDs),
	)

	start := client.clock.Now()

	for attempt := 0; attempt <= client.maxRetries; attempt++ {
		if attempt > 0 {
			logger.Warn("Retrying API operation",
				logging.F("attempt", attempt),
				logging.F("maxRetries", client.maxRetries),
			)
		}

		result, lastErr = fn()
		if lastErr == nil {
			logger.Debug("API operation completed",
				logging.F("duration_ms", client.clock.Since(start).Milliseconds()),
				logging.F("attempts", attempt+1),
			)
			return result, nil
		}

		if ctx.Err() != nil || !isRetryable(lastErr) {
			logger.Debug("API operation failed (non-retryable)",
				logging.F("duration_ms", client.clock.Since(start).Milliseconds()),
				logging.F("error", lastErr.Error()),
				logging.F("attempts", attempt+1),
			)
			return result, classifyError(ctx, lastErr, reqCtx, client.logger)
		}

		if attempt < client.maxRetries {
			delay := calculateBackoff(client.retryDelay, attempt, lastErr)
			logger.Warn("API operation failed (retryable)",
				logging.F("attempt", attempt+1),
				logging.F("delay_ms", delay.Milliseconds()),
				logging.F("error", lastErr.Error()),
			)
			select {
			case <-ctx.Done():
				return result, classifyError(ctx, ctx.Err(), reqCtx, client.logger)
			case <-client.clock.After(delay):
			}
		}
	}

	logger.Error("API operation failed after max retries",
		logging.F("duration_ms", client.clock.Since(start).Milliseconds()),
		logging.F("attempts", client.maxRetries+1),
		logging.F("error", lastErr.Error()),
	)

	return result, classifyError(ctx, lastErr, reqCtx, client.logger)
}

// isRetryable checks if an error is retryable
func isRetryable(err error) bool {
	var apiErr *googleapi.Error
	if !stderrors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Code {
	case 429, 500, 502, 503, 504:
		return true
	case 403:
		for _, e := range apiErr.Errors {
			if e.Reason == "rateLimitExceeded" || e.Reason == "userRateLimitExceeded" {
				return true
			}
		}
	}
	return false
}

// calculateBackoff calculates the retry delay with exponential backoff
func calculateBackoff(baseDelay time.Duration, attempt int, err error) time.Duration {
	maxDelay := time.Duration(utils.MaxRetryDelayMs) * time.Millisecond

	var apiErr *googleapi.Error
	if stderrors.As(err, &apiErr) && apiErr.Header != nil {
		if retryAfter := apiErr.Header.Get("Retry-After"); retryAfter != "" {
			// Google sends seconds, not HTTP dates.
			if seconds, err := strconv.Atoi(retryAfter); err == nil {
				return min(time.Duration(seconds)*time.Second, maxDelay)
			}
		}
	}

	delay := min(baseDelay*time.Duration(math.Pow(2, float64(attempt))), maxDelay)

	// ±25% jitter
	jitterRange := delay / 4
	if jitterRange > 0 {
		delay += time.Duration(rand.Int63n(int64(jitterRange*2))) - jitterRange
	}

	if delay < 0 {
		delay = baseDelay
	}
	return delay
}

func classifyError(ctx context.Context, err error, reqCtx *types.RequestContext, logger logging.Logger) error {
	if ctxErr := ctx.Err(); ctxErr != nil && !stderrors.Is(err, ctxErr) {
		err = stderrors.Join(ctxErr, err)
	}
	return errors.ClassifyGoogleAPIError("drive", err, reqCtx, logger)
}
