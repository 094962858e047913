package scanner

import (
	"context"
	"strings"
	"time"

	"github.com/dl-alexandre/gdmirror/internal/logging"
	"github.com/dl-alexandre/gdmirror/internal/types"
	"github.com/dl-alexandre/gdmirror/internal/utils"
)

// Lister is the listing half of the remote client
type Lister interface {
	List(ctx context.Context, pageToken string) (*types.FileListResult, error)
}

// PageFunc observes listing progress
type PageFunc func(pages, entries int)

type RemoteScanner struct {
	client Lister
	logger logging.Logger
	onPage PageFunc
}

func NewRemoteScanner(client Lister, logger logging.Logger) *RemoteScanner {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &RemoteScanner{client: client, logger: logger}
}

// OnPage registers a callback invoked after each listing page
func (s *RemoteScanner) OnPage(fn PageFunc) *RemoteScanner {
	s.onPage = fn
	return s
}

// Scan lists the whole remote store, one page at a time, and indexes it.
// Nothing is emitted until the last page has arrived.
func (s *RemoteScanner) Scan(ctx context.Context) (*Tree, error) {
	tree := newTree()
	pageToken := ""
	pages := 0

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := s.client.List(ctx, pageToken)
		if err != nil {
			return nil, err
		}
		pages++

		for _, f := range result.Files {
			entry, err := normalize(f)
			if err != nil {
				return nil, err
			}
			tree.add(entry)
		}

		s.logger.Debug("Listed page",
			logging.F("page", pages),
			logging.F("files", len(result.Files)),
			logging.F("total", tree.Len()))
		if s.onPage != nil {
			s.onPage(pages, tree.Len())
		}

		if result.NextPageToken == "" {
			break
		}
		pageToken = result.NextPageToken
	}

	tree.finalize()
	s.logger.Info("Remote listing complete",
		logging.F("pages", pages),
		logging.F("entries", tree.Len()))
	return tree, nil
}

func normalize(f *types.DriveFile) (RemoteEntry, error) {
	entry := RemoteEntry{
		ID:          f.ID,
		Name:        f.Name,
		MimeType:    f.MimeType,
		IsDir:       strings.HasSuffix(f.MimeType, utils.FolderMarker),
		Size:        f.Size,
		MD5Checksum: f.MD5Checksum,
		Parents:     f.Parents,
	}
	if len(entry.Parents) == 0 {
		entry.Parents = []string{RootID}
	}

	if f.ModifiedTime != "" {
		t, err := time.Parse(time.RFC3339Nano, f.ModifiedTime)
		if err != nil {
			return RemoteEntry{}, utils.WrapAppError(utils.NewCLIError(utils.ErrCodeRemoteAPI,
				"Invalid modifiedTime in listing").
				WithContext("fileId", f.ID).
				WithContext("modifiedTime", f.ModifiedTime).
				Build(), err)
		}
		entry.ModifiedTime = t.Truncate(time.Millisecond)
	}

	return entry, nil
}
