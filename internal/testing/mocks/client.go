package mocks

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/dl-alexandre/gdmirror/internal/types"
	"github.com/dl-alexandre/gdmirror/internal/utils"
)

// FakeDrive is an in-memory remote store implementing the Drive client
// methods used by the mirror (List, GetMetadata, GetContent).
type FakeDrive struct {
	mu      sync.Mutex
	order   []string
	files   map[string]*types.DriveFile
	content map[string][]byte

	// PageSize splits List results; zero returns everything in one page
	PageSize int

	// ListFunc, GetMetadataFunc and GetContentFunc override the defaults when set
	ListFunc        func(pageToken string) (*types.FileListResult, error)
	GetMetadataFunc func(fileID string) (*types.DriveFile, error)
	GetContentFunc  func(fileID string) (io.ReadCloser, error)

	ListCalls     int
	MetadataCalls int
	ContentCalls  int
}

// NewFakeDrive creates an empty fake remote store
func NewFakeDrive() *FakeDrive {
	return &FakeDrive{
		files:   make(map[string]*types.DriveFile),
		content: make(map[string][]byte),
	}
}

// AddFolder adds a folder under parents (none means root level)
func (d *FakeDrive) AddFolder(id, name string, parents ...string) *types.DriveFile {
	return d.put(&types.DriveFile{ID: id, Name: name, MimeType: utils.MimeTypeFolder, Parents: parents}, nil)
}

// AddFile adds a binary file with the given content and modification time
func (d *FakeDrive) AddFile(id, name string, data []byte, modified time.Time, parents ...string) *types.DriveFile {
	sum := md5.Sum(data)
	return d.put(&types.DriveFile{
		ID:           id,
		Name:         name,
		MimeType:     "application/octet-stream",
		Size:         int64(len(data)),
		MD5Checksum:  hex.EncodeToString(sum[:]),
		ModifiedTime: modified.UTC().Format(time.RFC3339Nano),
		Parents:      parents,
	}, data)
}

// AddNative adds a Google Workspace document, which has no binary content
func (d *FakeDrive) AddNative(id, name, mimeType string, modified time.Time, parents ...string) *types.DriveFile {
	return d.put(&types.DriveFile{
		ID:           id,
		Name:         name,
		MimeType:     mimeType,
		ModifiedTime: modified.UTC().Format(time.RFC3339Nano),
		Parents:      parents,
	}, nil)
}

// Update replaces the content and modification time of an existing file
func (d *FakeDrive) Update(id string, data []byte, modified time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()

	f, ok := d.files[id]
	if !ok {
		panic("mocks: update of unknown file " + id)
	}
	sum := md5.Sum(data)
	f.Size = int64(len(data))
	f.MD5Checksum = hex.EncodeToString(sum[:])
	f.ModifiedTime = modified.UTC().Format(time.RFC3339Nano)
	d.content[id] = data
}

// Remove deletes an entry
func (d *FakeDrive) Remove(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.files, id)
	delete(d.content, id)
	for i, existing := range d.order {
		if existing == id {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
}

func (d *FakeDrive) put(f *types.DriveFile, data []byte) *types.DriveFile {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.files[f.ID]; !exists {
		d.order = append(d.order, f.ID)
	}
	d.files[f.ID] = f
	if data != nil {
		d.content[f.ID] = data
	}
	return f
}

// List returns entries in insertion order, PageSize at a time. The page
// token is the offset of the next page.
func (d *FakeDrive) List(ctx context.Context, pageToken string) (*types.FileListResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ListCalls++

	if d.ListFunc != nil {
		return d.ListFunc(pageToken)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := 0
	if pageToken != "" {
		n, err := strconv.Atoi(pageToken)
		if err != nil || n < 0 || n > len(d.order) {
			return nil, utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidArgument,
				fmt.Sprintf("invalid page token %q", pageToken)).WithHTTPStatus(400).Build())
		}
		start = n
	}

	end := len(d.order)
	if d.PageSize > 0 && start+d.PageSize < end {
		end = start + d.PageSize
	}

	result := &types.FileListResult{Files: make([]*types.DriveFile, 0, end-start)}
	for _, id := range d.order[start:end] {
		copied := *d.files[id]
		result.Files = append(result.Files, &copied)
	}
	if end < len(d.order) {
		result.NextPageToken = strconv.Itoa(end)
	}
	return result, nil
}

// GetMetadata returns a copy of one entry
func (d *FakeDrive) GetMetadata(ctx context.Context, fileID string) (*types.DriveFile, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.MetadataCalls++

	if d.GetMetadataFunc != nil {
		return d.GetMetadataFunc(fileID)
	}
	f, ok := d.files[fileID]
	if !ok {
		return nil, notFound(fileID)
	}
	copied := *f
	return &copied, nil
}

// GetContent streams the stored bytes of a file
func (d *FakeDrive) GetContent(ctx context.Context, fileID string) (io.ReadCloser, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ContentCalls++

	if d.GetContentFunc != nil {
		return d.GetContentFunc(fileID)
	}
	data, ok := d.content[fileID]
	if !ok {
		return nil, notFound(fileID)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func notFound(fileID string) error {
	return utils.NewAppError(utils.NewCLIError(utils.ErrCodeFileNotFound,
		fmt.Sprintf("File not found: %s", fileID)).
		WithHTTPStatus(404).
		WithContext("fileIds", []string{fileID}).
		Build())
}
