package testing

import (
	"context"
	"testing"
	"time"

	"github.com/dl-alexandre/gdmirror/internal/types"
	"github.com/dl-alexandre/gdmirror/internal/utils"
)

// TestContext creates a standard test context
func TestContext() context.Context {
	return context.Background()
}

// TestRequestContext creates a standard request context for testing
func TestRequestContext() *types.RequestContext {
	return &types.RequestContext{
		Profile:         "test-profile",
		InvolvedFileIDs: []string{},
		RequestType:     types.RequestTypeListOrSearch,
		TraceID:         "test-trace-id",
	}
}

// TestFile creates a Drive file with binary content metadata
func TestFile(id, name string, size int64, modified time.Time, parents ...string) *types.DriveFile {
	return &types.DriveFile{
		ID:           id,
		Name:         name,
		MimeType:     "application/octet-stream",
		Size:         size,
		ModifiedTime: modified.UTC().Format(time.RFC3339Nano),
		Parents:      parents,
	}
}

// TestFolder creates a Drive folder
func TestFolder(id, name string, parents ...string) *types.DriveFile {
	return &types.DriveFile{
		ID:       id,
		Name:     name,
		MimeType: utils.MimeTypeFolder,
		Parents:  parents,
	}
}

// MustParseTime parses an RFC3339 timestamp or fails the test
func MustParseTime(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		t.Fatalf("bad timestamp %q: %v", value, err)
	}
	return parsed
}

// AssertNoError is a helper to fail the test if error is not nil
func AssertNoError(t *testing.T, err error, msgAndArgs ...interface{}) {
	t.Helper()
	if err != nil {
		if len(msgAndArgs) > 0 {
			t.Fatalf("%v: %v", msgAndArgs[0], err)
		} else {
			t.Fatalf("unexpected error: %v", err)
		}
	}
}

// AssertError is a helper to fail the test if error is nil
func AssertError(t *testing.T, err error, msgAndArgs ...interface{}) {
	t.Helper()
	if err == nil {
		if len(msgAndArgs) > 0 {
			t.Fatalf("%v: expected error but got nil", msgAndArgs[0])
		} else {
			t.Fatal("expected error but got nil")
		}
	}
}

// AssertEqual is a helper to fail the test if two values are not equal
func AssertEqual(t *testing.T, got, want interface{}, msgAndArgs ...interface{}) {
	t.Helper()
	if got != want {
		if len(msgAndArgs) > 0 {
			t.Fatalf("%v: got %v, want %v", msgAndArgs[0], got, want)
		} else {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
