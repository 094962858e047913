package mocks_test

import (
	"context"
	"io"
	"testing"
	"time"

	testhelpers "github.com/dl-alexandre/gdmirror/internal/testing"
	"github.com/dl-alexandre/gdmirror/internal/testing/mocks"
	"github.com/dl-alexandre/gdmirror/internal/utils"
)

func TestFakeDrive_Pagination(t *testing.T) {
	drive := mocks.NewFakeDrive()
	drive.PageSize = 2
	when := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		drive.AddFile(id, id+".bin", []byte(id), when)
	}

	var ids []string
	token := ""
	pages := 0
	for {
		page, err := drive.List(context.Background(), token)
		testhelpers.AssertNoError(t, err, "listing")
		pages++
		for _, f := range page.Files {
			ids = append(ids, f.ID)
		}
		if page.NextPageToken == "" {
			break
		}
		token = page.NextPageToken
	}

	testhelpers.AssertEqual(t, pages, 3, "pages")
	testhelpers.AssertEqual(t, len(ids), 5, "entries")
	testhelpers.AssertEqual(t, ids[4], "e", "last entry")
}

func TestFakeDrive_ContentAndMissing(t *testing.T) {
	drive := mocks.NewFakeDrive()
	f := drive.AddFile("x", "x.txt", []byte("payload"), time.Now())
	testhelpers.AssertEqual(t, f.MD5Checksum, "321c3cf486ed509164edec1e1981fec8", "md5")

	body, err := drive.GetContent(context.Background(), "x")
	testhelpers.AssertNoError(t, err, "content")
	data, _ := io.ReadAll(body)
	testhelpers.AssertEqual(t, string(data), "payload", "content")

	_, err = drive.GetMetadata(context.Background(), "missing")
	testhelpers.AssertError(t, err, "missing metadata")
	testhelpers.AssertEqual(t, utils.ErrorCode(err), utils.ErrCodeFileNotFound, "error code")
}
