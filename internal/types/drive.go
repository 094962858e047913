package types

// DriveFile represents a Google Drive file as seen by the mirror
type DriveFile struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	MimeType     string   `json:"mimeType"`
	Size         int64    `json:"size,omitempty"`
	MD5Checksum  string   `json:"md5Checksum,omitempty"`
	ModifiedTime string   `json:"modifiedTime,omitempty"`
	Parents      []string `json:"parents,omitempty"`
	Trashed      bool     `json:"trashed,omitempty"`
}

// FileListResult represents one page of a files.list response
type FileListResult struct {
	Files         []*DriveFile `json:"files"`
	NextPageToken string       `json:"nextPageToken,omitempty"`
}
