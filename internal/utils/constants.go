package utils

import "strings"

// OAuth scopes
const ScopeReadonly = "https://www.googleapis.com/auth/drive.readonly"

// ScopesMirror is what a one-way download mirror needs
var ScopesMirror = []string{ScopeReadonly}

// Retry configuration
const (
	DefaultMaxRetries   = 3
	DefaultRetryDelayMs = 1000
	MaxRetryDelayMs     = 32000
)

// Listing and transfer defaults
const (
	DefaultPageSize           = 1000
	DefaultProgressIntervalMs = 1000
)

// Schema version
const SchemaVersion = "1.0"

// Google Drive MIME types
const (
	MimeTypeFolder       = "application/vnd.google-apps.folder"
	MimeTypeGooglePrefix = "application/vnd.google-apps."
)

// FolderMarker is the suffix that identifies a directory MIME type
const FolderMarker = "folder"

// IsWorkspaceMimeType reports whether mimeType is a Google-native type with no
// binary content. Folders are not included.
func IsWorkspaceMimeType(mimeType string) bool {
	return strings.HasPrefix(mimeType, MimeTypeGooglePrefix) && mimeType != MimeTypeFolder
}
