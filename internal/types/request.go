package types

// RequestType classifies an API request for logging and error context
type RequestType string

const (
	RequestTypeListOrSearch RequestType = "list_or_search"
	RequestTypeGetByID      RequestType = "get_by_id"
	RequestTypeDownload     RequestType = "download"
)

// RequestContext carries per-run request metadata through API calls
type RequestContext struct {
	Profile         string      `json:"profile"`
	InvolvedFileIDs []string    `json:"involvedFileIds"`
	RequestType     RequestType `json:"requestType"`
	TraceID         string      `json:"traceId"`
}
