package models

// FileID is the identifier of one file, as reported by `c4 id -json` and the HTTP service.
type FileID struct {
	Path  string `json:"path"`
	ID    string `json:"id,omitempty"`
	Size  int64  `json:"size"`
	Error string `json:"error,omitempty"`
}

// IDResponse is returned for an uploaded body.
type IDResponse struct {
	ID   string `json:"id"`
	Size int64  `json:"size"`
}

// ValidateResponse reports whether a string is a canonical C4 ID.
type ValidateResponse struct {
	ID    string `json:"id"`
	Valid bool   `json:"valid"`
}

// TreeResponse lists the identifiers of every file under the served root.
type TreeResponse struct {
	Root   string   `json:"root"`
	Files  []FileID `json:"files"`
	Failed int      `json:"failed"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StorageInfo is disk usage of the filesystem holding the served root.
type StorageInfo struct {
	Total     uint64 `json:"total"`
	Used      uint64 `json:"used"`
	Available uint64 `json:"available"`
}

// StatusResponse describes a running ID server.
type StatusResponse struct {
	Version       string      `json:"version"`
	Root          string      `json:"root"`
	Uptime        string      `json:"uptime"`
	UptimeSeconds int64       `json:"uptime_seconds"`
	CachedIDs     int         `json:"cached_ids"`
	Storage       StorageInfo `json:"storage"`
}
