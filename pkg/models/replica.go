package models

// ReplicaResult summarizes the replication of a source tree to one destination.
type ReplicaResult struct {
	Destination string `json:"destination"`
	Cleared     bool   `json:"cleared"`
	Files       int    `json:"files"`
	Bytes       int64  `json:"bytes"`
	Error       string `json:"error,omitempty"`
}
