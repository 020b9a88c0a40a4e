package model

import "time"

// SavedView is a persisted ViewSpec
type SavedView struct {
	ID        string    `json:"id"`
	Spec      ViewSpec  `json:"spec"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BuildStats summarizes one rebuild of a pivot view
type BuildStats struct {
	RecordsIn  int           `json:"records_in"`
	RecordsOut int           `json:"records_out"` // after filtering
	Nodes      int           `json:"nodes"`
	Leaves     int           `json:"leaves"`
	Coercions  int           `json:"coercions"` // non-numeric values folded as 0
	Duration   time.Duration `json:"duration"`
	BuiltAt    time.Time     `json:"built_at"`
}

// ExportResult represents the result of an export operation
type ExportResult struct {
	Type      string    `json:"type"` // "csv"
	Path      string    `json:"path"` // file path
	URL       string    `json:"url,omitempty"`
	RowCount  int       `json:"row_count"`
	Bytes     int64     `json:"bytes"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
