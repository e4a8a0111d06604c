package models

import (
	"time"
)

// ExportVersion is written into every bundle
const ExportVersion = "1.0.0"

// ExportBundle is the full-site export/import document
type ExportBundle struct {
	ContentTypes []ContentType `json:"contentTypes"`
	Components   []Component   `json:"components"`
	Entries      []Entry       `json:"entries"`
	MediaFiles   []MediaFile   `json:"mediaFiles"`
	Settings     Settings      `json:"settings"`
	Version      string        `json:"version"`
	ExportedAt   time.Time     `json:"exportedAt"`
}

// ImportResult summarises a line-oriented entry import
type ImportResult struct {
	Total   int         `json:"total"`
	Created int         `json:"created"`
	Failed  int         `json:"failed"`
	Errors  []LineError `json:"errors,omitempty"`
}

// LineError represents a single rejected import line
type LineError struct {
	Line    int    `json:"line"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// ReconcileReport lists the counters that were repaired
type ReconcileReport struct {
	ComponentsFixed   int `json:"componentsFixed"`
	ContentTypesFixed int `json:"contentTypesFixed"`
}
