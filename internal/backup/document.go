// Package backup produces settings export artifacts and owns the recurring export task.
package backup

import (
	"time"

	pkgconfig "github.com/smykla-labs/klinik/pkg/config"
)

// Document is the exported settings artifact.
type Document struct {
	// ID is the unique identifier for this export.
	ID string `json:"id"`

	// Timestamp is when the export was produced.
	Timestamp time.Time `json:"timestamp"`

	// SystemName is the clinic system name at export time.
	SystemName string `json:"systemName"`

	// Version is the settings version at export time.
	Version string `json:"version"`

	// Checksum is the SHA-256 of the encoded Data. Exports with the same checksum are
	// deduplicated.
	Checksum string `json:"checksum"`

	// Data is the sanitized settings snapshot.
	Data pkgconfig.Config `json:"data"`
}

// Artifact summarizes an export file for listing.
type Artifact struct {
	// ID is the unique identifier of the export.
	ID string `json:"id"`

	// Timestamp is when the export was produced.
	Timestamp time.Time `json:"timestamp"`

	// SystemName is the clinic system name at export time.
	SystemName string `json:"systemName"`

	// Checksum is the content hash of the exported data.
	Checksum string `json:"checksum"`

	// Path is the absolute path of the export file.
	Path string `json:"path"`

	// Size is the size of the export file in bytes.
	Size int64 `json:"size"`
}
