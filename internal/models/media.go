package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// MediaAsset represents an uploaded media object. The file_name field doubles
// as the object-store key. Assets are immutable once uploaded; the worker
// only reads them.
type MediaAsset struct {
	ID              surrealmodels.RecordID `json:"id"`
	ProfileID       string                 `json:"profile_id"`
	FileName        string                 `json:"file_name"`
	MimeType        string                 `json:"mime_type"`
	Bytes           int64                  `json:"bytes"`
	DurationSeconds *float64               `json:"duration_seconds,omitempty"`
	Created         time.Time              `json:"created"`
}

// MediaAssetInput is the input structure for creating media assets.
type MediaAssetInput struct {
	ProfileID       string   `json:"profile_id"`
	FileName        string   `json:"file_name"`
	MimeType        string   `json:"mime_type"`
	Bytes           int64    `json:"bytes"`
	DurationSeconds *float64 `json:"duration_seconds,omitempty"`
}
