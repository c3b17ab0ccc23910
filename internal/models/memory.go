package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// MemoryUnit is a structured fact/segment extracted from a media asset, the
// atom of retrieval. Units are created only by the worker's persistence step
// and never mutated or deleted afterward.
type MemoryUnit struct {
	ID           surrealmodels.RecordID `json:"id"`
	ProfileID    string                 `json:"profile_id"`
	MediaAssetID surrealmodels.RecordID `json:"media_asset_id"`
	StartTimeMs  *int64                 `json:"start_time_ms,omitempty"`
	EndTimeMs    *int64                 `json:"end_time_ms,omitempty"`
	Title        string                 `json:"title"`
	Summary      string                 `json:"summary"`
	Description  *string                `json:"description,omitempty"`
	EventType    string                 `json:"event_type"`
	Places       []string               `json:"places"`
	Dates        []string               `json:"dates"`
	Keywords     []string               `json:"keywords"`
	Created      time.Time              `json:"created"`
}

// MemoryUnitInput is the input structure for creating memory units.
type MemoryUnitInput struct {
	ProfileID    string                 `json:"profile_id"`
	MediaAssetID surrealmodels.RecordID `json:"media_asset_id"`
	StartTimeMs  *int64                 `json:"start_time_ms,omitempty"`
	EndTimeMs    *int64                 `json:"end_time_ms,omitempty"`
	Title        string                 `json:"title"`
	Summary      string                 `json:"summary"`
	Description  *string                `json:"description,omitempty"`
	EventType    string                 `json:"event_type"`
	Places       []string               `json:"places"`
	Dates        []string               `json:"dates"`
	Keywords     []string               `json:"keywords"`
}

// Citation is an evidence record tied 1:1 to a memory unit, used to ground
// and attribute answers. At most one citation exists per unit, enforced by an
// existence check before insert.
type Citation struct {
	ID           surrealmodels.RecordID `json:"id"`
	MemoryUnitID surrealmodels.RecordID `json:"memory_unit_id"`
	MimeType     string                 `json:"mime_type"`
	StartTimeMs  *int64                 `json:"start_time_ms,omitempty"`
	EndTimeMs    *int64                 `json:"end_time_ms,omitempty"`
	EvidenceText string                 `json:"evidence_text"`
	Created      time.Time              `json:"created"`
}

// CitationInput is the input structure for creating citations.
type CitationInput struct {
	MemoryUnitID surrealmodels.RecordID `json:"memory_unit_id"`
	MimeType     string                 `json:"mime_type"`
	StartTimeMs  *int64                 `json:"start_time_ms,omitempty"`
	EndTimeMs    *int64                 `json:"end_time_ms,omitempty"`
	EvidenceText string                 `json:"evidence_text"`
}

// RetrievedMemory is a memory unit joined with its backing asset, as returned
// by the retrieval query. AssetKey and AssetMimeType are carried through the
// context pack so cited units can be resolved back to source URLs.
type RetrievedMemory struct {
	MemoryUnitID  string   `json:"memory_unit_id"`
	Title         string   `json:"title"`
	Summary       string   `json:"summary"`
	Description   *string  `json:"description,omitempty"`
	EventType     string   `json:"event_type"`
	Places        []string `json:"places"`
	Dates         []string `json:"dates"`
	Keywords      []string `json:"keywords"`
	AssetKey      string   `json:"asset_key"`
	AssetMimeType string   `json:"asset_mime_type"`
}
