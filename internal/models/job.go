// Package models defines data structures for the Heirloom memory store.
package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// JobStatus represents the lifecycle state of a persisted job.
type JobStatus string

const (
	JobStatusQueued  JobStatus = "queued"
	JobStatusRunning JobStatus = "running"
	JobStatusDone    JobStatus = "done"
	JobStatusFailed  JobStatus = "failed"
)

// JobTypeExtract is the only job type the worker currently processes.
const JobTypeExtract = "extract"

// Job represents a queued unit of extraction work referencing one media asset.
// Jobs transition queued -> running via a conditional claim, then to a
// terminal done/failed status. A failed job stays failed until an operator
// requeues it.
type Job struct {
	ID           surrealmodels.RecordID `json:"id"`
	JobType      string                 `json:"job_type"`
	Status       JobStatus              `json:"status"`
	MediaAssetID surrealmodels.RecordID `json:"media_asset_id"`
	Attempt      int                    `json:"attempt"`
	ErrorDetail  *string                `json:"error_detail,omitempty"`
	Created      time.Time              `json:"created"`
	StartedAt    *time.Time             `json:"started_at,omitempty"`
	CompletedAt  *time.Time             `json:"completed_at,omitempty"`
}
