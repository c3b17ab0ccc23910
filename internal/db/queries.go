package db

import (
	"context"
	"fmt"
	"time"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/heirloom-app/heirloom-go/internal/models"
)

// NextQueuedJob returns the oldest queued extract job, or nil when the queue
// is empty. Ordering is strictly first-in-first-out.
func (c *Client) NextQueuedJob(ctx context.Context) (*models.Job, error) {
	defer c.observe(time.Now())
	results, err := surrealdb.Query[[]models.Job](ctx, c.db, `
		SELECT * FROM job
		WHERE status = 'queued' AND job_type = $type
		ORDER BY created ASC
		LIMIT 1
	`, map[string]any{"type": models.JobTypeExtract})
	if err != nil {
		return nil, fmt.Errorf("next queued job: %w", err)
	}
	return firstRow(results), nil
}

// ClaimJob atomically transitions a queued job to running, incrementing its
// attempt counter. The update is filtered on both id and status, so among
// concurrent claimants exactly one receives the updated row back; the rest
// get nil, meaning the claim was lost (not an error).
func (c *Client) ClaimJob(ctx context.Context, id surrealmodels.RecordID) (*models.Job, error) {
	defer c.observe(time.Now())
	results, err := surrealdb.Query[[]models.Job](ctx, c.db, `
		UPDATE job SET
			status = 'running',
			attempt += 1,
			started_at = time::now()
		WHERE id = $id AND status = 'queued'
		RETURN AFTER
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}
	return firstRow(results), nil
}

// CompleteJob marks a job done and clears any previous error detail.
func (c *Client) CompleteJob(ctx context.Context, id surrealmodels.RecordID) error {
	defer c.observe(time.Now())
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE job SET
			status = 'done',
			error_detail = NONE,
			completed_at = time::now()
		WHERE id = $id
	`, map[string]any{"id": id})
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	return nil
}

// FailJob marks a job failed with a human-readable detail. Failed jobs are
// terminal; only RequeueJob moves them back to queued.
func (c *Client) FailJob(ctx context.Context, id surrealmodels.RecordID, detail string) error {
	defer c.observe(time.Now())
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE job SET
			status = 'failed',
			error_detail = $detail,
			completed_at = time::now()
		WHERE id = $id
	`, map[string]any{"id": id, "detail": detail})
	if err != nil {
		return fmt.Errorf("fail job: %w", err)
	}
	return nil
}

// RequeueJob resets a failed job to queued. Returns nil when the job was not
// in failed state. The attempt counter is left as is; it increments again on
// the next successful claim.
func (c *Client) RequeueJob(ctx context.Context, id surrealmodels.RecordID) (*models.Job, error) {
	defer c.observe(time.Now())
	results, err := surrealdb.Query[[]models.Job](ctx, c.db, `
		UPDATE job SET
			status = 'queued',
			error_detail = NONE,
			started_at = NONE,
			completed_at = NONE
		WHERE id = $id AND status = 'failed'
		RETURN AFTER
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("requeue job: %w", err)
	}
	return firstRow(results), nil
}

// GetJob retrieves a job by its bare ID. Returns nil if not found.
func (c *Client) GetJob(ctx context.Context, id string) (*models.Job, error) {
	defer c.observe(time.Now())
	results, err := surrealdb.Query[[]models.Job](ctx, c.db, `
		SELECT * FROM type::record("job", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return firstRow(results), nil
}

// CreateJob enqueues a new extract job for a media asset.
func (c *Client) CreateJob(ctx context.Context, assetID surrealmodels.RecordID) (*models.Job, error) {
	defer c.observe(time.Now())
	results, err := surrealdb.Query[[]models.Job](ctx, c.db, `
		CREATE job SET
			job_type = $type,
			status = 'queued',
			media_asset_id = $asset,
			attempt = 0
	`, map[string]any{"type": models.JobTypeExtract, "asset": assetID})
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	job := firstRow(results)
	if job == nil {
		return nil, fmt.Errorf("create job: no row returned")
	}
	return job, nil
}

// CreateMediaAsset persists a new media asset row.
func (c *Client) CreateMediaAsset(ctx context.Context, in models.MediaAssetInput) (*models.MediaAsset, error) {
	defer c.observe(time.Now())
	results, err := surrealdb.Query[[]models.MediaAsset](ctx, c.db, `
		CREATE media_asset CONTENT $asset
	`, map[string]any{"asset": in})
	if err != nil {
		return nil, fmt.Errorf("create media asset: %w", err)
	}
	asset := firstRow(results)
	if asset == nil {
		return nil, fmt.Errorf("create media asset: no row returned")
	}
	return asset, nil
}

// GetMediaAsset retrieves a media asset by record id. Returns nil if missing.
func (c *Client) GetMediaAsset(ctx context.Context, id surrealmodels.RecordID) (*models.MediaAsset, error) {
	defer c.observe(time.Now())
	results, err := surrealdb.Query[[]models.MediaAsset](ctx, c.db, `
		SELECT * FROM $id
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get media asset: %w", err)
	}
	return firstRow(results), nil
}

// MemoryUnitsByAsset returns all memory units persisted for one asset, in
// insertion order. Used by the dedup layer.
func (c *Client) MemoryUnitsByAsset(ctx context.Context, assetID surrealmodels.RecordID) ([]models.MemoryUnit, error) {
	defer c.observe(time.Now())
	results, err := surrealdb.Query[[]models.MemoryUnit](ctx, c.db, `
		SELECT * FROM memory_unit
		WHERE media_asset_id = $asset
		ORDER BY created ASC
	`, map[string]any{"asset": assetID})
	if err != nil {
		return nil, fmt.Errorf("memory units by asset: %w", err)
	}
	return allRows(results), nil
}

// MemoryUnitsByProfile returns a profile's memory units, newest first.
func (c *Client) MemoryUnitsByProfile(ctx context.Context, profileID string, limit int) ([]models.MemoryUnit, error) {
	defer c.observe(time.Now())
	results, err := surrealdb.Query[[]models.MemoryUnit](ctx, c.db, `
		SELECT * FROM memory_unit
		WHERE profile_id = $profile
		ORDER BY created DESC
		LIMIT $limit
	`, map[string]any{"profile": profileID, "limit": limit})
	if err != nil {
		return nil, fmt.Errorf("memory units by profile: %w", err)
	}
	return allRows(results), nil
}

// CreateMemoryUnit persists a new memory unit and returns it with its
// generated id.
func (c *Client) CreateMemoryUnit(ctx context.Context, in models.MemoryUnitInput) (*models.MemoryUnit, error) {
	defer c.observe(time.Now())
	if in.Places == nil {
		in.Places = []string{}
	}
	if in.Dates == nil {
		in.Dates = []string{}
	}
	if in.Keywords == nil {
		in.Keywords = []string{}
	}
	results, err := surrealdb.Query[[]models.MemoryUnit](ctx, c.db, `
		CREATE memory_unit CONTENT $unit
	`, map[string]any{"unit": in})
	if err != nil {
		return nil, fmt.Errorf("create memory unit: %w", err)
	}
	unit := firstRow(results)
	if unit == nil {
		return nil, fmt.Errorf("create memory unit: no row returned")
	}
	return unit, nil
}

// CreateCitation persists a citation bound to a memory unit.
func (c *Client) CreateCitation(ctx context.Context, in models.CitationInput) (*models.Citation, error) {
	defer c.observe(time.Now())
	results, err := surrealdb.Query[[]models.Citation](ctx, c.db, `
		CREATE citation CONTENT $citation
	`, map[string]any{"citation": in})
	if err != nil {
		return nil, fmt.Errorf("create citation: %w", err)
	}
	cit := firstRow(results)
	if cit == nil {
		return nil, fmt.Errorf("create citation: no row returned")
	}
	return cit, nil
}

// HasCitation reports whether a memory unit already has a citation.
func (c *Client) HasCitation(ctx context.Context, unitID surrealmodels.RecordID) (bool, error) {
	defer c.observe(time.Now())
	type countRow struct {
		C int `json:"c"`
	}
	results, err := surrealdb.Query[[]countRow](ctx, c.db, `
		SELECT count() AS c FROM citation WHERE memory_unit_id = $unit GROUP ALL
	`, map[string]any{"unit": unitID})
	if err != nil {
		return false, fmt.Errorf("has citation: %w", err)
	}
	row := firstRow(results)
	return row != nil && row.C > 0, nil
}

// RetrieveMemoryUnits returns a profile's memory units whose keywords or
// event type intersect the extracted keywords/event-types, joined with the
// backing asset's key and mime type, newest first, limited to topK.
func (c *Client) RetrieveMemoryUnits(ctx context.Context, profileID string, keywords, eventTypes []string, topK int) ([]models.RetrievedMemory, error) {
	defer c.observe(time.Now())
	if keywords == nil {
		keywords = []string{}
	}
	if eventTypes == nil {
		eventTypes = []string{}
	}
	results, err := surrealdb.Query[[]models.RetrievedMemory](ctx, c.db, `
		SELECT
			<string>id AS memory_unit_id,
			title, summary, description, event_type,
			places, dates, keywords,
			media_asset_id.file_name AS asset_key,
			media_asset_id.mime_type AS asset_mime_type
		FROM memory_unit
		WHERE profile_id = $profile
			AND (keywords CONTAINSANY $keywords OR event_type INSIDE $event_types)
		ORDER BY created DESC
		LIMIT $limit
	`, map[string]any{
		"profile":     profileID,
		"keywords":    keywords,
		"event_types": eventTypes,
		"limit":       topK,
	})
	if err != nil {
		return nil, fmt.Errorf("retrieve memory units: %w", err)
	}
	return allRows(results), nil
}

// ProfileKeywords returns the distinct keyword vocabulary across a profile's
// memory units, used to bias question keyword extraction.
func (c *Client) ProfileKeywords(ctx context.Context, profileID string) ([]string, error) {
	defer c.observe(time.Now())
	results, err := surrealdb.Query[[]string](ctx, c.db, `
		RETURN array::distinct(array::flatten((
			SELECT VALUE keywords FROM memory_unit WHERE profile_id = $profile
		)))
	`, map[string]any{"profile": profileID})
	if err != nil {
		return nil, fmt.Errorf("profile keywords: %w", err)
	}
	if results == nil || len(*results) == 0 {
		return []string{}, nil
	}
	kw := (*results)[0].Result
	if kw == nil {
		kw = []string{}
	}
	return kw, nil
}

// firstRow unwraps the first row of the first statement result, or nil.
func firstRow[T any](results *[]surrealdb.QueryResult[[]T]) *T {
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil
	}
	return &(*results)[0].Result[0]
}

// allRows unwraps all rows of the first statement result.
func allRows[T any](results *[]surrealdb.QueryResult[[]T]) []T {
	if results == nil || len(*results) == 0 {
		return []T{}
	}
	rows := (*results)[0].Result
	if rows == nil {
		return []T{}
	}
	return rows
}
