package worker

import (
	"context"
	"fmt"

	"github.com/heirloom-app/heirloom-go/internal/extract"
	"github.com/heirloom-app/heirloom-go/internal/models"
)

// unitKey identifies a memory unit within one asset for dedup purposes.
// Timed media includes the segment span so re-segmented audio/video never
// collides with prior runs on title alone; for text and images the title
// already carries the position.
type unitKey struct {
	start int64
	end   int64
	timed bool
	title string
}

func keyFor(family extract.Family, title string, startMs, endMs *int64) unitKey {
	k := unitKey{title: title}
	if family == extract.FamilyAudio || family == extract.FamilyVideo {
		k.timed = true
		if startMs != nil {
			k.start = *startMs
		}
		if endMs != nil {
			k.end = *endMs
		}
	}
	return k
}

// persistResults writes extraction output so that re-running a job is safe:
// units already present for the asset are skipped, and each unit that is
// missing its citation gets one backfilled from the matching evidence entry.
// Returns counts of newly inserted and pre-existing units.
func (w *Worker) persistResults(ctx context.Context, asset *models.MediaAsset, result extract.Result) (inserted, existing int, err error) {
	family := extract.ParseFamily(asset.MimeType)

	prior, err := w.store.MemoryUnitsByAsset(ctx, asset.ID)
	if err != nil {
		return 0, 0, fmt.Errorf("list prior units: %w", err)
	}
	seen := make(map[unitKey]*models.MemoryUnit, len(prior))
	for i := range prior {
		u := &prior[i]
		seen[keyFor(family, u.Title, u.StartTimeMs, u.EndTimeMs)] = u
	}

	for i, unit := range result.Units {
		key := keyFor(family, unit.Title, unit.StartTimeMs, unit.EndTimeMs)

		stored, ok := seen[key]
		if !ok {
			created, cerr := w.store.CreateMemoryUnit(ctx, models.MemoryUnitInput{
				ProfileID:    asset.ProfileID,
				MediaAssetID: asset.ID,
				StartTimeMs:  unit.StartTimeMs,
				EndTimeMs:    unit.EndTimeMs,
				Title:        unit.Title,
				Summary:      unit.Summary,
				Description:  unit.Description,
				EventType:    unit.EventType,
				Places:       unit.Places,
				Dates:        unit.Dates,
				Keywords:     unit.Keywords,
			})
			if cerr != nil {
				return inserted, existing, fmt.Errorf("create memory unit %q: %w", unit.Title, cerr)
			}
			stored = created
			seen[key] = created
			inserted++
		} else {
			existing++
		}

		if i >= len(result.Evidence) {
			continue
		}
		if err := w.ensureCitation(ctx, asset, stored, result.Evidence[i]); err != nil {
			return inserted, existing, err
		}
	}
	return inserted, existing, nil
}

// ensureCitation backfills the unit's citation when absent. Units written by
// an earlier interrupted run may exist without one.
func (w *Worker) ensureCitation(ctx context.Context, asset *models.MediaAsset, unit *models.MemoryUnit, ev extract.Evidence) error {
	has, err := w.store.HasCitation(ctx, unit.ID)
	if err != nil {
		return fmt.Errorf("check citation: %w", err)
	}
	if has {
		return nil
	}
	_, err = w.store.CreateCitation(ctx, models.CitationInput{
		MemoryUnitID: unit.ID,
		MimeType:     asset.MimeType,
		StartTimeMs:  ev.StartTimeMs,
		EndTimeMs:    ev.EndTimeMs,
		EvidenceText: ev.EvidenceText,
	})
	if err != nil {
		return fmt.Errorf("create citation: %w", err)
	}
	return nil
}
