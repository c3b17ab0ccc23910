package extract

import (
	"math"

	"github.com/heirloom-app/heirloom-go/internal/models"
)

// The non-text extractors emit placeholder content: real image analysis and
// audio/video transcription are handled elsewhere, and these units exist so
// the asset is represented in retrieval from the moment it is ingested.

func (s *Set) extractImage(asset *models.MediaAsset, _ []byte) (Result, error) {
	desc := "Image content not analyzed."
	return Result{
		Units: []Unit{{
			Title:       "Image Memory",
			Summary:     "Image uploaded.",
			Description: &desc,
			EventType:   "Other",
			Places:      []string{"unknown"},
			Dates:       []string{"unspecified"},
			Keywords:    []string{},
		}},
		Evidence: []Evidence{{
			EvidenceText: "Visual evidence not analyzed.",
		}},
	}, nil
}

func (s *Set) extractAudio(asset *models.MediaAsset, _ []byte) (Result, error) {
	start, end, err := segmentSpan(asset)
	if err != nil {
		return Result{}, err
	}
	desc := "Audio transcript not analyzed."
	return Result{
		Units: []Unit{{
			StartTimeMs: &start,
			EndTimeMs:   &end,
			Title:       "Audio Segment 1",
			Summary:     "Audio uploaded.",
			Description: &desc,
			EventType:   "Other",
			Places:      []string{"unknown"},
			Dates:       []string{"unspecified"},
			Keywords:    []string{},
		}},
		Evidence: []Evidence{{
			StartTimeMs:  &start,
			EndTimeMs:    &end,
			EvidenceText: "Transcript not available.",
		}},
	}, nil
}

func (s *Set) extractVideo(asset *models.MediaAsset, _ []byte) (Result, error) {
	start, end, err := segmentSpan(asset)
	if err != nil {
		return Result{}, err
	}
	desc := "Video content not analyzed."
	return Result{
		Units: []Unit{{
			StartTimeMs: &start,
			EndTimeMs:   &end,
			Title:       "Video Segment 1",
			Summary:     "Video uploaded.",
			Description: &desc,
			EventType:   "Other",
			Places:      []string{"unknown"},
			Dates:       []string{"unspecified"},
			Keywords:    []string{},
		}},
		Evidence: []Evidence{{
			StartTimeMs:  &start,
			EndTimeMs:    &end,
			EvidenceText: "Transcript/visual evidence not available.",
		}},
	}, nil
}

// segmentSpan converts the asset's duration to a [0, ms] range. The duration
// is floored at 1 ms so the range is never degenerate.
func segmentSpan(asset *models.MediaAsset) (start, end int64, err error) {
	if asset.DurationSeconds == nil {
		return 0, 0, ErrMissingDuration
	}
	ms := int64(math.Round(*asset.DurationSeconds * 1000))
	if ms < 1 {
		ms = 1
	}
	return 0, ms, nil
}
