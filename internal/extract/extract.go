// Package extract turns media assets into candidate memory units with
// matching citation evidence. Extractors are pure: they touch neither the
// store nor the object store; the text extractor receives its decoded bytes
// from the caller.
package extract

import (
	"errors"
	"strings"

	"github.com/heirloom-app/heirloom-go/internal/models"
)

// ErrMissingDuration is returned when an audio/video asset lacks the
// duration_seconds it needs for a time-ranged segment.
var ErrMissingDuration = errors.New("missing duration_seconds")

// Family is the mime-type family an asset dispatches on.
type Family string

const (
	FamilyText    Family = "text"
	FamilyImage   Family = "image"
	FamilyAudio   Family = "audio"
	FamilyVideo   Family = "video"
	FamilyUnknown Family = "unknown"
)

// ParseFamily maps a mime type to its family by prefix.
func ParseFamily(mimeType string) Family {
	switch {
	case strings.HasPrefix(mimeType, "text/"):
		return FamilyText
	case strings.HasPrefix(mimeType, "image/"):
		return FamilyImage
	case strings.HasPrefix(mimeType, "audio/"):
		return FamilyAudio
	case strings.HasPrefix(mimeType, "video/"):
		return FamilyVideo
	default:
		return FamilyUnknown
	}
}

// supportedMimeTypes is the closed set of mime types the worker accepts.
var supportedMimeTypes = map[string]struct{}{
	"text/plain":      {},
	"text/markdown":   {},
	"text/csv":        {},
	"image/jpeg":      {},
	"image/png":       {},
	"image/webp":      {},
	"image/heic":      {},
	"audio/mpeg":      {},
	"audio/mp4":       {},
	"audio/wav":       {},
	"audio/x-m4a":     {},
	"video/mp4":       {},
	"video/quicktime": {},
	"video/webm":      {},
}

// IsSupported reports whether a mime type is in the supported set.
func IsSupported(mimeType string) bool {
	_, ok := supportedMimeTypes[mimeType]
	return ok
}

// Unit is a memory unit candidate, not yet persisted.
type Unit struct {
	StartTimeMs *int64
	EndTimeMs   *int64
	Title       string
	Summary     string
	Description *string
	EventType   string
	Places      []string
	Dates       []string
	Keywords    []string
}

// Evidence is the citation candidate paired 1:1 with the unit at the same
// index (same real-world segment).
type Evidence struct {
	StartTimeMs  *int64
	EndTimeMs    *int64
	EvidenceText string
}

// Result is an ordered list of (unit, evidence) pairs.
type Result struct {
	Units    []Unit
	Evidence []Evidence
}

type extractorFunc func(s *Set, asset *models.MediaAsset, content []byte) (Result, error)

// Set dispatches assets to the extractor for their mime family through a
// lookup table. Unrecognized families yield an explicit empty result.
type Set struct {
	chunkSize   int
	summaryLen  int
	evidenceLen int
	table       map[Family]extractorFunc
}

// NewSet creates an extractor set with the given text windowing settings.
func NewSet(chunkSize, summaryLen, evidenceLen int) *Set {
	s := &Set{
		chunkSize:   chunkSize,
		summaryLen:  summaryLen,
		evidenceLen: evidenceLen,
	}
	s.table = map[Family]extractorFunc{
		FamilyText:  (*Set).extractText,
		FamilyImage: (*Set).extractImage,
		FamilyAudio: (*Set).extractAudio,
		FamilyVideo: (*Set).extractVideo,
	}
	return s
}

// Extract runs the extractor matching the asset's mime family. The content
// argument carries the raw object bytes and is only consumed for text assets.
func (s *Set) Extract(asset *models.MediaAsset, content []byte) (Result, error) {
	fn, ok := s.table[ParseFamily(asset.MimeType)]
	if !ok {
		return Result{}, nil
	}
	return fn(s, asset, content)
}
