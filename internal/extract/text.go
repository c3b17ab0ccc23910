package extract

import (
	"fmt"
	"strings"

	"github.com/heirloom-app/heirloom-go/internal/models"
)

const emptyPlaceholder = "(empty)"

// extractText decodes the object bytes as UTF-8 (invalid sequences replaced)
// and splits the content into fixed-size character windows, one memory unit
// per window. Empty content still yields exactly one window containing the
// empty string.
func (s *Set) extractText(asset *models.MediaAsset, content []byte) (Result, error) {
	text := strings.ToValidUTF8(string(content), "�")
	chunks := chunkText(text, s.chunkSize)

	res := Result{
		Units:    make([]Unit, 0, len(chunks)),
		Evidence: make([]Evidence, 0, len(chunks)),
	}
	for i, chunk := range chunks {
		res.Units = append(res.Units, Unit{
			Title:       fmt.Sprintf("Text Chunk %d", i+1),
			Summary:     headOrPlaceholder(chunk, s.summaryLen),
			Description: optionalTrimmed(chunk),
			EventType:   "Other",
			Places:      []string{"unknown"},
			Dates:       []string{"unspecified"},
			Keywords:    []string{},
		})
		res.Evidence = append(res.Evidence, Evidence{
			EvidenceText: headOrPlaceholder(chunk, s.evidenceLen),
		})
	}
	return res, nil
}

// chunkText splits content into windows of size characters (code points).
// The last window may be shorter; empty content yields a single empty window.
func chunkText(content string, size int) []string {
	if content == "" {
		return []string{""}
	}
	runes := []rune(content)
	chunks := make([]string, 0, (len(runes)+size-1)/size)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}

// headOrPlaceholder returns the first n characters of the chunk, trimmed of
// whitespace, or the literal "(empty)" when nothing remains.
func headOrPlaceholder(chunk string, n int) string {
	runes := []rune(chunk)
	if len(runes) > n {
		runes = runes[:n]
	}
	head := strings.TrimSpace(string(runes))
	if head == "" {
		return emptyPlaceholder
	}
	return head
}

// optionalTrimmed returns the trimmed chunk, or nil when it trims to nothing.
func optionalTrimmed(chunk string) *string {
	trimmed := strings.TrimSpace(chunk)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
