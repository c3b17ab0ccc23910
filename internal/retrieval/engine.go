// Package retrieval matches questions against stored memory units and
// assembles the context pack the answer generator works from.
package retrieval

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/heirloom-app/heirloom-go/internal/metrics"
	"github.com/heirloom-app/heirloom-go/internal/models"
)

// KeywordMatch pairs a stored keyword with the question keyword it matched
// and the match score that selected it.
type KeywordMatch struct {
	Keyword         string  `json:"keyword"`
	QuestionKeyword string  `json:"question_keyword"`
	Score           float64 `json:"score"`
}

// KeywordExtraction is what the keyword extractor derives from a question:
// stored keywords to match on, event types to filter by, and the per-keyword
// match detail for diagnostics.
type KeywordExtraction struct {
	Keywords   []string       `json:"keywords"`
	EventTypes []string       `json:"event_types"`
	Matches    []KeywordMatch `json:"matches,omitempty"`
}

// Empty reports whether the extraction found nothing to retrieve on.
func (e KeywordExtraction) Empty() bool {
	return len(e.Keywords) == 0 && len(e.EventTypes) == 0
}

// KeywordExtractor derives the retrieval terms for a question. known lists
// every keyword stored for the profile so the extractor can restrict itself
// to terms that can actually match.
type KeywordExtractor interface {
	ExtractKeywords(ctx context.Context, question string, known []string) (KeywordExtraction, error)
}

// Store is the subset of database operations retrieval needs.
type Store interface {
	ProfileKeywords(ctx context.Context, profileID string) ([]string, error)
	RetrieveMemoryUnits(ctx context.Context, profileID string, keywords, eventTypes []string, limit int) ([]models.RetrievedMemory, error)
}

// URLResolver turns an object key into a URL the caller can open.
type URLResolver interface {
	PublicURL(key string) string
}

// ContextPack is the retrieval result handed to the answer generator.
// Memories keep their asset key and mime type so cited units can be resolved
// back to source URLs after generation.
type ContextPack struct {
	Question string                   `json:"question"`
	Memories []models.RetrievedMemory `json:"memories"`
}

// Empty reports whether the pack holds no memories.
func (p *ContextPack) Empty() bool {
	return p == nil || len(p.Memories) == 0
}

// Engine runs the retrieval pipeline for a profile's question.
type Engine struct {
	store     Store
	extractor KeywordExtractor
	resolver  URLResolver
	topK      int
	logger    *slog.Logger
	metrics   *metrics.Collector
}

// Options configures an Engine.
type Options struct {
	TopK    int
	Logger  *slog.Logger
	Metrics *metrics.Collector
}

// NewEngine creates a retrieval engine.
func NewEngine(store Store, extractor KeywordExtractor, resolver URLResolver, opts Options) *Engine {
	if opts.TopK <= 0 {
		opts.TopK = 8
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Engine{
		store:     store,
		extractor: extractor,
		resolver:  resolver,
		topK:      opts.TopK,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
	}
}

// Retrieve extracts retrieval terms from the question and fetches the top
// matching memory units for the profile. A question that yields no usable
// terms, or terms that match nothing, returns an empty pack rather than an
// error.
func (e *Engine) Retrieve(ctx context.Context, profileID, question string) (*ContextPack, error) {
	start := time.Now()
	defer func() { e.metrics.Observe(metrics.OpRetrieval, time.Since(start)) }()

	known, err := e.store.ProfileKeywords(ctx, profileID)
	if err != nil {
		return nil, err
	}

	extraction, err := e.extractor.ExtractKeywords(ctx, question, known)
	if err != nil {
		return nil, err
	}
	pack := &ContextPack{Question: question}
	if extraction.Empty() {
		e.logger.Debug("no retrieval terms extracted", "profile", profileID)
		return pack, nil
	}

	rows, err := e.store.RetrieveMemoryUnits(ctx, profileID, extraction.Keywords, extraction.EventTypes, e.topK)
	if err != nil {
		return nil, err
	}
	pack.Memories = rows
	e.logger.Debug("retrieved memories",
		"profile", profileID,
		"keywords", extraction.Keywords,
		"event_types", extraction.EventTypes,
		"count", len(pack.Memories))
	return pack, nil
}

// ResolveSourceURLs maps the cited memory ids back to the URLs of their
// backing media objects. Uncited memories, empty asset keys, and keys that
// resolve to nothing are skipped; duplicates collapse; the result is sorted
// for stable output.
func (e *Engine) ResolveSourceURLs(pack *ContextPack, citedIDs []string) []string {
	cited := make(map[string]struct{}, len(citedIDs))
	for _, id := range citedIDs {
		cited[id] = struct{}{}
	}

	seen := make(map[string]struct{})
	urls := []string{}
	if pack == nil {
		return urls
	}
	for _, memory := range pack.Memories {
		if _, ok := cited[memory.MemoryUnitID]; !ok {
			continue
		}
		if memory.AssetKey == "" {
			continue
		}
		url := e.resolver.PublicURL(memory.AssetKey)
		if url == "" {
			continue
		}
		if _, dup := seen[url]; dup {
			continue
		}
		seen[url] = struct{}{}
		urls = append(urls, url)
	}
	sort.Strings(urls)
	return urls
}
