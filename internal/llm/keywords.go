package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/heirloom-app/heirloom-go/internal/retrieval"
)

// EventTypes is the closed vocabulary memory units are tagged with.
var EventTypes = []string{
	"Milestone", "Travel", "Family", "Work", "Holiday", "Everyday", "Other",
}

const keywordSystemPrompt = `You extract retrieval terms from a question about someone's memories.
You are given the keywords that exist in the memory store; only return keywords from that list.
Score each match from 0 (unrelated) to 10 (exact).
Return JSON only with keys: keywords, event_types, keyword_matches.`

const keywordUserPrompt = `Question: %s

Known keywords: %s
Known event types: %s

Return a JSON object with:
- keywords: list of matching known keywords
- event_types: list of matching known event types
- keyword_matches: list of {keyword, question_keyword, score}`

// KeywordExtractor derives retrieval terms with the model when one is
// configured, otherwise with a deterministic lexical match against the
// profile's known vocabulary. Unparseable model output also falls back, so a
// flaky model never breaks retrieval.
type KeywordExtractor struct {
	gen    Generator
	logger *slog.Logger
}

// NewKeywordExtractor creates a keyword extractor. model may be nil.
func NewKeywordExtractor(model *Model, logger *slog.Logger) *KeywordExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	e := &KeywordExtractor{logger: logger}
	if model != nil {
		e.gen = model
	}
	return e
}

var _ retrieval.KeywordExtractor = (*KeywordExtractor)(nil)

// ExtractKeywords implements retrieval.KeywordExtractor.
func (e *KeywordExtractor) ExtractKeywords(ctx context.Context, question string, known []string) (retrieval.KeywordExtraction, error) {
	if e.gen == nil {
		return lexicalExtract(question, known), nil
	}

	raw, err := e.gen.GenerateWithSystem(ctx, keywordSystemPrompt,
		fmt.Sprintf(keywordUserPrompt, question, strings.Join(known, ", "), strings.Join(EventTypes, ", ")))
	if err != nil {
		e.logger.Warn("keyword extraction failed, falling back to lexical match", "error", err)
		return lexicalExtract(question, known), nil
	}

	var parsed struct {
		Keywords       []string                 `json:"keywords"`
		EventTypes     []string                 `json:"event_types"`
		KeywordMatches []retrieval.KeywordMatch `json:"keyword_matches"`
	}
	body, ok := extractJSON(raw)
	if !ok || json.Unmarshal(body, &parsed) != nil {
		e.logger.Warn("keyword extraction returned unparseable output, falling back to lexical match")
		return lexicalExtract(question, known), nil
	}

	// The model is told to stay inside the known vocabularies; enforce it.
	return retrieval.KeywordExtraction{
		Keywords:   intersectFold(parsed.Keywords, known),
		EventTypes: intersectFold(parsed.EventTypes, EventTypes),
		Matches:    parsed.KeywordMatches,
	}, nil
}

// intersectFold keeps the values of got that appear in allowed, compared
// case-insensitively, normalized to allowed's spelling and order.
func intersectFold(got, allowed []string) []string {
	wanted := make(map[string]struct{}, len(got))
	for _, g := range got {
		wanted[strings.ToLower(g)] = struct{}{}
	}
	var out []string
	for _, a := range allowed {
		if _, ok := wanted[strings.ToLower(a)]; ok {
			out = append(out, a)
		}
	}
	return out
}

// lexicalExtract matches question tokens against the known vocabulary: exact
// token hits score 10, prefix overlaps on longer words score 6. Event types
// match by name.
func lexicalExtract(question string, known []string) retrieval.KeywordExtraction {
	tokens := tokenize(question)

	var extraction retrieval.KeywordExtraction
	seenKeyword := make(map[string]struct{})
	for _, keyword := range known {
		lower := strings.ToLower(keyword)
		for _, token := range tokens {
			score := matchScore(token, lower)
			if score == 0 {
				continue
			}
			if _, dup := seenKeyword[keyword]; !dup {
				seenKeyword[keyword] = struct{}{}
				extraction.Keywords = append(extraction.Keywords, keyword)
			}
			extraction.Matches = append(extraction.Matches, retrieval.KeywordMatch{
				Keyword:         keyword,
				QuestionKeyword: token,
				Score:           score,
			})
		}
	}

	for _, eventType := range EventTypes {
		lower := strings.ToLower(eventType)
		for _, token := range tokens {
			if token == lower {
				extraction.EventTypes = append(extraction.EventTypes, eventType)
				break
			}
		}
	}
	return extraction
}

func matchScore(token, keyword string) float64 {
	if token == keyword {
		return 10
	}
	const minOverlap = 4
	if len(token) >= minOverlap && len(keyword) >= minOverlap &&
		(strings.HasPrefix(keyword, token) || strings.HasPrefix(token, keyword)) {
		return 6
	}
	return 0
}

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "about": {}, "are": {}, "can": {}, "did": {},
	"do": {}, "does": {}, "for": {}, "from": {}, "had": {}, "has": {}, "have": {},
	"her": {}, "his": {}, "how": {}, "i": {}, "in": {}, "is": {}, "it": {},
	"me": {}, "my": {}, "of": {}, "on": {}, "or": {}, "our": {}, "tell": {},
	"that": {}, "the": {}, "their": {}, "them": {}, "there": {}, "they": {},
	"this": {}, "to": {}, "was": {}, "we": {}, "were": {}, "what": {},
	"when": {}, "where": {}, "which": {}, "who": {}, "why": {}, "with": {},
	"you": {}, "your": {},
}

func tokenize(question string) []string {
	fields := strings.FieldsFunc(strings.ToLower(question), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	tokens := fields[:0]
	for _, f := range fields {
		if _, ok := stopwords[f]; ok {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}
