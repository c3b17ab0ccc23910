package llm

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heirloom-app/heirloom-go/internal/models"
	"github.com/heirloom-app/heirloom-go/internal/retrieval"
)

type stubGenerator struct {
	response string
	err      error
}

func (s *stubGenerator) GenerateWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return s.response, s.err
}

func discard() *slog.Logger { return slog.New(slog.DiscardHandler) }

func strPtr(s string) *string { return &s }

func testPack() *retrieval.ContextPack {
	return &retrieval.ContextPack{
		Question: "Where was the wedding?",
		Memories: []models.RetrievedMemory{
			{MemoryUnitID: "memory_unit:1", Title: "Wedding Day", Summary: "Married in Vienna.", Description: strPtr("A June wedding."), AssetKey: "wedding.jpg"},
			{MemoryUnitID: "memory_unit:2", Title: "Honeymoon", Summary: "Two weeks in Paris.", AssetKey: "paris.mp4"},
		},
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{"bare object", `{"a":1}`, `{"a":1}`, true},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`, true},
		{"plain fence", "```\n{\"a\":1}\n```", `{"a":1}`, true},
		{"surrounding prose", `Here you go: {"a":1} hope that helps`, `{"a":1}`, true},
		{"no object", "no json here", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := extractJSON(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, string(got))
			}
		})
	}
}

func TestAnswerParsesModelOutput(t *testing.T) {
	a := NewAnswerer(nil, discard())
	a.gen = &stubGenerator{response: "```json\n" +
		`{"answer_text":"The wedding was in Vienna.","used_citation_ids":["memory_unit:1"]}` +
		"\n```"}

	answer, err := a.Answer(context.Background(), testPack())
	require.NoError(t, err)
	assert.Equal(t, "The wedding was in Vienna.", answer.AnswerText)
	assert.Equal(t, []string{"memory_unit:1"}, answer.UsedCitationIDs)
}

func TestAnswerUnparseableOutputRefuses(t *testing.T) {
	a := NewAnswerer(nil, discard())
	a.gen = &stubGenerator{response: "I cannot return JSON today."}

	answer, err := a.Answer(context.Background(), testPack())
	require.NoError(t, err)
	assert.Equal(t, DontKnow, answer.AnswerText)
	assert.Empty(t, answer.UsedCitationIDs)
}

func TestAnswerWithoutModelDigests(t *testing.T) {
	a := NewAnswerer(nil, discard())

	answer, err := a.Answer(context.Background(), testPack())
	require.NoError(t, err)
	assert.Contains(t, answer.AnswerText, "Wedding Day: Married in Vienna.")
	assert.Equal(t, []string{"memory_unit:1", "memory_unit:2"}, answer.UsedCitationIDs)
}

func TestAnswerEmptyPackRefuses(t *testing.T) {
	a := NewAnswerer(nil, discard())

	answer, err := a.Answer(context.Background(), &retrieval.ContextPack{Question: "?"})
	require.NoError(t, err)
	assert.Equal(t, DontKnow, answer.AnswerText)
}

func TestLexicalExtraction(t *testing.T) {
	e := NewKeywordExtractor(nil, discard())
	known := []string{"wedding", "vienna", "gardening"}

	extraction, err := e.ExtractKeywords(context.Background(),
		"Tell me about the wedding and her travel to Vienna", known)
	require.NoError(t, err)

	assert.Equal(t, []string{"wedding", "vienna"}, extraction.Keywords)
	assert.Equal(t, []string{"Travel"}, extraction.EventTypes)
	require.Len(t, extraction.Matches, 2)
	assert.Equal(t, float64(10), extraction.Matches[0].Score)
	assert.Equal(t, "wedding", extraction.Matches[0].QuestionKeyword)
}

func TestLexicalExtractionPrefixMatch(t *testing.T) {
	e := NewKeywordExtractor(nil, discard())

	extraction, err := e.ExtractKeywords(context.Background(),
		"Did she garden much?", []string{"gardening"})
	require.NoError(t, err)

	require.Equal(t, []string{"gardening"}, extraction.Keywords)
	assert.Equal(t, float64(6), extraction.Matches[0].Score)
}

func TestLexicalExtractionNoMatches(t *testing.T) {
	e := NewKeywordExtractor(nil, discard())

	extraction, err := e.ExtractKeywords(context.Background(),
		"What is the meaning of life?", []string{"wedding"})
	require.NoError(t, err)
	assert.True(t, extraction.Empty())
}

func TestModelExtractionFiltersUnknownTerms(t *testing.T) {
	e := NewKeywordExtractor(nil, discard())
	e.gen = &stubGenerator{response: `{
		"keywords": ["wedding", "invented"],
		"event_types": ["Travel", "Concert"],
		"keyword_matches": [{"keyword": "wedding", "question_keyword": "wedding", "score": 10}]
	}`}

	extraction, err := e.ExtractKeywords(context.Background(), "q", []string{"wedding", "vienna"})
	require.NoError(t, err)
	assert.Equal(t, []string{"wedding"}, extraction.Keywords)
	assert.Equal(t, []string{"Travel"}, extraction.EventTypes)
}

func TestModelExtractionErrorFallsBack(t *testing.T) {
	e := NewKeywordExtractor(nil, discard())
	e.gen = &stubGenerator{err: context.DeadlineExceeded}

	extraction, err := e.ExtractKeywords(context.Background(), "the wedding", []string{"wedding"})
	require.NoError(t, err)
	assert.Equal(t, []string{"wedding"}, extraction.Keywords)
}
