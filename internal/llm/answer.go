package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/heirloom-app/heirloom-go/internal/retrieval"
)

// DontKnow is the canonical refusal answer, returned whenever the context
// cannot ground a real one.
const DontKnow = "I don't know."

const answerSystemPrompt = `You are a grounded assistant. Answer using ONLY the provided context pack.
- If the answer is not contained in the context, say you do not know.
- Do not invent facts.
- Return JSON only with keys: answer_text, used_citation_ids.
- used_citation_ids lists the memory_unit_id of every memory you used.`

const answerUserPrompt = `Question: %s

Context pack (JSON):
%s

Return a JSON object with:
- answer_text: string
- used_citation_ids: list of memory_unit_id strings`

// Generator is the text-generation surface the answerer and keyword
// extractor need from a model.
type Generator interface {
	GenerateWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Answer is a grounded answer with the ids of the memories it drew on.
type Answer struct {
	AnswerText      string   `json:"answer_text"`
	UsedCitationIDs []string `json:"used_citation_ids"`
}

// Answerer turns a context pack into a grounded answer. Without a model it
// degrades to a deterministic digest of the retrieved memories, so the
// pipeline stays usable in development setups with no LLM configured.
type Answerer struct {
	gen    Generator
	logger *slog.Logger
}

// NewAnswerer creates an answerer. model may be nil.
func NewAnswerer(model *Model, logger *slog.Logger) *Answerer {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Answerer{logger: logger}
	if model != nil {
		a.gen = model
	}
	return a
}

// Answer generates a grounded answer for the pack's question. The caller is
// expected to short-circuit empty packs; an empty pack here yields the
// refusal answer.
func (a *Answerer) Answer(ctx context.Context, pack *retrieval.ContextPack) (Answer, error) {
	if pack.Empty() {
		return Answer{AnswerText: DontKnow, UsedCitationIDs: []string{}}, nil
	}
	if a.gen == nil {
		return digestAnswer(pack), nil
	}

	packJSON, err := json.Marshal(pack)
	if err != nil {
		return Answer{}, fmt.Errorf("marshal context pack: %w", err)
	}

	raw, err := a.gen.GenerateWithSystem(ctx, answerSystemPrompt,
		fmt.Sprintf(answerUserPrompt, pack.Question, packJSON))
	if err != nil {
		return Answer{}, fmt.Errorf("generate answer: %w", err)
	}

	var answer Answer
	body, ok := extractJSON(raw)
	if !ok || json.Unmarshal(body, &answer) != nil || answer.AnswerText == "" {
		a.logger.Warn("answer generation returned unparseable output")
		return Answer{AnswerText: DontKnow, UsedCitationIDs: []string{}}, nil
	}
	if answer.UsedCitationIDs == nil {
		answer.UsedCitationIDs = []string{}
	}
	return answer, nil
}

// digestAnswer builds a model-free answer from the top retrieved memories.
func digestAnswer(pack *retrieval.ContextPack) Answer {
	const maxMemories = 3

	var parts []string
	var ids []string
	for i, memory := range pack.Memories {
		if i == maxMemories {
			break
		}
		parts = append(parts, fmt.Sprintf("%s: %s", memory.Title, memory.Summary))
		ids = append(ids, memory.MemoryUnitID)
	}
	return Answer{
		AnswerText:      strings.Join(parts, " "),
		UsedCitationIDs: ids,
	}
}

// extractJSON pulls the JSON object out of a model response, tolerating
// markdown code fences and surrounding prose.
func extractJSON(s string) ([]byte, bool) {
	s = strings.TrimSpace(s)
	if after, ok := strings.CutPrefix(s, "```json"); ok {
		s = after
	} else if after, ok := strings.CutPrefix(s, "```"); ok {
		s = after
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end <= start {
		return nil, false
	}
	return []byte(s[start : end+1]), true
}
