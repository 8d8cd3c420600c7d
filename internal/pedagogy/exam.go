package pedagogy

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/abhisek/rutealo/internal/apperr"
	"github.com/abhisek/rutealo/internal/bloom"
	"github.com/abhisek/rutealo/internal/evaluation"
	"github.com/abhisek/rutealo/internal/llm"
)

// ExamGenerator builds the diagnostic exam from a learner's classified
// material.
type ExamGenerator struct {
	provider  llm.Provider
	hierarchy *bloom.Hierarchy
	cfg       Config
	now       func() time.Time
}

// NewExamGenerator wraps provider with the retry and validation policy of
// cfg.
func NewExamGenerator(provider llm.Provider, h *bloom.Hierarchy, cfg Config) *ExamGenerator {
	if cfg.ExamQuestions < 1 {
		cfg.ExamQuestions = DefaultConfig().ExamQuestions
	}
	return &ExamGenerator{
		provider:  llm.Resilient(provider, cfg.Retry),
		hierarchy: h,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

type examOutput struct {
	Questions []examQuestionOutput `json:"preguntas"`
}

type examQuestionOutput struct {
	ID            int      `json:"id"`
	Question      string   `json:"pregunta"`
	Options       []string `json:"opciones"`
	CorrectOption string   `json:"respuesta_correcta"`
	Level         string   `json:"nivel_bloom_evaluado"`
}

// Generate returns a pending exam for learnerID built from corpus.
func (g *ExamGenerator) Generate(ctx context.Context, learnerID, corpus string) (*evaluation.Exam, error) {
	source := truncateRunes(strings.TrimSpace(corpus), g.cfg.MaxExamSourceChars)
	if source == "" {
		return nil, apperr.NotFound("No se encontró contenido procesado (Bloom) suficiente para generar el examen")
	}

	ctx = llm.WithPurpose(ctx, "diagnostic-exam")
	n := g.cfg.ExamQuestions

	resp, err := g.provider.Generate(ctx, llm.Request{
		System: examSystemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildExamUserMessage(g.hierarchy, source, n)},
		},
		Schema:      examSchema(n),
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
	})
	if err != nil {
		return nil, apperr.Generation(err, "no se pudo generar el examen inicial")
	}

	var out examOutput
	if err := json.Unmarshal(resp.Content, &out); err != nil {
		return nil, apperr.Generation(fmt.Errorf("parse exam response: %w", err), "respuesta inválida del examen inicial")
	}

	items, err := g.toItems(out.Questions)
	if err != nil {
		return nil, apperr.Generation(err, "respuesta inválida del examen inicial")
	}

	return &evaluation.Exam{
		LearnerID:   learnerID,
		Items:       items,
		Status:      evaluation.ExamPending,
		GeneratedAt: g.now(),
	}, nil
}

// toItems checks the items beyond what the schema expresses: ids unique,
// the correct letter among the options, and a known Bloom label.
func (g *ExamGenerator) toItems(qs []examQuestionOutput) ([]evaluation.AnswerKeyItem, error) {
	seen := make(map[int]bool, len(qs))
	items := make([]evaluation.AnswerKeyItem, 0, len(qs))

	for _, q := range qs {
		if q.ID < 1 || seen[q.ID] {
			return nil, fmt.Errorf("question id %d is invalid or repeated", q.ID)
		}
		seen[q.ID] = true

		letter := strings.ToUpper(strings.TrimSpace(q.CorrectOption))
		if len(letter) != 1 || int(letter[0]-'A') >= len(q.Options) {
			return nil, fmt.Errorf("question %d: correct option %q is not among %d options", q.ID, q.CorrectOption, len(q.Options))
		}

		level, ok := g.hierarchy.Match(q.Level)
		if !ok {
			level = g.hierarchy.Lowest()
		}

		items = append(items, evaluation.AnswerKeyItem{
			ID:            q.ID,
			Prompt:        strings.TrimSpace(q.Question),
			Options:       q.Options,
			CorrectOption: letter,
			Level:         level,
		})
	}
	return items, nil
}
