// Package pedagogy holds the LLM-backed adapters of the learning flow:
// path block content, the diagnostic exam and unit classification.
package pedagogy

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/abhisek/rutealo/internal/apperr"
	"github.com/abhisek/rutealo/internal/bloom"
	"github.com/abhisek/rutealo/internal/learnpath"
	"github.com/abhisek/rutealo/internal/llm"
)

// ContentGenerator produces flashcards and quiz items for one level.
type ContentGenerator struct {
	provider   llm.Provider
	frameworks *Frameworks
	cfg        Config
}

var _ learnpath.Generator = (*ContentGenerator)(nil)

// NewContentGenerator wraps provider with the retry and validation policy
// of cfg.
func NewContentGenerator(provider llm.Provider, frameworks *Frameworks, cfg Config) *ContentGenerator {
	return &ContentGenerator{
		provider:   llm.Resilient(provider, cfg.Retry),
		frameworks: frameworks,
		cfg:        cfg,
	}
}

type blockOutput struct {
	Flashcards []flashcardOutput `json:"flashcards"`
	Questions  []questionOutput  `json:"preguntas"`
}

type flashcardOutput struct {
	Front string `json:"frente"`
	Back  string `json:"reverso"`
}

type questionOutput struct {
	Question      string            `json:"pregunta"`
	Options       []string          `json:"opciones"`
	CorrectOption string            `json:"respuesta_correcta"`
	Feedback      map[string]string `json:"feedback"`
}

// Generate implements learnpath.Generator.
func (g *ContentGenerator) Generate(ctx context.Context, level bloom.Level, strategy learnpath.Strategy, sources []string) (*learnpath.Content, error) {
	if strategy == learnpath.StrategyOmitted {
		return nil, apperr.Validation("el nivel %s está omitido", level)
	}
	source := truncateRunes(strings.TrimSpace(strings.Join(sources, "\n")), g.cfg.MaxSourceChars)
	if source == "" {
		return nil, apperr.Validation("no hay contenido para el nivel %s", level)
	}

	ctx = llm.WithPurpose(ctx, "path-block")
	nCards, nQuiz := Counts(strategy)

	req := llm.Request{
		System: blockSystemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildBlockUserMessage(level, strategy, g.frameworks.Context(level), source, nCards, nQuiz)},
		},
		Schema:      blockSchema(nCards, nQuiz),
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
	}

	resp, err := g.provider.Generate(ctx, req)
	if err != nil {
		return nil, apperr.Generation(err, "no se pudo generar contenido para el nivel %s", level)
	}

	var out blockOutput
	if err := json.Unmarshal(resp.Content, &out); err != nil {
		return nil, apperr.Generation(fmt.Errorf("parse block response: %w", err), "respuesta inválida para el nivel %s", level)
	}

	content := &learnpath.Content{
		Flashcards: make([]learnpath.Flashcard, 0, len(out.Flashcards)),
		QuizItems:  make([]learnpath.QuizItem, 0, len(out.Questions)),
	}
	for i, c := range out.Flashcards {
		content.Flashcards = append(content.Flashcards, learnpath.Flashcard{
			ID:    i + 1,
			Front: strings.TrimSpace(c.Front),
			Back:  strings.TrimSpace(c.Back),
		})
	}
	for i, q := range out.Questions {
		feedback := make(map[string]string, len(q.Feedback))
		for k, v := range q.Feedback {
			feedback[strings.ToLower(strings.TrimSpace(k))] = v
		}
		content.QuizItems = append(content.QuizItems, learnpath.QuizItem{
			ID:            i + 1,
			Question:      strings.TrimSpace(q.Question),
			Options:       q.Options,
			CorrectOption: strings.ToLower(strings.TrimSpace(q.CorrectOption)),
			Feedback:      feedback,
		})
	}
	return content, nil
}
