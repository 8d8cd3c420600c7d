package pedagogy

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/abhisek/rutealo/internal/apperr"
	"github.com/abhisek/rutealo/internal/bloom"
	"github.com/abhisek/rutealo/internal/llm"
	"github.com/abhisek/rutealo/internal/materials"
)

// Classifier labels material units with a Bloom category.
type Classifier struct {
	provider   llm.Provider
	hierarchy  *bloom.Hierarchy
	frameworks *Frameworks
	cfg        Config
}

var _ materials.Classifier = (*Classifier)(nil)

// NewClassifier wraps provider with the retry and validation policy of cfg.
// Classification runs at temperature zero.
func NewClassifier(provider llm.Provider, h *bloom.Hierarchy, frameworks *Frameworks, cfg Config) *Classifier {
	cfg.Temperature = 0
	return &Classifier{
		provider:   llm.Resilient(provider, cfg.Retry),
		hierarchy:  h,
		frameworks: frameworks,
		cfg:        cfg,
	}
}

type classificationOutput struct {
	Category      string   `json:"categoria_bloom"`
	Justification string   `json:"justificacion"`
	Keywords      []string `json:"palabras_clave"`
}

// Classify implements materials.Classifier. The returned category is a
// canonical level name or bloom.Other.
func (c *Classifier) Classify(ctx context.Context, text string) (*materials.Classification, error) {
	text = truncateRunes(strings.TrimSpace(text), c.cfg.MaxSourceChars)
	if text == "" {
		return &materials.Classification{Category: bloom.Other, Justification: "Unidad vacía"}, nil
	}

	ctx = llm.WithPurpose(ctx, "classify")
	resp, err := c.provider.Generate(ctx, llm.Request{
		System: classifySystemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildClassifyUserMessage(c.frameworks, text)},
		},
		Schema:    classificationSchema(c.hierarchy),
		MaxTokens: 512,
	})
	if err != nil {
		return nil, apperr.Generation(err, "no se pudo clasificar la unidad")
	}

	var out classificationOutput
	if err := json.Unmarshal(resp.Content, &out); err != nil {
		return nil, apperr.Generation(fmt.Errorf("parse classification: %w", err), "respuesta inválida de clasificación")
	}

	category := bloom.Other
	if level, ok := c.hierarchy.Match(out.Category); ok {
		category = string(level)
	}
	return &materials.Classification{
		Category:      category,
		Justification: strings.TrimSpace(out.Justification),
		Keywords:      out.Keywords,
	}, nil
}
