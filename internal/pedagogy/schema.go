package pedagogy

import (
	"fmt"

	"github.com/abhisek/rutealo/internal/bloom"
	"github.com/abhisek/rutealo/internal/llm"
)

var optionLetters = []any{"a", "b", "c", "d"}

func nonEmptyString(desc string) map[string]any {
	return map[string]any{"type": "string", "minLength": 1, "description": desc}
}

// blockSchema is the schema for one path block with exactly the given
// number of flashcards and quiz items. The name encodes the counts so each
// variant compiles once.
func blockSchema(flashcards, quizItems int) *llm.Schema {
	feedback := map[string]any{
		"type":                 "object",
		"properties":           map[string]any{},
		"required":             optionLetters,
		"additionalProperties": false,
	}
	for _, l := range optionLetters {
		feedback["properties"].(map[string]any)[l.(string)] = nonEmptyString("Feedback pedagógico para esta opción")
	}

	return &llm.Schema{
		Name:        fmt.Sprintf("path-block-%dx%d", flashcards, quizItems),
		Description: "Flashcards with explicit theory and multiple-choice questions with per-option feedback",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"flashcards": map[string]any{
					"type":     "array",
					"minItems": flashcards,
					"maxItems": flashcards,
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"frente":  nonEmptyString("Pregunta o concepto clave que activa el nivel cognitivo"),
							"reverso": nonEmptyString("Respuesta completa con teoría explícita del material"),
						},
						"required":             []any{"frente", "reverso"},
						"additionalProperties": false,
					},
				},
				"preguntas": map[string]any{
					"type":     "array",
					"minItems": quizItems,
					"maxItems": quizItems,
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"pregunta": nonEmptyString("Enunciado que evalúa el nivel cognitivo"),
							"opciones": map[string]any{
								"type":        "array",
								"minItems":    4,
								"maxItems":    4,
								"items":       map[string]any{"type": "string", "minLength": 1},
								"description": "Cuatro opciones con el prefijo a), b), c), d)",
							},
							"respuesta_correcta": map[string]any{
								"type": "string",
								"enum": optionLetters,
							},
							"feedback": feedback,
						},
						"required":             []any{"pregunta", "opciones", "respuesta_correcta", "feedback"},
						"additionalProperties": false,
					},
				},
			},
			"required":             []any{"flashcards", "preguntas"},
			"additionalProperties": false,
		},
	}
}

// examSchema describes the diagnostic exam with exactly n questions.
func examSchema(n int) *llm.Schema {
	return &llm.Schema{
		Name:        fmt.Sprintf("diagnostic-exam-%d", n),
		Description: "Diagnostic exam of increasing difficulty, each question tagged with a Bloom level",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"preguntas": map[string]any{
					"type":     "array",
					"minItems": n,
					"maxItems": n,
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"id":       map[string]any{"type": "integer", "minimum": 1},
							"pregunta": nonEmptyString("Enunciado basado en el material"),
							"opciones": map[string]any{
								"type":        "array",
								"minItems":    2,
								"maxItems":    6,
								"items":       map[string]any{"type": "string", "minLength": 1},
								"description": "Opciones con el prefijo A), B), C)...",
							},
							"respuesta_correcta": map[string]any{
								"type":        "string",
								"pattern":     "^[A-Fa-f]$",
								"description": "Letra de la opción correcta",
							},
							"nivel_bloom_evaluado": nonEmptyString("Nivel de Bloom que evalúa la pregunta"),
						},
						"required":             []any{"id", "pregunta", "opciones", "respuesta_correcta", "nivel_bloom_evaluado"},
						"additionalProperties": false,
					},
				},
			},
			"required":             []any{"preguntas"},
			"additionalProperties": false,
		},
	}
}

// classificationSchema restricts the category to the hierarchy labels
// plus bloom.Other.
func classificationSchema(h *bloom.Hierarchy) *llm.Schema {
	labels := make([]any, 0, h.Len()+1)
	for _, l := range h.All() {
		labels = append(labels, string(l))
	}
	labels = append(labels, bloom.Other)

	return &llm.Schema{
		Name:        "bloom-classification",
		Description: "Bloom category assigned to a unit of educational content",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"categoria_bloom": map[string]any{"type": "string", "enum": labels},
				"justificacion":   map[string]any{"type": "string"},
				"palabras_clave": map[string]any{
					"type":  "array",
					"items": map[string]any{"type": "string"},
				},
			},
			"required":             []any{"categoria_bloom", "justificacion", "palabras_clave"},
			"additionalProperties": false,
		},
	}
}
