package evaluation

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/abhisek/rutealo/internal/apperr"
)

// ValidateAnswers checks a typed batch before scoring. The first problem
// found is returned as a validation error; nil means the batch is scorable.
func ValidateAnswers(answers []StudentAnswer) error {
	if len(answers) == 0 {
		return apperr.Validation("No hay respuestas para validar")
	}
	if len(answers) > MaxAnswers {
		return apperr.Validation("Demasiadas respuestas (máx: %d)", MaxAnswers)
	}

	seen := make(map[int]bool, len(answers))
	for i, a := range answers {
		if msg := checkAnswer(a); msg != "" {
			return apperr.Validation("Respuesta %d: %s", i+1, msg)
		}
		if seen[a.QuestionID] {
			return apperr.Validation("Pregunta %d aparece más de una vez", a.QuestionID)
		}
		seen[a.QuestionID] = true
	}
	return nil
}

func checkAnswer(a StudentAnswer) string {
	if a.QuestionID < 1 {
		return "'pregunta_id' debe ser mayor que 0"
	}
	if strings.TrimSpace(a.ChosenOption) == "" {
		return "'respuesta' no puede estar vacía"
	}
	if a.ResponseTimeSeconds != nil && *a.ResponseTimeSeconds < 0 {
		return "'tiempo_seg' no puede ser negativo"
	}
	return ""
}

// ParseSubmission decodes a quiz submission body of the form
// {"respuestas": [{"pregunta_id": int, "respuesta": str, "tiempo_seg": int?}]}
// and validates it field by field, so type errors are reported with the
// same messages as range errors.
func ParseSubmission(body []byte) ([]StudentAnswer, error) {
	var envelope struct {
		Answers json.RawMessage `json:"respuestas"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, apperr.Validation("El cuerpo de la solicitud no es JSON válido")
	}
	if len(envelope.Answers) == 0 || string(envelope.Answers) == "null" {
		return nil, apperr.Validation("Falta el campo 'respuestas'")
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(envelope.Answers, &raw); err != nil {
		return nil, apperr.Validation("Las respuestas deben ser una lista")
	}
	if len(raw) == 0 {
		return nil, apperr.Validation("No hay respuestas para validar")
	}
	if len(raw) > MaxAnswers {
		return nil, apperr.Validation("Demasiadas respuestas (máx: %d)", MaxAnswers)
	}

	answers := make([]StudentAnswer, 0, len(raw))
	seen := make(map[int]bool, len(raw))
	for i, r := range raw {
		a, msg := decodeAnswer(r)
		if msg != "" {
			return nil, apperr.Validation("Respuesta %d: %s", i+1, msg)
		}
		if seen[a.QuestionID] {
			return nil, apperr.Validation("Pregunta %d aparece más de una vez", a.QuestionID)
		}
		seen[a.QuestionID] = true
		answers = append(answers, a)
	}
	return answers, nil
}

func decodeAnswer(r json.RawMessage) (StudentAnswer, string) {
	var fields map[string]any
	if err := json.Unmarshal(r, &fields); err != nil || fields == nil {
		return StudentAnswer{}, "Respuesta debe ser un objeto"
	}

	var a StudentAnswer

	id, ok := fields["pregunta_id"]
	if !ok {
		return a, "Falta 'pregunta_id' en la respuesta"
	}
	n, ok := id.(float64)
	if !ok {
		return a, "'pregunta_id' debe ser un número"
	}
	if n < 1 {
		return a, "'pregunta_id' debe ser mayor que 0"
	}
	if n != math.Trunc(n) || n > math.MaxInt32 {
		return a, "'pregunta_id' debe ser un número entero"
	}
	a.QuestionID = int(n)

	resp, ok := fields["respuesta"]
	if !ok {
		return a, "Falta 'respuesta' en la pregunta"
	}
	s, ok := resp.(string)
	if !ok {
		return a, "'respuesta' debe ser una cadena de texto"
	}
	if strings.TrimSpace(s) == "" {
		return a, "'respuesta' no puede estar vacía"
	}
	a.ChosenOption = s

	if t, ok := fields["tiempo_seg"]; ok && t != nil {
		secs, ok := t.(float64)
		if !ok {
			return a, "'tiempo_seg' debe ser un número"
		}
		if secs < 0 {
			return a, "'tiempo_seg' no puede ser negativo"
		}
		a.ResponseTimeSeconds = &secs
	}
	return a, ""
}

// ValidateExam checks that an answer key can be scored against.
func ValidateExam(exam *Exam) error {
	if exam == nil || len(exam.Items) == 0 {
		return apperr.Validation("El examen no contiene preguntas")
	}
	seen := make(map[int]bool, len(exam.Items))
	for _, item := range exam.Items {
		if item.ID < 1 {
			return apperr.Validation("Pregunta con id inválido: %d", item.ID)
		}
		if seen[item.ID] {
			return apperr.Validation("El examen repite la pregunta %d", item.ID)
		}
		seen[item.ID] = true
		if strings.TrimSpace(item.CorrectOption) == "" {
			return apperr.Validation("La pregunta %d no tiene respuesta correcta", item.ID)
		}
	}
	return nil
}

// String renders an answer for logs.
func (a StudentAnswer) String() string {
	return fmt.Sprintf("#%d=%s", a.QuestionID, a.ChosenOption)
}
