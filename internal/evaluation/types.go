package evaluation

import (
	"time"

	"github.com/abhisek/rutealo/internal/bloom"
)

// MasteryThreshold is the accuracy percentage at or above which a level is
// considered mastered.
const MasteryThreshold = 70.0

// MaxAnswers is the largest submission accepted in one batch.
const MaxAnswers = 100

// AnswerKeyItem is one diagnostic question with its correct option.
type AnswerKeyItem struct {
	ID            int         `json:"id"`
	Prompt        string      `json:"pregunta"`
	Options       []string    `json:"opciones"`
	CorrectOption string      `json:"respuesta_correcta"`
	Level         bloom.Level `json:"nivel_bloom_evaluado"`
}

// ExamStatus tracks whether a diagnostic exam has been answered.
type ExamStatus string

const (
	ExamPending   ExamStatus = "PENDIENTE"
	ExamCompleted ExamStatus = "COMPLETADO"
)

// Exam is the diagnostic quiz generated for a learner. Its items are
// immutable once generated.
type Exam struct {
	LearnerID   string          `json:"learner_id"`
	Items       []AnswerKeyItem `json:"pruebas"`
	Status      ExamStatus      `json:"estado"`
	GeneratedAt time.Time       `json:"fecha_generacion"`
}

// StudentAnswer is one submitted answer. ResponseTimeSeconds is nil when
// the client did not report timing.
type StudentAnswer struct {
	QuestionID          int      `json:"pregunta_id"`
	ChosenOption        string   `json:"respuesta"`
	ResponseTimeSeconds *float64 `json:"tiempo_seg,omitempty"`
}

// LevelResult is the derived score of one evaluated level.
type LevelResult struct {
	Level           bloom.Level `json:"level"`
	CorrectCount    int         `json:"correct_count"`
	TotalCount      int         `json:"total_count"`
	AccuracyPercent float64     `json:"accuracy_percent"`
	IsMastered      bool        `json:"is_mastered"`
}

// RecommendationKind groups recommendations by pedagogical intent.
type RecommendationKind string

const (
	RecommendStrengths RecommendationKind = "fortalezas"
	RecommendGaps      RecommendationKind = "brechas"
	RecommendProximal  RecommendationKind = "zona_proxima"
)

// Recommendation is a short pedagogical note derived from a profile.
type Recommendation struct {
	Kind    RecommendationKind `json:"tipo"`
	Message string             `json:"mensaje"`
	Action  string             `json:"accion"`
}

// MasteryProfile is the outcome of one evaluation. It is replaced wholesale
// on every submission.
type MasteryProfile struct {
	LearnerID       string                      `json:"learner_id"`
	EvaluatedAt     time.Time                   `json:"evaluated_at"`
	PerLevel        map[bloom.Level]LevelResult `json:"per_level_results"`
	OverallScore    float64                     `json:"overall_score"`
	CurrentLevel    bloom.Level                 `json:"current_level"`
	ProximalZone    []bloom.Level               `json:"proximal_zone"`
	MasteredLevels  []bloom.Level               `json:"mastered_levels"`
	GapLevels       []bloom.Level               `json:"gap_levels"`
	Recommendations []Recommendation            `json:"recommendations"`
}

// IsMastered reports whether level is in the mastered set.
func (p *MasteryProfile) IsMastered(level bloom.Level) bool {
	return containsLevel(p.MasteredLevels, level)
}

// InProximalZone reports whether level is in the proximal zone.
func (p *MasteryProfile) InProximalZone(level bloom.Level) bool {
	return containsLevel(p.ProximalZone, level)
}

// ProcessedAnswer is a scored answer kept in the evaluation history.
type ProcessedAnswer struct {
	QuestionID          int         `json:"pregunta_id"`
	ChosenOption        string      `json:"respuesta"`
	CorrectOption       string      `json:"respuesta_correcta"`
	IsCorrect           bool        `json:"es_correcta"`
	Level               bloom.Level `json:"nivel_bloom"`
	ResponseTimeSeconds *float64    `json:"tiempo_seg,omitempty"`
}

// Record is one entry of a learner's evaluation history.
type Record struct {
	ID      string            `json:"id"`
	Profile *MasteryProfile   `json:"perfil"`
	Answers []ProcessedAnswer `json:"respuestas"`
}

func containsLevel(levels []bloom.Level, level bloom.Level) bool {
	for _, l := range levels {
		if l == level {
			return true
		}
	}
	return false
}
