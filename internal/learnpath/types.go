package learnpath

import (
	"context"
	"time"

	"github.com/abhisek/rutealo/internal/bloom"
)

// Strategy selects how content for a level is generated.
type Strategy string

const (
	// StrategyStandard is used when the learner has no diagnostic yet.
	StrategyStandard Strategy = "standard"
	// StrategyScaffold targets levels in the proximal zone: more hints,
	// progressive disclosure.
	StrategyScaffold Strategy = "scaffold"
	// StrategyReinforce targets gaps: denser repetition and worked examples.
	StrategyReinforce Strategy = "reinforce"
	// StrategyOmitted marks a mastered level; nothing is generated.
	StrategyOmitted Strategy = "omitted"
)

// Status is the progression state of a block.
type Status string

const (
	StatusAvailable Status = "DISPONIBLE"
	StatusLocked    Status = "BLOQUEADO"
	StatusOmitted   Status = "OMITIDO"
	StatusCompleted Status = "COMPLETADO"
)

// PathActive is the lifecycle state of a freshly built path.
const PathActive = "ACTIVA"

// Flashcard is a front/back review card.
type Flashcard struct {
	ID    int    `json:"id"`
	Front string `json:"frente"`
	Back  string `json:"reverso"`
	Seen  bool   `json:"visto"`
}

// QuizItem is a multiple-choice practice question. Feedback is keyed by
// option letter.
type QuizItem struct {
	ID            int               `json:"id"`
	Question      string            `json:"pregunta"`
	Options       []string          `json:"opciones"`
	CorrectOption string            `json:"respuesta_correcta"`
	Feedback      map[string]string `json:"feedback"`
	Done          bool              `json:"realizado"`
}

// ContentBlock is the generated material for one level. Order is 1-based
// among generated blocks and zero for omitted ones.
type ContentBlock struct {
	Level      bloom.Level `json:"level"`
	Strategy   Strategy    `json:"strategy"`
	Order      int         `json:"orden"`
	Status     Status      `json:"estado"`
	Reason     string      `json:"motivo,omitempty"`
	Flashcards []Flashcard `json:"flashcards"`
	QuizItems  []QuizItem  `json:"quiz_items"`
}

// LearningPath is the one active path of a learner. Blocks are in hierarchy
// order. A regeneration replaces the whole value.
type LearningPath struct {
	ID              string         `json:"id"`
	LearnerID       string         `json:"learner_id"`
	Name            string         `json:"nombre_ruta"`
	State           string         `json:"estado"`
	Blocks          []ContentBlock `json:"blocks"`
	GeneratedLevels []bloom.Level  `json:"generated_levels"`
	OmittedLevels   []bloom.Level  `json:"omitted_levels"`
	ProgressPercent float64        `json:"progress_percent"`
	Fallback        bool           `json:"fallback"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// Block returns the block for level, if the path has one.
func (p *LearningPath) Block(level bloom.Level) (*ContentBlock, bool) {
	for i := range p.Blocks {
		if p.Blocks[i].Level == level {
			return &p.Blocks[i], true
		}
	}
	return nil, false
}

// Content is what the generator returns for one level.
type Content struct {
	Flashcards []Flashcard
	QuizItems  []QuizItem
}

// Generator produces content for one level. Implementations apply their own
// retry policy; an error means the level failed for good.
type Generator interface {
	Generate(ctx context.Context, level bloom.Level, strategy Strategy, sources []string) (*Content, error)
}
