package learnpath

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/rutealo/internal/apperr"
	"github.com/abhisek/rutealo/internal/bloom"
	"github.com/abhisek/rutealo/internal/evaluation"
	"github.com/abhisek/rutealo/internal/logger"
)

// Selector decides per level whether to omit, scaffold or reinforce, and
// asks the generator for the content of every non-omitted level.
type Selector struct {
	hierarchy *bloom.Hierarchy
	gen       Generator
	log       *logger.Logger
	now       func() time.Time
}

// NewSelector creates a path selector.
func NewSelector(h *bloom.Hierarchy, gen Generator, log *logger.Logger) *Selector {
	if log == nil {
		log = logger.Nop()
	}
	return &Selector{
		hierarchy: h,
		gen:       gen,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// StrategyFor returns the strategy for level given profile, which may be nil.
func (s *Selector) StrategyFor(profile *evaluation.MasteryProfile, level bloom.Level) Strategy {
	switch {
	case profile == nil:
		return StrategyStandard
	case profile.IsMastered(level):
		return StrategyOmitted
	case profile.InProximalZone(level):
		return StrategyScaffold
	default:
		return StrategyReinforce
	}
}

// SelectPath builds a fresh path for learnerID. Levels without source text
// are skipped. A level whose generation fails is dropped and logged. If
// every attempted level fails, a minimal fallback path is returned together
// with a generation error.
func (s *Selector) SelectPath(ctx context.Context, learnerID string, profile *evaluation.MasteryProfile, content map[bloom.Level][]string) (*LearningPath, error) {
	now := s.now()
	path := &LearningPath{
		ID:              uuid.NewString(),
		LearnerID:       learnerID,
		Name:            fmt.Sprintf("Ruta %s", now.Format("2006-01-02")),
		State:           PathActive,
		Blocks:          []ContentBlock{},
		GeneratedLevels: []bloom.Level{},
		OmittedLevels:   []bloom.Level{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	log := s.log.With("learner_id", learnerID)

	var attempted []attempt
	for _, level := range s.hierarchy.All() {
		sources := nonBlank(content[level])
		if len(sources) == 0 {
			continue
		}

		strategy := s.StrategyFor(profile, level)
		if strategy == StrategyOmitted {
			path.Blocks = append(path.Blocks, ContentBlock{
				Level:      level,
				Strategy:   StrategyOmitted,
				Status:     StatusOmitted,
				Reason:     omitReason(profile, level),
				Flashcards: []Flashcard{},
				QuizItems:  []QuizItem{},
			})
			path.OmittedLevels = append(path.OmittedLevels, level)
			continue
		}

		attempted = append(attempted, attempt{level: level, strategy: strategy, sources: sources})
		out, err := s.gen.Generate(ctx, level, strategy, sources)
		if err == nil && (out == nil || len(out.Flashcards)+len(out.QuizItems) == 0) {
			err = fmt.Errorf("empty content")
		}
		if err != nil {
			log.Warn("level generation failed, dropping level",
				"level", level, "strategy", strategy, "error", err)
			continue
		}

		path.Blocks = append(path.Blocks, ContentBlock{
			Level:      level,
			Strategy:   strategy,
			Flashcards: renumberCards(out.Flashcards),
			QuizItems:  renumberQuiz(out.QuizItems),
		})
		path.GeneratedLevels = append(path.GeneratedLevels, level)
	}

	if len(path.GeneratedLevels) == 0 && len(attempted) > 0 {
		log.Warn("no level generated, using fallback path", "attempted", len(attempted))
		s.fallbackPath(path, attempted)
		assignProgression(path)
		return path, apperr.Generation(nil,
			"No se pudo generar contenido personalizado; se creó una ruta básica de repaso")
	}

	assignProgression(path)
	log.Info("path selected",
		"generated", len(path.GeneratedLevels),
		"omitted", len(path.OmittedLevels),
		"dropped", len(attempted)-len(path.GeneratedLevels),
	)
	return path, nil
}

type attempt struct {
	level    bloom.Level
	strategy Strategy
	sources  []string
}

func omitReason(profile *evaluation.MasteryProfile, level bloom.Level) string {
	if r, ok := profile.PerLevel[level]; ok {
		return fmt.Sprintf("Nivel dominado en la evaluación diagnóstica (%.1f%%)", r.AccuracyPercent)
	}
	return "Nivel dominado en la evaluación diagnóstica"
}

// assignProgression numbers the generated blocks, unlocks the first one and
// locks the rest. Omitted blocks keep their status.
func assignProgression(p *LearningPath) {
	order := 0
	for i := range p.Blocks {
		b := &p.Blocks[i]
		if b.Strategy == StrategyOmitted {
			b.Order = 0
			b.Status = StatusOmitted
			continue
		}
		order++
		b.Order = order
		if order == 1 {
			b.Status = StatusAvailable
		} else {
			b.Status = StatusLocked
		}
	}
	p.ProgressPercent = progress(p)
}

func progress(p *LearningPath) float64 {
	var total, done int
	for _, b := range p.Blocks {
		if b.Strategy == StrategyOmitted {
			continue
		}
		total++
		if b.Status == StatusCompleted {
			done++
		}
	}
	if total == 0 {
		if len(p.OmittedLevels) > 0 {
			return 100
		}
		return 0
	}
	return math.Round(10000*float64(done)/float64(total)) / 100
}

func nonBlank(texts []string) []string {
	var out []string
	for _, t := range texts {
		if strings.TrimSpace(t) != "" {
			out = append(out, t)
		}
	}
	return out
}

func renumberCards(cards []Flashcard) []Flashcard {
	out := make([]Flashcard, len(cards))
	for i, c := range cards {
		c.ID = i + 1
		c.Seen = false
		out[i] = c
	}
	return out
}

func renumberQuiz(items []QuizItem) []QuizItem {
	out := make([]QuizItem, len(items))
	for i, q := range items {
		q.ID = i + 1
		q.Done = false
		out[i] = q
	}
	return out
}
