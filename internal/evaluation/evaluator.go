package evaluation

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/abhisek/rutealo/internal/apperr"
	"github.com/abhisek/rutealo/internal/bloom"
	"github.com/abhisek/rutealo/internal/logger"
)

// Evaluator scores answers against an answer key and persists the
// resulting profile.
type Evaluator struct {
	hierarchy *bloom.Hierarchy
	profiles  ProfileStore
	log       *logger.Logger
	now       func() time.Time
}

// NewEvaluator creates an evaluator. profiles may be nil, in which case
// Evaluate only scores.
func NewEvaluator(h *bloom.Hierarchy, profiles ProfileStore, log *logger.Logger) *Evaluator {
	if log == nil {
		log = logger.Nop()
	}
	return &Evaluator{
		hierarchy: h,
		profiles:  profiles,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Evaluate validates answers, scores them and replaces the learner's stored
// profile. On a store failure the computed profile is still returned along
// with a persistence error.
func (e *Evaluator) Evaluate(ctx context.Context, learnerID string, answers []StudentAnswer, key []AnswerKeyItem) (*MasteryProfile, error) {
	if err := ValidateAnswers(answers); err != nil {
		return nil, err
	}
	profile, _ := e.Score(learnerID, answers, key)
	if err := e.persist(ctx, profile); err != nil {
		return profile, err
	}
	return profile, nil
}

func (e *Evaluator) persist(ctx context.Context, profile *MasteryProfile) error {
	if e.profiles == nil {
		return nil
	}
	if err := e.profiles.SaveProfile(ctx, profile); err != nil {
		e.log.Error("save profile failed", "learner_id", profile.LearnerID, "error", err)
		return apperr.Persistence(err, "No se pudo guardar el perfil del estudiante")
	}
	return nil
}

// levelTally accumulates answers for one level.
type levelTally struct {
	correct, total int
}

// Score computes the profile for a validated batch without touching the
// store. Answers whose question is not in the key are skipped.
func (e *Evaluator) Score(learnerID string, answers []StudentAnswer, key []AnswerKeyItem) (*MasteryProfile, []ProcessedAnswer) {
	byID := make(map[int]AnswerKeyItem, len(key))
	for _, item := range key {
		byID[item.ID] = item
	}

	tallies := make(map[bloom.Level]*levelTally)
	processed := make([]ProcessedAnswer, 0, len(answers))
	for _, a := range answers {
		item, ok := byID[a.QuestionID]
		if !ok {
			continue
		}
		// A missing level counts as the lowest one. Unknown labels are kept
		// on the processed answer but never tallied.
		level := item.Level
		if level == "" {
			level = e.hierarchy.Lowest()
		}
		correct := normalizeOption(a.ChosenOption) == normalizeOption(item.CorrectOption)

		t := tallies[level]
		if t == nil {
			t = &levelTally{}
			tallies[level] = t
		}
		t.total++
		if correct {
			t.correct++
		}

		processed = append(processed, ProcessedAnswer{
			QuestionID:          a.QuestionID,
			ChosenOption:        a.ChosenOption,
			CorrectOption:       item.CorrectOption,
			IsCorrect:           correct,
			Level:               level,
			ResponseTimeSeconds: a.ResponseTimeSeconds,
		})
	}

	p := &MasteryProfile{
		LearnerID:      learnerID,
		EvaluatedAt:    e.now(),
		PerLevel:       make(map[bloom.Level]LevelResult, len(tallies)),
		MasteredLevels: []bloom.Level{},
		GapLevels:      []bloom.Level{},
	}

	var score float64
	for _, level := range e.hierarchy.All() {
		t, ok := tallies[level]
		if !ok {
			continue
		}
		raw := 100 * float64(t.correct) / float64(t.total)
		acc := round2(raw)
		r := LevelResult{
			Level:           level,
			CorrectCount:    t.correct,
			TotalCount:      t.total,
			AccuracyPercent: acc,
			IsMastered:      acc >= MasteryThreshold,
		}
		p.PerLevel[level] = r
		score += raw * e.hierarchy.Weight(level)

		if r.IsMastered {
			p.MasteredLevels = append(p.MasteredLevels, level)
		} else {
			p.GapLevels = append(p.GapLevels, level)
		}
	}
	p.OverallScore = round2(score)

	if n := len(p.MasteredLevels); n > 0 {
		p.CurrentLevel = p.MasteredLevels[n-1]
		p.ProximalZone = e.hierarchy.Next(p.CurrentLevel, 2)
	} else {
		p.CurrentLevel = e.hierarchy.Lowest()
		p.ProximalZone = e.hierarchy.First(2)
	}
	if p.ProximalZone == nil {
		p.ProximalZone = []bloom.Level{}
	}

	p.Recommendations = Recommend(p)
	return p, processed
}

func normalizeOption(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
