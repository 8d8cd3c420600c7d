package learnpath

import (
	"context"

	"github.com/abhisek/rutealo/internal/apperr"
	"github.com/abhisek/rutealo/internal/bloom"
	"github.com/abhisek/rutealo/internal/evaluation"
	"github.com/abhisek/rutealo/internal/logger"
)

// PathStore persists one path per learner with replace semantics. Path
// returns nil when the learner has none.
type PathStore interface {
	SavePath(ctx context.Context, p *LearningPath) error
	Path(ctx context.Context, learnerID string) (*LearningPath, error)
}

// ProfileSource provides the latest mastery profile, or nil.
type ProfileSource interface {
	LatestProfile(ctx context.Context, learnerID string) (*evaluation.MasteryProfile, error)
}

// ContentSource provides the learner's classified text grouped by level.
type ContentSource interface {
	ContentByLevel(ctx context.Context, learnerID string) (map[bloom.Level][]string, error)
}

// Service regenerates and advances learning paths.
type Service struct {
	selector *Selector
	paths    PathStore
	profiles ProfileSource
	content  ContentSource
	log      *logger.Logger
}

// NewService wires a path service.
func NewService(sel *Selector, paths PathStore, profiles ProfileSource, content ContentSource, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{selector: sel, paths: paths, profiles: profiles, content: content, log: log}
}

// Regenerate rebuilds the learner's path from the latest profile and the
// classified content, replacing any stored path. When the selector falls
// back to a minimal path, that path is stored and returned together with
// the generation error.
func (s *Service) Regenerate(ctx context.Context, learnerID string) (*LearningPath, error) {
	content, err := s.content.ContentByLevel(ctx, learnerID)
	if err != nil {
		return nil, apperr.Persistence(err, "No se pudo cargar el contenido clasificado")
	}
	if !hasContent(content) {
		return nil, apperr.NotFound("No se encontró contenido procesado (Bloom) suficiente para generar la ruta")
	}

	profile, err := s.profiles.LatestProfile(ctx, learnerID)
	if err != nil {
		return nil, apperr.Persistence(err, "No se pudo cargar el perfil")
	}

	path, selErr := s.selector.SelectPath(ctx, learnerID, profile, content)
	if path == nil {
		return nil, selErr
	}

	if prev, err := s.paths.Path(ctx, learnerID); err == nil && prev != nil {
		path.ID = prev.ID
		path.CreatedAt = prev.CreatedAt
		if prev.Name != "" {
			path.Name = prev.Name
		}
	}

	if err := s.paths.SavePath(ctx, path); err != nil {
		s.log.Error("save path failed", "learner_id", learnerID, "error", err)
		return path, apperr.Persistence(err, "No se pudo guardar la ruta de aprendizaje")
	}
	return path, selErr
}

// Path returns the learner's stored path or a not-found error.
func (s *Service) Path(ctx context.Context, learnerID string) (*LearningPath, error) {
	p, err := s.paths.Path(ctx, learnerID)
	if err != nil {
		return nil, apperr.Persistence(err, "No se pudo cargar la ruta")
	}
	if p == nil {
		return nil, apperr.NotFound("El estudiante no tiene una ruta de aprendizaje")
	}
	return p, nil
}

// CompleteLevel marks level completed and unlocks the next generated level.
func (s *Service) CompleteLevel(ctx context.Context, learnerID string, level bloom.Level) (*LearningPath, error) {
	p, err := s.Path(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	if err := Complete(p, level); err != nil {
		return nil, err
	}
	p.UpdatedAt = s.selector.now()
	if err := s.paths.SavePath(ctx, p); err != nil {
		return nil, apperr.Persistence(err, "No se pudo guardar el progreso")
	}
	return p, nil
}

// Complete advances p in place. Completing an already completed level is a
// no-op.
func Complete(p *LearningPath, level bloom.Level) error {
	b, ok := p.Block(level)
	if !ok {
		return apperr.NotFound("La ruta no contiene el nivel %s", level)
	}
	switch b.Status {
	case StatusCompleted:
		return nil
	case StatusOmitted:
		return apperr.Validation("El nivel %s fue omitido por dominio previo", level)
	case StatusLocked:
		return apperr.Validation("El nivel %s está bloqueado; completa primero el nivel anterior", level)
	}

	b.Status = StatusCompleted
	next := b.Order + 1
	for i := range p.Blocks {
		if p.Blocks[i].Order == next && p.Blocks[i].Status == StatusLocked {
			p.Blocks[i].Status = StatusAvailable
		}
	}
	p.ProgressPercent = progress(p)
	return nil
}

func hasContent(content map[bloom.Level][]string) bool {
	for _, texts := range content {
		if len(nonBlank(texts)) > 0 {
			return true
		}
	}
	return false
}
