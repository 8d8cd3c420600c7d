package materials

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/rutealo/internal/apperr"
	"github.com/abhisek/rutealo/internal/bloom"
	"github.com/abhisek/rutealo/internal/logger"
)

// MaxUnits bounds the units accepted in one material.
const MaxUnits = 2000

// Service ingests extracted text and classifies it.
type Service struct {
	hierarchy  *bloom.Hierarchy
	store      Store
	classifier Classifier
	log        *logger.Logger
	now        func() time.Time
}

// NewService creates a materials service. classifier may be nil when no LLM
// is configured; ClassifyPending then fails with a generation error.
func NewService(h *bloom.Hierarchy, store Store, classifier Classifier, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		hierarchy:  h,
		store:      store,
		classifier: classifier,
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// UnitInput is an extracted unit as received from the uploader.
type UnitInput struct {
	Kind UnitKind `json:"tipo"`
	Text string   `json:"texto"`
}

// Ingest stores a new pending material.
func (s *Service) Ingest(ctx context.Context, learnerID, filename string, units []UnitInput) (*Material, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, apperr.Validation("El nombre de archivo es obligatorio")
	}
	if len(units) == 0 {
		return nil, apperr.Validation("El material no contiene texto")
	}
	if len(units) > MaxUnits {
		return nil, apperr.Validation("Demasiadas unidades (máx: %d)", MaxUnits)
	}

	m := &Material{
		ID:         uuid.NewString(),
		LearnerID:  learnerID,
		Filename:   filename,
		UploadedAt: s.now(),
		Status:     StatusPending,
		Units:      make([]Unit, 0, len(units)),
	}
	for i, u := range units {
		kind := u.Kind
		if kind == "" {
			kind = KindParagraph
		}
		m.Units = append(m.Units, Unit{Index: i + 1, Kind: kind, Text: u.Text})
	}

	if err := s.store.InsertMaterial(ctx, m); err != nil {
		return nil, apperr.Persistence(err, "No se pudo guardar el material")
	}
	s.log.Info("material ingested", "learner_id", learnerID, "material_id", m.ID, "units", len(m.Units))
	return m, nil
}

// List returns the learner's materials.
func (s *Service) List(ctx context.Context, learnerID string) ([]Material, error) {
	mats, err := s.store.Materials(ctx, learnerID)
	if err != nil {
		return nil, apperr.Persistence(err, "No se pudieron cargar los materiales")
	}
	return mats, nil
}

// ClassifySummary reports what ClassifyPending did.
type ClassifySummary struct {
	Materials int            `json:"materiales"`
	Units     int            `json:"unidades"`
	ByLevel   map[string]int `json:"por_nivel"`
}

// ClassifyPending labels every unit of every pending material. Units that
// are blank or fail to classify get bloom.Other; they never abort the run.
func (s *Service) ClassifyPending(ctx context.Context, learnerID string) (*ClassifySummary, error) {
	if s.classifier == nil {
		return nil, apperr.Generation(nil, "El clasificador Bloom no está configurado")
	}
	mats, err := s.List(ctx, learnerID)
	if err != nil {
		return nil, err
	}

	sum := &ClassifySummary{ByLevel: map[string]int{}}
	for _, m := range mats {
		if m.Status != StatusPending {
			continue
		}
		log := s.log.With("learner_id", learnerID, "material_id", m.ID)
		for i := range m.Units {
			c := s.classifyUnit(ctx, log, m.Units[i])
			m.Units[i].Classification = c
			sum.Units++
			sum.ByLevel[c.Category]++
		}
		if err := s.store.UpdateMaterial(ctx, m.ID, StatusClassified, m.Units); err != nil {
			return sum, apperr.Persistence(err, "No se pudo guardar la clasificación de %s", m.Filename)
		}
		sum.Materials++
	}
	return sum, nil
}

func (s *Service) classifyUnit(ctx context.Context, log *logger.Logger, u Unit) *Classification {
	if strings.TrimSpace(u.Text) == "" {
		return &Classification{Category: bloom.Other, Justification: "Texto vacío o no válido", Keywords: []string{}}
	}
	c, err := s.classifier.Classify(ctx, u.Text)
	if err != nil {
		log.Warn("unit classification failed", "unit", u.Index, "error", err)
		return &Classification{
			Category:      bloom.Other,
			Justification: fmt.Sprintf("Error en la clasificación: %v", err),
			Keywords:      []string{},
		}
	}
	if level, ok := s.hierarchy.Match(c.Category); ok {
		c.Category = string(level)
	} else {
		c.Category = bloom.Other
	}
	return c
}

// ContentByLevel loads the learner's materials and groups them by level.
func (s *Service) ContentByLevel(ctx context.Context, learnerID string) (map[bloom.Level][]string, error) {
	mats, err := s.store.Materials(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	return ContentByLevel(s.hierarchy, mats), nil
}

// Corpus concatenates every classified text of the learner, in order.
func (s *Service) Corpus(ctx context.Context, learnerID string) (string, error) {
	mats, err := s.store.Materials(ctx, learnerID)
	if err != nil {
		return "", apperr.Persistence(err, "No se pudieron cargar los materiales")
	}
	var b strings.Builder
	for _, m := range mats {
		for _, u := range m.Units {
			if u.Classification == nil || u.Classification.Category == bloom.Other {
				continue
			}
			if b.Len() > 0 {
				b.WriteString("\n\n")
			}
			b.WriteString(u.Text)
		}
	}
	return b.String(), nil
}
