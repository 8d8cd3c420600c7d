package evaluation

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/abhisek/rutealo/internal/apperr"
	"github.com/abhisek/rutealo/internal/logger"
)

// Result is the outcome of a quiz submission. Persisted reports whether the
// profile was stored; HistoryStored whether the evaluation record was.
type Result struct {
	Profile       *MasteryProfile
	Persisted     bool
	HistoryStored bool
}

// Service runs the submission flow: load the exam, validate, score,
// persist the profile and history, and close the exam.
type Service struct {
	evaluator *Evaluator
	exams     ExamStore
	profiles  ProfileStore
	history   HistoryStore
	log       *logger.Logger
}

// NewService wires a submission service. history may be nil.
func NewService(ev *Evaluator, exams ExamStore, profiles ProfileStore, history HistoryStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{evaluator: ev, exams: exams, profiles: profiles, history: history, log: log}
}

// Submit evaluates a raw submission body for learnerID.
func (s *Service) Submit(ctx context.Context, learnerID string, body []byte) (*Result, error) {
	exam, err := s.exams.Exam(ctx, learnerID)
	if err != nil {
		return nil, apperr.Persistence(err, "No se pudo cargar el examen")
	}
	if exam == nil {
		return nil, apperr.NotFound("No se encontró examen para el usuario")
	}
	if err := ValidateExam(exam); err != nil {
		return nil, err
	}

	answers, err := ParseSubmission(body)
	if err != nil {
		return nil, err
	}
	return s.evaluate(ctx, learnerID, answers, exam)
}

func (s *Service) evaluate(ctx context.Context, learnerID string, answers []StudentAnswer, exam *Exam) (*Result, error) {
	profile, processed := s.evaluator.Score(learnerID, answers, exam.Items)
	log := s.log.With("learner_id", learnerID)
	log.Info("exam evaluated",
		"answers", len(answers),
		"scored", len(processed),
		"current_level", profile.CurrentLevel,
		"overall_score", profile.OverallScore,
	)

	res := &Result{Profile: profile}
	if err := s.evaluator.persist(ctx, profile); err != nil {
		return res, err
	}
	res.Persisted = true

	if err := s.exams.SetExamStatus(ctx, learnerID, ExamCompleted); err != nil {
		log.Warn("mark exam completed failed", "error", err)
	}

	if s.history == nil {
		return res, nil
	}
	rec := &Record{ID: uuid.NewString(), Profile: profile, Answers: processed}
	if err := s.history.AppendEvaluation(ctx, rec); err != nil {
		log.Error("append evaluation failed", "error", err)
		return res, nil
	}
	res.HistoryStored = true
	return res, nil
}

// Profile returns the learner's latest profile or a not-found error.
func (s *Service) Profile(ctx context.Context, learnerID string) (*MasteryProfile, error) {
	p, err := s.profiles.LatestProfile(ctx, learnerID)
	if err != nil {
		return nil, apperr.Persistence(err, "No se pudo cargar el perfil")
	}
	if p == nil {
		return nil, apperr.NotFound("El estudiante no tiene evaluación diagnóstica; realiza el examen inicial")
	}
	return p, nil
}

// History returns up to limit evaluation records, newest first.
func (s *Service) History(ctx context.Context, learnerID string, limit int) ([]Record, error) {
	if s.history == nil {
		return nil, nil
	}
	recs, err := s.history.Evaluations(ctx, learnerID, limit)
	if err != nil {
		return nil, fmt.Errorf("load evaluations: %w", err)
	}
	return recs, nil
}

// SaveExam stores a freshly generated exam in pending state.
func (s *Service) SaveExam(ctx context.Context, exam *Exam) error {
	if err := ValidateExam(exam); err != nil {
		return err
	}
	exam.Status = ExamPending
	if err := s.exams.SaveExam(ctx, exam); err != nil {
		return apperr.Persistence(err, "No se pudo guardar el examen")
	}
	return nil
}

// Exam returns the learner's exam or a not-found error.
func (s *Service) Exam(ctx context.Context, learnerID string) (*Exam, error) {
	exam, err := s.exams.Exam(ctx, learnerID)
	if err != nil {
		return nil, apperr.Persistence(err, "No se pudo cargar el examen")
	}
	if exam == nil {
		return nil, apperr.NotFound("No se encontró examen para el usuario")
	}
	return exam, nil
}
