package store

import (
	"context"
	"fmt"

	"github.com/abhisek/rutealo/internal/evaluation"
	"github.com/abhisek/rutealo/internal/learnpath"
	"github.com/abhisek/rutealo/internal/materials"
)

var (
	_ evaluation.ProfileStore = (*ProfileRepo)(nil)
	_ evaluation.HistoryStore = (*EvaluationRepo)(nil)
	_ evaluation.ExamStore    = (*ExamRepo)(nil)
	_ learnpath.PathStore     = (*PathRepo)(nil)
	_ learnpath.ProfileSource = (*ProfileRepo)(nil)
	_ materials.Store         = (*MaterialRepo)(nil)
)

func byLearner(learnerID string) Filter { return Filter{learnerKey: learnerID} }

// ProfileRepo keeps the latest mastery profile of each learner.
type ProfileRepo struct {
	col Collection
}

// SaveProfile replaces the learner's profile.
func (r *ProfileRepo) SaveProfile(ctx context.Context, p *evaluation.MasteryProfile) error {
	if err := r.col.ReplaceOne(ctx, byLearner(p.LearnerID), profileToDoc(p)); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// LatestProfile returns the learner's profile, or nil when none exists.
func (r *ProfileRepo) LatestProfile(ctx context.Context, learnerID string) (*evaluation.MasteryProfile, error) {
	var d profileDoc
	found, err := r.col.FindOne(ctx, byLearner(learnerID), &d, SortDesc("fecha_evaluacion"))
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if !found {
		return nil, nil
	}
	return profileFromDoc(d)
}

// EvaluationRepo appends evaluation history records.
type EvaluationRepo struct {
	col Collection
}

func (r *EvaluationRepo) AppendEvaluation(ctx context.Context, rec *evaluation.Record) error {
	if rec.Profile == nil {
		return fmt.Errorf("append evaluation %s: missing profile", rec.ID)
	}
	if err := r.col.InsertOne(ctx, evaluationToDoc(rec)); err != nil {
		return fmt.Errorf("append evaluation: %w", err)
	}
	return nil
}

// Evaluations returns up to limit records, newest first. Zero means all.
func (r *EvaluationRepo) Evaluations(ctx context.Context, learnerID string, limit int) ([]evaluation.Record, error) {
	var docs []evaluationDoc
	if err := r.col.Find(ctx, byLearner(learnerID), &docs, SortDesc("fecha"), Limit(limit)); err != nil {
		return nil, fmt.Errorf("load evaluations: %w", err)
	}
	out := make([]evaluation.Record, 0, len(docs))
	for _, d := range docs {
		rec, err := evaluationFromDoc(d)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, nil
}

// ExamRepo keeps one diagnostic exam per learner.
type ExamRepo struct {
	col Collection
}

func (r *ExamRepo) SaveExam(ctx context.Context, exam *evaluation.Exam) error {
	if err := r.col.ReplaceOne(ctx, byLearner(exam.LearnerID), examToDoc(exam)); err != nil {
		return fmt.Errorf("save exam: %w", err)
	}
	return nil
}

// Exam returns the learner's exam, or nil when none exists.
func (r *ExamRepo) Exam(ctx context.Context, learnerID string) (*evaluation.Exam, error) {
	var d examDoc
	found, err := r.col.FindOne(ctx, byLearner(learnerID), &d)
	if err != nil {
		return nil, fmt.Errorf("load exam: %w", err)
	}
	if !found {
		return nil, nil
	}
	return examFromDoc(d)
}

// SetExamStatus updates the exam state. It returns ErrNotFound when the
// learner has no exam.
func (r *ExamRepo) SetExamStatus(ctx context.Context, learnerID string, status evaluation.ExamStatus) error {
	matched, err := r.col.UpdateOne(ctx, byLearner(learnerID), map[string]any{"estado": string(status)})
	if err != nil {
		return fmt.Errorf("set exam status: %w", err)
	}
	if !matched {
		return ErrNotFound
	}
	return nil
}

// PathRepo keeps the active learning path of each learner.
type PathRepo struct {
	col Collection
}

func (r *PathRepo) SavePath(ctx context.Context, p *learnpath.LearningPath) error {
	if err := r.col.ReplaceOne(ctx, byLearner(p.LearnerID), pathToDoc(p)); err != nil {
		return fmt.Errorf("save path: %w", err)
	}
	return nil
}

// Path returns the learner's path, or nil when none exists.
func (r *PathRepo) Path(ctx context.Context, learnerID string) (*learnpath.LearningPath, error) {
	var d pathDoc
	found, err := r.col.FindOne(ctx, byLearner(learnerID), &d)
	if err != nil {
		return nil, fmt.Errorf("load path: %w", err)
	}
	if !found {
		return nil, nil
	}
	return pathFromDoc(d)
}

// MaterialRepo stores uploaded materials and their classification.
type MaterialRepo struct {
	col Collection
}

func (r *MaterialRepo) InsertMaterial(ctx context.Context, m *materials.Material) error {
	if err := r.col.InsertOne(ctx, materialToDoc(m)); err != nil {
		return fmt.Errorf("insert material: %w", err)
	}
	return nil
}

// Materials returns the learner's materials in upload order.
func (r *MaterialRepo) Materials(ctx context.Context, learnerID string) ([]materials.Material, error) {
	var docs []materialDoc
	if err := r.col.Find(ctx, byLearner(learnerID), &docs); err != nil {
		return nil, fmt.Errorf("load materials: %w", err)
	}
	out := make([]materials.Material, 0, len(docs))
	for _, d := range docs {
		m, err := materialFromDoc(d)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, nil
}

// UpdateMaterial sets the status and units of material id.
func (r *MaterialRepo) UpdateMaterial(ctx context.Context, id string, status materials.Status, units []materials.Unit) error {
	matched, err := r.col.UpdateOne(ctx, Filter{"id": id}, map[string]any{
		"estado":   string(status),
		"unidades": unitsToDocs(units),
	})
	if err != nil {
		return fmt.Errorf("update material %s: %w", id, err)
	}
	if !matched {
		return ErrNotFound
	}
	return nil
}
