package evaluation

import "context"

// ProfileStore persists the latest profile per learner. SaveProfile
// replaces any prior profile; LatestProfile returns nil when none exists.
type ProfileStore interface {
	SaveProfile(ctx context.Context, p *MasteryProfile) error
	LatestProfile(ctx context.Context, learnerID string) (*MasteryProfile, error)
}

// ExamStore persists one diagnostic exam per learner.
type ExamStore interface {
	SaveExam(ctx context.Context, exam *Exam) error
	Exam(ctx context.Context, learnerID string) (*Exam, error)
	SetExamStatus(ctx context.Context, learnerID string, status ExamStatus) error
}

// HistoryStore appends evaluation records.
type HistoryStore interface {
	AppendEvaluation(ctx context.Context, rec *Record) error
	Evaluations(ctx context.Context, learnerID string, limit int) ([]Record, error)
}
