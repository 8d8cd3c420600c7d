package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/rutealo/internal/bloom"
	"github.com/abhisek/rutealo/internal/evaluation"
	"github.com/abhisek/rutealo/internal/learnpath"
	"github.com/abhisek/rutealo/internal/materials"
)

func sampleProfile(learner string, at time.Time) *evaluation.MasteryProfile {
	p := &evaluation.MasteryProfile{
		LearnerID:   learner,
		EvaluatedAt: at,
		PerLevel: map[bloom.Level]evaluation.LevelResult{
			bloom.Recordar:   {Level: bloom.Recordar, CorrectCount: 2, TotalCount: 2, AccuracyPercent: 100, IsMastered: true},
			bloom.Comprender: {Level: bloom.Comprender, CorrectCount: 0, TotalCount: 1, AccuracyPercent: 0},
		},
		OverallScore:   57.14,
		CurrentLevel:   bloom.Recordar,
		ProximalZone:   []bloom.Level{bloom.Comprender, bloom.Aplicar},
		MasteredLevels: []bloom.Level{bloom.Recordar},
		GapLevels:      []bloom.Level{bloom.Comprender},
	}
	p.Recommendations = evaluation.Recommend(p)
	return p
}

func TestProfileRepoRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := openTestStore(t).Profiles()

	got, err := repo.LatestProfile(ctx, "ana")
	require.NoError(t, err)
	assert.Nil(t, got)

	at := time.Date(2026, 5, 2, 9, 30, 0, 123456789, time.UTC)
	require.NoError(t, repo.SaveProfile(ctx, sampleProfile("ana", at)))

	second := sampleProfile("ana", at.Add(time.Hour))
	second.CurrentLevel = bloom.Comprender
	require.NoError(t, repo.SaveProfile(ctx, second))

	got, err = repo.LatestProfile(ctx, "ana")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, bloom.Comprender, got.CurrentLevel)
	assert.Equal(t, at.Add(time.Hour).Truncate(time.Millisecond), got.EvaluatedAt)
	assert.Equal(t, second.PerLevel, got.PerLevel)
	assert.Equal(t, second.ProximalZone, got.ProximalZone)
	assert.Equal(t, second.Recommendations, got.Recommendations)
}

func TestProfileUpgradeAddsRecommendations(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	legacy := profileToDoc(sampleProfile("ana", time.Now()))
	legacy.SchemaVersion = ""
	legacy.Recommendations = nil
	require.NoError(t, s.Backend().Collection(CollProfiles).InsertOne(ctx, legacy))

	got, err := s.Profiles().LatestProfile(ctx, "ana")
	require.NoError(t, err)
	require.Len(t, got.Recommendations, 3)
	assert.Equal(t, evaluation.RecommendStrengths, got.Recommendations[0].Kind)
}

func TestUnsupportedSchemaRejected(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	doc := profileToDoc(sampleProfile("ana", time.Now()))
	doc.SchemaVersion = "v2.0.0"
	require.NoError(t, s.Backend().Collection(CollProfiles).InsertOne(ctx, doc))

	_, err := s.Profiles().LatestProfile(ctx, "ana")
	assert.ErrorIs(t, err, ErrUnsupportedSchema)
}

func TestEvaluationRepoNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := openTestStore(t).Evaluations()

	base := time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC)
	secs := 12.5
	for i, id := range []string{"e1", "e2", "e3"} {
		rec := &evaluation.Record{
			ID:      id,
			Profile: sampleProfile("ana", base.Add(time.Duration(i)*time.Minute)),
			Answers: []evaluation.ProcessedAnswer{
				{QuestionID: 1, ChosenOption: "A", CorrectOption: "A", IsCorrect: true, Level: bloom.Recordar, ResponseTimeSeconds: &secs},
			},
		}
		require.NoError(t, repo.AppendEvaluation(ctx, rec))
	}

	recs, err := repo.Evaluations(ctx, "ana", 2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "e3", recs[0].ID)
	assert.Equal(t, "e2", recs[1].ID)
	require.Len(t, recs[0].Answers, 1)
	assert.Equal(t, 12.5, *recs[0].Answers[0].ResponseTimeSeconds)

	all, err := repo.Evaluations(ctx, "ana", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	err = repo.AppendEvaluation(ctx, &evaluation.Record{ID: "bad"})
	assert.Error(t, err)
}

func TestExamRepo(t *testing.T) {
	ctx := context.Background()
	repo := openTestStore(t).Exams()

	got, err := repo.Exam(ctx, "ana")
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.ErrorIs(t, repo.SetExamStatus(ctx, "ana", evaluation.ExamCompleted), ErrNotFound)

	exam := &evaluation.Exam{
		LearnerID: "ana",
		Items: []evaluation.AnswerKeyItem{
			{ID: 1, Prompt: "¿Qué es?", Options: []string{"A) x", "B) y"}, CorrectOption: "B", Level: bloom.Recordar},
		},
		Status:      evaluation.ExamPending,
		GeneratedAt: time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.SaveExam(ctx, exam))
	require.NoError(t, repo.SetExamStatus(ctx, "ana", evaluation.ExamCompleted))

	got, err = repo.Exam(ctx, "ana")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, evaluation.ExamCompleted, got.Status)
	assert.Equal(t, exam.Items, got.Items)
	assert.Equal(t, exam.GeneratedAt, got.GeneratedAt)
}

func samplePath(learner string) *learnpath.LearningPath {
	now := time.Date(2026, 5, 3, 12, 0, 0, 0, time.UTC)
	return &learnpath.LearningPath{
		ID:        "p1",
		LearnerID: learner,
		Name:      "Ruta 2026-05-03",
		State:     learnpath.PathActive,
		Blocks: []learnpath.ContentBlock{
			{Level: bloom.Recordar, Strategy: learnpath.StrategyOmitted, Status: learnpath.StatusOmitted, Reason: "dominado",
				Flashcards: []learnpath.Flashcard{}, QuizItems: []learnpath.QuizItem{}},
			{Level: bloom.Comprender, Strategy: learnpath.StrategyScaffold, Order: 1, Status: learnpath.StatusAvailable,
				Flashcards: []learnpath.Flashcard{{ID: 1, Front: "f", Back: "b"}},
				QuizItems: []learnpath.QuizItem{{ID: 1, Question: "q", Options: []string{"a", "b", "c", "d"},
					CorrectOption: "a", Feedback: map[string]string{"a": "bien", "b": "no", "c": "no", "d": "no"}}}},
		},
		GeneratedLevels: []bloom.Level{bloom.Comprender},
		OmittedLevels:   []bloom.Level{bloom.Recordar},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func TestPathRepoReplace(t *testing.T) {
	ctx := context.Background()
	repo := openTestStore(t).Paths()

	got, err := repo.Path(ctx, "ana")
	require.NoError(t, err)
	assert.Nil(t, got)

	p := samplePath("ana")
	require.NoError(t, repo.SavePath(ctx, p))

	p.ProgressPercent = 50
	p.Blocks[1].Status = learnpath.StatusCompleted
	require.NoError(t, repo.SavePath(ctx, p))

	got, err = repo.Path(ctx, "ana")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, p, got)
}

func TestPathUpgradeFillsNameAndState(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	legacy := pathToDoc(samplePath("ana"))
	legacy.SchemaVersion = "1.0.0"
	legacy.Name = ""
	legacy.State = ""
	require.NoError(t, s.Backend().Collection(CollPaths).InsertOne(ctx, legacy))

	got, err := s.Paths().Path(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, "Ruta 2026-05-03", got.Name)
	assert.Equal(t, learnpath.PathActive, got.State)
}

func TestMaterialRepo(t *testing.T) {
	ctx := context.Background()
	repo := openTestStore(t).Materials()

	for _, id := range []string{"m1", "m2"} {
		require.NoError(t, repo.InsertMaterial(ctx, &materials.Material{
			ID: id, LearnerID: "ana", Filename: id + ".pdf", Status: materials.StatusPending,
			UploadedAt: time.Now(),
			Units:      []materials.Unit{{Index: 1, Kind: materials.KindPage, Text: "texto"}},
		}))
	}

	units := []materials.Unit{{
		Index: 1, Kind: materials.KindPage, Text: "texto",
		Classification: &materials.Classification{Category: "Recordar", Justification: "define", Keywords: []string{"definir"}},
	}}
	require.NoError(t, repo.UpdateMaterial(ctx, "m1", materials.StatusClassified, units))
	assert.ErrorIs(t, repo.UpdateMaterial(ctx, "nope", materials.StatusClassified, units), ErrNotFound)

	mats, err := repo.Materials(ctx, "ana")
	require.NoError(t, err)
	require.Len(t, mats, 2)
	assert.Equal(t, "m1", mats[0].ID)
	assert.Equal(t, materials.StatusClassified, mats[0].Status)
	assert.Equal(t, units, mats[0].Units)
	assert.Equal(t, materials.StatusPending, mats[1].Status)
	assert.Nil(t, mats[1].Units[0].Classification)
}

func TestDeleteLearner(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.Profiles().SaveProfile(ctx, sampleProfile("ana", time.Now())))
	require.NoError(t, s.Profiles().SaveProfile(ctx, sampleProfile("luis", time.Now())))
	require.NoError(t, s.Paths().SavePath(ctx, samplePath("ana")))
	require.NoError(t, s.Evaluations().AppendEvaluation(ctx, &evaluation.Record{ID: "e1", Profile: sampleProfile("ana", time.Now())}))

	counts, err := s.DeleteLearner(ctx, "ana")
	require.NoError(t, err)
	assert.EqualValues(t, 1, counts[CollProfiles])
	assert.EqualValues(t, 1, counts[CollPaths])
	assert.EqualValues(t, 1, counts[CollEvaluations])
	assert.EqualValues(t, 0, counts[CollExams])

	got, err := s.Profiles().LatestProfile(ctx, "luis")
	require.NoError(t, err)
	assert.NotNil(t, got)
}
