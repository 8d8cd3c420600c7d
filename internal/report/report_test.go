package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/abhisek/rutealo/internal/bloom"
	"github.com/abhisek/rutealo/internal/evaluation"
	"github.com/abhisek/rutealo/internal/learnpath"
)

func testProfile() *evaluation.MasteryProfile {
	p := &evaluation.MasteryProfile{
		LearnerID:   "ana",
		EvaluatedAt: time.Date(2026, 5, 2, 9, 30, 0, 0, time.UTC),
		PerLevel: map[bloom.Level]evaluation.LevelResult{
			bloom.Recordar:   {Level: bloom.Recordar, CorrectCount: 2, TotalCount: 2, AccuracyPercent: 100, IsMastered: true},
			bloom.Comprender: {Level: bloom.Comprender, CorrectCount: 1, TotalCount: 2, AccuracyPercent: 50},
		},
		OverallScore:   66.67,
		CurrentLevel:   bloom.Recordar,
		ProximalZone:   []bloom.Level{bloom.Comprender, bloom.Aplicar},
		MasteredLevels: []bloom.Level{bloom.Recordar},
		GapLevels:      []bloom.Level{bloom.Comprender},
	}
	p.Recommendations = evaluation.Recommend(p)
	return p
}

func testPath() *learnpath.LearningPath {
	return &learnpath.LearningPath{
		Name: "Ruta 2026-05-02",
		Blocks: []learnpath.ContentBlock{
			{Level: bloom.Recordar, Strategy: learnpath.StrategyOmitted, Status: learnpath.StatusOmitted, Reason: "dominado"},
			{Level: bloom.Comprender, Strategy: learnpath.StrategyScaffold, Order: 1, Status: learnpath.StatusAvailable,
				Flashcards: make([]learnpath.Flashcard, 5), QuizItems: make([]learnpath.QuizItem, 4)},
		},
		ProgressPercent: 0,
	}
}

func TestRenderProfile(t *testing.T) {
	out := RenderProfile(bloom.New(), testProfile(), testPath(), 80)

	for _, want := range []string{"ana", "66.67%", "Recordar", "Comprender", "2/2", "sin evaluar", "Recomendaciones", "Ruta 2026-05-02", "DISPONIBLE"} {
		assert.Contains(t, out, want)
	}
}

func TestRenderProfileWithoutPath(t *testing.T) {
	out := RenderProfile(bloom.New(), testProfile(), nil, 0)
	assert.NotContains(t, out, "Ruta")
}

func TestRenderPath(t *testing.T) {
	out := RenderPath(testPath(), 0)
	assert.Contains(t, out, "Ruta 2026-05-02")
	assert.NotContains(t, out, "Perfil de dominio")
}

func TestProgressBarClamps(t *testing.T) {
	full := progressBar("x", 250, 1, 30)
	empty := progressBar("x", -10, 1, 30)
	assert.Contains(t, full, "250%")
	assert.Equal(t, lipglossWidth(full), lipglossWidth(empty))
}

func TestWriteWorkbook(t *testing.T) {
	var buf bytes.Buffer
	secs := 3.0
	err := WriteWorkbook(&buf, bloom.New(), Workbook{
		Profile: testProfile(),
		History: []evaluation.Record{{
			ID:      "e1",
			Profile: testProfile(),
			Answers: []evaluation.ProcessedAnswer{
				{QuestionID: 1, IsCorrect: true, ResponseTimeSeconds: &secs},
				{QuestionID: 2},
			},
		}},
		Path: testPath(),
	})
	require.NoError(t, err)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetProfile, SheetRecommendations, SheetHistory, SheetPath}, f.GetSheetList())

	v, err := f.GetCellValue(SheetProfile, "B1")
	require.NoError(t, err)
	assert.Equal(t, "ana", v)

	rows, err := f.GetRows(SheetProfile)
	require.NoError(t, err)
	require.Len(t, rows, 9) // 5 summary rows, blank, header, 2 levels
	assert.Equal(t, []string{"Recordar", "2", "2", "100", "Sí"}, rows[7])

	history, err := f.GetRows(SheetHistory)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "1", history[1][4])

	path, err := f.GetRows(SheetPath)
	require.NoError(t, err)
	require.Len(t, path, 3)
	assert.Equal(t, "Comprender", path[2][1])
	assert.Equal(t, "5", path[2][4])

	recs, err := f.GetRows(SheetRecommendations)
	require.NoError(t, err)
	assert.Len(t, recs, 4)
	assert.True(t, strings.HasPrefix(recs[1][1], "El estudiante domina"))
}

func TestWriteWorkbookRequiresProfile(t *testing.T) {
	assert.Error(t, WriteWorkbook(&bytes.Buffer{}, bloom.New(), Workbook{}))
}

func lipglossWidth(s string) int { return lipgloss.Width(s) }
