// Package report renders mastery profiles for people: a styled terminal
// summary and a spreadsheet export.
package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/abhisek/rutealo/internal/bloom"
	"github.com/abhisek/rutealo/internal/evaluation"
	"github.com/abhisek/rutealo/internal/learnpath"
)

// Sheet names.
const (
	SheetProfile         = "Perfil"
	SheetRecommendations = "Recomendaciones"
	SheetHistory         = "Historial"
	SheetPath            = "Ruta"
)

// Workbook is everything exported for one learner. History and Path are
// optional.
type Workbook struct {
	Profile *evaluation.MasteryProfile
	History []evaluation.Record
	Path    *learnpath.LearningPath
}

// WriteWorkbook writes wb as an .xlsx document to w.
func WriteWorkbook(w io.Writer, h *bloom.Hierarchy, wb Workbook) error {
	if wb.Profile == nil {
		return fmt.Errorf("report: profile is required")
	}
	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}
	sw := &sheetWriter{f: f, bold: bold}

	if err := f.SetSheetName("Sheet1", SheetProfile); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	writeProfile(sw, h, wb.Profile)

	sw.newSheet(SheetRecommendations)
	sw.header(SheetRecommendations, "Tipo", "Mensaje", "Acción")
	for i, r := range wb.Profile.Recommendations {
		sw.row(SheetRecommendations, i+2, string(r.Kind), r.Message, r.Action)
	}

	if len(wb.History) > 0 {
		sw.newSheet(SheetHistory)
		sw.header(SheetHistory, "Fecha", "Puntaje general", "Nivel actual", "Respuestas", "Correctas")
		for i, rec := range wb.History {
			correct := 0
			for _, a := range rec.Answers {
				if a.IsCorrect {
					correct++
				}
			}
			sw.row(SheetHistory, i+2,
				rec.Profile.EvaluatedAt.UTC().Format("2006-01-02 15:04:05"),
				rec.Profile.OverallScore,
				string(rec.Profile.CurrentLevel),
				len(rec.Answers),
				correct,
			)
		}
	}

	if wb.Path != nil {
		sw.newSheet(SheetPath)
		sw.header(SheetPath, "Orden", "Nivel", "Estrategia", "Estado", "Flashcards", "Preguntas", "Motivo")
		for i, b := range wb.Path.Blocks {
			sw.row(SheetPath, i+2,
				b.Order, string(b.Level), string(b.Strategy), string(b.Status),
				len(b.Flashcards), len(b.QuizItems), b.Reason,
			)
		}
	}

	if sw.err != nil {
		return sw.err
	}
	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeProfile(sw *sheetWriter, h *bloom.Hierarchy, p *evaluation.MasteryProfile) {
	s := SheetProfile
	sw.row(s, 1, "Estudiante", p.LearnerID)
	sw.row(s, 2, "Evaluado", p.EvaluatedAt.UTC().Format("2006-01-02 15:04:05"))
	sw.row(s, 3, "Puntaje general", p.OverallScore)
	sw.row(s, 4, "Nivel actual", string(p.CurrentLevel))
	sw.row(s, 5, "Zona de desarrollo próximo", joinLevels(p.ProximalZone))
	sw.boldRange(s, "A1", "A5")

	const top = 7
	sw.headerAt(s, top, "Nivel", "Correctas", "Total", "Porcentaje", "Dominado")
	row := top + 1
	for _, level := range h.All() {
		r, ok := p.PerLevel[level]
		if !ok {
			continue
		}
		mastered := "No"
		if r.IsMastered {
			mastered = "Sí"
		}
		sw.row(s, row, string(level), r.CorrectCount, r.TotalCount, r.AccuracyPercent, mastered)
		row++
	}
	if sw.err == nil {
		sw.err = sw.f.SetColWidth(s, "A", "A", 28)
	}
}

// sheetWriter keeps the first error so the cell writes read linearly.
type sheetWriter struct {
	f    *excelize.File
	bold int
	err  error
}

func (sw *sheetWriter) newSheet(name string) {
	if sw.err != nil {
		return
	}
	_, sw.err = sw.f.NewSheet(name)
}

func (sw *sheetWriter) row(sheet string, row int, values ...any) {
	for i, v := range values {
		if sw.err != nil {
			return
		}
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			sw.err = err
			return
		}
		sw.err = sw.f.SetCellValue(sheet, cell, v)
	}
}

func (sw *sheetWriter) header(sheet string, titles ...string) {
	sw.headerAt(sheet, 1, titles...)
}

func (sw *sheetWriter) headerAt(sheet string, row int, titles ...string) {
	values := make([]any, len(titles))
	for i, t := range titles {
		values[i] = t
	}
	sw.row(sheet, row, values...)
	if sw.err != nil || len(titles) == 0 {
		return
	}
	first, _ := excelize.CoordinatesToCellName(1, row)
	last, _ := excelize.CoordinatesToCellName(len(titles), row)
	sw.boldRange(sheet, first, last)
}

func (sw *sheetWriter) boldRange(sheet, from, to string) {
	if sw.err != nil {
		return
	}
	sw.err = sw.f.SetCellStyle(sheet, from, to, sw.bold)
}
