package report

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/rutealo/internal/bloom"
	"github.com/abhisek/rutealo/internal/evaluation"
	"github.com/abhisek/rutealo/internal/learnpath"
)

// DefaultWidth is the report width when the caller has none.
const DefaultWidth = 72

// progressBar renders label, a bar and the percentage within width
// columns. percent is 0..100.
func progressBar(label string, percent float64, labelWidth, width int) string {
	result := bodyStyle.Render(fmt.Sprintf("%-*s", labelWidth, label)) + "  "

	barWidth := width - lipgloss.Width(result) - 6 // "  100%"
	if barWidth < 4 {
		barWidth = 4
	}

	filled := int(float64(barWidth) * percent / 100)
	filled = max(0, min(filled, barWidth))

	result += barFilled.Render(strings.Repeat(" ", filled)) +
		barEmpty.Render(strings.Repeat(" ", barWidth-filled))
	result += labelStyle.Render(fmt.Sprintf("  %d%%", int(percent)))
	return result
}

func levelStyle(p *evaluation.MasteryProfile, level bloom.Level) lipgloss.Style {
	switch {
	case p.IsMastered(level):
		return masteredStyle
	case p.InProximalZone(level):
		return proximalStyle
	default:
		return bodyStyle
	}
}

func joinLevels(levels []bloom.Level) string {
	if len(levels) == 0 {
		return "ninguno"
	}
	names := make([]string, len(levels))
	for i, l := range levels {
		names[i] = string(l)
	}
	return strings.Join(names, ", ")
}

// RenderProfile renders a learner's mastery profile, and the path when one
// is given, for a terminal of the given width.
func RenderProfile(h *bloom.Hierarchy, p *evaluation.MasteryProfile, path *learnpath.LearningPath, width int) string {
	if width <= 0 {
		width = DefaultWidth
	}
	inner := width - 4 // border + padding

	var lines []string
	lines = append(lines,
		titleStyle.Render("Perfil de dominio: "+p.LearnerID),
		labelStyle.Render("Evaluado: ")+bodyStyle.Render(p.EvaluatedAt.Local().Format("2006-01-02 15:04")),
		labelStyle.Render("Puntaje general: ")+bodyStyle.Render(fmt.Sprintf("%.2f%%", p.OverallScore)),
		labelStyle.Render("Nivel actual: ")+masteredStyle.Render(string(p.CurrentLevel)),
		"",
	)

	labelWidth := 0
	for _, level := range h.All() {
		labelWidth = max(labelWidth, lipgloss.Width(string(level)))
	}
	for _, level := range h.All() {
		r, ok := p.PerLevel[level]
		if !ok {
			lines = append(lines, labelStyle.Render(fmt.Sprintf("%-*s  sin evaluar", labelWidth, level)))
			continue
		}
		bar := progressBar(string(level), r.AccuracyPercent, labelWidth, inner-8)
		lines = append(lines, bar+"  "+levelStyle(p, level).Render(fmt.Sprintf("%d/%d", r.CorrectCount, r.TotalCount)))
	}

	lines = append(lines, "",
		labelStyle.Render("Dominados: ")+masteredStyle.Render(joinLevels(p.MasteredLevels)),
		labelStyle.Render("Brechas: ")+gapStyle.Render(joinLevels(p.GapLevels)),
		labelStyle.Render("Zona de desarrollo próximo: ")+proximalStyle.Render(joinLevels(p.ProximalZone)),
	)

	if len(p.Recommendations) > 0 {
		lines = append(lines, "", titleStyle.Render("Recomendaciones"))
		for _, r := range p.Recommendations {
			lines = append(lines,
				bodyStyle.Render("• "+r.Message),
				labelStyle.Render("  "+r.Action),
			)
		}
	}

	if path != nil {
		lines = append(lines, "", renderPath(path, inner))
	}

	return cardStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// RenderPath renders a learning path on its own.
func RenderPath(path *learnpath.LearningPath, width int) string {
	if width <= 0 {
		width = DefaultWidth
	}
	return cardStyle.Width(width).Render(renderPath(path, width-4))
}

func renderPath(path *learnpath.LearningPath, width int) string {
	lines := []string{titleStyle.Render("Ruta: " + path.Name)}
	if path.Fallback {
		lines = append(lines, gapStyle.Render("Ruta de respaldo: la generación de contenido falló"))
	}
	lines = append(lines, progressBar("Progreso", path.ProgressPercent, 8, width))
	for _, b := range path.Blocks {
		status := bodyStyle
		switch b.Status {
		case learnpath.StatusCompleted:
			status = masteredStyle
		case learnpath.StatusOmitted, learnpath.StatusLocked:
			status = labelStyle
		}
		order := "-"
		if b.Order > 0 {
			order = fmt.Sprintf("%d", b.Order)
		}
		lines = append(lines, fmt.Sprintf("%s  %s  %s  %s",
			labelStyle.Render(fmt.Sprintf("%2s", order)),
			bodyStyle.Render(fmt.Sprintf("%-11s", b.Level)),
			labelStyle.Render(fmt.Sprintf("%-9s", b.Strategy)),
			status.Render(string(b.Status)),
		))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
