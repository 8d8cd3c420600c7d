package evaluation

import (
	"fmt"
	"strings"

	"github.com/abhisek/rutealo/internal/bloom"
)

// Recommend derives the pedagogical notes for a profile: strengths, gaps
// and the proximal zone, each only when non-empty.
func Recommend(p *MasteryProfile) []Recommendation {
	recs := []Recommendation{}
	if len(p.MasteredLevels) > 0 {
		recs = append(recs, Recommendation{
			Kind:    RecommendStrengths,
			Message: fmt.Sprintf("El estudiante domina los siguientes niveles: %s", joinLevels(p.MasteredLevels)),
			Action:  "Omitir o acelerar estos temas en la ruta",
		})
	}
	if len(p.GapLevels) > 0 {
		recs = append(recs, Recommendation{
			Kind:    RecommendGaps,
			Message: fmt.Sprintf("Necesita refuerzo en: %s", joinLevels(p.GapLevels)),
			Action:  "Enfatizar estos niveles con ejercicios prácticos y tutorización",
		})
	}
	if len(p.ProximalZone) > 0 {
		recs = append(recs, Recommendation{
			Kind:    RecommendProximal,
			Message: fmt.Sprintf("Próximos objetivos de aprendizaje (ZDP): %s", joinLevels(p.ProximalZone)),
			Action:  "Trabajar estos niveles con apoyo estructurado",
		})
	}
	return recs
}

func joinLevels(levels []bloom.Level) string {
	names := make([]string, len(levels))
	for i, l := range levels {
		names[i] = string(l)
	}
	return strings.Join(names, ", ")
}
