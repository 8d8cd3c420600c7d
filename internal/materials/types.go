package materials

import (
	"context"
	"time"

	"github.com/abhisek/rutealo/internal/bloom"
)

// Status is the classification state of a material.
type Status string

const (
	StatusPending    Status = "PENDIENTE"
	StatusClassified Status = "BLOOM_COMPLETADO"
	StatusFailed     Status = "ERROR"
)

// UnitKind names the extraction granularity of a unit.
type UnitKind string

const (
	KindPage      UnitKind = "pagina"
	KindParagraph UnitKind = "parrafo"
	KindSlide     UnitKind = "diapositiva"
)

// Classification is the Bloom label assigned to a unit.
type Classification struct {
	Category      string   `json:"categoria_bloom"`
	Justification string   `json:"justificacion"`
	Keywords      []string `json:"palabras_clave"`
}

// Unit is one extracted piece of text.
type Unit struct {
	Index          int             `json:"indice"`
	Kind           UnitKind        `json:"tipo"`
	Text           string          `json:"texto"`
	Classification *Classification `json:"clasificacion,omitempty"`
}

// Material is an uploaded document after text extraction.
type Material struct {
	ID         string    `json:"id"`
	LearnerID  string    `json:"learner_id"`
	Filename   string    `json:"filename"`
	UploadedAt time.Time `json:"uploaded_at"`
	Status     Status    `json:"estado"`
	Units      []Unit    `json:"unidades"`
}

// Classifier labels a text with a Bloom category. Implementations return
// bloom.Other when the text does not fit any level.
type Classifier interface {
	Classify(ctx context.Context, text string) (*Classification, error)
}

// Store persists materials.
type Store interface {
	InsertMaterial(ctx context.Context, m *Material) error
	Materials(ctx context.Context, learnerID string) ([]Material, error)
	UpdateMaterial(ctx context.Context, id string, status Status, units []Unit) error
}

// ContentByLevel groups classified unit texts by level. A unit is listed
// under every level whose name appears in its category. Texts keep material
// order, then unit order.
func ContentByLevel(h *bloom.Hierarchy, mats []Material) map[bloom.Level][]string {
	out := make(map[bloom.Level][]string)
	for _, m := range mats {
		for _, u := range m.Units {
			if u.Classification == nil || u.Classification.Category == bloom.Other {
				continue
			}
			for _, level := range h.All() {
				if h.Matches(level, u.Classification.Category) {
					out[level] = append(out[level], u.Text)
				}
			}
		}
	}
	return out
}
