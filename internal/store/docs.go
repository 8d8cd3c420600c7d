package store

import (
	"fmt"
	"time"

	"github.com/abhisek/rutealo/internal/bloom"
	"github.com/abhisek/rutealo/internal/evaluation"
	"github.com/abhisek/rutealo/internal/learnpath"
	"github.com/abhisek/rutealo/internal/materials"
)

// Stored document shapes. Field names are shared by the bson and json tags
// so both backends hold the same documents.

type levelResultDoc struct {
	Correct  int     `bson:"correctas" json:"correctas"`
	Total    int     `bson:"total" json:"total"`
	Percent  float64 `bson:"porcentaje" json:"porcentaje"`
	Mastered bool    `bson:"dominado" json:"dominado"`
}

type recommendationDoc struct {
	Kind    string `bson:"tipo" json:"tipo"`
	Message string `bson:"mensaje" json:"mensaje"`
	Action  string `bson:"accion" json:"accion"`
}

type profileDoc struct {
	SchemaVersion   string                    `bson:"schema_version" json:"schema_version"`
	Learner         string                    `bson:"usuario" json:"usuario"`
	EvaluatedAt     time.Time                 `bson:"fecha_evaluacion" json:"fecha_evaluacion"`
	PerLevel        map[string]levelResultDoc `bson:"resultados_por_nivel" json:"resultados_por_nivel"`
	OverallScore    float64                   `bson:"puntaje_general" json:"puntaje_general"`
	CurrentLevel    string                    `bson:"nivel_actual" json:"nivel_actual"`
	ProximalZone    []string                  `bson:"zona_desarrollo_proximo" json:"zona_desarrollo_proximo"`
	Mastered        []string                  `bson:"niveles_dominados" json:"niveles_dominados"`
	Gaps            []string                  `bson:"niveles_brecha" json:"niveles_brecha"`
	Recommendations []recommendationDoc       `bson:"recomendaciones,omitempty" json:"recomendaciones,omitempty"`
}

type answerDoc struct {
	QuestionID    int      `bson:"pregunta_id" json:"pregunta_id"`
	Chosen        string   `bson:"respuesta" json:"respuesta"`
	Correct       string   `bson:"respuesta_correcta" json:"respuesta_correcta"`
	IsCorrect     bool     `bson:"es_correcta" json:"es_correcta"`
	Level         string   `bson:"nivel_bloom" json:"nivel_bloom"`
	ResponseTimeS *float64 `bson:"tiempo_seg,omitempty" json:"tiempo_seg,omitempty"`
}

type evaluationDoc struct {
	SchemaVersion string      `bson:"schema_version" json:"schema_version"`
	ID            string      `bson:"id" json:"id"`
	Learner       string      `bson:"usuario" json:"usuario"`
	Date          time.Time   `bson:"fecha" json:"fecha"`
	Profile       profileDoc  `bson:"perfil" json:"perfil"`
	Answers       []answerDoc `bson:"respuestas" json:"respuestas"`
}

type examItemDoc struct {
	ID      int      `bson:"id" json:"id"`
	Prompt  string   `bson:"pregunta" json:"pregunta"`
	Options []string `bson:"opciones" json:"opciones"`
	Correct string   `bson:"respuesta_correcta" json:"respuesta_correcta"`
	Level   string   `bson:"nivel_bloom_evaluado" json:"nivel_bloom_evaluado"`
}

type examDoc struct {
	SchemaVersion string        `bson:"schema_version" json:"schema_version"`
	Learner       string        `bson:"usuario" json:"usuario"`
	Items         []examItemDoc `bson:"pruebas" json:"pruebas"`
	Status        string        `bson:"estado" json:"estado"`
	GeneratedAt   time.Time     `bson:"fecha_generacion" json:"fecha_generacion"`
}

type flashcardDoc struct {
	ID    int    `bson:"id" json:"id"`
	Front string `bson:"frente" json:"frente"`
	Back  string `bson:"reverso" json:"reverso"`
	Seen  bool   `bson:"visto" json:"visto"`
}

type quizDoc struct {
	ID       int               `bson:"id" json:"id"`
	Question string            `bson:"pregunta" json:"pregunta"`
	Options  []string          `bson:"opciones" json:"opciones"`
	Correct  string            `bson:"respuesta_correcta" json:"respuesta_correcta"`
	Feedback map[string]string `bson:"feedback" json:"feedback"`
	Done     bool              `bson:"realizado" json:"realizado"`
}

type blockDoc struct {
	Level      string         `bson:"nivel" json:"nivel"`
	Strategy   string         `bson:"estrategia" json:"estrategia"`
	Order      int            `bson:"orden" json:"orden"`
	Status     string         `bson:"estado" json:"estado"`
	Reason     string         `bson:"motivo,omitempty" json:"motivo,omitempty"`
	Flashcards []flashcardDoc `bson:"flashcards" json:"flashcards"`
	Quiz       []quizDoc      `bson:"quiz" json:"quiz"`
}

type pathDoc struct {
	SchemaVersion string     `bson:"schema_version" json:"schema_version"`
	ID            string     `bson:"id" json:"id"`
	Learner       string     `bson:"usuario" json:"usuario"`
	Name          string     `bson:"nombre_ruta" json:"nombre_ruta"`
	State         string     `bson:"estado" json:"estado"`
	Blocks        []blockDoc `bson:"bloques" json:"bloques"`
	Generated     []string   `bson:"niveles_generados" json:"niveles_generados"`
	Omitted       []string   `bson:"niveles_omitidos" json:"niveles_omitidos"`
	Progress      float64    `bson:"progreso" json:"progreso"`
	Fallback      bool       `bson:"fallback" json:"fallback"`
	CreatedAt     time.Time  `bson:"fecha_creacion" json:"fecha_creacion"`
	UpdatedAt     time.Time  `bson:"fecha_actualizacion" json:"fecha_actualizacion"`
}

type classificationDoc struct {
	Category      string   `bson:"categoria_bloom" json:"categoria_bloom"`
	Justification string   `bson:"justificacion" json:"justificacion"`
	Keywords      []string `bson:"palabras_clave" json:"palabras_clave"`
}

type unitDoc struct {
	Index          int                `bson:"indice" json:"indice"`
	Kind           string             `bson:"tipo" json:"tipo"`
	Text           string             `bson:"texto" json:"texto"`
	Classification *classificationDoc `bson:"clasificacion,omitempty" json:"clasificacion,omitempty"`
}

type materialDoc struct {
	SchemaVersion string    `bson:"schema_version" json:"schema_version"`
	ID            string    `bson:"id" json:"id"`
	Learner       string    `bson:"usuario" json:"usuario"`
	Filename      string    `bson:"nombre_archivo" json:"nombre_archivo"`
	UploadedAt    time.Time `bson:"fecha_subida" json:"fecha_subida"`
	Status        string    `bson:"estado" json:"estado"`
	Units         []unitDoc `bson:"unidades" json:"unidades"`
}

// storedTime is t as both backends keep it: UTC, millisecond precision.
func storedTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

func levelStrings(levels []bloom.Level) []string {
	out := make([]string, len(levels))
	for i, l := range levels {
		out[i] = string(l)
	}
	return out
}

func levelsOf(ss []string) []bloom.Level {
	out := make([]bloom.Level, len(ss))
	for i, s := range ss {
		out[i] = bloom.Level(s)
	}
	return out
}

// Profiles.

func profileToDoc(p *evaluation.MasteryProfile) profileDoc {
	d := profileDoc{
		SchemaVersion: SchemaVersion,
		Learner:       p.LearnerID,
		EvaluatedAt:   storedTime(p.EvaluatedAt),
		PerLevel:      make(map[string]levelResultDoc, len(p.PerLevel)),
		OverallScore:  p.OverallScore,
		CurrentLevel:  string(p.CurrentLevel),
		ProximalZone:  levelStrings(p.ProximalZone),
		Mastered:      levelStrings(p.MasteredLevels),
		Gaps:          levelStrings(p.GapLevels),
	}
	for level, r := range p.PerLevel {
		d.PerLevel[string(level)] = levelResultDoc{
			Correct:  r.CorrectCount,
			Total:    r.TotalCount,
			Percent:  r.AccuracyPercent,
			Mastered: r.IsMastered,
		}
	}
	for _, r := range p.Recommendations {
		d.Recommendations = append(d.Recommendations, recommendationDoc{
			Kind: string(r.Kind), Message: r.Message, Action: r.Action,
		})
	}
	return d
}

func profileFromDoc(d profileDoc) (*evaluation.MasteryProfile, error) {
	if err := checkVersion(d.SchemaVersion); err != nil {
		return nil, err
	}
	p := &evaluation.MasteryProfile{
		LearnerID:      d.Learner,
		EvaluatedAt:    d.EvaluatedAt.UTC(),
		PerLevel:       make(map[bloom.Level]evaluation.LevelResult, len(d.PerLevel)),
		OverallScore:   d.OverallScore,
		CurrentLevel:   bloom.Level(d.CurrentLevel),
		ProximalZone:   levelsOf(d.ProximalZone),
		MasteredLevels: levelsOf(d.Mastered),
		GapLevels:      levelsOf(d.Gaps),
	}
	for name, r := range d.PerLevel {
		level := bloom.Level(name)
		p.PerLevel[level] = evaluation.LevelResult{
			Level:           level,
			CorrectCount:    r.Correct,
			TotalCount:      r.Total,
			AccuracyPercent: r.Percent,
			IsMastered:      r.Mastered,
		}
	}
	for _, r := range d.Recommendations {
		p.Recommendations = append(p.Recommendations, evaluation.Recommendation{
			Kind: evaluation.RecommendationKind(r.Kind), Message: r.Message, Action: r.Action,
		})
	}
	if olderThan(d.SchemaVersion, "v1.1.0") && len(p.Recommendations) == 0 {
		p.Recommendations = evaluation.Recommend(p)
	}
	return p, nil
}

// Evaluations.

func evaluationToDoc(rec *evaluation.Record) evaluationDoc {
	d := evaluationDoc{
		SchemaVersion: SchemaVersion,
		ID:            rec.ID,
		Learner:       rec.Profile.LearnerID,
		Date:          storedTime(rec.Profile.EvaluatedAt),
		Profile:       profileToDoc(rec.Profile),
		Answers:       make([]answerDoc, len(rec.Answers)),
	}
	for i, a := range rec.Answers {
		d.Answers[i] = answerDoc{
			QuestionID:    a.QuestionID,
			Chosen:        a.ChosenOption,
			Correct:       a.CorrectOption,
			IsCorrect:     a.IsCorrect,
			Level:         string(a.Level),
			ResponseTimeS: a.ResponseTimeSeconds,
		}
	}
	return d
}

func evaluationFromDoc(d evaluationDoc) (*evaluation.Record, error) {
	if err := checkVersion(d.SchemaVersion); err != nil {
		return nil, err
	}
	profile, err := profileFromDoc(d.Profile)
	if err != nil {
		return nil, fmt.Errorf("evaluation %s: %w", d.ID, err)
	}
	rec := &evaluation.Record{ID: d.ID, Profile: profile, Answers: make([]evaluation.ProcessedAnswer, len(d.Answers))}
	for i, a := range d.Answers {
		rec.Answers[i] = evaluation.ProcessedAnswer{
			QuestionID:          a.QuestionID,
			ChosenOption:        a.Chosen,
			CorrectOption:       a.Correct,
			IsCorrect:           a.IsCorrect,
			Level:               bloom.Level(a.Level),
			ResponseTimeSeconds: a.ResponseTimeS,
		}
	}
	return rec, nil
}

// Exams.

func examToDoc(e *evaluation.Exam) examDoc {
	d := examDoc{
		SchemaVersion: SchemaVersion,
		Learner:       e.LearnerID,
		Items:         make([]examItemDoc, len(e.Items)),
		Status:        string(e.Status),
		GeneratedAt:   storedTime(e.GeneratedAt),
	}
	for i, it := range e.Items {
		d.Items[i] = examItemDoc{
			ID: it.ID, Prompt: it.Prompt, Options: it.Options,
			Correct: it.CorrectOption, Level: string(it.Level),
		}
	}
	return d
}

func examFromDoc(d examDoc) (*evaluation.Exam, error) {
	if err := checkVersion(d.SchemaVersion); err != nil {
		return nil, err
	}
	e := &evaluation.Exam{
		LearnerID:   d.Learner,
		Items:       make([]evaluation.AnswerKeyItem, len(d.Items)),
		Status:      evaluation.ExamStatus(d.Status),
		GeneratedAt: d.GeneratedAt.UTC(),
	}
	if e.Status == "" {
		e.Status = evaluation.ExamPending
	}
	for i, it := range d.Items {
		e.Items[i] = evaluation.AnswerKeyItem{
			ID: it.ID, Prompt: it.Prompt, Options: it.Options,
			CorrectOption: it.Correct, Level: bloom.Level(it.Level),
		}
	}
	return e, nil
}

// Paths.

func pathToDoc(p *learnpath.LearningPath) pathDoc {
	d := pathDoc{
		SchemaVersion: SchemaVersion,
		ID:            p.ID,
		Learner:       p.LearnerID,
		Name:          p.Name,
		State:         p.State,
		Blocks:        make([]blockDoc, len(p.Blocks)),
		Generated:     levelStrings(p.GeneratedLevels),
		Omitted:       levelStrings(p.OmittedLevels),
		Progress:      p.ProgressPercent,
		Fallback:      p.Fallback,
		CreatedAt:     storedTime(p.CreatedAt),
		UpdatedAt:     storedTime(p.UpdatedAt),
	}
	for i, b := range p.Blocks {
		bd := blockDoc{
			Level:      string(b.Level),
			Strategy:   string(b.Strategy),
			Order:      b.Order,
			Status:     string(b.Status),
			Reason:     b.Reason,
			Flashcards: make([]flashcardDoc, len(b.Flashcards)),
			Quiz:       make([]quizDoc, len(b.QuizItems)),
		}
		for j, c := range b.Flashcards {
			bd.Flashcards[j] = flashcardDoc{ID: c.ID, Front: c.Front, Back: c.Back, Seen: c.Seen}
		}
		for j, q := range b.QuizItems {
			bd.Quiz[j] = quizDoc{
				ID: q.ID, Question: q.Question, Options: q.Options,
				Correct: q.CorrectOption, Feedback: q.Feedback, Done: q.Done,
			}
		}
		d.Blocks[i] = bd
	}
	return d
}

func pathFromDoc(d pathDoc) (*learnpath.LearningPath, error) {
	if err := checkVersion(d.SchemaVersion); err != nil {
		return nil, err
	}
	p := &learnpath.LearningPath{
		ID:              d.ID,
		LearnerID:       d.Learner,
		Name:            d.Name,
		State:           d.State,
		Blocks:          make([]learnpath.ContentBlock, len(d.Blocks)),
		GeneratedLevels: levelsOf(d.Generated),
		OmittedLevels:   levelsOf(d.Omitted),
		ProgressPercent: d.Progress,
		Fallback:        d.Fallback,
		CreatedAt:       d.CreatedAt.UTC(),
		UpdatedAt:       d.UpdatedAt.UTC(),
	}
	for i, bd := range d.Blocks {
		b := learnpath.ContentBlock{
			Level:      bloom.Level(bd.Level),
			Strategy:   learnpath.Strategy(bd.Strategy),
			Order:      bd.Order,
			Status:     learnpath.Status(bd.Status),
			Reason:     bd.Reason,
			Flashcards: make([]learnpath.Flashcard, len(bd.Flashcards)),
			QuizItems:  make([]learnpath.QuizItem, len(bd.Quiz)),
		}
		for j, c := range bd.Flashcards {
			b.Flashcards[j] = learnpath.Flashcard{ID: c.ID, Front: c.Front, Back: c.Back, Seen: c.Seen}
		}
		for j, q := range bd.Quiz {
			b.QuizItems[j] = learnpath.QuizItem{
				ID: q.ID, Question: q.Question, Options: q.Options,
				CorrectOption: q.Correct, Feedback: q.Feedback, Done: q.Done,
			}
		}
		p.Blocks[i] = b
	}
	if olderThan(d.SchemaVersion, "v1.1.0") {
		upgradePath(p)
	}
	return p, nil
}

// upgradePath fills the fields introduced in v1.1.0.
func upgradePath(p *learnpath.LearningPath) {
	if p.Name == "" {
		p.Name = "Ruta " + p.CreatedAt.Format("2006-01-02")
	}
	if p.State == "" {
		p.State = learnpath.PathActive
	}
}

// Materials.

func unitsToDocs(units []materials.Unit) []unitDoc {
	out := make([]unitDoc, len(units))
	for i, u := range units {
		ud := unitDoc{Index: u.Index, Kind: string(u.Kind), Text: u.Text}
		if c := u.Classification; c != nil {
			ud.Classification = &classificationDoc{
				Category: c.Category, Justification: c.Justification, Keywords: c.Keywords,
			}
		}
		out[i] = ud
	}
	return out
}

func unitsFromDocs(docs []unitDoc) []materials.Unit {
	out := make([]materials.Unit, len(docs))
	for i, ud := range docs {
		u := materials.Unit{Index: ud.Index, Kind: materials.UnitKind(ud.Kind), Text: ud.Text}
		if c := ud.Classification; c != nil {
			u.Classification = &materials.Classification{
				Category: c.Category, Justification: c.Justification, Keywords: c.Keywords,
			}
		}
		out[i] = u
	}
	return out
}

func materialToDoc(m *materials.Material) materialDoc {
	return materialDoc{
		SchemaVersion: SchemaVersion,
		ID:            m.ID,
		Learner:       m.LearnerID,
		Filename:      m.Filename,
		UploadedAt:    storedTime(m.UploadedAt),
		Status:        string(m.Status),
		Units:         unitsToDocs(m.Units),
	}
}

func materialFromDoc(d materialDoc) (*materials.Material, error) {
	if err := checkVersion(d.SchemaVersion); err != nil {
		return nil, err
	}
	return &materials.Material{
		ID:         d.ID,
		LearnerID:  d.Learner,
		Filename:   d.Filename,
		UploadedAt: d.UploadedAt.UTC(),
		Status:     materials.Status(d.Status),
		Units:      unitsFromDocs(d.Units),
	}, nil
}
