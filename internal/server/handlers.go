package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/abhisek/rutealo/internal/apperr"
	"github.com/abhisek/rutealo/internal/evaluation"
	"github.com/abhisek/rutealo/internal/learnpath"
	"github.com/abhisek/rutealo/internal/materials"
	"github.com/abhisek/rutealo/internal/report"
)

// maxBodyBytes caps request bodies. Material uploads are the largest.
const maxBodyBytes = 8 << 20

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps a tagged failure to its status and user-facing message.
func (s *Server) writeError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)
	if status >= http.StatusInternalServerError {
		s.deps.Log.Error("request failed",
			"path", c.FullPath(),
			"learner_id", c.Param("learner"),
			"kind", string(kind),
			"error", err,
		)
	}
	c.JSON(status, errorResponse{Error: apperr.MessageOf(err)})
}

func readBody(c *gin.Context) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apperr.Validation("El cuerpo de la solicitud es demasiado grande")
		}
		return nil, apperr.Validation("No se pudo leer el cuerpo de la solicitud")
	}
	return body, nil
}

func (s *Server) health(c *gin.Context) {
	if s.deps.Learners == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := s.deps.Learners.Ping(ctx); err != nil {
		s.deps.Log.Warn("health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "store": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) deleteLearner(c *gin.Context) {
	counts, err := s.deps.Learners.DeleteLearner(c.Request.Context(), c.Param("learner"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"eliminados": counts})
}

type ingestRequest struct {
	Filename string                `json:"filename"`
	Units    []materials.UnitInput `json:"unidades"`
}

func (s *Server) ingestMaterial(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, apperr.Validation("Datos inválidos: se esperaba {filename, unidades}"))
		return
	}
	m, err := s.deps.Materials.Ingest(c.Request.Context(), c.Param("learner"), req.Filename, req.Units)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (s *Server) listMaterials(c *gin.Context) {
	mats, err := s.deps.Materials.List(c.Request.Context(), c.Param("learner"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	if mats == nil {
		mats = []materials.Material{}
	}
	c.JSON(http.StatusOK, gin.H{"materiales": mats})
}

func (s *Server) classifyMaterials(c *gin.Context) {
	sum, err := s.deps.Materials.ClassifyPending(c.Request.Context(), c.Param("learner"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

// publicItem is an exam question without its answer.
type publicItem struct {
	ID      int      `json:"id"`
	Prompt  string   `json:"pregunta"`
	Options []string `json:"opciones"`
	Level   string   `json:"nivel_bloom_evaluado"`
}

type publicExam struct {
	Items       []publicItem `json:"pruebas"`
	Status      string       `json:"estado"`
	GeneratedAt time.Time    `json:"fecha_generacion"`
}

func toPublicExam(e *evaluation.Exam) publicExam {
	out := publicExam{
		Items:       make([]publicItem, 0, len(e.Items)),
		Status:      string(e.Status),
		GeneratedAt: e.GeneratedAt,
	}
	for _, it := range e.Items {
		out.Items = append(out.Items, publicItem{
			ID:      it.ID,
			Prompt:  it.Prompt,
			Options: it.Options,
			Level:   string(it.Level),
		})
	}
	return out
}

func (s *Server) generateExam(c *gin.Context) {
	if s.deps.Exams == nil {
		s.writeError(c, apperr.Generation(nil, "La generación de exámenes no está configurada"))
		return
	}
	exam, err := s.deps.Exams.BuildExam(c.Request.Context(), c.Param("learner"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toPublicExam(exam))
}

func (s *Server) getExam(c *gin.Context) {
	exam, err := s.deps.Evaluations.Exam(c.Request.Context(), c.Param("learner"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPublicExam(exam))
}

type submitResponse struct {
	Result        *evaluation.MasteryProfile `json:"resultado"`
	Persisted     bool                       `json:"persistido"`
	HistoryStored bool                       `json:"historial_guardado"`
}

func (s *Server) submitAnswers(c *gin.Context) {
	body, err := readBody(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	res, err := s.deps.Evaluations.Submit(c.Request.Context(), c.Param("learner"), body)
	if err != nil {
		if res != nil && res.Profile != nil && apperr.Is(err, apperr.KindPersistence) {
			s.deps.Log.Warn("profile computed but not stored",
				"learner_id", c.Param("learner"),
				"error", err,
			)
			c.JSON(http.StatusOK, submitResponse{Result: res.Profile, Persisted: false})
			return
		}
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, submitResponse{Result: res.Profile, Persisted: res.Persisted, HistoryStored: res.HistoryStored})
}

func (s *Server) getProfile(c *gin.Context) {
	p, err := s.deps.Evaluations.Profile(c.Request.Context(), c.Param("learner"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) listEvaluations(c *gin.Context) {
	limit := 20
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 200 {
			s.writeError(c, apperr.Validation("limit debe estar entre 1 y 200"))
			return
		}
		limit = n
	}
	recs, err := s.deps.Evaluations.History(c.Request.Context(), c.Param("learner"), limit)
	if err != nil {
		s.writeError(c, apperr.Persistence(err, "No se pudo cargar el historial"))
		return
	}
	if recs == nil {
		recs = []evaluation.Record{}
	}
	c.JSON(http.StatusOK, gin.H{"evaluaciones": recs})
}

func (s *Server) exportReport(c *gin.Context) {
	ctx := c.Request.Context()
	learnerID := c.Param("learner")

	profile, err := s.deps.Evaluations.Profile(ctx, learnerID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	history, err := s.deps.Evaluations.History(ctx, learnerID, 50)
	if err != nil {
		s.writeError(c, apperr.Persistence(err, "No se pudo cargar el historial"))
		return
	}
	var path *learnpath.LearningPath
	if s.deps.Paths != nil {
		p, err := s.deps.Paths.Path(ctx, learnerID)
		if err != nil && !apperr.Is(err, apperr.KindNotFound) {
			s.writeError(c, err)
			return
		}
		path = p
	}

	var buf bytes.Buffer
	wb := report.Workbook{Profile: profile, History: history, Path: path}
	if err := report.WriteWorkbook(&buf, s.deps.Hierarchy, wb); err != nil {
		s.writeError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="rutealo-`+learnerID+`.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

type pathResponse struct {
	Path   *learnpath.LearningPath `json:"ruta"`
	Notice string                  `json:"aviso,omitempty"`
}

func (s *Server) regeneratePath(c *gin.Context) {
	path, err := s.deps.Paths.Regenerate(c.Request.Context(), c.Param("learner"))
	if err != nil {
		if path != nil && path.Fallback && apperr.Is(err, apperr.KindGeneration) {
			c.JSON(http.StatusOK, pathResponse{Path: path, Notice: apperr.MessageOf(err)})
			return
		}
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, pathResponse{Path: path})
}

func (s *Server) getPath(c *gin.Context) {
	path, err := s.deps.Paths.Path(c.Request.Context(), c.Param("learner"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, pathResponse{Path: path})
}

func (s *Server) completeLevel(c *gin.Context) {
	level, err := s.deps.Hierarchy.Parse(c.Param("level"))
	if err != nil {
		s.writeError(c, apperr.Validation("Nivel Bloom desconocido: %s", c.Param("level")))
		return
	}
	path, err := s.deps.Paths.CompleteLevel(c.Request.Context(), c.Param("learner"), level)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, pathResponse{Path: path})
}
