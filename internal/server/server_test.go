package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/abhisek/rutealo/internal/app"
	"github.com/abhisek/rutealo/internal/config"
	"github.com/abhisek/rutealo/internal/llm"
)

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]+`)

func newTestApp(t *testing.T, mock *llm.MockProvider) *app.App {
	t.Helper()
	cfg := &config.Config{
		Store: config.StoreConfig{
			Backend: "sqlite",
			DBPath:  "file:" + nonAlnum.ReplaceAllString(t.Name(), "_") + "?mode=memory&cache=shared",
		},
		Gen: config.GenerationConfig{MaxSourceChars: 8000, MaxExamSourceChars: 15000},
		LLM: llm.Config{
			Provider: "mock",
			Retry:    llm.RetryConfig{MaxAttempts: 1, InitialWait: time.Millisecond, Multiplier: 2},
		},
	}
	ctx := context.Background()
	a, err := app.New(ctx, cfg, app.WithProvider(mock))
	require.NoError(t, err)
	t.Cleanup(func() { a.Close(ctx) })
	return a
}

func newTestServer(t *testing.T, mock *llm.MockProvider, opts Options) *Server {
	t.Helper()
	a := newTestApp(t, mock)
	return New(Deps{
		Hierarchy:   a.Hierarchy,
		Evaluations: a.Evaluations,
		Paths:       a.Paths,
		Materials:   a.Materials,
		Exams:       a,
		Learners:    a,
		Log:         a.Log,
	}, opts)
}

func do(t *testing.T, s *Server, method, path, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		r.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, r)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

const examResponse = `{"preguntas":[
	{"id":1,"pregunta":"¿Qué es una célula?","opciones":["A) una roca","B) la unidad de la vida"],"respuesta_correcta":"B","nivel_bloom_evaluado":"Recordar"},
	{"id":2,"pregunta":"Explica la membrana.","opciones":["A) nada","B) barrera selectiva"],"respuesta_correcta":"B","nivel_bloom_evaluado":"Comprender"},
	{"id":3,"pregunta":"Aplica ósmosis.","opciones":["A) se seca","B) se hincha"],"respuesta_correcta":"B","nivel_bloom_evaluado":"Aplicar"},
	{"id":4,"pregunta":"Compara mitosis y meiosis.","opciones":["A) son iguales","B) difieren en divisiones"],"respuesta_correcta":"B","nivel_bloom_evaluado":"Analizar"},
	{"id":5,"pregunta":"Evalúa el experimento.","opciones":["A) válido","B) inválido"],"respuesta_correcta":"B","nivel_bloom_evaluado":"Evaluar"}
]}`

func TestHealthz(t *testing.T) {
	s := newTestServer(t, llm.NewMockProvider(), Options{})
	w := do(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
}

func TestRequestIDIsEchoed(t *testing.T) {
	s := newTestServer(t, llm.NewMockProvider(), Options{})
	w := do(t, s, http.MethodGet, "/healthz", "", requestIDHeader, "abc-123")
	assert.Equal(t, "abc-123", w.Header().Get(requestIDHeader))
}

func TestLearnerFlow(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.MockResponse{Content: json.RawMessage(`{"categoria_bloom":"Analizar","justificacion":"Compara procesos.","palabras_clave":["comparar"]}`)},
		llm.MockResponse{Content: json.RawMessage(examResponse)},
	)
	s := newTestServer(t, mock, Options{})
	base := "/api/learners/ana"

	w := do(t, s, http.MethodPost, base+"/materials",
		`{"filename":"biologia.pdf","unidades":[{"tipo":"pagina","texto":"La mitosis produce dos células. La meiosis produce cuatro."}]}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "PENDIENTE", decode(t, w)["estado"])

	w = do(t, s, http.MethodPost, base+"/materials/classify", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	sum := decode(t, w)
	assert.EqualValues(t, 1, sum["materiales"])
	assert.EqualValues(t, 1, sum["por_nivel"].(map[string]any)["Analizar"])

	w = do(t, s, http.MethodGet, base+"/materials", "")
	require.Equal(t, http.StatusOK, w.Code)
	mats := decode(t, w)["materiales"].([]any)
	require.Len(t, mats, 1)
	assert.Equal(t, "BLOOM_COMPLETADO", mats[0].(map[string]any)["estado"])

	w = do(t, s, http.MethodPost, base+"/exam", "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), "respuesta_correcta")

	w = do(t, s, http.MethodGet, base+"/exam", "")
	require.Equal(t, http.StatusOK, w.Code)
	exam := decode(t, w)
	assert.Equal(t, "PENDIENTE", exam["estado"])
	assert.Len(t, exam["pruebas"], 5)
	assert.NotContains(t, w.Body.String(), "respuesta_correcta")

	// Everything right except the Analizar question.
	w = do(t, s, http.MethodPost, base+"/exam/answers", `{"respuestas":[
		{"pregunta_id":1,"respuesta":"B"},
		{"pregunta_id":2,"respuesta":"B"},
		{"pregunta_id":3,"respuesta":"B"},
		{"pregunta_id":4,"respuesta":"A"},
		{"pregunta_id":5,"respuesta":"B"}
	]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	sub := decode(t, w)
	assert.Equal(t, true, sub["persistido"])
	assert.Equal(t, true, sub["historial_guardado"])
	result := sub["resultado"].(map[string]any)
	assert.Contains(t, result["gap_levels"], "Analizar")

	w = do(t, s, http.MethodGet, base+"/profile", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, result["current_level"], decode(t, w)["current_level"])

	w = do(t, s, http.MethodGet, base+"/exam", "")
	assert.Equal(t, "COMPLETADO", decode(t, w)["estado"])

	w = do(t, s, http.MethodGet, base+"/evaluations?limit=5", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["evaluaciones"], 1)

	// The mock queue is empty, so generation fails and the fallback path is stored.
	w = do(t, s, http.MethodPost, base+"/path", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	pr := decode(t, w)
	assert.NotEmpty(t, pr["aviso"])
	path := pr["ruta"].(map[string]any)
	assert.Equal(t, true, path["fallback"])

	w = do(t, s, http.MethodGet, base+"/path", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, decode(t, w)["aviso"])

	w = do(t, s, http.MethodPost, base+"/path/levels/analizar/complete", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	path = decode(t, w)["ruta"].(map[string]any)
	assert.EqualValues(t, 100, path["progress_percent"])

	w = do(t, s, http.MethodGet, base+"/report.xlsx", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	assert.Contains(t, f.GetSheetList(), "Perfil")
	require.NoError(t, f.Close())

	w = do(t, s, http.MethodDelete, base, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, s, http.MethodGet, base+"/profile", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubmitWithoutExam(t *testing.T) {
	s := newTestServer(t, llm.NewMockProvider(), Options{})
	w := do(t, s, http.MethodPost, "/api/learners/ana/exam/answers", `{"respuestas":[{"pregunta_id":1,"respuesta":"A"}]}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NotEmpty(t, decode(t, w)["error"])
}

func TestPathWithoutContent(t *testing.T) {
	s := newTestServer(t, llm.NewMockProvider(), Options{})
	w := do(t, s, http.MethodPost, "/api/learners/ana/path", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestIngestValidation(t *testing.T) {
	s := newTestServer(t, llm.NewMockProvider(), Options{})

	w := do(t, s, http.MethodPost, "/api/learners/ana/materials", `{"filename":"x.pdf","unidades":[]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodPost, "/api/learners/ana/materials", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCompleteUnknownLevel(t *testing.T) {
	s := newTestServer(t, llm.NewMockProvider(), Options{})
	w := do(t, s, http.MethodPost, "/api/learners/ana/path/levels/volar/complete", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEvaluationsLimitValidation(t *testing.T) {
	s := newTestServer(t, llm.NewMockProvider(), Options{})
	w := do(t, s, http.MethodGet, "/api/learners/ana/evaluations?limit=0", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLearnerToken(t *testing.T) {
	const secret = "test-secret"
	s := newTestServer(t, llm.NewMockProvider(), Options{JWTSecret: secret})
	path := "/api/learners/ana/profile"

	w := do(t, s, http.MethodGet, path, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, s, http.MethodGet, path, "", "Authorization", "Bearer not-a-token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	other, err := SignLearnerToken(secret, "luis", time.Hour)
	require.NoError(t, err)
	w = do(t, s, http.MethodGet, path, "", "Authorization", "Bearer "+other)
	assert.Equal(t, http.StatusForbidden, w.Code)

	wrongKey, err := SignLearnerToken("other-secret", "ana", time.Hour)
	require.NoError(t, err)
	w = do(t, s, http.MethodGet, path, "", "Authorization", "Bearer "+wrongKey)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	expired, err := SignLearnerToken(secret, "ana", -time.Minute)
	require.NoError(t, err)
	w = do(t, s, http.MethodGet, path, "", "Authorization", "Bearer "+expired)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	ok, err := SignLearnerToken(secret, "ana", time.Hour)
	require.NoError(t, err)
	w = do(t, s, http.MethodGet, path, "", "Authorization", "Bearer "+ok)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Health stays open.
	w = do(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORS(t *testing.T) {
	s := newTestServer(t, llm.NewMockProvider(), Options{CORSOrigins: []string{"http://localhost:3000"}})
	w := do(t, s, http.MethodOptions, "/api/learners/ana/profile", "",
		"Origin", "http://localhost:3000",
		"Access-Control-Request-Method", "GET",
	)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestServeShutsDownOnCancel(t *testing.T) {
	s := newTestServer(t, llm.NewMockProvider(), Options{ShutdownTimeout: time.Second})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
