// Package server exposes the learner API over HTTP with gin.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/abhisek/rutealo/internal/bloom"
	"github.com/abhisek/rutealo/internal/evaluation"
	"github.com/abhisek/rutealo/internal/learnpath"
	"github.com/abhisek/rutealo/internal/logger"
	"github.com/abhisek/rutealo/internal/materials"
)

// ExamBuilder generates and stores a learner's diagnostic exam.
type ExamBuilder interface {
	BuildExam(ctx context.Context, learnerID string) (*evaluation.Exam, error)
}

// Learners covers the store operations that span every collection.
type Learners interface {
	Ping(ctx context.Context) error
	DeleteLearner(ctx context.Context, learnerID string) (map[string]int64, error)
}

// Deps are the services behind the handlers.
type Deps struct {
	Hierarchy   *bloom.Hierarchy
	Evaluations *evaluation.Service
	Paths       *learnpath.Service
	Materials   *materials.Service
	Exams       ExamBuilder
	Learners    Learners
	Log         *logger.Logger
}

// Options configure the HTTP surface.
type Options struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	// JWTSecret enables bearer authentication when set.
	JWTSecret string
	Release   bool
}

// Server is the HTTP API.
type Server struct {
	deps   Deps
	opts   Options
	engine *gin.Engine
}

// New builds the router.
func New(deps Deps, opts Options) *Server {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	if deps.Hierarchy == nil {
		deps.Hierarchy = bloom.New()
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	s := &Server{deps: deps, opts: opts}
	s.engine = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.engine,
		ReadTimeout:       s.opts.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.opts.WriteTimeout,
		IdleTimeout:       s.opts.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.deps.Log.Info("http server listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.deps.Log.Info("http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func (s *Server) routes() *gin.Engine {
	if s.opts.Release {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), requestID(), requestLogger(s.deps.Log))
	if len(s.opts.CORSOrigins) > 0 {
		router.Use(corsMiddleware(s.opts.CORSOrigins))
	}

	router.GET("/healthz", s.health)

	learner := router.Group("/api/learners/:learner")
	learner.Use(learnerContext(), requireLearnerToken(s.opts.JWTSecret))
	{
		learner.DELETE("", s.deleteLearner)

		learner.POST("/materials", s.ingestMaterial)
		learner.GET("/materials", s.listMaterials)
		learner.POST("/materials/classify", s.classifyMaterials)

		learner.POST("/exam", s.generateExam)
		learner.GET("/exam", s.getExam)
		learner.POST("/exam/answers", s.submitAnswers)

		learner.GET("/profile", s.getProfile)
		learner.GET("/evaluations", s.listEvaluations)
		learner.GET("/report.xlsx", s.exportReport)

		learner.POST("/path", s.regeneratePath)
		learner.GET("/path", s.getPath)
		learner.POST("/path/levels/:level/complete", s.completeLevel)
	}
	return router
}
