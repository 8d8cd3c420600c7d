// Package app wires configuration into the store, the LLM provider and the
// domain services.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/abhisek/rutealo/internal/apperr"
	"github.com/abhisek/rutealo/internal/bloom"
	"github.com/abhisek/rutealo/internal/config"
	"github.com/abhisek/rutealo/internal/evaluation"
	"github.com/abhisek/rutealo/internal/learnpath"
	"github.com/abhisek/rutealo/internal/llm"
	"github.com/abhisek/rutealo/internal/logger"
	"github.com/abhisek/rutealo/internal/materials"
	"github.com/abhisek/rutealo/internal/pedagogy"
	"github.com/abhisek/rutealo/internal/store"
)

// App holds the wired services. Close releases everything New opened.
type App struct {
	Config    *config.Config
	Log       *logger.Logger
	Hierarchy *bloom.Hierarchy

	Store  *store.Store
	Events *store.EventLog

	// Provider is nil when no LLM is configured; generation then fails
	// with a generation error.
	Provider llm.Provider

	Evaluations *evaluation.Service
	Paths       *learnpath.Service
	Materials   *materials.Service
	ExamGen     *pedagogy.ExamGenerator

	profileCache *store.CachedProfiles
	closers      []func(context.Context) error
}

// Option adjusts New.
type Option func(*options)

type options struct {
	log      *logger.Logger
	provider llm.Provider
}

// WithLogger sets the logger. The default is a no-op logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithProvider uses p instead of building one from the config. p is still
// wrapped with event logging.
func WithProvider(p llm.Provider) Option {
	return func(o *options) { o.provider = p }
}

// New opens the store and builds every service from cfg.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (_ *App, err error) {
	o := options{}
	for _, fn := range opts {
		fn(&o)
	}
	if o.log == nil {
		o.log = logger.Nop()
	}

	a := &App{Config: cfg, Log: o.log, Hierarchy: bloom.New()}
	defer func() {
		if err != nil {
			a.Close(context.WithoutCancel(ctx))
		}
	}()

	if err := a.openStore(ctx); err != nil {
		return nil, err
	}

	frameworks, err := pedagogy.LoadFrameworks(cfg.Gen.FrameworksFile)
	if err != nil {
		return nil, err
	}

	switch {
	case o.provider != nil:
		a.Provider = llm.WithLogging(o.provider, "injected", a.Events, a.Log)
	case cfg.LLMConfigured:
		a.Provider, err = llm.NewProvider(ctx, cfg.LLM, a.Events, a.Log)
		if err != nil {
			return nil, err
		}
	default:
		a.Log.Warn("no LLM provider configured; generation endpoints will fail")
	}

	gen := pedagogy.DefaultConfig()
	gen.MaxSourceChars = cfg.Gen.MaxSourceChars
	gen.MaxExamSourceChars = cfg.Gen.MaxExamSourceChars
	gen.Retry = cfg.LLM.Retry

	var (
		generator  learnpath.Generator = unavailableGenerator{}
		classifier materials.Classifier
	)
	if a.Provider != nil {
		generator = pedagogy.NewContentGenerator(a.Provider, frameworks, gen)
		classifier = pedagogy.NewClassifier(a.Provider, a.Hierarchy, frameworks, gen)
		a.ExamGen = pedagogy.NewExamGenerator(a.Provider, a.Hierarchy, gen)
	}

	var profiles evaluation.ProfileStore = a.Store.Profiles()
	if cfg.Cache.URL != "" {
		client, err := store.OpenCache(ctx, cfg.Cache.URL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return client.Close() })
		a.profileCache = store.NewCachedProfiles(profiles, client, cfg.Cache.ProfileTTL, a.Log)
		profiles = a.profileCache
	}

	evaluator := evaluation.NewEvaluator(a.Hierarchy, profiles, a.Log)
	a.Evaluations = evaluation.NewService(evaluator, a.Store.Exams(), profiles, a.Store.Evaluations(), a.Log)
	a.Materials = materials.NewService(a.Hierarchy, a.Store.Materials(), classifier, a.Log)
	selector := learnpath.NewSelector(a.Hierarchy, generator, a.Log)
	a.Paths = learnpath.NewService(selector, a.Store.Paths(), profiles, a.Materials, a.Log)

	return a, nil
}

// openStore opens the document backend and the local event log. With
// MongoDB, LLM events still go to the local SQLite file.
func (a *App) openStore(ctx context.Context) error {
	cfg := a.Config.Store

	dbPath := cfg.DBPath
	if dbPath == "" {
		p, err := store.DefaultDBPath()
		if err != nil {
			return fmt.Errorf("resolve database path: %w", err)
		}
		dbPath = p
	}
	local, err := store.OpenSQLite(dbPath)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, local.Close)
	a.Events = local.Events()

	switch cfg.Backend {
	case "mongo":
		m, err := store.OpenMongo(ctx, store.MongoOptions{
			URI:         cfg.Mongo.URI,
			Database:    cfg.Mongo.Database,
			MaxPoolSize: uint64(max(cfg.Mongo.MaxPool, 0)),
			MinPoolSize: uint64(max(cfg.Mongo.MinPool, 0)),
			Timeout:     cfg.Mongo.Timeout,
		})
		if err != nil {
			return err
		}
		a.closers = append(a.closers, m.Close)
		a.Store = store.New(m)
		a.Log.Info("store opened", "backend", "mongo", "database", cfg.Mongo.Database, "events", dbPath)
	default:
		a.Store = store.New(local)
		a.Log.Info("store opened", "backend", "sqlite", "path", dbPath)
	}
	return nil
}

// Close releases the store, the cache and the event log, newest first.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// BuildExam generates the diagnostic exam from the learner's classified
// material and stores it as pending.
func (a *App) BuildExam(ctx context.Context, learnerID string) (*evaluation.Exam, error) {
	if a.ExamGen == nil {
		return nil, apperr.Generation(nil, "No hay un proveedor LLM configurado para generar el examen")
	}
	corpus, err := a.Materials.Corpus(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	exam, err := a.ExamGen.Generate(ctx, learnerID, corpus)
	if err != nil {
		return nil, err
	}
	if err := a.Evaluations.SaveExam(ctx, exam); err != nil {
		return nil, err
	}
	a.Log.Info("diagnostic exam generated", "learner_id", learnerID, "questions", len(exam.Items))
	return exam, nil
}

// Ping checks the document store.
func (a *App) Ping(ctx context.Context) error { return a.Store.Ping(ctx) }

// DeleteLearner removes every stored document of learnerID.
func (a *App) DeleteLearner(ctx context.Context, learnerID string) (map[string]int64, error) {
	counts, err := a.Store.DeleteLearner(ctx, learnerID)
	if err != nil {
		return counts, apperr.Persistence(err, "No se pudieron eliminar los datos del estudiante")
	}
	if a.profileCache != nil {
		a.profileCache.Invalidate(ctx, learnerID)
	}
	a.Log.Info("learner deleted", "learner_id", learnerID, "documents", counts)
	return counts, nil
}

// unavailableGenerator stands in when no provider is configured, so path
// regeneration degrades to the fallback path.
type unavailableGenerator struct{}

func (unavailableGenerator) Generate(context.Context, bloom.Level, learnpath.Strategy, []string) (*learnpath.Content, error) {
	return nil, apperr.Generation(nil, "No hay un proveedor LLM configurado")
}
