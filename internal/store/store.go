// Package store persists learner documents. A Backend exposes named
// collections with a small document-store contract; MongoDB and SQLite
// implement it. Typed repos on top translate between domain values and
// the stored document shapes.
package store

import (
	"context"
	"errors"
)

// Collection names.
const (
	CollProfiles    = "usuario_perfil"
	CollEvaluations = "evaluaciones_estudiante"
	CollExams       = "examen_inicial"
	CollPaths       = "rutas_aprendizaje"
	CollMaterials   = "materiales_crudos"
)

// learnerKey is the field every document is keyed by.
const learnerKey = "usuario"

// keyedCollections hold at most one document per learner.
var keyedCollections = []string{CollProfiles, CollExams, CollPaths}

// allCollections lists every collection holding learner documents.
var allCollections = []string{CollProfiles, CollEvaluations, CollExams, CollPaths, CollMaterials}

// ErrNotFound is returned when an update or lookup matches nothing.
var ErrNotFound = errors.New("store: document not found")

// Filter is a conjunction of top-level field equalities.
type Filter map[string]any

// FindOption adjusts a find.
type FindOption func(*findOptions)

type findOptions struct {
	sortDesc string
	limit    int
}

// SortDesc orders results by field, newest or largest first.
func SortDesc(field string) FindOption {
	return func(o *findOptions) { o.sortDesc = field }
}

// Limit caps the number of results. Zero means no limit.
func Limit(n int) FindOption {
	return func(o *findOptions) { o.limit = n }
}

func applyFindOptions(opts []FindOption) findOptions {
	var o findOptions
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// Collection is the document-store contract shared by the backends.
// Documents are structs tagged for both bson and json with identical names.
type Collection interface {
	// FindOne decodes the first match into out and reports whether one existed.
	FindOne(ctx context.Context, f Filter, out any, opts ...FindOption) (bool, error)
	// Find decodes all matches into out, a pointer to a slice.
	Find(ctx context.Context, f Filter, out any, opts ...FindOption) error
	// ReplaceOne replaces the first match with doc, inserting when none.
	ReplaceOne(ctx context.Context, f Filter, doc any) error
	InsertOne(ctx context.Context, doc any) error
	// UpdateOne sets the given top-level fields on the first match.
	UpdateOne(ctx context.Context, f Filter, set map[string]any) (bool, error)
	DeleteOne(ctx context.Context, f Filter) (int64, error)
	DeleteMany(ctx context.Context, f Filter) (int64, error)
}

// Backend is a document database.
type Backend interface {
	Collection(name string) Collection
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Store bundles a backend with the typed repos built on it.
type Store struct {
	backend Backend
}

// New wraps backend.
func New(backend Backend) *Store {
	return &Store{backend: backend}
}

// Backend returns the underlying backend.
func (s *Store) Backend() Backend { return s.backend }

// Ping checks the backend connection.
func (s *Store) Ping(ctx context.Context) error { return s.backend.Ping(ctx) }

// Close releases the backend.
func (s *Store) Close(ctx context.Context) error { return s.backend.Close(ctx) }

// Profiles returns the profile repo.
func (s *Store) Profiles() *ProfileRepo {
	return &ProfileRepo{col: s.backend.Collection(CollProfiles)}
}

// Evaluations returns the evaluation history repo.
func (s *Store) Evaluations() *EvaluationRepo {
	return &EvaluationRepo{col: s.backend.Collection(CollEvaluations)}
}

// Exams returns the diagnostic exam repo.
func (s *Store) Exams() *ExamRepo {
	return &ExamRepo{col: s.backend.Collection(CollExams)}
}

// Paths returns the learning path repo.
func (s *Store) Paths() *PathRepo {
	return &PathRepo{col: s.backend.Collection(CollPaths)}
}

// Materials returns the materials repo.
func (s *Store) Materials() *MaterialRepo {
	return &MaterialRepo{col: s.backend.Collection(CollMaterials)}
}

// DeleteLearner removes every document of learnerID and returns how many
// were deleted per collection.
func (s *Store) DeleteLearner(ctx context.Context, learnerID string) (map[string]int64, error) {
	out := make(map[string]int64, len(allCollections))
	for _, name := range allCollections {
		n, err := s.backend.Collection(name).DeleteMany(ctx, Filter{learnerKey: learnerID})
		if err != nil {
			return out, err
		}
		out[name] = n
	}
	return out, nil
}
