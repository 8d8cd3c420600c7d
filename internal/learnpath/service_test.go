package learnpath

import (
	"context"
	"testing"
	"time"

	"github.com/abhisek/rutealo/internal/apperr"
	"github.com/abhisek/rutealo/internal/bloom"
	"github.com/abhisek/rutealo/internal/evaluation"
)

type memPaths struct {
	paths map[string]*LearningPath
	saves int
}

func (m *memPaths) SavePath(_ context.Context, p *LearningPath) error {
	m.paths[p.LearnerID] = p
	m.saves++
	return nil
}

func (m *memPaths) Path(_ context.Context, id string) (*LearningPath, error) {
	return m.paths[id], nil
}

type staticProfiles map[string]*evaluation.MasteryProfile

func (s staticProfiles) LatestProfile(_ context.Context, id string) (*evaluation.MasteryProfile, error) {
	return s[id], nil
}

type staticContent map[bloom.Level][]string

func (s staticContent) ContentByLevel(context.Context, string) (map[bloom.Level][]string, error) {
	return s, nil
}

func newTestPathService(profiles staticProfiles, content staticContent, gen Generator) (*Service, *memPaths) {
	paths := &memPaths{paths: map[string]*LearningPath{}}
	sel := NewSelector(bloom.New(), gen, nil)
	return NewService(sel, paths, profiles, content, nil), paths
}

func TestRegenerate_NoContent(t *testing.T) {
	svc, _ := newTestPathService(staticProfiles{}, staticContent{}, &fakeGenerator{})
	_, err := svc.Regenerate(context.Background(), "ana")
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRegenerate_ReplacesAndKeepsIdentity(t *testing.T) {
	profiles := staticProfiles{"ana": profileWith(bloom.Recordar)}
	svc, paths := newTestPathService(profiles, staticContent(allContent()), &fakeGenerator{})
	ctx := context.Background()

	first, err := svc.Regenerate(ctx, "ana")
	if err != nil {
		t.Fatalf("Regenerate: %v", err)
	}
	if err := Complete(first, bloom.Comprender); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	second, err := svc.Regenerate(ctx, "ana")
	if err != nil {
		t.Fatalf("Regenerate: %v", err)
	}
	if second.ID != first.ID || !second.CreatedAt.Equal(first.CreatedAt) {
		t.Error("regeneration should keep path identity")
	}
	b, _ := second.Block(bloom.Comprender)
	if b.Status != StatusAvailable {
		t.Errorf("regeneration must reset progress, got %s", b.Status)
	}
	if paths.saves != 2 || paths.paths["ana"] != second {
		t.Errorf("saves = %d", paths.saves)
	}
}

func TestRegenerate_FallbackIsStored(t *testing.T) {
	gen := &fakeGenerator{fail: map[bloom.Level]bool{bloom.Aplicar: true}}
	content := staticContent{bloom.Aplicar: {"La regla de tres se aplica a proporciones directas."}}
	svc, paths := newTestPathService(staticProfiles{}, content, gen)

	p, err := svc.Regenerate(context.Background(), "ana")
	if !apperr.Is(err, apperr.KindGeneration) {
		t.Fatalf("expected generation error, got %v", err)
	}
	if p == nil || !p.Fallback || paths.paths["ana"] != p {
		t.Fatal("fallback path should be returned and stored")
	}
}

func TestCompleteLevel(t *testing.T) {
	svc, _ := newTestPathService(staticProfiles{"ana": profileWith(bloom.Recordar)}, staticContent(allContent()), &fakeGenerator{})
	ctx := context.Background()
	if _, err := svc.Regenerate(ctx, "ana"); err != nil {
		t.Fatal(err)
	}
	svc.selector.now = func() time.Time { return time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC) }

	_, err := svc.CompleteLevel(ctx, "ana", bloom.Aplicar)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("locked level: expected validation error, got %v", err)
	}
	_, err = svc.CompleteLevel(ctx, "ana", bloom.Recordar)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("omitted level: expected validation error, got %v", err)
	}

	p, err := svc.CompleteLevel(ctx, "ana", bloom.Comprender)
	if err != nil {
		t.Fatalf("CompleteLevel: %v", err)
	}
	next, _ := p.Block(bloom.Aplicar)
	if next.Status != StatusAvailable {
		t.Errorf("next level status = %s, want available", next.Status)
	}
	if p.ProgressPercent != 20 {
		t.Errorf("progress = %v, want 20", p.ProgressPercent)
	}
	if !p.UpdatedAt.Equal(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("UpdatedAt = %v", p.UpdatedAt)
	}

	// Repeating is a no-op.
	if _, err := svc.CompleteLevel(ctx, "ana", bloom.Comprender); err != nil {
		t.Errorf("repeat completion: %v", err)
	}
}

func TestPath_NotFound(t *testing.T) {
	svc, _ := newTestPathService(staticProfiles{}, staticContent{}, &fakeGenerator{})
	if _, err := svc.Path(context.Background(), "nadie"); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}
