package bloom

import (
	"slices"
	"testing"
)

func TestAll_FixedOrder(t *testing.T) {
	h := New()
	want := []Level{Recordar, Comprender, Aplicar, Analizar, Evaluar, Crear}
	if got := h.All(); !slices.Equal(got, want) {
		t.Fatalf("All() = %v, want %v", got, want)
	}

	// Mutating the returned slice must not affect the hierarchy.
	got := h.All()
	got[0] = Crear
	if h.All()[0] != Recordar {
		t.Fatal("All() leaked internal slice")
	}
}

func TestOrdinal(t *testing.T) {
	h := New()
	for i, l := range h.All() {
		if got := h.Ordinal(l); got != i {
			t.Errorf("Ordinal(%s) = %d, want %d", l, got, i)
		}
	}
	if got := h.Ordinal("Memorizar"); got != -1 {
		t.Errorf("Ordinal(unknown) = %d, want -1", got)
	}
}

func TestNext(t *testing.T) {
	h := New()
	tests := []struct {
		level Level
		n     int
		want  []Level
	}{
		{Recordar, 2, []Level{Comprender, Aplicar}},
		{Analizar, 2, []Level{Evaluar, Crear}},
		{Evaluar, 2, []Level{Crear}},
		{Crear, 2, nil},
		{Aplicar, 1, []Level{Analizar}},
		{Aplicar, 0, nil},
		{"Memorizar", 2, nil},
	}
	for _, tt := range tests {
		got := h.Next(tt.level, tt.n)
		if !slices.Equal(got, tt.want) {
			t.Errorf("Next(%s, %d) = %v, want %v", tt.level, tt.n, got, tt.want)
		}
	}
}

func TestFirst(t *testing.T) {
	h := New()
	if got := h.First(2); !slices.Equal(got, []Level{Recordar, Comprender}) {
		t.Errorf("First(2) = %v", got)
	}
	if got := h.First(10); len(got) != 6 {
		t.Errorf("First(10) len = %d, want 6", len(got))
	}
}

func TestWeight(t *testing.T) {
	h := New()
	if got := h.Weight(Recordar); got != 1.0/6 {
		t.Errorf("Weight(Recordar) = %v", got)
	}
	if got := h.Weight(Crear); got != 1.0 {
		t.Errorf("Weight(Crear) = %v", got)
	}
}

func TestSort(t *testing.T) {
	h := New()
	got := h.Sort([]Level{Crear, Recordar, "Otro", Crear, Aplicar})
	want := []Level{Recordar, Aplicar, Crear}
	if !slices.Equal(got, want) {
		t.Errorf("Sort() = %v, want %v", got, want)
	}
}

func TestParse(t *testing.T) {
	h := New()
	for _, label := range []string{"recordar", " COMPRENDER ", "Análizar", "crear"} {
		if _, err := h.Parse(label); err != nil {
			t.Errorf("Parse(%q): %v", label, err)
		}
	}
	if _, err := h.Parse("Otro"); err == nil {
		t.Error("expected error for Otro")
	}
}

func TestMatch(t *testing.T) {
	h := New()
	tests := []struct {
		category string
		want     Level
		ok       bool
	}{
		{"Recordar", Recordar, true},
		{"Nivel: APLICAR", Aplicar, true},
		{"Evaluar (juicio crítico)", Evaluar, true},
		{"Otro", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := h.Match(tt.category)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Match(%q) = (%q, %v), want (%q, %v)", tt.category, got, ok, tt.want, tt.ok)
		}
	}
}

func TestMatches_CaseInsensitiveSubstring(t *testing.T) {
	h := New()
	if !h.Matches(Analizar, "analizar y comparar") {
		t.Error("expected substring match")
	}
	if h.Matches(Crear, "Recordar") {
		t.Error("unexpected match")
	}
}
