package bloom

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Hierarchy is an immutable total order over Bloom levels. Construct it once
// with New and pass it to the components that need it.
type Hierarchy struct {
	levels []Level
	index  map[Level]int
	folded []string
}

// New returns the standard six-level hierarchy.
func New() *Hierarchy {
	h := &Hierarchy{
		levels: append([]Level(nil), canonical...),
		index:  make(map[Level]int, len(canonical)),
		folded: make([]string, len(canonical)),
	}
	for i, l := range h.levels {
		h.index[l] = i
		h.folded[i] = Fold(string(l))
	}
	return h
}

// All returns the levels in hierarchy order. The slice is a copy.
func (h *Hierarchy) All() []Level {
	return append([]Level(nil), h.levels...)
}

// Len returns the number of levels.
func (h *Hierarchy) Len() int { return len(h.levels) }

// Ordinal returns the zero-based position of level, or -1 if the level is
// not part of the hierarchy.
func (h *Hierarchy) Ordinal(level Level) int {
	if i, ok := h.index[level]; ok {
		return i
	}
	return -1
}

// Contains reports whether level belongs to the hierarchy.
func (h *Hierarchy) Contains(level Level) bool {
	_, ok := h.index[level]
	return ok
}

// Lowest returns the first level of the hierarchy.
func (h *Hierarchy) Lowest() Level { return h.levels[0] }

// Next returns up to n levels that immediately follow level, clipped to the
// end of the hierarchy. Unknown levels and n <= 0 yield nil.
func (h *Hierarchy) Next(level Level, n int) []Level {
	i, ok := h.index[level]
	if !ok || n <= 0 {
		return nil
	}
	return h.slice(i+1, i+1+n)
}

// First returns up to n levels from the bottom of the hierarchy.
func (h *Hierarchy) First(n int) []Level {
	if n <= 0 {
		return nil
	}
	return h.slice(0, n)
}

func (h *Hierarchy) slice(from, to int) []Level {
	if from >= len(h.levels) {
		return nil
	}
	if to > len(h.levels) {
		to = len(h.levels)
	}
	return append([]Level(nil), h.levels[from:to]...)
}

// Weight returns (ordinal+1)/len for level, so higher levels weigh more in
// the aggregate score. Unknown levels weigh zero.
func (h *Hierarchy) Weight(level Level) float64 {
	i, ok := h.index[level]
	if !ok {
		return 0
	}
	return float64(i+1) / float64(len(h.levels))
}

// Sort returns the given levels in hierarchy order with duplicates and
// unknown levels removed.
func (h *Hierarchy) Sort(levels []Level) []Level {
	seen := make(map[Level]bool, len(levels))
	for _, l := range levels {
		if h.Contains(l) {
			seen[l] = true
		}
	}
	out := make([]Level, 0, len(seen))
	for _, l := range h.levels {
		if seen[l] {
			out = append(out, l)
		}
	}
	return out
}

// Parse resolves a label to a level, ignoring case, accents and surrounding
// whitespace.
func (h *Hierarchy) Parse(label string) (Level, error) {
	f := Fold(label)
	for i, name := range h.folded {
		if name == f {
			return h.levels[i], nil
		}
	}
	return "", fmt.Errorf("unknown bloom level %q", label)
}

// Matches reports whether a classifier category belongs to level. A category
// belongs to every level whose name it contains.
func (h *Hierarchy) Matches(level Level, category string) bool {
	i, ok := h.index[level]
	if !ok {
		return false
	}
	return strings.Contains(Fold(category), h.folded[i])
}

// Match returns the lowest level whose name appears in category.
func (h *Hierarchy) Match(category string) (Level, bool) {
	f := Fold(category)
	if f == "" {
		return "", false
	}
	for i, name := range h.folded {
		if strings.Contains(f, name) {
			return h.levels[i], true
		}
	}
	return "", false
}

// Fold normalizes s for label comparison: trims, strips diacritics and
// applies Unicode case folding.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, strings.TrimSpace(s))
	if err != nil {
		stripped = strings.TrimSpace(s)
	}
	return cases.Fold().String(stripped)
}
