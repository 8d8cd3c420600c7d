package learnpath

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"
)

const (
	fallbackCardsPerLevel = 3
	minSentenceRunes      = 20
	maxSentenceRunes      = 280
)

// fallbackPath adds a review block for every attempted level, cut from the
// source text. No quiz items are produced. Omitted blocks are kept.
func (s *Selector) fallbackPath(p *LearningPath, attempted []attempt) {
	for _, a := range attempted {
		cards := []Flashcard{}
		for i, sentence := range leadSentences(a.sources, fallbackCardsPerLevel) {
			cards = append(cards, Flashcard{
				ID:    i + 1,
				Front: fmt.Sprintf("Repasa este fragmento (%s)", a.level),
				Back:  sentence,
			})
		}
		p.Blocks = append(p.Blocks, ContentBlock{
			Level:      a.level,
			Strategy:   StrategyStandard,
			Reason:     "Contenido de respaldo: la generación personalizada falló",
			Flashcards: cards,
			QuizItems:  []QuizItem{},
		})
		p.GeneratedLevels = append(p.GeneratedLevels, a.level)
	}

	slices.SortStableFunc(p.Blocks, func(a, b ContentBlock) int {
		return s.hierarchy.Ordinal(a.Level) - s.hierarchy.Ordinal(b.Level)
	})
	p.GeneratedLevels = s.hierarchy.Sort(p.GeneratedLevels)
	p.Fallback = true
}

// leadSentences returns up to n sentences from the start of the texts,
// skipping fragments that are too short to review on their own.
func leadSentences(texts []string, n int) []string {
	var out []string
	for _, t := range texts {
		for _, s := range splitSentences(t) {
			if utf8.RuneCountInString(s) < minSentenceRunes {
				continue
			}
			out = append(out, truncateRunes(s, maxSentenceRunes))
			if len(out) == n {
				return out
			}
		}
	}
	if len(out) == 0 && len(texts) > 0 {
		out = append(out, truncateRunes(strings.TrimSpace(texts[0]), maxSentenceRunes))
	}
	return out
}

func splitSentences(text string) []string {
	var out []string
	var b strings.Builder
	flush := func() {
		if s := strings.TrimSpace(b.String()); s != "" {
			out = append(out, s)
		}
		b.Reset()
	}
	for _, r := range text {
		switch r {
		case '\n':
			flush()
		case '.', '!', '?':
			b.WriteRune(r)
			flush()
		default:
			b.WriteRune(r)
		}
	}
	flush()
	return out
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max-1]) + "…"
}
