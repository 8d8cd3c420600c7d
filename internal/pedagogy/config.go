package pedagogy

import (
	"github.com/abhisek/rutealo/internal/learnpath"
	"github.com/abhisek/rutealo/internal/llm"
)

// Config holds generation settings shared by the adapters.
type Config struct {
	MaxTokens   int
	Temperature float64

	// MaxSourceChars bounds the material sent for one path block.
	MaxSourceChars int
	// MaxExamSourceChars bounds the material sent for the diagnostic exam.
	MaxExamSourceChars int
	ExamQuestions      int

	Retry llm.RetryConfig
}

// DefaultConfig returns sensible defaults for content generation.
func DefaultConfig() Config {
	return Config{
		MaxTokens:          4096,
		Temperature:        0.4,
		MaxSourceChars:     8000,
		MaxExamSourceChars: 15000,
		ExamQuestions:      5,
		Retry:              llm.DefaultRetryConfig(),
	}
}

// Counts returns how many flashcards and quiz items a block of the given
// strategy carries.
func Counts(s learnpath.Strategy) (flashcards, quizItems int) {
	switch s {
	case learnpath.StrategyScaffold:
		return 5, 4
	case learnpath.StrategyReinforce:
		return 7, 5
	default:
		return 3, 3
	}
}

// truncateRunes keeps at most n characters of s.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
