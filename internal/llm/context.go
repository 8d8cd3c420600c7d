package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

type contextKey string

const (
	purposeKey contextKey = "llm_purpose"
	learnerKey contextKey = "llm_learner"
)

// WithPurpose attaches a purpose label to the context for event logging.
func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, purposeKey, purpose)
}

// PurposeFrom extracts the purpose label from the context.
func PurposeFrom(ctx context.Context) string {
	if v, ok := ctx.Value(purposeKey).(string); ok {
		return v
	}
	return "unknown"
}

// WithLearner tags generation calls made on behalf of a learner.
func WithLearner(ctx context.Context, learnerID string) context.Context {
	return context.WithValue(ctx, learnerKey, learnerID)
}

// LearnerFrom returns the learner tag, or "" when none was set.
func LearnerFrom(ctx context.Context) string {
	v, _ := ctx.Value(learnerKey).(string)
	return v
}

// learnerTag is the opaque end-user identifier sent to providers for abuse
// monitoring. Raw learner ids never leave the process.
func learnerTag(ctx context.Context) string {
	id := LearnerFrom(ctx)
	if id == "" {
		return ""
	}
	sum := sha256.Sum256([]byte("rutealo:" + id))
	return hex.EncodeToString(sum[:12])
}
