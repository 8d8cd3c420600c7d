package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/rutealo/internal/llm"
)

func TestEventLogRecordAndQuery(t *testing.T) {
	ctx := context.Background()
	log := openTestBackend(t).Events()
	base := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	tick := 0
	log.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	events := []llm.RequestEvent{
		{Provider: "gemini", Model: "gemini-2.5-flash", Purpose: "classify", LearnerID: "ana", InputTokens: 100, OutputTokens: 20, LatencyMs: 300, Success: true},
		{Provider: "gemini", Model: "gemini-2.5-flash", Purpose: "path-block", LearnerID: "ana", InputTokens: 1000, OutputTokens: 800, LatencyMs: 2000, Success: true, RequestBody: "{}", ResponseBody: "{\"flashcards\":[]}"},
		{Provider: "openai", Model: "gpt-4o-mini", Purpose: "path-block", LearnerID: "luis", LatencyMs: 1000, Success: false, ErrorMessage: "rate limited"},
	}
	for _, ev := range events {
		require.NoError(t, log.RecordLLMRequest(ctx, ev))
	}

	all, err := log.QueryLLMEvents(ctx, QueryOpts{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "openai", all[0].Provider, "newest first")
	assert.False(t, all[0].Success)
	assert.Equal(t, "rate limited", all[0].ErrorMessage)
	assert.Equal(t, base.Add(3*time.Minute), all[0].Timestamp)

	blocks, err := log.QueryLLMEvents(ctx, QueryOpts{Purpose: "path-block", Limit: 1})
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, "luis", blocks[0].LearnerID)

	ana, err := log.QueryLLMEvents(ctx, QueryOpts{Learner: "ana", From: base.Add(2 * time.Minute)})
	require.NoError(t, err)
	require.Len(t, ana, 1)
	assert.Equal(t, "path-block", ana[0].Purpose)

	got, err := log.GetLLMEvent(ctx, ana[0].ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "{\"flashcards\":[]}", got.ResponseBody)

	missing, err := log.GetLLMEvent(ctx, 9999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestEventLogUsage(t *testing.T) {
	ctx := context.Background()
	log := openTestBackend(t).Events()

	for _, ev := range []llm.RequestEvent{
		{Provider: "gemini", Model: "m1", Purpose: "path-block", InputTokens: 10, OutputTokens: 5, LatencyMs: 100, Success: true},
		{Provider: "gemini", Model: "m1", Purpose: "path-block", InputTokens: 30, OutputTokens: 15, LatencyMs: 300, Success: true},
		{Provider: "gemini", Model: "m2", Purpose: "classify", InputTokens: 7, OutputTokens: 1, LatencyMs: 50, Success: true},
	} {
		require.NoError(t, log.RecordLLMRequest(ctx, ev))
	}

	byPurpose, err := log.LLMUsageByPurpose(ctx)
	require.NoError(t, err)
	require.Len(t, byPurpose, 2)
	assert.Equal(t, LLMUsageStats{Purpose: "path-block", Calls: 2, InputTokens: 40, OutputTokens: 20, AvgLatencyMs: 200}, byPurpose[0])
	assert.Equal(t, "classify", byPurpose[1].Purpose)

	byModel, err := log.LLMUsageByModel(ctx)
	require.NoError(t, err)
	assert.Equal(t, []LLMModelUsage{
		{Model: "m1", Calls: 2, InputTokens: 40, OutputTokens: 20},
		{Model: "m2", Calls: 1, InputTokens: 7, OutputTokens: 1},
	}, byModel)
}

func TestEventLogEmpty(t *testing.T) {
	ctx := context.Background()
	log := openTestBackend(t).Events()

	events, err := log.QueryLLMEvents(ctx, QueryOpts{Limit: 5})
	require.NoError(t, err)
	assert.Empty(t, events)

	stats, err := log.LLMUsageByPurpose(ctx)
	require.NoError(t, err)
	assert.Empty(t, stats)
}
