package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsService_Answers(t *testing.T) {
	ctx := context.TODO()
	env := newTestEnv(t)
	state := "First State"

	for _, answer := range []string{"b", "a", "b", "c", "b", "a"} {
		env.stats.RecordAnswer(ctx, "exp-1", state, "submit", DefaultRuleStr, answer)
	}
	env.stats.RecordAnswer(ctx, "exp-1", state, "submit", "Equals(x)", "z")

	top, err := env.stats.TopUnresolvedAnswers(ctx, "exp-1", state, 2)
	require.NoError(t, err)
	assert.Equal(t, []AnswerCount{{Value: "b", Count: 3}, {Value: "a", Count: 2}}, top)

	env.stats.ResolveAnswers(ctx, "exp-1", state, "submit", DefaultRuleStr, []string{"b", "unknown"})

	top, err = env.stats.TopUnresolvedAnswers(ctx, "exp-1", state, 0)
	require.NoError(t, err)
	assert.Equal(t, []AnswerCount{{Value: "a", Count: 2}, {Value: "c", Count: 1}}, top)
}

func TestStatsService_OversizedLogIsDropped(t *testing.T) {
	ctx := context.TODO()
	env := newTestEnv(t)

	env.stats.RecordAnswer(ctx, "exp-1", "s", "submit", DefaultRuleStr, "small")
	env.stats.RecordAnswer(ctx, "exp-1", "s", "submit", DefaultRuleStr, strings.Repeat("x", MaxAnswerLogBytes))

	top, err := env.stats.TopUnresolvedAnswers(ctx, "exp-1", "s", 0)
	require.NoError(t, err)
	assert.Equal(t, []AnswerCount{{Value: "small", Count: 1}}, top)
}
