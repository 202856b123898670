// moderation/moderator_test.go
package moderation

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubScorer struct {
	mu     sync.Mutex
	result *ScoreResult
	err    error
	calls  int
}

func (s *stubScorer) Score(ctx context.Context, text string) (*ScoreResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func (s *stubScorer) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestModerator_LocalBlockShortCircuits(t *testing.T) {
	scorer := &stubScorer{result: &ScoreResult{Scores: Scores{"TOXICITY": 0.1}}}
	m := NewModerator(NewBlocklist(), scorer)

	verdict := m.Moderate(context.Background(), "kys")

	require.False(t, verdict.Allowed)
	require.Equal(t, BlockedByLocal, verdict.BlockedBy)
	require.Equal(t, BlockedReason, verdict.Reason)
	require.Nil(t, verdict.Scores)
	require.Zero(t, scorer.Calls(), "scorer must not be invoked when the local blocklist blocks")
}

func TestModerator_ScorerBlock(t *testing.T) {
	scorer := &stubScorer{result: &ScoreResult{
		Scores:    Scores{"TOXICITY": 0.9, "THREAT": 0.2},
		Blocked:   true,
		Attribute: "TOXICITY",
		Value:     0.9,
		Threshold: 0.55,
	}}
	m := NewModerator(NewBlocklist(), scorer)

	verdict := m.Moderate(context.Background(), "some borderline text")

	require.False(t, verdict.Allowed)
	require.Equal(t, BlockedByPerspective, verdict.BlockedBy)
	require.Equal(t, 0.9, verdict.Scores["TOXICITY"])
	require.Equal(t, 1, scorer.Calls())
}

func TestModerator_ScorerAllow(t *testing.T) {
	scorer := &stubScorer{result: &ScoreResult{Scores: Scores{"TOXICITY": 0.1}}}
	m := NewModerator(NewBlocklist(), scorer)

	verdict := m.Moderate(context.Background(), "hope you have a great day")

	require.True(t, verdict.Allowed)
	require.Equal(t, BlockedByNone, verdict.BlockedBy)
	require.NotNil(t, verdict.Scores)
}

func TestModerator_FailOpenWhenScorerUnavailable(t *testing.T) {
	scorer := &stubScorer{err: ErrUnavailable}
	m := NewModerator(NewBlocklist(), scorer)

	verdict := m.Moderate(context.Background(), "hope you have a great day")

	require.True(t, verdict.Allowed, "scorer unavailability must fail open after the blocklist passed")
	require.Nil(t, verdict.Scores)
	require.Equal(t, 1, scorer.Calls())
}
