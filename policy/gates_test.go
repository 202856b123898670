// policy/gates_test.go
package policy

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"whatupb-gate/captcha"
	"whatupb-gate/testutils"
)

func TestParamsGate(t *testing.T) {
	gate := NewParamsGate()

	testCases := []struct {
		name      string
		recipient string
		content   string
		allowed   bool
		reason    Reason
		status    int
	}{
		{
			name:      "valid submission",
			recipient: "alice",
			content:   "hello there",
			allowed:   true,
		},
		{
			name:    "missing recipient",
			content: "hello there",
			reason:  ReasonMissingParams,
			status:  http.StatusBadRequest,
		},
		{
			name:      "missing content",
			recipient: "alice",
			reason:    ReasonMissingParams,
			status:    http.StatusBadRequest,
		},
		{
			name:      "whitespace-only content",
			recipient: "alice",
			content:   "   \t\n  ",
			reason:    ReasonValidationEmpty,
			status:    http.StatusBadRequest,
		},
		{
			name:      "content too long",
			recipient: "alice",
			content:   strings.Repeat("x", 1001),
			reason:    ReasonValidationLength,
			status:    http.StatusBadRequest,
		},
		{
			name:      "content at the length limit",
			recipient: "alice",
			content:   strings.Repeat("x", 1000),
			allowed:   true,
		},
		{
			name:      "multibyte runes counted as characters",
			recipient: "alice",
			content:   strings.Repeat("é", 1000),
			allowed:   true,
		},
		{
			name:      "too many links",
			recipient: "alice",
			content:   "see https://a.example https://b.example and https://c.example",
			reason:    ReasonValidationLinks,
			status:    http.StatusBadRequest,
		},
		{
			name:      "two links allowed",
			recipient: "alice",
			content:   "see https://a.example and http://b.example",
			allowed:   true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sub := &Submission{RecipientID: tc.recipient, Content: tc.content}
			res := gate.Check(context.Background(), sub)
			require.Equal(t, tc.allowed, res.Allowed)
			if !tc.allowed {
				require.Equal(t, tc.reason, res.Reason)
				require.Equal(t, tc.status, res.Status)
			}
		})
	}
}

func TestParamsGate_TrimsContentInPlace(t *testing.T) {
	gate := NewParamsGate()
	sub := &Submission{RecipientID: "alice", Content: "  hello there  "}

	require.True(t, gate.Check(context.Background(), sub).Allowed)
	require.Equal(t, "hello there", sub.Content)
}

func TestCaptchaGate(t *testing.T) {
	t.Run("no token skips verification", func(t *testing.T) {
		verifier := testutils.NewMockVerifier(false)
		gate := NewCaptchaGate(verifier)

		res := gate.Check(context.Background(), &Submission{})
		require.True(t, res.Allowed)
		require.Zero(t, verifier.Calls())
	})

	t.Run("valid token passes", func(t *testing.T) {
		verifier := testutils.NewMockVerifier(true)
		gate := NewCaptchaGate(verifier)

		res := gate.Check(context.Background(), &Submission{CaptchaToken: "tok", RemoteIP: "203.0.113.1"})
		require.True(t, res.Allowed)
		require.Equal(t, 1, verifier.Calls())
	})

	t.Run("rejected token fails", func(t *testing.T) {
		gate := NewCaptchaGate(testutils.NewMockVerifier(false))

		res := gate.Check(context.Background(), &Submission{CaptchaToken: "tok"})
		require.False(t, res.Allowed)
		require.Equal(t, ReasonCaptchaFailed, res.Reason)
		require.Equal(t, http.StatusForbidden, res.Status)
	})

	t.Run("missing secret fails closed", func(t *testing.T) {
		verifier := testutils.NewMockVerifier(true)
		verifier.IsConfigured = false
		verifier.Err = captcha.ErrMisconfigured
		gate := NewCaptchaGate(verifier)

		res := gate.Check(context.Background(), &Submission{CaptchaToken: "tok"})
		require.False(t, res.Allowed)
		require.Equal(t, ReasonCaptchaMisconfigured, res.Reason)
		require.Equal(t, http.StatusForbidden, res.Status)
	})

	t.Run("verifier error fails closed", func(t *testing.T) {
		verifier := testutils.NewMockVerifier(true)
		verifier.Err = context.DeadlineExceeded
		gate := NewCaptchaGate(verifier)

		res := gate.Check(context.Background(), &Submission{CaptchaToken: "tok"})
		require.False(t, res.Allowed)
		require.Equal(t, ReasonCaptchaFailed, res.Reason)
	})
}

func TestRateLimitGate(t *testing.T) {
	t.Run("allowed", func(t *testing.T) {
		limiter := testutils.NewMockLimiter(true)
		gate := NewRateLimitGate(limiter)

		res := gate.Check(context.Background(), &Submission{IPHash: "abcd1234"})
		require.True(t, res.Allowed)
		require.Equal(t, []string{"abcd1234"}, limiter.Keys())
	})

	t.Run("rejected", func(t *testing.T) {
		limiter := testutils.NewMockLimiter(false)
		gate := NewRateLimitGate(limiter)

		res := gate.Check(context.Background(), &Submission{IPHash: "abcd1234"})
		require.False(t, res.Allowed)
		require.Equal(t, ReasonRateLimit, res.Reason)
		require.Equal(t, http.StatusTooManyRequests, res.Status)
		require.Equal(t, BlockedByRateLimit, res.BlockedBy)
	})
}

func TestModerationGate(t *testing.T) {
	t.Run("allowed", func(t *testing.T) {
		gate := NewModerationGate(testutils.NewMockModerator(true))
		res := gate.Check(context.Background(), &Submission{Content: "hello"})
		require.True(t, res.Allowed)
	})

	t.Run("blocked carries provenance and scores", func(t *testing.T) {
		moderator := testutils.NewMockModerator(false)
		moderator.Verdict.BlockedBy = "perspective"
		moderator.Verdict.Scores = map[string]float64{"TOXICITY": 0.9}
		gate := NewModerationGate(moderator)

		res := gate.Check(context.Background(), &Submission{Content: "bad"})
		require.False(t, res.Allowed)
		require.Equal(t, ReasonModerationBlocked, res.Reason)
		require.Equal(t, http.StatusForbidden, res.Status)
		require.Equal(t, "perspective", res.BlockedBy)
		require.Equal(t, 0.9, res.Scores["TOXICITY"])
	})
}
