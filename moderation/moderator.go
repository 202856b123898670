package moderation

import (
	"context"
	"log/slog"

	"whatupb-gate/metrics"
)

// Provenance of a block decision.
const (
	BlockedByLocal       = "local"
	BlockedByPerspective = "perspective"
	BlockedByNone        = "none"
)

// BlockedReason is the only reason string a verdict ever carries; clients
// never see anything more specific.
const BlockedReason = "Message blocked for safety."

// Verdict is the moderator's decision for one submission. Scores is nil when
// the scorer never ran or was unavailable.
type Verdict struct {
	Allowed   bool
	BlockedBy string
	Reason    string
	Scores    Scores
}

// Moderator runs the two moderation layers in fixed order: the local
// blocklist always first (no content leaves the process before it), then the
// external toxicity scorer.
type Moderator struct {
	blocklist *Blocklist
	scorer    Scorer
}

func NewModerator(blocklist *Blocklist, scorer Scorer) *Moderator {
	return &Moderator{blocklist: blocklist, scorer: scorer}
}

// Moderate decides whether text may be persisted. Call it BEFORE any store
// write; a verdict with Allowed=false must never be saved.
func (m *Moderator) Moderate(ctx context.Context, text string) Verdict {
	// Layer 1: local blocklist on normalized text. Authoritative for
	// clear-cut cases, so the scorer is not consulted on a match.
	match := m.blocklist.Check(Normalize(text))
	if match.Blocked {
		slog.Warn("Local blocklist matched",
			"category", match.Category, "pattern", match.Pattern)
		return Verdict{
			Allowed:   false,
			BlockedBy: BlockedByLocal,
			Reason:    BlockedReason,
		}
	}

	// Layer 2: external scorer on the original text.
	result, err := m.scorer.Score(ctx, text)
	if err != nil {
		// Fail open: the blocklist already ran, so obvious abuse was
		// caught. Surface the gap to operators instead of the sender.
		metrics.ScorerUnavailable.Inc()
		slog.Warn("Toxicity scorer unavailable, message allowed with local-only protection", "error", err)
		return Verdict{Allowed: true, BlockedBy: BlockedByNone}
	}

	if result.Blocked {
		return Verdict{
			Allowed:   false,
			BlockedBy: BlockedByPerspective,
			Reason:    BlockedReason,
			Scores:    result.Scores,
		}
	}

	return Verdict{Allowed: true, BlockedBy: BlockedByNone, Scores: result.Scores}
}
