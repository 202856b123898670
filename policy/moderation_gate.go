// policy/moderation_gate.go
package policy

import (
	"context"
	"net/http"
)

// ModerationGate runs the two-layer content moderator. A block here is
// terminal: the pipeline persists nothing after a failed verdict.
type ModerationGate struct {
	moderator ContentModerator
}

func NewModerationGate(moderator ContentModerator) *ModerationGate {
	return &ModerationGate{moderator: moderator}
}

func (g *ModerationGate) Name() string { return "moderation" }

func (g *ModerationGate) Check(ctx context.Context, sub *Submission) *Result {
	verdict := g.moderator.Moderate(ctx, sub.Content)
	if !verdict.Allowed {
		r := Reject(ReasonModerationBlocked, http.StatusForbidden)
		r.BlockedBy = verdict.BlockedBy
		r.Scores = verdict.Scores
		return r
	}
	return Accept()
}
