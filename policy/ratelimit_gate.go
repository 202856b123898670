// policy/ratelimit_gate.go
package policy

import (
	"context"
	"log/slog"
	"net/http"
)

// RateLimitGate consumes a sliding-window slot for the hashed identity. It
// runs before moderation on purpose: a throttled sender's content is never
// inspected at all.
type RateLimitGate struct {
	limiter RateLimiter
}

func NewRateLimitGate(limiter RateLimiter) *RateLimitGate {
	return &RateLimitGate{limiter: limiter}
}

func (g *RateLimitGate) Name() string { return "rate_limit" }

func (g *RateLimitGate) Check(_ context.Context, sub *Submission) *Result {
	res := g.limiter.Check(sub.IPHash)
	if !res.Allowed {
		r := Reject(ReasonRateLimit, http.StatusTooManyRequests,
			slog.Int64("reset_after_ms", res.ResetAfter.Milliseconds()))
		r.BlockedBy = BlockedByRateLimit
		return r
	}
	return Accept()
}
