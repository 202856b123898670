// Package policy implements the message admission pipeline: the ordered
// gates a submission must clear before it is persisted. The order is fixed
// by design; every gate is cheaper than the next and the moderation gate
// must clear before any store write ("moderate then save, never save then
// moderate").
package policy

import (
	"context"
	"log/slog"
	"net/http"

	"whatupb-gate/moderation"
	"whatupb-gate/ratelimit"
)

// Submission is one inbound anonymous message attempt. RemoteIP is derived
// from proxy headers before the pipeline runs; IPHash is filled by the
// identity gate.
type Submission struct {
	RecipientID  string
	Content      string
	CaptchaToken string
	RemoteIP     string
	IPHash       string
}

// Reason is an internal rejection code. It is logged server-side and never
// exposed verbatim to the sender.
type Reason string

const (
	ReasonAccepted             Reason = "accepted"
	ReasonMissingParams        Reason = "missing_params"
	ReasonCaptchaFailed        Reason = "captcha_failed"
	ReasonCaptchaMisconfigured Reason = "captcha_misconfigured"
	ReasonValidationEmpty      Reason = "validation_empty"
	ReasonValidationLength     Reason = "validation_length"
	ReasonValidationLinks      Reason = "validation_links"
	ReasonRateLimit            Reason = "rate_limit"
	ReasonModerationBlocked    Reason = "moderation_blocked"
	ReasonRecipientNotFound    Reason = "recipient_not_found"
	ReasonStorageError         Reason = "storage_error"
	ReasonUnknown              Reason = "unknown_error"
)

// BlockedByRateLimit tags audit entries produced by the rate-limit gate;
// moderation blocks carry the moderator's own provenance.
const BlockedByRateLimit = "rate_limit"

// Result is a single gate's decision.
type Result struct {
	Allowed bool
	Reason  Reason
	Status  int
	// BlockedBy is set only for decisions that produce an audit entry
	// (rate limit and moderation blocks).
	BlockedBy string
	Scores    moderation.Scores
	Attrs     []slog.Attr
}

// Accept returns a passing result.
func Accept() *Result { return &Result{Allowed: true} }

// Reject returns a failing result with the given internal reason and
// client-facing status class.
func Reject(reason Reason, status int, attrs ...slog.Attr) *Result {
	return &Result{Reason: reason, Status: status, Attrs: attrs}
}

// Gate is one admission check. Gates may annotate the submission (the
// identity gate fills IPHash) but must not persist anything.
type Gate interface {
	Name() string
	Check(ctx context.Context, sub *Submission) *Result
}

// CaptchaVerifier validates a challenge token.
type CaptchaVerifier interface {
	Configured() bool
	Verify(ctx context.Context, token, remoteIP string) (bool, error)
}

// RateLimiter consumes an admission slot for an identity key.
type RateLimiter interface {
	Check(key string) ratelimit.Result
}

// ContentModerator produces an allow/block verdict for message text.
type ContentModerator interface {
	Moderate(ctx context.Context, text string) moderation.Verdict
}

// Decision is the pipeline's terminal outcome for one submission.
type Decision struct {
	Status    int
	Reason    Reason
	BlockedBy string
	Scores    moderation.Scores
	MessageID string
}

// Accepted reports whether the submission was persisted.
func (d Decision) Accepted() bool { return d.Status == http.StatusCreated }
