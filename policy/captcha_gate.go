// policy/captcha_gate.go
package policy

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"whatupb-gate/captcha"
)

// CaptchaGate verifies a supplied challenge token. The check is
// soft-required: a submission without a token skips it (the rate limiter and
// moderator still run), but a supplied token is always verified, and a
// missing verification secret is a hard reject with a distinct internal
// reason — never a silent pass.
type CaptchaGate struct {
	verifier CaptchaVerifier
}

func NewCaptchaGate(verifier CaptchaVerifier) *CaptchaGate {
	return &CaptchaGate{verifier: verifier}
}

func (g *CaptchaGate) Name() string { return "captcha" }

func (g *CaptchaGate) Check(ctx context.Context, sub *Submission) *Result {
	if sub.CaptchaToken == "" {
		return Accept()
	}

	ok, err := g.verifier.Verify(ctx, sub.CaptchaToken, sub.RemoteIP)
	if err != nil {
		if errors.Is(err, captcha.ErrMisconfigured) {
			return Reject(ReasonCaptchaMisconfigured, http.StatusForbidden)
		}
		return Reject(ReasonCaptchaFailed, http.StatusForbidden,
			slog.String("verify_error", err.Error()))
	}
	if !ok {
		return Reject(ReasonCaptchaFailed, http.StatusForbidden)
	}
	return Accept()
}
