// Package captcha validates Cloudflare Turnstile challenge tokens.
package captcha

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"whatupb-gate/config"
)

// ErrMisconfigured is returned when no shared secret is configured. The gate
// treats it as a hard reject (fail-closed); only the internal log can tell it
// apart from an invalid token.
var ErrMisconfigured = errors.New("captcha: verification secret not configured")

// Verifier checks a challenge token against the Turnstile siteverify
// endpoint.
type Verifier struct {
	secret    string
	verifyURL string
	client    *http.Client
}

func NewVerifier(cfg *config.CaptchaConfig) *Verifier {
	return &Verifier{
		secret:    cfg.Secret,
		verifyURL: cfg.VerifyURL,
		client:    &http.Client{Timeout: cfg.Timeout},
	}
}

// Configured reports whether a shared secret is present.
func (v *Verifier) Configured() bool { return v.secret != "" }

// Verify posts the token, secret and client address to the verification
// service and returns whether it confirmed success. A missing secret returns
// ErrMisconfigured; transport and decode failures are returned as errors so
// the caller can reject and log them distinctly.
func (v *Verifier) Verify(ctx context.Context, token, remoteIP string) (bool, error) {
	if v.secret == "" {
		return false, ErrMisconfigured
	}

	form := url.Values{}
	form.Set("secret", v.secret)
	form.Set("response", token)
	form.Set("remoteip", remoteIP)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return false, fmt.Errorf("captcha: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("captcha: verification request failed: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		Success bool `json:"success"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, fmt.Errorf("captcha: decode verification response: %w", err)
	}
	return result.Success, nil
}
