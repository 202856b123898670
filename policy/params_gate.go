// policy/params_gate.go
package policy

import (
	"context"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	maxContentLength = 1000
	maxLinks         = 2
)

var urlRegex = regexp.MustCompile(`(?i)https?://[^\s]+`)

// ParamsGate enforces the structural contract: recipient and content
// present, content 1–1000 characters after trimming, and at most two
// URL-like substrings (spam heuristic). It also trims the content in place;
// later gates and the store see the trimmed form.
type ParamsGate struct{}

func NewParamsGate() *ParamsGate { return &ParamsGate{} }

func (g *ParamsGate) Name() string { return "params" }

func (g *ParamsGate) Check(_ context.Context, sub *Submission) *Result {
	if sub.RecipientID == "" || sub.Content == "" {
		return Reject(ReasonMissingParams, http.StatusBadRequest)
	}

	trimmed := strings.TrimSpace(sub.Content)
	if trimmed == "" {
		return Reject(ReasonValidationEmpty, http.StatusBadRequest)
	}
	if n := utf8.RuneCountInString(trimmed); n > maxContentLength {
		return Reject(ReasonValidationLength, http.StatusBadRequest,
			slog.Int("content_length", n))
	}
	if links := urlRegex.FindAllString(trimmed, -1); len(links) > maxLinks {
		return Reject(ReasonValidationLinks, http.StatusBadRequest,
			slog.Int("link_count", len(links)))
	}

	sub.Content = trimmed
	return Accept()
}
