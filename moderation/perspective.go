package moderation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"

	"golang.org/x/time/rate"

	"whatupb-gate/config"
)

// ErrUnavailable is returned when the scorer cannot produce a decision:
// missing credentials, network errors, timeouts, non-2xx responses and local
// QPS saturation all collapse into it. Callers fail open on this error.
var ErrUnavailable = errors.New("toxicity scorer unavailable")

// Scores maps a Perspective attribute name to its summary score in [0,1].
type Scores map[string]float64

// ScoreResult is the outcome of a scorer call. Scores is always populated,
// even when the message is allowed, so audits can record what the scorer saw.
type ScoreResult struct {
	Scores    Scores
	Blocked   bool
	Attribute string
	Value     float64
	Threshold float64
}

// Scorer scores the original, non-normalized message text.
type Scorer interface {
	Score(ctx context.Context, text string) (*ScoreResult, error)
}

type analyzeRequest struct {
	Comment             analyzeComment      `json:"comment"`
	RequestedAttributes map[string]struct{} `json:"requestedAttributes"`
	Languages           []string            `json:"languages"`
}

type analyzeComment struct {
	Text string `json:"text"`
}

type analyzeResponse struct {
	AttributeScores map[string]struct {
		SummaryScore struct {
			Value float64 `json:"value"`
		} `json:"summaryScore"`
	} `json:"attributeScores"`
}

// PerspectiveClient calls the Google Perspective comment-analyzer API and
// applies per-attribute thresholds. A local token bucket bounds outgoing QPS;
// waiting past the request deadline degrades to ErrUnavailable rather than
// queueing indefinitely.
type PerspectiveClient struct {
	endpoint   string
	apiKey     string
	thresholds map[string]float64
	attributes []string // sorted, for deterministic evaluation
	client     *http.Client
	limiter    *rate.Limiter
	detector   *LanguageDetector // nil when language detection is off
}

func NewPerspectiveClient(cfg *config.PerspectiveConfig, detector *LanguageDetector) *PerspectiveClient {
	attrs := make([]string, 0, len(cfg.Thresholds))
	for attr := range cfg.Thresholds {
		attrs = append(attrs, attr)
	}
	sort.Strings(attrs)

	return &PerspectiveClient{
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		thresholds: cfg.Thresholds,
		attributes: attrs,
		client:     &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.QPS), cfg.Burst),
		detector:   detector,
	}
}

func (c *PerspectiveClient) Score(ctx context.Context, text string) (*ScoreResult, error) {
	if c.apiKey == "" {
		slog.Warn("Perspective API key not set, scorer unavailable")
		return nil, ErrUnavailable
	}

	if err := c.limiter.Wait(ctx); err != nil {
		slog.Warn("Perspective QPS budget exhausted", "error", err)
		return nil, ErrUnavailable
	}

	lang := "en"
	if c.detector != nil {
		if detected, ok := c.detector.Detect(text); ok {
			lang = detected
		}
	}

	requested := make(map[string]struct{}, len(c.attributes))
	for _, attr := range c.attributes {
		requested[attr] = struct{}{}
	}
	body, err := json.Marshal(analyzeRequest{
		Comment:             analyzeComment{Text: text},
		RequestedAttributes: requested,
		Languages:           []string{lang},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	url := c.endpoint + "?key=" + c.apiKey
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		slog.Error("Perspective request failed", "error", err)
		return nil, ErrUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 300))
		slog.Error("Perspective returned non-2xx status",
			"status", resp.StatusCode, "body", string(snippet))
		return nil, ErrUnavailable
	}

	var parsed analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		slog.Error("Failed to decode Perspective response", "error", err)
		return nil, ErrUnavailable
	}

	scores := make(Scores, len(c.attributes))
	for _, attr := range c.attributes {
		scores[attr] = parsed.AttributeScores[attr].SummaryScore.Value
	}

	result := &ScoreResult{Scores: scores}
	for _, attr := range c.attributes {
		threshold := c.thresholds[attr]
		if scores[attr] >= threshold {
			result.Blocked = true
			result.Attribute = attr
			result.Value = scores[attr]
			result.Threshold = threshold
			slog.Warn("Perspective blocked message",
				"attribute", attr, "score", scores[attr], "threshold", threshold)
			break
		}
	}
	return result, nil
}
