// policy/pipeline.go
package policy

import (
	"context"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"whatupb-gate/auditlog"
	"whatupb-gate/config"
	"whatupb-gate/metrics"
	"whatupb-gate/moderation"
	"whatupb-gate/store"
)

const rateLimitAuditReason = "Rate limit exceeded."

// Pipeline runs the admission gates in fixed order and, only when every gate
// passes, delegates to the persistence collaborator.
type Pipeline struct {
	gates           []Gate
	store           store.MessageStore
	sink            auditlog.Sink
	rejectionLevels map[string]config.LogLevel
	dryRun          bool
}

func NewPipeline(cfg *config.Config, gates []Gate, st store.MessageStore, sink auditlog.Sink, dryRun bool) *Pipeline {
	return &Pipeline{
		gates:           gates,
		store:           st,
		sink:            sink,
		rejectionLevels: cfg.Log.RejectionLevels,
		dryRun:          dryRun,
	}
}

// Process takes a submission through every gate and persists it on a full
// pass. Rejections are logged structurally with hashed identity only; the
// caller maps the decision to a single generic client message.
func (p *Pipeline) Process(ctx context.Context, sub *Submission) (decision Decision) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Panic recovered in admission pipeline",
				"panic", r, "recipient_id", sub.RecipientID, "stack", string(debug.Stack()))
			metrics.AdmissionsTotal.WithLabelValues(string(ReasonUnknown)).Inc()
			decision = Decision{Status: http.StatusInternalServerError, Reason: ReasonUnknown}
		}
	}()

	for _, gate := range p.gates {
		start := time.Now()
		res := gate.Check(ctx, sub)
		metrics.GateDuration.WithLabelValues(gate.Name()).Observe(time.Since(start).Seconds())

		if res.Allowed {
			continue
		}

		p.logRejection(ctx, gate.Name(), sub, res)

		if p.dryRun {
			slog.LogAttrs(ctx, slog.LevelInfo, "Dry-run: submission would be rejected",
				slog.String("gate", gate.Name()), slog.String("reason", string(res.Reason)))
			continue
		}

		if res.BlockedBy != "" {
			p.recordAudit(sub, res)
		}

		metrics.AdmissionsTotal.WithLabelValues(string(res.Reason)).Inc()
		return Decision{
			Status:    res.Status,
			Reason:    res.Reason,
			BlockedBy: res.BlockedBy,
			Scores:    res.Scores,
		}
	}

	return p.persist(ctx, sub)
}

func (p *Pipeline) persist(ctx context.Context, sub *Submission) Decision {
	result, err := p.store.Insert(ctx, sub.RecipientID, sub.Content, sub.IPHash)
	if err != nil {
		slog.Error("Message store insert failed",
			"recipient_id", sub.RecipientID, "ip_hash", sub.IPHash, "error", err)
		metrics.AdmissionsTotal.WithLabelValues(string(ReasonStorageError)).Inc()
		return Decision{Status: http.StatusInternalServerError, Reason: ReasonStorageError}
	}

	if !result.Success {
		// The store owns this decision; we only map its error string to an
		// internal reason for logging.
		reason := ReasonUnknown
		switch {
		case strings.Contains(result.Error, "rate"), strings.Contains(result.Error, "Too many"):
			reason = ReasonRateLimit
		case strings.Contains(result.Error, "Recipient"):
			reason = ReasonRecipientNotFound
		}
		slog.Warn("Message rejected by store",
			"reason", string(reason), "store_error", result.Error,
			"recipient_id", sub.RecipientID, "ip_hash", sub.IPHash)
		metrics.AdmissionsTotal.WithLabelValues(string(reason)).Inc()
		return Decision{Status: http.StatusTooManyRequests, Reason: reason}
	}

	metrics.AdmissionsTotal.WithLabelValues(string(ReasonAccepted)).Inc()
	slog.Debug("Message admitted", "recipient_id", sub.RecipientID, "message_id", result.MessageID)
	return Decision{
		Status:    http.StatusCreated,
		Reason:    ReasonAccepted,
		MessageID: result.MessageID,
	}
}

func (p *Pipeline) logRejection(ctx context.Context, gateName string, sub *Submission, res *Result) {
	attrs := []slog.Attr{
		slog.String("gate", gateName),
		slog.String("reason", string(res.Reason)),
		slog.String("recipient_id", sub.RecipientID),
	}
	if sub.IPHash != "" {
		attrs = append(attrs, slog.String("ip_hash", sub.IPHash))
	}
	attrs = append(attrs, res.Attrs...)

	logLevel := slog.LevelWarn
	if level, ok := p.rejectionLevels[gateName]; ok {
		logLevel = level.ToSlogLevel()
	}
	slog.LogAttrs(ctx, logLevel, "Submission rejected by gate", attrs...)
}

// recordAudit emits the fire-and-forget moderation log entry. The entry
// shape carries metadata only; message content never reaches the sink.
func (p *Pipeline) recordAudit(sub *Submission, res *Result) {
	reason := moderation.BlockedReason
	if res.BlockedBy == BlockedByRateLimit {
		reason = rateLimitAuditReason
	}
	p.sink.Record(auditlog.Entry{
		BlockedBy:   res.BlockedBy,
		Reason:      reason,
		Scores:      res.Scores,
		IPHash:      sub.IPHash,
		RecipientID: sub.RecipientID,
		CreatedAt:   time.Now().UTC(),
	})
}
