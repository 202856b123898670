// Package auditlog records moderation block metadata. Entries never contain
// raw message content; the Entry shape has no field that could carry it.
package auditlog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"whatupb-gate/config"
	"whatupb-gate/metrics"
)

// Entry is one append-only audit record, created only on a block decision.
type Entry struct {
	BlockedBy   string             `json:"blocked_by"`
	Reason      string             `json:"reason"`
	Scores      map[string]float64 `json:"scores"`
	IPHash      string             `json:"ip_hash,omitempty"`
	RecipientID string             `json:"recipient_id"`
	CreatedAt   time.Time          `json:"created_at"`
}

// Sink accepts audit entries best-effort. Record must never block the
// caller's response path and must never fail loudly; write errors are
// absorbed and logged internally.
type Sink interface {
	Record(entry Entry)
}

const entryPrefix = "modlog:"

// BadgerSink persists entries through a buffered queue and a single worker
// goroutine. When the queue is full the entry is dropped and counted, never
// queued synchronously.
type BadgerSink struct {
	db          *badger.DB
	queue       chan Entry
	workerDone  chan struct{}
	maxAttempts uint64
	retention   time.Duration
	closeOnce   sync.Once
}

func NewBadgerSink(db *badger.DB, cfg *config.AuditConfig) *BadgerSink {
	s := &BadgerSink{
		db:          db,
		queue:       make(chan Entry, cfg.QueueSize),
		workerDone:  make(chan struct{}),
		maxAttempts: uint64(cfg.MaxAttempts),
		retention:   cfg.Retention,
	}
	go s.worker()
	return s
}

// Record enqueues the entry without blocking.
func (s *BadgerSink) Record(entry Entry) {
	select {
	case s.queue <- entry:
	default:
		metrics.AuditDropped.Inc()
		slog.Warn("Audit queue full, dropping moderation log entry",
			"blocked_by", entry.BlockedBy, "recipient_id", entry.RecipientID)
	}
}

// Close stops accepting entries and drains the queue.
func (s *BadgerSink) Close() {
	s.closeOnce.Do(func() {
		close(s.queue)
		<-s.workerDone
	})
}

func (s *BadgerSink) worker() {
	defer close(s.workerDone)
	for entry := range s.queue {
		s.write(entry)
	}
}

// write persists one entry with bounded exponential backoff. The caller's
// response was computed long ago, so failure here only costs the audit
// record.
func (s *BadgerSink) write(entry Entry) {
	payload, err := json.Marshal(entry)
	if err != nil {
		metrics.AuditDropped.Inc()
		slog.Error("Failed to encode moderation log entry", "error", err)
		return
	}

	key := []byte(fmt.Sprintf("%s%d:%s", entryPrefix, entry.CreatedAt.UnixNano(), uuid.NewString()))

	backoff := retry.WithMaxRetries(s.maxAttempts-1, retry.NewExponential(100*time.Millisecond))
	err = retry.Do(context.Background(), backoff, func(ctx context.Context) error {
		err := s.db.Update(func(txn *badger.Txn) error {
			e := badger.NewEntry(key, payload)
			if s.retention > 0 {
				e = e.WithTTL(s.retention)
			}
			return txn.SetEntry(e)
		})
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		metrics.AuditDropped.Inc()
		slog.Error("Failed to write moderation log entry", "error", err)
	}
}
