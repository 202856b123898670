package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

const (
	recipientPrefix = "recipient:"
	messagePrefix   = "message:"
	quotaPrefix     = "quota:"
)

const quotaWindow = time.Hour

// Business rejection strings surfaced through InsertResult.Error. The
// admission pipeline maps them by substring, mirroring the upstream RPC
// contract, so the wording is load-bearing.
const (
	errRecipientNotFound = "Recipient not found"
	errSenderCap         = "Too many messages from this sender"
)

// InsertResult mirrors the row-store RPC response: business rejections come
// back as Success=false with an error string, not as Go errors.
type InsertResult struct {
	Success   bool
	Error     string
	MessageID string
}

// MessageStore is the persistence collaborator consumed by the admission
// pipeline. It owns the authoritative accept/reject decision for storage
// concerns (recipient existence, its own rate cap).
type MessageStore interface {
	Insert(ctx context.Context, recipientID, content, ipHash string) (InsertResult, error)
	AddRecipient(ctx context.Context, recipientID string) error
	RecipientExists(ctx context.Context, recipientID string) (bool, error)
	Close() error
}

// MessageRecord is the persisted row shape.
type MessageRecord struct {
	ID          string    `json:"id"`
	RecipientID string    `json:"recipient_id"`
	Content     string    `json:"content"`
	IPHash      string    `json:"ip_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// badgerLogger adapts slog.Logger to BadgerDB's logger interface.
type badgerLogger struct {
	*slog.Logger
}

func (l *badgerLogger) Warningf(f string, v ...any) { l.Warn(fmt.Sprintf(f, v...)) }
func (l *badgerLogger) Errorf(f string, v ...any)   { l.Error(fmt.Sprintf(f, v...)) }
func (l *badgerLogger) Infof(f string, v ...any)    {}
func (l *badgerLogger) Debugf(f string, v ...any)   {}

// Open opens the shared BadgerDB instance used by the message store and the
// audit sink.
func Open(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path)

	// Rows are small; keep values in the LSM tree instead of the value log.
	opts.ValueThreshold = 1024
	opts.Logger = &badgerLogger{slog.Default()}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}
	return db, nil
}

// OpenInMemory opens a throwaway in-memory instance for tests.
func OpenInMemory() (*badger.DB, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = &badgerLogger{slog.Default()}
	return badger.Open(opts)
}

// BadgerStore is the production MessageStore. It also enforces the
// storage-level backstop: a per-sender hourly insert cap tracked with TTL
// keys, independent of the in-process sliding-window limiter.
type BadgerStore struct {
	db        *badger.DB
	hourlyCap int
}

func NewBadgerStore(db *badger.DB, hourlyCap int) *BadgerStore {
	return &BadgerStore{db: db, hourlyCap: hourlyCap}
}

// Close closes the underlying database. Call after the audit sink has
// drained; the sink shares this instance.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// AddRecipient registers a profile that may receive messages.
func (s *BadgerStore) AddRecipient(ctx context.Context, recipientID string) error {
	key := []byte(recipientPrefix + recipientID)
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, nil)
	})
}

func (s *BadgerStore) RecipientExists(ctx context.Context, recipientID string) (bool, error) {
	key := []byte(recipientPrefix + recipientID)
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Insert persists one admitted message. Business rejections (unknown
// recipient, sender over the hourly cap) are reported in the result; only
// storage faults become errors.
func (s *BadgerStore) Insert(ctx context.Context, recipientID, content, ipHash string) (InsertResult, error) {
	exists, err := s.RecipientExists(ctx, recipientID)
	if err != nil {
		return InsertResult{}, err
	}
	if !exists {
		return InsertResult{Success: false, Error: errRecipientNotFound}, nil
	}

	if s.hourlyCap > 0 && ipHash != "" {
		count, err := s.countQuota(ipHash)
		if err != nil {
			return InsertResult{}, err
		}
		if count >= s.hourlyCap {
			return InsertResult{Success: false, Error: errSenderCap}, nil
		}
	}

	record := MessageRecord{
		ID:          uuid.NewString(),
		RecipientID: recipientID,
		Content:     content,
		IPHash:      ipHash,
		CreatedAt:   time.Now().UTC(),
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return InsertResult{}, err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		messageKey := []byte(messagePrefix + recipientID + ":" + record.ID)
		if err := txn.Set(messageKey, payload); err != nil {
			return err
		}
		if ipHash != "" {
			quotaKey := []byte(quotaPrefix + ipHash + ":" + record.ID)
			entry := badger.NewEntry(quotaKey, nil).WithTTL(quotaWindow)
			return txn.SetEntry(entry)
		}
		return nil
	})
	if err != nil {
		return InsertResult{}, err
	}

	return InsertResult{Success: true, MessageID: record.ID}, nil
}

// countQuota counts the sender's live TTL keys; expired ones no longer show
// up in the iteration.
func (s *BadgerStore) countQuota(ipHash string) (int, error) {
	prefix := []byte(quotaPrefix + ipHash + ":")
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}
