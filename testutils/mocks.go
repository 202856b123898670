// testutils/mocks.go
package testutils

import (
	"context"
	"sync"

	"whatupb-gate/auditlog"
	"whatupb-gate/moderation"
	"whatupb-gate/ratelimit"
	"whatupb-gate/store"
)

// InsertCall captures the arguments of one MockMessageStore.Insert call.
type InsertCall struct {
	RecipientID string
	Content     string
	IPHash      string
}

// MockMessageStore records inserts and returns a configurable result.
type MockMessageStore struct {
	mu         sync.Mutex
	Result     store.InsertResult
	Err        error
	recipients map[string]bool
	inserts    []InsertCall
}

func NewMockMessageStore() *MockMessageStore {
	return &MockMessageStore{
		Result:     store.InsertResult{Success: true, MessageID: "test-message-id"},
		recipients: make(map[string]bool),
	}
}

func (s *MockMessageStore) Insert(ctx context.Context, recipientID, content, ipHash string) (store.InsertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inserts = append(s.inserts, InsertCall{RecipientID: recipientID, Content: content, IPHash: ipHash})
	if s.Err != nil {
		return store.InsertResult{}, s.Err
	}
	return s.Result, nil
}

func (s *MockMessageStore) AddRecipient(ctx context.Context, recipientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recipients[recipientID] = true
	return nil
}

func (s *MockMessageStore) RecipientExists(ctx context.Context, recipientID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recipients[recipientID], nil
}

func (s *MockMessageStore) Close() error { return nil }

// InsertCalls returns the number of Insert invocations.
func (s *MockMessageStore) InsertCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inserts)
}

// LastInsert returns the most recent Insert call, if any.
func (s *MockMessageStore) LastInsert() (InsertCall, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.inserts) == 0 {
		return InsertCall{}, false
	}
	return s.inserts[len(s.inserts)-1], true
}

// MockScorer is a toxicity scorer with a canned result and call counter.
type MockScorer struct {
	mu     sync.Mutex
	Result *moderation.ScoreResult
	Err    error
	calls  int
}

func NewMockScorer() *MockScorer {
	return &MockScorer{
		Result: &moderation.ScoreResult{Scores: moderation.Scores{"TOXICITY": 0.1}},
	}
}

func (s *MockScorer) Score(ctx context.Context, text string) (*moderation.ScoreResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Result, nil
}

func (s *MockScorer) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// MockVerifier is a captcha verifier with configurable outcome.
type MockVerifier struct {
	mu           sync.Mutex
	OK           bool
	Err          error
	IsConfigured bool
	calls        int
}

func NewMockVerifier(ok bool) *MockVerifier {
	return &MockVerifier{OK: ok, IsConfigured: true}
}

func (v *MockVerifier) Configured() bool { return v.IsConfigured }

func (v *MockVerifier) Verify(ctx context.Context, token, remoteIP string) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls++
	if v.Err != nil {
		return false, v.Err
	}
	return v.OK, nil
}

func (v *MockVerifier) Calls() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.calls
}

// MockSink collects audit entries synchronously.
type MockSink struct {
	mu      sync.Mutex
	entries []auditlog.Entry
}

func NewMockSink() *MockSink { return &MockSink{} }

func (s *MockSink) Record(entry auditlog.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
}

func (s *MockSink) Entries() []auditlog.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]auditlog.Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// MockModerator returns a canned verdict and counts invocations.
type MockModerator struct {
	mu      sync.Mutex
	Verdict moderation.Verdict
	calls   int
}

func NewMockModerator(allowed bool) *MockModerator {
	v := moderation.Verdict{Allowed: allowed, BlockedBy: moderation.BlockedByNone}
	if !allowed {
		v.BlockedBy = moderation.BlockedByLocal
		v.Reason = moderation.BlockedReason
	}
	return &MockModerator{Verdict: v}
}

func (m *MockModerator) Moderate(ctx context.Context, text string) moderation.Verdict {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.Verdict
}

func (m *MockModerator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockLimiter returns a canned rate-limit result.
type MockLimiter struct {
	mu     sync.Mutex
	Result ratelimit.Result
	keys   []string
}

func NewMockLimiter(allowed bool) *MockLimiter {
	return &MockLimiter{Result: ratelimit.Result{Allowed: allowed, Remaining: 4}}
}

func (l *MockLimiter) Check(key string) ratelimit.Result {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.keys = append(l.keys, key)
	return l.Result
}

// Keys returns every identity key the limiter was asked about.
func (l *MockLimiter) Keys() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.keys))
	copy(out, l.keys)
	return out
}
