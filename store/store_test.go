// store/store_test.go
package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, hourlyCap int) *BadgerStore {
	t.Helper()
	db, err := OpenInMemory()
	require.NoError(t, err)
	s := NewBadgerStore(db, hourlyCap)
	t.Cleanup(func() { require.NoError(t, s.Close()) })
	return s
}

func TestBadgerStore_InsertUnknownRecipient(t *testing.T) {
	s := newTestStore(t, 20)

	result, err := s.Insert(context.Background(), "nobody", "hello", "abcd1234")
	require.NoError(t, err)
	require.False(t, result.Success)
	require.Equal(t, "Recipient not found", result.Error)
	require.Empty(t, result.MessageID)
}

func TestBadgerStore_InsertSuccess(t *testing.T) {
	s := newTestStore(t, 20)
	ctx := context.Background()

	require.NoError(t, s.AddRecipient(ctx, "alice"))

	exists, err := s.RecipientExists(ctx, "alice")
	require.NoError(t, err)
	require.True(t, exists)

	result, err := s.Insert(ctx, "alice", "hope you have a great day", "abcd1234")
	require.NoError(t, err)
	require.True(t, result.Success)
	require.NotEmpty(t, result.MessageID)

	// The persisted record carries the content and identity hash verbatim.
	var record MessageRecord
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(messagePrefix + "alice:" + result.MessageID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &record)
		})
	})
	require.NoError(t, err)
	require.Equal(t, "hope you have a great day", record.Content)
	require.Equal(t, "alice", record.RecipientID)
	require.Equal(t, "abcd1234", record.IPHash)
	require.False(t, record.CreatedAt.IsZero())
}

func TestBadgerStore_HourlyCap(t *testing.T) {
	s := newTestStore(t, 3)
	ctx := context.Background()
	require.NoError(t, s.AddRecipient(ctx, "alice"))

	for i := 0; i < 3; i++ {
		result, err := s.Insert(ctx, "alice", "msg", "abcd1234")
		require.NoError(t, err)
		require.True(t, result.Success)
	}

	result, err := s.Insert(ctx, "alice", "msg", "abcd1234")
	require.NoError(t, err)
	require.False(t, result.Success)
	require.Equal(t, "Too many messages from this sender", result.Error)

	// Other senders and recipients are unaffected.
	result, err = s.Insert(ctx, "alice", "msg", "ffff0000")
	require.NoError(t, err)
	require.True(t, result.Success)
}

func TestBadgerStore_UnknownSenderSkipsCap(t *testing.T) {
	s := newTestStore(t, 1)
	ctx := context.Background()
	require.NoError(t, s.AddRecipient(ctx, "alice"))

	// No identity hash means no quota key, so the cap cannot apply.
	for i := 0; i < 3; i++ {
		result, err := s.Insert(ctx, "alice", "msg", "")
		require.NoError(t, err)
		require.True(t, result.Success)
	}
}

func TestBadgerStore_CapDisabled(t *testing.T) {
	s := newTestStore(t, 0)
	ctx := context.Background()
	require.NoError(t, s.AddRecipient(ctx, "alice"))

	for i := 0; i < 5; i++ {
		result, err := s.Insert(ctx, "alice", "msg", "abcd1234")
		require.NoError(t, err)
		require.True(t, result.Success)
	}
}
