package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitTimeout = 2 * time.Second

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "nested", "translations.db"), "")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// collect subscribes and returns a channel of delivered snapshots
func collect(t *testing.T, s Store) (<-chan []Record, Subscription) {
	t.Helper()

	snapshots := make(chan []Record, 64)
	sub, err := s.Subscribe(context.Background(), func(records []Record) {
		snapshots <- records
	})
	require.NoError(t, err)
	t.Cleanup(sub.Cancel)
	return snapshots, sub
}

func nextSnapshot(t *testing.T, snapshots <-chan []Record) []Record {
	t.Helper()

	select {
	case records := <-snapshots:
		return records
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}

func originals(records []Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.OriginalText)
	}
	return out
}

func TestSQLiteStore_AddAndSubscribe(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()
	t1 := time.Date(2025, 11, 4, 9, 0, 0, 0, time.UTC)

	id, err := s.Add(ctx, "hello", "hola", t1)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	snapshots, _ := collect(t, s)

	initial := nextSnapshot(t, snapshots)
	require.Len(t, initial, 1)
	assert.Equal(t, id, initial[0].ID)
	assert.Equal(t, "hello", initial[0].OriginalText)
	assert.Equal(t, "hola", initial[0].TranslatedText)
	assert.True(t, t1.Equal(initial[0].Timestamp))

	_, err = s.Add(ctx, "world", "mundo", t1.Add(time.Minute))
	require.NoError(t, err)

	updated := nextSnapshot(t, snapshots)
	assert.ElementsMatch(t, []string{"hello", "world"}, originals(updated))
}

func TestSQLiteStore_SubscribeEmpty(t *testing.T) {
	s := newTestSQLiteStore(t)
	snapshots, _ := collect(t, s)

	initial := nextSnapshot(t, snapshots)
	assert.NotNil(t, initial)
	assert.Empty(t, initial)
}

func TestSQLiteStore_OneSnapshotPerChange(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()
	snapshots, _ := collect(t, s)

	require.Empty(t, nextSnapshot(t, snapshots))

	words := []string{"one", "two", "three", "four"}
	for i, w := range words {
		_, err := s.Add(ctx, w, w+"-es", time.Now())
		require.NoError(t, err)
		assert.Len(t, nextSnapshot(t, snapshots), i+1)
	}
}

func TestSQLiteStore_MultipleSubscribers(t *testing.T) {
	s := newTestSQLiteStore(t)
	first, _ := collect(t, s)
	second, _ := collect(t, s)

	nextSnapshot(t, first)
	nextSnapshot(t, second)

	_, err := s.Add(context.Background(), "cat", "gato", time.Now())
	require.NoError(t, err)

	assert.Equal(t, []string{"cat"}, originals(nextSnapshot(t, first)))
	assert.Equal(t, []string{"cat"}, originals(nextSnapshot(t, second)))
}

func TestSQLiteStore_HandlerMayWrite(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	done := make(chan struct{})
	written := false
	sub, err := s.Subscribe(ctx, func(records []Record) {
		if !written {
			written = true
			_, err := s.Add(ctx, "from", "handler", time.Now())
			assert.NoError(t, err)
			return
		}
		if len(records) == 1 {
			close(done)
		}
	})
	require.NoError(t, err)
	defer sub.Cancel()

	select {
	case <-done:
	case <-time.After(waitTimeout):
		t.Fatal("handler write was not delivered")
	}
}

func TestSQLiteStore_Cancel(t *testing.T) {
	s := newTestSQLiteStore(t)
	snapshots, sub := collect(t, s)
	nextSnapshot(t, snapshots)

	sub.Cancel()
	sub.Cancel()

	select {
	case <-sub.Done():
	case <-time.After(waitTimeout):
		t.Fatal("subscription did not finish")
	}

	_, err := s.Add(context.Background(), "late", "tarde", time.Now())
	require.NoError(t, err)

	select {
	case records := <-snapshots:
		t.Fatalf("unexpected delivery after cancel: %v", records)
	case <-time.After(50 * time.Millisecond):
	}

	s.mu.Lock()
	assert.Empty(t, s.subs)
	s.mu.Unlock()
}

func TestSQLiteStore_ContextCancelStopsSubscription(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx, cancel := context.WithCancel(context.Background())

	sub, err := s.Subscribe(ctx, func([]Record) {})
	require.NoError(t, err)

	cancel()
	select {
	case <-sub.Done():
	case <-time.After(waitTimeout):
		t.Fatal("subscription did not finish after context cancel")
	}
}

func TestSQLiteStore_ClearAll(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	for _, w := range []string{"a", "b", "c"} {
		_, err := s.Add(ctx, w, w, time.Now())
		require.NoError(t, err)
	}

	snapshots, _ := collect(t, s)
	require.Len(t, nextSnapshot(t, snapshots), 3)

	deleted, err := s.ClearAll(ctx)
	require.NoError(t, err)
	assert.Len(t, deleted, 3)

	// One snapshot per delete
	assert.Len(t, nextSnapshot(t, snapshots), 2)
	assert.Len(t, nextSnapshot(t, snapshots), 1)
	assert.Empty(t, nextSnapshot(t, snapshots))

	ids, err := s.documentIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestSQLiteStore_ClearAllEmpty(t *testing.T) {
	s := newTestSQLiteStore(t)
	deleted, err := s.ClearAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, deleted)
}

func TestSQLiteStore_SkipsMalformedDocuments(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := s.Add(ctx, "hello", "hola", time.Now())
	require.NoError(t, err)

	raw := []string{
		`{"originalText":"no translation","timestamp":"2025-11-04T10:00:00Z"}`,
		`{"originalText":"bad time","translatedText":"x","timestamp":12}`,
		`not json at all`,
	}
	for i, data := range raw {
		_, err := s.db.Exec(`INSERT INTO documents (id, collection, data, created) VALUES (?, ?, ?, ?)`,
			"raw"+string(rune('a'+i)), DefaultCollection, data, time.Now().UnixNano())
		require.NoError(t, err)
	}

	snapshots, _ := collect(t, s)
	records := nextSnapshot(t, snapshots)
	assert.Equal(t, []string{"hello"}, originals(records))

	// Malformed documents are still removed by ClearAll
	deleted, err := s.ClearAll(ctx)
	require.NoError(t, err)
	assert.Len(t, deleted, 4)
	ids, err := s.documentIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestSQLiteStore_CollectionsAreIsolated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.db")
	ctx := context.Background()

	a, err := NewSQLiteStore(path, "translations")
	require.NoError(t, err)
	defer a.Close()

	b, err := NewSQLiteStore(path, "other")
	require.NoError(t, err)
	defer b.Close()

	_, err = a.Add(ctx, "hello", "hola", time.Now())
	require.NoError(t, err)

	snapshots, _ := collect(t, b)
	assert.Empty(t, nextSnapshot(t, snapshots))

	_, err = b.ClearAll(ctx)
	require.NoError(t, err)
	ids, err := a.documentIDs(ctx)
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}

func TestSQLiteStore_Closed(t *testing.T) {
	s, err := NewSQLiteStore(":memory:", "")
	require.NoError(t, err)

	sub, err := s.Subscribe(context.Background(), func([]Record) {})
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	select {
	case <-sub.Done():
	case <-time.After(waitTimeout):
		t.Fatal("subscription not cancelled by Close")
	}

	_, err = s.Add(context.Background(), "hello", "hola", time.Now())
	var writeErr *WriteError
	require.True(t, errors.As(err, &writeErr))
	assert.ErrorIs(t, err, ErrClosed)

	_, err = s.ClearAll(context.Background())
	var deleteErr *DeleteError
	require.True(t, errors.As(err, &deleteErr))

	_, err = s.Subscribe(context.Background(), func([]Record) {})
	assert.ErrorIs(t, err, ErrClosed)
}
