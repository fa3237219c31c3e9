package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"codeberg.org/snonux/firetrans/internal"
	"codeberg.org/snonux/firetrans/internal/logger"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS documents (
	id         TEXT PRIMARY KEY,
	collection TEXT NOT NULL,
	data       TEXT NOT NULL,
	created    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents (collection, created);
`

// SQLiteStore keeps the collection as JSON documents in a SQLite file.
// Changes made through this store are pushed to its subscribers; writes from
// other processes are not observed until the next local change.
type SQLiteStore struct {
	db         *sql.DB
	collection string

	// mu serializes writes so every subscriber sees snapshots in commit order
	mu      sync.Mutex
	subs    map[uint64]*sqliteSubscriber
	nextSub uint64
	closed  bool
}

// sqliteSubscriber queues snapshots for one subscription. The queue is
// unbounded so a slow handler never blocks a writer.
type sqliteSubscriber struct {
	sub      *subscription
	ctx      context.Context
	onChange SnapshotFunc

	mu      sync.Mutex
	pending [][]Record
	wake    chan struct{}
}

// NewSQLiteStore opens (or creates) the database at path
func NewSQLiteStore(path, collection string) (*SQLiteStore, error) {
	if collection == "" {
		collection = DefaultCollection
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and avoids
	// SQLITE_BUSY between our own writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &SQLiteStore{
		db:         db,
		collection: collection,
		subs:       make(map[uint64]*sqliteSubscriber),
	}, nil
}

// Add inserts a new document and notifies subscribers
func (s *SQLiteStore) Add(ctx context.Context, originalText, translatedText string, timestamp time.Time) (string, error) {
	data, err := json.Marshal(encodeFields(originalText, translatedText, timestamp.UTC().Format(time.RFC3339Nano)))
	if err != nil {
		return "", &WriteError{Err: fmt.Errorf("failed to encode document: %w", err)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", &WriteError{Err: ErrClosed}
	}

	id := internal.NewRecordID()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (id, collection, data, created) VALUES (?, ?, ?, ?)`,
		id, s.collection, string(data), time.Now().UnixNano(),
	)
	if err != nil {
		return "", &WriteError{Err: err}
	}

	s.broadcastLocked(ctx)
	return id, nil
}

// Subscribe registers onChange and delivers the current snapshot first
func (s *SQLiteStore) Subscribe(ctx context.Context, onChange SnapshotFunc) (Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}

	records, err := s.snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	id := s.nextSub
	s.nextSub++

	subscriber := &sqliteSubscriber{
		ctx:      subCtx,
		onChange: onChange,
		wake:     make(chan struct{}, 1),
	}
	subscriber.sub = newSubscription(cancel, func() { s.unsubscribe(id) })
	s.subs[id] = subscriber

	subscriber.push(records)
	go subscriber.run()

	return subscriber.sub, nil
}

// ClearAll lists the current documents and deletes them one by one
func (s *SQLiteStore) ClearAll(ctx context.Context) ([]string, error) {
	ids, err := s.documentIDs(ctx)
	if err != nil {
		return nil, &DeleteError{Err: fmt.Errorf("failed to list documents: %w", err)}
	}

	for i, id := range ids {
		if err := s.delete(ctx, id); err != nil {
			return ids[:i], &DeleteError{Deleted: i, Total: len(ids), Err: err}
		}
	}

	return ids, nil
}

// Close cancels every subscription and closes the database
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	subs := make([]*sqliteSubscriber, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub.sub.Cancel()
	}

	return s.db.Close()
}

func (s *SQLiteStore) delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	// Deleting a document another client already removed is not an error
	if _, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ? AND collection = ?`, id, s.collection); err != nil {
		return fmt.Errorf("failed to delete %s: %w", id, err)
	}

	s.broadcastLocked(ctx)
	return nil
}

func (s *SQLiteStore) documentIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM documents WHERE collection = ? ORDER BY created, id`, s.collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// snapshot reads and materializes the whole collection
func (s *SQLiteStore) snapshot(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, data FROM documents WHERE collection = ? ORDER BY created, id`, s.collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]Record, 0)
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, err
		}

		var fields map[string]any
		if err := json.Unmarshal([]byte(data), &fields); err != nil {
			logger.Debug("skipping undecodable document", "collection", s.collection, "id", id, "error", err)
			continue
		}
		records = appendDecoded(records, s.collection, id, fields)
	}
	return records, rows.Err()
}

// broadcastLocked pushes a fresh snapshot to every subscriber. Callers hold
// s.mu and have already committed their change.
func (s *SQLiteStore) broadcastLocked(ctx context.Context) {
	if len(s.subs) == 0 {
		return
	}

	records, err := s.snapshot(context.WithoutCancel(ctx))
	if err != nil {
		logger.Warn("failed to read snapshot for subscribers", "collection", s.collection, "error", err)
		return
	}

	for _, sub := range s.subs {
		sub.push(slices.Clone(records))
	}
}

func (s *SQLiteStore) unsubscribe(id uint64) {
	s.mu.Lock()
	delete(s.subs, id)
	s.mu.Unlock()
}

func (q *sqliteSubscriber) push(records []Record) {
	q.mu.Lock()
	q.pending = append(q.pending, records)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *sqliteSubscriber) next() ([]Record, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		return nil, false
	}
	records := q.pending[0]
	q.pending[0] = nil
	q.pending = q.pending[1:]
	return records, true
}

func (q *sqliteSubscriber) run() {
	defer close(q.sub.finished)
	defer q.sub.Cancel()

	for {
		select {
		case <-q.ctx.Done():
			return
		case <-q.wake:
		}

		for {
			records, ok := q.next()
			if !ok {
				break
			}
			if q.ctx.Err() != nil {
				return
			}
			q.onChange(records)
		}
	}
}
