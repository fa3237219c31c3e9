package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"codeberg.org/snonux/firetrans/internal/logger"
)

// FirestoreStore keeps the collection in Cloud Firestore. Every client
// writing to the same project and collection sees the same snapshots.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
	owned      bool

	mu      sync.Mutex
	subs    map[uint64]*subscription
	nextSub uint64
}

// NewFirestoreStore connects to projectID. FIRESTORE_EMULATOR_HOST is
// honoured by the client library.
func NewFirestoreStore(ctx context.Context, projectID, collection string, opts ...option.ClientOption) (*FirestoreStore, error) {
	if projectID == "" {
		return nil, fmt.Errorf("firestore project ID is required")
	}

	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}

	s := NewFirestoreStoreFromClient(client, collection)
	s.owned = true
	return s, nil
}

// NewFirestoreStoreFromClient wraps an existing client. Close leaves the
// client open.
func NewFirestoreStoreFromClient(client *firestore.Client, collection string) *FirestoreStore {
	if collection == "" {
		collection = DefaultCollection
	}
	return &FirestoreStore{
		client:     client,
		collection: collection,
		subs:       make(map[uint64]*subscription),
	}
}

func (s *FirestoreStore) coll() *firestore.CollectionRef {
	return s.client.Collection(s.collection)
}

// Add creates a document with an auto-generated ID
func (s *FirestoreStore) Add(ctx context.Context, originalText, translatedText string, timestamp time.Time) (string, error) {
	ref, _, err := s.coll().Add(ctx, encodeFields(originalText, translatedText, timestamp))
	if err != nil {
		return "", &WriteError{Err: err}
	}
	return ref.ID, nil
}

// Subscribe starts a snapshot listener on the collection
func (s *FirestoreStore) Subscribe(ctx context.Context, onChange SnapshotFunc) (Subscription, error) {
	subCtx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	sub := newSubscription(cancel, func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	})
	s.subs[id] = sub
	s.mu.Unlock()

	it := s.coll().Snapshots(subCtx)

	go func() {
		defer close(sub.finished)
		// Stop must not run concurrently with Next, so it is only called
		// from this goroutine; Cancel interrupts Next through subCtx.
		defer it.Stop()

		for {
			snap, err := it.Next()
			if err != nil {
				if subCtx.Err() == nil && !errors.Is(err, iterator.Done) {
					logger.Warn("translation listener stopped", "collection", s.collection, "error", err)
				}
				return
			}

			docs, err := snap.Documents.GetAll()
			if err != nil {
				logger.Warn("failed to read snapshot documents", "collection", s.collection, "error", err)
				continue
			}

			records := make([]Record, 0, len(docs))
			for _, doc := range docs {
				records = appendDecoded(records, s.collection, doc.Ref.ID, doc.Data())
			}

			if subCtx.Err() != nil {
				return
			}
			onChange(records)
		}
	}()

	return sub, nil
}

// ClearAll fetches every document and deletes them sequentially
func (s *FirestoreStore) ClearAll(ctx context.Context) ([]string, error) {
	docs, err := s.coll().Documents(ctx).GetAll()
	if err != nil {
		return nil, &DeleteError{Err: fmt.Errorf("failed to list documents: %w", err)}
	}

	deleted := make([]string, 0, len(docs))
	for i, doc := range docs {
		if _, err := doc.Ref.Delete(ctx); err != nil {
			return deleted, &DeleteError{Deleted: i, Total: len(docs), Err: fmt.Errorf("failed to delete %s: %w", doc.Ref.ID, err)}
		}
		deleted = append(deleted, doc.Ref.ID)
	}

	return deleted, nil
}

// Close cancels all listeners and closes the client if this store created it
func (s *FirestoreStore) Close() error {
	s.mu.Lock()
	subs := make([]*subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub.Cancel()
		<-sub.Done()
	}

	if !s.owned {
		return nil
	}
	return s.client.Close()
}
