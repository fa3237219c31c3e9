package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// DefaultCollection is the logical collection every record is written to
const DefaultCollection = "translations"

// Document field names
const (
	FieldOriginalText   = "originalText"
	FieldTranslatedText = "translatedText"
	FieldTimestamp      = "timestamp"
)

// ErrClosed is returned by operations on a closed store
var ErrClosed = errors.New("store is closed")

// Record is one persisted translation. Records are never modified after
// creation.
type Record struct {
	ID             string
	OriginalText   string
	TranslatedText string
	Timestamp      time.Time
}

// SnapshotFunc receives the full, unordered contents of the collection
type SnapshotFunc func(records []Record)

// Store is a document collection of translation records
type Store interface {
	// Add writes a new record and returns the identifier the store assigned
	Add(ctx context.Context, originalText, translatedText string, timestamp time.Time) (string, error)

	// Subscribe delivers the current snapshot and then one snapshot per
	// change until the subscription is cancelled or ctx is done.
	Subscribe(ctx context.Context, onChange SnapshotFunc) (Subscription, error)

	// ClearAll deletes every record one at a time and returns the IDs it
	// removed, including on a partial failure. It is not atomic.
	ClearAll(ctx context.Context) ([]string, error)

	// Close releases the backend and cancels all subscriptions
	Close() error
}

// Subscription is a live registration returned by Store.Subscribe
type Subscription interface {
	// Cancel stops further deliveries. A delivery already in progress
	// still completes.
	Cancel()

	// Done is closed once the delivery goroutine has exited
	Done() <-chan struct{}
}

// WriteError reports a failed Add. Nothing was written.
type WriteError struct {
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to save translation: %v", e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// DeleteError reports a failed ClearAll. Deleted records are not restored,
// so Deleted of Total records are already gone.
type DeleteError struct {
	Deleted int
	Total   int
	Err     error
}

func (e *DeleteError) Error() string {
	if e.Total == 0 {
		return fmt.Sprintf("failed to clear translations: %v", e.Err)
	}
	return fmt.Sprintf("failed to clear translations (%d of %d deleted): %v", e.Deleted, e.Total, e.Err)
}

func (e *DeleteError) Unwrap() error {
	return e.Err
}

// Partial reports whether some records were deleted before the failure
func (e *DeleteError) Partial() bool {
	return e.Deleted > 0
}

// subscription is the Subscription shared by both backends
type subscription struct {
	cancel   context.CancelFunc
	once     sync.Once
	finished chan struct{}
	onCancel func()
}

func newSubscription(cancel context.CancelFunc, onCancel func()) *subscription {
	return &subscription{
		cancel:   cancel,
		finished: make(chan struct{}),
		onCancel: onCancel,
	}
}

func (s *subscription) Cancel() {
	s.once.Do(func() {
		s.cancel()
		if s.onCancel != nil {
			s.onCancel()
		}
	})
}

func (s *subscription) Done() <-chan struct{} {
	return s.finished
}
