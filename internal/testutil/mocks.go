package testutil

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"codeberg.org/snonux/firetrans/internal/store"
	"codeberg.org/snonux/firetrans/internal/translation"
)

// TranslateCall records one MockTranslator.Translate invocation
type TranslateCall struct {
	Text   string
	Source string
	Target string
}

// MockTranslator mocks translation.Translator
type MockTranslator struct {
	Responses map[string]string
	Errors    map[string]error

	// Block, when set, holds every call until it is closed or ctx is done
	Block chan struct{}

	mu    sync.Mutex
	calls []TranslateCall
}

// Translate returns the configured response or error for text
func (m *MockTranslator) Translate(ctx context.Context, text, source, target string) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, TranslateCall{Text: text, Source: source, Target: target})
	m.mu.Unlock()

	if m.Block != nil {
		select {
		case <-m.Block:
		case <-ctx.Done():
			return "", &translation.TransportError{Provider: "mock", Err: ctx.Err()}
		}
	}

	if err, ok := m.Errors[text]; ok {
		return "", err
	}
	if resp, ok := m.Responses[text]; ok {
		return resp, nil
	}
	return "", &translation.ParseError{Provider: "mock", Reason: fmt.Sprintf("no mock response for %q", text)}
}

// Name returns the provider name
func (m *MockTranslator) Name() string {
	return "mock"
}

// Calls returns a copy of the recorded calls
func (m *MockTranslator) Calls() []TranslateCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.calls)
}

// AddCall records one MockStore.Add invocation
type AddCall struct {
	OriginalText   string
	TranslatedText string
	Timestamp      time.Time
}

// MockStore is an in-memory store.Store. Snapshots are delivered
// synchronously on the calling goroutine.
type MockStore struct {
	// AddErr makes every Add fail with a store.WriteError
	AddErr error
	// ListErr makes ClearAll fail before deleting anything
	ListErr error
	// FailDeleteAt makes the n-th delete (1-based) of a ClearAll fail
	FailDeleteAt int
	// Quiet suppresses snapshot delivery after writes
	Quiet bool

	mu          sync.Mutex
	records     []store.Record
	nextID      int
	subs        map[int]store.SnapshotFunc
	nextSub     int
	addCalls    []AddCall
	deleteCalls []string
}

// NewMockStore creates a store seeded with records
func NewMockStore(records ...store.Record) *MockStore {
	return &MockStore{
		records: slices.Clone(records),
		subs:    make(map[int]store.SnapshotFunc),
	}
}

// Add appends a record and notifies subscribers
func (m *MockStore) Add(ctx context.Context, originalText, translatedText string, timestamp time.Time) (string, error) {
	m.mu.Lock()
	m.addCalls = append(m.addCalls, AddCall{OriginalText: originalText, TranslatedText: translatedText, Timestamp: timestamp})
	if m.AddErr != nil {
		m.mu.Unlock()
		return "", &store.WriteError{Err: m.AddErr}
	}
	m.nextID++
	id := fmt.Sprintf("doc-%d", m.nextID)
	m.records = append(m.records, store.Record{
		ID:             id,
		OriginalText:   originalText,
		TranslatedText: translatedText,
		Timestamp:      timestamp,
	})
	m.mu.Unlock()

	m.notify()
	return id, nil
}

// Subscribe registers onChange and delivers the current snapshot
func (m *MockStore) Subscribe(ctx context.Context, onChange store.SnapshotFunc) (store.Subscription, error) {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = onChange
	snapshot := slices.Clone(m.records)
	m.mu.Unlock()

	onChange(snapshot)

	return &mockSubscription{
		done: make(chan struct{}),
		cancel: func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
		},
	}, nil
}

// ClearAll deletes records one at a time
func (m *MockStore) ClearAll(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	if m.ListErr != nil {
		m.mu.Unlock()
		return nil, &store.DeleteError{Err: m.ListErr}
	}
	ids := make([]string, 0, len(m.records))
	for _, r := range m.records {
		ids = append(ids, r.ID)
	}
	m.mu.Unlock()

	for i, id := range ids {
		m.mu.Lock()
		m.deleteCalls = append(m.deleteCalls, id)
		if m.FailDeleteAt == i+1 {
			m.mu.Unlock()
			return ids[:i], &store.DeleteError{Deleted: i, Total: len(ids), Err: errors.New("permission denied")}
		}
		m.records = slices.DeleteFunc(m.records, func(r store.Record) bool { return r.ID == id })
		m.mu.Unlock()

		m.notify()
	}

	return ids, nil
}

// Close drops all subscribers
func (m *MockStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.subs)
	return nil
}

// Push delivers an arbitrary snapshot to every subscriber
func (m *MockStore) Push(records []store.Record) {
	m.mu.Lock()
	subs := m.subscribers()
	m.mu.Unlock()

	for _, fn := range subs {
		fn(slices.Clone(records))
	}
}

// AddCalls returns a copy of the recorded Add calls
func (m *MockStore) AddCalls() []AddCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.addCalls)
}

// DeleteCalls returns the IDs passed to delete, in order
func (m *MockStore) DeleteCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.deleteCalls)
}

// Records returns a copy of the stored records
func (m *MockStore) Records() []store.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.records)
}

// Subscribers returns the number of active subscriptions
func (m *MockStore) Subscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

func (m *MockStore) notify() {
	m.mu.Lock()
	if m.Quiet {
		m.mu.Unlock()
		return
	}
	subs := m.subscribers()
	snapshot := slices.Clone(m.records)
	m.mu.Unlock()

	for _, fn := range subs {
		fn(slices.Clone(snapshot))
	}
}

func (m *MockStore) subscribers() []store.SnapshotFunc {
	subs := make([]store.SnapshotFunc, 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	return subs
}

type mockSubscription struct {
	once   sync.Once
	done   chan struct{}
	cancel func()
}

func (s *mockSubscription) Cancel() {
	s.once.Do(func() {
		s.cancel()
		close(s.done)
	})
}

func (s *mockSubscription) Done() <-chan struct{} {
	return s.done
}
