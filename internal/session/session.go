package session

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"codeberg.org/snonux/firetrans/internal/logger"
	"codeberg.org/snonux/firetrans/internal/store"
	"codeberg.org/snonux/firetrans/internal/translation"
)

// Messages shown for failures
const (
	MessageTranslationFailed = "Translation failed."
	messageErrorPrefix       = "Error: "
	messageSaveFailedPrefix  = "Saved translation failed: "
	messageClearFailedPrefix = "Error deleting translations: "
)

var errAlreadyStarted = errors.New("session already started")

// ErrClearFailed is returned by ClearAll when the store could not delete
// every record. The display text is in Message.
var ErrClearFailed = errors.New("clear failed")

// Config holds session settings
type Config struct {
	Source string           // Source language code
	Target string           // Target language code
	Now    func() time.Time // Clock for record timestamps
}

// View is an immutable copy of everything a UI renders
type View struct {
	State       State
	Input       string
	Translation string
	Message     string
	Records     []store.Record
}

// Session coordinates a Translator and a Store
type Session struct {
	translator translation.Translator
	store      store.Store
	source     string
	target     string
	now        func() time.Time

	mu          sync.Mutex
	state       State
	input       string
	translation string
	message     string
	sub         store.Subscription
	closed      bool
	onChange    func(View)

	// IDs removed by ClearAll. Snapshots queued before the deletes may
	// still carry them, so they are filtered out. IDs are never reused.
	cleared map[string]struct{}

	// records is replaced wholesale on every snapshot, never mutated.
	// Stores happen under mu so a stale snapshot cannot overwrite a clear.
	records atomic.Pointer[[]store.Record]
}

// New creates a session
func New(translator translation.Translator, st store.Store, cfg Config) *Session {
	if cfg.Source == "" {
		cfg.Source = translation.DefaultSource
	}
	if cfg.Target == "" {
		cfg.Target = translation.DefaultTarget
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	s := &Session{
		translator: translator,
		store:      st,
		source:     cfg.Source,
		target:     cfg.Target,
		now:        cfg.Now,
	}
	empty := []store.Record{}
	s.records.Store(&empty)
	return s
}

// OnChange sets the observer called after every state or list change
func (s *Session) OnChange(fn func(View)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// Start subscribes to the store. Snapshots may arrive on any goroutine.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.sub != nil || s.closed {
		s.mu.Unlock()
		return errAlreadyStarted
	}
	s.mu.Unlock()

	sub, err := s.store.Subscribe(ctx, s.applySnapshot)
	if err != nil {
		return fmt.Errorf("failed to subscribe to translations: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		sub.Cancel()
		return errAlreadyStarted
	}
	s.sub = sub
	return nil
}

// Close cancels the subscription. No observer call happens afterwards
// except one that was already running.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	sub := s.sub
	s.sub = nil
	s.onChange = nil
	s.mu.Unlock()

	if sub != nil {
		sub.Cancel()
	}
}

// SetInput updates the pending text
func (s *Session) SetInput(text string) {
	s.mu.Lock()
	s.input = text
	s.mu.Unlock()
	s.notify()
}

// Submit translates text and saves the result. Empty text and calls made
// while a translation is running are ignored. The returned state is
// terminal unless the call was ignored.
func (s *Session) Submit(ctx context.Context, text string) State {
	s.mu.Lock()
	if text == "" || s.state == StateTranslating {
		state := s.state
		s.mu.Unlock()
		return state
	}
	s.state = StateTranslating
	s.input = text
	s.message = ""
	s.mu.Unlock()
	s.notify()

	translated, err := s.translator.Translate(ctx, text, s.source, s.target)
	if err != nil {
		logger.Debug("translation failed", "text", text, "provider", s.translator.Name(), "error", err)
		return s.finish(func() {
			s.state = StateTranslateFailed
			s.translation = ""
			s.message = failureMessage(err)
		})
	}

	// The translation is shown whether or not the save below succeeds
	s.mu.Lock()
	s.translation = translated
	s.mu.Unlock()
	s.notify()

	if _, err := s.store.Add(ctx, text, translated, s.now()); err != nil {
		logger.Warn("failed to save translation", "text", text, "error", err)
		return s.finish(func() {
			s.state = StateSaveFailed
			s.message = messageSaveFailedPrefix + errorDetail(err)
		})
	}

	return s.finish(func() {
		s.state = StateSaved
		if s.input == text {
			s.input = ""
		}
	})
}

// Acknowledge returns a finished session to Idle
func (s *Session) Acknowledge() {
	s.mu.Lock()
	changed := s.state.Terminal()
	if changed {
		s.state = StateIdle
	}
	s.mu.Unlock()

	if changed {
		s.notify()
	}
}

// ClearAll removes every record from the store. On success the local list
// is emptied at once; on failure it is left as it was and ErrClearFailed
// is returned.
func (s *Session) ClearAll(ctx context.Context) error {
	deleted, err := s.store.ClearAll(ctx)

	s.mu.Lock()
	if s.cleared == nil {
		s.cleared = make(map[string]struct{}, len(deleted))
	}
	for _, id := range deleted {
		s.cleared[id] = struct{}{}
	}

	if err != nil {
		s.message = messageClearFailedPrefix + errorDetail(err)
		s.mu.Unlock()
		logger.Error("failed to clear translations", "error", err)
		s.notify()
		return fmt.Errorf("%w: %s", ErrClearFailed, errorDetail(err))
	}

	empty := []store.Record{}
	s.records.Store(&empty)
	if strings.HasPrefix(s.message, messageClearFailedPrefix) {
		s.message = ""
	}
	s.mu.Unlock()
	s.notify()
	return nil
}

// State returns the current state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Input returns the pending text
func (s *Session) Input() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.input
}

// Translation returns the last displayed translation
func (s *Session) Translation() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.translation
}

// Message returns the last failure message, if any
func (s *Session) Message() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.message
}

// Records returns the cached records, newest first
func (s *Session) Records() []store.Record {
	return slices.Clone(*s.records.Load())
}

// View returns a snapshot of the whole session
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) viewLocked() View {
	return View{
		State:       s.state,
		Input:       s.input,
		Translation: s.translation,
		Message:     s.message,
		Records:     slices.Clone(*s.records.Load()),
	}
}

func (s *Session) applySnapshot(records []store.Record) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	sorted := make([]store.Record, 0, len(records))
	for _, r := range records {
		if _, gone := s.cleared[r.ID]; !gone {
			sorted = append(sorted, r)
		}
	}
	SortRecords(sorted)
	s.records.Store(&sorted)
	s.mu.Unlock()

	s.notify()
}

func (s *Session) finish(update func()) State {
	s.mu.Lock()
	update()
	state := s.state
	s.mu.Unlock()
	s.notify()
	return state
}

func (s *Session) notify() {
	s.mu.Lock()
	fn := s.onChange
	var view View
	if fn != nil {
		view = s.viewLocked()
	}
	s.mu.Unlock()

	if fn != nil {
		fn(view)
	}
}

// SortRecords orders records newest first. Equal timestamps are ordered by
// ID so repeated sorts of the same snapshot agree.
func SortRecords(records []store.Record) {
	slices.SortStableFunc(records, func(a, b store.Record) int {
		if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// failureMessage turns a translation error into display text
func failureMessage(err error) string {
	var parseErr *translation.ParseError
	if errors.As(err, &parseErr) {
		return MessageTranslationFailed
	}
	return messageErrorPrefix + errorDetail(err)
}

// errorDetail strips typed wrappers so messages show the underlying cause
func errorDetail(err error) string {
	var transportErr *translation.TransportError
	if errors.As(err, &transportErr) && transportErr.Err != nil {
		return transportErr.Err.Error()
	}
	var writeErr *store.WriteError
	if errors.As(err, &writeErr) && writeErr.Err != nil {
		return writeErr.Err.Error()
	}
	return err.Error()
}
