package translation

import (
	"context"
	"errors"
	"fmt"
)

// Default language pair
const (
	DefaultSource = "en"
	DefaultTarget = "es"
)

// ErrEmptyText is returned when asked to translate an empty string
var ErrEmptyText = errors.New("text to translate is empty")

// Translator translates text from one language to another. Exactly one
// upstream request is made per call.
type Translator interface {
	Translate(ctx context.Context, text, source, target string) (string, error)

	// Name returns the provider name
	Name() string
}

// TransportError indicates the request itself failed (DNS, refused
// connection, timeout, upstream API error).
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: request failed: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ParseError indicates a response arrived but did not carry a translation
type ParseError struct {
	Provider   string
	StatusCode int
	Reason     string
	Err        error
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("%s: malformed response: %s", e.Provider, e.Reason)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
