package translation

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMyMemoryServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32, *atomic.Value) {
	t.Helper()

	var calls atomic.Int32
	var rawQuery atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		rawQuery.Store(r.URL.RawQuery)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	return server, &calls, &rawQuery
}

func TestNewMyMemoryClient_Defaults(t *testing.T) {
	client := NewMyMemoryClient(Config{})

	require.NotNil(t, client)
	assert.Equal(t, DefaultEndpoint, client.endpoint)
	assert.Equal(t, time.Duration(0), client.httpClient.Timeout)
	assert.Equal(t, "mymemory", client.Name())
}

func TestMyMemoryClient_Translate_Success(t *testing.T) {
	server, calls, rawQuery := newMyMemoryServer(t, http.StatusOK,
		`{"responseData":{"translatedText":"hola","match":1},"responseStatus":200}`)
	client := NewMyMemoryClient(Config{Endpoint: server.URL})

	got, err := client.Translate(context.Background(), "hello", "en", "es")
	require.NoError(t, err)
	assert.Equal(t, "hola", got)
	assert.Equal(t, int32(1), calls.Load())

	query, err := url.ParseQuery(rawQuery.Load().(string))
	require.NoError(t, err)
	assert.Equal(t, "hello", query.Get("q"))
	assert.Equal(t, "en|es", query.Get("langpair"))
}

func TestMyMemoryClient_Translate_EncodesText(t *testing.T) {
	server, calls, rawQuery := newMyMemoryServer(t, http.StatusOK,
		`{"responseData":{"translatedText":"buenos días & adiós"}}`)
	client := NewMyMemoryClient(Config{Endpoint: server.URL})

	text := "good morning & bye?"
	got, err := client.Translate(context.Background(), text, "en", "es")
	require.NoError(t, err)
	assert.Equal(t, "buenos días & adiós", got)
	assert.Equal(t, int32(1), calls.Load())

	raw := rawQuery.Load().(string)
	assert.Contains(t, raw, "q="+url.QueryEscape(text))
	assert.NotContains(t, raw, " ")
}

func TestMyMemoryClient_Translate_ParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		reason string
	}{
		{"not json", http.StatusOK, `<html>oops</html>`, "not a JSON object"},
		{"json array", http.StatusOK, `["hola"]`, "not a JSON object"},
		{"missing responseData", http.StatusOK, `{"responseStatus":403}`, "missing responseData object"},
		{"responseData not object", http.StatusOK, `{"responseData":"hola"}`, "missing responseData object"},
		{"missing translatedText", http.StatusOK, `{"responseData":{"match":1}}`, "translatedText"},
		{"translatedText not string", http.StatusOK, `{"responseData":{"translatedText":42}}`, "translatedText"},
		{"server error body", http.StatusInternalServerError, `internal error`, "not a JSON object"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, calls, _ := newMyMemoryServer(t, tt.status, tt.body)
			client := NewMyMemoryClient(Config{Endpoint: server.URL})

			_, err := client.Translate(context.Background(), "hello", "en", "es")
			require.Error(t, err)

			var parseErr *ParseError
			require.True(t, errors.As(err, &parseErr), "expected ParseError, got %T", err)
			assert.Contains(t, parseErr.Reason, tt.reason)
			assert.Equal(t, tt.status, parseErr.StatusCode)
			assert.Equal(t, int32(1), calls.Load())
		})
	}
}

func TestMyMemoryClient_Translate_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	endpoint := server.URL
	server.Close()

	client := NewMyMemoryClient(Config{Endpoint: endpoint})
	_, err := client.Translate(context.Background(), "hello", "en", "es")
	require.Error(t, err)

	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr), "expected TransportError, got %T", err)
	assert.Equal(t, "mymemory", transportErr.Provider)
}

func TestMyMemoryClient_Translate_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := NewMyMemoryClient(Config{Endpoint: server.URL, Timeout: 50 * time.Millisecond})
	_, err := client.Translate(context.Background(), "hello", "en", "es")

	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr), "expected TransportError, got %v", err)
}

func TestMyMemoryClient_Translate_EmptyText(t *testing.T) {
	server, calls, _ := newMyMemoryServer(t, http.StatusOK, `{}`)
	client := NewMyMemoryClient(Config{Endpoint: server.URL})

	_, err := client.Translate(context.Background(), "", "en", "es")
	require.ErrorIs(t, err, ErrEmptyText)
	assert.Equal(t, int32(0), calls.Load())
}

func TestParseError_Message(t *testing.T) {
	err := &ParseError{Provider: "mymemory", StatusCode: 502, Reason: "missing responseData object"}
	assert.True(t, strings.HasPrefix(err.Error(), "mymemory: malformed response"))
	assert.Contains(t, err.Error(), "status 502")
}
