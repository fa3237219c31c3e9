package translation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultEndpoint is the public MyMemory lookup endpoint
const DefaultEndpoint = "https://api.mymemory.translated.net/get"

// Config configures a MyMemoryClient
type Config struct {
	Endpoint string        // Lookup URL, query string is appended
	Timeout  time.Duration // Zero leaves the transport default in place
	Client   *http.Client  // Optional, overrides Timeout
}

// MyMemoryClient implements Translator against the MyMemory REST API
type MyMemoryClient struct {
	endpoint   string
	httpClient *http.Client
}

// NewMyMemoryClient creates a new MyMemory client
func NewMyMemoryClient(cfg Config) *MyMemoryClient {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	httpClient := cfg.Client
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &MyMemoryClient{
		endpoint:   endpoint,
		httpClient: httpClient,
	}
}

// Name returns the provider name
func (c *MyMemoryClient) Name() string {
	return "mymemory"
}

// Translate looks up text and returns responseData.translatedText
func (c *MyMemoryClient) Translate(ctx context.Context, text, source, target string) (string, error) {
	if text == "" {
		return "", ErrEmptyText
	}

	params := url.Values{}
	params.Set("q", text)
	params.Set("langpair", source+"|"+target)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return "", &TransportError{Provider: c.Name(), Err: fmt.Errorf("failed to create request: %w", err)}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &TransportError{Provider: c.Name(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransportError{Provider: c.Name(), Err: fmt.Errorf("failed to read response: %w", err)}
	}

	return parseMyMemoryResponse(body, resp.StatusCode)
}

// parseMyMemoryResponse extracts responseData.translatedText from body. The
// status code is only used for error context; MyMemory reports quota and
// argument problems inside a JSON body.
func parseMyMemoryResponse(body []byte, status int) (string, error) {
	var envelope map[string]any
	if err := json.Unmarshal(body, &envelope); err != nil {
		return "", &ParseError{Provider: "mymemory", StatusCode: status, Reason: "body is not a JSON object", Err: err}
	}

	data, ok := envelope["responseData"].(map[string]any)
	if !ok {
		return "", &ParseError{Provider: "mymemory", StatusCode: status, Reason: "missing responseData object"}
	}

	translated, ok := data["translatedText"].(string)
	if !ok {
		return "", &ParseError{Provider: "mymemory", StatusCode: status, Reason: "missing responseData.translatedText string"}
	}

	return translated, nil
}
