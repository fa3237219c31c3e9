package translation

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// DefaultOpenAIModel is used when no chat model is configured
const DefaultOpenAIModel = openai.GPT4oMini

var languageNames = map[string]string{
	"bg": "Bulgarian",
	"de": "German",
	"en": "English",
	"es": "Spanish",
	"fr": "French",
	"it": "Italian",
}

// OpenAIClient implements Translator with a chat completion
type OpenAIClient struct {
	apiKey string
	model  string
	client *openai.Client
}

// NewOpenAIClient creates a new OpenAI backed translator. baseURL may be
// empty to use the public API.
func NewOpenAIClient(apiKey, model, baseURL string) *OpenAIClient {
	if model == "" {
		model = DefaultOpenAIModel
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &OpenAIClient{
		apiKey: apiKey,
		model:  model,
		client: openai.NewClientWithConfig(cfg),
	}
}

// Name returns the provider name
func (c *OpenAIClient) Name() string {
	return "openai"
}

// Translate asks the model for a bare translation of text
func (c *OpenAIClient) Translate(ctx context.Context, text, source, target string) (string, error) {
	if text == "" {
		return "", ErrEmptyText
	}
	if c.apiKey == "" {
		return "", &TransportError{Provider: c.Name(), Err: fmt.Errorf("OpenAI API key not found")}
	}

	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				Content: fmt.Sprintf("Translate the %s text '%s' to %s. Respond with only the %s translation, nothing else.",
					languageName(source), text, languageName(target), languageName(target)),
			},
		},
		MaxTokens:   100,
		Temperature: 0.3,
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", &TransportError{Provider: c.Name(), Err: err}
	}

	if len(resp.Choices) == 0 {
		return "", &ParseError{Provider: c.Name(), Reason: "no translation returned"}
	}

	translated := strings.TrimSpace(resp.Choices[0].Message.Content)
	if translated == "" {
		return "", &ParseError{Provider: c.Name(), Reason: "empty translation returned"}
	}

	return translated, nil
}

func languageName(code string) string {
	if name, ok := languageNames[strings.ToLower(code)]; ok {
		return name
	}
	return code
}
