package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/lyrabot/lyra/internal/logger"
)

type baseHTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  logger.Logger
}

func NewBaseHTTPClient(client *http.Client, baseURL, apiKey string, log logger.Logger) *baseHTTPClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &baseHTTPClient{
		client:  client,
		baseURL: baseURL,
		apiKey:  apiKey,
		logger:  log,
	}
}

func (c *baseHTTPClient) logRequest(req *http.Request, body []byte) {
	var bodyData any
	if len(body) > 0 {
		if err := json.Unmarshal(body, &bodyData); err == nil {
			if m, ok := bodyData.(map[string]any); ok {
				truncateLargeFields(m)
			}
		}
	}

	logData := map[string]any{
		"url":    req.URL.String(),
		"method": req.Method,
		"body":   bodyData,
	}

	jsonData, err := json.Marshal(logData)
	if err != nil {
		c.logger.WithError(err).Error("Fail marshal json for request")
	}
	c.logger.WithField("request", string(jsonData)).Debug("HTTP request")
}

func truncateLargeFields(data map[string]any) {
	for k, v := range data {
		switch val := v.(type) {
		case string:
			if (k == "content" || k == "text") && len(val) > 1000 {
				data[k] = val[:1000] + "...[truncated]"
			}
		case map[string]any:
			truncateLargeFields(val)
		case []any:
			for _, item := range val {
				if m, ok := item.(map[string]any); ok {
					truncateLargeFields(m)
				}
			}
		}
	}
}

func (c *baseHTTPClient) Do(req *http.Request) (*http.Response, error) {
	if c.baseURL != "" && !strings.HasPrefix(req.URL.String(), "http") {
		req.URL, _ = url.Parse(fmt.Sprintf(
			"%s/%s",
			strings.TrimSuffix(c.baseURL, "/"),
			strings.TrimPrefix(req.URL.String(), "/"),
		))
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")

	var body []byte
	if req.Body != nil {
		body, _ = io.ReadAll(req.Body)
		req.Body = io.NopCloser(bytes.NewBuffer(body))
	}

	c.logRequest(req, body)

	return c.client.Do(req)
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ModelParams struct {
	Temperature *float32 `json:"temperature,omitzero"`
	MaxTokens   *int     `json:"max_tokens,omitzero"`
}

type CompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Stream      bool      `json:"stream"`
	Temperature *float32  `json:"temperature,omitzero"`
	MaxTokens   *int      `json:"max_tokens,omitzero"`
}

// CompletionResponse covers the envelopes of both supported backend kinds:
// OpenAI-style {choices:[{message:{content}}]} and Ollama-style
// {message:{content}} or {response}.
type CompletionResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Response string         `json:"response"`
	Error    *ProviderError `json:"error,omitzero"`
}

// Text returns whichever reply field the backend populated. Empty when the
// backend produced no reply; the caller decides how to surface that.
func (r *CompletionResponse) Text() string {
	if len(r.Choices) > 0 && r.Choices[0].Message.Content != "" {
		return strings.TrimSpace(r.Choices[0].Message.Content)
	}
	if r.Message.Content != "" {
		return strings.TrimSpace(r.Message.Content)
	}
	return strings.TrimSpace(r.Response)
}

type ProviderError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Type    string `json:"type"`
}

// Provider is the uniform capability every backend kind implements, so the
// orchestrator never branches on the backend's wire protocol.
type Provider interface {
	Name() string
	Ask(ctx context.Context, request CompletionRequest) (string, *CompletionResponse, error)
	CreateRequest(model string, messages []Message, params ModelParams) CompletionRequest
	GetDefaultModel() string
}

// ErrorType for errors classification
type ErrorType string

const (
	ErrorTypeNetwork   ErrorType = "network"   // connect error, timeout
	ErrorTypeRejected  ErrorType = "rejected"  // non-2xx HTTP from the backend
	ErrorTypeMalformed ErrorType = "malformed" // unparseable response body
	ErrorTypeUnknown   ErrorType = "unknown"
)

// AIError represents an enriched error from an AI backend
type AIError struct {
	// OriginalErr is the original error (if any)
	OriginalErr error `json:"-"`
	// ProviderName is the backend name (e.g. "openai", "ollama")
	ProviderName string `json:"provider_name"`
	// ModelName is the model name where the error occurred
	ModelName string `json:"model_name"`
	// HTTPStatusCode is the HTTP response status code (if applicable)
	HTTPStatusCode int `json:"http_status_code"`
	// BodySnippet is the start of the response body, for operator diagnostics
	BodySnippet string `json:"body_snippet,omitempty"`
	// Kind is the classification of the failure
	Kind ErrorType `json:"kind"`
	// Message is a human-readable error message
	Message string `json:"message"`
}

func (e *AIError) Error() string {
	msg := e.Message
	if msg == "" && e.OriginalErr != nil {
		msg = e.OriginalErr.Error()
	}
	if e.ProviderName != "" && e.ModelName != "" {
		msg = fmt.Sprintf("[%s:%s] %s", e.ProviderName, e.ModelName, msg)
	}
	if e.HTTPStatusCode != 0 {
		msg = fmt.Sprintf("%d %s", e.HTTPStatusCode, msg)
	}
	return msg
}

// Unwrap for compatibility with errors.Is and errors.As
func (e *AIError) Unwrap() error {
	return e.OriginalErr
}

func (e *AIError) ErrorType() ErrorType {
	if e.Kind != "" {
		return e.Kind
	}
	if e.HTTPStatusCode != 0 {
		return ErrorTypeRejected
	}
	return ErrorTypeUnknown
}

// IsRetryable determines if a request can be safely retried. Only transient
// network failures qualify; a rejected request would fail again.
func (e *AIError) IsRetryable() bool {
	return e.ErrorType() == ErrorTypeNetwork
}

// Helper functions for error analysis

func IsRetryableError(err error) bool {
	var aiErr *AIError
	if errors.As(err, &aiErr) {
		return aiErr.IsRetryable()
	}
	return false
}

func GetErrorType(err error) ErrorType {
	var aiErr *AIError
	if errors.As(err, &aiErr) {
		return aiErr.ErrorType()
	}
	return ErrorTypeUnknown
}

func IsErrorType(err error, errorType ErrorType) bool {
	return GetErrorType(err) == errorType
}
