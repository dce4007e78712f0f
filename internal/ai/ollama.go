package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/lyrabot/lyra/internal/logger"
)

// ngrok tunnels only accept their canonical hostnames; anything else is a
// misconfigured base address.
var ngrokURLRe = regexp.MustCompile(`(?i)^https://[a-z0-9-]+\.ngrok-free\.app$`)

// ValidateOllamaBaseURL cleans and validates a runtime-supplied Ollama base
// address. The address must not include the /api path segment.
func ValidateOllamaBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.Trim(raw, `'"`)
	raw = strings.TrimSuffix(raw, "/")
	if raw == "" || strings.Contains(raw, "/api") {
		return "", fmt.Errorf("ollama base url missing or invalid (do not include /api)")
	}
	if strings.Contains(raw, "ngrok-free.app") && !ngrokURLRe.MatchString(raw) {
		return "", fmt.Errorf("ollama base url not valid: %s", raw)
	}
	return raw, nil
}

// OllamaClient talks to an Ollama chat endpoint, non-streaming.
type OllamaClient struct {
	name         string
	defaultModel string
	logger       logger.Logger
	httpClient   *baseHTTPClient
}

func NewOllamaClient(
	name string,
	baseURL string,
	defaultModel string,
	log logger.Logger,
	httpClient *http.Client,
) *OllamaClient {
	return &OllamaClient{
		name:         name,
		defaultModel: defaultModel,
		httpClient:   NewBaseHTTPClient(httpClient, baseURL, "", log),
		logger:       log,
	}
}

func (c *OllamaClient) Name() string {
	return c.name
}

func (c *OllamaClient) GetDefaultModel() string {
	return c.defaultModel
}

func (c *OllamaClient) CreateRequest(model string, messages []Message, params ModelParams) CompletionRequest {
	if model == "" {
		model = c.defaultModel
	}
	return CompletionRequest{
		Model:    model,
		Messages: messages,
		Stream:   false,
	}
}

func (c *OllamaClient) Ask(ctx context.Context, request CompletionRequest) (string, *CompletionResponse, error) {
	requestBody, err := json.Marshal(request)
	if err != nil {
		return "", nil, &AIError{
			OriginalErr:  err,
			ProviderName: c.Name(),
			ModelName:    request.Model,
			Kind:         ErrorTypeUnknown,
			Message:      "marshal request failed",
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "api/chat", bytes.NewBuffer(requestBody))
	if err != nil {
		return "", nil, &AIError{
			OriginalErr:  err,
			ProviderName: c.Name(),
			ModelName:    request.Model,
			Kind:         ErrorTypeUnknown,
			Message:      "create request failed",
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", nil, &AIError{
			OriginalErr:  err,
			ProviderName: c.Name(),
			ModelName:    request.Model,
			Kind:         ErrorTypeNetwork,
			Message:      "network request failed",
		}
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, &AIError{
			OriginalErr:  err,
			ProviderName: c.Name(),
			ModelName:    request.Model,
			Kind:         ErrorTypeNetwork,
			Message:      "failed to read response body",
		}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		aiErr := newRejectedError(c.Name(), resp.StatusCode, responseBody)
		aiErr.ModelName = request.Model
		return "", nil, aiErr
	}

	var result CompletionResponse
	if err := json.Unmarshal(responseBody, &result); err != nil {
		return "", nil, &AIError{
			OriginalErr:  err,
			ProviderName: c.Name(),
			ModelName:    request.Model,
			Kind:         ErrorTypeMalformed,
			Message:      "failed to unmarshal response",
		}
	}

	return result.Text(), &result, nil
}
