package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/lyrabot/lyra/internal/logger"
)

const bodySnippetLimit = 300

type OpenAICompatibleClient struct {
	name         string
	chatURL      string
	defaultModel string
	logger       logger.Logger
	httpClient   *baseHTTPClient
}

func NewOpenAICompatibleClient(
	name string,
	baseURL string,
	chatURL string,
	apiKey string,
	defaultModel string,
	log logger.Logger,
	httpClient *http.Client,
) *OpenAICompatibleClient {
	if chatURL == "" {
		chatURL = "/chat/completions"
	}

	return &OpenAICompatibleClient{
		name:         name,
		chatURL:      strings.TrimPrefix(chatURL, "/"),
		httpClient:   NewBaseHTTPClient(httpClient, baseURL, apiKey, log),
		defaultModel: defaultModel,
		logger:       log,
	}
}

func (c *OpenAICompatibleClient) Name() string {
	return c.name
}

func (c *OpenAICompatibleClient) GetDefaultModel() string {
	return c.defaultModel
}

func (c *OpenAICompatibleClient) CreateRequest(model string, messages []Message, params ModelParams) CompletionRequest {
	if model == "" {
		model = c.defaultModel
	}
	return CompletionRequest{
		Model:       model,
		Messages:    messages,
		Stream:      false,
		Temperature: params.Temperature,
		MaxTokens:   params.MaxTokens,
	}
}

func (c *OpenAICompatibleClient) Ask(ctx context.Context, request CompletionRequest) (string, *CompletionResponse, error) {
	body, aiErr := c.doRequest(ctx, c.chatURL, request)
	if aiErr != nil {
		aiErr.ModelName = request.Model
		return "", nil, aiErr
	}

	var result CompletionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", nil, &AIError{
			OriginalErr:  err,
			ProviderName: c.Name(),
			ModelName:    request.Model,
			Kind:         ErrorTypeMalformed,
			Message:      "failed to unmarshal response",
		}
	}

	// some backends report errors inside a 200 OK envelope
	if result.Error != nil {
		return "", nil, &AIError{
			ProviderName: c.Name(),
			ModelName:    request.Model,
			Kind:         ErrorTypeRejected,
			Message:      result.Error.Message,
		}
	}

	return result.Text(), &result, nil
}

func (c *OpenAICompatibleClient) doRequest(ctx context.Context, endpoint string, body any) ([]byte, *AIError) {
	requestBody, err := json.Marshal(body)
	if err != nil {
		return nil, &AIError{
			OriginalErr:  err,
			ProviderName: c.Name(),
			Kind:         ErrorTypeUnknown,
			Message:      "marshal request failed",
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, &AIError{
			OriginalErr:  err,
			ProviderName: c.Name(),
			Kind:         ErrorTypeUnknown,
			Message:      "create request failed",
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &AIError{
			OriginalErr:  err,
			ProviderName: c.Name(),
			Kind:         ErrorTypeNetwork,
			Message:      "network request failed",
		}
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &AIError{
			OriginalErr:  err,
			ProviderName: c.Name(),
			Kind:         ErrorTypeNetwork,
			Message:      "failed to read response body",
		}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, newRejectedError(c.Name(), resp.StatusCode, responseBody)
	}

	return responseBody, nil
}

func newRejectedError(provider string, statusCode int, responseBody []byte) *AIError {
	aiError := &AIError{
		ProviderName:   provider,
		HTTPStatusCode: statusCode,
		Kind:           ErrorTypeRejected,
		BodySnippet:    bodySnippet(responseBody),
		Message:        fmt.Sprintf("HTTP request failed with status code: %d", statusCode),
	}

	var providerError struct {
		Error ProviderError `json:"error"`
	}
	if len(responseBody) > 0 {
		json.Unmarshal(responseBody, &providerError)
		if providerError.Error.Message != "" {
			aiError.Message = providerError.Error.Message
		}
	}

	return aiError
}

func bodySnippet(body []byte) string {
	s := string(body)
	if len(s) > bodySnippetLimit {
		s = s[:bodySnippetLimit]
	}
	return s
}
