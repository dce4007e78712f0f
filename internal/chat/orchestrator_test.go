package chat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyrabot/lyra/internal/ai"
	"github.com/lyrabot/lyra/internal/config"
	"github.com/lyrabot/lyra/internal/logger"
	"github.com/lyrabot/lyra/internal/service"
	"github.com/lyrabot/lyra/internal/session"
)

type stubProvider struct {
	replies  []string
	errs     []error
	calls    int
	requests []ai.CompletionRequest
}

func (p *stubProvider) Name() string            { return "stub" }
func (p *stubProvider) GetDefaultModel() string { return "stub-1" }

func (p *stubProvider) CreateRequest(model string, messages []ai.Message, params ai.ModelParams) ai.CompletionRequest {
	if model == "" {
		model = p.GetDefaultModel()
	}
	return ai.CompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: params.Temperature,
	}
}

func (p *stubProvider) Ask(_ context.Context, request ai.CompletionRequest) (string, *ai.CompletionResponse, error) {
	i := p.calls
	p.calls++
	p.requests = append(p.requests, request)
	if i < len(p.errs) && p.errs[i] != nil {
		return "", nil, p.errs[i]
	}
	if i < len(p.replies) {
		return p.replies[i], &ai.CompletionResponse{}, nil
	}
	return "", &ai.CompletionResponse{}, nil
}

func newTestOrchestrator(t *testing.T, provider *stubProvider) (*Orchestrator, *session.Store) {
	t.Helper()
	cfg := config.NewFromMap(map[string]any{
		"ai.default_model":     "stub:stub-1",
		"ai.temperature":       0.3,
		"chat.history_limit":   12,
		"chat.request_timeout": time.Second,
		"chat.retry_backoff":   5 * time.Millisecond,
	})

	registry := ai.NewProviderRegistry(cfg, logger.NewTestLogger(), nil)
	registry.RegisterProvider("stub", provider)

	sessions := session.NewStore(session.Defaults{
		Model:        "stub:stub-1",
		DeliveryMode: session.ModeUnconstrained,
		HistoryLimit: 12,
	}, nil, logger.NewTestLogger())

	localizer, err := service.NewLocalizer("fr")
	require.NoError(t, err)

	return NewOrchestrator(registry, sessions, localizer, cfg, logger.NewTestLogger()), sessions
}

func TestConverse_Success(t *testing.T) {
	provider := &stubProvider{replies: []string{"bonjour!"}}
	orch, sessions := newTestOrchestrator(t, provider)

	reply := orch.Converse(context.Background(), 1, "salut")

	assert.Equal(t, "bonjour!", reply)
	assert.Equal(t, 1, provider.calls)

	history := sessions.Get(1).History
	require.Len(t, history, 2)
	assert.Equal(t, session.Turn{Role: "user", Text: "salut"}, history[0])
	assert.Equal(t, session.Turn{Role: "assistant", Text: "bonjour!"}, history[1])

	// system prompt first, user turn last
	request := provider.requests[0]
	require.NotEmpty(t, request.Messages)
	assert.Equal(t, ai.RoleSystem, request.Messages[0].Role)
	assert.Equal(t, ai.Message{Role: ai.RoleUser, Content: "salut"}, request.Messages[len(request.Messages)-1])
	require.NotNil(t, request.Temperature)
	assert.InDelta(t, 0.3, float64(*request.Temperature), 0.001)
}

func TestConverse_HistoryCarriedIntoNextRequest(t *testing.T) {
	provider := &stubProvider{replies: []string{"premier", "second"}}
	orch, _ := newTestOrchestrator(t, provider)

	orch.Converse(context.Background(), 1, "question 1")
	orch.Converse(context.Background(), 1, "question 2")

	request := provider.requests[1]
	// system + 2 history turns + new user turn
	require.Len(t, request.Messages, 4)
	assert.Equal(t, "question 1", request.Messages[1].Content)
	assert.Equal(t, "premier", request.Messages[2].Content)
	assert.Equal(t, "question 2", request.Messages[3].Content)
}

func TestConverse_RejectedIsNotRetried(t *testing.T) {
	provider := &stubProvider{errs: []error{
		&ai.AIError{Kind: ai.ErrorTypeRejected, HTTPStatusCode: 500, Message: "boom"},
	}}
	orch, sessions := newTestOrchestrator(t, provider)

	reply := orch.Converse(context.Background(), 1, "salut")

	assert.Equal(t, 1, provider.calls)
	assert.Contains(t, reply, "Désolé")
	assert.Empty(t, sessions.Get(1).History)
}

func TestConverse_NetworkErrorRetriedOnce(t *testing.T) {
	provider := &stubProvider{
		errs:    []error{&ai.AIError{Kind: ai.ErrorTypeNetwork, Message: "timeout"}, nil},
		replies: []string{"", "me voilà"},
	}
	orch, sessions := newTestOrchestrator(t, provider)

	reply := orch.Converse(context.Background(), 1, "salut")

	assert.Equal(t, 2, provider.calls)
	assert.Equal(t, "me voilà", reply)
	assert.Len(t, sessions.Get(1).History, 2)
}

func TestConverse_NetworkErrorTwiceGivesUp(t *testing.T) {
	netErr := &ai.AIError{Kind: ai.ErrorTypeNetwork, Message: "refused"}
	provider := &stubProvider{errs: []error{netErr, netErr}}
	orch, sessions := newTestOrchestrator(t, provider)

	reply := orch.Converse(context.Background(), 1, "salut")

	assert.Equal(t, 2, provider.calls)
	assert.Contains(t, reply, "Désolé")
	assert.Empty(t, sessions.Get(1).History)
}

func TestConverse_EmptyReplyBecomesSentinel(t *testing.T) {
	provider := &stubProvider{replies: []string{""}}
	orch, sessions := newTestOrchestrator(t, provider)

	reply := orch.Converse(context.Background(), 1, "salut")

	assert.Equal(t, "Désolé, je n’ai pas de réponse là tout de suite.", reply)
	// the sentinel is what the chat saw, so it is what the model sees next
	history := sessions.Get(1).History
	require.Len(t, history, 2)
	assert.Equal(t, reply, history[1].Text)
}

func TestConverse_EmptyInputSubstitutesGreeting(t *testing.T) {
	provider := &stubProvider{replies: []string{"bonjour!"}}
	orch, sessions := newTestOrchestrator(t, provider)

	reply := orch.Converse(context.Background(), 1, "   ")

	assert.Equal(t, 1, provider.calls)
	assert.Equal(t, "bonjour!", reply)

	// the backend sees the greeting token as the user turn
	request := provider.requests[0]
	last := request.Messages[len(request.Messages)-1]
	assert.Equal(t, ai.RoleUser, last.Role)
	assert.Equal(t, "Salut ! Dis-moi quelque chose 🙂", last.Content)

	history := sessions.Get(1).History
	require.Len(t, history, 2)
	assert.Equal(t, "Salut ! Dis-moi quelque chose 🙂", history[0].Text)
}

func TestConverse_NoBackendConfigured(t *testing.T) {
	cfg := config.NewFromMap(map[string]any{
		"chat.request_timeout": time.Second,
		"chat.retry_backoff":   time.Millisecond,
	})
	registry := ai.NewProviderRegistry(cfg, logger.NewTestLogger(), nil)
	sessions := session.NewStore(session.Defaults{HistoryLimit: 12}, nil, logger.NewTestLogger())
	localizer, err := service.NewLocalizer("fr")
	require.NoError(t, err)
	orch := NewOrchestrator(registry, sessions, localizer, cfg, logger.NewTestLogger())

	reply := orch.Converse(context.Background(), 1, "salut")
	assert.Contains(t, reply, "Aucun moteur")
}
