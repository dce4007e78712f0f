package core

import (
	"context"
	"testing"
	"time"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyrabot/lyra/internal/ai"
	"github.com/lyrabot/lyra/internal/chat"
	"github.com/lyrabot/lyra/internal/config"
	"github.com/lyrabot/lyra/internal/delivery"
	"github.com/lyrabot/lyra/internal/logger"
	"github.com/lyrabot/lyra/internal/service"
	"github.com/lyrabot/lyra/internal/session"
	"github.com/lyrabot/lyra/internal/telegram"
)

type fakeClient struct {
	texts     []string
	documents []string
	actions   []telegram.ChatAction
}

func (f *fakeClient) Send(msg telegram.MessageConfig) (*telegram.Message, error) {
	return &telegram.Message{}, nil
}

func (f *fakeClient) SendWithRetry(msg telegram.MessageConfig, _ int) (*telegram.Message, error) {
	return f.Send(msg)
}

func (f *fakeClient) SendChatAction(_ int64, action telegram.ChatAction) error {
	f.actions = append(f.actions, action)
	return nil
}

func (f *fakeClient) SendText(_ int64, text string) error {
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeClient) SendDocument(_ int64, _ string, data []byte, _ string) error {
	f.documents = append(f.documents, string(data))
	return nil
}

func (f *fakeClient) Self() telegram.User {
	return telegram.User{ID: 99, UserName: "lyra_bot"}
}

type echoProvider struct {
	calls int
}

func (p *echoProvider) Name() string            { return "stub" }
func (p *echoProvider) GetDefaultModel() string { return "stub-1" }

func (p *echoProvider) CreateRequest(model string, messages []ai.Message, params ai.ModelParams) ai.CompletionRequest {
	return ai.CompletionRequest{Model: model, Messages: messages}
}

func (p *echoProvider) Ask(_ context.Context, request ai.CompletionRequest) (string, *ai.CompletionResponse, error) {
	p.calls++
	return "echo: " + request.Messages[len(request.Messages)-1].Content, &ai.CompletionResponse{}, nil
}

type fakeCommand struct {
	name     string
	aliases  []string
	executed []string
}

func (c *fakeCommand) Name() string      { return c.name }
func (c *fakeCommand) Aliases() []string { return c.aliases }

func (c *fakeCommand) Execute(update telegram.Update) error {
	c.executed = append(c.executed, update.Message.Text)
	return nil
}

func newTestBot(t *testing.T, allowedChat int64) (*Bot, *fakeClient, *echoProvider) {
	t.Helper()
	cfg := config.NewFromMap(map[string]any{
		"telegram.chat_id":      allowedChat,
		"ai.default_model":      "stub:stub-1",
		"chat.history_limit":    12,
		"chat.request_timeout":  time.Second,
		"chat.retry_backoff":    time.Millisecond,
		"delivery.soft_limit":   3800,
		"delivery.hard_limit":   4096,
		"delivery.default_mode": "unconstrained",
	})

	provider := &echoProvider{}
	registry := ai.NewProviderRegistry(cfg, logger.NewTestLogger(), nil)
	registry.RegisterProvider("stub", provider)

	sessions := session.NewStore(session.Defaults{
		DeliveryMode: session.ModeUnconstrained,
		HistoryLimit: 12,
	}, nil, logger.NewTestLogger())

	localizer, err := service.NewLocalizer("fr")
	require.NoError(t, err)

	orchestrator := chat.NewOrchestrator(registry, sessions, localizer, cfg, logger.NewTestLogger())
	splitter := delivery.NewSplitter(cfg.Delivery(), localizer, logger.NewTestLogger())

	client := &fakeClient{}
	bot := NewBot(client, logger.NewTestLogger(), cfg, sessions, orchestrator, splitter)
	return bot, client, provider
}

func textUpdate(chatID int64, text string) telegram.Update {
	return telegram.Update{
		Message: &tgbotapi.Message{
			Text: text,
			Chat: tgbotapi.Chat{ID: chatID, Type: "private"},
			From: &tgbotapi.User{ID: 7, UserName: "ana"},
		},
	}
}

func TestHandleUpdate_DispatchesCommand(t *testing.T) {
	bot, _, provider := newTestBot(t, 42)
	cmd := &fakeCommand{name: "ping"}
	bot.RegisterCommand(cmd)

	bot.HandleUpdate(context.Background(), textUpdate(42, "/ping"))

	assert.Equal(t, []string{"/ping"}, cmd.executed)
	assert.Equal(t, 0, provider.calls)
}

func TestHandleUpdate_DispatchesAlias(t *testing.T) {
	bot, _, _ := newTestBot(t, 42)
	cmd := &fakeCommand{name: "help", aliases: []string{"start"}}
	bot.RegisterCommand(cmd)

	bot.HandleUpdate(context.Background(), textUpdate(42, "/start"))

	assert.Len(t, cmd.executed, 1)
}

func TestHandleUpdate_CommandForOtherBotIgnored(t *testing.T) {
	bot, client, provider := newTestBot(t, 42)
	cmd := &fakeCommand{name: "ping"}
	bot.RegisterCommand(cmd)

	bot.HandleUpdate(context.Background(), textUpdate(42, "/ping@other_bot"))

	assert.Empty(t, cmd.executed)
	// falls through to conversation instead
	assert.Equal(t, 1, provider.calls)
	assert.Len(t, client.texts, 1)
}

func TestHandleUpdate_CommandForSelfDispatched(t *testing.T) {
	bot, _, _ := newTestBot(t, 42)
	cmd := &fakeCommand{name: "ping"}
	bot.RegisterCommand(cmd)

	bot.HandleUpdate(context.Background(), textUpdate(42, "/ping@lyra_bot"))

	assert.Len(t, cmd.executed, 1)
}

func TestHandleUpdate_FreeformGoesToConversation(t *testing.T) {
	bot, client, provider := newTestBot(t, 42)

	bot.HandleUpdate(context.Background(), textUpdate(42, "salut"))

	assert.Equal(t, 1, provider.calls)
	require.Len(t, client.texts, 1)
	assert.Equal(t, "echo: salut", client.texts[0])
	assert.Contains(t, client.actions, telegram.ActionTyping)
}

func TestHandleUpdate_UnknownSlashFallsThrough(t *testing.T) {
	bot, client, provider := newTestBot(t, 42)

	bot.HandleUpdate(context.Background(), textUpdate(42, "/unknown thing"))

	assert.Equal(t, 1, provider.calls)
	assert.Len(t, client.texts, 1)
}

func TestHandleUpdate_DisallowedChatIgnored(t *testing.T) {
	bot, client, provider := newTestBot(t, 42)

	bot.HandleUpdate(context.Background(), textUpdate(1000, "salut"))

	assert.Equal(t, 0, provider.calls)
	assert.Empty(t, client.texts)
}

func TestHandleUpdate_EmptyOrMissingMessageIgnored(t *testing.T) {
	bot, client, _ := newTestBot(t, 42)

	bot.HandleUpdate(context.Background(), telegram.Update{})
	bot.HandleUpdate(context.Background(), textUpdate(42, "   "))

	assert.Empty(t, client.texts)
}

func TestHandleUpdate_EditedMessageHandled(t *testing.T) {
	bot, client, _ := newTestBot(t, 42)

	update := telegram.Update{
		EditedMessage: &tgbotapi.Message{
			Text: "corrigé",
			Chat: tgbotapi.Chat{ID: 42, Type: "private"},
			From: &tgbotapi.User{ID: 7},
		},
	}
	bot.HandleUpdate(context.Background(), update)

	require.Len(t, client.texts, 1)
	assert.Equal(t, "echo: corrigé", client.texts[0])
}
