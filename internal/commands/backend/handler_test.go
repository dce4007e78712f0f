package backend

import (
	"testing"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyrabot/lyra/internal/ai"
	"github.com/lyrabot/lyra/internal/app/di"
	"github.com/lyrabot/lyra/internal/config"
	"github.com/lyrabot/lyra/internal/logger"
	"github.com/lyrabot/lyra/internal/service"
	"github.com/lyrabot/lyra/internal/session"
	"github.com/lyrabot/lyra/internal/telegram"
)

type sendRecorder struct {
	sent []string
}

func (r *sendRecorder) Send(msg telegram.MessageConfig) (*telegram.Message, error) {
	if text, ok := msg.(telegram.TextMessage); ok {
		r.sent = append(r.sent, text.Text)
	}
	return &telegram.Message{}, nil
}

func (r *sendRecorder) SendWithRetry(msg telegram.MessageConfig, _ int) (*telegram.Message, error) {
	return r.Send(msg)
}

func (r *sendRecorder) SendChatAction(int64, telegram.ChatAction) error { return nil }

func (r *sendRecorder) SendText(_ int64, text string) error {
	r.sent = append(r.sent, text)
	return nil
}

func (r *sendRecorder) SendDocument(int64, string, []byte, string) error { return nil }

func (r *sendRecorder) Self() telegram.User { return telegram.User{UserName: "lyra_bot"} }

func newTestCommand(t *testing.T) (*Command, *sendRecorder, *ai.ProviderRegistry) {
	t.Helper()
	cfg := config.NewFromMap(map[string]any{
		"telegram.admin_chat_id": int64(9),
	})
	registry := ai.NewProviderRegistry(cfg, logger.NewTestLogger(), nil)
	localizer, err := service.NewLocalizer("fr")
	require.NoError(t, err)

	recorder := &sendRecorder{}
	container := &di.Container{
		BotClient: recorder,
		Logger:    logger.NewTestLogger(),
		Cfg:       cfg,
		AI:        registry,
		Sessions:  session.NewStore(session.Defaults{HistoryLimit: 12}, nil, logger.NewTestLogger()),
		Localizer: localizer,
	}
	return New(container), recorder, registry
}

func commandUpdate(userID, chatID int64, text string) telegram.Update {
	return telegram.Update{
		Message: &tgbotapi.Message{
			Text: text,
			Chat: tgbotapi.Chat{ID: chatID, Type: "private"},
			From: &tgbotapi.User{ID: userID},
		},
	}
}

func TestBackend_DeniedForNonAdmin(t *testing.T) {
	cmd, recorder, registry := newTestCommand(t)

	err := cmd.Execute(commandUpdate(7, 7, "/backend https://example.ngrok-free.app"))
	require.NoError(t, err)

	require.Len(t, recorder.sent, 1)
	assert.Contains(t, recorder.sent[0], "administrateur")
	assert.False(t, registry.HasOverride())
}

func TestBackend_AdminSetsOverride(t *testing.T) {
	cmd, recorder, registry := newTestCommand(t)

	err := cmd.Execute(commandUpdate(9, 9, "/backend https://abc-123.ngrok-free.app"))
	require.NoError(t, err)

	assert.True(t, registry.HasOverride())
	url, _ := registry.Override()
	assert.Equal(t, "https://abc-123.ngrok-free.app", url)
	require.Len(t, recorder.sent, 1)
	assert.Contains(t, recorder.sent[0], "https://abc-123.ngrok-free.app")
}

func TestBackend_InvalidURLRejected(t *testing.T) {
	cmd, recorder, registry := newTestCommand(t)

	err := cmd.Execute(commandUpdate(9, 9, "/backend https://host.example/api"))
	require.NoError(t, err)

	assert.False(t, registry.HasOverride())
	require.Len(t, recorder.sent, 1)
	assert.Contains(t, recorder.sent[0], "invalide")
}

func TestBackend_ClearAndStatus(t *testing.T) {
	cmd, recorder, registry := newTestCommand(t)

	require.NoError(t, cmd.Execute(commandUpdate(9, 9, "/backend")))
	assert.Contains(t, recorder.sent[0], "Aucun backend")

	require.NoError(t, cmd.Execute(commandUpdate(9, 9, "/backend https://abc.ngrok-free.app")))
	require.NoError(t, cmd.Execute(commandUpdate(9, 9, "/backend clear")))
	assert.False(t, registry.HasOverride())
	assert.Contains(t, recorder.sent[2], "retiré")
}
