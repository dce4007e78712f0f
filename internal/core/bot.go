package core

import (
	"context"
	"slices"
	"strings"

	"github.com/lyrabot/lyra/internal/chat"
	"github.com/lyrabot/lyra/internal/commands"
	"github.com/lyrabot/lyra/internal/config"
	"github.com/lyrabot/lyra/internal/delivery"
	"github.com/lyrabot/lyra/internal/logger"
	"github.com/lyrabot/lyra/internal/session"
	"github.com/lyrabot/lyra/internal/telegram"
)

// Bot routes incoming updates: registered commands are dispatched by name
// or alias, everything else goes through the conversation orchestrator.
// Updates for the same chat are handled strictly one at a time.
type Bot struct {
	tg           telegram.Client
	logger       logger.Logger
	cfg          *config.Config
	sessions     *session.Store
	orchestrator *chat.Orchestrator
	splitter     *delivery.Splitter
	commands     map[string]commands.Command
}

func NewBot(
	tg telegram.Client,
	log logger.Logger,
	cfg *config.Config,
	sessions *session.Store,
	orchestrator *chat.Orchestrator,
	splitter *delivery.Splitter,
) *Bot {
	return &Bot{
		tg:           tg,
		logger:       log,
		cfg:          cfg,
		sessions:     sessions,
		orchestrator: orchestrator,
		splitter:     splitter,
		commands:     make(map[string]commands.Command),
	}
}

func (b *Bot) RegisterCommand(cmd commands.Command) {
	b.commands[cmd.Name()] = cmd
	b.logger.WithField("command", cmd.Name()).Info("Command registered")
}

// HandleUpdate processes one webhook update to completion. The webhook
// layer calls it on its own goroutine, so blocking here never delays the
// HTTP acknowledgement.
func (b *Bot) HandleUpdate(ctx context.Context, update telegram.Update) {
	if update.Message == nil {
		update.Message = update.EditedMessage
	}
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	chatID := msg.Chat.ID
	if !b.cfg.Telegram().IsChatAllowed(chatID) {
		b.logger.WithFields(logger.Fields{
			"user_id":  msg.From.ID,
			"username": msg.From.UserName,
			"chat_id":  chatID,
		}).Warn("Unauthorized access attempt")
		return
	}

	unlock := b.sessions.Lock(chatID)
	defer unlock()

	if strings.HasPrefix(text, "/") {
		if cmd, name := b.matchCommand(text); cmd != nil {
			b.logger.WithFields(logger.Fields{
				"command":  name,
				"user_id":  msg.From.ID,
				"username": msg.From.UserName,
				"chat_id":  chatID,
			}).Info("Handling command")

			if err := cmd.Execute(update); err != nil {
				b.logger.WithError(err).WithField("command", name).Error("Failed to handle command")
			}
			return
		}
		// unknown slash commands fall through to conversation
	}

	b.converse(ctx, chatID, text)
}

func (b *Bot) matchCommand(text string) (commands.Command, string) {
	parts := strings.Fields(text)
	if len(parts) == 0 {
		return nil, ""
	}
	cmdParts := strings.Split(strings.TrimPrefix(parts[0], "/"), "@")
	name := strings.ToLower(cmdParts[0])
	if len(cmdParts) > 1 && !strings.EqualFold(cmdParts[1], b.tg.Self().UserName) {
		return nil, "" // addressed to another bot
	}

	for registered, cmd := range b.commands {
		if registered == name || slices.Contains(cmd.Aliases(), name) {
			return cmd, name
		}
	}
	return nil, ""
}

func (b *Bot) converse(ctx context.Context, chatID int64, text string) {
	if err := b.tg.SendChatAction(chatID, telegram.ActionTyping); err != nil {
		b.logger.WithError(err).Debug("Failed to send chat action")
	}

	reply := b.orchestrator.Converse(ctx, chatID, text)

	mode := b.sessions.Get(chatID).DeliveryMode
	if err := b.splitter.Deliver(ctx, chatID, reply, mode, b.tg); err != nil {
		b.logger.WithError(err).WithField("chat_id", chatID).Error("Failed to deliver reply")
	}
}
