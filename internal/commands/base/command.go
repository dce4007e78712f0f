package base

import (
	"strings"

	"github.com/lyrabot/lyra/internal/app/di"
	"github.com/lyrabot/lyra/internal/commands"
	"github.com/lyrabot/lyra/internal/config"
	"github.com/lyrabot/lyra/internal/logger"
	"github.com/lyrabot/lyra/internal/service"
	"github.com/lyrabot/lyra/internal/session"
	"github.com/lyrabot/lyra/internal/telegram"
)

type Command struct {
	command   commands.Command
	Tg        telegram.Client
	Logger    logger.Logger
	Cfg       *config.Config
	Sessions  *session.Store
	Localizer *service.Localizer
}

func NewCommand(cmd commands.Command, di *di.Container) *Command {
	return &Command{
		command:   cmd,
		Tg:        di.BotClient,
		Logger:    di.Logger,
		Cfg:       di.Cfg,
		Sessions:  di.Sessions,
		Localizer: di.Localizer,
	}
}

func (c *Command) Name() string {
	return ""
}

func (c *Command) Aliases() []string {
	return []string{}
}

func (c *Command) Execute(update telegram.Update) error {
	return nil
}

func (c *Command) L(messageID string, data map[string]any) string {
	return c.Localizer.Localize(messageID, data)
}

// Args returns the command argument string: everything after the
// "/name@bot" token.
func (c *Command) Args(update telegram.Update) string {
	msg := update.Message
	if msg == nil {
		msg = update.EditedMessage
	}
	if msg == nil {
		return ""
	}
	parts := strings.SplitN(msg.Text, " ", 2)
	if len(parts) < 2 {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// Reply sends a plain text reply to the update's chat.
func (c *Command) Reply(update telegram.Update, text string) error {
	msg := update.Message
	if msg == nil {
		msg = update.EditedMessage
	}
	if msg == nil {
		return nil
	}
	_, err := c.Tg.Send(telegram.NewMessage(msg.Chat.ID, text, 0))
	if err != nil {
		c.Logger.WithError(err).Error("Failed to send message")
	}
	return err
}
