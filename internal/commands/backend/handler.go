package backend

import (
	"github.com/lyrabot/lyra/internal/ai"
	"github.com/lyrabot/lyra/internal/app/di"
	"github.com/lyrabot/lyra/internal/commands/base"
	"github.com/lyrabot/lyra/internal/logger"
	"github.com/lyrabot/lyra/internal/telegram"
)

const CommandName = "backend"

// Command manages the process-wide backend override. It is the only way to
// repoint every chat at a different Ollama endpoint at runtime, so it is
// restricted to the admin chat.
type Command struct {
	*base.Command
	ai *ai.ProviderRegistry
}

func New(di *di.Container) *Command {
	cmd := &Command{
		ai: di.AI,
	}
	cmd.Command = base.NewCommand(cmd, di)
	return cmd
}

func (c *Command) Name() string {
	return CommandName
}

func (c *Command) Execute(update telegram.Update) error {
	if !c.Cfg.Telegram().IsAdmin(update.Message.From.ID) &&
		!c.Cfg.Telegram().IsAdmin(update.Message.Chat.ID) {
		c.Logger.WithFields(logger.Fields{
			"chat_id": update.Message.Chat.ID,
			"user_id": update.Message.From.ID,
		}).Warn("Backend command denied")
		return c.Reply(update, c.L("backend_denied", nil))
	}

	arg := c.Args(update)
	switch arg {
	case "":
		if url, ok := c.ai.Override(); ok {
			return c.Reply(update, c.L("backend_current", map[string]any{"URL": url}))
		}
		return c.Reply(update, c.L("backend_none", nil))
	case "none", "clear", "off", "reset":
		c.ai.ClearOverride()
		return c.Reply(update, c.L("backend_cleared", nil))
	default:
		if err := c.ai.SetOverride(arg); err != nil {
			return c.Reply(update, c.L("backend_invalid", map[string]any{"Reason": err.Error()}))
		}
		url, _ := c.ai.Override()
		return c.Reply(update, c.L("backend_set", map[string]any{"URL": url}))
	}
}
