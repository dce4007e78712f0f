package mode

import (
	"github.com/lyrabot/lyra/internal/app/di"
	"github.com/lyrabot/lyra/internal/commands/base"
	"github.com/lyrabot/lyra/internal/session"
	"github.com/lyrabot/lyra/internal/telegram"
)

const CommandName = "mode"

type Command struct {
	*base.Command
}

func New(di *di.Container) *Command {
	cmd := &Command{}
	cmd.Command = base.NewCommand(cmd, di)
	return cmd
}

func (c *Command) Name() string {
	return CommandName
}

func (c *Command) Execute(update telegram.Update) error {
	chatID := update.Message.Chat.ID

	arg := c.Args(update)
	if arg == "" {
		current := c.Sessions.Get(chatID).DeliveryMode
		return c.Reply(update, c.L("mode_set", map[string]any{"Mode": string(current)}))
	}

	var parsed session.Mode
	switch arg {
	case "on":
		parsed = session.ModeUnconstrained
	case "off":
		parsed = session.ModeConstrained
	default:
		var ok bool
		if parsed, ok = session.ParseMode(arg); !ok {
			return c.Reply(update, c.L("mode_usage", nil))
		}
	}

	c.Sessions.SetDeliveryMode(chatID, parsed)
	return c.Reply(update, c.L("mode_set", map[string]any{"Mode": string(parsed)}))
}
