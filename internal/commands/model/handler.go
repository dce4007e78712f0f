package model

import (
	"github.com/lyrabot/lyra/internal/ai"
	"github.com/lyrabot/lyra/internal/app/di"
	"github.com/lyrabot/lyra/internal/commands/base"
	"github.com/lyrabot/lyra/internal/telegram"
)

const CommandName = "model"

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

func (c *Command) Aliases() []string {
	return []string{"m"}
}

func (c *Command) Execute(update telegram.Update) error {
	chatID := update.Message.Chat.ID
	spec := c.Args(update)

	if spec == "" {
		current := c.Sessions.Get(chatID).Model
		if current == "" {
			current = c.Cfg.AI().DefaultModel
		}
		return c.Reply(update, c.L("model_current", map[string]any{"Name": current}))
	}

	// Reject specs that no configured provider can serve, so the chat does
	// not end up stuck with an unusable model.
	if _, _, err := c.ai.ResolveModel(spec); err != nil {
		c.Logger.WithError(err).WithField("spec", spec).Warn("Rejected model spec")
		return c.Reply(update, c.L("model_invalid", map[string]any{"Name": spec}))
	}

	c.Sessions.SetModel(chatID, spec)
	return c.Reply(update, c.L("model_set", map[string]any{"Name": spec}))
}
