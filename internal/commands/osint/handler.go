package osint

import (
	"context"
	"strings"

	"github.com/lyrabot/lyra/internal/app/di"
	"github.com/lyrabot/lyra/internal/commands/base"
	"github.com/lyrabot/lyra/internal/delivery"
	"github.com/lyrabot/lyra/internal/osint"
	"github.com/lyrabot/lyra/internal/session"
	"github.com/lyrabot/lyra/internal/telegram"
)

const CommandName = "osint"

type Command struct {
	*base.Command
	scanner  *osint.Scanner
	splitter *delivery.Splitter
}

func New(di *di.Container) *Command {
	cmd := &Command{
		scanner:  di.Scanner,
		splitter: di.Splitter,
	}
	cmd.Command = base.NewCommand(cmd, di)
	return cmd
}

func (c *Command) Name() string {
	return CommandName
}

func (c *Command) Execute(update telegram.Update) error {
	chatID := update.Message.Chat.ID

	keywords := c.Cfg.Osint().Keywords
	if args := c.Args(update); args != "" {
		keywords = strings.Split(args, ",")
	}

	if err := c.Tg.SendChatAction(chatID, telegram.ActionTyping); err != nil {
		c.Logger.WithError(err).Debug("Failed to send chat action")
	}

	report := c.scanner.Run(context.Background(), keywords)
	text := c.L("osint_on_demand", nil) + "\n" + report

	return c.splitter.Deliver(context.Background(), chatID, text, session.ModeUnconstrained, c.Tg)
}
