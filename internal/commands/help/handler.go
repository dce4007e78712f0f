package help

import (
	"github.com/lyrabot/lyra/internal/app/di"
	"github.com/lyrabot/lyra/internal/commands/base"
	"github.com/lyrabot/lyra/internal/telegram"
)

const CommandName = "help"

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

func (c *Command) Aliases() []string {
	return []string{"start"}
}

func (c *Command) Execute(update telegram.Update) error {
	return c.Reply(update, c.L("help", nil))
}
