package agent

import (
	"strings"

	"github.com/lyrabot/lyra/internal/app/di"
	"github.com/lyrabot/lyra/internal/commands/base"
	"github.com/lyrabot/lyra/internal/telegram"
)

const CommandName = "agent"

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
	name := c.Args(update)

	if name == "" {
		sess := c.Sessions.Get(chatID)
		current := sess.Agent
		if current == "" {
			current = c.Cfg.AI().DefaultAgent
		}
		return c.Reply(update, c.L("agent_list", map[string]any{
			"Current":   current,
			"Available": strings.Join(c.Cfg.AI().AgentNames(), ", "),
		}))
	}

	agentCfg, ok := c.Cfg.AI().GetAgent(name)
	if !ok {
		return c.Reply(update, c.L("agent_unknown", map[string]any{
			"Name":      name,
			"Available": strings.Join(c.Cfg.AI().AgentNames(), ", "),
		}))
	}

	c.Sessions.SetAgent(chatID, agentCfg.Name)
	return c.Reply(update, c.L("agent_set", map[string]any{"Name": agentCfg.Name}))
}
