package commands

import (
	"github.com/lyrabot/lyra/internal/telegram"
)

type Command interface {
	Name() string
	Aliases() []string
	Execute(update telegram.Update) error
}
