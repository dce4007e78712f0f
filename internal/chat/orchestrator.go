package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/lyrabot/lyra/internal/ai"
	"github.com/lyrabot/lyra/internal/config"
	"github.com/lyrabot/lyra/internal/logger"
	"github.com/lyrabot/lyra/internal/service"
	"github.com/lyrabot/lyra/internal/session"
)

const maxAttempts = 2

// Orchestrator turns one incoming user message into one reply text. It owns
// prompt assembly, the retry policy and the history write; delivery is the
// caller's concern.
type Orchestrator struct {
	registry  *ai.ProviderRegistry
	sessions  *session.Store
	localizer *service.Localizer
	cfg       *config.Config
	logger    logger.Logger
}

func NewOrchestrator(
	registry *ai.ProviderRegistry,
	sessions *session.Store,
	localizer *service.Localizer,
	cfg *config.Config,
	log logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		registry:  registry,
		sessions:  sessions,
		localizer: localizer,
		cfg:       cfg,
		logger:    log,
	}
}

// Converse produces the reply for one user turn. It always returns a
// sendable text: backend failures come back as a localized apology, a
// missing backend configuration as a localized notice. History is updated
// only when the backend produced a reply.
func (o *Orchestrator) Converse(ctx context.Context, chatID int64, userText string) string {
	// a non-text update still gets a real conversation turn
	userText = strings.TrimSpace(userText)
	if userText == "" {
		userText = o.localizer.Get("greeting")
	}

	sess := o.sessions.Get(chatID)

	provider, model, err := o.registry.ResolveModel(sess.Model)
	if err != nil {
		o.logger.WithError(err).WithField("chat_id", chatID).Error("No backend available")
		return o.localizer.Get("config_missing")
	}

	messages := o.buildMessages(sess, userText)
	temperature := o.cfg.AI().Temperature
	request := provider.CreateRequest(model, messages, ai.ModelParams{
		Temperature: &temperature,
	})

	reply, err := o.ask(ctx, chatID, provider, request)
	if err != nil {
		o.logger.WithError(err).WithFields(logger.Fields{
			"chat_id":  chatID,
			"provider": provider.Name(),
			"model":    model,
		}).Error("Backend request failed")
		return o.localizer.Get("backend_failed")
	}

	if reply == "" {
		reply = o.localizer.Get("no_reply")
	}

	o.sessions.AppendExchange(chatID, userText, reply)
	return reply
}

func (o *Orchestrator) buildMessages(sess session.Session, userText string) []ai.Message {
	messages := make([]ai.Message, 0, len(sess.History)+2)
	messages = append(messages, ai.Message{
		Role:    ai.RoleSystem,
		Content: o.cfg.AI().AgentPrompt(sess.Agent),
	})
	for _, turn := range sess.History {
		messages = append(messages, ai.Message{Role: turn.Role, Content: turn.Text})
	}
	return append(messages, ai.Message{Role: ai.RoleUser, Content: userText})
}

// ask runs up to maxAttempts requests, retrying only network-class
// failures.
func (o *Orchestrator) ask(ctx context.Context, chatID int64, provider ai.Provider, request ai.CompletionRequest) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		reqCtx, cancel := context.WithTimeout(ctx, o.cfg.Chat().RequestTimeout)
		reply, _, err := provider.Ask(reqCtx, request)
		cancel()
		if err == nil {
			return reply, nil
		}
		lastErr = err

		if !ai.IsRetryableError(err) || attempt == maxAttempts {
			break
		}

		o.logger.WithError(err).WithFields(logger.Fields{
			"chat_id": chatID,
			"attempt": attempt,
		}).Warn("Backend unreachable, retrying")

		select {
		case <-time.After(o.cfg.Chat().RetryBackoff):
		case <-ctx.Done():
			return "", errors.Join(lastErr, ctx.Err())
		}
	}
	return "", lastErr
}
