package delivery

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"github.com/lyrabot/lyra/internal/config"
	"github.com/lyrabot/lyra/internal/logger"
	"github.com/lyrabot/lyra/internal/service"
	"github.com/lyrabot/lyra/internal/session"
)

const (
	// fileThresholdFactor * soft limit is the point where chunked delivery
	// stops being useful and the reply goes out as a document instead.
	fileThresholdFactor = 6
	// prefixReserve keeps room in each chunk for the "(i/total) " marker.
	prefixReserve = 12

	documentFilename = "reponse.txt"
)

// Sink sends finished chunks to a chat. The Telegram client implements it;
// tests use an in-memory recorder.
type Sink interface {
	SendText(chatID int64, text string) error
	SendDocument(chatID int64, filename string, data []byte, caption string) error
}

// Splitter turns one reply text into a sequence of sends that respect the
// transport's message length limits.
type Splitter struct {
	soft      int
	hard      int
	limiter   *rate.Limiter
	localizer *service.Localizer
	logger    logger.Logger
}

func NewSplitter(cfg config.DeliveryConfig, localizer *service.Localizer, log logger.Logger) *Splitter {
	soft := cfg.SoftLimit
	if soft <= 0 || soft > cfg.HardLimit {
		soft = cfg.HardLimit
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.SendInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.SendInterval), 1)
	}
	return &Splitter{
		soft:      soft,
		hard:      cfg.HardLimit,
		limiter:   limiter,
		localizer: localizer,
		logger:    log,
	}
}

// Deliver sends text to the chat according to its delivery mode. Sends are
// paced so a long reply does not burst into the transport's rate limit.
func (s *Splitter) Deliver(ctx context.Context, chatID int64, text string, mode session.Mode, sink Sink) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	if mode == session.ModeConstrained {
		return sink.SendText(chatID, s.Truncate(text))
	}

	if utf8.RuneCountInString(text) > s.soft*fileThresholdFactor {
		s.logger.WithFields(logger.Fields{
			"chat_id": chatID,
			"length":  utf8.RuneCountInString(text),
		}).Info("Reply too long for chunking, sending as document")
		return sink.SendDocument(chatID, documentFilename, []byte(text), s.localizer.Get("file_caption"))
	}

	for _, part := range s.Split(text) {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
		if err := sink.SendText(chatID, part); err != nil {
			return err
		}
	}
	return nil
}

// Truncate cuts text to a single message at the transport's hard limit,
// marking the cut. The marker counts against the limit.
func (s *Splitter) Truncate(text string) string {
	if utf8.RuneCountInString(text) <= s.hard {
		return text
	}
	return string([]rune(text)[:s.hard-1]) + "…"
}

// Split breaks text into chunks that each fit a single message, preferring
// paragraph boundaries, then line boundaries, then a plain rune cut. The
// chunks concatenate back to the original text; when there is more than one,
// each carries a "(i/total) " prefix.
func (s *Splitter) Split(text string) []string {
	if utf8.RuneCountInString(text) <= s.soft {
		return []string{text}
	}
	parts := splitRecursive(text, s.soft-prefixReserve, []string{"\n\n", "\n"})
	if len(parts) <= 1 {
		return parts
	}
	for i := range parts {
		parts[i] = fmt.Sprintf("(%d/%d) %s", i+1, len(parts), parts[i])
	}
	return parts
}

func splitRecursive(text string, budget int, seps []string) []string {
	if utf8.RuneCountInString(text) <= budget {
		return []string{text}
	}
	if len(seps) == 0 {
		return splitByWidth(text, budget)
	}

	var atoms []string
	for _, piece := range splitKeepSep(text, seps[0]) {
		atoms = append(atoms, splitRecursive(piece, budget, seps[1:])...)
	}
	return pack(atoms, budget)
}

// splitKeepSep splits on sep but keeps it attached to the preceding piece,
// so joining the pieces reproduces the input.
func splitKeepSep(text, sep string) []string {
	pieces := strings.SplitAfter(text, sep)
	// SplitAfter leaves a trailing empty piece when the text ends with sep
	if len(pieces) > 1 && pieces[len(pieces)-1] == "" {
		pieces = pieces[:len(pieces)-1]
	}
	return pieces
}

func splitByWidth(text string, width int) []string {
	runes := []rune(text)
	parts := make([]string, 0, (len(runes)+width-1)/width)
	for start := 0; start < len(runes); start += width {
		end := min(start+width, len(runes))
		parts = append(parts, string(runes[start:end]))
	}
	return parts
}

// pack greedily merges consecutive atoms while they fit the budget. Every
// atom is already within budget.
func pack(atoms []string, budget int) []string {
	var out []string
	var current strings.Builder
	currentLen := 0
	for _, atom := range atoms {
		atomLen := utf8.RuneCountInString(atom)
		if currentLen > 0 && currentLen+atomLen > budget {
			out = append(out, current.String())
			current.Reset()
			currentLen = 0
		}
		current.WriteString(atom)
		currentLen += atomLen
	}
	if currentLen > 0 {
		out = append(out, current.String())
	}
	return out
}
