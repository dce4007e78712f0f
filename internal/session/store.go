package session

import (
	"strings"
	"sync"

	"github.com/lyrabot/lyra/internal/logger"
)

// Mode controls how long replies are delivered back to a chat.
type Mode string

const (
	// ModeConstrained truncates a reply to a single message.
	ModeConstrained Mode = "constrained"
	// ModeUnconstrained splits a reply into several messages, or a file
	// when it is extremely long.
	ModeUnconstrained Mode = "unconstrained"
)

func ParseMode(s string) (Mode, bool) {
	switch Mode(strings.ToLower(s)) {
	case ModeConstrained:
		return ModeConstrained, true
	case ModeUnconstrained:
		return ModeUnconstrained, true
	}
	return "", false
}

type Turn struct {
	Role string
	Text string
}

// Session is the per-chat conversation state. Values handed out by the
// store are snapshots; all mutation goes through store methods so the
// history bound holds under every call site.
type Session struct {
	ChatID       int64
	Agent        string
	Model        string
	DeliveryMode Mode
	History      []Turn
}

type Defaults struct {
	Agent        string
	Model        string
	DeliveryMode Mode
	HistoryLimit int
}

// PrefsStore persists the mutable chat preferences. Conversation history is
// deliberately not persisted. A nil PrefsStore keeps everything in memory.
type PrefsStore interface {
	GetChatPrefs(chatID int64) (agent, model, mode string, found bool, err error)
	SaveChatPrefs(chatID int64, agent, model, mode string) error
	DeleteChatPrefs(chatID int64) error
}

type Store struct {
	mu        sync.Mutex
	sessions  map[int64]*Session
	chatLocks map[int64]*sync.Mutex
	defaults  Defaults
	prefs     PrefsStore
	logger    logger.Logger
}

func NewStore(defaults Defaults, prefs PrefsStore, log logger.Logger) *Store {
	if defaults.HistoryLimit <= 0 {
		defaults.HistoryLimit = 12
	}
	return &Store{
		sessions:  make(map[int64]*Session),
		chatLocks: make(map[int64]*sync.Mutex),
		defaults:  defaults,
		prefs:     prefs,
		logger:    log,
	}
}

// Lock serializes request handling for one chat id and returns the unlock
// function. Concurrent webhook deliveries for different chats proceed in
// parallel.
func (s *Store) Lock(chatID int64) func() {
	s.mu.Lock()
	lock, ok := s.chatLocks[chatID]
	if !ok {
		lock = &sync.Mutex{}
		s.chatLocks[chatID] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// Get returns a snapshot of the chat's session, creating it with defaults
// on first use. Never fails.
func (s *Store) Get(chatID int64) Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(s.getLocked(chatID))
}

func (s *Store) getLocked(chatID int64) *Session {
	if sess, ok := s.sessions[chatID]; ok {
		return sess
	}

	sess := &Session{
		ChatID:       chatID,
		Agent:        s.defaults.Agent,
		Model:        s.defaults.Model,
		DeliveryMode: s.defaults.DeliveryMode,
	}

	if s.prefs != nil {
		agent, model, mode, found, err := s.prefs.GetChatPrefs(chatID)
		if err != nil {
			s.logger.WithError(err).WithField("chat_id", chatID).Error("Failed to load chat prefs")
		} else if found {
			if agent != "" {
				sess.Agent = agent
			}
			if model != "" {
				sess.Model = model
			}
			if parsed, ok := ParseMode(mode); ok {
				sess.DeliveryMode = parsed
			}
		}
	}

	s.sessions[chatID] = sess
	return sess
}

func (s *Store) snapshot(sess *Session) Session {
	copied := *sess
	copied.History = append([]Turn(nil), sess.History...)
	return copied
}

// Reset clears the chat back to defaults and drops persisted preferences.
func (s *Store) Reset(chatID int64) {
	s.mu.Lock()
	delete(s.sessions, chatID)
	s.mu.Unlock()

	if s.prefs != nil {
		if err := s.prefs.DeleteChatPrefs(chatID); err != nil {
			s.logger.WithError(err).WithField("chat_id", chatID).Error("Failed to delete chat prefs")
		}
	}
}

// AppendExchange records one completed user/assistant exchange. The history
// bound is enforced here, strict FIFO: with an even bound the history always
// holds whole pairs; an odd bound may keep one orphaned assistant turn at
// the head.
func (s *Store) AppendExchange(chatID int64, userText, replyText string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.getLocked(chatID)
	sess.History = append(sess.History,
		Turn{Role: "user", Text: userText},
		Turn{Role: "assistant", Text: replyText},
	)
	if overflow := len(sess.History) - s.defaults.HistoryLimit; overflow > 0 {
		sess.History = append([]Turn(nil), sess.History[overflow:]...)
	}
}

func (s *Store) SetAgent(chatID int64, agent string) {
	s.setField(chatID, func(sess *Session) {
		sess.Agent = agent
	})
}

func (s *Store) SetModel(chatID int64, model string) {
	s.setField(chatID, func(sess *Session) {
		sess.Model = model
	})
}

func (s *Store) SetDeliveryMode(chatID int64, mode Mode) {
	s.setField(chatID, func(sess *Session) {
		sess.DeliveryMode = mode
	})
}

func (s *Store) setField(chatID int64, mutate func(*Session)) {
	s.mu.Lock()
	sess := s.getLocked(chatID)
	mutate(sess)
	agent, model, mode := sess.Agent, sess.Model, string(sess.DeliveryMode)
	s.mu.Unlock()

	if s.prefs != nil {
		if err := s.prefs.SaveChatPrefs(chatID, agent, model, mode); err != nil {
			s.logger.WithError(err).WithField("chat_id", chatID).Error("Failed to save chat prefs")
		}
	}
}
