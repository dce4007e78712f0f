package telegram

import (
	"encoding/json"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"

	"github.com/lyrabot/lyra/internal/logger"
)

type BotClient struct {
	bot    *tgbotapi.BotAPI
	logger logger.Logger
}

func NewBotClient(bot *tgbotapi.BotAPI, log logger.Logger) Client {
	return &BotClient{
		bot:    bot,
		logger: log,
	}
}

func (c *BotClient) Send(msg MessageConfig) (*Message, error) {
	sentMsg, err := c.bot.Send(msg.ToChattable())
	if err != nil {
		return nil, err
	}
	return adaptMessage(&sentMsg), nil
}

func (c *BotClient) SendWithRetry(msg MessageConfig, maxRetryCount int) (*Message, error) {
	maxRetries := 1
	if maxRetryCount > 0 {
		maxRetries = maxRetryCount
	}
	retryCount := 0

	for {
		sentMsg, err := c.bot.Send(msg.ToChattable())
		if err == nil {
			return adaptMessage(&sentMsg), nil
		}

		if strings.Contains(err.Error(), "Too Many Requests: retry after") {
			retryAfter := extractRetryAfter(err.Error())
			waitTime := time.Duration(retryAfter+2) * time.Second

			c.logger.WithFields(logger.Fields{
				"retry_after": retryAfter,
				"wait_time":   waitTime,
				"attempt":     retryCount + 1,
			}).Warn("Rate limit hit, waiting before retry")

			time.Sleep(waitTime)
			retryCount++

			if retryCount > maxRetries {
				c.logger.Error("Max retries reached for rate limited message")
				return nil, err
			}
			continue
		}

		return nil, err
	}
}

func (c *BotClient) SendChatAction(chatID int64, action ChatAction) error {
	_, err := c.bot.Request(tgbotapi.NewChatAction(chatID, string(action)))
	return err
}

// SendText sends one plain text message with rate-limit retry.
func (c *BotClient) SendText(chatID int64, text string) error {
	_, err := c.SendWithRetry(NewMessage(chatID, text, 0), 2)
	return err
}

func (c *BotClient) SendDocument(chatID int64, filename string, data []byte, caption string) error {
	if err := c.SendChatAction(chatID, ActionUploadDocument); err != nil {
		c.logger.WithError(err).Debug("Failed to send chat action")
	}
	_, err := c.SendWithRetry(NewDocumentMessage(chatID, filename, data, caption), 2)
	return err
}

func (c *BotClient) Self() User {
	return adaptUser(&c.bot.Self)
}

// DecodeUpdate parses one webhook request body.
func DecodeUpdate(body io.Reader) (*Update, error) {
	var update Update
	if err := json.NewDecoder(body).Decode(&update); err != nil {
		return nil, err
	}
	return &update, nil
}

func extractRetryAfter(errMsg string) int {
	re := regexp.MustCompile(`retry after (\d+)`)
	matches := re.FindStringSubmatch(errMsg)
	if len(matches) > 1 {
		retryAfter, _ := strconv.Atoi(matches[1])
		return retryAfter
	}
	return 0
}

func adaptMessage(msg *tgbotapi.Message) *Message {
	if msg == nil {
		return nil
	}

	return &Message{
		MessageID: msg.MessageID,
		Chat:      adaptChat(&msg.Chat),
		Text:      msg.Text,
		From:      adaptUser(msg.From),
		Command:   msg.Command(),
	}
}

func adaptUser(user *tgbotapi.User) User {
	if user == nil {
		return User{}
	}
	return User{
		ID:        int64(user.ID),
		FirstName: user.FirstName,
		UserName:  user.UserName,
	}
}

func adaptChat(chat *tgbotapi.Chat) Chat {
	if chat == nil {
		return Chat{}
	}
	return Chat{
		ID:   chat.ID,
		Type: chat.Type,
	}
}
