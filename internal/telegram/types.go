package telegram

import (
	tgbotapi "github.com/OvyFlash/telegram-bot-api"
)

type ParseMode = string

type (
	Update    = tgbotapi.Update
	FileBytes = tgbotapi.FileBytes
	Chattable = tgbotapi.Chattable
)

type Message struct {
	MessageID int
	Chat      Chat
	Text      string
	From      User
	Command   string
}

type User struct {
	ID        int64
	FirstName string
	UserName  string
}

type Chat struct {
	ID   int64
	Type string
}

type MessageConfig interface {
	ToChattable() tgbotapi.Chattable
}

type TextMessage struct {
	ChatID              int64
	Text                string
	ReplyTo             int
	LinkPreviewDisabled bool
	ParseMode           ParseMode
}

func NewMessage(chatID int64, text string, replyTo int) TextMessage {
	return TextMessage{
		ChatID:  chatID,
		Text:    text,
		ReplyTo: replyTo,
	}
}

func (m TextMessage) ToChattable() tgbotapi.Chattable {
	msg := tgbotapi.NewMessage(m.ChatID, m.Text)
	msg.ReplyParameters.MessageID = m.ReplyTo
	msg.ParseMode = m.ParseMode
	msg.LinkPreviewOptions.IsDisabled = m.LinkPreviewDisabled
	return msg
}

type DocumentMessage struct {
	ChatID  int64
	Name    string
	Data    []byte
	Caption string
}

func NewDocumentMessage(chatID int64, name string, data []byte, caption string) DocumentMessage {
	return DocumentMessage{
		ChatID:  chatID,
		Name:    name,
		Data:    data,
		Caption: caption,
	}
}

func (m DocumentMessage) ToChattable() tgbotapi.Chattable {
	msg := tgbotapi.NewDocument(m.ChatID, tgbotapi.FileBytes{
		Name:  m.Name,
		Bytes: m.Data,
	})
	msg.Caption = m.Caption
	return msg
}

type ChatAction string

const (
	ActionTyping         ChatAction = "typing"
	ActionUploadDocument ChatAction = "upload_document"
)

type Client interface {
	Send(msg MessageConfig) (*Message, error)
	SendWithRetry(msg MessageConfig, maxRetryCount int) (*Message, error)
	SendChatAction(chatID int64, action ChatAction) error
	SendText(chatID int64, text string) error
	SendDocument(chatID int64, filename string, data []byte, caption string) error
	Self() User
}
