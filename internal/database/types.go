package database

import (
	"context"
	"database/sql"
)

type Database interface {
	Exec(query string, args ...any) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
	ExecWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error)
	Close() error

	// Chat preferences management
	GetChatPrefs(chatID int64) (agent, model, mode string, found bool, err error)
	SaveChatPrefs(chatID int64, agent, model, mode string) error
	DeleteChatPrefs(chatID int64) error
}
