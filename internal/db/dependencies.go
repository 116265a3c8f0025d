package db

import (
	"context"
	"time"
)

// Client is the injected store behind all handlers. Implementations must be
// safe for use from concurrent handler invocations.
type Client interface {
	Close() error

	GetSettings(ctx context.Context, chatID int64) (*Settings, error)
	SetSettings(ctx context.Context, settings *Settings) error
	GetAllSettings(ctx context.Context) ([]*Settings, error)
	DeleteSettings(ctx context.Context, chatID int64) error
	CountChats(ctx context.Context) (int64, error)

	AddWarning(ctx context.Context, warning *Warning) (int, error)
	GetWarnings(ctx context.Context, chatID, userID int64, username string) ([]*Warning, error)
	ResetWarnings(ctx context.Context, chatID, userID int64, username string) error
	CountWarnings(ctx context.Context, chatID int64) (int64, error)

	UpsertUser(ctx context.Context, user *UserStat) error
	TouchUserMessage(ctx context.Context, chatID, userID int64) (int64, error)
	IncUserCounter(ctx context.Context, chatID, userID int64, counter string) error
	GetUser(ctx context.Context, chatID, userID int64) (*UserStat, error)
	CountUsers(ctx context.Context) (int64, error)

	AddBannedWord(ctx context.Context, chatID int64, word string) error
	RemoveBannedWord(ctx context.Context, chatID int64, word string) error
	GetBannedWords(ctx context.Context, chatID int64) ([]string, error)

	CreateChallenge(ctx context.Context, challenge *Challenge) (*Challenge, error)
	GetChallenge(ctx context.Context, chatID, userID int64) (*Challenge, error)
	UpdateChallenge(ctx context.Context, challenge *Challenge) error
	DeleteChallenge(ctx context.Context, chatID, userID int64) error
	GetExpiredChallenges(ctx context.Context, now time.Time) ([]*Challenge, error)
}
