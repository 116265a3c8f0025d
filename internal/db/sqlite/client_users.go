package sqlite

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/iamwavecut/guardbot/internal/db"
)

func (c *sqliteClient) UpsertUser(ctx context.Context, user *db.UserStat) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	_, err := c.db.NamedExecContext(ctx, `
		INSERT INTO chat_users (chat_id, user_id, username, messages, warns, mutes, kicks, joined_at)
		VALUES (:chat_id, :user_id, :username, :messages, :warns, :mutes, :kicks, :joined_at)
		ON CONFLICT(chat_id, user_id) DO UPDATE SET
			username = excluded.username
	`, user)
	return errors.WithMessage(err, "cant upsert user")
}

func (c *sqliteClient) TouchUserMessage(ctx context.Context, chatID, userID int64) (int64, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	_, err := c.db.ExecContext(ctx, `
		INSERT INTO chat_users (chat_id, user_id, messages, joined_at)
		VALUES (?, ?, 1, datetime('now'))
		ON CONFLICT(chat_id, user_id) DO UPDATE SET
			messages = messages + 1
	`, chatID, userID)
	if err != nil {
		return 0, errors.WithMessage(err, "cant touch user message")
	}

	var messages int64
	err = c.db.GetContext(ctx, &messages, `SELECT messages FROM chat_users WHERE chat_id = ? AND user_id = ?`, chatID, userID)
	return messages, errors.WithMessage(err, "cant get user message count")
}

var userCounters = map[string]string{
	"warns": "warns",
	"mutes": "mutes",
	"kicks": "kicks",
}

func (c *sqliteClient) IncUserCounter(ctx context.Context, chatID, userID int64, counter string) error {
	column, ok := userCounters[counter]
	if !ok {
		return errors.Errorf("unknown user counter %q", counter)
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	_, err := c.db.ExecContext(ctx, `
		INSERT INTO chat_users (chat_id, user_id, `+column+`, joined_at)
		VALUES (?, ?, 1, datetime('now'))
		ON CONFLICT(chat_id, user_id) DO UPDATE SET
			`+column+` = `+column+` + 1
	`, chatID, userID)
	return errors.WithMessage(err, "cant increment user counter")
}

func (c *sqliteClient) GetUser(ctx context.Context, chatID, userID int64) (*db.UserStat, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var user db.UserStat
	err := c.db.GetContext(ctx, &user, `
		SELECT chat_id, user_id, username, messages, warns, mutes, kicks, joined_at
		FROM chat_users WHERE chat_id = ? AND user_id = ?
	`, chatID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, db.ErrNotFound
		}
		return nil, errors.WithMessage(err, "cant get user")
	}
	return &user, nil
}

func (c *sqliteClient) CountUsers(ctx context.Context) (int64, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var count int64
	err := c.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM chat_users`)
	return count, errors.WithMessage(err, "cant count users")
}
