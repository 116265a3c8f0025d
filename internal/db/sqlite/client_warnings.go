package sqlite

import (
	"context"

	"github.com/pkg/errors"

	"github.com/iamwavecut/guardbot/internal/db"
)

// Warnings are matched by stable user id when one was recorded, by display
// username otherwise.
func warningsPredicate(userID int64) (string, bool) {
	if userID != 0 {
		return `chat_id = ? AND user_id = ?`, true
	}
	return `chat_id = ? AND user_id = 0 AND username = ?`, false
}

func (c *sqliteClient) AddWarning(ctx context.Context, warning *db.Warning) (int, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	_, err := c.db.NamedExecContext(ctx, `
		INSERT INTO warnings (chat_id, user_id, username, reason, issued_by, created_at)
		VALUES (:chat_id, :user_id, :username, :reason, :issued_by, :created_at)
	`, warning)
	if err != nil {
		return 0, errors.WithMessage(err, "cant add warning")
	}

	predicate, byID := warningsPredicate(warning.UserID)
	arg := any(warning.Username)
	if byID {
		arg = warning.UserID
	}
	var count int
	if err := c.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM warnings WHERE `+predicate, warning.ChatID, arg); err != nil {
		return 0, errors.WithMessage(err, "cant count warnings")
	}
	return count, nil
}

func (c *sqliteClient) GetWarnings(ctx context.Context, chatID, userID int64, username string) ([]*db.Warning, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	predicate, byID := warningsPredicate(userID)
	arg := any(username)
	if byID {
		arg = userID
	}
	var warnings []*db.Warning
	err := c.db.SelectContext(ctx, &warnings, `
		SELECT id, chat_id, user_id, username, reason, issued_by, created_at
		FROM warnings WHERE `+predicate+` ORDER BY created_at
	`, chatID, arg)
	return warnings, errors.WithMessage(err, "cant get warnings")
}

func (c *sqliteClient) ResetWarnings(ctx context.Context, chatID, userID int64, username string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	predicate, byID := warningsPredicate(userID)
	arg := any(username)
	if byID {
		arg = userID
	}
	_, err := c.db.ExecContext(ctx, `DELETE FROM warnings WHERE `+predicate, chatID, arg)
	return errors.WithMessage(err, "cant reset warnings")
}

func (c *sqliteClient) CountWarnings(ctx context.Context, chatID int64) (int64, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var count int64
	err := c.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM warnings WHERE chat_id = ?`, chatID)
	return count, errors.WithMessage(err, "cant count warnings")
}
