package sqlite

import (
	"context"
	"strings"

	"github.com/pkg/errors"
)

func (c *sqliteClient) AddBannedWord(ctx context.Context, chatID int64, word string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	_, err := c.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO banned_words (chat_id, word) VALUES (?, ?)
	`, chatID, strings.ToLower(strings.TrimSpace(word)))
	return errors.WithMessage(err, "cant add banned word")
}

func (c *sqliteClient) RemoveBannedWord(ctx context.Context, chatID int64, word string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	_, err := c.db.ExecContext(ctx, `
		DELETE FROM banned_words WHERE chat_id = ? AND word = ?
	`, chatID, strings.ToLower(strings.TrimSpace(word)))
	return errors.WithMessage(err, "cant remove banned word")
}

func (c *sqliteClient) GetBannedWords(ctx context.Context, chatID int64) ([]string, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var words []string
	err := c.db.SelectContext(ctx, &words, `SELECT word FROM banned_words WHERE chat_id = ? ORDER BY word`, chatID)
	return words, errors.WithMessage(err, "cant get banned words")
}
