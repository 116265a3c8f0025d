package sqlite

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/iamwavecut/guardbot/internal/db"
)

const settingsColumns = `
	id, title, language, anti_spam, anti_link, anti_flood, welcome, goodbye,
	captcha, filter_bad_words, max_warnings, flood_limit, flood_window,
	captcha_timeout, media_filters, rules, welcome_message, goodbye_message
`

func (c *sqliteClient) GetSettings(ctx context.Context, chatID int64) (*db.Settings, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var settings db.Settings
	err := c.db.GetContext(ctx, &settings, `SELECT `+settingsColumns+` FROM chats WHERE id = ?`, chatID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.WithMessage(err, "cant get settings")
	}
	return &settings, nil
}

func (c *sqliteClient) SetSettings(ctx context.Context, settings *db.Settings) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	query := `
		INSERT INTO chats (` + settingsColumns + `)
		VALUES (
			:id, :title, :language, :anti_spam, :anti_link, :anti_flood, :welcome, :goodbye,
			:captcha, :filter_bad_words, :max_warnings, :flood_limit, :flood_window,
			:captcha_timeout, :media_filters, :rules, :welcome_message, :goodbye_message
		)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			language = excluded.language,
			anti_spam = excluded.anti_spam,
			anti_link = excluded.anti_link,
			anti_flood = excluded.anti_flood,
			welcome = excluded.welcome,
			goodbye = excluded.goodbye,
			captcha = excluded.captcha,
			filter_bad_words = excluded.filter_bad_words,
			max_warnings = excluded.max_warnings,
			flood_limit = excluded.flood_limit,
			flood_window = excluded.flood_window,
			captcha_timeout = excluded.captcha_timeout,
			media_filters = excluded.media_filters,
			rules = excluded.rules,
			welcome_message = excluded.welcome_message,
			goodbye_message = excluded.goodbye_message
	`
	_, err := c.db.NamedExecContext(ctx, query, settings)
	return errors.WithMessage(err, "cant set settings")
}

func (c *sqliteClient) GetAllSettings(ctx context.Context) ([]*db.Settings, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var all []*db.Settings
	err := c.db.SelectContext(ctx, &all, `SELECT `+settingsColumns+` FROM chats ORDER BY id`)
	return all, errors.WithMessage(err, "cant get all settings")
}

func (c *sqliteClient) DeleteSettings(ctx context.Context, chatID int64) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	_, err := c.db.ExecContext(ctx, `DELETE FROM chats WHERE id = ?`, chatID)
	return errors.WithMessage(err, "cant delete settings")
}

func (c *sqliteClient) CountChats(ctx context.Context) (int64, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var count int64
	err := c.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM chats`)
	return count, errors.WithMessage(err, "cant count chats")
}
