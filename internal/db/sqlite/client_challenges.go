package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/iamwavecut/guardbot/internal/db"
)

func (c *sqliteClient) CreateChallenge(ctx context.Context, challenge *db.Challenge) (*db.Challenge, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	query := `
		INSERT INTO captcha_challenges (
			chat_id, user_id, success_uuid, join_message_id, challenge_message_id, attempts, created_at, expires_at
		) VALUES (:chat_id, :user_id, :success_uuid, :join_message_id, :challenge_message_id, :attempts, :created_at, :expires_at)
		ON CONFLICT(chat_id, user_id) DO UPDATE SET
			success_uuid = excluded.success_uuid,
			join_message_id = excluded.join_message_id,
			challenge_message_id = excluded.challenge_message_id,
			attempts = excluded.attempts,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at
	`
	if _, err := c.db.NamedExecContext(ctx, query, challenge); err != nil {
		return nil, errors.WithMessage(err, "cant create challenge")
	}
	return challenge, nil
}

func (c *sqliteClient) GetChallenge(ctx context.Context, chatID, userID int64) (*db.Challenge, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var challenge db.Challenge
	err := c.db.GetContext(ctx, &challenge, `
		SELECT chat_id, user_id, success_uuid, join_message_id, challenge_message_id, attempts, created_at, expires_at
		FROM captcha_challenges
		WHERE chat_id = ? AND user_id = ?
	`, chatID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.WithMessage(err, "cant get challenge")
	}
	return &challenge, nil
}

func (c *sqliteClient) UpdateChallenge(ctx context.Context, challenge *db.Challenge) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	_, err := c.db.NamedExecContext(ctx, `
		UPDATE captcha_challenges
		SET success_uuid = :success_uuid,
			join_message_id = :join_message_id,
			challenge_message_id = :challenge_message_id,
			attempts = :attempts,
			created_at = :created_at,
			expires_at = :expires_at
		WHERE chat_id = :chat_id AND user_id = :user_id
	`, challenge)
	return errors.WithMessage(err, "cant update challenge")
}

func (c *sqliteClient) DeleteChallenge(ctx context.Context, chatID, userID int64) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	_, err := c.db.ExecContext(ctx, `DELETE FROM captcha_challenges WHERE chat_id = ? AND user_id = ?`, chatID, userID)
	return errors.WithMessage(err, "cant delete challenge")
}

func (c *sqliteClient) GetExpiredChallenges(ctx context.Context, now time.Time) ([]*db.Challenge, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var challenges []*db.Challenge
	err := c.db.SelectContext(ctx, &challenges, `
		SELECT chat_id, user_id, success_uuid, join_message_id, challenge_message_id, attempts, created_at, expires_at
		FROM captcha_challenges
		WHERE expires_at <= ?
	`, now)
	return challenges, errors.WithMessage(err, "cant get expired challenges")
}
