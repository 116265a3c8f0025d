package db

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type (
	// Settings is the per-chat moderation policy record. A chat without a
	// row is not governed by the bot and all filters skip it.
	Settings struct {
		ID             int64        `db:"id"`
		Title          string       `db:"title"`
		Language       string       `db:"language"`
		AntiSpam       bool         `db:"anti_spam"`
		AntiLink       bool         `db:"anti_link"`
		AntiFlood      bool         `db:"anti_flood"`
		Welcome        bool         `db:"welcome"`
		Goodbye        bool         `db:"goodbye"`
		Captcha        bool         `db:"captcha"`
		FilterBadWords bool         `db:"filter_bad_words"`
		MaxWarnings    int          `db:"max_warnings"`
		FloodLimit     int          `db:"flood_limit"`
		FloodWindow    int64        `db:"flood_window"`
		CaptchaTimeout int64        `db:"captcha_timeout"`
		MediaFilters   MediaFilters `db:"media_filters"`
		Rules          string       `db:"rules"`
		WelcomeMessage string       `db:"welcome_message"`
		GoodbyeMessage string       `db:"goodbye_message"`
	}

	// MediaFilters maps a media kind (sticker, animation, photo, video,
	// voice, audio, document) to true when that kind is blocked.
	MediaFilters map[string]bool

	Warning struct {
		ID        int64     `db:"id"`
		ChatID    int64     `db:"chat_id"`
		UserID    int64     `db:"user_id"`
		Username  string    `db:"username"`
		Reason    string    `db:"reason"`
		IssuedBy  string    `db:"issued_by"`
		CreatedAt time.Time `db:"created_at"`
	}

	UserStat struct {
		ChatID   int64     `db:"chat_id"`
		UserID   int64     `db:"user_id"`
		Username string    `db:"username"`
		Messages int64     `db:"messages"`
		Warns    int64     `db:"warns"`
		Mutes    int64     `db:"mutes"`
		Kicks    int64     `db:"kicks"`
		JoinedAt time.Time `db:"joined_at"`
	}

	Challenge struct {
		ChatID             int64     `db:"chat_id"`
		UserID             int64     `db:"user_id"`
		SuccessUUID        string    `db:"success_uuid"`
		JoinMessageID      int       `db:"join_message_id"`
		ChallengeMessageID int       `db:"challenge_message_id"`
		Attempts           int       `db:"attempts"`
		CreatedAt          time.Time `db:"created_at"`
		ExpiresAt          time.Time `db:"expires_at"`
	}
)

func (m MediaFilters) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	return json.Marshal(m)
}

func (m *MediaFilters) Scan(v interface{}) error {
	if v == nil {
		return nil
	}
	switch data := v.(type) {
	case string:
		return json.Unmarshal([]byte(data), m)
	case []byte:
		return json.Unmarshal(data, m)
	default:
		return fmt.Errorf("cannot scan type %T into MediaFilters", v)
	}
}

// GetFloodWindow returns the flood window as a duration, falling back to
// the default when the stored value is not usable.
func (s *Settings) GetFloodWindow() time.Duration {
	if s == nil || s.FloodWindow <= 0 {
		return DefaultFloodWindow
	}
	return time.Duration(s.FloodWindow)
}

// GetCaptchaTimeout returns the captcha challenge timeout as a duration.
func (s *Settings) GetCaptchaTimeout() time.Duration {
	if s == nil || s.CaptchaTimeout <= 0 {
		return DefaultCaptchaTimeout
	}
	return time.Duration(s.CaptchaTimeout)
}

// IsMediaBlocked reports whether a media kind is filtered in this chat.
func (s *Settings) IsMediaBlocked(kind string) bool {
	if s == nil || s.MediaFilters == nil {
		return false
	}
	return s.MediaFilters[kind]
}
