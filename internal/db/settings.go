package db

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

const (
	DefaultMaxWarnings    = 3
	DefaultFloodLimit     = 5
	DefaultFloodWindow    = 10 * time.Second
	DefaultCaptchaTimeout = 3 * time.Minute

	DefaultRules          = "Group rules have not been set yet."
	DefaultWelcomeMessage = "👋 Hello {name}!\n\nWelcome to {group}! 🎉"
	DefaultGoodbyeMessage = "👋 {name} has left the group."
)

func DefaultSettings(chatID int64) *Settings {
	return &Settings{
		ID:             chatID,
		Language:       "en",
		AntiSpam:       true,
		AntiLink:       true,
		AntiFlood:      true,
		Welcome:        true,
		Goodbye:        true,
		Captcha:        false,
		FilterBadWords: true,
		MaxWarnings:    DefaultMaxWarnings,
		FloodLimit:     DefaultFloodLimit,
		FloodWindow:    DefaultFloodWindow.Nanoseconds(),
		CaptchaTimeout: DefaultCaptchaTimeout.Nanoseconds(),
		MediaFilters:   MediaFilters{},
		Rules:          DefaultRules,
		WelcomeMessage: DefaultWelcomeMessage,
		GoodbyeMessage: DefaultGoodbyeMessage,
	}
}
