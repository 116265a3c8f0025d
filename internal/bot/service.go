package bot

import (
	"context"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/guardbot/internal/config"
	"github.com/iamwavecut/guardbot/internal/db"
	"github.com/iamwavecut/guardbot/internal/scheduler"
)

type Service interface {
	GetBot() *api.BotAPI
	GetDB() db.Client
	GetConfig() config.Config
	GetScheduler() *scheduler.Scheduler

	// Settings returns nil when the chat has never been registered.
	Settings(ctx context.Context, chatID int64) (*db.Settings, error)
	// EnsureSettings lazily creates and persists the default settings row.
	EnsureSettings(ctx context.Context, chatID int64, title string) (*db.Settings, error)
	GetLanguage(ctx context.Context, chatID int64) string

	IsSudo(userID int64) bool
	IsAdmin(ctx context.Context, chatID, userID int64) bool
}

type service struct {
	bot   *api.BotAPI
	db    db.Client
	cfg   config.Config
	sched *scheduler.Scheduler
}

func NewService(botAPI *api.BotAPI, client db.Client, cfg config.Config, sched *scheduler.Scheduler) *service {
	return &service{
		bot:   botAPI,
		db:    client,
		cfg:   cfg,
		sched: sched,
	}
}

func (s *service) GetBot() *api.BotAPI             { return s.bot }
func (s *service) GetDB() db.Client                { return s.db }
func (s *service) GetConfig() config.Config        { return s.cfg }
func (s *service) GetScheduler() *scheduler.Scheduler { return s.sched }

func (s *service) Settings(ctx context.Context, chatID int64) (*db.Settings, error) {
	return s.db.GetSettings(ctx, chatID)
}

func (s *service) EnsureSettings(ctx context.Context, chatID int64, title string) (*db.Settings, error) {
	settings, err := s.db.GetSettings(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if settings != nil {
		if title != "" && settings.Title != title {
			settings.Title = title
			if err := s.db.SetSettings(ctx, settings); err != nil {
				return nil, err
			}
		}
		return settings, nil
	}

	settings = db.DefaultSettings(chatID)
	settings.Title = title
	settings.Language = s.cfg.DefaultLanguage
	if err := s.db.SetSettings(ctx, settings); err != nil {
		return nil, err
	}
	return settings, nil
}

func (s *service) GetLanguage(ctx context.Context, chatID int64) string {
	settings, err := s.db.GetSettings(ctx, chatID)
	if err != nil || settings == nil || settings.Language == "" {
		return s.cfg.DefaultLanguage
	}
	return settings.Language
}

func (s *service) IsSudo(userID int64) bool {
	return userID == s.cfg.SudoID
}

// IsAdmin fails closed: a membership lookup error means "not an admin".
func (s *service) IsAdmin(ctx context.Context, chatID, userID int64) bool {
	if s.IsSudo(userID) {
		return true
	}

	select {
	case <-ctx.Done():
		return false
	default:
	}

	chatMember, err := s.bot.GetChatMember(api.GetChatMemberConfig{
		ChatConfigWithUser: api.ChatConfigWithUser{
			ChatConfig: api.ChatConfig{
				ChatID: chatID,
			},
			UserID: userID,
		},
	})
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"chat_id": chatID,
			"user_id": userID,
		}).Error("cant get chat member")
		return false
	}
	return chatMember.IsCreator() || chatMember.IsAdministrator()
}
