package bot

import (
	"context"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

func DeleteChatMessage(ctx context.Context, bot *api.BotAPI, chatID int64, messageID int) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		if _, err := bot.Request(api.NewDeleteMessage(chatID, messageID)); err != nil {
			return err
		}
		return nil
	}
}

func BanUserFromChat(ctx context.Context, bot *api.BotAPI, userID int64, chatID int64, untilUnix int64) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		if _, err := bot.Request(api.BanChatMemberConfig{
			ChatMemberConfig: api.ChatMemberConfig{
				ChatConfig: api.ChatConfig{
					ChatID: chatID,
				},
				UserID: userID,
			},
			UntilDate:      untilUnix,
			RevokeMessages: false,
		}); err != nil {
			return errors.WithMessage(err, "cant ban")
		}
		return nil
	}
}

func UnbanUserFromChat(ctx context.Context, bot *api.BotAPI, userID int64, chatID int64) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		if _, err := bot.Request(api.UnbanChatMemberConfig{
			ChatMemberConfig: api.ChatMemberConfig{
				ChatConfig: api.ChatConfig{
					ChatID: chatID,
				},
				UserID: userID,
			},
			OnlyIfBanned: true,
		}); err != nil {
			return errors.WithMessage(err, "cant unban")
		}
		return nil
	}
}

// KickUserFromChat removes a member without a lasting ban.
func KickUserFromChat(ctx context.Context, bot *api.BotAPI, userID int64, chatID int64) error {
	if err := BanUserFromChat(ctx, bot, userID, chatID, time.Now().Add(time.Minute).Unix()); err != nil {
		return err
	}
	return UnbanUserFromChat(ctx, bot, userID, chatID)
}

func restrictionConfig(userID, chatID int64, untilUnix int64, allow bool) api.RestrictChatMemberConfig {
	return api.RestrictChatMemberConfig{
		ChatMemberConfig: api.ChatMemberConfig{
			ChatConfig: api.ChatConfig{
				ChatID: chatID,
			},
			UserID: userID,
		},
		UntilDate: untilUnix,
		Permissions: &api.ChatPermissions{
			CanSendMessages:       allow,
			CanSendAudios:         allow,
			CanSendDocuments:      allow,
			CanSendPhotos:         allow,
			CanSendVideos:         allow,
			CanSendVideoNotes:     allow,
			CanSendVoiceNotes:     allow,
			CanSendPolls:          allow,
			CanSendOtherMessages:  allow,
			CanAddWebPagePreviews: allow,
			CanChangeInfo:         allow,
			CanInviteUsers:        allow,
			CanPinMessages:        allow,
			CanManageTopics:       allow,
		},
	}
}

func RestrictChatting(ctx context.Context, bot *api.BotAPI, userID int64, chatID int64, until time.Time) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		if _, err := bot.Request(restrictionConfig(userID, chatID, until.Unix(), false)); err != nil {
			return errors.WithMessage(err, "cant restrict")
		}
		return nil
	}
}

func UnrestrictChatting(ctx context.Context, bot *api.BotAPI, userID int64, chatID int64) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		if _, err := bot.Request(restrictionConfig(userID, chatID, 0, true)); err != nil {
			return errors.WithMessage(err, "cant unrestrict")
		}
		return nil
	}
}

func LeaveChat(ctx context.Context, bot *api.BotAPI, chatID int64) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		if _, err := bot.Request(api.LeaveChatConfig{
			ChatConfig: api.ChatConfig{
				ChatID: chatID,
			},
		}); err != nil {
			return errors.WithMessage(err, "cant leave chat")
		}
		return nil
	}
}

// ExportInviteLink issues a fresh primary invite link for the chat; the
// previous primary link is revoked by Telegram as a side effect.
func ExportInviteLink(ctx context.Context, bot *api.BotAPI, chatID int64) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
		link, err := bot.GetInviteLink(api.ChatInviteLinkConfig{
			ChatConfig: api.ChatConfig{
				ChatID: chatID,
			},
		})
		if err != nil {
			return "", errors.WithMessage(err, "cant export invite link")
		}
		return link, nil
	}
}

func PinChatMessage(ctx context.Context, bot *api.BotAPI, chatID int64, messageID int) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		if _, err := bot.Request(api.PinChatMessageConfig{
			BaseChatMessage: api.BaseChatMessage{
				ChatConfig: api.ChatConfig{
					ChatID: chatID,
				},
				MessageID: messageID,
			},
			DisableNotification: true,
		}); err != nil {
			return errors.WithMessage(err, "cant pin message")
		}
		return nil
	}
}

func UnpinChatMessage(ctx context.Context, bot *api.BotAPI, chatID int64) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		if _, err := bot.Request(api.UnpinChatMessageConfig{
			BaseChatMessage: api.BaseChatMessage{
				ChatConfig: api.ChatConfig{
					ChatID: chatID,
				},
			},
		}); err != nil {
			return errors.WithMessage(err, "cant unpin message")
		}
		return nil
	}
}

// SendTemporary sends a message and schedules its deletion after ttl.
func SendTemporary(ctx context.Context, s Service, msg api.MessageConfig, ttl time.Duration) {
	sentMsg, err := s.GetBot().Send(msg)
	if err != nil {
		log.WithError(err).WithField("chat_id", msg.ChatID).Error("cant send temporary message")
		return
	}
	s.GetScheduler().After(ttl, func() {
		if err := DeleteChatMessage(context.WithoutCancel(ctx), s.GetBot(), msg.ChatID, sentMsg.MessageID); err != nil {
			log.WithError(err).Debug("cant delete temporary message")
		}
	})
}
