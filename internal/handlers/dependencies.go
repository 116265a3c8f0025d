package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/guardbot/internal/bot"
	"github.com/iamwavecut/guardbot/internal/i18n"
)

// noticeTTL is how long transient moderation notices stay in the chat.
const noticeTTL = 30 * time.Second

func respond(s bot.Service, chatID int64, text string) {
	msg := api.NewMessage(chatID, text)
	if _, err := s.GetBot().Send(msg); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("cant send message")
	}
}

func respondMarkdown(s bot.Service, chatID int64, text string) {
	msg := api.NewMessage(chatID, text)
	msg.ParseMode = api.ModeMarkdown
	if _, err := s.GetBot().Send(msg); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("cant send message")
	}
}

func notice(ctx context.Context, s bot.Service, chatID int64, text string) {
	msg := api.NewMessage(chatID, text)
	msg.DisableNotification = true
	bot.SendTemporary(ctx, s, msg, noticeTTL)
}

func deniedResponder(s bot.Service) func(ctx context.Context, msg *api.Message, cmd *bot.Command) {
	return func(ctx context.Context, msg *api.Message, cmd *bot.Command) {
		lang := s.GetLanguage(ctx, msg.Chat.ID)
		text := i18n.Get("Only admins can do that.", lang)
		if cmd.Access == bot.AccessSudo {
			text = i18n.Get("Only the bot owner can do that.", lang)
		}
		respond(s, msg.Chat.ID, text)
	}
}

func usageResponder(s bot.Service) func(ctx context.Context, msg *api.Message, cmd *bot.Command) {
	return func(ctx context.Context, msg *api.Message, cmd *bot.Command) {
		lang := s.GetLanguage(ctx, msg.Chat.ID)
		respond(s, msg.Chat.ID, fmt.Sprintf(i18n.Get("Usage: %s", lang), cmd.Usage))
	}
}

// resolveTarget picks the command target: an explicit reply wins, otherwise
// the first @username argument is used. The remaining args are returned.
func resolveTarget(msg *api.Message, args []string) (userID int64, username string, rest []string) {
	if msg.ReplyToMessage != nil && msg.ReplyToMessage.From != nil {
		target := msg.ReplyToMessage.From
		return target.ID, bot.GetUN(target), args
	}
	if len(args) > 0 && strings.HasPrefix(args[0], "@") {
		return 0, strings.TrimPrefix(args[0], "@"), args[1:]
	}
	if len(args) > 0 {
		if id, err := strconv.ParseInt(args[0], 10, 64); err == nil {
			return id, "", args[1:]
		}
	}
	return 0, "", args
}

// renderTemplate substitutes the welcome/goodbye placeholder tokens.
func renderTemplate(template string, user *api.User, chat *api.Chat, memberCount int) string {
	name := bot.GetFullName(user)
	username := bot.GetUN(user)
	mention := name
	if user != nil {
		mention = fmt.Sprintf("[%s](tg://user?id=%d)", api.EscapeText(api.ModeMarkdown, name), user.ID)
	}
	title := ""
	if chat != nil {
		title = chat.Title
	}
	id := int64(0)
	if user != nil {
		id = user.ID
	}

	return strings.NewReplacer(
		"{name}", name,
		"{username}", username,
		"{mention}", mention,
		"{group}", title,
		"{count}", strconv.Itoa(memberCount),
		"{id}", strconv.FormatInt(id, 10),
	).Replace(template)
}

func chatMemberCount(s bot.Service, chatID int64) int {
	count, err := s.GetBot().GetChatMembersCount(api.ChatMemberCountConfig{
		ChatConfig: api.ChatConfig{
			ChatID: chatID,
		},
	})
	if err != nil {
		log.WithError(err).WithField("chat_id", chatID).Debug("cant get chat members count")
		return 0
	}
	return count
}

func isGroupChat(chat *api.Chat) bool {
	if chat == nil {
		return false
	}
	return chat.IsGroup() || chat.IsSuperGroup()
}

func onOffToBool(arg string) (bool, bool) {
	switch strings.ToLower(arg) {
	case "on":
		return true, true
	case "off":
		return false, true
	}
	return false, false
}

func onOffLabel(enabled bool, lang string) string {
	if enabled {
		return i18n.Get("enabled", lang)
	}
	return i18n.Get("disabled", lang)
}
