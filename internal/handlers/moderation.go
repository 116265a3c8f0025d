package handlers

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/guardbot/internal/bot"
	"github.com/iamwavecut/guardbot/internal/db"
	"github.com/iamwavecut/guardbot/internal/flood"
	"github.com/iamwavecut/guardbot/internal/i18n"
	"github.com/iamwavecut/guardbot/internal/observability"
)

const (
	floodMuteDuration = time.Hour
	defaultWarnReason = "No reason given"
)

var linkPattern = regexp.MustCompile(`(?i)(https?://|t\.me/|@\w+)`)

// SpamChecker scores a message; used for the first messages of fresh
// members when anti-spam is on and an LLM key is configured.
type SpamChecker interface {
	IsSpam(ctx context.Context, message string) (bool, error)
}

type Moderation struct {
	s       bot.Service
	tracker *flood.Tracker
	spam    SpamChecker
	router  *bot.Router

	logger *log.Entry
}

func NewModeration(s bot.Service, tracker *flood.Tracker, spam SpamChecker) *Moderation {
	m := &Moderation{
		s:       s,
		tracker: tracker,
		spam:    spam,
	}

	r := bot.NewRouter(s, deniedResponder(s), usageResponder(s))
	r.Register(&bot.Command{Name: "warn", Access: bot.AccessAdmin, Usage: "/warn @user [reason] (or reply)", Run: m.cmdWarn})
	r.Register(&bot.Command{Name: "warns", Access: bot.AccessAdmin, Usage: "/warns @user (or reply)", Run: m.cmdWarns})
	r.Register(&bot.Command{Name: "resetwarns", Access: bot.AccessAdmin, Usage: "/resetwarns @user (or reply)", Run: m.cmdResetWarns})
	r.Register(&bot.Command{Name: "kick", Access: bot.AccessAdmin, Usage: "/kick @user (or reply)", Run: m.cmdKick})
	r.Register(&bot.Command{Name: "ban", Access: bot.AccessAdmin, Usage: "/ban @user (or reply)", Run: m.cmdBan})
	r.Register(&bot.Command{Name: "unban", Access: bot.AccessAdmin, Usage: "/unban @user (or reply)", Run: m.cmdUnban})
	r.Register(&bot.Command{Name: "mute", Access: bot.AccessAdmin, Usage: "/mute @user (or reply)", Run: m.cmdMute})
	r.Register(&bot.Command{Name: "unmute", Access: bot.AccessAdmin, Usage: "/unmute @user (or reply)", Run: m.cmdUnmute})
	r.Register(&bot.Command{Name: "pin", Access: bot.AccessAdmin, Usage: "/pin (reply to a message)", Run: m.cmdPin})
	r.Register(&bot.Command{Name: "unpin", Access: bot.AccessAdmin, Run: m.cmdUnpin})
	r.Register(&bot.Command{Name: "addword", Access: bot.AccessAdmin, MinArgs: 1, Usage: "/addword word", Run: m.cmdAddWord})
	r.Register(&bot.Command{Name: "delword", Access: bot.AccessAdmin, MinArgs: 1, Usage: "/delword word", Run: m.cmdDelWord})
	r.Register(&bot.Command{Name: "words", Access: bot.AccessAdmin, Run: m.cmdWords})
	m.router = r

	return m
}

func (m *Moderation) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (bool, error) {
	if u.Message == nil || chat == nil || user == nil || user.IsBot {
		return true, nil
	}
	if !isGroupChat(chat) {
		return true, nil
	}
	msg := u.Message
	if msg.NewChatMembers != nil || msg.LeftChatMember != nil {
		return true, nil
	}

	if msg.IsCommand() {
		handled, err := m.router.Dispatch(ctx, msg, user)
		if err != nil {
			return false, err
		}
		if handled {
			return false, nil
		}
		// Unknown commands still run through the filters below.
	}

	// Ungoverned chats are no-ops for every filter.
	settings, err := m.s.Settings(ctx, chat.ID)
	if err != nil {
		m.getLogEntry().WithField("error", err.Error()).Error("cant get settings")
		return true, nil
	}
	if settings == nil {
		return true, nil
	}

	messages, err := m.s.GetDB().TouchUserMessage(ctx, chat.ID, user.ID)
	if err != nil {
		m.getLogEntry().WithField("error", err.Error()).Debug("cant touch user message")
	}

	if m.s.IsAdmin(ctx, chat.ID, user.ID) {
		return true, nil
	}

	lang := settings.Language
	text := strings.TrimSpace(msg.Text + " " + msg.Caption)

	if settings.AntiLink && linkPattern.MatchString(text) {
		m.deleteWithNotice(ctx, msg, fmt.Sprintf(
			i18n.Get("❌ %s, sending links is not allowed in this group!", lang), bot.GetUN(user)))
		observability.RecordModerationAction("antilink_delete")
		return false, nil
	}

	if settings.FilterBadWords && m.matchesBannedWord(ctx, chat.ID, text) {
		m.deleteWithNotice(ctx, msg, fmt.Sprintf(
			i18n.Get("❌ %s, watch your language!", lang), bot.GetUN(user)))
		observability.RecordModerationAction("badword_delete")
		return false, nil
	}

	if kind := bot.GetMessageType(msg); kind != bot.MessageTypeText && settings.IsMediaBlocked(string(kind)) {
		m.deleteWithNotice(ctx, msg, fmt.Sprintf(
			i18n.Get("❌ %s, this kind of media is not allowed in this group!", lang), bot.GetUN(user)))
		observability.RecordModerationAction("media_delete")
		return false, nil
	}

	if settings.AntiFlood {
		exceeded := m.tracker.Track(chat.ID, user.ID, time.Unix(int64(msg.Date), 0), settings.FloodLimit, settings.GetFloodWindow())
		if exceeded {
			m.muteForFlood(ctx, chat, user, lang)
			return false, nil
		}
	}

	if settings.AntiSpam && m.spam != nil && text != "" &&
		messages > 0 && messages <= m.s.GetConfig().LLM.CheckFirstMessages {
		spam, err := m.spam.IsSpam(ctx, text)
		if err != nil {
			m.getLogEntry().WithField("error", err.Error()).Error("cant check message for spam")
		} else if spam {
			m.deleteWithNotice(ctx, msg, fmt.Sprintf(
				i18n.Get("❌ %s, that looks like spam.", lang), bot.GetUN(user)))
			observability.RecordModerationAction("spam_delete")
			return false, nil
		}
	}

	return true, nil
}

func (m *Moderation) matchesBannedWord(ctx context.Context, chatID int64, text string) bool {
	if text == "" {
		return false
	}
	words, err := m.s.GetDB().GetBannedWords(ctx, chatID)
	if err != nil {
		m.getLogEntry().WithField("error", err.Error()).Error("cant get banned words")
		return false
	}
	lower := strings.ToLower(text)
	for _, word := range words {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}

func (m *Moderation) deleteWithNotice(ctx context.Context, msg *api.Message, text string) {
	if err := bot.DeleteChatMessage(ctx, m.s.GetBot(), msg.Chat.ID, msg.MessageID); err != nil {
		m.getLogEntry().WithField("error", err.Error()).Error("cant delete message")
	}
	notice(ctx, m.s, msg.Chat.ID, text)
}

func (m *Moderation) muteForFlood(ctx context.Context, chat *api.Chat, user *api.User, lang string) {
	until := time.Now().Add(floodMuteDuration)
	if err := bot.RestrictChatting(ctx, m.s.GetBot(), user.ID, chat.ID, until); err != nil {
		m.getLogEntry().WithField("error", err.Error()).Error("cant mute flooding user")
		return
	}
	if err := m.s.GetDB().IncUserCounter(ctx, chat.ID, user.ID, "mutes"); err != nil {
		m.getLogEntry().WithField("error", err.Error()).Debug("cant bump mute counter")
	}
	observability.RecordModerationAction("flood_mute")
	respond(m.s, chat.ID, fmt.Sprintf(
		i18n.Get("🔇 %s has been muted for 1 hour for flooding.", lang), bot.GetUN(user)))
}

func (m *Moderation) cmdWarn(ctx context.Context, msg *api.Message, args []string) error {
	lang := m.s.GetLanguage(ctx, msg.Chat.ID)
	targetID, targetName, rest := resolveTarget(msg, args)
	if targetID == 0 && targetName == "" {
		respond(m.s, msg.Chat.ID, fmt.Sprintf(i18n.Get("Usage: %s", lang), "/warn @user [reason] (or reply)"))
		return nil
	}

	reason := strings.TrimSpace(strings.Join(rest, " "))
	if reason == "" {
		reason = i18n.Get(defaultWarnReason, lang)
	}

	settings, err := m.s.EnsureSettings(ctx, msg.Chat.ID, msg.Chat.Title)
	if err != nil {
		return err
	}

	count, err := m.s.GetDB().AddWarning(ctx, &db.Warning{
		ChatID:    msg.Chat.ID,
		UserID:    targetID,
		Username:  targetName,
		Reason:    reason,
		IssuedBy:  bot.GetFullName(msg.From),
		CreatedAt: time.Now(),
	})
	if err != nil {
		return err
	}
	if targetID != 0 {
		if err := m.s.GetDB().IncUserCounter(ctx, msg.Chat.ID, targetID, "warns"); err != nil {
			m.getLogEntry().WithField("error", err.Error()).Debug("cant bump warn counter")
		}
	}
	observability.RecordModerationAction("warn")

	display := displayName(targetID, targetName)
	respondMarkdown(m.s, msg.Chat.ID, fmt.Sprintf(
		i18n.Get("⚠️ *Warning for* %s\n\n📝 Reason: %s\n🔢 Warnings: %d/%d", lang),
		display, api.EscapeText(api.ModeMarkdown, reason), count, settings.MaxWarnings))

	if count < settings.MaxWarnings {
		return nil
	}

	respond(m.s, msg.Chat.ID, fmt.Sprintf(
		i18n.Get("🚫 %s got %d warnings and is removed from the group.", lang), display, settings.MaxWarnings))
	if err := m.s.GetDB().ResetWarnings(ctx, msg.Chat.ID, targetID, targetName); err != nil {
		return err
	}

	// Without a stable id (bare @username warn) there is nobody to kick;
	// the removal stays an announcement, matching the historical behavior.
	if targetID != 0 {
		if err := bot.KickUserFromChat(ctx, m.s.GetBot(), targetID, msg.Chat.ID); err != nil {
			m.getLogEntry().WithField("error", err.Error()).Error("cant kick warned user")
			return nil
		}
		if err := m.s.GetDB().IncUserCounter(ctx, msg.Chat.ID, targetID, "kicks"); err != nil {
			m.getLogEntry().WithField("error", err.Error()).Debug("cant bump kick counter")
		}
		observability.RecordModerationAction("warn_kick")
	}
	return nil
}

func (m *Moderation) cmdWarns(ctx context.Context, msg *api.Message, args []string) error {
	lang := m.s.GetLanguage(ctx, msg.Chat.ID)
	targetID, targetName, _ := resolveTarget(msg, args)
	if targetID == 0 && targetName == "" {
		respond(m.s, msg.Chat.ID, fmt.Sprintf(i18n.Get("Usage: %s", lang), "/warns @user (or reply)"))
		return nil
	}

	warnings, err := m.s.GetDB().GetWarnings(ctx, msg.Chat.ID, targetID, targetName)
	if err != nil {
		return err
	}
	if len(warnings) == 0 {
		respond(m.s, msg.Chat.ID, i18n.Get("No warnings on record.", lang))
		return nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(i18n.Get("⚠️ Warnings for %s:", lang), displayName(targetID, targetName)))
	for i, warning := range warnings {
		sb.WriteString(fmt.Sprintf("\n%d. %s — %s", i+1, warning.Reason, warning.IssuedBy))
	}
	respond(m.s, msg.Chat.ID, sb.String())
	return nil
}

func (m *Moderation) cmdResetWarns(ctx context.Context, msg *api.Message, args []string) error {
	lang := m.s.GetLanguage(ctx, msg.Chat.ID)
	targetID, targetName, _ := resolveTarget(msg, args)
	if targetID == 0 && targetName == "" {
		respond(m.s, msg.Chat.ID, fmt.Sprintf(i18n.Get("Usage: %s", lang), "/resetwarns @user (or reply)"))
		return nil
	}

	if err := m.s.GetDB().ResetWarnings(ctx, msg.Chat.ID, targetID, targetName); err != nil {
		return err
	}
	respond(m.s, msg.Chat.ID, fmt.Sprintf(
		i18n.Get("✅ Warnings for %s have been reset.", lang), displayName(targetID, targetName)))
	return nil
}

func (m *Moderation) cmdKick(ctx context.Context, msg *api.Message, args []string) error {
	lang := m.s.GetLanguage(ctx, msg.Chat.ID)
	targetID, targetName, _ := resolveTarget(msg, args)
	if targetID == 0 {
		respond(m.s, msg.Chat.ID, i18n.Get("Reply to a message of the user you want to act on.", lang))
		return nil
	}

	if err := bot.KickUserFromChat(ctx, m.s.GetBot(), targetID, msg.Chat.ID); err != nil {
		m.getLogEntry().WithField("error", err.Error()).Error("cant kick user")
		respond(m.s, msg.Chat.ID, i18n.Get("Something went wrong, try again later.", lang))
		return nil
	}
	if err := m.s.GetDB().IncUserCounter(ctx, msg.Chat.ID, targetID, "kicks"); err != nil {
		m.getLogEntry().WithField("error", err.Error()).Debug("cant bump kick counter")
	}
	observability.RecordModerationAction("kick")
	respond(m.s, msg.Chat.ID, fmt.Sprintf(i18n.Get("👢 %s has been kicked.", lang), displayName(targetID, targetName)))
	return nil
}

func (m *Moderation) cmdBan(ctx context.Context, msg *api.Message, args []string) error {
	lang := m.s.GetLanguage(ctx, msg.Chat.ID)
	targetID, targetName, _ := resolveTarget(msg, args)
	if targetID == 0 {
		respond(m.s, msg.Chat.ID, i18n.Get("Reply to a message of the user you want to act on.", lang))
		return nil
	}

	if err := bot.BanUserFromChat(ctx, m.s.GetBot(), targetID, msg.Chat.ID, 0); err != nil {
		m.getLogEntry().WithField("error", err.Error()).Error("cant ban user")
		respond(m.s, msg.Chat.ID, i18n.Get("Something went wrong, try again later.", lang))
		return nil
	}
	observability.RecordModerationAction("ban")
	respond(m.s, msg.Chat.ID, fmt.Sprintf(i18n.Get("🚫 %s has been banned.", lang), displayName(targetID, targetName)))
	return nil
}

func (m *Moderation) cmdUnban(ctx context.Context, msg *api.Message, args []string) error {
	lang := m.s.GetLanguage(ctx, msg.Chat.ID)
	targetID, targetName, _ := resolveTarget(msg, args)
	if targetID == 0 {
		respond(m.s, msg.Chat.ID, i18n.Get("Reply to a message of the user you want to act on.", lang))
		return nil
	}

	if err := bot.UnbanUserFromChat(ctx, m.s.GetBot(), targetID, msg.Chat.ID); err != nil {
		m.getLogEntry().WithField("error", err.Error()).Error("cant unban user")
		respond(m.s, msg.Chat.ID, i18n.Get("Something went wrong, try again later.", lang))
		return nil
	}
	observability.RecordModerationAction("unban")
	respond(m.s, msg.Chat.ID, fmt.Sprintf(i18n.Get("✅ %s has been unbanned.", lang), displayName(targetID, targetName)))
	return nil
}

func (m *Moderation) cmdMute(ctx context.Context, msg *api.Message, args []string) error {
	lang := m.s.GetLanguage(ctx, msg.Chat.ID)
	targetID, targetName, _ := resolveTarget(msg, args)
	if targetID == 0 {
		respond(m.s, msg.Chat.ID, i18n.Get("Reply to a message of the user you want to act on.", lang))
		return nil
	}

	if err := bot.RestrictChatting(ctx, m.s.GetBot(), targetID, msg.Chat.ID, time.Now().Add(floodMuteDuration)); err != nil {
		m.getLogEntry().WithField("error", err.Error()).Error("cant mute user")
		respond(m.s, msg.Chat.ID, i18n.Get("Something went wrong, try again later.", lang))
		return nil
	}
	if err := m.s.GetDB().IncUserCounter(ctx, msg.Chat.ID, targetID, "mutes"); err != nil {
		m.getLogEntry().WithField("error", err.Error()).Debug("cant bump mute counter")
	}
	observability.RecordModerationAction("mute")
	respond(m.s, msg.Chat.ID, fmt.Sprintf(i18n.Get("🔇 %s has been muted for 1 hour.", lang), displayName(targetID, targetName)))
	return nil
}

func (m *Moderation) cmdUnmute(ctx context.Context, msg *api.Message, args []string) error {
	lang := m.s.GetLanguage(ctx, msg.Chat.ID)
	targetID, targetName, _ := resolveTarget(msg, args)
	if targetID == 0 {
		respond(m.s, msg.Chat.ID, i18n.Get("Reply to a message of the user you want to act on.", lang))
		return nil
	}

	if err := bot.UnrestrictChatting(ctx, m.s.GetBot(), targetID, msg.Chat.ID); err != nil {
		m.getLogEntry().WithField("error", err.Error()).Error("cant unmute user")
		respond(m.s, msg.Chat.ID, i18n.Get("Something went wrong, try again later.", lang))
		return nil
	}
	observability.RecordModerationAction("unmute")
	respond(m.s, msg.Chat.ID, fmt.Sprintf(i18n.Get("🔊 %s has been unmuted.", lang), displayName(targetID, targetName)))
	return nil
}

func (m *Moderation) cmdPin(ctx context.Context, msg *api.Message, args []string) error {
	lang := m.s.GetLanguage(ctx, msg.Chat.ID)
	if msg.ReplyToMessage == nil {
		respond(m.s, msg.Chat.ID, fmt.Sprintf(i18n.Get("Usage: %s", lang), "/pin (reply to a message)"))
		return nil
	}
	if err := bot.PinChatMessage(ctx, m.s.GetBot(), msg.Chat.ID, msg.ReplyToMessage.MessageID); err != nil {
		m.getLogEntry().WithField("error", err.Error()).Error("cant pin message")
	}
	return nil
}

func (m *Moderation) cmdUnpin(ctx context.Context, msg *api.Message, args []string) error {
	if err := bot.UnpinChatMessage(ctx, m.s.GetBot(), msg.Chat.ID); err != nil {
		m.getLogEntry().WithField("error", err.Error()).Error("cant unpin message")
	}
	return nil
}

func (m *Moderation) cmdAddWord(ctx context.Context, msg *api.Message, args []string) error {
	lang := m.s.GetLanguage(ctx, msg.Chat.ID)
	if _, err := m.s.EnsureSettings(ctx, msg.Chat.ID, msg.Chat.Title); err != nil {
		return err
	}
	if err := m.s.GetDB().AddBannedWord(ctx, msg.Chat.ID, args[0]); err != nil {
		return err
	}
	respond(m.s, msg.Chat.ID, i18n.Get("✅ Word added to the ban list.", lang))
	return nil
}

func (m *Moderation) cmdDelWord(ctx context.Context, msg *api.Message, args []string) error {
	lang := m.s.GetLanguage(ctx, msg.Chat.ID)
	if err := m.s.GetDB().RemoveBannedWord(ctx, msg.Chat.ID, args[0]); err != nil {
		return err
	}
	respond(m.s, msg.Chat.ID, i18n.Get("✅ Word removed from the ban list.", lang))
	return nil
}

func (m *Moderation) cmdWords(ctx context.Context, msg *api.Message, args []string) error {
	lang := m.s.GetLanguage(ctx, msg.Chat.ID)
	words, err := m.s.GetDB().GetBannedWords(ctx, msg.Chat.ID)
	if err != nil {
		return err
	}
	if len(words) == 0 {
		respond(m.s, msg.Chat.ID, i18n.Get("The ban list is empty.", lang))
		return nil
	}
	respond(m.s, msg.Chat.ID, fmt.Sprintf(i18n.Get("🚫 Banned words: %s", lang), strings.Join(words, ", ")))
	return nil
}

func displayName(userID int64, username string) string {
	if username != "" {
		return "@" + username
	}
	return fmt.Sprintf("user %d", userID)
}

func (m *Moderation) getLogEntry() *log.Entry {
	if m.logger == nil {
		m.logger = log.WithField("handler", "moderation")
	}
	return m.logger
}
