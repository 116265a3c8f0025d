package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pborman/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/guardbot/internal/bot"
	"github.com/iamwavecut/guardbot/internal/db"
	"github.com/iamwavecut/guardbot/internal/i18n"
	"github.com/iamwavecut/guardbot/internal/observability"
)

const (
	selfEvictDelay     = 3 * time.Second
	challengeSweepTick = 30 * time.Second
)

// Gatekeeper guards the group entrance: it evicts the bot from chats it
// was not invited to by the owner, challenges new members when captcha is
// on, and posts the welcome and goodbye messages.
type Gatekeeper struct {
	s bot.Service

	mu     sync.Mutex
	done   chan struct{}
	logger *log.Entry
}

func NewGatekeeper(s bot.Service) *Gatekeeper {
	return &Gatekeeper{s: s}
}

func (g *Gatekeeper) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (bool, error) {
	if u.CallbackQuery != nil {
		return false, g.handleChallengeAnswer(ctx, u.CallbackQuery)
	}
	if u.Message == nil || chat == nil || !isGroupChat(chat) {
		return true, nil
	}

	msg := u.Message
	switch {
	case msg.NewChatMembers != nil:
		return false, g.handleNewMembers(ctx, msg, chat)
	case msg.LeftChatMember != nil:
		return false, g.handleLeftMember(ctx, msg, chat)
	}
	return true, nil
}

func (g *Gatekeeper) handleNewMembers(ctx context.Context, msg *api.Message, chat *api.Chat) error {
	for i := range msg.NewChatMembers {
		member := &msg.NewChatMembers[i]
		if member.ID == g.s.GetBot().Self.ID {
			return g.handleSelfJoin(ctx, msg, chat)
		}
		if member.IsBot {
			continue
		}
		if err := g.handleMemberJoin(ctx, msg, chat, member); err != nil {
			g.getLogEntry().WithField("error", err.Error()).Error("cant process joining member")
		}
	}
	return nil
}

// handleSelfJoin decides whether the bot stays in a chat it was added to.
// Only the owner may introduce the bot; anyone else gets a short notice
// and the bot leaves. No settings row is created for rejected chats.
func (g *Gatekeeper) handleSelfJoin(ctx context.Context, msg *api.Message, chat *api.Chat) error {
	if msg.From == nil || !g.s.IsSudo(msg.From.ID) {
		respond(g.s, chat.ID, i18n.Get("This bot is private and only works in approved groups. Goodbye!", g.s.GetConfig().DefaultLanguage))
		leaveCtx := context.WithoutCancel(ctx)
		g.s.GetScheduler().After(selfEvictDelay, func() {
			if err := bot.LeaveChat(leaveCtx, g.s.GetBot(), chat.ID); err != nil {
				g.getLogEntry().WithField("error", err.Error()).Error("cant leave unapproved chat")
			}
		})
		return nil
	}

	settings, err := g.s.EnsureSettings(ctx, chat.ID, chat.Title)
	if err != nil {
		return errors.WithMessage(err, "cant register chat")
	}

	lang := settings.Language
	respond(g.s, chat.ID, strings.Join([]string{
		i18n.Get("🛡 Guard duty started. Active protections:", lang),
		fmt.Sprintf("• %s: %s", i18n.Get("Anti-spam", lang), onOffLabel(settings.AntiSpam, lang)),
		fmt.Sprintf("• %s: %s", i18n.Get("Anti-link", lang), onOffLabel(settings.AntiLink, lang)),
		fmt.Sprintf("• %s: %s", i18n.Get("Anti-flood", lang), onOffLabel(settings.AntiFlood, lang)),
		fmt.Sprintf("• %s: %s", i18n.Get("Captcha", lang), onOffLabel(settings.Captcha, lang)),
		fmt.Sprintf("• %s: %s", i18n.Get("Bad words filter", lang), onOffLabel(settings.FilterBadWords, lang)),
	}, "\n"))
	respond(g.s, g.s.GetConfig().SudoID, fmt.Sprintf(
		i18n.Get("✅ Now guarding %q (%d).", g.s.GetConfig().DefaultLanguage), chat.Title, chat.ID))
	return nil
}

func (g *Gatekeeper) handleMemberJoin(ctx context.Context, msg *api.Message, chat *api.Chat, member *api.User) error {
	settings, err := g.s.Settings(ctx, chat.ID)
	if err != nil {
		return err
	}
	if settings == nil {
		return nil
	}

	if err := g.s.GetDB().UpsertUser(ctx, &db.UserStat{
		ChatID:   chat.ID,
		UserID:   member.ID,
		Username: bot.GetUN(member),
		JoinedAt: time.Now(),
	}); err != nil {
		g.getLogEntry().WithField("error", err.Error()).Debug("cant upsert joined user")
	}

	if settings.Captcha {
		return g.startChallenge(ctx, msg, chat, member, settings)
	}
	if settings.Welcome {
		g.sendWelcome(settings, chat, member)
	}
	return nil
}

func (g *Gatekeeper) startChallenge(ctx context.Context, msg *api.Message, chat *api.Chat, member *api.User, settings *db.Settings) error {
	if err := bot.RestrictChatting(ctx, g.s.GetBot(), member.ID, chat.ID, time.Now().Add(settings.GetCaptchaTimeout())); err != nil {
		return errors.WithMessage(err, "cant restrict joining member")
	}

	successUUID := uuid.New()
	lang := settings.Language

	challengeMsg := api.NewMessage(chat.ID, fmt.Sprintf(
		i18n.Get("👋 %s, prove you are human: press the button below within %d seconds.", lang),
		bot.GetFullName(member), int(settings.GetCaptchaTimeout().Seconds())))
	challengeMsg.ReplyMarkup = api.NewInlineKeyboardMarkup(
		api.NewInlineKeyboardRow(
			api.NewInlineKeyboardButtonData(
				i18n.Get("🤖 I'm not a robot", lang),
				strconv.FormatInt(member.ID, 10)+";"+successUUID,
			),
		),
	)
	sent, err := g.s.GetBot().Send(challengeMsg)
	if err != nil {
		return errors.WithMessage(err, "cant send challenge message")
	}

	now := time.Now()
	if _, err := g.s.GetDB().CreateChallenge(ctx, &db.Challenge{
		ChatID:             chat.ID,
		UserID:             member.ID,
		SuccessUUID:        successUUID,
		JoinMessageID:      msg.MessageID,
		ChallengeMessageID: sent.MessageID,
		CreatedAt:          now,
		ExpiresAt:          now.Add(settings.GetCaptchaTimeout()),
	}); err != nil {
		return errors.WithMessage(err, "cant persist challenge")
	}
	observability.RecordCaptchaOutcome("started")
	return nil
}

// handleChallengeAnswer validates a captcha button press. The callback
// data carries "userID;uuid"; only the challenged member may answer their
// own challenge.
func (g *Gatekeeper) handleChallengeAnswer(ctx context.Context, query *api.CallbackQuery) error {
	if query.Message == nil || query.From == nil {
		return nil
	}
	chatID := query.Message.Chat.ID
	lang := g.s.GetLanguage(ctx, chatID)

	parts := strings.SplitN(query.Data, ";", 2)
	if len(parts) != 2 {
		return nil
	}
	targetID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return nil
	}

	if query.From.ID != targetID {
		g.answerCallback(query.ID, i18n.Get("This challenge is not for you.", lang))
		return nil
	}

	challenge, err := g.s.GetDB().GetChallenge(ctx, chatID, targetID)
	if err != nil {
		return err
	}
	// A challenge past its deadline is dead even before the sweeper gets to
	// it; the sweeper still owns the kick and the cleanup.
	if challenge == nil || time.Now().After(challenge.ExpiresAt) {
		g.answerCallback(query.ID, i18n.Get("This challenge has expired.", lang))
		return nil
	}

	if challenge.SuccessUUID != parts[1] {
		challenge.Attempts++
		if err := g.s.GetDB().UpdateChallenge(ctx, challenge); err != nil {
			g.getLogEntry().WithField("error", err.Error()).Debug("cant bump challenge attempts")
		}
		g.answerCallback(query.ID, i18n.Get("Wrong answer, try again.", lang))
		return nil
	}

	g.answerCallback(query.ID, i18n.Get("Welcome aboard!", lang))
	observability.RecordCaptchaOutcome("passed")

	if err := bot.UnrestrictChatting(ctx, g.s.GetBot(), targetID, chatID); err != nil {
		g.getLogEntry().WithField("error", err.Error()).Error("cant unrestrict verified member")
	}
	if err := bot.DeleteChatMessage(ctx, g.s.GetBot(), chatID, challenge.ChallengeMessageID); err != nil {
		g.getLogEntry().WithField("error", err.Error()).Debug("cant delete challenge message")
	}
	if err := g.s.GetDB().DeleteChallenge(ctx, chatID, targetID); err != nil {
		g.getLogEntry().WithField("error", err.Error()).Error("cant delete challenge")
	}

	settings, err := g.s.Settings(ctx, chatID)
	if err != nil || settings == nil {
		return err
	}
	if settings.Welcome {
		g.sendWelcome(settings, &query.Message.Chat, query.From)
	}
	return nil
}

func (g *Gatekeeper) handleLeftMember(ctx context.Context, msg *api.Message, chat *api.Chat) error {
	left := msg.LeftChatMember
	if left == nil || left.ID == g.s.GetBot().Self.ID || left.IsBot {
		return nil
	}

	settings, err := g.s.Settings(ctx, chat.ID)
	if err != nil {
		return err
	}
	if settings == nil || !settings.Goodbye {
		return nil
	}

	template := settings.GoodbyeMessage
	if template == "" {
		template = db.DefaultGoodbyeMessage
	}
	respondMarkdown(g.s, chat.ID, renderTemplate(template, left, chat, chatMemberCount(g.s, chat.ID)))
	return nil
}

func (g *Gatekeeper) sendWelcome(settings *db.Settings, chat *api.Chat, member *api.User) {
	template := settings.WelcomeMessage
	if template == "" {
		template = db.DefaultWelcomeMessage
	}
	respondMarkdown(g.s, chat.ID, renderTemplate(template, member, chat, chatMemberCount(g.s, chat.ID)))
}

func (g *Gatekeeper) answerCallback(callbackID, text string) {
	if _, err := g.s.GetBot().Request(api.NewCallbackWithAlert(callbackID, text)); err != nil {
		g.getLogEntry().WithField("error", err.Error()).Debug("cant answer callback query")
	}
}

// Start launches the expired challenge sweeper. Members who never answer
// their captcha are kicked and their challenge messages removed.
func (g *Gatekeeper) Start(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.done != nil {
		return errors.New("gatekeeper already started")
	}
	g.done = make(chan struct{})

	go func() {
		ticker := time.NewTicker(challengeSweepTick)
		defer ticker.Stop()
		for {
			select {
			case <-g.done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				g.sweepExpired(ctx)
			}
		}
	}()
	return nil
}

func (g *Gatekeeper) Stop(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.done == nil {
		return nil
	}
	close(g.done)
	g.done = nil
	return nil
}

func (g *Gatekeeper) sweepExpired(ctx context.Context) {
	expired, err := g.s.GetDB().GetExpiredChallenges(ctx, time.Now())
	if err != nil {
		g.getLogEntry().WithField("error", err.Error()).Error("cant fetch expired challenges")
		return
	}
	for _, challenge := range expired {
		entry := g.getLogEntry().WithFields(log.Fields{
			"chat_id": challenge.ChatID,
			"user_id": challenge.UserID,
		})

		if err := bot.KickUserFromChat(ctx, g.s.GetBot(), challenge.UserID, challenge.ChatID); err != nil {
			entry.WithField("error", err.Error()).Error("cant kick silent member")
		}
		if err := bot.DeleteChatMessage(ctx, g.s.GetBot(), challenge.ChatID, challenge.ChallengeMessageID); err != nil {
			entry.WithField("error", err.Error()).Debug("cant delete challenge message")
		}
		if err := bot.DeleteChatMessage(ctx, g.s.GetBot(), challenge.ChatID, challenge.JoinMessageID); err != nil {
			entry.WithField("error", err.Error()).Debug("cant delete join message")
		}
		if err := g.s.GetDB().DeleteChallenge(ctx, challenge.ChatID, challenge.UserID); err != nil {
			entry.WithField("error", err.Error()).Error("cant delete challenge")
		}
		observability.RecordCaptchaOutcome("expired")
	}
}

func (g *Gatekeeper) getLogEntry() *log.Entry {
	if g.logger == nil {
		g.logger = log.WithField("handler", "gatekeeper")
	}
	return g.logger
}
