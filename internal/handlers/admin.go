package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/iamwavecut/guardbot/internal/bot"
	"github.com/iamwavecut/guardbot/internal/db"
	"github.com/iamwavecut/guardbot/internal/i18n"
)

const broadcastConcurrency = 4

// Admin serves the open informational commands and the owner-only
// surface. Unlike the other handlers it also answers in private chats.
type Admin struct {
	s      bot.Service
	router *bot.Router

	logger *log.Entry
}

func NewAdmin(s bot.Service) *Admin {
	a := &Admin{s: s}

	r := bot.NewRouter(s, deniedResponder(s), usageResponder(s))
	r.Register(&bot.Command{Name: "start", Run: a.cmdStart})
	r.Register(&bot.Command{Name: "help", Run: a.cmdHelp})
	r.Register(&bot.Command{Name: "rules", Run: a.cmdRules})
	r.Register(&bot.Command{Name: "info", Run: a.cmdInfo})
	r.Register(&bot.Command{Name: "stats", Run: a.cmdStats})
	r.Register(&bot.Command{Name: "invite", Access: bot.AccessAdmin, Run: a.cmdInvite})
	r.Register(&bot.Command{Name: "groups", Access: bot.AccessSudo, Run: a.cmdGroups})
	r.Register(&bot.Command{Name: "broadcast", Access: bot.AccessSudo, MinArgs: 1, Usage: "/broadcast <text>", Run: a.cmdBroadcast})
	r.Register(&bot.Command{Name: "leave", Access: bot.AccessSudo, MinArgs: 1, Usage: "/leave <chat id>", Run: a.cmdLeave})
	a.router = r

	return a
}

func (a *Admin) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (bool, error) {
	if u.Message == nil || chat == nil || user == nil {
		return true, nil
	}
	if !u.Message.IsCommand() {
		return true, nil
	}
	handled, err := a.router.Dispatch(ctx, u.Message, user)
	if err != nil {
		return false, err
	}
	return !handled, nil
}

func (a *Admin) cmdStart(ctx context.Context, msg *api.Message, args []string) error {
	lang := a.s.GetLanguage(ctx, msg.Chat.ID)
	respond(a.s, msg.Chat.ID, i18n.Get("🛡 Hi! I keep groups clean: spam, links, floods and rogue media don't stand a chance. Add me to a group and promote me to admin. Use /help to see what I can do.", lang))
	return nil
}

func (a *Admin) cmdHelp(ctx context.Context, msg *api.Message, args []string) error {
	lang := a.s.GetLanguage(ctx, msg.Chat.ID)
	respond(a.s, msg.Chat.ID, strings.Join([]string{
		i18n.Get("📖 Commands", lang),
		"",
		i18n.Get("Everyone:", lang),
		"/rules — " + i18n.Get("show the group rules", lang),
		"/info — " + i18n.Get("group overview", lang),
		"/stats — " + i18n.Get("your activity in this group", lang),
		"",
		i18n.Get("Admins:", lang),
		"/settings — " + i18n.Get("current policy", lang),
		"/antispam, /antilink, /antiflood, /welcome, /goodbye, /captcha, /badwords — on|off",
		"/media <kind> on|off — " + i18n.Get("block or allow a media kind", lang),
		"/setrules, /setwelcome, /setgoodbye — " + i18n.Get("set texts ({name}, {group}, {mention}, {count})", lang),
		"/setmaxwarn <n>, /setflood <n> — " + i18n.Get("thresholds", lang),
		"/warn, /warns, /resetwarns — " + i18n.Get("warnings ledger", lang),
		"/kick, /ban, /unban, /mute, /unmute — " + i18n.Get("member actions (reply or @user)", lang),
		"/addword, /delword, /words — " + i18n.Get("banned words", lang),
		"/invite — " + i18n.Get("create an invite link", lang),
		"/pin, /unpin, /lang <code>",
	}, "\n"))
	return nil
}

func (a *Admin) cmdRules(ctx context.Context, msg *api.Message, args []string) error {
	if !isGroupChat(&msg.Chat) {
		return nil
	}
	lang := a.s.GetLanguage(ctx, msg.Chat.ID)

	settings, err := a.s.Settings(ctx, msg.Chat.ID)
	if err != nil {
		return err
	}
	rules := db.DefaultRules
	if settings != nil && settings.Rules != "" {
		rules = settings.Rules
	}
	respond(a.s, msg.Chat.ID, fmt.Sprintf("📜 %s\n\n%s", i18n.Get("Group rules", lang), rules))
	return nil
}

func (a *Admin) cmdInfo(ctx context.Context, msg *api.Message, args []string) error {
	if !isGroupChat(&msg.Chat) {
		return nil
	}
	lang := a.s.GetLanguage(ctx, msg.Chat.ID)

	respond(a.s, msg.Chat.ID, strings.Join([]string{
		fmt.Sprintf("ℹ️ %s", msg.Chat.Title),
		fmt.Sprintf("🆔 %d", msg.Chat.ID),
		fmt.Sprintf("👥 %s: %d", i18n.Get("Members", lang), chatMemberCount(a.s, msg.Chat.ID)),
	}, "\n"))
	return nil
}

// cmdStats shows per-member activity in groups; for the owner in a
// private chat it switches to the global bot totals.
func (a *Admin) cmdStats(ctx context.Context, msg *api.Message, args []string) error {
	lang := a.s.GetLanguage(ctx, msg.Chat.ID)

	if !isGroupChat(&msg.Chat) {
		if msg.From == nil || !a.s.IsSudo(msg.From.ID) {
			return nil
		}
		return a.globalStats(ctx, msg.Chat.ID, lang)
	}

	if msg.From == nil {
		return nil
	}
	stat, err := a.s.GetDB().GetUser(ctx, msg.Chat.ID, msg.From.ID)
	if err != nil {
		if err == db.ErrNotFound {
			respond(a.s, msg.Chat.ID, i18n.Get("No activity on record yet.", lang))
			return nil
		}
		return err
	}

	respond(a.s, msg.Chat.ID, strings.Join([]string{
		fmt.Sprintf("📊 %s", bot.GetFullName(msg.From)),
		fmt.Sprintf("💬 %s: %d", i18n.Get("Messages", lang), stat.Messages),
		fmt.Sprintf("⚠️ %s: %d", i18n.Get("Warnings", lang), stat.Warns),
		fmt.Sprintf("🔇 %s: %d", i18n.Get("Mutes", lang), stat.Mutes),
		fmt.Sprintf("👢 %s: %d", i18n.Get("Kicks", lang), stat.Kicks),
	}, "\n"))
	return nil
}

// cmdInvite shares a fresh primary invite link for the group.
func (a *Admin) cmdInvite(ctx context.Context, msg *api.Message, args []string) error {
	if !isGroupChat(&msg.Chat) {
		return nil
	}
	lang := a.s.GetLanguage(ctx, msg.Chat.ID)

	link, err := bot.ExportInviteLink(ctx, a.s.GetBot(), msg.Chat.ID)
	if err != nil {
		a.getLogEntry().WithField("error", err.Error()).Error("cant export invite link")
		respond(a.s, msg.Chat.ID, i18n.Get("Something went wrong, try again later.", lang))
		return nil
	}
	respond(a.s, msg.Chat.ID, fmt.Sprintf(i18n.Get("🔗 Invite link: %s", lang), link))
	return nil
}

func (a *Admin) globalStats(ctx context.Context, chatID int64, lang string) error {
	chats, err := a.s.GetDB().CountChats(ctx)
	if err != nil {
		return err
	}
	users, err := a.s.GetDB().CountUsers(ctx)
	if err != nil {
		return err
	}

	respond(a.s, chatID, strings.Join([]string{
		i18n.Get("📊 Bot statistics", lang),
		fmt.Sprintf("👥 %s: %d", i18n.Get("Guarded groups", lang), chats),
		fmt.Sprintf("🧑 %s: %d", i18n.Get("Known members", lang), users),
	}, "\n"))
	return nil
}

func (a *Admin) cmdGroups(ctx context.Context, msg *api.Message, args []string) error {
	lang := a.s.GetLanguage(ctx, msg.Chat.ID)
	all, err := a.s.GetDB().GetAllSettings(ctx)
	if err != nil {
		return err
	}
	if len(all) == 0 {
		respond(a.s, msg.Chat.ID, i18n.Get("Not guarding any groups yet.", lang))
		return nil
	}

	var sb strings.Builder
	sb.WriteString(i18n.Get("🛡 Guarded groups:", lang))
	for _, settings := range all {
		sb.WriteString(fmt.Sprintf("\n• %s (%d)", settings.Title, settings.ID))
	}
	respond(a.s, msg.Chat.ID, sb.String())
	return nil
}

func (a *Admin) cmdBroadcast(ctx context.Context, msg *api.Message, args []string) error {
	lang := a.s.GetLanguage(ctx, msg.Chat.ID)
	text := strings.TrimSpace(msg.CommandArguments())

	all, err := a.s.GetDB().GetAllSettings(ctx)
	if err != nil {
		return err
	}

	var sent atomic.Int64
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(broadcastConcurrency)
	for _, settings := range all {
		group.Go(func() error {
			if groupCtx.Err() != nil {
				return groupCtx.Err()
			}
			broadcast := api.NewMessage(settings.ID, text)
			if _, err := a.s.GetBot().Send(broadcast); err != nil {
				a.getLogEntry().WithFields(log.Fields{
					"chat_id": settings.ID,
					"error":   err.Error(),
				}).Error("cant broadcast to chat")
				return nil
			}
			sent.Add(1)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}
	respond(a.s, msg.Chat.ID, fmt.Sprintf(i18n.Get("📣 Broadcast delivered to %d of %d groups.", lang), sent.Load(), len(all)))
	return nil
}

// cmdLeave makes the bot leave a group and forget its settings.
func (a *Admin) cmdLeave(ctx context.Context, msg *api.Message, args []string) error {
	lang := a.s.GetLanguage(ctx, msg.Chat.ID)
	chatID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		respond(a.s, msg.Chat.ID, fmt.Sprintf(i18n.Get("Usage: %s", lang), "/leave <chat id>"))
		return nil
	}

	if err := bot.LeaveChat(ctx, a.s.GetBot(), chatID); err != nil {
		a.getLogEntry().WithField("error", err.Error()).Error("cant leave chat")
	}
	if err := a.s.GetDB().DeleteSettings(ctx, chatID); err != nil {
		return err
	}
	respond(a.s, msg.Chat.ID, fmt.Sprintf(i18n.Get("✅ Left group %d and dropped its settings.", lang), chatID))
	return nil
}

func (a *Admin) getLogEntry() *log.Entry {
	if a.logger == nil {
		a.logger = log.WithField("handler", "admin")
	}
	return a.logger
}
