package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/iamwavecut/tool"

	"github.com/iamwavecut/guardbot/internal/bot"
	"github.com/iamwavecut/guardbot/internal/db"
	"github.com/iamwavecut/guardbot/internal/i18n"
)

var mediaKinds = []string{
	string(bot.MessageTypeSticker),
	string(bot.MessageTypeAnimation),
	string(bot.MessageTypePhoto),
	string(bot.MessageTypeVideo),
	string(bot.MessageTypeVideoNote),
	string(bot.MessageTypeVoice),
	string(bot.MessageTypeAudio),
	string(bot.MessageTypeDocument),
}

// SettingsHandler owns the per-chat policy commands. All of them require
// admin rights; every mutation goes through EnsureSettings so the first
// admin command registers the chat with defaults.
type SettingsHandler struct {
	s      bot.Service
	router *bot.Router
}

func NewSettingsHandler(s bot.Service) *SettingsHandler {
	h := &SettingsHandler{s: s}

	r := bot.NewRouter(s, deniedResponder(s), usageResponder(s))
	r.Register(&bot.Command{Name: "settings", Access: bot.AccessAdmin, Run: h.cmdSettings})
	r.Register(&bot.Command{Name: "antispam", Access: bot.AccessAdmin, MinArgs: 1, Usage: "/antispam on|off", Run: h.toggle("antispam")})
	r.Register(&bot.Command{Name: "antilink", Access: bot.AccessAdmin, MinArgs: 1, Usage: "/antilink on|off", Run: h.toggle("antilink")})
	r.Register(&bot.Command{Name: "antiflood", Access: bot.AccessAdmin, MinArgs: 1, Usage: "/antiflood on|off", Run: h.toggle("antiflood")})
	r.Register(&bot.Command{Name: "welcome", Access: bot.AccessAdmin, MinArgs: 1, Usage: "/welcome on|off", Run: h.toggle("welcome")})
	r.Register(&bot.Command{Name: "goodbye", Access: bot.AccessAdmin, MinArgs: 1, Usage: "/goodbye on|off", Run: h.toggle("goodbye")})
	r.Register(&bot.Command{Name: "captcha", Access: bot.AccessAdmin, MinArgs: 1, Usage: "/captcha on|off", Run: h.toggle("captcha")})
	r.Register(&bot.Command{Name: "badwords", Access: bot.AccessAdmin, MinArgs: 1, Usage: "/badwords on|off", Run: h.toggle("badwords")})
	r.Register(&bot.Command{Name: "media", Access: bot.AccessAdmin, MinArgs: 2, Usage: "/media <kind> on|off", Run: h.cmdMedia})
	r.Register(&bot.Command{Name: "setrules", Access: bot.AccessAdmin, MinArgs: 1, Usage: "/setrules <text>", Run: h.cmdSetRules})
	r.Register(&bot.Command{Name: "setwelcome", Access: bot.AccessAdmin, MinArgs: 1, Usage: "/setwelcome <text>", Run: h.cmdSetWelcome})
	r.Register(&bot.Command{Name: "setgoodbye", Access: bot.AccessAdmin, MinArgs: 1, Usage: "/setgoodbye <text>", Run: h.cmdSetGoodbye})
	r.Register(&bot.Command{Name: "setmaxwarn", Access: bot.AccessAdmin, MinArgs: 1, Usage: "/setmaxwarn <n>", Run: h.cmdSetMaxWarn})
	r.Register(&bot.Command{Name: "setflood", Access: bot.AccessAdmin, MinArgs: 1, Usage: "/setflood <n>", Run: h.cmdSetFlood})
	r.Register(&bot.Command{Name: "lang", Access: bot.AccessAdmin, MinArgs: 1, Usage: "/lang <code>", Run: h.cmdLang})
	h.router = r

	return h
}

func (h *SettingsHandler) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (bool, error) {
	if u.Message == nil || chat == nil || user == nil || !isGroupChat(chat) {
		return true, nil
	}
	if !u.Message.IsCommand() {
		return true, nil
	}
	handled, err := h.router.Dispatch(ctx, u.Message, user)
	if err != nil {
		return false, err
	}
	return !handled, nil
}

func (h *SettingsHandler) cmdSettings(ctx context.Context, msg *api.Message, args []string) error {
	settings, err := h.s.EnsureSettings(ctx, msg.Chat.ID, msg.Chat.Title)
	if err != nil {
		return err
	}
	lang := settings.Language

	var blocked []string
	for _, kind := range mediaKinds {
		if settings.IsMediaBlocked(kind) {
			blocked = append(blocked, kind)
		}
	}
	mediaLine := i18n.Get("none", lang)
	if len(blocked) > 0 {
		mediaLine = strings.Join(blocked, ", ")
	}

	respond(h.s, msg.Chat.ID, strings.Join([]string{
		fmt.Sprintf(i18n.Get("⚙️ Settings for %s", lang), msg.Chat.Title),
		"",
		fmt.Sprintf("• %s: %s", i18n.Get("Anti-spam", lang), onOffLabel(settings.AntiSpam, lang)),
		fmt.Sprintf("• %s: %s", i18n.Get("Anti-link", lang), onOffLabel(settings.AntiLink, lang)),
		fmt.Sprintf("• %s: %s", i18n.Get("Anti-flood", lang), onOffLabel(settings.AntiFlood, lang)),
		fmt.Sprintf("• %s: %s", i18n.Get("Welcome messages", lang), onOffLabel(settings.Welcome, lang)),
		fmt.Sprintf("• %s: %s", i18n.Get("Goodbye messages", lang), onOffLabel(settings.Goodbye, lang)),
		fmt.Sprintf("• %s: %s", i18n.Get("Captcha", lang), onOffLabel(settings.Captcha, lang)),
		fmt.Sprintf("• %s: %s", i18n.Get("Bad words filter", lang), onOffLabel(settings.FilterBadWords, lang)),
		fmt.Sprintf("• %s: %d", i18n.Get("Max warnings", lang), settings.MaxWarnings),
		fmt.Sprintf("• %s: %d / %s", i18n.Get("Flood limit", lang), settings.FloodLimit, settings.GetFloodWindow()),
		fmt.Sprintf("• %s: %s", i18n.Get("Blocked media", lang), mediaLine),
		fmt.Sprintf("• %s: %s", i18n.Get("Language", lang), settings.Language),
	}, "\n"))
	return nil
}

func (h *SettingsHandler) toggle(name string) bot.CommandFunc {
	return func(ctx context.Context, msg *api.Message, args []string) error {
		lang := h.s.GetLanguage(ctx, msg.Chat.ID)
		enabled, ok := onOffToBool(args[0])
		if !ok {
			respond(h.s, msg.Chat.ID, fmt.Sprintf(i18n.Get("Usage: %s", lang), "/"+name+" on|off"))
			return nil
		}

		settings, err := h.s.EnsureSettings(ctx, msg.Chat.ID, msg.Chat.Title)
		if err != nil {
			return err
		}

		var label string
		switch name {
		case "antispam":
			settings.AntiSpam = enabled
			label = i18n.Get("Anti-spam", lang)
		case "antilink":
			settings.AntiLink = enabled
			label = i18n.Get("Anti-link", lang)
		case "antiflood":
			settings.AntiFlood = enabled
			label = i18n.Get("Anti-flood", lang)
		case "welcome":
			settings.Welcome = enabled
			label = i18n.Get("Welcome messages", lang)
		case "goodbye":
			settings.Goodbye = enabled
			label = i18n.Get("Goodbye messages", lang)
		case "captcha":
			settings.Captcha = enabled
			label = i18n.Get("Captcha", lang)
		case "badwords":
			settings.FilterBadWords = enabled
			label = i18n.Get("Bad words filter", lang)
		default:
			return nil
		}

		if err := h.s.GetDB().SetSettings(ctx, settings); err != nil {
			return err
		}
		respond(h.s, msg.Chat.ID, fmt.Sprintf("✅ %s: %s", label, onOffLabel(enabled, lang)))
		return nil
	}
}

func (h *SettingsHandler) cmdMedia(ctx context.Context, msg *api.Message, args []string) error {
	lang := h.s.GetLanguage(ctx, msg.Chat.ID)
	kind := strings.ToLower(args[0])
	if !tool.In(kind, mediaKinds...) {
		respond(h.s, msg.Chat.ID, fmt.Sprintf(
			i18n.Get("Unknown media kind %q. Available: %s", lang), kind, strings.Join(mediaKinds, ", ")))
		return nil
	}

	enabled, ok := onOffToBool(args[1])
	if !ok {
		respond(h.s, msg.Chat.ID, fmt.Sprintf(i18n.Get("Usage: %s", lang), "/media <kind> on|off"))
		return nil
	}

	settings, err := h.s.EnsureSettings(ctx, msg.Chat.ID, msg.Chat.Title)
	if err != nil {
		return err
	}
	if settings.MediaFilters == nil {
		settings.MediaFilters = db.MediaFilters{}
	}
	// "on" means the filter is on, i.e. the media kind is blocked.
	settings.MediaFilters[kind] = enabled
	if err := h.s.GetDB().SetSettings(ctx, settings); err != nil {
		return err
	}

	if enabled {
		respond(h.s, msg.Chat.ID, fmt.Sprintf(i18n.Get("✅ %s messages are now blocked.", lang), kind))
	} else {
		respond(h.s, msg.Chat.ID, fmt.Sprintf(i18n.Get("✅ %s messages are now allowed.", lang), kind))
	}
	return nil
}

func (h *SettingsHandler) cmdSetRules(ctx context.Context, msg *api.Message, args []string) error {
	return h.setText(ctx, msg, "rules", strings.TrimSpace(msg.CommandArguments()))
}

func (h *SettingsHandler) cmdSetWelcome(ctx context.Context, msg *api.Message, args []string) error {
	return h.setText(ctx, msg, "welcome", strings.TrimSpace(msg.CommandArguments()))
}

func (h *SettingsHandler) cmdSetGoodbye(ctx context.Context, msg *api.Message, args []string) error {
	return h.setText(ctx, msg, "goodbye", strings.TrimSpace(msg.CommandArguments()))
}

func (h *SettingsHandler) setText(ctx context.Context, msg *api.Message, field, text string) error {
	lang := h.s.GetLanguage(ctx, msg.Chat.ID)
	settings, err := h.s.EnsureSettings(ctx, msg.Chat.ID, msg.Chat.Title)
	if err != nil {
		return err
	}

	switch field {
	case "rules":
		settings.Rules = text
		defer respond(h.s, msg.Chat.ID, i18n.Get("✅ Group rules updated.", lang))
	case "welcome":
		settings.WelcomeMessage = text
		defer respond(h.s, msg.Chat.ID, i18n.Get("✅ Welcome message updated.", lang))
	case "goodbye":
		settings.GoodbyeMessage = text
		defer respond(h.s, msg.Chat.ID, i18n.Get("✅ Goodbye message updated.", lang))
	}
	return h.s.GetDB().SetSettings(ctx, settings)
}

func (h *SettingsHandler) cmdSetMaxWarn(ctx context.Context, msg *api.Message, args []string) error {
	lang := h.s.GetLanguage(ctx, msg.Chat.ID)
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 || n > 10 {
		respond(h.s, msg.Chat.ID, i18n.Get("Pick a warning limit between 1 and 10.", lang))
		return nil
	}

	settings, err := h.s.EnsureSettings(ctx, msg.Chat.ID, msg.Chat.Title)
	if err != nil {
		return err
	}
	settings.MaxWarnings = n
	if err := h.s.GetDB().SetSettings(ctx, settings); err != nil {
		return err
	}
	respond(h.s, msg.Chat.ID, fmt.Sprintf(i18n.Get("✅ Members are now removed after %d warnings.", lang), n))
	return nil
}

func (h *SettingsHandler) cmdSetFlood(ctx context.Context, msg *api.Message, args []string) error {
	lang := h.s.GetLanguage(ctx, msg.Chat.ID)
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 2 || n > 50 {
		respond(h.s, msg.Chat.ID, i18n.Get("Pick a flood limit between 2 and 50.", lang))
		return nil
	}

	settings, err := h.s.EnsureSettings(ctx, msg.Chat.ID, msg.Chat.Title)
	if err != nil {
		return err
	}
	settings.FloodLimit = n
	if err := h.s.GetDB().SetSettings(ctx, settings); err != nil {
		return err
	}
	respond(h.s, msg.Chat.ID, fmt.Sprintf(
		i18n.Get("✅ More than %d messages within %s now counts as flooding.", lang), n, settings.GetFloodWindow()))
	return nil
}

func (h *SettingsHandler) cmdLang(ctx context.Context, msg *api.Message, args []string) error {
	lang := h.s.GetLanguage(ctx, msg.Chat.ID)
	code := strings.ToLower(args[0])

	available := i18n.GetLanguagesList()
	if !tool.In(code, available...) {
		respond(h.s, msg.Chat.ID, fmt.Sprintf(
			i18n.Get("Unsupported language %q. Available: %s", lang), code, strings.Join(available, ", ")))
		return nil
	}

	settings, err := h.s.EnsureSettings(ctx, msg.Chat.ID, msg.Chat.Title)
	if err != nil {
		return err
	}
	settings.Language = code
	if err := h.s.GetDB().SetSettings(ctx, settings); err != nil {
		return err
	}
	respond(h.s, msg.Chat.ID, fmt.Sprintf(i18n.Get("✅ Language switched to %s.", code), code))
	return nil
}
