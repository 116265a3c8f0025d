package bot

import (
	"context"
	"strings"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"
)

type AccessLevel int

const (
	AccessOpen AccessLevel = iota
	AccessAdmin
	AccessSudo
)

type (
	CommandFunc func(ctx context.Context, msg *api.Message, args []string) error

	Command struct {
		Name    string
		Access  AccessLevel
		MinArgs int
		Usage   string
		Run     CommandFunc
	}

	AccessChecker interface {
		IsSudo(userID int64) bool
		IsAdmin(ctx context.Context, chatID, userID int64) bool
	}

	// Router maps command names to handlers explicitly; there is no pattern
	// matching and no ambiguity beyond exact names.
	Router struct {
		access   AccessChecker
		onDenied func(ctx context.Context, msg *api.Message, cmd *Command)
		onUsage  func(ctx context.Context, msg *api.Message, cmd *Command)
		commands map[string]*Command
	}
)

func NewRouter(
	access AccessChecker,
	onDenied func(ctx context.Context, msg *api.Message, cmd *Command),
	onUsage func(ctx context.Context, msg *api.Message, cmd *Command),
) *Router {
	return &Router{
		access:   access,
		onDenied: onDenied,
		onUsage:  onUsage,
		commands: make(map[string]*Command),
	}
}

func (r *Router) Register(cmd *Command) {
	if cmd == nil || cmd.Name == "" || cmd.Run == nil {
		return
	}
	r.commands[cmd.Name] = cmd
}

func (r *Router) Lookup(name string) *Command {
	return r.commands[name]
}

// Dispatch runs the command bound to the message, if any. Unknown commands
// are not an error; they are left for other handlers and otherwise ignored.
func (r *Router) Dispatch(ctx context.Context, msg *api.Message, user *api.User) (handled bool, err error) {
	if msg == nil || user == nil || !msg.IsCommand() {
		return false, nil
	}
	cmd, ok := r.commands[msg.Command()]
	if !ok {
		return false, nil
	}

	select {
	case <-ctx.Done():
		return true, ctx.Err()
	default:
	}

	switch cmd.Access {
	case AccessSudo:
		if !r.access.IsSudo(user.ID) {
			if r.onDenied != nil {
				r.onDenied(ctx, msg, cmd)
			}
			return true, nil
		}
	case AccessAdmin:
		if !r.access.IsAdmin(ctx, msg.Chat.ID, user.ID) {
			if r.onDenied != nil {
				r.onDenied(ctx, msg, cmd)
			}
			return true, nil
		}
	}

	args := strings.Fields(msg.CommandArguments())
	if len(args) < cmd.MinArgs {
		if r.onUsage != nil {
			r.onUsage(ctx, msg, cmd)
		}
		return true, nil
	}

	if err := cmd.Run(ctx, msg, args); err != nil {
		return true, errors.WithMessagef(err, "command %q", cmd.Name)
	}
	return true, nil
}
