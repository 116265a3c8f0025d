package bot

import (
	"context"
	"errors"
	"testing"

	api "github.com/OvyFlash/telegram-bot-api"
)

type stubAccess struct {
	sudoID   int64
	adminIDs map[int64]bool
}

func (a *stubAccess) IsSudo(userID int64) bool { return userID == a.sudoID }
func (a *stubAccess) IsAdmin(ctx context.Context, chatID, userID int64) bool {
	return a.adminIDs[userID]
}

func commandMessage(text string) *api.Message {
	msg := &api.Message{
		MessageID: 1,
		Text:      text,
		Chat:      api.Chat{ID: -100},
		Entities: []api.MessageEntity{
			{Type: "bot_command", Offset: 0, Length: commandLength(text)},
		},
	}
	return msg
}

func commandLength(text string) int {
	for i, r := range text {
		if r == ' ' {
			return i
		}
	}
	return len(text)
}

func TestDispatchRunsOpenCommand(t *testing.T) {
	t.Parallel()

	router := NewRouter(&stubAccess{}, nil, nil)
	ran := false
	router.Register(&Command{Name: "ping", Run: func(ctx context.Context, msg *api.Message, args []string) error {
		ran = true
		return nil
	}})

	handled, err := router.Dispatch(context.Background(), commandMessage("/ping"), &api.User{ID: 1})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !handled || !ran {
		t.Fatalf("command not run: handled=%v ran=%v", handled, ran)
	}
}

func TestDispatchIgnoresUnknownCommand(t *testing.T) {
	t.Parallel()

	router := NewRouter(&stubAccess{}, nil, nil)
	handled, err := router.Dispatch(context.Background(), commandMessage("/nope"), &api.User{ID: 1})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if handled {
		t.Fatal("unknown command reported as handled")
	}
}

func TestDispatchDeniesNonAdmin(t *testing.T) {
	t.Parallel()

	denied := false
	router := NewRouter(
		&stubAccess{adminIDs: map[int64]bool{42: true}},
		func(ctx context.Context, msg *api.Message, cmd *Command) { denied = true },
		nil,
	)
	ran := false
	router.Register(&Command{Name: "kick", Access: AccessAdmin, Run: func(ctx context.Context, msg *api.Message, args []string) error {
		ran = true
		return nil
	}})

	handled, err := router.Dispatch(context.Background(), commandMessage("/kick"), &api.User{ID: 7})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !handled || ran || !denied {
		t.Fatalf("expected denied dispatch: handled=%v ran=%v denied=%v", handled, ran, denied)
	}

	handled, err = router.Dispatch(context.Background(), commandMessage("/kick"), &api.User{ID: 42})
	if err != nil {
		t.Fatalf("dispatch as admin: %v", err)
	}
	if !handled || !ran {
		t.Fatal("admin dispatch did not run the command")
	}
}

func TestDispatchSudoOnly(t *testing.T) {
	t.Parallel()

	router := NewRouter(&stubAccess{sudoID: 99, adminIDs: map[int64]bool{42: true}}, nil, nil)
	ran := false
	router.Register(&Command{Name: "broadcast", Access: AccessSudo, Run: func(ctx context.Context, msg *api.Message, args []string) error {
		ran = true
		return nil
	}})

	if _, err := router.Dispatch(context.Background(), commandMessage("/broadcast hi"), &api.User{ID: 42}); err != nil {
		t.Fatalf("dispatch as admin: %v", err)
	}
	if ran {
		t.Fatal("group admin ran a sudo command")
	}

	if _, err := router.Dispatch(context.Background(), commandMessage("/broadcast hi"), &api.User{ID: 99}); err != nil {
		t.Fatalf("dispatch as sudo: %v", err)
	}
	if !ran {
		t.Fatal("sudo command did not run for the owner")
	}
}

func TestDispatchEnforcesMinArgs(t *testing.T) {
	t.Parallel()

	usageShown := false
	router := NewRouter(
		&stubAccess{},
		nil,
		func(ctx context.Context, msg *api.Message, cmd *Command) { usageShown = true },
	)
	var gotArgs []string
	router.Register(&Command{Name: "addword", MinArgs: 1, Run: func(ctx context.Context, msg *api.Message, args []string) error {
		gotArgs = args
		return nil
	}})

	handled, err := router.Dispatch(context.Background(), commandMessage("/addword"), &api.User{ID: 1})
	if err != nil {
		t.Fatalf("dispatch without args: %v", err)
	}
	if !handled || !usageShown || gotArgs != nil {
		t.Fatalf("expected usage response: handled=%v usage=%v args=%v", handled, usageShown, gotArgs)
	}

	if _, err := router.Dispatch(context.Background(), commandMessage("/addword spam extra"), &api.User{ID: 1}); err != nil {
		t.Fatalf("dispatch with args: %v", err)
	}
	if len(gotArgs) != 2 || gotArgs[0] != "spam" || gotArgs[1] != "extra" {
		t.Fatalf("unexpected args: %v", gotArgs)
	}
}

func TestDispatchWrapsCommandError(t *testing.T) {
	t.Parallel()

	router := NewRouter(&stubAccess{}, nil, nil)
	boom := errors.New("boom")
	router.Register(&Command{Name: "fail", Run: func(ctx context.Context, msg *api.Message, args []string) error {
		return boom
	}})

	handled, err := router.Dispatch(context.Background(), commandMessage("/fail"), &api.User{ID: 1})
	if !handled {
		t.Fatal("failing command not reported as handled")
	}
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped command error, got %v", err)
	}
}
