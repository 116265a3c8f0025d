package handlers

import (
	"strings"
	"testing"

	api "github.com/OvyFlash/telegram-bot-api"
)

func TestInviteCommandSharesFreshLink(t *testing.T) {
	t.Parallel()

	env, ctx := newTestEnv(t)
	a := NewAdmin(env.s)
	chat := groupChat(-100)
	owner := &api.User{ID: testSudoID, FirstName: "Boss"}

	msg := commandMessage(chat, owner, "/invite")
	proceed, err := a.Handle(ctx, &api.Update{Message: msg}, &chat, owner)
	if err != nil {
		t.Fatalf("invite: %v", err)
	}
	if proceed {
		t.Fatal("handled command leaked to other handlers")
	}

	if calls := env.stub.callsTo("exportChatInviteLink"); len(calls) != 1 {
		t.Fatalf("expected one invite link export, got %d", len(calls))
	}
	var shared bool
	for _, call := range env.stub.callsTo("sendMessage") {
		if strings.Contains(call.params.Get("text"), "https://t.me/+stublink") {
			shared = true
		}
	}
	if !shared {
		t.Fatal("invite link was not shared in the chat")
	}
}

func TestInviteCommandIgnoredInPrivateChat(t *testing.T) {
	t.Parallel()

	env, ctx := newTestEnv(t)
	a := NewAdmin(env.s)
	private := api.Chat{ID: testSudoID, Type: "private"}
	owner := &api.User{ID: testSudoID, FirstName: "Boss"}

	msg := commandMessage(private, owner, "/invite")
	if _, err := a.Handle(ctx, &api.Update{Message: msg}, &private, owner); err != nil {
		t.Fatalf("invite: %v", err)
	}
	if calls := env.stub.callsTo("exportChatInviteLink"); len(calls) != 0 {
		t.Fatalf("invite link exported for a private chat: %d calls", len(calls))
	}
}
