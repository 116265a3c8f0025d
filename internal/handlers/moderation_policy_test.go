package handlers

import (
	"strings"
	"testing"

	api "github.com/OvyFlash/telegram-bot-api"

	"github.com/iamwavecut/guardbot/internal/flood"
)

func TestWarnThresholdRemovesOffender(t *testing.T) {
	t.Parallel()

	env, ctx := newTestEnv(t)
	m := NewModeration(env.s, flood.NewTracker(), nil)
	chat := groupChat(-100)

	settings, err := env.s.EnsureSettings(ctx, chat.ID, chat.Title)
	if err != nil {
		t.Fatalf("ensure settings: %v", err)
	}
	settings.MaxWarnings = 2
	if err := env.s.GetDB().SetSettings(ctx, settings); err != nil {
		t.Fatalf("set settings: %v", err)
	}

	owner := &api.User{ID: testSudoID, FirstName: "Boss"}
	target := &api.User{ID: 500, UserName: "troll", FirstName: "Troll"}
	warn := commandMessage(chat, owner, "/warn spamming")
	warn.ReplyToMessage = &api.Message{MessageID: 5, Chat: chat, From: target}

	proceed, err := m.Handle(ctx, &api.Update{Message: warn}, &chat, owner)
	if err != nil {
		t.Fatalf("first warn: %v", err)
	}
	if proceed {
		t.Fatal("handled command leaked to other handlers")
	}
	if calls := env.stub.callsTo("banChatMember"); len(calls) != 0 {
		t.Fatalf("first warn must not kick, got %d ban calls", len(calls))
	}

	if _, err := m.Handle(ctx, &api.Update{Message: warn}, &chat, owner); err != nil {
		t.Fatalf("second warn: %v", err)
	}

	// The threshold removes the member via the short ban-unban pair.
	if calls := env.stub.callsTo("banChatMember"); len(calls) != 1 {
		t.Fatalf("expected the threshold kick, got %d ban calls", len(calls))
	}
	if calls := env.stub.callsTo("unbanChatMember"); len(calls) != 1 {
		t.Fatalf("expected the kick unban, got %d unban calls", len(calls))
	}

	var announced bool
	for _, call := range env.stub.callsTo("sendMessage") {
		if strings.Contains(call.params.Get("text"), "removed from the group") {
			announced = true
		}
	}
	if !announced {
		t.Fatal("removal was not announced")
	}

	warnings, err := env.s.GetDB().GetWarnings(ctx, chat.ID, target.ID, "troll")
	if err != nil {
		t.Fatalf("get warnings: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("ledger not cleared after removal: %d warnings left", len(warnings))
	}
}

func TestWarnThresholdWithoutIDAnnouncesOnly(t *testing.T) {
	t.Parallel()

	env, ctx := newTestEnv(t)
	m := NewModeration(env.s, flood.NewTracker(), nil)
	chat := groupChat(-100)

	settings, err := env.s.EnsureSettings(ctx, chat.ID, chat.Title)
	if err != nil {
		t.Fatalf("ensure settings: %v", err)
	}
	settings.MaxWarnings = 1
	if err := env.s.GetDB().SetSettings(ctx, settings); err != nil {
		t.Fatalf("set settings: %v", err)
	}

	owner := &api.User{ID: testSudoID, FirstName: "Boss"}
	warn := commandMessage(chat, owner, "/warn @ghost being rude")
	if _, err := m.Handle(ctx, &api.Update{Message: warn}, &chat, owner); err != nil {
		t.Fatalf("warn: %v", err)
	}

	// There is no stable id behind a bare @username, so nobody is kicked.
	if calls := env.stub.callsTo("banChatMember"); len(calls) != 0 {
		t.Fatalf("username-only warn must not kick, got %d ban calls", len(calls))
	}
	var announced bool
	for _, call := range env.stub.callsTo("sendMessage") {
		if strings.Contains(call.params.Get("text"), "removed from the group") {
			announced = true
		}
	}
	if !announced {
		t.Fatal("removal was not announced")
	}
	warnings, err := env.s.GetDB().GetWarnings(ctx, chat.ID, 0, "ghost")
	if err != nil {
		t.Fatalf("get warnings: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("ledger not cleared after the announcement: %d warnings left", len(warnings))
	}
}

func TestAntiLinkDeletesForMembersOnly(t *testing.T) {
	t.Parallel()

	env, ctx := newTestEnv(t)
	m := NewModeration(env.s, flood.NewTracker(), nil)
	chat := groupChat(-100)

	if _, err := env.s.EnsureSettings(ctx, chat.ID, chat.Title); err != nil {
		t.Fatalf("ensure settings: %v", err)
	}

	member := &api.User{ID: 600, FirstName: "Sam"}
	msg := textMessage(chat, member, "join https://scam.example now")
	proceed, err := m.Handle(ctx, &api.Update{Message: msg}, &chat, member)
	if err != nil {
		t.Fatalf("member message: %v", err)
	}
	if proceed {
		t.Fatal("link message leaked past the filter")
	}
	if calls := env.stub.callsTo("deleteMessage"); len(calls) != 1 {
		t.Fatalf("expected the link deletion, got %d deletes", len(calls))
	}

	adminUser := &api.User{ID: 700, FirstName: "Ann"}
	env.stub.makeAdmin(adminUser.ID)
	adminMsg := textMessage(chat, adminUser, "see https://docs.example")
	proceed, err = m.Handle(ctx, &api.Update{Message: adminMsg}, &chat, adminUser)
	if err != nil {
		t.Fatalf("admin message: %v", err)
	}
	if !proceed {
		t.Fatal("admin message was filtered")
	}
	if calls := env.stub.callsTo("deleteMessage"); len(calls) != 1 {
		t.Fatalf("admin link was deleted: %d deletes", len(calls))
	}
}

func TestAntiLinkToggleRoundTrip(t *testing.T) {
	t.Parallel()

	env, ctx := newTestEnv(t)
	m := NewModeration(env.s, flood.NewTracker(), nil)
	sh := NewSettingsHandler(env.s)
	chat := groupChat(-100)

	owner := &api.User{ID: testSudoID, FirstName: "Boss"}
	member := &api.User{ID: 600, FirstName: "Sam"}

	off := commandMessage(chat, owner, "/antilink off")
	if _, err := sh.Handle(ctx, &api.Update{Message: off}, &chat, owner); err != nil {
		t.Fatalf("antilink off: %v", err)
	}

	link := textMessage(chat, member, "https://fine.example")
	proceed, err := m.Handle(ctx, &api.Update{Message: link}, &chat, member)
	if err != nil {
		t.Fatalf("member message with filter off: %v", err)
	}
	if !proceed {
		t.Fatal("link filtered while antilink is off")
	}
	if calls := env.stub.callsTo("deleteMessage"); len(calls) != 0 {
		t.Fatalf("unexpected deletion with antilink off: %d deletes", len(calls))
	}

	on := commandMessage(chat, owner, "/antilink on")
	if _, err := sh.Handle(ctx, &api.Update{Message: on}, &chat, owner); err != nil {
		t.Fatalf("antilink on: %v", err)
	}

	link = textMessage(chat, member, "https://fine.example")
	proceed, err = m.Handle(ctx, &api.Update{Message: link}, &chat, member)
	if err != nil {
		t.Fatalf("member message with filter on: %v", err)
	}
	if proceed {
		t.Fatal("link passed while antilink is on")
	}
	if calls := env.stub.callsTo("deleteMessage"); len(calls) != 1 {
		t.Fatalf("expected the link deletion, got %d deletes", len(calls))
	}
}
