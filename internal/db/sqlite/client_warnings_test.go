package sqlite

import (
	"testing"
	"time"

	"github.com/iamwavecut/guardbot/internal/db"
)

func TestWarningsAccumulateByUserID(t *testing.T) {
	t.Parallel()

	client, ctx := newTestClient(t)

	for i := 1; i <= 3; i++ {
		count, err := client.AddWarning(ctx, &db.Warning{
			ChatID:    -100,
			UserID:    777,
			Username:  "offender",
			Reason:    "spamming",
			IssuedBy:  "admin",
			CreatedAt: time.Now(),
		})
		if err != nil {
			t.Fatalf("add warning %d: %v", i, err)
		}
		if count != i {
			t.Fatalf("expected count %d, got %d", i, count)
		}
	}

	warnings, err := client.GetWarnings(ctx, -100, 777, "offender")
	if err != nil {
		t.Fatalf("get warnings: %v", err)
	}
	if len(warnings) != 3 {
		t.Fatalf("expected 3 warnings, got %d", len(warnings))
	}
	if warnings[0].Reason != "spamming" || warnings[0].IssuedBy != "admin" {
		t.Fatalf("unexpected warning record: %#v", warnings[0])
	}
}

func TestWarningsKeyedByUsernameWhenNoID(t *testing.T) {
	t.Parallel()

	client, ctx := newTestClient(t)

	if _, err := client.AddWarning(ctx, &db.Warning{
		ChatID:    -100,
		Username:  "ghost",
		Reason:    "links",
		IssuedBy:  "admin",
		CreatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("add warning: %v", err)
	}

	warnings, err := client.GetWarnings(ctx, -100, 0, "ghost")
	if err != nil {
		t.Fatalf("get warnings: %v", err)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(warnings))
	}

	// A different username must not see the ghost's warnings.
	other, err := client.GetWarnings(ctx, -100, 0, "someone")
	if err != nil {
		t.Fatalf("get other warnings: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("expected no warnings for other user, got %d", len(other))
	}
}

func TestWarningsScopedPerChat(t *testing.T) {
	t.Parallel()

	client, ctx := newTestClient(t)

	if _, err := client.AddWarning(ctx, &db.Warning{ChatID: -1, UserID: 7, CreatedAt: time.Now()}); err != nil {
		t.Fatalf("add warning: %v", err)
	}
	warnings, err := client.GetWarnings(ctx, -2, 7, "")
	if err != nil {
		t.Fatalf("get warnings: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("warning leaked across chats: %d", len(warnings))
	}
}

func TestResetWarnings(t *testing.T) {
	t.Parallel()

	client, ctx := newTestClient(t)

	for i := 0; i < 3; i++ {
		if _, err := client.AddWarning(ctx, &db.Warning{ChatID: -100, UserID: 7, CreatedAt: time.Now()}); err != nil {
			t.Fatalf("add warning: %v", err)
		}
	}
	if err := client.ResetWarnings(ctx, -100, 7, ""); err != nil {
		t.Fatalf("reset warnings: %v", err)
	}
	warnings, err := client.GetWarnings(ctx, -100, 7, "")
	if err != nil {
		t.Fatalf("get warnings: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("expected no warnings after reset, got %d", len(warnings))
	}

	count, err := client.AddWarning(ctx, &db.Warning{ChatID: -100, UserID: 7, CreatedAt: time.Now()})
	if err != nil {
		t.Fatalf("add warning after reset: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected count to restart at 1, got %d", count)
	}
}
