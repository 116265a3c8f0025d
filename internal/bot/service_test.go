package bot

import (
	"context"
	"testing"

	"github.com/iamwavecut/guardbot/internal/config"
	"github.com/iamwavecut/guardbot/internal/db"
	"github.com/iamwavecut/guardbot/internal/db/sqlite"
	"github.com/iamwavecut/guardbot/internal/scheduler"
)

func newTestService(t *testing.T) (Service, context.Context) {
	t.Helper()
	ctx := context.Background()
	client, err := sqlite.NewSQLiteClient(ctx, t.TempDir(), "test.db")
	if err != nil {
		t.Fatalf("new sqlite client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	cfg := config.Config{SudoID: 99, DefaultLanguage: "en"}
	return NewService(nil, client, cfg, scheduler.New()), ctx
}

func TestSettingsNilForUnregisteredChat(t *testing.T) {
	t.Parallel()

	s, ctx := newTestService(t)
	settings, err := s.Settings(ctx, -100500)
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	if settings != nil {
		t.Fatalf("expected nil settings for unregistered chat, got %#v", settings)
	}
}

func TestEnsureSettingsCreatesDefaults(t *testing.T) {
	t.Parallel()

	s, ctx := newTestService(t)
	settings, err := s.EnsureSettings(ctx, -100, "my group")
	if err != nil {
		t.Fatalf("ensure settings: %v", err)
	}

	if settings.Title != "my group" {
		t.Fatalf("title not stored: %#v", settings)
	}
	if !settings.AntiSpam || !settings.AntiLink || !settings.AntiFlood || !settings.Welcome || !settings.Goodbye || !settings.FilterBadWords {
		t.Fatalf("unexpected default toggles: %#v", settings)
	}
	if settings.Captcha {
		t.Fatal("captcha must default to off")
	}
	if settings.MaxWarnings != db.DefaultMaxWarnings || settings.FloodLimit != db.DefaultFloodLimit {
		t.Fatalf("unexpected default limits: %#v", settings)
	}

	// The row must be persisted, not just returned.
	stored, err := s.Settings(ctx, -100)
	if err != nil {
		t.Fatalf("settings after ensure: %v", err)
	}
	if stored == nil || stored.MaxWarnings != db.DefaultMaxWarnings {
		t.Fatalf("defaults not persisted: %#v", stored)
	}
}

func TestEnsureSettingsIsIdempotent(t *testing.T) {
	t.Parallel()

	s, ctx := newTestService(t)
	first, err := s.EnsureSettings(ctx, -100, "group")
	if err != nil {
		t.Fatalf("ensure settings: %v", err)
	}
	first.MaxWarnings = 7
	if err := s.GetDB().SetSettings(ctx, first); err != nil {
		t.Fatalf("set settings: %v", err)
	}

	again, err := s.EnsureSettings(ctx, -100, "group")
	if err != nil {
		t.Fatalf("second ensure settings: %v", err)
	}
	if again.MaxWarnings != 7 {
		t.Fatalf("ensure overwrote existing settings: %#v", again)
	}
}

func TestEnsureSettingsTracksTitleRename(t *testing.T) {
	t.Parallel()

	s, ctx := newTestService(t)
	if _, err := s.EnsureSettings(ctx, -100, "old name"); err != nil {
		t.Fatalf("ensure settings: %v", err)
	}
	settings, err := s.EnsureSettings(ctx, -100, "new name")
	if err != nil {
		t.Fatalf("ensure with new title: %v", err)
	}
	if settings.Title != "new name" {
		t.Fatalf("title not refreshed: %#v", settings)
	}
}

func TestGetLanguageFallsBackToDefault(t *testing.T) {
	t.Parallel()

	s, ctx := newTestService(t)
	if lang := s.GetLanguage(ctx, -404); lang != "en" {
		t.Fatalf("expected default language for unknown chat, got %q", lang)
	}

	settings, err := s.EnsureSettings(ctx, -100, "group")
	if err != nil {
		t.Fatalf("ensure settings: %v", err)
	}
	settings.Language = "fa"
	if err := s.GetDB().SetSettings(ctx, settings); err != nil {
		t.Fatalf("set settings: %v", err)
	}
	if lang := s.GetLanguage(ctx, -100); lang != "fa" {
		t.Fatalf("expected stored language, got %q", lang)
	}
}

func TestIsSudo(t *testing.T) {
	t.Parallel()

	s, _ := newTestService(t)
	if !s.IsSudo(99) {
		t.Fatal("owner not recognized as sudo")
	}
	if s.IsSudo(98) {
		t.Fatal("stranger recognized as sudo")
	}
}
