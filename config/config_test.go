package config

import (
	"context"
	"testing"

	"github.com/spf13/viper"

	"node.town/autolingo/model"
	"node.town/autolingo/store"
)

func openBackend(t *testing.T) store.Backend {
	t.Helper()
	db, err := store.OpenSQLite(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSettingsDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	s := Settings()
	if s != model.DefaultSettings() {
		t.Errorf("Settings() = %+v", s)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	ctx := context.Background()
	backend := openBackend(t)
	cfg := New(backend)

	want := model.Settings{TTSEnabled: true, Volume: 0.25, TextSize: model.TextHuge}
	if err := cfg.SaveSettings(ctx, want); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}
	if got := Settings(); got != want {
		t.Errorf("Settings() after save = %+v", got)
	}

	viper.Reset()
	if err := New(backend).Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := Settings(); got != want {
		t.Errorf("Settings() after reload = %+v", got)
	}
}

func TestLoadDoesNotOverrideExplicitValues(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	ctx := context.Background()
	backend := openBackend(t)
	New(backend).Set(ctx, KeyTextSize, "huge")

	viper.Reset()
	viper.Set(KeyTextSize, "normal")
	New(backend).Load(ctx)

	if got := Settings().TextSize; got != model.TextNormal {
		t.Errorf("TextSize = %s, want explicit normal", got)
	}
}

func TestSettingsIgnoresGarbage(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set(KeyTTSEnabled, "perhaps")
	viper.Set(KeyTTSVolume, "loud")
	viper.Set(KeyTextSize, "gigantic")

	if got := Settings(); got != model.DefaultSettings() {
		t.Errorf("Settings() = %+v", got)
	}
}

func TestGetMissing(t *testing.T) {
	if _, err := New(openBackend(t)).Get(context.Background(), "absent"); err == nil {
		t.Error("expected error for missing key")
	}
}

func TestLoadApp(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	SetDefaults()
	viper.Set("api_key", "from-env")

	app := Load()
	if app.GeminiAPIKey != "from-env" {
		t.Errorf("GeminiAPIKey = %q", app.GeminiAPIKey)
	}
	if app.InputSampleRate != 16000 || app.OutputSampleRate != 24000 || app.FrameSize != 4096 {
		t.Errorf("audio defaults = %d/%d/%d", app.InputSampleRate, app.OutputSampleRate, app.FrameSize)
	}
	if app.StoreDSN() != "autolingo.db" {
		t.Errorf("StoreDSN() = %q", app.StoreDSN())
	}

	viper.Set("store_driver", "postgres")
	viper.Set("database_url", "postgres://localhost/autolingo")
	if got := Load().StoreDSN(); got != "postgres://localhost/autolingo" {
		t.Errorf("postgres StoreDSN() = %q", got)
	}
}

func TestSpeakers(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	ctx := context.Background()
	cfg := New(openBackend(t))

	if got := cfg.Speakers(ctx); got != model.DefaultSpeakers() {
		t.Errorf("Speakers() before setup = %+v", got)
	}

	want := model.DefaultSpeakers()
	want[0].Name = "Rosa"
	want[0].Language = model.Spanish
	want[1].Name = "Dale"
	want[1].Language = model.English
	if err := cfg.SaveSpeakers(ctx, want); err != nil {
		t.Fatalf("SaveSpeakers: %v", err)
	}
	if got := cfg.Speakers(ctx); got != want {
		t.Errorf("Speakers() = %+v, want %+v", got, want)
	}

	same := want
	same[1].Language = model.Spanish
	if err := cfg.SaveSpeakers(ctx, same); err == nil {
		t.Error("SaveSpeakers accepted two speakers with one language")
	}

	cfg.Set(ctx, KeySpeakers, "{not json")
	if got := cfg.Speakers(ctx); got != model.DefaultSpeakers() {
		t.Errorf("Speakers() with corrupt value = %+v", got)
	}
}
