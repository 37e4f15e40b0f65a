package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"node.town/autolingo/broadcast"
	"node.town/autolingo/config"
	"node.town/autolingo/model"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want log.Level
	}{
		{"debug", log.DebugLevel},
		{"warn", log.WarnLevel},
		{"error", log.ErrorLevel},
		{"", log.InfoLevel},
		{"chatty", log.InfoLevel},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestCreateLoggersPrefixes(t *testing.T) {
	var buf bytes.Buffer
	mainLogger, liveLogger, wireLogger, dataLogger := createLoggers(&buf)

	mainLogger.Info("a")
	liveLogger.Info("b")
	wireLogger.Info("c")
	dataLogger.Info("d")

	out := buf.String()
	for _, prefix := range []string{"main", "live", "wire", "data"} {
		if !strings.Contains(out, prefix) {
			t.Errorf("log output missing prefix %q:\n%s", prefix, out)
		}
	}
}

func TestOpenStoreInMemory(t *testing.T) {
	ctx := context.Background()
	app := config.App{StoreDriver: "sqlite", StorePath: ":memory:"}

	sessions, cfg, err := openStore(ctx, app, log.New(&bytes.Buffer{}))
	if err != nil {
		t.Fatalf("openStore: %v", err)
	}
	defer sessions.Close()

	sessions.Save(ctx, model.SavedSession{ID: "s1", Speakers: model.DefaultSpeakers()})
	if len(sessions.List(ctx)) != 1 {
		t.Error("session not saved")
	}
	if cfg.Speakers(ctx) != model.DefaultSpeakers() {
		t.Error("fresh store should give default speakers")
	}
}

func TestOpenStoreUnknownDriver(t *testing.T) {
	app := config.App{StoreDriver: "floppy"}
	if _, _, err := openStore(context.Background(), app, log.New(&bytes.Buffer{})); err == nil {
		t.Error("openStore accepted an unknown driver")
	}
}

func TestCaptionLine(t *testing.T) {
	tests := []struct {
		name string
		msg  broadcast.Message
		want string
	}{
		{
			name: "live caption",
			msg:  broadcast.Message{Kind: broadcast.KindCaption, Source: "Hola", Target: "Hello"},
			want: "Hello",
		},
		{
			name: "empty caption",
			msg:  broadcast.Message{Kind: broadcast.KindCaption, Source: "Hola"},
			want: "",
		},
		{
			name: "committed keeps translations only",
			msg: broadcast.Message{Kind: broadcast.KindCommitted, Entries: []model.TranscriptEntry{
				{Origin: model.Source, Text: "Hola"},
				{Origin: model.Target, Text: "Hello"},
			}},
			want: "Hello\n",
		},
		{
			name: "state",
			msg:  broadcast.Message{Kind: broadcast.KindState, State: "disconnected"},
			want: "[disconnected]\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := strings.ReplaceAll(captionLine(tt.msg), "\r\033[K", "")
			if got != tt.want {
				t.Errorf("captionLine() = %q, want %q", got, tt.want)
			}
			if strings.Contains(got, "Hola") {
				t.Error("source text shown on the customer display")
			}
		})
	}
}
