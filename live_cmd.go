package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"node.town/autolingo/broadcast"
	"node.town/autolingo/capture"
	"node.town/autolingo/config"
	"node.town/autolingo/live"
	"node.town/autolingo/model"
	"node.town/autolingo/playback"
	"node.town/autolingo/session"
	"node.town/autolingo/ui"
)

const speakerBuffer = 100 * time.Millisecond

func runLive(cmd *cobra.Command, args []string) {
	skipSetup, _ := cmd.Flags().GetBool("yes")
	app := config.Load()

	logFile, err := os.OpenFile(app.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		logger.Fatal("open log file", "error", err)
	}
	defer logFile.Close()

	mainLogger, liveLogger, wireLogger, dataLogger := createLoggers(logFile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessions, cfg, err := openStore(ctx, app, dataLogger)
	if err != nil {
		fatal(mainLogger, "open store", err)
	}
	defer sessions.Close()

	// Saved settings may carry the key, so read it after the store is open.
	app = config.Load()
	if app.GeminiAPIKey == "" {
		fatal(mainLogger, "missing GEMINI_API_KEY or --gemini-api-key=", nil)
	}

	speakers := cfg.Speakers(ctx)
	if !skipSetup {
		if err := ui.SetupForm(&speakers).Run(); err != nil {
			fatal(mainLogger, "speaker setup", err)
		}
		if err := cfg.SaveSpeakers(ctx, speakers); err != nil {
			fatal(mainLogger, "speaker setup", err)
		}
	}

	sink, closeSink := openSink(app, mainLogger)
	defer closeSink()

	bridge := ui.NewBridge()
	observers := []session.Observer{bridge}

	var publisher *broadcast.Publisher
	if app.RedisAddr != "" {
		publisher, err = broadcast.New(ctx, app.RedisAddr, app.RedisChannel, wireLogger)
		if err != nil {
			mainLogger.Warn("caption broadcast disabled", "error", err)
		} else {
			defer publisher.Close()
			observers = append(observers, publisher)
		}
	}

	deps := session.Deps{
		Device: capture.FFmpegDevice{
			Path:   app.FFmpegPath,
			Format: app.CaptureFormat,
			Input:  app.CaptureInput,
		},
		Sink:  sink,
		Clock: playback.SystemClock{},
		Dial: func(instruction string) session.Transport {
			return live.New(live.Config{
				APIKey:            app.GeminiAPIKey,
				Endpoint:          app.Endpoint,
				Model:             app.Model,
				SystemInstruction: instruction,
				InputSampleRate:   app.InputSampleRate,
			}, wireLogger)
		},
		Store:    sessions,
		Observer: session.Observers(observers...),
	}

	fmt.Printf("Connecting %s ⇄ %s...\n", speakers[0].Language, speakers[1].Language)

	l, err := session.Start(ctx, session.Config{
		Speakers:         speakers,
		Settings:         config.Settings(),
		InputSampleRate:  app.InputSampleRate,
		OutputSampleRate: app.OutputSampleRate,
		FrameSize:        app.FrameSize,
	}, deps, liveLogger)
	if err != nil {
		fatal(mainLogger, "start session", err)
	}
	if publisher != nil {
		publisher.SetSession(l.ID())
	}

	view := ui.NewLiveModel(l, bridge, speakers)
	view.OnSettings = func(s model.Settings) {
		if err := cfg.SaveSettings(ctx, s); err != nil {
			mainLogger.Warn("could not save settings", "error", err)
		}
	}

	program := tea.NewProgram(view, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		mainLogger.Error("live view", "error", err)
	}

	saved, err := l.End(context.Background())
	if err != nil {
		mainLogger.Warn("session ended with errors", "error", err)
	}

	stats := l.Stats()
	mainLogger.Info("session stats",
		"frames", stats.Frames, "sent", stats.Sent, "suppressed", stats.Suppressed)

	if saved == nil {
		fmt.Println("Nothing was said, so the session was not saved.")
		return
	}
	fmt.Printf("Saved session %s with %d lines.\n", saved.ID, len(saved.Transcript))
}

// openSink picks the audio output. Without a usable device, translations
// are still captioned but play silently.
func openSink(app config.App, logger *log.Logger) (playback.Sink, func()) {
	if app.Headless {
		return &playback.DiscardSink{}, func() {}
	}

	sink, err := playback.NewSpeakerSink(app.OutputSampleRate, speakerBuffer)
	if err != nil {
		logger.Warn("no audio output, playing silently", "error", err)
		return &playback.DiscardSink{}, func() {}
	}
	return sink, sink.Close
}
