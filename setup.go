package main

import (
	"context"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"node.town/autolingo/config"
	"node.town/autolingo/ui"
)

func runSetup(cmd *cobra.Command, args []string) {
	mainLogger, _, _, dataLogger := createLoggers(os.Stderr)
	ctx := context.Background()

	mainLogger.Info("Starting AutoLingo setup...")

	sessions, cfg, err := openStore(ctx, config.Load(), dataLogger)
	if err != nil {
		fatal(mainLogger, "open store", err)
	}
	defer sessions.Close()

	apiKey := config.Load().GeminiAPIKey
	if apiKey == "" {
		err = huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Enter your Google Cloud (Gemini) API Key").
					Password(true).
					Value(&apiKey),
			),
		).Run()
		if err != nil {
			fatal(mainLogger, "Error during setup", err)
		}
		if apiKey != "" {
			if err := cfg.Set(ctx, config.KeyGeminiAPIKey, apiKey); err != nil {
				fatal(mainLogger, "Error saving Gemini API key", err)
			}
		}
	}

	speakers := cfg.Speakers(ctx)
	if err := ui.SetupForm(&speakers).Run(); err != nil {
		fatal(mainLogger, "Error during setup", err)
	}
	if err := cfg.SaveSpeakers(ctx, speakers); err != nil {
		fatal(mainLogger, "Error saving speakers", err)
	}

	mainLogger.Info("Setup completed successfully!",
		"agent", speakers[0].Language, "customer", speakers[1].Language)
}
