package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"node.town/autolingo/config"
	"node.town/autolingo/model"
	"node.town/autolingo/summary"
	"node.town/autolingo/ui"
)

func runHistory(cmd *cobra.Command, args []string) {
	mainLogger, _, _, dataLogger := createLoggers(os.Stderr)
	ctx := context.Background()

	sessions, _, err := openStore(ctx, config.Load(), dataLogger)
	if err != nil {
		fatal(mainLogger, "open store", err)
	}
	defer sessions.Close()

	list := sessions.List(ctx)
	if len(list) == 0 {
		fmt.Println("No saved sessions.")
		return
	}

	ui.RenderHistory(os.Stdout, list, time.Now())
}

func runShow(cmd *cobra.Command, args []string) {
	mainLogger, _, _, dataLogger := createLoggers(os.Stderr)
	plain, _ := cmd.Flags().GetBool("plain")

	s := loadSession(mainLogger, dataLogger, args[0])

	if plain {
		fmt.Print(ui.ReviewText(s))
		return
	}

	if _, err := tea.NewProgram(ui.NewPager(s), tea.WithAltScreen()).Run(); err != nil {
		fatal(mainLogger, "show session", err)
	}
}

func runDelete(cmd *cobra.Command, args []string) {
	mainLogger, _, _, dataLogger := createLoggers(os.Stderr)
	confirmed, _ := cmd.Flags().GetBool("yes")
	ctx := context.Background()

	sessions, _, err := openStore(ctx, config.Load(), dataLogger)
	if err != nil {
		fatal(mainLogger, "open store", err)
	}
	defer sessions.Close()

	id := args[0]
	if _, ok := sessions.Get(ctx, id); !ok {
		fatal(mainLogger, fmt.Sprintf("no session %s", id), nil)
	}

	if !confirmed {
		if err := ui.ConfirmDelete(id, &confirmed).Run(); err != nil {
			fatal(mainLogger, "confirm delete", err)
		}
	}
	if !confirmed {
		return
	}

	if sessions.Delete(ctx, id) {
		fmt.Printf("Deleted session %s.\n", id)
	}
}

func runSummarize(cmd *cobra.Command, args []string) {
	mainLogger, _, wireLogger, dataLogger := createLoggers(os.Stderr)
	raw, _ := cmd.Flags().GetBool("raw")
	ctx := context.Background()

	s := loadSession(mainLogger, dataLogger, args[0])

	app := config.Load()
	if app.GeminiAPIKey == "" {
		fatal(mainLogger, "missing GEMINI_API_KEY or --gemini-api-key=", nil)
	}

	summarizer, err := summary.New(ctx, app.GeminiAPIKey, app.SummaryModel)
	if err != nil {
		fatal(mainLogger, "create summarizer", err)
	}
	defer summarizer.Close()

	wireLogger.Debug("summarizing", "session", s.ID, "lines", len(s.Transcript))

	var out io.Writer
	if raw {
		out = os.Stdout
	}

	text, err := summarizer.Summarize(ctx, s, out)
	if err != nil {
		fatal(mainLogger, "summarize session", err)
	}
	if raw {
		fmt.Println()
		return
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(72),
	)
	if err != nil {
		fatal(mainLogger, "failed to create renderer", err)
	}

	rendered, err := renderer.Render(text)
	if err != nil {
		mainLogger.Error("failed to render summary", "error", err)
		fmt.Println(text)
		return
	}
	fmt.Print(rendered)
}

func loadSession(mainLogger, dataLogger *log.Logger, id string) model.SavedSession {
	ctx := context.Background()

	sessions, _, err := openStore(ctx, config.Load(), dataLogger)
	if err != nil {
		fatal(mainLogger, "open store", err)
	}
	defer sessions.Close()

	s, ok := sessions.Get(ctx, id)
	if !ok {
		fatal(mainLogger, fmt.Sprintf("no session %s", id), nil)
	}
	return s
}
