package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"node.town/autolingo/broadcast"
	"node.town/autolingo/config"
	"node.town/autolingo/model"
)

var (
	captionStyle   = lipgloss.NewStyle().Bold(true)
	committedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

func runCaptions(cmd *cobra.Command, args []string) {
	mainLogger, _, wireLogger, _ := createLoggers(os.Stderr)
	app := config.Load()

	if app.RedisAddr == "" {
		fatal(mainLogger, "missing REDIS_ADDR or --redis-addr=", nil)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := broadcast.Subscribe(ctx, app.RedisAddr, app.RedisChannel, wireLogger, func(msg broadcast.Message) {
		fmt.Print(captionLine(msg))
	})
	if err != nil {
		fatal(mainLogger, "follow captions", err)
	}
}

// captionLine renders one broadcast message for a plain terminal. Live
// captions overwrite the current line, committed translations scroll.
func captionLine(msg broadcast.Message) string {
	switch msg.Kind {
	case broadcast.KindCaption:
		if msg.Target == "" {
			return ""
		}
		return "\r\033[K" + captionStyle.Render(msg.Target)
	case broadcast.KindCommitted:
		var line string
		for _, e := range msg.Entries {
			if e.Origin == model.Target {
				line += "\r\033[K" + committedStyle.Render(e.Text) + "\n"
			}
		}
		return line
	case broadcast.KindState:
		return fmt.Sprintf("\r\033[K[%s]\n", msg.State)
	}
	return ""
}
