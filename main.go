package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"node.town/autolingo/config"
)

var logger *log.Logger

func init() {
	cobra.OnInitialize(initConfig)

	liveCmd.Flags().Bool("yes", false, "Skip the speaker setup form and use the saved speakers")
	liveCmd.Flags().Bool("headless", false, "Do not open an audio output device")
	liveCmd.Flags().String("capture-format", "", "ffmpeg input format for the microphone")
	liveCmd.Flags().String("capture-input", "", "ffmpeg input device for the microphone")
	viper.BindPFlag("headless", liveCmd.Flags().Lookup("headless"))
	viper.BindPFlag("capture_format", liveCmd.Flags().Lookup("capture-format"))
	viper.BindPFlag("capture_input", liveCmd.Flags().Lookup("capture-input"))

	showCmd.Flags().Bool("plain", false, "Print the transcript instead of opening the pager")
	deleteCmd.Flags().Bool("yes", false, "Delete without asking")
	summarizeCmd.Flags().Bool("raw", false, "Stream the summary as plain text")

	rootCmd.AddCommand(liveCmd)
	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(summarizeCmd)
	rootCmd.AddCommand(captionsCmd)

	// Add persistent flags
	rootCmd.PersistentFlags().String("gemini-api-key", "", "Gemini API key")
	rootCmd.PersistentFlags().String("model", "", "Gemini Live model")
	rootCmd.PersistentFlags().String("store-driver", "", "Session store: sqlite or postgres")
	rootCmd.PersistentFlags().String("store-path", "", "SQLite database file")
	rootCmd.PersistentFlags().String("database-url", "", "Postgres connection string")
	rootCmd.PersistentFlags().String("redis-addr", "", "Redis address for caption broadcast")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-file", "", "Log file used while the live view is open")

	// Bind flags to viper
	viper.BindPFlag(
		"gemini_api_key",
		rootCmd.PersistentFlags().Lookup("gemini-api-key"),
	)
	viper.BindPFlag("model", rootCmd.PersistentFlags().Lookup("model"))
	viper.BindPFlag(
		"store_driver",
		rootCmd.PersistentFlags().Lookup("store-driver"),
	)
	viper.BindPFlag("store_path", rootCmd.PersistentFlags().Lookup("store-path"))
	viper.BindPFlag(
		"database_url",
		rootCmd.PersistentFlags().Lookup("database-url"),
	)
	viper.BindPFlag("redis_addr", rootCmd.PersistentFlags().Lookup("redis-addr"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_file", rootCmd.PersistentFlags().Lookup("log-file"))
}

func initConfig() {
	config.SetDefaults()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(filepath.Join(home, ".autolingo"))
	}
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Error reading config file: %s\n", err)
		}
	}

	logger = log.New(os.Stderr)
}

var rootCmd = &cobra.Command{
	Use:   "autolingo",
	Short: "AutoLingo interprets a two-person conversation live",
	Long: `AutoLingo listens to a salesperson and a customer who speak different
languages and speaks each side's words to the other in their own language,
with live captions and a saved transcript.`,
}

var liveCmd = &cobra.Command{
	Use:   "live",
	Short: "Start a live interpreting session",
	Run:   runLive,
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Choose the speakers and store the API key",
	Run:   runSetup,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List saved sessions",
	Run:   runHistory,
}

var showCmd = &cobra.Command{
	Use:   "show <sessionID>",
	Short: "Review a saved session's transcript",
	Args:  cobra.ExactArgs(1),
	Run:   runShow,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <sessionID>",
	Short: "Delete a saved session",
	Args:  cobra.ExactArgs(1),
	Run:   runDelete,
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize <sessionID>",
	Short: "Summarize a saved session using Gemini",
	Args:  cobra.ExactArgs(1),
	Run:   runSummarize,
}

var captionsCmd = &cobra.Command{
	Use:   "captions",
	Short: "Follow live captions from the Redis channel",
	Run:   runCaptions,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// fatal logs and also prints to stderr, since the log may be going to a
// file.
func fatal(l *log.Logger, msg string, err error) {
	if err != nil {
		l.Error(msg, "error", err)
		fmt.Fprintf(os.Stderr, "%s: %s\n", msg, err)
	} else {
		l.Error(msg)
		fmt.Fprintln(os.Stderr, msg)
	}
	os.Exit(1)
}

func parseLevel(s string) log.Level {
	level, err := log.ParseLevel(s)
	if err != nil {
		return log.InfoLevel
	}
	return level
}

// createLoggers sets up the root logger on w and returns one child per
// concern. Capture and playback log under "hear" and "talk" through the
// session logger.
func createLoggers(w io.Writer) (mainLogger, liveLogger, wireLogger, dataLogger *log.Logger) {
	logger = log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		ReportCaller:    true,
		Level:           parseLevel(viper.GetString("log_level")),
	})
	logger.SetCallerFormatter(
		func(file string, line int, funcName string) string {
			path, err := filepath.Rel(".", file)
			if err != nil {
				path = file
			}
			return fmt.Sprintf("%s:%d", path, line)
		},
	)

	styles := log.DefaultStyles()
	styles.Prefix = styles.Prefix.
		Bold(false).Transform(func(s string) string {
		return strings.TrimSuffix(s, ":")
	})
	styles.Levels[log.InfoLevel] = styles.Levels[log.InfoLevel].
		MaxWidth(6).
		MarginRight(1).
		Bold(false)
	styles.Levels[log.ErrorLevel] = styles.Levels[log.ErrorLevel].
		MaxWidth(6).
		MarginRight(1).
		Bold(false)
	styles.Message = styles.Message.Bold(true).Width(24)
	styles.Key = styles.Key.MarginLeft(1).
		Bold(false).
		Foreground(lipgloss.Color("#ff8800"))

	logger.SetStyles(styles)
	log.SetDefault(logger)

	mainLogger = logger.WithPrefix("main")
	liveLogger = logger.WithPrefix("live")
	wireLogger = logger.WithPrefix("wire")
	dataLogger = logger.WithPrefix("data")

	return
}
