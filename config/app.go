package config

import (
	"github.com/spf13/viper"

	"node.town/autolingo/live"
	"node.town/autolingo/pcm"
)

// App is the runtime configuration assembled from flags, environment and
// config.yaml.
type App struct {
	GeminiAPIKey string
	Endpoint     string
	Model        string
	SummaryModel string

	InputSampleRate  int
	OutputSampleRate int
	FrameSize        int

	FFmpegPath    string
	CaptureFormat string
	CaptureInput  string
	Headless      bool

	StoreDriver string
	StorePath   string
	DatabaseURL string

	RedisAddr    string
	RedisChannel string

	LogLevel string
	LogFile  string
}

func SetDefaults() {
	viper.SetDefault("endpoint", live.DefaultEndpoint)
	viper.SetDefault("model", live.DefaultModel)
	viper.SetDefault("summary_model", "gemini-1.5-flash")
	viper.SetDefault("input_sample_rate", pcm.InputSampleRate)
	viper.SetDefault("output_sample_rate", pcm.OutputSampleRate)
	viper.SetDefault("frame_size", pcm.FrameSize)
	viper.SetDefault("ffmpeg_path", "ffmpeg")
	viper.SetDefault("capture_format", "pulse")
	viper.SetDefault("capture_input", "default")
	viper.SetDefault("store_driver", "sqlite")
	viper.SetDefault("store_path", "autolingo.db")
	viper.SetDefault("redis_channel", "autolingo:captions")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_file", "autolingo.log")
}

func Load() App {
	apiKey := viper.GetString("gemini_api_key")
	if apiKey == "" {
		apiKey = viper.GetString("api_key")
	}

	return App{
		GeminiAPIKey:     apiKey,
		Endpoint:         viper.GetString("endpoint"),
		Model:            viper.GetString("model"),
		SummaryModel:     viper.GetString("summary_model"),
		InputSampleRate:  viper.GetInt("input_sample_rate"),
		OutputSampleRate: viper.GetInt("output_sample_rate"),
		FrameSize:        viper.GetInt("frame_size"),
		FFmpegPath:       viper.GetString("ffmpeg_path"),
		CaptureFormat:    viper.GetString("capture_format"),
		CaptureInput:     viper.GetString("capture_input"),
		Headless:         viper.GetBool("headless"),
		StoreDriver:      viper.GetString("store_driver"),
		StorePath:        viper.GetString("store_path"),
		DatabaseURL:      viper.GetString("database_url"),
		RedisAddr:        viper.GetString("redis_addr"),
		RedisChannel:     viper.GetString("redis_channel"),
		LogLevel:         viper.GetString("log_level"),
		LogFile:          viper.GetString("log_file"),
	}
}

// StoreDSN is the data source for the configured store driver.
func (a App) StoreDSN() string {
	if a.StoreDriver == "postgres" {
		return a.DatabaseURL
	}
	return a.StorePath
}
