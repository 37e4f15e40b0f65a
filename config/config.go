package config

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/viper"

	"node.town/autolingo/model"
	"node.town/autolingo/store"
)

const (
	KeyTTSEnabled = "tts_enabled"
	KeyTTSVolume  = "tts_volume"
	KeyTextSize   = "text_size"
	KeySpeakers   = "speakers"

	KeyGeminiAPIKey = "gemini_api_key"
)

var persistedKeys = []string{KeyTTSEnabled, KeyTTSVolume, KeyTextSize}

// Config is durable key/value configuration mirrored into viper, so
// values saved from the UI become the defaults of the next run.
type Config struct {
	backend store.Backend
}

func New(backend store.Backend) *Config {
	return &Config{backend: backend}
}

func storageKey(key string) string {
	return "autolingo_config." + key
}

// Load copies every persisted value into viper. Flags and environment
// variables still win over them.
func (c *Config) Load(ctx context.Context) error {
	for _, key := range append(persistedKeys, KeyGeminiAPIKey) {
		value, err := c.backend.Get(ctx, storageKey(key))
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if value != nil {
			viper.SetDefault(key, string(value))
		}
	}
	return nil
}

func (c *Config) Get(ctx context.Context, key string) (string, error) {
	value, err := c.backend.Get(ctx, storageKey(key))
	if err != nil {
		return "", fmt.Errorf("failed to get config value: %w", err)
	}
	if value == nil {
		return "", fmt.Errorf("config key not found: %s", key)
	}
	return string(value), nil
}

func (c *Config) Set(ctx context.Context, key, value string) error {
	if err := c.backend.Put(ctx, storageKey(key), []byte(value)); err != nil {
		return fmt.Errorf("failed to set config value: %w", err)
	}
	viper.Set(key, value)
	return nil
}

// Settings reads the UI settings from viper, falling back to defaults for
// anything missing or unparsable.
func Settings() model.Settings {
	s := model.DefaultSettings()

	if v := viper.GetString(KeyTTSEnabled); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			s.TTSEnabled = b
		}
	}
	if v := viper.GetString(KeyTTSVolume); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			s.Volume = model.ClampUnit(f)
		}
	}
	switch size := model.TextSize(viper.GetString(KeyTextSize)); size {
	case model.TextNormal, model.TextLarge, model.TextHuge:
		s.TextSize = size
	}

	return s
}

func (c *Config) SaveSettings(ctx context.Context, s model.Settings) error {
	values := map[string]string{
		KeyTTSEnabled: strconv.FormatBool(s.TTSEnabled),
		KeyTTSVolume:  strconv.FormatFloat(model.ClampUnit(s.Volume), 'f', -1, 64),
		KeyTextSize:   string(s.TextSize),
	}
	for _, key := range persistedKeys {
		if err := c.Set(ctx, key, values[key]); err != nil {
			return err
		}
	}
	return nil
}

// Speakers returns the speakers chosen by the last setup, or the defaults.
func (c *Config) Speakers(ctx context.Context) [2]model.Speaker {
	value, err := c.Get(ctx, KeySpeakers)
	if err != nil {
		return model.DefaultSpeakers()
	}

	var speakers [2]model.Speaker
	if err := json.Unmarshal([]byte(value), &speakers); err != nil {
		return model.DefaultSpeakers()
	}
	if model.ValidateSpeakers(speakers) != nil {
		return model.DefaultSpeakers()
	}
	return speakers
}

func (c *Config) SaveSpeakers(ctx context.Context, speakers [2]model.Speaker) error {
	if err := model.ValidateSpeakers(speakers); err != nil {
		return err
	}
	data, err := json.Marshal(speakers)
	if err != nil {
		return fmt.Errorf("failed to encode speakers: %w", err)
	}
	return c.Set(ctx, KeySpeakers, string(data))
}
