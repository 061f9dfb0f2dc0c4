// Package config reads process configuration from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

const (
	PlaybackLocal   = "local"
	PlaybackOverlay = "overlay"
)

type Twitch struct {
	Username      string   `env:"TWITCH_BOT_USERNAME"`
	Token         string   `env:"TWITCH_BOT_ACCESS_TOKEN"`
	Channels      []string `env:"TWITCH_BOT_CHANNELS" envSeparator:","`
	ClientID      string   `env:"TWITCH_CLIENT_ID"`
	APIToken      string   `env:"TWITCH_API_ACCESS_TOKEN"`
	BroadcasterID string   `env:"TWITCH_BROADCASTER_ID"`
}

// Enabled reports whether chat credentials are present.
func (t Twitch) Enabled() bool {
	return t.Username != "" && t.Token != "" && len(t.Channels) > 0
}

// FollowersEnabled reports whether Helix follower lookups can run.
func (t Twitch) FollowersEnabled() bool {
	return t.ClientID != "" && t.APIToken != ""
}

type Kick struct {
	Token             string `env:"KICK_BOT_ACCESS_TOKEN"`
	BroadcasterUserID int    `env:"KICK_BROADCASTER_USER_ID"`
	ChatroomID        int    `env:"KICK_CHATROOM_ID"`
}

func (k Kick) Enabled() bool {
	return k.Token != "" && k.BroadcasterUserID != 0 && k.ChatroomID != 0
}

type TTS struct {
	ElevenLabsKey    string `env:"ELEVENLABS_API_KEY"`
	GoogleKey        string `env:"GOOGLE_TTS_API_KEY"`
	SpeechifyKey     string `env:"SPEECHIFY_API_KEY"`
	TikTokEndpoint   string `env:"TIKTOK_TTS_ENDPOINT"`
	TikTokDisabled   bool   `env:"TIKTOK_TTS_DISABLED" envDefault:"false"`
	DefaultEngine    string `env:"TTS_DEFAULT_ENGINE"`
	DefaultVoice     string `env:"TTS_DEFAULT_VOICE"`
	PlaybackMode     string `env:"PLAYBACK_MODE" envDefault:"local"`
	SampleRate       int    `env:"PLAYBACK_SAMPLE_RATE" envDefault:"44100"`
	OverlayAckGraceS int    `env:"OVERLAY_ACK_GRACE_SECONDS" envDefault:"3"`
	QueueSize        int    `env:"TTS_QUEUE_SIZE" envDefault:"100"`
}

type Config struct {
	Twitch Twitch
	Kick   Kick
	TTS    TTS

	DBPath        string `env:"DB_PATH" envDefault:"data/bot.db"`
	WSAddr        string `env:"CHAT_WS_ADDR" envDefault:":8080"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	CommandPrefix string `env:"COMMAND_PREFIX" envDefault:"!"`
}

// Load reads .env (if present) and parses the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config: parse env: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	channels := c.Twitch.Channels[:0]
	for _, ch := range c.Twitch.Channels {
		ch = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ch)), "#")
		if ch != "" {
			channels = append(channels, ch)
		}
	}
	c.Twitch.Channels = channels
	c.TTS.PlaybackMode = strings.ToLower(strings.TrimSpace(c.TTS.PlaybackMode))
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
}

func (c *Config) Validate() error {
	var errs []error
	switch c.TTS.PlaybackMode {
	case PlaybackLocal, PlaybackOverlay:
	default:
		errs = append(errs, fmt.Errorf("PLAYBACK_MODE %q must be %s or %s", c.TTS.PlaybackMode, PlaybackLocal, PlaybackOverlay))
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}
	if c.TTS.SampleRate <= 0 {
		errs = append(errs, errors.New("PLAYBACK_SAMPLE_RATE must be positive"))
	}
	if c.TTS.QueueSize <= 0 {
		errs = append(errs, errors.New("TTS_QUEUE_SIZE must be positive"))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("DB_PATH is required"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// Level returns the parsed log level, info when unset.
func (c *Config) Level() log.Level {
	lvl, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}
