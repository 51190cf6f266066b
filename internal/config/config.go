// Package config provides the TOML-backed configuration for the announce
// binaries.
package config

import (
	"fmt"
	"os"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"
	"github.com/pelletier/go-toml/v2"

	"github.com/mdakk072/KTTS72/internal/announce"
	"github.com/mdakk072/KTTS72/internal/engine"
	"github.com/mdakk072/KTTS72/internal/models"
	"github.com/mdakk072/KTTS72/internal/ttsutil"
	"github.com/mdakk072/KTTS72/internal/validate"
	"github.com/mdakk072/KTTS72/internal/voice"
)

// Defaults applied where the configuration file is silent.
const (
	defaultSampleRate     = 24000
	defaultSpeed          = 1.0
	defaultEngineTimeout  = 120
	defaultFFmpegBinary   = "ffmpeg"
	defaultFFmpegBitrate  = "192k"
	defaultAnnounceSubj   = "announce.jobs"
	defaultAudioBucket    = "announce-audio"
	defaultBaseLogsDir    = "logs"
	defaultDownloadWindow = 600
)

// AnnouncerConfig holds the synthesis defaults a request may override.
type AnnouncerConfig struct {
	Voice           string  `toml:"voice"`
	Lang            string  `toml:"lang"`
	Speed           float64 `toml:"speed"`
	SampleRate      int     `toml:"sample_rate"`
	Device          string  `toml:"device"`
	Format          string  `toml:"format"`
	NormalizeText   bool    `toml:"normalize_text"`
	MaxSegmentRunes int     `toml:"max_segment_runes"`
}

// ModelsConfig locates and provisions the model assets.
type ModelsConfig struct {
	RootDir                string `toml:"root_dir"`
	DownloadBaseURL        string `toml:"download_base_url"`
	DownloadTimeoutSeconds int    `toml:"download_timeout_seconds"`
	OfflineOnly            bool   `toml:"offline_only"`
}

// EngineConfig selects and parameterizes the inference engine.
type EngineConfig struct {
	Mode           string `toml:"mode"`
	Command        string `toml:"command"`
	ServiceURL     string `toml:"service_url"`
	EspeakDataDir  string `toml:"espeak_data_dir"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// EncoderConfig parameterizes the MP3 encoder.
type EncoderConfig struct {
	FFmpegPath string `toml:"ffmpeg_path"`
	Bitrate    string `toml:"bitrate"`
}

// NATSConfig holds the worker's messaging configuration.
type NATSConfig struct {
	URL             string `toml:"url"`
	AnnounceSubject string `toml:"announce_subject"`
	AudioBucket     string `toml:"audio_bucket"`
}

// PathsConfig holds file path configuration.
type PathsConfig struct {
	BaseLogsDir string `toml:"base_logs_dir"`
}

// Config is the root configuration structure.
type Config struct {
	Announcer AnnouncerConfig `toml:"announcer"`
	Models    ModelsConfig    `toml:"models"`
	Engine    EngineConfig    `toml:"engine"`
	Encoder   EncoderConfig   `toml:"encoder"`
	NATS      NATSConfig      `toml:"nats"`
	Paths     PathsConfig     `toml:"paths"`
}

// Load reads the configuration through the configurator discovery chain and
// fills in defaults for anything the file leaves unset.
func Load(log *logger.Logger) (*Config, error) {
	var cfg Config

	err := configurator.Load(&cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// LoadFile reads a specific configuration file, bypassing discovery. Used
// when the CLI is pointed at a file explicitly.
func LoadFile(path string) (*Config, error) {
	data, readErr := os.ReadFile(path)
	if readErr != nil {
		return nil, fmt.Errorf("failed to read configuration file: %w", readErr)
	}

	var cfg Config

	unmarshalErr := toml.Unmarshal(data, &cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to parse configuration file %s: %w",
			path, unmarshalErr)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// Default returns a fully-populated configuration without touching any file.
// The CLI falls back to this when no configuration is discoverable.
func Default() *Config {
	cfg := &Config{
		Announcer: AnnouncerConfig{},
		Models:    ModelsConfig{},
		Engine:    EngineConfig{},
		Encoder:   EncoderConfig{},
		NATS:      NATSConfig{},
		Paths:     PathsConfig{},
	}

	cfg.applyDefaults()

	return cfg
}

func (c *Config) applyDefaults() {
	if c.Announcer.Lang == "" {
		c.Announcer.Lang = voice.LangAmericanEnglish
	}

	if c.Announcer.Voice == "" {
		c.Announcer.Voice, _ = voice.DefaultVoice(c.Announcer.Lang)
	}

	if c.Announcer.Speed == 0 {
		c.Announcer.Speed = defaultSpeed
	}

	if c.Announcer.SampleRate == 0 {
		c.Announcer.SampleRate = defaultSampleRate
	}

	if c.Announcer.Device == "" {
		c.Announcer.Device = validate.DeviceAuto
	}

	if c.Announcer.MaxSegmentRunes == 0 {
		c.Announcer.MaxSegmentRunes = announce.DefaultMaxSegmentRunes
	}

	if c.Models.RootDir == "" {
		c.Models.RootDir = ttsutil.DefaultModelsRoot()
	}

	if c.Models.DownloadBaseURL == "" {
		c.Models.DownloadBaseURL = models.DefaultDownloadBaseURL
	}

	if c.Models.DownloadTimeoutSeconds == 0 {
		c.Models.DownloadTimeoutSeconds = defaultDownloadWindow
	}

	if c.Engine.Mode == "" {
		c.Engine.Mode = engine.ModeExec
	}

	if c.Engine.TimeoutSeconds == 0 {
		c.Engine.TimeoutSeconds = defaultEngineTimeout
	}

	if c.Encoder.FFmpegPath == "" {
		c.Encoder.FFmpegPath = defaultFFmpegBinary
	}

	if c.Encoder.Bitrate == "" {
		c.Encoder.Bitrate = defaultFFmpegBitrate
	}

	if c.NATS.AnnounceSubject == "" {
		c.NATS.AnnounceSubject = defaultAnnounceSubj
	}

	if c.NATS.AudioBucket == "" {
		c.NATS.AudioBucket = defaultAudioBucket
	}

	if c.Paths.BaseLogsDir == "" {
		c.Paths.BaseLogsDir = defaultBaseLogsDir
	}
}
