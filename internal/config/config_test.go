// Package config_test tests configuration decoding and defaulting.
package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mdakk072/KTTS72/internal/config"
	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshalConfig(t *testing.T) {
	t.Parallel()

	tomlData := `
[announcer]
voice = "bf_emma"
lang = "b"
speed = 1.5
sample_rate = 48000
device = "cuda"
format = "mp3"
normalize_text = true
max_segment_runes = 280

[models]
root_dir = "/srv/kokoro/models"
offline_only = true

[engine]
mode = "http"
service_url = "http://localhost:8880"
timeout_seconds = 90

[encoder]
ffmpeg_path = "/usr/bin/ffmpeg"
bitrate = "256k"

[nats]
url = "nats://127.0.0.1:4222"
announce_subject = "announce.jobs"
audio_bucket = "announce-audio"

[paths]
base_logs_dir = "/var/log/ktts"
`

	var cfg config.Config

	err := toml.Unmarshal([]byte(tomlData), &cfg)
	require.NoError(t, err)

	assert.Equal(t, "bf_emma", cfg.Announcer.Voice)
	assert.Equal(t, "b", cfg.Announcer.Lang)
	assert.InEpsilon(t, 1.5, cfg.Announcer.Speed, 0.001)
	assert.Equal(t, 48000, cfg.Announcer.SampleRate)
	assert.Equal(t, "cuda", cfg.Announcer.Device)
	assert.Equal(t, "mp3", cfg.Announcer.Format)
	assert.True(t, cfg.Announcer.NormalizeText)
	assert.Equal(t, 280, cfg.Announcer.MaxSegmentRunes)
	assert.Equal(t, "/srv/kokoro/models", cfg.Models.RootDir)
	assert.True(t, cfg.Models.OfflineOnly)
	assert.Equal(t, "http", cfg.Engine.Mode)
	assert.Equal(t, "http://localhost:8880", cfg.Engine.ServiceURL)
	assert.Equal(t, 90, cfg.Engine.TimeoutSeconds)
	assert.Equal(t, "/usr/bin/ffmpeg", cfg.Encoder.FFmpegPath)
	assert.Equal(t, "256k", cfg.Encoder.Bitrate)
	assert.Equal(t, "nats://127.0.0.1:4222", cfg.NATS.URL)
	assert.Equal(t, "announce.jobs", cfg.NATS.AnnounceSubject)
	assert.Equal(t, "announce-audio", cfg.NATS.AudioBucket)
	assert.Equal(t, "/var/log/ktts", cfg.Paths.BaseLogsDir)
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := config.Default()

	assert.Equal(t, "af_heart", cfg.Announcer.Voice)
	assert.Equal(t, "a", cfg.Announcer.Lang)
	assert.InEpsilon(t, 1.0, cfg.Announcer.Speed, 0.001)
	assert.Equal(t, 24000, cfg.Announcer.SampleRate)
	assert.Equal(t, "auto", cfg.Announcer.Device)
	assert.Equal(t, 400, cfg.Announcer.MaxSegmentRunes)
	assert.NotEmpty(t, cfg.Models.RootDir)
	assert.Contains(t, cfg.Models.DownloadBaseURL, "huggingface.co")
	assert.Equal(t, "exec", cfg.Engine.Mode)
	assert.Equal(t, 120, cfg.Engine.TimeoutSeconds)
	assert.Equal(t, "ffmpeg", cfg.Encoder.FFmpegPath)
	assert.Equal(t, "192k", cfg.Encoder.Bitrate)
	assert.Equal(t, "announce.jobs", cfg.NATS.AnnounceSubject)
	assert.Equal(t, "announce-audio", cfg.NATS.AudioBucket)
	assert.Equal(t, "logs", cfg.Paths.BaseLogsDir)
}

func TestLoadFileDefaultsVoiceFromLanguage(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "ktts.toml")
	require.NoError(t, os.WriteFile(path, []byte("[announcer]\nlang = \"f\"\n"), 0o600))

	cfg, err := config.LoadFile(path)
	require.NoError(t, err)

	// The French catalog has a single voice, so it becomes the default.
	assert.Equal(t, "ff_siwis", cfg.Announcer.Voice)
	assert.Equal(t, "f", cfg.Announcer.Lang)
}

func TestLoadFileMissing(t *testing.T) {
	t.Parallel()

	_, err := config.LoadFile(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
}
