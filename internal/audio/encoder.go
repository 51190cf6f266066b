package audio

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"

	"github.com/book-expert/logger"
)

// Encoder subprocess defaults.
const (
	defaultEncoderBinary = "ffmpeg"
	defaultBitrate       = "192k"

	// vbrQuality is the -q:a value passed alongside the bitrate, matching
	// a good-quality VBR encode.
	vbrQuality = "2"
)

// Static errors of the encoding stage.
var (
	// ErrEncoderNotAvailable indicates the external encoder binary could
	// not be located. There is deliberately no silent WAV fallback.
	ErrEncoderNotAvailable = errors.New("external audio encoder not available")

	// ErrEncodingFailed indicates the encoder subprocess ran but exited
	// with a nonzero status.
	ErrEncodingFailed = errors.New("external audio encoding failed")
)

// FFmpegEncoder compresses PCM/WAV intermediates by invoking ffmpeg as a
// subprocess. The subprocess is scoped to one Encode call and always reaped.
type FFmpegEncoder struct {
	binary  string
	bitrate string
	log     *logger.Logger
}

// NewFFmpegEncoder creates an encoder around the given binary. Empty
// arguments select "ffmpeg" from PATH and a 192k bitrate.
func NewFFmpegEncoder(binary, bitrate string, log *logger.Logger) *FFmpegEncoder {
	if binary == "" {
		binary = defaultEncoderBinary
	}

	if bitrate == "" {
		bitrate = defaultBitrate
	}

	return &FFmpegEncoder{binary: binary, bitrate: bitrate, log: log}
}

// Available reports whether the encoder binary can be located, failing fast
// before any synthesis work is spent.
func (e *FFmpegEncoder) Available() error {
	_, lookErr := exec.LookPath(e.binary)
	if lookErr != nil {
		return fmt.Errorf("%w: %q: %v", ErrEncoderNotAvailable, e.binary, lookErr)
	}

	return nil
}

// Encode converts a WAV intermediate into a compressed file at outPath. The
// exit status of the subprocess is checked; nonzero exit is a hard failure.
func (e *FFmpegEncoder) Encode(
	ctx context.Context,
	wavPath, outPath string,
	sampleRate, channels int,
) error {
	availErr := e.Available()
	if availErr != nil {
		return availErr
	}

	args := []string{
		"-y",
		"-i", wavPath,
		"-ar", strconv.Itoa(sampleRate),
		"-ac", strconv.Itoa(channels),
		"-b:a", e.bitrate,
		"-q:a", vbrQuality,
		outPath,
	}

	// #nosec G204 -- the binary comes from validated configuration and the
	// paths are produced by this package, not by the caller.
	cmd := exec.CommandContext(ctx, e.binary, args...)

	output, runErr := cmd.CombinedOutput()
	if runErr != nil {
		return fmt.Errorf("%w: %v - output: %s", ErrEncodingFailed, runErr, output)
	}

	e.log.Info("Encoded %s (%d Hz, %d ch, %s)", outPath, sampleRate, channels, e.bitrate)

	return nil
}
