// Package audio provides the sample buffer model and the format-dispatching
// output stage of the synthesis pipeline. WAV output is written natively;
// compressed formats are delegated to an external encoder subprocess.
package audio

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Format is the closed set of supported output formats. Each member maps to
// exactly one writer strategy: WAV is encoded natively, MP3 through the
// external encoder.
type Format string

const (
	FormatWAV Format = "wav"
	FormatMP3 Format = "mp3"
)

// ErrUnknownFormat is returned for format names or extensions outside the
// closed set.
var ErrUnknownFormat = errors.New("unknown audio format")

// ParseFormat converts a user-supplied format name to a Format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case string(FormatWAV):
		return FormatWAV, nil
	case string(FormatMP3):
		return FormatMP3, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// FormatForPath infers the output format from a file extension.
func FormatForPath(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", fmt.Errorf("%w: %q has no extension", ErrUnknownFormat, path)
	}

	return ParseFormat(ext)
}
