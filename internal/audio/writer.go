package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/book-expert/logger"

	"github.com/mdakk072/KTTS72/internal/ttsutil"
)

// ErrEmptyBuffer is returned when a write is attempted with zero samples.
var ErrEmptyBuffer = errors.New("sample buffer is empty")

// Writer is the format-dispatching output stage. WAV buffers are written
// natively; MP3 goes through the external encoder with a temporary WAV
// intermediate. Output files appear atomically: the requested path either
// holds the complete file or nothing.
type Writer struct {
	encoder *FFmpegEncoder
	log     *logger.Logger
}

// NewWriter creates a Writer. The encoder is only exercised for compressed
// formats.
func NewWriter(encoder *FFmpegEncoder, log *logger.Logger) *Writer {
	return &Writer{encoder: encoder, log: log}
}

// Write serializes the buffer to path in the given format.
func (w *Writer) Write(ctx context.Context, buf *Buffer, path string, format Format) error {
	if buf.Empty() {
		return ErrEmptyBuffer
	}

	dirErr := ttsutil.EnsureDir(filepath.Dir(path))
	if dirErr != nil {
		return dirErr
	}

	switch format {
	case FormatWAV:
		return w.writeWAV(buf, path)
	case FormatMP3:
		return w.writeMP3(ctx, buf, path)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// writeWAV writes the buffer into a temporary file next to the destination
// and renames it into place on success.
func (w *Writer) writeWAV(buf *Buffer, path string) error {
	tmp, tmpErr := os.CreateTemp(filepath.Dir(path), ".ktts-*.wav")
	if tmpErr != nil {
		return fmt.Errorf("failed to create staging file: %w", tmpErr)
	}

	encodeErr := buf.EncodeWAV(tmp)
	closeErr := tmp.Close()

	if encodeErr != nil {
		w.discard(tmp.Name())

		return encodeErr
	}

	if closeErr != nil {
		w.discard(tmp.Name())

		return fmt.Errorf("failed to close staging file: %w", closeErr)
	}

	renameErr := os.Rename(tmp.Name(), path)
	if renameErr != nil {
		w.discard(tmp.Name())

		return fmt.Errorf("failed to move output into place: %w", renameErr)
	}

	w.log.Info("Wrote %s (%s, %d Hz)", path, ttsutil.FormatDuration(buf.Duration()), buf.SampleRate)

	return nil
}

// writeMP3 serializes the buffer to a temporary WAV intermediate, runs the
// external encoder, and renames the result into place. The intermediate and
// any partial output are removed on every exit path.
func (w *Writer) writeMP3(ctx context.Context, buf *Buffer, path string) error {
	availErr := w.encoder.Available()
	if availErr != nil {
		return availErr
	}

	intermediate, tmpErr := os.CreateTemp("", "ktts-*.wav")
	if tmpErr != nil {
		return fmt.Errorf("failed to create wav intermediate: %w", tmpErr)
	}

	defer w.discard(intermediate.Name())

	encodeErr := buf.EncodeWAV(intermediate)
	closeErr := intermediate.Close()

	if encodeErr != nil {
		return encodeErr
	}

	if closeErr != nil {
		return fmt.Errorf("failed to close wav intermediate: %w", closeErr)
	}

	staged, stagedErr := os.CreateTemp(filepath.Dir(path), ".ktts-*.mp3")
	if stagedErr != nil {
		return fmt.Errorf("failed to create staging file: %w", stagedErr)
	}

	stagedCloseErr := staged.Close()
	if stagedCloseErr != nil {
		w.discard(staged.Name())

		return fmt.Errorf("failed to close staging file: %w", stagedCloseErr)
	}

	runErr := w.encoder.Encode(ctx, intermediate.Name(), staged.Name(), buf.SampleRate, buf.Channels)
	if runErr != nil {
		w.discard(staged.Name())

		return runErr
	}

	renameErr := os.Rename(staged.Name(), path)
	if renameErr != nil {
		w.discard(staged.Name())

		return fmt.Errorf("failed to move output into place: %w", renameErr)
	}

	w.log.Info("Wrote %s (%s, %d Hz)", path, ttsutil.FormatDuration(buf.Duration()), buf.SampleRate)

	return nil
}

func (w *Writer) discard(path string) {
	removeErr := os.Remove(path)
	if removeErr != nil && !os.IsNotExist(removeErr) {
		w.log.Warn("Failed to remove temp file %q: %v", path, removeErr)
	}
}
