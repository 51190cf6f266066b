package announce

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/book-expert/logger"

	"github.com/mdakk072/KTTS72/internal/audio"
	"github.com/mdakk072/KTTS72/internal/engine"
	"github.com/mdakk072/KTTS72/internal/models"
	"github.com/mdakk072/KTTS72/internal/ttsutil"
	"github.com/mdakk072/KTTS72/internal/validate"
)

// ErrNoSegments indicates text that reduced to nothing after normalization
// and segmentation.
var ErrNoSegments = errors.New("no synthesizable segments")

// ModelResolver maps a (language, voice) pair to on-disk model assets.
type ModelResolver interface {
	Resolve(ctx context.Context, lang, voiceID string) (models.ResolvedModel, error)
}

// EngineFactory yields the process-wide synthesizer.
type EngineFactory interface {
	Get(ctx context.Context, model models.ResolvedModel, devicePref string) (
		engine.Synthesizer, error)
}

// FileWriter persists a sample buffer as an audio file.
type FileWriter interface {
	Write(ctx context.Context, buf *audio.Buffer, path string, format audio.Format) error
}

// TextNormalizer rewrites raw text for synthesis. A nil normalizer passes
// text through untouched.
type TextNormalizer interface {
	Normalize(text string) string
}

// Announcer is the top-level synthesis pipeline. It is safe for concurrent
// use; per-request state lives on the stack.
type Announcer struct {
	resolver   ModelResolver
	factory    EngineFactory
	writer     FileWriter
	normalizer TextNormalizer
	log        *logger.Logger
	maxSegment int
}

// New creates an Announcer. maxSegmentRunes of zero selects the default
// segment bound.
func New(
	resolver ModelResolver,
	factory EngineFactory,
	writer FileWriter,
	normalizer TextNormalizer,
	maxSegmentRunes int,
	log *logger.Logger,
) *Announcer {
	if maxSegmentRunes <= 0 {
		maxSegmentRunes = DefaultMaxSegmentRunes
	}

	return &Announcer{
		resolver:   resolver,
		factory:    factory,
		writer:     writer,
		normalizer: normalizer,
		log:        log,
		maxSegment: maxSegmentRunes,
	}
}

// Synthesize runs the full pipeline for validated settings and returns the
// concatenated audio in memory.
func (a *Announcer) Synthesize(
	ctx context.Context,
	settings validate.Settings,
) (*audio.Buffer, error) {
	started := time.Now()

	model, resolveErr := a.resolver.Resolve(ctx, settings.Lang, settings.Voice)
	if resolveErr != nil {
		return nil, fmt.Errorf("resolve models: %w", resolveErr)
	}

	synth, engineErr := a.factory.Get(ctx, model, settings.Device)
	if engineErr != nil {
		return nil, fmt.Errorf("obtain engine: %w", engineErr)
	}

	input := settings.Text
	if a.normalizer != nil {
		input = a.normalizer.Normalize(input)
	}

	segments := SplitSegments(input, a.maxSegment)
	if len(segments) == 0 {
		return nil, ErrNoSegments
	}

	buffers := make([]*audio.Buffer, 0, len(segments))

	for i, segment := range segments {
		buffer, synthErr := synth.Synthesize(ctx, engine.Params{
			Text:       segment,
			Voice:      settings.Voice,
			VoicePath:  model.VoicePath,
			Speed:      settings.Speed,
			SampleRate: settings.SampleRate,
		})
		if synthErr != nil {
			return nil, fmt.Errorf("segment %d/%d: %w",
				i+1, len(segments), synthErr)
		}

		buffers = append(buffers, buffer)
	}

	combined, concatErr := audio.Concat(buffers...)
	if concatErr != nil {
		return nil, fmt.Errorf("concatenate segments: %w", concatErr)
	}

	a.log.Info("Synthesized %d segments, %s of audio in %s",
		len(segments),
		ttsutil.FormatDuration(combined.Duration()),
		ttsutil.FormatDuration(time.Since(started)))

	return combined, nil
}

// SynthesizeToFile runs the pipeline and persists the result at the
// settings' output path and format.
func (a *Announcer) SynthesizeToFile(
	ctx context.Context,
	settings validate.Settings,
) error {
	combined, synthErr := a.Synthesize(ctx, settings)
	if synthErr != nil {
		return synthErr
	}

	writeErr := a.writer.Write(ctx, combined, settings.OutputPath, settings.Format)
	if writeErr != nil {
		return fmt.Errorf("write output: %w", writeErr)
	}

	return nil
}
