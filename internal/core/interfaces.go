// Package core defines the capability interfaces the worker binary wires
// its collaborators through.
package core

import (
	"context"

	"github.com/mdakk072/KTTS72/internal/audio"
	"github.com/mdakk072/KTTS72/internal/validate"
)

// AudioObject is one synthesized payload plus the metadata stored alongside
// it, so consumers can inspect an object without decoding the audio.
type AudioObject struct {
	Data        []byte
	ContentType string
	SampleRate  int
	DurationMs  int64
}

// ObjectStore is a key-value blob store for synthesized audio.
type ObjectStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
	Upload(ctx context.Context, key string, object AudioObject) error
}

// Announcer turns validated settings into a sample buffer.
type Announcer interface {
	Synthesize(ctx context.Context, settings validate.Settings) (*audio.Buffer, error)
}
