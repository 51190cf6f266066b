// Package engine owns the connection to the external neural TTS engine: the
// Synthesizer capability, its exec- and HTTP-backed implementations, and the
// factory that guarantees exactly one engine instance per process.
package engine

import (
	"context"
	"errors"
	"os"
	"runtime"

	"github.com/mdakk072/KTTS72/internal/audio"
	"github.com/mdakk072/KTTS72/internal/validate"
)

// Static errors of the engine layer.
var (
	// ErrInitFailed indicates the engine could not be constructed. The
	// failure is terminal for the process; the factory caches it.
	ErrInitFailed = errors.New("synthesizer initialization failed")

	// ErrInference indicates the engine failed while synthesizing one
	// segment.
	ErrInference = errors.New("inference failed")

	// ErrEngineClosed indicates a synthesis call after Close.
	ErrEngineClosed = errors.New("synthesizer is closed")
)

// Params describes one synthesis call for one text segment.
type Params struct {
	Text       string
	Voice      string
	VoicePath  string
	Speed      float64
	SampleRate int
}

// Synthesizer is the opaque capability around the external inference engine.
// Implementations are expensive to construct and must be treated as not safe
// for concurrent invocation unless documented otherwise: the exec engine
// serializes calls internally, the HTTP engine delegates concurrency to the
// remote service.
type Synthesizer interface {
	Synthesize(ctx context.Context, params Params) (*audio.Buffer, error)
	Close() error
}

// ResolveDevice maps the "auto" preference to the most capable device
// available at construction time: cuda, then mps, then cpu. Explicit
// preferences pass through untouched.
func ResolveDevice(pref string) string {
	if pref != validate.DeviceAuto && pref != "" {
		return pref
	}

	if cudaAvailable() {
		return validate.DeviceCUDA
	}

	if runtime.GOOS == "darwin" {
		return validate.DeviceMPS
	}

	return validate.DeviceCPU
}

func cudaAvailable() bool {
	info, statErr := os.Stat("/proc/driver/nvidia")

	return statErr == nil && info.IsDir()
}
