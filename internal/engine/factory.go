package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/book-expert/logger"

	"github.com/mdakk072/KTTS72/internal/models"
)

// Engine modes.
const (
	ModeExec = "exec"
	ModeHTTP = "http"
)

const defaultEngineTimeout = 120 * time.Second

// Config selects and parameterizes the engine implementation.
type Config struct {
	// Mode is "exec" for a managed worker subprocess or "http" for a
	// standalone inference service.
	Mode string

	// Command launches the exec-mode worker, parsed with shell word rules.
	Command string

	// ServiceURL is the http-mode service base URL.
	ServiceURL string

	// EspeakDataDir, when set, is exported to the exec-mode worker.
	EspeakDataDir string

	// TimeoutSeconds bounds http-mode synthesis requests.
	TimeoutSeconds int
}

// Builder constructs a Synthesizer for a resolved model on a concrete
// device. Injectable so tests can observe construction without spawning
// processes.
type Builder func(cfg Config, model models.ResolvedModel, device string,
	log *logger.Logger) (Synthesizer, error)

// Factory guarantees at most one engine construction per process. The first
// Get builds the engine; every later Get shares the same outcome, including
// a failed one, since a failed initialization is terminal.
type Factory struct {
	cfg     Config
	builder Builder
	log     *logger.Logger

	once  sync.Once
	synth Synthesizer
	err   error
}

// NewFactory creates a factory using the default builder for the configured
// mode.
func NewFactory(cfg Config, log *logger.Logger) *Factory {
	return NewFactoryWithBuilder(cfg, defaultBuilder, log)
}

// NewFactoryWithBuilder creates a factory with a custom builder. Primarily
// for tests.
func NewFactoryWithBuilder(cfg Config, builder Builder, log *logger.Logger) *Factory {
	return &Factory{
		cfg:     cfg,
		builder: builder,
		log:     log,
		once:    sync.Once{},
		synth:   nil,
		err:     nil,
	}
}

// Get returns the process-wide engine, constructing it on first use. The
// device preference is resolved to a concrete device at construction time,
// so later calls with a different preference still share the same engine.
func (f *Factory) Get(
	_ context.Context,
	model models.ResolvedModel,
	devicePref string,
) (Synthesizer, error) {
	f.once.Do(func() {
		device := ResolveDevice(devicePref)

		f.log.Info("Constructing %s engine on device %s", f.cfg.Mode, device)

		f.synth, f.err = f.builder(f.cfg, model, device, f.log)
		if f.err != nil {
			f.log.Error("Engine construction failed: %v", f.err)
		}
	})

	return f.synth, f.err
}

// Close releases the engine if one was constructed.
func (f *Factory) Close() error {
	if f.synth == nil {
		return nil
	}

	closeErr := f.synth.Close()
	if closeErr != nil {
		return fmt.Errorf("engine close: %w", closeErr)
	}

	return nil
}

func defaultBuilder(
	cfg Config,
	model models.ResolvedModel,
	device string,
	log *logger.Logger,
) (Synthesizer, error) {
	switch cfg.Mode {
	case ModeHTTP:
		timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
		if timeout <= 0 {
			timeout = defaultEngineTimeout
		}

		eng := NewHTTPEngine(cfg.ServiceURL, timeout)

		// A dead service must fail at initialization, not on the first
		// segment; the failed outcome is cached like any other.
		ctx, cancel := context.WithTimeout(context.Background(), HealthCheckTimeout)
		defer cancel()

		healthErr := eng.HealthCheck(ctx)
		if healthErr != nil {
			return nil, healthErr
		}

		return eng, nil
	case ModeExec, "":
		return NewExecEngine(cfg.Command, model, device, cfg.EspeakDataDir, log)
	default:
		return nil, fmt.Errorf("%w: unknown engine mode %q", ErrInitFailed, cfg.Mode)
	}
}
