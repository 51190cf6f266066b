// Command ktts-worker serves announce jobs from NATS, storing synthesized
// audio in a JetStream object bucket.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/book-expert/logger"
	"github.com/nats-io/nats.go"

	"github.com/mdakk072/KTTS72/internal/announce"
	"github.com/mdakk072/KTTS72/internal/config"
	"github.com/mdakk072/KTTS72/internal/engine"
	"github.com/mdakk072/KTTS72/internal/models"
	"github.com/mdakk072/KTTS72/internal/objectstore"
	"github.com/mdakk072/KTTS72/internal/text"
	"github.com/mdakk072/KTTS72/internal/validate"
	"github.com/mdakk072/KTTS72/internal/worker"
)

func main() {
	err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Worker exited with error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A temporary logger carries the bootstrap until the configured log
	// directory is known.
	bootstrapLog, bootErr := logger.New(os.TempDir(), "ktts-worker-bootstrap.log")
	if bootErr != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to create bootstrap logger: %v\n", bootErr)

		return bootErr
	}

	cfg, cfgErr := config.Load(bootstrapLog)
	if cfgErr != nil {
		bootstrapLog.Error("Failed to load configuration: %v", cfgErr)
		_ = bootstrapLog.Close()

		return fmt.Errorf("failed to load configuration: %w", cfgErr)
	}

	_ = bootstrapLog.Close()

	finalLog, logErr := logger.New(cfg.Paths.BaseLogsDir, "ktts-worker.log")
	if logErr != nil {
		return fmt.Errorf("failed to create logger: %w", logErr)
	}

	defer func() {
		closeErr := finalLog.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing logger: %v\n", closeErr)
		}
	}()

	return serve(cfg, finalLog)
}

// serve wires the pipeline and blocks until shutdown.
func serve(cfg *config.Config, log *logger.Logger) error {
	natsConnection, connErr := nats.Connect(cfg.NATS.URL)
	if connErr != nil {
		return fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATS.URL, connErr)
	}

	defer natsConnection.Close()

	jetstreamContext, jsErr := natsConnection.JetStream()
	if jsErr != nil {
		return fmt.Errorf("failed to get JetStream context: %w", jsErr)
	}

	store, storeErr := objectstore.New(jetstreamContext, cfg.NATS.AudioBucket)
	if storeErr != nil {
		return fmt.Errorf("failed to create object store: %w", storeErr)
	}

	announcer, factory := buildAnnouncer(cfg, log)
	defer func() {
		closeErr := factory.Close()
		if closeErr != nil {
			log.Error("Failed to close engine: %v", closeErr)
		}
	}()

	defaults := worker.Defaults{
		Voice:      cfg.Announcer.Voice,
		Lang:       cfg.Announcer.Lang,
		Speed:      cfg.Announcer.Speed,
		SampleRate: cfg.Announcer.SampleRate,
		Device:     cfg.Announcer.Device,
	}

	natsWorker := worker.NewNatsWorker(
		natsConnection,
		cfg.NATS.AnnounceSubject,
		store,
		announcer,
		validate.New(),
		defaults,
		log,
	)

	ctx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.System("Worker listening for jobs on subject: %s", cfg.NATS.AnnounceSubject)

	runErr := natsWorker.Run(ctx)
	if runErr != nil {
		return fmt.Errorf("worker stopped: %w", runErr)
	}

	return nil
}

// buildAnnouncer wires the synthesis pipeline from configuration. The worker
// returns buffers, so no file writer is attached.
func buildAnnouncer(
	cfg *config.Config,
	log *logger.Logger,
) (*announce.Announcer, *engine.Factory) {
	var fetcher models.Fetcher
	if !cfg.Models.OfflineOnly {
		fetcher = models.NewDownloader(
			cfg.Models.DownloadBaseURL,
			cfg.Models.RootDir,
			time.Duration(cfg.Models.DownloadTimeoutSeconds)*time.Second,
			log,
		)
	}

	resolver := models.NewResolver(cfg.Models.RootDir, fetcher, log)

	factory := engine.NewFactory(engine.Config{
		Mode:           cfg.Engine.Mode,
		Command:        cfg.Engine.Command,
		ServiceURL:     cfg.Engine.ServiceURL,
		EspeakDataDir:  cfg.Engine.EspeakDataDir,
		TimeoutSeconds: cfg.Engine.TimeoutSeconds,
	}, log)

	var normalizer announce.TextNormalizer
	if cfg.Announcer.NormalizeText {
		normalizer = text.NewNormalizer()
	}

	announcer := announce.New(
		resolver, factory, nil, normalizer,
		cfg.Announcer.MaxSegmentRunes, log)

	return announcer, factory
}
