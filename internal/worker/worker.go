// Package worker provides a NATS worker that synthesizes announce jobs and
// stores the resulting audio in an object bucket.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/book-expert/logger"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/mdakk072/KTTS72/internal/audio"
	"github.com/mdakk072/KTTS72/internal/core"
	"github.com/mdakk072/KTTS72/internal/validate"
)

const handleMessageTimeout = 5 * time.Minute

// AnnounceJob is the inbound message: one text to synthesize with optional
// overrides of the worker's defaults.
type AnnounceJob struct {
	JobID      string  `json:"job_id"`
	Text       string  `json:"text"`
	Voice      string  `json:"voice,omitempty"`
	Lang       string  `json:"lang,omitempty"`
	Speed      float64 `json:"speed,omitempty"`
	SampleRate int     `json:"sample_rate,omitempty"`
}

// AnnounceResult is the reply: where the audio landed, or why it did not.
type AnnounceResult struct {
	JobID      string `json:"job_id"`
	AudioKey   string `json:"audio_key,omitempty"`
	SampleRate int    `json:"sample_rate,omitempty"`
	DurationMs int64  `json:"duration_ms,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Defaults holds the synthesis parameters applied when a job leaves a field
// unset.
type Defaults struct {
	Voice      string
	Lang       string
	Speed      float64
	SampleRate int
	Device     string
}

// NatsWorker listens for announce jobs on a NATS subject and processes them.
type NatsWorker struct {
	natsConnection *nats.Conn
	subject        string
	store          core.ObjectStore
	announcer      core.Announcer
	validator      *validate.Validator
	defaults       Defaults
	log            *logger.Logger
}

// NewNatsWorker creates a worker. The validator is shared with the CLI so
// jobs obey the same bounds as local requests.
func NewNatsWorker(
	natsConnection *nats.Conn,
	subject string,
	store core.ObjectStore,
	announcer core.Announcer,
	validator *validate.Validator,
	defaults Defaults,
	log *logger.Logger,
) *NatsWorker {
	return &NatsWorker{
		natsConnection: natsConnection,
		subject:        subject,
		store:          store,
		announcer:      announcer,
		validator:      validator,
		defaults:       defaults,
		log:            log,
	}
}

// Run subscribes and blocks until the context is canceled, then drains the
// subscription so in-flight jobs finish.
func (w *NatsWorker) Run(ctx context.Context) error {
	sub, subErr := w.natsConnection.Subscribe(w.subject, w.handleMessage)
	if subErr != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", w.subject, subErr)
	}

	<-ctx.Done()

	drainErr := sub.Drain()
	if drainErr != nil {
		return fmt.Errorf("failed to drain subscription: %w", drainErr)
	}

	return nil
}

func (w *NatsWorker) handleMessage(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), handleMessageTimeout)
	defer cancel()

	var job AnnounceJob

	unmarshalErr := json.Unmarshal(msg.Data, &job)
	if unmarshalErr != nil {
		w.log.Error("Failed to unmarshal announce job: %v", unmarshalErr)

		return
	}

	result := w.processJob(ctx, job)
	if result.Error != "" {
		w.log.Error("Job %s failed: %s", job.JobID, result.Error)
	} else {
		w.log.Info("Job %s stored as %s", job.JobID, result.AudioKey)
	}

	replyErr := w.publishResult(msg, result)
	if replyErr != nil {
		w.log.Error("Failed to publish result for job %s: %v", job.JobID, replyErr)
	}
}

// processJob validates, synthesizes and uploads one job. All failures are
// reported through the result rather than dropped.
func (w *NatsWorker) processJob(ctx context.Context, job AnnounceJob) AnnounceResult {
	settings, validateErr := w.validator.Validate(w.rawSettings(job))
	if validateErr != nil {
		return AnnounceResult{
			JobID:      job.JobID,
			AudioKey:   "",
			SampleRate: 0,
			DurationMs: 0,
			Error:      validateErr.Error(),
		}
	}

	buffer, synthErr := w.announcer.Synthesize(ctx, settings)
	if synthErr != nil {
		return AnnounceResult{
			JobID:      job.JobID,
			AudioKey:   "",
			SampleRate: 0,
			DurationMs: 0,
			Error:      synthErr.Error(),
		}
	}

	wavData, encodeErr := buffer.EncodeWAVBytes()
	if encodeErr != nil {
		return AnnounceResult{
			JobID:      job.JobID,
			AudioKey:   "",
			SampleRate: 0,
			DurationMs: 0,
			Error:      encodeErr.Error(),
		}
	}

	audioKey := uuid.NewString() + ".wav"

	uploadErr := w.store.Upload(ctx, audioKey, core.AudioObject{
		Data:        wavData,
		ContentType: "audio/wav",
		SampleRate:  buffer.SampleRate,
		DurationMs:  buffer.Duration().Milliseconds(),
	})
	if uploadErr != nil {
		return AnnounceResult{
			JobID:      job.JobID,
			AudioKey:   "",
			SampleRate: 0,
			DurationMs: 0,
			Error:      uploadErr.Error(),
		}
	}

	return AnnounceResult{
		JobID:      job.JobID,
		AudioKey:   audioKey,
		SampleRate: buffer.SampleRate,
		DurationMs: buffer.Duration().Milliseconds(),
		Error:      "",
	}
}

// rawSettings merges job overrides over the worker defaults. The output path
// stays empty: workers return buffers, the bucket is the destination.
func (w *NatsWorker) rawSettings(job AnnounceJob) validate.Raw {
	raw := validate.Raw{
		Voice:      w.defaults.Voice,
		Lang:       w.defaults.Lang,
		Speed:      w.defaults.Speed,
		SampleRate: w.defaults.SampleRate,
		Device:     w.defaults.Device,
		Text:       job.Text,
		OutputPath: "",
		Format:     string(audio.FormatWAV),
	}

	if job.Voice != "" {
		raw.Voice = job.Voice
	}

	if job.Lang != "" {
		raw.Lang = job.Lang
	}

	if job.Speed != 0 {
		raw.Speed = job.Speed
	}

	if job.SampleRate != 0 {
		raw.SampleRate = job.SampleRate
	}

	return raw
}

func (w *NatsWorker) publishResult(msg *nats.Msg, result AnnounceResult) error {
	replyData, marshalErr := json.Marshal(result)
	if marshalErr != nil {
		return fmt.Errorf("failed to marshal result: %w", marshalErr)
	}

	respondErr := msg.Respond(replyData)
	if respondErr != nil {
		return fmt.Errorf("failed to respond: %w", respondErr)
	}

	return nil
}
