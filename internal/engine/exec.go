package engine

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/book-expert/logger"
	"github.com/mattn/go-shellwords"

	"github.com/mdakk072/KTTS72/internal/audio"
	"github.com/mdakk072/KTTS72/internal/models"
)

// envEspeakData is exported to the worker process so the engine finds its
// bundled espeak data without ambient patching.
const envEspeakData = "KTTS_ESPEAK_DATA"

// maxResponseLine bounds one JSON response line from the worker; a response
// carries base64 PCM for a single bounded segment.
const maxResponseLine = 64 * 1024 * 1024

// execRequest is one synthesis request written to the worker's stdin as a
// single JSON line.
type execRequest struct {
	Text       string  `json:"text"`
	VoicePath  string  `json:"voice_path"`
	Speed      float64 `json:"speed"`
	SampleRate int     `json:"sample_rate"`
}

// execResponse is the worker's single JSON line answer.
type execResponse struct {
	PCMBase64  string `json:"pcm_base64"`
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
	Error      string `json:"error,omitempty"`
}

// ExecEngine drives a persistent inference worker subprocess speaking
// line-delimited JSON on stdin/stdout. One request is in flight at a time;
// the mutex serializes callers.
type ExecEngine struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Scanner
	log    *logger.Logger

	mu     sync.Mutex
	closed bool
}

// NewExecEngine starts the worker process for the resolved model on the
// given device. Construction is expensive (the worker loads the model before
// serving) and failures are terminal for the process.
func NewExecEngine(
	command string,
	model models.ResolvedModel,
	device, espeakDataDir string,
	log *logger.Logger,
) (*ExecEngine, error) {
	parser := shellwords.NewParser()

	args, parseErr := parser.Parse(command)
	if parseErr != nil {
		return nil, fmt.Errorf("%w: bad engine command: %w", ErrInitFailed, parseErr)
	}

	if len(args) == 0 {
		return nil, fmt.Errorf("%w: engine command is empty", ErrInitFailed)
	}

	args = append(args,
		"--model", model.WeightsPath,
		"--config", model.ConfigPath,
		"--device", device,
	)

	// #nosec G204 -- the command comes from validated configuration.
	cmd := exec.Command(args[0], args[1:]...)
	cmd.Env = os.Environ()
	cmd.Stderr = os.Stderr

	if espeakDataDir != "" {
		cmd.Env = append(cmd.Env, envEspeakData+"="+espeakDataDir)
	}

	stdin, stdinErr := cmd.StdinPipe()
	if stdinErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrInitFailed, stdinErr)
	}

	stdout, stdoutErr := cmd.StdoutPipe()
	if stdoutErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrInitFailed, stdoutErr)
	}

	startErr := cmd.Start()
	if startErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrInitFailed, startErr)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), maxResponseLine)

	log.Info("Started inference worker (pid %d, device %s)", cmd.Process.Pid, device)

	return &ExecEngine{
		cmd:    cmd,
		stdin:  stdin,
		stdout: scanner,
		log:    log,
		mu:     sync.Mutex{},
		closed: false,
	}, nil
}

// Synthesize sends one segment to the worker and decodes the PCM answer.
func (e *ExecEngine) Synthesize(ctx context.Context, params Params) (*audio.Buffer, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrEngineClosed
	}

	ctxErr := ctx.Err()
	if ctxErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrInference, ctxErr)
	}

	request := execRequest{
		Text:       params.Text,
		VoicePath:  params.VoicePath,
		Speed:      params.Speed,
		SampleRate: params.SampleRate,
	}

	payload, marshalErr := json.Marshal(request)
	if marshalErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrInference, marshalErr)
	}

	payload = append(payload, '\n')

	_, writeErr := e.stdin.Write(payload)
	if writeErr != nil {
		return nil, fmt.Errorf("%w: worker write: %w", ErrInference, writeErr)
	}

	if !e.stdout.Scan() {
		scanErr := e.stdout.Err()
		if scanErr == nil {
			scanErr = io.ErrUnexpectedEOF
		}

		return nil, fmt.Errorf("%w: worker read: %w", ErrInference, scanErr)
	}

	var response execResponse

	decodeErr := json.Unmarshal(e.stdout.Bytes(), &response)
	if decodeErr != nil {
		return nil, fmt.Errorf("%w: bad worker response: %w", ErrInference, decodeErr)
	}

	if response.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrInference, response.Error)
	}

	pcm, b64Err := base64.StdEncoding.DecodeString(response.PCMBase64)
	if b64Err != nil {
		return nil, fmt.Errorf("%w: bad pcm payload: %w", ErrInference, b64Err)
	}

	sampleRate := response.SampleRate
	if sampleRate == 0 {
		sampleRate = params.SampleRate
	}

	channels := response.Channels
	if channels == 0 {
		channels = 1
	}

	buffer, pcmErr := audio.FromPCM16(pcm, sampleRate, channels)
	if pcmErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrInference, pcmErr)
	}

	return buffer, nil
}

// Close shuts the worker down by closing its stdin and reaping the process.
func (e *ExecEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}

	e.closed = true

	closeErr := e.stdin.Close()

	waitErr := e.cmd.Wait()
	if waitErr != nil {
		return fmt.Errorf("inference worker exit: %w", waitErr)
	}

	if closeErr != nil {
		return fmt.Errorf("inference worker stdin close: %w", closeErr)
	}

	return nil
}
