package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mdakk072/KTTS72/internal/audio"
)

// API endpoints of the standalone inference service.
const (
	apiSynthesize = "/v1/synthesize"
	apiHealth     = "/health"
)

// HTTP headers.
const (
	headerContentType = "Content-Type"
	headerAccept      = "Accept"
	contentTypeJSON   = "application/json"
	contentTypeWAV    = "audio/wav"
)

// HealthCheckTimeout bounds the pre-flight health probe.
const HealthCheckTimeout = 10 * time.Second

// httpRequest is the JSON payload sent to the inference service for one
// segment.
type httpRequest struct {
	Text       string  `json:"text"`
	Voice      string  `json:"voice"`
	Speed      float64 `json:"speed"`
	SampleRate int     `json:"sample_rate"`
}

// httpErrorResponse is the structured error body the service returns on
// non-OK status.
type httpErrorResponse struct {
	Detail    string `json:"detail"`
	ErrorCode string `json:"error_code,omitempty"`
}

// HTTPEngine synthesizes through a standalone inference HTTP service that
// already holds the model in memory. Responses are WAV payloads decoded into
// sample buffers.
type HTTPEngine struct {
	httpClient *http.Client
	baseURL    string
}

// NewHTTPEngine creates an engine against the service at baseURL (protocol
// and port included, e.g. "http://localhost:8880"). The timeout applies to
// every synthesis request.
func NewHTTPEngine(baseURL string, timeout time.Duration) *HTTPEngine {
	return &HTTPEngine{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// HealthCheck verifies the service is up before a workload starts, so a dead
// service fails fast instead of on the first segment.
func (e *HTTPEngine) HealthCheck(ctx context.Context) error {
	url := e.baseURL + apiHealth

	req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if reqErr != nil {
		return fmt.Errorf("%w: failed to create health check request: %w",
			ErrInitFailed, reqErr)
	}

	resp, doErr := e.httpClient.Do(req)
	if doErr != nil {
		return fmt.Errorf("%w: health check failed for service at %s: %w",
			ErrInitFailed, e.baseURL, doErr)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health check returned %s", ErrInitFailed, resp.Status)
	}

	return nil
}

// Synthesize posts one segment to the service and decodes the WAV response.
func (e *HTTPEngine) Synthesize(ctx context.Context, params Params) (*audio.Buffer, error) {
	request := httpRequest{
		Text:       params.Text,
		Voice:      params.Voice,
		Speed:      params.Speed,
		SampleRate: params.SampleRate,
	}

	requestBody, marshalErr := json.Marshal(request)
	if marshalErr != nil {
		return nil, fmt.Errorf("%w: failed to marshal request: %w",
			ErrInference, marshalErr)
	}

	url := e.baseURL + apiSynthesize

	httpReq, reqErr := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		url,
		bytes.NewBuffer(requestBody),
	)
	if reqErr != nil {
		return nil, fmt.Errorf("%w: failed to create request: %w", ErrInference, reqErr)
	}

	httpReq.Header.Set(headerContentType, contentTypeJSON)
	httpReq.Header.Set(headerAccept, contentTypeWAV)

	resp, doErr := e.httpClient.Do(httpReq)
	if doErr != nil {
		return nil, fmt.Errorf("%w: failed to reach service at %s: %w",
			ErrInference, e.baseURL, doErr)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, e.parseErrorResponse(resp)
	}

	wavData, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return nil, fmt.Errorf("%w: failed to read audio data: %w",
			ErrInference, readErr)
	}

	if len(wavData) == 0 {
		return nil, fmt.Errorf("%w: received empty audio data", ErrInference)
	}

	buffer, decodeErr := audio.DecodeWAV(bytes.NewReader(wavData))
	if decodeErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrInference, decodeErr)
	}

	return buffer, nil
}

// Close is a no-op; the HTTP client needs no explicit teardown.
func (e *HTTPEngine) Close() error {
	return nil
}

// parseErrorResponse decodes the service's structured JSON error, falling
// back to the raw body so diagnostics survive non-JSON failures.
func (e *HTTPEngine) parseErrorResponse(resp *http.Response) error {
	var errorResp httpErrorResponse

	decodeErr := json.NewDecoder(resp.Body).Decode(&errorResp)
	if decodeErr == nil && errorResp.Detail != "" {
		return fmt.Errorf("%w: service error (%s): %s (code: %s)",
			ErrInference, resp.Status, errorResp.Detail, errorResp.ErrorCode)
	}

	body, _ := io.ReadAll(resp.Body)

	return fmt.Errorf("%w: service returned %s, body: %s",
		ErrInference, resp.Status, string(body))
}
