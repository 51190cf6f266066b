package engine_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mdakk072/KTTS72/internal/audio"
	"github.com/mdakk072/KTTS72/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSampleRate = 24000

func wavResponse(t *testing.T, samples int) []byte {
	t.Helper()

	buf := &audio.Buffer{
		Samples:    make([]float32, samples),
		SampleRate: testSampleRate,
		Channels:   1,
	}

	for i := range buf.Samples {
		buf.Samples[i] = 0.25
	}

	data, err := buf.EncodeWAVBytes()
	require.NoError(t, err)

	return data
}

func TestHTTPEngineSynthesize(t *testing.T) {
	t.Parallel()

	var gotRequest struct {
		Text       string  `json:"text"`
		Voice      string  `json:"voice"`
		Speed      float64 `json:"speed"`
		SampleRate int     `json:"sample_rate"`
	}

	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "/v1/synthesize", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotRequest))

			w.Header().Set("Content-Type", "audio/wav")
			_, _ = w.Write(wavResponse(t, testSampleRate/4))
		}))
	defer server.Close()

	eng := engine.NewHTTPEngine(server.URL, 5*time.Second)

	buffer, err := eng.Synthesize(context.Background(), engine.Params{
		Text:       "Build complete.",
		Voice:      "af_heart",
		VoicePath:  "",
		Speed:      1.25,
		SampleRate: testSampleRate,
	})
	require.NoError(t, err)

	assert.Equal(t, "Build complete.", gotRequest.Text)
	assert.Equal(t, "af_heart", gotRequest.Voice)
	assert.InDelta(t, 1.25, gotRequest.Speed, 1e-9)
	assert.Equal(t, testSampleRate, gotRequest.SampleRate)

	assert.Equal(t, testSampleRate, buffer.SampleRate)
	assert.Len(t, buffer.Samples, testSampleRate/4)
	require.NoError(t, eng.Close())
}

func TestHTTPEngineStructuredError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"detail":"voice not loaded","error_code":"VOICE_MISSING"}`))
		}))
	defer server.Close()

	eng := engine.NewHTTPEngine(server.URL, 5*time.Second)

	_, err := eng.Synthesize(context.Background(), engine.Params{
		Text:       "hello",
		Voice:      "af_heart",
		VoicePath:  "",
		Speed:      1.0,
		SampleRate: testSampleRate,
	})
	require.ErrorIs(t, err, engine.ErrInference)
	assert.Contains(t, err.Error(), "voice not loaded")
	assert.Contains(t, err.Error(), "VOICE_MISSING")
}

func TestHTTPEngineEmptyAudioRejected(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "audio/wav")
		}))
	defer server.Close()

	eng := engine.NewHTTPEngine(server.URL, 5*time.Second)

	_, err := eng.Synthesize(context.Background(), engine.Params{
		Text:       "hello",
		Voice:      "af_heart",
		VoicePath:  "",
		Speed:      1.0,
		SampleRate: testSampleRate,
	})
	require.ErrorIs(t, err, engine.ErrInference)
	assert.Contains(t, err.Error(), "empty audio")
}

func TestHTTPEngineHealthCheck(t *testing.T) {
	t.Parallel()

	healthy := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/health", r.URL.Path)
			w.WriteHeader(http.StatusOK)
		}))
	defer healthy.Close()

	eng := engine.NewHTTPEngine(healthy.URL, 5*time.Second)
	require.NoError(t, eng.HealthCheck(context.Background()))

	sick := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
	defer sick.Close()

	sickEng := engine.NewHTTPEngine(sick.URL, 5*time.Second)
	require.ErrorIs(t, sickEng.HealthCheck(context.Background()), engine.ErrInitFailed)
}
