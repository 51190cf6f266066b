// Package models_test verifies offline-first resolution and the
// single-flight download behavior.
package models_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/book-expert/logger"
	"github.com/mdakk072/KTTS72/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errFetchRefused = errors.New("fetch refused")

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()

	log, err := logger.New(t.TempDir(), "models-test.log")
	require.NoError(t, err)

	t.Cleanup(func() { _ = log.Close() })

	return log
}

// seedAssets lays out a complete models root for the given voice.
func seedAssets(t *testing.T, root, voiceID string) {
	t.Helper()

	baseDir := filepath.Join(root, "kokoro-82m")
	voicesDir := filepath.Join(root, "voices")
	require.NoError(t, os.MkdirAll(baseDir, 0o750))
	require.NoError(t, os.MkdirAll(voicesDir, 0o750))

	files := map[string][]byte{
		filepath.Join(baseDir, "config.json"):     []byte(`{"sample_rate":24000}`),
		filepath.Join(baseDir, "kokoro-v1_0.pth"): []byte("weights"),
		filepath.Join(voicesDir, voiceID+".pt"):   []byte("embedding"),
	}

	for path, data := range files {
		require.NoError(t, os.WriteFile(path, data, 0o600))
	}
}

// countingFetcher counts Fetch calls and optionally seeds assets on fetch.
type countingFetcher struct {
	calls int32
	root  string
	seed  bool
	t     *testing.T
}

func (f *countingFetcher) Fetch(_ context.Context, voiceID string) error {
	atomic.AddInt32(&f.calls, 1)

	if !f.seed {
		return errFetchRefused
	}

	seedAssets(f.t, f.root, voiceID)

	return nil
}

func TestResolveLocalAssets(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	seedAssets(t, root, "af_heart")

	fetcher := &countingFetcher{calls: 0, root: root, seed: false, t: t}
	resolver := models.NewResolver(root, fetcher, testLogger(t))

	model, err := resolver.Resolve(context.Background(), "a", "af_heart")
	require.NoError(t, err)

	assert.Equal(t, models.SourceLocal, model.Source)
	assert.Equal(t, filepath.Join(root, "voices", "af_heart.pt"), model.VoicePath)
	assert.Zero(t, atomic.LoadInt32(&fetcher.calls))
}

func TestResolveDownloadsOnceWhenMissing(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	fetcher := &countingFetcher{calls: 0, root: root, seed: true, t: t}
	resolver := models.NewResolver(root, fetcher, testLogger(t))

	model, err := resolver.Resolve(context.Background(), "a", "af_heart")
	require.NoError(t, err)
	assert.Equal(t, models.SourceDownloaded, model.Source)

	// Second resolution of the same key is served from cache.
	again, err := resolver.Resolve(context.Background(), "a", "af_heart")
	require.NoError(t, err)
	assert.Equal(t, model, again)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fetcher.calls))
}

func TestResolveMissingAssetsIsHardFailure(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	fetcher := &countingFetcher{calls: 0, root: root, seed: false, t: t}
	resolver := models.NewResolver(root, fetcher, testLogger(t))

	_, err := resolver.Resolve(context.Background(), "a", "af_heart")
	require.ErrorIs(t, err, models.ErrModelsNotFound)

	// The failed outcome is cached: no second download attempt.
	_, err = resolver.Resolve(context.Background(), "a", "af_heart")
	require.ErrorIs(t, err, models.ErrModelsNotFound)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fetcher.calls))
}

func TestResolveOfflineOnly(t *testing.T) {
	t.Parallel()

	resolver := models.NewResolver(t.TempDir(), nil, testLogger(t))

	_, err := resolver.Resolve(context.Background(), "a", "af_heart")
	require.ErrorIs(t, err, models.ErrModelsNotFound)
}

func TestResolveRejectsTraversalVoice(t *testing.T) {
	t.Parallel()

	resolver := models.NewResolver(t.TempDir(), nil, testLogger(t))

	_, err := resolver.Resolve(context.Background(), "a", "../af_heart")
	require.ErrorIs(t, err, models.ErrVoiceOutsideRoot)
}

func TestResolveSingleFlight(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	fetcher := &countingFetcher{calls: 0, root: root, seed: true, t: t}
	resolver := models.NewResolver(root, fetcher, testLogger(t))

	const callers = 16

	var waitGroup sync.WaitGroup

	results := make([]error, callers)

	for i := range callers {
		waitGroup.Add(1)

		go func(slot int) {
			defer waitGroup.Done()

			_, results[slot] = resolver.Resolve(context.Background(), "a", "af_heart")
		}(i)
	}

	waitGroup.Wait()

	for _, err := range results {
		require.NoError(t, err)
	}

	assert.Equal(t, int32(1), atomic.LoadInt32(&fetcher.calls))
}

func TestDownloaderFetchesFromServer(t *testing.T) {
	t.Parallel()

	var requests atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			requests.Add(1)

			switch r.URL.Path {
			case "/config.json":
				_, _ = w.Write([]byte(`{"sample_rate":24000}`))
			case "/kokoro-v1_0.pth":
				_, _ = w.Write([]byte("weights"))
			case "/voices/af_heart.pt":
				_, _ = w.Write([]byte("embedding"))
			default:
				http.NotFound(w, r)
			}
		}))
	defer server.Close()

	root := t.TempDir()
	downloader := models.NewDownloader(server.URL, root, 0, testLogger(t))

	err := downloader.Fetch(context.Background(), "af_heart")
	require.NoError(t, err)
	assert.Equal(t, int32(3), requests.Load())

	resolver := models.NewResolver(root, downloader, testLogger(t))

	model, err := resolver.Resolve(context.Background(), "a", "af_heart")
	require.NoError(t, err)
	assert.Equal(t, models.SourceLocal, model.Source)

	// No leftover partial downloads.
	entries, readErr := os.ReadDir(filepath.Join(root, "voices"))
	require.NoError(t, readErr)
	require.Len(t, entries, 1)
	assert.Equal(t, "af_heart.pt", entries[0].Name())
}

func TestDownloaderPropagatesHTTPErrors(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "gone", http.StatusNotFound)
		}))
	defer server.Close()

	downloader := models.NewDownloader(server.URL, t.TempDir(), 0, testLogger(t))

	err := downloader.Fetch(context.Background(), "af_heart")
	require.ErrorIs(t, err, models.ErrDownloadFailed)
}
