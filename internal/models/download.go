package models

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/book-expert/logger"

	"github.com/mdakk072/KTTS72/internal/ttsutil"
)

// DefaultDownloadBaseURL is the upstream repository the base model and voice
// embeddings are fetched from.
const DefaultDownloadBaseURL = "https://huggingface.co/hexgrad/Kokoro-82M/resolve/main"

const defaultDownloadTimeout = 10 * time.Minute

// downloadSuffix marks in-flight files so interrupted downloads never look
// like complete assets.
const downloadSuffix = ".download"

// ErrDownloadFailed wraps any failure while fetching model assets.
var ErrDownloadFailed = errors.New("model download failed")

// Downloader fetches model assets over HTTP into the models root. Files are
// streamed to a temporary name and renamed into place only when complete.
type Downloader struct {
	client  *http.Client
	baseURL string
	root    string
	log     *logger.Logger
}

// NewDownloader creates a Downloader. Empty baseURL selects the upstream
// repository; a zero timeout selects a default generous enough for the
// ~313 MB of weights.
func NewDownloader(baseURL, root string, timeout time.Duration, log *logger.Logger) *Downloader {
	if baseURL == "" {
		baseURL = DefaultDownloadBaseURL
	}

	if timeout <= 0 {
		timeout = defaultDownloadTimeout
	}

	return &Downloader{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		root:    root,
		log:     log,
	}
}

// Fetch downloads the base model files and the embedding for one voice,
// skipping files that already exist locally.
func (d *Downloader) Fetch(ctx context.Context, voiceID string) error {
	baseDir := filepath.Join(d.root, baseModelDirName)
	voicesDir := filepath.Join(d.root, voicesDirName)

	for _, dir := range []string{baseDir, voicesDir} {
		dirErr := ttsutil.EnsureDir(dir)
		if dirErr != nil {
			return fmt.Errorf("%w: %w", ErrDownloadFailed, dirErr)
		}
	}

	voiceFile := voiceID + voiceFileSuffix

	files := []struct {
		remote string
		local  string
	}{
		{remote: configFileName, local: filepath.Join(baseDir, configFileName)},
		{remote: weightsFileName, local: filepath.Join(baseDir, weightsFileName)},
		{remote: voicesDirName + "/" + voiceFile, local: filepath.Join(voicesDir, voiceFile)},
	}

	for _, file := range files {
		_, statErr := os.Stat(file.local)
		if statErr == nil {
			continue
		}

		fetchErr := d.fetchOne(ctx, file.remote, file.local)
		if fetchErr != nil {
			return fetchErr
		}
	}

	return nil
}

func (d *Downloader) fetchOne(ctx context.Context, remote, local string) error {
	url := d.baseURL + "/" + remote

	d.log.Info("Downloading %s", url)

	req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if reqErr != nil {
		return fmt.Errorf("%w: failed to create request for %s: %w",
			ErrDownloadFailed, url, reqErr)
	}

	resp, doErr := d.client.Do(req)
	if doErr != nil {
		return fmt.Errorf("%w: %s: %w", ErrDownloadFailed, url, doErr)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s returned %s", ErrDownloadFailed, url, resp.Status)
	}

	written, saveErr := d.saveBody(resp.Body, local)
	if saveErr != nil {
		return saveErr
	}

	d.log.Info("Saved %s (%s)", local, ttsutil.FormatFileSize(written))

	return nil
}

// saveBody streams the payload to a sibling temp file and renames it into
// place, so a crash mid-transfer never leaves a plausible-looking asset.
func (d *Downloader) saveBody(body io.Reader, local string) (int64, error) {
	tmpPath := local + downloadSuffix

	file, createErr := os.Create(tmpPath)
	if createErr != nil {
		return 0, fmt.Errorf("%w: failed to create %s: %w",
			ErrDownloadFailed, tmpPath, createErr)
	}

	written, copyErr := io.Copy(file, body)
	closeErr := file.Close()

	if copyErr != nil {
		_ = os.Remove(tmpPath)

		return 0, fmt.Errorf("%w: failed to write %s: %w",
			ErrDownloadFailed, tmpPath, copyErr)
	}

	if closeErr != nil {
		_ = os.Remove(tmpPath)

		return 0, fmt.Errorf("%w: failed to close %s: %w",
			ErrDownloadFailed, tmpPath, closeErr)
	}

	if written == 0 {
		_ = os.Remove(tmpPath)

		return 0, fmt.Errorf("%w: %s is empty", ErrDownloadFailed, tmpPath)
	}

	renameErr := os.Rename(tmpPath, local)
	if renameErr != nil {
		_ = os.Remove(tmpPath)

		return 0, fmt.Errorf("%w: failed to move %s into place: %w",
			ErrDownloadFailed, tmpPath, renameErr)
	}

	return written, nil
}
