// Package models resolves voice and model identifiers to on-disk assets,
// offline-first: the bundled models directory is consulted before a single
// download attempt against the upstream repository.
package models

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/book-expert/logger"
)

// Fixed layout of the models root, owned by the download tooling.
const (
	baseModelDirName = "kokoro-82m"
	voicesDirName    = "voices"

	configFileName  = "config.json"
	weightsFileName = "kokoro-v1_0.pth"
	voiceFileSuffix = ".pt"
)

// Static errors.
var (
	// ErrModelsNotFound indicates required model assets are missing locally
	// and could not be downloaded. The caller must provision models.
	ErrModelsNotFound = errors.New("model assets not found")

	// ErrVoiceOutsideRoot indicates a voice identifier that would resolve
	// outside the models root.
	ErrVoiceOutsideRoot = errors.New("voice resolves outside models root")
)

// Source records where a resolution was satisfied from.
type Source string

const (
	SourceLocal      Source = "local"
	SourceDownloaded Source = "downloaded"
)

// ResolvedModel points at the concrete assets one (language, voice) pair
// synthesizes with. Instances are immutable once returned.
type ResolvedModel struct {
	Lang        string
	ConfigPath  string
	WeightsPath string
	VoicePath   string
	Source      Source
}

// Fetcher downloads the base model and one voice embedding into the models
// root. Implemented by Downloader; nil disables the network fallback.
type Fetcher interface {
	Fetch(ctx context.Context, voiceID string) error
}

// resolution is the single-flight slot for one (lang, voice) key.
type resolution struct {
	once  sync.Once
	model ResolvedModel
	err   error
}

// Resolver caches resolutions per (language, voice) pair for the process
// lifetime. Concurrent requests for the same key share one resolution and at
// most one download attempt.
type Resolver struct {
	root    string
	fetcher Fetcher
	log     *logger.Logger

	mu    sync.Mutex
	cache map[string]*resolution
}

// NewResolver creates a resolver over the given models root. A nil fetcher
// makes resolution strictly offline.
func NewResolver(root string, fetcher Fetcher, log *logger.Logger) *Resolver {
	return &Resolver{
		root:    root,
		fetcher: fetcher,
		log:     log,
		mu:      sync.Mutex{},
		cache:   make(map[string]*resolution),
	}
}

// Resolve returns the assets for a (language, voice) pair, downloading them
// once if absent. Persistent absence is a hard failure; there is no second
// download attempt within the process.
func (r *Resolver) Resolve(ctx context.Context, lang, voiceID string) (ResolvedModel, error) {
	key := lang + "/" + voiceID

	r.mu.Lock()

	slot, ok := r.cache[key]
	if !ok {
		slot = &resolution{once: sync.Once{}, model: ResolvedModel{}, err: nil}
		r.cache[key] = slot
	}

	r.mu.Unlock()

	slot.once.Do(func() {
		slot.model, slot.err = r.resolve(ctx, lang, voiceID)
	})

	return slot.model, slot.err
}

func (r *Resolver) resolve(ctx context.Context, lang, voiceID string) (ResolvedModel, error) {
	voicePath, voiceErr := r.voicePath(voiceID)
	if voiceErr != nil {
		return ResolvedModel{}, voiceErr
	}

	model := ResolvedModel{
		Lang:        lang,
		ConfigPath:  filepath.Join(r.root, baseModelDirName, configFileName),
		WeightsPath: filepath.Join(r.root, baseModelDirName, weightsFileName),
		VoicePath:   voicePath,
		Source:      SourceLocal,
	}

	if r.assetsPresent(model) {
		r.log.Info("Resolved models for %s/%s from %s", lang, voiceID, r.root)

		return model, nil
	}

	if r.fetcher == nil {
		return ResolvedModel{}, fmt.Errorf(
			"%w: missing assets under %s and downloads are disabled",
			ErrModelsNotFound, r.root)
	}

	r.log.Info("Local models missing for %s/%s, downloading", lang, voiceID)

	fetchErr := r.fetcher.Fetch(ctx, voiceID)
	if fetchErr != nil {
		return ResolvedModel{}, fmt.Errorf("%w: download failed: %w",
			ErrModelsNotFound, fetchErr)
	}

	// One retry of the local check after the single download attempt.
	if !r.assetsPresent(model) {
		return ResolvedModel{}, fmt.Errorf(
			"%w: assets still missing under %s after download",
			ErrModelsNotFound, r.root)
	}

	model.Source = SourceDownloaded

	return model, nil
}

// voicePath maps a voice identifier to its embedding file, refusing any
// identifier that would escape the models root.
func (r *Resolver) voicePath(voiceID string) (string, error) {
	filename := voiceID + voiceFileSuffix
	if filepath.Base(filename) != filename {
		return "", fmt.Errorf("%w: %q", ErrVoiceOutsideRoot, voiceID)
	}

	return filepath.Join(r.root, voicesDirName, filename), nil
}

func (r *Resolver) assetsPresent(model ResolvedModel) bool {
	for _, path := range []string{model.ConfigPath, model.WeightsPath, model.VoicePath} {
		info, statErr := os.Stat(path)
		if statErr != nil || info.IsDir() {
			return false
		}
	}

	return true
}
