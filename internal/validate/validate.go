// Package validate enforces bounds and safety on all user-supplied synthesis
// parameters before anything downstream runs. Validation is pure: it performs
// no filesystem I/O, and path traversal checks work on the normalized string
// form only.
package validate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mdakk072/KTTS72/internal/audio"
	"github.com/mdakk072/KTTS72/internal/voice"
)

// Parameter bounds carried over from the reference model contract.
const (
	MinSpeed      = 0.25
	MaxSpeed      = 4.0
	MaxTextLength = 100_000
)

// Devices the synthesis engine can be bound to. "auto" is resolved later, at
// engine construction, to the first available capability.
const (
	DeviceAuto = "auto"
	DeviceCPU  = "cpu"
	DeviceCUDA = "cuda"
	DeviceMPS  = "mps"
)

// validSampleRates is the closed set of accepted output sample rates.
var validSampleRates = map[int]struct{}{
	8000:  {},
	16000: {},
	22050: {},
	24000: {},
	44100: {},
	48000: {},
}

var validDevices = map[string]struct{}{
	DeviceAuto: {},
	DeviceCPU:  {},
	DeviceCUDA: {},
	DeviceMPS:  {},
}

// forbiddenPathPrefixes are locations an output file must never target.
var forbiddenPathPrefixes = []string{"/dev", "/proc", "/sys"}

// Static validation errors, one per rule, so callers can report the specific
// offending field.
var (
	ErrTextEmpty         = errors.New("text cannot be empty")
	ErrTextTooLong       = errors.New("text exceeds maximum length")
	ErrSpeedRange        = errors.New("speed out of range")
	ErrSampleRateInvalid = errors.New("invalid sample rate")
	ErrDeviceInvalid     = errors.New("invalid device")
	ErrLangUnknown       = errors.New("unknown language code")
	ErrVoiceUnknown      = errors.New("unknown voice")
	ErrVoiceLangMismatch = errors.New("voice does not belong to language")
	ErrOutputPathEmpty   = errors.New("output path cannot be empty")
	ErrOutputPathUnsafe  = errors.New("output path escapes allowed directories")
)

// Raw carries unvalidated user input.
type Raw struct {
	Voice      string
	Lang       string
	Speed      float64
	SampleRate int
	Device     string
	Text       string
	OutputPath string
	Format     string
}

// Settings is the validated, immutable configuration a request runs with.
// OutputPath and Format are empty for library (buffer-returning) use.
type Settings struct {
	Voice      string
	Lang       string
	Speed      float64
	SampleRate int
	Device     string
	Text       string
	OutputPath string
	Format     audio.Format
}

// Validator checks raw settings against the rules above. The allowed base
// directories bound where output files may be written.
type Validator struct {
	bases []string
}

// New creates a Validator. Without explicit bases, the working directory, the
// user's home directory and the system temp directory are allowed, matching
// the reference tool's policy.
func New(bases ...string) *Validator {
	if len(bases) == 0 {
		bases = defaultBases()
	}

	cleaned := make([]string, 0, len(bases))
	for _, base := range bases {
		cleaned = append(cleaned, filepath.Clean(base))
	}

	return &Validator{bases: cleaned}
}

// defaultBases puts the working directory first so relative output paths
// resolve next to the caller.
func defaultBases() []string {
	var bases []string

	if cwd, err := os.Getwd(); err == nil {
		bases = append(bases, cwd)
	}

	if home, err := os.UserHomeDir(); err == nil {
		bases = append(bases, home)
	}

	return append(bases, os.TempDir())
}

// Validate applies every rule and returns the first failure. The returned
// Settings are fully normalized: trimmed text, inferred language or voice,
// resolved output format.
func (v *Validator) Validate(raw Raw) (Settings, error) {
	text, textErr := validateText(raw.Text)
	if textErr != nil {
		return Settings{}, textErr
	}

	speedErr := validateSpeed(raw.Speed)
	if speedErr != nil {
		return Settings{}, speedErr
	}

	rateErr := validateSampleRate(raw.SampleRate)
	if rateErr != nil {
		return Settings{}, rateErr
	}

	device, deviceErr := validateDevice(raw.Device)
	if deviceErr != nil {
		return Settings{}, deviceErr
	}

	voiceID, lang, voiceErr := resolveVoice(raw.Voice, raw.Lang)
	if voiceErr != nil {
		return Settings{}, voiceErr
	}

	settings := Settings{
		Voice:      voiceID,
		Lang:       lang,
		Speed:      raw.Speed,
		SampleRate: raw.SampleRate,
		Device:     device,
		Text:       text,
		OutputPath: "",
		Format:     "",
	}

	// Library callers synthesize into memory and carry no output path; the
	// path rules only apply to file-producing requests.
	if raw.OutputPath == "" {
		if raw.Format != "" {
			format, formatErr := audio.ParseFormat(raw.Format)
			if formatErr != nil {
				return Settings{}, formatErr
			}

			settings.Format = format
		}

		return settings, nil
	}

	outputPath, pathErr := v.validateOutputPath(raw.OutputPath)
	if pathErr != nil {
		return Settings{}, pathErr
	}

	format, formatErr := resolveFormat(raw.Format, outputPath)
	if formatErr != nil {
		return Settings{}, formatErr
	}

	settings.OutputPath = outputPath
	settings.Format = format

	return settings, nil
}

func validateText(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", ErrTextEmpty
	}

	if length := len([]rune(trimmed)); length > MaxTextLength {
		return "", fmt.Errorf("%w: %d characters (max %d)",
			ErrTextTooLong, length, MaxTextLength)
	}

	return trimmed, nil
}

func validateSpeed(speed float64) error {
	if speed < MinSpeed || speed > MaxSpeed {
		return fmt.Errorf("%w: must be between %.2f and %.2f, got %g",
			ErrSpeedRange, MinSpeed, MaxSpeed, speed)
	}

	return nil
}

func validateSampleRate(rate int) error {
	if _, ok := validSampleRates[rate]; !ok {
		return fmt.Errorf("%w: %d Hz", ErrSampleRateInvalid, rate)
	}

	return nil
}

func validateDevice(device string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(device))
	if normalized == "" {
		normalized = DeviceAuto
	}

	if _, ok := validDevices[normalized]; !ok {
		return "", fmt.Errorf("%w: %q", ErrDeviceInvalid, device)
	}

	return normalized, nil
}

// resolveVoice reconciles the voice and language fields: both must be
// consistent when given; a lone voice infers its language; a lone language
// selects its default voice.
func resolveVoice(voiceID, lang string) (string, string, error) {
	voiceID = strings.TrimSpace(voiceID)
	lang = strings.ToLower(strings.TrimSpace(lang))

	if lang != "" {
		if _, ok := voice.LanguageName(lang); !ok {
			return "", "", fmt.Errorf("%w: %q", ErrLangUnknown, lang)
		}
	}

	if voiceID == "" {
		if lang == "" {
			lang = voice.LangAmericanEnglish
		}

		def, _ := voice.DefaultVoice(lang)

		return def, lang, nil
	}

	voiceLang, ok := voice.LanguageOf(voiceID)
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrVoiceUnknown, voiceID)
	}

	if lang != "" && lang != voiceLang {
		return "", "", fmt.Errorf("%w: voice %q belongs to %q, not %q",
			ErrVoiceLangMismatch, voiceID, voiceLang, lang)
	}

	return voiceID, voiceLang, nil
}

// validateOutputPath normalizes the path lexically and requires it to stay
// inside one of the allowed base directories. Symlinks are deliberately not
// resolved: validation must not touch the filesystem, so the strictest purely
// lexical rule applies (Clean plus containment checks, mixed separators
// normalized first).
func (v *Validator) validateOutputPath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", ErrOutputPathEmpty
	}

	normalized := filepath.Clean(strings.ReplaceAll(path, "\\", "/"))

	if !filepath.IsAbs(normalized) {
		if !filepath.IsLocal(normalized) {
			return "", fmt.Errorf("%w: %q", ErrOutputPathUnsafe, path)
		}

		normalized = filepath.Join(v.bases[0], normalized)
	}

	for _, prefix := range forbiddenPathPrefixes {
		if contains(prefix, normalized) {
			return "", fmt.Errorf("%w: %q targets a system location",
				ErrOutputPathUnsafe, path)
		}
	}

	for _, base := range v.bases {
		if contains(base, normalized) {
			return normalized, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrOutputPathUnsafe, path)
}

// contains reports whether cleaned path p lies at or below base.
func contains(base, p string) bool {
	if p == base {
		return true
	}

	return strings.HasPrefix(p, base+string(filepath.Separator))
}

func resolveFormat(explicit, outputPath string) (audio.Format, error) {
	if explicit != "" {
		format, parseErr := audio.ParseFormat(explicit)
		if parseErr != nil {
			return "", parseErr
		}

		return format, nil
	}

	format, inferErr := audio.FormatForPath(outputPath)
	if inferErr != nil {
		return "", inferErr
	}

	return format, nil
}
