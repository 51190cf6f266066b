// Command ktts converts text to speech offline with the Kokoro model.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/book-expert/logger"

	"github.com/mdakk072/KTTS72/internal/announce"
	"github.com/mdakk072/KTTS72/internal/audio"
	"github.com/mdakk072/KTTS72/internal/config"
	"github.com/mdakk072/KTTS72/internal/engine"
	"github.com/mdakk072/KTTS72/internal/models"
	"github.com/mdakk072/KTTS72/internal/text"
	"github.com/mdakk072/KTTS72/internal/ttsutil"
	"github.com/mdakk072/KTTS72/internal/validate"
	"github.com/mdakk072/KTTS72/internal/voice"
)

// Flag names.
const (
	flagText       = "text"
	flagTextFile   = "text-file"
	flagOut        = "out"
	flagFormat     = "format"
	flagVoice      = "voice"
	flagLang       = "lang"
	flagSpeed      = "speed"
	flagSampleRate = "sample-rate"
	flagDevice     = "device"
	flagConfig     = "config"
	flagVerbose    = "verbose"
	flagListVoices = "list-voices"
	flagListLangs  = "list-languages"
	flagDownload   = "download-models"
)

// Flag descriptions.
const (
	flagTextDesc       = "Text to convert to speech"
	flagTextFileDesc   = "File containing the text to convert"
	flagOutDesc        = "Output file path (.wav or .mp3)"
	flagFormatDesc     = "Output format (wav or mp3); overrides the extension"
	flagVoiceDesc      = "Voice identifier (e.g. af_heart)"
	flagLangDesc       = "Language code (a, b, e, f)"
	flagSpeedDesc      = "Speech speed multiplier (0.25 to 4.0)"
	flagSampleRateDesc = "Output sample rate in Hz"
	flagDeviceDesc     = "Inference device (auto, cpu, cuda, mps)"
	flagConfigDesc     = "Path to a configuration file (defaults to discovery)"
	flagVerboseDesc    = "Enable verbose logging"
	flagListVoicesDesc = "List available voices and exit"
	flagListLangsDesc  = "List available languages and exit"
	flagDownloadDesc   = "Download model assets for the selected voice and exit"
)

// Error messages.
const (
	errEitherTextOrFile  = "either --text or --text-file must be provided"
	errCannotSpecifyBoth = "cannot specify both --text and --text-file"
)

// File names and defaults.
const (
	logFileNameDefault = "ktts.log"
	logFileNameVerbose = "ktts-verbose.log"
	defaultOutputFile  = "output.wav"
)

// appFlags holds the parsed command-line flag values.
type appFlags struct {
	text       string
	textFile   string
	out        string
	format     string
	voice      string
	lang       string
	speed      float64
	sampleRate int
	device     string
	config     string
	verbose    bool
	listVoices bool
	listLangs  bool
	download   bool
}

func main() {
	err := run()
	if err != nil {
		// The logger might not be initialized yet.
		log.Fatalf("Error: %v", err)
	}
}

func run() error {
	flags := parseFlags()

	if flags.listLangs {
		printLanguages()

		return nil
	}

	if flags.listVoices {
		printVoices()

		return nil
	}

	cfg, appLog, setupErr := setup(flags)
	if setupErr != nil {
		return setupErr
	}

	defer func() {
		closeErr := appLog.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing logger: %v\n", closeErr)
		}
	}()

	ctx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if flags.download {
		return downloadModels(ctx, cfg, flags, appLog)
	}

	return synthesize(ctx, cfg, flags, appLog)
}

func parseFlags() appFlags {
	var flags appFlags

	flag.StringVar(&flags.text, flagText, "", flagTextDesc)
	flag.StringVar(&flags.textFile, flagTextFile, "", flagTextFileDesc)
	flag.StringVar(&flags.out, flagOut, "", flagOutDesc)
	flag.StringVar(&flags.format, flagFormat, "", flagFormatDesc)
	flag.StringVar(&flags.voice, flagVoice, "", flagVoiceDesc)
	flag.StringVar(&flags.lang, flagLang, "", flagLangDesc)
	flag.Float64Var(&flags.speed, flagSpeed, 0, flagSpeedDesc)
	flag.IntVar(&flags.sampleRate, flagSampleRate, 0, flagSampleRateDesc)
	flag.StringVar(&flags.device, flagDevice, "", flagDeviceDesc)
	flag.StringVar(&flags.config, flagConfig, "", flagConfigDesc)
	flag.BoolVar(&flags.verbose, flagVerbose, false, flagVerboseDesc)
	flag.BoolVar(&flags.listVoices, flagListVoices, false, flagListVoicesDesc)
	flag.BoolVar(&flags.listLangs, flagListLangs, false, flagListLangsDesc)
	flag.BoolVar(&flags.download, flagDownload, false, flagDownloadDesc)
	flag.Parse()

	return flags
}

// validateArguments checks flag combinations that do not need any further
// state. Kept separate so the rules are testable without running main.
func validateArguments(flags appFlags) error {
	if flags.download || flags.listVoices || flags.listLangs {
		return nil
	}

	if flags.text == "" && flags.textFile == "" {
		return errors.New(errEitherTextOrFile)
	}

	if flags.text != "" && flags.textFile != "" {
		return errors.New(errCannotSpecifyBoth)
	}

	return nil
}

// setup loads configuration (explicit file, discovery, then built-in
// defaults) and initializes the application logger.
func setup(flags appFlags) (*config.Config, *logger.Logger, error) {
	bootstrapLog, bootErr := logger.New(os.TempDir(), "ktts-bootstrap.log")
	if bootErr != nil {
		return nil, nil, fmt.Errorf("failed to create bootstrap logger: %w", bootErr)
	}

	defer func() { _ = bootstrapLog.Close() }()

	cfg, cfgErr := loadConfig(flags.config, bootstrapLog)
	if cfgErr != nil {
		return nil, nil, cfgErr
	}

	logFileName := logFileNameDefault
	if flags.verbose {
		logFileName = logFileNameVerbose
	}

	appLog, logErr := logger.New(cfg.Paths.BaseLogsDir, logFileName)
	if logErr != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", logErr)
	}

	return cfg, appLog, nil
}

func loadConfig(path string, bootstrapLog *logger.Logger) (*config.Config, error) {
	if path != "" {
		cfg, fileErr := config.LoadFile(path)
		if fileErr != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", fileErr)
		}

		return cfg, nil
	}

	cfg, loadErr := config.Load(bootstrapLog)
	if loadErr != nil {
		// No discoverable configuration is fine for CLI use.
		bootstrapLog.Warn("No configuration found, using defaults: %v", loadErr)

		return config.Default(), nil
	}

	return cfg, nil
}

func printLanguages() {
	for _, code := range voice.Languages() {
		name, _ := voice.LanguageName(code)
		fallback, _ := voice.DefaultVoice(code)
		fmt.Printf("%s  %s (default voice: %s)\n", code, name, fallback)
	}
}

// voiceListing renders the catalog grouped by language, one line per voice
// identifier so the output names exactly what --voice accepts.
func voiceListing() []string {
	var lines []string

	for _, code := range voice.Languages() {
		name, _ := voice.LanguageName(code)
		lines = append(lines, fmt.Sprintf("%s (%s):", name, code))

		for _, voiceID := range voice.Voices(code) {
			lines = append(lines,
				fmt.Sprintf("  - %s (%s)", voiceID, voice.Describe(voiceID)))
		}
	}

	return lines
}

func printVoices() {
	for _, line := range voiceListing() {
		fmt.Println(line)
	}
}

// downloadModels provisions the base model and the selected voice embedding.
func downloadModels(
	ctx context.Context,
	cfg *config.Config,
	flags appFlags,
	appLog *logger.Logger,
) error {
	voiceID := flags.voice
	if voiceID == "" {
		voiceID = cfg.Announcer.Voice
	}

	if !voice.Exists(voiceID) {
		return fmt.Errorf("%w: %q", validate.ErrVoiceUnknown, voiceID)
	}

	downloader := models.NewDownloader(
		cfg.Models.DownloadBaseURL,
		cfg.Models.RootDir,
		time.Duration(cfg.Models.DownloadTimeoutSeconds)*time.Second,
		appLog,
	)

	fetchErr := downloader.Fetch(ctx, voiceID)
	if fetchErr != nil {
		return fmt.Errorf("failed to download models: %w", fetchErr)
	}

	fmt.Printf("Models for %s ready under %s\n", voiceID, cfg.Models.RootDir)

	return nil
}

// synthesize runs the full pipeline for one invocation.
func synthesize(
	ctx context.Context,
	cfg *config.Config,
	flags appFlags,
	appLog *logger.Logger,
) error {
	argErr := validateArguments(flags)
	if argErr != nil {
		flag.Usage()

		return argErr
	}

	inputText, textErr := resolveText(flags)
	if textErr != nil {
		return textErr
	}

	settings, settingsErr := buildSettings(cfg, flags, inputText)
	if settingsErr != nil {
		return settingsErr
	}

	announcer, factory := buildAnnouncer(cfg, appLog)
	defer func() {
		closeErr := factory.Close()
		if closeErr != nil {
			appLog.Error("Failed to close engine: %v", closeErr)
		}
	}()

	started := time.Now()

	synthErr := announcer.SynthesizeToFile(ctx, settings)
	if synthErr != nil {
		appLog.Error("Synthesis failed: %v", synthErr)

		return fmt.Errorf("synthesis failed: %w", synthErr)
	}

	appLog.Info("Generated %s in %s",
		settings.OutputPath, ttsutil.FormatDuration(time.Since(started)))
	fmt.Printf("Generated: %s\n", settings.OutputPath)

	return nil
}

func resolveText(flags appFlags) (string, error) {
	if flags.text != "" {
		return flags.text, nil
	}

	data, readErr := os.ReadFile(flags.textFile)
	if readErr != nil {
		return "", fmt.Errorf("failed to read text file: %w", readErr)
	}

	return string(data), nil
}

// buildSettings merges flag overrides over configured defaults and validates
// the result.
func buildSettings(
	cfg *config.Config,
	flags appFlags,
	inputText string,
) (validate.Settings, error) {
	raw := validate.Raw{
		Voice:      cfg.Announcer.Voice,
		Lang:       cfg.Announcer.Lang,
		Speed:      cfg.Announcer.Speed,
		SampleRate: cfg.Announcer.SampleRate,
		Device:     cfg.Announcer.Device,
		Text:       inputText,
		OutputPath: defaultOutputFile,
		Format:     cfg.Announcer.Format,
	}

	if flags.voice != "" {
		raw.Voice = flags.voice

		// A voice names its language; follow it unless --lang disagrees.
		if lang, ok := voice.LanguageOf(flags.voice); ok && flags.lang == "" {
			raw.Lang = lang
		}
	}

	if flags.lang != "" {
		raw.Lang = flags.lang

		if flags.voice == "" {
			if fallback, ok := voice.DefaultVoice(flags.lang); ok {
				raw.Voice = fallback
			}
		}
	}

	if flags.speed != 0 {
		raw.Speed = flags.speed
	}

	if flags.sampleRate != 0 {
		raw.SampleRate = flags.sampleRate
	}

	if flags.device != "" {
		raw.Device = flags.device
	}

	if flags.out != "" {
		raw.OutputPath = flags.out
	}

	if flags.format != "" {
		raw.Format = flags.format
	}

	settings, validateErr := validate.New().Validate(raw)
	if validateErr != nil {
		return validate.Settings{}, fmt.Errorf("invalid settings: %w", validateErr)
	}

	return settings, nil
}

// buildAnnouncer wires the pipeline from configuration.
func buildAnnouncer(
	cfg *config.Config,
	appLog *logger.Logger,
) (*announce.Announcer, *engine.Factory) {
	var fetcher models.Fetcher
	if !cfg.Models.OfflineOnly {
		fetcher = models.NewDownloader(
			cfg.Models.DownloadBaseURL,
			cfg.Models.RootDir,
			time.Duration(cfg.Models.DownloadTimeoutSeconds)*time.Second,
			appLog,
		)
	}

	resolver := models.NewResolver(cfg.Models.RootDir, fetcher, appLog)

	factory := engine.NewFactory(engine.Config{
		Mode:           cfg.Engine.Mode,
		Command:        cfg.Engine.Command,
		ServiceURL:     cfg.Engine.ServiceURL,
		EspeakDataDir:  cfg.Engine.EspeakDataDir,
		TimeoutSeconds: cfg.Engine.TimeoutSeconds,
	}, appLog)

	encoder := audio.NewFFmpegEncoder(cfg.Encoder.FFmpegPath, cfg.Encoder.Bitrate, appLog)
	writer := audio.NewWriter(encoder, appLog)

	var normalizer announce.TextNormalizer
	if cfg.Announcer.NormalizeText {
		normalizer = text.NewNormalizer()
	}

	announcer := announce.New(
		resolver, factory, writer, normalizer,
		cfg.Announcer.MaxSegmentRunes, appLog)

	return announcer, factory
}
