// Package voice defines the closed catalog of languages and voices the
// synthesis pipeline accepts. Every voice belongs to exactly one language, and
// each language carries a default voice used when a request names only the
// language.
package voice

import (
	"sort"
	"strings"
)

// Language codes understood by the underlying Kokoro model.
const (
	LangAmericanEnglish = "a"
	LangBritishEnglish  = "b"
	LangSpanish         = "e"
	LangFrench          = "f"
)

// language holds the catalog entry for one language code.
type language struct {
	name         string
	defaultVoice string
	voices       []string
}

// catalog is the fixed language -> voice mapping. Voice identifiers follow the
// Kokoro convention: the first letter is the language code, the second the
// speaker gender, then the speaker name (for example "af_heart").
var catalog = map[string]language{
	LangAmericanEnglish: {
		name:         "American English",
		defaultVoice: "af_heart",
		voices: []string{
			"af_bella",
			"af_heart",
			"af_nicole",
			"af_sarah",
			"am_adam",
			"am_michael",
		},
	},
	LangBritishEnglish: {
		name:         "British English",
		defaultVoice: "bf_emma",
		voices: []string{
			"bf_emma",
			"bf_isabella",
			"bm_george",
			"bm_lewis",
		},
	},
	LangSpanish: {
		name:         "Spanish",
		defaultVoice: "ef_dora",
		voices: []string{
			"ef_dora",
			"em_alex",
			"em_santa",
		},
	},
	LangFrench: {
		name:         "French",
		defaultVoice: "ff_siwis",
		voices: []string{
			"ff_siwis",
		},
	},
}

// Languages returns all language codes in sorted order.
func Languages() []string {
	codes := make([]string, 0, len(catalog))
	for code := range catalog {
		codes = append(codes, code)
	}

	sort.Strings(codes)

	return codes
}

// LanguageName returns the human-readable name of a language code.
func LanguageName(code string) (string, bool) {
	lang, ok := catalog[code]
	if !ok {
		return "", false
	}

	return lang.name, true
}

// Voices returns the voice identifiers of a language in sorted order, or nil
// for an unknown language.
func Voices(code string) []string {
	lang, ok := catalog[code]
	if !ok {
		return nil
	}

	voices := make([]string, len(lang.voices))
	copy(voices, lang.voices)
	sort.Strings(voices)

	return voices
}

// DefaultVoice returns the default voice of a language.
func DefaultVoice(code string) (string, bool) {
	lang, ok := catalog[code]
	if !ok {
		return "", false
	}

	return lang.defaultVoice, true
}

// LanguageOf returns the language code a voice belongs to.
func LanguageOf(voiceID string) (string, bool) {
	for code, lang := range catalog {
		for _, v := range lang.voices {
			if v == voiceID {
				return code, true
			}
		}
	}

	return "", false
}

// Exists reports whether a voice identifier is part of the catalog.
func Exists(voiceID string) bool {
	_, ok := LanguageOf(voiceID)

	return ok
}

// Describe returns a short display label for a voice, derived from its
// identifier prefix (for example "af_heart" -> "American Female").
func Describe(voiceID string) string {
	if len(voiceID) < 2 {
		return ""
	}

	prefixes := map[string]string{
		"af": "American Female",
		"am": "American Male",
		"bf": "British Female",
		"bm": "British Male",
		"ef": "Spanish Female",
		"em": "Spanish Male",
		"ff": "French Female",
	}

	return prefixes[strings.ToLower(voiceID[:2])]
}
