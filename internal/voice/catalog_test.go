// Package voice_test verifies the closed voice catalog invariants.
package voice_test

import (
	"testing"

	"github.com/mdakk072/KTTS72/internal/voice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEveryVoiceBelongsToExactlyOneLanguage(t *testing.T) {
	t.Parallel()

	seen := make(map[string]string)

	for _, lang := range voice.Languages() {
		for _, id := range voice.Voices(lang) {
			previous, duplicated := seen[id]
			require.Falsef(t, duplicated,
				"voice %q appears in both %q and %q", id, previous, lang)

			seen[id] = lang

			resolved, ok := voice.LanguageOf(id)
			require.True(t, ok)
			assert.Equal(t, lang, resolved)
		}
	}

	assert.NotEmpty(t, seen)
}

func TestDefaultVoiceIsPartOfItsLanguage(t *testing.T) {
	t.Parallel()

	for _, lang := range voice.Languages() {
		def, ok := voice.DefaultVoice(lang)
		require.Truef(t, ok, "language %q has no default voice", lang)

		resolved, ok := voice.LanguageOf(def)
		require.True(t, ok)
		assert.Equal(t, lang, resolved)
	}
}

func TestLanguageOfUnknownVoice(t *testing.T) {
	t.Parallel()

	_, ok := voice.LanguageOf("zz_nobody")
	assert.False(t, ok)
	assert.False(t, voice.Exists("zz_nobody"))
}

func TestLanguageName(t *testing.T) {
	t.Parallel()

	name, ok := voice.LanguageName(voice.LangAmericanEnglish)
	require.True(t, ok)
	assert.Equal(t, "American English", name)

	_, ok = voice.LanguageName("q")
	assert.False(t, ok)
}

func TestDescribe(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "American Female", voice.Describe("af_heart"))
	assert.Equal(t, "British Male", voice.Describe("bm_lewis"))
	assert.Empty(t, voice.Describe("x"))
}
