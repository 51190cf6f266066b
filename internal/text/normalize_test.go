package text_test

import (
	"testing"

	"github.com/mdakk072/KTTS72/internal/text"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeExpandsAbbreviations(t *testing.T) {
	t.Parallel()

	normalizer := text.NewNormalizer()

	got := normalizer.Normalize("Dr. Smith met Mr. Jones at St. James.")
	assert.Equal(t, "Doctor Smith met Mister Jones at Saint James.", got)
}

func TestNormalizeSpellsOutIntegers(t *testing.T) {
	t.Parallel()

	normalizer := text.NewNormalizer()

	cases := map[string]string{
		"I have 3 cats": "I have three cats",
		"year 0":        "year zero",
		"chapter 17":    "chapter seventeen",
		"42 answers":    "forty two answers",
		"100 days":      "one hundred days",
		"1500 units":    "one thousand five hundred units",
		"250000 lines":  "two hundred fifty thousand lines",
	}

	for input, want := range cases {
		assert.Equal(t, want, normalizer.Normalize(input), "input %q", input)
	}

	// Out-of-range integers stay numeric.
	assert.Equal(t, "1000000 files", normalizer.Normalize("1000000 files"))
}

func TestNormalizeFoldsTypography(t *testing.T) {
	t.Parallel()

	normalizer := text.NewNormalizer()

	got := normalizer.Normalize("“Wait…” she said—twice.")
	assert.Equal(t, `"Wait..." she said - twice.`, got)
}

func TestNormalizePreservesParagraphBreaks(t *testing.T) {
	t.Parallel()

	normalizer := text.NewNormalizer()

	input := "First   paragraph.\t\n\n\n\nSecond  line. \nThird line.  "
	want := "First paragraph.\n\nSecond line.\nThird line."

	assert.Equal(t, want, normalizer.Normalize(input))
}

func TestNormalizeEmptyInput(t *testing.T) {
	t.Parallel()

	normalizer := text.NewNormalizer()

	assert.Empty(t, normalizer.Normalize(""))
}
