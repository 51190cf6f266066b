// Package text normalizes raw input into a form the acoustic model speaks
// well: abbreviations expanded, integers spelled out, typographic punctuation
// folded to ASCII, and whitespace tidied without destroying paragraph breaks.
package text

import (
	"regexp"
	"strconv"
	"strings"
)

// Bases of the spoken-number conversion.
const (
	numberBaseTen      = 10
	numberBaseTwenty   = 20
	numberBaseHundred  = 100
	numberBaseThousand = 1000

	// maxNumberForWords bounds conversion; larger integers are read
	// digit-group style by the engine itself and stay numeric here.
	maxNumberForWords = 999999
)

// Regex patterns, compiled once per Normalizer.
const (
	numberRegexPattern = `\d+`
	// Horizontal whitespace only; newlines carry paragraph structure and
	// must survive normalization.
	horizontalSpacePattern = `[^\S\n]+`
	blankLinesPattern      = `\n{3,}`
)

// Typographic punctuation folded to ASCII.
const (
	emDash       = "—"
	enDash       = "–"
	figureDash   = "‒"
	ellipsis     = "..."
	ellipsisChar = "…"
)

// Normalizer rewrites text for synthesis. Construct once and reuse; the
// zero value is not usable.
type Normalizer struct {
	numberPattern        *regexp.Regexp
	spacePattern         *regexp.Regexp
	blankLinesRun        *regexp.Regexp
	abbreviationReplacer *strings.Replacer
	punctuationReplacer  *strings.Replacer
}

// NewNormalizer creates a normalizer with its patterns and replacers
// compiled upfront.
func NewNormalizer() *Normalizer {
	abbreviations := []string{
		"Mr.", "Mister",
		"Mrs.", "Misses",
		"Ms.", "Miss",
		"Dr.", "Doctor",
		"St.", "Saint",
		"Co.", "Company",
		"Ltd.", "Limited",
		"Corp.", "Corporation",
		"Inc.", "Incorporated",
		"vs.", "versus",
		"etc.", "et cetera",
	}

	punctuation := []string{
		emDash, " - ",
		enDash, "-",
		figureDash, "-",
		ellipsisChar, ellipsis,
		"“", `"`,
		"”", `"`,
		"‘", "'",
		"’", "'",
		"\r\n", "\n",
		"\r", "\n",
		"\t", " ",
	}

	return &Normalizer{
		numberPattern:        regexp.MustCompile(numberRegexPattern),
		spacePattern:         regexp.MustCompile(horizontalSpacePattern),
		blankLinesRun:        regexp.MustCompile(blankLinesPattern),
		abbreviationReplacer: strings.NewReplacer(abbreviations...),
		punctuationReplacer:  strings.NewReplacer(punctuation...),
	}
}

// Normalize runs the full pipeline. The output preserves line structure so
// downstream segmentation can honor paragraph boundaries.
func (n *Normalizer) Normalize(text string) string {
	if text == "" {
		return text
	}

	normalized := n.abbreviationReplacer.Replace(text)
	normalized = n.spellOutNumbers(normalized)
	normalized = n.punctuationReplacer.Replace(normalized)
	normalized = n.collapseWhitespace(normalized)

	return normalized
}

// spellOutNumbers replaces standalone integers with their spoken form.
func (n *Normalizer) spellOutNumbers(text string) string {
	return n.numberPattern.ReplaceAllStringFunc(text, func(digits string) string {
		num, convErr := strconv.Atoi(digits)
		if convErr != nil {
			return digits
		}

		return integerToWords(num)
	})
}

// collapseWhitespace squeezes runs of spaces and tabs to one space and runs
// of blank lines to a single blank line, trimming each line's edges.
func (n *Normalizer) collapseWhitespace(text string) string {
	text = n.spacePattern.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}

	text = strings.Join(lines, "\n")
	text = n.blankLinesRun.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}

// numberConverter spells out integers up to maxNumberForWords.
type numberConverter struct {
	ones  []string
	teens []string
	tens  []string
}

func newNumberConverter() *numberConverter {
	return &numberConverter{
		ones: []string{
			"", "one", "two", "three", "four", "five",
			"six", "seven", "eight", "nine",
		},
		teens: []string{
			"ten", "eleven", "twelve", "thirteen", "fourteen",
			"fifteen", "sixteen", "seventeen", "eighteen", "nineteen",
		},
		tens: []string{
			"", "", "twenty", "thirty", "forty", "fifty",
			"sixty", "seventy", "eighty", "ninety",
		},
	}
}

func (nc *numberConverter) convertUnderTen(num int) string {
	return nc.ones[num]
}

func (nc *numberConverter) convertTeens(num int) string {
	return nc.teens[num-numberBaseTen]
}

func (nc *numberConverter) convertTens(num int) string {
	result := nc.tens[num/numberBaseTen]
	if num%numberBaseTen > 0 {
		result += " " + nc.ones[num%numberBaseTen]
	}

	return result
}

func (nc *numberConverter) convertUnderHundred(num int) string {
	if num < numberBaseTen {
		return nc.convertUnderTen(num)
	}

	if num < numberBaseTwenty {
		return nc.convertTeens(num)
	}

	return nc.convertTens(num)
}

func (nc *numberConverter) convertHundreds(num int) string {
	result := nc.ones[num/numberBaseHundred] + " hundred"

	remainder := num % numberBaseHundred
	if remainder > 0 {
		result += " " + nc.convertUnderHundred(remainder)
	}

	return result
}

func (nc *numberConverter) processThousands(number int, parts *[]string) int {
	thousands := number / numberBaseThousand
	if thousands > 0 {
		if thousands >= numberBaseHundred {
			*parts = append(*parts, nc.convertHundreds(thousands)+" thousand")
		} else {
			*parts = append(*parts, nc.convertUnderHundred(thousands)+" thousand")
		}
	}

	return number % numberBaseThousand
}

func (nc *numberConverter) processHundreds(number int, parts *[]string) int {
	hundreds := number / numberBaseHundred
	if hundreds > 0 {
		*parts = append(*parts, nc.convertUnderTen(hundreds)+" hundred")
	}

	return number % numberBaseHundred
}

// integerToWords converts an integer into its English word form. Values
// outside the supported range pass through as digits.
func integerToWords(number int) string {
	if number < 0 || number > maxNumberForWords {
		return strconv.Itoa(number)
	}

	if number == 0 {
		return "zero"
	}

	converter := newNumberConverter()

	var parts []string

	remaining := converter.processThousands(number, &parts)

	remaining = converter.processHundreds(remaining, &parts)
	if remaining > 0 {
		parts = append(parts, converter.convertUnderHundred(remaining))
	}

	return strings.Join(parts, " ")
}
