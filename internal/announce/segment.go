// Package announce is the orchestration layer: it turns validated settings
// into audio by resolving models, obtaining the engine, segmenting text, and
// concatenating per-segment synthesis results.
package announce

import (
	"strings"
	"unicode"
)

// DefaultMaxSegmentRunes bounds one synthesis call. The engine's quality and
// latency degrade on very long inputs, so longer sentences are split.
const DefaultMaxSegmentRunes = 400

// SplitSegments breaks normalized text into synthesis segments. Paragraphs
// split on newlines, sentences split after terminal punctuation, and each
// sentence becomes its own segment. Sentences longer than maxRunes fall back
// to whitespace splits, then to hard cuts for unbroken runs.
func SplitSegments(text string, maxRunes int) []string {
	if maxRunes <= 0 {
		maxRunes = DefaultMaxSegmentRunes
	}

	var segments []string

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		for _, sentence := range splitSentences(line) {
			segments = append(segments, splitOversized(sentence, maxRunes)...)
		}
	}

	return segments
}

// splitSentences cuts a line after '.', '!' or '?' followed by whitespace.
// The terminal punctuation stays with its sentence.
func splitSentences(line string) []string {
	var (
		sentences []string
		current   strings.Builder
	)

	runes := []rune(line)

	for i, r := range runes {
		current.WriteRune(r)

		if !isTerminal(r) {
			continue
		}

		atEnd := i == len(runes)-1
		if atEnd || unicode.IsSpace(runes[i+1]) {
			sentence := strings.TrimSpace(current.String())
			if sentence != "" {
				sentences = append(sentences, sentence)
			}

			current.Reset()
		}
	}

	tail := strings.TrimSpace(current.String())
	if tail != "" {
		sentences = append(sentences, tail)
	}

	return sentences
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// splitOversized cuts a sentence that exceeds maxRunes at whitespace
// boundaries, hard-cutting any single token longer than the limit.
func splitOversized(sentence string, maxRunes int) []string {
	if len([]rune(sentence)) <= maxRunes {
		return []string{sentence}
	}

	var (
		segments []string
		current  strings.Builder
		count    int
	)

	flush := func() {
		segment := strings.TrimSpace(current.String())
		if segment != "" {
			segments = append(segments, segment)
		}

		current.Reset()

		count = 0
	}

	for _, word := range strings.Fields(sentence) {
		wordLen := len([]rune(word))

		if wordLen > maxRunes {
			flush()

			segments = append(segments, hardCut(word, maxRunes)...)

			continue
		}

		// +1 for the joining space.
		if count > 0 && count+1+wordLen > maxRunes {
			flush()
		}

		if count > 0 {
			current.WriteByte(' ')

			count++
		}

		current.WriteString(word)

		count += wordLen
	}

	flush()

	return segments
}

// hardCut slices an unbroken run of runes into maxRunes-sized pieces.
func hardCut(word string, maxRunes int) []string {
	runes := []rune(word)

	var pieces []string

	for start := 0; start < len(runes); start += maxRunes {
		end := min(start+maxRunes, len(runes))
		pieces = append(pieces, string(runes[start:end]))
	}

	return pieces
}
