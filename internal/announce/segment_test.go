package announce_test

import (
	"strings"
	"testing"

	"github.com/mdakk072/KTTS72/internal/announce"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSegmentsOnePerSentence(t *testing.T) {
	t.Parallel()

	segments := announce.SplitSegments(
		"First sentence. Second one! Third, yes?", 400)

	require.Len(t, segments, 3)
	assert.Equal(t, "First sentence.", segments[0])
	assert.Equal(t, "Second one!", segments[1])
	assert.Equal(t, "Third, yes?", segments[2])
}

func TestSplitSegmentsKeepsDecimalsIntact(t *testing.T) {
	t.Parallel()

	segments := announce.SplitSegments("Version 1.5 shipped. It works.", 400)

	require.Len(t, segments, 2)
	assert.Equal(t, "Version 1.5 shipped.", segments[0])
	assert.Equal(t, "It works.", segments[1])
}

func TestSplitSegmentsParagraphBoundaries(t *testing.T) {
	t.Parallel()

	segments := announce.SplitSegments("Paragraph one\n\nParagraph two. Done.", 400)

	require.Len(t, segments, 3)
	assert.Equal(t, "Paragraph one", segments[0])
	assert.Equal(t, "Paragraph two.", segments[1])
	assert.Equal(t, "Done.", segments[2])
}

func TestSplitSegmentsOversizedSentenceFallsBackToWords(t *testing.T) {
	t.Parallel()

	long := strings.TrimSpace(strings.Repeat("word ", 30))
	segments := announce.SplitSegments(long, 40)

	require.Greater(t, len(segments), 1)

	for _, segment := range segments {
		assert.LessOrEqual(t, len([]rune(segment)), 40)
	}

	assert.Equal(t, long, strings.Join(segments, " "))
}

func TestSplitSegmentsHardCutsUnbrokenRuns(t *testing.T) {
	t.Parallel()

	run := strings.Repeat("x", 95)
	segments := announce.SplitSegments(run, 40)

	require.Len(t, segments, 3)
	assert.Equal(t, strings.Repeat("x", 40), segments[0])
	assert.Equal(t, strings.Repeat("x", 40), segments[1])
	assert.Equal(t, strings.Repeat("x", 15), segments[2])
}

func TestSplitSegmentsEmptyAndWhitespaceOnly(t *testing.T) {
	t.Parallel()

	assert.Empty(t, announce.SplitSegments("", 400))
	assert.Empty(t, announce.SplitSegments("  \n\t \n ", 400))
}
