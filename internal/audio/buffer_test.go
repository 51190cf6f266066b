// Package audio_test verifies the sample buffer model and the WAV codec.
package audio_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/mdakk072/KTTS72/internal/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sine(n int, rate int) *audio.Buffer {
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = 0.25
	}

	return &audio.Buffer{Samples: samples, SampleRate: rate, Channels: 1}
}

func TestBufferDuration(t *testing.T) {
	t.Parallel()

	buf := sine(24000, 24000)
	assert.Equal(t, time.Second, buf.Duration())

	var empty *audio.Buffer

	assert.True(t, empty.Empty())
	assert.Zero(t, empty.Duration())
}

func TestConcatPreservesOrderAndLength(t *testing.T) {
	t.Parallel()

	first := &audio.Buffer{Samples: []float32{0.1, 0.2}, SampleRate: 24000, Channels: 1}
	second := &audio.Buffer{Samples: []float32{0.3}, SampleRate: 24000, Channels: 1}
	third := &audio.Buffer{Samples: []float32{0.4, 0.5}, SampleRate: 24000, Channels: 1}

	joined, err := audio.Concat(first, second, third)
	require.NoError(t, err)

	assert.Equal(t, []float32{0.1, 0.2, 0.3, 0.4, 0.5}, joined.Samples)
	assert.Equal(t,
		first.Duration()+second.Duration()+third.Duration(),
		joined.Duration())
}

func TestConcatRejectsMismatchedBuffers(t *testing.T) {
	t.Parallel()

	first := &audio.Buffer{Samples: []float32{0.1}, SampleRate: 24000, Channels: 1}
	second := &audio.Buffer{Samples: []float32{0.2}, SampleRate: 48000, Channels: 1}

	_, err := audio.Concat(first, second)
	require.ErrorIs(t, err, audio.ErrBufferMismatch)
}

func TestFromPCM16(t *testing.T) {
	t.Parallel()

	// 0x7FFF is full scale positive, 0x8000 full scale negative.
	pcm := []byte{0xFF, 0x7F, 0x00, 0x80}

	buf, err := audio.FromPCM16(pcm, 24000, 1)
	require.NoError(t, err)
	require.Len(t, buf.Samples, 2)
	assert.InDelta(t, 1.0, buf.Samples[0], 0.001)
	assert.InDelta(t, -1.0, buf.Samples[1], 0.001)

	_, err = audio.FromPCM16([]byte{0x01}, 24000, 1)
	require.ErrorIs(t, err, audio.ErrInvalidPCM)
}

func TestWAVRoundTrip(t *testing.T) {
	t.Parallel()

	original := sine(2400, 24000)

	data, err := original.EncodeWAVBytes()
	require.NoError(t, err)
	require.NotEmpty(t, data)

	decoded, err := audio.DecodeWAV(bytes.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, original.SampleRate, decoded.SampleRate)
	assert.Equal(t, original.Channels, decoded.Channels)
	require.Len(t, decoded.Samples, len(original.Samples))
	assert.InDelta(t, float64(original.Samples[0]), float64(decoded.Samples[0]), 0.001)
}

func TestDecodeWAVRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := audio.DecodeWAV(bytes.NewReader([]byte("not a riff container")))
	require.ErrorIs(t, err, audio.ErrInvalidWAV)
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	format, err := audio.ParseFormat(" WAV ")
	require.NoError(t, err)
	assert.Equal(t, audio.FormatWAV, format)

	format, err = audio.ParseFormat("mp3")
	require.NoError(t, err)
	assert.Equal(t, audio.FormatMP3, format)

	_, err = audio.ParseFormat("flac")
	require.ErrorIs(t, err, audio.ErrUnknownFormat)
}

func TestFormatForPath(t *testing.T) {
	t.Parallel()

	format, err := audio.FormatForPath("/tmp/out.wav")
	require.NoError(t, err)
	assert.Equal(t, audio.FormatWAV, format)

	_, err = audio.FormatForPath("/tmp/out")
	require.ErrorIs(t, err, audio.ErrUnknownFormat)

	_, err = audio.FormatForPath("/tmp/out.opus")
	require.ErrorIs(t, err, audio.ErrUnknownFormat)
}
