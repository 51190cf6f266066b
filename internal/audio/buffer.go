package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	// pcmBitDepth is the bit depth all buffers are serialized at.
	pcmBitDepth = 16

	// wavAudioFormat is the PCM format tag of the RIFF container.
	wavAudioFormat = 1

	pcmMax = 32767
	pcmMin = -32768
)

// Static errors of the buffer model.
var (
	ErrBufferMismatch = errors.New("sample buffers disagree on rate or channels")
	ErrInvalidPCM     = errors.New("invalid PCM payload")
	ErrInvalidWAV     = errors.New("invalid WAV data")
)

// Buffer is an ordered sequence of PCM samples with its rate and channel
// count. Samples are float32 in [-1, 1], interleaved when multi-channel.
type Buffer struct {
	Samples    []float32
	SampleRate int
	Channels   int
}

// Empty reports whether the buffer carries no samples.
func (b *Buffer) Empty() bool {
	return b == nil || len(b.Samples) == 0
}

// Duration returns the playback duration of the buffer.
func (b *Buffer) Duration() time.Duration {
	if b.Empty() || b.SampleRate <= 0 || b.Channels <= 0 {
		return 0
	}

	frames := len(b.Samples) / b.Channels

	return time.Duration(frames) * time.Second / time.Duration(b.SampleRate)
}

// Concat joins buffers in the given order into one continuous buffer. All
// parts must agree on sample rate and channel count; no silence is inserted.
func Concat(parts ...*Buffer) (*Buffer, error) {
	if len(parts) == 0 {
		return nil, ErrInvalidPCM
	}

	total := 0

	for i, part := range parts {
		if part == nil {
			return nil, fmt.Errorf("%w: part %d is nil", ErrInvalidPCM, i)
		}

		if part.SampleRate != parts[0].SampleRate || part.Channels != parts[0].Channels {
			return nil, fmt.Errorf(
				"%w: part %d has %d Hz / %d ch, expected %d Hz / %d ch",
				ErrBufferMismatch, i,
				part.SampleRate, part.Channels,
				parts[0].SampleRate, parts[0].Channels,
			)
		}

		total += len(part.Samples)
	}

	joined := &Buffer{
		Samples:    make([]float32, 0, total),
		SampleRate: parts[0].SampleRate,
		Channels:   parts[0].Channels,
	}

	for _, part := range parts {
		joined.Samples = append(joined.Samples, part.Samples...)
	}

	return joined, nil
}

// FromPCM16 builds a buffer from little-endian 16-bit PCM bytes.
func FromPCM16(pcm []byte, sampleRate, channels int) (*Buffer, error) {
	if len(pcm)%2 != 0 {
		return nil, fmt.Errorf("%w: payload not 16-bit aligned", ErrInvalidPCM)
	}

	samples := make([]float32, len(pcm)/2)
	for i := range samples {
		sample := int16(binary.LittleEndian.Uint16(pcm[i*2:]))
		samples[i] = float32(sample) / float32(-pcmMin)
	}

	return &Buffer{Samples: samples, SampleRate: sampleRate, Channels: channels}, nil
}

// intBuffer converts the float samples to a go-audio integer buffer, clipping
// out-of-range values instead of wrapping.
func (b *Buffer) intBuffer() *goaudio.IntBuffer {
	data := make([]int, len(b.Samples))

	for i, sample := range b.Samples {
		scaled := int(sample * float32(-pcmMin))
		if scaled > pcmMax {
			scaled = pcmMax
		}

		if scaled < pcmMin {
			scaled = pcmMin
		}

		data[i] = scaled
	}

	return &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: b.Channels,
			SampleRate:  b.SampleRate,
		},
		Data:           data,
		SourceBitDepth: pcmBitDepth,
	}
}

// EncodeWAV serializes the buffer as a 16-bit PCM RIFF/WAVE stream.
func (b *Buffer) EncodeWAV(w io.WriteSeeker) error {
	encoder := wav.NewEncoder(w, b.SampleRate, pcmBitDepth, b.Channels, wavAudioFormat)

	writeErr := encoder.Write(b.intBuffer())
	if writeErr != nil {
		return fmt.Errorf("failed to write wav samples: %w", writeErr)
	}

	closeErr := encoder.Close()
	if closeErr != nil {
		return fmt.Errorf("failed to finalize wav container: %w", closeErr)
	}

	return nil
}

// EncodeWAVBytes serializes the buffer as an in-memory WAV file.
func (b *Buffer) EncodeWAVBytes() ([]byte, error) {
	sink := &memWriteSeeker{}

	encodeErr := b.EncodeWAV(sink)
	if encodeErr != nil {
		return nil, encodeErr
	}

	return sink.data, nil
}

// DecodeWAV parses a WAV stream into a buffer, normalizing samples to
// float32.
func DecodeWAV(r io.ReadSeeker) (*Buffer, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return nil, ErrInvalidWAV
	}

	pcm, pcmErr := decoder.FullPCMBuffer()
	if pcmErr != nil {
		return nil, fmt.Errorf("failed to read wav samples: %w", pcmErr)
	}

	bitDepth := int(decoder.BitDepth)
	if bitDepth <= 0 {
		bitDepth = pcmBitDepth
	}

	scale := float32(int64(1) << (bitDepth - 1))

	samples := make([]float32, len(pcm.Data))
	for i, v := range pcm.Data {
		samples[i] = float32(v) / scale
	}

	return &Buffer{
		Samples:    samples,
		SampleRate: pcm.Format.SampleRate,
		Channels:   pcm.Format.NumChannels,
	}, nil
}

// memWriteSeeker is the minimal in-memory io.WriteSeeker the wav encoder
// needs to patch RIFF headers after writing.
type memWriteSeeker struct {
	data []byte
	pos  int
}

func (m *memWriteSeeker) Write(p []byte) (int, error) {
	if end := m.pos + len(p); end > len(m.data) {
		grown := make([]byte, end)
		copy(grown, m.data)
		m.data = grown
	}

	copy(m.data[m.pos:], p)
	m.pos += len(p)

	return len(p), nil
}

func (m *memWriteSeeker) Seek(offset int64, whence int) (int64, error) {
	var next int64

	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = int64(m.pos) + offset
	case io.SeekEnd:
		next = int64(len(m.data)) + offset
	default:
		return 0, fmt.Errorf("%w: bad whence %d", ErrInvalidPCM, whence)
	}

	if next < 0 {
		return 0, fmt.Errorf("%w: negative seek", ErrInvalidPCM)
	}

	m.pos = int(next)

	return next, nil
}
