package speech

import (
	"context"
	"encoding/binary"
)

const (
	wavSampleRate      = 22050
	wavNumChannels     = 1
	wavBitsPerSample   = 16
	wavHeaderSize      = 44
	wavSubchunkSize    = 16
	wavAudioFormat     = 1
	wavChunkSizeOffset = 36

	minStubSeconds = 0.5
)

// StubProvider produces silence sized to the reading time of the text. It
// lets the whole render pipeline run offline.
type StubProvider struct {
	wordsPerMinute float64
}

func NewStubProvider(wordsPerMinute float64) *StubProvider {
	if wordsPerMinute <= 0 {
		wordsPerMinute = DefaultWordsPerMinute
	}
	return &StubProvider{wordsPerMinute: wordsPerMinute}
}

func (s *StubProvider) Name() string { return "stub" }

func (s *StubProvider) Synthesize(ctx context.Context, text string, _ Voice) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	duration := max(SpokenDuration(text, s.wordsPerMinute), minStubSeconds)
	audio := SilentWAV(duration)
	return &Result{
		Audio:    audio,
		Format:   FormatWAV,
		Duration: WAVDuration(audio),
		Timings:  EstimateTimingsFromDuration(text, duration),
	}, nil
}

// SilentWAV returns a mono 16-bit PCM file of the given length.
func SilentWAV(durationSec float64) []byte {
	bytesPerSample := wavBitsPerSample / 8
	numSamples := int(durationSec * float64(wavSampleRate))
	dataSize := numSamples * wavNumChannels * bytesPerSample
	byteRate := wavSampleRate * wavNumChannels * bytesPerSample
	blockAlign := wavNumChannels * bytesPerSample

	buf := make([]byte, wavHeaderSize+dataSize)

	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(wavChunkSizeOffset+dataSize))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], wavSubchunkSize)
	binary.LittleEndian.PutUint16(buf[20:22], wavAudioFormat)
	binary.LittleEndian.PutUint16(buf[22:24], wavNumChannels)
	binary.LittleEndian.PutUint32(buf[24:28], wavSampleRate)
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(buf[34:36], wavBitsPerSample)
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))

	return buf
}

// WAVDuration reads the length of a canonical PCM WAV header. It returns 0
// for anything else.
func WAVDuration(audio []byte) float64 {
	if len(audio) < wavHeaderSize || string(audio[0:4]) != "RIFF" || string(audio[8:12]) != "WAVE" {
		return 0
	}
	byteRate := binary.LittleEndian.Uint32(audio[28:32])
	dataSize := binary.LittleEndian.Uint32(audio[40:44])
	if byteRate == 0 {
		return 0
	}
	return float64(dataSize) / float64(byteRate)
}
