package audio

import (
	"fmt"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// LoadWAV decodes a PCM WAV file into a mono signal normalized to [-1, 1].
// Multi-channel files are averaged.
func LoadWAV(path string) (*Signal, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	decoder := wav.NewDecoder(file)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("invalid WAV file: %s", path)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to read samples from %s: %w", path, err)
	}

	channels := 1
	rate := int(decoder.SampleRate)
	if buf.Format != nil {
		channels = max(buf.Format.NumChannels, 1)
		rate = buf.Format.SampleRate
	}

	bitDepth := buf.SourceBitDepth
	if bitDepth == 0 {
		bitDepth = int(decoder.BitDepth)
	}
	if bitDepth <= 0 {
		return nil, fmt.Errorf("unsupported bit depth %d in %s", bitDepth, path)
	}
	maxVal := float64(int64(1) << uint(bitDepth-1))

	frames := len(buf.Data) / channels
	samples := make([]float64, frames)
	for i := range frames {
		sum := 0.0
		for c := range channels {
			sum += float64(buf.Data[i*channels+c])
		}
		samples[i] = sum / float64(channels) / maxVal
	}

	return &Signal{Samples: samples, SampleRate: rate}, nil
}

// WriteWAV encodes the signal as mono integer PCM. Samples are clipped to [-1, 1].
func WriteWAV(path string, s *Signal, bitDepth int) error {
	if bitDepth != 16 && bitDepth != 24 && bitDepth != 32 {
		return fmt.Errorf("unsupported bit depth %d", bitDepth)
	}

	outFile, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("output file creation error: %w", err)
	}
	defer outFile.Close()

	maxVal := float64(int64(1)<<uint(bitDepth-1)) - 1
	data := make([]int, len(s.Samples))
	for i, v := range s.Samples {
		data[i] = int(math.Round(math.Max(-1, math.Min(1, v)) * maxVal))
	}

	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: 1,
			SampleRate:  s.SampleRate,
		},
		Data:           data,
		SourceBitDepth: bitDepth,
	}

	// 1 is the PCM audio format
	encoder := wav.NewEncoder(outFile, s.SampleRate, bitDepth, 1, 1)
	if err := encoder.Write(buf); err != nil {
		return fmt.Errorf("data writing error: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("failed to finalize %s: %w", path, err)
	}

	return nil
}
