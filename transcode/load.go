package transcode

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/RyanBlaney/sonido-piano/audio"
)

// Load reads path into a mono signal. WAV files are decoded natively at their
// own rate; everything else goes through ffmpeg at the decoder's target rate.
// Passing "-" decodes stdin.
func Load(ctx context.Context, path string, decoder *Decoder) (*audio.Signal, *MediaInfo, error) {
	if decoder == nil {
		decoder = NewDecoder(nil)
	}

	if path == "-" {
		signal, err := decoder.DecodeReader(ctx, os.Stdin)
		if err != nil {
			return nil, nil, err
		}
		return signal, &MediaInfo{Format: "pipe", SampleRate: signal.SampleRate, Channels: 1, Duration: signal.Duration()}, nil
	}

	if strings.EqualFold(filepath.Ext(path), ".wav") {
		signal, err := audio.LoadWAV(path)
		if err != nil {
			return nil, nil, err
		}
		return signal, &MediaInfo{
			Format:     "wav",
			Codec:      "pcm",
			Duration:   signal.Duration(),
			SampleRate: signal.SampleRate,
			Channels:   1,
		}, nil
	}

	signal, info, err := decoder.DecodeFile(ctx, path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return signal, info, nil
}
