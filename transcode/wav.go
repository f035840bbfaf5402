// Package transcode decodes audio files into analysis buffers. Only WAV is
// supported; callers feeding compressed media decode it upstream.
package transcode

import (
	"fmt"
	"io"
	"os"

	"github.com/go-audio/wav"

	"github.com/RyanBlaney/ritmo/audio"
	"github.com/RyanBlaney/ritmo/logging"
)

// DecodeWAVFile opens and decodes a WAV file into an audio.Buffer.
func DecodeWAVFile(path string) (*audio.Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	buf, err := DecodeWAV(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return buf, nil
}

// DecodeWAV decodes WAV data from a seekable reader. Samples are normalized
// to [-1, 1] per the stream's bit depth; channels are kept separate.
func DecodeWAV(r io.ReadSeeker) (*audio.Buffer, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("not a valid WAV stream")
	}

	pcm, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to read PCM data: %w", err)
	}
	if pcm.Format == nil || pcm.Format.NumChannels <= 0 {
		return nil, fmt.Errorf("missing format information")
	}

	numChannels := pcm.Format.NumChannels
	numSamples := len(pcm.Data) / numChannels
	if numSamples == 0 {
		return nil, fmt.Errorf("empty audio stream")
	}

	bitDepth := int(decoder.BitDepth)
	if bitDepth == 0 {
		bitDepth = 16
	}
	scale := float64(int64(1) << (bitDepth - 1))

	channels := make([][]float64, numChannels)
	for ch := range channels {
		channels[ch] = make([]float64, numSamples)
	}
	for i := 0; i < numSamples; i++ {
		for ch := 0; ch < numChannels; ch++ {
			channels[ch][i] = float64(pcm.Data[i*numChannels+ch]) / scale
		}
	}

	logging.Debug("decoded WAV stream", logging.Fields{
		"sample_rate": pcm.Format.SampleRate,
		"channels":    numChannels,
		"samples":     numSamples,
		"bit_depth":   bitDepth,
	})

	return audio.NewBuffer(channels, pcm.Format.SampleRate)
}
