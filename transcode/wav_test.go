package transcode

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func writeTestWAV(t *testing.T, path string, sampleRate, channels int, seconds float64) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)

	n := int(seconds * float64(sampleRate))
	data := make([]int, n*channels)
	for i := 0; i < n; i++ {
		v := int(0.5 * 32767 * math.Sin(2*math.Pi*440*float64(i)/float64(sampleRate)))
		for ch := 0; ch < channels; ch++ {
			data[i*channels+ch] = v
		}
	}

	buf := &goaudio.IntBuffer{
		Data:           data,
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}
}

func TestDecodeWAVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	writeTestWAV(t, path, 44100, 2, 0.5)

	buf, err := DecodeWAVFile(path)
	if err != nil {
		t.Fatalf("DecodeWAVFile: %v", err)
	}

	if buf.SampleRate() != 44100 {
		t.Errorf("sample rate = %d, want 44100", buf.SampleRate())
	}
	if buf.Channels() != 2 {
		t.Errorf("channels = %d, want 2", buf.Channels())
	}
	if buf.NumSamples() != 22050 {
		t.Errorf("samples = %d, want 22050", buf.NumSamples())
	}

	peak := 0.0
	for _, s := range buf.Channel(0) {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	if peak < 0.45 || peak > 0.55 {
		t.Errorf("peak = %f, want ~0.5 after normalization", peak)
	}
}

func TestDecodeWAVFileMissing(t *testing.T) {
	if _, err := DecodeWAVFile(filepath.Join(t.TempDir(), "nope.wav")); err == nil {
		t.Errorf("missing file should error")
	}
}

func TestDecodeInvalidStream(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.wav")
	if err := os.WriteFile(path, []byte("definitely not a wav"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := DecodeWAVFile(path); err == nil {
		t.Errorf("junk data should error")
	}
}
