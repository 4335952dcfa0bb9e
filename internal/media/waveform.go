// Package media handles local media plumbing: audio waveform
// extraction for the timeline and HTTP range serving of project video.
package media

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// DefaultSamples is the waveform resolution used by the timeline strip.
const DefaultSamples = 400

// WaveformExtractor pulls a normalized amplitude envelope out of a
// video's audio track. Extraction shells out to ffmpeg; when that fails
// the caller falls back to Placeholder.
type WaveformExtractor struct {
	samples int
	logger  *slog.Logger
}

func NewWaveformExtractor(samples int, logger *slog.Logger) *WaveformExtractor {
	if samples <= 0 {
		samples = DefaultSamples
	}
	return &WaveformExtractor{samples: samples, logger: logger.With("component", "waveform")}
}

// Extract decodes the video's audio to mono 16kHz PCM and buckets it
// into the configured number of normalized samples.
func (e *WaveformExtractor) Extract(videoPath string) ([]float64, error) {
	if _, err := os.Stat(videoPath); err != nil {
		return nil, fmt.Errorf("waveform: stat video: %w", err)
	}

	tmpDir, err := os.MkdirTemp("", "capstudio-waveform-*")
	if err != nil {
		return nil, fmt.Errorf("waveform: temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)
	pcmPath := filepath.Join(tmpDir, "audio.pcm")

	err = ffmpeg.Input(videoPath).
		Output(pcmPath, ffmpeg.KwArgs{
			"f":      "s16le",
			"acodec": "pcm_s16le",
			"ac":     1,
			"ar":     "16000",
			"vn":     "",
		}).
		OverWriteOutput().
		Silent(true).
		Run()
	if err != nil {
		return nil, fmt.Errorf("waveform: ffmpeg decode: %w", err)
	}

	raw, err := os.ReadFile(pcmPath)
	if err != nil {
		return nil, fmt.Errorf("waveform: read pcm: %w", err)
	}

	pcm := decodePCM16(raw)
	if len(pcm) == 0 {
		return nil, fmt.Errorf("waveform: no audio samples decoded")
	}

	samples := Downsample(pcm, e.samples)
	e.logger.Info("waveform extracted", "video", filepath.Base(videoPath), "samples", len(samples))
	return samples, nil
}

// Downsample buckets raw amplitudes into n mean-absolute-amplitude
// samples, normalized so the loudest bucket is 1.
func Downsample(pcm []float64, n int) []float64 {
	if len(pcm) == 0 || n <= 0 {
		return nil
	}
	if n > len(pcm) {
		n = len(pcm)
	}

	blockSize := len(pcm) / n
	out := make([]float64, n)
	maxAmp := 0.0
	for i := 0; i < n; i++ {
		sum := 0.0
		start := i * blockSize
		for j := 0; j < blockSize; j++ {
			sum += math.Abs(pcm[start+j])
		}
		out[i] = sum / float64(blockSize)
		if out[i] > maxAmp {
			maxAmp = out[i]
		}
	}

	if maxAmp > 0 {
		for i := range out {
			out[i] /= maxAmp
		}
	}
	return out
}

// Placeholder generates the deterministic pseudo-random envelope shown
// when extraction fails or has not run yet.
func Placeholder(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		seed := math.Sin(float64(i)*0.3) * math.Cos(float64(i)*0.17)
		out[i] = (math.Abs(seed)*60 + 5) / 100
	}
	return out
}

func decodePCM16(raw []byte) []float64 {
	n := len(raw) / 2
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		v := int16(binary.LittleEndian.Uint16(raw[i*2:]))
		out[i] = float64(v) / 32768.0
	}
	return out
}
