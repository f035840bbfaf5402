package spectral

import (
	"fmt"
	"math/cmplx"
	"runtime"
	"sync"

	"github.com/RyanBlaney/ritmo/engine"
)

// STFT provides Short-Time Fourier Transform functionality
type STFT struct {
	fft *FFT
	eng *engine.Engine
}

// STFTResult holds the result of STFT analysis
type STFTResult struct {
	Magnitude      [][]float64 `json:"magnitude"`       // Time x Frequency magnitude matrix
	TimeFrames     int         `json:"time_frames"`     // Number of time frames
	FreqBins       int         `json:"freq_bins"`       // Number of frequency bins
	SampleRate     int         `json:"sample_rate"`     // Sample rate
	WindowSize     int         `json:"window_size"`     // FFT window size
	HopSize        int         `json:"hop_size"`        // Hop size between frames
	FreqResolution float64     `json:"freq_resolution"` // Frequency resolution (Hz/bin)
	TimeResolution float64     `json:"time_resolution"` // Time resolution (seconds/frame)
}

// Window interface for windowing functions
type Window interface {
	ApplyInPlace(signal []float64) error
}

// NewSTFT creates a new STFT calculator
func NewSTFT() *STFT {
	return &STFT{
		fft: NewFFT(),
		eng: engine.Get(),
	}
}

// ComputeWithWindow computes STFT with parallel frame processing and a
// custom window. Frames are independent reads of the input signal, so the
// fan-out never crosses a pipeline stage boundary.
func (s *STFT) ComputeWithWindow(signal []float64, windowSize int, hopSize int, sampleRate int, window Window) (*STFTResult, error) {
	if len(signal) == 0 {
		return nil, fmt.Errorf("empty signal")
	}

	if windowSize <= 0 {
		return nil, fmt.Errorf("window size must be positive")
	}

	if hopSize <= 0 {
		return nil, fmt.Errorf("hop size must be positive")
	}

	numFrames := (len(signal)-windowSize)/hopSize + 1
	if numFrames <= 0 {
		return nil, fmt.Errorf("signal too short for given window size and hop size")
	}

	// Positive frequencies only
	freqBins := windowSize/2 + 1

	magnitude := make([][]float64, numFrames)
	for i := 0; i < numFrames; i++ {
		magnitude[i] = make([]float64, freqBins)
	}

	numWorkers := s.getOptimalWorkerCount(numFrames)
	if numWorkers < 1 {
		numWorkers = 1
	}

	type frameJob struct {
		frameIdx int
		startIdx int
		endIdx   int
	}

	jobs := make(chan frameJob, numFrames)

	var wg sync.WaitGroup

	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			// Scratch frame buffer from the engine, held for the worker's
			// lifetime and released on every exit path
			frameBuffer, release := s.eng.AcquireVector(windowSize)
			defer release()

			for job := range jobs {
				if job.endIdx > len(signal) {
					continue
				}

				copy(frameBuffer, signal[job.startIdx:job.endIdx])

				if window != nil {
					if err := window.ApplyInPlace(frameBuffer); err != nil {
						continue
					}
				}

				fftResult := s.fft.Compute(frameBuffer)

				for i := 0; i < freqBins; i++ {
					magnitude[job.frameIdx][i] = cmplx.Abs(fftResult[i])
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for frameIdx := 0; frameIdx < numFrames; frameIdx++ {
			startIdx := frameIdx * hopSize
			endIdx := startIdx + windowSize

			if endIdx <= len(signal) {
				jobs <- frameJob{
					frameIdx: frameIdx,
					startIdx: startIdx,
					endIdx:   endIdx,
				}
			}
		}
	}()

	wg.Wait()

	result := &STFTResult{
		Magnitude:      magnitude,
		TimeFrames:     numFrames,
		FreqBins:       freqBins,
		SampleRate:     sampleRate,
		WindowSize:     windowSize,
		HopSize:        hopSize,
		FreqResolution: float64(sampleRate) / float64(windowSize),
		TimeResolution: float64(hopSize) / float64(sampleRate),
	}

	return result, nil
}

// getOptimalWorkerCount determines the optimal number of workers based on workload
func (s *STFT) getOptimalWorkerCount(numFrames int) int {
	numCPU := runtime.NumCPU()

	if numFrames < 100 {
		return min(max(numCPU/2, 1), numFrames)
	}

	if numFrames < 1000 {
		return min(numCPU, 8)
	}

	return numCPU
}
