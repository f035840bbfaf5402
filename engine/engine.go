// Package engine owns the process-wide numeric estimation state: the FFT
// backend's worker pool and a pool of reusable scratch vectors. Every call
// into the engine is otherwise a pure function of its inputs, so a single
// lazily-created instance is safe to share across analyses.
package engine

import (
	"runtime"
	"sync"

	"github.com/mjibson/go-dsp/fft"

	"github.com/RyanBlaney/ritmo/logging"
)

// Engine is the shared handle to the numeric backend. Obtain it with Get;
// do not construct it directly.
type Engine struct {
	vectors sync.Pool
}

var (
	mu       sync.Mutex
	instance *Engine
)

// Get returns the shared engine, creating and configuring it on first use.
func Get() *Engine {
	mu.Lock()
	defer mu.Unlock()

	if instance == nil {
		fft.SetWorkerPoolSize(runtime.NumCPU())
		instance = &Engine{
			vectors: sync.Pool{
				New: func() any {
					s := make([]float64, 0, 4096)
					return &s
				},
			},
		}
		logging.Debug("numeric engine initialized", logging.Fields{
			"fft_workers": runtime.NumCPU(),
		})
	}
	return instance
}

// Teardown releases the shared engine and restores the FFT backend to its
// default worker configuration. Safe to call multiple times; the next Get
// re-creates the engine.
func Teardown() {
	mu.Lock()
	defer mu.Unlock()

	if instance != nil {
		fft.SetWorkerPoolSize(0)
		instance = nil
		logging.Debug("numeric engine released")
	}
}

// AcquireVector returns a zeroed scratch vector of length n and a release
// function that must be called on every exit path, typically via defer.
// The vector must not be retained after release.
func (e *Engine) AcquireVector(n int) ([]float64, func()) {
	p := e.vectors.Get().(*[]float64)
	if cap(*p) < n {
		*p = make([]float64, n)
	}
	v := (*p)[:n]
	for i := range v {
		v[i] = 0
	}
	return v, func() {
		e.vectors.Put(p)
	}
}

// FFTReal computes the forward FFT of a real signal through the shared
// backend.
func (e *Engine) FFTReal(x []float64) []complex128 {
	if len(x) == 0 {
		return []complex128{}
	}
	return fft.FFTReal(x)
}

// IFFT computes the inverse FFT through the shared backend.
func (e *Engine) IFFT(x []complex128) []complex128 {
	if len(x) == 0 {
		return []complex128{}
	}
	return fft.IFFT(x)
}
