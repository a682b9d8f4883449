package audio

import (
	"errors"
	"math"
	"sync"
	"time"
)

// Errors
var (
	ErrAlreadyStarted = errors.New("audio capture already started")
	ErrInvalidConfig  = errors.New("buffer size and sample rate must be positive")
)

// fullScale is the largest magnitude a 16-bit sample can carry.
const fullScale = 32767.0

// Block is one fixed-size chunk of mono signed 16-bit samples at a
// known sample rate. Blocks are consumed once and not retained.
type Block struct {
	Samples    []int16
	SampleRate int
}

// Capturer supplies a continuous stream of sample blocks.
//
// Blocks are delivered in capture order on the channel returned by
// Blocks; the channel closes when capture stops. Stop is an idempotent
// no-op when capture is not running, and a stopped capturer may be
// started again.
type Capturer interface {
	Start() error
	Stop() error
	Blocks() <-chan Block
	IsCapturing() bool
}

// SineCapturer is a synthetic Capturer producing a clean sine wave.
// It stands in for the microphone in tests and in demo mode.
type SineCapturer struct {
	frequency  float64
	amplitude  float64
	bufferSize int
	sampleRate int

	mu        sync.Mutex
	capturing bool
	blocks    chan Block
	stop      chan struct{}
	done      chan struct{}
	phase     uint64
}

// NewSineCapturer creates a synthetic capturer emitting a sine wave at
// the given frequency, at half of full scale.
func NewSineCapturer(frequency float64, bufferSize, sampleRate int) *SineCapturer {
	return &SineCapturer{
		frequency:  frequency,
		amplitude:  0.5,
		bufferSize: bufferSize,
		sampleRate: sampleRate,
	}
}

// Start begins producing blocks.
func (c *SineCapturer) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.capturing {
		return ErrAlreadyStarted
	}
	if c.bufferSize <= 0 || c.sampleRate <= 0 {
		return ErrInvalidConfig
	}
	c.blocks = make(chan Block, 8)
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	c.capturing = true
	go c.run(c.blocks, c.stop, c.done)
	return nil
}

func (c *SineCapturer) run(blocks chan Block, stop, done chan struct{}) {
	defer close(done)
	defer close(blocks)

	// Pace delivery like a real device: one block per block-duration.
	interval := time.Second * time.Duration(c.bufferSize) / time.Duration(c.sampleRate)
	if interval <= 0 {
		interval = time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		samples := make([]int16, c.bufferSize)
		for i := range samples {
			t := float64(c.phase+uint64(i)) / float64(c.sampleRate)
			samples[i] = int16(c.amplitude * fullScale * math.Sin(2*math.Pi*c.frequency*t))
		}
		c.phase += uint64(c.bufferSize)
		select {
		case <-stop:
			return
		case blocks <- Block{Samples: samples, SampleRate: c.sampleRate}:
		}
	}
}

// Stop ends capture and closes the block channel. Stopping a capturer
// that is not running is a no-op.
func (c *SineCapturer) Stop() error {
	c.mu.Lock()
	if !c.capturing {
		c.mu.Unlock()
		return nil
	}
	c.capturing = false
	close(c.stop)
	done := c.done
	c.mu.Unlock()

	<-done
	return nil
}

// Blocks returns the channel blocks are delivered on. Valid after Start.
func (c *SineCapturer) Blocks() <-chan Block {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.blocks
}

// IsCapturing reports whether the capturer is running.
func (c *SineCapturer) IsCapturing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.capturing
}
