package audio

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// PortAudioCapturer captures mono 16-bit blocks from the default input
// device. A producer goroutine blocks on the stream, so blocks arrive
// on the channel in capture order and are never merged.
//
// A device that cannot be opened (missing permission, hardware busy)
// surfaces as a Start error; it is never mistaken for silence.
type PortAudioCapturer struct {
	bufferSize int
	sampleRate int

	mu        sync.Mutex
	capturing bool
	stream    *portaudio.Stream
	blocks    chan Block
	stop      chan struct{}
	done      chan struct{}
}

// NewPortAudioCapturer creates a capturer reading fixed-size blocks
// from the default input device.
func NewPortAudioCapturer(bufferSize, sampleRate int) *PortAudioCapturer {
	return &PortAudioCapturer{
		bufferSize: bufferSize,
		sampleRate: sampleRate,
	}
}

// Start opens the default input stream and begins delivering blocks.
func (c *PortAudioCapturer) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.capturing {
		return ErrAlreadyStarted
	}
	if c.bufferSize <= 0 || c.sampleRate <= 0 {
		return ErrInvalidConfig
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initialize portaudio: %w", err)
	}
	in := make([]int16, c.bufferSize)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(c.sampleRate), len(in), in)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("open input stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("start input stream: %w", err)
	}

	c.stream = stream
	c.blocks = make(chan Block, 8)
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	c.capturing = true
	go c.run(stream, in, c.blocks, c.stop, c.done)
	return nil
}

func (c *PortAudioCapturer) run(stream *portaudio.Stream, in []int16, blocks chan Block, stop, done chan struct{}) {
	defer close(done)
	defer close(blocks)
	for {
		select {
		case <-stop:
			return
		default:
		}
		// Read fails once the stream is stopped underneath us; that is
		// the shutdown path.
		if err := stream.Read(); err != nil {
			return
		}
		samples := make([]int16, len(in))
		copy(samples, in)
		select {
		case <-stop:
			return
		case blocks <- Block{Samples: samples, SampleRate: c.sampleRate}:
		}
	}
}

// Stop ends capture at the next block boundary, releases the device and
// closes the block channel. Stopping when not capturing is a no-op.
func (c *PortAudioCapturer) Stop() error {
	c.mu.Lock()
	if !c.capturing {
		c.mu.Unlock()
		return nil
	}
	c.capturing = false
	close(c.stop)
	stream := c.stream
	done := c.done
	c.stream = nil
	c.mu.Unlock()

	stopErr := stream.Stop()
	<-done
	closeErr := stream.Close()
	termErr := portaudio.Terminate()

	if stopErr != nil {
		return fmt.Errorf("stop input stream: %w", stopErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close input stream: %w", closeErr)
	}
	if termErr != nil {
		return fmt.Errorf("terminate portaudio: %w", termErr)
	}
	return nil
}

// Blocks returns the channel blocks are delivered on. Valid after Start.
func (c *PortAudioCapturer) Blocks() <-chan Block {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.blocks
}

// IsCapturing reports whether the capturer is running.
func (c *PortAudioCapturer) IsCapturing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.capturing
}
