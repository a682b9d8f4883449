package audio

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/gordonklaus/portaudio"
)

// ErrInvalidTone is returned for a non-positive tone frequency.
var ErrInvalidTone = errors.New("tone frequency must be positive")

const (
	playbackBufferSize = 1024
	toneAmplitude      = 0.5
)

// PlayTone synthesizes a sine wave at the given frequency and plays it
// through the default output device for the given duration. The device
// is acquired, written to, and released before returning; there is no
// interaction with capture or pitch detection.
func PlayTone(frequency float64, duration time.Duration, sampleRate int) error {
	if frequency <= 0 {
		return ErrInvalidTone
	}
	if sampleRate <= 0 {
		return ErrInvalidConfig
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initialize portaudio: %w", err)
	}
	defer portaudio.Terminate()

	out := make([]int16, playbackBufferSize)
	stream, err := portaudio.OpenDefaultStream(0, 1, float64(sampleRate), len(out), out)
	if err != nil {
		return fmt.Errorf("open output stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("start output stream: %w", err)
	}
	defer stream.Stop()

	total := int(float64(sampleRate) * duration.Seconds())
	for written := 0; written < total; written += len(out) {
		for i := range out {
			t := float64(written+i) / float64(sampleRate)
			out[i] = int16(toneAmplitude * fullScale * math.Sin(2*math.Pi*frequency*t))
		}
		if err := stream.Write(); err != nil {
			return fmt.Errorf("write output stream: %w", err)
		}
	}
	return nil
}
