package tuner

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/fiddlekit/fiddletune/internal/audio"
	"github.com/fiddlekit/fiddletune/internal/tuning"
)

func mustString(t *testing.T, name string) tuning.String {
	t.Helper()
	s, ok := tuning.StringByName(name)
	if !ok {
		t.Fatalf("no reference string %q", name)
	}
	return s
}

func sineBlock(freq float64, n, sampleRate int) audio.Block {
	samples := make([]int16, n)
	for i := range samples {
		ts := float64(i) / float64(sampleRate)
		samples[i] = int16(0.8 * 32767 * math.Sin(2*math.Pi*freq*ts))
	}
	return audio.Block{Samples: samples, SampleRate: sampleRate}
}

// scriptedCapturer hands out a fixed sequence of blocks and then closes
// its channel, as if the device stopped.
type scriptedCapturer struct {
	script []audio.Block

	mu        sync.Mutex
	capturing bool
	blocks    chan audio.Block
}

func (c *scriptedCapturer) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.capturing {
		return audio.ErrAlreadyStarted
	}
	ch := make(chan audio.Block, len(c.script))
	for _, b := range c.script {
		ch <- b
	}
	close(ch)
	c.blocks = ch
	c.capturing = true
	return nil
}

func (c *scriptedCapturer) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.capturing = false
	return nil
}

func (c *scriptedCapturer) Blocks() <-chan audio.Block {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.blocks
}

func (c *scriptedCapturer) IsCapturing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.capturing
}

func TestEngineEndToEnd(t *testing.T) {
	c := audio.NewSineCapturer(440.0, 2048, 44100)
	e := New(c, Config{String: mustString(t, "A")})
	if err := e.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer e.Stop()

	select {
	case res := <-e.Results():
		if res.Frequency < 438 || res.Frequency > 442 {
			t.Errorf("frequency = %.2f Hz, want within [438, 442]", res.Frequency)
		}
		if math.Abs(res.Cents) > 8 {
			t.Errorf("cents = %.2f, want within ±8", res.Cents)
		}
		if res.Status != tuning.StatusInTune {
			t.Errorf("status = %v, want in tune", res.Status)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no result")
	}
}

func TestEngineResultsInOrder(t *testing.T) {
	freqs := []float64{196.0, 293.66, 440.0, 659.25}
	var script []audio.Block
	for _, f := range freqs {
		script = append(script, sineBlock(f, 2048, 44100))
	}

	e := New(&scriptedCapturer{script: script}, Config{String: mustString(t, "A")})
	if err := e.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	var got []float64
	for res := range e.Results() {
		got = append(got, res.Frequency)
	}
	e.Stop()

	if len(got) != len(freqs) {
		t.Fatalf("got %d results, want %d (%v)", len(got), len(freqs), got)
	}
	for i, want := range freqs {
		if math.Abs(got[i]-want) > 5 {
			t.Errorf("result %d = %.2f Hz, want ~%.2f (order broken?)", i, got[i], want)
		}
	}
}

func TestEngineSkipsUndetectedBlocks(t *testing.T) {
	script := []audio.Block{
		{Samples: make([]int16, 2048), SampleRate: 44100}, // silence
		sineBlock(440.0, 2048, 44100),
	}
	e := New(&scriptedCapturer{script: script}, Config{String: mustString(t, "A")})
	if err := e.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	var got []tuning.Result
	for res := range e.Results() {
		got = append(got, res)
	}
	e.Stop()

	if len(got) != 1 {
		t.Fatalf("got %d results, want 1 (silence must not produce a reading)", len(got))
	}
	if math.Abs(got[0].Frequency-440.0) > 5 {
		t.Errorf("frequency = %.2f Hz, want ~440", got[0].Frequency)
	}
}

func TestEngineStopIdempotent(t *testing.T) {
	c := audio.NewSineCapturer(440.0, 512, 44100)
	e := New(c, Config{})

	e.Stop() // never started: no-op

	if err := e.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	e.Stop()
	e.Stop()
	if e.IsListening() {
		t.Fatal("still listening after Stop")
	}
	if c.IsCapturing() {
		t.Fatal("capturer still running after Stop")
	}
}

func TestEngineRestart(t *testing.T) {
	c := audio.NewSineCapturer(440.0, 2048, 44100)
	e := New(c, Config{String: mustString(t, "A")})

	for round := 0; round < 2; round++ {
		if err := e.Start(); err != nil {
			t.Fatalf("round %d Start: %v", round, err)
		}
		select {
		case _, ok := <-e.Results():
			if !ok {
				t.Fatalf("round %d: results closed early", round)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("round %d: no result", round)
		}
		e.Stop()
	}
}

func TestEngineAutoStop(t *testing.T) {
	c := audio.NewSineCapturer(440.0, 512, 44100)
	e := New(c, Config{String: mustString(t, "A"), MaxListen: 50 * time.Millisecond})
	if err := e.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	go func() {
		for range e.Results() {
		}
	}()

	e.Wait()

	// Auto-stop finishes on its own goroutine just after the loop exits.
	deadline := time.Now().Add(2 * time.Second)
	for e.IsListening() || c.IsCapturing() {
		if time.Now().After(deadline) {
			t.Fatal("engine did not auto-stop")
		}
		time.Sleep(10 * time.Millisecond)
	}

	e.Stop() // still a no-op afterwards
}

func TestEngineSetStringAppliesToLaterResults(t *testing.T) {
	c := audio.NewSineCapturer(440.0, 1024, 44100)
	e := New(c, Config{String: mustString(t, "A")})
	if err := e.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer e.Stop()

	select {
	case res := <-e.Results():
		if res.Status != tuning.StatusInTune {
			t.Fatalf("against A: status = %v, want in tune", res.Status)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no result")
	}

	// A 440 Hz tone against the E string sits several semitones flat.
	e.SetString(mustString(t, "E"))
	deadline := time.After(2 * time.Second)
	for {
		select {
		case res, ok := <-e.Results():
			if !ok {
				t.Fatal("results closed before re-evaluation")
			}
			if res.Status == tuning.StatusFlat {
				if res.Cents > -600 {
					t.Errorf("cents = %.1f, want far below -600", res.Cents)
				}
				return
			}
		case <-deadline:
			t.Fatal("never saw a flat reading against E")
		}
	}
}
