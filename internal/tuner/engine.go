package tuner

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fiddlekit/fiddletune/internal/audio"
	"github.com/fiddlekit/fiddletune/internal/pitch"
	"github.com/fiddlekit/fiddletune/internal/tuning"
)

// ErrAlreadyListening is returned when Start is called on a running engine.
var ErrAlreadyListening = errors.New("tuner already listening")

// Config carries the engine settings.
type Config struct {
	// String is the reference pitch to tune against. Defaults to A.
	String tuning.String
	// MaxListen auto-stops the engine after a period of continuous
	// listening. Zero disables the timer.
	MaxListen time.Duration
	// Logger receives lifecycle and estimator events. Defaults to a nop.
	Logger *zap.Logger
}

// Engine drives the capture → estimate → evaluate pipeline. It pulls
// blocks from a Capturer, estimates each block's fundamental, skips
// undetected (zero) estimates so the consumer keeps its last reading,
// and delivers tuning results in block order on a buffered channel
// that is safe to drain from any goroutine.
type Engine struct {
	capturer  audio.Capturer
	logger    *zap.Logger
	maxListen time.Duration

	mu        sync.Mutex
	current   tuning.String
	listening bool
	stop      chan struct{}
	done      chan struct{}
	results   chan tuning.Result
}

// New creates an engine around the given capturer.
func New(capturer audio.Capturer, cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	current := cfg.String
	if current.Frequency <= 0 {
		current = tuning.DefaultString
	}
	return &Engine{
		capturer:  capturer,
		logger:    logger,
		maxListen: cfg.MaxListen,
		current:   current,
	}
}

// Start begins capture and the processing loop.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.listening {
		return ErrAlreadyListening
	}
	if err := e.capturer.Start(); err != nil {
		return fmt.Errorf("start capture: %w", err)
	}
	e.results = make(chan tuning.Result, 16)
	e.stop = make(chan struct{})
	e.done = make(chan struct{})
	e.listening = true
	go e.run(e.capturer.Blocks(), e.results, e.stop, e.done)
	e.logger.Info("listening started",
		zap.String("string", e.current.Name),
		zap.Float64("reference_hz", e.current.Frequency))
	return nil
}

func (e *Engine) run(blocks <-chan audio.Block, results chan tuning.Result, stop, done chan struct{}) {
	defer close(done)
	defer close(results)

	var timeout <-chan time.Time
	if e.maxListen > 0 {
		timer := time.NewTimer(e.maxListen)
		defer timer.Stop()
		timeout = timer.C
	}

	for {
		select {
		case <-stop:
			return
		case <-timeout:
			e.logger.Info("listening window elapsed", zap.Duration("max_listen", e.maxListen))
			// Stop waits on done, so it must run outside this goroutine.
			go e.Stop()
			return
		case block, ok := <-blocks:
			if !ok {
				e.logger.Info("capture ended")
				go e.Stop()
				return
			}
			freq, err := pitch.Estimate(block.Samples, block.SampleRate)
			if err != nil {
				e.logger.Warn("pitch estimate rejected", zap.Error(err))
				continue
			}
			if freq == 0 {
				// No pitch in this block; the consumer keeps its
				// previous reading.
				continue
			}
			res, err := tuning.Evaluate(freq, e.CurrentString().Frequency)
			if err != nil {
				e.logger.Warn("evaluation rejected", zap.Error(err))
				continue
			}
			select {
			case <-stop:
				return
			case results <- res:
			}
		}
	}
}

// Stop ends listening at the next block boundary and stops the
// capturer. Stopping an engine that is not listening is a no-op, so
// repeated or concurrent calls are safe.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.listening {
		e.mu.Unlock()
		return
	}
	e.listening = false
	close(e.stop)
	done := e.done
	e.mu.Unlock()

	if err := e.capturer.Stop(); err != nil {
		e.logger.Warn("stop capture", zap.Error(err))
	}
	<-done
	e.logger.Info("listening stopped")
}

// Wait blocks until the processing loop exits (manual stop, auto-stop,
// or capture ending). It returns immediately if the engine never started.
func (e *Engine) Wait() {
	e.mu.Lock()
	done := e.done
	e.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Results returns the channel tuning results are delivered on, in the
// order their sample blocks were captured. Valid after Start; the
// channel closes when listening stops.
func (e *Engine) Results() <-chan tuning.Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.results
}

// IsListening reports whether the engine is running.
func (e *Engine) IsListening() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.listening
}

// SetString selects the reference string for subsequent evaluations.
// Strings with a non-positive frequency are ignored.
func (e *Engine) SetString(s tuning.String) {
	if s.Frequency <= 0 {
		return
	}
	e.mu.Lock()
	e.current = s
	e.mu.Unlock()
	e.logger.Info("reference selected",
		zap.String("string", s.Name),
		zap.Float64("reference_hz", s.Frequency))
}

// CurrentString returns the active reference string.
func (e *Engine) CurrentString() tuning.String {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}
