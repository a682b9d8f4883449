package tuning

import (
	"errors"
	"math"
)

// Errors
var (
	ErrNoEstimate       = errors.New("no frequency estimate")
	ErrInvalidReference = errors.New("reference frequency must be positive")
)

// InTuneThreshold is the half-width of the in-tune zone in cents.
// Deviations strictly inside it count as in tune; a deviation of
// exactly 5 cents is already sharp (or flat).
const InTuneThreshold = 5.0

// Status is the tuning verdict for one frequency estimate.
type Status int

const (
	StatusFlat Status = iota
	StatusInTune
	StatusSharp
)

func (s Status) String() string {
	switch s {
	case StatusFlat:
		return "flat"
	case StatusInTune:
		return "in tune"
	case StatusSharp:
		return "sharp"
	default:
		return "unknown"
	}
}

// Result is one tuning reading: the estimated frequency, its deviation
// from the reference in cents, and the verdict.
type Result struct {
	Frequency float64
	Cents     float64
	Status    Status
}

// Cents returns the deviation of estimated from target in cents
// (1200 per octave). A non-positive estimate means the detector found
// no pitch; there is no deviation to report and ErrNoEstimate is
// returned so callers keep their previous reading instead.
func Cents(estimated, target float64) (float64, error) {
	if target <= 0 {
		return 0, ErrInvalidReference
	}
	if estimated <= 0 {
		return 0, ErrNoEstimate
	}
	return 1200 * math.Log2(estimated/target), nil
}

// Evaluate computes the cents deviation of estimated from target and
// classifies it. Same argument contract as Cents.
func Evaluate(estimated, target float64) (Result, error) {
	cents, err := Cents(estimated, target)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Frequency: estimated,
		Cents:     cents,
		Status:    classify(cents),
	}, nil
}

func classify(cents float64) Status {
	switch {
	case cents >= InTuneThreshold:
		return StatusSharp
	case cents <= -InTuneThreshold:
		return StatusFlat
	default:
		return StatusInTune
	}
}
