package pitch

import "errors"

// Errors
var (
	ErrInvalidSampleRate = errors.New("sample rate must be positive")
	ErrBlockTooShort     = errors.New("sample block too short")
)

// Frequency search window in Hz. Periods outside it are never scanned.
const (
	MinFrequency = 80.0
	MaxFrequency = 800.0
)

// fullScale is the magnitude of a full-scale signed 16-bit sample.
const fullScale = 32768.0

// Estimate returns the dominant fundamental frequency of one mono block
// of 16-bit samples, using time-domain autocorrelation. It returns 0 Hz
// when no periodic structure is found: silence, non-periodic input, or
// a block too short to fit any candidate period.
//
// Candidate periods run from sampleRate/800 up to the smaller of
// sampleRate/80 and half the block length, so every correlation sum has
// at least half the block of overlap. Correlation values are left
// unnormalized: longer periods sum fewer terms and are not compensated
// for it, which keeps the octave-selection behavior of the original
// detector intact.
func Estimate(block []int16, sampleRate int) (float64, error) {
	if sampleRate <= 0 {
		return 0, ErrInvalidSampleRate
	}
	if len(block) < 2 {
		return 0, ErrBlockTooShort
	}

	normalized := make([]float64, len(block))
	for i, s := range block {
		normalized[i] = float64(s) / fullScale
	}

	minPeriod := sampleRate / int(MaxFrequency)
	if minPeriod < 1 {
		minPeriod = 1
	}
	maxPeriod := sampleRate / int(MinFrequency)
	if half := len(block) / 2; maxPeriod > half {
		maxPeriod = half
	}

	// Scan in increasing order; only a strictly greater correlation
	// replaces the current best, so ties keep the shortest period.
	bestPeriod := 0
	bestCorr := 0.0
	for p := minPeriod; p <= maxPeriod; p++ {
		corr := 0.0
		for i := 0; i+p < len(normalized); i++ {
			corr += normalized[i] * normalized[i+p]
		}
		if corr > bestCorr {
			bestCorr = corr
			bestPeriod = p
		}
	}

	if bestPeriod == 0 {
		return 0, nil
	}
	return float64(sampleRate) / float64(bestPeriod), nil
}
