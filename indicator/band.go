package indicator

import (
	"fmt"
	"math"
)

const (
	// BandWidthMultiplier is the number of standard deviations between the
	// moving average and either band boundary.
	BandWidthMultiplier = 2
	// minBandSamples is the minimum number of samples required for a sample
	// standard deviation.
	minBandSamples = 2
)

// Band represents a volatility envelope around the moving average of a window.
type Band struct {
	MovingAverage     float64
	StandardDeviation float64
	Lower             float64
	Upper             float64
}

// ComputeBand calculates the band for the provided price window. The standard
// deviation is the sample standard deviation (n-1 denominator).
func ComputeBand(window []float64) (*Band, error) {
	n := len(window)
	if n < minBandSamples {
		return nil, fmt.Errorf("band requires at least %d samples, got %d", minBandSamples, n)
	}

	var sum float64
	for idx := range window {
		sum += window[idx]
	}

	mean := sum / float64(n)

	var squares float64
	for idx := range window {
		diff := window[idx] - mean
		squares += diff * diff
	}

	std := math.Sqrt(squares / float64(n-1))

	band := &Band{
		MovingAverage:     mean,
		StandardDeviation: std,
		Lower:             mean - BandWidthMultiplier*std,
		Upper:             mean + BandWidthMultiplier*std,
	}

	return band, nil
}

// Width returns the distance between the upper and lower boundaries.
func (b *Band) Width() float64 {
	return b.Upper - b.Lower
}

// IsAbove checks whether the provided price closed above the upper boundary.
func (b *Band) IsAbove(price float64) bool {
	return price > b.Upper
}

// IsBelow checks whether the provided price closed below the lower boundary.
func (b *Band) IsBelow(price float64) bool {
	return price < b.Lower
}
