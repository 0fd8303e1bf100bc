package shared

import (
	"errors"
	"fmt"
	"sync"
)

// ErrInsufficientData is returned when a window is requested before enough
// price samples have been collected.
var ErrInsufficientData = errors.New("insufficient price data")

// PriceWindow represents the rolling sequence of sampled prices for a pair.
//
// The window does not bound itself, eviction is driven by the caller once a
// decision has been made on the current tick.
type PriceWindow struct {
	data    []float64
	dataMtx sync.RWMutex
}

// NewPriceWindow initializes a new price window with room for the provided
// number of samples.
func NewPriceWindow(capacity int) (*PriceWindow, error) {
	if capacity < 0 {
		return nil, errors.New("price window capacity cannot be negative")
	}

	return &PriceWindow{
		data: make([]float64, 0, capacity+1),
	}, nil
}

// Append adds the provided price sample to the end of the window.
func (w *PriceWindow) Append(price float64) {
	w.dataMtx.Lock()
	w.data = append(w.data, price)
	w.dataMtx.Unlock()
}

// Len returns the number of samples in the window.
func (w *PriceWindow) Len() int {
	w.dataMtx.RLock()
	defer w.dataMtx.RUnlock()

	return len(w.data)
}

// IsWarm checks whether the window holds at least duration samples.
func (w *PriceWindow) IsWarm(duration int) bool {
	return w.Len() >= duration
}

// Latest returns the most recently added sample.
func (w *PriceWindow) Latest() (float64, error) {
	w.dataMtx.RLock()
	defer w.dataMtx.RUnlock()

	if len(w.data) == 0 {
		return 0, fmt.Errorf("no latest price: %w", ErrInsufficientData)
	}

	return w.data[len(w.data)-1], nil
}

// TrailingWindow returns a copy of the last duration samples in arrival order.
func (w *PriceWindow) TrailingWindow(duration int) ([]float64, error) {
	w.dataMtx.RLock()
	defer w.dataMtx.RUnlock()

	if duration <= 0 {
		return nil, fmt.Errorf("window duration must be positive, got %d", duration)
	}

	count := len(w.data)
	if count < duration {
		return nil, fmt.Errorf("window has %d/%d samples: %w", count, duration, ErrInsufficientData)
	}

	set := make([]float64, duration)
	copy(set, w.data[count-duration:])

	return set, nil
}

// EvictOldest removes the oldest sample from the window.
func (w *PriceWindow) EvictOldest() {
	w.dataMtx.Lock()
	defer w.dataMtx.Unlock()

	if len(w.data) == 0 {
		// do nothing.
		return
	}

	// Shift in place so the backing array is reused across ticks.
	copy(w.data, w.data[1:])
	w.data = w.data[:len(w.data)-1]
}
