package refdata

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// IndexWeights tracks index constituent weights and an aggregate weighted
// order-flow delta, exposed read-only to the dashboard.
type IndexWeights struct {
	mu      sync.RWMutex
	weights map[string]float64 // constituent symbol -> weight
	deltas  map[string]float64
}

// LoadIndexWeights reads {"<INDEX>": {"SYMBOL": weight, ...}} and keeps the
// section for the named index.
func LoadIndexWeights(path, index string) (*IndexWeights, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read index weights: %w", err)
	}

	var raw map[string]map[string]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse index weights: %w", err)
	}

	section, ok := raw[index]
	if !ok {
		return nil, fmt.Errorf("index %q not present in %s", index, path)
	}

	return &IndexWeights{
		weights: section,
		deltas:  make(map[string]float64, len(section)),
	}, nil
}

// NewIndexWeights builds an in-memory table (test and bootstrap helper).
func NewIndexWeights(weights map[string]float64) *IndexWeights {
	if weights == nil {
		weights = map[string]float64{}
	}
	return &IndexWeights{weights: weights, deltas: make(map[string]float64)}
}

// Has reports whether a symbol is a tracked constituent.
func (w *IndexWeights) Has(symbol string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.weights[symbol]
	return ok
}

// SetDelta records the latest order-flow delta for one constituent.
func (w *IndexWeights) SetDelta(symbol string, delta float64) {
	w.mu.Lock()
	if _, ok := w.weights[symbol]; ok {
		w.deltas[symbol] = delta
	}
	w.mu.Unlock()
}

// WeightedDelta returns the sum of per-constituent delta x weight.
func (w *IndexWeights) WeightedDelta() float64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	var sum float64
	for sym, d := range w.deltas {
		sum += d * w.weights[sym]
	}
	return sum
}
