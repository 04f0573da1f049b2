// SPDX-License-Identifier: MIT
package audio

import (
	"math"
	"sync/atomic"
)

// DefaultGateThreshold is roughly -60 dBFS.
const DefaultGateThreshold = 0.001

// Gate tracks the peak of the most recent capture block and reports
// whether it crossed a threshold. Process runs on the audio thread; Open is
// read from the poll loop.
type Gate struct {
	threshold atomic.Uint32 // float32 bits
	peak      atomic.Uint32 // float32 bits
}

func NewGate(threshold float64) *Gate {
	g := &Gate{}
	g.SetThreshold(threshold)
	return g
}

// SetThreshold sets the open threshold, clamped to [0, 1].
func (g *Gate) SetThreshold(threshold float64) {
	threshold = min(max(threshold, 0), 1)
	g.threshold.Store(math.Float32bits(float32(threshold)))
}

func (g *Gate) Threshold() float64 {
	return float64(math.Float32frombits(g.threshold.Load()))
}

// Process records the block peak. It does not allocate.
func (g *Gate) Process(block []float32) {
	var peak float32
	for _, s := range block {
		// Clearing the sign bit is abs without a branch.
		a := math.Float32frombits(math.Float32bits(s) &^ (1 << 31))
		peak = max(peak, a)
	}
	g.peak.Store(math.Float32bits(peak))
}

// Peak returns the last block peak in [0, 1].
func (g *Gate) Peak() float64 {
	return float64(math.Float32frombits(g.peak.Load()))
}

// Open reports whether the last block peaked above the threshold.
func (g *Gate) Open() bool {
	return math.Float32frombits(g.peak.Load()) > math.Float32frombits(g.threshold.Load())
}
