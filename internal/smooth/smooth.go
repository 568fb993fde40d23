// Package smooth provides the one-pole parameter smoother used for the main
// output gain, plus decibel helpers.
package smooth

import (
	"math"

	"github.com/cwbudde/algo-dsp/dsp/core"
)

// MinusInfinityDB is the level at or below which DBToGain returns silence.
const MinusInfinityDB = -100.0

// settleLog is ln(0.001): a smoother reset with time t covers 99.9% of a step
// in t seconds.
const settleLog = -6.907755278982137

// settleThreshold snaps the smoother onto its target once it is this close.
const settleThreshold = 1e-7

// DBToGain converts decibels to a linear amplitude gain. Values at or below
// MinusInfinityDB map to 0.
func DBToGain(db float64) float64 {
	if db <= MinusInfinityDB {
		return 0
	}
	return core.DBToLinear(db)
}

// GainToDB converts a linear gain to decibels, flooring at MinusInfinityDB.
func GainToDB(gain float64) float64 {
	if gain <= 0 {
		return MinusInfinityDB
	}
	return max(core.LinearToDB(gain), MinusInfinityDB)
}

// Smoother is an exponential (one-pole) glide toward a target value:
// y += (target - y) * (1 - coeff).
type Smoother struct {
	coeff   float64
	current float64
	target  float64
	active  bool
}

// New returns a smoother settled at initial.
func New(sampleRate, seconds, initial float64) *Smoother {
	s := &Smoother{current: initial, target: initial}
	s.Reset(sampleRate, seconds)
	return s
}

// Reset sets the glide time and jumps to the current target.
func (s *Smoother) Reset(sampleRate, seconds float64) {
	if sampleRate <= 0 || seconds <= 0 {
		s.coeff = 0
	} else {
		s.coeff = math.Exp(settleLog / (sampleRate * seconds))
	}
	s.current = s.target
	s.active = false
}

// SetTarget starts gliding toward target.
func (s *Smoother) SetTarget(target float64) {
	if target == s.target {
		return
	}
	s.target = target
	s.active = true
}

// Target returns the value being glided toward.
func (s *Smoother) Target() float64 { return s.target }

// Current returns the last produced value without advancing.
func (s *Smoother) Current() float64 { return s.current }

// IsSmoothing reports whether the value is still moving.
func (s *Smoother) IsSmoothing() bool { return s.active }

// Next advances one sample and returns the new value.
func (s *Smoother) Next() float64 {
	if !s.active {
		return s.current
	}

	s.current += (s.target - s.current) * (1 - s.coeff)
	if math.Abs(s.target-s.current) < settleThreshold {
		s.current = s.target
		s.active = false
	}

	return core.FlushDenormals(s.current)
}
