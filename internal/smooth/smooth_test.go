package smooth

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tphakala/go-audio-stretch/internal/testutil"
)

func TestDBToGain(t *testing.T) {
	testCases := []struct {
		db   float64
		want float64
	}{
		{0, 1},
		{-6.0205999, 0.5},
		{6.0205999, 2},
		{-100, 0},
		{-144, 0},
	}
	for _, tc := range testCases {
		assert.InDelta(t, tc.want, DBToGain(tc.db), 1e-6, "db=%v", tc.db)
	}
}

func TestGainToDB(t *testing.T) {
	assert.InDelta(t, 0.0, GainToDB(1), testutil.DBTolerance)
	assert.InDelta(t, -20.0, GainToDB(0.1), testutil.DBTolerance)
	assert.InDelta(t, MinusInfinityDB, GainToDB(0), 0)
	assert.InDelta(t, MinusInfinityDB, GainToDB(1e-9), 0)
}

func TestSmoother_ReachesTargetWithinTime(t *testing.T) {
	const sr = 48000.0
	s := New(sr, 0.5, 0)
	s.SetTarget(1)
	assert.True(t, s.IsSmoothing())

	values := make([]float64, int(sr*0.5))
	for i := range values {
		values[i] = s.Next()
	}

	testutil.AssertMonotonic(t, values)
	testutil.AssertAllInRange(t, values, 0, 1)
	assert.InDelta(t, 1.0, values[len(values)-1], 1.5e-3)

	for range int(sr) {
		s.Next()
	}
	assert.False(t, s.IsSmoothing())
	assert.InDelta(t, 1.0, s.Current(), 0)
}

func TestSmoother_HalfwayAtExpectedTime(t *testing.T) {
	const sr = 1000.0
	s := New(sr, 1, 0)
	s.SetTarget(1)

	// 99.9% in 1 s means 1 - 10^-1.5 after half a second.
	var v float64
	for range 500 {
		v = s.Next()
	}
	assert.InDelta(t, 1-math.Pow(10, -1.5), v, 1e-3)
}

func TestSmoother_ResetJumpsToTarget(t *testing.T) {
	s := New(44100, 0.5, 1)
	s.SetTarget(0.25)
	s.Next()

	s.Reset(44100, 0.5)
	assert.InDelta(t, 0.25, s.Current(), 0)
	assert.False(t, s.IsSmoothing())
	assert.InDelta(t, 0.25, s.Next(), 0)
}

func TestSmoother_ZeroTimeIsImmediate(t *testing.T) {
	s := New(44100, 0, 0)
	s.SetTarget(0.8)
	assert.InDelta(t, 0.8, s.Next(), 0)
}
