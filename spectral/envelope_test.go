package spectral

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvelope_ValueAt(t *testing.T) {
	env := &Envelope{Points: []EnvelopePoint{{0.2, -12}, {0.6, 0}, {0.8, 6}}}

	assert.InDelta(t, -12.0, env.ValueAt(0), 0)
	assert.InDelta(t, -12.0, env.ValueAt(0.2), 0)
	assert.InDelta(t, -6.0, env.ValueAt(0.4), 1e-12)
	assert.InDelta(t, 3.0, env.ValueAt(0.7), 1e-12)
	assert.InDelta(t, 6.0, env.ValueAt(1), 0)
}

func TestEnvelope_FlatDefault(t *testing.T) {
	env := NewEnvelope()
	for _, x := range []float64{0, 0.25, 0.5, 1} {
		assert.InDelta(t, 1.0, env.GainAt(x), 1e-12)
	}
	assert.Equal(t, 8, env.Rate())

	env.RandomRate = 0
	assert.Equal(t, 1, env.Rate())
}

func TestEnvelope_RandomStateIsBounded(t *testing.T) {
	env := NewEnvelope()
	env.RandomAmount = 3

	for range 20 {
		env.UpdateRandomState()
		for _, x := range []float64{0, 0.5, 1} {
			v := env.ValueAt(x)
			assert.GreaterOrEqual(t, v, -3.0)
			assert.LessOrEqual(t, v, 3.0)
		}
	}

	env.RandomAmount = 0
	env.UpdateRandomState()
	assert.InDelta(t, 0.0, env.ValueAt(0.3), 0)
}

func TestEnvelope_SortAndClone(t *testing.T) {
	env := &Envelope{Points: []EnvelopePoint{{1, 0}, {0, -6}}, RandomRate: 4}
	env.Sort()
	assert.Equal(t, []EnvelopePoint{{0, -6}, {1, 0}}, env.Points)

	c := env.Clone()
	assert.True(t, env.Equal(c))

	c.Points[0].Y = 0
	assert.False(t, env.Equal(c), "clone must not share points")

	var nilEnv *Envelope
	assert.Nil(t, nilEnv.Clone())
	assert.True(t, nilEnv.Equal(nil))
	assert.False(t, env.Equal(nil))
}
