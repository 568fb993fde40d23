package spectral

import (
	"cmp"
	"math/rand/v2"
	"slices"

	"github.com/tphakala/go-audio-stretch/internal/smooth"
)

// EnvelopePoint is one breakpoint of an Envelope. X is the normalized
// frequency in [0,1] (1 is Nyquist) and Y the gain in dB.
type EnvelopePoint struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y_db"`
}

// Envelope is the breakpoint gain curve used by the FreeFilter stage.
//
// One Envelope is shared by the engine and all of its stretchers. It must
// only be mutated while the engine lock is held; callers that edit a curve
// from the UI should Clone it and hand the copy to the engine.
type Envelope struct {
	Points []EnvelopePoint `yaml:"points"`

	// RandomRate is how many synthesis iterations pass between updates of
	// the random Y offsets. Values below 1 are treated as 1.
	RandomRate int `yaml:"random_rate"`
	// RandomAmount is the maximum random offset, in dB, added to each point.
	RandomAmount float64 `yaml:"random_amount_db"`

	offsets []float64
	rng     *rand.Rand
}

// NewEnvelope returns a flat 0 dB envelope.
func NewEnvelope() *Envelope {
	return &Envelope{
		Points:     []EnvelopePoint{{X: 0, Y: 0}, {X: 1, Y: 0}},
		RandomRate: 8,
	}
}

// Rate returns RandomRate clamped to at least 1.
func (e *Envelope) Rate() int {
	return max(e.RandomRate, 1)
}

// Sort orders the points by X.
func (e *Envelope) Sort() {
	slices.SortStableFunc(e.Points, func(a, b EnvelopePoint) int { return cmp.Compare(a.X, b.X) })
	e.offsets = nil
}

// UpdateRandomState draws new random offsets for every point.
func (e *Envelope) UpdateRandomState() {
	if e.RandomAmount <= 0 {
		clear(e.offsets)
		return
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewPCG(0x6672656566696c74, 0x656e76))
	}
	if len(e.offsets) != len(e.Points) {
		e.offsets = make([]float64, len(e.Points))
	}
	for i := range e.offsets {
		e.offsets[i] = (2*e.rng.Float64() - 1) * e.RandomAmount
	}
}

// ValueAt returns the envelope level in dB at normalized position x, linearly
// interpolated between breakpoints and held flat outside them.
func (e *Envelope) ValueAt(x float64) float64 {
	n := len(e.Points)
	if n == 0 {
		return 0
	}
	if x <= e.Points[0].X {
		return e.y(0)
	}
	if x >= e.Points[n-1].X {
		return e.y(n - 1)
	}

	i := sortSearch(e.Points, x)
	p0, p1 := e.Points[i-1], e.Points[i]
	if p1.X == p0.X {
		return e.y(i)
	}
	t := (x - p0.X) / (p1.X - p0.X)
	return e.y(i-1)*(1-t) + e.y(i)*t
}

// GainAt returns ValueAt converted to a linear gain.
func (e *Envelope) GainAt(x float64) float64 {
	return smooth.DBToGain(e.ValueAt(x))
}

// Clone returns a deep copy without the random state.
func (e *Envelope) Clone() *Envelope {
	if e == nil {
		return nil
	}
	return &Envelope{
		Points:       slices.Clone(e.Points),
		RandomRate:   e.RandomRate,
		RandomAmount: e.RandomAmount,
	}
}

// Equal reports whether two envelopes describe the same curve.
func (e *Envelope) Equal(other *Envelope) bool {
	if e == nil || other == nil {
		return e == other
	}
	return e.RandomRate == other.RandomRate &&
		e.RandomAmount == other.RandomAmount &&
		slices.Equal(e.Points, other.Points)
}

func (e *Envelope) y(i int) float64 {
	if i < len(e.offsets) {
		return e.Points[i].Y + e.offsets[i]
	}
	return e.Points[i].Y
}

// sortSearch returns the first index whose X is greater than x.
func sortSearch(points []EnvelopePoint, x float64) int {
	i, _ := slices.BinarySearchFunc(points, x, func(p EnvelopePoint, x float64) int {
		if p.X <= x {
			return -1
		}
		return 1
	})
	return i
}
