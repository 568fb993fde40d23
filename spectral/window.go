package spectral

import (
	"fmt"
	"strings"

	"github.com/cwbudde/algo-dsp/dsp/window"
)

// WindowType selects the analysis window applied before every FFT.
type WindowType int

const (
	WindowRectangular WindowType = iota
	WindowHamming
	WindowHann
	WindowBlackman
	WindowBlackmanHarris
)

// DefaultWindow is used when no window type has been configured.
const DefaultWindow = WindowHamming

var windowNames = map[WindowType]string{
	WindowRectangular:    "rectangular",
	WindowHamming:        "hamming",
	WindowHann:           "hann",
	WindowBlackman:       "blackman",
	WindowBlackmanHarris: "blackman-harris",
}

var windowKinds = map[WindowType]window.Type{
	WindowRectangular:    window.TypeRectangular,
	WindowHamming:        window.TypeHamming,
	WindowHann:           window.TypeHann,
	WindowBlackman:       window.TypeBlackman,
	WindowBlackmanHarris: window.TypeBlackmanHarris4Term,
}

func (w WindowType) String() string {
	if name, ok := windowNames[w]; ok {
		return name
	}
	return fmt.Sprintf("WindowType(%d)", int(w))
}

// Valid reports whether w is a known window type.
func (w WindowType) Valid() bool {
	_, ok := windowKinds[w]
	return ok
}

// ParseWindowType parses a window name as printed by String.
func ParseWindowType(name string) (WindowType, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for w, n := range windowNames {
		if n == name {
			return w, nil
		}
	}
	return 0, fmt.Errorf("unknown window type %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (w WindowType) MarshalText() ([]byte, error) {
	if !w.Valid() {
		return nil, fmt.Errorf("unknown window type %d", int(w))
	}
	return []byte(w.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (w *WindowType) UnmarshalText(text []byte) error {
	parsed, err := ParseWindowType(string(text))
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}

// coefficients returns a periodic window of length n.
func (w WindowType) coefficients(n int) []float64 {
	kind, ok := windowKinds[w]
	if !ok {
		kind = windowKinds[DefaultWindow]
	}
	return window.Generate(kind, n, window.WithPeriodic())
}
