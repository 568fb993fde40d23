package stretch

import (
	"errors"
	"fmt"
	"log"

	"github.com/tphakala/go-audio-stretch/spectral"
)

// Config holds the engine configuration.
type Config struct {
	// Channels is the number of output channels, one stretcher each.
	Channels int

	// FFTSize is the initial synthesis block size in frames.
	FFTSize int

	// PlayRate is the stretch ratio. 8 makes the output eight times longer
	// than the input.
	PlayRate float64

	// Window is the analysis window of every stretcher.
	Window spectral.WindowType

	// OnsetSensitivity in [0,1]; 0 disables onset detection.
	OnsetSensitivity float64

	// CrossfadeFrames is the length of the blend applied when the FFT size
	// changes while streaming.
	CrossfadeFrames int

	// MaxBlockFrames hints at the largest RenderBlock request so that
	// scratch space is reserved by Prepare. Larger requests still work but
	// allocate on first use.
	MaxBlockFrames int

	// NewStretcher creates channel stretchers. Nil selects spectral.New.
	NewStretcher StretcherFactory

	// NewMixer creates the binaural mixer. Nil selects binaural.New.
	NewMixer MixerFactory

	// Logger receives structural events (FFT size changes, crossfades,
	// failed opens). Nil disables logging.
	Logger *log.Logger
}

// DefaultConfig returns a stereo configuration with a 4096-frame FFT and
// no stretching.
func DefaultConfig() Config {
	return Config{
		Channels:        2,
		FFTSize:         defaultFFTSize,
		PlayRate:        1,
		Window:          spectral.DefaultWindow,
		CrossfadeFrames: CrossfadeFrames,
		MaxBlockFrames:  defaultMaxBlockFrames,
	}
}

// Common errors returned by the engine.
var (
	// ErrInvalidConfig indicates invalid configuration parameters.
	ErrInvalidConfig = errors.New("invalid engine configuration")

	// ErrInvalidFFTSize indicates an FFT size below the supported minimum.
	ErrInvalidFFTSize = errors.New("invalid FFT size")

	// ErrNoInput indicates an operation that needs an input source.
	ErrNoInput = errors.New("no input source")

	// ErrOpenFailed indicates the input could not be opened.
	ErrOpenFailed = errors.New("could not open audio file")
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Channels < 1 || c.Channels > maxChannels {
		return fmt.Errorf("%w: channels must be 1-%d, got %d", ErrInvalidConfig, maxChannels, c.Channels)
	}

	if c.FFTSize < minFFTSize {
		return fmt.Errorf("%w: %d (minimum %d)", ErrInvalidFFTSize, c.FFTSize, minFFTSize)
	}

	if !(c.PlayRate > 0) {
		return fmt.Errorf("%w: play rate must be positive", ErrInvalidConfig)
	}

	if !c.Window.Valid() {
		return fmt.Errorf("%w: unknown window type %d", ErrInvalidConfig, int(c.Window))
	}

	if c.OnsetSensitivity < 0 || c.OnsetSensitivity > 1 {
		return fmt.Errorf("%w: onset sensitivity must be in [0,1]", ErrInvalidConfig)
	}

	if c.CrossfadeFrames < 1 {
		return fmt.Errorf("%w: crossfade length must be at least 1 frame", ErrInvalidConfig)
	}

	if c.MaxBlockFrames < 0 {
		return fmt.Errorf("%w: max block frames must not be negative", ErrInvalidConfig)
	}

	return nil
}
