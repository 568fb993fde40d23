// Package preset saves and restores complete engine settings as YAML, and
// wraps the same document in the base64 state blob hosts store with their
// sessions.
package preset

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	stretch "github.com/tphakala/go-audio-stretch"
	"github.com/tphakala/go-audio-stretch/binaural"
	"github.com/tphakala/go-audio-stretch/spectral"
)

// Version is the preset format version written by Save.
const Version = 1

// Apply retries setters that lose the race with the render goroutine.
const (
	applyAttempts = 500
	applyBackoff  = time.Millisecond
)

// Common errors returned by the package.
var (
	// ErrInvalidPreset indicates a preset that cannot be applied.
	ErrInvalidPreset = errors.New("invalid preset")

	// ErrEngineBusy indicates a setter never got the engine lock.
	ErrEngineBusy = errors.New("engine busy")
)

// Preset is every user-facing engine setting.
type Preset struct {
	Version int `yaml:"version"`

	Rate                 float64             `yaml:"rate"`
	FFTSize              int                 `yaml:"fft_size"`
	Window               spectral.WindowType `yaml:"window"`
	OnsetDetection       float64             `yaml:"onset_detection"`
	MainVolumeDB         float64             `yaml:"main_volume_db"`
	LoopCrossfadeSeconds float64             `yaml:"loop_crossfade_seconds"`
	DryPlayRate          float64             `yaml:"dry_play_rate"`
	PreviewDry           bool                `yaml:"preview_dry"`
	Freeze               bool                `yaml:"freeze"`
	Looping              bool                `yaml:"looping"`
	MaxLoops             int                 `yaml:"max_loops"`
	ClipOutput           bool                `yaml:"clip_output"`
	PlayRange            stretch.Range       `yaml:"play_range"`

	Order      spectral.ProcessOrder      `yaml:"process_order"`
	Parameters spectral.ProcessParameters `yaml:"parameters"`
	Binaural   binaural.Parameters        `yaml:"binaural"`
	FreeFilter *spectral.Envelope         `yaml:"free_filter,omitempty"`
}

// Default returns the settings of a freshly created engine with cfg.
func Default(cfg stretch.Config) Preset {
	return Preset{
		Version:        Version,
		Rate:           cfg.PlayRate,
		FFTSize:        cfg.FFTSize,
		Window:         cfg.Window,
		OnsetDetection: cfg.OnsetSensitivity,
		DryPlayRate:    1,
		PlayRange:      stretch.FullRange,
		Order:          spectral.DefaultProcessOrder(),
		Parameters:     spectral.DefaultProcessParameters(),
		Binaural:       binaural.DefaultParameters(),
	}
}

// Capture reads the current settings of e.
func Capture(e *stretch.Engine) Preset {
	return Preset{
		Version:              Version,
		Rate:                 e.Rate(),
		FFTSize:              e.FFTSize(),
		Window:               e.FFTWindowType(),
		OnsetDetection:       e.OnsetDetection(),
		MainVolumeDB:         e.MainVolumeDB(),
		LoopCrossfadeSeconds: e.LoopCrossfadeSeconds(),
		DryPlayRate:          e.DryPlayRate(),
		PreviewDry:           e.IsPreviewingDry(),
		Freeze:               e.IsFreezing(),
		Looping:              e.IsLoopingEnabled(),
		MaxLoops:             e.MaxLoops(),
		ClipOutput:           e.ClipOutput(),
		PlayRange:            e.PlayRange(),
		Order:                append(spectral.ProcessOrder(nil), e.ProcessOrder()...),
		Parameters:           e.ProcessParameters(),
		Binaural:             e.BinauralParameters(),
		FreeFilter:           e.FreeFilterEnvelope(),
	}
}

// Validate checks that p can be applied.
func (p *Preset) Validate() error {
	if p.Version < 1 || p.Version > Version {
		return fmt.Errorf("%w: unsupported version %d", ErrInvalidPreset, p.Version)
	}
	if !(p.Rate > 0) {
		return fmt.Errorf("%w: rate must be positive", ErrInvalidPreset)
	}
	if p.FFTSize < 16 {
		return fmt.Errorf("%w: FFT size %d too small", ErrInvalidPreset, p.FFTSize)
	}
	if !p.Window.Valid() {
		return fmt.Errorf("%w: unknown window %d", ErrInvalidPreset, int(p.Window))
	}
	if !(p.DryPlayRate > 0) {
		return fmt.Errorf("%w: dry play rate must be positive", ErrInvalidPreset)
	}
	if p.MaxLoops < 0 {
		return fmt.Errorf("%w: max loops must not be negative", ErrInvalidPreset)
	}
	if err := p.Order.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPreset, err)
	}
	return nil
}

// Apply sets every value of p on e. The FFT size change is crossfaded
// when e is streaming.
func (p *Preset) Apply(e *stretch.Engine) error {
	if err := p.Validate(); err != nil {
		return err
	}

	if err := e.SetFFTSize(p.FFTSize, false); err != nil {
		return err
	}
	if err := e.SetProcessOrder(p.Order); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPreset, err)
	}
	e.SetFreeFilterEnvelope(p.FreeFilter)
	e.SetLoopingEnabled(p.Looping)
	e.SetMaxLoops(p.MaxLoops)
	e.SetClipOutput(p.ClipOutput)

	bb := p.Binaural
	setters := []struct {
		name string
		set  func() bool
	}{
		{"rate", func() bool { return e.SetRate(p.Rate) }},
		{"window", func() bool { return e.SetFFTWindowType(p.Window) }},
		{"onset detection", func() bool { return e.SetOnsetDetection(p.OnsetDetection) }},
		{"main volume", func() bool { return e.SetMainVolumeDB(p.MainVolumeDB) }},
		{"loop crossfade", func() bool { return e.SetLoopCrossfadeSeconds(p.LoopCrossfadeSeconds) }},
		{"dry play rate", func() bool { return e.SetDryPlayRate(p.DryPlayRate) }},
		{"dry preview", func() bool { return e.SetPreviewDry(p.PreviewDry) }},
		{"freeze", func() bool { return e.SetFreezing(p.Freeze) }},
		{"play range", func() bool { return e.SetPlayRange(p.PlayRange, false) }},
		{"parameters", func() bool { return e.SetProcessParameters(p.Parameters, &bb) }},
	}
	for _, s := range setters {
		if !retry(s.set) {
			return fmt.Errorf("%w: could not set %s", ErrEngineBusy, s.name)
		}
	}
	return nil
}

func retry(set func() bool) bool {
	for range applyAttempts {
		if set() {
			return true
		}
		time.Sleep(applyBackoff)
	}
	return false
}

// Marshal encodes p as YAML.
func Marshal(p Preset) ([]byte, error) {
	p.Version = Version
	return yaml.Marshal(&p)
}

// Unmarshal decodes and validates a YAML preset. Missing fields keep the
// values of Default(stretch.DefaultConfig()).
func Unmarshal(data []byte) (Preset, error) {
	p := Default(stretch.DefaultConfig())
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Preset{}, fmt.Errorf("%w: %w", ErrInvalidPreset, err)
	}
	if err := p.Validate(); err != nil {
		return Preset{}, err
	}
	return p, nil
}

// Load reads a preset file.
func Load(path string) (Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Preset{}, fmt.Errorf("failed to read preset: %w", err)
	}
	return Unmarshal(data)
}

// Save writes p to path.
func Save(path string, p Preset) error {
	data, err := Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode preset: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write preset: %w", err)
	}
	return nil
}

// EncodeState returns p as an opaque base64 blob.
func EncodeState(p Preset) (string, error) {
	data, err := Marshal(p)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// DecodeState parses a blob produced by EncodeState.
func DecodeState(state string) (Preset, error) {
	data, err := base64.StdEncoding.DecodeString(state)
	if err != nil {
		return Preset{}, fmt.Errorf("%w: %w", ErrInvalidPreset, err)
	}
	return Unmarshal(data)
}
