// Package session opens a WAV file, resolves the settings from a preset file,
// a state blob and command-line overrides, and builds a stretch engine ready
// to render. It is shared by the commands.
package session

import (
	"fmt"
	"log"
	"os"

	stretch "github.com/tphakala/go-audio-stretch"
	"github.com/tphakala/go-audio-stretch/preset"
	"github.com/tphakala/go-audio-stretch/source"
)

// Options selects the input and where settings come from. Later sources
// win: preset file, then state blob, then Adjust.
type Options struct {
	// Input is the WAV file to stretch.
	Input string

	// PresetPath is an optional YAML preset file.
	PresetPath string

	// State is an optional base64 state blob.
	State string

	// MaxBlockFrames is the largest block the caller will render.
	MaxBlockFrames int

	// Adjust edits the resolved settings before the engine is built.
	Adjust func(p *preset.Preset)

	// Verbose sends engine events to the standard logger.
	Verbose bool
}

// Session is an engine reading from a loaded file.
type Session struct {
	Engine   *stretch.Engine
	Source   *source.Source
	Format   source.Format
	Settings preset.Preset
}

// Open builds a session from opts.
func Open(opts Options) (*Session, error) {
	format, err := source.Probe(opts.Input)
	if err != nil {
		return nil, err
	}

	cfg := stretch.DefaultConfig()
	cfg.Channels = format.Channels
	if opts.MaxBlockFrames > 0 {
		cfg.MaxBlockFrames = opts.MaxBlockFrames
	}
	if opts.Verbose {
		cfg.Logger = log.New(os.Stderr, "stretch: ", log.LstdFlags)
	}

	settings, err := resolve(opts, cfg)
	if err != nil {
		return nil, err
	}
	cfg.FFTSize = settings.FFTSize
	cfg.PlayRate = settings.Rate
	cfg.Window = settings.Window
	cfg.OnsetSensitivity = settings.OnsetDetection

	src := source.New()
	eng, err := stretch.New(src, cfg)
	if err != nil {
		return nil, err
	}
	if err := eng.SetAudioFile(opts.Input); err != nil {
		return nil, err
	}
	if err := settings.Apply(eng); err != nil {
		return nil, fmt.Errorf("failed to apply settings: %w", err)
	}

	if opts.Verbose {
		log.Printf("Input: %s (%d Hz, %d channels, %d-bit, %.2fs)",
			opts.Input, format.SampleRate, format.Channels, format.BitDepth, eng.InfileLengthSeconds())
		log.Printf("Stretch: %gx, FFT size %d, window %s", settings.Rate, settings.FFTSize, settings.Window)
	}

	return &Session{
		Engine:   eng,
		Source:   src,
		Format:   format,
		Settings: settings,
	}, nil
}

// resolve merges the preset file, the state blob and opts.Adjust on top
// of the defaults for cfg.
func resolve(opts Options, cfg stretch.Config) (preset.Preset, error) {
	settings := preset.Default(cfg)

	if opts.PresetPath != "" {
		p, err := preset.Load(opts.PresetPath)
		if err != nil {
			return preset.Preset{}, err
		}
		settings = p
	}

	if opts.State != "" {
		p, err := preset.DecodeState(opts.State)
		if err != nil {
			return preset.Preset{}, err
		}
		settings = p
	}

	if opts.Adjust != nil {
		opts.Adjust(&settings)
	}
	if err := settings.Validate(); err != nil {
		return preset.Preset{}, err
	}
	return settings, nil
}

// Capture returns the engine's current settings as a state blob.
func (s *Session) Capture() (string, error) {
	return preset.EncodeState(preset.Capture(s.Engine))
}
