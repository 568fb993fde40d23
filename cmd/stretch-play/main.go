// Command stretch-play plays a paulstretched WAV file live and lets the
// stretch, FFT size, freeze and dry preview be changed while it plays.
//
// Usage:
//
//	stretch-play -stretch 8 input.wav
//	stretch-play -preset drone.yaml -state input.wav   # print the state blob on quit
//
// Build with -tags headless on systems without audio output.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"time"

	"github.com/tphakala/go-audio-stretch/internal/session"
	"github.com/tphakala/go-audio-stretch/preset"
)

const (
	defaultStretch  = 8.0
	defaultBlock    = 512
	maxDeviceChans  = 2
	kHzToHz         = 1000
	statusInterval  = 200 * time.Millisecond
	minRequiredArgs = 1
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	stretchRate := flag.Float64("stretch", defaultStretch, "Stretch ratio (8 = eight times longer)")
	fftSize := flag.Int("fft", 0, "FFT size in frames (0 = preset or default)")
	rateKHz := flag.Float64("rate", 0, "Output sample rate in kHz (0 = input rate)")
	block := flag.Int("block", defaultBlock, "Largest render block in frames")
	presetPath := flag.String("preset", "", "Load settings from a YAML preset")
	state := flag.String("load-state", "", "Start from a base64 state blob")
	printState := flag.Bool("state", false, "Print the settings as a base64 state blob on quit")
	verbose := flag.Bool("v", false, "Verbose output")
	flag.Parse()

	args := flag.Args()
	if len(args) < minRequiredArgs {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] input.wav\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\n%s\n", helpText)
		return fmt.Errorf("insufficient arguments")
	}
	if *block < 1 {
		return fmt.Errorf("block size must be positive, got %d", *block)
	}

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	s, err := session.Open(session.Options{
		Input:          args[0],
		PresetPath:     *presetPath,
		State:          *state,
		MaxBlockFrames: *block,
		Verbose:        *verbose,
		Adjust: func(p *preset.Preset) {
			if set["stretch"] || (*presetPath == "" && *state == "") {
				p.Rate = *stretchRate
			}
			if *fftSize > 0 {
				p.FFTSize = *fftSize
			}
		},
	})
	if err != nil {
		return err
	}
	if s.Format.Channels > maxDeviceChans {
		return fmt.Errorf("%d channels: only mono and stereo can be played", s.Format.Channels)
	}

	outRate := s.Format.SampleRate
	if *rateKHz > 0 {
		outRate = int(math.Round(*rateKHz * kHzToHz))
	}
	s.Engine.Prepare(float64(outRate))
	defer s.Engine.Release()

	device, err := openDevice(outRate, s.Engine.Channels(), newEngineReader(s.Engine, *block))
	if err != nil {
		return err
	}
	defer func() { _ = device.Close() }()

	kb, err := openKeyboard()
	if err != nil {
		return err
	}
	defer func() { _ = kb.Close() }()

	loop(s, kb)

	_ = kb.Close()
	if *printState {
		blob, err := s.Capture()
		if err != nil {
			return fmt.Errorf("failed to encode state: %w", err)
		}
		fmt.Println(blob)
	}
	return nil
}

// loop handles keys and redraws the status line until the user quits or
// playback ends. The terminal is in raw mode, so lines end in \r\n.
func loop(s *session.Session, kb *keyboard) {
	c := controller{eng: s.Engine}
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	fmt.Printf("%s\r\n", helpText)
	for {
		select {
		case key, ok := <-kb.keys:
			if !ok {
				return
			}
			msg, quit := c.handle(key)
			if quit {
				fmt.Print("\r\n")
				return
			}
			if msg != "" {
				fmt.Printf("\r\033[K%s\r\n", msg)
			}

		case <-ticker.C:
			if s.Engine.HasReachedEnd() {
				fmt.Print("\r\nend of stream\r\n")
				return
			}
			fmt.Printf("\r\033[K%s", status(s.Engine))
		}
	}
}
