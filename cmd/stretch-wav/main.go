// Command stretch-wav renders a paulstretched copy of a WAV file.
//
// Usage:
//
//	stretch-wav -stretch 8 input.wav output.wav
//	stretch-wav -stretch 20 -fft 16384 -window hann input.wav slow.wav
//	stretch-wav -range 0.25:0.5 -loops 3 input.wav loop.wav     # loop a section
//	stretch-wav -preset ambient.yaml -state input.wav output.wav # print the state blob
//
// Rendering stops when the engine reports the end of the stream or when
// the estimated output duration has been written.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"runtime/pprof"
	"time"

	stretch "github.com/tphakala/go-audio-stretch"
	"github.com/tphakala/go-audio-stretch/internal/session"
	"github.com/tphakala/go-audio-stretch/preset"
	"github.com/tphakala/go-audio-stretch/spectral"
)

const (
	// CLI defaults
	defaultStretch   = 8.0
	defaultBlock     = 1024
	minRequiredArgs  = 2
	kHzToHz          = 1000
	progressInterval = 10 // Print progress every N%
	percentScale     = 100
)

var errUsage = errors.New("insufficient arguments")

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	stretchRate := flag.Float64("stretch", defaultStretch, "Stretch ratio (8 = eight times longer)")
	fftSize := flag.Int("fft", 0, "FFT size in frames (0 = preset or default)")
	rateKHz := flag.Float64("rate", 0, "Output sample rate in kHz (0 = input rate)")
	windowName := flag.String("window", "", "Analysis window: rectangular, hamming, hann, blackman, blackman-harris")
	onset := flag.Float64("onset", 0, "Onset detection sensitivity in [0,1]")
	volume := flag.Float64("volume", 0, "Main volume in dB")
	rangeSpec := flag.String("range", "", "Play range as start:end in [0,1], e.g. 0.25:0.5")
	loops := flag.Int("loops", 0, "Loop the play range this many extra times (0 = no looping)")
	dry := flag.Bool("dry", false, "Render the unprocessed input (dry preview)")
	dryRate := flag.Float64("dry-rate", 1, "Playback rate of the dry preview")
	clip := flag.Bool("clip", false, "Clip the output to [-1, 1]")
	block := flag.Int("block", defaultBlock, "Render block size in frames")
	bits := flag.Int("bits", 0, "Output bit depth: 16, 24 or 32 (0 = input depth)")
	maxSeconds := flag.Float64("max-seconds", 0, "Stop after this many output seconds (0 = no limit)")
	presetPath := flag.String("preset", "", "Load settings from a YAML preset")
	savePreset := flag.String("save-preset", "", "Write the final settings to a YAML preset")
	printState := flag.Bool("state", false, "Print the settings as a base64 state blob")
	verbose := flag.Bool("v", false, "Verbose output")
	cpuprofile := flag.String("cpuprofile", "", "Write CPU profile to file")
	flag.Parse()

	args := flag.Args()
	if len(args) < minRequiredArgs {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] input.wav output.wav\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -stretch 8 in.wav out.wav              # 8x slower\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -stretch 50 -fft 32768 in.wav out.wav  # drone\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -dry -dry-rate 0.5 in.wav out.wav      # half speed, unprocessed\n", os.Args[0])
		return errUsage
	}

	if *block < 1 {
		return fmt.Errorf("block size must be positive, got %d", *block)
	}
	if *bits != 0 && *bits != bitsPerSample16 && *bits != bitsPerSample24 && *bits != bitsPerSample32 {
		return fmt.Errorf("unsupported bit depth %d", *bits)
	}

	// Only flags given on the command line override the preset.
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	var playRange *stretch.Range
	if *rangeSpec != "" {
		r, err := parseRange(*rangeSpec)
		if err != nil {
			return err
		}
		playRange = &r
	}
	var window *spectral.WindowType
	if *windowName != "" {
		w, err := spectral.ParseWindowType(*windowName)
		if err != nil {
			return err
		}
		window = &w
	}

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			return fmt.Errorf("could not create CPU profile: %w", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			_ = f.Close()
			return fmt.Errorf("could not start CPU profile: %w", err)
		}
		defer func() {
			pprof.StopCPUProfile()
			_ = f.Close()
		}()
	}

	inputPath, outputPath := args[0], args[1]
	s, err := session.Open(session.Options{
		Input:          inputPath,
		PresetPath:     *presetPath,
		MaxBlockFrames: *block,
		Verbose:        *verbose,
		Adjust: func(p *preset.Preset) {
			if set["stretch"] || *presetPath == "" {
				p.Rate = *stretchRate
			}
			if *fftSize > 0 {
				p.FFTSize = *fftSize
			}
			if window != nil {
				p.Window = *window
			}
			if set["onset"] {
				p.OnsetDetection = *onset
			}
			if set["volume"] {
				p.MainVolumeDB = *volume
			}
			if playRange != nil {
				p.PlayRange = *playRange
			}
			if set["loops"] {
				p.Looping = *loops > 0
				p.MaxLoops = *loops
			}
			if set["dry"] {
				p.PreviewDry = *dry
			}
			if set["dry-rate"] {
				p.DryPlayRate = *dryRate
			}
			if set["clip"] {
				p.ClipOutput = *clip
			}
		},
	})
	if err != nil {
		return err
	}

	outRate := s.Format.SampleRate
	if *rateKHz > 0 {
		outRate = int(math.Round(*rateKHz * kHzToHz))
	}
	bitDepth := s.Format.BitDepth
	if *bits != 0 {
		bitDepth = *bits
	}

	start := time.Now()
	stats, err := render(s.Engine, renderOptions{
		outputPath: outputPath,
		outRate:    outRate,
		bitDepth:   bitDepth,
		block:      *block,
		maxSeconds: *maxSeconds,
		verbose:    *verbose,
	})
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	if *savePreset != "" {
		if err := preset.Save(*savePreset, preset.Capture(s.Engine)); err != nil {
			return err
		}
	}
	if *printState {
		state, err := s.Capture()
		if err != nil {
			return fmt.Errorf("failed to encode state: %w", err)
		}
		fmt.Println(state)
	}

	outSeconds := float64(stats.outputFrames) / float64(outRate)
	fmt.Printf("Stretched %s -> %s\n", filepath.Base(inputPath), filepath.Base(outputPath))
	fmt.Printf("  %gx, FFT %d, %d Hz -> %d Hz (%d channels, %d-bit)\n",
		s.Engine.Rate(), s.Engine.FFTSize(), s.Format.SampleRate, outRate, stats.channels, bitDepth)
	fmt.Printf("  %.2fs -> %.2fs", s.Engine.InfileLengthSeconds(), outSeconds)
	if stats.reachedEnd {
		fmt.Printf(" (end of stream)")
	}
	fmt.Printf("\n  Duration: %.2fs, Speed: %.1fx realtime\n", elapsed.Seconds(), outSeconds/elapsed.Seconds())

	return nil
}
