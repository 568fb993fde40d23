// Package stretch is a real-time streaming engine for paulstretch-style
// extreme time stretching.
//
// An Engine reads audio from an input source, runs one spectral channel
// stretcher per output channel, resamples the result from the file rate to
// the device rate and hands it to an audio callback one block at a time.
// Parameters (stretch ratio, FFT size, spectral stages, freeze, looping,
// dry preview) may be changed from another goroutine while audio is
// running.
//
// # Features
//
//   - Onset-synchronized channel stretchers: every channel takes identical
//     timing decisions so stereo images stay intact
//   - Live FFT size changes blended over a fixed-length crossfade
//   - Click-free pause and resume
//   - Dry preview of the source at an independent playback rate
//   - Play range, looping with edge crossfade and a loop limit
//   - Optional binaural-beat mixer on the first two channels
//
// # Quick Start
//
//	src := source.New()
//	if err := src.Open("input.wav"); err != nil {
//	    log.Fatal(err)
//	}
//
//	cfg := stretch.DefaultConfig()
//	cfg.PlayRate = 8
//	eng, err := stretch.New(src, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	eng.Prepare(48000)
//
//	out := [][]float64{make([]float64, 512), make([]float64, 512)}
//	for !eng.HasReachedEnd() {
//	    eng.RenderBlock(out, 512)
//	    write(out)
//	}
//
// # Concurrency
//
// RenderBlock always takes the engine lock. Idempotent setters such as
// SetRate or SetMainVolumeDB only try the lock: when the render goroutine
// holds it the call returns false and nothing changes, so the caller may
// simply try again later. Structural changes (FFT size, input file, seek,
// pause) wait for the lock. Query methods never take the lock and may
// return a value that is one block old.
package stretch
