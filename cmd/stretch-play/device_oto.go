//go:build !headless

package main

import (
	"fmt"
	"io"
	"time"

	"github.com/ebitengine/oto/v3"
)

// deviceBuffer is the output latency requested from the driver.
const deviceBuffer = 80 * time.Millisecond

// otoDevice plays an io.Reader through the default audio output. The
// driver pulls from the reader on its own goroutine.
type otoDevice struct {
	ctx    *oto.Context
	player *oto.Player
}

func openDevice(sampleRate, channels int, r io.Reader) (io.Closer, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatFloat32LE,
		BufferSize:   deviceBuffer,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open audio output: %w", err)
	}
	<-ready

	d := &otoDevice{ctx: ctx, player: ctx.NewPlayer(r)}
	d.player.Play()
	return d, nil
}

func (d *otoDevice) Close() error {
	d.player.Pause()
	return d.player.Close()
}
