//go:build headless

package main

import (
	"errors"
	"io"
)

var errNoAudio = errors.New("audio output unavailable: built with -tags headless")

func openDevice(_, _ int, _ io.Reader) (io.Closer, error) {
	return nil, errNoAudio
}
