package main

import (
	"errors"
	"os"
	"sync"

	"golang.org/x/term"
)

var errNotTerminal = errors.New("standard input is not a terminal")

// keyboard delivers single key presses from a terminal in raw mode.
type keyboard struct {
	fd       int
	oldState *term.State
	keys     chan byte
	restore  sync.Once
}

func openKeyboard() (*keyboard, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, errNotTerminal
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}

	k := &keyboard{fd: fd, oldState: oldState, keys: make(chan byte, 16)}
	go k.read()
	return k, nil
}

// read forwards stdin bytes until it fails. The channel is closed then.
func (k *keyboard) read() {
	defer close(k.keys)
	buf := make([]byte, 1)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil {
			return
		}
		if n > 0 {
			k.keys <- buf[0]
		}
	}
}

// Close restores the terminal. It is safe to call more than once.
func (k *keyboard) Close() error {
	var err error
	k.restore.Do(func() { err = term.Restore(k.fd, k.oldState) })
	return err
}
