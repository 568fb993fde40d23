package main

import (
	"fmt"
	"strings"

	stretch "github.com/tphakala/go-audio-stretch"
)

const (
	rateStep   = 1.5
	minFFTSize = 128
	maxFFTSize = 1 << 18
	ctrlC      = 3
	escape     = 27
)

const helpText = `keys: space pause  f freeze  d dry preview  +/- stretch  [/] FFT size  l loop  q quit`

// controller maps key presses to engine changes. It runs on the keyboard
// goroutine while the device goroutine renders.
type controller struct {
	eng *stretch.Engine
}

// handle applies the action bound to key. It returns a message for the
// user, which is empty for unbound keys, and whether to quit.
func (c controller) handle(key byte) (msg string, quit bool) {
	e := c.eng
	switch key {
	case 'q', 'Q', ctrlC, escape:
		return "quit", true

	case ' ':
		paused := !e.IsPaused()
		e.SetPaused(paused)
		return onOff("pause", paused), false

	case 'f', 'F':
		on := !e.IsFreezing()
		return applied(e.SetFreezing(on), onOff("freeze", on)), false

	case 'd', 'D':
		on := !e.IsPreviewingDry()
		return applied(e.SetPreviewDry(on), onOff("dry preview", on)), false

	case '+', '=':
		rate := e.Rate() * rateStep
		return applied(e.SetRate(rate), fmt.Sprintf("stretch %.3gx", rate)), false

	case '-', '_':
		rate := e.Rate() / rateStep
		return applied(e.SetRate(rate), fmt.Sprintf("stretch %.3gx", rate)), false

	case '[', ']':
		size := e.FFTSize()
		if key == '[' {
			size /= 2
		} else {
			size *= 2
		}
		if size < minFFTSize || size > maxFFTSize {
			return fmt.Sprintf("FFT size stays %d", e.FFTSize()), false
		}
		if err := e.SetFFTSize(size, false); err != nil {
			return err.Error(), false
		}
		return fmt.Sprintf("FFT size %d", size), false

	case 'l', 'L':
		on := !e.IsLoopingEnabled()
		e.SetLoopingEnabled(on)
		return onOff("loop", on), false
	}
	return "", false
}

func onOff(name string, on bool) string {
	if on {
		return name + " on"
	}
	return name + " off"
}

// applied reports a dropped change; the user presses the key again.
func applied(ok bool, msg string) string {
	if !ok {
		return "busy, try again"
	}
	return msg
}

// status is the one-line playback summary.
func status(e *stretch.Engine) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%5.1f%%  %.3gx  FFT %d", 100*e.InfilePositionPercent(), e.Rate(), e.FFTSize())
	if e.IsPriming() || e.IsBlending() {
		b.WriteString("  crossfading")
	}
	for _, flag := range []struct {
		on   bool
		name string
	}{
		{e.IsPaused(), "paused"},
		{e.IsFreezing(), "frozen"},
		{e.IsPreviewingDry(), "dry"},
		{e.IsLoopingEnabled(), "loop"},
	} {
		if flag.on {
			b.WriteString("  " + flag.name)
		}
	}
	return b.String()
}
