package spectral

import (
	"math"

	"github.com/tphakala/go-audio-stretch/internal/simdops"
)

// Spectral stages. Every stage reads the magnitude spectrum in and writes
// the processed magnitudes to out; in and out never alias. nfreq is len(in)
// and bin i sits at i/nfreq * sampleRate/2 Hz.

const (
	spreadMinFreq = 20.0
	spreadPasses  = 2
)

func pitchShift(in, out []float64, ratio float64) {
	nfreq := len(in)
	clear(out)

	if ratio < 1 {
		for i, v := range in {
			i2 := int(float64(i) * ratio)
			if i2 >= nfreq {
				break
			}
			out[i2] += v
		}
		return
	}

	inv := 1 / ratio
	for i := range out {
		x := float64(i) * inv
		i2 := int(x)
		if i2+1 >= nfreq {
			break
		}
		frac := x - float64(i2)
		out[i] = in[i2]*(1-frac) + in[i2+1]*frac
	}
}

func freqShift(in, out []float64, hz, sampleRate float64) {
	nfreq := len(in)
	shift := int(hz / (sampleRate * 0.5) * float64(nfreq))
	clear(out)
	for i, v := range in {
		i2 := i + shift
		if i2 > 0 && i2 < nfreq {
			out[i2] = v
		}
	}
}

// ratioMix sums pitch-shifted copies of the spectrum weighted by the octave
// levels. sum and tmp are scratch buffers of len(in).
func ratioMix(p OctaveParams, in, out, sum, tmp []float64) {
	clear(sum)

	add := func(level, ratio float64) {
		if level <= 1e-3 {
			return
		}
		if ratio == 1 {
			for i, v := range in {
				sum[i] += v * level
			}
			return
		}
		pitchShift(in, tmp, ratio)
		for i, v := range tmp {
			sum[i] += v * level
		}
	}

	add(p.Om2, 0.25)
	add(p.Om1, 0.5)
	add(p.O0, 1)
	add(p.O1, 2)
	add(p.O15, 3)
	add(p.O2, 4)

	corr := 1 / math.Sqrt(0.01+p.Om2+p.Om1+p.O0+p.O1+p.O15+p.O2)
	for i, v := range sum {
		out[i] = v * corr
	}
}

func filter(p FilterParams, in, out []float64, sampleRate float64) {
	low, high := p.Low, p.High
	if low > high {
		low, high = high, low
	}

	nfreq := float64(len(in))
	ilow := int(low / sampleRate * nfreq * 2)
	ihigh := int(high / sampleRate * nfreq * 2)

	dmp := 1.0
	dmprap := 1 - math.Pow(p.HDamp*0.5, 4)
	for i, v := range in {
		a := 0.0
		if i >= ilow && i < ihigh {
			a = 1
		}
		if p.Stop {
			a = 1 - a
		}
		out[i] = v * a * dmp
		dmp *= dmprap + 1e-8
	}
}

func compressor(p CompressorParams, in, out []float64, ops *simdops.Ops[float64]) {
	rms := math.Sqrt(ops.Energy(in)/float64(len(in))) * 0.1
	rms = max(rms, 1e-3)
	ops.Scale(out, in, math.Pow(rms, -p.Power))
}

// spread widens every partial by smoothing the spectrum on a logarithmic
// frequency axis. tmp is scratch of len(in).
func spread(in, out, tmp []float64, sampleRate, bandwidth float64) {
	nfreq := len(in)
	n := float64(nfreq)
	maxFreq := 0.5 * sampleRate
	logMin := math.Log(spreadMinFreq)
	logRange := math.Log(maxFreq) - logMin

	// to log axis
	for i := range tmp {
		x := math.Exp(logMin+float64(i)/n*logRange) / maxFreq * n
		x0 := min(int(x), nfreq-1)
		x1 := min(x0+1, nfreq-1)
		frac := x - float64(x0)
		y := 0.0
		if x < n {
			y = in[x0]*(1-frac) + in[x1]*frac
		}
		tmp[i] = y
	}

	a := 1 - math.Pow(2, -bandwidth*bandwidth*10)
	a = math.Pow(a, 8192/n*spreadPasses)
	for range spreadPasses {
		tmp[0] = 0
		for i := 1; i < nfreq; i++ {
			tmp[i] = tmp[i-1]*a + tmp[i]*(1-a)
		}
		tmp[nfreq-1] = 0
		for i := nfreq - 2; i > 0; i-- {
			tmp[i] = tmp[i+1]*a + tmp[i]*(1-a)
		}
	}

	// back to linear axis
	out[0] = 0
	for i := 1; i < nfreq; i++ {
		x := math.Log(float64(i)/n*maxFreq/spreadMinFreq) / logRange * n
		y := 0.0
		if x > 0 && x < n {
			x0 := min(int(x), nfreq-1)
			x1 := min(x0+1, nfreq-1)
			frac := x - float64(x0)
			y = tmp[x0]*(1-frac) + tmp[x1]*frac
		}
		out[i] = y
	}
}

// tonalVsNoise removes the smoothed floor (preserve >= 0, keeps tones) or
// keeps only what sits under it (preserve < 0, keeps noise).
func tonalVsNoise(p TonalVsNoiseParams, in, out, smoothed, tmp []float64, sampleRate float64) {
	spread(in, smoothed, tmp, sampleRate, p.Bandwidth)

	if p.Preserve >= 0 {
		mul := math.Pow(10, p.Preserve) - 1
		for i, x := range in {
			out[i] = max(0, x-(smoothed[i]+1e-6)*mul)
		}
		return
	}

	mul := math.Pow(5, 1+p.Preserve) - 1
	for i, x := range in {
		if x-(smoothed[i]+1e-6)*mul+0.1*mul < 0 {
			out[i] = x
		} else {
			out[i] = 0
		}
	}
}

// harmonics masks the spectrum with a comb at multiples of p.Freq. amp is
// scratch of len(in).
func harmonics(p HarmonicsParams, in, out, amp []float64, sampleRate float64) {
	nfreq := len(in)
	n := float64(nfreq)
	freq := max(p.Freq, 10)
	clear(amp)

	for nh := 1; nh <= p.Count; nh++ {
		f := freq * float64(nh)
		if f >= sampleRate/2 {
			break
		}

		bwHz := (math.Pow(2, p.Bandwidth/1200) - 1) * f
		bwBins := max(bwHz/(sampleRate*0.5)*n, 0.5)
		center := f / (sampleRate * 0.5) * n

		lo := max(int(center-bwBins*3), 0)
		hi := min(int(center+bwBins*3)+1, nfreq)
		for i := lo; i < hi; i++ {
			x := (float64(i) - center) / bwBins
			if p.Gauss {
				amp[i] += math.Exp(-x * x)
			} else if math.Abs(x) <= 0.5 {
				amp[i] = 1
			}
		}
	}

	for i, v := range in {
		out[i] = v * min(amp[i], 1)
	}
}

func freeFilter(env *Envelope, in, out []float64) {
	if env == nil {
		copy(out, in)
		return
	}
	n := float64(len(in))
	for i, v := range in {
		out[i] = v * env.GainAt(float64(i)/n)
	}
}
