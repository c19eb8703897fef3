package audio

import (
	"math"
)

// ----- OSC ----- //

// freqC4 is middle C, the frequency of a 0V pitch.
const freqC4 = 261.6256

const sawPartials = 9

// voltageFullScale is the peak of an audio-rate signal in volts.
const voltageFullScale = 5.0

// ProcessArgs ...
type ProcessArgs struct {
	SampleRate float64
	SampleTime float64 // sec
}

func newProcessArgs(sampleRate float64) ProcessArgs {
	return ProcessArgs{SampleRate: sampleRate, SampleTime: 1.0 / sampleRate}
}

func clamp(value float64, min float64, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// pitch in octaves, 0 = C4 (1V/oct)
func pitchToFreq(pitch float64) float64 {
	return freqC4 * math.Pow(2, pitch)
}

// phase stays in [-0.5, 0.5) as long as freq*sampleTime < 1.
// An overflowed frequency restarts the cycle at 0.
func advancePhase(phase float64, freq float64, sampleTime float64) float64 {
	phase += freq * sampleTime
	if phase >= 0.5 {
		phase -= 1
	}
	if math.IsNaN(phase) || math.IsInf(phase, 0) {
		phase = 0
	}
	return phase
}

func sineAtPhase(phase float64) float64 {
	return math.Sin(2 * math.Pi * phase)
}

// first 9 partials of the Fourier series of a sawtooth
func sawAtPhase(phase float64) float64 {
	value := 0.0
	sign := -1.0
	for k := 1; k <= sawPartials; k++ {
		x := float64(k)
		value += sign * math.Sin(2*math.Pi*x*phase) / x
		sign = -sign
	}
	return value * 2 / math.Pi
}
