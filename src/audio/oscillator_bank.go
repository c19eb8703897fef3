package audio

import (
	"fmt"
)

// ----- Oscillator Bank ----- //

const numBankVoices = 5

// every active voice flattens all voices by this many octaves
const supplySag = 0.005

// octaves relative to the shared pitch: -36, -24.1, -11.95, 0, +12.2 semis
var bankOffsets = [numBankVoices]float64{-3.0, -2.0083, -0.9958, 0.0, 1.0167}

var bankInitialPhases = [numBankVoices]float64{0.0, 0.1, 0.3, 0.2, 0.4}

type bankVoice struct {
	tune       *param
	level      *param
	active     *param
	phaseLight *light
	muteLight  *light
	offset     float64
	phase      float64
	freq       float64
}

// OscillatorBank mixes five switchable oscillators sharing one unstable
// power supply: the more voices are on, the flatter all of them get.
// Voice 0 is a sine, the others are 9-partial sawtooths.
type OscillatorBank struct {
	controls
	voices      [numBankVoices]bankVoice
	outputLevel *param
	pitchCV     *input
	audio       *output
}

var _ Module = (*OscillatorBank)(nil)

// NewOscillatorBank ...
func NewOscillatorBank() *OscillatorBank {
	b := &OscillatorBank{}
	for i := range b.voices {
		v := &b.voices[i]
		n := i + 1
		v.tune = b.addParam(fmt.Sprintf("osc%d_tune", n), fmt.Sprintf("OSC %d Tune", n), " semis", paramKnob, -12, 12, 0)
		v.level = b.addParam(fmt.Sprintf("osc%d_level", n), fmt.Sprintf("OSC %d Volume", n), "", paramGain, 0, 2, 1)
		v.active = b.addParam(fmt.Sprintf("osc%d_switch", n), fmt.Sprintf("OSC %d activate", n), "", paramSwitch, 0, 1, 0)
		v.phaseLight = b.addLight(fmt.Sprintf("osc%d_phase", n))
		v.muteLight = b.addLight(fmt.Sprintf("osc%d_mute", n))
		v.offset = bankOffsets[i]
		v.phase = bankInitialPhases[i]
	}
	b.outputLevel = b.addParam("output_level", "Output Volume", "", paramGain, 0, 2, 1)
	b.pitchCV = b.addInput("pitch_cv", "1 V/oct")
	b.audio = b.addOutput("audio", "Output")
	return b
}

func (b *OscillatorBank) numActive() int {
	n := 0
	for i := range b.voices {
		if b.voices[i].active.value > 0 {
			n++
		}
	}
	return n
}

// Process ...
func (b *OscillatorBank) Process(args ProcessArgs) {
	inputVolts := b.pitchCV.voltage
	sag := float64(b.numActive()) * supplySag

	sum := 0.0
	for i := range b.voices {
		v := &b.voices[i]
		active := 0.0
		if v.active.value > 0 {
			active = 1
		}
		pitch := v.tune.value / 12
		volume := v.level.value / float64(i+1)

		// not clamped, unlike SineVoice
		v.freq = pitchToFreq(pitch + v.offset + inputVolts - sag)
		v.phase = advancePhase(v.phase, v.freq, args.SampleTime)

		var value float64
		if i == 0 {
			value = sineAtPhase(v.phase)
		} else {
			value = sawAtPhase(v.phase)
		}
		sum += active * volume * value

		// raw signed phase, not remapped to [0, 1]
		v.phaseLight.brightness = v.phase
		v.muteLight.brightness = active
	}
	b.audio.voltage = b.outputLevel.value * sum
}

// Phase returns the phase of voice i (0-based).
func (b *OscillatorBank) Phase(i int) float64 {
	return b.voices[i].phase
}

// Frequency returns the frequency voice i (0-based) ran at in the last Process.
func (b *OscillatorBank) Frequency(i int) float64 {
	return b.voices[i].freq
}
