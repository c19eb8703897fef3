package audio

// ----- Sine Voice ----- //

// SineVoice is a single sine oscillator tuned by a knob and a 1V/oct input,
// with a light blinking at 1Hz.
type SineVoice struct {
	controls
	pitch      *param
	pitchCV    *input
	sine       *output
	blink      *light
	phase      float64
	blinkPhase float64
}

var _ Module = (*SineVoice)(nil)

// NewSineVoice ...
func NewSineVoice() *SineVoice {
	s := &SineVoice{}
	s.pitch = s.addParam("pitch", "Pitch", " semis", paramKnob, -12, 12, 0)
	s.pitchCV = s.addInput("pitch_cv", "1V/octave pitch input")
	s.sine = s.addOutput("sine", "Output")
	s.blink = s.addLight("blink")
	return s
}

// Process ...
func (s *SineVoice) Process(args ProcessArgs) {
	pitch := s.pitch.value/12 + s.pitchCV.voltage
	pitch = clamp(pitch, -4, 4)
	freq := pitchToFreq(pitch)

	s.phase = advancePhase(s.phase, freq, args.SampleTime)
	s.sine.voltage = voltageFullScale * sineAtPhase(s.phase)

	s.blinkPhase += args.SampleTime
	if s.blinkPhase >= 1 {
		s.blinkPhase -= 1
	}
	if s.blinkPhase < 0.5 {
		s.blink.brightness = 1
	} else {
		s.blink.brightness = 0
	}
}

// Phase ...
func (s *SineVoice) Phase() float64 {
	return s.phase
}
