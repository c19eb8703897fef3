package audio

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"strconv"
)

// ----- Param Kind ----- //

const (
	paramKnob = iota
	paramGain
	paramSwitch
)

// ----- Controls ----- //

type param struct {
	name  string
	label string
	unit  string
	kind  int
	min   float64
	max   float64
	def   float64
	value float64
}

func (p *param) setValue(value float64) {
	if p.kind == paramSwitch {
		if value > 0 {
			value = 1
		} else {
			value = 0
		}
	}
	p.value = clamp(value, p.min, p.max)
}

// gain knobs display 40*log10(v) dB, like the host's logarithmic display base
func (p *param) describe() string {
	switch p.kind {
	case paramSwitch:
		if p.value > 0 {
			return p.label + ": on"
		}
		return p.label + ": off"
	case paramGain:
		if p.value <= 0 {
			return p.label + ": -inf dB"
		}
		return fmt.Sprintf("%s: %.2f dB", p.label, 40*math.Log10(p.value))
	}
	return fmt.Sprintf("%s: %.2f%s", p.label, p.value, p.unit)
}

type input struct {
	name    string
	label   string
	voltage float64
}

type output struct {
	name    string
	label   string
	voltage float64
}

type light struct {
	name       string
	brightness float64
}

// Light ...
type Light struct {
	Name       string
	Brightness float64
}

// controls owns every named value a module exposes to the host.
// Kernels keep *param / *input / *output / *light pointers in their own
// fields and never look controls up by name while processing.
type controls struct {
	params  []*param
	inputs  []*input
	outputs []*output
	lights  []*light
}

func (c *controls) addParam(name, label, unit string, kind int, min, max, def float64) *param {
	p := &param{name: name, label: label, unit: unit, kind: kind, min: min, max: max, def: def, value: def}
	c.params = append(c.params, p)
	return p
}
func (c *controls) addInput(name, label string) *input {
	in := &input{name: name, label: label}
	c.inputs = append(c.inputs, in)
	return in
}
func (c *controls) addOutput(name, label string) *output {
	out := &output{name: name, label: label}
	c.outputs = append(c.outputs, out)
	return out
}
func (c *controls) addLight(name string) *light {
	l := &light{name: name}
	c.lights = append(c.lights, l)
	return l
}

func (c *controls) findParam(name string) *param {
	for _, p := range c.params {
		if p.name == name {
			return p
		}
	}
	return nil
}
func (c *controls) findInput(name string) *input {
	for _, in := range c.inputs {
		if in.name == name {
			return in
		}
	}
	return nil
}

func isFinite(value float64) bool {
	return !math.IsNaN(value) && !math.IsInf(value, 0)
}

// SetValue sets a param (clamped to its range) or an input voltage.
// NaN and infinities are rejected for both.
func (c *controls) SetValue(name string, value float64) error {
	if !isFinite(value) {
		return fmt.Errorf("invalid value for %s: %v", name, value)
	}
	if p := c.findParam(name); p != nil {
		p.setValue(value)
		return nil
	}
	if in := c.findInput(name); in != nil {
		in.voltage = value
		return nil
	}
	return fmt.Errorf("unknown control %q", name)
}

// Set parses value and applies it like SetValue.
func (c *controls) Set(name string, value string) error {
	var v float64
	switch value {
	case "true", "on":
		v = 1
	case "false", "off":
		v = 0
	default:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid value for %s: %w", name, err)
		}
		v = f
	}
	return c.SetValue(name, v)
}

// Value reads any named control.
func (c *controls) Value(name string) (float64, bool) {
	if p := c.findParam(name); p != nil {
		return p.value, true
	}
	if in := c.findInput(name); in != nil {
		return in.voltage, true
	}
	for _, out := range c.outputs {
		if out.name == name {
			return out.voltage, true
		}
	}
	for _, l := range c.lights {
		if l.name == name {
			return l.brightness, true
		}
	}
	return 0, false
}

// Describe ...
func (c *controls) Describe(name string) (string, error) {
	p := c.findParam(name)
	if p == nil {
		return "", fmt.Errorf("unknown param %q", name)
	}
	return p.describe(), nil
}

// Lights ...
func (c *controls) Lights() []Light {
	lights := make([]Light, len(c.lights))
	for i, l := range c.lights {
		lights[i] = Light{Name: l.name, Brightness: l.brightness}
	}
	return lights
}

// Output returns the voltage of the first output.
func (c *controls) Output() float64 {
	if len(c.outputs) == 0 {
		return 0
	}
	return c.outputs[0].voltage
}

// ResetParams ...
func (c *controls) ResetParams() {
	for _, p := range c.params {
		p.value = p.def
	}
}

type controlsJSON struct {
	Params map[string]float64 `json:"params"`
	Inputs map[string]float64 `json:"inputs"`
}

// ApplyJSON ...
func (c *controls) ApplyJSON(data json.RawMessage) {
	var j controlsJSON
	err := json.Unmarshal(data, &j)
	if err != nil {
		log.Println("failed to apply JSON to controls")
		return
	}
	for name, value := range j.Params {
		if !isFinite(value) {
			continue
		}
		if p := c.findParam(name); p != nil {
			p.setValue(value)
		} else {
			log.Printf("unknown param in JSON: %s\n", name)
		}
	}
	for name, value := range j.Inputs {
		if in := c.findInput(name); in != nil && isFinite(value) {
			in.voltage = value
		}
	}
}

// ToJSON ...
func (c *controls) ToJSON() json.RawMessage {
	j := &controlsJSON{
		Params: make(map[string]float64, len(c.params)),
		Inputs: make(map[string]float64, len(c.inputs)),
	}
	for _, p := range c.params {
		j.Params[p.name] = p.value
	}
	for _, in := range c.inputs {
		j.Inputs[in.name] = in.voltage
	}
	return toRawMessage(j)
}
