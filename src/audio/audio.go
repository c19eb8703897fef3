package audio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"sync"
	"time"

	"github.com/hajimehoshi/oto"
)

const (
	sampleRate      = 48000
	channelNum      = 2
	bitDepthInBytes = 2
	samplesPerCycle = 1024
	fftSize         = 2048 // multiple of samplesPerCycle
)
const bytesPerSample = bitDepthInBytes * channelNum
const bufferSizeInBytes = samplesPerCycle * bytesPerSample // should be >= 4096
const secPerSample = 1.0 / sampleRate

var fft = NewFFT(fftSize)

// ----- Utility ----- //

func now() float64 {
	return float64(time.Now().UnixNano()) / 1000 / 1000 / 1000
}
func toRawMessage(v interface{}) json.RawMessage {
	bytes, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return json.RawMessage(bytes)
}

// Render processes m once per element of out, storing the output normalised
// so that full scale (5V) is 1.0. Non-finite samples are written as silence;
// the number of them is returned.
func Render(m Module, args ProcessArgs, out []float64) int {
	silenced := 0
	for i := range out {
		m.Process(args)
		value := m.Output() / voltageFullScale
		if math.IsNaN(value) || math.IsInf(value, 0) {
			value = 0
			silenced++
		}
		out[i] = value
	}
	return silenced
}

// ----- Changes ----- //

// Changes ...
type Changes struct {
	sync.Mutex
	dict map[string]struct{}
}

// Add ...
func (c *Changes) Add(key string) {
	c.Lock()
	c.dict[key] = struct{}{}
	c.Unlock()
}

// Has ...
func (c *Changes) Has(key string) bool {
	c.Lock()
	_, ok := c.dict[key]
	c.Unlock()
	return ok
}

// Delete ...
func (c *Changes) Delete(key string) {
	c.Lock()
	delete(c.dict, key)
	c.Unlock()
}

// ----- State ----- //

type state struct {
	sync.Mutex
	registry *Registry
	moduleID string
	module   Module
	warned   bool // non-finite output already logged for this module
	args     ProcessArgs
	pos      int64
	cycle    []float64 // length: samplesPerCycle
	out      []float64 // length: fftSize
}

func newState(registry *Registry, moduleID string) (*state, error) {
	module, err := registry.Create(moduleID)
	if err != nil {
		return nil, err
	}
	return &state{
		registry: registry,
		moduleID: moduleID,
		module:   module,
		args:     newProcessArgs(sampleRate),
		cycle:    make([]float64, samplesPerCycle),
		out:      make([]float64, fftSize),
	}, nil
}

func (s *state) switchModule(moduleID string) error {
	module, err := s.registry.Create(moduleID)
	if err != nil {
		return err
	}
	s.moduleID = moduleID
	s.module = module
	s.warned = false
	return nil
}

// ----- Audio ----- //

// Audio hosts one module and plays it through the sound card.
type Audio struct {
	ctx        context.Context
	otoContext *oto.Context
	CommandCh  chan []string
	state      *state
	Changes    *Changes
	fftResult  []float64 // length: fftSize
}

var _ io.Reader = (*Audio)(nil)

type audioJSON struct {
	Module string          `json:"module"`
	State  json.RawMessage `json:"state"`
}

// ApplyJSON ...
func (a *Audio) ApplyJSON(data []byte) {
	a.state.Lock()
	defer a.state.Unlock()
	var audioJSON audioJSON
	err := json.Unmarshal(data, &audioJSON)
	if err != nil {
		log.Println("failed to apply JSON to Audio", err)
		return
	}
	if audioJSON.Module != "" && audioJSON.Module != a.state.moduleID {
		if err := a.state.switchModule(audioJSON.Module); err != nil {
			log.Println("failed to apply JSON to Audio", err)
			return
		}
	}
	a.state.module.ApplyJSON(audioJSON.State)
	a.Changes.Add("data")
}

// ToJSON ...
func (a *Audio) ToJSON() []byte {
	a.state.Lock()
	defer a.state.Unlock()
	bytes, err := json.Marshal(a.toJSON())
	if err != nil {
		panic(err)
	}
	return bytes
}

func (a *Audio) toJSON() json.RawMessage {
	return toRawMessage(&audioJSON{
		Module: a.state.moduleID,
		State:  a.state.module.ToJSON(),
	})
}

func (a *Audio) Read(buf []byte) (int, error) {
	select {
	case <-a.ctx.Done():
		log.Println("Read() interrupted.")
		return 0, io.EOF
	default:
		a.state.Lock()
		defer a.state.Unlock()
		bufSamples := len(buf) / bytesPerSample
		if bufSamples > samplesPerCycle {
			bufSamples = samplesPerCycle
		}
		cycle := a.state.cycle[:bufSamples]
		if silenced := Render(a.state.module, a.state.args, cycle); silenced > 0 && !a.state.warned {
			log.Printf("[WARN] %s produced %d non-finite samples, writing silence\n", a.state.moduleID, silenced)
			a.state.warned = true
		}
		for i, value := range cycle {
			a.state.out[(a.state.pos+int64(i))%fftSize] = value
		}
		writeBuffer(cycle, buf, 0)
		writeBuffer(cycle, buf, 1)
		a.state.pos += int64(bufSamples)
		return bufSamples * bytesPerSample, nil
	}
}

func writeBuffer(out []float64, buf []byte, ch int) {
	for i, value := range out {
		value = clamp(value, -1, 1)
		switch bitDepthInBytes {
		case 1:
			const max = 127
			b := int(value * max)
			buf[bytesPerSample*i+ch] = byte(b + 128)
		case 2:
			const max = 32767
			b := int16(value * max)
			buf[bytesPerSample*i+2*ch] = byte(b)
			buf[bytesPerSample*i+2*ch+1] = byte(b >> 8)
		}
	}
}

// NewAudio ...
func NewAudio(registry *Registry, moduleID string) (*Audio, error) {
	otoContext, err := oto.NewContext(sampleRate, channelNum, bitDepthInBytes, bufferSizeInBytes)
	if err != nil {
		return nil, err
	}
	audio, err := newAudio(otoContext, registry, moduleID)
	if err != nil {
		otoContext.Close()
		return nil, err
	}
	go processCommands(audio, audio.CommandCh)
	return audio, nil
}

// otoContext may be nil when nothing is played
func newAudio(otoContext *oto.Context, registry *Registry, moduleID string) (*Audio, error) {
	state, err := newState(registry, moduleID)
	if err != nil {
		return nil, err
	}
	return &Audio{
		ctx:        context.Background(),
		otoContext: otoContext,
		CommandCh:  make(chan []string, 256),
		state:      state,
		Changes: &Changes{
			dict: make(map[string]struct{}),
		},
		fftResult: make([]float64, fftSize),
	}, nil
}

func processCommands(audio *Audio, commandCh <-chan []string) {
	for command := range commandCh {
		if err := audio.update(command); err != nil {
			log.Printf("failed to apply command %v: %v\n", command, err)
		}
	}
	log.Println("processCommands() ended.")
}

func (a *Audio) update(command []string) error {
	a.state.Lock()
	defer a.state.Unlock()

	if len(command) == 0 {
		return fmt.Errorf("empty command")
	}
	switch command[0] {
	case "set":
		command = command[1:]
		if len(command) != 2 {
			return fmt.Errorf("invalid key-value pair %v", command)
		}
		if err := a.state.module.Set(command[0], command[1]); err != nil {
			return err
		}
		a.Changes.Add("data")
	case "module":
		command = command[1:]
		if len(command) != 1 {
			return fmt.Errorf("invalid module command %v", command)
		}
		if err := a.state.switchModule(command[0]); err != nil {
			return err
		}
		a.Changes.Add("data")
	case "reset":
		if err := a.state.switchModule(a.state.moduleID); err != nil {
			return err
		}
		a.Changes.Add("data")
	default:
		return fmt.Errorf("unknown command %v", command[0])
	}
	return nil
}

// Close ...
func (a *Audio) Close() error {
	log.Println("Closing Audio...")
	close(a.CommandCh)
	if a.otoContext == nil {
		return nil
	}
	return a.otoContext.Close()
}

// Start ...
func (a *Audio) Start(ctx context.Context) error {
	if a.otoContext == nil {
		return fmt.Errorf("no audio device")
	}
	p := a.otoContext.NewPlayer()
	defer func() {
		if err := p.Close(); err != nil {
			log.Printf("error: %v", err)
		}
	}()
	a.ctx = ctx

	// block until cancel() called
	if _, err := io.CopyBuffer(p, a, make([]byte, bufferSizeInBytes)); err != nil {
		return err
	}
	log.Println("Start() ended.")
	return nil
}

// GetFFT ...
func (a *Audio) GetFFT() []float64 {
	a.state.Lock()
	// out:       | 4 | 1 | 2 | 3 |
	// offset:        ^
	// fftResult: | 1 | 2 | 3 | 4 |
	// return:    |<----->|
	offset := a.state.pos % fftSize
	copy(a.fftResult, a.state.out[offset:])
	copy(a.fftResult[fftSize-offset:], a.state.out[:offset])
	a.state.Unlock()
	Han(a.fftResult)
	fft.CalcAbs(a.fftResult)
	for i, value := range a.fftResult {
		a.fftResult[i] = value * 2 / fftSize
	}
	return a.fftResult[:fftSize/2]
}

// GetLights ...
func (a *Audio) GetLights() []Light {
	a.state.Lock()
	defer a.state.Unlock()
	return a.state.module.Lights()
}

// ModuleID ...
func (a *Audio) ModuleID() string {
	a.state.Lock()
	defer a.state.Unlock()
	return a.state.moduleID
}
