package audio

import (
	"encoding/json"
	"fmt"
)

// Module is a signal generator processed once per sample by a host.
type Module interface {
	Process(args ProcessArgs)
	Output() float64
	Lights() []Light
	Set(name string, value string) error
	SetValue(name string, value float64) error
	Value(name string) (float64, bool)
	Describe(name string) (string, error)
	ResetParams()
	ApplyJSON(data json.RawMessage)
	ToJSON() json.RawMessage
}

// Model ...
type Model struct {
	ID   string
	Name string
	New  func() Module
}

// Registry maps module IDs to their constructors.
type Registry struct {
	models map[string]*Model
	ids    []string
}

// NewRegistry ...
func NewRegistry() *Registry {
	return &Registry{
		models: make(map[string]*Model),
	}
}

// NewDefaultRegistry returns a registry holding every module of this package.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.mustRegister(Model{ID: "sine-voice", Name: "Sine Voice", New: func() Module { return NewSineVoice() }})
	r.mustRegister(Model{ID: "oscillator-bank", Name: "Oscillator Bank", New: func() Module { return NewOscillatorBank() }})
	return r
}

// Register ...
func (r *Registry) Register(m Model) error {
	if m.ID == "" {
		return fmt.Errorf("model ID is empty")
	}
	if m.New == nil {
		return fmt.Errorf("model %s has no constructor", m.ID)
	}
	if _, ok := r.models[m.ID]; ok {
		return fmt.Errorf("model %s already registered", m.ID)
	}
	r.models[m.ID] = &m
	r.ids = append(r.ids, m.ID)
	return nil
}

func (r *Registry) mustRegister(m Model) {
	if err := r.Register(m); err != nil {
		panic(err)
	}
}

// Create ...
func (r *Registry) Create(id string) (Module, error) {
	m, ok := r.models[id]
	if !ok {
		return nil, fmt.Errorf("unknown module %q", id)
	}
	return m.New(), nil
}

// Lookup ...
func (r *Registry) Lookup(id string) (Model, bool) {
	m, ok := r.models[id]
	if !ok {
		return Model{}, false
	}
	return *m, true
}

// IDs returns registered IDs in registration order.
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.ids))
	copy(ids, r.ids)
	return ids
}
