package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/jinjor/rack-oscillators/src/audio"
	"github.com/jinjor/rack-oscillators/src/wavfile"
	"golang.org/x/sync/errgroup"
)

const sampleRate = 48000

type settings []string

func (s *settings) String() string {
	return strings.Join(*s, ",")
}
func (s *settings) Set(value string) error {
	if !strings.Contains(value, "=") {
		return fmt.Errorf("expected name=value, got %q", value)
	}
	*s = append(*s, value)
	return nil
}

func main() {
	var sets settings
	modules := flag.String("modules", "", "comma separated module IDs (default: all)")
	seconds := flag.Float64("seconds", 2, "length of each file")
	flag.Var(&sets, "set", "control value as name=value, repeatable")
	flag.Parse()
	dir := flag.Arg(0)
	if dir == "" {
		panic("dir is not passed")
	}
	log.SetFlags(log.Lshortfile)

	samples, err := samplesFor(*seconds)
	if err != nil {
		log.Fatalf("error: %v\n", err)
	}

	registry := audio.NewDefaultRegistry()
	ids := registry.IDs()
	if *modules != "" {
		ids = strings.Split(*modules, ",")
	}
	ms, err := prepareModules(registry, ids, sets)
	if err != nil {
		log.Fatalf("error: %v\n", err)
	}

	g, _ := errgroup.WithContext(context.Background())
	for i, id := range ids {
		m, id := ms[i], id
		g.Go(func() error {
			out := make([]float64, samples)
			args := audio.ProcessArgs{SampleRate: sampleRate, SampleTime: 1.0 / sampleRate}
			if silenced := audio.Render(m, args, out); silenced > 0 {
				log.Printf("[WARN] %s produced %d non-finite samples\n", id, silenced)
			}
			log.Printf("rendered %s\n", id)
			path := filepath.Join(dir, id+".wav")
			if err := wavfile.Write(path, out, sampleRate); err != nil {
				return err
			}
			log.Printf("saved %s\n", path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatalf("error: %v\n", err)
	}
	log.Println("Successfully rendered modules.")
}

func samplesFor(seconds float64) (int, error) {
	if !(seconds > 0) {
		return 0, fmt.Errorf("-seconds must be positive, got %v", seconds)
	}
	return int(seconds * sampleRate), nil
}

// prepareModules creates one module per ID and applies sets to them. Every
// setting has to be accepted by at least one of the modules.
func prepareModules(registry *audio.Registry, ids []string, sets settings) ([]audio.Module, error) {
	accepted := make(map[string]bool)
	ms := make([]audio.Module, len(ids))
	for i, id := range ids {
		m, err := registry.Create(id)
		if err != nil {
			return nil, err
		}
		if err := applySettings(m, sets, accepted); err != nil {
			return nil, fmt.Errorf("%s: %w", id, err)
		}
		ms[i] = m
	}
	for _, s := range sets {
		if !accepted[s] {
			return nil, fmt.Errorf("no module has a control for %q", s)
		}
	}
	return ms, nil
}

// settings naming a control the module lacks are skipped
func applySettings(m audio.Module, sets settings, accepted map[string]bool) error {
	for _, s := range sets {
		kv := strings.SplitN(s, "=", 2)
		if _, ok := m.Value(kv[0]); !ok {
			continue
		}
		if err := m.Set(kv[0], kv[1]); err != nil {
			return err
		}
		accepted[s] = true
	}
	return nil
}
