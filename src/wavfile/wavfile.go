// Package wavfile writes normalised float samples to 16-bit PCM WAV files.
package wavfile

import (
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const bitDepth = 16
const formatPCM = 1

// Encode writes mono samples in [-1, 1] to w. Values outside are clipped.
func Encode(w io.WriteSeeker, samples []float64, sampleRate int) error {
	enc := wav.NewEncoder(w, sampleRate, bitDepth, 1, formatPCM)
	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: 1,
			SampleRate:  sampleRate,
		},
		Data:           make([]int, len(samples)),
		SourceBitDepth: bitDepth,
	}
	const max = 32767
	for i, value := range samples {
		if value > 1 {
			value = 1
		} else if value < -1 {
			value = -1
		}
		buf.Data[i] = int(value * max)
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("wav: %w", err)
	}
	return nil
}

// Write creates (or truncates) path and encodes samples into it.
func Write(path string, samples []float64, sampleRate int) (rerr error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if err := f.Close(); err != nil && rerr == nil {
			rerr = err
		}
	}()
	return Encode(f, samples, sampleRate)
}
