package audio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAudio(t *testing.T, moduleID string) *Audio {
	audio, err := newAudio(nil, NewDefaultRegistry(), moduleID)
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, audio.Close())
	})
	return audio
}

func sampleAt(buf []byte, i int, ch int) int16 {
	j := bytesPerSample*i + 2*ch
	return int16(uint16(buf[j]) | uint16(buf[j+1])<<8)
}

func TestBenchmark(t *testing.T) {
	times := 200

	audio := newTestAudio(t, "oscillator-bank")
	out := make([]byte, bufferSizeInBytes)
	for i := 1; i <= numBankVoices; i++ {
		require.NoError(t, audio.update([]string{"set", fmt.Sprintf("osc%d_switch", i), "true"}))
	}
	start := now()
	for n := 0; n < times; n++ {
		_, err := audio.Read(out)
		require.NoError(t, err)
	}
	end := now()
	averageProcessTime := (end - start) / float64(times) * 1000
	fmt.Printf("average process time: %.2fms\n", averageProcessTime)
}

func TestRead(t *testing.T) {
	audio := newTestAudio(t, "sine-voice")
	buf := make([]byte, bufferSizeInBytes)
	n, err := audio.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, bufferSizeInBytes, n)

	reference := NewSineVoice()
	args := newProcessArgs(sampleRate)
	for i := 0; i < samplesPerCycle; i++ {
		reference.Process(args)
		expected := int16(reference.Output() / 5 * 32767)
		require.Equal(t, expected, sampleAt(buf, i, 0), "sample %d", i)
		require.Equal(t, expected, sampleAt(buf, i, 1), "sample %d", i)
	}
}

func TestReadShortBuffer(t *testing.T) {
	audio := newTestAudio(t, "sine-voice")
	n, err := audio.Read(make([]byte, 10*bytesPerSample+1))
	require.NoError(t, err)
	assert.Equal(t, 10*bytesPerSample, n)

	n, err = audio.Read(make([]byte, 3*bufferSizeInBytes))
	require.NoError(t, err)
	assert.Equal(t, bufferSizeInBytes, n)
}

func TestReadAfterCancel(t *testing.T) {
	audio := newTestAudio(t, "sine-voice")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	audio.ctx = ctx
	n, err := audio.Read(make([]byte, bufferSizeInBytes))
	assert.Equal(t, 0, n)
	assert.Equal(t, io.EOF, err)
}

func TestWriteBuffer(t *testing.T) {
	buf := make([]byte, 3*bytesPerSample)
	writeBuffer([]float64{2, -3, 0.5}, buf, 1)
	assert.Equal(t, int16(32767), sampleAt(buf, 0, 1))
	assert.Equal(t, int16(-32767), sampleAt(buf, 1, 1))
	assert.Equal(t, int16(16383), sampleAt(buf, 2, 1))
	assert.Equal(t, int16(0), sampleAt(buf, 0, 0))
}

func TestUpdate(t *testing.T) {
	audio := newTestAudio(t, "sine-voice")
	require.NoError(t, audio.update([]string{"set", "pitch", "7"}))
	assert.True(t, audio.Changes.Has("data"))
	audio.Changes.Delete("data")

	require.NoError(t, audio.update([]string{"module", "oscillator-bank"}))
	assert.Equal(t, "oscillator-bank", audio.ModuleID())
	assert.True(t, audio.Changes.Has("data"))
	assert.Len(t, audio.GetLights(), 2*numBankVoices)

	require.NoError(t, audio.update([]string{"set", "osc2_tune", "3"}))
	require.NoError(t, audio.update([]string{"reset"}))
	v, _ := audio.state.module.Value("osc2_tune")
	assert.Equal(t, 0.0, v)

	assert.Error(t, audio.update(nil))
	assert.Error(t, audio.update([]string{"module", "no-such-module"}))
	assert.Equal(t, "oscillator-bank", audio.ModuleID())
	assert.Error(t, audio.update([]string{"set", "osc2_tune"}))
	assert.Error(t, audio.update([]string{"set", "pitch", "1"}))
	assert.Error(t, audio.update([]string{"note_on", "60"}))
}

func TestGetFFT(t *testing.T) {
	audio := newTestAudio(t, "sine-voice")
	buf := make([]byte, bufferSizeInBytes)
	for i := 0; i < fftSize/samplesPerCycle; i++ {
		_, err := audio.Read(buf)
		require.NoError(t, err)
	}
	result := audio.GetFFT()
	require.Len(t, result, fftSize/2)
	peak := 0
	for i, value := range result {
		if value > result[peak] {
			peak = i
		}
	}
	// 261.6Hz at 48000/2048 Hz per bin
	assert.Equal(t, 11, peak)
}

func TestAudioJSON(t *testing.T) {
	audio := newTestAudio(t, "sine-voice")
	require.NoError(t, audio.update([]string{"set", "pitch", "-4"}))

	var j audioJSON
	require.NoError(t, json.Unmarshal(audio.ToJSON(), &j))
	assert.Equal(t, "sine-voice", j.Module)

	other := newTestAudio(t, "oscillator-bank")
	other.ApplyJSON(audio.ToJSON())
	assert.Equal(t, "sine-voice", other.ModuleID())
	v, _ := other.state.module.Value("pitch")
	assert.Equal(t, -4.0, v)
}

func TestNewAudioUnknownModule(t *testing.T) {
	_, err := newAudio(nil, NewDefaultRegistry(), "no-such-module")
	assert.Error(t, err)
}

func TestStartWithoutDevice(t *testing.T) {
	audio := newTestAudio(t, "sine-voice")
	assert.Error(t, audio.Start(context.Background()))
}

func TestRender(t *testing.T) {
	s := NewSineVoice()
	out := make([]float64, 500)
	assert.Equal(t, 0, Render(s, newProcessArgs(sampleRate), out))
	reference := NewSineVoice()
	for i, value := range out {
		reference.Process(newProcessArgs(sampleRate))
		assert.Equal(t, reference.Output()/5, value, "sample %d", i)
	}
}

func TestReadSurvivesHugeCV(t *testing.T) {
	audio := newTestAudio(t, "oscillator-bank")
	require.NoError(t, audio.update([]string{"set", "osc2_switch", "true"}))
	require.NoError(t, audio.update([]string{"set", "pitch_cv", "2000"}))
	buf := make([]byte, bufferSizeInBytes)
	n, err := audio.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, bufferSizeInBytes, n)
	for i := 0; i < samplesPerCycle; i++ {
		require.Equal(t, int16(0), sampleAt(buf, i, 0), "sample %d", i)
	}

	// back in range, the voice plays again
	require.NoError(t, audio.update([]string{"set", "pitch_cv", "0"}))
	_, err = audio.Read(buf)
	require.NoError(t, err)
	loud := 0
	for i := 0; i < samplesPerCycle; i++ {
		if sampleAt(buf, i, 0) != 0 {
			loud++
		}
	}
	assert.Greater(t, loud, samplesPerCycle/2)
}

type nanModule struct {
	controls
	out *output
}

func newNanModule() *nanModule {
	m := &nanModule{}
	m.out = m.addOutput("out", "Output")
	return m
}

func (m *nanModule) Process(args ProcessArgs) {
	m.out.voltage = math.NaN()
}

func TestReadSilencesNonFiniteOutput(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Model{ID: "nan", New: func() Module { return newNanModule() }}))
	audio, err := newAudio(nil, r, "nan")
	require.NoError(t, err)
	defer audio.Close()

	buf := make([]byte, bufferSizeInBytes)
	for n := 0; n < 2; n++ {
		_, err = audio.Read(buf)
		require.NoError(t, err)
		assert.True(t, audio.state.warned)
	}
	for i := 0; i < samplesPerCycle; i++ {
		require.Equal(t, int16(0), sampleAt(buf, i, 0))
	}
	for _, value := range audio.GetFFT() {
		require.False(t, math.IsNaN(value))
	}

	out := make([]float64, 10)
	assert.Equal(t, 10, Render(newNanModule(), newProcessArgs(sampleRate), out))
}
