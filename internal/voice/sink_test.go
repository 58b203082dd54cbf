package voice

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nextbot/internal/session"
)

type call struct {
	text   string
	voice  Voice
	rate   float64
	pitch  float64
	volume float64
	lang   string
}

type fakeSynth struct {
	mu     sync.Mutex
	voices []Voice
	calls  []call
	err    error
}

func (f *fakeSynth) Voices() []Voice { return f.voices }

func (f *fakeSynth) Speak(text string, v Voice, rate, pitch, volume float64, lang string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{text, v, rate, pitch, volume, lang})
	return f.err
}

func (f *fakeSynth) last(t *testing.T) call {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.calls)
	return f.calls[len(f.calls)-1]
}

// newSink returns a sink whose end notifications are observable through the
// returned channel.
func newSink(synth *fakeSynth, settings session.Settings) (*Sink, chan struct{}) {
	done := make(chan struct{}, 8)
	s := NewSink(synth, func() session.Settings { return settings }, nil,
		func() { done <- struct{}{} })
	return s, done
}

func waitEnd(t *testing.T, done chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("end notification never fired")
	}
}

func TestDefaultsApply(t *testing.T) {
	synth := &fakeSynth{}
	s, done := newSink(synth, session.Settings{})

	s.Speak("hello", Overrides{})
	waitEnd(t, done)

	def := session.Defaults()
	got := synth.last(t)
	assert.Equal(t, "hello", got.text)
	assert.Equal(t, def.VoiceRate, got.rate)
	assert.Equal(t, def.VoicePitch, got.pitch)
	assert.Equal(t, def.VoiceVolume, got.volume)
	assert.Equal(t, def.Language, got.lang)
}

func TestSessionBeatsDefaults(t *testing.T) {
	synth := &fakeSynth{}
	s, done := newSink(synth, session.Settings{VoiceRate: 1.2, Language: "de-DE"})

	s.Speak("hallo", Overrides{})
	waitEnd(t, done)

	got := synth.last(t)
	assert.Equal(t, 1.2, got.rate)
	assert.Equal(t, "de-DE", got.lang)
	assert.Equal(t, session.Defaults().VoicePitch, got.pitch, "unset fields keep defaults")
}

func TestOverrideBeatsSession(t *testing.T) {
	synth := &fakeSynth{}
	s, done := newSink(synth, session.Settings{VoiceRate: 1.2, Language: "de-DE"})

	s.Speak("bonjour", Overrides{Rate: 0.5, Lang: "fr-FR"})
	waitEnd(t, done)

	got := synth.last(t)
	assert.Equal(t, 0.5, got.rate)
	assert.Equal(t, "fr-FR", got.lang)
}

func TestVoiceSelection(t *testing.T) {
	voices := []Voice{
		{Name: "anna", Lang: "de-DE"},
		{Name: "sam", Lang: "en-US"},
		{Name: "kate", Lang: "en-GB"},
	}

	// exact preferred name wins
	synth := &fakeSynth{voices: voices}
	s, done := newSink(synth, session.Settings{PreferredVoice: "kate"})
	s.Speak("hi", Overrides{})
	waitEnd(t, done)
	assert.Equal(t, "kate", synth.last(t).voice.Name)

	// unknown preferred name falls back to language prefix
	synth = &fakeSynth{voices: voices}
	s, done = newSink(synth, session.Settings{PreferredVoice: "ghost", Language: "en-US"})
	s.Speak("hi", Overrides{})
	waitEnd(t, done)
	assert.Equal(t, "sam", synth.last(t).voice.Name)

	// no match leaves the synthesizer default
	synth = &fakeSynth{voices: voices}
	s, done = newSink(synth, session.Settings{Language: "ja-JP"})
	s.Speak("hi", Overrides{})
	waitEnd(t, done)
	assert.Equal(t, Voice{}, synth.last(t).voice)
}

func TestEmptyTextIsSkipped(t *testing.T) {
	synth := &fakeSynth{}
	started := 0
	s := NewSink(synth, nil, func() { started++ }, nil)

	s.Speak("", Overrides{})

	assert.Zero(t, started)
	assert.Empty(t, synth.calls)
}

func TestEndFiresOnSynthesisError(t *testing.T) {
	synth := &fakeSynth{err: errors.New("espeak exploded")}
	s, done := newSink(synth, session.Settings{})

	s.Speak("hello", Overrides{})
	waitEnd(t, done)
}

func TestStartPrecedesEnd(t *testing.T) {
	synth := &fakeSynth{}
	var mu sync.Mutex
	var order []string
	done := make(chan struct{}, 1)

	s := NewSink(synth, nil,
		func() { mu.Lock(); order = append(order, "start"); mu.Unlock() },
		func() {
			mu.Lock()
			order = append(order, "end")
			mu.Unlock()
			done <- struct{}{}
		})

	s.Speak("hello", Overrides{})
	waitEnd(t, done)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"start", "end"}, order)
}
