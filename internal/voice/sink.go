// Package voice turns response strings into spoken utterances honoring the
// session voice preferences.
package voice

import (
	log "log/slog"
	"strings"

	"nextbot/internal/session"
)

// Overrides are per-utterance preference overrides. Zero values mean unset.
type Overrides struct {
	Rate   float64
	Pitch  float64
	Volume float64
	Lang   string
}

// Voice is one synthesis voice resource.
type Voice struct {
	Name string
	Lang string // BCP-47-ish locale, e.g. "en-US"
}

// Synthesizer renders one utterance. Implementations may block; the sink
// always calls Speak off the event queue.
type Synthesizer interface {
	Voices() []Voice
	Speak(text string, v Voice, rate, pitch, volume float64, lang string) error
}

// Sink resolves effective voice parameters and brackets every utterance
// with begin/end notifications.
type Sink struct {
	synth    Synthesizer
	settings func() session.Settings
	onStart  func()
	onEnd    func()
}

func NewSink(synth Synthesizer, settings func() session.Settings, onStart, onEnd func()) *Sink {
	if settings == nil {
		settings = func() session.Settings { return session.Settings{} }
	}
	return &Sink{synth: synth, settings: settings, onStart: onStart, onEnd: onEnd}
}

// Speak renders text asynchronously. Parameter precedence is explicit
// override, then session settings, then built-in default. The end
// notification fires even when synthesis errors.
func (s *Sink) Speak(text string, ov Overrides) {
	if text == "" || s.synth == nil {
		return
	}

	set := s.settings()
	def := session.Defaults()

	rate := pick(ov.Rate, set.VoiceRate, def.VoiceRate)
	pitch := pick(ov.Pitch, set.VoicePitch, def.VoicePitch)
	volume := pick(ov.Volume, set.VoiceVolume, def.VoiceVolume)
	lang := pickStr(ov.Lang, set.Language, def.Language)
	v := selectVoice(s.synth.Voices(), set.PreferredVoice, lang)

	if s.onStart != nil {
		s.onStart()
	}
	go func() {
		defer func() {
			if s.onEnd != nil {
				s.onEnd()
			}
		}()
		if err := s.synth.Speak(text, v, rate, pitch, volume, lang); err != nil {
			log.Error("synthesis failed", "err", err)
		}
	}()
}

// selectVoice prefers an exact name match, then a language-prefix match,
// and otherwise leaves the synthesizer default.
func selectVoice(voices []Voice, preferred, lang string) Voice {
	if preferred != "" {
		for _, v := range voices {
			if v.Name == preferred {
				return v
			}
		}
	}
	prefix := langPrefix(lang)
	if prefix != "" {
		for _, v := range voices {
			if langPrefix(v.Lang) == prefix {
				return v
			}
		}
	}
	return Voice{}
}

func langPrefix(lang string) string {
	lang = strings.ToLower(lang)
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		return lang[:i]
	}
	return lang
}

func pick(override, session, def float64) float64 {
	if override > 0 {
		return override
	}
	if session > 0 {
		return session
	}
	return def
}

func pickStr(override, session, def string) string {
	if override != "" {
		return override
	}
	if session != "" {
		return session
	}
	return def
}
