// Package session carries the per-user voice preferences supplied by the
// authentication collaborator. The core never fails on a missing session.
package session

import (
	"os"
	"strconv"
)

// Settings are the voice/locale preferences for the active user.
// Zero values mean "unset"; resolve through Defaults precedence.
type Settings struct {
	VoiceRate      float64
	VoicePitch     float64
	VoiceVolume    float64
	PreferredVoice string
	Language       string
}

// Defaults is the built-in nextbot voice profile.
func Defaults() Settings {
	return Settings{
		VoiceRate:   0.95,
		VoicePitch:  0.9,
		VoiceVolume: 1,
		Language:    "en-US",
	}
}

// FromEnv reads session settings from the environment, leaving unset fields
// at zero. Used when no auth collaborator is attached.
func FromEnv() Settings {
	var s Settings
	s.VoiceRate = envFloat("NEXTBOT_VOICE_RATE")
	s.VoicePitch = envFloat("NEXTBOT_VOICE_PITCH")
	s.VoiceVolume = envFloat("NEXTBOT_VOICE_VOLUME")
	s.PreferredVoice = os.Getenv("NEXTBOT_VOICE")
	s.Language = os.Getenv("NEXTBOT_LANG")
	return s
}

func envFloat(key string) float64 {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return f
}
