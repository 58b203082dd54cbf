package voice

import (
	"fmt"
	log "log/slog"
	"os/exec"
	"strings"
	"sync"
)

// Espeak synthesizes through an espeak-ng process. Rate maps to words per
// minute, pitch to espeak's 0-99 scale, volume to amplitude 0-200.
type Espeak struct {
	bin string

	once   sync.Once
	voices []Voice
}

func NewEspeak(bin string) *Espeak {
	if bin == "" {
		bin = "espeak-ng"
	}
	return &Espeak{bin: bin}
}

// Voices lists the installed espeak voices, parsed once from
// `espeak-ng --voices`.
func (e *Espeak) Voices() []Voice {
	e.once.Do(func() {
		out, err := exec.Command(e.bin, "--voices").Output()
		if err != nil {
			log.Warn("failed to list espeak voices", "err", err)
			return
		}
		for i, line := range strings.Split(string(out), "\n") {
			fields := strings.Fields(line)
			if i == 0 || len(fields) < 4 {
				continue // header or malformed row
			}
			e.voices = append(e.voices, Voice{Name: fields[3], Lang: fields[1]})
		}
	})
	return e.voices
}

func (e *Espeak) Speak(text string, v Voice, rate, pitch, volume float64, lang string) error {
	voice := v.Name
	if voice == "" {
		voice = langPrefix(lang)
	}

	args := []string{
		"-s", fmt.Sprintf("%d", clampInt(int(rate*175), 80, 450)),
		"-p", fmt.Sprintf("%d", clampInt(int(pitch*50), 0, 99)),
		"-a", fmt.Sprintf("%d", clampInt(int(volume*100), 0, 200)),
	}
	if voice != "" {
		args = append(args, "-v", voice)
	}
	args = append(args, text)

	if err := exec.Command(e.bin, args...).Run(); err != nil {
		return fmt.Errorf("espeak: %w", err)
	}
	return nil
}

func clampInt(x, lo, hi int) int {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
