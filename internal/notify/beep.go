// Package notify plays the reminder chime.
package notify

import (
	"fmt"
	log "log/slog"
	"os"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
)

var speakerOnce sync.Once

// Chime plays the mp3 at path and blocks until playback finishes. A missing
// or undecodable file is logged, not fatal.
func Chime(path string) {
	if path == "" {
		return
	}
	if err := play(path); err != nil {
		log.Warn("chime playback failed", "path", path, "err", err)
	}
}

func play(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open chime: %w", err)
	}
	defer f.Close()

	streamer, format, err := mp3.Decode(f)
	if err != nil {
		return fmt.Errorf("decode chime: %w", err)
	}
	defer streamer.Close()

	var initErr error
	speakerOnce.Do(func() {
		initErr = speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10))
	})
	if initErr != nil {
		return fmt.Errorf("init speaker: %w", initErr)
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(streamer, beep.Callback(func() {
		close(done)
	})))
	<-done
	return nil
}
