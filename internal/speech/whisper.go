package speech

import (
	"context"
	"errors"
	log "log/slog"
	"strings"
	"sync"
	"time"

	"nextbot/pkg/stt"
)

// WhisperEngine implements Engine over the microphone recorder and a local
// whisper model. Each Start captures one end-pointed utterance, reports the
// transcript as a final result, and ends the session.
type WhisperEngine struct {
	rec  *Recorder
	tr   *stt.Transcriber
	lang func() string // whisper language code, e.g. "en"

	capture *Capture

	mu      sync.Mutex
	running bool
	stop    chan struct{}
}

func NewWhisperEngine(rec *Recorder, tr *stt.Transcriber, lang func() string) *WhisperEngine {
	return &WhisperEngine{rec: rec, tr: tr, lang: lang}
}

// Bind attaches the state machine the engine reports into. Must be called
// before Start.
func (e *WhisperEngine) Bind(c *Capture) {
	e.capture = c
}

func (e *WhisperEngine) Start() error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return errors.New("capture session already active")
	}
	e.running = true
	e.stop = make(chan struct{})
	stop := e.stop
	e.mu.Unlock()

	go e.session(stop)
	return nil
}

func (e *WhisperEngine) Stop() {
	e.mu.Lock()
	if e.running && e.stop != nil {
		close(e.stop)
		e.stop = nil
	}
	e.mu.Unlock()
}

func (e *WhisperEngine) session(stop <-chan struct{}) {
	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
		e.capture.HandleEnd()
	}()

	pcm, err := e.rec.Record(stop)
	if err != nil {
		e.capture.HandleError(ErrAudioCapture, err.Error())
		return
	}

	select {
	case <-stop:
		return
	default:
	}

	if len(pcm) == 0 {
		e.capture.HandleError(ErrNoSpeech, "no speech detected")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	res, err := e.tr.TranscribePCM(ctx, pcm, stt.Options{Language: e.language()})
	if err != nil {
		e.capture.HandleError(ErrOther, err.Error())
		return
	}

	text := strings.TrimSpace(res.Text)
	if text == "" {
		e.capture.HandleError(ErrNoSpeech, "empty transcript")
		return
	}

	log.Debug("transcribed utterance", "text", text)
	e.capture.HandleFinal(text)
}

func (e *WhisperEngine) language() string {
	if e.lang == nil {
		return "auto"
	}
	code := e.lang()
	if code == "" {
		return "auto"
	}
	return code
}
