// Package speech owns the continuous listening session: start/stop intent,
// interim and final results, error classification, and the auto-restart
// policy around the capture engine.
package speech

import (
	log "log/slog"
	"sync"
	"time"

	"nextbot/internal/sched"
)

// State is the recognizer-facing session state. It may transiently diverge
// from the user's listening intent (the "should listen" flag) while the
// engine finishes a stop cycle.
type State int

const (
	StateIdle State = iota
	StateListening
	StateRestarting
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateRestarting:
		return "restarting"
	case StateError:
		return "error"
	}
	return "unknown"
}

// ErrClass classifies engine-level errors.
type ErrClass int

const (
	ErrNoSpeech ErrClass = iota
	ErrAudioCapture
	ErrNotAllowed
	ErrNetwork
	ErrOther
)

func (c ErrClass) String() string {
	switch c {
	case ErrNoSpeech:
		return "no-speech"
	case ErrAudioCapture:
		return "audio-capture"
	case ErrNotAllowed:
		return "not-allowed"
	case ErrNetwork:
		return "network"
	}
	return "other"
}

// Engine is one capture session. Start begins a session that reports
// results through the Capture's Handle* methods and ends with HandleEnd.
type Engine interface {
	Start() error
	Stop()
}

const defaultRestartDelay = 200 * time.Millisecond

// Config wires a Capture.
type Config struct {
	Engine       Engine
	Clock        sched.Clock
	RestartDelay time.Duration

	// Permission asks for microphone access; nil means always granted.
	Permission func() error

	OnInterim func(string) // transient display-only buffer updates
	OnFinal   func(string) // exactly one call per final result
	OnNotice  func(string) // user-visible messages
}

// Capture is the speech session state machine. At most one engine session
// is active at a time.
type Capture struct {
	cfg Config

	mu           sync.Mutex
	state        State
	shouldListen bool
	interim      string
	restart      sched.Timer
}

func New(cfg Config) *Capture {
	if cfg.Clock == nil {
		cfg.Clock = sched.RealClock()
	}
	if cfg.RestartDelay <= 0 {
		cfg.RestartDelay = defaultRestartDelay
	}
	return &Capture{cfg: cfg}
}

// Toggle flips the user's listening intent. Stopping is deterministic: no
// auto-restart survives it.
func (c *Capture) Toggle() {
	c.mu.Lock()
	if c.shouldListen {
		c.shouldListen = false
		c.stopRestartLocked()
		c.state = StateIdle
		c.interim = ""
		c.mu.Unlock()
		c.cfg.Engine.Stop()
		return
	}
	c.mu.Unlock()

	if c.cfg.Permission != nil {
		if err := c.cfg.Permission(); err != nil {
			log.Warn("microphone permission denied", "err", err)
			c.notice("Microphone access denied or unavailable. Please allow microphone access.")
			return
		}
	}

	c.mu.Lock()
	c.shouldListen = true
	c.mu.Unlock()

	if err := c.cfg.Engine.Start(); err != nil {
		log.Error("failed to start capture", "err", err)
		c.mu.Lock()
		c.shouldListen = false
		c.state = StateIdle
		c.mu.Unlock()
		c.notice("Could not start voice recognition.")
		return
	}

	c.mu.Lock()
	c.state = StateListening
	c.mu.Unlock()
}

// HandleInterim updates the display-only buffer. Interim text is never
// dispatched.
func (c *Capture) HandleInterim(text string) {
	c.mu.Lock()
	if !c.shouldListen {
		c.mu.Unlock()
		return
	}
	c.interim = text
	c.mu.Unlock()

	if c.cfg.OnInterim != nil {
		c.cfg.OnInterim(text)
	}
}

// HandleFinal forwards one final result and clears the interim buffer.
// Results arriving after the user stopped listening are dropped.
func (c *Capture) HandleFinal(text string) {
	c.mu.Lock()
	c.interim = ""
	deliver := c.shouldListen
	c.mu.Unlock()

	if deliver && c.cfg.OnFinal != nil {
		c.cfg.OnFinal(text)
	}
}

// HandleEnd reacts to the engine finishing a session on its own. While the
// user still wants to listen, a restart is armed after a short delay to
// avoid a tight loop.
func (c *Capture) HandleEnd() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.interim = ""
	if c.shouldListen {
		c.armRestartLocked()
		return
	}
	c.state = StateIdle
}

// HandleError classifies an engine error. not-allowed kills the listening
// intent and surfaces a persistent message; every other class restarts
// silently while the intent holds.
func (c *Capture) HandleError(class ErrClass, detail string) {
	c.mu.Lock()
	c.interim = ""

	if class == ErrNotAllowed {
		c.shouldListen = false
		c.stopRestartLocked()
		c.state = StateIdle
		c.mu.Unlock()
		c.notice("Microphone permission was denied. Please allow microphone access.")
		return
	}

	log.Warn("speech engine error", "class", class.String(), "detail", detail)
	if c.shouldListen {
		c.armRestartLocked()
		c.mu.Unlock()
		return
	}
	c.state = StateIdle
	c.mu.Unlock()
}

// State reports the current session state.
func (c *Capture) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ShouldListen reports the user's listening intent.
func (c *Capture) ShouldListen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.shouldListen
}

// Interim returns the transient display buffer.
func (c *Capture) Interim() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interim
}

func (c *Capture) armRestartLocked() {
	c.state = StateRestarting
	c.stopRestartLocked()
	c.restart = c.cfg.Clock.AfterFunc(c.cfg.RestartDelay, c.restartNow)
}

func (c *Capture) restartNow() {
	c.mu.Lock()
	c.restart = nil
	if !c.shouldListen {
		c.state = StateIdle
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	if err := c.cfg.Engine.Start(); err != nil {
		log.Error("failed to restart capture", "err", err)
		c.mu.Lock()
		c.shouldListen = false
		c.state = StateError
		c.mu.Unlock()
		c.notice("Could not restart voice recognition.")
		return
	}

	c.mu.Lock()
	if c.shouldListen {
		c.state = StateListening
	}
	c.mu.Unlock()
}

func (c *Capture) stopRestartLocked() {
	if c.restart != nil {
		c.restart.Stop()
		c.restart = nil
	}
}

func (c *Capture) notice(msg string) {
	if c.cfg.OnNotice != nil {
		c.cfg.OnNotice(msg)
	}
}
