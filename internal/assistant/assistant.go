// Package assistant wires the dispatcher, stores, scheduler, speech capture
// and output sink behind a single event queue. Handlers run to completion
// before the next event is processed; timers and engine callbacks post
// closures onto the queue instead of touching state directly.
package assistant

import (
	"context"
	"fmt"
	log "log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"nextbot/internal/bridge"
	"nextbot/internal/content"
	"nextbot/internal/intent"
	"nextbot/internal/notify"
	"nextbot/internal/sched"
	"nextbot/internal/session"
	"nextbot/internal/speech"
	"nextbot/internal/store"
	"nextbot/internal/voice"
	"nextbot/pkg/events"
)

// EventSink receives UI events. Implementations must be safe for
// concurrent use.
type EventSink interface {
	Emit(events.Event) error
}

// Config assembles an Assistant.
type Config struct {
	Clock    sched.Clock
	Store    intent.Store
	Synth    voice.Synthesizer
	Engine   speech.Engine
	Bus      EventSink      // nil drops events
	Bridge   *bridge.Client // nil disables the open-app family
	Settings session.Settings
	Lang     string // content language selector, default "EN"

	ChimePath    string
	RestartDelay time.Duration
	Permission   func() error
	Seed         int64
}

type Assistant struct {
	clock   sched.Clock
	st      intent.Store
	disp    *intent.Dispatcher
	sch     *sched.Scheduler
	sink    *voice.Sink
	capture *speech.Capture
	bus     EventSink
	brid    *bridge.Client
	chime   string
	rng     *rand.Rand

	mu       sync.Mutex
	settings session.Settings
	lang     string

	queue chan func()
}

func New(cfg Config) *Assistant {
	if cfg.Clock == nil {
		cfg.Clock = sched.RealClock()
	}
	if cfg.Lang == "" {
		cfg.Lang = content.BaseLang
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	a := &Assistant{
		clock:    cfg.Clock,
		st:       cfg.Store,
		disp:     intent.New(),
		bus:      cfg.Bus,
		brid:     cfg.Bridge,
		chime:    cfg.ChimePath,
		rng:      rand.New(rand.NewSource(seed)),
		settings: cfg.Settings,
		lang:     cfg.Lang,
		queue:    make(chan func(), 64),
	}

	a.sch = sched.New(cfg.Clock, cfg.Store, a.reminderDue)
	a.sink = voice.NewSink(cfg.Synth, a.sessionSettings,
		func() { a.post(func() { a.emit(events.Event{Kind: events.KindSpeakingStarted}) }) },
		func() { a.post(func() { a.emit(events.Event{Kind: events.KindSpeakingEnded}) }) })
	a.capture = speech.New(speech.Config{
		Engine:       cfg.Engine,
		Clock:        cfg.Clock,
		RestartDelay: cfg.RestartDelay,
		Permission:   cfg.Permission,
		OnInterim:    a.interim,
		OnFinal:      a.SubmitText,
		OnNotice:     a.notice,
	})

	return a
}

// Capture exposes the speech state machine, mainly for binding engines.
func (a *Assistant) Capture() *speech.Capture { return a.capture }

// Start re-arms persisted reminders and greets the user. Overdue reminders
// fire immediately, in store order.
func (a *Assistant) Start() {
	a.sch.Rearm()
	a.post(func() {
		a.say(content.Pick(a.rng, a.content().Greetings), true)
		a.emitReminders()
		a.emitTasks()
	})
}

// Run drains the event queue until ctx is cancelled.
func (a *Assistant) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case f := <-a.queue:
			f()
		}
	}
}

// SubmitText queues one utterance for interpretation.
func (a *Assistant) SubmitText(text string) {
	a.post(func() { a.handleUtterance(text) })
}

// ToggleMic flips the continuous-listening intent.
func (a *Assistant) ToggleMic() {
	a.post(a.capture.Toggle)
}

// ClearTranscript clears the visible chat.
func (a *Assistant) ClearTranscript() {
	a.post(func() {
		a.emit(events.Event{Kind: events.KindTranscriptCleared})
		a.say("Chat cleared.", true)
	})
}

// SetLanguage switches the active phrase set and the session voice locale.
func (a *Assistant) SetLanguage(code string) {
	a.post(func() {
		set := content.For(code)
		a.mu.Lock()
		a.lang = set.Lang
		a.settings.Language = set.Voice
		a.mu.Unlock()
		a.say(content.Pick(a.rng, set.Acks), true)
	})
}

// ToggleTask flips the done flag of the task at position i.
func (a *Assistant) ToggleTask(i int) {
	a.post(func() {
		tasks := a.st.Tasks()
		if i < 0 || i >= len(tasks) {
			return
		}
		tasks[i].Done = !tasks[i].Done
		if err := a.st.SaveTasks(tasks); err != nil {
			log.Warn("failed to save tasks", "err", err)
			return
		}
		if tasks[i].Done {
			a.say("Task marked complete.", true)
		} else {
			a.say("Task restored.", true)
		}
		a.emitTasks()
	})
}

// DeleteTask removes the task at position i.
func (a *Assistant) DeleteTask(i int) {
	a.post(func() {
		tasks := a.st.Tasks()
		if i < 0 || i >= len(tasks) {
			return
		}
		tasks = append(tasks[:i], tasks[i+1:]...)
		if err := a.st.SaveTasks(tasks); err != nil {
			log.Warn("failed to save tasks", "err", err)
			return
		}
		a.say(content.Pick(a.rng, a.content().Acks), true)
		a.emitTasks()
	})
}

// DeleteReminder removes a reminder and disarms its timer.
func (a *Assistant) DeleteReminder(id string) {
	a.post(func() {
		rems := a.st.Reminders()
		kept := make([]store.Reminder, 0, len(rems))
		for _, r := range rems {
			if r.ID != id {
				kept = append(kept, r)
			}
		}
		if len(kept) == len(rems) {
			return
		}
		if err := a.st.SaveReminders(kept); err != nil {
			log.Warn("failed to save reminders", "err", err)
			return
		}
		a.sch.Cancel(id)
		a.say(content.Pick(a.rng, a.content().Acks), true)
		a.emitReminders()
	})
}

// HandleEvent routes one consumed UI event.
func (a *Assistant) HandleEvent(ev events.Event) {
	switch ev.Kind {
	case events.KindSubmitText:
		a.SubmitText(ev.Text)
	case events.KindToggleMic:
		a.ToggleMic()
	case events.KindClearTranscript:
		a.ClearTranscript()
	case events.KindLanguageChanged:
		a.SetLanguage(ev.Lang)
	case events.KindTaskToggle:
		a.ToggleTask(ev.Index)
	case events.KindTaskDelete:
		a.DeleteTask(ev.Index)
	case events.KindReminderDelete:
		a.DeleteReminder(ev.ID)
	default:
		log.Warn("unknown ui event", "kind", ev.Kind)
	}
}

// VoiceLocale reports the active recognition/synthesis locale.
func (a *Assistant) VoiceLocale() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.settings.Language != "" {
		return a.settings.Language
	}
	return session.Defaults().Language
}

// RecognitionLang is the two-letter code handed to the transcriber.
func (a *Assistant) RecognitionLang() string {
	loc := a.VoiceLocale()
	if i := strings.IndexAny(loc, "-_"); i > 0 {
		return strings.ToLower(loc[:i])
	}
	return strings.ToLower(loc)
}

func (a *Assistant) handleUtterance(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	a.emit(events.Event{Kind: events.KindTranscript, Text: text, Speaker: "user"})

	resp := a.disp.Interpret(text, a.intentCtx())

	a.emit(events.Event{Kind: events.KindTranscript, Text: resp.Text, Speaker: "bot", IsTyping: !resp.Plain})
	for _, line := range resp.Extra {
		a.emit(events.Event{Kind: events.KindTranscript, Text: line, Speaker: "bot"})
	}
	a.sink.Speak(resp.Text, voice.Overrides{})

	if resp.OpenURL != "" {
		a.emit(events.Event{Kind: events.KindOpenURL, URL: resp.OpenURL})
	}
	if resp.Command != "" && a.brid != nil {
		go a.sendBridge(resp.Command)
	}
	if resp.RemindersChanged {
		a.emitReminders()
	}
	if resp.TasksChanged {
		a.emitTasks()
	}
}

// reminderDue runs on the timer goroutine (or synchronously for overdue
// reminders); delivery is serialized through the queue.
func (a *Assistant) reminderDue(r store.Reminder) {
	a.post(func() {
		go notify.Chime(a.chime)
		a.emit(events.Event{Kind: events.KindTranscript, Text: "Reminder: " + r.Text, Speaker: "bot"})
		a.sink.Speak(fmt.Sprintf("Sir, your reminder: %s", r.Text), voice.Overrides{})
		a.emitReminders()
	})
}

func (a *Assistant) sendBridge(command string) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := a.brid.Send(ctx, command); err != nil {
		log.Warn("bridge call failed", "command", command, "err", err)
		a.post(func() {
			a.emit(events.Event{Kind: events.KindTranscript, Speaker: "bot",
				Text: "I couldn't reach the system bridge to run that command."})
		})
	}
}

func (a *Assistant) interim(text string) {
	a.emit(events.Event{Kind: events.KindInterim, Text: text})
}

func (a *Assistant) notice(msg string) {
	a.post(func() {
		a.emit(events.Event{Kind: events.KindTranscript, Text: msg, Speaker: "bot"})
	})
}

func (a *Assistant) say(text string, plain bool) {
	if text == "" {
		return
	}
	a.emit(events.Event{Kind: events.KindTranscript, Text: text, Speaker: "bot", IsTyping: !plain})
	a.sink.Speak(text, voice.Overrides{})
}

func (a *Assistant) intentCtx() *intent.Context {
	return &intent.Context{
		Clock:   a.clock,
		Store:   a.st,
		Sched:   a.sch,
		Content: a.content(),
		Rand:    a.rng,
		Bridge:  a.brid != nil,
	}
}

func (a *Assistant) content() content.Set {
	a.mu.Lock()
	defer a.mu.Unlock()
	return content.For(a.lang)
}

func (a *Assistant) sessionSettings() session.Settings {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.settings
}

func (a *Assistant) emitReminders() {
	a.emit(events.Event{Kind: events.KindRemindersChanged, Reminders: a.st.Reminders()})
}

func (a *Assistant) emitTasks() {
	a.emit(events.Event{Kind: events.KindTasksChanged, Tasks: a.st.Tasks()})
}

func (a *Assistant) emit(ev events.Event) {
	if a.bus == nil {
		return
	}
	if err := a.bus.Emit(ev); err != nil {
		log.Warn("failed to emit ui event", "kind", ev.Kind, "err", err)
	}
}

func (a *Assistant) post(f func()) {
	a.queue <- f
}
