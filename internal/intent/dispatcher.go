// Package intent resolves raw utterances to exactly one handler through an
// ordered rule table. Rule order is part of the contract: the first match
// wins, and the final rule always matches.
package intent

import (
	log "log/slog"
	"math/rand"
	"strings"

	"nextbot/internal/content"
	"nextbot/internal/sched"
	"nextbot/internal/store"
)

// Store is the persistence surface handlers mutate.
type Store interface {
	Reminders() []store.Reminder
	SaveReminders([]store.Reminder) error
	Tasks() []store.Task
	SaveTasks([]store.Task) error
}

// Scheduler receives every reminder a handler creates, before the handler
// returns.
type Scheduler interface {
	Schedule(store.Reminder)
	Cancel(id string)
	CancelAll()
}

// Context carries the collaborators a handler may touch. Handlers run to
// completion on the single event queue, so no locking is needed here.
type Context struct {
	Clock   sched.Clock
	Store   Store
	Sched   Scheduler
	Content content.Set
	Rand    *rand.Rand

	// Bridge reports whether a remote command bridge is attached; bare
	// app names in "open ..." are routed to it only when true.
	Bridge bool
}

// Response is the single outcome of interpreting one utterance. Deferred
// side effects (opening a URL, calling the bridge) are declared here and
// executed fire-and-forget by the caller.
type Response struct {
	Rule  string   // name of the matched rule
	Text  string   // spoken reply and transcript entry
	Extra []string // additional transcript-only lines
	Plain bool     // suppress the typing animation

	OpenURL string // URL to open externally, if any
	Command string // app name for the remote command bridge, if any

	RemindersChanged bool
	TasksChanged     bool
}

// Handler produces the response for a matched rule. m holds the regexp
// submatches when the rule is pattern-based.
type Handler func(m []string, ctx *Context) Response

// Rule pairs a matcher with its handler. Match returns nil when the rule
// does not apply; a non-nil slice carries the extracted parameters.
type Rule struct {
	Name   string
	Match  func(text string, ctx *Context) []string
	Handle Handler
}

// Dispatcher evaluates rules in fixed precedence order.
type Dispatcher struct {
	rules []Rule
}

// New builds a dispatcher with the default rule table.
func New() *Dispatcher {
	return &Dispatcher{rules: defaultRules()}
}

// Rules exposes the table, in precedence order.
func (d *Dispatcher) Rules() []Rule {
	return d.rules
}

// Interpret resolves raw text to exactly one response. It never panics: a
// handler failure is converted into the fallback response at this boundary.
func (d *Dispatcher) Interpret(raw string, ctx *Context) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("intent handler panicked", "rule", resp.Rule, "err", r)
			resp = fallbackResponse(ctx)
		}
	}()

	text := strings.TrimSpace(raw)
	for _, rule := range d.rules {
		m := rule.Match(text, ctx)
		if m == nil {
			continue
		}
		resp.Rule = rule.Name
		resp = rule.Handle(m, ctx)
		resp.Rule = rule.Name
		return resp
	}

	// Unreachable: the fallback rule matches everything.
	return fallbackResponse(ctx)
}

func fallbackResponse(ctx *Context) Response {
	return Response{
		Rule: "fallback",
		Text: content.Pick(ctx.Rand, ctx.Content.Errors) +
			" Try saying 'help' for a list of available commands.",
	}
}
