package intent

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"nextbot/internal/bridge"
	"nextbot/internal/content"
	"nextbot/internal/store"
)

var (
	reIdentity  = regexp.MustCompile(`(?i)who are you|what are you|your name`)
	reWeather   = regexp.MustCompile(`(?i)weather|temperature|forecast`)
	reRemindIn  = regexp.MustCompile(`(?i)remind me (?:to|about) (.+?) (?:in|after) (\d+)\s*(seconds?|minutes?|hours?|days?)`)
	reRemindAt  = regexp.MustCompile(`(?i)remind me (?:to|about) (.+?) at ((?:[01]?\d|2[0-3]):[0-5]\d)`)
	reNote      = regexp.MustCompile(`(?i)^(?:note|remember that|save)\s*:?\s*(.+)`)
	reTaskAdd   = regexp.MustCompile(`(?i)(?:add|create|new)\s+(?:todo|task)\s*:?\s*(.+)`)
	reTaskList  = regexp.MustCompile(`(?i)^(?:list|show|display)\s+(?:todos|tasks|my tasks)`)
	reTimeQuery = regexp.MustCompile(`(?i)what(?:'s| is) (?:the )?time|tell me the time|current time`)
	reDateQuery = regexp.MustCompile(`(?i)what(?:'s| is) (?:the )?date|tell me the date|what day`)
	reSearch    = regexp.MustCompile(`(?i)(?:search|find|look up|google)\s+(?:for\s+)?(.+)`)
	reOpen      = regexp.MustCompile(`(?i)open\s+(.+)`)
	reClear     = regexp.MustCompile(`(?i)clear (?:all )?(?:reminders|todos|tasks|history|data|everything)`)
	reHelp      = regexp.MustCompile(`(?i)^help|what can you do|capabilities|commands`)
	reURLLike   = regexp.MustCompile(`(?i)^(https?://\S+|www\.\S+)$`)
	reScheme    = regexp.MustCompile(`(?i)^https?://`)
)

// pattern wraps a regexp into a Rule matcher.
func pattern(re *regexp.Regexp) func(string, *Context) []string {
	return func(text string, _ *Context) []string {
		return re.FindStringSubmatch(text)
	}
}

// matchSalutation checks the active language's salutation word list plus the
// base-language list, at the start of the utterance.
func matchSalutation(text string, ctx *Context) []string {
	lower := strings.ToLower(text)
	words := append([]string(nil), ctx.Content.Salutations...)
	if ctx.Content.Lang != content.BaseLang {
		words = append(words, content.For(content.BaseLang).Salutations...)
	}
	for _, w := range words {
		if lower == w || strings.HasPrefix(lower, w+" ") ||
			strings.HasPrefix(lower, w+",") || strings.HasPrefix(lower, w+"!") {
			return []string{w}
		}
	}
	return nil
}

func matchAlways(text string, _ *Context) []string {
	return []string{text}
}

func defaultRules() []Rule {
	return []Rule{
		{Name: "greeting", Match: matchSalutation, Handle: handleGreeting},
		{Name: "identity", Match: pattern(reIdentity), Handle: handleIdentity},
		{Name: "weather", Match: pattern(reWeather), Handle: handleWeather},
		{Name: "remind.relative", Match: pattern(reRemindIn), Handle: handleRemindRelative},
		{Name: "remind.at", Match: pattern(reRemindAt), Handle: handleRemindAt},
		{Name: "note", Match: pattern(reNote), Handle: handleNote},
		{Name: "task.add", Match: pattern(reTaskAdd), Handle: handleTaskAdd},
		{Name: "task.list", Match: pattern(reTaskList), Handle: handleTaskList},
		{Name: "time", Match: pattern(reTimeQuery), Handle: handleTime},
		{Name: "date", Match: pattern(reDateQuery), Handle: handleDate},
		{Name: "search", Match: pattern(reSearch), Handle: handleSearch},
		{Name: "open", Match: pattern(reOpen), Handle: handleOpen},
		{Name: "clear", Match: pattern(reClear), Handle: handleClear},
		{Name: "help", Match: pattern(reHelp), Handle: handleHelp},
		{Name: "fallback", Match: matchAlways, Handle: handleFallback},
	}
}

var idSeq atomic.Int64

// newReminderID returns a token unique for the lifetime of the process.
func newReminderID(now time.Time) string {
	return fmt.Sprintf("r:%d.%d", now.UnixMilli(), idSeq.Add(1))
}

func handleGreeting(_ []string, ctx *Context) Response {
	return Response{Text: content.Pick(ctx.Rand, ctx.Content.Greetings)}
}

func handleIdentity(_ []string, _ *Context) Response {
	return Response{Text: "I'm nextbot, your personal assistant. I can help you with reminders, tasks, information, and various other tasks."}
}

func handleWeather(_ []string, _ *Context) Response {
	return Response{
		Text:    "I don't have direct access to weather data, but I can search the web for current weather information.",
		OpenURL: "https://www.google.com/search?q=weather",
	}
}

func unitMillis(unit string) int64 {
	switch {
	case strings.HasPrefix(unit, "second"):
		return 1000
	case strings.HasPrefix(unit, "minute"):
		return 60 * 1000
	case strings.HasPrefix(unit, "hour"):
		return 60 * 60 * 1000
	case strings.HasPrefix(unit, "day"):
		return 24 * 60 * 60 * 1000
	}
	return 0
}

func handleRemindRelative(m []string, ctx *Context) Response {
	what := strings.TrimSpace(m[1])
	amount, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil {
		return fallbackResponse(ctx)
	}
	unit := strings.ToLower(m[3])

	now := ctx.Clock.Now()
	when := now.UnixMilli() + amount*unitMillis(unit)

	r := store.Reminder{ID: newReminderID(now), Text: what, Time: when}
	addReminder(ctx, r)

	return Response{
		Text:             fmt.Sprintf("I'll remind you to %q in %d %s.", what, amount, m[3]),
		RemindersChanged: true,
	}
}

func handleRemindAt(m []string, ctx *Context) Response {
	what := strings.TrimSpace(m[1])
	parts := strings.SplitN(m[2], ":", 2)
	hh, _ := strconv.Atoi(parts[0])
	mm, _ := strconv.Atoi(parts[1])

	now := ctx.Clock.Now()
	target := time.Date(now.Year(), now.Month(), now.Day(), hh, mm, 0, 0, now.Location())
	if !target.After(now) {
		target = target.AddDate(0, 0, 1)
	}

	r := store.Reminder{ID: newReminderID(now), Text: what, Time: target.UnixMilli()}
	addReminder(ctx, r)

	return Response{
		Text:             fmt.Sprintf("I'll remind you to %q at %s.", what, m[2]),
		RemindersChanged: true,
	}
}

// addReminder persists the record, then hands it to the scheduler. Both must
// happen before the handler returns.
func addReminder(ctx *Context, r store.Reminder) {
	all := append(ctx.Store.Reminders(), r)
	if err := ctx.Store.SaveReminders(all); err != nil {
		panic(fmt.Sprintf("persist reminder: %v", err))
	}
	ctx.Sched.Schedule(r)
}

func handleNote(m []string, ctx *Context) Response {
	note := strings.TrimSpace(m[1])
	tasks := append(ctx.Store.Tasks(), store.Task{Text: note})
	if err := ctx.Store.SaveTasks(tasks); err != nil {
		panic(fmt.Sprintf("persist note: %v", err))
	}
	return Response{
		Text:         fmt.Sprintf("I've saved your note: %q.", note),
		TasksChanged: true,
	}
}

func handleTaskAdd(m []string, ctx *Context) Response {
	item := strings.TrimSpace(m[1])
	tasks := append(ctx.Store.Tasks(), store.Task{Text: item})
	if err := ctx.Store.SaveTasks(tasks); err != nil {
		panic(fmt.Sprintf("persist task: %v", err))
	}
	return Response{
		Text:         fmt.Sprintf("Added task: %q.", item),
		TasksChanged: true,
	}
}

func handleTaskList(_ []string, ctx *Context) Response {
	tasks := ctx.Store.Tasks()
	if len(tasks) == 0 {
		return Response{Text: "You have no tasks at the moment."}
	}

	var active, completed []store.Task
	for _, t := range tasks {
		if t.Done {
			completed = append(completed, t)
		} else {
			active = append(active, t)
		}
	}

	text := fmt.Sprintf("You have %d active task%s.", len(active), plural(len(active)))
	if len(completed) > 0 {
		text += fmt.Sprintf(" %d completed.", len(completed))
	}

	extra := []string{"Your tasks:"}
	for i, t := range active {
		extra = append(extra, fmt.Sprintf("%d. %s", i+1, t.Text))
	}
	return Response{Text: text, Extra: extra}
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func handleTime(_ []string, ctx *Context) Response {
	now := ctx.Clock.Now()
	return Response{Text: fmt.Sprintf("The current time is %s.", now.Format("3:04 PM"))}
}

func handleDate(_ []string, ctx *Context) Response {
	now := ctx.Clock.Now()
	return Response{Text: fmt.Sprintf("Today is %s, %s.", now.Format("January 2, 2006"), now.Weekday())}
}

func searchURL(q string) string {
	return "https://www.google.com/search?q=" + url.QueryEscape(q)
}

func handleSearch(m []string, ctx *Context) Response {
	q := strings.TrimSpace(m[1])
	return Response{
		Text:    fmt.Sprintf("Searching the web for: %s.", q),
		OpenURL: searchURL(q),
	}
}

func handleOpen(m []string, ctx *Context) Response {
	target := strings.TrimSpace(m[1])

	if reURLLike.MatchString(target) {
		if !reScheme.MatchString(target) {
			target = "https://" + target
		}
		return Response{
			Text:    fmt.Sprintf("Opening %s.", target),
			OpenURL: target,
		}
	}

	if ctx.Bridge && bridge.KnownApp(target) {
		return Response{
			Text:    fmt.Sprintf("Opening %s.", target),
			Command: strings.ToLower(target),
		}
	}

	return Response{
		Text:    fmt.Sprintf("Searching for: %s.", target),
		OpenURL: searchURL(target),
	}
}

func handleClear(m []string, ctx *Context) Response {
	lower := strings.ToLower(m[0])
	switch {
	case strings.Contains(lower, "reminders"):
		count := len(ctx.Store.Reminders())
		if err := ctx.Store.SaveReminders(nil); err != nil {
			panic(fmt.Sprintf("clear reminders: %v", err))
		}
		ctx.Sched.CancelAll()
		return Response{
			Text:             fmt.Sprintf("I've cleared all %d reminders.", count),
			RemindersChanged: true,
		}
	case strings.Contains(lower, "todos"), strings.Contains(lower, "tasks"):
		count := len(ctx.Store.Tasks())
		if err := ctx.Store.SaveTasks(nil); err != nil {
			panic(fmt.Sprintf("clear tasks: %v", err))
		}
		return Response{
			Text:         fmt.Sprintf("I've cleared all %d tasks.", count),
			TasksChanged: true,
		}
	default:
		if err := ctx.Store.SaveReminders(nil); err != nil {
			panic(fmt.Sprintf("clear reminders: %v", err))
		}
		if err := ctx.Store.SaveTasks(nil); err != nil {
			panic(fmt.Sprintf("clear tasks: %v", err))
		}
		ctx.Sched.CancelAll()
		return Response{
			Text:             "All data has been cleared.",
			RemindersChanged: true,
			TasksChanged:     true,
		}
	}
}

const helpText = `I can help you with:
- Reminders: "remind me to call mom in 30 minutes"
- Tasks: "add todo buy groceries"
- Notes: "note: meeting at 3pm"
- Time & Date: "what's the time"
- Web search: "search for AI robotics"
- Clear data: "clear reminders" or "clear todos"

You can also speak commands using the microphone.`

func handleHelp(_ []string, _ *Context) Response {
	return Response{Text: helpText, Plain: true}
}

func handleFallback(_ []string, ctx *Context) Response {
	return fallbackResponse(ctx)
}
