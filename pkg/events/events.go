// Package events defines the UI event contract and the websocket bus that
// carries it.
package events

import (
	"fmt"

	"nextbot/internal/store"
)

// Emitted to the UI layer.
const (
	KindSpeakingStarted   = "speaking-started"
	KindSpeakingEnded     = "speaking-ended"
	KindTranscript        = "transcript"
	KindInterim           = "interim"
	KindRemindersChanged  = "reminders-changed"
	KindTasksChanged      = "tasks-changed"
	KindOpenURL           = "open-url"
	KindTranscriptCleared = "transcript-cleared"
)

// Consumed from the UI layer.
const (
	KindSubmitText      = "submit-text"
	KindToggleMic       = "toggle-mic"
	KindClearTranscript = "clear-transcript"
	KindLanguageChanged = "language-changed"
	KindTaskToggle      = "task-toggle"
	KindTaskDelete      = "task-delete"
	KindReminderDelete  = "reminder-delete"
)

// Event is one message on the UI bus; unused fields are omitted on the wire.
type Event struct {
	Kind      string           `json:"kind"`
	Text      string           `json:"text,omitempty"`
	Speaker   string           `json:"speaker,omitempty"`
	IsTyping  bool             `json:"isTyping,omitempty"`
	URL       string           `json:"url,omitempty"`
	Lang      string           `json:"lang,omitempty"`
	Index     int              `json:"index,omitempty"`
	ID        string           `json:"id,omitempty"`
	Reminders []store.Reminder `json:"reminders,omitempty"`
	Tasks     []store.Task     `json:"tasks,omitempty"`
}

// TimeUntil renders a millisecond delta the way the reminder panel shows it.
func TimeUntil(ms int64) string {
	if ms <= 0 {
		return "Overdue"
	}
	seconds := ms / 1000
	minutes := seconds / 60
	hours := minutes / 60
	days := hours / 24

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours%24)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes%60)
	case minutes > 0:
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%ds", seconds)
}
