// Package notify builds the notification payloads shared by every delivery
// channel.
package notify

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/smith3v/focusdesk/pkg/db"
	"github.com/smith3v/focusdesk/pkg/logger"
)

var ErrUnknownKind = errors.New("unknown notification kind")

type Kind string

const (
	KindDailyPlan    Kind = "daily_plan"
	KindTaskDue      Kind = "task_due"
	KindWeeklyReview Kind = "weekly_review"
	KindReminder     Kind = "reminder"
)

func ParseKind(value string) (Kind, error) {
	switch kind := Kind(strings.TrimSpace(value)); kind {
	case KindDailyPlan, KindTaskDue, KindWeeklyReview, KindReminder:
		return kind, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, value)
	}
}

type Action struct {
	Action string `json:"action"`
	Title  string `json:"title"`
}

type Payload struct {
	Title   string            `json:"title"`
	Body    string            `json:"body"`
	Data    map[string]string `json:"data,omitempty"`
	Actions []Action          `json:"actions,omitempty"`
}

// Encode renders the payload as the JSON document the service worker reads.
func (p *Payload) Encode() ([]byte, error) {
	return json.Marshal(p)
}

// Result aggregates one dispatch over several endpoints.
type Result struct {
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
}

func (r Result) Add(other Result) Result {
	return Result{Attempted: r.Attempted + other.Attempted, Succeeded: r.Succeeded + other.Succeeded}
}

// ReminderPayload is the payload sent when a stored reminder becomes due.
// String values from the reminder's data column are carried along; the
// reminder id and type keys always win.
func ReminderPayload(reminder db.Reminder) *Payload {
	data := map[string]string{}
	if len(reminder.Data) > 0 {
		var extra map[string]any
		if err := json.Unmarshal(reminder.Data, &extra); err != nil {
			logger.Warn("ignoring malformed reminder data", "reminder_id", reminder.ID, "error", err)
		}
		for key, value := range extra {
			if s, ok := value.(string); ok {
				data[key] = s
			}
		}
	}
	data["type"] = string(KindReminder)
	data["reminderId"] = reminder.ID
	if _, ok := data["url"]; !ok {
		data["url"] = "/reminders"
	}

	body := strings.TrimSpace(reminder.Notes)
	if body == "" {
		body = "It's time for your reminder."
	}
	return &Payload{
		Title: "Reminder: " + reminder.Title,
		Body:  body,
		Data:  data,
		Actions: []Action{
			{Action: "complete", Title: "Mark done"},
		},
	}
}
