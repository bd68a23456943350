package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/smith3v/focusdesk/pkg/db"
	"github.com/smith3v/focusdesk/pkg/logger"
	"golang.org/x/text/feature/plural"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

const dailyPlanBodyKey = "daily_plan.body"

// TaskCounter is the read-only view of the task service the generator needs.
type TaskCounter interface {
	CountPendingForDay(ctx context.Context, userID string, now time.Time, loc *time.Location) (int64, error)
	EarliestPendingDue(ctx context.Context, userID string) (*db.Task, error)
}

// UserContext identifies whose counts to read and which local day is today.
type UserContext struct {
	UserID   string
	Location *time.Location
	Now      time.Time
}

type Generator struct {
	tasks   TaskCounter
	printer *message.Printer
}

// NewGenerator builds the message catalog. If the catalog cannot be built the
// error is logged and bodies are formatted without it.
func NewGenerator(tasks TaskCounter) *Generator {
	printer, err := newPrinter()
	if err != nil {
		logger.Error("failed to build notification catalog", "error", err)
	}
	return &Generator{tasks: tasks, printer: printer}
}

func newPrinter() (*message.Printer, error) {
	builder := catalog.NewBuilder(catalog.Fallback(language.English))
	err := builder.Set(language.English, dailyPlanBodyKey,
		plural.Selectf(1, "%d",
			"=1", "You have %d task planned for today.",
			"other", "You have %d tasks planned for today.",
		))
	if err != nil {
		return nil, fmt.Errorf("set %s: %w", dailyPlanBodyKey, err)
	}
	return message.NewPrinter(language.English, message.Catalog(builder)), nil
}

func (g *Generator) dailyPlanBody(count int64) string {
	if g.printer == nil {
		if count == 1 {
			return "You have 1 task planned for today."
		}
		return fmt.Sprintf("You have %d tasks planned for today.", count)
	}
	return g.printer.Sprintf(dailyPlanBodyKey, count)
}

// Generate builds the payload for kind. Unknown kinds return ErrUnknownKind
// and a nil payload.
func (g *Generator) Generate(ctx context.Context, kind Kind, uc UserContext) (*Payload, error) {
	if uc.Location == nil {
		uc.Location = time.UTC
	}
	if uc.Now.IsZero() {
		uc.Now = time.Now()
	}

	switch kind {
	case KindDailyPlan:
		return g.dailyPlan(ctx, uc)
	case KindTaskDue:
		return g.taskDue(ctx, uc)
	case KindWeeklyReview:
		return &Payload{
			Title:   "Weekly Review",
			Body:    "Take a few minutes to reflect on your week and plan the next one.",
			Data:    map[string]string{"type": string(KindWeeklyReview), "url": "/review"},
			Actions: []Action{{Action: "review", Title: "Start Review"}},
		}, nil
	case KindReminder:
		return &Payload{
			Title: "Reminder",
			Body:  "You have a reminder waiting for you.",
			Data:  map[string]string{"type": string(KindReminder), "url": "/reminders"},
		}, nil
	default:
		return nil, ErrUnknownKind
	}
}

func (g *Generator) dailyPlan(ctx context.Context, uc UserContext) (*Payload, error) {
	count, err := g.tasks.CountPendingForDay(ctx, uc.UserID, uc.Now, uc.Location)
	if err != nil {
		return nil, err
	}
	data := map[string]string{"type": string(KindDailyPlan), "url": "/today"}
	if count == 0 {
		return &Payload{
			Title:   "Daily Plan Not Set",
			Body:    "You haven't planned anything for today yet. Pick the tasks you want to get done.",
			Data:    data,
			Actions: []Action{{Action: "plan", Title: "Plan My Day"}},
		}, nil
	}
	return &Payload{
		Title: "Daily Plan",
		Body:  g.dailyPlanBody(count),
		Data:  data,
	}, nil
}

func (g *Generator) taskDue(ctx context.Context, uc UserContext) (*Payload, error) {
	task, err := g.tasks.EarliestPendingDue(ctx, uc.UserID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return &Payload{
			Title: "Task Due",
			Body:  "A task requires completion.",
			Data:  map[string]string{"type": string(KindTaskDue), "url": "/tasks"},
		}, nil
	}
	data := map[string]string{
		"type":   string(KindTaskDue),
		"url":    "/tasks",
		"taskId": task.ID,
	}
	if task.DueDate != nil {
		data["dueDate"] = task.DueDate.UTC().Format(time.RFC3339)
	}
	return &Payload{
		Title:   "Task Due: " + task.Title,
		Body:    "This task is due. Open it to finish it up.",
		Data:    data,
		Actions: []Action{{Action: "complete", Title: "Mark Complete"}},
	}, nil
}
