package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/smith3v/focusdesk/pkg/db"
	"gorm.io/datatypes"
)

type fakeCounter struct {
	pending  int64
	earliest *db.Task
	err      error
}

func (f fakeCounter) CountPendingForDay(context.Context, string, time.Time, *time.Location) (int64, error) {
	return f.pending, f.err
}

func (f fakeCounter) EarliestPendingDue(context.Context, string) (*db.Task, error) {
	return f.earliest, f.err
}

func hasAction(p *Payload, action string) bool {
	for _, a := range p.Actions {
		if a.Action == action {
			return true
		}
	}
	return false
}

func TestDailyPlanPayload(t *testing.T) {
	ctx := context.Background()
	uc := UserContext{UserID: "u1"}

	empty, err := NewGenerator(fakeCounter{}).Generate(ctx, KindDailyPlan, uc)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if empty.Title != "Daily Plan Not Set" || !hasAction(empty, "plan") {
		t.Fatalf("expected plan nudge, got %+v", empty)
	}

	three, err := NewGenerator(fakeCounter{pending: 3}).Generate(ctx, KindDailyPlan, uc)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if three.Title != "Daily Plan" || !strings.Contains(three.Body, "3 tasks") {
		t.Fatalf("expected count body, got %+v", three)
	}
	if len(three.Actions) != 0 {
		t.Fatalf("expected no actions, got %+v", three.Actions)
	}

	one, err := NewGenerator(fakeCounter{pending: 1}).Generate(ctx, KindDailyPlan, uc)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if one.Body != "You have 1 task planned for today." {
		t.Fatalf("unexpected singular body: %q", one.Body)
	}
}

func TestTaskDuePayload(t *testing.T) {
	ctx := context.Background()

	generic, err := NewGenerator(fakeCounter{}).Generate(ctx, KindTaskDue, UserContext{UserID: "u1"})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if generic.Body != "A task requires completion." {
		t.Fatalf("expected generic body, got %q", generic.Body)
	}

	due := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	task := &db.Task{ID: "t1", Title: "File taxes", DueDate: &due}
	specific, err := NewGenerator(fakeCounter{earliest: task}).Generate(ctx, KindTaskDue, UserContext{UserID: "u1"})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if specific.Title != "Task Due: File taxes" || specific.Data["taskId"] != "t1" {
		t.Fatalf("unexpected payload: %+v", specific)
	}
	if specific.Data["dueDate"] != "2025-06-01T09:00:00Z" {
		t.Fatalf("unexpected due date: %q", specific.Data["dueDate"])
	}
}

func TestStaticPayloads(t *testing.T) {
	gen := NewGenerator(fakeCounter{})

	review, err := gen.Generate(context.Background(), KindWeeklyReview, UserContext{})
	if err != nil || !hasAction(review, "review") {
		t.Fatalf("expected review action, got %+v, %v", review, err)
	}
	reminder, err := gen.Generate(context.Background(), KindReminder, UserContext{})
	if err != nil || reminder.Data["type"] != "reminder" {
		t.Fatalf("expected generic reminder, got %+v, %v", reminder, err)
	}
}

func TestGenerateUnknownKind(t *testing.T) {
	payload, err := NewGenerator(fakeCounter{}).Generate(context.Background(), Kind("horoscope"), UserContext{})
	if payload != nil || !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected nil payload and ErrUnknownKind, got %+v, %v", payload, err)
	}
	if _, err := ParseKind("horoscope"); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("ParseKind should reject unknown kinds, got %v", err)
	}
	if kind, err := ParseKind(" daily_plan "); err != nil || kind != KindDailyPlan {
		t.Fatalf("ParseKind(daily_plan) = %q, %v", kind, err)
	}
}

func TestGenerateCounterFailure(t *testing.T) {
	_, err := NewGenerator(fakeCounter{err: errors.New("db down")}).Generate(context.Background(), KindDailyPlan, UserContext{})
	if err == nil {
		t.Fatalf("expected counter error to surface")
	}
}

func TestReminderPayload(t *testing.T) {
	payload := ReminderPayload(db.Reminder{
		ID:    "r1",
		Title: "Stretch",
		Data:  datatypes.JSON(`{"url":"/habits/7","reminderId":"spoofed","count":3}`),
	})
	if payload.Title != "Reminder: Stretch" {
		t.Fatalf("unexpected title: %q", payload.Title)
	}
	if payload.Data["reminderId"] != "r1" || payload.Data["type"] != "reminder" {
		t.Fatalf("reminder keys must win: %+v", payload.Data)
	}
	if payload.Data["url"] != "/habits/7" {
		t.Fatalf("expected stored url, got %q", payload.Data["url"])
	}
	if _, ok := payload.Data["count"]; ok {
		t.Fatalf("non-string values should be dropped: %+v", payload.Data)
	}

	encoded, err := payload.Encode()
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if !strings.Contains(string(encoded), `"title":"Reminder: Stretch"`) {
		t.Fatalf("unexpected encoding: %s", encoded)
	}
}

func TestDailyPlanBody(t *testing.T) {
	printer, err := newPrinter()
	if err != nil || printer == nil {
		t.Fatalf("catalog should build, got %v", err)
	}

	for _, gen := range []*Generator{
		{tasks: fakeCounter{}, printer: printer},
		{tasks: fakeCounter{}},
	} {
		if got := gen.dailyPlanBody(1); got != "You have 1 task planned for today." {
			t.Fatalf("singular body = %q", got)
		}
		if got := gen.dailyPlanBody(4); got != "You have 4 tasks planned for today." {
			t.Fatalf("plural body = %q", got)
		}
	}
}
