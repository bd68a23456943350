package tasks

import (
	"context"
	"testing"
	"time"

	"github.com/smith3v/focusdesk/pkg/db"
	"github.com/smith3v/focusdesk/pkg/internal/testutil"
	"gorm.io/gorm"
)

func seedTask(t *testing.T, gdb *gorm.DB, task db.Task) db.Task {
	t.Helper()
	if err := gdb.Create(&task).Error; err != nil {
		t.Fatalf("failed to seed task %q: %v", task.Title, err)
	}
	return task
}

func ptr(t time.Time) *time.Time { return &t }

func TestCountPendingForDayUsesLocalDay(t *testing.T) {
	gdb := testutil.OpenTestDB(t)
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Skipf("timezone database unavailable: %v", err)
	}

	// 2025-06-02 in Tokyo runs from 06-01 15:00Z to 06-02 15:00Z.
	now := time.Date(2025, 6, 1, 16, 0, 0, 0, time.UTC)

	seedTask(t, gdb, db.Task{UserID: "u1", Title: "flagged", DoToday: true})
	seedTask(t, gdb, db.Task{UserID: "u1", Title: "due later today", DueDate: ptr(time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC))})
	seedTask(t, gdb, db.Task{UserID: "u1", Title: "due yesterday locally", DueDate: ptr(time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC))})
	seedTask(t, gdb, db.Task{UserID: "u1", Title: "done", DoToday: true, Completed: true})
	seedTask(t, gdb, db.Task{UserID: "u2", Title: "someone else", DoToday: true})

	count, err := NewStore(gdb).CountPendingForDay(context.Background(), "u1", now, tokyo)
	if err != nil {
		t.Fatalf("CountPendingForDay returned error: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 pending tasks, got %d", count)
	}
}

func TestEarliestPendingDue(t *testing.T) {
	gdb := testutil.OpenTestDB(t)
	store := NewStore(gdb)
	ctx := context.Background()

	task, err := store.EarliestPendingDue(ctx, "u1")
	if err != nil || task != nil {
		t.Fatalf("expected no task, got %v, %v", task, err)
	}

	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	seedTask(t, gdb, db.Task{UserID: "u1", Title: "no due date", DoToday: true})
	seedTask(t, gdb, db.Task{UserID: "u1", Title: "later", DueDate: ptr(base.Add(48 * time.Hour))})
	seedTask(t, gdb, db.Task{UserID: "u1", Title: "completed first", DueDate: ptr(base.Add(-time.Hour)), Completed: true})
	want := seedTask(t, gdb, db.Task{UserID: "u1", Title: "soonest", DueDate: ptr(base)})

	task, err = store.EarliestPendingDue(ctx, "u1")
	if err != nil {
		t.Fatalf("EarliestPendingDue returned error: %v", err)
	}
	if task == nil || task.ID != want.ID {
		t.Fatalf("expected %q, got %+v", want.Title, task)
	}
}

func TestDueBetween(t *testing.T) {
	gdb := testutil.OpenTestDB(t)
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	seedTask(t, gdb, db.Task{UserID: "u1", Title: "in window b", DueDate: ptr(now.Add(20 * time.Hour))})
	seedTask(t, gdb, db.Task{UserID: "u1", Title: "in window a", DueDate: ptr(now.Add(time.Hour))})
	seedTask(t, gdb, db.Task{UserID: "u1", Title: "too late", DueDate: ptr(now.Add(25 * time.Hour))})
	seedTask(t, gdb, db.Task{UserID: "u1", Title: "overdue", DueDate: ptr(now.Add(-time.Hour))})

	tasks, err := NewStore(gdb).DueBetween(context.Background(), "u1", now, now.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("DueBetween returned error: %v", err)
	}
	if len(tasks) != 2 || tasks[0].Title != "in window a" || tasks[1].Title != "in window b" {
		t.Fatalf("unexpected tasks: %+v", tasks)
	}
}
