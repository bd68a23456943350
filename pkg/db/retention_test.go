package db

import (
	"context"
	"testing"
	"time"
)

func TestPruneCompletedReminders(t *testing.T) {
	gdb := openMemoryDB(t)
	if err := Migrate(gdb); err != nil {
		t.Fatalf("migration failed: %v", err)
	}

	now := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	old := now.Add(-100 * 24 * time.Hour)
	recent := now.Add(-24 * time.Hour)

	reminders := []Reminder{
		{UserID: "u1", Title: "old done", Datetime: old, Completed: true, CompletedAt: &old},
		{UserID: "u1", Title: "recent done", Datetime: recent, Completed: true, CompletedAt: &recent},
		{UserID: "u1", Title: "old pending", Datetime: old},
	}
	for i := range reminders {
		if err := gdb.Create(&reminders[i]).Error; err != nil {
			t.Fatalf("failed to seed %q: %v", reminders[i].Title, err)
		}
	}

	deleted, err := PruneCompletedReminders(context.Background(), gdb, now.AddDate(0, 0, -90))
	if err != nil {
		t.Fatalf("prune failed: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 deleted reminder, got %d", deleted)
	}

	var remaining []Reminder
	if err := gdb.Order("title").Find(&remaining).Error; err != nil {
		t.Fatalf("failed to list reminders: %v", err)
	}
	if len(remaining) != 2 || remaining[0].Title != "old pending" || remaining[1].Title != "recent done" {
		t.Fatalf("unexpected remaining reminders: %+v", remaining)
	}
}

func TestStartRetentionDisabled(t *testing.T) {
	done := make(chan struct{})
	go func() {
		StartRetention(context.Background(), nil, time.Millisecond, 0)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("disabled retention should return immediately")
	}
}
