package task

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"tasktimer/internal/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "tasks.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	store, err := NewStore(db)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store
}

func TestStore_CreateAndGet(t *testing.T) {
	store := newTestStore(t)

	task := &Task{Title: "write report", Priority: 2, Day: "2026-08-30"}
	if err := store.Create(task); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if task.ID == 0 {
		t.Fatal("expected ID to be filled")
	}

	got, err := store.Get(task.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Title != "write report" || got.Priority != 2 {
		t.Errorf("unexpected task: %+v", got)
	}
	if got.Status != StatusTodo {
		t.Errorf("expected default status todo, got %s", got.Status)
	}
}

func TestStore_GetNotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Get(999)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_UpdateStampsCompletion(t *testing.T) {
	store := newTestStore(t)
	task := &Task{Title: "a"}
	store.Create(task)

	task.Status = StatusDone
	if err := store.Update(task); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	got, _ := store.Get(task.ID)
	if got.CompletedAt == nil {
		t.Fatal("expected CompletedAt to be stamped")
	}

	got.Status = StatusTodo
	if err := store.Update(got); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	reopened, _ := store.Get(task.ID)
	if reopened.CompletedAt != nil {
		t.Error("expected CompletedAt cleared on reopen")
	}
}

func TestStore_UpdateNotFound(t *testing.T) {
	store := newTestStore(t)
	err := store.Update(&Task{ID: 42, Title: "ghost"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_Delete(t *testing.T) {
	store := newTestStore(t)
	task := &Task{Title: "a"}
	store.Create(task)

	if err := store.Delete(task.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(task.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.Delete(task.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on double delete, got %v", err)
	}
}

func TestStore_ListByDay(t *testing.T) {
	store := newTestStore(t)
	store.Create(&Task{Title: "today", Day: "2026-08-30"})
	store.Create(&Task{Title: "tomorrow", Day: "2026-08-31"})

	tasks, err := store.List(Filter{Day: "2026-08-30"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Title != "today" {
		t.Errorf("unexpected result: %+v", tasks)
	}
}

func TestStore_ListByRange(t *testing.T) {
	store := newTestStore(t)
	store.Create(&Task{Title: "a", Day: "2026-08-01"})
	store.Create(&Task{Title: "b", Day: "2026-08-15"})
	store.Create(&Task{Title: "c", Day: "2026-09-01"})

	tasks, err := store.List(Filter{From: "2026-08-01", To: "2026-08-31"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(tasks) != 2 {
		t.Errorf("expected 2 tasks in range, got %d", len(tasks))
	}
}

func TestStore_ListByStatusAndPriorityOrder(t *testing.T) {
	store := newTestStore(t)
	store.Create(&Task{Title: "low", Priority: 1, Day: "2026-08-30"})
	store.Create(&Task{Title: "high", Priority: 3, Day: "2026-08-30"})
	done := &Task{Title: "done", Day: "2026-08-30"}
	store.Create(done)
	done.Status = StatusDone
	store.Update(done)

	tasks, err := store.List(Filter{Status: StatusTodo})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 todo tasks, got %d", len(tasks))
	}
	if tasks[0].Title != "high" {
		t.Errorf("expected highest priority first, got %s", tasks[0].Title)
	}
}

func TestStore_Subtasks(t *testing.T) {
	store := newTestStore(t)
	task := &Task{Title: "parent"}
	store.Create(task)

	sub, err := store.AddSubtask(task.ID, "child")
	if err != nil {
		t.Fatalf("AddSubtask failed: %v", err)
	}
	if err := store.SetSubtaskDone(sub.ID, true); err != nil {
		t.Fatalf("SetSubtaskDone failed: %v", err)
	}

	got, _ := store.Get(task.ID)
	if len(got.Subtasks) != 1 || !got.Subtasks[0].Done {
		t.Errorf("unexpected subtasks: %+v", got.Subtasks)
	}

	if err := store.DeleteSubtask(sub.ID); err != nil {
		t.Fatalf("DeleteSubtask failed: %v", err)
	}
	got, _ = store.Get(task.ID)
	if len(got.Subtasks) != 0 {
		t.Errorf("expected no subtasks, got %d", len(got.Subtasks))
	}
}

func TestStore_AddSubtaskToMissingTask(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.AddSubtask(99, "orphan"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_Tagging(t *testing.T) {
	store := newTestStore(t)
	a := &Task{Title: "a"}
	b := &Task{Title: "b"}
	store.Create(a)
	store.Create(b)

	if err := store.TagTask(a.ID, "deep-work"); err != nil {
		t.Fatalf("TagTask failed: %v", err)
	}
	// Same tag reused across tasks, not duplicated.
	if err := store.TagTask(b.ID, "deep-work"); err != nil {
		t.Fatalf("TagTask failed: %v", err)
	}

	tags, _ := store.Tags()
	if len(tags) != 1 {
		t.Fatalf("expected 1 tag, got %d", len(tags))
	}

	tagged, err := store.List(Filter{Tag: "deep-work"})
	if err != nil {
		t.Fatalf("List by tag failed: %v", err)
	}
	if len(tagged) != 2 {
		t.Errorf("expected 2 tagged tasks, got %d", len(tagged))
	}

	if err := store.UntagTask(a.ID, "deep-work"); err != nil {
		t.Fatalf("UntagTask failed: %v", err)
	}
	tagged, _ = store.List(Filter{Tag: "deep-work"})
	if len(tagged) != 1 {
		t.Errorf("expected 1 tagged task after untag, got %d", len(tagged))
	}

	// Untagging an absent tag is a no-op.
	if err := store.UntagTask(a.ID, "nonexistent"); err != nil {
		t.Fatalf("UntagTask with unknown tag failed: %v", err)
	}
}

func TestStore_Days(t *testing.T) {
	store := newTestStore(t)
	store.Create(&Task{Title: "a", Day: "2026-08-29"})
	store.Create(&Task{Title: "b", Day: "2026-08-30"})
	store.Create(&Task{Title: "c", Day: "2026-08-30"})

	days, err := store.Days()
	if err != nil {
		t.Fatalf("Days failed: %v", err)
	}
	if len(days) != 2 || days[0] != "2026-08-30" {
		t.Errorf("unexpected days: %v", days)
	}
}

func TestStore_CreateFillsDay(t *testing.T) {
	store := newTestStore(t)
	task := &Task{Title: "implicit day"}
	store.Create(task)

	got, _ := store.Get(task.ID)
	if got.Day != time.Now().Format("2006-01-02") {
		t.Errorf("expected today's day bucket, got %s", got.Day)
	}
}
