package task

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ErrNotFound indicates the requested task, subtask, or tag does not exist.
var ErrNotFound = errors.New("not found")

// Store persists tasks, subtasks, and tags.
type Store struct {
	db *gorm.DB
}

// NewStore wraps an open gorm handle and migrates the task tables.
func NewStore(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&Task{}, &Subtask{}, &Tag{}); err != nil {
		return nil, fmt.Errorf("migrate task tables: %w", err)
	}
	return &Store{db: db}, nil
}

// Filter narrows List results. Zero values mean "no constraint".
type Filter struct {
	Day    string // exact calendar day, YYYY-MM-DD
	From   string // inclusive day range for calendar/grid views
	To     string
	Status Status
	Tag    string // tag name
}

// Create inserts the task, filling its ID.
func (s *Store) Create(t *Task) error {
	if t.Day == "" {
		t.Day = time.Now().Format("2006-01-02")
	}
	if t.Status == "" {
		t.Status = StatusTodo
	}
	if err := s.db.Create(t).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// Get loads a task with its subtasks and tags.
func (s *Store) Get(id uint) (*Task, error) {
	var t Task
	err := s.db.Preload("Subtasks").Preload("Tags").First(&t, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get task %d: %w", id, err)
	}
	return &t, nil
}

// Update saves task fields. Completing a task stamps CompletedAt once;
// reopening clears it.
func (s *Store) Update(t *Task) error {
	if t.Status == StatusDone && t.CompletedAt == nil {
		now := time.Now().UTC()
		t.CompletedAt = &now
	}
	if t.Status != StatusDone {
		t.CompletedAt = nil
	}
	res := s.db.Model(&Task{}).Where("id = ?", t.ID).
		Select("Title", "Notes", "Status", "Priority", "Day", "Due", "CompletedAt").
		Updates(t)
	if res.Error != nil {
		return fmt.Errorf("update task %d: %w", t.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("task %d: %w", t.ID, ErrNotFound)
	}
	return nil
}

// Delete soft-deletes a task.
func (s *Store) Delete(id uint) error {
	res := s.db.Delete(&Task{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete task %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	return nil
}

// List returns tasks matching the filter, highest priority first, newest
// within equal priority.
func (s *Store) List(f Filter) ([]Task, error) {
	q := s.db.Preload("Subtasks").Preload("Tags")
	if f.Day != "" {
		q = q.Where("day = ?", f.Day)
	}
	if f.From != "" {
		q = q.Where("day >= ?", f.From)
	}
	if f.To != "" {
		q = q.Where("day <= ?", f.To)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Tag != "" {
		q = q.Joins("JOIN task_tags ON task_tags.task_id = tasks.id").
			Joins("JOIN tags ON tags.id = task_tags.tag_id").
			Where("tags.name = ?", f.Tag)
	}

	var tasks []Task
	if err := q.Order("priority DESC, created_at DESC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// Days returns the distinct calendar days that have tasks, newest first.
func (s *Store) Days() ([]string, error) {
	var days []string
	err := s.db.Model(&Task{}).Distinct("day").Order("day DESC").Pluck("day", &days).Error
	if err != nil {
		return nil, fmt.Errorf("list days: %w", err)
	}
	return days, nil
}

// AddSubtask appends a subtask to a task.
func (s *Store) AddSubtask(taskID uint, title string) (*Subtask, error) {
	if _, err := s.Get(taskID); err != nil {
		return nil, err
	}
	sub := &Subtask{TaskID: taskID, Title: title}
	if err := s.db.Create(sub).Error; err != nil {
		return nil, fmt.Errorf("add subtask: %w", err)
	}
	return sub, nil
}

// SetSubtaskDone toggles a subtask's completion.
func (s *Store) SetSubtaskDone(id uint, done bool) error {
	res := s.db.Model(&Subtask{}).Where("id = ?", id).Update("done", done)
	if res.Error != nil {
		return fmt.Errorf("update subtask %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("subtask %d: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteSubtask removes a subtask.
func (s *Store) DeleteSubtask(id uint) error {
	res := s.db.Delete(&Subtask{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete subtask %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("subtask %d: %w", id, ErrNotFound)
	}
	return nil
}

// Tags returns all tags ordered by name.
func (s *Store) Tags() ([]Tag, error) {
	var tags []Tag
	if err := s.db.Order("name").Find(&tags).Error; err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return tags, nil
}

// TagTask attaches a tag (created on first use) to a task.
func (s *Store) TagTask(taskID uint, name string) error {
	t, err := s.Get(taskID)
	if err != nil {
		return err
	}
	var tag Tag
	if err := s.db.Where(Tag{Name: name}).FirstOrCreate(&tag).Error; err != nil {
		return fmt.Errorf("find or create tag %q: %w", name, err)
	}
	if err := s.db.Model(t).Association("Tags").Append(&tag); err != nil {
		return fmt.Errorf("tag task %d with %q: %w", taskID, name, err)
	}
	return nil
}

// UntagTask detaches a tag from a task. Detaching an absent tag is a no-op.
func (s *Store) UntagTask(taskID uint, name string) error {
	t, err := s.Get(taskID)
	if err != nil {
		return err
	}
	var tag Tag
	err = s.db.Where("name = ?", name).First(&tag).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("find tag %q: %w", name, err)
	}
	if err := s.db.Model(t).Association("Tags").Delete(&tag); err != nil {
		return fmt.Errorf("untag task %d: %w", taskID, err)
	}
	return nil
}
