package task

import (
	"time"

	"gorm.io/gorm"
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusTodo     Status = "todo"
	StatusDone     Status = "done"
	StatusArchived Status = "archived"
)

// Task is a single todo item. Day buckets the task for the calendar and
// grid views (YYYY-MM-DD).
type Task struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Title       string     `gorm:"not null" json:"title"`
	Notes       string     `json:"notes"`
	Status      Status     `gorm:"default:todo" json:"status"`
	Priority    int        `gorm:"default:0" json:"priority"` // 0=none, 1=low, 2=medium, 3=high
	Day         string     `gorm:"index" json:"day"`
	Due         *time.Time `json:"due"`
	CompletedAt *time.Time `json:"completedAt"`

	Subtasks []Subtask `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE" json:"subtasks"`
	Tags     []Tag     `gorm:"many2many:task_tags" json:"tags"`
}

// Subtask is a checklist entry belonging to a task.
type Subtask struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	TaskID uint   `gorm:"not null;index" json:"taskId"`
	Title  string `gorm:"not null" json:"title"`
	Done   bool   `gorm:"default:false" json:"done"`
}

// Tag labels tasks; names are unique.
type Tag struct {
	ID   uint   `gorm:"primarykey" json:"id"`
	Name string `gorm:"unique;not null" json:"name"`

	Tasks []Task `gorm:"many2many:task_tags" json:"-"`
}
