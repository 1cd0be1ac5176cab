package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TaskStatus is the workflow state of a task.
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in-progress"
	StatusCompleted  TaskStatus = "completed"
)

// TaskPriority is the urgency level of a task.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

// ParseStatus maps a user-supplied string to a TaskStatus. The second return
// is false for unrecognized values.
func ParseStatus(s string) (TaskStatus, bool) {
	switch TaskStatus(s) {
	case StatusPending, StatusInProgress, StatusCompleted:
		return TaskStatus(s), true
	}
	return "", false
}

// ParsePriority maps a user-supplied string to a TaskPriority.
func ParsePriority(s string) (TaskPriority, bool) {
	switch TaskPriority(s) {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return TaskPriority(s), true
	}
	return "", false
}

// Task represents a to-do item owned by exactly one user. Tasks are only
// reachable through owner-scoped queries.
type Task struct {
	ID          uuid.UUID    `json:"id" gorm:"type:uuid;primaryKey"`
	Title       string       `json:"title" gorm:"size:100;not null"`
	Description string       `json:"description" gorm:"size:500;not null;default:''"`
	Status      TaskStatus   `json:"status" gorm:"size:20;not null;default:'pending';index"`
	Priority    TaskPriority `json:"priority" gorm:"size:20;not null;default:'medium';index"`
	UserID      uuid.UUID    `json:"userId" gorm:"type:uuid;not null;index"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// BeforeCreate sets the UUID before creating the record.
func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
