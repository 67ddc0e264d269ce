package tasksvc

import (
	"context"
	"errors"
	"time"
)

// Task is a to-do item. Every task belongs to exactly one user and is only
// ever visible to that user.
type Task struct {
	ID          uint64    `json:"id" gorm:"primaryKey"`
	Title       string    `json:"title" gorm:"not null"`
	Description string    `json:"description"`
	Done        bool      `json:"done"`
	OwnerID     uint64    `json:"owner_id" gorm:"index;not null"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TaskPatch is a partial update. Nil fields are left untouched.
type TaskPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Done        *bool   `json:"done,omitempty"`
}

func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Done == nil
}

// TaskRepository stores tasks. Every method is scoped to ownerID: tasks of
// other owners behave as if they did not exist.
type TaskRepository interface {
	Create(ctx context.Context, task Task) (Task, error)
	FindAll(ctx context.Context, ownerID uint64, offset, limit int) ([]Task, error)
	Find(ctx context.Context, ownerID, taskID uint64) (Task, error)
	Update(ctx context.Context, ownerID, taskID uint64, patch TaskPatch) (Task, error)
	Delete(ctx context.Context, ownerID, taskID uint64) error
}

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

var (
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrTaskNotFound     = errors.New("couldn't find task")
	ErrStoreUnavailable = errors.New("task store unavailable")
)
