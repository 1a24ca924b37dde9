package app

import (
	"context"
	"time"

	"github.com/hylla/tavla/internal/domain"
)

// Repository is the shared task store.
type Repository interface {
	CreateProject(context.Context, domain.Project) error
	UpdateProject(context.Context, domain.Project) error
	GetProject(context.Context, string) (domain.Project, error)
	ListProjects(context.Context) ([]domain.Project, error)

	CreateTask(context.Context, domain.Task) error
	UpdateTask(context.Context, domain.Task) error
	// MoveTask writes status, order and updated_at of one task in a single
	// atomic update and returns the stored row.
	MoveTask(ctx context.Context, taskID string, status domain.TaskStatus, order int, updatedAt time.Time) (domain.Task, error)
	GetTask(context.Context, string) (domain.Task, error)
	ListTasks(context.Context, string) ([]domain.Task, error)
	DeleteTask(context.Context, string) error
}

// Syncer pushes a store snapshot to an external collaborator and returns what
// the remote side acknowledged.
type Syncer interface {
	Push(context.Context, Snapshot) (Snapshot, error)
}

// SyncerFunc adapts a function to Syncer.
type SyncerFunc func(context.Context, Snapshot) (Snapshot, error)

// Push calls f.
func (f SyncerFunc) Push(ctx context.Context, snap Snapshot) (Snapshot, error) {
	return f(ctx, snap)
}
