// Package common holds the board contract and wire shapes shared by the REST and MCP adapters.
package common

import (
	"context"
	"errors"
	"time"

	"github.com/hylla/tavla/internal/app"
	"github.com/hylla/tavla/internal/domain"
)

// ErrInvalidRequest marks malformed transport input.
var ErrInvalidRequest = errors.New("invalid request")

// BoardService is the app surface exposed by serve mode.
type BoardService interface {
	ListProjectSummaries(ctx context.Context) ([]app.ProjectSummary, error)
	ListTasks(ctx context.Context, projectID string) ([]domain.Task, error)
	GetTask(ctx context.Context, taskID string) (domain.Task, error)
	MoveTask(ctx context.Context, taskID string, status domain.TaskStatus, order int) (domain.Task, error)
	DragTask(ctx context.Context, taskID string, dx, dy float64) (domain.Task, error)
}

// ProjectView is the wire shape of one project summary.
type ProjectView struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Total      int       `json:"total"`
	Done       int       `json:"done"`
	Completion float64   `json:"completion"`
	CreatedAt  time.Time `json:"created_at"`
}

// TaskView is the wire shape of one task.
type TaskView struct {
	ID             string     `json:"id"`
	ProjectID      string     `json:"project_id"`
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	Status         string     `json:"status"`
	Order          int        `json:"order"`
	DueAt          *time.Time `json:"due_at,omitempty"`
	Assignee       string     `json:"assignee,omitempty"`
	EstimatedHours float64    `json:"estimated_hours,omitempty"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// ColumnView groups tasks under one status.
type ColumnView struct {
	Status string     `json:"status"`
	Title  string     `json:"title"`
	Tasks  []TaskView `json:"tasks"`
}

// BoardView is one project's tasks grouped into ordered columns.
type BoardView struct {
	ProjectID string       `json:"project_id"`
	Columns   []ColumnView `json:"columns"`
}

// MoveResult reports the stored task after a move or drag.
type MoveResult struct {
	Task    TaskView `json:"task"`
	From    string   `json:"from"`
	Changed bool     `json:"changed"`
}

// ProjectViews maps summaries into wire rows.
func ProjectViews(in []app.ProjectSummary) []ProjectView {
	out := make([]ProjectView, 0, len(in))
	for _, s := range in {
		out = append(out, ProjectView{
			ID:         s.Project.ID,
			Name:       s.Project.Name,
			Total:      s.Total,
			Done:       s.Done,
			Completion: s.Completion(),
			CreatedAt:  s.Project.CreatedAt,
		})
	}
	return out
}

// TaskViewFrom maps one domain task.
func TaskViewFrom(t domain.Task) TaskView {
	return TaskView{
		ID:             t.ID,
		ProjectID:      t.ProjectID,
		Title:          t.DisplayTitle(),
		Description:    t.Description,
		Status:         string(t.Status),
		Order:          t.Order,
		DueAt:          t.DueAt,
		Assignee:       t.Assignee,
		EstimatedHours: t.EstimatedHours,
		UpdatedAt:      t.UpdatedAt,
	}
}

// BoardViewFrom groups tasks into the fixed column order.
func BoardViewFrom(projectID string, tasks []domain.Task) BoardView {
	cols := domain.GroupByStatus(tasks)
	out := BoardView{ProjectID: projectID, Columns: make([]ColumnView, 0, len(cols))}
	for _, col := range cols {
		cv := ColumnView{Status: string(col.Status), Title: col.Title(), Tasks: make([]TaskView, 0, len(col.Tasks))}
		for _, t := range col.Tasks {
			cv.Tasks = append(cv.Tasks, TaskViewFrom(t))
		}
		out.Columns = append(out.Columns, cv)
	}
	return out
}

// NewMoveResult compares the stored task to its prior status.
func NewMoveResult(from domain.TaskStatus, t domain.Task) MoveResult {
	return MoveResult{Task: TaskViewFrom(t), From: string(from), Changed: from != t.Status}
}

// ErrorCode classifies one service error for transport responses.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return "internal_error"
	case errors.Is(err, app.ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrInvalidOrder),
		errors.Is(err, domain.ErrInvalidTitle),
		errors.Is(err, domain.ErrInvalidName),
		errors.Is(err, domain.ErrInvalidEstimate):
		return "invalid_request"
	default:
		return "internal_error"
	}
}
