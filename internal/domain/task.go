package domain

import (
	"strings"
	"time"
)

// Task is one work item on a project board.
type Task struct {
	ID             string
	ProjectID      string
	Title          string
	Description    string
	Status         TaskStatus
	Order          int
	DueAt          *time.Time
	Assignee       string
	EstimatedHours float64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TaskInput holds the values used to create a task.
type TaskInput struct {
	ID             string
	ProjectID      string
	Title          string
	Description    string
	Status         TaskStatus
	Order          int
	DueAt          *time.Time
	Assignee       string
	EstimatedHours float64
}

// NewTask validates input and builds a task. An empty title is allowed so freshly
// added cards can be named from the details view.
func NewTask(in TaskInput, now time.Time) (Task, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.ProjectID = strings.TrimSpace(in.ProjectID)
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Assignee = strings.TrimSpace(in.Assignee)

	if in.ID == "" {
		return Task{}, ErrInvalidID
	}
	if in.ProjectID == "" {
		return Task{}, ErrInvalidID
	}
	if in.Status == "" {
		in.Status = StatusTodo
	}
	if !in.Status.Valid() {
		return Task{}, ErrInvalidStatus
	}
	if in.Order < 0 {
		return Task{}, ErrInvalidOrder
	}
	if in.EstimatedHours < 0 {
		return Task{}, ErrInvalidEstimate
	}

	return Task{
		ID:             in.ID,
		ProjectID:      in.ProjectID,
		Title:          in.Title,
		Description:    in.Description,
		Status:         in.Status,
		Order:          in.Order,
		DueAt:          normalizeDueAt(in.DueAt),
		Assignee:       in.Assignee,
		EstimatedHours: in.EstimatedHours,
		CreatedAt:      now.UTC(),
		UpdatedAt:      now.UTC(),
	}, nil
}

// Move sets the status and order together and stamps the update time.
func (t *Task) Move(status TaskStatus, order int, now time.Time) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}
	if order < 0 {
		return ErrInvalidOrder
	}
	t.Status = status
	t.Order = order
	t.UpdatedAt = now.UTC()
	return nil
}

// UpdateDetails replaces the editable metadata of a task.
func (t *Task) UpdateDetails(title, description string, dueAt *time.Time, assignee string, estimatedHours float64, now time.Time) error {
	if estimatedHours < 0 {
		return ErrInvalidEstimate
	}
	t.Title = strings.TrimSpace(title)
	t.Description = strings.TrimSpace(description)
	t.DueAt = normalizeDueAt(dueAt)
	t.Assignee = strings.TrimSpace(assignee)
	t.EstimatedHours = estimatedHours
	t.UpdatedAt = now.UTC()
	return nil
}

// DisplayTitle returns the title or a placeholder for unnamed tasks.
func (t Task) DisplayTitle() string {
	if t.Title == "" {
		return "Untitled"
	}
	return t.Title
}

func normalizeDueAt(dueAt *time.Time) *time.Time {
	if dueAt == nil {
		return nil
	}
	ts := dueAt.UTC().Truncate(time.Second)
	return &ts
}
