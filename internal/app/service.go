package app

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/hylla/tavla/internal/domain"
	"github.com/hylla/tavla/internal/drag"
)

// AppendOrder asks MoveTask to place the task at the end of its target column.
const AppendOrder = -1

// DefaultProjectName is the project bootstrapped on first run.
const DefaultProjectName = "Inbox"

// ChangeNotifier is told about every committed store mutation.
type ChangeNotifier interface {
	Trigger() bool
}

// ServiceConfig holds configuration for service.
type ServiceConfig struct {
	Policy   drag.Policy
	Notifier ChangeNotifier
}

// IDGenerator returns unique identifiers for new entities.
type IDGenerator func() string

// Clock returns the current time.
type Clock func() time.Time

// Service is the application layer over the shared task store.
type Service struct {
	repo     Repository
	idGen    IDGenerator
	clock    Clock
	policy   drag.Policy
	notifier ChangeNotifier
}

// NewService constructs a new value for this package.
func NewService(repo Repository, idGen IDGenerator, clock Clock, cfg ServiceConfig) *Service {
	if idGen == nil {
		idGen = func() string { return "" }
	}
	if clock == nil {
		clock = time.Now
	}
	if cfg.Policy.Threshold <= 0 {
		cfg.Policy = drag.DefaultPolicy
	}
	return &Service{
		repo:     repo,
		idGen:    idGen,
		clock:    clock,
		policy:   cfg.Policy,
		notifier: cfg.Notifier,
	}
}

// Policy returns the status transition policy used for drags.
func (s *Service) Policy() drag.Policy {
	return s.policy
}

// EnsureDefaultProject returns the first project, creating "Inbox" when the store is empty.
func (s *Service) EnsureDefaultProject(ctx context.Context) (domain.Project, error) {
	projects, err := s.ListProjects(ctx)
	if err != nil {
		return domain.Project{}, err
	}
	if len(projects) > 0 {
		return projects[0], nil
	}
	return s.CreateProject(ctx, DefaultProjectName)
}

// CreateProject creates project.
func (s *Service) CreateProject(ctx context.Context, name string) (domain.Project, error) {
	project, err := domain.NewProject(s.idGen(), name, s.clock())
	if err != nil {
		return domain.Project{}, err
	}
	if err := s.repo.CreateProject(ctx, project); err != nil {
		return domain.Project{}, err
	}
	s.notify()
	return project, nil
}

// RenameProject renames a project.
func (s *Service) RenameProject(ctx context.Context, projectID, name string) (domain.Project, error) {
	project, err := s.repo.GetProject(ctx, projectID)
	if err != nil {
		return domain.Project{}, err
	}
	if err := project.Rename(name, s.clock()); err != nil {
		return domain.Project{}, err
	}
	if err := s.repo.UpdateProject(ctx, project); err != nil {
		return domain.Project{}, err
	}
	s.notify()
	return project, nil
}

// ListProjects lists projects oldest first.
func (s *Service) ListProjects(ctx context.Context) ([]domain.Project, error) {
	projects, err := s.repo.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(projects, func(a, b domain.Project) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return projects, nil
}

// ProjectSummary pairs a project with its task counts.
type ProjectSummary struct {
	Project domain.Project
	Total   int
	Done    int
}

// Completion returns the done ratio.
func (p ProjectSummary) Completion() float64 {
	if p.Total == 0 {
		return 0
	}
	return float64(p.Done) / float64(p.Total)
}

// ListProjectSummaries lists projects with completion counts.
func (s *Service) ListProjectSummaries(ctx context.Context) ([]ProjectSummary, error) {
	projects, err := s.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ProjectSummary, 0, len(projects))
	for _, project := range projects {
		tasks, err := s.repo.ListTasks(ctx, project.ID)
		if err != nil {
			return nil, err
		}
		summary := ProjectSummary{Project: project, Total: len(tasks)}
		for _, task := range tasks {
			if task.Status == domain.StatusDone {
				summary.Done++
			}
		}
		out = append(out, summary)
	}
	return out, nil
}

// CreateTaskInput holds input values for create task operations.
type CreateTaskInput struct {
	ProjectID      string
	Title          string
	Description    string
	Status         domain.TaskStatus
	DueAt          *time.Time
	Assignee       string
	EstimatedHours float64
}

// UpdateTaskInput holds input values for update task operations.
type UpdateTaskInput struct {
	TaskID         string
	Title          string
	Description    string
	DueAt          *time.Time
	Assignee       string
	EstimatedHours float64
}

// CreateTask appends a new task to the end of its status column.
func (s *Service) CreateTask(ctx context.Context, in CreateTaskInput) (domain.Task, error) {
	if _, err := s.repo.GetProject(ctx, in.ProjectID); err != nil {
		return domain.Task{}, err
	}
	status := in.Status
	if status == "" {
		status = domain.StatusTodo
	}
	order, err := s.nextOrder(ctx, in.ProjectID, status, "")
	if err != nil {
		return domain.Task{}, err
	}
	task, err := domain.NewTask(domain.TaskInput{
		ID:             s.idGen(),
		ProjectID:      in.ProjectID,
		Title:          in.Title,
		Description:    in.Description,
		Status:         status,
		Order:          order,
		DueAt:          in.DueAt,
		Assignee:       in.Assignee,
		EstimatedHours: in.EstimatedHours,
	}, s.clock())
	if err != nil {
		return domain.Task{}, err
	}
	if err := s.repo.CreateTask(ctx, task); err != nil {
		return domain.Task{}, err
	}
	s.notify()
	return task, nil
}

// GetTask returns one task.
func (s *Service) GetTask(ctx context.Context, taskID string) (domain.Task, error) {
	return s.repo.GetTask(ctx, taskID)
}

// ListTasks lists the tasks of a project in arrival order. Column grouping is
// left to the caller.
func (s *Service) ListTasks(ctx context.Context, projectID string) ([]domain.Task, error) {
	tasks, err := s.repo.ListTasks(ctx, projectID)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(tasks, func(a, b domain.Task) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return tasks, nil
}

// UpdateTask updates the editable details of a task.
func (s *Service) UpdateTask(ctx context.Context, in UpdateTaskInput) (domain.Task, error) {
	task, err := s.repo.GetTask(ctx, in.TaskID)
	if err != nil {
		return domain.Task{}, err
	}
	if err := task.UpdateDetails(in.Title, in.Description, in.DueAt, in.Assignee, in.EstimatedHours, s.clock()); err != nil {
		return domain.Task{}, err
	}
	if err := s.repo.UpdateTask(ctx, task); err != nil {
		return domain.Task{}, err
	}
	s.notify()
	return task, nil
}

// RenameTask renames task.
func (s *Service) RenameTask(ctx context.Context, taskID, title string) (domain.Task, error) {
	task, err := s.repo.GetTask(ctx, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	return s.UpdateTask(ctx, UpdateTaskInput{
		TaskID:         task.ID,
		Title:          title,
		Description:    task.Description,
		DueAt:          task.DueAt,
		Assignee:       task.Assignee,
		EstimatedHours: task.EstimatedHours,
	})
}

// DeleteTask deletes task.
func (s *Service) DeleteTask(ctx context.Context, taskID string) error {
	if err := s.repo.DeleteTask(ctx, taskID); err != nil {
		return err
	}
	s.notify()
	return nil
}

// MoveTask places a task in status at order with one atomic store update.
// AppendOrder puts it at the end of the target column.
func (s *Service) MoveTask(ctx context.Context, taskID string, status domain.TaskStatus, order int) (domain.Task, error) {
	if !status.Valid() {
		return domain.Task{}, domain.ErrInvalidStatus
	}
	if order < AppendOrder {
		return domain.Task{}, domain.ErrInvalidOrder
	}
	task, err := s.repo.GetTask(ctx, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	if order == AppendOrder {
		if task.Status == status {
			order = task.Order
		} else if order, err = s.nextOrder(ctx, task.ProjectID, status, task.ID); err != nil {
			return domain.Task{}, err
		}
	}
	if task.Status == status && task.Order == order {
		return task, nil
	}
	moved, err := s.repo.MoveTask(ctx, task.ID, status, order, s.clock().UTC())
	if err != nil {
		return domain.Task{}, err
	}
	s.notify()
	return moved, nil
}

// ApplyTransition commits a finished drag. A status change lands at the end of
// the target column; a transition that changes nothing is not written.
func (s *Service) ApplyTransition(ctx context.Context, tr drag.Transition) (domain.Task, error) {
	if !tr.Changed() {
		return s.repo.GetTask(ctx, tr.TaskID)
	}
	order := tr.NewOrder
	if tr.NewStatus != tr.PrevStatus {
		order = AppendOrder
	}
	return s.MoveTask(ctx, tr.TaskID, tr.NewStatus, order)
}

// DragTask evaluates the transition policy for a drag of (dx, dy) units and
// applies the result.
func (s *Service) DragTask(ctx context.Context, taskID string, dx, dy float64) (domain.Task, error) {
	task, err := s.repo.GetTask(ctx, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	return s.ApplyTransition(ctx, drag.Transition{
		TaskID:     task.ID,
		PrevStatus: task.Status,
		NewStatus:  s.policy.Next(task.Status, drag.Point{X: dx, Y: dy}),
		PrevOrder:  task.Order,
		NewOrder:   task.Order,
	})
}

// ShiftTask moves a task one column left (dir < 0) or right (dir > 0) through
// the drag policy.
func (s *Service) ShiftTask(ctx context.Context, taskID string, dir int) (domain.Task, error) {
	dx := 0.0
	switch {
	case dir > 0:
		dx = s.policy.Threshold + 1
	case dir < 0:
		dx = -(s.policy.Threshold + 1)
	}
	return s.DragTask(ctx, taskID, dx, 0)
}

// nextOrder returns the order that places a task after every other task of
// projectID in status.
func (s *Service) nextOrder(ctx context.Context, projectID string, status domain.TaskStatus, excludeID string) (int, error) {
	tasks, err := s.repo.ListTasks(ctx, projectID)
	if err != nil {
		return 0, err
	}
	return domain.NextOrder(tasks, status, excludeID), nil
}

func (s *Service) notify() {
	if s.notifier != nil {
		s.notifier.Trigger()
	}
}
