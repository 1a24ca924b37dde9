package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/x/ansi"
	"github.com/hylla/tavla/internal/app"
	"github.com/hylla/tavla/internal/domain"
	"github.com/hylla/tavla/internal/drag"
)

type fakeService struct {
	mu       sync.Mutex
	projects []domain.Project
	tasks    map[string][]domain.Task
	policy   drag.Policy
	err      error
	applyErr error
	applied  []drag.Transition
	nextID   int
}

func newFakeService(projects []domain.Project, tasks []domain.Task) *fakeService {
	byProject := map[string][]domain.Task{}
	for _, task := range tasks {
		byProject[task.ProjectID] = append(byProject[task.ProjectID], task)
	}
	return &fakeService{projects: projects, tasks: byProject, policy: drag.DefaultPolicy}
}

// newBoardService seeds one project with two todo tasks and one in progress.
func newBoardService(t *testing.T) *fakeService {
	t.Helper()
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	p, _ := domain.NewProject("p1", "Inbox", now)
	mk := func(id, title string, status domain.TaskStatus, order int) domain.Task {
		task, err := domain.NewTask(domain.TaskInput{ID: id, ProjectID: p.ID, Title: title, Status: status, Order: order}, now)
		if err != nil {
			t.Fatalf("NewTask(%s) error = %v", id, err)
		}
		return task
	}
	return newFakeService([]domain.Project{p}, []domain.Task{
		mk("t1", "Write docs", domain.StatusTodo, 0),
		mk("t2", "Review", domain.StatusTodo, 1),
		mk("t3", "Ship", domain.StatusInProgress, 0),
	})
}

func (f *fakeService) ListProjectSummaries(context.Context) ([]app.ProjectSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]app.ProjectSummary, 0, len(f.projects))
	for _, p := range f.projects {
		s := app.ProjectSummary{Project: p, Total: len(f.tasks[p.ID])}
		for _, task := range f.tasks[p.ID] {
			if task.Status == domain.StatusDone {
				s.Done++
			}
		}
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeService) ListTasks(_ context.Context, projectID string) ([]domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.Task, len(f.tasks[projectID]))
	copy(out, f.tasks[projectID])
	return out, nil
}

func (f *fakeService) CreateProject(_ context.Context, name string) (domain.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	p, err := domain.NewProject(fmt.Sprintf("p-new-%d", f.nextID), name, time.Now())
	if err != nil {
		return domain.Project{}, err
	}
	f.projects = append(f.projects, p)
	return p, nil
}

func (f *fakeService) CreateTask(_ context.Context, in app.CreateTaskInput) (domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	status := in.Status
	if status == "" {
		status = domain.StatusTodo
	}
	task, err := domain.NewTask(domain.TaskInput{
		ID:        fmt.Sprintf("t-new-%d", f.nextID),
		ProjectID: in.ProjectID,
		Title:     in.Title,
		Status:    status,
		Order:     domain.NextOrder(f.tasks[in.ProjectID], status, ""),
	}, time.Now())
	if err != nil {
		return domain.Task{}, err
	}
	f.tasks[in.ProjectID] = append(f.tasks[in.ProjectID], task)
	return task, nil
}

func (f *fakeService) RenameTask(_ context.Context, taskID, title string) (domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	task, ok := f.findLocked(taskID)
	if !ok {
		return domain.Task{}, app.ErrNotFound
	}
	task.Title = strings.TrimSpace(title)
	task.UpdatedAt = task.UpdatedAt.Add(time.Second)
	return *task, nil
}

func (f *fakeService) DeleteTask(_ context.Context, taskID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for projectID, tasks := range f.tasks {
		for idx := range tasks {
			if tasks[idx].ID == taskID {
				f.tasks[projectID] = append(tasks[:idx:idx], tasks[idx+1:]...)
				return nil
			}
		}
	}
	return app.ErrNotFound
}

func (f *fakeService) ApplyTransition(_ context.Context, tr drag.Transition) (domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applied = append(f.applied, tr)
	if f.applyErr != nil {
		return domain.Task{}, f.applyErr
	}
	return f.moveLocked(tr.TaskID, tr.NewStatus)
}

func (f *fakeService) ShiftTask(_ context.Context, taskID string, dir int) (domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	task, ok := f.findLocked(taskID)
	if !ok {
		return domain.Task{}, app.ErrNotFound
	}
	dx := float64(dir) * (f.policy.Threshold + 1)
	return f.moveLocked(taskID, f.policy.Next(task.Status, drag.Point{X: dx}))
}

func (f *fakeService) Policy() drag.Policy {
	return f.policy
}

func (f *fakeService) appliedTransitions() []drag.Transition {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]drag.Transition(nil), f.applied...)
}

func (f *fakeService) findLocked(taskID string) (*domain.Task, bool) {
	for projectID := range f.tasks {
		for idx := range f.tasks[projectID] {
			if f.tasks[projectID][idx].ID == taskID {
				return &f.tasks[projectID][idx], true
			}
		}
	}
	return nil, false
}

func (f *fakeService) moveLocked(taskID string, status domain.TaskStatus) (domain.Task, error) {
	task, ok := f.findLocked(taskID)
	if !ok {
		return domain.Task{}, app.ErrNotFound
	}
	if task.Status != status {
		task.Order = domain.NextOrder(f.tasks[task.ProjectID], status, task.ID)
		task.Status = status
		task.UpdatedAt = task.UpdatedAt.Add(time.Second)
	}
	return *task, nil
}

func TestModelLoadAndNavigation(t *testing.T) {
	m := loadReadyModel(t, NewModel(newBoardService(t)))

	if len(m.projects) != 1 || len(m.columns) != 3 || len(m.tasks) != 3 {
		t.Fatalf("unexpected loaded model: projects=%d columns=%d tasks=%d", len(m.projects), len(m.columns), len(m.tasks))
	}
	if got := len(m.columns[0].Tasks); got != 2 {
		t.Fatalf("todo column has %d tasks, want 2", got)
	}
	if origin, ok := m.frame.Origin(); !ok || origin.Y != headerRows {
		t.Fatalf("board origin = %#v/%v, want row %d", origin, ok, headerRows)
	}

	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyRight})
	if m.selectedColumn != 1 {
		t.Fatalf("expected selectedColumn=1, got %d", m.selectedColumn)
	}
	m = applyMsg(t, m, keyRune('j'))
	if m.selectedTask != 0 {
		t.Fatalf("expected selection clamped to the only task, got %d", m.selectedTask)
	}
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyLeft})
	m = applyMsg(t, m, keyRune('j'))
	if m.selectedColumn != 0 || m.selectedTask != 1 {
		t.Fatalf("expected todo/1, got %d/%d", m.selectedColumn, m.selectedTask)
	}
	if task, ok := m.selectedTaskInColumn(); !ok || task.ID != "t2" {
		t.Fatalf("selected task = %#v, want t2", task)
	}
}

func TestModelAddTaskOpensDetails(t *testing.T) {
	svc := newBoardService(t)
	m := loadReadyModel(t, NewModel(svc))
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyRight})

	m = applyMsg(t, m, keyRune('n'))
	if m.mode != modeAddTask {
		t.Fatalf("expected add task mode, got %v", m.mode)
	}
	if !strings.Contains(plain(m.render()), "New task in In Progress") {
		t.Fatal("expected prompt naming the target column")
	}
	for _, r := range "Plan" {
		m = applyMsg(t, m, keyRune(r))
	}
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})

	if m.mode != modeDetails {
		t.Fatalf("expected details after add, got mode %v", m.mode)
	}
	task, ok := m.taskByID(m.detailsTaskID)
	if !ok || task.Title != "Plan" || task.Status != domain.StatusInProgress || task.Order != 1 {
		t.Fatalf("unexpected new task %#v", task)
	}
	if !strings.Contains(plain(m.render()), "Plan") {
		t.Fatal("expected details modal to show the new task")
	}
}

func TestModelNewProjectPrompt(t *testing.T) {
	m := loadReadyModel(t, NewModel(newBoardService(t)))

	m = applyMsg(t, m, keyRune('N'))
	if m.mode != modeAddProject {
		t.Fatalf("expected project prompt, got %v", m.mode)
	}
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	if m.mode != modeAddProject || m.status != "project name required" {
		t.Fatalf("expected empty name to be rejected, got mode=%v status=%q", m.mode, m.status)
	}
	for _, r := range "Side" {
		m = applyMsg(t, m, keyRune(r))
	}
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	if len(m.projects) != 2 || m.selectedProject != 1 {
		t.Fatalf("expected new project selected, got %d projects selected=%d", len(m.projects), m.selectedProject)
	}
	if project, _ := m.currentProject(); project.Name != "Side" {
		t.Fatalf("current project = %q, want Side", project.Name)
	}
	if len(m.tasks) != 0 {
		t.Fatalf("expected empty board for new project, got %d tasks", len(m.tasks))
	}
}

func TestModelDetailsRenameDeleteCopy(t *testing.T) {
	svc := newBoardService(t)
	var copied []string
	m := loadReadyModel(t, NewModel(svc, WithClipboard(func(s string) error {
		copied = append(copied, s)
		return nil
	})))

	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	if m.mode != modeDetails || m.detailsTaskID != "t1" {
		t.Fatalf("expected details for t1, got mode=%v id=%q", m.mode, m.detailsTaskID)
	}

	m = applyMsg(t, m, keyRune('y'))
	if len(copied) != 1 || copied[0] != "t1" || m.status != "copied t1" {
		t.Fatalf("copy id: copied=%#v status=%q", copied, m.status)
	}

	m = applyMsg(t, m, keyRune('e'))
	if m.mode != modeRenameTask || m.input.Value() != "Write docs" {
		t.Fatalf("expected rename prompt seeded with title, got mode=%v value=%q", m.mode, m.input.Value())
	}
	m.input.SetValue("Write better docs")
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	if m.mode != modeDetails {
		t.Fatalf("expected details after rename, got %v", m.mode)
	}
	if task, _ := m.taskByID("t1"); task.Title != "Write better docs" {
		t.Fatalf("title = %q after rename", task.Title)
	}

	m = applyMsg(t, m, keyRune('d'))
	if !m.confirmDelete || len(m.tasks) != 3 {
		t.Fatal("expected first d to arm delete only")
	}
	m = applyMsg(t, m, keyRune('d'))
	if m.mode != modeNone || len(m.tasks) != 2 {
		t.Fatalf("expected task deleted and details closed, got mode=%v tasks=%d", m.mode, len(m.tasks))
	}
	if _, ok := m.taskByID("t1"); ok {
		t.Fatal("t1 still loaded after delete")
	}
}

func TestModelDeleteConfirmResetsOnOtherKey(t *testing.T) {
	m := loadReadyModel(t, NewModel(newBoardService(t)))
	m = applyMsg(t, m, keyRune('i'))
	m = applyMsg(t, m, keyRune('d'))
	m = applyMsg(t, m, keyRune('x'))
	m = applyMsg(t, m, keyRune('d'))
	if len(m.tasks) != 3 || !m.confirmDelete {
		t.Fatalf("expected delete to need a fresh double press, tasks=%d armed=%v", len(m.tasks), m.confirmDelete)
	}
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEscape})
	if m.mode != modeNone {
		t.Fatalf("expected esc to close details, got %v", m.mode)
	}
}

func TestModelShiftKeysUsePolicy(t *testing.T) {
	svc := newBoardService(t)
	m := loadReadyModel(t, NewModel(svc))

	m = applyMsg(t, m, keyRune(']'))
	task, _ := m.taskByID("t1")
	if task.Status != domain.StatusInProgress || task.Order != 1 {
		t.Fatalf("t1 after ] = %s/%d, want in_progress/1", task.Status, task.Order)
	}
	if !strings.HasPrefix(m.status, "moved") {
		t.Fatalf("status = %q", m.status)
	}
	if m.selectedColumn != 1 {
		t.Fatalf("expected selection to follow the task, column=%d", m.selectedColumn)
	}

	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyLeft})
	m = applyMsg(t, m, keyRune('['))
	if m.status != "already in To Do" {
		t.Fatalf("status = %q, want no-op message", m.status)
	}
	if len(svc.appliedTransitions()) != 0 {
		t.Fatal("keyboard shifts must not go through the drag dispatcher")
	}
}

func TestModelProjectSwitchKeysAndTabs(t *testing.T) {
	svc := newBoardService(t)
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	side, _ := domain.NewProject("p2", "Side", now)
	other, _ := domain.NewTask(domain.TaskInput{ID: "s1", ProjectID: side.ID, Title: "Elsewhere"}, now)
	svc.projects = append(svc.projects, side)
	svc.tasks[side.ID] = []domain.Task{other}

	m := loadReadyModel(t, NewModel(svc))
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyTab})
	if m.selectedProject != 1 || len(m.tasks) != 1 || m.tasks[0].ID != "s1" {
		t.Fatalf("expected Side board, got project=%d tasks=%#v", m.selectedProject, m.tasks)
	}

	labels := m.tabLabels()
	if len(labels) != 2 || labels[1] != "[Side 0/1]" {
		t.Fatalf("unexpected tab labels %#v", labels)
	}
	m = applyMsg(t, m, tea.MouseClickMsg{X: 1, Y: tabsRow, Button: tea.MouseLeft})
	if m.selectedProject != 0 || len(m.tasks) != 3 {
		t.Fatalf("expected tab click to return to Inbox, got project=%d tasks=%d", m.selectedProject, len(m.tasks))
	}
}

func TestModelMouseWheelAndColumnClick(t *testing.T) {
	m := loadReadyModel(t, NewModel(newBoardService(t)))

	m = applyMsg(t, m, tea.MouseWheelMsg{Button: tea.MouseWheelDown})
	if m.selectedTask != 1 {
		t.Fatalf("expected selectedTask=1 after wheel down, got %d", m.selectedTask)
	}
	col := m.layout.Columns[2]
	m = applyMsg(t, m, tea.MouseClickMsg{X: col.X + 2, Y: headerRows + columnHeaderRows + 20, Button: tea.MouseLeft})
	if m.selectedColumn != 2 || m.sampler != nil {
		t.Fatalf("expected empty-area click to select column 2 without a gesture, got %d", m.selectedColumn)
	}
}

func TestModelHelpOverlay(t *testing.T) {
	m := loadReadyModel(t, NewModel(newBoardService(t)))
	m = applyMsg(t, m, keyRune('?'))
	if !m.help.ShowAll || !strings.Contains(plain(m.render()), "tavla help") {
		t.Fatal("expected help overlay")
	}
	m = applyMsg(t, m, keyRune('n'))
	if m.mode != modeNone {
		t.Fatal("keys other than close must be ignored under help")
	}
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEscape})
	if m.help.ShowAll {
		t.Fatal("expected esc to close help")
	}
}

func TestModelQuitKey(t *testing.T) {
	m := loadReadyModel(t, NewModel(newBoardService(t)))
	_, cmd := m.Update(keyRune('q'))
	if cmd == nil {
		t.Fatal("expected quit cmd")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected tea.QuitMsg")
	}
}

func TestModelViewStates(t *testing.T) {
	m := NewModel(newBoardService(t))
	v := m.View()
	if v.MouseMode != tea.MouseModeCellMotion || !v.AltScreen {
		t.Fatal("expected loading view with mouse enabled")
	}
	if m.render() != "loading..." {
		t.Fatalf("render() = %q before first size", m.render())
	}

	empty := loadReadyModel(t, NewModel(newFakeService(nil, nil)))
	if empty.mode != modeAddProject || !strings.Contains(plain(empty.render()), "No projects yet.") {
		t.Fatalf("expected first-project prompt, got mode=%v", empty.mode)
	}

	board := loadReadyModel(t, NewModel(newBoardService(t)))
	out := plain(board.render())
	for _, want := range []string{"tavla", "[Inbox 0/3]", "To Do (2)", "In Progress (1)", "Done (0)", "Write docs", "Ship"} {
		if !strings.Contains(out, want) {
			t.Fatalf("board view missing %q", want)
		}
	}
	if got := len(strings.Split(board.render(), "\n")); got != 40 {
		t.Fatalf("board view has %d lines, want window height 40", got)
	}
}

func TestModelLoadErrorAndRetry(t *testing.T) {
	svc := newBoardService(t)
	svc.err = errors.New("database locked")
	m := loadReadyModel(t, NewModel(svc))
	if m.err == nil || !strings.Contains(m.render(), "database locked") {
		t.Fatalf("expected error view, got err=%v", m.err)
	}
	svc.err = nil
	m = applyMsg(t, m, keyRune('r'))
	if m.err != nil || len(m.tasks) != 3 {
		t.Fatalf("expected retry to recover, err=%v tasks=%d", m.err, len(m.tasks))
	}
}

func TestModelDescriptionOnCards(t *testing.T) {
	svc := newBoardService(t)
	svc.tasks["p1"][0].Description = "first line\nsecond line"
	m := loadReadyModel(t, NewModel(svc, WithBoardConfig(BoardConfig{ShowDescription: true, ColumnWidth: 30})))
	out := plain(m.render())
	if !strings.Contains(out, "first line") || strings.Contains(out, "second line") {
		t.Fatal("expected the first description line on the card")
	}
	if m.layout.Columns[1].X != 31 {
		t.Fatalf("column 1 x = %d, want 31 for fixed width 30", m.layout.Columns[1].X)
	}
}

func loadReadyModel(t *testing.T, m Model) Model {
	t.Helper()
	return applyMsg(t, applyCmd(t, m, m.Init()), tea.WindowSizeMsg{Width: 120, Height: 40})
}

func applyMsg(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	updated, cmd := m.Update(msg)
	out, ok := updated.(Model)
	if !ok {
		t.Fatalf("expected Model, got %T", updated)
	}
	return applyCmd(t, out, cmd)
}

// applyCmd runs cmd and the commands it produces. Batches are expanded, frame
// ticks are dropped so animations only advance through stepFrames, and slow
// commands such as cursor blinks are abandoned.
func applyCmd(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	out := m
	queue := []tea.Cmd{cmd}
	for i := 0; i < 32 && len(queue) > 0; i++ {
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}
		msg, ok := runCmd(next)
		if !ok {
			continue
		}
		switch msg := msg.(type) {
		case tea.BatchMsg:
			queue = append(queue, msg...)
			continue
		case frameMsg, tea.QuitMsg, nil:
			continue
		}
		updated, nextCmd := out.Update(msg)
		casted, ok := updated.(Model)
		if !ok {
			t.Fatalf("expected Model, got %T", updated)
		}
		out = casted
		queue = append(queue, nextCmd)
	}
	return out
}

func runCmd(cmd tea.Cmd) (tea.Msg, bool) {
	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()
	select {
	case msg := <-done:
		return msg, true
	case <-time.After(100 * time.Millisecond):
		return nil, false
	}
}

// stepFrames drives the current animation to completion.
func stepFrames(t *testing.T, m Model) Model {
	t.Helper()
	for i := 0; i < 1000 && m.anim != nil; i++ {
		updated, _ := m.Update(frameMsg{anim: m.anim})
		m = updated.(Model)
	}
	if m.anim != nil {
		t.Fatal("animation did not settle")
	}
	return m
}

func keyRune(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Text: string(r)}
}

func plain(s string) string {
	return ansi.Strip(s)
}
