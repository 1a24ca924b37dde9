package tui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/atotto/clipboard"
	charmLog "github.com/charmbracelet/log"
	"github.com/hylla/tavla/internal/app"
	"github.com/hylla/tavla/internal/domain"
	"github.com/hylla/tavla/internal/drag"
)

// Service is the task store the board reads and writes.
type Service interface {
	ListProjectSummaries(context.Context) ([]app.ProjectSummary, error)
	ListTasks(context.Context, string) ([]domain.Task, error)
	CreateProject(context.Context, string) (domain.Project, error)
	CreateTask(context.Context, app.CreateTaskInput) (domain.Task, error)
	RenameTask(context.Context, string, string) (domain.Task, error)
	DeleteTask(context.Context, string) error
	ApplyTransition(context.Context, drag.Transition) (domain.Task, error)
	ShiftTask(context.Context, string, int) (domain.Task, error)
	Policy() drag.Policy
}

// inputMode describes what the keyboard is currently driving.
type inputMode int

const (
	modeNone inputMode = iota
	modeAddTask
	modeAddProject
	modeDetails
	modeRenameTask
)

var (
	accentColor = lipgloss.Color("62")
	mutedColor  = lipgloss.Color("241")
	dimColor    = lipgloss.Color("239")
	liftColor   = lipgloss.Color("212")
	errorColor  = lipgloss.Color("203")
)

// Model is the bubbletea board.
type Model struct {
	svc    Service
	logger *charmLog.Logger

	ready  bool
	width  int
	height int
	err    error

	status string

	help help.Model
	keys keyMap

	boardCfg BoardConfig
	dragCfg  drag.SamplerConfig
	policy   drag.Policy

	projects        []app.ProjectSummary
	selectedProject int
	tasks           []domain.Task
	columns         []domain.Column
	selectedColumn  int
	selectedTask    int
	scroll          []int

	pendingProjectID   string
	pendingFocusTaskID string
	pendingDetailsID   string

	mode          inputMode
	input         textinput.Model
	detailsTaskID string
	confirmDelete bool

	layout  *boardLayout
	frame   *drag.BoardFrame
	ctrl    *drag.Controller
	outbox  *transitionOutbox
	sampler *drag.Sampler
	anim    *drag.Animation

	cards    *cardCache
	overlay  overlayRenderer
	markdown *markdownRenderer

	copyToClipboard func(string) error
}

// loadedMsg carries one board reload.
type loadedMsg struct {
	projects        []app.ProjectSummary
	selectedProject int
	tasks           []domain.Task
	err             error
}

// actionMsg reports the result of a store mutation started from the board.
type actionMsg struct {
	err          error
	status       string
	reload       bool
	projectID    string
	focusTaskID  string
	openDetails  bool
	closeDetails bool
}

// NewModel constructs the board model.
func NewModel(svc Service, opts ...Option) Model {
	h := help.New()
	h.ShowAll = false
	m := Model{
		svc:             svc,
		logger:          charmLog.New(io.Discard),
		status:          "loading...",
		help:            h,
		keys:            newKeyMap(),
		boardCfg:        DefaultBoardConfig(),
		dragCfg:         drag.DefaultSamplerConfig(),
		policy:          drag.DefaultPolicy,
		frame:           &drag.BoardFrame{},
		outbox:          &transitionOutbox{},
		markdown:        &markdownRenderer{},
		copyToClipboard: clipboard.WriteAll,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	if svc != nil {
		m.policy = svc.Policy()
	}
	m.cards = newCardCache(defaultCardCacheSize, m.boardCfg.ShowDescription)
	m.overlay = overlayRenderer{cards: m.cards}
	m.ctrl = drag.NewController(m.frame, m.outbox, drag.WithLogger(m.logger))
	return m
}

// Init loads the first board.
func (m Model) Init() tea.Cmd {
	return m.loadData
}

// loadData fetches project summaries and the selected project's tasks.
func (m Model) loadData() tea.Msg {
	ctx := context.Background()
	summaries, err := m.svc.ListProjectSummaries(ctx)
	if err != nil {
		return loadedMsg{err: err}
	}
	if len(summaries) == 0 {
		return loadedMsg{projects: summaries}
	}
	idx := clamp(m.selectedProject, 0, len(summaries)-1)
	if m.pendingProjectID != "" {
		for i, s := range summaries {
			if s.Project.ID == m.pendingProjectID {
				idx = i
				break
			}
		}
	}
	tasks, err := m.svc.ListTasks(ctx, summaries[idx].Project.ID)
	if err != nil {
		return loadedMsg{err: err}
	}
	return loadedMsg{projects: summaries, selectedProject: idx, tasks: tasks}
}

// Update handles one message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		m.height = msg.Height
		// The layout moves under a live gesture; end it first.
		cmd := m.cancelDrag()
		m.relayout()
		return m, cmd

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.projects = msg.projects
		m.selectedProject = msg.selectedProject
		m.pendingProjectID = ""
		if len(m.projects) == 0 {
			m.setTasks(nil)
			m.dropVanishedDrag()
			m.relayout()
			if m.mode == modeNone {
				m.status = "create your first project"
				cmd := m.startProjectPrompt()
				return m, cmd
			}
			return m, nil
		}
		m.setTasks(msg.tasks)
		if m.pendingFocusTaskID != "" {
			m.focusTask(m.pendingFocusTaskID)
			m.pendingFocusTaskID = ""
		}
		if m.pendingDetailsID != "" {
			if _, ok := m.taskByID(m.pendingDetailsID); ok && m.mode == modeNone {
				m.mode = modeDetails
				m.detailsTaskID = m.pendingDetailsID
			}
			m.pendingDetailsID = ""
		}
		if m.mode == modeDetails {
			if _, ok := m.taskByID(m.detailsTaskID); !ok {
				m.closeDetails()
			}
		}
		m.dropVanishedDrag()
		m.relayout()
		if m.status == "loading..." {
			m.status = "ready"
		}
		return m, nil

	case actionMsg:
		if msg.err != nil {
			m.status = "error: " + msg.err.Error()
			m.logger.Warn("board action failed", "err", msg.err)
			return m, nil
		}
		if msg.status != "" {
			m.status = msg.status
		}
		if msg.projectID != "" {
			m.pendingProjectID = msg.projectID
		}
		if msg.focusTaskID != "" {
			m.pendingFocusTaskID = msg.focusTaskID
		}
		if msg.openDetails {
			m.pendingDetailsID = msg.focusTaskID
		}
		if msg.closeDetails {
			m.closeDetails()
		}
		if msg.reload {
			return m, m.loadData
		}
		return m, nil

	case measuredMsg:
		return m.handleMeasured(msg)

	case frameMsg:
		return m.handleFrame(msg)

	case committedMsg:
		return m.handleCommitted(msg)

	case clipboardMsg:
		if msg.err != nil {
			m.status = "copy failed: " + msg.err.Error()
			return m, nil
		}
		m.status = "copied " + msg.text
		return m, nil

	case tea.KeyPressMsg:
		if m.help.ShowAll {
			if key.Matches(msg, m.keys.toggleHelp) || msg.String() == "esc" {
				m.help.ShowAll = false
				return m, nil
			}
			if msg.String() == "ctrl+c" {
				return m, tea.Quit
			}
			return m, nil
		}
		switch m.mode {
		case modeDetails:
			return m.handleDetailsKey(msg)
		case modeAddTask, modeAddProject, modeRenameTask:
			return m.handleInputKey(msg)
		}
		return m.handleNormalKey(msg)

	case tea.MouseClickMsg:
		return m.handleMouseClick(msg)

	case tea.MouseMotionMsg:
		return m.handleMouseMotion(msg)

	case tea.MouseReleaseMsg:
		return m.handleMouseRelease(msg)

	case tea.MouseWheelMsg:
		if m.mode != modeNone || m.sampler != nil {
			return m, nil
		}
		switch msg.Button {
		case tea.MouseWheelDown:
			m.selectedTask++
		case tea.MouseWheelUp:
			m.selectedTask--
		}
		m.clampSelection()
		m.relayout()
		return m, nil

	default:
		if m.mode != modeNone && m.mode != modeDetails {
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}
		return m, nil
	}
}

// handleNormalKey handles board keys.
func (m Model) handleNormalKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case msg.String() == "esc":
		if m.sampler != nil {
			cmd := m.cancelDrag()
			m.status = "drag cancelled"
			return m, cmd
		}
		return m, nil
	case key.Matches(msg, m.keys.toggleHelp):
		m.help.ShowAll = true
		return m, nil
	case key.Matches(msg, m.keys.reload):
		m.status = "reloading"
		return m, m.loadData
	case key.Matches(msg, m.keys.newProject):
		cmd := m.startProjectPrompt()
		return m, cmd
	}

	if len(m.projects) == 0 {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.moveLeft):
		m.selectedColumn--
		m.clampSelection()
	case key.Matches(msg, m.keys.moveRight):
		m.selectedColumn++
		m.clampSelection()
	case key.Matches(msg, m.keys.moveUp):
		m.selectedTask--
		m.clampSelection()
	case key.Matches(msg, m.keys.moveDown):
		m.selectedTask++
		m.clampSelection()
	case key.Matches(msg, m.keys.nextProject):
		return m.switchProject(1)
	case key.Matches(msg, m.keys.prevProject):
		return m.switchProject(-1)
	case key.Matches(msg, m.keys.addTask):
		cmd := m.startTaskPrompt()
		return m, cmd
	case key.Matches(msg, m.keys.taskInfo):
		if task, ok := m.selectedTaskInColumn(); ok {
			m.openDetails(task.ID)
		}
		return m, nil
	case key.Matches(msg, m.keys.moveTaskLeft):
		if task, ok := m.selectedTaskInColumn(); ok {
			return m.shiftTask(task, -1)
		}
		return m, nil
	case key.Matches(msg, m.keys.moveTaskRight):
		if task, ok := m.selectedTaskInColumn(); ok {
			return m.shiftTask(task, 1)
		}
		return m, nil
	}
	m.relayout()
	return m, nil
}

// handleInputKey drives the text prompts.
func (m Model) handleInputKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.input.Blur()
		if m.mode == modeRenameTask {
			m.mode = modeDetails
		} else {
			m.mode = modeNone
		}
		m.status = "cancelled"
		return m, nil
	case "enter":
		return m.submitInput()
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submitInput commits the active prompt.
func (m Model) submitInput() (tea.Model, tea.Cmd) {
	value := strings.TrimSpace(m.input.Value())
	svc := m.svc
	m.input.Blur()
	switch m.mode {
	case modeAddTask:
		m.mode = modeNone
		project, ok := m.currentProject()
		if !ok {
			return m, nil
		}
		status := m.currentStatus()
		return m, func() tea.Msg {
			task, err := svc.CreateTask(context.Background(), app.CreateTaskInput{
				ProjectID: project.ID,
				Title:     value,
				Status:    status,
			})
			if err != nil {
				return actionMsg{err: err}
			}
			return actionMsg{status: "task added", reload: true, focusTaskID: task.ID, openDetails: true}
		}
	case modeAddProject:
		if value == "" {
			m.status = "project name required"
			cmd := m.input.Focus()
			return m, cmd
		}
		m.mode = modeNone
		return m, func() tea.Msg {
			project, err := svc.CreateProject(context.Background(), value)
			if err != nil {
				return actionMsg{err: err}
			}
			return actionMsg{status: "project created", reload: true, projectID: project.ID}
		}
	case modeRenameTask:
		m.mode = modeDetails
		taskID := m.detailsTaskID
		return m, func() tea.Msg {
			if _, err := svc.RenameTask(context.Background(), taskID, value); err != nil {
				return actionMsg{err: err}
			}
			return actionMsg{status: "task renamed", reload: true, focusTaskID: taskID}
		}
	}
	m.mode = modeNone
	return m, nil
}

// startTaskPrompt opens the new-task prompt for the selected column.
func (m *Model) startTaskPrompt() tea.Cmd {
	m.mode = modeAddTask
	m.input = newModalInput("title: ", "leave empty to name it later", "", 120)
	m.status = "new task in " + m.currentStatus().Title()
	return m.input.Focus()
}

// startProjectPrompt opens the new-project prompt.
func (m *Model) startProjectPrompt() tea.Cmd {
	m.mode = modeAddProject
	m.input = newModalInput("name: ", "project name", "", 80)
	return m.input.Focus()
}

// switchProject selects the next or previous project and reloads.
func (m Model) switchProject(delta int) (tea.Model, tea.Cmd) {
	if len(m.projects) < 2 {
		return m, nil
	}
	cmd := m.cancelDrag()
	m.selectedProject = (m.selectedProject + delta + len(m.projects)) % len(m.projects)
	m.selectedColumn, m.selectedTask = 0, 0
	m.scroll = nil
	return m, tea.Batch(cmd, m.loadData)
}

// shiftTask moves task one column through the same policy a drag uses.
func (m Model) shiftTask(task domain.Task, dir int) (tea.Model, tea.Cmd) {
	if m.ctrl.Phase() != drag.PhaseIdle {
		m.status = "drag in progress"
		return m, nil
	}
	svc := m.svc
	return m, func() tea.Msg {
		moved, err := svc.ShiftTask(context.Background(), task.ID, dir)
		if err != nil {
			return actionMsg{err: err}
		}
		if moved.Status == task.Status {
			return actionMsg{status: "already in " + task.Status.Title()}
		}
		return actionMsg{
			status:      fmt.Sprintf("moved %q to %s", moved.DisplayTitle(), moved.Status.Title()),
			reload:      true,
			focusTaskID: moved.ID,
		}
	}
}

// setTasks replaces the task list and regroups columns.
func (m *Model) setTasks(tasks []domain.Task) {
	m.tasks = tasks
	if len(m.projects) == 0 {
		m.columns = nil
	} else {
		m.columns = domain.GroupByStatus(tasks)
	}
	m.clampSelection()
}

// clampSelection keeps the selection inside the board.
func (m *Model) clampSelection() {
	if len(m.columns) == 0 {
		m.selectedColumn, m.selectedTask = 0, 0
		return
	}
	m.selectedColumn = clamp(m.selectedColumn, 0, len(m.columns)-1)
	n := len(m.columns[m.selectedColumn].Tasks)
	if n == 0 {
		m.selectedTask = 0
		return
	}
	m.selectedTask = clamp(m.selectedTask, 0, n-1)
}

// focusTask selects taskID when present.
func (m *Model) focusTask(taskID string) bool {
	for colIdx, col := range m.columns {
		if idx := col.Index(taskID); idx >= 0 {
			m.selectedColumn, m.selectedTask = colIdx, idx
			return true
		}
	}
	return false
}

// relayout recomputes the board geometry and publishes the board origin.
func (m *Model) relayout() {
	if !m.ready || len(m.projects) == 0 {
		m.layout = nil
		m.frame.Clear()
		return
	}
	origin := drag.Point{X: 0, Y: headerRows}
	m.layout, m.scroll = buildLayout(layoutInput{
		Origin:         origin,
		ScreenWidth:    m.width,
		Height:         m.boardHeight(),
		ColumnWidth:    m.boardCfg.ColumnWidth,
		Columns:        m.columns,
		Scroll:         m.scroll,
		SelectedColumn: m.selectedColumn,
		SelectedTask:   m.selectedTask,
	})
	m.frame.SetOrigin(origin)
}

// boardHeight returns the rows available to columns.
func (m Model) boardHeight() int {
	return max(minBoardRows, m.height-headerRows-footerRows)
}

// currentProject returns the selected project.
func (m Model) currentProject() (domain.Project, bool) {
	if len(m.projects) == 0 {
		return domain.Project{}, false
	}
	return m.projects[clamp(m.selectedProject, 0, len(m.projects)-1)].Project, true
}

// currentStatus returns the status of the selected column.
func (m Model) currentStatus() domain.TaskStatus {
	if len(m.columns) == 0 {
		return domain.StatusTodo
	}
	return m.columns[clamp(m.selectedColumn, 0, len(m.columns)-1)].Status
}

// selectedTaskInColumn returns the selected task.
func (m Model) selectedTaskInColumn() (domain.Task, bool) {
	if len(m.columns) == 0 {
		return domain.Task{}, false
	}
	col := m.columns[clamp(m.selectedColumn, 0, len(m.columns)-1)]
	if len(col.Tasks) == 0 {
		return domain.Task{}, false
	}
	return col.Tasks[clamp(m.selectedTask, 0, len(col.Tasks)-1)], true
}

// taskByID returns the loaded task with id.
func (m Model) taskByID(id string) (domain.Task, bool) {
	for _, task := range m.tasks {
		if task.ID == id {
			return task, true
		}
	}
	return domain.Task{}, false
}

// View renders the board.
func (m Model) View() tea.View {
	v := tea.NewView(m.render())
	v.MouseMode = tea.MouseModeCellMotion
	v.AltScreen = true
	return v
}

// render draws the full screen.
func (m Model) render() string {
	if m.err != nil {
		return "error: " + m.err.Error() + "\n\npress r to retry • q quit\n"
	}
	if !m.ready {
		return "loading..."
	}

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	statusStyle := lipgloss.NewStyle().Foreground(dimColor)

	helpBubble := m.help
	helpBubble.ShowAll = false
	helpBubble.SetWidth(max(0, m.width-2))
	helpLine := lipgloss.NewStyle().
		Foreground(mutedColor).
		BorderTop(true).
		BorderForeground(dimColor).
		Padding(0, 1).
		Width(max(0, m.width)).
		Render(helpBubble.View(m.keys))

	var body string
	if len(m.projects) == 0 {
		body = strings.Join([]string{
			titleStyle.Render("tavla"),
			"",
			"No projects yet.",
			"Press N to create your first project.",
			"Press q to quit.",
		}, "\n")
	} else {
		project, _ := m.currentProject()
		header := titleStyle.Render("tavla") + "  " + project.Name
		header += statusStyle.Render("  [" + m.modeLabel() + "]")
		if phase := m.ctrl.Phase(); phase != drag.PhaseIdle {
			header += lipgloss.NewStyle().Foreground(liftColor).Render("  drag: " + phase.String())
		}
		body = strings.Join([]string{
			truncateStyled(header, m.width),
			truncateStyled(m.renderProjectTabs(), m.width),
			"",
			m.renderBoard(),
		}, "\n")
	}

	statusLine := statusStyle.Render(truncate(m.status, max(1, m.width)))
	if strings.HasPrefix(m.status, "error") || strings.HasPrefix(m.status, "move failed") {
		statusLine = lipgloss.NewStyle().Foreground(errorColor).Render(truncate(m.status, max(1, m.width)))
	}
	content := fitLines(body, max(0, m.height-footerRows)) + "\n" + statusLine + "\n" + helpLine
	if m.height > 0 {
		content = fitLines(content, m.height)
	}

	if session, ok := m.ctrl.Overlay(); ok {
		if task, found := m.taskByID(session.TaskID); found {
			origin, _ := m.frame.Origin()
			content = m.overlay.compose(content, origin, session, task, max(1, m.width), max(1, m.height))
		}
	}
	if modal := m.renderModal(); modal != "" {
		content = overlayOnContent(content, modal, max(1, m.width), max(1, m.height))
	}
	return content
}

// modeLabel names the current interaction mode for the header.
func (m Model) modeLabel() string {
	switch m.mode {
	case modeAddTask:
		return "new task"
	case modeAddProject:
		return "new project"
	case modeDetails:
		return "details"
	case modeRenameTask:
		return "rename"
	default:
		return "board"
	}
}

// renderProjectTabs renders one tab per project with its completion.
func (m Model) renderProjectTabs() string {
	active := lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	inactive := lipgloss.NewStyle().Foreground(dimColor)
	labels := m.tabLabels()
	parts := make([]string, 0, len(labels))
	for idx, label := range labels {
		if idx == m.selectedProject {
			parts = append(parts, active.Render(label))
		} else {
			parts = append(parts, inactive.Render(label))
		}
	}
	return strings.Join(parts, tabSeparator)
}

const tabSeparator = "  "

// tabLabels returns the plain tab text, shared by rendering and hit-testing.
func (m Model) tabLabels() []string {
	out := make([]string, 0, len(m.projects))
	for idx, s := range m.projects {
		label := fmt.Sprintf("%s %d/%d", s.Project.Name, s.Done, s.Total)
		if idx == m.selectedProject {
			label = "[" + label + "]"
		}
		out = append(out, label)
	}
	return out
}

// tabAt returns the project tab under a window cell.
func (m Model) tabAt(x, y int) (int, bool) {
	if y != tabsRow {
		return 0, false
	}
	start := 0
	for idx, label := range m.tabLabels() {
		end := start + lipgloss.Width(label)
		if x >= start && x < end {
			return idx, true
		}
		start = end + len(tabSeparator)
	}
	return 0, false
}

// renderBoard draws every column to exactly the laid-out geometry.
func (m Model) renderBoard() string {
	if m.layout == nil || len(m.layout.Columns) == 0 {
		return ""
	}
	session, dragging := m.ctrl.Active()
	_, overlaid := m.ctrl.Overlay()

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	ruleStyle := lipgloss.NewStyle().Foreground(dimColor)

	blocks := make([]string, 0, len(m.layout.Columns)*2)
	for colIdx, slot := range m.layout.Columns {
		col := m.columns[colIdx]
		lines := make([]string, 0, m.layout.Height)
		title := fmt.Sprintf("%s (%d)", col.Title(), len(col.Tasks))
		if colIdx == m.selectedColumn {
			title = "› " + title
		}
		lines = append(lines, headerStyle.Render(padRight(truncate(title, slot.Width), slot.Width)))
		lines = append(lines, ruleStyle.Render(strings.Repeat("─", slot.Width)))

		for idx := slot.Scroll; idx < len(col.Tasks) && idx < slot.Scroll+slot.Visible; idx++ {
			task := col.Tasks[idx]
			style := cardNormal
			switch {
			case dragging && session.TaskID == task.ID && overlaid:
				style = cardPlaceholder
			case dragging && session.TaskID == task.ID:
				style = cardLifted
			case colIdx == m.selectedColumn && idx == m.selectedTask:
				style = cardSelected
			}
			lines = append(lines, strings.Split(m.cards.render(task, slot.Width, style), "\n")...)
		}
		blank := strings.Repeat(" ", slot.Width)
		for len(lines) < m.layout.Height {
			lines = append(lines, blank)
		}
		if len(col.Tasks) > slot.Scroll+slot.Visible {
			lines[len(lines)-1] = ruleStyle.Render(padRight(fmt.Sprintf("  +%d more", len(col.Tasks)-slot.Scroll-slot.Visible), slot.Width))
		}
		if colIdx > 0 {
			blocks = append(blocks, gapBlock(m.layout.Height))
		}
		blocks = append(blocks, strings.Join(lines[:m.layout.Height], "\n"))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, blocks...)
}

func gapBlock(height int) string {
	lines := make([]string, height)
	for i := range lines {
		lines[i] = strings.Repeat(" ", columnGap)
	}
	return strings.Join(lines, "\n")
}

// renderModal returns the active modal, if any.
func (m Model) renderModal() string {
	width := clamp(m.width-8, 40, 96)
	if m.help.ShowAll {
		return m.renderHelpOverlay(width)
	}
	switch m.mode {
	case modeAddTask, modeAddProject, modeRenameTask:
		lines := []string{
			lipgloss.NewStyle().Bold(true).Foreground(accentColor).Render(m.promptTitle()),
			"",
			m.input.View(),
			"",
			lipgloss.NewStyle().Foreground(mutedColor).Render("enter save • esc cancel"),
		}
		return modalStyle(width).Render(strings.Join(lines, "\n"))
	case modeDetails:
		return m.renderDetails(width)
	}
	return ""
}

// promptTitle heads the text prompt modal.
func (m Model) promptTitle() string {
	switch m.mode {
	case modeAddTask:
		return "New task in " + m.currentStatus().Title()
	case modeRenameTask:
		return "Rename task"
	default:
		return "New project"
	}
}

func modalStyle(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(dimColor).
		Padding(0, 1).
		Width(width)
}

// renderHelpOverlay renders the full key reference.
func (m Model) renderHelpOverlay(width int) string {
	hb := m.help
	hb.ShowAll = true
	hb.SetWidth(width - 4)

	muted := lipgloss.NewStyle().Foreground(mutedColor)
	workflow := []string{
		lipgloss.NewStyle().Bold(true).Foreground(accentColor).Render("Mouse"),
		"click a card to open it • drag a card sideways to change its status",
		"esc, a second button, or resizing cancels a drag in flight",
	}
	lines := []string{
		lipgloss.NewStyle().Bold(true).Foreground(accentColor).Render("tavla help"),
		"",
		hb.View(m.keys),
		"",
		muted.Render(strings.Join(workflow, "\n")),
		muted.Render("press ? or esc to close"),
	}
	return modalStyle(width).Render(strings.Join(lines, "\n"))
}

// newModalInput builds one text input for a modal prompt.
func newModalInput(prompt, placeholder, value string, limit int) textinput.Model {
	in := textinput.New()
	in.Prompt = prompt
	in.Placeholder = placeholder
	in.CharLimit = limit
	if value != "" {
		in.SetValue(value)
	}
	return in
}

func clamp(v, minV, maxV int) int {
	if maxV < minV {
		return minV
	}
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

// fitLines pads or cuts content to exactly maxLines lines.
func fitLines(content string, maxLines int) string {
	if maxLines <= 0 {
		return ""
	}
	lines := strings.Split(content, "\n")
	switch {
	case len(lines) > maxLines:
		if maxLines == 1 {
			lines = []string{"…"}
		} else {
			lines = append(lines[:maxLines-1], "…")
		}
	case len(lines) < maxLines:
		padding := make([]string, maxLines-len(lines))
		lines = append(lines, padding...)
	}
	return strings.Join(lines, "\n")
}

// overlayOnContent centers overlay above base.
func overlayOnContent(base, overlay string, width, height int) string {
	if width <= 0 || height <= 0 {
		if strings.TrimSpace(overlay) == "" {
			return base
		}
		return overlay + "\n\n" + base
	}

	base = fitLines(base, height)
	x := max(0, (width-lipgloss.Width(overlay))/2)
	y := max(0, (height-lipgloss.Height(overlay))/2)
	return composeLayers(width, height,
		lipgloss.NewLayer(base),
		lipgloss.NewLayer(overlay).X(x).Y(y).Z(overlayZ+10),
	)
}

// truncate cuts s to max runes with an ellipsis.
func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= max {
		return s
	}
	if max <= 1 {
		return string(rs[:max])
	}
	return string(rs[:max-1]) + "…"
}

// truncateStyled cuts a styled line to width cells.
func truncateStyled(s string, width int) string {
	if width <= 0 || lipgloss.Width(s) <= width {
		return s
	}
	return lipgloss.NewStyle().MaxWidth(width).Render(s)
}

func padRight(s string, width int) string {
	if gap := width - lipgloss.Width(s); gap > 0 {
		return s + strings.Repeat(" ", gap)
	}
	return s
}
