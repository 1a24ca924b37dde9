package tui

import (
	"context"
	"fmt"
	"strings"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/hylla/tavla/internal/domain"
)

// clipboardMsg reports a clipboard write.
type clipboardMsg struct {
	text string
	err  error
}

// openDetails shows taskID in the details modal.
func (m *Model) openDetails(taskID string) {
	if _, ok := m.taskByID(taskID); !ok {
		return
	}
	m.focusTask(taskID)
	m.mode = modeDetails
	m.detailsTaskID = taskID
	m.confirmDelete = false
	m.relayout()
}

// closeDetails returns to the board.
func (m *Model) closeDetails() {
	m.mode = modeNone
	m.detailsTaskID = ""
	m.confirmDelete = false
}

// handleDetailsKey handles keys while the details modal is open.
func (m Model) handleDetailsKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	task, ok := m.taskByID(m.detailsTaskID)
	if !ok {
		m.closeDetails()
		return m, nil
	}
	armed := m.confirmDelete
	m.confirmDelete = false

	switch {
	case msg.String() == "esc" || key.Matches(msg, m.keys.quit):
		m.closeDetails()
		return m, nil
	case key.Matches(msg, m.keys.renameTask):
		m.mode = modeRenameTask
		m.input = newModalInput("title: ", "task title", task.Title, 120)
		cmd := m.input.Focus()
		return m, cmd
	case key.Matches(msg, m.keys.deleteTask):
		if !armed {
			m.confirmDelete = true
			m.status = "press d again to delete"
			return m, nil
		}
		svc := m.svc
		return m, func() tea.Msg {
			if err := svc.DeleteTask(context.Background(), task.ID); err != nil {
				return actionMsg{err: err}
			}
			return actionMsg{status: "task deleted", reload: true, closeDetails: true}
		}
	case key.Matches(msg, m.keys.copyID):
		write := m.copyToClipboard
		return m, func() tea.Msg {
			return clipboardMsg{text: task.ID, err: write(task.ID)}
		}
	case key.Matches(msg, m.keys.moveTaskLeft):
		return m.shiftTask(task, -1)
	case key.Matches(msg, m.keys.moveTaskRight):
		return m.shiftTask(task, 1)
	}
	return m, nil
}

// renderDetails renders the details modal for the open task.
func (m Model) renderDetails(width int) string {
	task, ok := m.taskByID(m.detailsTaskID)
	if !ok {
		return ""
	}
	title := lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	label := lipgloss.NewStyle().Foreground(mutedColor)

	field := func(name, value string) string {
		return label.Render(fmt.Sprintf("%-9s", name)) + " " + value
	}
	lines := []string{
		title.Render(task.DisplayTitle()),
		"",
		field("status", task.Status.Title()),
		field("order", fmt.Sprintf("%d", task.Order)),
		field("due", dueText(task)),
		field("assignee", orDash(task.Assignee)),
		field("estimate", estimateText(task)),
		field("id", task.ID),
		field("updated", task.UpdatedAt.Local().Format("2006-01-02 15:04")),
		"",
	}
	if desc := m.markdown.render(task.Description, width-4); desc != "" {
		lines = append(lines, desc)
	} else {
		lines = append(lines, label.Render("no description"))
	}
	hint := "e rename • d delete • y copy id • [ ] move • esc close"
	if m.confirmDelete {
		hint = lipgloss.NewStyle().Foreground(errorColor).Render("press d again to delete")
	}
	lines = append(lines, "", label.Render(hint))
	return modalStyle(width).Render(strings.Join(lines, "\n"))
}

func dueText(task domain.Task) string {
	if task.DueAt == nil {
		return "-"
	}
	return task.DueAt.Format("2006-01-02")
}

func estimateText(task domain.Task) string {
	if task.EstimatedHours <= 0 {
		return "-"
	}
	return fmt.Sprintf("%gh", task.EstimatedHours)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
