package domain

import "strings"

// TaskStatus identifies the board column a task belongs to.
type TaskStatus string

// Task statuses in board order.
const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in_progress"
	StatusDone       TaskStatus = "done"
)

// Statuses lists every status in left-to-right board order.
var Statuses = []TaskStatus{StatusTodo, StatusInProgress, StatusDone}

// Valid reports whether the status is one of the known board statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	default:
		return false
	}
}

// Index returns the board position of the status, or -1 when unknown.
func (s TaskStatus) Index() int {
	for idx, status := range Statuses {
		if status == s {
			return idx
		}
	}
	return -1
}

// Title returns the column heading for the status.
func (s TaskStatus) Title() string {
	switch s {
	case StatusTodo:
		return "To Do"
	case StatusInProgress:
		return "In Progress"
	case StatusDone:
		return "Done"
	default:
		return string(s)
	}
}

// ParseStatus normalizes user input into a TaskStatus.
func ParseStatus(raw string) (TaskStatus, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.NewReplacer("-", "_", " ", "_").Replace(normalized)
	switch normalized {
	case "todo", "to_do":
		return StatusTodo, nil
	case "in_progress", "progress", "doing":
		return StatusInProgress, nil
	case "done":
		return StatusDone, nil
	default:
		return "", ErrInvalidStatus
	}
}
