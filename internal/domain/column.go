package domain

import (
	"slices"
	"sort"
)

// Column groups the tasks of one status for board rendering.
type Column struct {
	Status TaskStatus
	Tasks  []Task
}

// Title returns the column heading.
func (c Column) Title() string {
	return c.Status.Title()
}

// NextOrder returns the order value that appends a task at the end of the column.
func (c Column) NextOrder() int {
	return NextOrder(c.Tasks, c.Status, "")
}

// NextOrder returns one past the highest order among tasks in status, ignoring
// excludeID, or 0 when there are none. Orders may have gaps after deletes and
// moves.
func NextOrder(tasks []Task, status TaskStatus, excludeID string) int {
	next := 0
	for _, task := range tasks {
		if task.Status == status && task.ID != excludeID {
			next = max(next, task.Order+1)
		}
	}
	return next
}

// Index returns the position of a task inside the column, or -1.
func (c Column) Index(taskID string) int {
	return slices.IndexFunc(c.Tasks, func(t Task) bool { return t.ID == taskID })
}

// GroupByStatus splits project tasks into one column per status, each sorted by order.
// Arrival order breaks ties so equal order values stay stable.
func GroupByStatus(tasks []Task) []Column {
	columns := make([]Column, len(Statuses))
	for idx, status := range Statuses {
		columns[idx] = Column{Status: status}
	}
	for _, task := range tasks {
		idx := task.Status.Index()
		if idx < 0 {
			continue
		}
		columns[idx].Tasks = append(columns[idx].Tasks, task)
	}
	for idx := range columns {
		sort.SliceStable(columns[idx].Tasks, func(i, j int) bool {
			return columns[idx].Tasks[i].Order < columns[idx].Tasks[j].Order
		})
	}
	return columns
}

// Completion returns the done ratio for a set of tasks.
func Completion(tasks []Task) float64 {
	if len(tasks) == 0 {
		return 0
	}
	done := 0
	for _, task := range tasks {
		if task.Status == StatusDone {
			done++
		}
	}
	return float64(done) / float64(len(tasks))
}
