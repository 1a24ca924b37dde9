package drag

import "github.com/hylla/tavla/internal/domain"

// DefaultThreshold is the horizontal distance, in units, a drag must exceed to
// change status.
const DefaultThreshold = 80

// Policy maps a finished drag onto the next task status.
type Policy struct {
	Threshold float64
}

// DefaultPolicy uses DefaultThreshold.
var DefaultPolicy = Policy{Threshold: DefaultThreshold}

// Next returns the status a task moves to after a drag with the given
// displacement. Only the horizontal axis counts; a drag at or below the
// threshold, or past either end of the board, keeps the current status.
func (p Policy) Next(current domain.TaskStatus, displacement Point) domain.TaskStatus {
	threshold := p.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if abs(displacement.X) <= threshold {
		return current
	}
	if displacement.X > 0 {
		switch current {
		case domain.StatusTodo:
			return domain.StatusInProgress
		case domain.StatusInProgress:
			return domain.StatusDone
		}
		return current
	}
	switch current {
	case domain.StatusDone:
		return domain.StatusInProgress
	case domain.StatusInProgress:
		return domain.StatusTodo
	}
	return current
}

// NextStatus applies DefaultPolicy.
func NextStatus(current domain.TaskStatus, displacement Point) domain.TaskStatus {
	return DefaultPolicy.Next(current, displacement)
}
