package tui

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/hylla/tavla/internal/domain"
	"github.com/hylla/tavla/internal/drag"
)

// measuredMsg carries an asynchronous card measurement back to the controller.
type measuredMsg struct {
	ticket drag.Ticket
	taskID string
	rect   drag.Rect
	err    error
}

// frameMsg asks for the next step of a spring animation.
type frameMsg struct {
	anim *drag.Animation
}

// committedMsg reports a drag transition written to the store.
type committedMsg struct {
	transition drag.Transition
	task       domain.Task
	err        error
}

// transitionOutbox collects transitions the controller dispatches so Update can
// turn them into store commands.
type transitionOutbox struct {
	mu      sync.Mutex
	pending []drag.Transition
}

// Dispatch queues one transition.
func (o *transitionOutbox) Dispatch(tr drag.Transition) {
	o.mu.Lock()
	o.pending = append(o.pending, tr)
	o.mu.Unlock()
}

// drain returns and clears the queued transitions.
func (o *transitionOutbox) drain() []drag.Transition {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := o.pending
	o.pending = nil
	return out
}

func cellPoint(x, y int) drag.Point {
	return drag.Point{X: float64(x), Y: float64(y)}
}

// handleMouseClick presses a card, selects a column, or switches project.
func (m Model) handleMouseClick(msg tea.MouseClickMsg) (tea.Model, tea.Cmd) {
	if m.sampler != nil {
		// A second button mid-gesture wins over the drag.
		cmd := m.cancelDrag()
		m.status = "drag cancelled"
		return m, cmd
	}
	if msg.Button != tea.MouseLeft || m.mode != modeNone || m.help.ShowAll {
		return m, nil
	}
	if idx, ok := m.tabAt(msg.X, msg.Y); ok {
		if idx == m.selectedProject {
			return m, nil
		}
		return m.switchProject(idx - m.selectedProject)
	}
	if slot, ok := m.layout.cardAt(msg.X, msg.Y); ok {
		m.selectedColumn, m.selectedTask = slot.Column, slot.Index
		task := m.columns[slot.Column].Tasks[slot.Index]
		m.sampler = drag.NewSampler(m.ctrl, drag.Card{
			TaskID: task.ID,
			Status: task.Status,
			Order:  task.Order,
		}, m.dragCfg, m.policy)
		m.sampler.Press(cellPoint(msg.X, msg.Y))
		m.relayout()
		return m, nil
	}
	if col, ok := m.layout.columnAt(msg.X, msg.Y); ok {
		m.selectedColumn = col
		m.clampSelection()
		m.relayout()
	}
	return m, nil
}

// handleMouseMotion feeds the pressed card's sampler.
func (m Model) handleMouseMotion(msg tea.MouseMotionMsg) (tea.Model, tea.Cmd) {
	if m.sampler == nil {
		return m, nil
	}
	cmd := m.runEffects(m.sampler.Move(cellPoint(msg.X, msg.Y)))
	return m, cmd
}

// handleMouseRelease ends the gesture as a tap or a drop.
func (m Model) handleMouseRelease(msg tea.MouseReleaseMsg) (tea.Model, tea.Cmd) {
	if m.sampler == nil {
		return m, nil
	}
	effects := m.sampler.Release(cellPoint(msg.X, msg.Y))
	m.sampler = nil
	cmd := m.runEffects(effects)
	return m, cmd
}

// cancelDrag finalizes the live gesture without a drop.
func (m *Model) cancelDrag() tea.Cmd {
	if m.sampler == nil {
		return nil
	}
	effects := m.sampler.Finalize()
	m.sampler = nil
	return m.runEffects(effects)
}

// dropVanishedDrag tears down a gesture whose card is no longer on the board.
func (m *Model) dropVanishedDrag() {
	if m.sampler != nil {
		if _, ok := m.taskByID(m.sampler.Card().TaskID); !ok {
			// Nothing left to animate back.
			_ = m.sampler.Finalize()
			m.sampler = nil
		}
	}
	session, ok := m.ctrl.Active()
	if !ok {
		return
	}
	if _, found := m.taskByID(session.TaskID); found {
		return
	}
	m.logger.Debug("dragged task left the board", "task_id", session.TaskID)
	m.ctrl.Abort()
	m.anim = nil
}

// runEffects schedules sampler effects and the transitions they dispatched.
func (m *Model) runEffects(effects []drag.Effect) tea.Cmd {
	cmds := make([]tea.Cmd, 0, len(effects)+1)
	for _, effect := range effects {
		switch effect.Kind {
		case drag.EffectMeasure:
			cmds = append(cmds, measureCard(m.layout, effect.Ticket, effect.TaskID))
		case drag.EffectAnimate:
			m.anim = effect.Animation
			cmds = append(cmds, frameTick(effect.Animation))
		case drag.EffectTap:
			m.openDetails(effect.TaskID)
		}
	}
	for _, tr := range m.outbox.drain() {
		m.applyOptimistic(tr)
		cmds = append(cmds, m.commitTransition(tr))
	}
	return tea.Batch(cmds...)
}

// measureCard reads the card rectangle from a layout snapshot off the update loop.
func measureCard(layout *boardLayout, t drag.Ticket, taskID string) tea.Cmd {
	return func() tea.Msg {
		slot, ok := layout.card(taskID)
		if !ok {
			return measuredMsg{ticket: t, taskID: taskID, err: drag.ErrCardUnmounted}
		}
		return measuredMsg{ticket: t, taskID: taskID, rect: slot.Rect}
	}
}

// handleMeasured hands the measured window rectangle to the controller. The
// rect is read from the layout snapshot current when the pan started.
func (m Model) handleMeasured(msg measuredMsg) (tea.Model, tea.Cmd) {
	m.ctrl.ResolveMeasurement(msg.ticket, msg.rect, msg.err)
	return m, nil
}

func frameTick(a *drag.Animation) tea.Cmd {
	return tea.Tick(a.Interval(), func(time.Time) tea.Msg {
		return frameMsg{anim: a}
	})
}

// handleFrame steps the current animation. Frames of a replaced animation are dropped.
func (m Model) handleFrame(msg frameMsg) (tea.Model, tea.Cmd) {
	if msg.anim == nil || msg.anim != m.anim {
		return m, nil
	}
	if !msg.anim.Step() {
		return m, frameTick(msg.anim)
	}
	m.anim = nil
	if msg.anim.Settling() {
		m.ctrl.Settled(msg.anim.Ticket())
	}
	return m, nil
}

// applyOptimistic shows a dispatched transition before the store confirms it.
// A status change lands at the end of the target column.
func (m *Model) applyOptimistic(tr drag.Transition) {
	tasks := slices.Clone(m.tasks)
	idx := slices.IndexFunc(tasks, func(t domain.Task) bool { return t.ID == tr.TaskID })
	if idx < 0 {
		return
	}
	if tr.NewStatus != tr.PrevStatus {
		tasks[idx].Order = domain.NextOrder(tasks, tr.NewStatus, tr.TaskID)
		tasks[idx].Status = tr.NewStatus
	} else {
		tasks[idx].Order = tr.NewOrder
	}
	m.setTasks(tasks)
	m.focusTask(tr.TaskID)
	m.relayout()
}

// commitTransition writes one transition through the store.
func (m Model) commitTransition(tr drag.Transition) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		task, err := svc.ApplyTransition(context.Background(), tr)
		return committedMsg{transition: tr, task: task, err: err}
	}
}

// handleCommitted reports the store result and reloads the board.
func (m Model) handleCommitted(msg committedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.status = "move failed: " + msg.err.Error()
		m.logger.Warn("drag transition not applied", "task_id", msg.transition.TaskID, "err", msg.err)
		return m, m.loadData
	}
	m.status = fmt.Sprintf("moved %q to %s", msg.task.DisplayTitle(), msg.task.Status.Title())
	m.pendingFocusTaskID = msg.task.ID
	return m, m.loadData
}
