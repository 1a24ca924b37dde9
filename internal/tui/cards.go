package tui

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/hylla/tavla/internal/domain"
)

const defaultCardCacheSize = 256

// cardStyle selects how one card is drawn.
type cardStyle int

const (
	cardNormal cardStyle = iota
	cardSelected
	cardLifted
	cardPlaceholder
)

// cardKey identifies one rendered card. Any field that changes the output is part of the key.
type cardKey struct {
	id          string
	title       string
	status      domain.TaskStatus
	updated     int64
	width       int
	style       cardStyle
	description bool
}

// cardCache renders task cards and memoizes the result. The column list and
// the drag overlay draw from the same cache so the lifted card is identical to
// the one it was picked up from.
type cardCache struct {
	cache           *lru.Cache[cardKey, string]
	showDescription bool
}

// newCardCache constructs a card cache holding up to size rendered cards.
func newCardCache(size int, showDescription bool) *cardCache {
	if size <= 0 {
		size = defaultCardCacheSize
	}
	// lru.New only fails for non-positive sizes.
	cache, _ := lru.New[cardKey, string](size)
	return &cardCache{cache: cache, showDescription: showDescription}
}

// render returns the card for task drawn width cells wide and cardHeight rows tall.
func (c *cardCache) render(task domain.Task, width int, style cardStyle) string {
	key := cardKey{
		id:          task.ID,
		title:       task.Title,
		status:      task.Status,
		updated:     task.UpdatedAt.UnixNano(),
		width:       width,
		style:       style,
		description: c.showDescription,
	}
	if c.cache != nil {
		if out, ok := c.cache.Get(key); ok {
			return out
		}
	}
	out := drawCard(task, width, style, c.showDescription)
	if c.cache != nil {
		c.cache.Add(key, out)
	}
	return out
}

// drawCard renders one card without caching.
func drawCard(task domain.Task, width int, style cardStyle, showDescription bool) string {
	if style == cardPlaceholder {
		blank := strings.Repeat(" ", width)
		lines := make([]string, cardHeight)
		for i := range lines {
			lines[i] = blank
		}
		return strings.Join(lines, "\n")
	}

	inner := max(1, width-2)
	titleStyle := lipgloss.NewStyle().Bold(true)
	metaStyle := lipgloss.NewStyle().Foreground(mutedColor)

	title := titleStyle.Render(padRight(truncate(task.DisplayTitle(), inner), inner))
	meta := cardMeta(task)
	if showDescription && strings.TrimSpace(task.Description) != "" {
		meta = firstLine(task.Description)
	}
	body := title + "\n" + metaStyle.Render(padRight(truncate(meta, inner), inner))

	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(dimColor)
	switch style {
	case cardSelected:
		border = border.BorderForeground(accentColor)
	case cardLifted:
		border = border.Border(lipgloss.ThickBorder()).BorderForeground(liftColor)
	}
	return border.Render(body)
}

// cardMeta summarizes due date, assignee, and estimate on one line.
func cardMeta(task domain.Task) string {
	parts := make([]string, 0, 3)
	if task.DueAt != nil {
		parts = append(parts, "due "+task.DueAt.Format("Jan 02"))
	}
	if task.Assignee != "" {
		parts = append(parts, "@"+task.Assignee)
	}
	if task.EstimatedHours > 0 {
		parts = append(parts, fmt.Sprintf("%gh", task.EstimatedHours))
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, " · ")
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return strings.TrimSpace(s[:idx])
	}
	return s
}
