package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	minMarkdownWidth = 24
	markdownMemoSize = 64
)

type markdownKey struct {
	text  string
	width int
}

// markdownRenderer renders task descriptions for the details view. The glamour
// renderer is rebuilt when the wrap width changes; results are memoized since
// View runs on every frame of a drag.
type markdownRenderer struct {
	width    int
	renderer *glamour.TermRenderer
	memo     *lru.Cache[markdownKey, string]
}

// render converts markdown into ANSI-styled terminal text wrapped to width.
func (r *markdownRenderer) render(markdown string, width int) string {
	markdown = strings.TrimSpace(markdown)
	if markdown == "" {
		return ""
	}
	wrapWidth := max(width, minMarkdownWidth)
	key := markdownKey{text: markdown, width: wrapWidth}
	if r.memo == nil {
		r.memo, _ = lru.New[markdownKey, string](markdownMemoSize)
	}
	if out, ok := r.memo.Get(key); ok {
		return out
	}

	if r.renderer == nil || r.width != wrapWidth {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(wrapWidth),
		)
		if err != nil {
			return markdown
		}
		r.renderer = renderer
		r.width = wrapWidth
	}

	rendered, err := r.renderer.Render(markdown)
	if err != nil {
		return markdown
	}
	out := strings.TrimRight(rendered, "\n")
	r.memo.Add(key, out)
	return out
}
