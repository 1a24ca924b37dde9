package tui

import (
	charmLog "github.com/charmbracelet/log"
	"github.com/hylla/tavla/internal/drag"
)

// BoardConfig controls how columns and cards are drawn.
type BoardConfig struct {
	ShowDescription bool
	ColumnWidth     int
}

// Option configures a Model.
type Option func(*Model)

// DefaultBoardConfig returns board defaults: metadata on cards and columns sized to the window.
func DefaultBoardConfig() BoardConfig {
	return BoardConfig{}
}

// WithBoardConfig sets board rendering options.
func WithBoardConfig(cfg BoardConfig) Option {
	return func(m *Model) {
		m.boardCfg = cfg
	}
}

// WithDragConfig sets gesture tuning for card drags.
func WithDragConfig(cfg drag.SamplerConfig) Option {
	return func(m *Model) {
		m.dragCfg = cfg
	}
}

// WithLogger routes board and drag diagnostics to logger.
func WithLogger(logger *charmLog.Logger) Option {
	return func(m *Model) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithClipboard replaces the clipboard writer used by "copy id".
func WithClipboard(write func(string) error) Option {
	return func(m *Model) {
		if write != nil {
			m.copyToClipboard = write
		}
	}
}
