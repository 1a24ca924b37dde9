package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	charmLog "github.com/charmbracelet/log"
	toml "github.com/pelletier/go-toml/v2"
)

type SyncMode string

const (
	SyncModeOff       SyncMode = "off"
	SyncModeSimulated SyncMode = "simulated"
	SyncModeHTTP      SyncMode = "http"
	SyncModeRedis     SyncMode = "redis"
)

type Config struct {
	Database DatabaseConfig `toml:"database"`
	Logging  LoggingConfig  `toml:"logging"`
	Board    BoardConfig    `toml:"board"`
	Drag     DragConfig     `toml:"drag"`
	Sync     SyncConfig     `toml:"sync"`
	Server   ServerConfig   `toml:"server"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type LoggingConfig struct {
	Level   string        `toml:"level"`
	DevFile DevFileConfig `toml:"dev_file"`
}

type DevFileConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

type BoardConfig struct {
	ShowDescription bool `toml:"show_description"`
	ColumnWidth     int  `toml:"column_width"` // 0 = fit to window
}

// DragConfig tunes gesture recognition. Distances are in units, pointer cells
// are scaled by units_per_cell_x / units_per_cell_y.
type DragConfig struct {
	Threshold       float64 `toml:"threshold"`
	TapMaxDistance  float64 `toml:"tap_max_distance"`
	PanMinDistance  float64 `toml:"pan_min_distance"`
	UnitsPerCellX   float64 `toml:"units_per_cell_x"`
	UnitsPerCellY   float64 `toml:"units_per_cell_y"`
	LiftScale       float64 `toml:"lift_scale"`
	SpringFrequency float64 `toml:"spring_frequency"`
	SpringDamping   float64 `toml:"spring_damping"`
	FPS             int     `toml:"fps"`
}

type SyncConfig struct {
	Mode         SyncMode `toml:"mode"`
	Delay        Duration `toml:"delay"`
	Endpoint     string   `toml:"endpoint"`
	RedisAddr    string   `toml:"redis_addr"`
	RedisKey     string   `toml:"redis_key"`
	RedisChannel string   `toml:"redis_channel"`
	Timeout      Duration `toml:"timeout"`
}

type ServerConfig struct {
	Bind        string `toml:"bind"`
	APIEndpoint string `toml:"api_endpoint"`
	MCPEndpoint string `toml:"mcp_endpoint"`
}

// Duration decodes TOML strings like "1500ms".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		d.Duration = 0
		return nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

func Default(dbPath string) Config {
	return Config{
		Database: DatabaseConfig{
			Path: dbPath,
		},
		Logging: LoggingConfig{
			Level: "info",
			DevFile: DevFileConfig{
				Enabled: true,
				Dir:     ".tavla/log",
			},
		},
		Board: BoardConfig{
			ShowDescription: true,
			ColumnWidth:     0,
		},
		Drag: DragConfig{
			Threshold:       80,
			TapMaxDistance:  10,
			PanMinDistance:  8,
			UnitsPerCellX:   8,
			UnitsPerCellY:   16,
			LiftScale:       1.05,
			SpringFrequency: 12.2,
			SpringDamping:   0.61,
			FPS:             60,
		},
		Sync: SyncConfig{
			Mode:         SyncModeSimulated,
			Delay:        Duration{1500 * time.Millisecond},
			RedisAddr:    "127.0.0.1:6379",
			RedisKey:     "tavla:snapshot",
			RedisChannel: "tavla:sync",
			Timeout:      Duration{10 * time.Second},
		},
		Server: ServerConfig{
			Bind:        "127.0.0.1:5437",
			APIEndpoint: "/api/v1",
			MCPEndpoint: "/mcp",
		},
	}
}

func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	c.Database.Path = strings.TrimSpace(c.Database.Path)
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if _, err := charmLog.ParseLevel(strings.TrimSpace(c.Logging.Level)); err != nil {
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}

	if c.Board.ColumnWidth < 0 {
		return errors.New("board.column_width must be >= 0")
	}

	d := c.Drag
	if d.Threshold <= 0 {
		return errors.New("drag.threshold must be > 0")
	}
	if d.TapMaxDistance < 0 || d.PanMinDistance < 0 {
		return errors.New("drag.tap_max_distance and drag.pan_min_distance must be >= 0")
	}
	if d.UnitsPerCellX <= 0 || d.UnitsPerCellY <= 0 {
		return errors.New("drag.units_per_cell_x and drag.units_per_cell_y must be > 0")
	}
	if d.LiftScale < 1 {
		return errors.New("drag.lift_scale must be >= 1")
	}
	if d.SpringFrequency <= 0 || d.SpringDamping <= 0 {
		return errors.New("drag.spring_frequency and drag.spring_damping must be > 0")
	}
	if d.FPS <= 0 || d.FPS > 240 {
		return fmt.Errorf("drag.fps must be within 1..240, got %d", d.FPS)
	}

	switch c.Sync.Mode {
	case SyncModeOff, SyncModeSimulated:
	case SyncModeHTTP:
		if strings.TrimSpace(c.Sync.Endpoint) == "" {
			return errors.New("sync.endpoint is required for http mode")
		}
	case SyncModeRedis:
		if strings.TrimSpace(c.Sync.RedisAddr) == "" {
			return errors.New("sync.redis_addr is required for redis mode")
		}
	default:
		return fmt.Errorf("invalid sync.mode: %q", c.Sync.Mode)
	}
	if c.Sync.Delay.Duration < 0 || c.Sync.Timeout.Duration < 0 {
		return errors.New("sync.delay and sync.timeout must be >= 0")
	}

	if strings.TrimSpace(c.Server.Bind) == "" {
		return errors.New("server.bind is required")
	}
	for name, endpoint := range map[string]string{"server.api_endpoint": c.Server.APIEndpoint, "server.mcp_endpoint": c.Server.MCPEndpoint} {
		if endpoint != "" && !strings.HasPrefix(endpoint, "/") {
			return fmt.Errorf("%s must start with '/': %q", name, endpoint)
		}
	}

	return nil
}

func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
