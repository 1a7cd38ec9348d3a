package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hylla/stageboard/internal/domain"
	toml "github.com/pelletier/go-toml/v2"
)

// StoreMode selects where the engine's system of record lives.
type StoreMode string

const (
	StoreModeLocal  StoreMode = "local"
	StoreModeRemote StoreMode = "remote"
)

type Config struct {
	Database DatabaseConfig `toml:"database"`
	Store    StoreConfig    `toml:"store"`
	Board    BoardConfig    `toml:"board"`
	Server   ServerConfig   `toml:"server"`
	Logging  LoggingConfig  `toml:"logging"`
	UI       UIConfig       `toml:"ui"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type StoreConfig struct {
	Mode           StoreMode `toml:"mode"`
	URL            string    `toml:"url"`
	RequestTimeout string    `toml:"request_timeout"`
}

type BoardConfig struct {
	Scope            string        `toml:"scope"`
	DragThreshold    float64       `toml:"drag_threshold"`
	GroupBy          string        `toml:"group_by"` // stage | category | area | priority | tag
	StrictInvariants bool          `toml:"strict_invariants"`
	DueSoonHours     int           `toml:"due_soon_hours"`
	Stages           []StageConfig `toml:"stages"`
}

type StageConfig struct {
	ID       string `toml:"id"`
	Name     string `toml:"name"`
	Status   string `toml:"status"`
	WIPLimit int    `toml:"wip_limit"`
}

type ServerConfig struct {
	Bind        string `toml:"bind"`
	APIEndpoint string `toml:"api_endpoint"`
	MCPEndpoint string `toml:"mcp_endpoint"`
}

type LoggingConfig struct {
	Level   string        `toml:"level"`
	DevFile DevFileConfig `toml:"dev_file"`
}

// DevFileConfig enables the logfmt file sink used in dev mode.
type DevFileConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

type UIConfig struct {
	ShowTags       bool       `toml:"show_tags"`
	ShowPriority   bool       `toml:"show_priority"`
	ShowTargetDate bool       `toml:"show_target_date"`
	Keys           KeysConfig `toml:"keys"`
}

// KeysConfig rebinds board keys. Each value is one key name; blank keeps the default.
type KeysConfig struct {
	PickUp  string `toml:"pick_up"`
	GroupBy string `toml:"group_by"`
	CopyID  string `toml:"copy_id"`
}

var groupByValues = []string{"stage", "category", "area", "priority", "tag"}

var logLevels = []string{"debug", "info", "warn", "error"}

func defaultStages() []StageConfig {
	return []StageConfig{
		{ID: "backlog", Name: "Backlog", Status: "BACKLOG"},
		{ID: "todo", Name: "To Do", Status: "TODO"},
		{ID: "in_progress", Name: "In Progress", Status: "IN_PROGRESS", WIPLimit: 3},
		{ID: "review", Name: "Review", Status: "REVIEW", WIPLimit: 2},
		{ID: "done", Name: "Done", Status: "DONE"},
	}
}

func Default(dbPath string) Config {
	return Config{
		Database: DatabaseConfig{
			Path: dbPath,
		},
		Store: StoreConfig{
			Mode:           StoreModeLocal,
			RequestTimeout: "10s",
		},
		Board: BoardConfig{
			Scope:            "main",
			DragThreshold:    1,
			GroupBy:          "stage",
			StrictInvariants: true,
			DueSoonHours:     48,
			Stages:           defaultStages(),
		},
		Server: ServerConfig{
			Bind:        "127.0.0.1:8080",
			APIEndpoint: "/api/v1",
			MCPEndpoint: "/mcp",
		},
		Logging: LoggingConfig{
			Level: "info",
			DevFile: DevFileConfig{
				Enabled: true,
				Dir:     ".stageboard/log",
			},
		},
		UI: UIConfig{
			ShowTags:       true,
			ShowPriority:   true,
			ShowTargetDate: true,
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

	// A file that lists stages replaces the default set rather than merging index by index.
	var probe struct {
		Board struct {
			Stages []StageConfig `toml:"stages"`
		} `toml:"board"`
	}
	if err := toml.Unmarshal(content, &probe); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}
	if len(probe.Board.Stages) > 0 {
		cfg.Board.Stages = nil
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
	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("database path is required")
	}

	switch c.Store.Mode {
	case StoreModeLocal:
	case StoreModeRemote:
		if strings.TrimSpace(c.Store.URL) == "" {
			return errors.New("store.url is required when store.mode is remote")
		}
	default:
		return fmt.Errorf("invalid store.mode: %q", c.Store.Mode)
	}
	if _, err := c.Store.Timeout(); err != nil {
		return err
	}

	if strings.TrimSpace(c.Board.Scope) == "" {
		return errors.New("board.scope is required")
	}
	if c.Board.DragThreshold < 0 {
		return fmt.Errorf("board.drag_threshold must be >= 0")
	}
	if c.Board.DueSoonHours < 0 {
		return fmt.Errorf("board.due_soon_hours must be >= 0")
	}
	if !containsFold(groupByValues, c.Board.GroupBy) {
		return fmt.Errorf("invalid board.group_by: %q", c.Board.GroupBy)
	}
	for idx, stage := range c.Board.Stages {
		if strings.TrimSpace(stage.Name) == "" {
			return fmt.Errorf("board.stages[%d].name is required", idx)
		}
		if stage.WIPLimit < 0 {
			return fmt.Errorf("board.stages[%d].wip_limit must be >= 0", idx)
		}
	}
	if _, err := c.Board.StageSet(); err != nil {
		return err
	}

	if strings.TrimSpace(c.Server.Bind) == "" {
		return errors.New("server.bind is required")
	}
	if !containsFold(logLevels, c.Logging.Level) {
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}
	if c.Logging.DevFile.Enabled && strings.TrimSpace(c.Logging.DevFile.Dir) == "" {
		return errors.New("logging.dev_file.dir is required when dev_file is enabled")
	}

	return nil
}

// StageSet builds the validated domain stage vocabulary in configured order.
func (b BoardConfig) StageSet() (domain.StageSet, error) {
	stages := make([]domain.Stage, 0, len(b.Stages))
	for _, stage := range b.Stages {
		stages = append(stages, domain.Stage{
			ID:       domain.StageID(strings.TrimSpace(strings.ToLower(stage.ID))),
			Name:     strings.TrimSpace(stage.Name),
			Status:   strings.TrimSpace(stage.Status),
			WIPLimit: stage.WIPLimit,
		})
	}
	set, err := domain.NewStageSet(stages)
	if err != nil {
		return domain.StageSet{}, fmt.Errorf("board.stages: %w", err)
	}
	return set, nil
}

// DueSoon returns the due-soon badge window.
func (b BoardConfig) DueSoon() time.Duration {
	return time.Duration(b.DueSoonHours) * time.Hour
}

// Timeout parses request_timeout. An empty value means the client default.
func (s StoreConfig) Timeout() (time.Duration, error) {
	raw := strings.TrimSpace(s.RequestTimeout)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid store.request_timeout %q: %w", s.RequestTimeout, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("store.request_timeout must be >= 0")
	}
	return d, nil
}

func containsFold(values []string, v string) bool {
	v = strings.TrimSpace(v)
	for _, candidate := range values {
		if strings.EqualFold(candidate, v) {
			return true
		}
	}
	return false
}

func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
