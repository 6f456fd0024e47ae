// Package config loads the visualizer settings: struct defaults, an optional
// YAML file, a .env file and MSGEQ7_* environment overrides, in that order.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"msgeq7-viz/src/logging"
	"msgeq7-viz/src/server"
	"msgeq7-viz/src/source"
)

const (
	UIGUI = "gui"
	UITUI = "tui"
)

// Config holds every setting of a run
type Config struct {
	UI     UIConfig       `yaml:"ui"`
	Source source.Config  `yaml:"source"`
	Log    logging.Config `yaml:"log"`
	Server server.Config  `yaml:"server"`
	Record RecordConfig   `yaml:"record"`
}

// UIConfig holds frontend settings
type UIConfig struct {
	Mode           string        `yaml:"mode" default:"gui" validate:"oneof=gui tui"`
	Title          string        `yaml:"title" default:"MSGEQ7 Visualizer with Band Control"`
	WindowSize     int           `yaml:"window_size" default:"250" validate:"min=2,max=100000"` // samples per band
	TickInterval   time.Duration `yaml:"tick_interval" default:"5ms" validate:"gt=0"`
	RedrawInterval time.Duration `yaml:"redraw_interval" default:"33ms" validate:"gt=0"`
	StatsPeriod    int           `yaml:"stats_period" default:"20" validate:"min=2"`
	Width          int           `yaml:"width" default:"1000" validate:"min=200"`
	Height         int           `yaml:"height" default:"600" validate:"min=150"`
	SnapshotDir    string        `yaml:"snapshot_dir" default:"."`
}

// RecordConfig enables frame recording when File is set
type RecordConfig struct {
	File string `yaml:"file"`
}

var validate = validator.New()

// Default returns the built-in settings
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("set defaults: %w", err)
	}
	return &c, nil
}

// Load reads defaults, then the YAML file at path when path is not empty,
// then environment overrides, and validates the result
func Load(path string) (*Config, error) {
	return LoadWithEnv(path, os.Getenv)
}

// LoadWithEnv is Load with an injectable environment lookup
func LoadWithEnv(path string, getenv func(string) string) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(c, getenv)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Validate checks struct tags and cross-field rules
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	switch c.Source.Kind {
	case source.KindSerial:
		if c.Source.Serial.Port == "" {
			return errors.New("source.serial.port is required")
		}
	case source.KindWebSocket:
		if c.Source.WebSocket.URL == "" {
			return errors.New("source.websocket.url is required")
		}
	case source.KindReplay:
		if c.Source.Replay.File == "" {
			return errors.New("source.replay.file is required")
		}
	}
	if c.Record.File != "" && c.Source.Kind == source.KindReplay && c.Record.File == c.Source.Replay.File {
		return errors.New("record.file must differ from source.replay.file")
	}
	return nil
}

// LoadEnvFile loads .env from the working directory or the nearest parent
// holding go.mod. A missing file is not an error.
func LoadEnvFile() error {
	workDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	dir := workDir
	for {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			return godotenv.Load(envPath)
		}
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil
		}
		dir = parent
	}
}

// applyEnv overrides settings from MSGEQ7_* variables. Unparsable values are
// reported and the previous value kept.
func applyEnv(c *Config, getenv func(string) string) {
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v := getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			} else {
				slog.Warn("cannot parse env var, keeping default", "key", key, "value", v, "default", *dst)
			}
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v := getenv(key); v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = d
			} else {
				slog.Warn("cannot parse env var, keeping default", "key", key, "value", v, "default", *dst)
			}
		}
	}
	flag := func(key string, dst *bool) {
		if v := getenv(key); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			} else {
				slog.Warn("cannot parse env var, keeping default", "key", key, "value", v, "default", *dst)
			}
		}
	}

	str("MSGEQ7_UI", &c.UI.Mode)
	num("MSGEQ7_WINDOW_SIZE", &c.UI.WindowSize)
	dur("MSGEQ7_TICK_INTERVAL", &c.UI.TickInterval)
	dur("MSGEQ7_REDRAW_INTERVAL", &c.UI.RedrawInterval)
	num("MSGEQ7_STATS_PERIOD", &c.UI.StatsPeriod)
	str("MSGEQ7_SNAPSHOT_DIR", &c.UI.SnapshotDir)

	str("MSGEQ7_SOURCE", &c.Source.Kind)
	str("MSGEQ7_SERIAL_PORT", &c.Source.Serial.Port)
	num("MSGEQ7_BAUD_RATE", &c.Source.Serial.BaudRate)
	dur("MSGEQ7_READ_TIMEOUT", &c.Source.Serial.ReadTimeout)
	str("MSGEQ7_WS_URL", &c.Source.WebSocket.URL)
	str("MSGEQ7_REPLAY_FILE", &c.Source.Replay.File)
	dur("MSGEQ7_REPLAY_INTERVAL", &c.Source.Replay.Interval)
	flag("MSGEQ7_REPLAY_LOOP", &c.Source.Replay.Loop)
	if v := getenv("MSGEQ7_SIM_BPM"); v != "" {
		if bpm, err := strconv.ParseFloat(v, 64); err == nil {
			c.Source.Sim.BPM = bpm
		} else {
			slog.Warn("cannot parse env var, keeping default", "key", "MSGEQ7_SIM_BPM", "value", v)
		}
	}
	if v := getenv("MSGEQ7_SIM_SEED"); v != "" {
		if seed, err := strconv.ParseUint(v, 10, 64); err == nil {
			c.Source.Sim.Seed = seed
		} else {
			slog.Warn("cannot parse env var, keeping default", "key", "MSGEQ7_SIM_SEED", "value", v)
		}
	}

	str("MSGEQ7_LOG_LEVEL", &c.Log.Level)
	str("MSGEQ7_LOG_OUTPUT", &c.Log.Output)
	flag("MSGEQ7_LOG_COLOR", &c.Log.Color)

	str("MSGEQ7_METRICS_ADDR", &c.Server.Addr)
	str("MSGEQ7_RECORD_FILE", &c.Record.File)
}
