// Package source provides the line-oriented inputs the visualizer reads one
// line per tick from: the serial port, a websocket bridge, a recorded file
// and the built-in firmware simulator.
package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const (
	KindSerial    = "serial"
	KindWebSocket = "websocket"
	KindReplay    = "replay"
	KindSim       = "sim"
)

// ErrUnsupported is returned by Send on sources that cannot talk back
var ErrUnsupported = errors.New("source does not accept commands")

// LineSource yields one text line per call. An empty line with a nil error
// means nothing arrived before the source's read timeout.
type LineSource interface {
	ReadLine(ctx context.Context) (string, error)
	Close() error
}

// CommandSender forwards a device command (see models.DeviceModes)
type CommandSender interface {
	Send(cmd string) error
}

// Config selects and configures a source
type Config struct {
	Kind      string          `yaml:"kind" default:"serial" validate:"oneof=serial websocket replay sim"`
	Serial    SerialConfig    `yaml:"serial"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Replay    ReplayConfig    `yaml:"replay"`
	Sim       SimConfig       `yaml:"sim"`
}

// SerialConfig holds serial port settings
type SerialConfig struct {
	Port        string        `yaml:"port" default:"/dev/cu.usbserial-0001"`
	BaudRate    int           `yaml:"baud_rate" default:"115200" validate:"gt=0"`
	ReadTimeout time.Duration `yaml:"read_timeout" default:"1s" validate:"gt=0"`
}

// WebSocketConfig holds websocket bridge settings
type WebSocketConfig struct {
	URL               string        `yaml:"url" default:"ws://localhost:8765/ws"`
	ReconnectInterval time.Duration `yaml:"reconnect_interval" default:"5s" validate:"gt=0"`
	PollTimeout       time.Duration `yaml:"poll_timeout" default:"50ms" validate:"gt=0"`
	QueueSize         int           `yaml:"queue_size" default:"1024" validate:"gt=0"`
}

// ReplayConfig holds recorded-file settings
type ReplayConfig struct {
	File     string        `yaml:"file" default:"msgeq7-record.csv"`
	Interval time.Duration `yaml:"interval" default:"5ms"`
	Loop     bool          `yaml:"loop" default:"true"`
}

// SimConfig holds simulator settings
type SimConfig struct {
	Seed     uint64        `yaml:"seed" default:"7"`
	BPM      float64       `yaml:"bpm" default:"120" validate:"gt=0"`
	Interval time.Duration `yaml:"interval" default:"5ms"`
}

// Open creates the source selected by cfg.Kind
func Open(ctx context.Context, cfg Config, log *slog.Logger) (LineSource, error) {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("source", cfg.Kind)

	switch cfg.Kind {
	case KindSerial:
		return OpenSerial(cfg.Serial)
	case KindWebSocket:
		return DialWebSocket(ctx, cfg.WebSocket, log)
	case KindReplay:
		return OpenReplay(cfg.Replay)
	case KindSim:
		return NewSim(cfg.Sim), nil
	default:
		return nil, fmt.Errorf("unknown source kind %q", cfg.Kind)
	}
}

// Describe returns a short human readable name for logs and window titles
func Describe(cfg Config) string {
	switch cfg.Kind {
	case KindSerial:
		return fmt.Sprintf("serial %s @ %d", cfg.Serial.Port, cfg.Serial.BaudRate)
	case KindWebSocket:
		return "websocket " + cfg.WebSocket.URL
	case KindReplay:
		return "replay " + cfg.Replay.File
	case KindSim:
		return fmt.Sprintf("simulator %.0f bpm", cfg.Sim.BPM)
	default:
		return cfg.Kind
	}
}

// cleanLine decodes raw bytes the way the plotter always has: invalid UTF-8 is
// dropped and the line terminator removed
func cleanLine(b []byte) string {
	return strings.TrimRight(strings.ToValidUTF8(string(b), ""), "\r\n")
}
