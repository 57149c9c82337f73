package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"

	"github.com/jfoltran/uiregistry/internal/board"
	"github.com/jfoltran/uiregistry/internal/demo"
)

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Listen string `toml:"listen" yaml:"listen"`
	Port   int    `toml:"port" yaml:"port"`
}

// RegistryConfig points at on-disk registry trees. With both directories
// empty the embedded demo registry is served.
type RegistryConfig struct {
	PublicDir string `toml:"public_dir" yaml:"public_dir"`
	SourceDir string `toml:"source_dir" yaml:"source_dir"`
	Style     string `toml:"style" yaml:"style"`
	Watch     bool   `toml:"watch" yaml:"watch"`
}

// LoggingConfig holds settings for structured logging.
type LoggingConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"` // "json" or "console"
}

// BoardConfig tunes the counter board.
type BoardConfig struct {
	FPS         int    `toml:"fps" yaml:"fps"`
	BroadcastMs int    `toml:"broadcast_ms" yaml:"broadcast_ms"`
	StateFile   string `toml:"state_file" yaml:"state_file"`
	Resume      bool   `toml:"resume" yaml:"resume"`
}

// MQTTConfig enables publishing board snapshots to a broker when URL is
// set.
type MQTTConfig struct {
	URL        string `toml:"url" yaml:"url"`
	Topic      string `toml:"topic" yaml:"topic"`
	ClientID   string `toml:"client_id" yaml:"client_id"`
	Username   string `toml:"username" yaml:"username"`
	Password   string `toml:"password" yaml:"password"`
	QoS        int    `toml:"qos" yaml:"qos"`
	IntervalMs int    `toml:"interval_ms" yaml:"interval_ms"`
}

// Config is the top-level configuration for uiregistry.
type Config struct {
	Server   ServerConfig        `toml:"server" yaml:"server"`
	Registry RegistryConfig      `toml:"registry" yaml:"registry"`
	Logging  LoggingConfig       `toml:"logging" yaml:"logging"`
	Board    BoardConfig         `toml:"board" yaml:"board"`
	Counters []board.CounterSpec `toml:"counters" yaml:"counters"`
	MQTT     MQTTConfig          `toml:"mqtt" yaml:"mqtt"`
}

func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Listen: "0.0.0.0",
			Port:   3001,
		},
		Registry: RegistryConfig{
			Style: "default",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Board: BoardConfig{
			FPS:         60,
			BroadcastMs: 50,
		},
		MQTT: MQTTConfig{
			Topic:      "uiregistry/board",
			ClientID:   "uiregistry",
			IntervalMs: 250,
		},
	}
}

// Load reads path (or the first config file found in the default
// locations) over Defaults and applies UIREGISTRY_* environment overrides.
// Files ending in .yaml or .yml are decoded as YAML, everything else as
// TOML.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path == "" {
		path = findConfigFile()
	}

	if path != "" {
		if err := decodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		return yaml.NewDecoder(f).Decode(cfg)
	default:
		_, err := toml.DecodeFile(path, cfg)
		return err
	}
}

func findConfigFile() string {
	candidates := []string{}

	if home, err := os.UserHomeDir(); err == nil {
		dir := filepath.Join(home, ".uiregistry")
		candidates = append(candidates,
			filepath.Join(dir, "config.toml"),
			filepath.Join(dir, "config.yaml"),
		)
	}
	candidates = append(candidates, "/etc/uiregistry/config.toml")

	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("UIREGISTRY_LISTEN"); v != "" {
		cfg.Server.Listen = v
	}
	if v := os.Getenv("UIREGISTRY_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("UIREGISTRY_PUBLIC_DIR"); v != "" {
		cfg.Registry.PublicDir = v
	}
	if v := os.Getenv("UIREGISTRY_SOURCE_DIR"); v != "" {
		cfg.Registry.SourceDir = v
	}
	if v := os.Getenv("UIREGISTRY_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("UIREGISTRY_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("UIREGISTRY_MQTT_URL"); v != "" {
		cfg.MQTT.URL = v
	}
}

// Addr returns the host:port to listen on.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Listen, strconv.Itoa(c.Server.Port))
}

// CounterSpecs returns the configured counters, or the demo board when
// none are configured.
func (c *Config) CounterSpecs() []board.CounterSpec {
	if len(c.Counters) == 0 {
		return demo.Counters()
	}
	return c.Counters
}

// Validate checks that values are sane and fills in defaults for optional
// tuning fields.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server port %d out of range", c.Server.Port))
	}
	if (c.Registry.PublicDir == "") != (c.Registry.SourceDir == "") {
		errs = append(errs, errors.New("registry public_dir and source_dir must be set together"))
	}
	if c.Registry.Watch && c.Registry.PublicDir == "" {
		errs = append(errs, errors.New("registry watch requires public_dir and source_dir"))
	}
	if c.Registry.Style == "" {
		c.Registry.Style = "default"
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.Logging.Level)); err != nil {
		errs = append(errs, fmt.Errorf("log level %q: %w", c.Logging.Level, err))
	}
	if c.Logging.Format != "console" && c.Logging.Format != "json" {
		errs = append(errs, fmt.Errorf("log format %q (expected console or json)", c.Logging.Format))
	}
	if c.Board.FPS < 1 || c.Board.FPS > 240 {
		c.Board.FPS = 60
	}
	if c.Board.BroadcastMs < 1 {
		c.Board.BroadcastMs = 50
	}

	seen := make(map[string]bool, len(c.Counters))
	for _, spec := range c.Counters {
		if err := spec.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		if seen[spec.Name] {
			errs = append(errs, fmt.Errorf("counter %q defined twice", spec.Name))
		}
		seen[spec.Name] = true
	}

	if c.MQTT.URL != "" {
		if c.MQTT.Topic == "" {
			errs = append(errs, errors.New("mqtt topic is required when mqtt url is set"))
		}
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			errs = append(errs, fmt.Errorf("mqtt qos %d (expected 0, 1 or 2)", c.MQTT.QoS))
		}
		if c.MQTT.IntervalMs < 1 {
			c.MQTT.IntervalMs = 250
		}
	}

	return errors.Join(errs...)
}
