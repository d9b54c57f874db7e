package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Log             LogConfig         `yaml:"log"`
	Board           BoardConfig       `yaml:"board"`
	Brightness      BrightnessConfig  `yaml:"brightness"`
	Cooldown        CooldownConfig    `yaml:"cooldown"`
	Sensor          SensorConfig      `yaml:"sensor"`
	Palette         map[string]string `yaml:"palette"`        // state symbol -> "#rrggbb"
	PaletteScript   string            `yaml:"palette_script"` // optional Lua script run after Palette
	Render          RenderConfig      `yaml:"render"`
	Server          ServerConfig      `yaml:"server"`
	Healthcheck     HealthcheckConfig `yaml:"healthcheck"`
	Discovery       DiscoveryConfig   `yaml:"discovery"`
	Database        DatabaseConfig    `yaml:"database"`
	Ledger          LedgerConfig      `yaml:"ledger"`
	EventBus        EventBusConfig    `yaml:"eventbus"`
	ShutdownTimeout Duration          `yaml:"shutdown_timeout"` // General shutdown timeout for graceful stops
}

// LogConfig contains logging settings
type LogConfig struct {
	Level   string `yaml:"level"`
	UseJSON bool   `yaml:"json"`
	Colors  bool   `yaml:"colors"`
}

// GetLevel returns the log level with default
func (c *LogConfig) GetLevel() string {
	if c.Level == "" {
		return "info"
	}
	return c.Level
}

// BoardConfig describes the channel array and its animation timing
type BoardConfig struct {
	Channels     int      `yaml:"channels"`
	FrameRate    int      `yaml:"frame_rate"`    // animation ticks per second
	FadeDuration Duration `yaml:"fade_duration"` // full fade-out plus fade-in
	Mapping      []int    `yaml:"mapping"`       // output slot per channel, identity when empty
	SelfTest     *bool    `yaml:"self_test"`     // white chase on startup (default: true)
	SelfTestStep Duration `yaml:"self_test_step"`
}

// FadeFrames returns the number of frames in each half of a transition.
func (c *BoardConfig) FadeFrames() int {
	return int(time.Duration(c.FrameRate) * c.FadeDuration.Duration() / (2 * time.Second))
}

// FramePeriod returns the animation tick period.
func (c *BoardConfig) FramePeriod() time.Duration {
	return time.Second / time.Duration(c.FrameRate)
}

// IsSelfTestEnabled returns whether the startup self-test runs (default: true)
func (c *BoardConfig) IsSelfTestEnabled() bool {
	return c.SelfTest == nil || *c.SelfTest
}

// BrightnessConfig contains global brightness bounds and the resting heat
type BrightnessConfig struct {
	Low  *int `yaml:"low"`
	High *int `yaml:"high"`
	Cold *int `yaml:"cold"` // heat floor recently changed channels cool down to
}

// LowValue returns the low bound
func (c *BrightnessConfig) LowValue() uint8 { return uint8(*c.Low) }

// HighValue returns the high bound
func (c *BrightnessConfig) HighValue() uint8 { return uint8(*c.High) }

// ColdValue returns the resting heat
func (c *BrightnessConfig) ColdValue() uint8 { return uint8(*c.Cold) }

// CooldownConfig contains heat decay settings
type CooldownConfig struct {
	Duration Duration `yaml:"duration"` // time from full heat to cold
}

// SensorConfig contains ambient light sensor settings
type SensorConfig struct {
	Driver   string   `yaml:"driver"` // none, static, file
	Path     string   `yaml:"path"`   // file driver: path to a numeric reading
	Value    float64  `yaml:"value"`  // static driver: constant reading
	Interval Duration `yaml:"interval"`
	Curve    float64  `yaml:"curve"`
	Window   int      `yaml:"window"`
	MaxRaw   float64  `yaml:"max_raw"`
}

// RenderConfig selects the output device
type RenderConfig struct {
	Driver string    `yaml:"driver"` // none, opc, terminal
	OPC    OPCConfig `yaml:"opc"`
}

// OPCConfig contains Open Pixel Control settings
type OPCConfig struct {
	Address string `yaml:"address"`
	Channel int    `yaml:"channel"`
}

// ServerConfig contains settings for the HTTP command server
type ServerConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Host         string  `yaml:"host"`
	Port         int     `yaml:"port"`
	RateLimitRPS float64 `yaml:"rate_limit_rps"`
	Burst        int     `yaml:"burst"`
}

// HealthcheckConfig contains health check server settings
type HealthcheckConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// DiscoveryConfig controls mDNS advertisement of the control server
type DiscoveryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Instance string `yaml:"instance"` // defaults to the host name
	Service  string `yaml:"service"`
	Domain   string `yaml:"domain"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LedgerConfig contains event ledger settings
type LedgerConfig struct {
	Enabled         *bool    `yaml:"enabled"`
	CleanupInterval Duration `yaml:"cleanup_interval"`
	RetentionDays   int      `yaml:"retention_days"`
}

// IsEnabled returns whether the ledger records status history (default: true)
func (c *LedgerConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// EventBusConfig contains event bus settings
type EventBusConfig struct {
	Workers   int `yaml:"workers"`    // Number of worker goroutines (default: 2)
	QueueSize int `yaml:"queue_size"` // Event queue size (default: 100)
}

// GetWorkers returns worker count with default
func (c *EventBusConfig) GetWorkers() int {
	if c.Workers <= 0 {
		return 2
	}
	return c.Workers
}

// GetQueueSize returns queue size with default
func (c *EventBusConfig) GetQueueSize() int {
	if c.QueueSize <= 0 {
		return 100
	}
	return c.QueueSize
}

// Duration is a wrapper around time.Duration for YAML unmarshalling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse parses configuration from YAML, applies defaults and validates the result
func Parse(data []byte) (*Config, error) {
	// Expand environment variables
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration with every default applied
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (cfg *Config) applyDefaults() {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	// Board defaults match the 50-pixel strip the dashboard was built around
	if cfg.Board.Channels == 0 {
		cfg.Board.Channels = 50
	}
	if cfg.Board.FrameRate == 0 {
		cfg.Board.FrameRate = 50
	}
	if cfg.Board.FadeDuration == 0 {
		cfg.Board.FadeDuration = Duration(1400 * time.Millisecond)
	}
	if cfg.Board.SelfTestStep == 0 {
		cfg.Board.SelfTestStep = Duration(50 * time.Millisecond)
	}

	// Brightness defaults
	if cfg.Brightness.Low == nil {
		cfg.Brightness.Low = intPtr(12)
	}
	if cfg.Brightness.High == nil {
		cfg.Brightness.High = intPtr(128)
	}
	if cfg.Brightness.Cold == nil {
		cfg.Brightness.Cold = intPtr(128)
	}
	if cfg.Cooldown.Duration == 0 {
		cfg.Cooldown.Duration = Duration(30 * time.Second)
	}

	// Sensor defaults
	if cfg.Sensor.Driver == "" {
		cfg.Sensor.Driver = "none"
	}
	if cfg.Sensor.Interval == 0 {
		cfg.Sensor.Interval = Duration(100 * time.Millisecond)
	}
	if cfg.Sensor.Curve == 0 {
		cfg.Sensor.Curve = 0.45
	}
	if cfg.Sensor.Window == 0 {
		cfg.Sensor.Window = 50
	}
	if cfg.Sensor.MaxRaw == 0 {
		cfg.Sensor.MaxRaw = 1023
	}

	// Render defaults
	if cfg.Render.Driver == "" {
		cfg.Render.Driver = "none"
	}
	if cfg.Render.OPC.Address == "" {
		cfg.Render.OPC.Address = "127.0.0.1:7890"
	}

	// Server defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitRPS == 0 {
		cfg.Server.RateLimitRPS = 20.0
	}
	if cfg.Server.Burst == 0 {
		cfg.Server.Burst = 50
	}

	// Healthcheck defaults
	if cfg.Healthcheck.Port == 0 {
		cfg.Healthcheck.Port = 9090
	}
	if cfg.Healthcheck.Host == "" {
		cfg.Healthcheck.Host = "0.0.0.0"
	}

	// Discovery defaults
	if cfg.Discovery.Service == "" {
		cfg.Discovery.Service = "_dashd._tcp"
	}
	if cfg.Discovery.Domain == "" {
		cfg.Discovery.Domain = "local."
	}
	if cfg.Discovery.Instance == "" {
		if host, err := os.Hostname(); err == nil {
			cfg.Discovery.Instance = host
		} else {
			cfg.Discovery.Instance = "dashd"
		}
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = "./dashd.sqlite"
	}

	// Ledger defaults
	if cfg.Ledger.CleanupInterval == 0 {
		cfg.Ledger.CleanupInterval = Duration(24 * time.Hour)
	}
	if cfg.Ledger.RetentionDays == 0 {
		cfg.Ledger.RetentionDays = 30
	}

	// General shutdown timeout
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = Duration(5 * time.Second)
	}
}

// Validate checks value ranges that the board and engines rely on
func (cfg *Config) Validate() error {
	b := cfg.Board
	if b.Channels < 1 || b.Channels > 254 {
		return fmt.Errorf("board.channels must be in 1..254, got %d", b.Channels)
	}
	if b.FrameRate < 1 {
		return fmt.Errorf("board.frame_rate must be positive, got %d", b.FrameRate)
	}
	if b.FramePeriod() <= 0 {
		return fmt.Errorf("board.frame_rate %d is too high, frame period rounds to zero", b.FrameRate)
	}
	if b.FadeFrames() < 1 {
		return fmt.Errorf("board.fade_duration %s is shorter than two frames", b.FadeDuration.Duration())
	}
	if len(b.Mapping) > 0 {
		if len(b.Mapping) != b.Channels {
			return fmt.Errorf("board.mapping has %d entries, want %d", len(b.Mapping), b.Channels)
		}
		seen := make(map[int]bool, len(b.Mapping))
		for i, slot := range b.Mapping {
			if slot < 0 || slot > b.Channels {
				return fmt.Errorf("board.mapping[%d] = %d out of range 0..%d", i, slot, b.Channels)
			}
			if seen[slot] {
				return fmt.Errorf("board.mapping[%d] = %d is used twice", i, slot)
			}
			seen[slot] = true
		}
	}

	br := cfg.Brightness
	for name, v := range map[string]int{"low": *br.Low, "high": *br.High, "cold": *br.Cold} {
		if v < 0 || v > 255 {
			return fmt.Errorf("brightness.%s must be in 0..255, got %d", name, v)
		}
	}
	if *br.Low > *br.High {
		return fmt.Errorf("brightness.low (%d) exceeds brightness.high (%d)", *br.Low, *br.High)
	}
	if *br.Cold >= 255 {
		return fmt.Errorf("brightness.cold must be below 255, got %d", *br.Cold)
	}
	if cfg.Cooldown.Duration <= 0 {
		return fmt.Errorf("cooldown.duration must be positive")
	}
	// The loop ticks cooldown once per decay step, from 255 down to cold.
	if cfg.Cooldown.Duration.Duration()/time.Duration(255-*br.Cold) <= 0 {
		return fmt.Errorf("cooldown.duration %s is too short for %d decay steps", cfg.Cooldown.Duration.Duration(), 255-*br.Cold)
	}

	switch cfg.Sensor.Driver {
	case "none", "static":
	case "file":
		if cfg.Sensor.Path == "" {
			return fmt.Errorf("sensor.path is required for the file driver")
		}
	default:
		return fmt.Errorf("unknown sensor.driver %q", cfg.Sensor.Driver)
	}
	if cfg.Sensor.Driver != "none" && cfg.Sensor.Interval <= 0 {
		return fmt.Errorf("sensor.interval must be positive for the %s driver", cfg.Sensor.Driver)
	}
	if cfg.Sensor.Window < 1 {
		return fmt.Errorf("sensor.window must be positive, got %d", cfg.Sensor.Window)
	}

	switch cfg.Render.Driver {
	case "none", "opc", "terminal":
	default:
		return fmt.Errorf("unknown render.driver %q", cfg.Render.Driver)
	}
	if cfg.Render.OPC.Channel < 0 || cfg.Render.OPC.Channel > 255 {
		return fmt.Errorf("render.opc.channel must be in 0..255, got %d", cfg.Render.OPC.Channel)
	}

	for symbol := range cfg.Palette {
		if len(symbol) != 1 {
			return fmt.Errorf("palette key %q must be a single state symbol", symbol)
		}
	}

	return nil
}

// GetShutdownTimeout returns the shutdown timeout
func (cfg *Config) GetShutdownTimeout() time.Duration {
	return cfg.ShutdownTimeout.Duration()
}

func intPtr(v int) *int {
	return &v
}

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(input string) string {
	// Match ${VAR} or ${VAR:default}
	re := regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

	return re.ReplaceAllStringFunc(input, func(match string) string {
		parts := re.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultVal := ""
		if len(parts) >= 3 {
			defaultVal = parts[2]
		}

		if val := os.Getenv(varName); val != "" {
			return val
		}
		return defaultVal
	})
}
