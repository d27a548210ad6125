package config

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/robbyt/go-devicefsm/device"
	"github.com/robbyt/go-devicefsm/hardware/modbus"
	"github.com/robbyt/go-devicefsm/internal/networking"
)

const (
	BackendSim    = "sim"
	BackendModbus = "modbus"

	defaultPeriod        = time.Second
	defaultModbusTimeout = 2 * time.Second
)

// Config is the root of the configuration file.
type Config struct {
	Device  DeviceConfig  `yaml:"device"`
	Backend BackendConfig `yaml:"backend"`
	Status  StatusConfig  `yaml:"status"`
	Log     LogConfig     `yaml:"log"`
}

// DeviceConfig tunes the state machine and its driver loop.
type DeviceConfig struct {
	MaxTempC   float64       `yaml:"max_temp_c"`
	Period     time.Duration `yaml:"period"`
	RetryDelay time.Duration `yaml:"retry_delay"`
	InitResume string        `yaml:"init_resume"`
	Silent     bool          `yaml:"silent"`
}

// BackendConfig selects the hardware implementation.
type BackendConfig struct {
	Type   string       `yaml:"type"`
	Modbus ModbusConfig `yaml:"modbus"`
}

// ModbusConfig describes a Modbus TCP I/O module.
type ModbusConfig struct {
	Endpoint  string          `yaml:"endpoint"`
	UnitID    uint8           `yaml:"unit_id"`
	Timeout   time.Duration   `yaml:"timeout"`
	Registers RegistersConfig `yaml:"registers"`
}

// RegistersConfig holds the Modbus point addresses.
type RegistersConfig struct {
	Cover       uint16 `yaml:"cover"`
	Temperature uint16 `yaml:"temperature"`
	UserInput   uint16 `yaml:"user_input"`
	Fans        uint16 `yaml:"fans"`
	Output      uint16 `yaml:"output"`
}

// StatusConfig configures the HTTP status endpoint. An empty Listen disables it.
type StatusConfig struct {
	Listen string `yaml:"listen"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads, defaults and validates the file at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadConfig, err)
	}
	return Parse(b)
}

// Parse decodes YAML, applies defaults and validates the result. Unknown keys are
// rejected.
func Parse(b []byte) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, fmt.Errorf("%w: %w", ErrParseConfig, err)
	}

	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Device.MaxTempC == 0 {
		cfg.Device.MaxTempC = device.DefaultMaxTempC
	}
	if cfg.Device.Period == 0 {
		cfg.Device.Period = defaultPeriod
	}
	if cfg.Device.RetryDelay == 0 {
		cfg.Device.RetryDelay = cfg.Device.Period
	}
	if cfg.Device.InitResume == "" {
		cfg.Device.InitResume = device.ResumeUnlessInitMain.String()
	}
	if cfg.Backend.Type == "" {
		cfg.Backend.Type = BackendSim
	}
	if cfg.Backend.Modbus.Timeout == 0 {
		cfg.Backend.Modbus.Timeout = defaultModbusTimeout
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

// Validate checks configuration correctness. It does not mutate cfg.
func Validate(cfg *Config) error {
	if cfg.Device.Period <= 0 {
		return fmt.Errorf("%w: device.period must be positive, got %v", ErrInvalidConfig, cfg.Device.Period)
	}
	if _, err := cfg.Device.Settings(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	switch cfg.Backend.Type {
	case BackendSim:
	case BackendModbus:
		if cfg.Backend.Modbus.Endpoint == "" {
			return fmt.Errorf("%w: backend.modbus.endpoint is required", ErrInvalidConfig)
		}
		r := cfg.Backend.Modbus.Registers
		if r.UserInput == r.Output {
			return fmt.Errorf("%w: backend.modbus.registers user_input and output share address %d", ErrInvalidConfig, r.Output)
		}
	default:
		return fmt.Errorf("%w: unknown backend type %q", ErrInvalidConfig, cfg.Backend.Type)
	}

	if cfg.Status.Listen != "" {
		if _, err := networking.NormalizeListenAddr(cfg.Status.Listen); err != nil {
			return fmt.Errorf("%w: status.listen: %w", ErrInvalidConfig, err)
		}
	}

	if _, err := parseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if cfg.Log.Format != "text" && cfg.Log.Format != "json" {
		return fmt.Errorf("%w: log.format must be text or json, got %q", ErrInvalidConfig, cfg.Log.Format)
	}
	return nil
}

// Settings converts the device section into engine settings.
func (c DeviceConfig) Settings() (device.Settings, error) {
	var mode device.InitResume
	switch c.InitResume {
	case device.ResumeUnlessInitMain.String():
		mode = device.ResumeUnlessInitMain
	case device.ResumeOperationalOnly.String():
		mode = device.ResumeOperationalOnly
	default:
		return device.Settings{}, fmt.Errorf("unknown init_resume mode %q", c.InitResume)
	}

	s := device.Settings{
		MaxTempC:   c.MaxTempC,
		RetryDelay: c.RetryDelay,
		InitResume: mode,
	}
	return s, s.Validate()
}

// ModbusDeviceConfig converts the modbus section for the hardware adapter.
func (c ModbusConfig) ModbusDeviceConfig() modbus.Config {
	return modbus.Config{
		Endpoint: c.Endpoint,
		UnitID:   c.UnitID,
		Timeout:  c.Timeout,
		Registers: modbus.Registers{
			Cover:       c.Registers.Cover,
			Temperature: c.Registers.Temperature,
			UserInput:   c.Registers.UserInput,
			Fans:        c.Registers.Fans,
			Output:      c.Registers.Output,
		},
	}
}

// Handler builds the slog handler described by the log section.
func (c LogConfig) Handler(w io.Writer) slog.Handler {
	level, err := parseLevel(c.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}
