package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const envPrefix = "TTNMAPPER_"

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	LogLevel string       `yaml:"log_level"`
	Input    InputConfig  `yaml:"input"`
	Output   OutputConfig `yaml:"output"`
	Workers  int          `yaml:"workers"`
}

type InputConfig struct {
	Encoding string `yaml:"encoding"` // auto, json, hex or base64
	Port     int    `yaml:"port"`     // used when the input carries no port
	DeviceID string `yaml:"device_id"`
	Debug    bool   `yaml:"debug"`
}

type OutputConfig struct {
	Grid          bool `yaml:"grid"`
	MGRSPrecision int  `yaml:"mgrs_precision"`
	Summary       bool `yaml:"summary"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	cfg := Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads a YAML config file. An empty path yields the defaults. Values
// from TTNMAPPER_* environment variables override the file.
func Load(path string) (Config, error) {
	var cfg Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
		}
	}

	cfg.applyDefaults()
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Input.Encoding == "" {
		c.Input.Encoding = "auto"
	}
	if c.Input.Port == 0 {
		c.Input.Port = 1
	}
	if c.Input.DeviceID == "" {
		c.Input.DeviceID = "unknown"
	}
	if c.Output.MGRSPrecision == 0 {
		c.Output.MGRSPrecision = 5
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
}

func (c *Config) applyEnv() error {
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.Input.Encoding = getEnv("INPUT", c.Input.Encoding)
	c.Input.DeviceID = getEnv("DEVICE", c.Input.DeviceID)

	var err error
	if c.Input.Port, err = getEnvInt("PORT", c.Input.Port); err != nil {
		return err
	}
	if c.Workers, err = getEnvInt("WORKERS", c.Workers); err != nil {
		return err
	}
	if c.Output.MGRSPrecision, err = getEnvInt("MGRS_PRECISION", c.Output.MGRSPrecision); err != nil {
		return err
	}
	if c.Output.Grid, err = getEnvBool("GRID", c.Output.Grid); err != nil {
		return err
	}
	if c.Input.Debug, err = getEnvBool("DEBUG", c.Input.Debug); err != nil {
		return err
	}
	return nil
}

// Validate checks ranges after defaults, environment and flags were applied.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Input.Encoding) {
	case "auto", "json", "hex", "base64":
	default:
		return fmt.Errorf("%w: input.encoding must be auto, json, hex or base64, got %q", ErrInvalidConfig, c.Input.Encoding)
	}
	if c.Input.Port < 0 || c.Input.Port > 255 {
		return fmt.Errorf("%w: input.port must be between 0 and 255, got %d", ErrInvalidConfig, c.Input.Port)
	}
	if c.Output.MGRSPrecision < 0 || c.Output.MGRSPrecision > 5 {
		return fmt.Errorf("%w: output.mgrs_precision must be between 0 and 5, got %d", ErrInvalidConfig, c.Output.MGRSPrecision)
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be > 0", ErrInvalidConfig)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(envPrefix + key)
	if value == "" {
		return defaultValue
	}
	return strings.TrimSpace(value)
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s%s=%q is not a number", ErrInvalidConfig, envPrefix, key, value)
	}
	return n, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%w: %s%s=%q is not a boolean", ErrInvalidConfig, envPrefix, key, value)
	}
	return b, nil
}
