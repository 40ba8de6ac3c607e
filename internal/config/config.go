package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/petems/beatcap/internal/audio"
)

type Config struct {
	LogLevel string        `json:"log_level" yaml:"log_level" validate:"oneof=debug info warn warning error"`
	Audio    AudioConfig   `json:"audio" yaml:"audio"`
	Capture  CaptureConfig `json:"capture" yaml:"capture"`
	Metrics  MetricsConfig `json:"metrics" yaml:"metrics"`

	path string
}

type AudioConfig struct {
	Device          string `json:"device" yaml:"device"` // substring filter, empty for the default device
	SampleRate      int    `json:"sample_rate" yaml:"sample_rate" validate:"gte=8000,lte=384000"`
	Channels        int    `json:"channels" yaml:"channels" validate:"gte=1,lte=64"`
	BlockSize       int    `json:"block_size" yaml:"block_size" validate:"gte=1,lte=1048576"`
	FramesPerBuffer int    `json:"frames_per_buffer" yaml:"frames_per_buffer" validate:"gte=0,lte=65536"`
	QueueCapacity   int    `json:"queue_capacity" yaml:"queue_capacity" validate:"gte=1,lte=65536"`
}

type CaptureConfig struct {
	PollInterval string `json:"poll_interval" yaml:"poll_interval" validate:"duration"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Addr    string `json:"addr" yaml:"addr" validate:"omitempty,hostname_port"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("duration", func(fl validator.FieldLevel) bool {
		d, err := time.ParseDuration(fl.Field().String())
		return err == nil && d > 0
	})
	v.RegisterStructValidation(validateQueueSize, AudioConfig{})
	return v
}

// validateQueueSize caps the memory the block queue pre-allocates at Start.
// Non-positive values are left to the field rules.
func validateQueueSize(sl validator.StructLevel) {
	ac := sl.Current().Interface().(AudioConfig)
	if ac.BlockSize < 1 || ac.QueueCapacity < 1 {
		return
	}
	if audio.CheckQueueSize(ac.QueueCapacity, ac.BlockSize) != nil {
		sl.ReportError(ac.QueueCapacity, "QueueCapacity", "queue_capacity", "queue_samples", "")
	}
}

// Default returns the built-in configuration.
func Default() *Config {
	ac := audio.DefaultConfig()
	return &Config{
		LogLevel: "info",
		Audio: AudioConfig{
			Device:        "",
			SampleRate:    ac.SampleRate,
			Channels:      ac.Channels,
			BlockSize:     ac.BlockSize,
			QueueCapacity: 256,
		},
		Capture: CaptureConfig{
			PollInterval: "100ms",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9464",
		},
	}
}

// Load reads the config from the platform config path, or returns defaults if
// no file exists there.
func Load() (*Config, error) {
	return LoadFile(configPath())
}

// LoadFile reads the config at path over the defaults. A missing file is not
// an error. Files ending in .yaml or .yml are parsed as YAML, anything else as
// JSON. ${VAR} references are expanded from the environment first.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	cfg.path = path

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := []byte(os.ExpandEnv(string(data)))
	if isYAML(path) {
		err = yaml.Unmarshal(expanded, cfg)
	} else {
		err = json.Unmarshal(expanded, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every field against its constraints and reports all failures.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validating config: %w", err)
	}

	msgs := make([]string, 0, len(verrs))
	queueTooLarge := false
	for _, fe := range verrs {
		if fe.Tag() == "queue_samples" {
			queueTooLarge = true
			msgs = append(msgs, fmt.Sprintf("%s: queue of %d blocks of %d samples exceeds %d samples",
				fe.Namespace(), c.Audio.QueueCapacity, c.Audio.BlockSize, audio.MaxQueueSamples))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	if queueTooLarge {
		return fmt.Errorf("%w: invalid config: %s", audio.ErrStreamConfig, strings.Join(msgs, "; "))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// Save writes the config back to the file it was loaded from, or to the
// platform config path.
func (c *Config) Save() error {
	path := c.path
	if path == "" {
		path = configPath()
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// AudioConfig returns the capture configuration for a new session.
func (c *Config) AudioConfig() audio.Config {
	return audio.Config{
		SampleRate:      c.Audio.SampleRate,
		Channels:        c.Audio.Channels,
		BlockSize:       c.Audio.BlockSize,
		FramesPerBuffer: c.Audio.FramesPerBuffer,
	}
}

// PollInterval returns how often the consumer drains the block queue.
func (c *Config) PollInterval() time.Duration {
	d, err := time.ParseDuration(c.Capture.PollInterval)
	if err != nil || d <= 0 {
		return 100 * time.Millisecond
	}
	return d
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// configPath returns the platform-specific config file path
func configPath() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Application Support"
	case "windows":
		base = os.Getenv("APPDATA")
	default: // linux
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.config"
		}
	}

	return filepath.Join(base, "beatcap", "config.json")
}
