package servo

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

const DefaultConfigFile = "leapservo.json"

// Config holds the tracker and receiver configuration
type Config struct {
	Channel        string         `json:"channel"`
	PollIntervalMS int            `json:"poll_interval_ms"`
	Park           bool           `json:"park"`
	Calibration    Calibration    `json:"calibration"`
	Sensor         SensorConfig   `json:"sensor"`
	Relay          RelayConfig    `json:"relay"`
	Receiver       ReceiverConfig `json:"receiver"`
}

// SensorConfig points at the Leap Motion service
type SensorConfig struct {
	URL string `json:"url"`
}

// RelayConfig holds the message channel endpoints
type RelayConfig struct {
	Listen string `json:"listen"`
	URL    string `json:"url"`
}

// ReceiverConfig holds the servo-side hardware settings
type ReceiverConfig struct {
	MatrixPort string         `json:"matrix_port,omitempty"`
	MatrixBaud int            `json:"matrix_baud"`
	ServoPort  string         `json:"servo_port,omitempty"`
	Servos     RigCalibration `json:"servos,omitempty"`
}

// DefaultConfig returns the configuration used when no file exists
func DefaultConfig() *Config {
	return &Config{
		Channel:        "leap2pi",
		PollIntervalMS: 50,
		Park:           true,
		Calibration:    DefaultCalibration(),
		Sensor:         SensorConfig{URL: "ws://127.0.0.1:6437/v6.json"},
		Relay: RelayConfig{
			Listen: ":8080",
			URL:    "ws://127.0.0.1:8080",
		},
		Receiver: ReceiverConfig{
			MatrixBaud: 9600,
			Servos:     DefaultRigCalibration(),
		},
	}
}

// PollInterval returns the tracking period
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// HasReceiverHardware returns true if at least one receiver output is configured
func (c *Config) HasReceiverHardware() bool {
	return c.Receiver.MatrixPort != "" || c.Receiver.ServoPort != ""
}

// Validate checks the configuration for unusable values
func (c *Config) Validate() error {
	if c.Channel == "" {
		return fmt.Errorf("channel must not be empty")
	}
	if c.PollIntervalMS <= 0 {
		return fmt.Errorf("poll interval %dms must be positive", c.PollIntervalMS)
	}
	if err := c.Calibration.Validate(); err != nil {
		return fmt.Errorf("calibration: %w", err)
	}
	return nil
}

// LoadConfig loads configuration from the default config file
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(DefaultConfigFile)
}

// LoadConfigFrom loads configuration from a specific file. Missing fields
// keep their defaults.
func LoadConfigFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	// Servos replace the default rig rather than merging into it
	cfg.Receiver.Servos = nil
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(cfg.Receiver.Servos) == 0 {
		cfg.Receiver.Servos = DefaultRigCalibration()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save saves configuration to the default config file
func (c *Config) Save() error {
	return c.SaveTo(DefaultConfigFile)
}

// SaveTo saves configuration to a specific file
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ConfigExists returns true if the config file at path exists
func ConfigExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
