package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AxisConfig holds the mechanical constants for one axis.
type AxisConfig struct {
	GearRatio float64 `yaml:"gear_ratio"`
	StepPin   int     `yaml:"step_pin"`
	DirPin    int     `yaml:"dir_pin"`
	HomePin   int     `yaml:"home_pin"` // homing button, active high, external pull-down
}

// Mount holds the full mount configuration. Defaults match the
// as-built hardware; a yaml file may override any of them.
type Mount struct {
	Azimuth   AxisConfig `yaml:"azimuth"`
	Elevation AxisConfig `yaml:"elevation"`

	Microsteps int `yaml:"microsteps"`

	// Elevation travel limits in degrees, inclusive.
	ElevationMin float64 `yaml:"elevation_min"`
	ElevationMax float64 `yaml:"elevation_max"`

	// Shared motion limits, in steps/s and steps/s^2.
	MaxSpeed     float64 `yaml:"max_speed"`
	Acceleration float64 `yaml:"acceleration"`

	// Shared pins. Enable is active low (drivers enabled when driven
	// low); stop and the homing buttons are active high.
	EnablePin int `yaml:"enable_pin"`
	LEDPin    int `yaml:"led_pin"`
	StopPin   int `yaml:"stop_pin"`

	// Watchdog window: if no valid command arrives for this long after
	// homing, the mount holds position. 0 disables the watchdog.
	StaleTimeoutMs int `yaml:"stale_timeout_ms"`

	Port int `yaml:"port"`
}

// StaleTimeout returns the command staleness window.
func (m Mount) StaleTimeout() time.Duration {
	return time.Duration(m.StaleTimeoutMs) * time.Millisecond
}

// Default returns the compiled-in mount configuration.
func Default() Mount {
	return Mount{
		Azimuth:        AxisConfig{GearRatio: 5.75, StepPin: 18, DirPin: 19, HomePin: 14},
		Elevation:      AxisConfig{GearRatio: 8.0, StepPin: 21, DirPin: 22, HomePin: 13},
		Microsteps:     2,
		ElevationMin:   -50,
		ElevationMax:   54,
		MaxSpeed:       1800,
		Acceleration:   240,
		EnablePin:      15,
		LEDPin:         5,
		StopPin:        25,
		StaleTimeoutMs: 5000,
		Port:           10000,
	}
}

// Load reads a yaml mount configuration, filling unset values from the
// compiled-in defaults. path may be empty to use the defaults alone.
func Load(path string) (Mount, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read mount config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("unmarshal mount config: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (m Mount) Validate() error {
	if m.Azimuth.GearRatio <= 0 || m.Elevation.GearRatio <= 0 {
		return fmt.Errorf("gear ratios must be positive")
	}
	if m.Microsteps <= 0 {
		return fmt.Errorf("microsteps must be positive, got %d", m.Microsteps)
	}
	if m.ElevationMin >= m.ElevationMax {
		return fmt.Errorf("elevation bounds inverted: [%g, %g]", m.ElevationMin, m.ElevationMax)
	}
	if m.MaxSpeed <= 0 || m.Acceleration <= 0 {
		return fmt.Errorf("motion limits must be positive")
	}
	return nil
}

// AzStepsPerDegree returns the azimuth conversion constant. The motors
// are 200 full steps per revolution.
func (m Mount) AzStepsPerDegree() float64 {
	return 200 * float64(m.Microsteps) * m.Azimuth.GearRatio / 360
}

func (m Mount) ElStepsPerDegree() float64 {
	return 200 * float64(m.Microsteps) * m.Elevation.GearRatio / 360
}

// Credentials holds the network association settings read from the
// key=value credentials file.
type Credentials struct {
	SSID     string
	Password string
}

// LoadCredentials parses a plain-text credentials file of key=value
// lines. Unknown keys are ignored. A missing or unreadable file is a
// fatal startup condition for callers.
func LoadCredentials(path string) (Credentials, error) {
	f, err := os.Open(path)
	if err != nil {
		return Credentials{}, fmt.Errorf("open credentials file: %w", err)
	}
	defer f.Close()
	var creds Credentials
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "ssid="):
			creds.SSID = line[len("ssid="):]
		case strings.HasPrefix(line, "password="):
			creds.Password = line[len("password="):]
		}
	}
	if err := scanner.Err(); err != nil {
		return Credentials{}, fmt.Errorf("read credentials file: %w", err)
	}
	return creds, nil
}
