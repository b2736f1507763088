package main

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cwsl/uvconvert/coords"
)

// Config is the optional pipeline configuration file. Command-line flags
// override anything set here.
type Config struct {
	Convert ConvertConfig `yaml:"convert"`
	Reflag  ReflagConfig  `yaml:"reflag"`
	Site    SiteConfig    `yaml:"site"`
}

// ConvertConfig controls the dataset-to-container conversion.
type ConvertConfig struct {
	Output            string `yaml:"output"`              // output stem, or whole path with one_to_one
	OneToOne          bool   `yaml:"one_to_one"`          // single container instead of one per coarse band
	UndoPhaseTracking bool   `yaml:"undo_phase_tracking"` // emit non-phase-tracked visibilities
	ResetWeights      bool   `yaml:"reset_weights"`       // force all weights to 1
	ObjectName        string `yaml:"object_name"`         // OBJECT header value (default "Undefined")
}

// ReflagConfig controls flag-archive reflagging.
type ReflagConfig struct {
	Threshold float64 `yaml:"threshold"` // occupancy fraction above which a channel is fully flagged
	Dir       string  `yaml:"dir"`       // directory searched for flag archives
}

// SiteConfig overrides the array reference position. All zero falls back to
// the MWA site.
type SiteConfig struct {
	LatitudeDeg  float64 `yaml:"latitude_deg"`
	LongitudeDeg float64 `yaml:"longitude_deg"`
	AltitudeM    float64 `yaml:"altitude_m"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Reflag: ReflagConfig{
			Threshold: 0.8,
			Dir:       ".",
		},
	}
}

// LoadConfig reads and validates a yaml configuration file.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field ranges that would otherwise only fail deep inside the
// pipeline.
func (c *Config) Validate() error {
	if c.Reflag.Threshold <= 0 || c.Reflag.Threshold > 1 {
		return fmt.Errorf("reflag.threshold %v must be in (0, 1]", c.Reflag.Threshold)
	}
	if c.Site.LatitudeDeg < -90 || c.Site.LatitudeDeg > 90 {
		return fmt.Errorf("site.latitude_deg %v out of range", c.Site.LatitudeDeg)
	}
	return nil
}

// ArraySite returns the configured site, defaulting to the MWA.
func (c *Config) ArraySite() coords.Site {
	if c.Site.LatitudeDeg == 0 && c.Site.LongitudeDeg == 0 {
		return coords.MWASite()
	}
	return coords.Site{
		LatitudeRad:  c.Site.LatitudeDeg * math.Pi / 180,
		LongitudeRad: c.Site.LongitudeDeg * math.Pi / 180,
		AltitudeM:    c.Site.AltitudeM,
	}
}
