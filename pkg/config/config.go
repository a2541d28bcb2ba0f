// Package config provides configuration loading and management for the
// dicomvol command-line tool. It handles loading configuration from YAML
// files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the tool configuration loaded from YAML
type Config struct {
	// File handling parameters
	Files struct {
		// Extension is the DICOM filename extension, including the dot
		Extension string `yaml:"extension"`
	} `yaml:"files"`

	// Metadata written into generated DICOM series. Empty fields fall back
	// to the library defaults.
	Metadata struct {
		PatientName       string `yaml:"patientName"`
		PatientID         string `yaml:"patientId"`
		SeriesDescription string `yaml:"seriesDescription"`
	} `yaml:"metadata"`

	// Read parameters
	Read struct {
		// WindowMode selects the intensity windowing on read:
		// "fullscale" or "minmax"
		WindowMode string `yaml:"windowMode"`
	} `yaml:"read"`

	// Output parameters
	Output struct {
		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Files.Extension = ".dcm"
	cfg.Read.WindowMode = "fullscale"
	cfg.Output.Verbose = false

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the
// specified path
func CreateDefaultConfigFile(configPath string) error {
	return SaveConfig(DefaultConfig(), configPath)
}
