// Package config holds divex's runtime configuration: timeouts, output
// format, and the logger factory shared by every command.
package config

import (
	"os"
	"time"

	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config holds divex's application configuration.
type Config struct {
	LogLevel     logrus.Level  `yaml:"log_level" default:"4"` // logrus.InfoLevel
	ScanTimeout  time.Duration `yaml:"scan_timeout" default:"10s"`
	ConnTimeout  time.Duration `yaml:"conn_timeout" default:"10s"`
	SDOTimeout   time.Duration `yaml:"sdo_timeout" default:"5s"`
	OutputFormat string        `yaml:"output_format" default:"table"` // table, json, csv
	SaveRaw      bool          `yaml:"save_raw" default:"false"`
}

// New returns a Config populated with its struct-tag defaults.
func New() *Config {
	cfg := &Config{}
	defaults.SetDefaults(cfg)
	return cfg
}

// Load reads YAML configuration from path, seeding unset fields with
// struct-tag defaults first so a partial file only overrides what it
// names.
func Load(path string) (*Config, error) {
	cfg := New()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewLogger builds a logrus.Logger configured per this Config, styled on
// the teacher's structured text formatter.
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(c.LogLevel)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
	return logger
}
