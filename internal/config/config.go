package config

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level tool configuration parsed from cronrecon.yaml.
type Config struct {
	// Crontab is the crontab file inspected by default.
	Crontab string `yaml:"crontab"`

	// DataDir holds the snapshot database.
	DataDir string `yaml:"data_dir"`

	// Listen is the HTTP API address for the serve subcommand.
	Listen string `yaml:"listen"`

	// Upcoming is the default number of jobs shown by the upcoming
	// subcommand and the /api/v1/upcoming endpoint.
	Upcoming int `yaml:"upcoming"`
}

func applyDefaults(c *Config) {
	if c.Crontab == "" {
		c.Crontab = "/etc/crontab"
	}
	c.Crontab = expandPath(c.Crontab)
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	c.DataDir = expandPath(c.DataDir)
	if c.Listen == "" {
		c.Listen = ":8080"
	}
	if c.Upcoming <= 0 {
		c.Upcoming = 10
	}
}

func expandPath(value string) string {
	v := strings.TrimSpace(value)
	if v == "" {
		return value
	}

	v = os.ExpandEnv(v)

	home, err := os.UserHomeDir()
	if err != nil || strings.TrimSpace(home) == "" {
		return v
	}

	if v == "~" {
		return home
	}
	if strings.HasPrefix(v, "~/") {
		return filepath.Join(home, v[2:])
	}
	return v
}

// Default returns the configuration used when no config file is present.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// LoadConfig reads a YAML configuration file from path and returns a Config
// with defaults applied for any unset fields.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	return &cfg, nil
}
