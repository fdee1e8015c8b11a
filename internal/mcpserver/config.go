package mcpserver

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the MCP endpoint configuration loaded from mcp.yaml.
type Config struct {
	Name         string                  `yaml:"name"`
	Instructions string                  `yaml:"instructions"`
	Overrides    map[string]ToolOverride `yaml:"overrides"`
	// Disabled tools are not registered.
	Disabled []string `yaml:"disabled"`
}

// ToolOverride allows per-tool customization.
type ToolOverride struct {
	Description string `yaml:"description"`
	ReadOnly    *bool  `yaml:"readonly"`
	Destructive *bool  `yaml:"destructive"`
	Idempotent  *bool  `yaml:"idempotent"`
}

// LoadConfig reads and parses the mcp.yaml configuration file. An empty
// path yields the defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return ParseConfig(nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return ParseConfig(data)
}

// ParseConfig parses mcp.yaml configuration from raw bytes.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse mcp config: %w", err)
	}

	if cfg.Name == "" {
		cfg.Name = "scraper-dashboard"
	}
	if cfg.Instructions == "" {
		cfg.Instructions = "Scraper operations: browse warehouses and scripts, run scripts and follow their executions, read logs, manage schedules and search products."
	}

	return &cfg, nil
}

func (c *Config) disabled(name string) bool {
	for _, d := range c.Disabled {
		if d == name {
			return true
		}
	}
	return false
}
