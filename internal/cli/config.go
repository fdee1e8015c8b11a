package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/svennapp/svennProductsFE/internal/logexport"
)

const (
	configDirName  = "scrapectl"
	configFileName = "config.toml"
	prefsFileName  = "prefs.db"

	envAPIURL = "SCRAPER_API_URL"
)

// Config is the scrapectl configuration file.
type Config struct {
	APIURL string `toml:"api_url"`
	// Operator is the subject the remembered warehouse is stored under.
	Operator     string        `toml:"operator"`
	PollInterval time.Duration `toml:"poll_interval"`
	// PrefsPath is the SQLite file holding local preferences. Empty means
	// prefs.db next to the config file.
	PrefsPath string           `toml:"prefs_path"`
	S3        logexport.Config `toml:"s3"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		APIURL:       "http://localhost:8000",
		Operator:     "local",
		PollInterval: 3 * time.Second,
	}
}

// configDir returns the base config directory (~/.config/scrapectl/).
func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}

	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" {
		xdgConfig = filepath.Join(home, ".config")
	}

	return filepath.Join(xdgConfig, configDirName), nil
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/scrapectl/config.toml.
func DefaultConfigPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// LoadFromFile loads configuration from a TOML file. A missing file yields
// the defaults. SCRAPER_API_URL overrides api_url.
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		md, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("stat config file: %w", err)
	}

	if v := os.Getenv(envAPIURL); v != "" {
		cfg.APIURL = v
	}
	if cfg.PrefsPath == "" {
		cfg.PrefsPath = filepath.Join(filepath.Dir(path), prefsFileName)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("api_url must be specified")
	}
	if !strings.HasPrefix(c.APIURL, "http://") && !strings.HasPrefix(c.APIURL, "https://") {
		return fmt.Errorf("api_url must be an http(s) URL: %s", c.APIURL)
	}
	if c.Operator == "" {
		return fmt.Errorf("operator must be specified")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive")
	}
	return nil
}
