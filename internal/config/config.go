package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ServiceName    string
	ScraperAPIURL  string
	HTTPListenAddr string
	LogLevel       string
	CORSOrigins    []string

	JWTSecret         string
	OAuthClientID     string
	OAuthClientSecret string

	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string

	// Client certificate and CA for a backend behind mutual TLS.
	ScraperTLSCert   string
	ScraperTLSKey    string
	ScraperTLSCACert string

	PollInterval    time.Duration
	PollMaxDuration time.Duration
	PollMaxFailures int
	SearchDebounce  time.Duration
	SessionIdleTTL  time.Duration

	DevMode bool
}

func Load() (*Config, error) {
	var corsList []string
	for _, o := range strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000"), ",") {
		if trimmed := strings.TrimSpace(o); trimmed != "" {
			corsList = append(corsList, trimmed)
		}
	}

	cfg := &Config{
		ServiceName:       getEnv("SERVICE_NAME", ""),
		ScraperAPIURL:     getEnv("SCRAPER_API_URL", "http://localhost:8000"),
		HTTPListenAddr:    getEnv("HTTP_LISTEN_ADDR", ":8080"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		CORSOrigins:       corsList,
		JWTSecret:         getEnv("JWT_SECRET", ""),
		OAuthClientID:     getEnv("OAUTH_CLIENT_ID", ""),
		OAuthClientSecret: getEnv("OAUTH_CLIENT_SECRET", ""),
		DBHost:            getEnv("DB_HOST", ""),
		DBUser:            getEnv("DB_USER", ""),
		DBPassword:        getEnv("DB_PASSWORD", ""),
		DBName:            getEnv("DB_NAME", ""),
		DBPort:            getEnv("DB_PORT", "5432"),
		ScraperTLSCert:    getEnv("SCRAPER_TLS_CERT", ""),
		ScraperTLSKey:     getEnv("SCRAPER_TLS_KEY", ""),
		ScraperTLSCACert:  getEnv("SCRAPER_TLS_CA_CERT", ""),
		DevMode:           getEnv("DEV_MODE", "") == "true",
	}

	var err error
	if cfg.PollInterval, err = getDuration("POLL_INTERVAL", 3*time.Second); err != nil {
		return nil, err
	}
	if cfg.PollMaxDuration, err = getDuration("POLL_MAX_DURATION", 30*time.Minute); err != nil {
		return nil, err
	}
	if cfg.SearchDebounce, err = getDuration("SEARCH_DEBOUNCE", 400*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.SessionIdleTTL, err = getDuration("SESSION_IDLE_TTL", 2*time.Hour); err != nil {
		return nil, err
	}
	if cfg.PollMaxFailures, err = getInt("POLL_MAX_FAILURES", 8); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the variables the given service needs are set.
func (c *Config) Validate(service string) error {
	var missing []string

	if c.ScraperAPIURL == "" {
		missing = append(missing, "SCRAPER_API_URL")
	}

	switch service {
	case "dashboard-api":
		if c.HTTPListenAddr == "" {
			missing = append(missing, "HTTP_LISTEN_ADDR")
		}
		if c.JWTSecret == "" && !c.DevMode {
			missing = append(missing, "JWT_SECRET")
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}

	if c.ScraperAPIURL != "" {
		u, err := url.Parse(c.ScraperAPIURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("SCRAPER_API_URL must be an http(s) URL, got %q", c.ScraperAPIURL)
		}
	}
	if service == "dashboard-api" && c.JWTSecret != "" && len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 bytes")
	}
	if (c.OAuthClientID == "") != (c.OAuthClientSecret == "") {
		return fmt.Errorf("OAUTH_CLIENT_ID and OAUTH_CLIENT_SECRET must both be set")
	}
	if (c.ScraperTLSCert == "") != (c.ScraperTLSKey == "") {
		return fmt.Errorf("SCRAPER_TLS_CERT and SCRAPER_TLS_KEY must both be set")
	}
	if c.PollInterval <= 0 || c.PollMaxDuration < c.PollInterval {
		return fmt.Errorf("POLL_MAX_DURATION must be at least POLL_INTERVAL")
	}
	if c.PollMaxFailures < 1 {
		return fmt.Errorf("POLL_MAX_FAILURES must be at least 1")
	}

	return nil
}

// DatabaseURL assembles a postgres URL from the DB_* parts. It returns ""
// when DB_HOST or DB_NAME is unset.
func (c *Config) DatabaseURL() string {
	if c.DBHost == "" || c.DBName == "" {
		return ""
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   c.DBHost,
		Path:   "/" + c.DBName,
	}
	if c.DBPort != "" {
		u.Host = c.DBHost + ":" + c.DBPort
	}
	if c.DBUser != "" {
		if c.DBPassword != "" {
			u.User = url.UserPassword(c.DBUser, c.DBPassword)
		} else {
			u.User = url.User(c.DBUser)
		}
	}
	return u.String()
}

// OAuthEnabled reports whether an OAuth client is configured.
func (c *Config) OAuthEnabled() bool {
	return c.OAuthClientID != "" && c.OAuthClientSecret != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}
