package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/multierr"
)

type Config struct {
	Environment string
	Host        string
	Port        int
	// logging
	LogLevel      string `toml:"log_level"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	LogFormatJSON bool   `toml:"log_format_json"`
	SentryEnabled bool   `toml:"sentry_enabled"`
	// postgres
	PostgresHost   string `toml:"postgres_host"`
	PostgresPort   string `toml:"postgres_port"`
	PostgresUser   string `toml:"postgres_user"`
	PostgresDBName string `toml:"postgres_db_name"`
	// redis
	RedisHost string `toml:"redis_host"`
	RedisPort string `toml:"redis_port"`
	// metrics
	PrometheusMetricsHost string `toml:"prometheus_metrics_host"`
	PrometheusMetricsPort string `toml:"prometheus_metrics_port"`
	// http
	AllowedOrigins              []string `toml:"allowed_origins"`
	LoginRateLimitAllowedPerMin int      `toml:"login_rate_limit_allowed_per_min"`
	// sessions
	SessionTTL             duration `toml:"session_ttl"`
	SessionCleanupInterval duration `toml:"session_cleanup_interval"`
	// dashboard
	DashboardCacheSizeMB int      `toml:"dashboard_cache_size_mb"`
	DashboardCacheTTL    duration `toml:"dashboard_cache_ttl"`
	WeeklyGoal           int      `toml:"weekly_goal"`
	MonthlyGoal          int      `toml:"monthly_goal"`
	WeekStart            string   `toml:"week_start"`
}

// duration lets the TOML file hold values like "168h" or "30m".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	var cfg *Config
	switch strings.ToLower(env) {
	case "dev", "development":
		cfg = t.Development
	case "prod", "production":
		cfg = t.Production
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
	if cfg == nil {
		return nil, fmt.Errorf("config for env [%s] missing", env)
	}
	return cfg, nil
}

// Load reads the config of the given environment from the TOML file.
func Load(env, path string) (*Config, error) {
	tomlBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(env, string(tomlBytes))
}

func Parse(env, tomlData string) (*Config, error) {
	var t Toml
	if _, err := toml.Decode(tomlData, &t); err != nil {
		return nil, fmt.Errorf("decode toml: %w", err)
	}

	cfg, err := t.Get(env)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	var err error
	if c.Port <= 0 {
		err = multierr.Append(err, errors.New("port must be positive"))
	}
	if c.WeeklyGoal <= 0 {
		err = multierr.Append(err, errors.New("weekly_goal must be positive"))
	}
	if c.MonthlyGoal <= 0 {
		err = multierr.Append(err, errors.New("monthly_goal must be positive"))
	}
	if _, weekStartErr := c.WeekStartDay(); weekStartErr != nil {
		err = multierr.Append(err, weekStartErr)
	}
	if c.SessionTTL.Duration < 0 || c.SessionCleanupInterval.Duration < 0 || c.DashboardCacheTTL.Duration < 0 {
		err = multierr.Append(err, errors.New("durations must not be negative"))
	}
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// WeekStartDay parses week_start, monday when empty.
func (c *Config) WeekStartDay() (time.Weekday, error) {
	if c.WeekStart == "" {
		return time.Monday, nil
	}
	for day := time.Sunday; day <= time.Saturday; day++ {
		if strings.EqualFold(c.WeekStart, day.String()) {
			return day, nil
		}
	}
	return time.Monday, fmt.Errorf("unknown week_start [%s]", c.WeekStart)
}
