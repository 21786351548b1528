package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable holding the config file path.
const EnvConfigPath = "BK_CONFIG_PATH"

type Config struct {
	Logging struct {
		Level string `yaml:"level"`
		JSON  bool   `yaml:"json"`
	} `yaml:"logging"`

	Server struct {
		Address         string   `yaml:"address"`
		Mode            string   `yaml:"mode"` // gin mode: debug, release, test
		AllowedOrigins  []string `yaml:"allowed_origins"`
		ShutdownSeconds int      `yaml:"shutdown_seconds"`
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Backup struct {
		Enabled       bool   `yaml:"enabled"`
		IntervalHours int    `yaml:"interval_hours"`
		Path          string `yaml:"path"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"backup"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Cache struct {
		ShopsTTLSeconds int `yaml:"shops_ttl_seconds"`
	} `yaml:"cache"`

	Auth struct {
		JWTSecret       string  `yaml:"jwt_secret"`
		TokenTTLHours   int     `yaml:"token_ttl_hours"`
		LoginRatePerMin float64 `yaml:"login_rate_per_minute"`
		LoginBurst      int     `yaml:"login_burst"`
		BcryptCost      int     `yaml:"bcrypt_cost"`
	} `yaml:"auth"`

	Reservation struct {
		Timezone        string `yaml:"timezone"`
		RejectPastDates bool   `yaml:"reject_past_dates"`
	} `yaml:"reservation"`

	Telegram struct {
		BotToken     string  `yaml:"bot_token"`
		Debug        bool    `yaml:"debug"`
		AdminChatIDs []int64 `yaml:"admin_chat_ids"`
	} `yaml:"telegram"`

	Reminders struct {
		Enabled         bool    `yaml:"enabled"`
		IntervalMinutes int     `yaml:"interval_minutes"`
		LeadHours       int     `yaml:"lead_hours"`
		DigestHour      int     `yaml:"digest_hour"`
		MaxConcurrent   int     `yaml:"max_concurrent"`
		SendsPerSecond  float64 `yaml:"sends_per_second"`
	} `yaml:"reminders"`

	Audit struct {
		Enabled    bool   `yaml:"enabled"`
		OutputDir  string `yaml:"output_dir"`
		DayOfMonth int    `yaml:"day_of_month"`
		Hour       int    `yaml:"hour"`
	} `yaml:"audit"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	ShopsConfigPath    string `yaml:"shops_config_path"`
	ShopsReloadSeconds int    `yaml:"shops_reload_seconds"`
}

// Load reads the YAML config at path, expands ${ENV} placeholders and fills defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	if err = cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Server.Mode == "" {
		c.Server.Mode = "release"
	}
	if c.Server.ShutdownSeconds <= 0 {
		c.Server.ShutdownSeconds = 10
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/black_kingdom.db"
	}
	if c.Backup.IntervalHours <= 0 {
		c.Backup.IntervalHours = 24
	}
	if c.Backup.Path == "" {
		c.Backup.Path = "data/backups"
	}
	if c.Backup.RetentionDays <= 0 {
		c.Backup.RetentionDays = 7
	}
	if c.Cache.ShopsTTLSeconds <= 0 {
		c.Cache.ShopsTTLSeconds = 300
	}
	if c.Auth.TokenTTLHours <= 0 {
		c.Auth.TokenTTLHours = 24
	}
	if c.Auth.LoginRatePerMin <= 0 {
		c.Auth.LoginRatePerMin = 10
	}
	if c.Auth.LoginBurst <= 0 {
		c.Auth.LoginBurst = 5
	}
	if c.Auth.BcryptCost <= 0 {
		c.Auth.BcryptCost = 10
	}
	if c.Reservation.Timezone == "" {
		c.Reservation.Timezone = "Asia/Seoul"
	}
	if c.Reminders.IntervalMinutes <= 0 {
		c.Reminders.IntervalMinutes = 10
	}
	if c.Reminders.LeadHours <= 0 {
		c.Reminders.LeadHours = 3
	}
	if c.Reminders.DigestHour <= 0 {
		c.Reminders.DigestHour = 10
	}
	if c.Reminders.MaxConcurrent <= 0 {
		c.Reminders.MaxConcurrent = 4
	}
	if c.Reminders.SendsPerSecond <= 0 {
		c.Reminders.SendsPerSecond = 20
	}
	if c.Audit.OutputDir == "" {
		c.Audit.OutputDir = "data/audit"
	}
	if c.Audit.DayOfMonth <= 0 {
		c.Audit.DayOfMonth = 1
	}
	if c.Monitoring.HealthCheckPort <= 0 {
		c.Monitoring.HealthCheckPort = 8090
	}
	if c.Monitoring.PrometheusPort <= 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.ShopsConfigPath == "" {
		c.ShopsConfigPath = "configs/shops.yaml"
	}
	if c.ShopsReloadSeconds <= 0 {
		c.ShopsReloadSeconds = 30
	}
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("auth.jwt_secret must be at least 16 characters")
	}
	if _, err := time.LoadLocation(c.Reservation.Timezone); err != nil {
		return fmt.Errorf("reservation.timezone: %w", err)
	}
	if c.Reminders.DigestHour > 23 {
		return fmt.Errorf("reminders.digest_hour must be 0-23, got %d", c.Reminders.DigestHour)
	}
	if c.Audit.DayOfMonth > 28 {
		return fmt.Errorf("audit.day_of_month must be 1-28, got %d", c.Audit.DayOfMonth)
	}
	if c.Audit.Hour < 0 || c.Audit.Hour > 23 {
		return fmt.Errorf("audit.hour must be 0-23, got %d", c.Audit.Hour)
	}
	return nil
}

// Location returns the shop timezone used for "today".
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Reservation.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.Auth.TokenTTLHours) * time.Hour
}

func (c *Config) ShopsCacheTTL() time.Duration {
	return time.Duration(c.Cache.ShopsTTLSeconds) * time.Second
}

func (c *Config) ReminderLead() time.Duration {
	return time.Duration(c.Reminders.LeadHours) * time.Hour
}

func (c *Config) ShopsReloadInterval() time.Duration {
	return time.Duration(c.ShopsReloadSeconds) * time.Second
}

func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownSeconds) * time.Second
}
