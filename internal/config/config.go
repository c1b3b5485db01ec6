package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Analytics store backends.
const (
	AnalyticsLocal    = "local"
	AnalyticsPostgres = "postgres"
)

// Progress store backends.
const (
	ProgressFile     = "file"
	ProgressRedis    = "redis"
	ProgressPostgres = "postgres"
)

// Config holds application configuration
type Config struct {
	DatabaseURL    string
	RedisURL       string
	Port           string
	DataDir        string
	SecureCookies  bool
	TrustedOrigins []string

	AnalyticsStore string
	ProgressStore  string

	GoalsMode        string
	LevelMode        string
	AutoAdvanceDelay time.Duration

	AdminPasswordHash string
	AdminJWTSecret    string
}

// Overrides carries command flag values; empty fields are ignored.
type Overrides struct {
	DatabaseURL    string
	Port           string
	DataDir        string
	AnalyticsStore string
	ProgressStore  string
}

// Load loads configuration from multiple sources with priority:
// 1. Command flags (see LoadWithOverrides)
// 2. Config file (./studybuddy.toml or $XDG_CONFIG_HOME/studybuddy/studybuddy.toml)
// 3. Environment variables
func Load() (*Config, error) {
	return LoadWithOverrides(Overrides{})
}

// LoadWithOverrides loads config and applies flag overrides
func LoadWithOverrides(o Overrides) (*Config, error) {
	v := newBaseViper()
	_ = v.ReadInConfig()
	cfg := buildConfig(v, o)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newBaseViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName("studybuddy")
	v.SetConfigType("toml")
	v.AddConfigPath(".")

	// XDG lookup is done by hand so tests can point XDG_CONFIG_HOME at a temp dir.
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		if home, err := os.UserHomeDir(); err == nil {
			configHome = filepath.Join(home, ".config")
		}
	}
	if configHome != "" {
		v.AddConfigPath(filepath.Join(configHome, "studybuddy"))
	}

	return v
}

func buildConfig(v *viper.Viper, o Overrides) *Config {
	cfg := &Config{
		Port:             "3000",
		DataDir:          "./data",
		SecureCookies:    true,
		TrustedOrigins:   []string{"localhost"},
		AnalyticsStore:   AnalyticsLocal,
		ProgressStore:    ProgressFile,
		GoalsMode:        "multiple",
		LevelMode:        "goal",
		AutoAdvanceDelay: 400 * time.Millisecond,
	}

	str := func(key, env string, dst *string) {
		if v.IsSet(key) {
			*dst = v.GetString(key)
			return
		}
		if val := os.Getenv(env); val != "" {
			*dst = val
		}
	}

	str("database_url", "DATABASE_URL", &cfg.DatabaseURL)
	str("redis_url", "REDIS_URL", &cfg.RedisURL)
	str("port", "PORT", &cfg.Port)
	str("data_dir", "DATA_DIR", &cfg.DataDir)
	str("analytics.store", "STUDYBUDDY_ANALYTICS_STORE", &cfg.AnalyticsStore)
	str("progress.store", "STUDYBUDDY_PROGRESS_STORE", &cfg.ProgressStore)
	str("wizard.goals_mode", "STUDYBUDDY_GOALS_MODE", &cfg.GoalsMode)
	str("wizard.level_mode", "STUDYBUDDY_LEVEL_MODE", &cfg.LevelMode)
	str("admin.password_hash", "STUDYBUDDY_ADMIN_PASSWORD_HASH", &cfg.AdminPasswordHash)
	str("admin.jwt_secret", "STUDYBUDDY_ADMIN_JWT_SECRET", &cfg.AdminJWTSecret)

	if v.IsSet("wizard.auto_advance_delay") {
		cfg.AutoAdvanceDelay = v.GetDuration("wizard.auto_advance_delay")
	} else if env := os.Getenv("STUDYBUDDY_AUTO_ADVANCE_DELAY"); env != "" {
		if d, err := time.ParseDuration(env); err == nil {
			cfg.AutoAdvanceDelay = d
		}
	}

	if v.IsSet("trusted_origins") {
		cfg.TrustedOrigins = parseTrustedOrigins(v.GetString("trusted_origins"))
	} else if envOrigins := os.Getenv("TRUSTED_ORIGINS"); envOrigins != "" {
		cfg.TrustedOrigins = parseTrustedOrigins(envOrigins)
	}

	if v.IsSet("secure_cookies") {
		cfg.SecureCookies = v.GetBool("secure_cookies")
	} else if envSecure := os.Getenv("SECURE_COOKIES"); envSecure != "" {
		cfg.SecureCookies = envSecure == "true"
	}

	// Apply overrides (flags) last
	if o.DatabaseURL != "" {
		cfg.DatabaseURL = o.DatabaseURL
	}
	if o.Port != "" {
		cfg.Port = o.Port
	}
	if o.DataDir != "" {
		cfg.DataDir = o.DataDir
	}
	if o.AnalyticsStore != "" {
		cfg.AnalyticsStore = o.AnalyticsStore
	}
	if o.ProgressStore != "" {
		cfg.ProgressStore = o.ProgressStore
	}

	cfg.AnalyticsStore = strings.ToLower(strings.TrimSpace(cfg.AnalyticsStore))
	cfg.ProgressStore = strings.ToLower(strings.TrimSpace(cfg.ProgressStore))
	cfg.GoalsMode = strings.ToLower(strings.TrimSpace(cfg.GoalsMode))
	cfg.LevelMode = strings.ToLower(strings.TrimSpace(cfg.LevelMode))

	return cfg
}

// Validate reports configuration combinations the server cannot start with.
func (c *Config) Validate() error {
	switch c.AnalyticsStore {
	case AnalyticsLocal, AnalyticsPostgres:
	default:
		return fmt.Errorf("unknown analytics store %q (want local or postgres)", c.AnalyticsStore)
	}
	switch c.ProgressStore {
	case ProgressFile, ProgressRedis, ProgressPostgres:
	default:
		return fmt.Errorf("unknown progress store %q (want file, redis or postgres)", c.ProgressStore)
	}
	switch c.GoalsMode {
	case "single", "multiple":
	default:
		return fmt.Errorf("unknown goals mode %q (want single or multiple)", c.GoalsMode)
	}
	switch c.LevelMode {
	case "goal", "self_assessment":
	default:
		return fmt.Errorf("unknown level mode %q (want goal or self_assessment)", c.LevelMode)
	}
	if c.NeedsDatabase() && c.DatabaseURL == "" {
		return fmt.Errorf("database_url is required for the postgres store")
	}
	if c.ProgressStore == ProgressRedis && c.RedisURL == "" {
		return fmt.Errorf("redis_url is required for the redis progress store")
	}
	if c.AutoAdvanceDelay < 0 {
		return fmt.Errorf("auto_advance_delay must not be negative")
	}
	if c.AdminPasswordHash != "" && len(c.AdminJWTSecret) < MinAdminJWTSecret {
		return fmt.Errorf("admin.jwt_secret must be at least %d characters when admin.password_hash is set", MinAdminJWTSecret)
	}
	return nil
}

// MinAdminJWTSecret is the shortest accepted admin signing secret.
const MinAdminJWTSecret = 32

// NeedsDatabase reports whether any configured store lives in PostgreSQL.
func (c *Config) NeedsDatabase() bool {
	return c.AnalyticsStore == AnalyticsPostgres || c.ProgressStore == ProgressPostgres
}

// parseTrustedOrigins parses a comma-separated string into a slice of trimmed, lowercased origins
func parseTrustedOrigins(originsStr string) []string {
	if originsStr == "" {
		return []string{}
	}

	parts := strings.Split(originsStr, ",")
	origins := make([]string, 0, len(parts))

	for _, part := range parts {
		origin, err := SanitizeTrustedDomain(part)
		if err != nil {
			continue
		}
		origins = append(origins, origin)
	}

	return origins
}
