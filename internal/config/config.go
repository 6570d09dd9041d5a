package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
)

// ErrInvalidConfig is returned when the configuration cannot be used
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config holds the application configuration
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Review    ReviewConfig    `yaml:"review"`
	Log       LogConfig       `yaml:"log"`
}

// DatabaseConfig selects the SQL driver
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite3 or postgres
	DSN    string `yaml:"dsn"`
}

// RedisConfig configures the known-word snapshot cache. An empty Addr disables it.
type RedisConfig struct {
	Addr       string `yaml:"addr"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	TTLMinutes int    `yaml:"ttl_minutes"`
}

// OpenAIConfig configures proper-name detection and lemmatization. An empty key disables it.
type OpenAIConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// TelegramConfig configures the bot
type TelegramConfig struct {
	Token    string  `yaml:"token"`
	AdminIDs []int64 `yaml:"admin_ids"`
}

// SchedulerConfig configures due-review reminders
type SchedulerConfig struct {
	Enabled                bool `yaml:"enabled"`
	CheckIntervalMinutes   int  `yaml:"check_interval_minutes"`
	NotificationStartHour  int  `yaml:"notification_start_hour"`
	NotificationEndHour    int  `yaml:"notification_end_hour"`
	MaxDueWordsPerReminder int  `yaml:"max_due_words_per_reminder"`
}

// ReviewConfig holds defaults for learners
type ReviewConfig struct {
	DefaultLanguage  string `yaml:"default_language"`
	DefaultLevel     string `yaml:"default_level"`
	SessionSize      int    `yaml:"session_size"`
	RecommendCount   int    `yaml:"recommend_count"`
	StreakWindowDays int    `yaml:"streak_window_days"`
}

// LogConfig selects the logger mode
type LogConfig struct {
	Mode string `yaml:"mode"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Driver: "sqlite3", DSN: "data/vocabgate.db"},
		Redis:    RedisConfig{TTLMinutes: 30},
		OpenAI:   OpenAIConfig{Model: "gpt-4o-mini"},
		Scheduler: SchedulerConfig{
			Enabled:                true,
			CheckIntervalMinutes:   60,
			NotificationStartHour:  8,
			NotificationEndHour:    22,
			MaxDueWordsPerReminder: 10,
		},
		Review: ReviewConfig{
			DefaultLanguage:  "en",
			DefaultLevel:     "A1",
			SessionSize:      10,
			RecommendCount:   10,
			StreakWindowDays: 365,
		},
		Log: LogConfig{Mode: "dev"},
	}
}

// Load reads .env (if present), the YAML file at path (if non-empty) and environment
// overrides, then validates the result
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Database.Driver, "VOCABGATE_DB_DRIVER")
	setString(&c.Database.DSN, "VOCABGATE_DB_DSN")
	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Redis.Password, "REDIS_PASSWORD")
	setString(&c.OpenAI.APIKey, "OPENAI_API_KEY")
	setString(&c.Telegram.Token, "TELEGRAM_BOT_TOKEN")
	setString(&c.Log.Mode, "LOG_MODE")
	setHour(&c.Scheduler.NotificationStartHour, "NOTIFICATION_START_HOUR")
	setHour(&c.Scheduler.NotificationEndHour, "NOTIFICATION_END_HOUR")

	if v := strings.TrimSpace(os.Getenv("ENABLE_SCHEDULER")); v != "" {
		c.Scheduler.Enabled = v != "false"
	}
	if ids := os.Getenv("ADMIN_USER_IDS"); ids != "" {
		c.Telegram.AdminIDs = nil
		for _, s := range strings.Split(ids, ",") {
			if id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
				c.Telegram.AdminIDs = append(c.Telegram.AdminIDs, id)
			}
		}
	}
}

func setString(dst *string, name string) {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		*dst = v
	}
}

func setHour(dst *int, name string) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return
	}
	if h, err := strconv.Atoi(v); err == nil && h >= 0 && h <= 23 {
		*dst = h
	}
}

// Validate fills defaults and rejects unusable settings
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "":
		c.Database.Driver = "sqlite3"
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("%w: unsupported database driver %q", ErrInvalidConfig, c.Database.Driver)
	}
	if c.Database.DSN == "" {
		if c.Database.Driver == "postgres" {
			return fmt.Errorf("%w: postgres requires a dsn", ErrInvalidConfig)
		}
		c.Database.DSN = "data/vocabgate.db"
	}

	if c.Redis.TTLMinutes <= 0 {
		c.Redis.TTLMinutes = 30
	}
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = "gpt-4o-mini"
	}
	if c.Scheduler.CheckIntervalMinutes <= 0 {
		c.Scheduler.CheckIntervalMinutes = 60
	}
	if c.Scheduler.MaxDueWordsPerReminder <= 0 {
		c.Scheduler.MaxDueWordsPerReminder = 10
	}
	if c.Scheduler.NotificationStartHour < 0 || c.Scheduler.NotificationStartHour > 23 ||
		c.Scheduler.NotificationEndHour < 0 || c.Scheduler.NotificationEndHour > 23 {
		return fmt.Errorf("%w: notification hours must be within 0-23", ErrInvalidConfig)
	}
	if c.Scheduler.NotificationStartHour > c.Scheduler.NotificationEndHour {
		return fmt.Errorf("%w: notification start hour after end hour", ErrInvalidConfig)
	}

	if c.Review.DefaultLanguage == "" {
		c.Review.DefaultLanguage = "en"
	}
	if c.Review.DefaultLevel == "" {
		c.Review.DefaultLevel = "A1"
	}
	if c.Review.SessionSize <= 0 {
		c.Review.SessionSize = 10
	}
	if c.Review.RecommendCount <= 0 {
		c.Review.RecommendCount = 10
	}
	if c.Review.StreakWindowDays <= 0 {
		c.Review.StreakWindowDays = 365
	}
	if c.Log.Mode == "" {
		c.Log.Mode = "dev"
	}
	return nil
}

// CheckInterval returns how often due reviews are checked
func (s SchedulerConfig) CheckInterval() time.Duration {
	return time.Duration(s.CheckIntervalMinutes) * time.Minute
}

// TTL returns how long a known-word snapshot stays cached
func (r RedisConfig) TTL() time.Duration {
	return time.Duration(r.TTLMinutes) * time.Minute
}

// StreakWindow returns how far back study sessions count towards a streak
func (r ReviewConfig) StreakWindow() time.Duration {
	return time.Duration(r.StreakWindowDays) * 24 * time.Hour
}
