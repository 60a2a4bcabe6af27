package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"autobook/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App         AppConfig         `yaml:"app"`
	Globish     GlobishConfig     `yaml:"globish"`
	Credentials CredentialsConfig `yaml:"credentials"`
	Storage     StorageConfig     `yaml:"storage"`
	Redis       RedisConfig       `yaml:"redis"`
	Database    DatabaseConfig    `yaml:"database"`
	Policy      PolicyConfig      `yaml:"policy"`
	Notify      NotifyConfig      `yaml:"notify"`
	Monitoring  MonitoringConfig  `yaml:"monitoring"`
	Logging     LoggingConfig     `yaml:"logging"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

// GlobishConfig describes the remote scheduling platform.
type GlobishConfig struct {
	BaseURL      string            `yaml:"base_url"`
	CatalogPath  string            `yaml:"catalog_path"`
	BookingPath  string            `yaml:"booking_path"`
	LoginPath    string            `yaml:"login_path"`
	Language     string            `yaml:"language"`
	Categories   []models.Category `yaml:"categories"`
	ProbeOn      string            `yaml:"probe_category"`
	RequestDelay time.Duration     `yaml:"request_delay"`
	Timeout      time.Duration     `yaml:"timeout"`
	UserAgent    string            `yaml:"user_agent"`
	Origin       string            `yaml:"origin"`
	RateLimit    RateLimitConfig   `yaml:"rate_limit"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type CredentialsConfig struct {
	Token    string `yaml:"token"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	// EnvFile receives the refreshed token; empty keeps it in memory only.
	EnvFile  string `yaml:"env_file"`
	TokenKey string `yaml:"token_key"`
}

type StorageConfig struct {
	Driver     string `yaml:"driver"`
	IgnorePath string `yaml:"ignore_path"`
	CrashPath  string `yaml:"crash_path"`
	LockPath   string `yaml:"lock_path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type DatabaseConfig struct {
	// Path of the sqlite history database; empty disables history.
	Path          string `yaml:"path"`
	BackupDir     string `yaml:"backup_dir"`
	RetentionDays int    `yaml:"backup_retention_days"`
	// HistoryDays bounds the attempts table; older rows are pruned after each
	// run. Negative keeps every row.
	HistoryDays int `yaml:"history_retention_days"`
}

type PolicyConfig struct {
	// CrashOnTransportError also trips the crash flag for non-auth failures.
	CrashOnTransportError bool `yaml:"crash_on_transport_error"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Slack    SlackConfig    `yaml:"slack"`
	Retries  int            `yaml:"retries"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   int64  `yaml:"chat_id"`
}

type SlackConfig struct {
	Token   string `yaml:"token"`
	Channel string `yaml:"channel"`
	APIURL  string `yaml:"api_url"`
}

type MonitoringConfig struct {
	MetricsTextfile string `yaml:"metrics_textfile"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional, the token may come from the real environment
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if _, err := url.ParseRequestURI(c.Globish.BaseURL); err != nil {
		return fmt.Errorf("globish.base_url is invalid: %w", err)
	}

	if c.Credentials.Token == "" && (c.Credentials.Username == "" || c.Credentials.Password == "") {
		return errors.New("credentials.token or credentials.username/password is required")
	}

	if err := ValidateCategories(c.Globish.Categories); err != nil {
		return err
	}

	if c.Globish.RequestDelay < 0 {
		return errors.New("globish.request_delay must not be negative")
	}

	switch c.Storage.Driver {
	case models.StorageDriverFile, models.StorageDriverMemory:
	case models.StorageDriverRedis:
		if c.Redis.Address == "" {
			return errors.New("storage.driver=redis requires redis.address")
		}
	case models.StorageDriverSQLite:
		if c.Database.Path == "" {
			return errors.New("storage.driver=sqlite requires database.path")
		}
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}

	if c.Notify.Telegram.BotToken != "" && c.Notify.Telegram.ChatID == 0 {
		return errors.New("notify.telegram.chat_id is required with a bot token")
	}
	if c.Notify.Slack.Token != "" && c.Notify.Slack.Channel == "" {
		return errors.New("notify.slack.channel is required with a slack token")
	}

	return nil
}

// ValidateCategories checks that category names are present and unique.
func ValidateCategories(categories []models.Category) error {
	if len(categories) == 0 {
		return errors.New("at least one globish.categories entry is required")
	}
	seen := make(map[string]bool)
	for _, cat := range categories {
		name := strings.TrimSpace(cat.Name)
		if name == "" {
			return errors.New("category with empty name")
		}
		if cat.Type == "" {
			return fmt.Errorf("category %q has no type", name)
		}
		if seen[name] {
			return fmt.Errorf("duplicate category name: %s", name)
		}
		seen[name] = true
	}
	return nil
}

// Category looks a configured category up by name.
func (c *Config) Category(name string) (models.Category, bool) {
	for _, cat := range c.Globish.Categories {
		if cat.Name == name {
			return cat, true
		}
	}
	return models.Category{}, false
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "autobook"
	}
	if c.Globish.BaseURL == "" {
		c.Globish.BaseURL = "https://api-student.globish.co.th"
	}
	if c.Globish.CatalogPath == "" {
		c.Globish.CatalogPath = "/Student/Booking/GroupClass"
	}
	if c.Globish.BookingPath == "" {
		c.Globish.BookingPath = "/Student/Booking/GroupClass"
	}
	if c.Globish.LoginPath == "" {
		c.Globish.LoginPath = "/Student/Auth/Login"
	}
	if c.Globish.Language == "" {
		c.Globish.Language = models.DefaultLanguage
	}
	if len(c.Globish.Categories) == 0 {
		c.Globish.Categories = []models.Category{
			{Name: "workshop", Type: "workshop", Campaign: "workshop"},
			{Name: "masterclass", Type: "master-class", Campaign: "master-class"},
		}
	}
	for i := range c.Globish.Categories {
		if c.Globish.Categories[i].Type == "" {
			c.Globish.Categories[i].Type = c.Globish.Categories[i].Name
		}
		if c.Globish.Categories[i].Campaign == "" {
			c.Globish.Categories[i].Campaign = c.Globish.Categories[i].Type
		}
	}
	if c.Globish.ProbeOn == "" && len(c.Globish.Categories) > 0 {
		c.Globish.ProbeOn = c.Globish.Categories[0].Name
	}
	if c.Globish.RequestDelay == 0 {
		c.Globish.RequestDelay = models.DefaultRequestDelay * time.Second
	}
	if c.Globish.Timeout == 0 {
		c.Globish.Timeout = models.DefaultHTTPTimeout * time.Second
	}
	if c.Globish.Origin == "" {
		c.Globish.Origin = "https://app.globish.co.th"
	}
	if c.Globish.UserAgent == "" {
		c.Globish.UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
	}
	if c.Globish.RateLimit.RPS == 0 {
		c.Globish.RateLimit.RPS = 1
	}
	if c.Globish.RateLimit.Burst == 0 {
		c.Globish.RateLimit.Burst = 1
	}

	if c.Credentials.TokenKey == "" {
		c.Credentials.TokenKey = models.DefaultTokenKey
	}

	if c.Storage.Driver == "" {
		c.Storage.Driver = models.StorageDriverFile
	}
	if c.Storage.IgnorePath == "" {
		c.Storage.IgnorePath = "ignored_ids.txt"
	}
	if c.Storage.CrashPath == "" {
		c.Storage.CrashPath = "crash.flag"
	}
	if c.Storage.LockPath == "" {
		c.Storage.LockPath = c.Storage.CrashPath + ".lock"
	}

	if c.Database.HistoryDays == 0 {
		c.Database.HistoryDays = models.DefaultHistoryDays
	}

	if c.Redis.PoolSize == 0 {
		c.Redis.PoolSize = 4
	}

	if c.Notify.Retries == 0 {
		c.Notify.Retries = 3
	}
	if c.Notify.Slack.APIURL == "" {
		c.Notify.Slack.APIURL = "https://slack.com/api/chat.postMessage"
	}
}
