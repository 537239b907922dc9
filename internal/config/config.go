package config

import (
	"errors"
	"fmt"
	"os"

	"balemuya/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	API        APIConfig        `yaml:"api"`
	Dashboard  DashboardConfig  `yaml:"dashboard"`
	Frontend   FrontendConfig   `yaml:"frontend"`
	Services   []models.Service `yaml:"services"`
	Exports    ExportConfig     `yaml:"exports"`
	Google     GoogleConfig     `yaml:"google"`
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	HTTP      APIHTTPConfig      `yaml:"http"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type DashboardConfig struct {
	CacheTTL int `yaml:"cache_ttl"`
	TopLimit int `yaml:"top_limit"`
}

type FrontendConfig struct {
	BaseURL string `yaml:"base_url"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	Debug    bool   `yaml:"debug"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type GoogleConfig struct {
	Enabled               bool   `yaml:"enabled"`
	GoogleCredentialsFile string `yaml:"credentials_file"`
	LedgerSpreadSheetID   string `yaml:"ledger_spreadsheet_id"`
}

func Load(configPath string) (*Config, error) {
	// Загружаем .env файл если существует
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Предварительная замена переменных окружения в YAML
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
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if c.Google.Enabled {
		if c.Google.GoogleCredentialsFile == "" {
			return errors.New("google credentials file is required when sheets sync is enabled")
		}
		if c.Google.LedgerSpreadSheetID == "" {
			return errors.New("ledger spreadsheet id is required when sheets sync is enabled")
		}
	}

	return ValidateServices(c.Services)
}

func ValidateServices(services []models.Service) error {
	// Check for duplicate service IDs
	serviceIDs := make(map[int64]bool)
	for _, svc := range services {
		if svc.ID == 0 {
			return fmt.Errorf("service '%s' has invalid ID 0", svc.Title)
		}
		if serviceIDs[svc.ID] {
			return fmt.Errorf("duplicate service ID found: %d", svc.ID)
		}
		if svc.Price.IsNegative() {
			return fmt.Errorf("service '%s' has negative price", svc.Title)
		}
		serviceIDs[svc.ID] = true
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	// auth enabled by default when API is enabled
	if !c.API.Auth.Enabled {
		c.API.Auth.Enabled = true
	}
	if !c.API.HTTP.Enabled && c.API.Enabled {
		c.API.HTTP.Enabled = true
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.API.RateLimit.RPS == 0 {
		c.API.RateLimit.RPS = float64(models.RateLimitRequests) / float64(models.RateLimitWindow)
	}
	if c.API.RateLimit.Burst == 0 {
		c.API.RateLimit.Burst = models.RateLimitRequests
	}

	// Dashboard defaults
	if c.Dashboard.CacheTTL == 0 {
		c.Dashboard.CacheTTL = models.DashboardCacheTTL
	}
	if c.Dashboard.TopLimit == 0 {
		c.Dashboard.TopLimit = models.DefaultTopLimit
	}

	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}
}
