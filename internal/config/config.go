package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-sql-driver/mysql"
	"github.com/kelseyhightower/envconfig"
	"github.com/msgpilot/backend/internal/gateway/paypro"
	pkglogger "github.com/msgpilot/backend/pkg/logger"
	"gopkg.in/yaml.v3"
)

// Config is the process configuration. It is built once by Load and passed
// down explicitly; nothing else reads the environment.
type Config struct {
	Environment string `yaml:"environment" envconfig:"APP_ENV"`

	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Database DatabaseConfig `yaml:"database" envconfig:"DB"`
	Redis    RedisConfig    `yaml:"redis" envconfig:"REDIS"`
	JWT      JWTConfig      `yaml:"jwt" envconfig:"JWT"`
	CORS     CORSConfig     `yaml:"cors" envconfig:"CORS"`
	Storage  StorageConfig  `yaml:"storage" envconfig:"STORAGE"`
	PayPro   PayProConfig   `yaml:"paypro" envconfig:"PAYPRO"`
	Billing  BillingConfig  `yaml:"billing" envconfig:"BILLING"`
}

// ServerConfig HTTP server settings
type ServerConfig struct {
	Port            int           `yaml:"port" validate:"required,min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" split_words:"true"`
	WriteTimeout    time.Duration `yaml:"write_timeout" split_words:"true"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" split_words:"true"`
	TrustedProxies  []string      `yaml:"trusted_proxies" split_words:"true"`
}

// DatabaseConfig MySQL settings
type DatabaseConfig struct {
	Host            string        `yaml:"host" validate:"required"`
	Port            int           `yaml:"port" validate:"required"`
	User            string        `yaml:"user" validate:"required"`
	Password        string        `yaml:"password"`
	Name            string        `yaml:"name" validate:"required"`
	MaxIdleConns    int           `yaml:"max_idle_conns" split_words:"true"`
	MaxOpenConns    int           `yaml:"max_open_conns" split_words:"true"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" split_words:"true"`
}

// RedisConfig Redis settings. An empty host disables Redis.
type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size" split_words:"true"`
}

// JWTConfig dashboard access token settings
type JWTConfig struct {
	Secret    string `yaml:"secret" validate:"required,min=16"`
	ExpiresIn int    `yaml:"expires_in" split_words:"true" validate:"min=60"` // seconds
}

// CORSConfig allowed dashboard origins, comma separated
type CORSConfig struct {
	AllowOrigins string `yaml:"allow_origins" split_words:"true"`
}

// StorageConfig S3-compatible archive of raw IPN payloads
type StorageConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id" split_words:"true"`
	SecretAccessKey string `yaml:"secret_access_key" split_words:"true"`
	Bucket          string `yaml:"bucket" validate:"required_if=Enabled true"`
	BasePath        string `yaml:"base_path" split_words:"true"`
	ForcePathStyle  bool   `yaml:"force_path_style" split_words:"true"`
}

// PayProConfig processor credentials and product mappings. Outside test
// mode every credential is required.
type PayProConfig struct {
	TestMode        bool              `yaml:"test_mode" split_words:"true"`
	VendorAccountID int64             `yaml:"vendor_account_id" split_words:"true" validate:"required_unless=TestMode true"`
	APISecretKey    string            `yaml:"api_secret_key" split_words:"true" validate:"required_unless=TestMode true"`
	IPNSecretKey    string            `yaml:"ipn_secret_key" split_words:"true" validate:"required_unless=TestMode true"`
	ValidationKey   string            `yaml:"validation_key" split_words:"true" validate:"required_unless=TestMode true"`
	PlanProducts    map[string]string `yaml:"plan_products" split_words:"true"` // pro_monthly:12345,pro_yearly:12346
	PackProducts    map[string]string `yaml:"pack_products" split_words:"true"`
	AppURL          string            `yaml:"app_url" split_words:"true" validate:"required,url"`
	CheckoutBaseURL string            `yaml:"checkout_base_url" split_words:"true" validate:"omitempty,url"`
	APIBaseURL      string            `yaml:"api_base_url" split_words:"true" validate:"omitempty,url"`
	AllowedIPs      []string          `yaml:"allowed_ips" split_words:"true" validate:"dive,ip"`
	Timeout         time.Duration     `yaml:"timeout"`
}

// BillingConfig background jobs and internal callers
type BillingConfig struct {
	ExpireInterval time.Duration `yaml:"expire_interval" split_words:"true"`
	InternalAPIKey string        `yaml:"internal_api_key" split_words:"true" validate:"required,min=16"`
}

// Load reads the YAML file at path, applies environment overrides and
// validates the result.
func Load(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Environment: "local",
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Port:            3306,
			MaxIdleConns:    10,
			MaxOpenConns:    50,
			ConnMaxLifetime: time.Hour,
		},
		Redis: RedisConfig{
			Port:     6379,
			PoolSize: 10,
		},
		JWT: JWTConfig{
			ExpiresIn: 3600,
		},
		Storage: StorageConfig{
			Region:   "us-east-1",
			BasePath: "billing",
		},
		PayPro: PayProConfig{
			Timeout: paypro.DefaultTimeout,
		},
		Billing: BillingConfig{
			ExpireInterval: 10 * time.Minute,
		},
	}
}

// Validate checks struct tags and cross-field rules
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.IsProduction() && c.PayPro.TestMode {
		return fmt.Errorf("invalid config: paypro.test_mode must be false in production")
	}
	return nil
}

// IsDevelopment reports whether the process runs locally
func (c *Config) IsDevelopment() bool {
	switch c.Environment {
	case "local", "dev", "development":
		return true
	}
	return false
}

// IsProduction reports whether the process runs in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// GetDSN returns the MySQL DSN
func (d DatabaseConfig) GetDSN() string {
	mc := mysql.NewConfig()
	mc.User = d.User
	mc.Passwd = d.Password
	mc.Net = "tcp"
	mc.Addr = fmt.Sprintf("%s:%d", d.Host, d.Port)
	mc.DBName = d.Name
	mc.ParseTime = true
	mc.Loc = time.UTC
	mc.Params = map[string]string{"charset": "utf8mb4"}
	return mc.FormatDSN()
}

// Addr returns host:port, or "" when Redis is not configured
func (r RedisConfig) Addr() string {
	if r.Host == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// Gateway converts the PayPro section into the adapter configuration
func (p PayProConfig) Gateway() paypro.Config {
	return paypro.Config{
		VendorAccountID: p.VendorAccountID,
		APISecretKey:    p.APISecretKey,
		IPNSecretKey:    p.IPNSecretKey,
		ValidationKey:   p.ValidationKey,
		TestMode:        p.TestMode,
		PlanProducts:    p.PlanProducts,
		PackProducts:    p.PackProducts,
		AppURL:          p.AppURL,
		CheckoutBaseURL: p.CheckoutBaseURL,
		APIBaseURL:      p.APIBaseURL,
		AllowedIPs:      p.AllowedIPs,
		Timeout:         p.Timeout,
	}
}

// LogResolved logs the effective configuration without secrets
func LogResolved(c *Config) {
	log := pkglogger.GetLogger()
	log.Info().
		Str("environment", c.Environment).
		Int("port", c.Server.Port).
		Str("db", fmt.Sprintf("%s@%s:%d/%s", c.Database.User, c.Database.Host, c.Database.Port, c.Database.Name)).
		Str("redis", c.Redis.Addr()).
		Bool("storage", c.Storage.Enabled).
		Bool("paypro_test_mode", c.PayPro.TestMode).
		Int64("paypro_vendor", c.PayPro.VendorAccountID).
		Str("plan_products", joinKeys(c.PayPro.PlanProducts)).
		Str("pack_products", joinKeys(c.PayPro.PackProducts)).
		Dur("expire_interval", c.Billing.ExpireInterval).
		Msg("configuration resolved")
}

func joinKeys(m map[string]string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ",")
}
