package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// ErrMissingSecret is returned when the selected email provider has no credentials.
var ErrMissingSecret = errors.New("missing required secret")

// Email provider names
const (
	ProviderSendGrid = "sendgrid"
	ProviderResend   = "resend"
	ProviderGmail    = "gmail"
	ProviderLog      = "log"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Trigger  TriggerConfig  `mapstructure:"trigger"`
	Email    EmailConfig    `mapstructure:"email"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Database DatabaseConfig `mapstructure:"database"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port" validate:"min=1,max=65535"`
}

// Addr returns the listen address
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format" validate:"oneof=json text console gcp"`
}

// TriggerConfig controls how document events are admitted and acknowledged.
type TriggerConfig struct {
	// Collection is the document collection whose updates are processed.
	Collection string `mapstructure:"collection" validate:"required"`
	// MaxInstances caps the number of events handled at the same time.
	MaxInstances int `mapstructure:"max_instances" validate:"min=1"`
	// RetryOnFailure answers 500 on a failed delivery so the platform redelivers.
	RetryOnFailure bool `mapstructure:"retry_on_failure"`
	// VerifyOIDC requires a Google-signed bearer token on event pushes.
	VerifyOIDC bool `mapstructure:"verify_oidc"`
	// Audience is the expected OIDC audience, usually the service URL.
	Audience string `mapstructure:"audience" validate:"required_if=VerifyOIDC true"`
}

// EmailConfig holds email sending configuration
type EmailConfig struct {
	// Provider is the email provider to use: "sendgrid", "resend", "gmail" or "log"
	Provider string `mapstructure:"provider" validate:"oneof=sendgrid resend gmail log"`
	// AppName is shown in the sign-off of every email
	AppName string `mapstructure:"app_name" validate:"required"`
	// BaseURL is the public app origin used to build view links
	BaseURL string `mapstructure:"base_url" validate:"required,url"`
	// SenderAddress is the "From" email address
	SenderAddress string `mapstructure:"sender_address" validate:"required,email"`
	// SenderName is the display name for the sender
	SenderName string `mapstructure:"sender_name"`

	SendGrid SendGridConfig   `mapstructure:"sendgrid"`
	Resend   ResendConfig     `mapstructure:"resend"`
	Gmail    GmailEmailConfig `mapstructure:"gmail"`
}

// SendGridConfig holds SendGrid API configuration
type SendGridConfig struct {
	APIKey string `mapstructure:"api_key"`
	// Host overrides the API host, e.g. "https://api.eu.sendgrid.com"
	Host string `mapstructure:"host"`
}

// ResendConfig holds Resend API configuration
type ResendConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// GmailEmailConfig holds Gmail API configuration
type GmailEmailConfig struct {
	// CredentialsJSON is the service account credentials JSON content
	CredentialsJSON string `mapstructure:"credentials_json"`
	// ClientID for OAuth2 token-based auth (alternative to service account)
	ClientID string `mapstructure:"client_id"`
	// ClientSecret for OAuth2 token-based auth
	ClientSecret string `mapstructure:"client_secret"`
	// RefreshToken for OAuth2 token-based auth
	RefreshToken string `mapstructure:"refresh_token"`
}

// LedgerConfig controls duplicate-send suppression
type LedgerConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl" validate:"required_if=Enabled true"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig holds PostgreSQL configuration for the delivery log
type DatabaseConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Name           string `mapstructure:"name"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	SSLMode        string `mapstructure:"ssl_mode"`
	MaxConnections int    `mapstructure:"max_connections"`
}

// DSN returns the PostgreSQL connection string
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Load reads configuration from file and environment variables
func Load() (*Config, error) {
	return load(viper.New())
}

// LoadFile reads configuration from an explicit file plus environment variables
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	if v.ConfigFileUsed() == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/certnotify")
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("CERTNOTIFY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks field constraints. Provider secrets are checked separately by
// ValidateProvider so tools that never send mail can load the same config.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// ValidateProvider checks that the selected email provider has credentials.
func (c *Config) ValidateProvider() error {
	switch c.Email.Provider {
	case ProviderSendGrid:
		if c.Email.SendGrid.APIKey == "" {
			return fmt.Errorf("%w: email.sendgrid.api_key", ErrMissingSecret)
		}
	case ProviderResend:
		if c.Email.Resend.APIKey == "" {
			return fmt.Errorf("%w: email.resend.api_key", ErrMissingSecret)
		}
	case ProviderGmail:
		g := c.Email.Gmail
		hasToken := g.ClientID != "" && g.ClientSecret != "" && g.RefreshToken != ""
		if g.CredentialsJSON == "" && !hasToken {
			return fmt.Errorf("%w: email.gmail.credentials_json or client_id/client_secret/refresh_token", ErrMissingSecret)
		}
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Trigger defaults
	v.SetDefault("trigger.collection", "certificates")
	v.SetDefault("trigger.max_instances", 10)
	v.SetDefault("trigger.retry_on_failure", false)
	v.SetDefault("trigger.verify_oidc", false)
	v.SetDefault("trigger.audience", "")

	// Email defaults
	v.SetDefault("email.provider", ProviderSendGrid)
	v.SetDefault("email.app_name", "Certify App")
	v.SetDefault("email.base_url", "https://certifyapp.com")
	v.SetDefault("email.sender_address", "noreply@certifyapp.com")
	v.SetDefault("email.sender_name", "Certify App")
	v.SetDefault("email.sendgrid.api_key", "")
	v.SetDefault("email.sendgrid.host", "")
	v.SetDefault("email.resend.api_key", "")
	v.SetDefault("email.gmail.credentials_json", "")
	v.SetDefault("email.gmail.client_id", "")
	v.SetDefault("email.gmail.client_secret", "")
	v.SetDefault("email.gmail.refresh_token", "")

	// Ledger defaults
	v.SetDefault("ledger.enabled", false)
	v.SetDefault("ledger.ttl", "24h")

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// Database defaults
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "certnotify")
	v.SetDefault("database.user", "certnotify")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 10)
}
