package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mcsmartbytes/job-sense/internal/secrets"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// DefaultJWTSecret is only acceptable outside production.
const DefaultJWTSecret = "job-sense-development-secret"

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	Email     EmailConfig
	Storage   StorageConfig
	Workspace WorkspaceConfig
	Secrets   SecretsConfig
	Logging   LoggingConfig
	Server    ServerConfig
	CORS      CORSConfig
	Security  SecurityConfig
	RateLimit RateLimitConfig
	Jobs      JobsConfig
}

type AppConfig struct {
	Name        string
	Environment string
	Port        int
	// BaseURL is the public URL of the web client, used in verification and reset links
	BaseURL string
}

type DatabaseConfig struct {
	Host            string
	Port            int
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
	AutoMigrate     bool
}

// AuthConfig controls session tokens and single-use email tokens
type AuthConfig struct {
	JWTSecret string
	JWTIssuer string
	// AccessTokenTTL is the lifetime of an issued session token (minutes)
	AccessTokenTTL int
	// VerificationTTL is the lifetime of an email verification token (hours)
	VerificationTTL int
	// ResetTTL is the lifetime of a password reset token (minutes)
	ResetTTL int
}

type EmailConfig struct {
	// Provider is "sendgrid" or "log"
	Provider       string
	SendGridAPIKey string
	FromAddress    string
	FromName       string
	Sandbox        bool
}

type StorageConfig struct {
	// Mode is "local", "azure" or "redis"
	Mode                  string
	LocalBasePath         string
	CloudConnectionString string
	CloudContainer        string
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	RedisKeyPrefix        string
}

// WorkspaceConfig controls the per-user pipeline and tracker stores
type WorkspaceConfig struct {
	// IdleTTL evicts a loaded workspace after this many minutes without access
	IdleTTL int
}

type SecretsConfig struct {
	// Source determines where secrets are loaded from: "environment" or "vault"
	Source       string
	KeyVaultName string
	CacheEnabled bool
	CacheTTL     int // seconds
}

type LoggingConfig struct {
	Level  string
	Format string
}

type ServerConfig struct {
	ReadTimeout   int
	WriteTimeout  int
	IdleTimeout   int
	EnableSwagger bool
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	// AllowedOrigins is a list of allowed origins for CORS requests
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	// MaxAge is the max age (in seconds) for preflight cache
	MaxAge int
}

// SecurityConfig holds security header configuration
type SecurityConfig struct {
	EnableHSTS            bool
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool
	ContentSecurityPolicy string
	FrameOptions          string
	ContentTypeNosniff    bool
	ReferrerPolicy        string
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled bool
	// RequestsPerMinute is the default rate limit for unauthenticated requests (per IP)
	RequestsPerMinute int
	// RequestsPerMinuteAuth is the rate limit for authenticated requests (per user)
	RequestsPerMinuteAuth int
	// RequestsPerMinuteLogin applies to the credential endpoints under /auth
	RequestsPerMinuteLogin int
	WhitelistIPs           []string
	WhitelistPaths         []string
}

// JobsConfig holds the cron expressions of the maintenance jobs
type JobsConfig struct {
	Enabled            bool
	TokenCleanupCron   string
	WorkspaceFlushCron string
}

// ConnectionString builds PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// ConnMaxLifetimeDuration returns connection max lifetime as duration
func (d *DatabaseConfig) ConnMaxLifetimeDuration() time.Duration {
	return time.Duration(d.ConnMaxLifetime) * time.Second
}

// ReadTimeoutDuration returns read timeout as duration
func (s *ServerConfig) ReadTimeoutDuration() time.Duration {
	return time.Duration(s.ReadTimeout) * time.Second
}

// WriteTimeoutDuration returns write timeout as duration
func (s *ServerConfig) WriteTimeoutDuration() time.Duration {
	return time.Duration(s.WriteTimeout) * time.Second
}

// IdleTimeoutDuration returns idle timeout as duration
func (s *ServerConfig) IdleTimeoutDuration() time.Duration {
	return time.Duration(s.IdleTimeout) * time.Second
}

func (a *AuthConfig) AccessTokenTTLDuration() time.Duration {
	return time.Duration(a.AccessTokenTTL) * time.Minute
}

func (a *AuthConfig) VerificationTTLDuration() time.Duration {
	return time.Duration(a.VerificationTTL) * time.Hour
}

func (a *AuthConfig) ResetTTLDuration() time.Duration {
	return time.Duration(a.ResetTTL) * time.Minute
}

func (w *WorkspaceConfig) IdleTTLDuration() time.Duration {
	return time.Duration(w.IdleTTL) * time.Minute
}

// IsProduction reports whether the app runs in the production environment
func (a *AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// Validate rejects configurations that must never reach production
func (c *Config) Validate() error {
	if c.App.IsProduction() && (c.Auth.JWTSecret == "" || c.Auth.JWTSecret == DefaultJWTSecret) {
		return fmt.Errorf("auth.jwtSecret must be set in production")
	}
	if c.Email.Provider == "sendgrid" && c.Email.SendGridAPIKey == "" {
		return fmt.Errorf("email.sendGridApiKey is required when email.provider is sendgrid")
	}
	switch c.Storage.Mode {
	case "local", "azure", "redis":
	default:
		return fmt.Errorf("unsupported storage mode %q", c.Storage.Mode)
	}
	return nil
}

// Load loads configuration from file and environment variables.
// Use LoadWithSecrets for full secret resolution.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Environment variables override config file
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Secrets.KeyVaultName == "" {
		cfg.Secrets.KeyVaultName = v.GetString("AZURE_KEY_VAULT_NAME")
	}
	if cfg.Email.SendGridAPIKey == "" {
		cfg.Email.SendGridAPIKey = v.GetString("SENDGRID_API_KEY")
	}

	return &cfg, nil
}

// LoadWithSecrets loads configuration and resolves secrets from the configured source.
// Key Vault is used when secrets.source is "vault" and a vault name is configured;
// otherwise the values already read from the environment are kept.
func LoadWithSecrets(ctx context.Context, logger *zap.Logger) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	if secrets.Source(cfg.Secrets.Source) != secrets.SourceVault {
		logger.Info("Using environment variables for secrets",
			zap.String("environment", cfg.App.Environment),
		)
		return cfg, cfg.Validate()
	}

	if cfg.Secrets.KeyVaultName == "" {
		return nil, fmt.Errorf("AZURE_KEY_VAULT_NAME is required when secrets.source is vault")
	}

	var cacheTTL time.Duration
	if cfg.Secrets.CacheEnabled {
		cacheTTL = time.Duration(cfg.Secrets.CacheTTL) * time.Second
	}
	provider, err := secrets.NewVaultProvider(cfg.Secrets.KeyVaultName, cacheTTL, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize secrets provider: %w", err)
	}

	logger.Info("Loading secrets from Azure Key Vault",
		zap.String("key_vault_name", cfg.Secrets.KeyVaultName),
	)
	applySecrets(ctx, cfg, provider)

	logger.Info("Secrets loaded from vault successfully")
	return cfg, cfg.Validate()
}

// secretSource is satisfied by secrets.Provider
type secretSource interface {
	Resolve(ctx context.Context, name, envVar string) (string, error)
}

func applySecrets(ctx context.Context, cfg *Config, provider secretSource) {
	set := func(target *string, secretName, envVar string) {
		if value, err := provider.Resolve(ctx, secretName, envVar); err == nil && value != "" {
			*target = value
		}
	}

	set(&cfg.Database.Host, "POSTGRES-MAIN-HOST", "DATABASE_HOST")
	set(&cfg.Database.User, "POSTGRES-MAIN-USER", "DATABASE_USER")
	set(&cfg.Database.Password, "POSTGRES-MAIN-PASSWORD", "DATABASE_PASSWORD")
	set(&cfg.Auth.JWTSecret, "jwt-secret", "AUTH_JWTSECRET")
	set(&cfg.Email.SendGridAPIKey, "sendgrid-api-key", "SENDGRID_API_KEY")
	set(&cfg.Storage.CloudConnectionString, "storage-connection-string", "STORAGE_CLOUDCONNECTIONSTRING")
	set(&cfg.Storage.RedisPassword, "redis-password", "STORAGE_REDISPASSWORD")

	if sslMode := os.Getenv("DATABASE_SSLMODE"); sslMode != "" {
		cfg.Database.SSLMode = sslMode
	}
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "Job Sense API")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.baseURL", "http://localhost:3000")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "jobsense")
	v.SetDefault("database.user", "jobsense")
	v.SetDefault("database.password", "jobsense")
	v.SetDefault("database.sslMode", "disable")
	v.SetDefault("database.maxOpenConns", 25)
	v.SetDefault("database.maxIdleConns", 5)
	v.SetDefault("database.connMaxLifetime", 300)
	v.SetDefault("database.autoMigrate", false)

	// Auth defaults
	v.SetDefault("auth.jwtSecret", DefaultJWTSecret)
	v.SetDefault("auth.jwtIssuer", "job-sense")
	v.SetDefault("auth.accessTokenTTL", 60*24*7) // one week, matching the web session
	v.SetDefault("auth.verificationTTL", 24)
	v.SetDefault("auth.resetTTL", 60)

	// Email defaults
	v.SetDefault("email.provider", "log")
	v.SetDefault("email.fromAddress", "no-reply@jobsense.app")
	v.SetDefault("email.fromName", "Job Sense")
	v.SetDefault("email.sandbox", false)

	// Storage defaults
	v.SetDefault("storage.mode", "local")
	v.SetDefault("storage.localBasePath", "./storage")
	v.SetDefault("storage.cloudContainer", "workspaces")
	v.SetDefault("storage.redisAddr", "localhost:6379")
	v.SetDefault("storage.redisDB", 0)
	v.SetDefault("storage.redisKeyPrefix", "jobsense:")

	v.SetDefault("workspace.idleTTL", 30)

	// Secrets defaults
	v.SetDefault("secrets.source", string(secrets.SourceEnvironment))
	v.SetDefault("secrets.cacheEnabled", true)
	v.SetDefault("secrets.cacheTTL", 300)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	// Server defaults
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 30)
	v.SetDefault("server.idleTimeout", 120)
	v.SetDefault("server.enableSwagger", true)

	// CORS defaults
	v.SetDefault("cors.allowedOrigins", []string{})
	v.SetDefault("cors.allowedMethods", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowedHeaders", []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"})
	v.SetDefault("cors.exposedHeaders", []string{"Location", "X-Request-ID", "Content-Disposition"})
	v.SetDefault("cors.allowCredentials", true)
	v.SetDefault("cors.maxAge", 300)

	// Security header defaults
	v.SetDefault("security.enableHSTS", false)
	v.SetDefault("security.hstsMaxAge", 31536000)
	v.SetDefault("security.hstsIncludeSubdomains", true)
	v.SetDefault("security.contentSecurityPolicy", "default-src 'self'")
	v.SetDefault("security.frameOptions", "DENY")
	v.SetDefault("security.contentTypeNosniff", true)
	v.SetDefault("security.referrerPolicy", "strict-origin-when-cross-origin")

	// Rate limiting defaults
	v.SetDefault("rateLimit.enabled", true)
	v.SetDefault("rateLimit.requestsPerMinute", 60)
	v.SetDefault("rateLimit.requestsPerMinuteAuth", 240)
	v.SetDefault("rateLimit.requestsPerMinuteLogin", 10)
	v.SetDefault("rateLimit.whitelistIPs", []string{"127.0.0.1", "::1"})
	v.SetDefault("rateLimit.whitelistPaths", []string{"/health", "/health/db", "/health/ready"})

	// Maintenance jobs (robfig/cron with seconds field)
	v.SetDefault("jobs.enabled", true)
	v.SetDefault("jobs.tokenCleanupCron", "0 15 3 * * *")
	v.SetDefault("jobs.workspaceFlushCron", "0 */5 * * * *")
}
