package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// It is loaded once at startup and passed explicitly to the components that need it.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	DB        DBConfig        `mapstructure:"db"`
	Session   SessionConfig   `mapstructure:"session"`
	OIDC      OIDCConfig      `mapstructure:"oidc"`
	Log       LogConfig       `mapstructure:"log"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Site      SiteConfig      `mapstructure:"site"`
	Upload    UploadConfig    `mapstructure:"upload"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Superuser SuperuserConfig `mapstructure:"superuser"`
}

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	Port    string    `mapstructure:"port"`
	BaseURL string    `mapstructure:"base_url"`
	TLS     TLSConfig `mapstructure:"tls"`
}

// TLSConfig holds TLS-specific configuration.
type TLSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	CertFile string `mapstructure:"certFile"`
	KeyFile  string `mapstructure:"keyFile"`
}

// DBConfig holds database-specific configuration.
type DBConfig struct {
	Driver     string `mapstructure:"driver"` // "mysql" or "sqlite3"
	DSN        string `mapstructure:"dsn"`
	Migrations string `mapstructure:"migrations"`
}

// SessionConfig holds session cookie configuration.
type SessionConfig struct {
	SecretKey string `mapstructure:"secretkey"`
	Lifetime  int    `mapstructure:"lifetime"` // hours
}

// OIDCConfig holds OIDC client configuration.
type OIDCConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	IssuerURL    string `mapstructure:"issuer_url"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURL  string `mapstructure:"redirect_url"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // e.g., "debug", "info", "warn", "error"
	Format string `mapstructure:"format"` // e.g., "json", "console"
}

// CacheConfig holds configuration for the rendered-content cache.
type CacheConfig struct {
	FilePath   string `mapstructure:"file_path"`
	TTLMinutes int    `mapstructure:"ttl_minutes"`
}

// SiteConfig holds presentation settings shared by every section.
type SiteConfig struct {
	Title           string `mapstructure:"title"`
	Timezone        string `mapstructure:"timezone"`
	RecentPastLimit int    `mapstructure:"recent_past_limit"`
}

// Location loads the canonical display timezone.
func (s SiteConfig) Location() (*time.Location, error) {
	if s.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid site timezone %q: %w", s.Timezone, err)
	}
	return loc, nil
}

// UploadConfig controls where uploaded files go and how images are normalised.
type UploadConfig struct {
	Driver      string      `mapstructure:"driver"` // "local" or "minio"
	LocalRoot   string      `mapstructure:"local_root"`
	URLPrefix   string      `mapstructure:"url_prefix"`
	MaxWidth    int         `mapstructure:"max_width"`
	MaxHeight   int         `mapstructure:"max_height"`
	JPEGQuality int         `mapstructure:"jpeg_quality"`
	MaxSizeMB   int64       `mapstructure:"max_size_mb"`
	MinIO       MinIOConfig `mapstructure:"minio"`
}

// MinIOConfig holds object storage credentials.
type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	PublicURL string `mapstructure:"public_url"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// RateLimitConfig throttles login attempts per client address.
type RateLimitConfig struct {
	LoginPerMinute int `mapstructure:"login_per_minute"`
	LoginBurst     int `mapstructure:"login_burst"`
}

// SuperuserConfig seeds the staff account created by the create-superuser command.
type SuperuserConfig struct {
	Username string `mapstructure:"username"`
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
}

// LoadConfig reads configuration from file and environment variables.
// An empty path searches the default locations for config.yml.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("JOURNAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/journal-site/")
		v.AddConfigPath("$HOME/.journal-site")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Config file was found but another error was produced
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("db.driver", "mysql")
	v.SetDefault("db.dsn", "journal:journal@tcp(localhost:3306)/journal?parseTime=true&loc=UTC&clientFoundRows=true")
	v.SetDefault("db.migrations", "migrations")
	v.SetDefault("session.lifetime", 24*14)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("cache.file_path", "cache.db")
	v.SetDefault("cache.ttl_minutes", 60)
	v.SetDefault("site.title", "Define Your Path")
	v.SetDefault("site.timezone", "America/New_York")
	v.SetDefault("site.recent_past_limit", 5)
	v.SetDefault("upload.driver", "local")
	v.SetDefault("upload.local_root", "media")
	v.SetDefault("upload.url_prefix", "/uploads/")
	v.SetDefault("upload.max_width", 1200)
	v.SetDefault("upload.max_height", 1200)
	v.SetDefault("upload.jpeg_quality", 85)
	v.SetDefault("upload.max_size_mb", 20)
	v.SetDefault("upload.minio.bucket", "journal-media")
	v.SetDefault("ratelimit.login_per_minute", 10)
	v.SetDefault("ratelimit.login_burst", 5)
	v.SetDefault("superuser.username", "deanna")
	// Bind keys without defaults so AutomaticEnv picks them up on Unmarshal.
	for _, key := range []string{
		"session.secretkey",
		"superuser.email", "superuser.password",
		"oidc.enabled", "oidc.issuer_url", "oidc.client_id", "oidc.client_secret", "oidc.redirect_url",
		"upload.minio.endpoint", "upload.minio.access_key", "upload.minio.secret_key",
		"upload.minio.use_ssl", "upload.minio.public_url",
		"metrics.enabled", "server.tls.enabled", "server.tls.certFile", "server.tls.keyFile",
	} {
		_ = v.BindEnv(key)
	}
}
