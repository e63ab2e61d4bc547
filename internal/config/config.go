package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env       string          `mapstructure:"env"`
	LogLevel  string          `mapstructure:"log_level"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Upload    UploadConfig    `mapstructure:"upload"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Events    EventsConfig    `mapstructure:"events"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port               string   `mapstructure:"port"`
	ReadTimeout        int      `mapstructure:"read_timeout_seconds"`
	WriteTimeout       int      `mapstructure:"write_timeout_seconds"`
	IdleTimeout        int      `mapstructure:"idle_timeout_seconds"`
	CORSOrigins        []string `mapstructure:"cors_origins"`
	RateLimitPerSecond float64  `mapstructure:"rate_limit_per_second"`
	RateLimitBurst     int      `mapstructure:"rate_limit_burst"`
}

type DatabaseConfig struct {
	// Driver is "memory" or "postgres".
	Driver          string `mapstructure:"driver"`
	Host            string `mapstructure:"host"`
	Port            string `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"name"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time_seconds"`
}

type AuthConfig struct {
	JWTSecret              string `mapstructure:"jwt_secret"`
	TokenTTLHours          int    `mapstructure:"token_ttl_hours"`
	AllowAdminRegistration bool   `mapstructure:"allow_admin_registration"`
}

// TokenTTL returns the bearer token lifetime.
func (c AuthConfig) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLHours) * time.Hour
}

// AdminConfig describes the account seeded on startup.
type AdminConfig struct {
	Username string `mapstructure:"username"`
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
}

type UploadConfig struct {
	MaxFileSizeMB int `mapstructure:"max_file_size_mb"`
}

// MaxFileSize returns the per-attachment limit in bytes.
func (c UploadConfig) MaxFileSize() int64 {
	return int64(c.MaxFileSizeMB) << 20
}

type StorageConfig struct {
	// Driver is "local" or "s3".
	Driver   string   `mapstructure:"driver"`
	LocalDir string   `mapstructure:"local_dir"`
	S3       S3Config `mapstructure:"s3"`
}

type S3Config struct {
	Bucket       string `mapstructure:"bucket"`
	Region       string `mapstructure:"region"`
	BaseEndpoint string `mapstructure:"base_endpoint"`
	AccessKey    string `mapstructure:"access_key"`
	SecretKey    string `mapstructure:"secret_key"`
}

type EventsConfig struct {
	// Driver is "none", "nats" or "kafka".
	Driver string      `mapstructure:"driver"`
	NATS   NATSConfig  `mapstructure:"nats"`
	Kafka  KafkaConfig `mapstructure:"kafka"`
}

type NATSConfig struct {
	URL           string `mapstructure:"url"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type TelemetryConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

var searchPaths = []string{
	"/configs",   // Kubernetes mount
	"./configs",  // repository root
	"../configs", // IDE from cmd/
	"../../configs",
}

func Load() (*Config, error) {
	return LoadFrom(searchPaths...)
}

// LoadFrom reads config.<ENV>.yaml from the first matching path. The file is
// optional; defaults and environment variables still apply without it.
func LoadFrom(paths ...string) (*Config, error) {
	env := os.Getenv("ENV")
	if env == "" {
		env = "local"
	}

	v := viper.New()
	v.SetConfigName(fmt.Sprintf("config.%s", env))
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	setDefaults(v, env)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		fmt.Printf("No config file found (will use ENV variables): %v\n", err)
	}

	// Environment variables take precedence over the file.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	v.BindEnv("admin.password", "ADMIN_PASSWORD")
	v.BindEnv("storage.s3.access_key", "STORAGE_S3_ACCESS_KEY")
	v.BindEnv("storage.s3.secret_key", "STORAGE_S3_SECRET_KEY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, env string) {
	v.SetDefault("env", env)
	v.SetDefault("log_level", "info")

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout_seconds", 15)
	v.SetDefault("server.write_timeout_seconds", 30)
	v.SetDefault("server.idle_timeout_seconds", 60)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.rate_limit_per_second", 5)
	v.SetDefault("server.rate_limit_burst", 20)

	v.SetDefault("database.driver", "memory")
	v.SetDefault("database.ssl_mode", "disable")

	if env == "local" || env == "test" {
		v.SetDefault("auth.jwt_secret", "local-dev-secret-change-me")
	}
	v.SetDefault("auth.token_ttl_hours", 24)
	v.SetDefault("auth.allow_admin_registration", false)

	v.SetDefault("admin.username", "admin")
	v.SetDefault("admin.email", "admin@mtendere.com")
	v.SetDefault("admin.password", "admin123")

	v.SetDefault("upload.max_file_size_mb", 10)

	v.SetDefault("storage.driver", "local")
	v.SetDefault("storage.local_dir", "uploads")
	v.SetDefault("storage.s3.region", "us-east-1")

	v.SetDefault("events.driver", "none")
	v.SetDefault("events.nats.subject_prefix", "admissions")
	v.SetDefault("events.kafka.topic", "admissions.applications")
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "memory", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	switch c.Storage.Driver {
	case "local", "s3":
	default:
		return fmt.Errorf("unsupported storage driver %q", c.Storage.Driver)
	}
	switch c.Events.Driver {
	case "none", "nats", "kafka":
	default:
		return fmt.Errorf("unsupported events driver %q", c.Events.Driver)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret (JWT_SECRET) is required")
	}
	if c.Auth.TokenTTLHours <= 0 {
		return fmt.Errorf("auth.token_ttl_hours must be positive")
	}
	if c.Upload.MaxFileSizeMB <= 0 {
		return fmt.Errorf("upload.max_file_size_mb must be positive")
	}
	return nil
}
