package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	HTTPPort    int    `mapstructure:"http_port"`
	GRPCPort    int    `mapstructure:"grpc_port"`
	LogLevel    string `mapstructure:"log_level"`
	ServiceName string `mapstructure:"service_name"` // used for Consul registration
	// BaseURL is prepended to pagination links when set, otherwise the request host is used.
	BaseURL string `mapstructure:"base_url"`

	Database   DatabaseConfig      `mapstructure:"database"`
	Auth       AuthConfig          `mapstructure:"auth"`
	Mail       MailConfig          `mapstructure:"mail"`
	Pagination PaginationConfig    `mapstructure:"pagination"`
	Consul     ConsulConfig        `mapstructure:"consul"`
	Superuser  SuperuserConfig     `mapstructure:"superuser"`
	// Permissions overrides the capability set of a resource, e.g. permissions.titles: [read, admin-only]
	Permissions map[string][]string `mapstructure:"permissions"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // sqlite, mysql or postgres
	URL    string `mapstructure:"url"`
	// LogSQL traces every statement through the application logger.
	LogSQL bool `mapstructure:"log_sql"`
}

type AuthConfig struct {
	JwtSecret       string        `mapstructure:"jwt_secret"`
	Issuer          string        `mapstructure:"issuer"`
	AccessTTL       time.Duration `mapstructure:"access_ttl"`
	ConfirmationTTL time.Duration `mapstructure:"confirmation_ttl"`
}

type MailConfig struct {
	Backend  string `mapstructure:"backend"` // smtp, console or memory
	From     string `mapstructure:"from"`
	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port"`
	SMTPUser string `mapstructure:"smtp_user"`
	SMTPPass string `mapstructure:"smtp_pass"`
}

type PaginationConfig struct {
	PageSize int `mapstructure:"page_size"`
}

type ConsulConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
	// AdvertiseHost is the address other services and the health checker use to reach us.
	AdvertiseHost string `mapstructure:"advertise_host"`
}

// SuperuserConfig seeds an initial superuser on startup when Username is set.
type SuperuserConfig struct {
	Username string `mapstructure:"username"`
	Email    string `mapstructure:"email"`
}

const defaultJwtSecret = "default-very-insecure-secret-key"

var AppConfig Config

// InitConfig loads the configuration into AppConfig. It panics on malformed files,
// a missing config file is not an error.
func InitConfig() {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	AppConfig = cfg
}

// Load reads .env, config.yaml and YAMDB_* environment variables, in increasing priority.
func Load() (Config, error) {
	// .env is optional; real environment variables win over it
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("YAMDB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("fatal error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_port", 8000)
	v.SetDefault("grpc_port", 50051)
	v.SetDefault("log_level", "info")
	v.SetDefault("service_name", "yamdb")
	v.SetDefault("base_url", "")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.url", "yamdb.sqlite3")
	v.SetDefault("database.log_sql", false)

	v.SetDefault("auth.jwt_secret", defaultJwtSecret) // CHANGE THIS IN PRODUCTION
	v.SetDefault("auth.issuer", "yamdb")
	v.SetDefault("auth.access_ttl", "24h")
	v.SetDefault("auth.confirmation_ttl", "24h")

	v.SetDefault("mail.backend", "console")
	v.SetDefault("mail.from", "noreply@yamdb.local")
	v.SetDefault("mail.smtp_host", "localhost")
	v.SetDefault("mail.smtp_port", 25)
	v.SetDefault("mail.smtp_user", "")
	v.SetDefault("mail.smtp_pass", "")

	v.SetDefault("pagination.page_size", 10)

	v.SetDefault("consul.enabled", false)
	v.SetDefault("consul.address", "127.0.0.1:8500")
	v.SetDefault("consul.advertise_host", "127.0.0.1")

	v.SetDefault("superuser.username", "")
	v.SetDefault("superuser.email", "")
}

// UsesDefaultSecret reports whether the JWT secret was left at its insecure default.
func (c Config) UsesDefaultSecret() bool {
	return c.Auth.JwtSecret == defaultJwtSecret
}
