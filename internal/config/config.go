package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the validated application configuration.
type Config struct {
	AppEnv   string
	AppPort  string
	LogLevel string

	DBDriver     string
	DatabaseDSN  string
	DatabaseName string

	SessionSecret string
	SessionTTL    time.Duration

	AdminUsername string
	AdminPassword string

	UploadDir string

	RabbitMQURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	CheckoutTokenTTL time.Duration
	SeedDemoData     bool
}

// IsProduction reports whether the app runs with production settings.
func (c Config) IsProduction() bool {
	return c.AppEnv == "prod" || c.AppEnv == "production"
}

// Load reads the optional .env file and the environment.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	// a missing .env is fine, the environment may carry everything
	_ = godotenv.Load(envFiles...)

	v := viper.New()
	v.SetDefault("APP_ENV", "dev")
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DATABASE_DSN", "host=localhost user=postgres password=postgres port=5432 sslmode=disable")
	v.SetDefault("DATABASE_NAME", "toyshop")
	v.SetDefault("SESSION_SECRET", "")
	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("ADMIN_USERNAME", "admin")
	v.SetDefault("ADMIN_PASSWORD", "")
	v.SetDefault("UPLOAD_DIR", "static/uploads")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CHECKOUT_TOKEN_TTL", "30m")
	v.SetDefault("SEED_DEMO_DATA", false)
	v.AutomaticEnv()

	cfg := Config{
		AppEnv:           strings.ToLower(v.GetString("APP_ENV")),
		AppPort:          v.GetString("APP_PORT"),
		LogLevel:         v.GetString("LOG_LEVEL"),
		DBDriver:         strings.ToLower(v.GetString("DB_DRIVER")),
		DatabaseDSN:      v.GetString("DATABASE_DSN"),
		DatabaseName:     v.GetString("DATABASE_NAME"),
		SessionSecret:    v.GetString("SESSION_SECRET"),
		SessionTTL:       v.GetDuration("SESSION_TTL"),
		AdminUsername:    v.GetString("ADMIN_USERNAME"),
		AdminPassword:    v.GetString("ADMIN_PASSWORD"),
		UploadDir:        v.GetString("UPLOAD_DIR"),
		RabbitMQURL:      v.GetString("RABBITMQ_URL"),
		RedisAddr:        v.GetString("REDIS_ADDR"),
		RedisPassword:    v.GetString("REDIS_PASSWORD"),
		RedisDB:          v.GetInt("REDIS_DB"),
		CheckoutTokenTTL: v.GetDuration("CHECKOUT_TOKEN_TTL"),
		SeedDemoData:     v.GetBool("SEED_DEMO_DATA"),
	}
	if !strings.HasPrefix(cfg.AppPort, ":") && !strings.Contains(cfg.AppPort, ":") {
		cfg.AppPort = ":" + cfg.AppPort
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings the application cannot start without.
func (c Config) Validate() error {
	var errs []error
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", c.DBDriver))
	}
	if c.DatabaseDSN == "" {
		errs = append(errs, errors.New("DATABASE_DSN is required"))
	}
	if len(c.SessionSecret) < 16 {
		errs = append(errs, errors.New("SESSION_SECRET must be at least 16 characters"))
	}
	if c.AdminUsername == "" || c.AdminPassword == "" {
		errs = append(errs, errors.New("ADMIN_USERNAME and ADMIN_PASSWORD are required"))
	}
	if c.UploadDir == "" {
		errs = append(errs, errors.New("UPLOAD_DIR is required"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if c.CheckoutTokenTTL <= 0 {
		errs = append(errs, errors.New("CHECKOUT_TOKEN_TTL must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
