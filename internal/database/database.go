package database

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"toyshop/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config selects the driver and the connection target.
type Config struct {
	Driver string // postgres or sqlite
	DSN    string
	Name   string // database name applied to postgres DSNs
}

// Open connects, pings and migrates the schema. The migration doubles as
// the write probe: a database that cannot be written fails here.
func Open(ctx context.Context, cfg Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(PostgresDSN(cfg.DSN, cfg.Name))
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if cfg.Driver == "sqlite" {
		// one connection keeps an in-memory database alive and serializes writers
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := Migrate(db.WithContext(ctx)); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates the tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.User{}, &models.Toy{}, &models.Order{}, &models.OrderItem{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// PostgresDSN applies the database name and a connect timeout to a DSN in
// either key=value or URL form. Values already present win.
func PostgresDSN(dsn, name string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return dsn
		}
		if name != "" && strings.Trim(u.Path, "/") == "" {
			u.Path = "/" + name
		}
		q := u.Query()
		if q.Get("connect_timeout") == "" {
			q.Set("connect_timeout", "5")
		}
		u.RawQuery = q.Encode()
		return u.String()
	}

	if name != "" && !strings.Contains(dsn, "dbname=") {
		dsn = strings.TrimSpace(dsn + " dbname=" + name)
	}
	if !strings.Contains(dsn, "connect_timeout=") {
		dsn = strings.TrimSpace(dsn + " connect_timeout=5")
	}
	return dsn
}

// Close releases the underlying pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
