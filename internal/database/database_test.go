package database

import (
	"context"
	"testing"

	"toyshop/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresDSN(t *testing.T) {
	tests := []struct {
		name string
		dsn  string
		db   string
		want string
	}{
		{"key value", "host=db user=u", "shop", "host=db user=u dbname=shop connect_timeout=5"},
		{"key value keeps dbname", "host=db dbname=other", "shop", "host=db dbname=other connect_timeout=5"},
		{"url", "postgres://u:p@db:5432", "shop", "postgres://u:p@db:5432/shop?connect_timeout=5"},
		{"url keeps path", "postgres://u:p@db:5432/other?sslmode=disable", "shop", "postgres://u:p@db:5432/other?connect_timeout=5&sslmode=disable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PostgresDSN(tt.dsn, tt.db))
		})
	}
}

func TestOpen_SQLiteMigrates(t *testing.T) {
	db, err := Open(context.Background(), Config{Driver: "sqlite", DSN: "file:database_open_test?mode=memory&cache=shared"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	for _, table := range []interface{}{&models.User{}, &models.Toy{}, &models.Order{}, &models.OrderItem{}} {
		assert.True(t, db.Migrator().HasTable(table))
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "mongo", DSN: "x"})
	assert.Error(t, err)
}
