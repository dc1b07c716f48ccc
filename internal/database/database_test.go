package database

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"inkwell/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDriverFor(t *testing.T) {
	tests := []struct {
		url     string
		want    Driver
		wantErr bool
	}{
		{"mongodb://localhost:27017/blog", DriverMongo, false},
		{"mongodb+srv://user:pw@cluster.example.net/blog", DriverMongo, false},
		{"postgres://user:pw@localhost:5432/blog?sslmode=disable", DriverPostgres, false},
		{"postgresql://localhost/blog", DriverPostgres, false},
		{"postgres://localhost:notaport/blog", "", true},
		{"sqlite://blog.db", DriverSQLite, false},
		{"file:blog.db?cache=shared", DriverSQLite, false},
		{"mysql://localhost/blog", "", true},
		{"blog.db", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, err := DriverFor(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSqliteDSN(t *testing.T) {
	assert.Equal(t, "blog.db", sqliteDSN("sqlite://blog.db"))
	assert.Equal(t, "/tmp/blog.db", sqliteDSN("sqlite:///tmp/blog.db"))
	assert.Equal(t, "file:blog.db", sqliteDSN("file:blog.db"))
}

func TestConnect_SQLite(t *testing.T) {
	cfg := &config.Config{
		DatabaseURL:              "sqlite://file::memory:",
		DBMaxOpenConns:           1,
		DBMaxIdleConns:           1,
		DBConnMaxLifetimeMinutes: 5,
	}

	h, err := Connect(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	defer func() { _ = h.Close(context.Background()) }()

	assert.Equal(t, DriverSQLite, h.Driver)
	assert.NotNil(t, h.SQL)
	assert.Nil(t, h.Mongo)
	assert.NoError(t, h.Ping(context.Background()))

	sqlDB, err := h.SQL.DB()
	require.NoError(t, err)
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
}

func TestConnect_UnsupportedScheme(t *testing.T) {
	_, err := Connect(context.Background(), &config.Config{DatabaseURL: "redis://localhost"}, discardLogger())
	assert.ErrorIs(t, err, ErrUnsupportedScheme)
}

func TestHandle_PingWithoutConnection(t *testing.T) {
	h := &Handle{}
	assert.Error(t, h.Ping(context.Background()))
	assert.NoError(t, h.Close(context.Background()))
}

func TestConfigurePool(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = configurePool(db, &config.Config{
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           5,
		DBConnMaxLifetimeMinutes: 15,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 10, sqlDB.Stats().MaxOpenConnections)
}

func TestGormLogger_Trace(t *testing.T) {
	var buf bytes.Buffer
	l := NewGormLogger(slog.New(slog.NewJSONHandler(&buf, nil)))
	ctx := context.Background()
	sql := func() (string, int64) { return "SELECT 1", 1 }

	l.Trace(ctx, time.Now(), sql, errors.New("boom"))
	assert.Contains(t, buf.String(), "GORM query error")

	buf.Reset()
	l.Trace(ctx, time.Now(), sql, gorm.ErrRecordNotFound)
	assert.Empty(t, buf.String())

	buf.Reset()
	l.Trace(ctx, time.Now().Add(-time.Second), sql, nil)
	assert.Contains(t, buf.String(), "GORM slow query")

	buf.Reset()
	l.LogMode(logger.Silent).Trace(ctx, time.Now(), sql, errors.New("boom"))
	assert.Empty(t, buf.String())
}
