// Package database handles document store connections.
package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"inkwell/internal/config"

	"github.com/jackc/pgx/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Driver identifies the backing store selected by the connection URL scheme.
type Driver string

const (
	DriverMongo    Driver = "mongodb"
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite"
)

// ErrUnsupportedScheme is returned for connection URLs no driver understands.
var ErrUnsupportedScheme = errors.New("unsupported database URL scheme")

const connectTimeout = 10 * time.Second

// Handle owns the open store connection. Exactly one of SQL or Mongo is set.
type Handle struct {
	Driver  Driver
	SQL     *gorm.DB
	Mongo   *mongo.Client
	MongoDB *mongo.Database
}

// DriverFor picks the store driver from the connection URL scheme.
func DriverFor(rawURL string) (Driver, error) {
	switch {
	case strings.HasPrefix(rawURL, "mongodb://"), strings.HasPrefix(rawURL, "mongodb+srv://"):
		return DriverMongo, nil
	case strings.HasPrefix(rawURL, "postgres://"), strings.HasPrefix(rawURL, "postgresql://"):
		if _, err := pgx.ParseConfig(rawURL); err != nil {
			return "", fmt.Errorf("invalid postgres DATABASE_URL: %w", err)
		}
		return DriverPostgres, nil
	case strings.HasPrefix(rawURL, "sqlite://"), strings.HasPrefix(rawURL, "file:"):
		return DriverSQLite, nil
	default:
		return "", ErrUnsupportedScheme
	}
}

func sqliteDSN(rawURL string) string {
	return strings.TrimPrefix(rawURL, "sqlite://")
}

// Connect opens the store named by cfg.DatabaseURL and verifies it is reachable.
func Connect(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Handle, error) {
	driver, err := DriverFor(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	var h *Handle
	switch driver {
	case DriverMongo:
		h, err = connectMongo(ctx, cfg)
	default:
		h, err = connectSQL(driver, cfg, log)
	}
	if err != nil {
		return nil, err
	}

	if err := h.Ping(ctx); err != nil {
		_ = h.Close(context.Background())
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	log.Info("Database connected successfully", slog.String("driver", string(driver)))
	return h, nil
}

func connectMongo(ctx context.Context, cfg *config.Config) (*Handle, error) {
	cs, err := connstring.ParseAndValidate(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid mongodb DATABASE_URL: %w", err)
	}
	dbName := cs.Database
	if dbName == "" {
		dbName = cfg.DBName
	}

	opts := options.Client().
		ApplyURI(cfg.DatabaseURL).
		SetConnectTimeout(connectTimeout)
	if cfg.DBMaxOpenConns > 0 {
		opts.SetMaxPoolSize(uint64(cfg.DBMaxOpenConns))
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return NewMongoHandle(client, dbName), nil
}

// NewMongoHandle wraps an already-connected mongo client.
func NewMongoHandle(client *mongo.Client, dbName string) *Handle {
	return &Handle{
		Driver:  DriverMongo,
		Mongo:   client,
		MongoDB: client.Database(dbName),
	}
}

func connectSQL(driver Driver, cfg *config.Config, log *slog.Logger) (*Handle, error) {
	var dialector gorm.Dialector
	if driver == DriverPostgres {
		dialector = postgres.Open(cfg.DatabaseURL)
	} else {
		dialector = sqlite.Open(sqliteDSN(cfg.DatabaseURL))
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: NewGormLogger(log),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := configurePool(db, cfg); err != nil {
		return nil, err
	}
	if driver == DriverSQLite {
		// SQLite has a single writer, and each connection to :memory: is its own database.
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.SetMaxOpenConns(1)
		}
	}

	return NewSQLHandle(driver, db), nil
}

// NewSQLHandle wraps an already-open gorm connection.
func NewSQLHandle(driver Driver, db *gorm.DB) *Handle {
	return &Handle{Driver: driver, SQL: db}
}

func configurePool(db *gorm.DB, cfg *config.Config) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if cfg.DBMaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
	if cfg.DBConnMaxLifetimeMinutes > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.DBConnMaxLifetimeMinutes) * time.Minute)
	}
	return nil
}

// Ping checks that the store answers.
func (h *Handle) Ping(ctx context.Context) error {
	switch {
	case h.Mongo != nil:
		return h.Mongo.Ping(ctx, readpref.Primary())
	case h.SQL != nil:
		sqlDB, err := h.SQL.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	default:
		return errors.New("database handle is not connected")
	}
}

// Close releases the store connection.
func (h *Handle) Close(ctx context.Context) error {
	switch {
	case h.Mongo != nil:
		return h.Mongo.Disconnect(ctx)
	case h.SQL != nil:
		sqlDB, err := h.SQL.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}

// GormLogger integrates GORM with slog
type GormLogger struct {
	logger *slog.Logger
	Config logger.Config
}

// NewGormLogger returns a GORM logger that writes warnings, errors and slow queries to log.
func NewGormLogger(log *slog.Logger) *GormLogger {
	return &GormLogger{
		logger: log,
		Config: logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	}
}

// LogMode sets the logging level and returns a new interface instance.
func (l *GormLogger) LogMode(level logger.LogLevel) logger.Interface {
	newlogger := *l
	newlogger.Config.LogLevel = level
	return &newlogger
}

// Info logs an informational message with context.
func (l *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.Config.LogLevel >= logger.Info {
		l.logger.InfoContext(ctx, fmt.Sprintf(msg, data...))
	}
}

// Warn logs a warning message with context.
func (l *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.Config.LogLevel >= logger.Warn {
		l.logger.WarnContext(ctx, fmt.Sprintf(msg, data...))
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.Config.LogLevel >= logger.Error {
		l.logger.ErrorContext(ctx, fmt.Sprintf(msg, data...))
	}
}

// Trace logs SQL queries that failed or ran longer than the slow threshold.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.Config.LogLevel <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()

	switch {
	case err != nil && l.Config.LogLevel >= logger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		l.logger.ErrorContext(ctx, "GORM query error",
			slog.String("sql", sql),
			slog.Int64("rows", rows),
			slog.Duration("elapsed", elapsed),
			slog.String("error", err.Error()),
		)
	case elapsed > l.Config.SlowThreshold && l.Config.SlowThreshold != 0 && l.Config.LogLevel >= logger.Warn:
		l.logger.WarnContext(ctx, "GORM slow query",
			slog.String("sql", sql),
			slog.Int64("rows", rows),
			slog.Duration("elapsed", elapsed),
		)
	case l.Config.LogLevel >= logger.Info:
		l.logger.DebugContext(ctx, "GORM query",
			slog.String("sql", sql),
			slog.Int64("rows", rows),
			slog.Duration("elapsed", elapsed),
		)
	}
}
