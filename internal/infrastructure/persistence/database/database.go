// Package database opens the lead archive connection: a local SQLite file by
// default, or a remote Turso/libSQL database when credentials are configured.
package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/leadtrack-go/pkg/config"
	_ "github.com/mattn/go-sqlite3"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
)

// DB represents a wrapper around the standard SQL database connection.
type DB struct {
	*sql.DB
	Driver   string
	UseTurso bool

	logger        *logging.ChanneledLogger
	slowThreshold time.Duration
}

// Config selects and tunes the connection.
type Config struct {
	Driver             string
	SQLitePath         string
	TursoDatabaseURL   string
	TursoAuthToken     string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetime    time.Duration
	ConnMaxIdleTime    time.Duration
	SlowQueryThreshold time.Duration
}

// ConfigFromEnv reads the connection settings from pkg/config.
func ConfigFromEnv() Config {
	return Config{
		Driver:             config.DBDriver,
		SQLitePath:         config.SQLitePath,
		TursoDatabaseURL:   config.TursoDatabaseURL,
		TursoAuthToken:     config.TursoAuthToken,
		MaxOpenConns:       config.DBMaxOpenConns,
		MaxIdleConns:       config.DBMaxIdleConns,
		ConnMaxLifetime:    time.Duration(config.DBConnMaxLifetimeMinutes) * time.Minute,
		ConnMaxIdleTime:    time.Duration(config.DBConnMaxIdleMinutes) * time.Minute,
		SlowQueryThreshold: config.SlowQueryThreshold,
	}
}

// NewConnectionWithLogger opens, pings and tunes the archive database. Turso
// is used when both URL and token are set; otherwise SQLite, creating the
// file's directory if needed.
func NewConnectionWithLogger(cfg Config, logger *logging.ChanneledLogger) (*DB, error) {
	start := time.Now()

	driver, dsn, useTurso := cfg.dataSource()
	logger.Database().Debug("Creating new database connection", "driverName", driver, "turso", useTurso)

	if !useTurso && !isMemoryDSN(dsn) {
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		logger.Database().Error("Failed to open database connection", "error", err.Error(), "driverName", driver)
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		logger.Database().Error("Database ping failed", "error", err.Error(), "driverName", driver)
		return nil, fmt.Errorf("%s database ping failed: %w", driver, err)
	}

	if cfg.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		conn.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		conn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	db := &DB{
		DB:            conn,
		Driver:        driver,
		UseTurso:      useTurso,
		logger:        logger,
		slowThreshold: cfg.SlowQueryThreshold,
	}

	duration := time.Since(start)
	logger.Database().Info("Database connection established", "driverName", driver, "duration", duration)
	db.CheckSlowQuery("DATABASE_CONNECTION", duration)

	return db, nil
}

func (c Config) dataSource() (driver, dsn string, useTurso bool) {
	if c.TursoDatabaseURL != "" && c.TursoAuthToken != "" {
		return "libsql", c.TursoDatabaseURL + "?authToken=" + c.TursoAuthToken, true
	}
	driver = c.Driver
	if driver == "" {
		driver = "sqlite3"
	}
	return driver, c.SQLitePath, false
}

func isMemoryDSN(dsn string) bool {
	return dsn == "" || strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

// CheckSlowQuery logs query on the database channel when duration exceeds
// the configured threshold.
func (db *DB) CheckSlowQuery(query string, duration time.Duration) {
	if db.logger == nil || db.slowThreshold <= 0 {
		return
	}
	if duration > db.slowThreshold {
		db.logger.LogSlowQuery(query, duration)
	}
}

// Logger returns the logger the connection was opened with.
func (db *DB) Logger() *logging.ChanneledLogger { return db.logger }

// ConnectionInfo describes the backend for health output.
func (db *DB) ConnectionInfo() string {
	if db.UseTurso {
		return "Turso"
	}
	return "SQLite"
}
