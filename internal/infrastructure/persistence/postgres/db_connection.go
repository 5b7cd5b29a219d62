// Package postgres implements the domain repositories on top of GORM.
// PostgreSQL is the production backend; SQLite serves local runs and tests.
package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/turtacn/pdmews/internal/config"
	"github.com/turtacn/pdmews/pkg/errors"
	"github.com/turtacn/pdmews/pkg/logger"
)

// DBConnection manages the database handle lifecycle.
type DBConnection struct {
	db     *gorm.DB
	config config.DatabaseConfig
	logger logger.Logger
}

// NewDBConnection opens the configured database, tunes the pool, migrates the schema and pings it.
func NewDBConnection(ctx context.Context, cfg config.DatabaseConfig, log logger.Logger) (*DBConnection, error) {
	log = log.WithComponent("database")

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		log.Info(ctx, "Initializing PostgreSQL connection pool",
			logger.String("host", cfg.Host),
			logger.Int("port", cfg.Port),
			logger.String("database", cfg.Database),
			logger.Int("max_open_conns", cfg.MaxOpenConns),
		)
		dialector = postgres.Open(cfg.GetDSN())
	case "sqlite":
		log.Info(ctx, "Initializing SQLite database", logger.String("path", cfg.SQLitePath))
		dialector = sqlite.Open(cfg.SQLitePath)
	default:
		return nil, errors.ErrConfiguration(fmt.Sprintf("unsupported database driver %q", cfg.Driver))
	}

	db, err := Open(dialector)
	if err != nil {
		log.Error(ctx, "Failed to open database", err)
		return nil, errors.ErrInternal("failed to open database").WithCause(err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.ErrInternal("failed to access database pool").WithCause(err)
	}
	if cfg.Driver == "sqlite" {
		// a single writer avoids "database is locked" under concurrent analyses
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxConnLifetime) * time.Minute)
	}

	conn := &DBConnection{db: db, config: cfg, logger: log}
	if err := conn.Ping(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	log.Info(ctx, "Database connection initialized successfully", logger.String("driver", cfg.Driver))
	return conn, nil
}

// Open opens dialector with the repository defaults and migrates the schema.
func Open(dialector gorm.Dialector) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, err
	}
	if err := AutoMigrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// AutoMigrate creates or updates every table.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&userDBM{},
		&identifierDBM{},
		&exposureDBM{},
		&misuseEventDBM{},
		&assessmentDBM{},
		&alertDBM{},
		&evidenceDBM{},
	)
}

// OpenSQLiteMemory opens a private in-memory SQLite database named name, migrated and
// limited to one connection. Intended for tests and dry runs.
func OpenSQLiteMemory(name string) (*gorm.DB, error) {
	db, err := Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)))
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// NewDBConnectionFromDB wraps an already opened handle.
func NewDBConnectionFromDB(db *gorm.DB, driver string, log logger.Logger) *DBConnection {
	return &DBConnection{db: db, config: config.DatabaseConfig{Driver: driver}, logger: log.WithComponent("database")}
}

// DB returns the GORM handle used by the repositories.
func (c *DBConnection) DB() *gorm.DB {
	return c.db
}

// Ping verifies database connectivity and responsiveness.
func (c *DBConnection) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	sqlDB, err := c.db.DB()
	if err != nil {
		return errors.ErrInternal("failed to access database pool").WithCause(err)
	}

	startTime := time.Now()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		c.logger.Error(ctx, "Database ping failed", err)
		return errors.ErrTransient("database unreachable").WithCause(err)
	}

	// Warn if latency is high (> 100ms)
	if latency := time.Since(startTime); latency > 100*time.Millisecond {
		c.logger.Warn(ctx, "High database latency detected",
			logger.Int64("latency_ms", latency.Milliseconds()),
			logger.Int("threshold_ms", 100),
		)
	}
	return nil
}

// HealthCheck pings the database and reports pool statistics.
func (c *DBConnection) HealthCheck(ctx context.Context) (map[string]interface{}, error) {
	if err := c.Ping(ctx); err != nil {
		return nil, err
	}
	sqlDB, _ := c.db.DB()
	stats := sqlDB.Stats()
	return map[string]interface{}{
		"status":           "healthy",
		"driver":           c.config.Driver,
		"open_connections": stats.OpenConnections,
		"in_use":           stats.InUse,
		"idle":             stats.Idle,
	}, nil
}

// Close releases the pool.
func (c *DBConnection) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	c.logger.Info(context.Background(), "Closing database connection pool")
	return sqlDB.Close()
}
