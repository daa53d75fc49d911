package db

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pagedrop/internal/config"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type openOptions struct {
	now      func() time.Time
	logLevel logger.LogLevel
}

// Option customises Open.
type Option func(*openOptions)

// WithNowFunc overrides the clock used for created_at/updated_at.
func WithNowFunc(now func() time.Time) Option {
	return func(o *openOptions) {
		o.now = now
	}
}

// WithLogLevel sets the gorm logger level.
func WithLogLevel(level logger.LogLevel) Option {
	return func(o *openOptions) {
		o.logLevel = level
	}
}

// Open 根据配置连接 sqlite 或 postgres，并执行自动迁移。
func Open(cfg config.DatabaseConfig, opts ...Option) (*gorm.DB, error) {
	options := openOptions{logLevel: logger.Warn}
	for _, opt := range opts {
		opt(&options)
	}

	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		// 唯一约束冲突统一翻译为 gorm.ErrDuplicatedKey
		TranslateError: true,
		NowFunc:        options.now,
		Logger:         logger.Default.LogMode(options.logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Driver, err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := Migrate(gdb); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return gdb, nil
}

// Migrate creates or updates the schema.
func Migrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(&Page{}); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func Close(gdb *gorm.DB) error {
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func dialectorFor(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "", "sqlite":
		path := strings.TrimSpace(cfg.Path)
		if path == "" {
			path = "pagedrop.db"
		}
		if !isSQLiteURI(path) {
			if err := ensureParentDir(path); err != nil {
				return nil, err
			}
			path += "?_busy_timeout=5000&_journal_mode=WAL"
		}
		return sqlite.Open(path), nil
	case "postgres":
		return postgres.Open(cfg.DSN()), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func isSQLiteURI(path string) bool {
	return strings.HasPrefix(path, "file:") || strings.Contains(path, ":memory:") || strings.Contains(path, "?")
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}

	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return errors.New("database path parent is not a directory")
		}
		return nil
	}

	if os.IsNotExist(err) {
		return os.MkdirAll(dir, 0o755)
	}

	return err
}
