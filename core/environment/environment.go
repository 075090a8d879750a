// Package environment owns the process-wide runtime configuration snapshot
// and the backend connections it opens.
package environment

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"latke.GO/config"
	"latke.GO/core/logging"
)

// ErrAlreadyInitialized is returned by a second InitRuntimeEnv.
var ErrAlreadyInitialized = errors.New("environment: runtime already initialized")

// ConfigError wraps a misconfiguration found while initializing.
type ConfigError struct {
	Cause error
}

// Error implements the [builtin.error] interface.
func (e ConfigError) Error() string {
	return fmt.Sprintf("invalid runtime configuration: %s", e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e ConfigError) Unwrap() error {
	return e.Cause
}

// Env is the runtime environment. It is written only during
// InitRuntimeEnv and SetLocale and read-only afterwards.
type Env struct {
	cfg *config.Config
	log *zap.Logger

	openDB func(config.DBConfig, *zap.Logger) (*gorm.DB, error)

	mu       sync.RWMutex
	inited   bool
	shutdown bool
	locale   language.Tag
	db       *gorm.DB
	rdb      *redis.Client
}

// Option configures an Env.
type Option func(*Env)

// WithDBOpener replaces config.NewDB.
func WithDBOpener(f func(config.DBConfig, *zap.Logger) (*gorm.DB, error)) Option {
	return func(e *Env) {
		e.openDB = f
	}
}

// New returns an uninitialized Env. The redis client, when configured, is
// created here so session stores can be wired before bootstrap; it only
// dials on first use.
func New(cfg *config.Config, log *zap.Logger, opts ...Option) *Env {
	e := &Env{
		cfg:    cfg,
		log:    logging.OrNop(log),
		openDB: config.NewDB,
		locale: language.Und,
		rdb:    config.NewRedis(cfg.Redis),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// InitRuntimeEnv validates the configuration and opens the relational
// backend when one is configured.
func (e *Env) InitRuntimeEnv(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inited {
		return ErrAlreadyInitialized
	}
	if err := e.cfg.Validate(); err != nil {
		e.releaseRedis()
		return ConfigError{Cause: err}
	}

	e.log.Info("Runtime environment",
		zap.String("mode", string(e.cfg.Mode)),
		zap.String("scanPath", e.cfg.ScanPath),
		zap.String("dbDriver", e.cfg.DB.Driver))

	if e.cfg.DB.Relational() {
		db, err := e.openDB(e.cfg.DB, e.log)
		if err != nil {
			e.releaseRedis()
			return fmt.Errorf("environment: open database: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			e.releaseRedis()
			return fmt.Errorf("environment: database handle: %w", err)
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			_ = sqlDB.Close()
			e.releaseRedis()
			return fmt.Errorf("environment: database connection failed: %w", err)
		}
		e.db = db
		e.log.Info("Database connection successful.")
	}

	if e.rdb != nil {
		if err := e.rdb.Ping(ctx).Err(); err != nil {
			e.log.Warn("Redis configured but not reachable", zap.Error(err))
		} else {
			e.log.Info("Redis connection successful.")
		}
	}

	e.inited = true
	return nil
}

// releaseRedis closes the redis client after a failed init. Callers hold mu.
func (e *Env) releaseRedis() {
	if e.rdb == nil {
		return
	}
	if err := e.rdb.Close(); err != nil {
		e.log.Warn("Redis close failed", zap.Error(err))
	}
	e.rdb = nil
}

// SetLocale sets the default locale.
func (e *Env) SetLocale(tag language.Tag) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.locale = tag
}

// Locale returns the default locale.
func (e *Env) Locale() language.Tag {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.locale
}

// Mode returns the deployment mode.
func (e *Env) Mode() config.Mode {
	return e.cfg.Mode
}

// ScanPath returns the discovery scan path.
func (e *Env) ScanPath() string {
	return e.cfg.ScanPath
}

// RunsWithRelationalBackend reports whether a relational driver is
// configured.
func (e *Env) RunsWithRelationalBackend() bool {
	return e.cfg.DB.Relational()
}

// DB returns the relational backend, or nil when none is open.
func (e *Env) DB() *gorm.DB {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.db
}

// Redis returns the redis client, or nil when redis is not configured or
// a failed init released it.
func (e *Env) Redis() *redis.Client {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.rdb
}

// Shutdown closes the backend connections. It is safe to call more than
// once.
func (e *Env) Shutdown(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.shutdown {
		return nil
	}
	e.shutdown = true

	var errs []error
	if e.db != nil {
		if sqlDB, err := e.db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				errs = append(errs, fmt.Errorf("environment: close database: %w", err))
			}
		}
	}
	if e.rdb != nil {
		if err := e.rdb.Close(); err != nil {
			errs = append(errs, fmt.Errorf("environment: close redis: %w", err))
		}
	}
	e.log.Info("Runtime environment shut down")
	return errors.Join(errs...)
}
