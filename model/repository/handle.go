// Package repository hands out request-scoped database handles and
// releases them at request end.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"gorm.io/gorm"
)

var (
	// ErrNoBackend is returned by Handle when no relational backend is open.
	ErrNoBackend = errors.New("repository: no relational backend")
	// ErrNoRequestScope is returned by Handle outside of a request scope.
	ErrNoRequestScope = errors.New("repository: no request scope in context")
	// ErrDisposed is returned by Handle after the request handle was released.
	ErrDisposed = errors.New("repository: request handle already disposed")
)

// DBSource yields the process database. It returns nil until the runtime
// environment opened it.
type DBSource interface {
	DB() *gorm.DB
}

// holder is the per-request slot. It is owned by one request.
type holder struct {
	mu       sync.Mutex
	conn     *sql.Conn
	db       *gorm.DB
	disposed bool
}

type scopeKey struct{}

// WithRequestScope returns a child context with an empty handle slot.
// The host installs it at request start.
func WithRequestScope(ctx context.Context) context.Context {
	return context.WithValue(ctx, scopeKey{}, &holder{})
}

func scopeFrom(ctx context.Context) (*holder, bool) {
	h, ok := ctx.Value(scopeKey{}).(*holder)
	return h, ok
}

// Guard acquires and disposes request handles.
type Guard struct {
	src DBSource
}

// NewGuard returns a Guard over src.
func NewGuard(src DBSource) *Guard {
	return &Guard{src: src}
}

// Handle returns the request's database handle, checking out a dedicated
// connection on first use. Every later call in the same request returns
// the same handle.
func (g *Guard) Handle(ctx context.Context) (*gorm.DB, error) {
	h, ok := scopeFrom(ctx)
	if !ok {
		return nil, ErrNoRequestScope
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.disposed {
		return nil, ErrDisposed
	}
	if h.db != nil {
		return h.db, nil
	}

	db := g.src.DB()
	if db == nil {
		return nil, ErrNoBackend
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("repository: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("repository: checkout connection: %w", err)
	}

	tx := db.WithContext(ctx)
	tx.Statement.ConnPool = conn
	h.conn = conn
	h.db = tx
	return tx, nil
}

// Dispose releases the request's handle. It is safe to call without a
// scope, without a handle, and more than once.
func (g *Guard) Dispose(ctx context.Context) error {
	h, ok := scopeFrom(ctx)
	if !ok {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.disposed {
		return nil
	}
	h.disposed = true
	h.db = nil
	if h.conn == nil {
		return nil
	}
	conn := h.conn
	h.conn = nil
	if err := conn.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("repository: release connection: %w", err)
	}
	return nil
}
