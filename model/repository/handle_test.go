package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type staticSource struct{ db *gorm.DB }

func (s staticSource) DB() *gorm.DB { return s.db }

func testDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "handles.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

type note struct {
	ID   uint
	Body string
}

func TestGuard_HandleAndDispose(t *testing.T) {
	db := testDB(t)
	if err := db.AutoMigrate(&note{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	g := NewGuard(staticSource{db})
	ctx := WithRequestScope(context.Background())

	h1, err := g.Handle(ctx)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	h2, _ := g.Handle(ctx)
	if h1 != h2 {
		t.Error("Handle returned a different handle within the same request")
	}
	if err := h1.Create(&note{Body: "hi"}).Error; err != nil {
		t.Fatalf("Create through request handle: %v", err)
	}

	sqlDB, _ := db.DB()
	if inUse := sqlDB.Stats().InUse; inUse != 1 {
		t.Errorf("InUse before dispose = %d, want 1", inUse)
	}
	if err := g.Dispose(ctx); err != nil {
		t.Fatalf("Dispose: %v", err)
	}
	if inUse := sqlDB.Stats().InUse; inUse != 0 {
		t.Errorf("InUse after dispose = %d, want 0", inUse)
	}

	// idempotent
	if err := g.Dispose(ctx); err != nil {
		t.Errorf("second Dispose: %v", err)
	}
	if _, err := g.Handle(ctx); !errors.Is(err, ErrDisposed) {
		t.Errorf("Handle after Dispose = %v, want ErrDisposed", err)
	}

	var count int64
	db.Model(&note{}).Count(&count)
	if count != 1 {
		t.Errorf("notes = %d, want 1", count)
	}
}

func TestGuard_DisposeWithoutHandle(t *testing.T) {
	g := NewGuard(staticSource{})
	if err := g.Dispose(context.Background()); err != nil {
		t.Errorf("Dispose without scope: %v", err)
	}
	if err := g.Dispose(WithRequestScope(context.Background())); err != nil {
		t.Errorf("Dispose without handle: %v", err)
	}
}

func TestGuard_HandleErrors(t *testing.T) {
	g := NewGuard(staticSource{})
	if _, err := g.Handle(context.Background()); !errors.Is(err, ErrNoRequestScope) {
		t.Errorf("Handle without scope = %v, want ErrNoRequestScope", err)
	}
	if _, err := g.Handle(WithRequestScope(context.Background())); !errors.Is(err, ErrNoBackend) {
		t.Errorf("Handle without backend = %v, want ErrNoBackend", err)
	}
}
