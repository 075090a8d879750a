package visit

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	visitEntity "latke.GO/model/entity/visit"
)

func TestVisitRepository(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "visits.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	repo := NewVisitRepository(db)
	if err := repo.Migrate(); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	for _, p := range []string{"/a", "/b", "/a"} {
		if err := repo.Record(&visitEntity.PageVisit{Path: p, CreatedAt: time.Now()}); err != nil {
			t.Fatalf("Record(%s): %v", p, err)
		}
	}
	n, err := repo.CountByPath("/a")
	if err != nil {
		t.Fatalf("CountByPath: %v", err)
	}
	if n != 2 {
		t.Errorf("CountByPath(/a) = %d, want 2", n)
	}
	recent, err := repo.Recent(2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 2 || recent[0].Path != "/a" || recent[1].Path != "/b" {
		t.Errorf("Recent(2) = %+v, want [/a /b]", recent)
	}
}
