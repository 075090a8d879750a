package visit

import (
	"gorm.io/gorm"

	visitEntity "latke.GO/model/entity/visit"
)

// VisitRepository records page visits. It is bound to one handle, usually
// the request handle from repository.Guard.
type VisitRepository struct {
	db *gorm.DB
}

func NewVisitRepository(db *gorm.DB) *VisitRepository {
	return &VisitRepository{db: db}
}

// Migrate creates the visit table
func (r *VisitRepository) Migrate() error {
	return r.db.AutoMigrate(&visitEntity.PageVisit{})
}

// Record inserts one visit
func (r *VisitRepository) Record(v *visitEntity.PageVisit) error {
	return r.db.Create(v).Error
}

// CountByPath returns the number of visits recorded for path
func (r *VisitRepository) CountByPath(path string) (int64, error) {
	var n int64
	err := r.db.Model(&visitEntity.PageVisit{}).Where("path = ?", path).Count(&n).Error
	return n, err
}

// Recent returns the latest visits, newest first
func (r *VisitRepository) Recent(limit int) ([]visitEntity.PageVisit, error) {
	var items []visitEntity.PageVisit
	err := r.db.Order("visit_id DESC").Limit(limit).Find(&items).Error
	return items, err
}
