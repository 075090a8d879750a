package visit

import "time"

// PageVisit represents latke_page_visit table
type PageVisit struct {
	VisitID   uint      `gorm:"column:visit_id;primaryKey;autoIncrement" json:"visit_id,omitempty"`
	Path      string    `gorm:"column:path;type:varchar(255);not null;index" json:"path"`
	SessionID string    `gorm:"column:session_id;type:varchar(64);not null;default:''" json:"session_id"`
	CreatedAt time.Time `gorm:"column:created_at;not null" json:"created_at"`
}

func (PageVisit) TableName() string {
	return "latke_page_visit"
}
