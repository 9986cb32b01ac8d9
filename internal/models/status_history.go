package models

import "time"

// StatusHistoryEntry is an immutable record of one status transition.
type StatusHistoryEntry struct {
	ID            uint               `gorm:"primaryKey" json:"id"`
	ApplicationID uint               `gorm:"not null;index" json:"application_id"`
	FromStatus    *ApplicationStatus `gorm:"size:32" json:"from_status"`
	ToStatus      ApplicationStatus  `gorm:"size:32;not null" json:"to_status"`
	ChangedBy     uint               `gorm:"not null" json:"changed_by"`
	Remarks       string             `gorm:"type:text" json:"remarks"`
	CreatedAt     time.Time          `gorm:"index" json:"created_at"`
}

// TableName pins the audit table name.
func (StatusHistoryEntry) TableName() string {
	return "application_status_history"
}
