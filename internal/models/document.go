package models

import "time"

const (
	DocumentStatusPending  = "pending"
	DocumentStatusVerified = "verified"
	DocumentStatusRejected = "rejected"
)

// DocumentRecord is one uploaded file against an (application, certificate type) pair.
type DocumentRecord struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	ApplicationID      uint       `gorm:"not null;index:idx_document_application_certificate" json:"application_id"`
	CertificateTypeID  uint       `gorm:"not null;index:idx_document_application_certificate" json:"certificate_type_id"`
	FilePath           string     `gorm:"size:512" json:"file_path"`
	VerificationStatus string     `gorm:"size:32;not null;default:pending" json:"verification_status"`
	VerifiedBy         *uint      `json:"verified_by"`
	VerifiedAt         *time.Time `json:"verified_at"`
	CreatedAt          time.Time  `json:"created_at"`
}

// TableName maps records onto the uploads table.
func (DocumentRecord) TableName() string {
	return "application_documents"
}
