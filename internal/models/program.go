package models

import "time"

// Program is an admission program, such as BCA, that students apply to.
type Program struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Code      string    `gorm:"size:16;not null" json:"code"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	AdminID   *uint     `gorm:"index" json:"admin_id"`
	IsActive  bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CertificateType names a kind of supporting document, e.g. "Class 12 Marksheet".
type CertificateType struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// CertificateRequirement attaches a certificate type to a program.
type CertificateRequirement struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	ProgramID         uint      `gorm:"not null;uniqueIndex:idx_program_certificate" json:"program_id"`
	CertificateTypeID uint      `gorm:"not null;uniqueIndex:idx_program_certificate" json:"certificate_type_id"`
	IsRequired        bool      `gorm:"not null;default:false" json:"is_required"`
	CreatedAt         time.Time `json:"created_at"`
}

// TableName keeps the legacy join table name.
func (CertificateRequirement) TableName() string {
	return "program_certificates"
}
