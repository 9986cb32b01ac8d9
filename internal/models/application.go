package models

import (
	"time"

	"gorm.io/datatypes"
)

// ApplicationStatus is the closed set of states an application can hold.
type ApplicationStatus string

const (
	ApplicationStatusDraft       ApplicationStatus = "draft"
	ApplicationStatusSubmitted   ApplicationStatus = "submitted"
	ApplicationStatusUnderReview ApplicationStatus = "under_review"
	ApplicationStatusApproved    ApplicationStatus = "approved"
	ApplicationStatusRejected    ApplicationStatus = "rejected"
	ApplicationStatusFrozen      ApplicationStatus = "frozen"
	ApplicationStatusCancelled   ApplicationStatus = "cancelled"
)

var applicationStatuses = []ApplicationStatus{
	ApplicationStatusDraft,
	ApplicationStatusSubmitted,
	ApplicationStatusUnderReview,
	ApplicationStatusApproved,
	ApplicationStatusRejected,
	ApplicationStatusFrozen,
	ApplicationStatusCancelled,
}

// ParseApplicationStatus converts raw input into a known status.
func ParseApplicationStatus(raw string) (ApplicationStatus, bool) {
	for _, status := range applicationStatuses {
		if string(status) == raw {
			return status, true
		}
	}
	return "", false
}

// IsTerminal reports whether no further lifecycle action may leave this status.
func (s ApplicationStatus) IsTerminal() bool {
	switch s {
	case ApplicationStatusApproved, ApplicationStatusRejected, ApplicationStatusCancelled:
		return true
	default:
		return false
	}
}

// IsEditable reports whether the owner may still change content fields.
func (s ApplicationStatus) IsEditable() bool {
	return s == ApplicationStatusDraft || s == ApplicationStatusFrozen
}

// Application is one student's submission to one program for one admission cycle.
type Application struct {
	ID                uint              `gorm:"primaryKey" json:"id"`
	ApplicationNumber string            `gorm:"size:32;uniqueIndex;not null" json:"application_number"`
	UserID            uint              `gorm:"not null;index" json:"user_id"`
	ProgramID         uint              `gorm:"not null;index" json:"program_id"`
	AcademicYear      string            `gorm:"size:16;not null" json:"academic_year"`
	Status            ApplicationStatus `gorm:"size:32;not null;index" json:"status"`
	StudentName       string            `gorm:"size:255" json:"student_name"`
	FatherName        string            `gorm:"size:255" json:"father_name"`
	MotherName        string            `gorm:"size:255" json:"mother_name"`
	DateOfBirth       string            `gorm:"size:32" json:"date_of_birth"`
	Gender            string            `gorm:"size:32" json:"gender"`
	Mobile            string            `gorm:"size:32" json:"mobile"`
	Email             string            `gorm:"size:255" json:"email"`
	Details           datatypes.JSONMap `gorm:"type:json" json:"details"`
	ReviewedBy        *uint             `json:"reviewed_by"`
	ReviewedAt        *time.Time        `json:"reviewed_at"`
	ApprovalComments  *string           `gorm:"type:text" json:"approval_comments"`
	SubmittedAt       *time.Time        `json:"submitted_at"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}
