package dto

import (
	"time"

	"github.com/noah-isme/admission-go-api/internal/models"
)

// ApplicationFieldsRequest carries editable content fields. Nil pointers leave a field untouched.
type ApplicationFieldsRequest struct {
	StudentName *string                `json:"student_name" validate:"omitempty,max=255"`
	FatherName  *string                `json:"father_name" validate:"omitempty,max=255"`
	MotherName  *string                `json:"mother_name" validate:"omitempty,max=255"`
	DateOfBirth *string                `json:"date_of_birth" validate:"omitempty,max=32"`
	Gender      *string                `json:"gender" validate:"omitempty,max=32"`
	Mobile      *string                `json:"mobile" validate:"omitempty,max=32"`
	Email       *string                `json:"email" validate:"omitempty,max=255"`
	Details     map[string]interface{} `json:"details"`
}

// IsEmpty reports whether the request changes nothing.
func (r ApplicationFieldsRequest) IsEmpty() bool {
	return r.StudentName == nil && r.FatherName == nil && r.MotherName == nil &&
		r.DateOfBirth == nil && r.Gender == nil && r.Mobile == nil && r.Email == nil &&
		len(r.Details) == 0
}

// CreateApplicationRequest opens a new draft application.
type CreateApplicationRequest struct {
	UserID       uint   `json:"-" validate:"required,gt=0"`
	ProgramID    uint   `json:"program_id" validate:"required,gt=0"`
	AcademicYear string `json:"academic_year" validate:"required,max=16"`
	ApplicationFieldsRequest
}

// SetStatusRequest is the admin review payload.
type SetStatusRequest struct {
	Status   string `json:"status" validate:"required,max=32"`
	Comments string `json:"comments" validate:"max=4000"`
}

// UnfreezeRequest reopens a frozen application.
type UnfreezeRequest struct {
	Reason string `json:"reason" validate:"required,max=4000"`
}

// ApplicationResponse is returned to API clients when viewing applications.
type ApplicationResponse struct {
	ID                uint                   `json:"id"`
	ApplicationNumber string                 `json:"application_number"`
	UserID            uint                   `json:"user_id"`
	ProgramID         uint                   `json:"program_id"`
	AcademicYear      string                 `json:"academic_year"`
	Status            string                 `json:"status"`
	StudentName       string                 `json:"student_name"`
	FatherName        string                 `json:"father_name"`
	MotherName        string                 `json:"mother_name"`
	DateOfBirth       string                 `json:"date_of_birth"`
	Gender            string                 `json:"gender"`
	Mobile            string                 `json:"mobile"`
	Email             string                 `json:"email"`
	Details           map[string]interface{} `json:"details,omitempty"`
	ReviewedBy        *uint                  `json:"reviewed_by"`
	ReviewedAt        *time.Time             `json:"reviewed_at"`
	ApprovalComments  *string                `json:"approval_comments"`
	SubmittedAt       *time.Time             `json:"submitted_at"`
	CreatedAt         time.Time              `json:"created_at"`
	UpdatedAt         time.Time              `json:"updated_at"`
}

// NewApplicationResponse converts an Application model into a DTO.
func NewApplicationResponse(model models.Application) ApplicationResponse {
	response := ApplicationResponse{
		ID:                model.ID,
		ApplicationNumber: model.ApplicationNumber,
		UserID:            model.UserID,
		ProgramID:         model.ProgramID,
		AcademicYear:      model.AcademicYear,
		Status:            string(model.Status),
		StudentName:       model.StudentName,
		FatherName:        model.FatherName,
		MotherName:        model.MotherName,
		DateOfBirth:       model.DateOfBirth,
		Gender:            model.Gender,
		Mobile:            model.Mobile,
		Email:             model.Email,
		ReviewedBy:        model.ReviewedBy,
		ReviewedAt:        model.ReviewedAt,
		ApprovalComments:  model.ApprovalComments,
		SubmittedAt:       model.SubmittedAt,
		CreatedAt:         model.CreatedAt,
		UpdatedAt:         model.UpdatedAt,
	}

	if len(model.Details) > 0 {
		response.Details = map[string]interface{}(model.Details)
	}

	return response
}

// StatusHistoryResponse serializes one audit trail entry.
type StatusHistoryResponse struct {
	ID         uint      `json:"id"`
	FromStatus *string   `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	ChangedBy  uint      `json:"changed_by"`
	Remarks    string    `json:"remarks"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewStatusHistoryResponseSlice converts audit entries, keeping their order.
func NewStatusHistoryResponseSlice(entries []models.StatusHistoryEntry) []StatusHistoryResponse {
	responses := make([]StatusHistoryResponse, 0, len(entries))
	for _, entry := range entries {
		var from *string
		if entry.FromStatus != nil {
			value := string(*entry.FromStatus)
			from = &value
		}
		responses = append(responses, StatusHistoryResponse{
			ID:         entry.ID,
			FromStatus: from,
			ToStatus:   string(entry.ToStatus),
			ChangedBy:  entry.ChangedBy,
			Remarks:    entry.Remarks,
			CreatedAt:  entry.CreatedAt,
		})
	}

	return responses
}

// CompletenessResponse exposes the submission gate breakdown.
type CompletenessResponse struct {
	Submittable         bool     `json:"submittable"`
	MissingFields       []string `json:"missing_fields"`
	MissingCertificates []uint   `json:"missing_certificates"`
}
