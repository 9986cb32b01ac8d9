package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/noah-isme/admission-go-api/internal/models"
	"github.com/noah-isme/admission-go-api/internal/repository"
)

// ErrIncompleteApplication indicates the application failed the submission gate.
var ErrIncompleteApplication = errors.New("application is incomplete")

// CompletenessReport breaks down why an application may not be submittable.
type CompletenessReport struct {
	MissingFields       []string
	MissingCertificates []uint
}

// Complete reports whether both the field and document checks passed.
func (r CompletenessReport) Complete() bool {
	return len(r.MissingFields) == 0 && len(r.MissingCertificates) == 0
}

// IncompleteApplicationError carries the gate report of a rejected submission.
type IncompleteApplicationError struct {
	Report CompletenessReport
}

func (e *IncompleteApplicationError) Error() string {
	parts := make([]string, 0, 2)
	if len(e.Report.MissingFields) > 0 {
		parts = append(parts, "missing fields: "+strings.Join(e.Report.MissingFields, ", "))
	}
	if len(e.Report.MissingCertificates) > 0 {
		parts = append(parts, fmt.Sprintf("missing certificates: %v", e.Report.MissingCertificates))
	}
	return ErrIncompleteApplication.Error() + " (" + strings.Join(parts, "; ") + ")"
}

func (e *IncompleteApplicationError) Unwrap() error {
	return ErrIncompleteApplication
}

// CompletenessGate decides whether a draft may be submitted.
type CompletenessGate struct {
	directory repository.ProgramDirectory
	documents repository.DocumentStore
}

// NewCompletenessGate wires the gate to its read-only collaborators.
func NewCompletenessGate(directory repository.ProgramDirectory, documents repository.DocumentStore) *CompletenessGate {
	return &CompletenessGate{directory: directory, documents: documents}
}

// Evaluate runs the field and document checks and returns the breakdown.
func (g *CompletenessGate) Evaluate(ctx context.Context, application models.Application) (CompletenessReport, error) {
	report := CompletenessReport{MissingFields: missingPersonalFields(application)}

	requirements, err := g.directory.CertificateRequirements(ctx, application.ProgramID)
	if err != nil {
		return CompletenessReport{}, fmt.Errorf("load certificate requirements: %w", err)
	}

	for _, requirement := range requirements {
		if !requirement.IsRequired {
			continue
		}
		present, err := g.documents.HasDocument(ctx, application.ID, requirement.CertificateTypeID)
		if err != nil {
			return CompletenessReport{}, fmt.Errorf("check certificate %d: %w", requirement.CertificateTypeID, err)
		}
		if !present {
			report.MissingCertificates = append(report.MissingCertificates, requirement.CertificateTypeID)
		}
	}

	return report, nil
}

// IsSubmittable is the boolean form of Evaluate.
func (g *CompletenessGate) IsSubmittable(ctx context.Context, application models.Application) (bool, error) {
	report, err := g.Evaluate(ctx, application)
	if err != nil {
		return false, err
	}
	return report.Complete(), nil
}

func missingPersonalFields(application models.Application) []string {
	required := []struct {
		name  string
		value string
	}{
		{"student_name", application.StudentName},
		{"father_name", application.FatherName},
		{"mother_name", application.MotherName},
		{"date_of_birth", application.DateOfBirth},
		{"gender", application.Gender},
		{"mobile", application.Mobile},
		{"email", application.Email},
	}

	var missing []string
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			missing = append(missing, field.name)
		}
	}
	return missing
}
