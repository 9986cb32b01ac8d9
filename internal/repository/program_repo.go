package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/noah-isme/admission-go-api/internal/models"
)

// ProgramDirectory is the read-only view of program metadata consumed by the lifecycle.
type ProgramDirectory interface {
	GetProgram(ctx context.Context, id uint) (models.Program, error)
	ProgramCode(ctx context.Context, id uint) (string, error)
	CertificateRequirements(ctx context.Context, programID uint) ([]models.CertificateRequirement, error)
}

// ProgramRepository adds the writes used when provisioning programs.
type ProgramRepository interface {
	ProgramDirectory
	Create(ctx context.Context, program *models.Program) error
	CreateCertificateType(ctx context.Context, certificateType *models.CertificateType) error
	AddRequirement(ctx context.Context, requirement *models.CertificateRequirement) error
}

type programRepository struct {
	db *gorm.DB
}

// NewProgramRepository constructs the program repository.
func NewProgramRepository(db *gorm.DB) ProgramRepository {
	return &programRepository{db: db}
}

func (r *programRepository) GetProgram(ctx context.Context, id uint) (models.Program, error) {
	var program models.Program
	if err := r.db.WithContext(ctx).First(&program, id).Error; err != nil {
		return models.Program{}, err
	}

	return program, nil
}

func (r *programRepository) ProgramCode(ctx context.Context, id uint) (string, error) {
	program, err := r.GetProgram(ctx, id)
	if err != nil {
		return "", err
	}

	return strings.ToUpper(strings.TrimSpace(program.Code)), nil
}

func (r *programRepository) CertificateRequirements(ctx context.Context, programID uint) ([]models.CertificateRequirement, error) {
	var requirements []models.CertificateRequirement
	if err := r.db.WithContext(ctx).
		Where("program_id = ?", programID).
		Order("certificate_type_id ASC").
		Find(&requirements).Error; err != nil {
		return nil, err
	}

	return requirements, nil
}

func (r *programRepository) Create(ctx context.Context, program *models.Program) error {
	return r.db.WithContext(ctx).Create(program).Error
}

func (r *programRepository) CreateCertificateType(ctx context.Context, certificateType *models.CertificateType) error {
	return r.db.WithContext(ctx).Create(certificateType).Error
}

func (r *programRepository) AddRequirement(ctx context.Context, requirement *models.CertificateRequirement) error {
	return r.db.WithContext(ctx).Create(requirement).Error
}
