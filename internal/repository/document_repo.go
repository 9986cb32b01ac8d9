package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/admission-go-api/internal/models"
)

// DocumentStore answers whether a certificate has been uploaded for an application.
type DocumentStore interface {
	HasDocument(ctx context.Context, applicationID, certificateTypeID uint) (bool, error)
}

// DocumentRepository persists uploaded document records.
type DocumentRepository interface {
	DocumentStore
	Create(ctx context.Context, record *models.DocumentRecord) error
	ListByApplication(ctx context.Context, applicationID uint) ([]models.DocumentRecord, error)
}

type documentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository constructs a repository for document records.
func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) HasDocument(ctx context.Context, applicationID, certificateTypeID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.DocumentRecord{}).
		Where("application_id = ?", applicationID).
		Where("certificate_type_id = ?", certificateTypeID).
		Count(&count).Error; err != nil {
		return false, err
	}

	return count > 0, nil
}

func (r *documentRepository) Create(ctx context.Context, record *models.DocumentRecord) error {
	if record.VerificationStatus == "" {
		record.VerificationStatus = models.DocumentStatusPending
	}
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *documentRepository) ListByApplication(ctx context.Context, applicationID uint) ([]models.DocumentRecord, error) {
	var records []models.DocumentRecord
	if err := r.db.WithContext(ctx).
		Where("application_id = ?", applicationID).
		Order("created_at ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}

	return records, nil
}
