package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/admission-go-api/internal/models"
)

// StatusHistoryRepository is the append-only audit trail of status transitions.
type StatusHistoryRepository interface {
	Append(ctx context.Context, entry *models.StatusHistoryEntry) error
	ListByApplication(ctx context.Context, applicationID uint) ([]models.StatusHistoryEntry, error)
}

type statusHistoryRepository struct {
	db *gorm.DB
}

// NewStatusHistoryRepository constructs the audit trail repository.
func NewStatusHistoryRepository(db *gorm.DB) StatusHistoryRepository {
	return &statusHistoryRepository{db: db}
}

func (r *statusHistoryRepository) Append(ctx context.Context, entry *models.StatusHistoryEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *statusHistoryRepository) ListByApplication(ctx context.Context, applicationID uint) ([]models.StatusHistoryEntry, error) {
	var entries []models.StatusHistoryEntry
	if err := r.db.WithContext(ctx).
		Where("application_id = ?", applicationID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}

	return entries, nil
}
