package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/admission-go-api/internal/models"
)

// ErrStaleStatus signals a guarded update matched no row because the status moved underneath it.
var ErrStaleStatus = errors.New("application status changed concurrently")

// StatusChange describes a guarded status update.
type StatusChange struct {
	From             models.ApplicationStatus
	To               models.ApplicationStatus
	At               time.Time
	SetSubmittedAt   bool
	ReviewedBy       *uint
	ApprovalComments *string
}

// ApplicationRepository persists application rows.
type ApplicationRepository interface {
	GetByID(ctx context.Context, id uint) (models.Application, error)
	// GetByIDForUpdate locks the row for the rest of the transaction where the dialect supports it.
	GetByIDForUpdate(ctx context.Context, id uint) (models.Application, error)
	Create(ctx context.Context, application *models.Application) error
	UpdateStatus(ctx context.Context, id uint, change StatusChange) error
	UpdateFields(ctx context.Context, id uint, expected models.ApplicationStatus, fields map[string]interface{}) error
}

type applicationRepository struct {
	db *gorm.DB
}

// NewApplicationRepository instantiates a GORM-backed repository.
func NewApplicationRepository(db *gorm.DB) ApplicationRepository {
	return &applicationRepository{db: db}
}

func (r *applicationRepository) GetByID(ctx context.Context, id uint) (models.Application, error) {
	var application models.Application
	if err := r.db.WithContext(ctx).First(&application, id).Error; err != nil {
		return models.Application{}, err
	}

	return application, nil
}

func (r *applicationRepository) GetByIDForUpdate(ctx context.Context, id uint) (models.Application, error) {
	var application models.Application
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&application, id).Error; err != nil {
		return models.Application{}, err
	}

	return application, nil
}

func (r *applicationRepository) Create(ctx context.Context, application *models.Application) error {
	return r.db.WithContext(ctx).Create(application).Error
}

// UpdateStatus only applies when the row still holds change.From.
func (r *applicationRepository) UpdateStatus(ctx context.Context, id uint, change StatusChange) error {
	updates := map[string]interface{}{
		"status":     change.To,
		"updated_at": change.At,
	}

	query := r.db.WithContext(ctx).Model(&models.Application{}).
		Where("id = ?", id).
		Where("status = ?", change.From)

	if change.SetSubmittedAt {
		// first submit wins, later re-submits keep the original instant
		updates["submitted_at"] = gorm.Expr("COALESCE(submitted_at, ?)", change.At)
	}
	if change.ReviewedBy != nil {
		updates["reviewed_by"] = *change.ReviewedBy
		updates["reviewed_at"] = change.At
	}
	if change.ApprovalComments != nil {
		updates["approval_comments"] = *change.ApprovalComments
	}

	result := query.Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStaleStatus
	}
	return nil
}

// UpdateFields writes content columns only while the row still holds expected.
func (r *applicationRepository) UpdateFields(ctx context.Context, id uint, expected models.ApplicationStatus, fields map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&models.Application{}).
		Where("id = ?", id).
		Where("status = ?", expected).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStaleStatus
	}
	return nil
}
