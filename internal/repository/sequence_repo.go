package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/admission-go-api/internal/models"
)

// SequenceRepository issues per-prefix, per-year application sequence numbers.
type SequenceRepository interface {
	// Next must run inside the transaction that inserts the application.
	Next(ctx context.Context, prefix string, year int) (int, error)
}

type sequenceRepository struct {
	db *gorm.DB
}

// NewSequenceRepository constructs the counter repository.
func NewSequenceRepository(db *gorm.DB) SequenceRepository {
	return &sequenceRepository{db: db}
}

func (r *sequenceRepository) Next(ctx context.Context, prefix string, year int) (int, error) {
	db := r.db.WithContext(ctx)

	// Seed a missing counter from numbers issued before the counter existed.
	var existing int64
	pattern := fmt.Sprintf("%s%d%%", prefix, year)
	if err := db.Model(&models.Application{}).
		Where("application_number LIKE ?", pattern).
		Count(&existing).Error; err != nil {
		return 0, err
	}

	seed := models.ApplicationSequence{Prefix: prefix, Year: year, LastValue: int(existing)}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return 0, err
	}

	var counter models.ApplicationSequence
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("prefix = ? AND year = ?", prefix, year).
		First(&counter).Error; err != nil {
		return 0, err
	}

	next := counter.LastValue + 1
	if err := db.Model(&models.ApplicationSequence{}).
		Where("prefix = ? AND year = ?", prefix, year).
		Update("last_value", next).Error; err != nil {
		return 0, err
	}

	return next, nil
}
