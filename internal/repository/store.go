package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store groups the repositories the lifecycle needs so they can share one transaction.
type Store interface {
	Applications() ApplicationRepository
	StatusHistory() StatusHistoryRepository
	Programs() ProgramRepository
	Documents() DocumentRepository
	Sequences() SequenceRepository
	// WithinTransaction runs fn against a Store bound to a single transaction.
	// The transaction commits when fn returns nil and rolls back otherwise.
	WithinTransaction(ctx context.Context, fn func(tx Store) error) error
}

type gormStore struct {
	db *gorm.DB
}

// NewStore builds a GORM-backed Store.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Applications() ApplicationRepository {
	return NewApplicationRepository(s.db)
}

func (s *gormStore) StatusHistory() StatusHistoryRepository {
	return NewStatusHistoryRepository(s.db)
}

func (s *gormStore) Programs() ProgramRepository {
	return NewProgramRepository(s.db)
}

func (s *gormStore) Documents() DocumentRepository {
	return NewDocumentRepository(s.db)
}

func (s *gormStore) Sequences() SequenceRepository {
	return NewSequenceRepository(s.db)
}

func (s *gormStore) WithinTransaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}
