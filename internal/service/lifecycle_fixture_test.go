package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/admission-go-api/internal/dto"
	"github.com/noah-isme/admission-go-api/internal/models"
	"github.com/noah-isme/admission-go-api/internal/repository"
)

var (
	studentActor      = Actor{ID: 7, Role: RoleStudent}
	otherStudentActor = Actor{ID: 8, Role: RoleStudent}
	adminActor        = Actor{ID: 1, Role: RoleAdmin}
	programAdminActor = Actor{ID: 50, Role: RoleProgramAdmin}
	strangerAdmin     = Actor{ID: 51, Role: RoleProgramAdmin}
)

type lifecycleFixture struct {
	db        *gorm.DB
	store     repository.Store
	program   models.Program
	marksheet models.CertificateType
	photo     models.CertificateType
	events    *recordingPublisher
	clock     time.Time
	service   *lifecycleService
}

func setupLifecycleFixture(t *testing.T) *lifecycleFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.AllModels()...))

	store := repository.NewStore(db)
	ctx := context.Background()

	adminID := programAdminActor.ID
	program := models.Program{Code: "BCA", Name: "Bachelor of Computer Applications", AdminID: &adminID, IsActive: true}
	require.NoError(t, store.Programs().Create(ctx, &program))

	marksheet := models.CertificateType{Name: "Class 12 Marksheet"}
	photo := models.CertificateType{Name: "Photograph"}
	require.NoError(t, store.Programs().CreateCertificateType(ctx, &marksheet))
	require.NoError(t, store.Programs().CreateCertificateType(ctx, &photo))
	require.NoError(t, store.Programs().AddRequirement(ctx, &models.CertificateRequirement{ProgramID: program.ID, CertificateTypeID: marksheet.ID, IsRequired: true}))
	require.NoError(t, store.Programs().AddRequirement(ctx, &models.CertificateRequirement{ProgramID: program.ID, CertificateTypeID: photo.ID, IsRequired: false}))

	fx := &lifecycleFixture{
		db:        db,
		store:     store,
		program:   program,
		marksheet: marksheet,
		photo:     photo,
		events:    &recordingPublisher{},
		clock:     time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
	}
	fx.service = fx.newService(store, nil, nil)
	return fx
}

// newService builds a lifecycle service bound to the fixture clock.
func (fx *lifecycleFixture) newService(store repository.Store, documents repository.DocumentStore, numbers *NumberGenerator) *lifecycleService {
	svc := NewLifecycleService(store, nil, documents, numbers, fx.events, validator.New(), zerolog.Nop()).(*lifecycleService)
	svc.now = func() time.Time { return fx.clock }
	return svc
}

func (fx *lifecycleFixture) advance(d time.Duration) {
	fx.clock = fx.clock.Add(d)
}

func (fx *lifecycleFixture) createDraft(t *testing.T, actor Actor, fields dto.ApplicationFieldsRequest) dto.ApplicationResponse {
	t.Helper()

	application, err := fx.service.Create(context.Background(), dto.CreateApplicationRequest{
		UserID:                   actor.ID,
		ProgramID:                fx.program.ID,
		AcademicYear:             "2025-2026",
		ApplicationFieldsRequest: fields,
	}, actor)
	require.NoError(t, err)
	return application
}

func (fx *lifecycleFixture) upload(t *testing.T, applicationID, certificateTypeID uint) {
	t.Helper()

	record := models.DocumentRecord{ApplicationID: applicationID, CertificateTypeID: certificateTypeID, FilePath: "uploads/certificate.pdf"}
	require.NoError(t, fx.store.Documents().Create(context.Background(), &record))
}

// submittedApplication returns a complete draft that has been submitted by its owner.
func (fx *lifecycleFixture) submittedApplication(t *testing.T) dto.ApplicationResponse {
	t.Helper()

	draft := fx.createDraft(t, studentActor, completeFields())
	fx.upload(t, draft.ID, fx.marksheet.ID)

	submitted, err := fx.service.Submit(context.Background(), draft.ID, studentActor)
	require.NoError(t, err)
	return submitted
}

func (fx *lifecycleFixture) history(t *testing.T, applicationID uint) []models.StatusHistoryEntry {
	t.Helper()

	entries, err := fx.store.StatusHistory().ListByApplication(context.Background(), applicationID)
	require.NoError(t, err)
	return entries
}

func (fx *lifecycleFixture) reload(t *testing.T, applicationID uint) models.Application {
	t.Helper()

	application, err := fx.store.Applications().GetByID(context.Background(), applicationID)
	require.NoError(t, err)
	return application
}

func strPtr(value string) *string {
	return &value
}

func completeFields() dto.ApplicationFieldsRequest {
	return dto.ApplicationFieldsRequest{
		StudentName: strPtr("Asha Rao"),
		FatherName:  strPtr("Vikram Rao"),
		MotherName:  strPtr("Meera Rao"),
		DateOfBirth: strPtr("2006-02-14"),
		Gender:      strPtr("female"),
		Mobile:      strPtr("9876543210"),
		Email:       strPtr("asha@example.com"),
		Details:     map[string]interface{}{"city": "Pune"},
	}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []StatusChangedEvent
}

func (p *recordingPublisher) PublishStatusChanged(ctx context.Context, event StatusChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) recorded() []StatusChangedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]StatusChangedEvent(nil), p.events...)
}

type failingPublisher struct{}

func (failingPublisher) PublishStatusChanged(context.Context, StatusChangedEvent) error {
	return errors.New("nats unavailable")
}

// failingHistoryStore makes every audit append fail so transaction rollback can be observed.
type failingHistoryStore struct {
	repository.Store
}

func (s failingHistoryStore) StatusHistory() repository.StatusHistoryRepository {
	return failingHistoryRepository{}
}

func (s failingHistoryStore) WithinTransaction(ctx context.Context, fn func(tx repository.Store) error) error {
	return s.Store.WithinTransaction(ctx, func(tx repository.Store) error {
		return fn(failingHistoryStore{Store: tx})
	})
}

type failingHistoryRepository struct{}

func (failingHistoryRepository) Append(context.Context, *models.StatusHistoryEntry) error {
	return errors.New("disk full")
}

func (failingHistoryRepository) ListByApplication(context.Context, uint) ([]models.StatusHistoryEntry, error) {
	return nil, nil
}

// barrierDocuments holds every caller until parties callers have checked a document.
type barrierDocuments struct {
	inner   repository.DocumentStore
	arrived sync.WaitGroup
}

func newBarrierDocuments(inner repository.DocumentStore, parties int) *barrierDocuments {
	b := &barrierDocuments{inner: inner}
	b.arrived.Add(parties)
	return b
}

func (b *barrierDocuments) HasDocument(ctx context.Context, applicationID, certificateTypeID uint) (bool, error) {
	present, err := b.inner.HasDocument(ctx, applicationID, certificateTypeID)
	b.arrived.Done()

	released := make(chan struct{})
	go func() {
		b.arrived.Wait()
		close(released)
	}()

	select {
	case <-released:
	case <-time.After(5 * time.Second):
		return false, errors.New("barrier timed out")
	}
	return present, err
}
