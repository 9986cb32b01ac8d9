package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/admission-go-api/internal/dto"
	"github.com/noah-isme/admission-go-api/internal/models"
	"github.com/noah-isme/admission-go-api/internal/observability"
	"github.com/noah-isme/admission-go-api/internal/repository"
)

var (
	// ErrApplicationNotFound indicates the application could not be located.
	ErrApplicationNotFound = errors.New("application not found")
	// ErrApplicationForbidden indicates the actor may not act on the application.
	ErrApplicationForbidden = errors.New("application not accessible to actor")
	// ErrConcurrentModification indicates a guarded update lost a race. Callers may re-fetch and retry.
	ErrConcurrentModification = errors.New("application was modified concurrently")
	// ErrPersistence indicates the transaction could not be committed.
	ErrPersistence = errors.New("failed to persist application change")
	// ErrUnknownStatus indicates a status name outside the lifecycle's enumeration.
	ErrUnknownStatus = errors.New("unknown application status")
)

const (
	remarksCreated   = "application created"
	remarksSubmitted = "submitted by applicant"
	remarksFrozen    = "frozen by applicant"
)

// LifecycleService owns application status and every legal transition.
type LifecycleService interface {
	Create(ctx context.Context, payload dto.CreateApplicationRequest, actor Actor) (dto.ApplicationResponse, error)
	Get(ctx context.Context, id uint, actor Actor) (dto.ApplicationResponse, error)
	UpdateDraftFields(ctx context.Context, id uint, payload dto.ApplicationFieldsRequest, actor Actor) (dto.ApplicationResponse, error)
	Submit(ctx context.Context, id uint, actor Actor) (dto.ApplicationResponse, error)
	Freeze(ctx context.Context, id uint, actor Actor) (dto.ApplicationResponse, error)
	Unfreeze(ctx context.Context, id uint, actor Actor, reason string) (dto.ApplicationResponse, error)
	SetStatus(ctx context.Context, id uint, target string, actor Actor, comments string) (dto.ApplicationResponse, error)
	History(ctx context.Context, id uint, actor Actor) ([]dto.StatusHistoryResponse, error)
	Completeness(ctx context.Context, id uint, actor Actor) (dto.CompletenessResponse, error)
}

type lifecycleService struct {
	store     repository.Store
	directory repository.ProgramDirectory
	gate      *CompletenessGate
	numbers   *NumberGenerator
	events    StatusEventPublisher
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewLifecycleService constructs the lifecycle service. directory and documents default to the
// store's own repositories; numbers defaults to a generator with the GEN fallback.
func NewLifecycleService(store repository.Store, directory repository.ProgramDirectory, documents repository.DocumentStore, numbers *NumberGenerator, events StatusEventPublisher, validate *validator.Validate, logger zerolog.Logger) LifecycleService {
	if directory == nil {
		directory = store.Programs()
	}
	if documents == nil {
		documents = store.Documents()
	}
	if numbers == nil {
		numbers = NewNumberGenerator(directory, DefaultFallbackCode, logger)
	}

	return &lifecycleService{
		store:     store,
		directory: directory,
		gate:      NewCompletenessGate(directory, documents),
		numbers:   numbers,
		events:    events,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "lifecycle_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/admission-go-api/internal/service/lifecycle"),
		now:       time.Now,
	}
}

func (s *lifecycleService) Create(ctx context.Context, payload dto.CreateApplicationRequest, actor Actor) (dto.ApplicationResponse, error) {
	ctx, span := s.startSpan(ctx, TriggerCreate, 0, actor)
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		return s.fail(span, TriggerCreate, err)
	}
	if !actor.IsRecognised() || (actor.IsStudent() && payload.UserID != actor.ID) {
		return s.fail(span, TriggerCreate, ErrApplicationForbidden)
	}
	if err := checkTransition(TriggerCreate, "", models.ApplicationStatusDraft); err != nil {
		return s.fail(span, TriggerCreate, err)
	}

	prefix, err := s.numbers.Prefix(ctx, payload.ProgramID)
	if err != nil {
		return s.fail(span, TriggerCreate, err)
	}

	now := s.now().UTC()
	application := models.Application{
		UserID:       payload.UserID,
		ProgramID:    payload.ProgramID,
		AcademicYear: strings.TrimSpace(payload.AcademicYear),
		Status:       models.ApplicationStatusDraft,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	applyFields(&application, payload.ApplicationFieldsRequest)

	err = s.store.WithinTransaction(ctx, func(tx repository.Store) error {
		number, err := s.numbers.Allocate(ctx, tx.Sequences(), prefix, now.Year())
		if err != nil {
			return err
		}
		application.ApplicationNumber = number

		if err := tx.Applications().Create(ctx, &application); err != nil {
			return err
		}

		return s.appendHistory(ctx, tx, application.ID, nil, models.ApplicationStatusDraft, actor.ID, remarksCreated, now)
	})
	if err != nil {
		return s.fail(span, TriggerCreate, classify(err))
	}

	observability.NumbersAllocated().WithLabelValues(prefix).Inc()
	observability.StatusTransitions().WithLabelValues(string(TriggerCreate), "", string(models.ApplicationStatusDraft)).Inc()
	span.SetAttributes(
		attribute.Int64("application.id", int64(application.ID)),
		attribute.String("application.number", application.ApplicationNumber),
	)

	s.logger.Info().
		Uint("application_id", application.ID).
		Str("application_number", application.ApplicationNumber).
		Uint("program_id", application.ProgramID).
		Msg("application created")

	s.publish(ctx, TriggerCreate, "", application, actor, remarksCreated, now)

	return dto.NewApplicationResponse(application), nil
}

func (s *lifecycleService) Get(ctx context.Context, id uint, actor Actor) (dto.ApplicationResponse, error) {
	application, err := s.load(ctx, id, actor)
	if err != nil {
		return dto.ApplicationResponse{}, err
	}

	return dto.NewApplicationResponse(application), nil
}

func (s *lifecycleService) UpdateDraftFields(ctx context.Context, id uint, payload dto.ApplicationFieldsRequest, actor Actor) (dto.ApplicationResponse, error) {
	ctx, span := s.tracer.Start(ctx, "application.update_fields", trace.WithAttributes(
		attribute.Int64("application.id", int64(id)),
		attribute.Int64("application.actor_id", int64(actor.ID)),
	))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.ApplicationResponse{}, err
	}

	application, err := s.load(ctx, id, actor)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, failureReason(err))
		return dto.ApplicationResponse{}, err
	}

	if !application.Status.IsEditable() {
		err := fmt.Errorf("%w: application is %s", ErrIllegalState, application.Status)
		span.RecordError(err)
		span.SetStatus(codes.Error, "illegal_state")
		return dto.ApplicationResponse{}, err
	}

	if payload.IsEmpty() {
		return dto.NewApplicationResponse(application), nil
	}

	var (
		updated models.Application
		changed int
	)
	err = s.store.WithinTransaction(ctx, func(tx repository.Store) error {
		current, err := tx.Applications().GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current.Status != application.Status {
			return ErrConcurrentModification
		}

		// details merge against the locked row
		fields := fieldUpdates(current, payload)
		changed = len(fields)
		fields["updated_at"] = s.now().UTC()

		if err := tx.Applications().UpdateFields(ctx, id, current.Status, fields); err != nil {
			if errors.Is(err, repository.ErrStaleStatus) {
				return ErrConcurrentModification
			}
			return err
		}

		updated, err = tx.Applications().GetByID(ctx, id)
		return err
	})
	if err != nil {
		err = classify(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, failureReason(err))
		return dto.ApplicationResponse{}, err
	}

	s.logger.Info().Uint("application_id", id).Int("fields", changed).Msg("application fields updated")

	return dto.NewApplicationResponse(updated), nil
}

func (s *lifecycleService) Submit(ctx context.Context, id uint, actor Actor) (dto.ApplicationResponse, error) {
	return s.transition(ctx, id, transitionRequest{
		trigger:   TriggerSubmit,
		target:    models.ApplicationStatusSubmitted,
		actor:     actor,
		remarks:   remarksSubmitted,
		ownerOnly: true,
		guard:     requireComplete,
		change: func(change *repository.StatusChange) {
			change.SetSubmittedAt = true
		},
	})
}

func (s *lifecycleService) Freeze(ctx context.Context, id uint, actor Actor) (dto.ApplicationResponse, error) {
	return s.transition(ctx, id, transitionRequest{
		trigger:   TriggerFreeze,
		target:    models.ApplicationStatusFrozen,
		actor:     actor,
		remarks:   remarksFrozen,
		ownerOnly: true,
	})
}

func (s *lifecycleService) Unfreeze(ctx context.Context, id uint, actor Actor, reason string) (dto.ApplicationResponse, error) {
	return s.transition(ctx, id, transitionRequest{
		trigger:   TriggerUnfreeze,
		target:    models.ApplicationStatusSubmitted,
		actor:     actor,
		remarks:   s.sanitize(reason),
		adminOnly: true,
	})
}

func (s *lifecycleService) SetStatus(ctx context.Context, id uint, target string, actor Actor, comments string) (dto.ApplicationResponse, error) {
	status, ok := models.ParseApplicationStatus(strings.ToLower(strings.TrimSpace(target)))
	if !ok {
		return dto.ApplicationResponse{}, fmt.Errorf("%w: %q", ErrUnknownStatus, target)
	}

	cleaned := s.sanitize(comments)
	reviewer := actor.ID

	return s.transition(ctx, id, transitionRequest{
		trigger:   TriggerReview,
		target:    status,
		actor:     actor,
		remarks:   cleaned,
		adminOnly: true,
		change: func(change *repository.StatusChange) {
			change.ReviewedBy = &reviewer
			change.ApprovalComments = &cleaned
		},
	})
}

func (s *lifecycleService) History(ctx context.Context, id uint, actor Actor) ([]dto.StatusHistoryResponse, error) {
	if _, err := s.load(ctx, id, actor); err != nil {
		return nil, err
	}

	entries, err := s.store.StatusHistory().ListByApplication(ctx, id)
	if err != nil {
		return nil, classify(err)
	}

	return dto.NewStatusHistoryResponseSlice(entries), nil
}

func (s *lifecycleService) Completeness(ctx context.Context, id uint, actor Actor) (dto.CompletenessResponse, error) {
	application, err := s.load(ctx, id, actor)
	if err != nil {
		return dto.CompletenessResponse{}, err
	}

	report, err := s.gate.Evaluate(ctx, application)
	if err != nil {
		return dto.CompletenessResponse{}, classify(err)
	}

	return dto.CompletenessResponse{
		Submittable:         report.Complete(),
		MissingFields:       report.MissingFields,
		MissingCertificates: report.MissingCertificates,
	}, nil
}

type transitionRequest struct {
	trigger   Trigger
	target    models.ApplicationStatus
	actor     Actor
	remarks   string
	adminOnly bool
	// ownerOnly restricts the trigger to the applicant who owns the row.
	ownerOnly bool
	// guard runs once before the transaction and again inside it against the locked row.
	guard  func(ctx context.Context, gate *CompletenessGate, application models.Application) error
	change func(change *repository.StatusChange)
}

func (s *lifecycleService) transition(ctx context.Context, id uint, req transitionRequest) (dto.ApplicationResponse, error) {
	ctx, span := s.startSpan(ctx, req.trigger, id, req.actor)
	defer span.End()

	if req.adminOnly && !req.actor.IsAdmin() {
		return s.fail(span, req.trigger, ErrApplicationForbidden)
	}
	if req.ownerOnly && !req.actor.IsStudent() {
		return s.fail(span, req.trigger, ErrApplicationForbidden)
	}

	application, err := s.load(ctx, id, req.actor)
	if err != nil {
		return s.fail(span, req.trigger, err)
	}

	from := application.Status
	if err := checkTransition(req.trigger, from, req.target); err != nil {
		return s.fail(span, req.trigger, err)
	}

	if req.guard != nil {
		if err := req.guard(ctx, s.gate, application); err != nil {
			return s.fail(span, req.trigger, classify(err))
		}
	}

	now := s.now().UTC()
	change := repository.StatusChange{From: from, To: req.target, At: now}
	if req.change != nil {
		req.change(&change)
	}

	var updated models.Application
	err = s.store.WithinTransaction(ctx, func(tx repository.Store) error {
		current, err := tx.Applications().GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current.Status != from {
			return ErrConcurrentModification
		}

		if req.guard != nil {
			if err := req.guard(ctx, NewCompletenessGate(tx.Programs(), tx.Documents()), current); err != nil {
				return err
			}
		}

		if err := tx.Applications().UpdateStatus(ctx, id, change); err != nil {
			if errors.Is(err, repository.ErrStaleStatus) {
				return ErrConcurrentModification
			}
			return err
		}

		if err := s.appendHistory(ctx, tx, id, &from, req.target, req.actor.ID, req.remarks, now); err != nil {
			return err
		}

		updated, err = tx.Applications().GetByID(ctx, id)
		return err
	})
	if err != nil {
		return s.fail(span, req.trigger, classify(err))
	}

	observability.StatusTransitions().WithLabelValues(string(req.trigger), string(from), string(req.target)).Inc()
	span.SetAttributes(
		attribute.String("application.from_status", string(from)),
		attribute.String("application.to_status", string(req.target)),
	)

	s.logger.Info().
		Uint("application_id", id).
		Uint("actor_id", req.actor.ID).
		Str("trigger", string(req.trigger)).
		Str("from_status", string(from)).
		Str("to_status", string(req.target)).
		Msg("application status changed")

	s.publish(ctx, req.trigger, from, updated, req.actor, req.remarks, now)

	return dto.NewApplicationResponse(updated), nil
}

func requireComplete(ctx context.Context, gate *CompletenessGate, application models.Application) error {
	report, err := gate.Evaluate(ctx, application)
	if err != nil {
		return err
	}
	if !report.Complete() {
		return &IncompleteApplicationError{Report: report}
	}
	return nil
}

func (s *lifecycleService) appendHistory(ctx context.Context, tx repository.Store, applicationID uint, from *models.ApplicationStatus, to models.ApplicationStatus, actorID uint, remarks string, at time.Time) error {
	entry := models.StatusHistoryEntry{
		ApplicationID: applicationID,
		FromStatus:    from,
		ToStatus:      to,
		ChangedBy:     actorID,
		Remarks:       remarks,
		CreatedAt:     at,
	}
	return tx.StatusHistory().Append(ctx, &entry)
}

// load fetches the application and applies ownership rules for the actor.
func (s *lifecycleService) load(ctx context.Context, id uint, actor Actor) (models.Application, error) {
	application, err := s.store.Applications().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Application{}, ErrApplicationNotFound
		}
		return models.Application{}, classify(err)
	}

	switch normalizeRole(actor.Role) {
	case RoleStudent:
		if application.UserID != actor.ID {
			return models.Application{}, ErrApplicationForbidden
		}
	case RoleProgramAdmin:
		program, err := s.directory.GetProgram(ctx, application.ProgramID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.Application{}, ErrApplicationForbidden
			}
			return models.Application{}, classify(err)
		}
		if program.AdminID == nil || *program.AdminID != actor.ID {
			return models.Application{}, ErrApplicationForbidden
		}
	case RoleAdmin:
	default:
		return models.Application{}, ErrApplicationForbidden
	}

	return application, nil
}

func (s *lifecycleService) publish(ctx context.Context, trigger Trigger, from models.ApplicationStatus, application models.Application, actor Actor, remarks string, at time.Time) {
	if s.events == nil {
		return
	}

	event := StatusChangedEvent{
		ApplicationID:     application.ID,
		ApplicationNumber: application.ApplicationNumber,
		Trigger:           string(trigger),
		FromStatus:        string(from),
		ToStatus:          string(application.Status),
		ActorID:           actor.ID,
		Remarks:           remarks,
		OccurredAt:        at,
	}
	if err := s.events.PublishStatusChanged(ctx, event); err != nil {
		s.logger.Warn().Err(err).Uint("application_id", application.ID).Msg("failed to publish status event")
	}
}

func (s *lifecycleService) startSpan(ctx context.Context, trigger Trigger, id uint, actor Actor) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "application."+string(trigger), trace.WithAttributes(
		attribute.Int64("application.id", int64(id)),
		attribute.Int64("application.actor_id", int64(actor.ID)),
		attribute.String("application.trigger", string(trigger)),
	))
}

func (s *lifecycleService) fail(span trace.Span, trigger Trigger, err error) (dto.ApplicationResponse, error) {
	reason := failureReason(err)
	span.RecordError(err)
	span.SetStatus(codes.Error, reason)
	observability.StatusTransitionFailures().WithLabelValues(string(trigger), reason).Inc()

	if errors.Is(err, ErrPersistence) {
		s.logger.Error().Err(err).Str("trigger", string(trigger)).Msg("application transition aborted")
	}

	return dto.ApplicationResponse{}, err
}

// sanitize strips markup from free text. The policy escapes what it keeps, so the result is
// unescaped again to store the plain text the actor typed.
func (s *lifecycleService) sanitize(text string) string {
	return strings.TrimSpace(html.UnescapeString(s.sanitizer.Sanitize(strings.TrimSpace(text))))
}

// classify passes lifecycle errors through and folds anything else into ErrPersistence.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		return err
	}

	known := []error{
		ErrIllegalTransition,
		ErrIncompleteApplication,
		ErrConcurrentModification,
		ErrNumberAllocation,
		ErrPersistence,
		ErrApplicationNotFound,
		ErrApplicationForbidden,
		ErrUnknownStatus,
	}
	for _, target := range known {
		if errors.Is(err, target) {
			return err
		}
	}

	return fmt.Errorf("%w: %w", ErrPersistence, err)
}

func failureReason(err error) string {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.As(err, &validationErrors):
		return "validation_failed"
	case errors.Is(err, ErrIllegalState):
		return "illegal_state"
	case errors.Is(err, ErrIllegalTransition):
		return "illegal_transition"
	case errors.Is(err, ErrIncompleteApplication):
		return "incomplete_application"
	case errors.Is(err, ErrConcurrentModification):
		return "concurrent_modification"
	case errors.Is(err, ErrNumberAllocation):
		return "number_allocation"
	case errors.Is(err, ErrApplicationNotFound):
		return "not_found"
	case errors.Is(err, ErrApplicationForbidden):
		return "forbidden"
	default:
		return "persistence"
	}
}

func applyFields(application *models.Application, fields dto.ApplicationFieldsRequest) {
	assign := func(target *string, value *string) {
		if value != nil {
			*target = strings.TrimSpace(*value)
		}
	}

	assign(&application.StudentName, fields.StudentName)
	assign(&application.FatherName, fields.FatherName)
	assign(&application.MotherName, fields.MotherName)
	assign(&application.DateOfBirth, fields.DateOfBirth)
	assign(&application.Gender, fields.Gender)
	assign(&application.Mobile, fields.Mobile)
	assign(&application.Email, fields.Email)
	application.Details = mergeDetails(application.Details, fields.Details)
}

func fieldUpdates(current models.Application, fields dto.ApplicationFieldsRequest) map[string]interface{} {
	updates := map[string]interface{}{}
	set := func(column string, value *string) {
		if value != nil {
			updates[column] = strings.TrimSpace(*value)
		}
	}

	set("student_name", fields.StudentName)
	set("father_name", fields.FatherName)
	set("mother_name", fields.MotherName)
	set("date_of_birth", fields.DateOfBirth)
	set("gender", fields.Gender)
	set("mobile", fields.Mobile)
	set("email", fields.Email)
	if len(fields.Details) > 0 {
		updates["details"] = mergeDetails(current.Details, fields.Details)
	}

	return updates
}

// mergeDetails overlays patch onto base; a nil value removes the key.
func mergeDetails(base datatypes.JSONMap, patch map[string]interface{}) datatypes.JSONMap {
	merged := datatypes.JSONMap{}
	for key, value := range base {
		merged[key] = value
	}
	for key, value := range patch {
		if value == nil {
			delete(merged, key)
			continue
		}
		merged[key] = value
	}
	return merged
}
