package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/admission-go-api/internal/dto"
	"github.com/noah-isme/admission-go-api/internal/models"
)

func TestLifecycleCreateAssignsProgramNumberAndDraftHistory(t *testing.T) {
	fx := setupLifecycleFixture(t)

	first := fx.createDraft(t, studentActor, completeFields())
	require.Equal(t, "BCA20250001", first.ApplicationNumber)
	require.Equal(t, string(models.ApplicationStatusDraft), first.Status)
	require.Nil(t, first.SubmittedAt)
	require.Equal(t, "Pune", first.Details["city"])

	second := fx.createDraft(t, otherStudentActor, dto.ApplicationFieldsRequest{})
	require.Equal(t, "BCA20250002", second.ApplicationNumber)

	entries := fx.history(t, first.ID)
	require.Len(t, entries, 1)
	require.Nil(t, entries[0].FromStatus)
	require.Equal(t, models.ApplicationStatusDraft, entries[0].ToStatus)
	require.Equal(t, studentActor.ID, entries[0].ChangedBy)

	events := fx.events.recorded()
	require.Len(t, events, 2)
	require.Equal(t, string(TriggerCreate), events[0].Trigger)
	require.Equal(t, "BCA20250001", events[0].ApplicationNumber)
}

func TestLifecycleCreateUsesYearOfCreation(t *testing.T) {
	fx := setupLifecycleFixture(t)

	fx.createDraft(t, studentActor, dto.ApplicationFieldsRequest{})
	fx.clock = time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)

	next := fx.createDraft(t, studentActor, dto.ApplicationFieldsRequest{})
	require.Equal(t, "BCA20260001", next.ApplicationNumber)
}

func TestLifecycleCreateFallsBackToGenericPrefix(t *testing.T) {
	fx := setupLifecycleFixture(t)

	application, err := fx.service.Create(context.Background(), dto.CreateApplicationRequest{
		UserID:       studentActor.ID,
		ProgramID:    999,
		AcademicYear: "2025-2026",
	}, studentActor)
	require.NoError(t, err)
	require.Equal(t, "GEN20250001", application.ApplicationNumber)
}

func TestLifecycleCreateFailsWhenFallbackDisabled(t *testing.T) {
	fx := setupLifecycleFixture(t)
	svc := fx.newService(fx.store, nil, NewNumberGenerator(fx.store.Programs(), "", zerolog.Nop()))

	_, err := svc.Create(context.Background(), dto.CreateApplicationRequest{
		UserID:       studentActor.ID,
		ProgramID:    999,
		AcademicYear: "2025-2026",
	}, studentActor)
	require.ErrorIs(t, err, ErrNumberAllocation)

	var applications, entries int64
	require.NoError(t, fx.db.Model(&models.Application{}).Count(&applications).Error)
	require.NoError(t, fx.db.Model(&models.StatusHistoryEntry{}).Count(&entries).Error)
	require.Zero(t, applications)
	require.Zero(t, entries)
}

func TestLifecycleCreateValidatesPayload(t *testing.T) {
	fx := setupLifecycleFixture(t)

	_, err := fx.service.Create(context.Background(), dto.CreateApplicationRequest{UserID: studentActor.ID}, studentActor)
	var validationErrors validator.ValidationErrors
	require.True(t, errors.As(err, &validationErrors))

	_, err = fx.service.Create(context.Background(), dto.CreateApplicationRequest{
		UserID:       otherStudentActor.ID,
		ProgramID:    fx.program.ID,
		AcademicYear: "2025-2026",
	}, studentActor)
	require.ErrorIs(t, err, ErrApplicationForbidden)
}

func TestLifecycleCreateRollsBackWhenHistoryFails(t *testing.T) {
	fx := setupLifecycleFixture(t)
	svc := fx.newService(failingHistoryStore{Store: fx.store}, nil, nil)

	_, err := svc.Create(context.Background(), dto.CreateApplicationRequest{
		UserID:       studentActor.ID,
		ProgramID:    fx.program.ID,
		AcademicYear: "2025-2026",
	}, studentActor)
	require.ErrorIs(t, err, ErrPersistence)

	var applications int64
	require.NoError(t, fx.db.Model(&models.Application{}).Count(&applications).Error)
	require.Zero(t, applications)

	// the aborted allocation must not burn a sequence number
	next := fx.createDraft(t, studentActor, dto.ApplicationFieldsRequest{})
	require.Equal(t, "BCA20250001", next.ApplicationNumber)
}

func TestLifecycleSubmitRejectsMissingCertificate(t *testing.T) {
	fx := setupLifecycleFixture(t)
	draft := fx.createDraft(t, studentActor, completeFields())

	_, err := fx.service.Submit(context.Background(), draft.ID, studentActor)
	require.ErrorIs(t, err, ErrIncompleteApplication)

	var incomplete *IncompleteApplicationError
	require.True(t, errors.As(err, &incomplete))
	require.Empty(t, incomplete.Report.MissingFields)
	require.Equal(t, []uint{fx.marksheet.ID}, incomplete.Report.MissingCertificates)

	stored := fx.reload(t, draft.ID)
	require.Equal(t, models.ApplicationStatusDraft, stored.Status)
	require.Nil(t, stored.SubmittedAt)
	require.Len(t, fx.history(t, draft.ID), 1)
}

func TestLifecycleSubmitRejectsBlankPersonalFields(t *testing.T) {
	fx := setupLifecycleFixture(t)
	fields := completeFields()
	fields.MotherName = strPtr("   ")
	fields.Email = nil

	draft := fx.createDraft(t, studentActor, fields)
	fx.upload(t, draft.ID, fx.marksheet.ID)

	_, err := fx.service.Submit(context.Background(), draft.ID, studentActor)
	var incomplete *IncompleteApplicationError
	require.True(t, errors.As(err, &incomplete))
	require.Equal(t, []string{"mother_name", "email"}, incomplete.Report.MissingFields)
	require.Empty(t, incomplete.Report.MissingCertificates)
}

func TestLifecycleSubmitIgnoresOptionalCertificatesAndVerification(t *testing.T) {
	fx := setupLifecycleFixture(t)
	draft := fx.createDraft(t, studentActor, completeFields())

	record := models.DocumentRecord{ApplicationID: draft.ID, CertificateTypeID: fx.marksheet.ID, VerificationStatus: models.DocumentStatusRejected}
	require.NoError(t, fx.store.Documents().Create(context.Background(), &record))

	submitted, err := fx.service.Submit(context.Background(), draft.ID, studentActor)
	require.NoError(t, err)
	require.Equal(t, string(models.ApplicationStatusSubmitted), submitted.Status)
}

func TestLifecycleSubmitStampsSubmittedAtAndAppendsOneEntry(t *testing.T) {
	fx := setupLifecycleFixture(t)
	draft := fx.createDraft(t, studentActor, completeFields())
	fx.upload(t, draft.ID, fx.marksheet.ID)
	fx.advance(time.Hour)

	submitted, err := fx.service.Submit(context.Background(), draft.ID, studentActor)
	require.NoError(t, err)
	require.Equal(t, string(models.ApplicationStatusSubmitted), submitted.Status)
	require.NotNil(t, submitted.SubmittedAt)
	require.True(t, submitted.SubmittedAt.Equal(fx.clock))
	require.Equal(t, draft.ApplicationNumber, submitted.ApplicationNumber)

	entries := fx.history(t, draft.ID)
	require.Len(t, entries, 2)
	require.NotNil(t, entries[1].FromStatus)
	require.Equal(t, models.ApplicationStatusDraft, *entries[1].FromStatus)
	require.Equal(t, models.ApplicationStatusSubmitted, entries[1].ToStatus)
	require.Equal(t, remarksSubmitted, entries[1].Remarks)
}

func TestLifecycleSubmitTwiceIsIllegalState(t *testing.T) {
	fx := setupLifecycleFixture(t)
	submitted := fx.submittedApplication(t)

	_, err := fx.service.Submit(context.Background(), submitted.ID, studentActor)
	require.ErrorIs(t, err, ErrIllegalState)
	require.ErrorIs(t, err, ErrIllegalTransition)
	require.Len(t, fx.history(t, submitted.ID), 2)
}

func TestLifecycleSubmitByAnotherStudentIsForbidden(t *testing.T) {
	fx := setupLifecycleFixture(t)
	draft := fx.createDraft(t, studentActor, completeFields())
	fx.upload(t, draft.ID, fx.marksheet.ID)

	_, err := fx.service.Submit(context.Background(), draft.ID, otherStudentActor)
	require.ErrorIs(t, err, ErrApplicationForbidden)

	_, err = fx.service.Get(context.Background(), draft.ID, otherStudentActor)
	require.ErrorIs(t, err, ErrApplicationForbidden)

	_, err = fx.service.Get(context.Background(), 4040, studentActor)
	require.ErrorIs(t, err, ErrApplicationNotFound)
}

func TestLifecycleSubmitRollsBackWhenHistoryFails(t *testing.T) {
	fx := setupLifecycleFixture(t)
	draft := fx.createDraft(t, studentActor, completeFields())
	fx.upload(t, draft.ID, fx.marksheet.ID)

	svc := fx.newService(failingHistoryStore{Store: fx.store}, nil, nil)
	_, err := svc.Submit(context.Background(), draft.ID, studentActor)
	require.ErrorIs(t, err, ErrPersistence)

	stored := fx.reload(t, draft.ID)
	require.Equal(t, models.ApplicationStatusDraft, stored.Status)
	require.Nil(t, stored.SubmittedAt)
	require.Len(t, fx.history(t, draft.ID), 1)
}

func TestLifecycleConcurrentSubmitHasOneWinner(t *testing.T) {
	fx := setupLifecycleFixture(t)
	draft := fx.createDraft(t, studentActor, completeFields())
	fx.upload(t, draft.ID, fx.marksheet.ID)

	barrier := newBarrierDocuments(fx.store.Documents(), 2)
	svc := fx.newService(fx.store, barrier, nil)

	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := svc.Submit(context.Background(), draft.ID, studentActor)
			results <- err
		}()
	}

	var succeeded, lost int
	for i := 0; i < 2; i++ {
		err := <-results
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrConcurrentModification):
			lost++
		default:
			t.Fatalf("unexpected submit error: %v", err)
		}
	}
	require.Equal(t, 1, succeeded)
	require.Equal(t, 1, lost)

	entries := fx.history(t, draft.ID)
	require.Len(t, entries, 2)
	require.Equal(t, models.ApplicationStatusSubmitted, entries[1].ToStatus)
}

func TestLifecycleSetStatusRejectsDraftApproval(t *testing.T) {
	fx := setupLifecycleFixture(t)
	draft := fx.createDraft(t, studentActor, completeFields())

	_, err := fx.service.SetStatus(context.Background(), draft.ID, "approved", adminActor, "looks good")
	require.ErrorIs(t, err, ErrIllegalTransition)
	require.False(t, errors.Is(err, ErrIllegalState))

	var transitionErr *TransitionError
	require.True(t, errors.As(err, &transitionErr))
	require.Equal(t, models.ApplicationStatusDraft, transitionErr.From)
	require.Equal(t, models.ApplicationStatusApproved, transitionErr.To)

	stored := fx.reload(t, draft.ID)
	require.Equal(t, models.ApplicationStatusDraft, stored.Status)
	require.Nil(t, stored.ReviewedBy)
	require.Nil(t, stored.ApprovalComments)
	require.Len(t, fx.history(t, draft.ID), 1)
}

func TestLifecycleSetStatusRecordsReview(t *testing.T) {
	fx := setupLifecycleFixture(t)
	submitted := fx.submittedApplication(t)
	ctx := context.Background()

	fx.advance(time.Hour)
	review, err := fx.service.SetStatus(ctx, submitted.ID, "under_review", adminActor, "picked up")
	require.NoError(t, err)
	require.Equal(t, string(models.ApplicationStatusUnderReview), review.Status)

	review, err = fx.service.SetStatus(ctx, submitted.ID, "UNDER_REVIEW", adminActor, "second look")
	require.NoError(t, err)
	require.Equal(t, string(models.ApplicationStatusUnderReview), review.Status)

	fx.advance(time.Hour)
	approved, err := fx.service.SetStatus(ctx, submitted.ID, "approved", programAdminActor, "<b>Strong</b> profile")
	require.NoError(t, err)
	require.Equal(t, string(models.ApplicationStatusApproved), approved.Status)
	require.NotNil(t, approved.ReviewedBy)
	require.Equal(t, programAdminActor.ID, *approved.ReviewedBy)
	require.NotNil(t, approved.ReviewedAt)
	require.True(t, approved.ReviewedAt.Equal(fx.clock))
	require.NotNil(t, approved.ApprovalComments)
	require.Equal(t, "Strong profile", *approved.ApprovalComments)

	entries := fx.history(t, submitted.ID)
	require.Len(t, entries, 5)
	require.Equal(t, "Strong profile", entries[4].Remarks)
	require.Equal(t, programAdminActor.ID, entries[4].ChangedBy)

	_, err = fx.service.SetStatus(ctx, submitted.ID, "rejected", adminActor, "")
	require.ErrorIs(t, err, ErrIllegalTransition)
}

func TestLifecycleSetStatusRejectsUnknownStatusAndStudents(t *testing.T) {
	fx := setupLifecycleFixture(t)
	submitted := fx.submittedApplication(t)

	_, err := fx.service.SetStatus(context.Background(), submitted.ID, "archived", adminActor, "")
	require.ErrorIs(t, err, ErrUnknownStatus)

	_, err = fx.service.SetStatus(context.Background(), submitted.ID, "approved", studentActor, "")
	require.ErrorIs(t, err, ErrApplicationForbidden)

	_, err = fx.service.SetStatus(context.Background(), submitted.ID, "cancelled", adminActor, "")
	require.ErrorIs(t, err, ErrIllegalTransition)
	require.Equal(t, models.ApplicationStatusSubmitted, fx.reload(t, submitted.ID).Status)
}

func TestLifecycleProgramAdminLimitedToOwnPrograms(t *testing.T) {
	fx := setupLifecycleFixture(t)
	submitted := fx.submittedApplication(t)

	_, err := fx.service.SetStatus(context.Background(), submitted.ID, "under_review", strangerAdmin, "")
	require.ErrorIs(t, err, ErrApplicationForbidden)

	_, err = fx.service.History(context.Background(), submitted.ID, strangerAdmin)
	require.ErrorIs(t, err, ErrApplicationForbidden)

	entries, err := fx.service.History(context.Background(), submitted.ID, programAdminActor)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestLifecycleFreezeUnfreezeRoundTrip(t *testing.T) {
	fx := setupLifecycleFixture(t)
	submitted := fx.submittedApplication(t)
	firstSubmit := *submitted.SubmittedAt
	ctx := context.Background()

	fx.advance(time.Hour)
	frozen, err := fx.service.Freeze(ctx, submitted.ID, studentActor)
	require.NoError(t, err)
	require.Equal(t, string(models.ApplicationStatusFrozen), frozen.Status)

	_, err = fx.service.Freeze(ctx, submitted.ID, studentActor)
	require.ErrorIs(t, err, ErrIllegalState)

	_, err = fx.service.Unfreeze(ctx, submitted.ID, studentActor, "let me back in")
	require.ErrorIs(t, err, ErrApplicationForbidden)

	fx.advance(time.Hour)
	reopened, err := fx.service.Unfreeze(ctx, submitted.ID, adminActor, "Corrected marksheet received")
	require.NoError(t, err)
	require.Equal(t, string(models.ApplicationStatusSubmitted), reopened.Status)
	require.NotNil(t, reopened.SubmittedAt)
	require.True(t, reopened.SubmittedAt.Equal(firstSubmit))

	entries := fx.history(t, submitted.ID)
	require.Len(t, entries, 4)
	require.Equal(t, models.ApplicationStatusFrozen, entries[2].ToStatus)
	require.Equal(t, remarksFrozen, entries[2].Remarks)
	require.Equal(t, models.ApplicationStatusSubmitted, entries[3].ToStatus)
	require.Equal(t, "Corrected marksheet received", entries[3].Remarks)
	require.Equal(t, adminActor.ID, entries[3].ChangedBy)

	_, err = fx.service.Unfreeze(ctx, submitted.ID, adminActor, "again")
	require.ErrorIs(t, err, ErrIllegalState)
}

func TestLifecycleFrozenApplicationCanMoveToReview(t *testing.T) {
	fx := setupLifecycleFixture(t)
	submitted := fx.submittedApplication(t)

	_, err := fx.service.Freeze(context.Background(), submitted.ID, studentActor)
	require.NoError(t, err)

	_, err = fx.service.SetStatus(context.Background(), submitted.ID, "approved", adminActor, "")
	require.ErrorIs(t, err, ErrIllegalTransition)

	review, err := fx.service.SetStatus(context.Background(), submitted.ID, "under_review", adminActor, "")
	require.NoError(t, err)
	require.Equal(t, string(models.ApplicationStatusUnderReview), review.Status)
}

func TestLifecycleHistoryReconstructsEveryStatus(t *testing.T) {
	fx := setupLifecycleFixture(t)
	submitted := fx.submittedApplication(t)
	ctx := context.Background()

	_, err := fx.service.Freeze(ctx, submitted.ID, studentActor)
	require.NoError(t, err)
	_, err = fx.service.Unfreeze(ctx, submitted.ID, adminActor, "reopened")
	require.NoError(t, err)
	_, err = fx.service.SetStatus(ctx, submitted.ID, "under_review", adminActor, "")
	require.NoError(t, err)
	final, err := fx.service.SetStatus(ctx, submitted.ID, "rejected", adminActor, "seats filled")
	require.NoError(t, err)

	entries, err := fx.service.History(ctx, submitted.ID, studentActor)
	require.NoError(t, err)
	require.Len(t, entries, 6)
	require.Nil(t, entries[0].FromStatus)
	for i := 1; i < len(entries); i++ {
		require.NotNil(t, entries[i].FromStatus)
		require.Equal(t, entries[i-1].ToStatus, *entries[i].FromStatus)
	}
	require.Equal(t, final.Status, entries[len(entries)-1].ToStatus)

	stored := fx.reload(t, submitted.ID)
	require.Equal(t, submitted.ApplicationNumber, stored.ApplicationNumber)
	require.True(t, stored.Status.IsTerminal())
}

func TestLifecycleUpdateDraftFields(t *testing.T) {
	fx := setupLifecycleFixture(t)
	draft := fx.createDraft(t, studentActor, completeFields())
	ctx := context.Background()

	fx.advance(time.Minute)
	updated, err := fx.service.UpdateDraftFields(ctx, draft.ID, dto.ApplicationFieldsRequest{
		Mobile:  strPtr(" 9000000001 "),
		Details: map[string]interface{}{"city": nil, "state": "Maharashtra"},
	}, studentActor)
	require.NoError(t, err)
	require.Equal(t, "9000000001", updated.Mobile)
	require.Equal(t, "Asha Rao", updated.StudentName)
	require.Equal(t, "Maharashtra", updated.Details["state"])
	require.NotContains(t, updated.Details, "city")
	require.True(t, updated.UpdatedAt.Equal(fx.clock))
	require.Equal(t, draft.ApplicationNumber, updated.ApplicationNumber)

	fx.upload(t, draft.ID, fx.marksheet.ID)
	_, err = fx.service.Submit(ctx, draft.ID, studentActor)
	require.NoError(t, err)

	_, err = fx.service.UpdateDraftFields(ctx, draft.ID, dto.ApplicationFieldsRequest{Gender: strPtr("male")}, studentActor)
	require.ErrorIs(t, err, ErrIllegalState)

	_, err = fx.service.Freeze(ctx, draft.ID, studentActor)
	require.NoError(t, err)

	corrected, err := fx.service.UpdateDraftFields(ctx, draft.ID, dto.ApplicationFieldsRequest{FatherName: strPtr("Vikram S Rao")}, studentActor)
	require.NoError(t, err)
	require.Equal(t, "Vikram S Rao", corrected.FatherName)
	require.Equal(t, string(models.ApplicationStatusFrozen), corrected.Status)

	// content edits never touch the audit trail
	require.Len(t, fx.history(t, draft.ID), 3)
}

func TestLifecycleCompletenessReport(t *testing.T) {
	fx := setupLifecycleFixture(t)
	draft := fx.createDraft(t, studentActor, dto.ApplicationFieldsRequest{StudentName: strPtr("Asha Rao")})

	report, err := fx.service.Completeness(context.Background(), draft.ID, studentActor)
	require.NoError(t, err)
	require.False(t, report.Submittable)
	require.Len(t, report.MissingFields, 6)
	require.Equal(t, []uint{fx.marksheet.ID}, report.MissingCertificates)
}

func TestLifecyclePublishFailureDoesNotAffectTransition(t *testing.T) {
	fx := setupLifecycleFixture(t)
	draft := fx.createDraft(t, studentActor, completeFields())
	fx.upload(t, draft.ID, fx.marksheet.ID)

	svc := NewLifecycleService(fx.store, nil, nil, nil, failingPublisher{}, validator.New(), zerolog.Nop())
	submitted, err := svc.Submit(context.Background(), draft.ID, studentActor)
	require.NoError(t, err)
	require.Equal(t, string(models.ApplicationStatusSubmitted), submitted.Status)

	events := fx.events.recorded()
	require.Len(t, events, 1, "only the create event reached the recording publisher")
}

func TestLifecycleFreeTextKeepsPunctuation(t *testing.T) {
	fx := setupLifecycleFixture(t)
	submitted := fx.submittedApplication(t)
	ctx := context.Background()

	_, err := fx.service.Freeze(ctx, submitted.ID, studentActor)
	require.NoError(t, err)
	_, err = fx.service.Unfreeze(ctx, submitted.ID, adminActor, "Father's name & DOB corrected")
	require.NoError(t, err)

	reviewed, err := fx.service.SetStatus(ctx, submitted.ID, "under_review", adminActor, `O'Brien & "Rao" <i>verified</i>`)
	require.NoError(t, err)
	require.NotNil(t, reviewed.ApprovalComments)
	require.Equal(t, `O'Brien & "Rao" verified`, *reviewed.ApprovalComments)

	entries := fx.history(t, submitted.ID)
	require.Len(t, entries, 5)
	require.Equal(t, "Father's name & DOB corrected", entries[3].Remarks)
	require.Equal(t, `O'Brien & "Rao" verified`, entries[4].Remarks)
}

func TestLifecycleOwnerTriggersRejectOtherRoles(t *testing.T) {
	fx := setupLifecycleFixture(t)
	ctx := context.Background()

	draft := fx.createDraft(t, studentActor, completeFields())
	fx.upload(t, draft.ID, fx.marksheet.ID)

	_, err := fx.service.Submit(ctx, draft.ID, adminActor)
	require.ErrorIs(t, err, ErrApplicationForbidden)
	_, err = fx.service.Submit(ctx, draft.ID, programAdminActor)
	require.ErrorIs(t, err, ErrApplicationForbidden)

	submitted, err := fx.service.Submit(ctx, draft.ID, studentActor)
	require.NoError(t, err)

	_, err = fx.service.Freeze(ctx, submitted.ID, adminActor)
	require.ErrorIs(t, err, ErrApplicationForbidden)

	require.Equal(t, models.ApplicationStatusSubmitted, fx.reload(t, draft.ID).Status)
	require.Len(t, fx.history(t, draft.ID), 2)
}

func TestLifecycleActorWithoutRoleIsDenied(t *testing.T) {
	fx := setupLifecycleFixture(t)
	ctx := context.Background()
	anonymous := Actor{ID: 999}

	draft := fx.createDraft(t, studentActor, completeFields())
	fx.upload(t, draft.ID, fx.marksheet.ID)

	_, err := fx.service.Get(ctx, draft.ID, anonymous)
	require.ErrorIs(t, err, ErrApplicationForbidden)
	_, err = fx.service.History(ctx, draft.ID, anonymous)
	require.ErrorIs(t, err, ErrApplicationForbidden)
	_, err = fx.service.Completeness(ctx, draft.ID, anonymous)
	require.ErrorIs(t, err, ErrApplicationForbidden)
	_, err = fx.service.Submit(ctx, draft.ID, anonymous)
	require.ErrorIs(t, err, ErrApplicationForbidden)
	_, err = fx.service.UpdateDraftFields(ctx, draft.ID, dto.ApplicationFieldsRequest{Gender: strPtr("male")}, anonymous)
	require.ErrorIs(t, err, ErrApplicationForbidden)

	_, err = fx.service.Create(ctx, dto.CreateApplicationRequest{
		UserID:       anonymous.ID,
		ProgramID:    fx.program.ID,
		AcademicYear: "2025-2026",
	}, Actor{ID: 999, Role: "auditor"})
	require.ErrorIs(t, err, ErrApplicationForbidden)

	stored := fx.reload(t, draft.ID)
	require.Equal(t, models.ApplicationStatusDraft, stored.Status)
	require.Equal(t, "female", stored.Gender)
}

func TestLifecycleConcurrentCreateAllocatesDistinctContiguousNumbers(t *testing.T) {
	fx := setupLifecycleFixture(t)
	const workers = 8

	type outcome struct {
		number string
		err    error
	}
	results := make(chan outcome, workers)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		go func() {
			<-start
			application, err := fx.service.Create(context.Background(), dto.CreateApplicationRequest{
				UserID:       studentActor.ID,
				ProgramID:    fx.program.ID,
				AcademicYear: "2025-2026",
			}, studentActor)
			results <- outcome{number: application.ApplicationNumber, err: err}
		}()
	}
	close(start)

	numbers := make(map[string]struct{}, workers)
	for i := 0; i < workers; i++ {
		result := <-results
		require.NoError(t, result.err)
		numbers[result.number] = struct{}{}
	}

	require.Len(t, numbers, workers)
	for seq := 1; seq <= workers; seq++ {
		require.Contains(t, numbers, FormatApplicationNumber("BCA", 2025, seq))
	}
}

func TestLifecycleConcurrentDetailEditsKeepEveryKey(t *testing.T) {
	fx := setupLifecycleFixture(t)
	draft := fx.createDraft(t, studentActor, completeFields())

	edits := []map[string]interface{}{
		{"state": "Maharashtra"},
		{"pincode": "411001"},
		{"category": "general"},
		{"guardian_phone": "9000000002"},
	}
	errs := make(chan error, len(edits))
	start := make(chan struct{})
	for _, edit := range edits {
		go func(details map[string]interface{}) {
			<-start
			_, err := fx.service.UpdateDraftFields(context.Background(), draft.ID, dto.ApplicationFieldsRequest{Details: details}, studentActor)
			errs <- err
		}(edit)
	}
	close(start)

	for range edits {
		require.NoError(t, <-errs)
	}

	stored := fx.reload(t, draft.ID)
	require.Equal(t, "Pune", stored.Details["city"])
	require.Equal(t, "Maharashtra", stored.Details["state"])
	require.Equal(t, "411001", stored.Details["pincode"])
	require.Equal(t, "general", stored.Details["category"])
	require.Equal(t, "9000000002", stored.Details["guardian_phone"])
}
