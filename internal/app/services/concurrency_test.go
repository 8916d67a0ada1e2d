package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/enrolladmin/internal/app/models"
	"github.com/yigit/enrolladmin/internal/app/models/dto"
	"github.com/yigit/enrolladmin/internal/app/repositories"
	"github.com/yigit/enrolladmin/internal/app/repositories/memory"
	"github.com/yigit/enrolladmin/internal/pkg/apperrors"
)

func TestConcurrentEnrollmentHonoursCapacity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lobby := f.offering(t, "WLD-100", "OFF-000", 20)
	full := f.offering(t, "WLD-101", "OFF-100", 1)

	const enrollers, registrants = 6, 6
	existing := make([]int64, enrollers)
	for i := range existing {
		existing[i] = f.register(t, registration("Seed", fmt.Sprintf("Student%d", i), lobby.ID)).Student.ID
	}

	var wg sync.WaitGroup
	errs := make(chan error, enrollers+registrants)
	start := make(chan struct{})
	for _, id := range existing {
		wg.Add(1)
		go func(studentID int64) {
			defer wg.Done()
			<-start
			_, err := f.services.Enrollments.Enroll(ctx, &dto.EnrollRequest{StudentID: studentID, OfferingID: full.ID})
			errs <- err
		}(id)
	}
	for i := 0; i < registrants; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, err := f.services.Students.RegisterStudent(ctx, registration("Racer", fmt.Sprintf("Number%d", i), full.ID), staffID)
			errs <- err
		}(i)
	}
	close(start)
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, apperrors.ErrCapacityExceeded)
	}
	assert.Equal(t, 1, succeeded)

	active, err := f.store.Repositories().Enrollments.CountActive(ctx, full.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, active)

	// rejected registrations leave no student behind
	_, total, err := f.services.Students.ListStudents(ctx, models.StudentFilter{})
	require.NoError(t, err)
	assert.LessOrEqual(t, total, int64(enrollers+1))
	assert.GreaterOrEqual(t, total, int64(enrollers))
}

func TestConcurrentEnrollmentOfSameStudent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lobby := f.offering(t, "WLD-100", "OFF-000", 5)
	target := f.offering(t, "WLD-101", "OFF-100", 5)
	st := f.register(t, registration("Jane", "Doe", lobby.ID)).Student

	const attempts = 8
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	start := make(chan struct{})
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.services.Enrollments.Enroll(ctx, &dto.EnrollRequest{StudentID: st.ID, OfferingID: target.ID})
			errs <- err
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, apperrors.ErrDuplicateEnrollment)
	}
	assert.Equal(t, 1, succeeded)

	active, err := f.store.Repositories().Enrollments.CountActive(ctx, target.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, active)
}

func TestDropRacingEnrollLeavesNoActiveEnrollment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lobby := f.offering(t, "WLD-100", "OFF-000", 5)
	others := []*models.CourseOffering{
		f.offering(t, "WLD-101", "OFF-100", 5),
		f.offering(t, "WLD-102", "OFF-200", 5),
		f.offering(t, "WLD-103", "OFF-300", 5),
	}
	st := f.register(t, registration("Jane", "Doe", lobby.ID)).Student

	var wg sync.WaitGroup
	start := make(chan struct{})
	for _, off := range others {
		wg.Add(1)
		go func(offeringID int64) {
			defer wg.Done()
			<-start
			_, _ = f.services.Enrollments.Enroll(ctx, &dto.EnrollRequest{StudentID: st.ID, OfferingID: offeringID})
		}(off.ID)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-start
		_, err := f.services.Students.UpdateStatus(ctx, st.ID, &dto.UpdateStudentStatusRequest{Status: models.StudentDropped})
		assert.NoError(t, err)
	}()
	close(start)
	wg.Wait()

	enrolled := models.EnrollmentEnrolled
	active, err := f.services.Enrollments.ListEnrollments(ctx, models.EnrollmentFilter{StudentID: &st.ID, Status: &enrolled})
	require.NoError(t, err)
	assert.Empty(t, active)
}

// lockTrace records row locks in the order they are taken
type lockTrace struct {
	mu    sync.Mutex
	locks []string
}

func (l *lockTrace) add(kind string, id int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.locks = append(l.locks, fmt.Sprintf("%s:%d", kind, id))
}

func (l *lockTrace) take() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.locks
	l.locks = nil
	return out
}

type tracedStudents struct {
	repositories.StudentRepository
	trace *lockTrace
}

func (r tracedStudents) GetByIDForUpdate(ctx context.Context, id int64) (*models.Student, error) {
	r.trace.add("student", id)
	return r.StudentRepository.GetByIDForUpdate(ctx, id)
}

type tracedOfferings struct {
	repositories.OfferingRepository
	trace *lockTrace
}

func (r tracedOfferings) GetByIDForUpdate(ctx context.Context, id int64) (*models.CourseOffering, error) {
	r.trace.add("offering", id)
	return r.OfferingRepository.GetByIDForUpdate(ctx, id)
}

type tracedEnrollments struct {
	repositories.EnrollmentRepository
	trace *lockTrace
}

func (r tracedEnrollments) GetByIDForUpdate(ctx context.Context, id int64) (*models.Enrollment, error) {
	r.trace.add("enrollment", id)
	return r.EnrollmentRepository.GetByIDForUpdate(ctx, id)
}

type tracedPayments struct {
	repositories.PaymentRepository
	trace *lockTrace
}

func (r tracedPayments) GetByIDForUpdate(ctx context.Context, id int64) (*models.Payment, error) {
	r.trace.add("payment", id)
	return r.PaymentRepository.GetByIDForUpdate(ctx, id)
}

type tracedDocuments struct {
	repositories.DocumentRepository
	trace *lockTrace
}

func (r tracedDocuments) GetByIDForUpdate(ctx context.Context, id int64) (*models.Document, error) {
	r.trace.add("document", id)
	return r.DocumentRepository.GetByIDForUpdate(ctx, id)
}

type tracingStore struct {
	*memory.Store
	trace *lockTrace
}

func (s *tracingStore) WithTransaction(ctx context.Context, fn repositories.TxFn) error {
	return s.Store.WithTransaction(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		traced := *repos
		traced.Students = tracedStudents{repos.Students, s.trace}
		traced.Offerings = tracedOfferings{repos.Offerings, s.trace}
		traced.Enrollments = tracedEnrollments{repos.Enrollments, s.trace}
		traced.Payments = tracedPayments{repos.Payments, s.trace}
		traced.Documents = tracedDocuments{repos.Documents, s.trace}
		return fn(ctx, &traced)
	})
}

func assertStudentLockedFirst(t *testing.T, locks []string, studentID int64) {
	t.Helper()
	want := fmt.Sprintf("student:%d", studentID)
	require.NotEmpty(t, locks)
	assert.Equal(t, want, locks[0], "locks: %v", locks)
	for _, l := range locks[1:] {
		if strings.HasPrefix(l, "student:") {
			assert.Equal(t, want, l, "locks: %v", locks)
		}
	}
}

func TestTransactionsLockStudentBeforeOtherRows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lobby := f.offering(t, "WLD-100", "OFF-000", 5)
	target := f.offering(t, "WLD-101", "OFF-100", 5)
	st := f.register(t, registration("Jane", "Doe", lobby.ID)).Student

	trace := &lockTrace{}
	store := &tracingStore{Store: f.store, trace: trace}
	log := zerolog.Nop()
	notifier := NewChangeNotifier(f.cache, f.events, log)
	enrollments := NewEnrollmentService(store, notifier, log)
	payments := NewPaymentService(store, f.storage, notifier, log)
	documents := NewDocumentService(store, f.storage, notifier, log)

	enrollment, err := enrollments.Enroll(ctx, &dto.EnrollRequest{StudentID: st.ID, OfferingID: target.ID})
	require.NoError(t, err)
	locks := trace.take()
	assertStudentLockedFirst(t, locks, st.ID)
	assert.Contains(t, locks, fmt.Sprintf("offering:%d", target.ID))

	_, err = enrollments.Withdraw(ctx, enrollment.ID)
	require.NoError(t, err)
	locks = trace.take()
	assertStudentLockedFirst(t, locks, st.ID)
	assert.Contains(t, locks, fmt.Sprintf("enrollment:%d", enrollment.ID))

	payment, err := payments.CreatePayment(ctx, &dto.CreatePaymentRequest{
		StudentID: st.ID, PaymentType: models.PaymentTuition, Amount: decimal.RequireFromString("75.00"),
	}, staffID)
	require.NoError(t, err)
	assertStudentLockedFirst(t, trace.take(), st.ID)

	_, err = payments.UpdateStatus(ctx, payment.ID, &dto.UpdatePaymentStatusRequest{Status: models.PaymentComplete}, staffID)
	require.NoError(t, err)
	locks = trace.take()
	assertStudentLockedFirst(t, locks, st.ID)
	assert.Contains(t, locks, fmt.Sprintf("payment:%d", payment.ID))

	doc, err := documents.UploadDocument(ctx, &dto.UploadDocumentForm{StudentID: st.ID, DocumentType: models.DocumentTranscript},
		fileHeader(t, "transcript.pdf", pdfBytes), staffID)
	require.NoError(t, err)
	assertStudentLockedFirst(t, trace.take(), st.ID)

	_, err = documents.VerifyDocument(ctx, doc.ID, &dto.VerifyDocumentRequest{Status: models.DocumentVerified}, staffID)
	require.NoError(t, err)
	locks = trace.take()
	assertStudentLockedFirst(t, locks, st.ID)
	assert.Contains(t, locks, fmt.Sprintf("document:%d", doc.ID))
}
