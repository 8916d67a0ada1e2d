package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/enrolladmin/internal/app/models"
	"github.com/yigit/enrolladmin/internal/app/models/dto"
	"github.com/yigit/enrolladmin/internal/app/repositories/memory"
	"github.com/yigit/enrolladmin/internal/pkg/apperrors"
	"github.com/yigit/enrolladmin/internal/pkg/auth"
	"github.com/yigit/enrolladmin/internal/pkg/email"
	"github.com/yigit/enrolladmin/internal/pkg/filestorage"
)

const staffID int64 = 1

var pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< >>\n%%EOF\n")

type fakeMailer struct {
	mu   sync.Mutex
	sent []email.Credentials
	err  error
}

func (m *fakeMailer) SendStudentCredentials(_ context.Context, creds email.Credentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, creds)
	return nil
}

type mapCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMapCache() *mapCache { return &mapCache{entries: make(map[string][]byte)} }

func (c *mapCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok, nil
}

func (c *mapCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return nil
}

func (c *mapCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
	}
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) Publish(entity, action string, _ int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, entity+":"+action)
}

type fixture struct {
	store    *memory.Store
	storage  *filestorage.LocalStorage
	mailer   *fakeMailer
	cache    *mapCache
	events   *recordingPublisher
	services *Services
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	storage, err := filestorage.NewLocalStorage(t.TempDir(), "/uploads", 1<<20)
	require.NoError(t, err)

	log := zerolog.Nop()
	f := &fixture{
		store:   store,
		storage: storage,
		mailer:  &fakeMailer{},
		cache:   newMapCache(),
		events:  &recordingPublisher{},
	}
	notifier := NewChangeNotifier(f.cache, f.events, log)
	jwt := auth.NewJWTService(auth.JWTConfig{SecretKey: "test-secret", AccessTokenExp: time.Hour, TokenIssuer: "enrolladmin"})

	f.services = &Services{
		Auth:        NewAuthService(store, jwt, log),
		Students:    NewStudentService(store, f.mailer, notifier, log),
		Catalog:     NewCatalogService(store, notifier, log),
		Enrollments: NewEnrollmentService(store, notifier, log),
		Payments:    NewPaymentService(store, storage, notifier, log),
		Documents:   NewDocumentService(store, storage, notifier, log),
		Outreach:    NewOutreachService(store, notifier, log),
		Dashboard:   NewDashboardService(store, f.cache, time.Minute, log),
	}
	return f
}

func (f *fixture) offering(t *testing.T, code, batch string, capacity int) *models.CourseOffering {
	t.Helper()
	ctx := context.Background()
	course, err := f.services.Catalog.CreateCourse(ctx, &dto.CreateCourseRequest{
		Code:            code,
		Name:            "Course " + code,
		CompetencyLevel: models.CompetencyBasic,
	})
	require.NoError(t, err)

	start := time.Now().UTC()
	off, err := f.services.Catalog.CreateOffering(ctx, &dto.CreateOfferingRequest{
		CourseID:  course.ID,
		Batch:     batch,
		Capacity:  capacity,
		StartDate: start.Format(models.DateLayout),
		EndDate:   start.AddDate(0, 3, 0).Format(models.DateLayout),
	})
	require.NoError(t, err)
	return off
}

func registration(first, last string, offeringID int64) *dto.RegisterStudentRequest {
	return &dto.RegisterStudentRequest{
		FirstName:       first,
		LastName:        last,
		Email:           strings.ToLower(first+"."+last) + "@example.com",
		CompetencyLevel: models.CompetencyBasic,
		OfferingID:      offeringID,
	}
}

func (f *fixture) register(t *testing.T, req *dto.RegisterStudentRequest) *dto.RegisterStudentResponse {
	t.Helper()
	resp, err := f.services.Students.RegisterStudent(context.Background(), req, staffID)
	require.NoError(t, err)
	return resp
}

func fileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(32 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File["file"][0]
}

func countFiles(t *testing.T, root string) int {
	t.Helper()
	n := 0
	err := filepath.WalkDir(root, func(_ string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			n++
		}
		return nil
	})
	require.NoError(t, err)
	return n
}

func TestRegisterStudent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	off := f.offering(t, "wld-101", "OFF-100", 5)

	req := registration("Jane", "Doe", off.ID)
	req.InitialPayment = &dto.InitialPaymentRequest{PaymentType: models.PaymentTuition, Amount: decimal.RequireFromString("1500.00")}
	resp := f.register(t, req)

	assert.Regexp(t, `^STU-\d{4}-000001$`, resp.Student.StudentNumber)
	assert.Equal(t, models.StudentEnrolled, resp.Student.EnrollmentStatus)
	assert.Equal(t, models.RoleStudent, resp.User.RoleType)
	require.NotNil(t, resp.User.StudentID)
	assert.Equal(t, resp.Student.ID, *resp.User.StudentID)
	assert.Equal(t, off.ID, resp.Enrollment.OfferingID)
	require.NotNil(t, resp.Payment)
	assert.Equal(t, models.PaymentPending, resp.Payment.Status)
	require.NotNil(t, resp.Payment.EnrollmentID)
	assert.Equal(t, resp.Enrollment.ID, *resp.Payment.EnrollmentID)

	require.Len(t, f.mailer.sent, 1)
	sent := f.mailer.sent[0]
	assert.Equal(t, "jane.doe@example.com", sent.ToEmail)
	assert.Equal(t, resp.Student.StudentNumber, sent.StudentNumber)
	assert.Len(t, sent.Password, temporaryPasswordLength)

	// the mailed password signs the student in
	login, err := f.services.Auth.Login(ctx, &dto.LoginRequest{Email: "Jane.Doe@example.com", Password: sent.Password})
	require.NoError(t, err)
	assert.NotEmpty(t, login.AccessToken)
	assert.Contains(t, f.events.events, "student:registered")
}

func TestRegisterStudentCapacityExceededLeavesNothingBehind(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	off := f.offering(t, "WLD-101", "OFF-100", 1)

	f.register(t, registration("Jane", "Doe", off.ID))

	_, err := f.services.Students.RegisterStudent(ctx, registration("John", "Roe", off.ID), staffID)
	require.ErrorIs(t, err, apperrors.ErrCapacityExceeded)

	students, total, err := f.services.Students.ListStudents(ctx, models.StudentFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, students, 1)
	assert.Equal(t, "Jane", students[0].FirstName)

	exists, err := f.store.Repositories().Users.EmailExists(ctx, "john.roe@example.com")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Len(t, f.mailer.sent, 1)
}

func TestRegisterStudentRejections(t *testing.T) {
	ctx := context.Background()

	t.Run("negative initial amount", func(t *testing.T) {
		f := newFixture(t)
		off := f.offering(t, "WLD-101", "OFF-100", 5)
		req := registration("Jane", "Doe", off.ID)
		req.InitialPayment = &dto.InitialPaymentRequest{PaymentType: models.PaymentTuition, Amount: decimal.NewFromInt(-5)}

		_, err := f.services.Students.RegisterStudent(ctx, req, staffID)
		assert.ErrorIs(t, err, apperrors.ErrInvalidAmount)
		_, total, err := f.services.Students.ListStudents(ctx, models.StudentFilter{})
		require.NoError(t, err)
		assert.Zero(t, total)
	})

	t.Run("duplicate email", func(t *testing.T) {
		f := newFixture(t)
		off := f.offering(t, "WLD-101", "OFF-100", 5)
		f.register(t, registration("Jane", "Doe", off.ID))

		again := registration("Jane", "Doe", off.ID)
		again.Email = "JANE.DOE@example.com"
		_, err := f.services.Students.RegisterStudent(ctx, again, staffID)
		assert.ErrorIs(t, err, apperrors.ErrEmailAlreadyExists)
	})

	t.Run("closed offering", func(t *testing.T) {
		f := newFixture(t)
		off := f.offering(t, "WLD-101", "OFF-100", 5)
		_, err := f.services.Catalog.UpdateOfferingStatus(ctx, off.ID, models.OfferingClosed)
		require.NoError(t, err)

		_, err = f.services.Students.RegisterStudent(ctx, registration("Jane", "Doe", off.ID), staffID)
		assert.ErrorIs(t, err, apperrors.ErrOfferingClosed)
	})

	t.Run("unknown offering", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.services.Students.RegisterStudent(ctx, registration("Jane", "Doe", 999), staffID)
		assert.ErrorIs(t, err, apperrors.ErrOfferingNotFound)
	})
}

func TestRegisterStudentKeepsRegistrationWhenEmailFails(t *testing.T) {
	f := newFixture(t)
	f.mailer.err = errors.New("smtp down")
	off := f.offering(t, "WLD-101", "OFF-100", 5)

	resp := f.register(t, registration("Jane", "Doe", off.ID))

	got, err := f.services.Students.GetStudent(context.Background(), resp.Student.ID)
	require.NoError(t, err)
	assert.Equal(t, resp.Student.StudentNumber, got.StudentNumber)
}

func TestRegisterStudentResolvesReferral(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	off := f.offering(t, "WLD-101", "OFF-100", 5)
	referrer := f.register(t, registration("Jane", "Doe", off.ID))

	referral, err := f.services.Outreach.CreateReferral(ctx, &dto.CreateReferralRequest{
		ReferrerStudentID: referrer.Student.ID,
		ReferredName:      "John Roe",
		ReferredEmail:     "john.roe@example.com",
	})
	require.NoError(t, err)

	req := registration("John", "Roe", off.ID)
	req.ReferralID = &referral.ID
	referred := f.register(t, req)

	got, err := f.services.Outreach.GetReferral(ctx, referral.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReferralEnrolled, got.Status)
	require.NotNil(t, got.ReferredStudentID)
	assert.Equal(t, referred.Student.ID, *got.ReferredStudentID)

	// a resolved referral cannot be used twice
	third := registration("Ann", "Poe", off.ID)
	third.ReferralID = &referral.ID
	_, err = f.services.Students.RegisterStudent(ctx, third, staffID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

func TestCreatePaymentRejectsUnstorableAmount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	off := f.offering(t, "WLD-101", "OFF-100", 5)
	st := f.register(t, registration("Jane", "Doe", off.ID)).Student

	tests := []struct {
		name   string
		amount string
	}{
		{"negative", "-5"},
		{"zero", "0"},
		{"rounds to zero", "0.004"},
		{"third decimal place", "0.005"},
		{"too large", "123456789012.99"},
		{"just over the maximum", "10000000000.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.services.Payments.CreatePayment(ctx, &dto.CreatePaymentRequest{
				StudentID:   st.ID,
				PaymentType: models.PaymentTuition,
				Amount:      decimal.RequireFromString(tt.amount),
			}, staffID)
			require.ErrorIs(t, err, apperrors.ErrInvalidAmount)
			var custom *apperrors.CustomError
			require.True(t, errors.As(err, &custom))
			assert.Equal(t, "amount", custom.Field)
		})
	}

	_, total, err := f.services.Payments.ListPayments(ctx, models.PaymentFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)

	for _, amount := range []string{"0.01", "10.500", "9999999999.99"} {
		p, err := f.services.Payments.CreatePayment(ctx, &dto.CreatePaymentRequest{
			StudentID:   st.ID,
			PaymentType: models.PaymentTuition,
			Amount:      decimal.RequireFromString(amount),
		}, staffID)
		require.NoError(t, err, amount)
		assert.True(t, p.Amount.Equal(decimal.RequireFromString(amount)), amount)
	}
}

func TestCreateScholarshipRejectsUnstorableAmount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, amount := range []string{"-1", "250.125", "123456789012.99"} {
		_, err := f.services.Outreach.CreateScholarship(ctx, &dto.CreateScholarshipRequest{
			Title:       "Merit award",
			SponsorName: "Acme",
			Amount:      decimal.RequireFromString(amount),
		})
		assert.ErrorIs(t, err, apperrors.ErrInvalidAmount, amount)
	}

	offer, err := f.services.Outreach.CreateScholarship(ctx, &dto.CreateScholarshipRequest{
		Title:       "Merit award",
		SponsorName: "Acme",
		Amount:      decimal.RequireFromString("500.00"),
	})
	require.NoError(t, err)
	assert.True(t, offer.Amount.Equal(decimal.NewFromInt(500)))
}

func TestCreatePaymentWithReceipt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	off := f.offering(t, "WLD-101", "OFF-100", 5)
	st := f.register(t, registration("Jane", "Doe", off.ID)).Student
	req := &dto.CreatePaymentRequest{StudentID: st.ID, PaymentType: models.PaymentMaterials, Amount: decimal.RequireFromString("42.50")}

	_, err := f.services.Payments.CreatePaymentWithReceipt(ctx, req, fileHeader(t, "virus.exe", []byte("MZ\x90\x00")), staffID)
	require.ErrorIs(t, err, apperrors.ErrUnsupportedFileType)
	assert.Zero(t, countFiles(t, f.storage.BasePath()))

	payment, err := f.services.Payments.CreatePaymentWithReceipt(ctx, req, fileHeader(t, "receipt.pdf", pdfBytes), staffID)
	require.NoError(t, err)
	require.NotNil(t, payment.Receipt)
	assert.True(t, strings.HasPrefix(payment.Receipt.URL, "/uploads/receipts/"))
	assert.Equal(t, 1, countFiles(t, f.storage.BasePath()))

	_, total, err := f.services.Payments.ListPayments(ctx, models.PaymentFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestPaymentStatusTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	off := f.offering(t, "WLD-101", "OFF-100", 5)
	st := f.register(t, registration("Jane", "Doe", off.ID)).Student

	payment, err := f.services.Payments.CreatePayment(ctx, &dto.CreatePaymentRequest{
		StudentID: st.ID, PaymentType: models.PaymentTuition, Amount: decimal.RequireFromString("100"),
	}, staffID)
	require.NoError(t, err)

	updated, err := f.services.Payments.UpdateStatus(ctx, payment.ID, &dto.UpdatePaymentStatusRequest{Status: models.PaymentComplete}, 9)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentComplete, updated.Status)
	require.NotNil(t, updated.StatusUpdatedBy)
	assert.Equal(t, int64(9), *updated.StatusUpdatedBy)

	_, err = f.services.Payments.UpdateStatus(ctx, payment.ID, &dto.UpdatePaymentStatusRequest{Status: models.PaymentFailed}, 9)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	summary, err := f.services.Payments.Summary(ctx)
	require.NoError(t, err)
	assert.True(t, summary.TotalRevenue.Equal(decimal.NewFromInt(100)), summary.TotalRevenue.String())
}

func TestVerifyDocumentRequiresNotes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	off := f.offering(t, "WLD-101", "OFF-100", 5)
	st := f.register(t, registration("Jane", "Doe", off.ID)).Student

	doc, err := f.services.Documents.UploadDocument(ctx, &dto.UploadDocumentForm{StudentID: st.ID, DocumentType: models.DocumentTranscript},
		fileHeader(t, "transcript.pdf", pdfBytes), staffID)
	require.NoError(t, err)

	_, err = f.services.Documents.VerifyDocument(ctx, doc.ID, &dto.VerifyDocumentRequest{Status: models.DocumentRequiresUpdate, Notes: "  "}, staffID)
	require.ErrorIs(t, err, apperrors.ErrMissingVerificationNotes)

	got, err := f.services.Documents.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DocumentPending, got.Status)
	assert.Nil(t, got.VerifiedBy)

	verified, err := f.services.Documents.VerifyDocument(ctx, doc.ID, &dto.VerifyDocumentRequest{Status: models.DocumentVerified}, staffID)
	require.NoError(t, err)
	assert.Equal(t, models.DocumentVerified, verified.Status)
	require.NotNil(t, verified.VerifiedAt)

	_, err = f.services.Documents.VerifyDocument(ctx, doc.ID, &dto.VerifyDocumentRequest{Status: models.DocumentRejected, Notes: "late"}, staffID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

func TestDocumentFileRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	off := f.offering(t, "WLD-101", "OFF-100", 5)
	st := f.register(t, registration("Jane", "Doe", off.ID)).Student

	doc, err := f.services.Documents.UploadDocument(ctx, &dto.UploadDocumentForm{StudentID: st.ID, DocumentType: models.DocumentDiploma},
		fileHeader(t, "diploma.pdf", pdfBytes), staffID)
	require.NoError(t, err)
	assert.Equal(t, "diploma.pdf", doc.File.OriginalName)

	_, rc, err := f.services.Documents.OpenDocumentFile(ctx, doc.ID)
	require.NoError(t, err)
	defer rc.Close()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, pdfBytes, got)
}

func TestUploadDocumentRejectsUnsupportedType(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	off := f.offering(t, "WLD-101", "OFF-100", 5)
	st := f.register(t, registration("Jane", "Doe", off.ID)).Student

	_, err := f.services.Documents.UploadDocument(ctx, &dto.UploadDocumentForm{StudentID: st.ID, DocumentType: models.DocumentOther},
		fileHeader(t, "setup.exe", []byte("MZ\x90\x00")), staffID)
	require.ErrorIs(t, err, apperrors.ErrUnsupportedFileType)

	docs, err := f.services.Documents.ListDocuments(ctx, models.DocumentFilter{})
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestResubmitDocument(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	off := f.offering(t, "WLD-101", "OFF-100", 5)
	st := f.register(t, registration("Jane", "Doe", off.ID)).Student

	doc, err := f.services.Documents.UploadDocument(ctx, &dto.UploadDocumentForm{StudentID: st.ID, DocumentType: models.DocumentIDPhoto},
		fileHeader(t, "photo.pdf", pdfBytes), staffID)
	require.NoError(t, err)

	_, err = f.services.Documents.ResubmitDocument(ctx, doc.ID, fileHeader(t, "photo.pdf", pdfBytes), staffID)
	require.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	_, err = f.services.Documents.VerifyDocument(ctx, doc.ID, &dto.VerifyDocumentRequest{Status: models.DocumentRequiresUpdate, Notes: "blurry"}, staffID)
	require.NoError(t, err)

	next, err := f.services.Documents.ResubmitDocument(ctx, doc.ID, fileHeader(t, "photo2.pdf", pdfBytes), staffID)
	require.NoError(t, err)
	assert.Equal(t, models.DocumentPending, next.Status)
	require.NotNil(t, next.SupersedesID)
	assert.Equal(t, doc.ID, *next.SupersedesID)

	_, err = f.services.Documents.ResubmitDocument(ctx, doc.ID, fileHeader(t, "photo3.pdf", pdfBytes), staffID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

func TestEnrollWithdrawAndReenroll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.offering(t, "WLD-101", "OFF-100", 5)
	second := f.offering(t, "WLD-102", "OFF-200", 1)
	st := f.register(t, registration("Jane", "Doe", first.ID)).Student

	enrollment, err := f.services.Enrollments.Enroll(ctx, &dto.EnrollRequest{StudentID: st.ID, OfferingID: second.ID})
	require.NoError(t, err)

	_, err = f.services.Enrollments.Enroll(ctx, &dto.EnrollRequest{StudentID: st.ID, OfferingID: second.ID})
	require.ErrorIs(t, err, apperrors.ErrDuplicateEnrollment)

	withdrawn, err := f.services.Enrollments.Withdraw(ctx, enrollment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentWithdrawn, withdrawn.Status)
	assert.NotNil(t, withdrawn.WithdrawnAt)

	_, err = f.services.Enrollments.Withdraw(ctx, enrollment.ID)
	require.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	// the freed seat can be taken again
	again, err := f.services.Enrollments.Enroll(ctx, &dto.EnrollRequest{StudentID: st.ID, OfferingID: second.ID})
	require.NoError(t, err)
	assert.NotEqual(t, enrollment.ID, again.ID)
}

func TestUpdateOfferingCapacityBelowEnrolled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	off := f.offering(t, "WLD-101", "OFF-100", 3)
	f.register(t, registration("Jane", "Doe", off.ID))
	f.register(t, registration("John", "Roe", off.ID))

	one := 1
	_, err := f.services.Catalog.UpdateOffering(ctx, off.ID, &dto.UpdateOfferingRequest{Capacity: &one})
	require.ErrorIs(t, err, apperrors.ErrCapacityBelowEnrolled)

	two := 2
	updated, err := f.services.Catalog.UpdateOffering(ctx, off.ID, &dto.UpdateOfferingRequest{Capacity: &two})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Capacity)
}

func TestGraduationRequiresEligibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	off := f.offering(t, "WLD-101", "OFF-100", 5)

	req := registration("Jane", "Doe", off.ID)
	req.InitialPayment = &dto.InitialPaymentRequest{PaymentType: models.PaymentTuition, Amount: decimal.RequireFromString("1500")}
	resp := f.register(t, req)
	graduate := &dto.UpdateStudentStatusRequest{Status: models.StudentGraduated}

	_, err := f.services.Students.UpdateStatus(ctx, resp.Student.ID, graduate)
	require.ErrorIs(t, err, apperrors.ErrNotEligibleToGraduate)

	_, err = f.services.Enrollments.Complete(ctx, resp.Enrollment.ID)
	require.NoError(t, err)
	_, err = f.services.Students.UpdateStatus(ctx, resp.Student.ID, graduate)
	require.ErrorIs(t, err, apperrors.ErrNotEligibleToGraduate, "payment is still pending")

	_, err = f.services.Payments.UpdateStatus(ctx, resp.Payment.ID, &dto.UpdatePaymentStatusRequest{Status: models.PaymentComplete}, staffID)
	require.NoError(t, err)

	st, err := f.services.Students.GetStudent(ctx, resp.Student.ID)
	require.NoError(t, err)
	assert.True(t, st.GraduationEligible)

	graduated, err := f.services.Students.UpdateStatus(ctx, resp.Student.ID, graduate)
	require.NoError(t, err)
	assert.Equal(t, models.StudentGraduated, graduated.EnrollmentStatus)
	assert.NotNil(t, graduated.GraduationDate)

	_, err = f.services.Students.UpdateStatus(ctx, resp.Student.ID, &dto.UpdateStudentStatusRequest{Status: models.StudentDropped})
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

func TestDropWithdrawsActiveEnrollments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	off := f.offering(t, "WLD-101", "OFF-100", 1)
	resp := f.register(t, registration("Jane", "Doe", off.ID))

	dropped, err := f.services.Students.UpdateStatus(ctx, resp.Student.ID, &dto.UpdateStudentStatusRequest{Status: models.StudentDropped})
	require.NoError(t, err)
	assert.Equal(t, models.StudentDropped, dropped.EnrollmentStatus)

	e, err := f.services.Enrollments.GetEnrollment(ctx, resp.Enrollment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentWithdrawn, e.Status)

	// the seat is free for someone else
	f.register(t, registration("John", "Roe", off.ID))

	_, err = f.services.Enrollments.Enroll(ctx, &dto.EnrollRequest{StudentID: resp.Student.ID, OfferingID: off.ID})
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

func TestRecomputeEligibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	off := f.offering(t, "WLD-101", "OFF-100", 5)
	jane := f.register(t, registration("Jane", "Doe", off.ID))
	f.register(t, registration("John", "Roe", off.ID))

	_, err := f.services.Enrollments.Complete(ctx, jane.Enrollment.ID)
	require.NoError(t, err)

	result, err := f.services.Students.RecomputeEligibility(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Checked)
	assert.Equal(t, 1, result.Eligible)
	// completing the enrollment already refreshed Jane's flag
	assert.Zero(t, result.Changed)
}

func TestDashboardMetrics(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	off := f.offering(t, "WLD-101", "OFF-100", 5)

	req := registration("Jane", "Doe", off.ID)
	req.InitialPayment = &dto.InitialPaymentRequest{PaymentType: models.PaymentTuition, Amount: decimal.RequireFromString("250.25")}
	f.register(t, req)

	first, err := f.services.Dashboard.GetMetrics(ctx)
	require.NoError(t, err)
	m := first.Metrics
	assert.Equal(t, int64(1), m.EnrolledCount)
	assert.Equal(t, int64(1), m.PendingPaymentCount)
	assert.True(t, m.TotalRevenue.IsZero())
	assert.Equal(t, int64(1), m.OpenOfferingCount)
	assert.Equal(t, int64(1), m.CompetencyBreakdown[models.CompetencyBasic])
	assert.Zero(t, m.CompetencyBreakdown[models.CompetencyCore])
	require.Len(t, m.MonthlyEnrollmentHistogram, HistogramMonths)
	assert.Equal(t, int64(1), m.MonthlyEnrollmentHistogram[HistogramMonths-1].Count)

	// served from cache without changes
	second, err := f.services.Dashboard.GetMetrics(ctx)
	require.NoError(t, err)
	assert.True(t, first.GeneratedAt.Equal(second.GeneratedAt))
	assert.Equal(t, first.Metrics.EnrolledCount, second.Metrics.EnrolledCount)

	// computing directly is side effect free
	a, err := f.services.Dashboard.ComputeMetrics(ctx)
	require.NoError(t, err)
	b, err := f.services.Dashboard.ComputeMetrics(ctx)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	// a write drops the cached copy
	f.register(t, registration("John", "Roe", off.ID))
	third, err := f.services.Dashboard.GetMetrics(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), third.Metrics.EnrolledCount)

	require.NoError(t, f.services.Dashboard.ClearCache(ctx))
	_, hit, err := f.cache.Get(ctx, MetricsCacheKey)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestLoginAndCreateUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.services.Auth.CreateUser(ctx, &dto.CreateUserRequest{Email: "staff@example.com", Password: "password", FullName: "Sam Staff", Role: models.RoleStaff})
	require.ErrorIs(t, err, apperrors.ErrValidationFailed)

	user, err := f.services.Auth.CreateUser(ctx, &dto.CreateUserRequest{Email: "Staff@Example.com", Password: "passw0rd1", FullName: "Sam Staff", Role: models.RoleStaff})
	require.NoError(t, err)
	assert.Equal(t, "staff@example.com", user.Email)

	_, err = f.services.Auth.CreateUser(ctx, &dto.CreateUserRequest{Email: "staff@example.com", Password: "passw0rd1", FullName: "Again", Role: models.RoleAdmin})
	require.ErrorIs(t, err, apperrors.ErrEmailAlreadyExists)

	_, err = f.services.Auth.CreateUser(ctx, &dto.CreateUserRequest{Email: "kid@example.com", Password: "passw0rd1", FullName: "Kid", Role: models.RoleStudent})
	require.ErrorIs(t, err, apperrors.ErrValidationFailed)

	_, err = f.services.Auth.Login(ctx, &dto.LoginRequest{Email: "staff@example.com", Password: "wrong-pass1"})
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	_, err = f.services.Auth.Login(ctx, &dto.LoginRequest{Email: "nobody@example.com", Password: "passw0rd1"})
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	resp, err := f.services.Auth.Login(ctx, &dto.LoginRequest{Email: "staff@example.com", Password: "passw0rd1"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, 3600, resp.ExpiresIn)
	assert.NotNil(t, resp.User.LastLoginAt)

	me, err := f.services.Auth.GetCurrentUser(ctx, user.ID)
	require.NoError(t, err)
	assert.NotNil(t, me.LastLoginAt)
}

func TestRecordAssessmentUpdatesCompetency(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	off := f.offering(t, "WLD-101", "OFF-100", 5)
	st := f.register(t, registration("Jane", "Doe", off.ID)).Student

	score := 88
	_, err := f.services.Students.RecordAssessment(ctx, st.ID, &dto.RecordAssessmentRequest{Level: models.CompetencyCore, Score: &score}, staffID)
	require.NoError(t, err)

	got, err := f.services.Students.GetStudent(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CompetencyCore, got.CompetencyLevel)

	list, err := f.services.Students.ListAssessments(ctx, st.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 88, *list[0].Score)

	_, err = f.services.Students.RecordAssessment(ctx, 999, &dto.RecordAssessmentRequest{Level: models.CompetencyCore}, staffID)
	assert.ErrorIs(t, err, apperrors.ErrStudentNotFound)
}
