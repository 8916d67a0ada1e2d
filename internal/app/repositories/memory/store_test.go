package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/enrolladmin/internal/app/models"
	"github.com/yigit/enrolladmin/internal/app/repositories"
	"github.com/yigit/enrolladmin/internal/pkg/apperrors"
)

var _ repositories.Store = (*Store)(nil)

func newStudent(first, last, email string) *models.Student {
	return &models.Student{
		FirstName:        first,
		LastName:         last,
		Email:            email,
		CompetencyLevel:  models.CompetencyBasic,
		EnrollmentStatus: models.StudentEnrolled,
		EnrollmentDate:   models.Today(),
	}
}

func TestWithTransactionRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	boom := errors.New("boom")

	err := store.WithTransaction(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		require.NoError(t, repos.Students.Create(ctx, newStudent("Jane", "Doe", "jane@x.com")))
		return boom
	})
	require.ErrorIs(t, err, boom)

	students, total, err := store.Repositories().Students.List(ctx, models.StudentFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, students)
}

func TestWithTransactionCommits(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	err := store.WithTransaction(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		return repos.Students.Create(ctx, newStudent("Jane", "Doe", "Jane@X.com"))
	})
	require.NoError(t, err)

	exists, err := store.Repositories().Students.EmailExists(ctx, "jane@x.com")
	require.NoError(t, err)
	assert.True(t, exists)

	err = store.Repositories().Students.Create(ctx, newStudent("Other", "Jane", "jane@x.com"))
	assert.ErrorIs(t, err, apperrors.ErrEmailAlreadyExists)
}

func TestEnrollmentActiveUniqueness(t *testing.T) {
	ctx := context.Background()
	repos := NewStore().Repositories()

	st := newStudent("Jane", "Doe", "jane@x.com")
	require.NoError(t, repos.Students.Create(ctx, st))
	course := &models.Course{Code: "WLD-101", Name: "Welding", CompetencyLevel: models.CompetencyBasic, IsActive: true}
	require.NoError(t, repos.Courses.Create(ctx, course))
	off := &models.CourseOffering{CourseID: course.ID, Batch: "OFF-100", Capacity: 2, Status: models.OfferingOpen,
		StartDate: models.Today(), EndDate: models.Today().AddDate(0, 3, 0)}
	require.NoError(t, repos.Offerings.Create(ctx, off))

	first := &models.Enrollment{StudentID: st.ID, OfferingID: off.ID, Status: models.EnrollmentEnrolled, EnrollmentDate: models.Today()}
	require.NoError(t, repos.Enrollments.Create(ctx, first))
	err := repos.Enrollments.Create(ctx, &models.Enrollment{StudentID: st.ID, OfferingID: off.ID, Status: models.EnrollmentEnrolled})
	assert.ErrorIs(t, err, apperrors.ErrDuplicateEnrollment)

	got, err := repos.Offerings.GetByID(ctx, off.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.ActiveEnrollmentCount)
	assert.Equal(t, "WLD-101", got.Course.Code)

	now := time.Now()
	first.Status = models.EnrollmentWithdrawn
	first.WithdrawnAt = &now
	require.NoError(t, repos.Enrollments.Update(ctx, first))
	require.NoError(t, repos.Enrollments.Create(ctx, &models.Enrollment{StudentID: st.ID, OfferingID: off.ID, Status: models.EnrollmentEnrolled}))

	all, err := repos.Enrollments.List(ctx, models.EnrollmentFilter{StudentID: &st.ID})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestStudentListFiltersAndPaging(t *testing.T) {
	ctx := context.Background()
	repos := NewStore().Repositories()

	for _, s := range []*models.Student{
		newStudent("Ana", "Zed", "ana@x.com"),
		newStudent("Bo", "Adams", "bo@x.com"),
		newStudent("Cy", "Moss", "cy@x.com"),
	} {
		require.NoError(t, repos.Students.Create(ctx, s))
	}

	page, total, err := repos.Students.List(ctx, models.StudentFilter{Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, page, 2)
	assert.Equal(t, "Adams", page[0].LastName)
	assert.Equal(t, "Moss", page[1].LastName)

	search := "ZED"
	found, total, err := repos.Students.List(ctx, models.StudentFilter{Search: &search, NameSort: models.SortDesc})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "ana@x.com", found[0].Email)
}

func TestPaymentCreateRejectsUnstorableAmount(t *testing.T) {
	ctx := context.Background()
	repos := NewStore().Repositories()
	st := newStudent("Jane", "Doe", "jane@x.com")
	require.NoError(t, repos.Students.Create(ctx, st))

	for _, amount := range []string{"-5", "0", "0.004", "0.005", "123456789012.99"} {
		err := repos.Payments.Create(ctx, &models.Payment{StudentID: st.ID, Amount: decimal.RequireFromString(amount), Status: models.PaymentPending})
		assert.ErrorIs(t, err, apperrors.ErrInvalidAmount, amount)
	}
	err := repos.Scholarships.Create(ctx, &models.ScholarshipOffer{Title: "Merit", SponsorName: "Acme", Amount: decimal.RequireFromString("12.345")})
	assert.ErrorIs(t, err, apperrors.ErrInvalidAmount)

	_, total, err := repos.Payments.List(ctx, models.PaymentFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
}
