package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/yigit/enrolladmin/internal/app/models"
	"github.com/yigit/enrolladmin/internal/pkg/apperrors"
)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type userRepo struct{ s *session }

func (r *userRepo) Create(_ context.Context, u *models.User) error {
	defer r.s.lock()()
	d := r.s.data()

	u.Email = normalizeEmail(u.Email)
	for _, existing := range d.users {
		if existing.Email == u.Email {
			return apperrors.ErrEmailAlreadyExists
		}
	}
	now := r.s.now()
	u.ID = d.next("users")
	u.CreatedAt, u.UpdatedAt = now, now
	d.users[u.ID] = *u
	return nil
}

func (r *userRepo) GetByID(_ context.Context, id int64) (*models.User, error) {
	defer r.s.lock()()
	u, ok := r.s.data().users[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	return &u, nil
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	defer r.s.lock()()
	email = normalizeEmail(email)
	for _, u := range r.s.data().users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, apperrors.ErrUserNotFound
}

func (r *userRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := r.GetByEmail(ctx, email)
	if err != nil {
		return false, nil
	}
	return true, nil
}

func (r *userRepo) UpdateLastLogin(_ context.Context, id int64, at time.Time) error {
	defer r.s.lock()()
	d := r.s.data()
	u, ok := d.users[id]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	u.LastLoginAt = &at
	u.UpdatedAt = r.s.now()
	d.users[id] = u
	return nil
}

type studentRepo struct{ s *session }

func (r *studentRepo) Create(_ context.Context, st *models.Student) error {
	defer r.s.lock()()
	d := r.s.data()

	st.Email = normalizeEmail(st.Email)
	for _, existing := range d.students {
		if existing.Email == st.Email {
			return apperrors.ErrEmailAlreadyExists
		}
	}
	now := r.s.now()
	st.ID = d.next("students")
	st.CreatedAt, st.UpdatedAt = now, now
	d.students[st.ID] = *st
	return nil
}

func (r *studentRepo) NextStudentSequence(_ context.Context) (int64, error) {
	defer r.s.lock()()
	d := r.s.data()
	d.studentSeq++
	return d.studentSeq, nil
}

func (r *studentRepo) GetByID(_ context.Context, id int64) (*models.Student, error) {
	defer r.s.lock()()
	st, ok := r.s.data().students[id]
	if !ok {
		return nil, apperrors.ErrStudentNotFound
	}
	return &st, nil
}

func (r *studentRepo) GetByIDForUpdate(ctx context.Context, id int64) (*models.Student, error) {
	return r.GetByID(ctx, id)
}

func (r *studentRepo) EmailExists(_ context.Context, email string) (bool, error) {
	defer r.s.lock()()
	email = normalizeEmail(email)
	for _, st := range r.s.data().students {
		if st.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *studentRepo) matches(d *dataset, st models.Student, f models.StudentFilter) bool {
	if f.Competency != nil && st.CompetencyLevel != *f.Competency {
		return false
	}
	if f.Status != nil && st.EnrollmentStatus != *f.Status {
		return false
	}
	if f.Batch != nil {
		found := false
		for _, e := range d.enrollments {
			if e.StudentID == st.ID && e.Status == models.EnrollmentEnrolled && d.offerings[e.OfferingID].Batch == *f.Batch {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Search != nil {
		q := strings.ToLower(strings.TrimSpace(*f.Search))
		if q != "" {
			hay := []string{st.FirstName, st.LastName, st.Email, st.StudentNumber}
			hit := false
			for _, h := range hay {
				if strings.Contains(strings.ToLower(h), q) {
					hit = true
					break
				}
			}
			if !hit {
				return false
			}
		}
	}
	return true
}

func (r *studentRepo) List(_ context.Context, f models.StudentFilter) ([]*models.Student, int64, error) {
	defer r.s.lock()()
	d := r.s.data()

	var matched []models.Student
	for _, st := range d.students {
		if r.matches(d, st, f) {
			matched = append(matched, st)
		}
	}

	desc := f.NameSort == models.SortDesc
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if a.LastName != b.LastName {
			return (a.LastName < b.LastName) != desc
		}
		if a.FirstName != b.FirstName {
			return (a.FirstName < b.FirstName) != desc
		}
		return a.ID < b.ID
	})

	total := int64(len(matched))
	start, end := 0, len(matched)
	if f.Limit > 0 {
		start = min(int(f.Offset), len(matched))
		end = min(start+f.Limit, len(matched))
	}

	out := make([]*models.Student, 0, end-start)
	for i := start; i < end; i++ {
		st := matched[i]
		out = append(out, &st)
	}
	return out, total, nil
}

func (r *studentRepo) Update(_ context.Context, st *models.Student) error {
	defer r.s.lock()()
	d := r.s.data()
	existing, ok := d.students[st.ID]
	if !ok {
		return apperrors.ErrStudentNotFound
	}
	st.StudentNumber = existing.StudentNumber
	st.Email = existing.Email
	st.CreatedAt = existing.CreatedAt
	st.UpdatedAt = r.s.now()
	d.students[st.ID] = *st
	return nil
}

func (r *studentRepo) ListIDsByStatus(_ context.Context, status models.StudentStatus) ([]int64, error) {
	defer r.s.lock()()
	var ids []int64
	for id, st := range r.s.data().students {
		if st.EnrollmentStatus == status {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (r *studentRepo) EligibilityFacts(_ context.Context, studentID int64) (models.EligibilityFacts, error) {
	defer r.s.lock()()
	d := r.s.data()

	var f models.EligibilityFacts
	for _, e := range d.enrollments {
		if e.StudentID != studentID {
			continue
		}
		switch e.Status {
		case models.EnrollmentCompleted:
			f.CompletedEnrollments++
		case models.EnrollmentEnrolled:
			f.ActiveEnrollments++
		}
	}
	for _, p := range d.payments {
		if p.StudentID == studentID && p.Status == models.PaymentPending {
			f.PendingPayments++
		}
	}
	superseded := make(map[int64]bool)
	for _, doc := range d.documents {
		if doc.SupersedesID != nil {
			superseded[*doc.SupersedesID] = true
		}
	}
	for _, doc := range d.documents {
		if doc.StudentID != studentID || superseded[doc.ID] {
			continue
		}
		if doc.Status == models.DocumentPending || doc.Status == models.DocumentRequiresUpdate {
			f.OpenDocuments++
		}
	}
	return f, nil
}
