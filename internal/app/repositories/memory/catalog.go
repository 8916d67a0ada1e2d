package memory

import (
	"context"
	"sort"

	"github.com/yigit/enrolladmin/internal/app/models"
	"github.com/yigit/enrolladmin/internal/pkg/apperrors"
)

type courseRepo struct{ s *session }

func (r *courseRepo) Create(_ context.Context, c *models.Course) error {
	defer r.s.lock()()
	d := r.s.data()
	for _, existing := range d.courses {
		if existing.Code == c.Code {
			return apperrors.ErrCourseCodeExists
		}
	}
	now := r.s.now()
	c.ID = d.next("courses")
	c.CreatedAt, c.UpdatedAt = now, now
	d.courses[c.ID] = *c
	return nil
}

func (r *courseRepo) GetByID(_ context.Context, id int64) (*models.Course, error) {
	defer r.s.lock()()
	c, ok := r.s.data().courses[id]
	if !ok {
		return nil, apperrors.ErrCourseNotFound
	}
	return &c, nil
}

func (r *courseRepo) List(_ context.Context, activeOnly bool) ([]*models.Course, error) {
	defer r.s.lock()()
	out := make([]*models.Course, 0)
	for _, c := range r.s.data().courses {
		if activeOnly && !c.IsActive {
			continue
		}
		c := c
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

type offeringRepo struct{ s *session }

func activeCount(d *dataset, offeringID int64) int {
	n := 0
	for _, e := range d.enrollments {
		if e.OfferingID == offeringID && e.Status == models.EnrollmentEnrolled {
			n++
		}
	}
	return n
}

func (r *offeringRepo) hydrate(d *dataset, o models.CourseOffering) *models.CourseOffering {
	o.ActiveEnrollmentCount = activeCount(d, o.ID)
	if c, ok := d.courses[o.CourseID]; ok {
		o.Course = &c
	}
	return &o
}

func (r *offeringRepo) Create(_ context.Context, o *models.CourseOffering) error {
	defer r.s.lock()()
	d := r.s.data()
	if _, ok := d.courses[o.CourseID]; !ok {
		return apperrors.ErrCourseNotFound
	}
	for _, existing := range d.offerings {
		if existing.CourseID == o.CourseID && existing.Batch == o.Batch {
			return apperrors.ErrBatchExists
		}
	}
	now := r.s.now()
	o.ID = d.next("offerings")
	o.CreatedAt, o.UpdatedAt = now, now
	stored := *o
	stored.Course = nil
	stored.ActiveEnrollmentCount = 0
	d.offerings[o.ID] = stored
	return nil
}

func (r *offeringRepo) GetByID(_ context.Context, id int64) (*models.CourseOffering, error) {
	defer r.s.lock()()
	d := r.s.data()
	o, ok := d.offerings[id]
	if !ok {
		return nil, apperrors.ErrOfferingNotFound
	}
	return r.hydrate(d, o), nil
}

func (r *offeringRepo) GetByIDForUpdate(ctx context.Context, id int64) (*models.CourseOffering, error) {
	return r.GetByID(ctx, id)
}

func (r *offeringRepo) List(_ context.Context, f models.OfferingFilter) ([]*models.CourseOffering, error) {
	defer r.s.lock()()
	d := r.s.data()
	out := make([]*models.CourseOffering, 0)
	for _, o := range d.offerings {
		if f.CourseID != nil && o.CourseID != *f.CourseID {
			continue
		}
		if f.Status != nil && o.Status != *f.Status {
			continue
		}
		if f.Batch != nil && o.Batch != *f.Batch {
			continue
		}
		out = append(out, r.hydrate(d, o))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].StartDate.After(out[j].StartDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *offeringRepo) Update(_ context.Context, o *models.CourseOffering) error {
	defer r.s.lock()()
	d := r.s.data()
	existing, ok := d.offerings[o.ID]
	if !ok {
		return apperrors.ErrOfferingNotFound
	}
	existing.Capacity = o.Capacity
	existing.StartDate = o.StartDate
	existing.EndDate = o.EndDate
	existing.Status = o.Status
	existing.UpdatedAt = r.s.now()
	d.offerings[o.ID] = existing
	o.UpdatedAt = existing.UpdatedAt
	return nil
}

type enrollmentRepo struct{ s *session }

func (r *enrollmentRepo) Create(_ context.Context, e *models.Enrollment) error {
	defer r.s.lock()()
	d := r.s.data()
	if _, ok := d.students[e.StudentID]; !ok {
		return apperrors.ErrStudentNotFound
	}
	if _, ok := d.offerings[e.OfferingID]; !ok {
		return apperrors.ErrOfferingNotFound
	}
	if e.Status == models.EnrollmentEnrolled {
		for _, existing := range d.enrollments {
			if existing.StudentID == e.StudentID && existing.OfferingID == e.OfferingID && existing.Status == models.EnrollmentEnrolled {
				return apperrors.ErrDuplicateEnrollment
			}
		}
	}
	now := r.s.now()
	e.ID = d.next("enrollments")
	e.CreatedAt, e.UpdatedAt = now, now
	stored := *e
	stored.Offering = nil
	d.enrollments[e.ID] = stored
	return nil
}

func (r *enrollmentRepo) GetByID(_ context.Context, id int64) (*models.Enrollment, error) {
	defer r.s.lock()()
	e, ok := r.s.data().enrollments[id]
	if !ok {
		return nil, apperrors.ErrEnrollmentNotFound
	}
	return &e, nil
}

func (r *enrollmentRepo) GetByIDForUpdate(ctx context.Context, id int64) (*models.Enrollment, error) {
	return r.GetByID(ctx, id)
}

func (r *enrollmentRepo) HasActive(_ context.Context, studentID, offeringID int64) (bool, error) {
	defer r.s.lock()()
	for _, e := range r.s.data().enrollments {
		if e.StudentID == studentID && e.OfferingID == offeringID && e.Status == models.EnrollmentEnrolled {
			return true, nil
		}
	}
	return false, nil
}

func (r *enrollmentRepo) CountActive(_ context.Context, offeringID int64) (int, error) {
	defer r.s.lock()()
	return activeCount(r.s.data(), offeringID), nil
}

func (r *enrollmentRepo) Update(_ context.Context, e *models.Enrollment) error {
	defer r.s.lock()()
	d := r.s.data()
	existing, ok := d.enrollments[e.ID]
	if !ok {
		return apperrors.ErrEnrollmentNotFound
	}
	existing.Status = e.Status
	existing.WithdrawnAt = e.WithdrawnAt
	existing.CompletedAt = e.CompletedAt
	existing.UpdatedAt = r.s.now()
	d.enrollments[e.ID] = existing
	e.UpdatedAt = existing.UpdatedAt
	return nil
}

func (r *enrollmentRepo) List(_ context.Context, f models.EnrollmentFilter) ([]*models.Enrollment, error) {
	defer r.s.lock()()
	out := make([]*models.Enrollment, 0)
	for _, e := range r.s.data().enrollments {
		if f.StudentID != nil && e.StudentID != *f.StudentID {
			continue
		}
		if f.OfferingID != nil && e.OfferingID != *f.OfferingID {
			continue
		}
		if f.Status != nil && e.Status != *f.Status {
			continue
		}
		e := e
		out = append(out, &e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}
