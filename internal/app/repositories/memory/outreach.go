package memory

import (
	"context"
	"sort"
	"time"

	"github.com/yigit/enrolladmin/internal/app/models"
	"github.com/yigit/enrolladmin/internal/pkg/apperrors"
)

type scholarshipRepo struct{ s *session }

func (r *scholarshipRepo) Create(_ context.Context, o *models.ScholarshipOffer) error {
	defer r.s.lock()()
	d := r.s.data()
	if o.Amount.IsNegative() || !models.FitsMoneyColumn(o.Amount) {
		return apperrors.ErrInvalidAmount
	}
	if o.SponsorStudentID != nil {
		if _, ok := d.students[*o.SponsorStudentID]; !ok {
			return apperrors.ErrStudentNotFound
		}
	}
	now := r.s.now()
	o.ID = d.next("scholarships")
	o.CreatedAt, o.UpdatedAt = now, now
	d.scholarship[o.ID] = *o
	return nil
}

func (r *scholarshipRepo) GetByID(_ context.Context, id int64) (*models.ScholarshipOffer, error) {
	defer r.s.lock()()
	o, ok := r.s.data().scholarship[id]
	if !ok {
		return nil, apperrors.ErrScholarshipNotFound
	}
	return &o, nil
}

func (r *scholarshipRepo) List(_ context.Context, activeOnly bool) ([]*models.ScholarshipOffer, error) {
	defer r.s.lock()()
	out := make([]*models.ScholarshipOffer, 0)
	for _, o := range r.s.data().scholarship {
		if activeOnly && !o.IsActive {
			continue
		}
		o := o
		out = append(out, &o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *scholarshipRepo) Update(_ context.Context, o *models.ScholarshipOffer) error {
	defer r.s.lock()()
	d := r.s.data()
	existing, ok := d.scholarship[o.ID]
	if !ok {
		return apperrors.ErrScholarshipNotFound
	}
	existing.IsActive = o.IsActive
	existing.Slots = o.Slots
	existing.UpdatedAt = r.s.now()
	d.scholarship[o.ID] = existing
	o.UpdatedAt = existing.UpdatedAt
	return nil
}

type referralRepo struct{ s *session }

func (r *referralRepo) Create(_ context.Context, f *models.Referral) error {
	defer r.s.lock()()
	d := r.s.data()
	if _, ok := d.students[f.ReferrerStudentID]; !ok {
		return apperrors.ErrStudentNotFound
	}
	f.ReferredEmail = normalizeEmail(f.ReferredEmail)
	now := r.s.now()
	f.ID = d.next("referrals")
	f.CreatedAt, f.UpdatedAt = now, now
	d.referrals[f.ID] = *f
	return nil
}

func (r *referralRepo) GetByID(_ context.Context, id int64) (*models.Referral, error) {
	defer r.s.lock()()
	f, ok := r.s.data().referrals[id]
	if !ok {
		return nil, apperrors.ErrReferralNotFound
	}
	return &f, nil
}

func (r *referralRepo) GetByIDForUpdate(ctx context.Context, id int64) (*models.Referral, error) {
	return r.GetByID(ctx, id)
}

func (r *referralRepo) List(_ context.Context, filter models.ReferralFilter) ([]*models.Referral, error) {
	defer r.s.lock()()
	out := make([]*models.Referral, 0)
	for _, f := range r.s.data().referrals {
		if filter.ReferrerStudentID != nil && f.ReferrerStudentID != *filter.ReferrerStudentID {
			continue
		}
		if filter.Status != nil && f.Status != *filter.Status {
			continue
		}
		f := f
		out = append(out, &f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *referralRepo) Update(_ context.Context, f *models.Referral) error {
	defer r.s.lock()()
	d := r.s.data()
	existing, ok := d.referrals[f.ID]
	if !ok {
		return apperrors.ErrReferralNotFound
	}
	existing.Status = f.Status
	existing.ReferredStudentID = f.ReferredStudentID
	existing.Notes = f.Notes
	existing.UpdatedAt = r.s.now()
	d.referrals[f.ID] = existing
	f.UpdatedAt = existing.UpdatedAt
	return nil
}

type assessmentRepo struct{ s *session }

func (r *assessmentRepo) Create(_ context.Context, a *models.CompetencyAssessment) error {
	defer r.s.lock()()
	d := r.s.data()
	if _, ok := d.students[a.StudentID]; !ok {
		return apperrors.ErrStudentNotFound
	}
	a.ID = d.next("assessments")
	d.assessments[a.ID] = *a
	return nil
}

func (r *assessmentRepo) ListByStudent(_ context.Context, studentID int64) ([]*models.CompetencyAssessment, error) {
	defer r.s.lock()()
	out := make([]*models.CompetencyAssessment, 0)
	for _, a := range r.s.data().assessments {
		if a.StudentID == studentID {
			a := a
			out = append(out, &a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].AssessedAt.Equal(out[j].AssessedAt) {
			return out[i].AssessedAt.After(out[j].AssessedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

type dashboardRepo struct{ s *session }

func (r *dashboardRepo) StudentStatusCounts(_ context.Context) (map[models.StudentStatus]int64, error) {
	defer r.s.lock()()
	counts := make(map[models.StudentStatus]int64)
	for _, st := range r.s.data().students {
		counts[st.EnrollmentStatus]++
	}
	return counts, nil
}

func (r *dashboardRepo) CompetencyBreakdown(_ context.Context) (map[models.CompetencyLevel]int64, error) {
	defer r.s.lock()()
	counts := make(map[models.CompetencyLevel]int64)
	for _, st := range r.s.data().students {
		if st.EnrollmentStatus == models.StudentEnrolled {
			counts[st.CompetencyLevel]++
		}
	}
	return counts, nil
}

func (r *dashboardRepo) MonthlyEnrollments(_ context.Context, since time.Time) (map[string]int64, error) {
	defer r.s.lock()()
	counts := make(map[string]int64)
	for _, e := range r.s.data().enrollments {
		if e.EnrollmentDate.Before(since) {
			continue
		}
		counts[e.EnrollmentDate.Format("2006-01")]++
	}
	return counts, nil
}

func (r *dashboardRepo) CountDocumentsByStatus(_ context.Context, status models.DocumentStatus) (int64, error) {
	defer r.s.lock()()
	var n int64
	for _, doc := range r.s.data().documents {
		if doc.Status == status {
			n++
		}
	}
	return n, nil
}

func (r *dashboardRepo) CountOfferingsByStatus(_ context.Context, status models.OfferingStatus) (int64, error) {
	defer r.s.lock()()
	var n int64
	for _, o := range r.s.data().offerings {
		if o.Status == status {
			n++
		}
	}
	return n, nil
}
