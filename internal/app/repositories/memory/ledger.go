package memory

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/yigit/enrolladmin/internal/app/models"
	"github.com/yigit/enrolladmin/internal/pkg/apperrors"
)

type paymentRepo struct{ s *session }

func clonePayment(p models.Payment) *models.Payment {
	if p.Receipt != nil {
		receipt := *p.Receipt
		p.Receipt = &receipt
	}
	return &p
}

func (r *paymentRepo) Create(_ context.Context, p *models.Payment) error {
	defer r.s.lock()()
	d := r.s.data()
	if !p.Amount.IsPositive() || !models.FitsMoneyColumn(p.Amount) {
		return apperrors.ErrInvalidAmount
	}
	if _, ok := d.students[p.StudentID]; !ok {
		return apperrors.ErrStudentNotFound
	}
	now := r.s.now()
	p.ID = d.next("payments")
	p.CreatedAt, p.UpdatedAt = now, now
	d.payments[p.ID] = *clonePayment(*p)
	return nil
}

func (r *paymentRepo) GetByID(_ context.Context, id int64) (*models.Payment, error) {
	defer r.s.lock()()
	p, ok := r.s.data().payments[id]
	if !ok {
		return nil, apperrors.ErrPaymentNotFound
	}
	return clonePayment(p), nil
}

func (r *paymentRepo) GetByIDForUpdate(ctx context.Context, id int64) (*models.Payment, error) {
	return r.GetByID(ctx, id)
}

func (r *paymentRepo) Update(_ context.Context, p *models.Payment) error {
	defer r.s.lock()()
	d := r.s.data()
	existing, ok := d.payments[p.ID]
	if !ok {
		return apperrors.ErrPaymentNotFound
	}
	existing.Status = p.Status
	existing.Notes = p.Notes
	existing.StatusUpdatedBy = p.StatusUpdatedBy
	existing.StatusUpdatedAt = p.StatusUpdatedAt
	existing.UpdatedAt = r.s.now()
	d.payments[p.ID] = existing
	p.UpdatedAt = existing.UpdatedAt
	return nil
}

func paymentMatches(p models.Payment, f models.PaymentFilter) bool {
	if f.StudentID != nil && p.StudentID != *f.StudentID {
		return false
	}
	if f.Status != nil && p.Status != *f.Status {
		return false
	}
	if f.Type != nil && p.PaymentType != *f.Type {
		return false
	}
	if f.From != nil && p.PaymentDate.Before(*f.From) {
		return false
	}
	if f.To != nil && p.PaymentDate.After(*f.To) {
		return false
	}
	return true
}

func (r *paymentRepo) List(_ context.Context, f models.PaymentFilter) ([]*models.Payment, int64, error) {
	defer r.s.lock()()
	var matched []*models.Payment
	for _, p := range r.s.data().payments {
		if paymentMatches(p, f) {
			matched = append(matched, clonePayment(p))
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].PaymentDate.Equal(matched[j].PaymentDate) {
			return matched[i].PaymentDate.After(matched[j].PaymentDate)
		}
		return matched[i].ID > matched[j].ID
	})

	total := int64(len(matched))
	if f.Limit > 0 {
		start := min(int(f.Offset), len(matched))
		end := min(start+f.Limit, len(matched))
		matched = matched[start:end]
	}
	if matched == nil {
		matched = make([]*models.Payment, 0)
	}
	return matched, total, nil
}

func (r *paymentRepo) Summary(_ context.Context) (*models.PaymentSummary, error) {
	defer r.s.lock()()
	s := &models.PaymentSummary{TotalRevenue: decimal.Zero, PendingAmount: decimal.Zero}
	for _, p := range r.s.data().payments {
		switch p.Status {
		case models.PaymentComplete:
			s.TotalRevenue = s.TotalRevenue.Add(p.Amount)
		case models.PaymentPending:
			s.PendingCount++
			s.PendingAmount = s.PendingAmount.Add(p.Amount)
		}
	}
	return s, nil
}

type documentRepo struct{ s *session }

func (r *documentRepo) Create(_ context.Context, doc *models.Document) error {
	defer r.s.lock()()
	d := r.s.data()
	if _, ok := d.students[doc.StudentID]; !ok {
		return apperrors.ErrStudentNotFound
	}
	now := r.s.now()
	doc.ID = d.next("documents")
	doc.CreatedAt, doc.UpdatedAt = now, now
	d.documents[doc.ID] = *doc
	return nil
}

func (r *documentRepo) GetByID(_ context.Context, id int64) (*models.Document, error) {
	defer r.s.lock()()
	doc, ok := r.s.data().documents[id]
	if !ok {
		return nil, apperrors.ErrDocumentNotFound
	}
	return &doc, nil
}

func (r *documentRepo) GetByIDForUpdate(ctx context.Context, id int64) (*models.Document, error) {
	return r.GetByID(ctx, id)
}

func (r *documentRepo) Update(_ context.Context, doc *models.Document) error {
	defer r.s.lock()()
	d := r.s.data()
	existing, ok := d.documents[doc.ID]
	if !ok {
		return apperrors.ErrDocumentNotFound
	}
	existing.Status = doc.Status
	existing.Notes = doc.Notes
	existing.VerifiedBy = doc.VerifiedBy
	existing.VerifiedAt = doc.VerifiedAt
	existing.UpdatedAt = r.s.now()
	d.documents[doc.ID] = existing
	doc.UpdatedAt = existing.UpdatedAt
	return nil
}

func (r *documentRepo) List(_ context.Context, f models.DocumentFilter) ([]*models.Document, error) {
	defer r.s.lock()()
	out := make([]*models.Document, 0)
	for _, doc := range r.s.data().documents {
		if f.StudentID != nil && doc.StudentID != *f.StudentID {
			continue
		}
		if f.Status != nil && doc.Status != *f.Status {
			continue
		}
		if f.Type != nil && doc.DocumentType != *f.Type {
			continue
		}
		doc := doc
		out = append(out, &doc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}
