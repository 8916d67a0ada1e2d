// Package memory implements the repository interfaces on process memory. It backs
// the "memory" database driver and the service tests. Transactions are
// serialized by a single mutex and roll back by restoring a snapshot.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/yigit/enrolladmin/internal/app/models"
	"github.com/yigit/enrolladmin/internal/app/repositories"
)

type dataset struct {
	nextID      map[string]int64
	studentSeq  int64
	users       map[int64]models.User
	students    map[int64]models.Student
	courses     map[int64]models.Course
	offerings   map[int64]models.CourseOffering
	enrollments map[int64]models.Enrollment
	payments    map[int64]models.Payment
	documents   map[int64]models.Document
	scholarship map[int64]models.ScholarshipOffer
	referrals   map[int64]models.Referral
	assessments map[int64]models.CompetencyAssessment
}

func newDataset() *dataset {
	return &dataset{
		nextID:      make(map[string]int64),
		users:       make(map[int64]models.User),
		students:    make(map[int64]models.Student),
		courses:     make(map[int64]models.Course),
		offerings:   make(map[int64]models.CourseOffering),
		enrollments: make(map[int64]models.Enrollment),
		payments:    make(map[int64]models.Payment),
		documents:   make(map[int64]models.Document),
		scholarship: make(map[int64]models.ScholarshipOffer),
		referrals:   make(map[int64]models.Referral),
		assessments: make(map[int64]models.CompetencyAssessment),
	}
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (d *dataset) clone() *dataset {
	return &dataset{
		nextID:      copyMap(d.nextID),
		studentSeq:  d.studentSeq,
		users:       copyMap(d.users),
		students:    copyMap(d.students),
		courses:     copyMap(d.courses),
		offerings:   copyMap(d.offerings),
		enrollments: copyMap(d.enrollments),
		payments:    copyMap(d.payments),
		documents:   copyMap(d.documents),
		scholarship: copyMap(d.scholarship),
		referrals:   copyMap(d.referrals),
		assessments: copyMap(d.assessments),
	}
}

func (d *dataset) next(table string) int64 {
	d.nextID[table]++
	return d.nextID[table]
}

// Store is an in-memory repositories.Store
type Store struct {
	mu    sync.Mutex
	data  *dataset
	now   func() time.Time
	repos *repositories.Repositories
}

// NewStore creates an empty store
func NewStore() *Store {
	s := &Store{data: newDataset(), now: time.Now}
	s.repos = s.bind(false)
	return s
}

// SetClock overrides the time source used for generated timestamps
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Repositories returns repositories that lock per call
func (s *Store) Repositories() *repositories.Repositories {
	return s.repos
}

// WithTransaction holds the store lock for the whole of fn. Any error or panic
// restores the state captured before fn ran.
func (s *Store) WithTransaction(ctx context.Context, fn repositories.TxFn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	defer func() {
		if r := recover(); r != nil {
			s.data = snapshot
			panic(r)
		}
	}()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := fn(ctx, s.bind(true)); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

func (s *Store) bind(inTx bool) *repositories.Repositories {
	sess := &session{store: s, inTx: inTx}
	return &repositories.Repositories{
		Users:        &userRepo{sess},
		Students:     &studentRepo{sess},
		Courses:      &courseRepo{sess},
		Offerings:    &offeringRepo{sess},
		Enrollments:  &enrollmentRepo{sess},
		Payments:     &paymentRepo{sess},
		Documents:    &documentRepo{sess},
		Scholarships: &scholarshipRepo{sess},
		Referrals:    &referralRepo{sess},
		Assessments:  &assessmentRepo{sess},
		Dashboard:    &dashboardRepo{sess},
	}
}

// session is the binding shared by one set of repositories. Inside a
// transaction the store lock is already held.
type session struct {
	store *Store
	inTx  bool
}

func (s *session) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.store.mu.Lock()
	return s.store.mu.Unlock
}

func (s *session) data() *dataset {
	return s.store.data
}

func (s *session) now() time.Time {
	return s.store.now().UTC()
}
