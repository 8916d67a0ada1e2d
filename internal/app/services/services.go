// Package services holds the business rules of the registry and ledgers.
//
// Services defined in this package:
// - AuthService: login, current user, staff account creation
// - StudentService: registration, registry queries, status and eligibility, assessments
// - CatalogService: courses and offerings
// - EnrollmentService: enroll, withdraw, complete
// - PaymentService: payment ledger, receipts, summary
// - DocumentService: uploads and verification
// - OutreachService: scholarship offers and referrals
// - DashboardService: aggregated metrics and their cache
package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/enrolladmin/internal/pkg/cache"
)

// Entities named in change events
const (
	EntityStudent     = "student"
	EntityCourse      = "course"
	EntityOffering    = "offering"
	EntityEnrollment  = "enrollment"
	EntityPayment     = "payment"
	EntityDocument    = "document"
	EntityScholarship = "scholarship"
	EntityReferral    = "referral"
	EntityAssessment  = "assessment"
)

// Publisher receives an event for every committed write
type Publisher interface {
	Publish(entity, action string, id int64)
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, string, int64) {}

// ChangeNotifier runs after a write commits: it drops the cached dashboard
// metrics and tells connected dashboards what changed.
type ChangeNotifier struct {
	cache     cache.Cache
	publisher Publisher
	logger    zerolog.Logger
}

// NewChangeNotifier creates a ChangeNotifier. Nil dependencies are replaced
// with no-ops.
func NewChangeNotifier(c cache.Cache, publisher Publisher, logger zerolog.Logger) *ChangeNotifier {
	if c == nil {
		c = cache.Noop{}
	}
	if publisher == nil {
		publisher = nopPublisher{}
	}
	return &ChangeNotifier{cache: c, publisher: publisher, logger: logger}
}

// Changed records one committed write. Cache failures are logged; the TTL
// still bounds how stale the metrics can get.
func (n *ChangeNotifier) Changed(ctx context.Context, entity, action string, id int64) {
	if err := n.cache.Delete(ctx, MetricsCacheKey); err != nil {
		n.logger.Warn().Err(err).Str("entity", entity).Msg("Failed to invalidate dashboard cache")
	}
	n.publisher.Publish(entity, action, id)
}

// Services groups every service the HTTP layer needs
type Services struct {
	Auth        AuthService
	Students    StudentService
	Catalog     CatalogService
	Enrollments EnrollmentService
	Payments    PaymentService
	Documents   DocumentService
	Outreach    OutreachService
	Dashboard   DashboardService
}

func today(now func() time.Time) time.Time {
	y, m, d := now().UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
