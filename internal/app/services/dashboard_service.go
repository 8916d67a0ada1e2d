package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/enrolladmin/internal/app/models"
	"github.com/yigit/enrolladmin/internal/app/repositories"
	"github.com/yigit/enrolladmin/internal/pkg/cache"
	"github.com/yigit/enrolladmin/internal/pkg/helpers"
)

// MetricsCacheKey is where the latest metrics snapshot is cached
const MetricsCacheKey = "dashboard:metrics"

// HistogramMonths is the length of the monthly enrollment histogram
const HistogramMonths = 12

// DashboardService defines the interface for dashboard operations
type DashboardService interface {
	// GetMetrics returns a cached snapshot when one is fresh, otherwise computes one
	GetMetrics(ctx context.Context) (*models.MetricsSnapshot, error)
	ComputeMetrics(ctx context.Context) (*models.DashboardMetrics, error)
	ClearCache(ctx context.Context) error
}

type dashboardServiceImpl struct {
	store  repositories.Store
	cache  cache.Cache
	ttl    time.Duration
	now    func() time.Time
	logger zerolog.Logger
}

// NewDashboardService creates a DashboardService. A zero ttl or nil cache
// disables caching.
func NewDashboardService(store repositories.Store, c cache.Cache, ttl time.Duration, logger zerolog.Logger) DashboardService {
	if c == nil || ttl <= 0 {
		c = cache.Noop{}
	}
	return &dashboardServiceImpl{store: store, cache: c, ttl: ttl, now: time.Now, logger: logger}
}

func (s *dashboardServiceImpl) GetMetrics(ctx context.Context) (*models.MetricsSnapshot, error) {
	raw, hit, err := s.cache.Get(ctx, MetricsCacheKey)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Dashboard cache read failed, recomputing")
	}
	if hit {
		var snapshot models.MetricsSnapshot
		if err := json.Unmarshal(raw, &snapshot); err == nil {
			return &snapshot, nil
		}
		s.logger.Warn().Msg("Discarding undecodable dashboard cache entry")
	}

	metrics, err := s.ComputeMetrics(ctx)
	if err != nil {
		return nil, err
	}
	snapshot := &models.MetricsSnapshot{Metrics: *metrics, GeneratedAt: s.now().UTC()}

	if encoded, err := json.Marshal(snapshot); err == nil {
		if err := s.cache.Set(ctx, MetricsCacheKey, encoded, s.ttl); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to cache dashboard metrics")
		}
	}
	return snapshot, nil
}

func (s *dashboardServiceImpl) ComputeMetrics(ctx context.Context) (*models.DashboardMetrics, error) {
	repos := s.store.Repositories()

	statuses, err := repos.Dashboard.StudentStatusCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("error counting students by status: %w", err)
	}

	summary, err := repos.Payments.Summary(ctx)
	if err != nil {
		return nil, fmt.Errorf("error summarising payments: %w", err)
	}

	since, months := helpers.MonthWindow(s.now(), HistogramMonths)
	monthly, err := repos.Dashboard.MonthlyEnrollments(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("error counting monthly enrollments: %w", err)
	}
	histogram := make([]models.MonthlyCount, 0, len(months))
	for _, m := range months {
		histogram = append(histogram, models.MonthlyCount{Month: m, Count: monthly[m]})
	}

	breakdown, err := repos.Dashboard.CompetencyBreakdown(ctx)
	if err != nil {
		return nil, fmt.Errorf("error computing competency breakdown: %w", err)
	}
	competency := make(map[models.CompetencyLevel]int64, len(models.CompetencyLevels))
	for _, level := range models.CompetencyLevels {
		competency[level] = breakdown[level]
	}

	pendingDocs, err := repos.Dashboard.CountDocumentsByStatus(ctx, models.DocumentPending)
	if err != nil {
		return nil, fmt.Errorf("error counting pending documents: %w", err)
	}

	openOfferings, err := repos.Dashboard.CountOfferingsByStatus(ctx, models.OfferingOpen)
	if err != nil {
		return nil, fmt.Errorf("error counting open offerings: %w", err)
	}

	return &models.DashboardMetrics{
		EnrolledCount:              statuses[models.StudentEnrolled],
		GraduatedCount:             statuses[models.StudentGraduated],
		DroppedCount:               statuses[models.StudentDropped],
		PendingPaymentCount:        summary.PendingCount,
		TotalRevenue:               summary.TotalRevenue,
		MonthlyEnrollmentHistogram: histogram,
		CompetencyBreakdown:        competency,
		PendingDocumentCount:       pendingDocs,
		OpenOfferingCount:          openOfferings,
	}, nil
}

func (s *dashboardServiceImpl) ClearCache(ctx context.Context) error {
	if err := s.cache.Delete(ctx, MetricsCacheKey); err != nil {
		return fmt.Errorf("failed to clear dashboard cache: %w", err)
	}
	s.logger.Info().Msg("Dashboard cache cleared")
	return nil
}
