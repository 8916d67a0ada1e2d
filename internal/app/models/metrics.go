package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MonthlyCount is one bucket of the enrollment histogram
type MonthlyCount struct {
	Month string `json:"month"`
	Count int64  `json:"count"`
}

// DashboardMetrics is the read-side summary of the registry and ledgers
type DashboardMetrics struct {
	EnrolledCount              int64                     `json:"enrolledCount"`
	GraduatedCount             int64                     `json:"graduatedCount"`
	DroppedCount               int64                     `json:"droppedCount"`
	PendingPaymentCount        int64                     `json:"pendingPaymentCount"`
	TotalRevenue               decimal.Decimal           `json:"totalRevenue"`
	MonthlyEnrollmentHistogram []MonthlyCount            `json:"monthlyEnrollmentHistogram"`
	CompetencyBreakdown        map[CompetencyLevel]int64 `json:"competencyBreakdown"`
	PendingDocumentCount       int64                     `json:"pendingDocumentCount"`
	OpenOfferingCount          int64                     `json:"openOfferingCount"`
}

// MetricsSnapshot pairs computed metrics with the time they were computed, so a
// cached copy can report its age without changing the figures themselves.
type MetricsSnapshot struct {
	Metrics     DashboardMetrics `json:"metrics"`
	GeneratedAt time.Time        `json:"generatedAt"`
}
