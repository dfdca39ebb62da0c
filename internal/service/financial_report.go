package service

import (
	"context"
	"sort"
	"time"

	"github.com/noah-isme/ims-core-api/internal/analytics"
	"github.com/noah-isme/ims-core-api/internal/models"
	appErrors "github.com/noah-isme/ims-core-api/pkg/errors"
)

// BuildFinancial turns the fee payments in scope into the financial rollup:
// monthly revenue trend, payment totals, ranked defaulters and revenue
// attributed per class.
func (s *ReportService) BuildFinancial(ctx context.Context, rng models.ReportRange) (*models.FinancialReport, error) {
	cacheKey := reportCacheKey("financial", rng)
	var cached models.FinancialReport
	if s.tryCache(ctx, cacheKey, &cached) {
		return &cached, nil
	}

	start := time.Now()
	payments, err := s.payments.ListRange(ctx, rng.From, rng.To)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payments")
	}
	s.observeQuery("report_financial_payments", start)

	report := &models.FinancialReport{
		MonthlyRevenue: s.monthlyRevenue(payments),
		PaymentStats:   s.paymentStats(payments),
		Defaulters:     s.defaulters(payments),
	}

	revenueByClass, err := s.revenueByClass(ctx, payments)
	if err != nil {
		return nil, err
	}
	report.RevenueByClass = revenueByClass

	s.persistCache(ctx, cacheKey, report)
	return report, nil
}

func (s *ReportService) monthlyRevenue(payments []models.PaymentDetail) []models.MonthlyRevenuePoint {
	buckets := analytics.BucketBy(payments, func(p models.PaymentDetail) string {
		return analytics.MonthKey(p.CreatedAt)
	})
	// All months present in the filtered set are retained; no trailing
	// truncation on the financial trend.
	points := make([]models.MonthlyRevenuePoint, 0, len(buckets))
	for _, month := range analytics.SortedKeys(buckets) {
		var revenue float64
		for _, p := range buckets[month] {
			revenue += p.AmountPaid
		}
		points = append(points, models.MonthlyRevenuePoint{
			Month:    month,
			Revenue:  analytics.Round2(revenue),
			Payments: len(buckets[month]),
		})
	}
	return points
}

func (s *ReportService) paymentStats(payments []models.PaymentDetail) models.PaymentStats {
	var stats models.PaymentStats
	for _, p := range payments {
		stats.TotalRevenue += p.Amount
		stats.PaidAmount += p.AmountPaid
		switch p.Status {
		case models.PaymentStatusUnpaid:
			// Remainders stay unclamped: over-collection nets against
			// the rest of the bucket.
			stats.PendingAmount += p.Pending()
		case models.PaymentStatusOverdue:
			stats.OverdueAmount += p.Pending()
		}
	}
	stats.TotalRevenue = analytics.Round2(stats.TotalRevenue)
	stats.PaidAmount = analytics.Round2(stats.PaidAmount)
	stats.PendingAmount = analytics.Round2(stats.PendingAmount)
	stats.OverdueAmount = analytics.Round2(stats.OverdueAmount)
	return stats
}

func (s *ReportService) defaulters(payments []models.PaymentDetail) []models.Defaulter {
	overdue := make([]models.PaymentDetail, 0, len(payments))
	for _, p := range payments {
		if p.Status == models.PaymentStatusOverdue {
			overdue = append(overdue, p)
		}
	}

	buckets := analytics.BucketBy(overdue, func(p models.PaymentDetail) string { return p.StudentID })
	entries := make([]models.Defaulter, 0, len(buckets))
	for studentID, group := range buckets {
		var pending float64
		for _, p := range group {
			pending += p.Pending()
		}
		entries = append(entries, models.Defaulter{
			StudentID:    studentID,
			StudentName:  group[0].StudentName,
			TotalPending: analytics.Round2(pending),
			OverdueCount: len(group),
		})
	}

	return analytics.TopN(entries, func(d models.Defaulter) float64 { return d.TotalPending },
		s.cfg.DefaulterLimit, func(a, b models.Defaulter) bool { return a.StudentID < b.StudentID })
}

// revenueByClass fans each payment out to every class the payer is actively
// enrolled in: one input row becomes zero, one or many output rows. A
// student with several payments still counts once toward a class's student
// total.
func (s *ReportService) revenueByClass(ctx context.Context, payments []models.PaymentDetail) ([]models.ClassRevenue, error) {
	payerSet := make(map[string]struct{}, len(payments))
	payers := make([]string, 0, len(payments))
	for _, p := range payments {
		if _, ok := payerSet[p.StudentID]; ok {
			continue
		}
		payerSet[p.StudentID] = struct{}{}
		payers = append(payers, p.StudentID)
	}
	if len(payers) == 0 {
		return []models.ClassRevenue{}, nil
	}

	start := time.Now()
	enrollmentRows, err := s.enrollments.ListActiveByStudents(ctx, payers)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}
	s.observeQuery("report_financial_enrollments", start)

	classesByStudent := analytics.BucketBy(enrollmentRows, func(r models.ActiveEnrollmentRow) string { return r.StudentID })

	type classAgg struct {
		name     string
		revenue  float64
		students map[string]struct{}
	}
	byClass := make(map[string]*classAgg)
	for _, p := range payments {
		for _, row := range classesByStudent[p.StudentID] {
			agg := byClass[row.ClassID]
			if agg == nil {
				agg = &classAgg{name: row.ClassName, students: make(map[string]struct{})}
				byClass[row.ClassID] = agg
			}
			agg.revenue += p.AmountPaid
			agg.students[p.StudentID] = struct{}{}
		}
	}

	result := make([]models.ClassRevenue, 0, len(byClass))
	for classID, agg := range byClass {
		result = append(result, models.ClassRevenue{
			ClassID:   classID,
			ClassName: agg.name,
			Revenue:   analytics.Round2(agg.revenue),
			Students:  len(agg.students),
		})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Revenue != result[j].Revenue {
			return result[i].Revenue > result[j].Revenue
		}
		return result[i].ClassID < result[j].ClassID
	})
	return result, nil
}
