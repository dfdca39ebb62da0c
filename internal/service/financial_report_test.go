package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ims-core-api/internal/models"
)

type fakePaymentReader struct {
	payments []models.PaymentDetail
}

func (f *fakePaymentReader) ListRange(_ context.Context, _, _ *time.Time) ([]models.PaymentDetail, error) {
	return f.payments, nil
}

type fakeEnrollmentReader struct {
	rows []models.ActiveEnrollmentRow
}

func (f *fakeEnrollmentReader) ListActiveByStudents(_ context.Context, _ []string) ([]models.ActiveEnrollmentRow, error) {
	return f.rows, nil
}

func payment(id, studentID, name string, amount, paid float64, status models.PaymentStatus, createdAt time.Time) models.PaymentDetail {
	return models.PaymentDetail{
		FeePayment: models.FeePayment{
			ID: id, StudentID: studentID, Amount: amount, AmountPaid: paid,
			Status: status, CreatedAt: createdAt,
		},
		StudentName: name,
	}
}

func newFinancialService(payments *fakePaymentReader, enrollments *fakeEnrollmentReader) *ReportService {
	return NewReportService(ReportServiceParams{Payments: payments, Enrollments: enrollments})
}

func TestBuildFinancialMonthlyRevenue(t *testing.T) {
	jan := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	mar := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	svc := newFinancialService(&fakePaymentReader{payments: []models.PaymentDetail{
		payment("p1", "stu-1", "Ada", 100, 100, models.PaymentStatusPaid, mar),
		payment("p2", "stu-2", "Grace", 200, 150, models.PaymentStatusPartial, jan),
		payment("p3", "stu-1", "Ada", 50, 50, models.PaymentStatusPaid, jan),
	}}, &fakeEnrollmentReader{})

	report, err := svc.BuildFinancial(context.Background(), models.ReportRange{})
	require.NoError(t, err)

	require.Len(t, report.MonthlyRevenue, 2)
	assert.Equal(t, "2026-01", report.MonthlyRevenue[0].Month)
	assert.Equal(t, 200.0, report.MonthlyRevenue[0].Revenue)
	assert.Equal(t, 2, report.MonthlyRevenue[0].Payments)
	assert.Equal(t, "2026-03", report.MonthlyRevenue[1].Month)
	assert.Equal(t, 100.0, report.MonthlyRevenue[1].Revenue)
}

func TestBuildFinancialPaymentStatsKeepsRawRemainders(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	svc := newFinancialService(&fakePaymentReader{payments: []models.PaymentDetail{
		payment("p1", "stu-1", "Ada", 100, 0, models.PaymentStatusUnpaid, now),
		// Over-collected: remainder is negative and nets against the rest.
		payment("p2", "stu-2", "Grace", 100, 120, models.PaymentStatusUnpaid, now),
		payment("p3", "stu-3", "Alan", 300, 50, models.PaymentStatusOverdue, now),
	}}, &fakeEnrollmentReader{})

	report, err := svc.BuildFinancial(context.Background(), models.ReportRange{})
	require.NoError(t, err)

	assert.Equal(t, 500.0, report.PaymentStats.TotalRevenue)
	assert.Equal(t, 170.0, report.PaymentStats.PaidAmount)
	assert.Equal(t, 80.0, report.PaymentStats.PendingAmount)
	assert.Equal(t, 250.0, report.PaymentStats.OverdueAmount)
}

func TestBuildFinancialDefaultersRankedByPending(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	svc := newFinancialService(&fakePaymentReader{payments: []models.PaymentDetail{
		payment("p1", "stu-a", "Ada", 150, 0, models.PaymentStatusOverdue, now),
		payment("p2", "stu-b", "Grace", 100, 0, models.PaymentStatusOverdue, now),
		payment("p3", "stu-b", "Grace", 100, 0, models.PaymentStatusOverdue, now),
		// Unpaid, not overdue: never a defaulter entry.
		payment("p4", "stu-c", "Alan", 999, 0, models.PaymentStatusUnpaid, now),
	}}, &fakeEnrollmentReader{})

	report, err := svc.BuildFinancial(context.Background(), models.ReportRange{})
	require.NoError(t, err)

	require.Len(t, report.Defaulters, 2)
	assert.Equal(t, "stu-b", report.Defaulters[0].StudentID)
	assert.Equal(t, 200.0, report.Defaulters[0].TotalPending)
	assert.Equal(t, 2, report.Defaulters[0].OverdueCount)
	assert.Equal(t, "stu-a", report.Defaulters[1].StudentID)
	assert.Equal(t, 150.0, report.Defaulters[1].TotalPending)
}

func TestBuildFinancialDefaulterLimit(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	payments := make([]models.PaymentDetail, 0, 25)
	for i := 0; i < 25; i++ {
		payments = append(payments, payment(
			string(rune('a'+i)), string(rune('a'+i)), "Student",
			float64(100+i), 0, models.PaymentStatusOverdue, now))
	}
	svc := newFinancialService(&fakePaymentReader{payments: payments}, &fakeEnrollmentReader{})

	report, err := svc.BuildFinancial(context.Background(), models.ReportRange{})
	require.NoError(t, err)
	assert.Len(t, report.Defaulters, 20)
	// Largest pending first.
	assert.Equal(t, 124.0, report.Defaulters[0].TotalPending)
}

func TestBuildFinancialRevenueByClassFansOut(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	svc := newFinancialService(
		&fakePaymentReader{payments: []models.PaymentDetail{
			payment("p1", "stu-1", "Ada", 100, 100, models.PaymentStatusPaid, now),
			payment("p2", "stu-1", "Ada", 50, 50, models.PaymentStatusPaid, now),
			payment("p3", "stu-2", "Grace", 80, 80, models.PaymentStatusPaid, now),
			// No active enrollment: contributes to no class.
			payment("p4", "stu-3", "Alan", 500, 500, models.PaymentStatusPaid, now),
		}},
		&fakeEnrollmentReader{rows: []models.ActiveEnrollmentRow{
			{StudentID: "stu-1", ClassID: "class-1", ClassName: "Algebra"},
			{StudentID: "stu-1", ClassID: "class-2", ClassName: "Physics"},
			{StudentID: "stu-2", ClassID: "class-1", ClassName: "Algebra"},
		}})

	report, err := svc.BuildFinancial(context.Background(), models.ReportRange{})
	require.NoError(t, err)

	require.Len(t, report.RevenueByClass, 2)
	algebra := report.RevenueByClass[0]
	assert.Equal(t, "class-1", algebra.ClassID)
	assert.Equal(t, 230.0, algebra.Revenue)
	assert.Equal(t, 2, algebra.Students)

	physics := report.RevenueByClass[1]
	assert.Equal(t, "class-2", physics.ClassID)
	assert.Equal(t, 150.0, physics.Revenue)
	assert.Equal(t, 1, physics.Students)
}

func TestBuildFinancialEmptySet(t *testing.T) {
	svc := newFinancialService(&fakePaymentReader{}, &fakeEnrollmentReader{})

	report, err := svc.BuildFinancial(context.Background(), models.ReportRange{})
	require.NoError(t, err)
	assert.Empty(t, report.MonthlyRevenue)
	assert.Empty(t, report.Defaulters)
	assert.Empty(t, report.RevenueByClass)
	assert.Zero(t, report.PaymentStats.TotalRevenue)
}
