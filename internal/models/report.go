package models

import "time"

// ReportRange is an optional [from, to] calendar-day filter applied to the
// base record set before any bucketing. A nil bound is open.
type ReportRange struct {
	From *time.Time
	To   *time.Time
}

// IsZero reports whether no explicit bound was supplied.
func (r ReportRange) IsZero() bool {
	return r.From == nil && r.To == nil
}

// MonthlyRevenuePoint is one month bucket of the financial trend.
type MonthlyRevenuePoint struct {
	Month    string  `json:"month"`
	Revenue  float64 `json:"revenue"`
	Payments int     `json:"payments"`
}

// PaymentStats totals the payment set in scope.
type PaymentStats struct {
	TotalRevenue  float64 `json:"total_revenue"`
	PaidAmount    float64 `json:"paid_amount"`
	PendingAmount float64 `json:"pending_amount"`
	OverdueAmount float64 `json:"overdue_amount"`
}

// Defaulter is one ranked entry of the overdue list.
type Defaulter struct {
	StudentID    string  `json:"student_id"`
	StudentName  string  `json:"student_name"`
	TotalPending float64 `json:"total_pending"`
	OverdueCount int     `json:"overdue_count"`
}

// ClassRevenue attributes collected amounts to a class via the payer's
// active enrollments.
type ClassRevenue struct {
	ClassID   string  `json:"class_id"`
	ClassName string  `json:"class_name"`
	Revenue   float64 `json:"revenue"`
	Students  int     `json:"students"`
}

// FinancialReport is the financial rollup shape.
type FinancialReport struct {
	MonthlyRevenue []MonthlyRevenuePoint `json:"monthly_revenue"`
	PaymentStats   PaymentStats          `json:"payment_stats"`
	Defaulters     []Defaulter           `json:"defaulters"`
	RevenueByClass []ClassRevenue        `json:"revenue_by_class"`
}

// DailyAttendanceStat is one day bucket of the attendance trend.
type DailyAttendanceStat struct {
	Date    string  `json:"date"`
	Present int     `json:"present"`
	Absent  int     `json:"absent"`
	Late    int     `json:"late"`
	Rate    float64 `json:"rate"`
}

// ClassAttendanceStat compares classes by present rate.
type ClassAttendanceStat struct {
	ClassID           string  `json:"class_id"`
	ClassName         string  `json:"class_name"`
	AverageAttendance float64 `json:"average_attendance"`
	Records           int     `json:"records"`
}

// RiskStudent is a student whose attendance rate fell under the risk
// threshold, worst first.
type RiskStudent struct {
	StudentID      string  `json:"student_id"`
	StudentName    string  `json:"student_name"`
	AttendanceRate float64 `json:"attendance_rate"`
	Absences       int     `json:"absences"`
	TotalRecords   int     `json:"total_records"`
	Classes        int     `json:"classes"`
}

// AttendanceTotals summarises the whole record set in scope.
type AttendanceTotals struct {
	AverageAttendanceRate float64 `json:"average_attendance_rate"`
	Present               int     `json:"present"`
	Absent                int     `json:"absent"`
	Late                  int     `json:"late"`
	Excused               int     `json:"excused"`
	Total                 int     `json:"total"`
}

// AttendanceReport is the attendance rollup shape.
type AttendanceReport struct {
	DailyStats      []DailyAttendanceStat `json:"daily_stats"`
	ClassComparison []ClassAttendanceStat `json:"class_comparison"`
	RiskStudents    []RiskStudent         `json:"risk_students"`
	OverallStats    AttendanceTotals      `json:"overall_stats"`
}

// GradeBand is one fixed distribution band with its share of graded records.
type GradeBand struct {
	Band  string  `json:"band"`
	Count int     `json:"count"`
	Share float64 `json:"share"`
}

// TopPerformer is one ranked entry of the performer list.
type TopPerformer struct {
	StudentID    string  `json:"student_id"`
	StudentName  string  `json:"student_name"`
	AverageScore float64 `json:"average_score"`
	Graded       int     `json:"graded"`
}

// ClassPerformance aggregates graded percentages per class.
type ClassPerformance struct {
	ClassID   string  `json:"class_id"`
	ClassName string  `json:"class_name"`
	Average   float64 `json:"average"`
	Highest   float64 `json:"highest"`
	Lowest    float64 `json:"lowest"`
	Students  int     `json:"students"`
}

// AssessmentStats summarises all graded percentages in scope.
type AssessmentStats struct {
	AverageScore     float64 `json:"average_score"`
	HighestScore     float64 `json:"highest_score"`
	LowestScore      float64 `json:"lowest_score"`
	TotalAssessments int     `json:"total_assessments"`
	TotalGrades      int     `json:"total_grades"`
}

// AcademicReport is the academic rollup shape.
type AcademicReport struct {
	GradeDistribution []GradeBand        `json:"grade_distribution"`
	TopPerformers     []TopPerformer     `json:"top_performers"`
	ClassPerformance  []ClassPerformance `json:"class_performance"`
	AssessmentStats   AssessmentStats    `json:"assessment_stats"`
}
