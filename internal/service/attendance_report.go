package service

import (
	"context"
	"sort"
	"time"

	"github.com/noah-isme/ims-core-api/internal/analytics"
	"github.com/noah-isme/ims-core-api/internal/models"
	appErrors "github.com/noah-isme/ims-core-api/pkg/errors"
)

// BuildAttendance turns the attendance records in scope into the attendance
// rollup: daily trend, class comparison, at-risk list and overall totals.
// With no explicit range the risk list falls back to the trailing
// 30-day window from the injected clock; the overall totals always cover
// the whole record set in scope.
func (s *ReportService) BuildAttendance(ctx context.Context, rng models.ReportRange) (*models.AttendanceReport, error) {
	cacheKey := reportCacheKey("attendance", rng)
	var cached models.AttendanceReport
	if s.tryCache(ctx, cacheKey, &cached) {
		return &cached, nil
	}

	start := time.Now()
	records, err := s.attendance.ListRange(ctx, models.AttendanceFilter{DateFrom: rng.From, DateTo: rng.To})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}
	s.observeQuery("report_attendance_records", start)

	riskScope := records
	if rng.IsZero() {
		riskScope = analytics.WindowFilter(records,
			func(r models.AttendanceDetail) time.Time { return r.Date },
			s.now(), s.cfg.AttendanceWindowDays)
	}

	report := &models.AttendanceReport{
		DailyStats:      s.dailyStats(records),
		ClassComparison: s.classComparison(records),
		RiskStudents:    s.riskStudents(riskScope),
		OverallStats:    s.overallStats(records),
	}

	s.persistCache(ctx, cacheKey, report)
	return report, nil
}

func isPresent(r models.AttendanceDetail) bool {
	return r.Status == models.AttendanceStatusPresent
}

// dailyStats keeps the most recent buckets that contain at least one record,
// not necessarily consecutive calendar days.
func (s *ReportService) dailyStats(records []models.AttendanceDetail) []models.DailyAttendanceStat {
	buckets := analytics.BucketBy(records, func(r models.AttendanceDetail) string {
		return analytics.DayKey(r.Date)
	})

	stats := make([]models.DailyAttendanceStat, 0, len(buckets))
	for day, group := range buckets {
		stat := models.DailyAttendanceStat{Date: day}
		for _, r := range group {
			switch r.Status {
			case models.AttendanceStatusPresent:
				stat.Present++
			case models.AttendanceStatusAbsent:
				stat.Absent++
			case models.AttendanceStatusLate:
				stat.Late++
			}
		}
		stat.Rate = analytics.Round2(analytics.Rate(group, isPresent))
		stats = append(stats, stat)
	}

	sort.Slice(stats, func(i, j int) bool { return stats[i].Date > stats[j].Date })
	if len(stats) > s.cfg.DailyStatsLimit {
		stats = stats[:s.cfg.DailyStatsLimit]
	}
	return stats
}

func (s *ReportService) classComparison(records []models.AttendanceDetail) []models.ClassAttendanceStat {
	buckets := analytics.BucketBy(records, func(r models.AttendanceDetail) string { return r.ClassID })

	stats := make([]models.ClassAttendanceStat, 0, len(buckets))
	for classID, group := range buckets {
		stats = append(stats, models.ClassAttendanceStat{
			ClassID:           classID,
			ClassName:         group[0].ClassName,
			AverageAttendance: analytics.Round2(analytics.Rate(group, isPresent)),
			Records:           len(group),
		})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].AverageAttendance != stats[j].AverageAttendance {
			return stats[i].AverageAttendance > stats[j].AverageAttendance
		}
		return stats[i].ClassID < stats[j].ClassID
	})
	return stats
}

// riskStudents filters to rates strictly below the threshold; exactly 75.0%
// is not at risk. Worst first.
func (s *ReportService) riskStudents(records []models.AttendanceDetail) []models.RiskStudent {
	buckets := analytics.BucketBy(records, func(r models.AttendanceDetail) string { return r.StudentID })

	atRisk := make([]models.RiskStudent, 0)
	for studentID, group := range buckets {
		absences := 0
		classes := make(map[string]struct{})
		for _, r := range group {
			if r.Status == models.AttendanceStatusAbsent {
				absences++
			}
			classes[r.ClassID] = struct{}{}
		}
		rate := 100 * float64(len(group)-absences) / float64(len(group))
		if rate >= s.cfg.RiskThreshold {
			continue
		}
		atRisk = append(atRisk, models.RiskStudent{
			StudentID:      studentID,
			StudentName:    group[0].StudentName,
			AttendanceRate: analytics.Round2(rate),
			Absences:       absences,
			TotalRecords:   len(group),
			Classes:        len(classes),
		})
	}

	// Ascending by rate is descending by negated score.
	return analytics.TopN(atRisk, func(r models.RiskStudent) float64 { return -r.AttendanceRate },
		s.cfg.RiskStudentLimit, func(a, b models.RiskStudent) bool { return a.StudentID < b.StudentID })
}

func (s *ReportService) overallStats(records []models.AttendanceDetail) models.AttendanceTotals {
	totals := models.AttendanceTotals{Total: len(records)}
	for _, r := range records {
		switch r.Status {
		case models.AttendanceStatusPresent:
			totals.Present++
		case models.AttendanceStatusAbsent:
			totals.Absent++
		case models.AttendanceStatusLate:
			totals.Late++
		case models.AttendanceStatusExcused:
			totals.Excused++
		}
	}
	totals.AverageAttendanceRate = analytics.Round2(analytics.Rate(records, isPresent))
	return totals
}
