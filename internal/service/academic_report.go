package service

import (
	"context"
	"sort"
	"time"

	"github.com/noah-isme/ims-core-api/internal/analytics"
	"github.com/noah-isme/ims-core-api/internal/models"
	appErrors "github.com/noah-isme/ims-core-api/pkg/errors"
)

// Fixed distribution bands over graded percentages. Lower bounds are
// inclusive, so exactly 80 lands in B, not C.
var gradeBands = []struct {
	label string
	floor float64
}{
	{"A (90-100)", 90},
	{"B (80-89)", 80},
	{"C (70-79)", 70},
	{"D (60-69)", 60},
	{"F (0-59)", 0},
}

// BuildAcademic turns the graded assessment rows in scope into the academic
// rollup: grade distribution, ranked performers, per-class performance and
// global assessment stats. Ungraded rows never reach this builder.
func (s *ReportService) BuildAcademic(ctx context.Context, rng models.ReportRange) (*models.AcademicReport, error) {
	cacheKey := reportCacheKey("academic", rng)
	var cached models.AcademicReport
	if s.tryCache(ctx, cacheKey, &cached) {
		return &cached, nil
	}

	start := time.Now()
	scores, err := s.grades.ListGradedRange(ctx, rng.From, rng.To)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grades")
	}
	s.observeQuery("report_academic_grades", start)

	report := &models.AcademicReport{
		GradeDistribution: s.gradeDistribution(scores),
		TopPerformers:     s.topPerformers(scores),
		ClassPerformance:  s.classPerformance(scores),
		AssessmentStats:   s.assessmentStats(scores),
	}

	s.persistCache(ctx, cacheKey, report)
	return report, nil
}

func bandFor(percentage float64) string {
	for _, band := range gradeBands {
		if percentage >= band.floor {
			return band.label
		}
	}
	return gradeBands[len(gradeBands)-1].label
}

func (s *ReportService) gradeDistribution(scores []models.GradedScore) []models.GradeBand {
	buckets := analytics.BucketBy(scores, func(g models.GradedScore) string {
		return bandFor(g.Percentage())
	})

	distribution := make([]models.GradeBand, 0, len(gradeBands))
	for _, band := range gradeBands {
		group := buckets[band.label]
		share := 0.0
		if len(scores) > 0 {
			share = 100 * float64(len(group)) / float64(len(scores))
		}
		distribution = append(distribution, models.GradeBand{
			Band:  band.label,
			Count: len(group),
			Share: analytics.Round2(share),
		})
	}
	return distribution
}

// topPerformers averages percentages per student and requires at least the
// configured number of graded assessments before a student can rank. One
// lucky score is not a ranking.
func (s *ReportService) topPerformers(scores []models.GradedScore) []models.TopPerformer {
	buckets := analytics.BucketBy(scores, func(g models.GradedScore) string { return g.StudentID })

	eligible := make([]models.TopPerformer, 0, len(buckets))
	for studentID, group := range buckets {
		if len(group) < s.cfg.MinGradedAssessments {
			continue
		}
		var sum float64
		for _, g := range group {
			sum += g.Percentage()
		}
		eligible = append(eligible, models.TopPerformer{
			StudentID:    studentID,
			StudentName:  group[0].StudentName,
			AverageScore: analytics.Round2(sum / float64(len(group))),
			Graded:       len(group),
		})
	}

	return analytics.TopN(eligible, func(p models.TopPerformer) float64 { return p.AverageScore },
		s.cfg.TopPerformerLimit, func(a, b models.TopPerformer) bool { return a.StudentID < b.StudentID })
}

func (s *ReportService) classPerformance(scores []models.GradedScore) []models.ClassPerformance {
	buckets := analytics.BucketBy(scores, func(g models.GradedScore) string { return g.ClassID })

	stats := make([]models.ClassPerformance, 0, len(buckets))
	for classID, group := range buckets {
		var sum float64
		highest := group[0].Percentage()
		lowest := highest
		students := make(map[string]struct{})
		for _, g := range group {
			p := g.Percentage()
			sum += p
			if p > highest {
				highest = p
			}
			if p < lowest {
				lowest = p
			}
			students[g.StudentID] = struct{}{}
		}
		stats = append(stats, models.ClassPerformance{
			ClassID:   classID,
			ClassName: group[0].ClassName,
			Average:   analytics.Round2(sum / float64(len(group))),
			Highest:   analytics.Round2(highest),
			Lowest:    analytics.Round2(lowest),
			Students:  len(students),
		})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Average != stats[j].Average {
			return stats[i].Average > stats[j].Average
		}
		return stats[i].ClassID < stats[j].ClassID
	})
	return stats
}

// assessmentStats counts distinct assessments referenced by any grade, not
// assessments ever created.
func (s *ReportService) assessmentStats(scores []models.GradedScore) models.AssessmentStats {
	stats := models.AssessmentStats{TotalGrades: len(scores)}
	if len(scores) == 0 {
		return stats
	}

	assessments := make(map[string]struct{})
	var sum float64
	highest := scores[0].Percentage()
	lowest := highest
	for _, g := range scores {
		p := g.Percentage()
		sum += p
		if p > highest {
			highest = p
		}
		if p < lowest {
			lowest = p
		}
		assessments[g.AssessmentID] = struct{}{}
	}
	stats.AverageScore = analytics.Round2(sum / float64(len(scores)))
	stats.HighestScore = analytics.Round2(highest)
	stats.LowestScore = analytics.Round2(lowest)
	stats.TotalAssessments = len(assessments)
	return stats
}
