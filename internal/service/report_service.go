package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/ims-core-api/internal/models"
)

type attendanceReadRepository interface {
	ListRange(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceDetail, error)
}

type paymentReadRepository interface {
	ListRange(ctx context.Context, from, to *time.Time) ([]models.PaymentDetail, error)
}

type gradeReadRepository interface {
	ListGradedRange(ctx context.Context, from, to *time.Time) ([]models.GradedScore, error)
}

type enrollmentReadRepository interface {
	ListActiveByStudents(ctx context.Context, studentIDs []string) ([]models.ActiveEnrollmentRow, error)
}

// ReportServiceConfig carries the fixed business thresholds and windows.
type ReportServiceConfig struct {
	RiskThreshold        float64
	RiskStudentLimit     int
	DefaulterLimit       int
	DailyStatsLimit      int
	AttendanceWindowDays int
	TopPerformerLimit    int
	MinGradedAssessments int
	CacheTTL             time.Duration
}

// ReportService composes the aggregation primitives over the record
// collections into the three report shapes. Each builder is a pure function
// of the records in scope; reports read a point-in-time snapshot and no
// transaction spans a build.
type ReportService struct {
	attendance  attendanceReadRepository
	payments    paymentReadRepository
	grades      gradeReadRepository
	enrollments enrollmentReadRepository
	cache       *CacheService
	metrics     *MetricsService
	logger      *zap.Logger
	now         func() time.Time
	cfg         ReportServiceConfig
}

// ReportServiceParams groups constructor dependencies.
type ReportServiceParams struct {
	Attendance  attendanceReadRepository
	Payments    paymentReadRepository
	Grades      gradeReadRepository
	Enrollments enrollmentReadRepository
	Cache       *CacheService
	Metrics     *MetricsService
	Logger      *zap.Logger
	Config      ReportServiceConfig
}

// NewReportService constructs a ReportService with the institute's fixed
// thresholds as defaults.
func NewReportService(params ReportServiceParams) *ReportService {
	cfg := params.Config
	if cfg.RiskThreshold <= 0 {
		cfg.RiskThreshold = 75
	}
	if cfg.RiskStudentLimit <= 0 {
		cfg.RiskStudentLimit = 20
	}
	if cfg.DefaulterLimit <= 0 {
		cfg.DefaulterLimit = 20
	}
	if cfg.DailyStatsLimit <= 0 {
		cfg.DailyStatsLimit = 30
	}
	if cfg.AttendanceWindowDays <= 0 {
		cfg.AttendanceWindowDays = 30
	}
	if cfg.TopPerformerLimit <= 0 {
		cfg.TopPerformerLimit = 10
	}
	if cfg.MinGradedAssessments <= 0 {
		cfg.MinGradedAssessments = 3
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		attendance:  params.Attendance,
		payments:    params.Payments,
		grades:      params.Grades,
		enrollments: params.Enrollments,
		cache:       params.Cache,
		metrics:     params.Metrics,
		logger:      logger,
		now:         time.Now,
		cfg:         cfg,
	}
}

// WithClock overrides the time source used for trailing windows.
func (s *ReportService) WithClock(now func() time.Time) *ReportService {
	if now != nil {
		s.now = now
	}
	return s
}

func reportCacheKey(kind string, rng models.ReportRange) string {
	from, to := "", ""
	if rng.From != nil {
		from = rng.From.Format("2006-01-02")
	}
	if rng.To != nil {
		to = rng.To.Format("2006-01-02")
	}
	return fmt.Sprintf("reports:%s:%s:%s", kind, from, to)
}

func (s *ReportService) tryCache(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	hit, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		s.logger.Warn("report cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return hit
}

func (s *ReportService) persistCache(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("report cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *ReportService) observeQuery(label string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveDBQuery(label, time.Since(start))
	}
}
