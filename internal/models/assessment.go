package models

import "time"

// Assessment is a scored activity belonging to a class.
type Assessment struct {
	ID       string    `db:"id" json:"id"`
	ClassID  string    `db:"class_id" json:"class_id"`
	Name     string    `db:"name" json:"name"`
	MaxScore float64   `db:"max_score" json:"max_score"`
	Date     time.Time `db:"date" json:"date"`
}

// Grade relates a student to an assessment. A nil score means ungraded and
// is excluded from every statistic.
type Grade struct {
	ID           string    `db:"id" json:"id"`
	AssessmentID string    `db:"assessment_id" json:"assessment_id"`
	StudentID    string    `db:"student_id" json:"student_id"`
	Score        *float64  `db:"score" json:"score,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// GradedScore is the joined row the academic report consumes: a non-null
// grade together with its assessment's max score and class context.
type GradedScore struct {
	GradeID      string    `db:"grade_id" json:"grade_id"`
	AssessmentID string    `db:"assessment_id" json:"assessment_id"`
	StudentID    string    `db:"student_id" json:"student_id"`
	StudentName  string    `db:"student_name" json:"student_name"`
	ClassID      string    `db:"class_id" json:"class_id"`
	ClassName    string    `db:"class_name" json:"class_name"`
	Score        float64   `db:"score" json:"score"`
	MaxScore     float64   `db:"max_score" json:"max_score"`
	Date         time.Time `db:"date" json:"date"`
}

// Percentage normalises the score against the assessment's max score.
func (g GradedScore) Percentage() float64 {
	if g.MaxScore <= 0 {
		return 0
	}
	return 100 * g.Score / g.MaxScore
}
