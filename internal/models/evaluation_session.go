package models

import "time"

// EvaluationSession is a time-boxed window in which students evaluate one course offering.
type EvaluationSession struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	CourseSessionID uint       `gorm:"not null;index" json:"course_session_id"`
	DepartmentID    uint       `gorm:"not null;index" json:"department_id"`
	StartDate       time.Time  `gorm:"not null" json:"start_date"`
	EndDate         time.Time  `gorm:"not null" json:"end_date"`
	IsActive        bool       `gorm:"not null;default:false" json:"is_active"`
	ActivatedBy     *uint      `json:"activated_by"`
	ActivatedAt     *time.Time `json:"activated_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// IsExpired reports whether the evaluation window has already closed.
func (s EvaluationSession) IsExpired(reference time.Time) bool {
	return reference.After(s.EndDate)
}

// WithinWindow reports whether reference lies inside [StartDate, EndDate].
func (s EvaluationSession) WithinWindow(reference time.Time) bool {
	return !reference.Before(s.StartDate) && !reference.After(s.EndDate)
}
