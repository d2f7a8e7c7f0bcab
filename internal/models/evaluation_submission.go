package models

import (
	"encoding/json"
	"strconv"
	"time"

	"gorm.io/datatypes"
)

// EvaluationSubmission is one student's finalized, immutable evaluation for a session.
type EvaluationSubmission struct {
	ID              uint               `gorm:"primaryKey" json:"id"`
	StudentID       uint               `gorm:"not null;uniqueIndex:idx_evaluation_submission_session_student" json:"student_id"`
	SessionID       uint               `gorm:"not null;uniqueIndex:idx_evaluation_submission_session_student;index" json:"session_id"`
	LecturerID      uint               `gorm:"not null;index:idx_evaluation_submission_course_lecturer" json:"lecturer_id"`
	CourseSessionID uint               `gorm:"not null;index:idx_evaluation_submission_course_lecturer" json:"course_session_id"`
	SubmittedAt     time.Time          `gorm:"not null;index" json:"submitted_at"`
	OverallRating   float64            `gorm:"not null" json:"overall_rating"`
	CategoryRatings datatypes.JSONMap  `gorm:"type:json" json:"category_ratings"`
	Answers         []EvaluationAnswer `gorm:"foreignKey:SubmissionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"answers"`
}

// EvaluationAnswer stores the rating given to a single question within a submission.
type EvaluationAnswer struct {
	ID           uint `gorm:"primaryKey" json:"id"`
	SubmissionID uint `gorm:"not null;index" json:"submission_id"`
	QuestionID   uint `gorm:"not null;index" json:"question_id"`
	Rating       int  `gorm:"not null" json:"rating"`
}

// CategoryRatingValues decodes the stored category means keyed by category id.
func (s EvaluationSubmission) CategoryRatingValues() map[uint]float64 {
	result := make(map[uint]float64, len(s.CategoryRatings))
	for key, raw := range s.CategoryRatings {
		id, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			continue
		}
		switch v := raw.(type) {
		case float64:
			result[uint(id)] = v
		case float32:
			result[uint(id)] = float64(v)
		case int:
			result[uint(id)] = float64(v)
		case int64:
			result[uint(id)] = float64(v)
		case json.Number:
			if f, err := v.Float64(); err == nil {
				result[uint(id)] = f
			}
		case string:
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				result[uint(id)] = f
			}
		}
	}
	return result
}

// CategoryRatingsJSON encodes category means into the JSON column representation.
func CategoryRatingsJSON(values map[uint]float64) datatypes.JSONMap {
	encoded := datatypes.JSONMap{}
	for id, value := range values {
		encoded[strconv.FormatUint(uint64(id), 10)] = value
	}
	return encoded
}
