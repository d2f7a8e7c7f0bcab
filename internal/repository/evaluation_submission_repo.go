package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-evaluation-api/internal/models"
)

// ErrDuplicateKey indicates an insert violated a unique constraint.
var ErrDuplicateKey = errors.New("duplicate key")

// EvaluationSubmissionFilter narrows submission queries.
type EvaluationSubmissionFilter struct {
	SessionID       *uint
	CourseSessionID *uint
	LecturerID      *uint
	DepartmentID    *uint
}

// EvaluationSubmissionRepository is the append-only store of finalized evaluations.
type EvaluationSubmissionRepository interface {
	Create(ctx context.Context, submission *models.EvaluationSubmission) error
	Exists(ctx context.Context, sessionID, studentID uint) (bool, error)
	GetByID(ctx context.Context, id uint) (models.EvaluationSubmission, error)
	List(ctx context.Context, filter EvaluationSubmissionFilter) ([]models.EvaluationSubmission, error)
}

type evaluationSubmissionRepository struct {
	db *gorm.DB
}

// NewEvaluationSubmissionRepository constructs the submission repository.
func NewEvaluationSubmissionRepository(db *gorm.DB) EvaluationSubmissionRepository {
	return &evaluationSubmissionRepository{db: db}
}

// Create inserts the submission and its answers in one transaction. The
// (session_id, student_id) unique index turns a concurrent second insert into ErrDuplicateKey.
func (r *evaluationSubmissionRepository) Create(ctx context.Context, submission *models.EvaluationSubmission) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(submission).Error
	})
	if isUniqueViolation(err) {
		return ErrDuplicateKey
	}
	return err
}

func (r *evaluationSubmissionRepository) Exists(ctx context.Context, sessionID, studentID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.EvaluationSubmission{}).
		Where("session_id = ? AND student_id = ?", sessionID, studentID).
		Count(&count).Error
	return count > 0, err
}

func (r *evaluationSubmissionRepository) GetByID(ctx context.Context, id uint) (models.EvaluationSubmission, error) {
	var submission models.EvaluationSubmission
	if err := r.baseQuery(ctx).First(&submission, id).Error; err != nil {
		return models.EvaluationSubmission{}, err
	}
	return submission, nil
}

func (r *evaluationSubmissionRepository) List(ctx context.Context, filter EvaluationSubmissionFilter) ([]models.EvaluationSubmission, error) {
	query := r.baseQuery(ctx)

	if filter.SessionID != nil {
		query = query.Where("session_id = ?", *filter.SessionID)
	}

	if filter.CourseSessionID != nil {
		query = query.Where("course_session_id = ?", *filter.CourseSessionID)
	}

	if filter.LecturerID != nil {
		query = query.Where("lecturer_id = ?", *filter.LecturerID)
	}

	if filter.DepartmentID != nil {
		sessions := r.db.WithContext(ctx).Model(&models.EvaluationSession{}).Select("id").Where("department_id = ?", *filter.DepartmentID)
		query = query.Where("session_id IN (?)", sessions)
	}

	var submissions []models.EvaluationSubmission
	if err := query.Order("submitted_at ASC, id ASC").Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *evaluationSubmissionRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.EvaluationSubmission{}).
		Preload("Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("question_id ASC")
		})
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint") ||
		strings.Contains(message, "duplicate key") ||
		strings.Contains(message, "sqlstate 23505")
}
