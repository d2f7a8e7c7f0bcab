package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-evaluation-api/internal/models"
)

// EvaluationSessionRepository persists evaluation sessions.
type EvaluationSessionRepository interface {
	Create(ctx context.Context, session *models.EvaluationSession) error
	GetByID(ctx context.Context, id uint) (models.EvaluationSession, error)
	ListByDepartment(ctx context.Context, departmentID uint) ([]models.EvaluationSession, error)
	Activate(ctx context.Context, id, adminID uint, at time.Time) (bool, error)
}

type evaluationSessionRepository struct {
	db *gorm.DB
}

// NewEvaluationSessionRepository constructs the session repository.
func NewEvaluationSessionRepository(db *gorm.DB) EvaluationSessionRepository {
	return &evaluationSessionRepository{db: db}
}

func (r *evaluationSessionRepository) Create(ctx context.Context, session *models.EvaluationSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *evaluationSessionRepository) GetByID(ctx context.Context, id uint) (models.EvaluationSession, error) {
	var session models.EvaluationSession
	if err := r.db.WithContext(ctx).First(&session, id).Error; err != nil {
		return models.EvaluationSession{}, err
	}
	return session, nil
}

func (r *evaluationSessionRepository) ListByDepartment(ctx context.Context, departmentID uint) ([]models.EvaluationSession, error) {
	var sessions []models.EvaluationSession
	err := r.db.WithContext(ctx).
		Where("department_id = ?", departmentID).
		Order("start_date DESC, id DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

// Activate flips is_active from false to true in a single conditional update.
// It reports false when another caller already activated the session.
func (r *evaluationSessionRepository) Activate(ctx context.Context, id, adminID uint, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.EvaluationSession{}).
		Where("id = ? AND is_active = ?", id, false).
		Updates(map[string]interface{}{
			"is_active":    true,
			"activated_by": adminID,
			"activated_at": at,
			"updated_at":   at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
