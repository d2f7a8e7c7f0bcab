package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/gema-evaluation-api/internal/models"
)

// EvaluationCatalogRepository reads and seeds the evaluation question catalog.
type EvaluationCatalogRepository interface {
	ListCategories(ctx context.Context) ([]models.EvaluationCategory, error)
	ListQuestions(ctx context.Context) ([]models.EvaluationQuestion, error)
	UpsertCategories(ctx context.Context, items []models.EvaluationCategory) (int64, error)
	UpsertQuestions(ctx context.Context, items []models.EvaluationQuestion) (int64, error)
}

type evaluationCatalogRepository struct {
	db *gorm.DB
}

// NewEvaluationCatalogRepository constructs the catalog repository.
func NewEvaluationCatalogRepository(db *gorm.DB) EvaluationCatalogRepository {
	return &evaluationCatalogRepository{db: db}
}

func (r *evaluationCatalogRepository) ListCategories(ctx context.Context) ([]models.EvaluationCategory, error) {
	var categories []models.EvaluationCategory
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *evaluationCatalogRepository) ListQuestions(ctx context.Context) ([]models.EvaluationQuestion, error) {
	var questions []models.EvaluationQuestion
	if err := r.db.WithContext(ctx).Preload("Category").Order("id ASC").Find(&questions).Error; err != nil {
		return nil, err
	}
	return questions, nil
}

func (r *evaluationCatalogRepository) UpsertCategories(ctx context.Context, items []models.EvaluationCategory) (int64, error) {
	if len(items) == 0 {
		return 0, nil
	}

	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "description"}),
	})

	result := tx.Create(&items)
	return result.RowsAffected, result.Error
}

func (r *evaluationCatalogRepository) UpsertQuestions(ctx context.Context, items []models.EvaluationQuestion) (int64, error) {
	if len(items) == 0 {
		return 0, nil
	}

	tx := r.db.WithContext(ctx).Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"question", "category_id"}),
	})

	result := tx.Create(&items)
	return result.RowsAffected, result.Error
}
