package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-evaluation-api/internal/models"
)

// Migrate creates or updates every table owned by the evaluation service.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Department{},
		&models.CourseSession{},
		&models.CourseLecturer{},
		&models.EvaluationCategory{},
		&models.EvaluationQuestion{},
		&models.EvaluationSession{},
		&models.EvaluationSubmission{},
		&models.EvaluationAnswer{},
		&models.ActivityLog{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
