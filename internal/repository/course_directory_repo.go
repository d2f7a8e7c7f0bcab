package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-evaluation-api/internal/models"
)

// CourseDirectoryRepository resolves course offerings, lecturers and departments.
// The directory is owned by the course administration module; this service only reads it.
type CourseDirectoryRepository interface {
	GetCourseSession(ctx context.Context, id uint) (models.CourseSession, error)
	ListCourseSessionsByLecturer(ctx context.Context, lecturerID uint) ([]models.CourseSession, error)
	ListCourseSessionsByDepartment(ctx context.Context, departmentID uint) ([]models.CourseSession, error)
	DepartmentExists(ctx context.Context, id uint) (bool, error)
}

type courseDirectoryRepository struct {
	db *gorm.DB
}

// NewCourseDirectoryRepository constructs the course directory repository.
func NewCourseDirectoryRepository(db *gorm.DB) CourseDirectoryRepository {
	return &courseDirectoryRepository{db: db}
}

func (r *courseDirectoryRepository) GetCourseSession(ctx context.Context, id uint) (models.CourseSession, error) {
	var course models.CourseSession
	if err := r.db.WithContext(ctx).Preload("Lecturers").First(&course, id).Error; err != nil {
		return models.CourseSession{}, err
	}
	return course, nil
}

func (r *courseDirectoryRepository) ListCourseSessionsByLecturer(ctx context.Context, lecturerID uint) ([]models.CourseSession, error) {
	var courses []models.CourseSession
	err := r.db.WithContext(ctx).
		Preload("Lecturers").
		Where("id IN (?)", r.db.Model(&models.CourseLecturer{}).Select("course_session_id").Where("lecturer_id = ?", lecturerID)).
		Order("id ASC").
		Find(&courses).Error
	if err != nil {
		return nil, err
	}
	return courses, nil
}

func (r *courseDirectoryRepository) ListCourseSessionsByDepartment(ctx context.Context, departmentID uint) ([]models.CourseSession, error) {
	var courses []models.CourseSession
	err := r.db.WithContext(ctx).
		Preload("Lecturers").
		Where("department_id = ?", departmentID).
		Order("id ASC").
		Find(&courses).Error
	if err != nil {
		return nil, err
	}
	return courses, nil
}

func (r *courseDirectoryRepository) DepartmentExists(ctx context.Context, id uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Department{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}
