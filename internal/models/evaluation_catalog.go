package models

// EvaluationCategory groups related evaluation questions, e.g. "Teaching Methodology".
type EvaluationCategory struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"size:160;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
}

// EvaluationQuestion is a single rateable statement belonging to exactly one category.
type EvaluationQuestion struct {
	ID         uint               `gorm:"primaryKey" json:"id"`
	Question   string             `gorm:"type:text;not null" json:"question"`
	CategoryID uint               `gorm:"not null;index" json:"category_id"`
	Category   EvaluationCategory `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"category"`
}
