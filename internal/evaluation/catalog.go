package evaluation

import (
	"sort"

	"github.com/noah-isme/gema-evaluation-api/internal/models"
)

// Rating bounds accepted for every answer.
const (
	MinRating = 1
	MaxRating = 5
)

// Catalog is the read-only question reference set. Categories and questions are
// kept in ascending id order so every consumer sees the same sequence.
type Catalog struct {
	categories []models.EvaluationCategory
	questions  []models.EvaluationQuestion
	byCategory map[uint][]models.EvaluationQuestion
	categoryOf map[uint]uint
	categoryIx map[uint]int
}

// NewCatalog builds a catalog from unordered rows. Questions whose category is
// unknown are dropped.
func NewCatalog(categories []models.EvaluationCategory, questions []models.EvaluationQuestion) Catalog {
	sortedCategories := append([]models.EvaluationCategory(nil), categories...)
	sort.Slice(sortedCategories, func(i, j int) bool { return sortedCategories[i].ID < sortedCategories[j].ID })

	catalog := Catalog{
		categories: sortedCategories,
		byCategory: make(map[uint][]models.EvaluationQuestion, len(sortedCategories)),
		categoryOf: make(map[uint]uint, len(questions)),
		categoryIx: make(map[uint]int, len(sortedCategories)),
	}
	for index, category := range sortedCategories {
		catalog.categoryIx[category.ID] = index
		catalog.byCategory[category.ID] = nil
	}

	sortedQuestions := append([]models.EvaluationQuestion(nil), questions...)
	sort.Slice(sortedQuestions, func(i, j int) bool { return sortedQuestions[i].ID < sortedQuestions[j].ID })

	for _, question := range sortedQuestions {
		if _, ok := catalog.categoryIx[question.CategoryID]; !ok {
			continue
		}
		catalog.questions = append(catalog.questions, question)
		catalog.byCategory[question.CategoryID] = append(catalog.byCategory[question.CategoryID], question)
		catalog.categoryOf[question.ID] = question.CategoryID
	}

	return catalog
}

// Categories returns the categories in ascending id order.
func (c Catalog) Categories() []models.EvaluationCategory {
	return append([]models.EvaluationCategory(nil), c.categories...)
}

// Questions returns every question in ascending id order.
func (c Catalog) Questions() []models.EvaluationQuestion {
	return append([]models.EvaluationQuestion(nil), c.questions...)
}

// QuestionsByCategory returns the questions of one category in ascending id order.
func (c Catalog) QuestionsByCategory(categoryID uint) ([]models.EvaluationQuestion, error) {
	questions, ok := c.byCategory[categoryID]
	if !ok {
		return nil, ErrCategoryNotFound.With("category_id", categoryID)
	}
	return append([]models.EvaluationQuestion(nil), questions...), nil
}

// Category looks up a category by id.
func (c Catalog) Category(categoryID uint) (models.EvaluationCategory, bool) {
	index, ok := c.categoryIx[categoryID]
	if !ok {
		return models.EvaluationCategory{}, false
	}
	return c.categories[index], true
}

// CategoryOf returns the category a question belongs to.
func (c Catalog) CategoryOf(questionID uint) (uint, bool) {
	categoryID, ok := c.categoryOf[questionID]
	return categoryID, ok
}

// Question looks up a question by id.
func (c Catalog) Question(questionID uint) (models.EvaluationQuestion, bool) {
	categoryID, ok := c.categoryOf[questionID]
	if !ok {
		return models.EvaluationQuestion{}, false
	}
	for _, question := range c.byCategory[categoryID] {
		if question.ID == questionID {
			return question, true
		}
	}
	return models.EvaluationQuestion{}, false
}

// CategoryCount is the number of wizard steps.
func (c Catalog) CategoryCount() int {
	return len(c.categories)
}

// QuestionCount is the number of answers a complete submission carries.
func (c Catalog) QuestionCount() int {
	return len(c.questions)
}

// ValidRating reports whether rating lies in the accepted scale.
func ValidRating(rating int) bool {
	return rating >= MinRating && rating <= MaxRating
}
