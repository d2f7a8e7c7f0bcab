package evaluation

import "github.com/noah-isme/gema-evaluation-api/internal/models"

// WizardState is the complete, serialisable state of a submission wizard.
type WizardState struct {
	CurrentCategoryIndex int          `json:"current_category_index"`
	Answers              map[uint]int `json:"answers"`
}

// Progress reports how many catalog questions have been answered.
type Progress struct {
	Answered int `json:"answered"`
	Total    int `json:"total"`
}

// Wizard walks one respondent through the catalog one category at a time.
// Answers accumulate across the whole flow; moving between categories never
// clears them. A Wizard is not safe for concurrent use.
type Wizard struct {
	catalog Catalog
	index   int
	answers map[uint]int
}

// NewWizard starts a wizard at the first category.
func NewWizard(catalog Catalog) *Wizard {
	return &Wizard{catalog: catalog, answers: make(map[uint]int)}
}

// RestoreWizard rebuilds a wizard from persisted state. Answers that no longer
// match the catalog are discarded and the index is clamped to a valid step.
func RestoreWizard(catalog Catalog, state WizardState) *Wizard {
	w := NewWizard(catalog)
	for questionID, rating := range state.Answers {
		if _, ok := catalog.CategoryOf(questionID); ok && ValidRating(rating) {
			w.answers[questionID] = rating
		}
	}

	index := state.CurrentCategoryIndex
	if index >= catalog.CategoryCount() {
		index = catalog.CategoryCount() - 1
	}
	if index < 0 {
		index = 0
	}
	w.index = index
	return w
}

// State snapshots the wizard for persistence.
func (w *Wizard) State() WizardState {
	answers := make(map[uint]int, len(w.answers))
	for questionID, rating := range w.answers {
		answers[questionID] = rating
	}
	return WizardState{CurrentCategoryIndex: w.index, Answers: answers}
}

// CurrentIndex is the zero-based position of the active category.
func (w *Wizard) CurrentIndex() int {
	return w.index
}

// CurrentCategory returns the active category, if the catalog has any.
func (w *Wizard) CurrentCategory() (models.EvaluationCategory, bool) {
	categories := w.catalog.Categories()
	if w.index >= len(categories) {
		return models.EvaluationCategory{}, false
	}
	return categories[w.index], true
}

// CurrentQuestions returns the questions of the active category.
func (w *Wizard) CurrentQuestions() []models.EvaluationQuestion {
	category, ok := w.CurrentCategory()
	if !ok {
		return nil
	}
	questions, _ := w.catalog.QuestionsByCategory(category.ID)
	return questions
}

// Answer sets or overwrites the rating for a question in any category.
func (w *Wizard) Answer(questionID uint, rating int) error {
	if _, ok := w.catalog.CategoryOf(questionID); !ok {
		return ErrInvalidRating.With("question_id", questionID).With("reason", "unknown question")
	}
	if !ValidRating(rating) {
		return ErrInvalidRating.With("question_id", questionID).With("rating", rating)
	}
	w.answers[questionID] = rating
	return nil
}

// Next advances to the following category once the current one is fully answered.
func (w *Wizard) Next() error {
	if w.index >= w.catalog.CategoryCount()-1 {
		return ErrWizardBoundary.With("current_category_index", w.index)
	}
	if missing := MissingQuestions(w.CurrentQuestions(), w.answers); len(missing) > 0 {
		return ErrIncompleteAnswers.With("missing_question_ids", missing)
	}
	w.index++
	return nil
}

// Previous steps back one category without touching answers.
func (w *Wizard) Previous() error {
	if w.index == 0 {
		return ErrWizardBoundary.With("current_category_index", w.index)
	}
	w.index--
	return nil
}

// CanSubmit reports global completeness, independent of the current category.
func (w *Wizard) CanSubmit() bool {
	if w.catalog.QuestionCount() == 0 {
		return false
	}
	return len(MissingQuestions(w.catalog.Questions(), w.answers)) == 0
}

// Progress counts answered catalog questions.
func (w *Wizard) Progress() Progress {
	answered := 0
	for _, question := range w.catalog.Questions() {
		if _, ok := w.answers[question.ID]; ok {
			answered++
		}
	}
	return Progress{Answered: answered, Total: w.catalog.QuestionCount()}
}

// Submit hands the full answer set to record. On success the wizard resets to
// its initial state; on failure it is left untouched so the caller may retry.
func (w *Wizard) Submit(record func(answers map[uint]int) error) error {
	if !w.CanSubmit() {
		return ErrIncompleteAnswers.With("missing_question_ids", MissingQuestions(w.catalog.Questions(), w.answers))
	}
	if err := record(w.State().Answers); err != nil {
		return err
	}
	w.Reset()
	return nil
}

// Reset discards all answers and returns to the first category.
func (w *Wizard) Reset() {
	w.index = 0
	w.answers = make(map[uint]int)
}
