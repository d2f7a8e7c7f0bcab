package evaluation

import (
	"sort"

	"github.com/noah-isme/gema-evaluation-api/internal/models"
)

// Answer is one rated question.
type Answer struct {
	QuestionID uint `json:"question_id"`
	Rating     int  `json:"rating"`
}

// Scores are the derived values frozen onto a submission at write time.
type Scores struct {
	Overall    float64
	Categories map[uint]float64
}

// AnswerSet converts an ordered answer list into a map, rejecting repeated questions.
func AnswerSet(answers []Answer) (map[uint]int, error) {
	set := make(map[uint]int, len(answers))
	for _, answer := range answers {
		if _, exists := set[answer.QuestionID]; exists {
			return nil, ErrInvalidRating.
				With("question_id", answer.QuestionID).
				With("reason", "question answered more than once")
		}
		set[answer.QuestionID] = answer.Rating
	}
	return set, nil
}

// OrderedAnswers returns the answer set sorted by question id.
func OrderedAnswers(set map[uint]int) []Answer {
	answers := make([]Answer, 0, len(set))
	for questionID, rating := range set {
		answers = append(answers, Answer{QuestionID: questionID, Rating: rating})
	}
	sort.Slice(answers, func(i, j int) bool { return answers[i].QuestionID < answers[j].QuestionID })
	return answers
}

// ValidateAnswers checks that answers cover exactly the catalog's questions
// with ratings on the 1..5 scale.
func ValidateAnswers(catalog Catalog, answers map[uint]int) error {
	for _, questionID := range sortedKeys(answers) {
		if _, known := catalog.CategoryOf(questionID); !known {
			return ErrInvalidRating.With("question_id", questionID).With("reason", "unknown question")
		}
		if rating := answers[questionID]; !ValidRating(rating) {
			return ErrInvalidRating.With("question_id", questionID).With("rating", rating)
		}
	}

	if catalog.QuestionCount() == 0 {
		return ErrIncompleteAnswers.With("reason", "question catalog is empty")
	}

	missing := MissingQuestions(catalog.Questions(), answers)
	if len(missing) > 0 {
		return ErrIncompleteAnswers.With("missing_question_ids", missing)
	}

	return nil
}

// Score computes the overall mean and the per-category means of a validated answer set.
func Score(catalog Catalog, answers map[uint]int) Scores {
	scores := Scores{Categories: make(map[uint]float64)}
	if len(answers) == 0 {
		return scores
	}

	sums := make(map[uint]int)
	counts := make(map[uint]int)
	total := 0
	for questionID, rating := range answers {
		total += rating
		if categoryID, ok := catalog.CategoryOf(questionID); ok {
			sums[categoryID] += rating
			counts[categoryID]++
		}
	}

	scores.Overall = float64(total) / float64(len(answers))
	for categoryID, sum := range sums {
		scores.Categories[categoryID] = float64(sum) / float64(counts[categoryID])
	}
	return scores
}

// MissingQuestions lists, in catalog order, the questions without an answer.
func MissingQuestions(questions []models.EvaluationQuestion, answers map[uint]int) []uint {
	missing := make([]uint, 0)
	for _, question := range questions {
		if _, ok := answers[question.ID]; !ok {
			missing = append(missing, question.ID)
		}
	}
	return missing
}

func sortedKeys(answers map[uint]int) []uint {
	keys := make([]uint, 0, len(answers))
	for key := range answers {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
