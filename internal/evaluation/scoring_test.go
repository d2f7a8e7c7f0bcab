package evaluation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func fullAnswers(rating int) map[uint]int {
	answers := map[uint]int{}
	for id := uint(1); id <= 6; id++ {
		answers[id] = rating
	}
	return answers
}

func TestValidateAnswers(t *testing.T) {
	catalog := testCatalog()

	require.NoError(t, ValidateAnswers(catalog, fullAnswers(3)))

	partial := fullAnswers(3)
	delete(partial, 5)
	err := ValidateAnswers(catalog, partial)
	require.ErrorIs(t, err, ErrIncompleteAnswers)
	require.Equal(t, []uint{5}, err.(*Error).Context["missing_question_ids"])

	outOfRange := fullAnswers(3)
	outOfRange[2] = 6
	require.ErrorIs(t, ValidateAnswers(catalog, outOfRange), ErrInvalidRating)

	zero := fullAnswers(3)
	zero[2] = 0
	require.ErrorIs(t, ValidateAnswers(catalog, zero), ErrInvalidRating)

	unknown := fullAnswers(3)
	unknown[42] = 4
	require.ErrorIs(t, ValidateAnswers(catalog, unknown), ErrInvalidRating)

	require.ErrorIs(t, ValidateAnswers(NewCatalog(nil, nil), map[uint]int{}), ErrIncompleteAnswers)
}

func TestScoreDerivesMeans(t *testing.T) {
	catalog := testCatalog()
	answers := map[uint]int{1: 5, 2: 4, 3: 3, 4: 2, 5: 2, 6: 5}

	scores := Score(catalog, answers)

	require.InDelta(t, 21.0/6.0, scores.Overall, 1e-9)
	require.InDelta(t, 4.0, scores.Categories[1], 1e-9)
	require.InDelta(t, 3.0, scores.Categories[2], 1e-9)
	require.Len(t, scores.Categories, 2)
}

func TestAnswerSetRejectsRepeatedQuestion(t *testing.T) {
	_, err := AnswerSet([]Answer{{QuestionID: 1, Rating: 4}, {QuestionID: 1, Rating: 5}})
	require.ErrorIs(t, err, ErrInvalidRating)

	set, err := AnswerSet([]Answer{{QuestionID: 2, Rating: 4}, {QuestionID: 1, Rating: 5}})
	require.NoError(t, err)
	require.Equal(t, []Answer{{QuestionID: 1, Rating: 5}, {QuestionID: 2, Rating: 4}}, OrderedAnswers(set))
}
