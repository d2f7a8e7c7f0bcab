package evaluation

import (
	"math"
	"sort"
	"time"

	"github.com/noah-isme/gema-evaluation-api/internal/models"
)

// TrendDateLayout is the UTC calendar-date format used for submission trends.
const TrendDateLayout = "2006-01-02"

// QuestionAnalytics summarises the ratings given to one question.
type QuestionAnalytics struct {
	QuestionID         uint        `json:"question_id"`
	Question           string      `json:"question"`
	CategoryID         uint        `json:"category_id"`
	Category           string      `json:"category"`
	AverageRating      float64     `json:"average_rating"`
	ResponseCount      int         `json:"response_count"`
	RatingDistribution map[int]int `json:"rating_distribution"`
}

// TrendPoint counts submissions received on one UTC calendar date.
type TrendPoint struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Snapshot is a recomputed, never persisted statistical summary of submissions.
type Snapshot struct {
	TotalSubmissions   int                 `json:"total_submissions"`
	OverallRating      float64             `json:"overall_rating"`
	CategoryRatings    map[uint]float64    `json:"category_ratings"`
	QuestionAnalytics  []QuestionAnalytics `json:"question_analytics"`
	RatingDistribution map[int]int         `json:"rating_distribution"`
	SubmissionTrend    []TrendPoint        `json:"submission_trend"`
}

// BuildSnapshot folds submissions into a Snapshot. It has no side effects and
// yields identical output for identical input.
//
// Category ratings average the per-submission category means already frozen
// on each submission; they are not re-derived from raw answers, so categories
// with different question counts across submissions are weighted per submission.
func BuildSnapshot(catalog Catalog, submissions []models.EvaluationSubmission) Snapshot {
	snapshot := Snapshot{
		TotalSubmissions:   len(submissions),
		CategoryRatings:    map[uint]float64{},
		QuestionAnalytics:  []QuestionAnalytics{},
		RatingDistribution: map[int]int{},
		SubmissionTrend:    []TrendPoint{},
	}
	if len(submissions) == 0 {
		return snapshot
	}

	overallSum := 0.0
	categorySums := map[uint]float64{}
	categoryCounts := map[uint]int{}
	questionSums := map[uint]int{}
	questionCounts := map[uint]int{}
	questionDistributions := map[uint]map[int]int{}
	trend := map[string]int{}

	for _, submission := range submissions {
		overallSum += submission.OverallRating
		snapshot.RatingDistribution[RoundHalfUp(submission.OverallRating)]++

		for categoryID, rating := range submission.CategoryRatingValues() {
			categorySums[categoryID] += rating
			categoryCounts[categoryID]++
		}

		for _, answer := range submission.Answers {
			questionSums[answer.QuestionID] += answer.Rating
			questionCounts[answer.QuestionID]++
			distribution, ok := questionDistributions[answer.QuestionID]
			if !ok {
				distribution = emptyDistribution()
				questionDistributions[answer.QuestionID] = distribution
			}
			distribution[answer.Rating]++
		}

		trend[submission.SubmittedAt.UTC().Format(TrendDateLayout)]++
	}

	snapshot.OverallRating = overallSum / float64(len(submissions))

	for categoryID, sum := range categorySums {
		snapshot.CategoryRatings[categoryID] = sum / float64(categoryCounts[categoryID])
	}

	questionIDs := make([]uint, 0, len(questionCounts))
	for questionID := range questionCounts {
		questionIDs = append(questionIDs, questionID)
	}
	sort.Slice(questionIDs, func(i, j int) bool { return questionIDs[i] < questionIDs[j] })

	for _, questionID := range questionIDs {
		entry := QuestionAnalytics{
			QuestionID:         questionID,
			AverageRating:      float64(questionSums[questionID]) / float64(questionCounts[questionID]),
			ResponseCount:      questionCounts[questionID],
			RatingDistribution: questionDistributions[questionID],
		}
		if question, ok := catalog.Question(questionID); ok {
			entry.Question = question.Question
			entry.CategoryID = question.CategoryID
			if category, ok := catalog.Category(question.CategoryID); ok {
				entry.Category = category.Name
			}
		}
		snapshot.QuestionAnalytics = append(snapshot.QuestionAnalytics, entry)
	}

	dates := make([]string, 0, len(trend))
	for date := range trend {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	for _, date := range dates {
		snapshot.SubmissionTrend = append(snapshot.SubmissionTrend, TrendPoint{Date: date, Count: trend[date]})
	}

	return snapshot
}

// RoundHalfUp rounds to the nearest integer with halves going up.
func RoundHalfUp(value float64) int {
	return int(math.Floor(value + 0.5))
}

// TrendDate parses a trend point date back into a UTC time.
func TrendDate(point TrendPoint) (time.Time, error) {
	return time.ParseInLocation(TrendDateLayout, point.Date, time.UTC)
}

func emptyDistribution() map[int]int {
	distribution := make(map[int]int, MaxRating-MinRating+1)
	for rating := MinRating; rating <= MaxRating; rating++ {
		distribution[rating] = 0
	}
	return distribution
}
