package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-evaluation-api/internal/dto"
	"github.com/noah-isme/gema-evaluation-api/internal/evaluation"
)

func TestSubmissionServiceRecordsScores(t *testing.T) {
	f := newEvaluationFixture(t)
	session := f.activeSession(t)

	answers := []dto.AnswerRequest{
		{QuestionID: 1, Rating: 5}, {QuestionID: 2, Rating: 4}, {QuestionID: 3, Rating: 3},
		{QuestionID: 4, Rating: 2}, {QuestionID: 5, Rating: 2}, {QuestionID: 6, Rating: 2},
	}
	recorded, err := f.submissions.RecordSubmission(context.Background(), 7, submitRequest(session.ID, answers))
	require.NoError(t, err)

	require.NotZero(t, recorded.ID)
	require.Equal(t, uint(7), recorded.StudentID)
	require.InDelta(t, 3.0, recorded.OverallRating, 1e-9)
	require.InDelta(t, 4.0, recorded.CategoryRatings[1], 1e-9)
	require.InDelta(t, 2.0, recorded.CategoryRatings[2], 1e-9)
	require.Equal(t, fixtureNow, recorded.SubmittedAt)
	require.Len(t, recorded.Answers, 6)

	listed, err := f.submissions.ListSubmissions(context.Background(), session.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, recorded.ID, listed[0].ID)
	require.InDelta(t, 4.0, listed[0].CategoryRatings[1], 1e-9)
}

func TestSubmissionServiceRejectionOrder(t *testing.T) {
	f := newEvaluationFixture(t)
	ctx := context.Background()
	session := f.activeSession(t)
	pending := f.createSession(t, 11, 1, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC))

	_, err := f.submissions.RecordSubmission(ctx, 7, submitRequest(4040, uniformAnswers(4)))
	require.ErrorIs(t, err, evaluation.ErrSessionNotFound)

	pendingReq := submitRequest(pending.ID, uniformAnswers(4))
	pendingReq.CourseSessionID = 11
	_, err = f.submissions.RecordSubmission(ctx, 7, pendingReq)
	require.ErrorIs(t, err, evaluation.ErrSessionNotActive)

	wrongCourse := submitRequest(session.ID, uniformAnswers(4))
	wrongCourse.CourseSessionID = 11
	_, err = f.submissions.RecordSubmission(ctx, 7, wrongCourse)
	require.ErrorIs(t, err, evaluation.ErrCourseMismatch)

	wrongLecturer := submitRequest(session.ID, uniformAnswers(4))
	wrongLecturer.LecturerID = 5
	_, err = f.submissions.RecordSubmission(ctx, 7, wrongLecturer)
	require.ErrorIs(t, err, evaluation.ErrLecturerNotAssigned)

	_, err = f.submissions.RecordSubmission(ctx, 7, submitRequest(session.ID, uniformAnswers(4)[:4]))
	var domainErr *evaluation.Error
	require.ErrorAs(t, err, &domainErr)
	require.Equal(t, evaluation.CodeIncompleteAnswers, domainErr.Code)
	require.Equal(t, []uint{5, 6}, domainErr.Context["missing_question_ids"])

	outOfRange := uniformAnswers(4)
	outOfRange[2].Rating = 6
	_, err = f.submissions.RecordSubmission(ctx, 7, submitRequest(session.ID, outOfRange))
	require.ErrorIs(t, err, evaluation.ErrInvalidRating)

	repeated := append(uniformAnswers(4), dto.AnswerRequest{QuestionID: 1, Rating: 2})
	_, err = f.submissions.RecordSubmission(ctx, 7, submitRequest(session.ID, repeated))
	require.ErrorIs(t, err, evaluation.ErrInvalidRating)

	listed, err := f.submissions.ListSubmissions(ctx, session.ID)
	require.NoError(t, err)
	require.Empty(t, listed, "rejected submissions must not be stored")

	_, err = f.submissions.RecordSubmission(ctx, 7, submitRequest(session.ID, uniformAnswers(4)))
	require.NoError(t, err)

	// A second attempt is a duplicate even when its answers are also incomplete.
	_, err = f.submissions.RecordSubmission(ctx, 7, submitRequest(session.ID, uniformAnswers(5)[:1]))
	require.ErrorIs(t, err, evaluation.ErrDuplicateSubmission)
}

func TestSubmissionServiceExpiredSession(t *testing.T) {
	f := newEvaluationFixture(t)
	session := f.activeSession(t)
	f.submissions.(*submissionService).now = func() time.Time { return time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC) }

	_, err := f.submissions.RecordSubmission(context.Background(), 7, submitRequest(session.ID, uniformAnswers(4)))
	var domainErr *evaluation.Error
	require.ErrorAs(t, err, &domainErr)
	require.Equal(t, evaluation.CodeSessionNotActive, domainErr.Code)
	require.Equal(t, string(evaluation.StatusExpired), domainErr.Context["status"])
}

func TestSubmissionServiceConcurrentDuplicates(t *testing.T) {
	f := newEvaluationFixture(t)
	session := f.activeSession(t)

	const attempts = 5
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		recorded   int
		duplicates int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.submissions.RecordSubmission(context.Background(), 7, submitRequest(session.ID, uniformAnswers(3)))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				recorded++
			case errors.Is(err, evaluation.ErrDuplicateSubmission):
				duplicates++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, recorded)
	require.Equal(t, attempts-1, duplicates)
}

func TestSubmissionServiceInvalidatesAnalyticsCache(t *testing.T) {
	f := newEvaluationFixture(t)
	ctx := context.Background()
	session := f.activeSession(t)

	before, err := f.analytics.CourseAnalytics(ctx, 10, 3)
	require.NoError(t, err)
	require.Equal(t, 0, before.TotalSubmissions)
	require.True(t, f.redisServer.Exists(courseAnalyticsCacheKey(10, 3)))

	_, err = f.submissions.RecordSubmission(ctx, 7, submitRequest(session.ID, uniformAnswers(5)))
	require.NoError(t, err)
	require.False(t, f.redisServer.Exists(courseAnalyticsCacheKey(10, 3)))

	after, err := f.analytics.CourseAnalytics(ctx, 10, 3)
	require.NoError(t, err)
	require.False(t, after.CacheHit)
	require.Equal(t, 1, after.TotalSubmissions)
}

func TestSubmissionServiceListUnknownSession(t *testing.T) {
	f := newEvaluationFixture(t)
	_, err := f.submissions.ListSubmissions(context.Background(), 4040)
	require.ErrorIs(t, err, evaluation.ErrSessionNotFound)
}
