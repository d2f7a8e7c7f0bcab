package dto

import (
	"time"

	"github.com/noah-isme/gema-evaluation-api/internal/evaluation"
	"github.com/noah-isme/gema-evaluation-api/internal/models"
)

// CategoryResponse serializes an evaluation category.
type CategoryResponse struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// QuestionResponse serializes an evaluation question with its category name.
type QuestionResponse struct {
	ID           uint   `json:"id"`
	Question     string `json:"question"`
	CategoryID   uint   `json:"category_id"`
	CategoryName string `json:"category_name,omitempty"`
}

// NewCategoryResponses converts catalog categories into DTOs.
func NewCategoryResponses(categories []models.EvaluationCategory) []CategoryResponse {
	responses := make([]CategoryResponse, 0, len(categories))
	for _, category := range categories {
		responses = append(responses, CategoryResponse{ID: category.ID, Name: category.Name, Description: category.Description})
	}
	return responses
}

// NewQuestionResponses converts questions into DTOs, resolving category names from the catalog.
func NewQuestionResponses(catalog evaluation.Catalog, questions []models.EvaluationQuestion) []QuestionResponse {
	responses := make([]QuestionResponse, 0, len(questions))
	for _, question := range questions {
		response := QuestionResponse{ID: question.ID, Question: question.Question, CategoryID: question.CategoryID}
		if category, ok := catalog.Category(question.CategoryID); ok {
			response.CategoryName = category.Name
		}
		responses = append(responses, response)
	}
	return responses
}

// CreateSessionRequest opens a new evaluation window for a course offering.
type CreateSessionRequest struct {
	CourseSessionID uint      `json:"course_session_id" validate:"required"`
	DepartmentID    uint      `json:"department_id" validate:"required"`
	StartDate       time.Time `json:"start_date" validate:"required"`
	EndDate         time.Time `json:"end_date" validate:"required"`
}

// SessionResponse serializes an evaluation session with its derived status.
type SessionResponse struct {
	ID              uint              `json:"id"`
	CourseSessionID uint              `json:"course_session_id"`
	CourseCode      string            `json:"course_code,omitempty"`
	CourseName      string            `json:"course_name,omitempty"`
	DepartmentID    uint              `json:"department_id"`
	StartDate       time.Time         `json:"start_date"`
	EndDate         time.Time         `json:"end_date"`
	IsActive        bool              `json:"is_active"`
	Status          evaluation.Status `json:"status"`
	ActivatedBy     *uint             `json:"activated_by,omitempty"`
	ActivatedAt     *time.Time        `json:"activated_at,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}

// NewSessionResponse converts a session model into a DTO. course may be nil when the directory entry is gone.
func NewSessionResponse(session models.EvaluationSession, course *models.CourseSession, status evaluation.Status) SessionResponse {
	response := SessionResponse{
		ID:              session.ID,
		CourseSessionID: session.CourseSessionID,
		DepartmentID:    session.DepartmentID,
		StartDate:       session.StartDate,
		EndDate:         session.EndDate,
		IsActive:        session.IsActive,
		Status:          status,
		ActivatedBy:     session.ActivatedBy,
		ActivatedAt:     session.ActivatedAt,
		CreatedAt:       session.CreatedAt,
	}
	if course != nil {
		response.CourseCode = course.CourseCode
		response.CourseName = course.CourseName
	}
	return response
}

// SessionStatusResponse reports the derived status of a session.
type SessionStatusResponse struct {
	SessionID uint              `json:"session_id"`
	Status    evaluation.Status `json:"status"`
}

// AnswerRequest carries one rating. Range checks happen in the domain so the
// offending question id is reported back.
type AnswerRequest struct {
	QuestionID uint `json:"question_id" validate:"required"`
	Rating     int  `json:"rating"`
}

// SubmitEvaluationRequest records a complete evaluation in one call.
type SubmitEvaluationRequest struct {
	SessionID       uint            `json:"session_id" validate:"required"`
	CourseSessionID uint            `json:"course_session_id" validate:"required"`
	LecturerID      uint            `json:"lecturer_id" validate:"required"`
	Answers         []AnswerRequest `json:"answers" validate:"required,min=1,dive"`
}

// DomainAnswers converts request answers into domain answers.
func DomainAnswers(answers []AnswerRequest) []evaluation.Answer {
	result := make([]evaluation.Answer, 0, len(answers))
	for _, answer := range answers {
		result = append(result, evaluation.Answer{QuestionID: answer.QuestionID, Rating: answer.Rating})
	}
	return result
}

// AnswerResponse serializes a stored answer.
type AnswerResponse struct {
	QuestionID uint `json:"question_id"`
	Rating     int  `json:"rating"`
}

// SubmissionResponse serializes a stored evaluation submission.
type SubmissionResponse struct {
	ID              uint             `json:"id"`
	StudentID       uint             `json:"student_id"`
	SessionID       uint             `json:"session_id"`
	LecturerID      uint             `json:"lecturer_id"`
	CourseSessionID uint             `json:"course_session_id"`
	SubmittedAt     time.Time        `json:"submitted_at"`
	OverallRating   float64          `json:"overall_rating"`
	CategoryRatings map[uint]float64 `json:"category_ratings"`
	Answers         []AnswerResponse `json:"answers"`
}

// NewSubmissionResponse converts a submission model into a DTO.
func NewSubmissionResponse(submission models.EvaluationSubmission) SubmissionResponse {
	answers := make([]AnswerResponse, 0, len(submission.Answers))
	for _, answer := range submission.Answers {
		answers = append(answers, AnswerResponse{QuestionID: answer.QuestionID, Rating: answer.Rating})
	}
	return SubmissionResponse{
		ID:              submission.ID,
		StudentID:       submission.StudentID,
		SessionID:       submission.SessionID,
		LecturerID:      submission.LecturerID,
		CourseSessionID: submission.CourseSessionID,
		SubmittedAt:     submission.SubmittedAt,
		OverallRating:   submission.OverallRating,
		CategoryRatings: submission.CategoryRatingValues(),
		Answers:         answers,
	}
}

// WizardAnswersRequest sets or overwrites ratings in the caller's draft.
type WizardAnswersRequest struct {
	Answers []AnswerRequest `json:"answers" validate:"required,min=1,dive"`
}

// WizardSubmitRequest names the lecturer and course offering the draft evaluates.
type WizardSubmitRequest struct {
	CourseSessionID uint `json:"course_session_id" validate:"required"`
	LecturerID      uint `json:"lecturer_id" validate:"required"`
}

// WizardResponse is the server-side wizard state after the last applied transition.
type WizardResponse struct {
	SessionID            uint                `json:"session_id"`
	CurrentCategoryIndex int                 `json:"current_category_index"`
	TotalCategories      int                 `json:"total_categories"`
	CurrentCategory      *CategoryResponse   `json:"current_category,omitempty"`
	Questions            []QuestionResponse  `json:"questions"`
	Answers              map[uint]int        `json:"answers"`
	Progress             evaluation.Progress `json:"progress"`
	CanSubmit            bool                `json:"can_submit"`
	IsFirst              bool                `json:"is_first"`
	IsLast               bool                `json:"is_last"`
}

// NewWizardResponse renders the wizard's current step.
func NewWizardResponse(sessionID uint, catalog evaluation.Catalog, wizard *evaluation.Wizard) WizardResponse {
	state := wizard.State()
	response := WizardResponse{
		SessionID:            sessionID,
		CurrentCategoryIndex: state.CurrentCategoryIndex,
		TotalCategories:      catalog.CategoryCount(),
		Questions:            NewQuestionResponses(catalog, wizard.CurrentQuestions()),
		Answers:              state.Answers,
		Progress:             wizard.Progress(),
		CanSubmit:            wizard.CanSubmit(),
		IsFirst:              state.CurrentCategoryIndex == 0,
		IsLast:               state.CurrentCategoryIndex >= catalog.CategoryCount()-1,
	}
	if category, ok := wizard.CurrentCategory(); ok {
		response.CurrentCategory = &CategoryResponse{ID: category.ID, Name: category.Name, Description: category.Description}
	}
	return response
}

// CourseAnalyticsResponse is the snapshot for one lecturer in one course offering.
type CourseAnalyticsResponse struct {
	CourseSessionID uint   `json:"course_session_id"`
	CourseCode      string `json:"course_code,omitempty"`
	CourseName      string `json:"course_name,omitempty"`
	LecturerID      uint   `json:"lecturer_id"`
	LecturerName    string `json:"lecturer_name,omitempty"`
	evaluation.Snapshot
	GeneratedAt time.Time `json:"generated_at"`
	CacheHit    bool      `json:"cache_hit"`
}

// LecturerAnalyticsResponse groups one snapshot per course offering the lecturer teaches.
type LecturerAnalyticsResponse struct {
	LecturerID uint                      `json:"lecturer_id"`
	Courses    []CourseAnalyticsResponse `json:"courses"`
}

// DepartmentAnalyticsResponse groups one snapshot per course and lecturer pair in a department.
type DepartmentAnalyticsResponse struct {
	DepartmentID uint                      `json:"department_id"`
	Courses      []CourseAnalyticsResponse `json:"courses"`
}

// CatalogSeedRequest is the payload accepted by the catalog seeder.
type CatalogSeedRequest struct {
	Categories []models.EvaluationCategory `json:"categories"`
	Questions  []models.EvaluationQuestion `json:"questions"`
}

// CatalogSeedResponse reports affected rows per table.
type CatalogSeedResponse struct {
	Categories int64 `json:"categories"`
	Questions  int64 `json:"questions"`
}
