package evaluation

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Code identifies a class of evaluation domain failure.
type Code string

const (
	CodeSessionNotFound     Code = "SESSION_NOT_FOUND"
	CodeInvalidWindow       Code = "INVALID_WINDOW"
	CodeActivationConflict  Code = "ACTIVATION_CONFLICT"
	CodeSessionExpired      Code = "SESSION_EXPIRED"
	CodeSessionNotActive    Code = "SESSION_NOT_ACTIVE"
	CodeDuplicateSubmission Code = "DUPLICATE_SUBMISSION"
	CodeIncompleteAnswers   Code = "INCOMPLETE_ANSWERS"
	CodeInvalidRating       Code = "INVALID_RATING"
	CodeCategoryNotFound    Code = "CATEGORY_NOT_FOUND"
	CodeCourseNotFound      Code = "COURSE_NOT_FOUND"
	CodeDepartmentNotFound  Code = "DEPARTMENT_NOT_FOUND"
	CodeDepartmentMismatch  Code = "DEPARTMENT_MISMATCH"
	CodeCourseMismatch      Code = "COURSE_MISMATCH"
	CodeLecturerNotAssigned Code = "LECTURER_NOT_ASSIGNED"
	CodeWizardBoundary      Code = "WIZARD_BOUNDARY"
)

// Error is a domain error surfaced directly to callers. Context carries the
// offending field or identifiers so the UI can point at the problem.
type Error struct {
	Code    Code                   `json:"code"`
	Message string                 `json:"message"`
	Context map[string]interface{} `json:"context,omitempty"`
}

func (e *Error) Error() string {
	if len(e.Context) == 0 {
		return e.Message
	}

	parts := make([]string, 0, len(e.Context))
	for key, value := range e.Context {
		parts = append(parts, fmt.Sprintf("%s=%v", key, value))
	}
	sort.Strings(parts)
	return fmt.Sprintf("%s (%s)", e.Message, strings.Join(parts, ", "))
}

// Is matches any *Error carrying the same code, so errors.Is works against the sentinels below.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

// With returns a copy of the error enriched with a context entry.
func (e *Error) With(key string, value interface{}) *Error {
	ctx := make(map[string]interface{}, len(e.Context)+1)
	for k, v := range e.Context {
		ctx[k] = v
	}
	ctx[key] = value
	return &Error{Code: e.Code, Message: e.Message, Context: ctx}
}

var (
	ErrSessionNotFound     = &Error{Code: CodeSessionNotFound, Message: "evaluation session not found"}
	ErrInvalidWindow       = &Error{Code: CodeInvalidWindow, Message: "start date must be before end date"}
	ErrActivationConflict  = &Error{Code: CodeActivationConflict, Message: "evaluation session is already active"}
	ErrSessionExpired      = &Error{Code: CodeSessionExpired, Message: "evaluation session has expired"}
	ErrSessionNotActive    = &Error{Code: CodeSessionNotActive, Message: "evaluation session is not accepting submissions"}
	ErrDuplicateSubmission = &Error{Code: CodeDuplicateSubmission, Message: "evaluation already submitted for this session"}
	ErrIncompleteAnswers   = &Error{Code: CodeIncompleteAnswers, Message: "all questions must be answered"}
	ErrInvalidRating       = &Error{Code: CodeInvalidRating, Message: "rating must be between 1 and 5 for a known question"}
	ErrCategoryNotFound    = &Error{Code: CodeCategoryNotFound, Message: "evaluation category not found"}

	ErrCourseNotFound      = &Error{Code: CodeCourseNotFound, Message: "course session not found"}
	ErrDepartmentNotFound  = &Error{Code: CodeDepartmentNotFound, Message: "department not found"}
	ErrDepartmentMismatch  = &Error{Code: CodeDepartmentMismatch, Message: "course session does not belong to department"}
	ErrCourseMismatch      = &Error{Code: CodeCourseMismatch, Message: "course session does not match evaluation session"}
	ErrLecturerNotAssigned = &Error{Code: CodeLecturerNotAssigned, Message: "lecturer is not assigned to course session"}
	ErrWizardBoundary      = &Error{Code: CodeWizardBoundary, Message: "no category in that direction"}
)
