package evaluation

import (
	"time"

	"github.com/noah-isme/gema-evaluation-api/internal/models"
)

// Status is the derived lifecycle state of an evaluation session. It is never stored.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusActive  Status = "ACTIVE"
	StatusExpired Status = "EXPIRED"
)

// StatusOf derives the session status at now. EXPIRED wins over the active flag;
// an activated session whose window has not opened yet is still PENDING.
func StatusOf(session models.EvaluationSession, now time.Time) Status {
	switch {
	case session.IsExpired(now):
		return StatusExpired
	case session.IsActive && session.WithinWindow(now):
		return StatusActive
	default:
		return StatusPending
	}
}

// AcceptsSubmissions reports whether a submission may be recorded at now.
func AcceptsSubmissions(session models.EvaluationSession, now time.Time) bool {
	return StatusOf(session, now) == StatusActive
}

// ValidateWindow enforces startDate < endDate.
func ValidateWindow(start, end time.Time) error {
	if !start.Before(end) {
		return ErrInvalidWindow.
			With("start_date", start.UTC().Format(time.RFC3339)).
			With("end_date", end.UTC().Format(time.RFC3339))
	}
	return nil
}
