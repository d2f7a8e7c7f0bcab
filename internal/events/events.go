package events

import (
	"time"

	"github.com/google/uuid"
)

// Type names an integration event; it doubles as the NATS subject suffix.
type Type string

const (
	TypeSessionCreated   Type = "evaluation.session.created"
	TypeSessionActivated Type = "evaluation.session.activated"
)

// Event is the envelope published for every evaluation lifecycle change.
type Event struct {
	ID        string                 `json:"id"`
	Type      Type                   `json:"type"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Timestamp time.Time              `json:"timestamp"`
	Payload   map[string]interface{} `json:"payload"`
}

// New builds an event with a fresh identifier.
func New(eventType Type, payload map[string]interface{}) Event {
	if payload == nil {
		payload = map[string]interface{}{}
	}
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    "gema-evaluation-api",
		Version:   "1",
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// SessionCreated describes a newly created evaluation session.
func SessionCreated(sessionID, courseSessionID, departmentID uint, start, end time.Time) Event {
	return New(TypeSessionCreated, map[string]interface{}{
		"session_id":        sessionID,
		"course_session_id": courseSessionID,
		"department_id":     departmentID,
		"start_date":        start.UTC(),
		"end_date":          end.UTC(),
	})
}

// SessionActivated describes an evaluation session that was opened for submissions.
func SessionActivated(sessionID, adminID uint, activatedAt time.Time) Event {
	return New(TypeSessionActivated, map[string]interface{}{
		"session_id":   sessionID,
		"activated_by": adminID,
		"activated_at": activatedAt.UTC(),
	})
}
