package models

import (
	"time"

	"gorm.io/datatypes"
)

// ActivityLog is one entry in the evaluation audit trail: a session created or
// activated by an admin, or a catalog seed run.
type ActivityLog struct {
	ID            uint              `gorm:"primaryKey" json:"id"`
	ActorID       uint              `gorm:"not null;index" json:"actor_id"`
	ActorRole     string            `gorm:"size:16;not null" json:"actor_role"`
	Action        string            `gorm:"size:64;not null;index" json:"action"`
	EntityType    string            `gorm:"size:64;not null;index:idx_activity_log_entity,priority:1" json:"entity_type"`
	EntityID      *uint             `gorm:"index:idx_activity_log_entity,priority:2" json:"entity_id"`
	CorrelationID string            `gorm:"size:64" json:"correlation_id,omitempty"`
	Metadata      datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt     time.Time         `gorm:"index" json:"created_at"`
}

// TableName pins the audit table name.
func (ActivityLog) TableName() string {
	return "evaluation_activity_logs"
}
