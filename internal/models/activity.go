package models

import (
	"time"

	"gorm.io/datatypes"
)

// Activity actions recorded by the portal.
const (
	ActivityExerciseRun        = "exercise.run"
	ActivitySubmissionFinal    = "submission.finalized"
	ActivitySubmissionRejected = "submission.rejected"
	ActivitySubmissionRescored = "submission.rescored"
	ActivityExerciseCreated    = "exercise.created"
	ActivityExerciseUpdated    = "exercise.updated"
	ActivityExerciseDeleted    = "exercise.deleted"
	ActivityLessonCreated      = "lesson.created"
	ActivityContentUploaded    = "content.uploaded"
	ActivityContentDeleted     = "content.deleted"
	ActivitySessionStarted     = "session.started"
	ActivitySessionEnded       = "session.ended"
)

// ActivityLog is the portal's own audit trail of actions it relayed to the learning backend.
type ActivityLog struct {
	ID            uint              `gorm:"primaryKey" json:"id"`
	ActorID       uint              `gorm:"not null;index" json:"actorId"`
	ActorRole     string            `gorm:"size:32;not null" json:"actorRole"`
	Action        string            `gorm:"size:64;not null;index" json:"action"`
	EntityType    string            `gorm:"size:64;not null" json:"entityType"`
	EntityID      *uint             `json:"entityId"`
	CorrelationID string            `gorm:"size:64" json:"correlationId"`
	Metadata      datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt     time.Time         `gorm:"index" json:"createdAt"`
}
