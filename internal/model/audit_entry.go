package model

import "time"

// AuditEntry is one append-only record of an equipment status change.
// Exactly one entry is written per successful transition, whether the
// transition was requested by a user or by the sweeper.
type AuditEntry struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SchoolID       int64     `gorm:"index;not null" json:"schoolId"`
	EntityType     string    `gorm:"size:64;not null" json:"entityType"`
	EntityID       int64     `gorm:"index;not null" json:"entityId"`
	Action         string    `gorm:"size:64;not null" json:"action"`
	PreviousStatus Status    `gorm:"size:32;not null" json:"previousStatus"`
	NewStatus      Status    `gorm:"size:32;not null" json:"newStatus"`
	Reason         string    `gorm:"size:512" json:"reason,omitempty"`
	ActorID        int64     `gorm:"not null" json:"actorId"`
	CreatedAt      time.Time `gorm:"index" json:"createdAt"`
}

// Audit entry constants for equipment status changes.
const (
	AuditEntityEquipment = "EQUIPMENT"
	AuditActionStatus    = "STATUS_CHANGE"
)
