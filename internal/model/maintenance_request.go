package model

import "time"

// Severity grades a maintenance request or damage report.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// MaintenanceStatus is the state of a maintenance request.
type MaintenanceStatus string

const (
	MaintenancePending    MaintenanceStatus = "PENDING"
	MaintenanceInProgress MaintenanceStatus = "IN_PROGRESS"
	MaintenanceCompleted  MaintenanceStatus = "COMPLETED"
)

// MaintenanceRequest is created as a side effect of a transition into
// MAINTENANCE or DAMAGED, never directly by callers.
type MaintenanceRequest struct {
	ID          int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	SchoolID    int64             `gorm:"index;not null" json:"schoolId"`
	EquipmentID int64             `gorm:"index;not null" json:"equipmentId"`
	Description string            `gorm:"size:1024;not null" json:"description"`
	Severity    Severity          `gorm:"size:32;not null" json:"severity"`
	Status      MaintenanceStatus `gorm:"size:32;not null" json:"status"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}
