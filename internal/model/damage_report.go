package model

import "time"

// DamageReport records reported damage to a piece of equipment. Created as
// a side effect of a transition into DAMAGED; the description comes from
// the mandatory reason on that transition.
type DamageReport struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SchoolID     int64     `gorm:"index;not null" json:"schoolId"`
	EquipmentID  int64     `gorm:"index;not null" json:"equipmentId"`
	Description  string    `gorm:"size:1024;not null" json:"description"`
	Severity     Severity  `gorm:"size:32;not null" json:"severity"`
	ReportedByID int64     `gorm:"not null" json:"reportedById"`
	CreatedAt    time.Time `json:"createdAt"`
}
