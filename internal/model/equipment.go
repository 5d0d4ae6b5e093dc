package model

import "time"

// Status is the lifecycle state of a piece of equipment.
type Status string

const (
	StatusAvailable   Status = "AVAILABLE"
	StatusCheckedOut  Status = "CHECKED_OUT"
	StatusOverdue     Status = "OVERDUE"
	StatusMaintenance Status = "MAINTENANCE"
	StatusLost        Status = "LOST"
	StatusDamaged     Status = "DAMAGED"
	StatusRetired     Status = "RETIRED"
)

// AllStatuses lists every recognized equipment status.
var AllStatuses = []Status{
	StatusAvailable,
	StatusCheckedOut,
	StatusOverdue,
	StatusMaintenance,
	StatusLost,
	StatusDamaged,
	StatusRetired,
}

// Valid reports whether s is one of the enumerated statuses.
func (s Status) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Condition describes the physical condition of a piece of equipment.
type Condition string

const (
	ConditionExcellent Condition = "EXCELLENT"
	ConditionGood      Condition = "GOOD"
	ConditionFair      Condition = "FAIR"
	ConditionPoor      Condition = "POOR"
)

// Equipment represents a tracked piece of physical equipment.
// Status is mutated exclusively through the workflow engine; rows are
// never hard-deleted, retirement is the terminal state.
type Equipment struct {
	ID                  int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	SchoolID            int64      `gorm:"index;not null" json:"schoolId"`
	Name                string     `gorm:"size:256;not null" json:"name"`
	Category            string     `gorm:"size:128" json:"category"`
	SerialNumber        string     `gorm:"size:128" json:"serialNumber"`
	Status              Status     `gorm:"size:32;not null;index" json:"status"`
	Condition           Condition  `gorm:"size:32" json:"condition"`
	PurchasePrice       *float64   `json:"purchasePrice,omitempty"`
	LastMaintenanceDate *time.Time `json:"lastMaintenanceDate,omitempty"`
	RetiredAt           *time.Time `json:"retiredAt,omitempty"`
	RetiredReason       string     `gorm:"size:512" json:"retiredReason,omitempty"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

// TableName pins the table name; "equipment" is uncountable and the
// pluralizer would otherwise leave it ambiguous across dialects.
func (Equipment) TableName() string { return "equipment" }
