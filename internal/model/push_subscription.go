package model

import "time"

// PushSubscription holds a staff member's browser push subscription,
// scoped to a school so alerts never cross tenants.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey" json:"endpoint"`
	SchoolID  int64     `gorm:"index;not null" json:"schoolId"`
	P256DH    string    `gorm:"column:p256dh;not null" json:"p256dh"`
	Auth      string    `gorm:"not null" json:"auth"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
}
