package model

import "time"

// TransactionStatus is the state of a checkout transaction.
type TransactionStatus string

const (
	TransactionCheckedOut TransactionStatus = "CHECKED_OUT"
	TransactionReturned   TransactionStatus = "RETURNED"
)

// Transaction is one checkout of a piece of equipment by a user.
// At most one transaction per equipment may be CHECKED_OUT at a time;
// a partial unique index enforces this on postgres.
type Transaction struct {
	ID           int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	Reference    string            `gorm:"size:64;uniqueIndex;not null" json:"reference"`
	SchoolID     int64             `gorm:"index;not null" json:"schoolId"`
	EquipmentID  int64             `gorm:"index;not null" json:"equipmentId"`
	UserID       int64             `gorm:"index;not null" json:"userId"`
	Status       TransactionStatus `gorm:"size:32;not null;index" json:"status"`
	CheckedOutAt time.Time         `gorm:"not null" json:"checkedOutAt"`
	DueDate      time.Time         `gorm:"not null;index" json:"dueDate"`
	ReturnedAt   *time.Time        `json:"returnedAt,omitempty"`
	ReturnedByID *int64            `json:"returnedById,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}
