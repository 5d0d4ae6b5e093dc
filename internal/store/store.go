package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"equipment-tracker-backend/internal/model"
)

// SweepCandidate identifies one piece of equipment eligible for a
// time-based promotion, together with the tenant scope it belongs to.
type SweepCandidate struct {
	EquipmentID int64
	SchoolID    int64
	DueDate     time.Time
}

// Store defines the interface for all database operations. Methods called
// inside WithTransaction operate on the enclosing transaction.
type Store interface {
	DB() *gorm.DB
	WithTransaction(ctx context.Context, fn func(tx Store) error) error

	GetEquipment(ctx context.Context, schoolID, equipmentID int64) (*model.Equipment, error)
	GetEquipmentForUpdate(ctx context.Context, schoolID, equipmentID int64) (*model.Equipment, error)
	SaveEquipment(ctx context.Context, eq *model.Equipment) error
	ListEquipment(ctx context.Context, schoolID int64, status model.Status) ([]model.Equipment, error)
	CountEquipmentByStatus(ctx context.Context, schoolID int64) (map[model.Status]int64, error)

	CreateTransaction(ctx context.Context, txn *model.Transaction) error
	GetOpenTransaction(ctx context.Context, schoolID, equipmentID int64) (*model.Transaction, error)
	SaveTransaction(ctx context.Context, txn *model.Transaction) error

	CreateMaintenanceRequest(ctx context.Context, req *model.MaintenanceRequest) error
	CreateDamageReport(ctx context.Context, report *model.DamageReport) error
	AppendAuditEntry(ctx context.Context, entry *model.AuditEntry) error

	ListOverdueCandidates(ctx context.Context, dueBefore time.Time) ([]SweepCandidate, error)
	ListMaintenanceDueCandidates(ctx context.Context, notSince time.Time) ([]SweepCandidate, error)
	ListLostCandidates(ctx context.Context, dueBefore time.Time) ([]SweepCandidate, error)

	GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error)
	SaveSubscription(ctx context.Context, sub *model.PushSubscription) error
	DeleteSubscription(ctx context.Context, endpoint string) error
	ListSubscriptionsBySchool(ctx context.Context, schoolID int64) ([]model.PushSubscription, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// WithTransaction runs fn inside a single database transaction. The Store
// passed to fn shares the transaction, so row locks taken by
// GetEquipmentForUpdate hold until commit or rollback.
func (s *gormStore) WithTransaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

func (s *gormStore) GetEquipment(ctx context.Context, schoolID, equipmentID int64) (*model.Equipment, error) {
	var eq model.Equipment
	err := s.db.WithContext(ctx).
		Where("school_id = ?", schoolID).
		First(&eq, equipmentID).Error
	if err != nil {
		return nil, err
	}
	return &eq, nil
}

// GetEquipmentForUpdate loads an equipment row under a row-level lock.
// Must be called inside WithTransaction. SQLite has no FOR UPDATE; its
// single-writer model serializes transactions anyway.
func (s *gormStore) GetEquipmentForUpdate(ctx context.Context, schoolID, equipmentID int64) (*model.Equipment, error) {
	q := s.db.WithContext(ctx)
	if s.db.Dialector.Name() != "sqlite" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var eq model.Equipment
	if err := q.Where("school_id = ?", schoolID).First(&eq, equipmentID).Error; err != nil {
		return nil, err
	}
	return &eq, nil
}

func (s *gormStore) SaveEquipment(ctx context.Context, eq *model.Equipment) error {
	if err := s.db.WithContext(ctx).Save(eq).Error; err != nil {
		return fmt.Errorf("failed to save equipment %d: %w", eq.ID, err)
	}
	return nil
}

func (s *gormStore) ListEquipment(ctx context.Context, schoolID int64, status model.Status) ([]model.Equipment, error) {
	q := s.db.WithContext(ctx).Where("school_id = ?", schoolID)
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var items []model.Equipment
	if err := q.Order("id").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *gormStore) CountEquipmentByStatus(ctx context.Context, schoolID int64) (map[model.Status]int64, error) {
	type row struct {
		Status model.Status
		Total  int64
	}
	var rows []row
	err := s.db.WithContext(ctx).
		Model(&model.Equipment{}).
		Select("status, COUNT(*) AS total").
		Where("school_id = ?", schoolID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[model.Status]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Total
	}
	return counts, nil
}

func (s *gormStore) CreateTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := s.db.WithContext(ctx).Create(txn).Error; err != nil {
		return fmt.Errorf("failed to create transaction for equipment %d: %w", txn.EquipmentID, err)
	}
	return nil
}

func (s *gormStore) GetOpenTransaction(ctx context.Context, schoolID, equipmentID int64) (*model.Transaction, error) {
	var txn model.Transaction
	err := s.db.WithContext(ctx).
		Where("school_id = ? AND equipment_id = ? AND status = ?", schoolID, equipmentID, model.TransactionCheckedOut).
		First(&txn).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (s *gormStore) SaveTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := s.db.WithContext(ctx).Save(txn).Error; err != nil {
		return fmt.Errorf("failed to save transaction %d: %w", txn.ID, err)
	}
	return nil
}

func (s *gormStore) CreateMaintenanceRequest(ctx context.Context, req *model.MaintenanceRequest) error {
	if err := s.db.WithContext(ctx).Create(req).Error; err != nil {
		return fmt.Errorf("failed to create maintenance request for equipment %d: %w", req.EquipmentID, err)
	}
	return nil
}

func (s *gormStore) CreateDamageReport(ctx context.Context, report *model.DamageReport) error {
	if err := s.db.WithContext(ctx).Create(report).Error; err != nil {
		return fmt.Errorf("failed to create damage report for equipment %d: %w", report.EquipmentID, err)
	}
	return nil
}

func (s *gormStore) AppendAuditEntry(ctx context.Context, entry *model.AuditEntry) error {
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to append audit entry for %s %d: %w", entry.EntityType, entry.EntityID, err)
	}
	return nil
}

// ListOverdueCandidates returns CHECKED_OUT equipment whose open
// transaction's due date is older than dueBefore.
func (s *gormStore) ListOverdueCandidates(ctx context.Context, dueBefore time.Time) ([]SweepCandidate, error) {
	var out []SweepCandidate
	err := s.db.WithContext(ctx).
		Model(&model.Equipment{}).
		Select("equipment.id AS equipment_id, equipment.school_id AS school_id, transactions.due_date AS due_date").
		Joins("JOIN transactions ON transactions.equipment_id = equipment.id AND transactions.status = ?", model.TransactionCheckedOut).
		Where("equipment.status = ? AND transactions.due_date < ?", model.StatusCheckedOut, dueBefore).
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list overdue candidates: %w", err)
	}
	return out, nil
}

// ListMaintenanceDueCandidates returns AVAILABLE equipment not maintained
// since notSince. Equipment never maintained falls back to its creation time.
func (s *gormStore) ListMaintenanceDueCandidates(ctx context.Context, notSince time.Time) ([]SweepCandidate, error) {
	var out []SweepCandidate
	err := s.db.WithContext(ctx).
		Model(&model.Equipment{}).
		Select("equipment.id AS equipment_id, equipment.school_id AS school_id").
		Where("status = ?", model.StatusAvailable).
		Where("last_maintenance_date < ? OR (last_maintenance_date IS NULL AND created_at < ?)", notSince, notSince).
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list maintenance-due candidates: %w", err)
	}
	return out, nil
}

// ListLostCandidates returns OVERDUE equipment whose open transaction's
// due date is older than dueBefore.
func (s *gormStore) ListLostCandidates(ctx context.Context, dueBefore time.Time) ([]SweepCandidate, error) {
	var out []SweepCandidate
	err := s.db.WithContext(ctx).
		Model(&model.Equipment{}).
		Select("equipment.id AS equipment_id, equipment.school_id AS school_id, transactions.due_date AS due_date").
		Joins("JOIN transactions ON transactions.equipment_id = equipment.id AND transactions.status = ?", model.TransactionCheckedOut).
		Where("equipment.status = ? AND transactions.due_date < ?", model.StatusOverdue, dueBefore).
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list lost candidates: %w", err)
	}
	return out, nil
}

func (s *gormStore) GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	if err := s.db.WithContext(ctx).First(&sub, "endpoint = ?", endpoint).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *gormStore) SaveSubscription(ctx context.Context, sub *model.PushSubscription) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"school_id", "p256dh", "auth"}),
	}).Create(sub).Error
	if err != nil {
		return fmt.Errorf("failed to save subscription: %w", err)
	}
	return nil
}

func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	if err := s.db.WithContext(ctx).Delete(&model.PushSubscription{Endpoint: endpoint}).Error; err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	return nil
}

func (s *gormStore) ListSubscriptionsBySchool(ctx context.Context, schoolID int64) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	if err := s.db.WithContext(ctx).Where("school_id = ?", schoolID).Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}
