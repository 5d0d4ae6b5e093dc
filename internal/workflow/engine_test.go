package workflow

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"equipment-tracker-backend/config"
	dbpkg "equipment-tracker-backend/internal/db"
	"equipment-tracker-backend/internal/model"
	"equipment-tracker-backend/internal/store"
)

// newTestDB opens an in-memory SQLite database unique to the test. The
// single connection keeps the shared-cache database alive and serializes
// transactions the way a row lock would on postgres.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, dbpkg.Migrate(db))
	return db
}

func newTestEngine(t *testing.T, db *gorm.DB) (*Engine, store.Store) {
	t.Helper()
	s := store.NewGormStore(db)
	cfg := config.WorkflowConfig{HighValueThreshold: 500, DefaultLoanDays: 14}
	return NewEngine(s, cfg, zap.NewNop(), nil), s
}

func seedEquipment(t *testing.T, db *gorm.DB, eq *model.Equipment) *model.Equipment {
	t.Helper()
	require.NoError(t, db.Create(eq).Error)
	return eq
}

func float64Ptr(v float64) *float64 { return &v }

func TestTransition_InvalidTransitionLeavesStatusUnchanged(t *testing.T) {
	db := newTestDB(t)
	engine, _ := newTestEngine(t, db)

	testCases := []struct {
		from   model.Status
		target model.Status
	}{
		{model.StatusAvailable, model.StatusOverdue},
		{model.StatusCheckedOut, model.StatusMaintenance},
		{model.StatusCheckedOut, model.StatusRetired},
		{model.StatusMaintenance, model.StatusCheckedOut},
		{model.StatusLost, model.StatusRetired},
		{model.StatusRetired, model.StatusAvailable},
		{model.StatusRetired, model.StatusMaintenance},
	}

	for _, tc := range testCases {
		t.Run(fmt.Sprintf("%s to %s", tc.from, tc.target), func(t *testing.T) {
			eq := seedEquipment(t, db, &model.Equipment{SchoolID: 1, Name: "Projector", Status: tc.from})

			res := engine.Transition(context.Background(), eq.ID, tc.target, Context{ActorID: 7, SchoolID: 1})

			assert.False(t, res.Success)
			assert.Equal(t, FailureInvalidTransition, res.Failure)
			assert.Contains(t, res.Message, string(tc.from))
			assert.Contains(t, res.Message, string(tc.target))

			var reloaded model.Equipment
			require.NoError(t, db.First(&reloaded, eq.ID).Error)
			assert.Equal(t, tc.from, reloaded.Status, "status must be unchanged after rejection")

			var auditCount int64
			db.Model(&model.AuditEntry{}).Where("entity_id = ?", eq.ID).Count(&auditCount)
			assert.Zero(t, auditCount, "rejected transitions must not be audited")
		})
	}
}

func TestTransition_UnknownTargetStatus(t *testing.T) {
	db := newTestDB(t)
	engine, _ := newTestEngine(t, db)
	eq := seedEquipment(t, db, &model.Equipment{SchoolID: 1, Name: "Projector", Status: model.StatusAvailable})

	res := engine.Transition(context.Background(), eq.ID, "SOMETHING_ELSE", Context{ActorID: 7, SchoolID: 1})

	assert.False(t, res.Success)
	assert.Equal(t, FailureInvalidTransition, res.Failure)
}

func TestTransition_NotFound(t *testing.T) {
	db := newTestDB(t)
	engine, _ := newTestEngine(t, db)
	eq := seedEquipment(t, db, &model.Equipment{SchoolID: 1, Name: "Projector", Status: model.StatusAvailable})

	t.Run("unknown equipment id", func(t *testing.T) {
		res := engine.Transition(context.Background(), 9999, model.StatusCheckedOut, Context{ActorID: 7, SchoolID: 1})
		assert.False(t, res.Success)
		assert.Equal(t, FailureNotFound, res.Failure)
	})

	t.Run("equipment of another school is invisible", func(t *testing.T) {
		res := engine.Transition(context.Background(), eq.ID, model.StatusCheckedOut, Context{ActorID: 7, SchoolID: 2})
		assert.False(t, res.Success)
		assert.Equal(t, FailureNotFound, res.Failure)

		var reloaded model.Equipment
		require.NoError(t, db.First(&reloaded, eq.ID).Error)
		assert.Equal(t, model.StatusAvailable, reloaded.Status)
	})
}

func TestTransition_DamagedRequiresReason(t *testing.T) {
	db := newTestDB(t)
	engine, _ := newTestEngine(t, db)
	eq := seedEquipment(t, db, &model.Equipment{SchoolID: 1, Name: "Microscope", Status: model.StatusAvailable})

	res := engine.Transition(context.Background(), eq.ID, model.StatusDamaged, Context{ActorID: 7, SchoolID: 1})
	assert.False(t, res.Success)
	assert.Equal(t, FailureMissingReason, res.Failure)

	var reloaded model.Equipment
	require.NoError(t, db.First(&reloaded, eq.ID).Error)
	assert.Equal(t, model.StatusAvailable, reloaded.Status)

	var reportCount int64
	db.Model(&model.DamageReport{}).Where("equipment_id = ?", eq.ID).Count(&reportCount)
	assert.Zero(t, reportCount)
}

func TestTransition_DamagedCreatesReportAndMaintenanceRequest(t *testing.T) {
	db := newTestDB(t)
	engine, _ := newTestEngine(t, db)
	eq := seedEquipment(t, db, &model.Equipment{SchoolID: 1, Name: "Microscope", Status: model.StatusAvailable})

	res := engine.Transition(context.Background(), eq.ID, model.StatusDamaged, Context{
		ActorID:  7,
		SchoolID: 1,
		Damage:   &DamageInput{Description: "cracked lens", Severity: model.SeverityHigh},
	})

	require.True(t, res.Success, res.Message)
	assert.Equal(t, model.StatusDamaged, res.NewStatus)

	var reports []model.DamageReport
	require.NoError(t, db.Where("equipment_id = ?", eq.ID).Find(&reports).Error)
	require.Len(t, reports, 1, "exactly one damage report per transition")
	assert.Equal(t, "cracked lens", reports[0].Description)
	assert.Equal(t, model.SeverityHigh, reports[0].Severity)
	assert.Equal(t, int64(7), reports[0].ReportedByID)

	var requests []model.MaintenanceRequest
	require.NoError(t, db.Where("equipment_id = ?", eq.ID).Find(&requests).Error)
	require.Len(t, requests, 1)
	assert.Equal(t, model.MaintenancePending, requests[0].Status)
	assert.Equal(t, "cracked lens", requests[0].Description)
}

func TestTransition_CheckoutAndReturnLifecycle(t *testing.T) {
	db := newTestDB(t)
	engine, _ := newTestEngine(t, db)
	eq := seedEquipment(t, db, &model.Equipment{SchoolID: 1, Name: "Camera", Status: model.StatusAvailable})

	dueDate := time.Now().UTC().AddDate(0, 0, 7)
	res := engine.Transition(context.Background(), eq.ID, model.StatusCheckedOut, Context{
		ActorID:  7,
		SchoolID: 1,
		Checkout: &CheckoutInput{UserID: 42, DueDate: &dueDate},
	})
	require.True(t, res.Success, res.Message)

	var txn model.Transaction
	require.NoError(t, db.Where("equipment_id = ?", eq.ID).First(&txn).Error)
	assert.Equal(t, model.TransactionCheckedOut, txn.Status)
	assert.Equal(t, int64(42), txn.UserID)
	assert.NotEmpty(t, txn.Reference)
	assert.WithinDuration(t, dueDate, txn.DueDate, time.Second)

	res = engine.Transition(context.Background(), eq.ID, model.StatusAvailable, Context{ActorID: 9, SchoolID: 1})
	require.True(t, res.Success, res.Message)

	var txns []model.Transaction
	require.NoError(t, db.Where("equipment_id = ?", eq.ID).Find(&txns).Error)
	require.Len(t, txns, 1, "return must close the open transaction, not create another")
	assert.Equal(t, model.TransactionReturned, txns[0].Status)
	require.NotNil(t, txns[0].ReturnedAt)
	require.NotNil(t, txns[0].ReturnedByID)
	assert.Equal(t, int64(9), *txns[0].ReturnedByID)

	var auditCount int64
	db.Model(&model.AuditEntry{}).Where("entity_id = ?", eq.ID).Count(&auditCount)
	assert.Equal(t, int64(2), auditCount, "one audit entry per successful transition")
}

func TestTransition_CheckoutDefaultsToActorAndLoanPeriod(t *testing.T) {
	db := newTestDB(t)
	engine, _ := newTestEngine(t, db)
	eq := seedEquipment(t, db, &model.Equipment{SchoolID: 1, Name: "Tablet", Status: model.StatusAvailable})

	res := engine.Transition(context.Background(), eq.ID, model.StatusCheckedOut, Context{ActorID: 7, SchoolID: 1})
	require.True(t, res.Success, res.Message)

	var txn model.Transaction
	require.NoError(t, db.Where("equipment_id = ?", eq.ID).First(&txn).Error)
	assert.Equal(t, int64(7), txn.UserID)
	expectedDue := time.Now().UTC().AddDate(0, 0, 14)
	assert.WithinDuration(t, expectedDue, txn.DueDate, time.Minute)
}

func TestTransition_HighValueLostFlagsApproval(t *testing.T) {
	db := newTestDB(t)
	engine, _ := newTestEngine(t, db)

	t.Run("high value equipment", func(t *testing.T) {
		eq := seedEquipment(t, db, &model.Equipment{
			SchoolID: 1, Name: "Laptop", Status: model.StatusAvailable, PurchasePrice: float64Ptr(1000),
		})

		res := engine.Transition(context.Background(), eq.ID, model.StatusLost, Context{ActorID: 7, SchoolID: 1, Reason: "cannot locate"})
		require.True(t, res.Success, res.Message)
		assert.Equal(t, model.StatusLost, res.NewStatus)
		assert.True(t, res.RequiresApproval)
	})

	t.Run("low value equipment", func(t *testing.T) {
		eq := seedEquipment(t, db, &model.Equipment{
			SchoolID: 1, Name: "Whiteboard", Status: model.StatusAvailable, PurchasePrice: float64Ptr(40),
		})

		res := engine.Transition(context.Background(), eq.ID, model.StatusLost, Context{ActorID: 7, SchoolID: 1})
		require.True(t, res.Success, res.Message)
		assert.False(t, res.RequiresApproval)
	})

	t.Run("unknown purchase price", func(t *testing.T) {
		eq := seedEquipment(t, db, &model.Equipment{SchoolID: 1, Name: "Easel", Status: model.StatusAvailable})

		res := engine.Transition(context.Background(), eq.ID, model.StatusLost, Context{ActorID: 7, SchoolID: 1})
		require.True(t, res.Success, res.Message)
		assert.False(t, res.RequiresApproval)
	})
}

func TestTransition_RetireStampsFieldsAndFlagsApproval(t *testing.T) {
	db := newTestDB(t)
	engine, _ := newTestEngine(t, db)
	eq := seedEquipment(t, db, &model.Equipment{SchoolID: 1, Name: "Printer", Status: model.StatusMaintenance})

	res := engine.Transition(context.Background(), eq.ID, model.StatusRetired, Context{ActorID: 7, SchoolID: 1, Reason: "obsolete"})

	require.True(t, res.Success, res.Message)
	assert.Equal(t, model.StatusRetired, res.NewStatus)
	assert.True(t, res.RequiresApproval)

	var reloaded model.Equipment
	require.NoError(t, db.First(&reloaded, eq.ID).Error)
	assert.Equal(t, model.StatusRetired, reloaded.Status)
	require.NotNil(t, reloaded.RetiredAt)
	assert.WithinDuration(t, time.Now().UTC(), *reloaded.RetiredAt, time.Minute)
	assert.Equal(t, "obsolete", reloaded.RetiredReason)
}

func TestTransition_MaintenanceCompletionStampsDate(t *testing.T) {
	db := newTestDB(t)
	engine, _ := newTestEngine(t, db)
	eq := seedEquipment(t, db, &model.Equipment{SchoolID: 1, Name: "Drill", Status: model.StatusMaintenance})

	res := engine.Transition(context.Background(), eq.ID, model.StatusAvailable, Context{ActorID: 7, SchoolID: 1})
	require.True(t, res.Success, res.Message)

	var reloaded model.Equipment
	require.NoError(t, db.First(&reloaded, eq.ID).Error)
	require.NotNil(t, reloaded.LastMaintenanceDate)
	assert.WithinDuration(t, time.Now().UTC(), *reloaded.LastMaintenanceDate, time.Minute)
}

func TestTransition_MaintenanceCreatesRequest(t *testing.T) {
	db := newTestDB(t)
	engine, _ := newTestEngine(t, db)
	eq := seedEquipment(t, db, &model.Equipment{SchoolID: 1, Name: "Saw", Status: model.StatusAvailable})

	res := engine.Transition(context.Background(), eq.ID, model.StatusMaintenance, Context{ActorID: 7, SchoolID: 1, Reason: "blade replacement"})
	require.True(t, res.Success, res.Message)

	var requests []model.MaintenanceRequest
	require.NoError(t, db.Where("equipment_id = ?", eq.ID).Find(&requests).Error)
	require.Len(t, requests, 1)
	assert.Equal(t, "blade replacement", requests[0].Description)
	assert.Equal(t, model.MaintenancePending, requests[0].Status)
}

func TestTransition_AuditEntryContents(t *testing.T) {
	db := newTestDB(t)
	engine, _ := newTestEngine(t, db)
	eq := seedEquipment(t, db, &model.Equipment{SchoolID: 3, Name: "Router", Status: model.StatusAvailable})

	res := engine.Transition(context.Background(), eq.ID, model.StatusLost, Context{ActorID: 11, SchoolID: 3, Reason: "cannot locate"})
	require.True(t, res.Success, res.Message)

	var entry model.AuditEntry
	require.NoError(t, db.Where("entity_id = ?", eq.ID).First(&entry).Error)
	assert.Equal(t, model.AuditEntityEquipment, entry.EntityType)
	assert.Equal(t, model.AuditActionStatus, entry.Action)
	assert.Equal(t, model.StatusAvailable, entry.PreviousStatus)
	assert.Equal(t, model.StatusLost, entry.NewStatus)
	assert.Equal(t, "cannot locate", entry.Reason)
	assert.Equal(t, int64(11), entry.ActorID)
	assert.Equal(t, int64(3), entry.SchoolID)
}

// failingStore passes writes through to the real store but refuses audit
// entries, forcing a failure after the status update has been applied.
type failingStore struct {
	store.Store
}

func (f *failingStore) WithTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	return f.Store.WithTransaction(ctx, func(tx store.Store) error {
		return fn(&failingStore{Store: tx})
	})
}

func (f *failingStore) AppendAuditEntry(context.Context, *model.AuditEntry) error {
	return fmt.Errorf("audit log unavailable")
}

func TestTransition_PersistenceFailureRollsBackAllWrites(t *testing.T) {
	db := newTestDB(t)
	s := &failingStore{Store: store.NewGormStore(db)}
	cfg := config.WorkflowConfig{HighValueThreshold: 500, DefaultLoanDays: 14}
	engine := NewEngine(s, cfg, zap.NewNop(), nil)
	eq := seedEquipment(t, db, &model.Equipment{SchoolID: 1, Name: "Oscilloscope", Status: model.StatusAvailable})

	res := engine.Transition(context.Background(), eq.ID, model.StatusMaintenance, Context{ActorID: 7, SchoolID: 1, Reason: "calibration"})

	assert.False(t, res.Success)
	assert.Equal(t, FailurePersistence, res.Failure)
	assert.Equal(t, "Failed to update equipment status", res.Message)

	var reloaded model.Equipment
	require.NoError(t, db.First(&reloaded, eq.ID).Error)
	assert.Equal(t, model.StatusAvailable, reloaded.Status, "the status update must roll back with the failed audit write")

	var requestCount int64
	db.Model(&model.MaintenanceRequest{}).Where("equipment_id = ?", eq.ID).Count(&requestCount)
	assert.Zero(t, requestCount, "side-effect rows must roll back too")

	var auditCount int64
	db.Model(&model.AuditEntry{}).Where("entity_id = ?", eq.ID).Count(&auditCount)
	assert.Zero(t, auditCount)
}

func TestTransition_ConcurrentRequestsSerialize(t *testing.T) {
	db := newTestDB(t)
	engine, _ := newTestEngine(t, db)
	eq := seedEquipment(t, db, &model.Equipment{SchoolID: 1, Name: "Telescope", Status: model.StatusAvailable})

	var wg sync.WaitGroup
	results := make([]Result, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = engine.Transition(context.Background(), eq.ID, model.StatusCheckedOut, Context{
				ActorID: int64(100 + i), SchoolID: 1,
			})
		}(i)
	}
	wg.Wait()

	var successes, invalid int
	for _, res := range results {
		if res.Success {
			successes++
		} else if res.Failure == FailureInvalidTransition {
			invalid++
		}
	}
	assert.Equal(t, 1, successes, "exactly one concurrent request may win")
	assert.Equal(t, 1, invalid, "the loser must observe the updated status")

	var reloaded model.Equipment
	require.NoError(t, db.First(&reloaded, eq.ID).Error)
	assert.Equal(t, model.StatusCheckedOut, reloaded.Status)

	var txnCount int64
	db.Model(&model.Transaction{}).Where("equipment_id = ?", eq.ID).Count(&txnCount)
	assert.Equal(t, int64(1), txnCount, "only the winner opens a transaction")
}
