package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"equipment-tracker-backend/config"
	"equipment-tracker-backend/internal/model"
	"equipment-tracker-backend/internal/store"
)

// SystemActorID is the synthetic actor recorded for transitions driven by
// the sweeper rather than a user.
const SystemActorID int64 = 0

// Context carries the caller identity and optional payload for a
// transition request.
type Context struct {
	ActorID  int64
	SchoolID int64
	Reason   string
	Damage   *DamageInput
	Checkout *CheckoutInput
}

// DamageInput is the structured payload for a transition into DAMAGED.
type DamageInput struct {
	Description string         `json:"description"`
	Severity    model.Severity `json:"severity"`
}

// CheckoutInput is the structured payload for a transition into CHECKED_OUT.
type CheckoutInput struct {
	UserID  int64      `json:"userId"`
	DueDate *time.Time `json:"dueDate"`
}

// Result is the outcome of a transition request, serializable for the API
// layer.
type Result struct {
	Success          bool         `json:"success"`
	NewStatus        model.Status `json:"newStatus,omitempty"`
	Message          string       `json:"message"`
	RequiresApproval bool         `json:"requiresApproval,omitempty"`
	Failure          FailureKind  `json:"failure,omitempty"`
}

// StatusChange describes a committed transition worth alerting on.
type StatusChange struct {
	EquipmentID int64
	SchoolID    int64
	NewStatus   model.Status
}

// Notifier receives committed status changes for out-of-band delivery.
type Notifier interface {
	Notify(change StatusChange)
}

// statusRule binds a target status to its precondition and its side
// effects. Preconditions run before any write; apply functions run inside
// the transition transaction.
type statusRule struct {
	precondition func(e *Engine, eq *model.Equipment, tc *Context) *Error
	apply        func(e *Engine, ctx context.Context, tx store.Store, eq *model.Equipment, prev model.Status, tc *Context, now time.Time, res *Result) error
}

var statusRules = map[model.Status]statusRule{
	model.StatusAvailable:   {apply: applyAvailable},
	model.StatusCheckedOut:  {apply: applyCheckedOut},
	model.StatusOverdue:     {},
	model.StatusMaintenance: {apply: applyMaintenance},
	model.StatusLost:        {apply: applyLost},
	model.StatusDamaged:     {precondition: requireDamageReason, apply: applyDamaged},
	model.StatusRetired:     {apply: applyRetired},
}

// notifyOn lists the statuses whose transitions dispatch a push alert.
var notifyOn = map[model.Status]bool{
	model.StatusOverdue: true,
	model.StatusDamaged: true,
	model.StatusLost:    true,
}

// Engine validates and applies equipment status transitions. It is the
// only component allowed to mutate Equipment.Status.
type Engine struct {
	store    store.Store
	cfg      config.WorkflowConfig
	log      *zap.Logger
	notifier Notifier
}

// NewEngine creates a workflow engine. notifier may be nil.
func NewEngine(s store.Store, cfg config.WorkflowConfig, log *zap.Logger, notifier Notifier) *Engine {
	return &Engine{
		store:    s,
		cfg:      cfg,
		log:      log,
		notifier: notifier,
	}
}

// Transition moves a piece of equipment into targetStatus, applying the
// status-specific business rules. The row lock taken on the equipment
// record serializes concurrent requests; a loser observes the updated
// status and fails with INVALID_TRANSITION. All writes commit or roll
// back together.
func (e *Engine) Transition(ctx context.Context, equipmentID int64, target model.Status, tc Context) Result {
	if !target.Valid() {
		return Result{
			Success: false,
			Failure: FailureInvalidTransition,
			Message: fmt.Sprintf("unknown target status %q", target),
		}
	}

	var res Result
	err := e.store.WithTransaction(ctx, func(tx store.Store) error {
		eq, err := tx.GetEquipmentForUpdate(ctx, tc.SchoolID, equipmentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &Error{Kind: FailureNotFound, Message: "equipment not found"}
			}
			return fmt.Errorf("loading equipment %d: %w", equipmentID, err)
		}

		if !IsTransitionAllowed(eq.Status, target) {
			return &Error{
				Kind:    FailureInvalidTransition,
				Message: fmt.Sprintf("cannot transition equipment from %s to %s", eq.Status, target),
			}
		}

		rule := statusRules[target]
		if rule.precondition != nil {
			if wfErr := rule.precondition(e, eq, &tc); wfErr != nil {
				return wfErr
			}
		}

		prev := eq.Status
		now := time.Now().UTC()
		eq.Status = target

		if rule.apply != nil {
			if err := rule.apply(e, ctx, tx, eq, prev, &tc, now, &res); err != nil {
				return err
			}
		}

		if err := tx.SaveEquipment(ctx, eq); err != nil {
			return err
		}

		entry := &model.AuditEntry{
			SchoolID:       tc.SchoolID,
			EntityType:     model.AuditEntityEquipment,
			EntityID:       eq.ID,
			Action:         model.AuditActionStatus,
			PreviousStatus: prev,
			NewStatus:      target,
			Reason:         tc.Reason,
			ActorID:        tc.ActorID,
		}
		if err := tx.AppendAuditEntry(ctx, entry); err != nil {
			return err
		}

		res.Success = true
		res.NewStatus = target
		res.Message = fmt.Sprintf("Equipment status changed from %s to %s", prev, target)
		return nil
	})

	if err != nil {
		var wfErr *Error
		if errors.As(err, &wfErr) {
			return Result{Success: false, Failure: wfErr.Kind, Message: wfErr.Message}
		}
		e.log.Error("equipment transition failed",
			zap.Int64("equipment_id", equipmentID),
			zap.Int64("school_id", tc.SchoolID),
			zap.String("target_status", string(target)),
			zap.Error(err))
		return Result{Success: false, Failure: FailurePersistence, Message: "Failed to update equipment status"}
	}

	e.log.Info("equipment status changed",
		zap.Int64("equipment_id", equipmentID),
		zap.Int64("school_id", tc.SchoolID),
		zap.String("new_status", string(target)),
		zap.Int64("actor_id", tc.ActorID))

	if e.notifier != nil && notifyOn[target] {
		e.notifier.Notify(StatusChange{
			EquipmentID: equipmentID,
			SchoolID:    tc.SchoolID,
			NewStatus:   target,
		})
	}

	return res
}

func requireDamageReason(_ *Engine, _ *model.Equipment, tc *Context) *Error {
	if tc.Damage != nil && tc.Damage.Description != "" {
		return nil
	}
	if tc.Reason != "" {
		return nil
	}
	return &Error{
		Kind:    FailureMissingReason,
		Message: "a damage description is required to mark equipment as damaged",
	}
}

// applyCheckedOut opens the checkout transaction for the borrower.
func applyCheckedOut(e *Engine, ctx context.Context, tx store.Store, eq *model.Equipment, _ model.Status, tc *Context, now time.Time, _ *Result) error {
	borrower := tc.ActorID
	dueDate := now.AddDate(0, 0, e.cfg.DefaultLoanDays)
	if tc.Checkout != nil {
		if tc.Checkout.UserID != 0 {
			borrower = tc.Checkout.UserID
		}
		if tc.Checkout.DueDate != nil {
			dueDate = tc.Checkout.DueDate.UTC()
		}
	}

	return tx.CreateTransaction(ctx, &model.Transaction{
		Reference:    uuid.NewString(),
		SchoolID:     eq.SchoolID,
		EquipmentID:  eq.ID,
		UserID:       borrower,
		Status:       model.TransactionCheckedOut,
		CheckedOutAt: now,
		DueDate:      dueDate,
	})
}

// applyAvailable closes any open checkout and, when maintenance just
// finished, stamps the maintenance date that drives the periodic sweep.
func applyAvailable(_ *Engine, ctx context.Context, tx store.Store, eq *model.Equipment, prev model.Status, tc *Context, now time.Time, _ *Result) error {
	if prev == model.StatusMaintenance {
		t := now
		eq.LastMaintenanceDate = &t
	}

	txn, err := tx.GetOpenTransaction(ctx, eq.SchoolID, eq.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("loading open transaction for equipment %d: %w", eq.ID, err)
	}

	returnedAt := now
	txn.Status = model.TransactionReturned
	txn.ReturnedAt = &returnedAt
	actor := tc.ActorID
	txn.ReturnedByID = &actor
	return tx.SaveTransaction(ctx, txn)
}

func applyMaintenance(_ *Engine, ctx context.Context, tx store.Store, eq *model.Equipment, _ model.Status, tc *Context, _ time.Time, _ *Result) error {
	description := tc.Reason
	if description == "" {
		description = "maintenance requested"
	}

	return tx.CreateMaintenanceRequest(ctx, &model.MaintenanceRequest{
		SchoolID:    eq.SchoolID,
		EquipmentID: eq.ID,
		Description: description,
		Severity:    model.SeverityMedium,
		Status:      model.MaintenancePending,
	})
}

// applyDamaged records the damage report and queues the repair.
func applyDamaged(_ *Engine, ctx context.Context, tx store.Store, eq *model.Equipment, _ model.Status, tc *Context, _ time.Time, _ *Result) error {
	description := tc.Reason
	severity := model.SeverityMedium
	if tc.Damage != nil {
		if tc.Damage.Description != "" {
			description = tc.Damage.Description
		}
		if tc.Damage.Severity != "" {
			severity = tc.Damage.Severity
		}
	}

	report := &model.DamageReport{
		SchoolID:     eq.SchoolID,
		EquipmentID:  eq.ID,
		Description:  description,
		Severity:     severity,
		ReportedByID: tc.ActorID,
	}
	if err := tx.CreateDamageReport(ctx, report); err != nil {
		return err
	}

	return tx.CreateMaintenanceRequest(ctx, &model.MaintenanceRequest{
		SchoolID:    eq.SchoolID,
		EquipmentID: eq.ID,
		Description: description,
		Severity:    severity,
		Status:      model.MaintenancePending,
	})
}

// applyLost flags high-value losses for downstream approval. The
// transition itself still completes; approval is advisory.
func applyLost(e *Engine, _ context.Context, _ store.Store, eq *model.Equipment, _ model.Status, _ *Context, _ time.Time, res *Result) error {
	if eq.PurchasePrice != nil && *eq.PurchasePrice > e.cfg.HighValueThreshold {
		res.RequiresApproval = true
	}
	return nil
}

// applyRetired stamps the retirement fields. Retirement always flags for
// approval but completes synchronously.
func applyRetired(_ *Engine, _ context.Context, _ store.Store, eq *model.Equipment, _ model.Status, tc *Context, now time.Time, res *Result) error {
	t := now
	eq.RetiredAt = &t
	eq.RetiredReason = tc.Reason
	res.RequiresApproval = true
	return nil
}
