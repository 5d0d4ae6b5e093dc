package sweeper

import (
	"context"
	"time"

	"go.uber.org/zap"

	"equipment-tracker-backend/config"
	"equipment-tracker-backend/internal/model"
	"equipment-tracker-backend/internal/store"
	"equipment-tracker-backend/internal/workflow"
)

// Result reports how many pieces of equipment a sweep promoted.
type Result struct {
	OverdueTransitions     int `json:"overdueTransitions"`
	MaintenanceTransitions int `json:"maintenanceTransitions"`
	LostTransitions        int `json:"lostTransitions"`
}

// Sweeper scans for equipment meeting time-based promotion criteria and
// drives each through the workflow engine, exactly as a manual transition
// would. Overlapping or repeated sweeps are harmless: equipment already
// promoted fails INVALID_TRANSITION and is excluded from the counts.
type Sweeper struct {
	store  store.Store
	engine *workflow.Engine
	cfg    config.SweeperConfig
	log    *zap.Logger
}

// New creates a sweeper.
func New(s store.Store, engine *workflow.Engine, cfg config.SweeperConfig, log *zap.Logger) *Sweeper {
	return &Sweeper{
		store:  s,
		engine: engine,
		cfg:    cfg,
		log:    log,
	}
}

// Sweep runs one scan-and-promote cycle across all schools. A failure on
// one piece of equipment never aborts the scan of the rest; if the
// process dies mid-sweep, committed promotions stand and the remainder is
// picked up on the next tick.
func (s *Sweeper) Sweep(ctx context.Context) Result {
	now := time.Now().UTC()
	var result Result

	// All candidate lists are snapshotted before any promotion runs.
	// Equipment promoted to OVERDUE this tick is therefore not eligible
	// for LOST until a later sweep observes it in that state.
	overdueCutoff := now.Add(-time.Duration(s.cfg.OverdueThresholdHrs) * time.Hour)
	overdue, overdueErr := s.store.ListOverdueCandidates(ctx, overdueCutoff)
	if overdueErr != nil {
		s.log.Error("sweep: overdue scan failed", zap.Error(overdueErr))
	}

	maintenanceCutoff := now.AddDate(0, 0, -s.cfg.MaintenanceDueDays)
	maintenance, maintenanceErr := s.store.ListMaintenanceDueCandidates(ctx, maintenanceCutoff)
	if maintenanceErr != nil {
		s.log.Error("sweep: maintenance scan failed", zap.Error(maintenanceErr))
	}

	lostCutoff := now.AddDate(0, 0, -s.cfg.LostThresholdDays)
	lost, lostErr := s.store.ListLostCandidates(ctx, lostCutoff)
	if lostErr != nil {
		s.log.Error("sweep: lost scan failed", zap.Error(lostErr))
	}

	if overdueErr == nil {
		result.OverdueTransitions = s.promote(ctx, overdue, model.StatusOverdue, "checkout past due")
	}
	if maintenanceErr == nil {
		result.MaintenanceTransitions = s.promote(ctx, maintenance, model.StatusMaintenance, "scheduled maintenance due")
	}
	if lostErr == nil {
		result.LostTransitions = s.promote(ctx, lost, model.StatusLost, "not returned within lost threshold")
	}

	s.log.Info("sweep finished",
		zap.Int("overdue", result.OverdueTransitions),
		zap.Int("maintenance", result.MaintenanceTransitions),
		zap.Int("lost", result.LostTransitions))
	return result
}

// promote drives each candidate through the workflow engine with a
// synthetic system context and returns the number of successes.
func (s *Sweeper) promote(ctx context.Context, candidates []store.SweepCandidate, target model.Status, reason string) int {
	var promoted int
	for _, c := range candidates {
		res := s.engine.Transition(ctx, c.EquipmentID, target, workflow.Context{
			ActorID:  workflow.SystemActorID,
			SchoolID: c.SchoolID,
			Reason:   reason,
		})
		switch {
		case res.Success:
			promoted++
		case res.Failure == workflow.FailureInvalidTransition:
			// Already promoted by a concurrent actor or an earlier sweep.
			s.log.Debug("sweep: equipment already transitioned",
				zap.Int64("equipment_id", c.EquipmentID),
				zap.String("target_status", string(target)))
		default:
			s.log.Warn("sweep: transition failed",
				zap.Int64("equipment_id", c.EquipmentID),
				zap.String("target_status", string(target)),
				zap.String("failure", string(res.Failure)),
				zap.String("message", res.Message))
		}
	}
	return promoted
}
