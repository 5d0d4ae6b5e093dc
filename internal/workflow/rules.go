package workflow

import (
	"fmt"
	"time"

	"equipment-tracker-backend/config"
	"equipment-tracker-backend/internal/model"
)

// transitions is the authoritative adjacency map of the equipment status
// state machine. RETIRED is terminal. Immutable after startup validation,
// safe for unsynchronized concurrent reads.
var transitions = map[model.Status][]model.Status{
	model.StatusAvailable:   {model.StatusCheckedOut, model.StatusMaintenance, model.StatusLost, model.StatusDamaged, model.StatusRetired},
	model.StatusCheckedOut:  {model.StatusAvailable, model.StatusOverdue, model.StatusLost, model.StatusDamaged},
	model.StatusOverdue:     {model.StatusAvailable, model.StatusLost, model.StatusDamaged},
	model.StatusMaintenance: {model.StatusAvailable, model.StatusRetired},
	model.StatusLost:        {model.StatusAvailable},
	model.StatusDamaged:     {model.StatusAvailable, model.StatusMaintenance, model.StatusRetired},
	model.StatusRetired:     {},
}

// IsTransitionAllowed reports whether equipment may move from one status
// to another.
func IsTransitionAllowed(from, to model.Status) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ValidateRuleTable checks the transition table for internal consistency.
// A non-empty result is a configuration bug and fatal at startup.
func ValidateRuleTable() []string {
	var problems []string

	for _, status := range model.AllStatuses {
		if _, ok := transitions[status]; !ok {
			problems = append(problems, fmt.Sprintf("status %s has no entry in the transition table", status))
		}
	}

	for from, targets := range transitions {
		if !from.Valid() {
			problems = append(problems, fmt.Sprintf("transition table names unknown source status %s", from))
		}
		for _, to := range targets {
			if _, ok := transitions[to]; !ok {
				problems = append(problems, fmt.Sprintf("destination %s of %s is not itself a source key", to, from))
			}
		}
	}

	if targets := transitions[model.StatusRetired]; len(targets) != 0 {
		problems = append(problems, "RETIRED must be terminal but has outgoing transitions")
	}

	return problems
}

// Sanity ceilings for the sweeper policy constants.
const (
	maxOverdueThreshold = 30 * 24 * time.Hour
	maxMaintenanceDue   = 365 * 24 * time.Hour
	maxLostThreshold    = 365 * 24 * time.Hour
)

// ValidateWorkflowRules checks the time-based promotion policy. Run at
// startup alongside ValidateRuleTable; a non-empty result is fatal.
func ValidateWorkflowRules(cfg config.SweeperConfig) []string {
	var problems []string

	overdue := time.Duration(cfg.OverdueThresholdHrs) * time.Hour
	if overdue <= 0 || overdue >= maxOverdueThreshold {
		problems = append(problems, fmt.Sprintf("overdue_threshold_hours %d out of range (0, 720)", cfg.OverdueThresholdHrs))
	}

	maintenance := time.Duration(cfg.MaintenanceDueDays) * 24 * time.Hour
	if maintenance <= 0 || maintenance >= maxMaintenanceDue {
		problems = append(problems, fmt.Sprintf("maintenance_due_days %d out of range (0, 365)", cfg.MaintenanceDueDays))
	}

	lost := time.Duration(cfg.LostThresholdDays) * 24 * time.Hour
	if lost <= 0 || lost >= maxLostThreshold {
		problems = append(problems, fmt.Sprintf("lost_threshold_days %d out of range (0, 365)", cfg.LostThresholdDays))
	}

	return problems
}
