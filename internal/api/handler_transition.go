package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"equipment-tracker-backend/internal/model"
	"equipment-tracker-backend/internal/mw"
	"equipment-tracker-backend/internal/workflow"
)

type transitionRequest struct {
	TargetStatus string                  `json:"targetStatus" binding:"required"`
	Reason       string                  `json:"reason"`
	DamageReport *workflow.DamageInput   `json:"damageReport"`
	Checkout     *workflow.CheckoutInput `json:"checkout"`
}

// TransitionEquipment handles POST /api/equipment/:id/transition.
func (h *Handler) TransitionEquipment(c *gin.Context) {
	equipmentID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid equipment ID"})
		return
	}

	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ident, ok := mw.GetIdentity(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	result := h.engine.Transition(c.Request.Context(), equipmentID, model.Status(req.TargetStatus), workflow.Context{
		ActorID:  ident.UserID,
		SchoolID: ident.SchoolID,
		Reason:   req.Reason,
		Damage:   req.DamageReport,
		Checkout: req.Checkout,
	})

	c.JSON(statusCodeFor(result), result)
}

// statusCodeFor maps a transition result to an HTTP status code.
func statusCodeFor(result workflow.Result) int {
	if result.Success {
		return http.StatusOK
	}
	switch result.Failure {
	case workflow.FailureNotFound:
		return http.StatusNotFound
	case workflow.FailureInvalidTransition, workflow.FailureMissingReason:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
