package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"equipment-tracker-backend/internal/mw"
)

// RunSweep handles POST /api/sweep: an on-demand sweep for operators,
// identical to a scheduled tick.
func (h *Handler) RunSweep(c *gin.Context) {
	ident, ok := mw.GetIdentity(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	if ident.Role != "admin" {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "sweep requires the admin role"})
		return
	}

	result := h.sweeper.Sweep(c.Request.Context())
	c.JSON(http.StatusOK, result)
}
