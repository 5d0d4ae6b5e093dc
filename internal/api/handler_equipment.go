package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"equipment-tracker-backend/internal/model"
	"equipment-tracker-backend/internal/mw"
)

// ListEquipment handles GET /api/equipment, optionally filtered by status.
func (h *Handler) ListEquipment(c *gin.Context) {
	ident, ok := mw.GetIdentity(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	status := model.Status(c.Query("status"))
	if status != "" && !status.Valid() {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unknown status filter"})
		return
	}

	items, err := h.store.ListEquipment(c.Request.Context(), ident.SchoolID, status)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve equipment"})
		return
	}

	c.JSON(http.StatusOK, items)
}

// GetEquipment handles GET /api/equipment/:id.
func (h *Handler) GetEquipment(c *gin.Context) {
	ident, ok := mw.GetIdentity(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	equipmentID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid equipment ID"})
		return
	}

	eq, err := h.store.GetEquipment(c.Request.Context(), ident.SchoolID, equipmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "equipment not found"})
		} else {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve equipment"})
		}
		return
	}

	c.JSON(http.StatusOK, eq)
}

// GetStatusSummary handles GET /api/status_summary: per-school equipment
// counts keyed by status, with zeroes for statuses not present.
func (h *Handler) GetStatusSummary(c *gin.Context) {
	ident, ok := mw.GetIdentity(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	counts, err := h.store.CountEquipmentByStatus(c.Request.Context(), ident.SchoolID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to aggregate equipment"})
		return
	}

	summary := make(map[model.Status]int64, len(model.AllStatuses))
	for _, status := range model.AllStatuses {
		summary[status] = counts[status]
	}

	c.JSON(http.StatusOK, summary)
}
