package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agrocore/agrocore/internal/db/models"
	"github.com/agrocore/agrocore/internal/db/repositories"
)

// LeadHandlers serves lead funnel endpoints.
type LeadHandlers struct {
	Repo *repositories.LeadRepository
}

type leadRequest struct {
	CompanyName string  `json:"company_name" binding:"required"`
	ContactName string  `json:"contact_name" binding:"required"`
	Email       *string `json:"email"`
	Notes       *string `json:"notes"`
}

type leadStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func validLeadStatus(status string) bool {
	switch status {
	case models.LeadStatusNew, models.LeadStatusContacted, models.LeadStatusQualified,
		models.LeadStatusWon, models.LeadStatusLost:
		return true
	}
	return false
}

// Create handles POST /v1/leads.
func (h *LeadHandlers) Create(c *gin.Context) {
	var req leadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "company_name and contact_name are required"})
		return
	}

	lead := &models.Lead{
		CompanyName: req.CompanyName,
		ContactName: req.ContactName,
		Email:       req.Email,
		Status:      models.LeadStatusNew,
		Notes:       req.Notes,
	}
	if err := h.Repo.Create(c.Request.Context(), lead); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create lead"})
		return
	}

	c.JSON(http.StatusCreated, lead)
}

// Get handles GET /v1/leads/:id.
func (h *LeadHandlers) Get(c *gin.Context) {
	lead, err := h.Repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load lead"})
		return
	}
	if lead == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Lead not found"})
		return
	}

	c.JSON(http.StatusOK, lead)
}

// UpdateStatus handles PUT /v1/leads/:id/status.
func (h *LeadHandlers) UpdateStatus(c *gin.Context) {
	var req leadStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status is required"})
		return
	}
	if !validLeadStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid lead status"})
		return
	}

	if err := h.Repo.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status); err != nil {
		writeMutationError(c, err, "Failed to update lead status")
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

// Deactivate handles DELETE /v1/leads/:id (soft delete).
func (h *LeadHandlers) Deactivate(c *gin.Context) {
	if err := h.Repo.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		writeMutationError(c, err, "Failed to deactivate lead")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deactivated"})
}
