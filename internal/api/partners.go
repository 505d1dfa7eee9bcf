package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agrocore/agrocore/internal/db/models"
	"github.com/agrocore/agrocore/internal/db/repositories"
)

// PartnerHandlers serves partner CRUD endpoints.
type PartnerHandlers struct {
	Repo *repositories.PartnerRepository
}

type partnerRequest struct {
	Name         string  `json:"name" binding:"required"`
	ContactEmail *string `json:"contact_email"`
	Phone        *string `json:"phone"`
}

// Create handles POST /v1/partners.
func (h *PartnerHandlers) Create(c *gin.Context) {
	var req partnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	partner := &models.Partner{Name: req.Name, ContactEmail: req.ContactEmail, Phone: req.Phone}
	if err := h.Repo.Create(c.Request.Context(), partner); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create partner"})
		return
	}

	c.JSON(http.StatusCreated, partner)
}

// Get handles GET /v1/partners/:id.
func (h *PartnerHandlers) Get(c *gin.Context) {
	partner, err := h.Repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load partner"})
		return
	}
	if partner == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Partner not found"})
		return
	}

	c.JSON(http.StatusOK, partner)
}

// Update handles PUT /v1/partners/:id.
func (h *PartnerHandlers) Update(c *gin.Context) {
	var req partnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	partner := &models.Partner{ID: c.Param("id"), Name: req.Name, ContactEmail: req.ContactEmail, Phone: req.Phone}
	if err := h.Repo.Update(c.Request.Context(), partner); err != nil {
		writeMutationError(c, err, "Failed to update partner")
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

// Deactivate handles DELETE /v1/partners/:id (soft delete).
func (h *PartnerHandlers) Deactivate(c *gin.Context) {
	if err := h.Repo.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		writeMutationError(c, err, "Failed to deactivate partner")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deactivated"})
}
