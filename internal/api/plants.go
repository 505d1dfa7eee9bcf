package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agrocore/agrocore/internal/db/models"
	"github.com/agrocore/agrocore/internal/db/repositories"
)

// PlantHandlers serves plant CRUD endpoints.
type PlantHandlers struct {
	Repo *repositories.PlantRepository
}

type plantRequest struct {
	CompanyID  string   `json:"company_id" binding:"required"`
	Name       string   `json:"name" binding:"required"`
	CapacityKW *float64 `json:"capacity_kw"`
	Location   *string  `json:"location"`
}

// Create handles POST /v1/plants.
func (h *PlantHandlers) Create(c *gin.Context) {
	var req plantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "company_id and name are required"})
		return
	}

	plant := &models.Plant{CompanyID: req.CompanyID, Name: req.Name, CapacityKW: req.CapacityKW, Location: req.Location}
	if err := h.Repo.Create(c.Request.Context(), plant); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create plant"})
		return
	}

	c.JSON(http.StatusCreated, plant)
}

// Get handles GET /v1/plants/:id.
func (h *PlantHandlers) Get(c *gin.Context) {
	plant, err := h.Repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load plant"})
		return
	}
	if plant == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Plant not found"})
		return
	}

	c.JSON(http.StatusOK, plant)
}

// ListByCompany handles GET /v1/companies/:id/plants.
func (h *PlantHandlers) ListByCompany(c *gin.Context) {
	plants, err := h.Repo.ListByCompany(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list plants"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"plants": plants, "count": len(plants)})
}

// Update handles PUT /v1/plants/:id.
func (h *PlantHandlers) Update(c *gin.Context) {
	var req plantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "company_id and name are required"})
		return
	}

	plant := &models.Plant{ID: c.Param("id"), Name: req.Name, CapacityKW: req.CapacityKW, Location: req.Location}
	if err := h.Repo.Update(c.Request.Context(), plant); err != nil {
		writeMutationError(c, err, "Failed to update plant")
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

// Deactivate handles DELETE /v1/plants/:id (soft delete).
func (h *PlantHandlers) Deactivate(c *gin.Context) {
	if err := h.Repo.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		writeMutationError(c, err, "Failed to deactivate plant")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deactivated"})
}
