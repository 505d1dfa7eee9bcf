// companies.go: thin CRUD handlers for companies. Handlers only bind, call
// the repository, and shape the response; auditing and attribution happen
// inside the repository's mutation path, never here.
package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agrocore/agrocore/internal/db/models"
	"github.com/agrocore/agrocore/internal/db/repositories"
)

// CompanyHandlers serves company CRUD endpoints.
type CompanyHandlers struct {
	Repo *repositories.CompanyRepository
}

type companyRequest struct {
	Code  string  `json:"code" binding:"required"`
	Name  string  `json:"name" binding:"required"`
	TaxID *string `json:"tax_id"`
	City  *string `json:"city"`
}

// Create handles POST /v1/companies.
func (h *CompanyHandlers) Create(c *gin.Context) {
	var req companyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code and name are required"})
		return
	}

	company := &models.Company{Code: req.Code, Name: req.Name, TaxID: req.TaxID, City: req.City}
	if err := h.Repo.Create(c.Request.Context(), company); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create company"})
		return
	}

	c.JSON(http.StatusCreated, company)
}

// List handles GET /v1/companies?includeInactive=.
func (h *CompanyHandlers) List(c *gin.Context) {
	includeInactive := c.Query("includeInactive") == "true"

	companies, err := h.Repo.List(c.Request.Context(), includeInactive)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list companies"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"companies": companies, "count": len(companies)})
}

// Get handles GET /v1/companies/:id.
func (h *CompanyHandlers) Get(c *gin.Context) {
	company, err := h.Repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load company"})
		return
	}
	if company == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Company not found"})
		return
	}

	c.JSON(http.StatusOK, company)
}

// Update handles PUT /v1/companies/:id.
func (h *CompanyHandlers) Update(c *gin.Context) {
	var req companyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code and name are required"})
		return
	}

	company := &models.Company{ID: c.Param("id"), Code: req.Code, Name: req.Name, TaxID: req.TaxID, City: req.City}
	if err := h.Repo.Update(c.Request.Context(), company); err != nil {
		writeMutationError(c, err, "Failed to update company")
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

// Deactivate handles DELETE /v1/companies/:id (soft delete).
func (h *CompanyHandlers) Deactivate(c *gin.Context) {
	if err := h.Repo.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		writeMutationError(c, err, "Failed to deactivate company")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deactivated"})
}

// Reactivate handles POST /v1/companies/:id/reactivate.
func (h *CompanyHandlers) Reactivate(c *gin.Context) {
	if err := h.Repo.Reactivate(c.Request.Context(), c.Param("id")); err != nil {
		writeMutationError(c, err, "Failed to reactivate company")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reactivated"})
}

// Delete handles DELETE /v1/companies/:id/purge (hard delete, admin only).
func (h *CompanyHandlers) Delete(c *gin.Context) {
	if err := h.Repo.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeMutationError(c, err, "Failed to delete company")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// writeMutationError maps repository errors onto HTTP statuses.
func writeMutationError(c *gin.Context, err error, msg string) {
	if errors.Is(err, repositories.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}
