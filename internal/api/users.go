// users.go: admin-only user management. Password hashes never leave the
// server: responses are shaped through userResponse, and create requests hash
// the plaintext before it reaches the repository.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agrocore/agrocore/internal/auth"
	"github.com/agrocore/agrocore/internal/db/models"
	"github.com/agrocore/agrocore/internal/db/repositories"
)

// UserHandlers serves user administration endpoints.
type UserHandlers struct {
	Repo *repositories.UserRepository
}

type createUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role"`
}

type userResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role, IsActive: u.IsActive}
}

// Create handles POST /v1/users.
func (h *UserHandlers) Create(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email, name and password (min 8 chars) are required"})
		return
	}

	role := req.Role
	if role == "" {
		role = models.RoleMember
	}
	if role != models.RoleAdmin && role != models.RoleMember {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid role"})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	user := &models.User{Email: req.Email, Name: req.Name, Password: hash, Role: role}
	if err := h.Repo.Create(c.Request.Context(), user); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	c.JSON(http.StatusCreated, toUserResponse(user))
}

// Get handles GET /v1/users/:id.
func (h *UserHandlers) Get(c *gin.Context) {
	user, err := h.Repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, toUserResponse(user))
}

// Deactivate handles DELETE /v1/users/:id (soft delete).
func (h *UserHandlers) Deactivate(c *gin.Context) {
	if err := h.Repo.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		writeMutationError(c, err, "Failed to deactivate user")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deactivated"})
}
