// auth.go handles login and short-lived verification codes. These endpoints
// run before any actor is resolved, so mutations they perform (none today)
// would be recorded without attribution.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agrocore/agrocore/internal/auth"
	"github.com/agrocore/agrocore/internal/db/repositories"
	"github.com/agrocore/agrocore/internal/verification"
)

// AuthHandlers serves authentication endpoints.
type AuthHandlers struct {
	Users    *repositories.UserRepository
	Codes    *verification.Store
	TokenTTL time.Duration
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /v1/auth/login.
func (h *AuthHandlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	user, err := h.Users.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
		return
	}
	// Same response for unknown user and wrong password.
	if user == nil || !user.IsActive || !auth.CheckPassword(user.Password, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := auth.GenerateJWT(user.ID, user.Email, user.Role, h.TokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_in": int(h.TokenTTL.Seconds()),
		"user": gin.H{
			"id":    user.ID,
			"email": user.Email,
			"name":  user.Name,
			"role":  user.Role,
		},
	})
}

type issueCodeRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// IssueVerificationCode handles POST /v1/auth/verification/issue. The code is
// delivered out of band; the response never echoes it.
func (h *AuthHandlers) IssueVerificationCode(c *gin.Context) {
	var req issueCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email is required"})
		return
	}

	if _, err := h.Codes.Issue(c.Request.Context(), req.Email); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue verification code"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "code issued"})
}

type verifyCodeRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required"`
}

// VerifyCode handles POST /v1/auth/verification/verify.
func (h *AuthHandlers) VerifyCode(c *gin.Context) {
	var req verifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and code are required"})
		return
	}

	ok, err := h.Codes.Verify(c.Request.Context(), req.Email, req.Code)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify code"})
		return
	}
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired code"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"verified": true})
}
