package handler

import (
	"github.com/gin-gonic/gin"
	appidentity "github.com/highprosper/backend/internal/application/identity"
	"github.com/highprosper/backend/internal/domain/identity"
)

// AuthHandler exposes login and registration
type AuthHandler struct {
	BaseHandler
	auth *appidentity.AuthService
}

// NewAuthHandler creates the auth handler
func NewAuthHandler(auth *appidentity.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// LoginRequest carries phone-number credentials
type LoginRequest struct {
	Phone    string `json:"phone" binding:"required,msisdn"`
	Password string `json:"password" binding:"required"`
}

// RegisterRequest creates a new principal
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Phone    string `json:"phone" binding:"required,msisdn"`
	Email    string `json:"email" binding:"omitempty,email"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role" binding:"required,oneof=customer collector manager admin ceo"`
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err)
		return
	}
	result, err := h.auth.Login(c.Request.Context(), req.Phone, req.Password)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Register handles POST /api/v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err)
		return
	}
	p, err := h.auth.Register(c.Request.Context(), req.Name, req.Phone, req.Email, req.Password, identity.Role(req.Role))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, p)
}
