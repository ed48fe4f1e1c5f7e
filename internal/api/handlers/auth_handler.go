package handlers

import (
	"errors"
	"net/http"

	"github.com/PierluigiRizzuExagon/framework-gestionali/internal/api/dto"
	"github.com/PierluigiRizzuExagon/framework-gestionali/internal/domain/user"
	"github.com/PierluigiRizzuExagon/framework-gestionali/pkg/logger"
	"github.com/PierluigiRizzuExagon/framework-gestionali/pkg/security/auth"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AuthHandler handles authentication requests
type AuthHandler struct {
	users      user.Service
	jwtService *auth.JWTService
	logger     *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(users user.Service, jwtService *auth.JWTService, logger *logger.Logger) *AuthHandler {
	return &AuthHandler{
		users:      users,
		jwtService: jwtService,
		logger:     logger,
	}
}

// Login godoc
// @Summary Authenticate a user
// @Description Verifies credentials and issues a JWT carrying user and role identity
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Credentials"
// @Success 200 {object} dto.LoginResponse
// @Router /api/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	u, err := h.users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, user.ErrInvalidCredentials) || errors.Is(err, user.ErrUserInactive) {
			c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "Invalid credentials"})
			return
		}
		h.logger.Error("Failed to authenticate user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to authenticate"})
		return
	}

	roleID := uuid.Nil
	if u.RoleID != nil {
		roleID = *u.RoleID
	}

	token, err := h.jwtService.GenerateToken(u.ID, roleID, u.Email)
	if err != nil {
		h.logger.Error("Failed to generate token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, dto.LoginResponse{Token: token})
}
