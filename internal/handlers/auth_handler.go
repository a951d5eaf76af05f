package handlers

import (
	"net/http"
	"time"

	"github.com/SAP-F-2025/proctor-service/internal/services"
	"github.com/SAP-F-2025/proctor-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type LoginResponse struct {
	Token     string             `json:"token,omitempty"`
	ExpiresAt *time.Time         `json:"expires_at,omitempty"`
	User      *services.Identity `json:"user"`
}

// AuthHandler exchanges credentials for an identity and, in token mode, a bearer token
type AuthHandler struct {
	BaseHandler
	userService services.UserService
	auth        Authenticator
}

func NewAuthHandler(userService services.UserService, auth Authenticator, logger utils.Logger) *AuthHandler {
	return &AuthHandler{
		BaseHandler: NewBaseHandler(logger),
		userService: userService,
		auth:        auth,
	}
}

// StudentLogin
// @Router /student/login [post]
func (h *AuthHandler) StudentLogin(c *gin.Context) {
	var req services.StudentLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondBadPayload(c, err)
		return
	}

	identity, err := h.userService.AuthenticateStudent(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.respondWithLogin(c, identity)
}

// AdminLogin
// @Router /admin/login [post]
func (h *AuthHandler) AdminLogin(c *gin.Context) {
	var req services.AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondBadPayload(c, err)
		return
	}

	identity, err := h.userService.AuthenticateAdmin(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.respondWithLogin(c, identity)
}

// Logout is stateless: tokens simply expire, the client drops its copy.
func (h *AuthHandler) Logout(c *gin.Context) {
	h.LogInfo(c, "User logged out")
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (h *AuthHandler) respondWithLogin(c *gin.Context, identity *services.Identity) {
	resp := LoginResponse{User: identity}

	if issuer, ok := h.auth.(TokenIssuer); ok {
		token, expiresAt, err := issuer.Issue(identity)
		if err != nil {
			h.RespondWithError(c, http.StatusInternalServerError, "Failed to issue token", err)
			return
		}
		resp.Token = token
		resp.ExpiresAt = &expiresAt
	}

	h.LogInfo(c, "User logged in", "login_user", identity.UserID, "role", identity.Role)
	c.JSON(http.StatusOK, resp)
}
