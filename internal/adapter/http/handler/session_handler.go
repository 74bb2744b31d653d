package handler

import (
	"net/http"

	"ecash-billing-engine/internal/adapter/http/dto"
	"ecash-billing-engine/internal/adapter/http/middleware"
	"ecash-billing-engine/internal/core/ports"
	"ecash-billing-engine/pkg/response"

	"github.com/gin-gonic/gin"
)

// SessionHandler handles login and logout of wallet sessions.
type SessionHandler struct {
	sessions ports.SessionManager
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessions ports.SessionManager) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// Login handles POST /api/v1/session/login.
func (h *SessionHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	token, expiry, err := h.sessions.Login(c.Request.Context(), req.Identity)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.LoginResponse{
		Identity: req.Identity,
		Token:    token,
		Expiry:   expiry.Unix(),
	})
}

// Logout handles POST /api/v1/session/logout.
func (h *SessionHandler) Logout(c *gin.Context) {
	identity := c.GetString(middleware.CtxIdentity)
	if err := h.sessions.Logout(c.Request.Context(), identity); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
