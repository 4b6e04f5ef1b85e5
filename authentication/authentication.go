package authentication

import (
	"context"
	"net/http"
	"strings"
	"time"

	"devcamper-backend/apperror"
	"devcamper-backend/config"
	"devcamper-backend/users"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	cookieName     = "token"
	requestTimeout = 10 * time.Second
)

type Handler struct {
	service *Service
	config  *config.Config
	logger  *zerolog.Logger
}

func NewHandler(service *Service, cfg *config.Config, logger *zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		config:  cfg,
		logger:  logger,
	}
}

// sendToken sets the session cookie and writes the token envelope.
func (h *Handler) sendToken(c *gin.Context, status int, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cookieName, token, h.config.CookieMaxAge(), "/", "", h.config.IsProduction(), true)
	c.JSON(status, TokenResponse{Success: true, Token: token})
}

// HandleRegister handles the signup request
func (h *Handler) HandleRegister(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperror.Respond(c, h.logger, apperror.FromBinding(err))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	_, token, err := h.service.Register(ctx, req)
	if err != nil {
		apperror.Respond(c, h.logger, err)
		return
	}
	h.sendToken(c, http.StatusOK, token)
}

// HandleLogin handles the login request
func (h *Handler) HandleLogin(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperror.Respond(c, h.logger, apperror.FromBinding(err))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	_, token, err := h.service.Login(ctx, req.Email, req.Password)
	if err != nil {
		apperror.Respond(c, h.logger, err)
		return
	}
	h.sendToken(c, http.StatusOK, token)
}

// HandleLogout overwrites the session cookie with a short-lived placeholder.
func (h *Handler) HandleLogout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cookieName, "none", 10, "/", "", h.config.IsProduction(), true)
	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{}})
}

func (h *Handler) HandleMe(c *gin.Context) {
	c.JSON(http.StatusOK, users.UserResponse{Success: true, Data: CurrentUser(c)})
}

func (h *Handler) HandleUpdateDetails(c *gin.Context) {
	var req UpdateDetailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperror.Respond(c, h.logger, apperror.FromBinding(err))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	user, err := h.service.UpdateDetails(ctx, CurrentUser(c).ID, req)
	if err != nil {
		apperror.Respond(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, users.UserResponse{Success: true, Data: user})
}

func (h *Handler) HandleUpdatePassword(c *gin.Context) {
	var req UpdatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperror.Respond(c, h.logger, apperror.FromBinding(err))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	token, err := h.service.UpdatePassword(ctx, CurrentUser(c).ID, req)
	if err != nil {
		apperror.Respond(c, h.logger, err)
		return
	}
	h.sendToken(c, http.StatusOK, token)
}

func (h *Handler) HandleForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperror.Respond(c, h.logger, apperror.FromBinding(err))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	// Links are built from configuration, never from request headers.
	base := strings.TrimRight(h.config.PublicURL, "/")
	resetURL := func(token string) string {
		return base + "/api/v1/auth/resetpassword/" + token
	}
	if err := h.service.ForgotPassword(ctx, req.Email, resetURL); err != nil {
		apperror.Respond(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": "If that email is registered, a reset link has been sent"})
}

func (h *Handler) HandleResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperror.Respond(c, h.logger, apperror.FromBinding(err))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	_, token, err := h.service.ResetPassword(ctx, c.Param("resettoken"), req.Password)
	if err != nil {
		apperror.Respond(c, h.logger, err)
		return
	}
	h.sendToken(c, http.StatusOK, token)
}
