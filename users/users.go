package users

import (
	"context"
	"net/http"
	"time"

	"devcamper-backend/apperror"
	"devcamper-backend/query"
	"devcamper-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const requestTimeout = 5 * time.Second

// Schema lists the user fields admins may filter and sort on.
var Schema = query.Schema{
	"name":      query.String,
	"email":     query.String,
	"role":      query.String,
	"createdAt": query.Date,
}

// HiddenFields never leave the server in list responses.
var HiddenFields = []string{"password", "resetPasswordToken", "resetPasswordExpire"}

type Handler struct {
	store  Store
	list   query.Lister
	logger *zerolog.Logger
}

func NewHandler(store Store, list query.Lister, logger *zerolog.Logger) *Handler {
	return &Handler{
		store:  store,
		list:   list,
		logger: logger,
	}
}

// HandleGetUsers lists users with filtering, sorting and pagination.
func (h *Handler) HandleGetUsers(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	result, err := h.list.List(ctx, c.Request.URL.Query())
	if err != nil {
		apperror.Respond(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) HandleGetUser(c *gin.Context) {
	id, err := utils.StringToObjectId(c.Param("id"), "User")
	if err != nil {
		apperror.Respond(c, h.logger, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	user, err := h.store.FindByID(ctx, id)
	if err != nil {
		apperror.Respond(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, UserResponse{Success: true, Data: user})
}

func (h *Handler) HandleCreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperror.Respond(c, h.logger, apperror.FromBinding(err))
		return
	}

	role := RoleUser
	if req.Role != "" {
		role = Role(req.Role)
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		apperror.Respond(c, h.logger, apperror.NewInternal("Could not hash password", err))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	user := &User{
		Name:         req.Name,
		Email:        req.Email,
		Role:         role,
		PasswordHash: hash,
	}
	if err := h.store.Create(ctx, user); err != nil {
		apperror.Respond(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, UserResponse{Success: true, Data: user})
}

func (h *Handler) HandleUpdateUser(c *gin.Context) {
	id, err := utils.StringToObjectId(c.Param("id"), "User")
	if err != nil {
		apperror.Respond(c, h.logger, err)
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperror.Respond(c, h.logger, apperror.FromBinding(err))
		return
	}

	params := UpdateParams{Name: req.Name, Email: req.Email}
	if req.Role != nil {
		role := Role(*req.Role)
		params.Role = &role
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	user, err := h.store.Update(ctx, id, params)
	if err != nil {
		apperror.Respond(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, UserResponse{Success: true, Data: user})
}

func (h *Handler) HandleDeleteUser(c *gin.Context) {
	id, err := utils.StringToObjectId(c.Param("id"), "User")
	if err != nil {
		apperror.Respond(c, h.logger, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if err := h.store.Delete(ctx, id); err != nil {
		apperror.Respond(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{}})
}
