package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/monocle-dev/taskflow/internal/models"
	"github.com/monocle-dev/taskflow/internal/services"
	"github.com/monocle-dev/taskflow/internal/types"
	"github.com/monocle-dev/taskflow/internal/utils"
	"github.com/monocle-dev/taskflow/internal/visibility"
)

type CreateUserRequest struct {
	Name      string      `json:"name" binding:"required"`
	Email     string      `json:"email" binding:"required,email"`
	Password  string      `json:"password" binding:"required"`
	Role      models.Role `json:"role" binding:"required"`
	CompanyID string      `json:"company"`
}

type UpdateUserRequest struct {
	Name      *string      `json:"name"`
	Role      *models.Role `json:"role"`
	IsActive  *bool        `json:"isActive"`
	CompanyID *string      `json:"company"`
}

type UserHandler struct {
	users *services.UserService
	log   *slog.Logger
}

func NewUserHandler(users *services.UserService, log *slog.Logger) *UserHandler {
	return &UserHandler{users: users, log: log}
}

func (h *UserHandler) Create(ctx *gin.Context) {
	caller, ok := currentUser(ctx)
	if !ok {
		return
	}

	var body CreateUserRequest

	if err := ctx.ShouldBindJSON(&body); err != nil {
		badRequest(ctx, "Invalid request")
		return
	}

	user, err := h.users.Create(ctx.Request.Context(), caller, services.UserInput{
		Name:      body.Name,
		Email:     body.Email,
		Password:  body.Password,
		Role:      body.Role,
		CompanyID: body.CompanyID,
	})
	if err != nil {
		writeError(ctx, h.log, err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"success": true, "user": types.NewUserResponse(user)})
}

func (h *UserHandler) List(ctx *gin.Context) {
	caller, ok := currentUser(ctx)
	if !ok {
		return
	}

	isActive, err := utils.ParseActiveFilter(ctx.Query("isActive"))
	if err != nil {
		badRequest(ctx, err.Error())
		return
	}

	users, err := h.users.List(ctx.Request.Context(), caller, visibility.UserFilter{
		Search:    ctx.Query("search"),
		Role:      models.Role(ctx.Query("role")),
		IsActive:  isActive,
		CompanyID: ctx.Query("company"),
	})
	if err != nil {
		writeError(ctx, h.log, err)
		return
	}

	response := make([]types.UserResponse, 0, len(users))
	for _, u := range users {
		response = append(response, types.NewUserResponse(u))
	}

	ctx.JSON(http.StatusOK, gin.H{"success": true, "count": len(response), "users": response})
}

func (h *UserHandler) Get(ctx *gin.Context) {
	caller, ok := currentUser(ctx)
	if !ok {
		return
	}

	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	user, err := h.users.Get(ctx.Request.Context(), caller, id)
	if err != nil {
		writeError(ctx, h.log, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"success": true, "user": types.NewUserResponse(user)})
}

func (h *UserHandler) Update(ctx *gin.Context) {
	caller, ok := currentUser(ctx)
	if !ok {
		return
	}

	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	var body UpdateUserRequest

	if err := ctx.ShouldBindJSON(&body); err != nil {
		badRequest(ctx, "Invalid request")
		return
	}

	user, err := h.users.Update(ctx.Request.Context(), caller, id, services.UserPatch{
		Name:      body.Name,
		Role:      body.Role,
		IsActive:  body.IsActive,
		CompanyID: body.CompanyID,
	})
	if err != nil {
		writeError(ctx, h.log, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"success": true, "user": types.NewUserResponse(user)})
}

func (h *UserHandler) Delete(ctx *gin.Context) {
	caller, ok := currentUser(ctx)
	if !ok {
		return
	}

	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	if err := h.users.Delete(ctx.Request.Context(), caller, id); err != nil {
		writeError(ctx, h.log, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"success": true, "message": "User deleted successfully"})
}
