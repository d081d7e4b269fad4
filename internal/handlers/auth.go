package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/monocle-dev/taskflow/internal/auth"
	"github.com/monocle-dev/taskflow/internal/middleware"
	"github.com/monocle-dev/taskflow/internal/models"
	"github.com/monocle-dev/taskflow/internal/services"
	"github.com/monocle-dev/taskflow/internal/types"
)

type RegisterRequest struct {
	Name      string `json:"name" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required"`
	CompanyID string `json:"company" binding:"required"`
}

type LoginUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthHandler struct {
	users  *services.UserService
	tokens *auth.Tokens
	domain string
	log    *slog.Logger
}

func NewAuthHandler(users *services.UserService, tokens *auth.Tokens, cookieDomain string, log *slog.Logger) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens, domain: cookieDomain, log: log}
}

func (h *AuthHandler) setTokenCookie(ctx *gin.Context, token string, maxAge int) {
	http.SetCookie(ctx.Writer, &http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    token,
		Path:     "/",
		Domain:   h.domain,
		MaxAge:   maxAge,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteNoneMode,
	})
}

func (h *AuthHandler) issue(ctx *gin.Context, status int, user models.User) {
	token, err := h.tokens.Generate(user)

	if err != nil {
		h.log.Error("generate token", "user_id", user.ID, "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Internal server error"})
		return
	}

	h.setTokenCookie(ctx, token, int(h.tokens.TTL().Seconds()))

	ctx.JSON(status, gin.H{
		"success": true,
		"token":   token,
		"user":    types.NewUserResponse(user),
	})
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var body RegisterRequest

	if err := ctx.ShouldBindJSON(&body); err != nil {
		badRequest(ctx, "Invalid request")
		return
	}

	user, err := h.users.Register(ctx.Request.Context(), services.UserInput{
		Name:      body.Name,
		Email:     body.Email,
		Password:  body.Password,
		CompanyID: body.CompanyID,
	})
	if err != nil {
		writeError(ctx, h.log, err)
		return
	}

	h.issue(ctx, http.StatusCreated, user)
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var body LoginUserRequest

	if err := ctx.ShouldBindJSON(&body); err != nil {
		badRequest(ctx, "Invalid request")
		return
	}

	user, err := h.users.Authenticate(ctx.Request.Context(), body.Email, body.Password)
	if err != nil {
		writeError(ctx, h.log, err)
		return
	}

	h.issue(ctx, http.StatusOK, user)
}

func (h *AuthHandler) Me(ctx *gin.Context) {
	caller, ok := currentUser(ctx)
	if !ok {
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"success": true, "user": caller})
}

func (h *AuthHandler) Logout(ctx *gin.Context) {
	h.setTokenCookie(ctx, "", -1)

	ctx.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged out successfully"})
}
