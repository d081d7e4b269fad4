package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/monocle-dev/taskflow/internal/types"
	"github.com/monocle-dev/taskflow/internal/utils"
)

// writeError maps service errors onto status codes. Only messages carried by
// types.Error reach the client.
func writeError(ctx *gin.Context, log *slog.Logger, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, types.ErrValidation), errors.Is(err, types.ErrConflict):
		status = http.StatusBadRequest
	case errors.Is(err, types.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, types.ErrForbidden):
		status = http.StatusForbidden
	}

	var typed *types.Error
	if status == http.StatusInternalServerError || !errors.As(err, &typed) {
		log.Error("request failed", "method", ctx.Request.Method, "path", ctx.FullPath(), "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Internal server error"})
		return
	}

	ctx.JSON(status, gin.H{"success": false, "message": typed.Message})
}

func badRequest(ctx *gin.Context, message string) {
	ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": message})
}

func currentUser(ctx *gin.Context) (types.Identity, bool) {
	identity, err := utils.GetCurrentUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "User not authenticated"})
		return types.Identity{}, false
	}
	return identity, true
}

func pathID(ctx *gin.Context, name string) (string, bool) {
	id, err := utils.GetParam(ctx, name)
	if err != nil {
		badRequest(ctx, err.Error())
		return "", false
	}
	return id, true
}
