package handlers

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/monocle-dev/taskflow/internal/realtime"
	"github.com/monocle-dev/taskflow/internal/types"
	"github.com/monocle-dev/taskflow/internal/visibility"
)

type WebSocketHandler struct {
	hub *realtime.Hub
	log *slog.Logger
}

func NewWebSocketHandler(hub *realtime.Hub, log *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, log: log}
}

// Serve subscribes the caller to refresh events of a company inside their
// scope.
func (h *WebSocketHandler) Serve(ctx *gin.Context) {
	caller, ok := currentUser(ctx)
	if !ok {
		return
	}

	companyID, ok := pathID(ctx, "company_id")
	if !ok {
		return
	}

	scope, err := visibility.For(caller)
	if err != nil {
		writeError(ctx, h.log, err)
		return
	}

	if !scope.CoversCompany(companyID) {
		writeError(ctx, h.log, types.Errorf(types.ErrNotFound, "Company not found"))
		return
	}

	h.hub.Serve(ctx.Writer, ctx.Request, companyID)
}
