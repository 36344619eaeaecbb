package handlers

import (
	"net/http"
	"strconv"

	"github.com/benediktbwimmer/tagging-service/internal/audit"
	"github.com/gin-gonic/gin"
)

type RunsHandler struct {
	store audit.Store
}

func NewRunsHandler(store audit.Store) *RunsHandler {
	return &RunsHandler{store: store}
}

// Get handles GET /runs/{id}.
func (h *RunsHandler) Get(ctx *gin.Context) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		RespondBadRequest(ctx, "invalid run id", nil)
		return
	}

	run, err := h.store.GetRunByID(ctx.Request.Context(), id)
	if err != nil {
		RespondNotFound(ctx, "run not found")
		return
	}

	ctx.JSON(http.StatusOK, run)
}
