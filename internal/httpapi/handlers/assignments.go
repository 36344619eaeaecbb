package handlers

import (
	"net/http"
	"strconv"

	"github.com/benediktbwimmer/tagging-service/internal/audit"
	"github.com/gin-gonic/gin"
)

type AssignmentsHandler struct {
	store audit.Store
}

func NewAssignmentsHandler(store audit.Store) *AssignmentsHandler {
	return &AssignmentsHandler{store: store}
}

// List handles GET /runs/{id}/assignments: every tag the run applied,
// repository- and file-scoped alike.
func (h *AssignmentsHandler) List(ctx *gin.Context) {
	runID, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		RespondBadRequest(ctx, "invalid run id", nil)
		return
	}

	assignments, err := h.store.GetAssignmentsForRun(ctx.Request.Context(), runID)
	if err != nil {
		RespondInternal(ctx, "failed to list assignments")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"assignments": assignments})
}
