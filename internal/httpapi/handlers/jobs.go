package handlers

import (
	"net/http"
	"strconv"

	"github.com/benediktbwimmer/tagging-service/internal/audit"
	"github.com/benediktbwimmer/tagging-service/internal/utils"
	"github.com/gin-gonic/gin"
)

const defaultJobsPageSize = 20
const maxJobsPageSize = 100

type JobsHandler struct {
	store audit.Store
}

func NewJobsHandler(store audit.Store) *JobsHandler {
	return &JobsHandler{store: store}
}

// List handles GET /jobs: cursor-paginated by (updatedAt, id) descending,
// per §9's reuse of the teacher's keyset-cursor idiom.
func (h *JobsHandler) List(ctx *gin.Context) {
	limit := defaultJobsPageSize
	if v := ctx.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxJobsPageSize {
		limit = maxJobsPageSize
	}

	var beforeUpdatedAt, beforeID int64
	if raw := ctx.Query("cursor"); raw != "" {
		c, err := utils.DecodeRunCursor(raw)
		if err != nil {
			RespondBadRequest(ctx, "invalid cursor", nil)
			return
		}
		beforeUpdatedAt = c.SortAt.UnixMilli()
		if id, err := strconv.ParseInt(c.ID, 10, 64); err == nil {
			beforeID = id
		}
	}

	jobs, err := h.store.ListRecentJobs(ctx.Request.Context(), limit, beforeUpdatedAt, beforeID)
	if err != nil {
		RespondInternal(ctx, "failed to list jobs")
		return
	}

	var nextCursor string
	if len(jobs) == limit {
		last := jobs[len(jobs)-1]
		if c, err := utils.EncodeRunCursor(last.UpdatedAt, strconv.FormatInt(last.ID, 10)); err == nil {
			nextCursor = c
		}
	}

	ctx.JSON(http.StatusOK, gin.H{
		"jobs":       jobs,
		"nextCursor": nextCursor,
	})
}

// Get handles GET /jobs/{id}.
func (h *JobsHandler) Get(ctx *gin.Context) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		RespondBadRequest(ctx, "invalid job id", nil)
		return
	}

	job, err := h.store.GetJobByID(ctx.Request.Context(), id)
	if err != nil {
		RespondNotFound(ctx, "job not found")
		return
	}

	ctx.JSON(http.StatusOK, job)
}

// Runs handles GET /jobs/{id}/runs: the most recent runs for one job, newest
// first.
func (h *JobsHandler) Runs(ctx *gin.Context) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		RespondBadRequest(ctx, "invalid job id", nil)
		return
	}

	limit := defaultJobsPageSize
	if v := ctx.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= maxJobsPageSize {
			limit = n
		}
	}

	runs, err := h.store.ListRunsForJob(ctx.Request.Context(), id, limit)
	if err != nil {
		RespondInternal(ctx, "failed to list runs")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"runs": runs})
}
